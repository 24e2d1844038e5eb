package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultAge is used for users who never filled in their profile.
const DefaultAge = 30

// maxAge bounds profile ages; anything above is treated as a typo.
const maxAge = 130

// Profile holds the user fields that drive personalised advice.
type Profile struct {
	UserID    string    `json:"user_id" yaml:"user_id"`
	Username  string    `json:"username,omitempty" yaml:"username"`
	Age       int       `json:"age" yaml:"age"`
	HasAsthma bool      `json:"has_asthma" yaml:"has_asthma"`
	UpdatedAt time.Time `json:"updated_at,omitzero" yaml:"-"`
}

// DefaultProfile returns the profile assumed for a user with no stored settings.
func DefaultProfile(userID string) Profile {
	return Profile{UserID: userID, Age: DefaultAge}
}

// Sensitive derives the user's sensitivity from age and asthma flag.
func (p Profile) Sensitive() bool {
	return DeriveSensitivity(p.Age, p.HasAsthma)
}

// Validate checks the profile fields a caller may set.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidProfile)
	}
	if p.Age < 0 || p.Age > maxAge {
		return fmt.Errorf("%w: age %d out of range [0, %d]", ErrInvalidProfile, p.Age, maxAge)
	}
	return nil
}
