package domain

import "fmt"

// Category is the public-health label for an AQI band.
type Category string

const (
	CategoryGood               Category = "Good"
	CategoryModerate           Category = "Moderate"
	CategoryUnhealthySensitive Category = "Unhealthy for Sensitive Groups"
	CategoryUnhealthy          Category = "Unhealthy"
	CategoryVeryUnhealthy      Category = "Very Unhealthy"
)

// Categories lists every category in ascending severity.
var Categories = []Category{
	CategoryGood,
	CategoryModerate,
	CategoryUnhealthySensitive,
	CategoryUnhealthy,
	CategoryVeryUnhealthy,
}

// Severity returns the ordinal of the category, 0 for Good up to 4 for
// Very Unhealthy. Unknown categories return -1.
func (c Category) Severity() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return -1
}

// RiskColor is the display token paired with a category.
type RiskColor string

const (
	RiskGreen  RiskColor = "green"
	RiskYellow RiskColor = "yellow"
	RiskOrange RiskColor = "orange"
	RiskRed    RiskColor = "red"
)

// Sensitivity labels carried on every classification.
const (
	SensitivityHigh = "High (Asthma/Age)"
	SensitivityLow  = "Low (General Population)"
)

// SeniorAge is the age from which a user is treated as sensitive.
const SeniorAge = 65

// Recommendation texts.
const (
	recGood              = "Excellent air quality. Go out and enjoy your day!"
	recModerate          = "Acceptable air quality."
	recModerateSensitive = " Sensitive groups should limit prolonged outdoor exertion."
	recUSGHealthy        = "Sensitive groups should limit outdoor exertion. Generally safe for healthy individuals."
	recUSGSensitive      = "Air quality is UNHEALTHY for your condition. AVOID outdoor exertion."
	recDangerousFormat   = "Air quality is DANGEROUSLY high at %d. STAY INDOORS and run an air purifier."
)

// Classification is the outcome of classifying one reading for one sensitivity.
type Classification struct {
	Category       Category  `json:"category"`
	RiskColor      RiskColor `json:"risk_color"`
	Recommendation string    `json:"recommendation"`
	UnsafeForUser  bool      `json:"unsafe_for_user"`
	Sensitivity    string    `json:"sensitivity"`
}

// Classify maps an AQI value to its category, risk color, recommendation and
// whether it is unsafe for a user with the given sensitivity. aqi must be
// non-negative; callers validate input before classifying.
func Classify(aqi int, sensitive bool) Classification {
	c := Classification{Sensitivity: SensitivityLabel(sensitive)}

	switch {
	case aqi <= 50:
		c.Category = CategoryGood
		c.RiskColor = RiskGreen
		c.Recommendation = recGood
	case aqi <= 100:
		c.Category = CategoryModerate
		c.RiskColor = RiskYellow
		c.Recommendation = recModerate
		if sensitive {
			c.Recommendation += recModerateSensitive
		}
	case aqi <= 150:
		c.Category = CategoryUnhealthySensitive
		c.RiskColor = RiskOrange
		if sensitive {
			c.UnsafeForUser = true
			c.Recommendation = recUSGSensitive
		} else {
			c.Recommendation = recUSGHealthy
		}
	default:
		c.Category = CategoryVeryUnhealthy
		if aqi <= 200 {
			c.Category = CategoryUnhealthy
		}
		c.RiskColor = RiskRed
		c.UnsafeForUser = true
		c.Recommendation = fmt.Sprintf(recDangerousFormat, aqi)
	}

	return c
}

// DeriveSensitivity reports whether a user needs the sensitive-group advice:
// anyone with a respiratory condition, or aged SeniorAge or older.
func DeriveSensitivity(age int, hasCondition bool) bool {
	return hasCondition || age >= SeniorAge
}

// SensitivityLabel returns the human-readable sensitivity label.
func SensitivityLabel(sensitive bool) string {
	if sensitive {
		return SensitivityHigh
	}
	return SensitivityLow
}
