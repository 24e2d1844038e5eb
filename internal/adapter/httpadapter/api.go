package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	maxHistoryLimit = 100
	// trendHistoryLimit is how many recent records feed the linear trend.
	trendHistoryLimit = 48
	maxProfileBody    = 1 << 16
)

type classifyResponse struct {
	AQI int `json:"aqi"`
	domain.Classification
}

type profileRequest struct {
	Username  string `json:"username"`
	Age       *int   `json:"age"`
	HasAsthma bool   `json:"has_asthma"`
}

type historyResponse struct {
	UserID  string                 `json:"user_id"`
	Records []domain.HistoryRecord `json:"records"`
}

type trendResponse struct {
	UserID   string                 `json:"user_id"`
	Hours    int                    `json:"hours"`
	Forecast []domain.ForecastPoint `json:"forecast"`
}

type forecastResponse struct {
	UserID   string               `json:"user_id"`
	Geo      domain.Geo           `json:"geo"`
	Forecast domain.ForecastPoint `json:"forecast"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	aqi, err := strconv.Atoi(q.Get("aqi"))
	if err != nil || aqi < 0 {
		writeError(w, http.StatusBadRequest, "aqi must be a non-negative integer")
		return
	}
	age, err := intParam(q.Get("age"), domain.DefaultAge)
	if err != nil {
		writeError(w, http.StatusBadRequest, "age must be an integer")
		return
	}
	asthma, err := boolParam(q.Get("asthma"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "asthma must be a boolean")
		return
	}

	sharedobs.WriteJSON(w, http.StatusOK, classifyResponse{
		AQI:            aqi,
		Classification: domain.Classify(aqi, domain.DeriveSensitivity(age, asthma)),
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.profileFor(r, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, profile)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid profile body: %v", err))
		return
	}

	profile := domain.DefaultProfile(r.PathValue("id"))
	profile.Username = req.Username
	profile.HasAsthma = req.HasAsthma
	if req.Age != nil {
		profile.Age = *req.Age
	}
	profile.UpdatedAt = domain.Now()

	if err := s.store.SaveProfile(r.Context(), profile); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Info("profile updated", "user_id", profile.UserID, "sensitive", profile.Sensitive())
	sharedobs.WriteJSON(w, http.StatusOK, profile)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "air quality provider is disabled")
		return
	}
	geo, ok := geoParams(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("id")
	profile, err := s.profileFor(r, userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	cond, err := s.provider.CurrentConditions(r.Context(), geo.Lat, geo.Lon)
	if err != nil {
		s.logger.Warn("current conditions lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "air quality provider request failed")
		return
	}
	if cond.AQI == 0 && cond.DominantPollutant == "" {
		writeError(w, http.StatusBadGateway, "air quality provider returned no data")
		return
	}

	observedAt := cond.ObservedAt
	if observedAt.IsZero() {
		observedAt = domain.Now()
	}
	adv := domain.NewAdvisory(domain.Reading{
		ID:                domain.NewReadingID(),
		UserID:            userID,
		Geo:               geo,
		AQI:               cond.AQI,
		DominantPollutant: cond.DominantPollutant,
		Pollutants:        cond.Pollutants,
		ObservedAt:        observedAt,
		ConditionsSource:  "provider",
	}, profile)

	if err := s.store.RecordAdvisories(r.Context(), []domain.Advisory{adv}); err != nil {
		s.logger.Warn("record current reading failed", "user_id", userID, "error", err)
	}
	sharedobs.WriteJSON(w, http.StatusOK, adv)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 0)
	if err != nil || limit < 0 || limit > maxHistoryLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 0 and %d", maxHistoryLimit))
		return
	}
	userID := r.PathValue("id")
	records, err := s.store.History(r.Context(), userID, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []domain.HistoryRecord{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, historyResponse{UserID: userID, Records: records})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	hours, err := intParam(r.URL.Query().Get("hours"), domain.DefaultTrendHours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "hours must be an integer")
		return
	}
	userID := r.PathValue("id")
	profile, err := s.profileFor(r, userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	records, err := s.store.History(r.Context(), userID, trendHistoryLimit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	points, err := domain.ForecastTrend(records, hours)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, trendResponse{
		UserID:   userID,
		Hours:    hours,
		Forecast: domain.ClassifyForecast(points, profile.Sensitive()),
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "air quality provider is disabled")
		return
	}
	geo, ok := geoParams(w, r)
	if !ok {
		return
	}
	var target time.Time
	if v := r.URL.Query().Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be RFC3339")
			return
		}
		target = t
	}
	userID := r.PathValue("id")
	profile, err := s.profileFor(r, userID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	point, err := s.provider.Forecast(r.Context(), geo.Lat, geo.Lon, target)
	if err != nil {
		if errors.Is(err, domain.ErrNoForecast) {
			s.writeDomainError(w, err)
			return
		}
		s.logger.Warn("forecast lookup failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "air quality provider request failed")
		return
	}
	classified := domain.ClassifyForecast([]domain.ForecastPoint{point}, profile.Sensitive())
	sharedobs.WriteJSON(w, http.StatusOK, forecastResponse{UserID: userID, Geo: geo, Forecast: classified[0]})
}

// profileFor returns the stored profile, or the default one for unknown users.
func (s *Server) profileFor(r *http.Request, userID string) (domain.Profile, error) {
	profile, err := s.store.Profile(r.Context(), userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.DefaultProfile(userID), nil
	}
	return profile, err
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidProfile), errors.Is(err, domain.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrProfileNotFound), errors.Is(err, domain.ErrNoHistory),
		errors.Is(err, domain.ErrNoForecast):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientHistory):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func geoParams(w http.ResponseWriter, r *http.Request) (domain.Geo, bool) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "lat and lon must be valid coordinates")
		return domain.Geo{}, false
	}
	return domain.Geo{Lat: lat, Lon: lon}, true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
