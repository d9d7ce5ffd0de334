package handlers

import (
	"errors"
	"mime"
	"net/http"
	"time"

	"moodwave/internal/app"
	"moodwave/internal/auth"
	"moodwave/internal/logger"
	"moodwave/internal/repository/db"
	"moodwave/internal/service/forecast"
	"moodwave/internal/service/training"
	"moodwave/pkg/validation"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds a submitted form
const maxBodyBytes = 64 << 10

// Request/Response types

type ObservationData struct {
	ID             string  `json:"id"`
	Timestamp      string  `json:"timestamp"`
	Mood           float64 `json:"mood"`
	SleepTime      float64 `json:"sleep_time"`
	ToSleepTime    float64 `json:"to_sleep_time"`
	TrainingTime   float64 `json:"training_time"`
	Weight         float64 `json:"weight"`
	TypingSpeed    float64 `json:"typing_speed"`
	TypingAccuracy float64 `json:"typing_accuracy"`
}

type TrainingData struct {
	HistoryLen   int    `json:"history_len"`
	State        string `json:"state"`
	Decision     string `json:"decision"`
	ModelVersion int    `json:"model_version,omitempty"`
}

type SubmitResponse struct {
	Observation ObservationData `json:"observation"`
	Training    *TrainingData   `json:"training,omitempty"`
	Warning     string          `json:"warning,omitempty"`
}

type ObservationsResponse struct {
	Observations []ObservationData `json:"observations"`
	Count        int               `json:"count"`
}

type ForecastResponse struct {
	Status       string    `json:"status"`
	Days         int       `json:"days"`
	Count        int       `json:"count"`
	Values       []float64 `json:"values"`
	Final        float64   `json:"final"`
	ModelVersion int       `json:"model_version,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error,omitempty"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// MoodHandlers serves the survey and forecast endpoints
type MoodHandlers struct {
	config              *app.Config
	submissionValidator *validation.SubmissionRequestValidator
	forecastValidator   *validation.ForecastRequestValidator
}

// NewMoodHandlers creates MoodHandlers on top of the wired services
func NewMoodHandlers(config *app.Config) *MoodHandlers {
	return &MoodHandlers{
		config:              config,
		submissionValidator: validation.NewSubmissionRequestValidator(),
		forecastValidator:   validation.NewForecastRequestValidator(config.Forecaster.MaxHorizon()),
	}
}

// SubmitObservationHandler stores one survey form and reports the retraining outcome
func (mh *MoodHandlers) SubmitObservationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		mh.sendError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	form, err := readForm(w, r)
	if err != nil {
		mh.sendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := mh.submissionValidator.ValidateForm(form); err != nil {
		mh.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	res, err := mh.config.Submissions.Submit(r.Context(), userID, form)
	if err != nil {
		logger.ForUser(userID).WithError(err).Error("Submission failed")
		if res != nil {
			mh.sendError(w, errorStatus(err), "Observation stored but retraining could not run", err)
			return
		}
		mh.sendError(w, errorStatus(err), "Error storing observation", err)
		return
	}

	resp := SubmitResponse{Observation: toObservationData(*res.Observation)}
	if out := res.Training; out != nil {
		resp.Training = toTrainingData(out)
		if out.Warning != nil {
			resp.Warning = out.Warning.Error()
		}
	}

	mh.writeJSON(w, http.StatusCreated, resp)
}

// GetObservationsHandler returns the caller's history for charting
func (mh *MoodHandlers) GetObservationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		mh.sendError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	history, err := mh.config.DB.History(r.Context(), userID)
	if err != nil {
		logger.ForUser(userID).WithError(err).Error("Error reading history")
		mh.sendError(w, errorStatus(err), "Error retrieving observations", err)
		return
	}

	data := make([]ObservationData, 0, len(history))
	for _, obs := range history {
		data = append(data, toObservationData(obs))
	}

	mh.writeJSON(w, http.StatusOK, ObservationsResponse{Observations: data, Count: len(data)})
}

// ForecastHandler predicts the next ?days=N mood values
func (mh *MoodHandlers) ForecastHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		mh.sendError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	days, err := mh.forecastValidator.ParseDays(r.URL.Query().Get("days"))
	if err != nil {
		mh.sendError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	res, err := mh.config.Forecaster.Forecast(r.Context(), userID, days)
	if err != nil {
		logger.ForUser(userID).WithError(err).WithField("days", days).Error("Forecast failed")
		mh.sendError(w, errorStatus(err), "Error producing forecast", err)
		return
	}

	values := res.Values
	if values == nil {
		values = []float64{}
	}

	logger.ForUser(userID).WithFields(logrus.Fields{
		"days":   days,
		"status": res.Status,
	}).Debug("Forecast served")

	mh.writeJSON(w, http.StatusOK, ForecastResponse{
		Status:       string(res.Status),
		Days:         days,
		Count:        res.Count,
		Values:       values,
		Final:        res.Final(),
		ModelVersion: res.ModelVersion,
	})
}

// HealthHandler reports liveness
func (mh *MoodHandlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Helper methods

// readForm accepts either a JSON object of strings or an urlencoded form.
// Repeated form keys keep their first value.
func readForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var form map[string]string
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			return nil, err
		}
		if form == nil {
			form = map[string]string{}
		}
		return form, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	form := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			form[key] = values[0]
		}
	}
	return form, nil
}

// errorStatus maps a service error to its HTTP status
func errorStatus(err error) int {
	switch {
	case errors.Is(err, forecast.ErrInvalidHorizon):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func toObservationData(obs db.Observation) ObservationData {
	return ObservationData{
		ID:             obs.ID,
		Timestamp:      obs.Timestamp.UTC().Format(time.RFC3339),
		Mood:           obs.Mood,
		SleepTime:      obs.SleepTime,
		ToSleepTime:    obs.ToSleepTime,
		TrainingTime:   obs.TrainingTime,
		Weight:         obs.Weight,
		TypingSpeed:    obs.TypingSpeed,
		TypingAccuracy: obs.TypingAccuracy,
	}
}

func toTrainingData(out *training.Outcome) *TrainingData {
	data := &TrainingData{
		HistoryLen: out.HistoryLen,
		State:      string(out.State),
		Decision:   out.Decision,
	}
	if out.Model != nil {
		data.ModelVersion = out.Model.Version
	}
	return data
}

func (mh *MoodHandlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a standardized JSON error response
func (mh *MoodHandlers) sendError(w http.ResponseWriter, status int, message string, err error) {
	writeError(w, status, message, err)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errResp := ErrorResponse{
		Code:      status,
		Message:   message,
		Retryable: status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests,
	}
	if err != nil {
		errResp.Error = err.Error()
	}
	json.NewEncoder(w).Encode(errResp)
}
