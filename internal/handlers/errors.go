package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"yourvocab/internal/logger"
	"yourvocab/internal/quiz"
	"yourvocab/internal/service"
	"yourvocab/internal/validation"
)

// APIError is the JSON error body sent to clients
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Kind + ": " + e.Message
}

var errSessionBusy = &APIError{
	Status:  http.StatusServiceUnavailable,
	Kind:    KindSessionBusy,
	Message: "This session is handling another request. Please try again.",
}

// classify maps an error to what the client is told about it
func classify(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		return &APIError{Status: http.StatusBadRequest, Kind: KindValidation, Message: verr.Error()}
	}

	switch {
	case errors.Is(err, quiz.ErrEmptyLesson):
		return &APIError{Status: http.StatusUnprocessableEntity, Kind: KindEmptyLesson, Message: "This lesson has no questions yet."}
	case errors.Is(err, quiz.ErrNotEnrolled):
		return &APIError{Status: http.StatusForbidden, Kind: KindNotEnrolled, Message: "You are not enrolled in this course."}
	case errors.Is(err, quiz.ErrSessionNotFound):
		return &APIError{Status: http.StatusNotFound, Kind: KindSessionNotFound, Message: "Quiz session not found or expired."}
	case errors.Is(err, quiz.ErrLessonNotFound):
		return &APIError{Status: http.StatusNotFound, Kind: KindLessonNotFound, Message: "Lesson not found."}
	case errors.Is(err, service.ErrCourseNotFound):
		return &APIError{Status: http.StatusNotFound, Kind: KindCourseNotFound, Message: "Course not found."}
	case errors.Is(err, service.ErrForbidden):
		return &APIError{Status: http.StatusForbidden, Kind: KindForbidden, Message: "You are not allowed to do that."}
	case errors.Is(err, service.ErrAlreadyEnrolled):
		return &APIError{Status: http.StatusConflict, Kind: KindAlreadyEnrolled, Message: "You are already enrolled in this course."}
	case errors.Is(err, quiz.ErrInvalidTransition):
		return &APIError{Status: http.StatusConflict, Kind: KindTransition, Message: "This quiz session is over. Start a new session to play again."}
	case errors.Is(err, quiz.ErrInvalidSessionState):
		return &APIError{Status: http.StatusInternalServerError, Kind: KindSessionState, Message: ErrInternalServerError}
	case errors.Is(err, quiz.ErrPersistence):
		return &APIError{Status: http.StatusServiceUnavailable, Kind: KindPersistence, Message: "Your progress could not be saved. Please submit your answer again."}
	default:
		return &APIError{Status: http.StatusInternalServerError, Kind: KindInternal, Message: ErrInternalServerError}
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	apiErr := classify(err)

	fields := []interface{}{"kind", apiErr.Kind, "status", apiErr.Status, "path", r.URL.Path, "error", err}
	switch {
	case apiErr.Kind == KindTransition, apiErr.Kind == KindSessionState:
		// the quiz engine already logged these with the session id
		log.Debug("Request failed", fields...)
	case apiErr.Status >= 500:
		log.Error("Request failed", fields...)
	default:
		log.Info("Request rejected", fields...)
	}

	respondJSON(w, apiErr.Status, map[string]*APIError{"error": apiErr})
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
