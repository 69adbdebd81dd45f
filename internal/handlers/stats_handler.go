package handlers

import (
	"net/http"

	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/service"
)

// StatsHandler serves attempt history and mistake statistics
type StatsHandler struct {
	stats *service.StatsService
	log   *logger.Logger
}

type attemptResponse struct {
	models.Attempt
	ElapsedMs int64 `json:"elapsed_ms"`
}

type summaryResponse struct {
	models.LessonSummary
	AverageElapsedMs int64 `json:"average_elapsed_ms"`
}

func NewStatsHandler(stats *service.StatsService, log *logger.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, log: log}
}

// ListAttempts handles GET /api/lessons/{id}/attempts
func (h *StatsHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	attempts, err := h.stats.ListAttempts(r.Context(), LearnerFromContext(r.Context()), lessonID, limit)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptResponse{Attempt: a, ElapsedMs: a.ElapsedMs()})
	}
	respondJSON(w, http.StatusOK, out)
}

// LessonSummary handles GET /api/lessons/{id}/summary
func (h *StatsHandler) LessonSummary(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	summary, err := h.stats.LessonSummary(r.Context(), LearnerFromContext(r.Context()), lessonID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, summaryResponse{
		LessonSummary:    *summary,
		AverageElapsedMs: summary.AverageElapsed.Milliseconds(),
	})
}

// HardestQuestions handles GET /api/lessons/{id}/mistakes
func (h *StatsHandler) HardestQuestions(w http.ResponseWriter, r *http.Request) {
	lessonID, err := parseID(r, "id")
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	questions, err := h.stats.HardestQuestions(r.Context(), LearnerFromContext(r.Context()), lessonID, limit)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	if questions == nil {
		questions = []models.QuestionMistakes{}
	}
	respondJSON(w, http.StatusOK, questions)
}
