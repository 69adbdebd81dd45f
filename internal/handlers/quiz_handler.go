package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"yourvocab/internal/logger"
	"yourvocab/internal/quiz"
	"yourvocab/internal/security"
)

// SessionLocker serializes requests touching the same quiz session
type SessionLocker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// QuizHandler serves the quiz session endpoints
type QuizHandler struct {
	engine *quiz.Engine
	locker SessionLocker
	log    *logger.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(engine *quiz.Engine, locker SessionLocker, log *logger.Logger) *QuizHandler {
	return &QuizHandler{engine: engine, locker: locker, log: log}
}

type startRequest struct {
	LessonID int64 `json:"lesson_id"`
}

type startResponse struct {
	SessionID string        `json:"session_id"`
	Question  quiz.Question `json:"question"`
	Position  int           `json:"position"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
}

type answerRequest struct {
	Answer string `json:"answer"`
	Reveal bool   `json:"reveal"`
}

type answerResponse struct {
	Outcome       quiz.Outcome   `json:"outcome"`
	Score         int            `json:"score"`
	ScoreMessage  string         `json:"score_message"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	Question      *quiz.Question `json:"question,omitempty"`
	Position      int            `json:"position,omitempty"`
	Total         int            `json:"total,omitempty"`
	Completed     bool           `json:"completed"`
	Mistakes      int            `json:"mistakes,omitempty"`
	ElapsedMs     int64          `json:"elapsed_ms,omitempty"`
}

type sessionResponse struct {
	SessionID string         `json:"session_id"`
	LessonID  int64          `json:"lesson_id"`
	Status    quiz.Status    `json:"status"`
	Question  *quiz.Question `json:"question,omitempty"`
	Position  int            `json:"position"`
	Total     int            `json:"total"`
	Score     int            `json:"score"`
	Mistakes  int            `json:"mistakes"`
	Completed bool           `json:"completed"`
	ElapsedMs int64          `json:"elapsed_ms"`
}

// StartSession handles POST /api/sessions
func (h *QuizHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}
	if req.LessonID <= 0 {
		respondWithError(w, r, h.log, badRequest("lesson_id is required"))
		return
	}

	res, err := h.engine.Start(r.Context(), LearnerFromContext(r.Context()), req.LessonID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, startResponse{
		SessionID: res.SessionID,
		Question:  res.Question,
		Position:  res.Position,
		Total:     res.Total,
		Score:     res.Score,
	})
}

// SubmitAnswer handles POST /api/sessions/{id}/answer
func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if !security.ValidSessionID(sessionID) {
		respondWithError(w, r, h.log, quiz.ErrSessionNotFound)
		return
	}

	var req answerRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	lockCtx, cancel := context.WithTimeout(r.Context(), sessionLockWait)
	defer cancel()
	unlock, err := h.locker.Lock(lockCtx, sessionID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errSessionBusy
		}
		respondWithError(w, r, h.log, err)
		return
	}
	defer unlock()

	res, err := h.engine.Submit(r.Context(), LearnerFromContext(r.Context()), sessionID, req.Answer, req.Reveal)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, answerResponse{
		Outcome:       res.Outcome,
		Score:         res.Score,
		ScoreMessage:  res.ScoreMessage(),
		CorrectAnswer: res.CorrectAnswer,
		Question:      res.Question,
		Position:      res.Position,
		Total:         res.Total,
		Completed:     res.Completed,
		Mistakes:      res.Mistakes,
		ElapsedMs:     res.Elapsed.Milliseconds(),
	})
}

// GetSession handles GET /api/sessions/{id}
func (h *QuizHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if !security.ValidSessionID(sessionID) {
		respondWithError(w, r, h.log, quiz.ErrSessionNotFound)
		return
	}

	view, s, err := h.engine.GetSession(r.Context(), LearnerFromContext(r.Context()), sessionID)
	if err != nil {
		respondWithError(w, r, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, sessionResponse{
		SessionID: s.ID,
		LessonID:  s.LessonID,
		Status:    s.Status,
		Question:  view.Question,
		Position:  view.Position,
		Total:     view.Total,
		Score:     view.Score,
		Mistakes:  view.Mistakes,
		Completed: view.Completed,
		ElapsedMs: view.Elapsed.Milliseconds(),
	})
}
