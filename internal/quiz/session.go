package quiz

import (
	"fmt"
	"time"

	"yourvocab/internal/models"
)

// Status is the lifecycle state of a session
type Status string

const (
	StatusUninitialized Status = ""
	StatusInProgress    Status = "in_progress"
	// StatusCompleting holds a finished session whose attempt is not yet recorded
	StatusCompleting Status = "completing"
	StatusCompleted  Status = "completed"
)

// Session is the per-learner, per-lesson state carried between requests
type Session struct {
	ID         string       `json:"id"`
	LearnerID  int64        `json:"learner_id"`
	LessonID   int64        `json:"lesson_id"`
	CourseID   int64        `json:"course_id"`
	Deck       []Card       `json:"deck"`
	Index      int          `json:"index"`
	Score      int          `json:"score"`
	Mistakes   int          `json:"mistakes"`
	Seq        int          `json:"seq"`
	Rules      models.Rules `json:"rules"`
	Status     Status       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Total is the number of cards in the deck
func (s *Session) Total() int {
	return len(s.Deck)
}

// Current returns the card being asked
func (s *Session) Current() (Card, error) {
	if s.Index < 0 || s.Index >= len(s.Deck) {
		return Card{}, fmt.Errorf("%w: index %d of %d", ErrInvalidSessionState, s.Index, len(s.Deck))
	}
	return s.Deck[s.Index], nil
}

// Position is the 1-based position of the current card
func (s *Session) Position() int {
	if s.Index >= len(s.Deck) {
		return len(s.Deck)
	}
	return s.Index + 1
}

// Finished reports whether the final answer has been accepted
func (s *Session) Finished() bool {
	return s.Status == StatusCompleting || s.Status == StatusCompleted
}

// Elapsed is the time from start to the final answer, or to now while running
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.FinishedAt != nil {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Expired reports whether the session has been idle longer than ttl
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}
