package quiz

import (
	"context"
	"fmt"
	"strings"

	"yourvocab/internal/models"
)

// MistakeRecorder durably increments a learner's mistake count on a question,
// at most once per (session, seq)
type MistakeRecorder interface {
	RecordMistake(ctx context.Context, e models.MistakeEvent) error
}

// Judge decides the outcome of one submission against a card.
// Both sides are trimmed and compared case-sensitively.
func Judge(card Card, answer string, reveal bool) Outcome {
	if reveal {
		return Revealed
	}
	if strings.TrimSpace(answer) == strings.TrimSpace(card.Answer) {
		return Correct
	}
	return Wrong
}

// Evaluate judges the submission for the current card and applies its score.
// Wrong and revealed answers are first counted durably; when that fails the
// session is left untouched. The position is not advanced.
func Evaluate(ctx context.Context, s *Session, answer string, reveal bool, mistakes MistakeRecorder) (Outcome, error) {
	if s.Status != StatusInProgress {
		return "", fmt.Errorf("%w: evaluate in status %q", ErrInvalidSessionState, s.Status)
	}
	card, err := s.Current()
	if err != nil {
		return "", err
	}

	outcome := Judge(card, answer, reveal)
	if outcome != Correct {
		event := models.MistakeEvent{
			SessionID:  s.ID,
			Seq:        s.Seq,
			LearnerID:  s.LearnerID,
			QuestionID: card.QuestionID,
		}
		if err := mistakes.RecordMistake(ctx, event); err != nil {
			return "", fmt.Errorf("%w: record mistake: %w", ErrPersistence, err)
		}
		s.Mistakes++
	}
	s.Score += ScoreDelta(outcome, s.Rules)
	s.Seq++
	return outcome, nil
}
