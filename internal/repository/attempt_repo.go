package repository

import (
	"context"
	"fmt"
	"time"

	"yourvocab/internal/database"
	"yourvocab/internal/logger"
	"yourvocab/internal/models"
)

// AttemptRepository handles mistake statistics and completed attempts
type AttemptRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *database.DB, log *logger.Logger) *AttemptRepository {
	return &AttemptRepository{db: db, log: log}
}

// RecordMistake atomically adds one to the learner's mistake count on the
// event's question. Replaying an event already stored for the same session
// and seq leaves the counter unchanged. A question deleted by a lesson edit
// is skipped.
func (r *AttemptRepository) RecordMistake(ctx context.Context, e models.MistakeEvent) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM mistake_events WHERE session_id = ? AND seq = ?", e.SessionID, e.Seq).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check mistake event: %w", err)
		}
		if count > 0 {
			r.log.Info("Mistake already recorded", "session_id", e.SessionID, "seq", e.Seq)
			return nil
		}

		_, err = tx.ExecContext(ctx, "INSERT INTO mistake_events (session_id, seq, learner_id, question_id) VALUES (?, ?, ?, ?)",
			e.SessionID, e.Seq, e.LearnerID, e.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to insert mistake event: %w", err)
		}

		result, err := tx.ExecContext(ctx, r.db.Dialect.IncrementMistakeQuery(), e.LearnerID, e.QuestionID)
		if err != nil {
			return fmt.Errorf("failed to increment mistake: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			r.log.Info("Mistake not recorded, question no longer exists", "question_id", e.QuestionID, "learner_id", e.LearnerID)
		}
		return nil
	})
}

// PruneMistakeEvents drops events older than cutoff. Sessions that old have
// expired, so their events can no longer be replayed.
func (r *AttemptRepository) PruneMistakeEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM mistake_events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune mistake events: %w", err)
	}
	return result.RowsAffected()
}

// RecordCompletion stores the attempt and bumps the lesson's attendance in
// one transaction. A session id that is already recorded is a no-op, and so
// is a lesson that was deleted while the session ran.
func (r *AttemptRepository) RecordCompletion(ctx context.Context, a *models.Attempt) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM attempts WHERE session_id = ?", a.SessionID).Scan(&count); err != nil {
			return fmt.Errorf("failed to check attempt: %w", err)
		}
		if count > 0 {
			return nil
		}

		result, err := tx.ExecContext(ctx, "UPDATE lessons SET attendance_count = attendance_count + 1 WHERE id = ?", a.LessonID)
		if err != nil {
			return fmt.Errorf("failed to update attendance: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			r.log.Info("Attempt not recorded, lesson no longer exists", "session_id", a.SessionID, "lesson_id", a.LessonID)
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO attempts (session_id, learner_id, lesson_id, started_at, elapsed_ms, points, mistakes_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, a.SessionID, a.LearnerID, a.LessonID, a.StartedAt.UTC(), a.ElapsedMs(), a.Points, a.MistakesCount)
		if err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM mistake_events WHERE session_id = ?", a.SessionID); err != nil {
			return fmt.Errorf("failed to clear mistake events: %w", err)
		}
		return nil
	})
}

const attemptColumns = "id, session_id, learner_id, lesson_id, started_at, elapsed_ms, points, mistakes_count, created_at"

// ListAttempts returns a learner's attempts on a lesson, newest first
func (r *AttemptRepository) ListAttempts(ctx context.Context, learnerID, lessonID int64, limit int) ([]models.Attempt, error) {
	query := "SELECT " + attemptColumns + " FROM attempts WHERE learner_id = ? AND lesson_id = ? ORDER BY started_at DESC, id DESC LIMIT ?"
	return r.queryAttempts(ctx, query, learnerID, lessonID, limit)
}

// ListAllAttempts returns every attempt
func (r *AttemptRepository) ListAllAttempts(ctx context.Context) ([]models.Attempt, error) {
	return r.queryAttempts(ctx, "SELECT "+attemptColumns+" FROM attempts ORDER BY id")
}

func (r *AttemptRepository) queryAttempts(ctx context.Context, query string, args ...interface{}) ([]models.Attempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.Attempt{}
	for rows.Next() {
		var a models.Attempt
		var elapsedMs int64
		err := rows.Scan(
			&a.ID,
			&a.SessionID,
			&a.LearnerID,
			&a.LessonID,
			&a.StartedAt,
			&elapsedMs,
			&a.Points,
			&a.MistakesCount,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		a.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// LessonSummary aggregates a learner's attempts on a lesson
func (r *AttemptRepository) LessonSummary(ctx context.Context, learnerID, lessonID int64) (*models.LessonSummary, error) {
	s := &models.LessonSummary{LessonID: lessonID}
	var avgElapsed float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(points), 0), COALESCE(AVG(points), 0), COALESCE(AVG(elapsed_ms), 0)
		FROM attempts
		WHERE learner_id = ? AND lesson_id = ?
	`, learnerID, lessonID).Scan(&s.Attempts, &s.BestPoints, &s.AveragePoints, &avgElapsed)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize attempts: %w", err)
	}
	s.AverageElapsed = time.Duration(avgElapsed) * time.Millisecond
	return s, nil
}

// HardestQuestions returns the lesson's questions the learner got wrong, most mistakes first
func (r *AttemptRepository) HardestQuestions(ctx context.Context, learnerID, lessonID int64, limit int) ([]models.QuestionMistakes, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, q.lesson_id, q.question_text, q.answer_text, q.position, m.mistakes_count
		FROM question_mistakes m
		INNER JOIN questions q ON q.id = m.question_id
		WHERE m.learner_id = ? AND q.lesson_id = ?
		ORDER BY m.mistakes_count DESC, q.position ASC
		LIMIT ?
	`, learnerID, lessonID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list mistakes: %w", err)
	}
	defer rows.Close()

	result := []models.QuestionMistakes{}
	for rows.Next() {
		var qm models.QuestionMistakes
		q := &qm.Question
		if err := rows.Scan(&q.ID, &q.LessonID, &q.QuestionText, &q.AnswerText, &q.Position, &qm.MistakesCount); err != nil {
			return nil, err
		}
		result = append(result, qm)
	}
	return result, rows.Err()
}

// MistakeRow is one stored mistake counter
type MistakeRow struct {
	QuestionID    int64 `json:"question_id"`
	LearnerID     int64 `json:"learner_id"`
	MistakesCount int   `json:"mistakes_count"`
}

// ListAllMistakes returns every mistake counter
func (r *AttemptRepository) ListAllMistakes(ctx context.Context) ([]MistakeRow, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT question_id, learner_id, mistakes_count FROM question_mistakes ORDER BY question_id, learner_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list mistakes: %w", err)
	}
	defer rows.Close()

	result := []MistakeRow{}
	for rows.Next() {
		var m MistakeRow
		if err := rows.Scan(&m.QuestionID, &m.LearnerID, &m.MistakesCount); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
