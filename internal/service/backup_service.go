package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"yourvocab/internal/database"
	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/repository"
)

const backupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version     string                  `json:"version"`
	ExportedAt  time.Time               `json:"exported_at"`
	Courses     []models.Course         `json:"courses"`
	Lessons     []models.Lesson         `json:"lessons"`
	Questions   []models.Question       `json:"questions"`
	Enrollments []models.Enrollment     `json:"enrollments"`
	Mistakes    []repository.MistakeRow `json:"mistakes"`
	Attempts    []AttemptBackup         `json:"attempts"`
}

// AttemptBackup represents a completed attempt for backup
type AttemptBackup struct {
	ID            int64     `json:"id"`
	SessionID     string    `json:"session_id"`
	LearnerID     int64     `json:"learner_id"`
	LessonID      int64     `json:"lesson_id"`
	StartedAt     time.Time `json:"started_at"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	Points        int       `json:"points"`
	MistakesCount int       `json:"mistakes_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db       *database.DB
	courses  *repository.CourseRepository
	lessons  *repository.LessonRepository
	attempts *repository.AttemptRepository
	log      *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	return &BackupService{
		db:       db,
		courses:  repository.NewCourseRepository(db),
		lessons:  repository.NewLessonRepository(db),
		attempts: repository.NewAttemptRepository(db, log),
		log:      log,
	}
}

// Export collects every table into a BackupData
func (s *BackupService) Export(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{Version: backupVersion, ExportedAt: time.Now().UTC()}

	var err error
	if backup.Courses, err = s.courses.ListAllCourses(ctx); err != nil {
		return nil, fmt.Errorf("failed to export courses: %w", err)
	}
	if backup.Lessons, err = s.lessons.ListAllLessons(ctx); err != nil {
		return nil, fmt.Errorf("failed to export lessons: %w", err)
	}
	if backup.Questions, err = s.lessons.ListAllQuestions(ctx); err != nil {
		return nil, fmt.Errorf("failed to export questions: %w", err)
	}
	if backup.Enrollments, err = s.courses.ListEnrollments(ctx); err != nil {
		return nil, fmt.Errorf("failed to export enrollments: %w", err)
	}
	if backup.Mistakes, err = s.attempts.ListAllMistakes(ctx); err != nil {
		return nil, fmt.Errorf("failed to export mistakes: %w", err)
	}

	attempts, err := s.attempts.ListAllAttempts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export attempts: %w", err)
	}
	backup.Attempts = make([]AttemptBackup, 0, len(attempts))
	for _, a := range attempts {
		backup.Attempts = append(backup.Attempts, AttemptBackup{
			ID:            a.ID,
			SessionID:     a.SessionID,
			LearnerID:     a.LearnerID,
			LessonID:      a.LessonID,
			StartedAt:     a.StartedAt,
			ElapsedMs:     a.ElapsedMs(),
			Points:        a.Points,
			MistakesCount: a.MistakesCount,
			CreatedAt:     a.CreatedAt,
		})
	}

	s.log.Info("Database exported",
		"courses", len(backup.Courses), "lessons", len(backup.Lessons), "questions", len(backup.Questions),
		"enrollments", len(backup.Enrollments), "mistakes", len(backup.Mistakes), "attempts", len(backup.Attempts))
	return backup, nil
}

// ExportToWriter writes the backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup, err := s.Export(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(backup)
}

// ImportFromReader restores a backup in a single transaction. With clear
// set, existing rows are deleted first.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	s.log.Info("Importing backup", "version", backup.Version, "exported_at", backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			if err := clearTables(ctx, tx); err != nil {
				return err
			}
		}
		if err := importRows(ctx, tx, backup); err != nil {
			return err
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.log.Info("Database import completed", "courses", len(backup.Courses), "attempts", len(backup.Attempts))
	return nil
}

// Import order follows foreign keys; clearing runs in reverse.
var backupTables = []string{"courses", "lessons", "questions", "enrollments", "question_mistakes", "attempts"}

func clearTables(ctx context.Context, tx *database.Tx) error {
	// replay keys are not part of a backup
	if _, err := tx.ExecContext(ctx, "DELETE FROM mistake_events"); err != nil {
		return fmt.Errorf("failed to clear mistake_events: %w", err)
	}
	for i := len(backupTables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+backupTables[i]); err != nil {
			return fmt.Errorf("failed to clear %s: %w", backupTables[i], err)
		}
	}
	return nil
}

func importRows(ctx context.Context, tx *database.Tx, b BackupData) error {
	for _, c := range b.Courses {
		_, err := tx.ExecContext(ctx, "INSERT INTO courses (id, author_id, name, public, helper_symbols, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.AuthorID, c.Name, c.Public, c.HelperSymbols, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import course %d: %w", c.ID, err)
		}
	}
	for _, l := range b.Lessons {
		_, err := tx.ExecContext(ctx, "INSERT INTO lessons (id, course_id, name, attendance_count, created_at) VALUES (?, ?, ?, ?, ?)",
			l.ID, l.CourseID, l.Name, l.AttendanceCount, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import lesson %d: %w", l.ID, err)
		}
	}
	for _, q := range b.Questions {
		_, err := tx.ExecContext(ctx, "INSERT INTO questions (id, lesson_id, question_text, answer_text, position) VALUES (?, ?, ?, ?, ?)",
			q.ID, q.LessonID, q.QuestionText, q.AnswerText, q.Position)
		if err != nil {
			return fmt.Errorf("failed to import question %d: %w", q.ID, err)
		}
	}
	for _, e := range b.Enrollments {
		_, err := tx.ExecContext(ctx, "INSERT INTO enrollments (id, learner_id, course_id, answer_bonus, mistake_penalty, show_answer_penalty, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			e.ID, e.LearnerID, e.CourseID, e.Rules.AnswerBonus, e.Rules.MistakePenalty, e.Rules.ShowAnswerPenalty, e.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import enrollment %d: %w", e.ID, err)
		}
	}
	for _, m := range b.Mistakes {
		_, err := tx.ExecContext(ctx, "INSERT INTO question_mistakes (question_id, learner_id, mistakes_count) VALUES (?, ?, ?)",
			m.QuestionID, m.LearnerID, m.MistakesCount)
		if err != nil {
			return fmt.Errorf("failed to import mistakes for question %d: %w", m.QuestionID, err)
		}
	}
	for _, a := range b.Attempts {
		_, err := tx.ExecContext(ctx, "INSERT INTO attempts (id, session_id, learner_id, lesson_id, started_at, elapsed_ms, points, mistakes_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			a.ID, a.SessionID, a.LearnerID, a.LessonID, a.StartedAt, a.ElapsedMs, a.Points, a.MistakesCount, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to import attempt %d: %w", a.ID, err)
		}
	}
	return nil
}

// resetSequences moves PostgreSQL serial counters past imported ids
func resetSequences(ctx context.Context, tx *database.Tx) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	for _, table := range backupTables {
		if table == "question_mistakes" {
			continue
		}
		query := fmt.Sprintf("SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}
