package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yourvocab/internal/database"
	"yourvocab/internal/models"
)

// LessonRepository handles lesson and question database operations
type LessonRepository struct {
	db *database.DB
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *database.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// CreateLesson creates a lesson with its questions in the given order
func (r *LessonRepository) CreateLesson(ctx context.Context, courseID int64, name string, pairs []models.QAPair) (*models.Lesson, error) {
	var lessonID int64
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		lessonID, err = tx.ExecReturningID(ctx, "INSERT INTO lessons (course_id, name) VALUES (?, ?)", courseID, name)
		if err != nil {
			return fmt.Errorf("failed to create lesson: %w", err)
		}
		for i, p := range pairs {
			if err := insertQuestion(ctx, tx, lessonID, p, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetLesson(ctx, lessonID)
}

func insertQuestion(ctx context.Context, q database.DBTX, lessonID int64, p models.QAPair, position int) error {
	_, err := q.ExecContext(ctx,
		"INSERT INTO questions (lesson_id, question_text, answer_text, position) VALUES (?, ?, ?, ?)",
		lessonID, p.Question, p.Answer, position)
	if err != nil {
		return fmt.Errorf("failed to add question: %w", err)
	}
	return nil
}

// GetLesson retrieves a lesson by ID, or nil if it does not exist
func (r *LessonRepository) GetLesson(ctx context.Context, lessonID int64) (*models.Lesson, error) {
	return getLesson(ctx, r.db, lessonID)
}

func getLesson(ctx context.Context, q database.DBTX, lessonID int64) (*models.Lesson, error) {
	query := "SELECT id, course_id, name, attendance_count, created_at FROM lessons WHERE id = ?"
	l := &models.Lesson{}
	err := q.QueryRowContext(ctx, query, lessonID).Scan(&l.ID, &l.CourseID, &l.Name, &l.AttendanceCount, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

// GetLessonWithQuestions retrieves a lesson and its questions in position order,
// or nil if the lesson does not exist
func (r *LessonRepository) GetLessonWithQuestions(ctx context.Context, lessonID int64) (*models.LessonWithQuestions, error) {
	lesson, err := r.GetLesson(ctx, lessonID)
	if err != nil || lesson == nil {
		return nil, err
	}
	questions, err := listQuestions(ctx, r.db, lessonID)
	if err != nil {
		return nil, err
	}
	return &models.LessonWithQuestions{Lesson: *lesson, Questions: questions}, nil
}

func listQuestions(ctx context.Context, q database.DBTX, lessonID int64) ([]models.Question, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, lesson_id, question_text, answer_text, position
		FROM questions
		WHERE lesson_id = ?
		ORDER BY position ASC, id ASC
	`, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var qn models.Question
		if err := rows.Scan(&qn.ID, &qn.LessonID, &qn.QuestionText, &qn.AnswerText, &qn.Position); err != nil {
			return nil, err
		}
		questions = append(questions, qn)
	}
	return questions, rows.Err()
}

// ListCourseLessons returns the lessons of a course in creation order
func (r *LessonRepository) ListCourseLessons(ctx context.Context, courseID int64) ([]models.Lesson, error) {
	return r.queryLessons(ctx, "SELECT id, course_id, name, attendance_count, created_at FROM lessons WHERE course_id = ? ORDER BY id ASC", courseID)
}

func (r *LessonRepository) queryLessons(ctx context.Context, query string, args ...interface{}) ([]models.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Name, &l.AttendanceCount, &l.CreatedAt); err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}

// QuestionPatch describes how to turn the stored questions into a new list
type QuestionPatch struct {
	// Keep maps a position in the new list to the id of the stored question reused there
	Keep map[int]int64
	// Delete holds ids of stored questions with no counterpart in the new list
	Delete []int64
}

// PlanQuestionPatch matches stored questions to new pairs by exact
// question and answer text. Duplicates match one to one in order.
func PlanQuestionPatch(existing []models.Question, pairs []models.QAPair) QuestionPatch {
	available := make(map[models.QAPair][]int64)
	for _, q := range existing {
		key := models.QAPair{Question: q.QuestionText, Answer: q.AnswerText}
		available[key] = append(available[key], q.ID)
	}

	patch := QuestionPatch{Keep: make(map[int]int64)}
	kept := make(map[int64]bool)
	for i, p := range pairs {
		ids := available[p]
		if len(ids) == 0 {
			continue
		}
		patch.Keep[i] = ids[0]
		kept[ids[0]] = true
		available[p] = ids[1:]
	}

	for _, q := range existing {
		if !kept[q.ID] {
			patch.Delete = append(patch.Delete, q.ID)
		}
	}
	return patch
}

// UpdateLesson renames a lesson and patches its question list. Questions
// whose text and answer are unchanged keep their id and mistake history.
func (r *LessonRepository) UpdateLesson(ctx context.Context, lessonID int64, name string, pairs []models.QAPair) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE lessons SET name = ? WHERE id = ?", name, lessonID); err != nil {
			return fmt.Errorf("failed to rename lesson: %w", err)
		}

		existing, err := listQuestions(ctx, tx, lessonID)
		if err != nil {
			return err
		}
		patch := PlanQuestionPatch(existing, pairs)

		for _, id := range patch.Delete {
			if _, err := tx.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id); err != nil {
				return fmt.Errorf("failed to delete question: %w", err)
			}
		}
		for i, p := range pairs {
			if id, ok := patch.Keep[i]; ok {
				if _, err := tx.ExecContext(ctx, "UPDATE questions SET position = ? WHERE id = ?", i, id); err != nil {
					return fmt.Errorf("failed to reorder question: %w", err)
				}
				continue
			}
			if err := insertQuestion(ctx, tx, lessonID, p, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteLesson removes a lesson with its questions, reporting whether it existed
func (r *LessonRepository) DeleteLesson(ctx context.Context, lessonID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM lessons WHERE id = ?", lessonID)
	if err != nil {
		return false, fmt.Errorf("failed to delete lesson: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAllLessons returns every lesson
func (r *LessonRepository) ListAllLessons(ctx context.Context) ([]models.Lesson, error) {
	return r.queryLessons(ctx, "SELECT id, course_id, name, attendance_count, created_at FROM lessons ORDER BY id")
}

// ListAllQuestions returns every question
func (r *LessonRepository) ListAllQuestions(ctx context.Context) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, lesson_id, question_text, answer_text, position FROM questions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.LessonID, &q.QuestionText, &q.AnswerText, &q.Position); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
