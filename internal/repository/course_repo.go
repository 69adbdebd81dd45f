package repository

import (
	"context"
	"database/sql"
	"fmt"

	"yourvocab/internal/database"
	"yourvocab/internal/models"
)

// CourseRepository handles course and enrollment database operations
type CourseRepository struct {
	db *database.DB
}

// NewCourseRepository creates a new course repository
func NewCourseRepository(db *database.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = "c.id, c.author_id, c.name, c.public, c.helper_symbols, c.created_at"

func scanCourse(row interface{ Scan(...interface{}) error }) (*models.Course, error) {
	c := &models.Course{}
	err := row.Scan(&c.ID, &c.AuthorID, &c.Name, &c.Public, &c.HelperSymbols, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreateCourseWithAuthor creates a course and enrolls its author in one transaction
func (r *CourseRepository) CreateCourseWithAuthor(ctx context.Context, course *models.Course, rules models.Rules) (*models.Course, error) {
	var id int64
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		id, err = tx.ExecReturningID(ctx,
			"INSERT INTO courses (author_id, name, public, helper_symbols) VALUES (?, ?, ?, ?)",
			course.AuthorID, course.Name, course.Public, course.HelperSymbols)
		if err != nil {
			return fmt.Errorf("failed to create course: %w", err)
		}
		if _, err := insertEnrollment(ctx, tx, course.AuthorID, id, rules); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetCourse(ctx, id)
}

// GetCourse retrieves a course by ID, or nil if it does not exist
func (r *CourseRepository) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses c WHERE c.id = ?"
	c, err := scanCourse(r.db.QueryRowContext(ctx, query, courseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// ListLearnerCourses returns the courses a learner is enrolled in
func (r *CourseRepository) ListLearnerCourses(ctx context.Context, learnerID int64) ([]models.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses c
		INNER JOIN enrollments e ON e.course_id = c.id
		WHERE e.learner_id = ?
		ORDER BY c.name, c.id
	`
	return r.queryCourses(ctx, query, learnerID)
}

// ListPublicCourses returns every public course
func (r *CourseRepository) ListPublicCourses(ctx context.Context) ([]models.Course, error) {
	query := "SELECT " + courseColumns + " FROM courses c WHERE c.public = ? ORDER BY c.name, c.id"
	return r.queryCourses(ctx, query, true)
}

// ListAllCourses returns every course
func (r *CourseRepository) ListAllCourses(ctx context.Context) ([]models.Course, error) {
	return r.queryCourses(ctx, "SELECT "+courseColumns+" FROM courses c ORDER BY c.id")
}

func (r *CourseRepository) queryCourses(ctx context.Context, query string, args ...interface{}) ([]models.Course, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

func insertEnrollment(ctx context.Context, q database.DBTX, learnerID, courseID int64, rules models.Rules) (int64, error) {
	id, err := q.ExecReturningID(ctx, `
		INSERT INTO enrollments (learner_id, course_id, answer_bonus, mistake_penalty, show_answer_penalty)
		VALUES (?, ?, ?, ?, ?)
	`, learnerID, courseID, rules.AnswerBonus, rules.MistakePenalty, rules.ShowAnswerPenalty)
	if err != nil {
		return 0, fmt.Errorf("failed to create enrollment: %w", err)
	}
	return id, nil
}

// CreateEnrollment enrolls a learner in a course
func (r *CourseRepository) CreateEnrollment(ctx context.Context, learnerID, courseID int64, rules models.Rules) (*models.Enrollment, error) {
	if _, err := insertEnrollment(ctx, r.db, learnerID, courseID, rules); err != nil {
		return nil, err
	}
	return r.GetEnrollment(ctx, learnerID, courseID)
}

// GetEnrollment retrieves a learner's enrollment, or nil if not enrolled
func (r *CourseRepository) GetEnrollment(ctx context.Context, learnerID, courseID int64) (*models.Enrollment, error) {
	query := `
		SELECT id, learner_id, course_id, answer_bonus, mistake_penalty, show_answer_penalty, created_at
		FROM enrollments
		WHERE learner_id = ? AND course_id = ?
	`
	e := &models.Enrollment{}
	err := r.db.QueryRowContext(ctx, query, learnerID, courseID).Scan(
		&e.ID,
		&e.LearnerID,
		&e.CourseID,
		&e.Rules.AnswerBonus,
		&e.Rules.MistakePenalty,
		&e.Rules.ShowAnswerPenalty,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return e, nil
}

// ListEnrollments returns every enrollment
func (r *CourseRepository) ListEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, learner_id, course_id, answer_bonus, mistake_penalty, show_answer_penalty, created_at
		FROM enrollments
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	enrollments := []models.Enrollment{}
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.LearnerID, &e.CourseID, &e.Rules.AnswerBonus, &e.Rules.MistakePenalty, &e.Rules.ShowAnswerPenalty, &e.CreatedAt); err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// UpdateRules changes a learner's scoring rules, reporting whether the enrollment exists
func (r *CourseRepository) UpdateRules(ctx context.Context, learnerID, courseID int64, rules models.Rules) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE enrollments
		SET answer_bonus = ?, mistake_penalty = ?, show_answer_penalty = ?
		WHERE learner_id = ? AND course_id = ?
	`, rules.AnswerBonus, rules.MistakePenalty, rules.ShowAnswerPenalty, learnerID, courseID)
	if err != nil {
		return false, fmt.Errorf("failed to update rules: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
