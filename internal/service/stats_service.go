package service

import (
	"context"

	"yourvocab/internal/models"
	"yourvocab/internal/repository"
)

const (
	defaultStatsLimit = 20
	maxStatsLimit     = 100
)

// StatsService exposes a learner's history on a lesson
type StatsService struct {
	attempts *repository.AttemptRepository
	courses  *CourseService
}

// NewStatsService creates a new stats service
func NewStatsService(attempts *repository.AttemptRepository, courses *CourseService) *StatsService {
	return &StatsService{attempts: attempts, courses: courses}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultStatsLimit
	}
	if limit > maxStatsLimit {
		return maxStatsLimit
	}
	return limit
}

func (s *StatsService) lesson(ctx context.Context, learnerID, lessonID int64) (*models.Lesson, error) {
	lesson, err := s.courses.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.courses.requireAccess(ctx, learnerID, lesson.Lesson.CourseID); err != nil {
		return nil, err
	}
	return &lesson.Lesson, nil
}

// ListAttempts returns the learner's completed attempts, newest first
func (s *StatsService) ListAttempts(ctx context.Context, learnerID, lessonID int64, limit int) ([]models.Attempt, error) {
	if _, err := s.lesson(ctx, learnerID, lessonID); err != nil {
		return nil, err
	}
	return s.attempts.ListAttempts(ctx, learnerID, lessonID, clampLimit(limit))
}

// LessonSummary aggregates the learner's attempts and the lesson's attendance
func (s *StatsService) LessonSummary(ctx context.Context, learnerID, lessonID int64) (*models.LessonSummary, error) {
	lesson, err := s.lesson(ctx, learnerID, lessonID)
	if err != nil {
		return nil, err
	}
	summary, err := s.attempts.LessonSummary(ctx, learnerID, lessonID)
	if err != nil {
		return nil, err
	}
	summary.AttendanceCount = lesson.AttendanceCount
	return summary, nil
}

// HardestQuestions returns the questions the learner missed most often
func (s *StatsService) HardestQuestions(ctx context.Context, learnerID, lessonID int64, limit int) ([]models.QuestionMistakes, error) {
	if _, err := s.lesson(ctx, learnerID, lessonID); err != nil {
		return nil, err
	}
	return s.attempts.HardestQuestions(ctx, learnerID, lessonID, clampLimit(limit))
}
