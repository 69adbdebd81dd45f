package service

import (
	"context"
	"errors"
	"strings"

	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/quiz"
	"yourvocab/internal/repository"
	"yourvocab/internal/validation"
)

var (
	ErrForbidden       = errors.New("not allowed for this learner")
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	ErrCourseNotFound  = errors.New("course not found")
)

// CourseService handles course, enrollment and lesson business logic
type CourseService struct {
	courses *repository.CourseRepository
	lessons *repository.LessonRepository
	log     *logger.Logger
}

// NewCourseService creates a new course service
func NewCourseService(courses *repository.CourseRepository, lessons *repository.LessonRepository, log *logger.Logger) *CourseService {
	return &CourseService{courses: courses, lessons: lessons, log: log}
}

// NewCourse holds the author's input for a course
type NewCourse struct {
	Name          string
	Public        bool
	HelperSymbols string
	Rules         *models.Rules
}

// LessonInput holds an author's lesson. Questions and answers come either
// as parallel lists or as two newline separated blocks.
type LessonInput struct {
	Name          string
	Questions     []string
	Answers       []string
	QuestionsText string
	AnswersText   string
}

func (in LessonInput) pairs() ([]models.QAPair, error) {
	if len(in.Questions) == 0 && len(in.Answers) == 0 {
		return validation.ParseQuestionBlocks(in.QuestionsText, in.AnswersText)
	}
	return validation.BuildPairs(in.Questions, in.Answers)
}

func rulesOrDefault(r *models.Rules) (models.Rules, error) {
	if r == nil {
		return models.DefaultRules(), nil
	}
	if err := validation.ValidateRules(*r); err != nil {
		return models.Rules{}, err
	}
	return *r, nil
}

// CreateCourse creates a course and enrolls its author
func (s *CourseService) CreateCourse(ctx context.Context, authorID int64, in NewCourse) (*models.Course, error) {
	if err := validation.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	rules, err := rulesOrDefault(in.Rules)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.CreateCourseWithAuthor(ctx, &models.Course{
		AuthorID:      authorID,
		Name:          strings.TrimSpace(in.Name),
		Public:        in.Public,
		HelperSymbols: strings.TrimSpace(in.HelperSymbols),
	}, rules)
	if err != nil {
		return nil, err
	}
	s.log.Info("Course created", "course_id", course.ID, "author_id", authorID)
	return course, nil
}

func (s *CourseService) getCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, ErrCourseNotFound
	}
	return course, nil
}

// Enroll adds a learner to a public course, or to a course they authored
func (s *CourseService) Enroll(ctx context.Context, learnerID, courseID int64, r *models.Rules) (*models.Enrollment, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Public && course.AuthorID != learnerID {
		return nil, ErrForbidden
	}
	rules, err := rulesOrDefault(r)
	if err != nil {
		return nil, err
	}

	existing, err := s.courses.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyEnrolled
	}
	return s.courses.CreateEnrollment(ctx, learnerID, courseID, rules)
}

// UpdateRules changes the learner's scoring rules for future sessions
func (s *CourseService) UpdateRules(ctx context.Context, learnerID, courseID int64, rules models.Rules) (*models.Enrollment, error) {
	if err := validation.ValidateRules(rules); err != nil {
		return nil, err
	}
	existing, err := s.courses.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, quiz.ErrNotEnrolled
	}
	if _, err := s.courses.UpdateRules(ctx, learnerID, courseID, rules); err != nil {
		return nil, err
	}
	existing.Rules = rules
	return existing, nil
}

// ListCourses returns the courses the learner is enrolled in
func (s *CourseService) ListCourses(ctx context.Context, learnerID int64) ([]models.Course, error) {
	return s.courses.ListLearnerCourses(ctx, learnerID)
}

// ListPublicCourses returns the courses anyone may join
func (s *CourseService) ListPublicCourses(ctx context.Context) ([]models.Course, error) {
	return s.courses.ListPublicCourses(ctx)
}

// GetCourse returns a course with its lessons and the learner's rules.
// Private courses are visible to their author and enrolled learners only.
func (s *CourseService) GetCourse(ctx context.Context, learnerID, courseID int64) (*models.CourseWithLessons, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	enrollment, err := s.courses.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil && !course.Public && course.AuthorID != learnerID {
		return nil, ErrForbidden
	}

	lessons, err := s.lessons.ListCourseLessons(ctx, courseID)
	if err != nil {
		return nil, err
	}

	result := &models.CourseWithLessons{Course: *course, Rules: models.DefaultRules(), Lessons: lessons}
	if enrollment != nil {
		result.Enrolled = true
		result.Rules = enrollment.Rules
	}
	return result, nil
}

func (s *CourseService) requireAuthor(ctx context.Context, authorID, courseID int64) error {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if course.AuthorID != authorID {
		return ErrForbidden
	}
	return nil
}

func (s *CourseService) getLesson(ctx context.Context, lessonID int64) (*models.LessonWithQuestions, error) {
	lesson, err := s.lessons.GetLessonWithQuestions(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson == nil {
		return nil, quiz.ErrLessonNotFound
	}
	return lesson, nil
}

// CreateLesson adds a lesson to a course the author owns
func (s *CourseService) CreateLesson(ctx context.Context, authorID, courseID int64, in LessonInput) (*models.LessonWithQuestions, error) {
	if err := validation.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	pairs, err := in.pairs()
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthor(ctx, authorID, courseID); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.CreateLesson(ctx, courseID, strings.TrimSpace(in.Name), pairs)
	if err != nil {
		return nil, err
	}
	s.log.Info("Lesson created", "lesson_id", lesson.ID, "course_id", courseID, "questions", len(pairs))
	return s.getLesson(ctx, lesson.ID)
}

// UpdateLesson renames a lesson and patches its questions. Sessions already
// running keep the deck they started with.
func (s *CourseService) UpdateLesson(ctx context.Context, authorID, lessonID int64, in LessonInput) (*models.LessonWithQuestions, error) {
	if err := validation.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	pairs, err := in.pairs()
	if err != nil {
		return nil, err
	}
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthor(ctx, authorID, lesson.Lesson.CourseID); err != nil {
		return nil, err
	}

	if err := s.lessons.UpdateLesson(ctx, lessonID, strings.TrimSpace(in.Name), pairs); err != nil {
		return nil, err
	}
	return s.getLesson(ctx, lessonID)
}

// DeleteLesson removes a lesson, its questions and their statistics
func (s *CourseService) DeleteLesson(ctx context.Context, authorID, lessonID int64) error {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if err := s.requireAuthor(ctx, authorID, lesson.Lesson.CourseID); err != nil {
		return err
	}
	if _, err := s.lessons.DeleteLesson(ctx, lessonID); err != nil {
		return err
	}
	s.log.Info("Lesson deleted", "lesson_id", lessonID)
	return nil
}

// GetLesson returns a lesson with its questions to its author or an enrolled learner
func (s *CourseService) GetLesson(ctx context.Context, learnerID, lessonID int64) (*models.LessonWithQuestions, error) {
	lesson, err := s.getLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAccess(ctx, learnerID, lesson.Lesson.CourseID); err != nil {
		return nil, err
	}
	return lesson, nil
}

// requireAccess allows the course author and enrolled learners
func (s *CourseService) requireAccess(ctx context.Context, learnerID, courseID int64) error {
	enrollment, err := s.courses.GetEnrollment(ctx, learnerID, courseID)
	if err != nil {
		return err
	}
	if enrollment != nil {
		return nil
	}
	return s.requireAuthor(ctx, learnerID, courseID)
}
