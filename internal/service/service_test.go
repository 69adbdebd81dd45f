package service

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"yourvocab/internal/database"
	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/quiz"
	"yourvocab/internal/repository"
	"yourvocab/internal/validation"
	"yourvocab/migrations"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

type services struct {
	db       *database.DB
	courses  *CourseService
	stats    *StatsService
	attempts *repository.AttemptRepository
}

func newServices(t *testing.T) *services {
	db := newTestDB(t)
	log := logger.Nop()
	attempts := repository.NewAttemptRepository(db, log)
	courses := NewCourseService(repository.NewCourseRepository(db), repository.NewLessonRepository(db), log)
	return &services{
		db:       db,
		courses:  courses,
		stats:    NewStatsService(attempts, courses),
		attempts: attempts,
	}
}

const (
	author  = int64(1)
	student = int64(2)
	outside = int64(3)
)

func TestCreateCourse(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      NewCourse
		wantErr bool
	}{
		{"defaults", NewCourse{Name: "German"}, false},
		{"custom rules", NewCourse{Name: "French", Rules: &models.Rules{AnswerBonus: 10, MistakePenalty: 0, ShowAnswerPenalty: 3}}, false},
		{"empty name", NewCourse{Name: "  "}, true},
		{"rule out of range", NewCourse{Name: "Latin", Rules: &models.Rules{AnswerBonus: 11}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course, err := s.courses.CreateCourse(ctx, author, tt.in)
			if tt.wantErr {
				var verr validation.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("CreateCourse() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateCourse() error = %v", err)
			}

			got, err := s.courses.GetCourse(ctx, author, course.ID)
			if err != nil {
				t.Fatalf("GetCourse() error = %v", err)
			}
			want := models.DefaultRules()
			if tt.in.Rules != nil {
				want = *tt.in.Rules
			}
			if !got.Enrolled || got.Rules != want {
				t.Errorf("author enrollment = %v %+v, want %+v", got.Enrolled, got.Rules, want)
			}
		})
	}
}

func TestEnroll(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	public, _ := s.courses.CreateCourse(ctx, author, NewCourse{Name: "Public", Public: true})
	private, _ := s.courses.CreateCourse(ctx, author, NewCourse{Name: "Private"})

	e, err := s.courses.Enroll(ctx, student, public.ID, nil)
	if err != nil {
		t.Fatalf("Enroll() error = %v", err)
	}
	if e.Rules != models.DefaultRules() {
		t.Errorf("rules = %+v, want defaults", e.Rules)
	}

	if _, err := s.courses.Enroll(ctx, student, public.ID, nil); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("second Enroll() error = %v, want ErrAlreadyEnrolled", err)
	}
	if _, err := s.courses.Enroll(ctx, student, private.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("Enroll(private) error = %v, want ErrForbidden", err)
	}
	if _, err := s.courses.Enroll(ctx, student, 999, nil); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("Enroll(missing) error = %v, want ErrCourseNotFound", err)
	}

	if _, err := s.courses.GetCourse(ctx, student, private.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetCourse(private) error = %v, want ErrForbidden", err)
	}
	view, err := s.courses.GetCourse(ctx, outside, public.ID)
	if err != nil || view.Enrolled {
		t.Errorf("GetCourse(public) by outsider = %+v, %v", view, err)
	}

	mine, _ := s.courses.ListCourses(ctx, student)
	if len(mine) != 1 || mine[0].ID != public.ID {
		t.Errorf("ListCourses() = %+v", mine)
	}
	all, _ := s.courses.ListPublicCourses(ctx)
	if len(all) != 1 {
		t.Errorf("ListPublicCourses() = %+v", all)
	}

	rules := models.Rules{AnswerBonus: 2, MistakePenalty: 2, ShowAnswerPenalty: 2}
	updated, err := s.courses.UpdateRules(ctx, student, public.ID, rules)
	if err != nil || updated.Rules != rules {
		t.Errorf("UpdateRules() = %+v, %v", updated, err)
	}
	if _, err := s.courses.UpdateRules(ctx, outside, public.ID, rules); !errors.Is(err, quiz.ErrNotEnrolled) {
		t.Errorf("UpdateRules() for outsider error = %v, want ErrNotEnrolled", err)
	}
}

func TestLessonLifecycle(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	course, _ := s.courses.CreateCourse(ctx, author, NewCourse{Name: "Geo", Public: true})

	lesson, err := s.courses.CreateLesson(ctx, author, course.ID, LessonInput{
		Name:          "Capitals",
		QuestionsText: "Germany\r\nFrance\r\n",
		AnswersText:   "Berlin\r\nParis\r\n",
	})
	if err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}
	if len(lesson.Questions) != 2 || lesson.Questions[1].AnswerText != "Paris" {
		t.Errorf("questions = %+v", lesson.Questions)
	}

	if _, err := s.courses.CreateLesson(ctx, student, course.ID, LessonInput{Name: "Mine", Questions: []string{"a"}, Answers: []string{"b"}}); !errors.Is(err, ErrForbidden) {
		t.Errorf("CreateLesson() by non-author error = %v, want ErrForbidden", err)
	}
	if _, err := s.courses.CreateLesson(ctx, author, course.ID, LessonInput{Name: "Bad", Questions: []string{"a", "b"}, Answers: []string{"c"}}); err == nil {
		t.Error("CreateLesson() accepted mismatched lists")
	}

	if _, err := s.courses.GetLesson(ctx, student, lesson.Lesson.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("GetLesson() before enrolling error = %v, want ErrForbidden", err)
	}
	s.courses.Enroll(ctx, student, course.ID, nil)
	if _, err := s.courses.GetLesson(ctx, student, lesson.Lesson.ID); err != nil {
		t.Errorf("GetLesson() after enrolling error = %v", err)
	}

	if _, err := s.courses.UpdateLesson(ctx, student, lesson.Lesson.ID, LessonInput{Name: "X", Questions: []string{"a"}, Answers: []string{"b"}}); !errors.Is(err, ErrForbidden) {
		t.Errorf("UpdateLesson() by non-author error = %v, want ErrForbidden", err)
	}
	updated, err := s.courses.UpdateLesson(ctx, author, lesson.Lesson.ID, LessonInput{
		Name:      "Capitals 2",
		Questions: []string{"France", "Spain"},
		Answers:   []string{"Paris", "Madrid"},
	})
	if err != nil {
		t.Fatalf("UpdateLesson() error = %v", err)
	}
	if updated.Lesson.Name != "Capitals 2" || len(updated.Questions) != 2 || updated.Questions[0].ID != lesson.Questions[1].ID {
		t.Errorf("updated lesson = %+v", updated)
	}

	if err := s.courses.DeleteLesson(ctx, student, lesson.Lesson.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeleteLesson() by non-author error = %v, want ErrForbidden", err)
	}
	if err := s.courses.DeleteLesson(ctx, author, lesson.Lesson.ID); err != nil {
		t.Fatalf("DeleteLesson() error = %v", err)
	}
	if _, err := s.courses.GetLesson(ctx, author, lesson.Lesson.ID); !errors.Is(err, quiz.ErrLessonNotFound) {
		t.Errorf("GetLesson() after delete error = %v, want ErrLessonNotFound", err)
	}
}

func TestStats(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	course, _ := s.courses.CreateCourse(ctx, author, NewCourse{Name: "Geo", Public: true})
	lesson, _ := s.courses.CreateLesson(ctx, author, course.ID, LessonInput{
		Name:      "Capitals",
		Questions: []string{"Germany", "France"},
		Answers:   []string{"Berlin", "Paris"},
	})
	lessonID := lesson.Lesson.ID
	s.courses.Enroll(ctx, student, course.ID, nil)

	s.attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "a", Seq: 0, LearnerID: student, QuestionID: lesson.Questions[1].ID})
	s.attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "a", Seq: 1, LearnerID: student, QuestionID: lesson.Questions[1].ID})
	s.attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "a", Seq: 2, LearnerID: student, QuestionID: lesson.Questions[0].ID})
	s.attempts.RecordCompletion(ctx, &models.Attempt{SessionID: "a", LearnerID: student, LessonID: lessonID, StartedAt: time.Now(), Elapsed: time.Minute, Points: 7, MistakesCount: 3})

	hardest, err := s.stats.HardestQuestions(ctx, student, lessonID, 0)
	if err != nil || len(hardest) != 2 || hardest[0].Question.QuestionText != "France" || hardest[0].MistakesCount != 2 {
		t.Errorf("HardestQuestions() = %+v, %v", hardest, err)
	}

	summary, err := s.stats.LessonSummary(ctx, student, lessonID)
	if err != nil || summary.Attempts != 1 || summary.BestPoints != 7 || summary.AttendanceCount != 1 {
		t.Errorf("LessonSummary() = %+v, %v", summary, err)
	}

	attempts, err := s.stats.ListAttempts(ctx, student, lessonID, 500)
	if err != nil || len(attempts) != 1 {
		t.Errorf("ListAttempts() = %+v, %v", attempts, err)
	}

	if _, err := s.stats.ListAttempts(ctx, outside, lessonID, 10); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListAttempts() by outsider error = %v, want ErrForbidden", err)
	}
	if _, err := s.stats.LessonSummary(ctx, student, 999); !errors.Is(err, quiz.ErrLessonNotFound) {
		t.Errorf("LessonSummary(missing) error = %v, want ErrLessonNotFound", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 20}, {-5, 20}, {5, 5}, {100, 100}, {1000, 100}}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBackupRoundTrip(t *testing.T) {
	src := newServices(t)
	ctx := context.Background()

	course, _ := src.courses.CreateCourse(ctx, author, NewCourse{Name: "Geo", Public: true, HelperSymbols: "äöü"})
	lesson, _ := src.courses.CreateLesson(ctx, author, course.ID, LessonInput{
		Name:      "Capitals",
		Questions: []string{"Germany", "France"},
		Answers:   []string{"Berlin", "Paris"},
	})
	src.courses.Enroll(ctx, student, course.ID, &models.Rules{AnswerBonus: 1, MistakePenalty: 1, ShowAnswerPenalty: 1})
	src.attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "s-1", Seq: 0, LearnerID: student, QuestionID: lesson.Questions[0].ID})
	src.attempts.RecordCompletion(ctx, &models.Attempt{SessionID: "s-1", LearnerID: student, LessonID: lesson.Lesson.ID, StartedAt: time.Now(), Elapsed: 2 * time.Second, Points: 1, MistakesCount: 1})

	var buf bytes.Buffer
	if err := NewBackupService(src.db, logger.Nop()).ExportToWriter(ctx, &buf); err != nil {
		t.Fatalf("ExportToWriter() error = %v", err)
	}
	exported := buf.Bytes()

	dst := newServices(t)
	dst.courses.CreateCourse(ctx, outside, NewCourse{Name: "Leftover"})
	backup := NewBackupService(dst.db, logger.Nop())
	if err := backup.ImportFromReader(ctx, bytes.NewReader(exported), true); err != nil {
		t.Fatalf("ImportFromReader() error = %v", err)
	}

	data, err := backup.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(data.Courses) != 1 || data.Courses[0].HelperSymbols != "äöü" {
		t.Errorf("courses = %+v", data.Courses)
	}
	if len(data.Lessons) != 1 || data.Lessons[0].AttendanceCount != 1 {
		t.Errorf("lessons = %+v", data.Lessons)
	}
	if len(data.Questions) != 2 || len(data.Enrollments) != 2 || len(data.Mistakes) != 1 {
		t.Errorf("questions %d, enrollments %d, mistakes %d", len(data.Questions), len(data.Enrollments), len(data.Mistakes))
	}
	if len(data.Attempts) != 1 || data.Attempts[0].ElapsedMs != 2000 || data.Attempts[0].SessionID != "s-1" {
		t.Errorf("attempts = %+v", data.Attempts)
	}

	// new rows continue after the imported ids
	next, err := dst.courses.CreateCourse(ctx, author, NewCourse{Name: "Next"})
	if err != nil || next.ID <= course.ID {
		t.Errorf("CreateCourse() after import = %+v, %v", next, err)
	}

	if err := backup.ImportFromReader(ctx, bytes.NewReader(exported), false); err == nil {
		t.Error("importing over existing rows without clearing succeeded")
	}
}
