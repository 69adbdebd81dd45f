package repository

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"yourvocab/internal/database"
	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/migrations"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "repo.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func pairs(qa ...string) []models.QAPair {
	var out []models.QAPair
	for i := 0; i+1 < len(qa); i += 2 {
		out = append(out, models.QAPair{Question: qa[i], Answer: qa[i+1]})
	}
	return out
}

func TestCourseRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	rules := models.Rules{AnswerBonus: 3, MistakePenalty: 2, ShowAnswerPenalty: 4}
	course, err := repo.CreateCourseWithAuthor(ctx, &models.Course{AuthorID: 1, Name: "German", Public: true}, rules)
	if err != nil {
		t.Fatalf("CreateCourseWithAuthor() error = %v", err)
	}
	if course.ID == 0 || course.Name != "German" || !course.Public || course.AuthorID != 1 {
		t.Errorf("course = %+v", course)
	}

	enrollment, err := repo.GetEnrollment(ctx, 1, course.ID)
	if err != nil || enrollment == nil {
		t.Fatalf("author enrollment = %v, %v", enrollment, err)
	}
	if enrollment.Rules != rules {
		t.Errorf("author rules = %+v, want %+v", enrollment.Rules, rules)
	}

	private, _ := repo.CreateCourseWithAuthor(ctx, &models.Course{AuthorID: 2, Name: "Secret"}, models.DefaultRules())

	missing, err := repo.GetCourse(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetCourse(999) = %v, %v, want nil, nil", missing, err)
	}

	public, err := repo.ListPublicCourses(ctx)
	if err != nil || len(public) != 1 || public[0].ID != course.ID {
		t.Errorf("ListPublicCourses() = %+v, %v", public, err)
	}

	if _, err := repo.CreateEnrollment(ctx, 2, course.ID, models.DefaultRules()); err != nil {
		t.Fatalf("CreateEnrollment() error = %v", err)
	}
	if _, err := repo.CreateEnrollment(ctx, 2, course.ID, models.DefaultRules()); err == nil {
		t.Error("duplicate enrollment accepted")
	}

	mine, err := repo.ListLearnerCourses(ctx, 2)
	if err != nil || len(mine) != 2 {
		t.Fatalf("ListLearnerCourses(2) = %+v, %v", mine, err)
	}
	if mine[0].ID != course.ID || mine[1].ID != private.ID {
		t.Errorf("ListLearnerCourses(2) order = %d, %d", mine[0].ID, mine[1].ID)
	}

	ok, err := repo.UpdateRules(ctx, 2, course.ID, rules)
	if err != nil || !ok {
		t.Fatalf("UpdateRules() = %v, %v", ok, err)
	}
	updated, _ := repo.GetEnrollment(ctx, 2, course.ID)
	if updated.Rules != rules {
		t.Errorf("updated rules = %+v", updated.Rules)
	}

	none, err := repo.GetEnrollment(ctx, 3, course.ID)
	if err != nil || none != nil {
		t.Errorf("GetEnrollment(3) = %v, %v, want nil, nil", none, err)
	}
}

func TestPlanQuestionPatch(t *testing.T) {
	existing := []models.Question{
		{ID: 1, QuestionText: "Germany", AnswerText: "Berlin"},
		{ID: 2, QuestionText: "France", AnswerText: "Paris"},
		{ID: 3, QuestionText: "Italy", AnswerText: "Rome"},
		{ID: 4, QuestionText: "Italy", AnswerText: "Rome"},
	}

	tests := []struct {
		name       string
		pairs      []models.QAPair
		wantKeep   map[int]int64
		wantDelete []int64
	}{
		{
			name:       "unchanged",
			pairs:      pairs("Germany", "Berlin", "France", "Paris", "Italy", "Rome", "Italy", "Rome"),
			wantKeep:   map[int]int64{0: 1, 1: 2, 2: 3, 3: 4},
			wantDelete: nil,
		},
		{
			name:       "reordered",
			pairs:      pairs("France", "Paris", "Germany", "Berlin"),
			wantKeep:   map[int]int64{0: 2, 1: 1},
			wantDelete: []int64{3, 4},
		},
		{
			name:       "answer edited",
			pairs:      pairs("Germany", "Bonn", "France", "Paris"),
			wantKeep:   map[int]int64{1: 2},
			wantDelete: []int64{1, 3, 4},
		},
		{
			name:       "one duplicate kept",
			pairs:      pairs("Italy", "Rome", "Spain", "Madrid"),
			wantKeep:   map[int]int64{0: 3},
			wantDelete: []int64{1, 2, 4},
		},
		{
			name:       "emptied",
			pairs:      nil,
			wantKeep:   map[int]int64{},
			wantDelete: []int64{1, 2, 3, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch := PlanQuestionPatch(existing, tt.pairs)
			if !reflect.DeepEqual(patch.Keep, tt.wantKeep) {
				t.Errorf("Keep = %v, want %v", patch.Keep, tt.wantKeep)
			}
			if !reflect.DeepEqual(patch.Delete, tt.wantDelete) {
				t.Errorf("Delete = %v, want %v", patch.Delete, tt.wantDelete)
			}
		})
	}
}

func TestLessonRepository(t *testing.T) {
	db := newTestDB(t)
	courses := NewCourseRepository(db)
	lessons := NewLessonRepository(db)
	attempts := NewAttemptRepository(db, logger.Nop())
	ctx := context.Background()

	course, _ := courses.CreateCourseWithAuthor(ctx, &models.Course{AuthorID: 1, Name: "Geo"}, models.DefaultRules())
	lesson, err := lessons.CreateLesson(ctx, course.ID, "Capitals", pairs("Germany", "Berlin", "France", "Paris", "Italy", "Rome"))
	if err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}

	full, err := lessons.GetLessonWithQuestions(ctx, lesson.ID)
	if err != nil || full == nil || len(full.Questions) != 3 {
		t.Fatalf("GetLessonWithQuestions() = %+v, %v", full, err)
	}
	germany, france, italy := full.Questions[0], full.Questions[1], full.Questions[2]
	if germany.AnswerText != "Berlin" || italy.Position != 2 {
		t.Errorf("questions out of order: %+v", full.Questions)
	}

	attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "s", Seq: 0, LearnerID: 5, QuestionID: germany.ID})
	attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "s", Seq: 1, LearnerID: 5, QuestionID: france.ID})

	err = lessons.UpdateLesson(ctx, lesson.ID, "Capitals of Europe", pairs("Italy", "Rome", "Germany", "Berlin", "France", "Lyon", "Spain", "Madrid"))
	if err != nil {
		t.Fatalf("UpdateLesson() error = %v", err)
	}

	full, _ = lessons.GetLessonWithQuestions(ctx, lesson.ID)
	if full.Lesson.Name != "Capitals of Europe" {
		t.Errorf("name = %q", full.Lesson.Name)
	}
	var got []string
	for _, q := range full.Questions {
		got = append(got, q.QuestionText+"="+q.AnswerText)
	}
	want := []string{"Italy=Rome", "Germany=Berlin", "France=Lyon", "Spain=Madrid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("questions = %v, want %v", got, want)
	}
	if full.Questions[0].ID != italy.ID || full.Questions[1].ID != germany.ID {
		t.Errorf("unchanged questions lost their ids")
	}

	hardest, err := attempts.HardestQuestions(ctx, 5, lesson.ID, 10)
	if err != nil {
		t.Fatalf("HardestQuestions() error = %v", err)
	}
	if len(hardest) != 1 || hardest[0].Question.ID != germany.ID || hardest[0].MistakesCount != 1 {
		t.Errorf("mistake history after edit = %+v", hardest)
	}

	list, err := lessons.ListCourseLessons(ctx, course.ID)
	if err != nil || len(list) != 1 {
		t.Errorf("ListCourseLessons() = %+v, %v", list, err)
	}

	ok, err := lessons.DeleteLesson(ctx, lesson.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteLesson() = %v, %v", ok, err)
	}
	gone, err := lessons.GetLessonWithQuestions(ctx, lesson.ID)
	if err != nil || gone != nil {
		t.Errorf("deleted lesson = %+v, %v", gone, err)
	}
	if ok, _ := lessons.DeleteLesson(ctx, lesson.ID); ok {
		t.Error("second delete reported success")
	}
}

func newLessonFixture(t *testing.T) (*database.DB, *AttemptRepository, *LessonRepository, *models.LessonWithQuestions) {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()
	course, _ := NewCourseRepository(db).CreateCourseWithAuthor(ctx, &models.Course{AuthorID: 1, Name: "Geo"}, models.DefaultRules())
	lessons := NewLessonRepository(db)
	lesson, err := lessons.CreateLesson(ctx, course.ID, "Capitals", pairs("Germany", "Berlin", "France", "Paris"))
	if err != nil {
		t.Fatalf("CreateLesson() error = %v", err)
	}
	full, _ := lessons.GetLessonWithQuestions(ctx, lesson.ID)
	return db, NewAttemptRepository(db, logger.Nop()), lessons, full
}

func TestRecordCompletionIsIdempotent(t *testing.T) {
	_, attempts, lessons, lesson := newLessonFixture(t)
	ctx := context.Background()

	a := &models.Attempt{
		SessionID:     "session-1",
		LearnerID:     5,
		LessonID:      lesson.Lesson.ID,
		StartedAt:     time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		Elapsed:       90 * time.Second,
		Points:        9,
		MistakesCount: 1,
	}
	for i := 0; i < 3; i++ {
		if err := attempts.RecordCompletion(ctx, a); err != nil {
			t.Fatalf("RecordCompletion() #%d error = %v", i+1, err)
		}
	}

	l, _ := lessons.GetLesson(ctx, lesson.Lesson.ID)
	if l.AttendanceCount != 1 {
		t.Errorf("attendance = %d, want 1", l.AttendanceCount)
	}

	list, err := attempts.ListAttempts(ctx, 5, lesson.Lesson.ID, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListAttempts() = %+v, %v", list, err)
	}
	got := list[0]
	if got.SessionID != "session-1" || got.Points != 9 || got.MistakesCount != 1 || got.Elapsed != 90*time.Second {
		t.Errorf("attempt = %+v", got)
	}
	if !got.StartedAt.Equal(a.StartedAt) {
		t.Errorf("started_at = %v, want %v", got.StartedAt, a.StartedAt)
	}
}

func TestRecordCompletionOnDeletedLesson(t *testing.T) {
	_, attempts, lessons, lesson := newLessonFixture(t)
	ctx := context.Background()
	lessons.DeleteLesson(ctx, lesson.Lesson.ID)

	err := attempts.RecordCompletion(ctx, &models.Attempt{SessionID: "s", LearnerID: 5, LessonID: lesson.Lesson.ID, StartedAt: time.Now()})
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	all, _ := attempts.ListAllAttempts(ctx)
	if len(all) != 0 {
		t.Errorf("attempts = %d, want 0", len(all))
	}
}

func TestRecordMistake(t *testing.T) {
	db, attempts, _, lesson := newLessonFixture(t)
	ctx := context.Background()
	q := lesson.Questions[0]

	for i := 0; i < 3; i++ {
		e := models.MistakeEvent{SessionID: "s-5", Seq: i, LearnerID: 5, QuestionID: q.ID}
		if err := attempts.RecordMistake(ctx, e); err != nil {
			t.Fatalf("RecordMistake() error = %v", err)
		}
	}
	attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "s-6", Seq: 0, LearnerID: 6, QuestionID: q.ID})

	if err := attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "s-5", Seq: 3, LearnerID: 5, QuestionID: 9999}); err != nil {
		t.Errorf("RecordMistake() on a deleted question error = %v", err)
	}

	var count int
	db.QueryRowContext(ctx, "SELECT mistakes_count FROM question_mistakes WHERE question_id = ? AND learner_id = ?", q.ID, 5).Scan(&count)
	if count != 3 {
		t.Errorf("mistakes = %d, want 3", count)
	}

	rows, err := attempts.ListAllMistakes(ctx)
	if err != nil || len(rows) != 2 {
		t.Errorf("ListAllMistakes() = %+v, %v", rows, err)
	}
}

func TestRecordMistakeReplayCountsOnce(t *testing.T) {
	db, attempts, _, lesson := newLessonFixture(t)
	ctx := context.Background()
	q := lesson.Questions[0]
	e := models.MistakeEvent{SessionID: "s-1", Seq: 4, LearnerID: 5, QuestionID: q.ID}

	for i := 0; i < 2; i++ {
		if err := attempts.RecordMistake(ctx, e); err != nil {
			t.Fatalf("RecordMistake() #%d error = %v", i+1, err)
		}
	}

	var count int
	db.QueryRowContext(ctx, "SELECT mistakes_count FROM question_mistakes WHERE question_id = ? AND learner_id = ?", q.ID, 5).Scan(&count)
	if count != 1 {
		t.Errorf("mistakes = %d, want 1", count)
	}
}

func TestMistakeEventsCleanup(t *testing.T) {
	db, attempts, _, lesson := newLessonFixture(t)
	ctx := context.Background()
	q := lesson.Questions[0]

	attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "done", Seq: 0, LearnerID: 5, QuestionID: q.ID})
	attempts.RecordMistake(ctx, models.MistakeEvent{SessionID: "open", Seq: 0, LearnerID: 5, QuestionID: q.ID})

	err := attempts.RecordCompletion(ctx, &models.Attempt{SessionID: "done", LearnerID: 5, LessonID: lesson.Lesson.ID, StartedAt: time.Now()})
	if err != nil {
		t.Fatalf("RecordCompletion() error = %v", err)
	}
	countEvents := func() int {
		var n int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM mistake_events").Scan(&n)
		return n
	}
	if n := countEvents(); n != 1 {
		t.Fatalf("events after completion = %d, want 1", n)
	}

	if n, err := attempts.PruneMistakeEvents(ctx, time.Now().Add(-time.Hour)); err != nil || n != 0 {
		t.Errorf("PruneMistakeEvents(past) = %d, %v", n, err)
	}
	if n, err := attempts.PruneMistakeEvents(ctx, time.Now().Add(time.Hour)); err != nil || n != 1 {
		t.Errorf("PruneMistakeEvents(future) = %d, %v", n, err)
	}
	if n := countEvents(); n != 0 {
		t.Errorf("events after prune = %d, want 0", n)
	}

	var mistakes int
	db.QueryRowContext(ctx, "SELECT mistakes_count FROM question_mistakes WHERE question_id = ? AND learner_id = ?", q.ID, 5).Scan(&mistakes)
	if mistakes != 2 {
		t.Errorf("mistakes = %d, want 2 after cleanup", mistakes)
	}
}

func TestLessonSummary(t *testing.T) {
	_, attempts, _, lesson := newLessonFixture(t)
	ctx := context.Background()
	lessonID := lesson.Lesson.ID

	empty, err := attempts.LessonSummary(ctx, 5, lessonID)
	if err != nil || empty.Attempts != 0 || empty.BestPoints != 0 {
		t.Fatalf("empty summary = %+v, %v", empty, err)
	}

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, pts := range []int{4, 10} {
		attempts.RecordCompletion(ctx, &models.Attempt{
			SessionID: string(rune('a' + i)),
			LearnerID: 5,
			LessonID:  lessonID,
			StartedAt: start.Add(time.Duration(i) * time.Hour),
			Elapsed:   time.Duration(i+1) * time.Minute,
			Points:    pts,
		})
	}

	s, err := attempts.LessonSummary(ctx, 5, lessonID)
	if err != nil {
		t.Fatalf("LessonSummary() error = %v", err)
	}
	if s.Attempts != 2 || s.BestPoints != 10 || s.AveragePoints != 7 || s.AverageElapsed != 90*time.Second {
		t.Errorf("summary = %+v", s)
	}

	list, _ := attempts.ListAttempts(ctx, 5, lessonID, 1)
	if len(list) != 1 || list[0].Points != 10 {
		t.Errorf("newest attempt = %+v", list)
	}
}
