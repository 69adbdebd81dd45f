package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yourvocab/internal/logger"
	"yourvocab/internal/models"
	"yourvocab/internal/security"
)

// EnrollmentSource looks up a learner's enrollment; nil means not enrolled
type EnrollmentSource interface {
	GetEnrollment(ctx context.Context, learnerID, courseID int64) (*models.Enrollment, error)
}

// LessonSource loads a lesson with its questions; nil means not found
type LessonSource interface {
	GetLessonWithQuestions(ctx context.Context, lessonID int64) (*models.LessonWithQuestions, error)
}

// AttemptRecorder persists mistakes and completed attempts.
// RecordCompletion must be idempotent per session id.
type AttemptRecorder interface {
	MistakeRecorder
	RecordCompletion(ctx context.Context, attempt *models.Attempt) error
}

// SessionStore keeps sessions between requests.
// Get returns ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// Options tunes an Engine. Zero values select defaults.
type Options struct {
	CompletionRetries    int
	CompletionRetryDelay time.Duration
	Source               Shuffler
	Now                  func() time.Time
	NewID                func() string
	Logger               *logger.Logger
}

// Engine runs quiz sessions. Callers must not issue concurrent calls for
// the same session id; the HTTP layer holds a per-session lock.
type Engine struct {
	enrollments EnrollmentSource
	lessons     LessonSource
	attempts    AttemptRecorder
	store       SessionStore

	retries    int
	retryDelay time.Duration
	source     Shuffler
	now        func() time.Time
	newID      func() string
	log        *logger.Logger
}

// NewEngine creates a quiz engine
func NewEngine(enrollments EnrollmentSource, lessons LessonSource, attempts AttemptRecorder, store SessionStore, opts Options) *Engine {
	e := &Engine{
		enrollments: enrollments,
		lessons:     lessons,
		attempts:    attempts,
		store:       store,
		retries:     opts.CompletionRetries,
		retryDelay:  opts.CompletionRetryDelay,
		source:      opts.Source,
		now:         opts.Now,
		newID:       opts.NewID,
		log:         opts.Logger,
	}
	if e.retries < 0 {
		e.retries = 0
	}
	if e.source == nil {
		e.source = NewRandomSource()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = security.GenerateSessionID
	}
	if e.log == nil {
		e.log = logger.Nop()
	}
	return e
}

// Question is what the learner sees of a card
type Question struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
}

func questionOf(c Card) *Question {
	return &Question{ID: c.QuestionID, Text: c.Question}
}

// StartResult is the response to Start
type StartResult struct {
	SessionID string
	Question  Question
	Position  int
	Total     int
	Score     int
}

// SubmitResult is the response to Submit.
// Question is the card to show next: the same one after a wrong or
// revealed answer, nil once the session is completed.
type SubmitResult struct {
	Outcome       Outcome
	Score         int
	CorrectAnswer string
	Question      *Question
	Position      int
	Total         int
	Completed     bool
	Mistakes      int
	Elapsed       time.Duration
}

// ScoreMessage is a short human readable summary of the result
func (r SubmitResult) ScoreMessage() string {
	if r.Completed {
		return fmt.Sprintf("Lesson complete! Final score: %d", r.Score)
	}
	switch r.Outcome {
	case Correct:
		return fmt.Sprintf("Correct! Score: %d", r.Score)
	case Revealed:
		return fmt.Sprintf("The answer is %q. Score: %d", r.CorrectAnswer, r.Score)
	default:
		return fmt.Sprintf("Wrong, the answer is %q. Score: %d", r.CorrectAnswer, r.Score)
	}
}

// Start begins a new session for the learner on the lesson
func (e *Engine) Start(ctx context.Context, learnerID, lessonID int64) (*StartResult, error) {
	lesson, err := e.lessons.GetLessonWithQuestions(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("load lesson %d: %w", lessonID, err)
	}
	if lesson == nil {
		return nil, ErrLessonNotFound
	}

	enrollment, err := e.enrollments.GetEnrollment(ctx, learnerID, lesson.Lesson.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, ErrNotEnrolled
	}

	deck, err := BuildDeck(lesson.Questions, e.source)
	if err != nil {
		return nil, err
	}

	now := e.now()
	s := &Session{
		ID:        e.newID(),
		LearnerID: learnerID,
		LessonID:  lessonID,
		CourseID:  lesson.Lesson.CourseID,
		Deck:      deck,
		Rules:     enrollment.Rules,
		Status:    StatusInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("%w: save session: %w", ErrPersistence, err)
	}

	e.log.Debug("Quiz session started", "session_id", s.ID, "learner_id", learnerID, "lesson_id", lessonID, "total", s.Total())

	return &StartResult{
		SessionID: s.ID,
		Question:  *questionOf(deck[0]),
		Position:  1,
		Total:     s.Total(),
		Score:     0,
	}, nil
}

// Submit applies an answer, or a reveal request, to the current question
func (e *Engine) Submit(ctx context.Context, learnerID int64, sessionID, answer string, reveal bool) (*SubmitResult, error) {
	s, err := e.load(ctx, learnerID, sessionID)
	if err != nil {
		return nil, err
	}

	switch s.Status {
	case StatusInProgress:
	case StatusCompleting:
		// the final answer was already scored, only persistence is retried
		return e.complete(ctx, s)
	case StatusCompleted, StatusUninitialized:
		e.log.Error("Submit rejected", "session_id", s.ID, "status", string(s.Status))
		return nil, fmt.Errorf("%w: submit in status %q", ErrInvalidTransition, s.Status)
	default:
		e.log.Error("Unknown session status", "session_id", s.ID, "status", string(s.Status))
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidSessionState, s.Status)
	}

	card, err := s.Current()
	if err != nil {
		e.log.Error("Session index out of range", "session_id", s.ID, "index", s.Index, "total", s.Total())
		return nil, err
	}

	outcome, err := Evaluate(ctx, s, answer, reveal, e.attempts)
	if err != nil {
		if errors.Is(err, ErrInvalidSessionState) {
			e.log.Error("Evaluate failed", "session_id", s.ID, "error", err)
		}
		return nil, err
	}

	now := e.now()
	s.UpdatedAt = now
	result := &SubmitResult{
		Outcome:  outcome,
		Score:    s.Score,
		Total:    s.Total(),
		Mistakes: s.Mistakes,
	}

	if outcome != Correct {
		result.CorrectAnswer = card.Answer
		result.Question = questionOf(card)
		result.Position = s.Position()
		if err := e.save(ctx, s); err != nil {
			return nil, err
		}
		return result, nil
	}

	s.Index++
	if s.Index < s.Total() {
		result.Question = questionOf(s.Deck[s.Index])
		result.Position = s.Position()
		if err := e.save(ctx, s); err != nil {
			return nil, err
		}
		return result, nil
	}

	s.Status = StatusCompleting
	s.FinishedAt = &now
	if err := e.save(ctx, s); err != nil {
		return nil, err
	}
	return e.complete(ctx, s)
}

// GetSession returns the current view of a session without changing it
func (e *Engine) GetSession(ctx context.Context, learnerID int64, sessionID string) (*SubmitResult, *Session, error) {
	s, err := e.load(ctx, learnerID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	view := &SubmitResult{
		Score:     s.Score,
		Total:     s.Total(),
		Position:  s.Position(),
		Mistakes:  s.Mistakes,
		Completed: s.Status == StatusCompleted,
		Elapsed:   s.Elapsed(e.now()),
	}
	if s.Status == StatusInProgress {
		card, err := s.Current()
		if err != nil {
			e.log.Error("Session index out of range", "session_id", s.ID, "index", s.Index, "total", s.Total())
			return nil, nil, err
		}
		view.Question = questionOf(card)
	}
	return view, s, nil
}

func (e *Engine) load(ctx context.Context, learnerID int64, sessionID string) (*Session, error) {
	s, err := e.store.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load session: %w", ErrPersistence, err)
	}
	if s.LearnerID != learnerID {
		e.log.Warn("Session requested by another learner", "session_id", sessionID, "learner_id", learnerID)
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (e *Engine) save(ctx context.Context, s *Session) error {
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("%w: save session: %w", ErrPersistence, err)
	}
	return nil
}

// complete records the attempt of a Completing session, retrying with a
// fixed delay. On exhaustion the session stays Completing.
func (e *Engine) complete(ctx context.Context, s *Session) (*SubmitResult, error) {
	if s.FinishedAt == nil || s.Index != s.Total() {
		e.log.Error("Completing session is inconsistent", "session_id", s.ID, "index", s.Index, "total", s.Total())
		return nil, fmt.Errorf("%w: completing at index %d of %d", ErrInvalidSessionState, s.Index, s.Total())
	}

	attempt := &models.Attempt{
		SessionID:     s.ID,
		LearnerID:     s.LearnerID,
		LessonID:      s.LessonID,
		StartedAt:     s.StartedAt,
		Elapsed:       s.Elapsed(e.now()),
		Points:        s.Score,
		MistakesCount: s.Mistakes,
	}

	var err error
	for try := 0; try <= e.retries; try++ {
		if try > 0 {
			if werr := sleepCtx(ctx, e.retryDelay); werr != nil {
				err = werr
				break
			}
		}
		if err = e.attempts.RecordCompletion(ctx, attempt); err == nil {
			break
		}
		e.log.Warn("Failed to record attempt", "session_id", s.ID, "try", try+1, "error", err)
	}
	if err != nil {
		e.log.Error("Giving up recording attempt", "session_id", s.ID, "error", err)
		return nil, fmt.Errorf("%w: record attempt: %w", ErrPersistence, err)
	}

	s.Status = StatusCompleted
	s.UpdatedAt = e.now()
	if err := e.store.Save(ctx, s); err != nil {
		// the attempt is stored; a later submit re-records it idempotently
		e.log.Warn("Failed to mark session completed", "session_id", s.ID, "error", err)
	}

	e.log.Info("Quiz session completed", "session_id", s.ID, "learner_id", s.LearnerID, "lesson_id", s.LessonID, "score", s.Score, "mistakes", s.Mistakes)

	return &SubmitResult{
		Outcome:   Correct,
		Score:     s.Score,
		Position:  s.Total(),
		Total:     s.Total(),
		Completed: true,
		Mistakes:  s.Mistakes,
		Elapsed:   attempt.Elapsed,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
