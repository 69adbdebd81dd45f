package models

import "time"

// Attempt is the immutable record of one completed quiz session
type Attempt struct {
	ID            int64         `json:"id"`
	SessionID     string        `json:"session_id"`
	LearnerID     int64         `json:"learner_id"`
	LessonID      int64         `json:"lesson_id"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"-"`
	Points        int           `json:"points"`
	MistakesCount int           `json:"mistakes_count"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ElapsedMs returns the elapsed duration in milliseconds
func (a Attempt) ElapsedMs() int64 {
	return a.Elapsed.Milliseconds()
}

// MistakeEvent is one wrong or revealed answer in a session. Seq numbers the
// session's evaluated submissions, so a resubmission after a lost session
// write carries the same key.
type MistakeEvent struct {
	SessionID  string
	Seq        int
	LearnerID  int64
	QuestionID int64
}

// QuestionMistakes pairs a question with a learner's durable mistake count
type QuestionMistakes struct {
	Question      Question `json:"question"`
	MistakesCount int      `json:"mistakes_count"`
}

// LessonSummary aggregates a learner's history on one lesson
type LessonSummary struct {
	LessonID        int64         `json:"lesson_id"`
	Attempts        int           `json:"attempts"`
	BestPoints      int           `json:"best_points"`
	AveragePoints   float64       `json:"average_points"`
	AverageElapsed  time.Duration `json:"-"`
	AttendanceCount int           `json:"attendance_count"`
}
