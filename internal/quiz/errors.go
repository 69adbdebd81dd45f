package quiz

import "errors"

var (
	// ErrEmptyLesson is returned when a session is started on a lesson without questions
	ErrEmptyLesson = errors.New("lesson has no questions")
	// ErrNotEnrolled is returned when the learner has no enrollment for the lesson's course
	ErrNotEnrolled = errors.New("learner is not enrolled in this course")
	// ErrLessonNotFound is returned when the lesson does not exist
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrSessionNotFound is returned for unknown, expired or foreign session ids
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidSessionState means a session's fields contradict its status
	ErrInvalidSessionState = errors.New("invalid session state")
	// ErrInvalidTransition is returned when an operation is not allowed in the session's status
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrPersistence wraps failed durable writes
	ErrPersistence = errors.New("failed to save quiz progress")
)
