package handlers

import "time"

// Error kinds returned in API error bodies
const (
	KindValidation      = "validation"
	KindBadRequest      = "bad_request"
	KindUnauthorized    = "unauthorized"
	KindForbidden       = "forbidden"
	KindNotEnrolled     = "not_enrolled"
	KindEmptyLesson     = "empty_lesson"
	KindSessionNotFound = "session_not_found"
	KindLessonNotFound  = "lesson_not_found"
	KindCourseNotFound  = "course_not_found"
	KindAlreadyEnrolled = "already_enrolled"
	KindTransition      = "invalid_transition"
	KindSessionState    = "invalid_session_state"
	KindPersistence     = "persistence"
	KindSessionBusy     = "session_busy"
	KindRateLimited     = "rate_limited"
	KindInternal        = "internal"

	ErrInternalServerError = "Internal server error"

	maxBodyBytes    = 1 << 20
	sessionLockWait = 5 * time.Second
)
