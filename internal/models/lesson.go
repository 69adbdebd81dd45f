package models

import "time"

// Lesson is a named list of questions inside a course
type Lesson struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	Name            string    `json:"name"`
	AttendanceCount int       `json:"attendance_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Question is one question/answer pair of a lesson
type Question struct {
	ID           int64  `json:"id"`
	LessonID     int64  `json:"lesson_id"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
	Position     int    `json:"position"`
}

// QAPair is an unsaved question/answer pair
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// LessonWithQuestions combines a lesson with its questions in position order
type LessonWithQuestions struct {
	Lesson    Lesson     `json:"lesson"`
	Questions []Question `json:"questions"`
}
