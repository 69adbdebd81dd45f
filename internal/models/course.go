package models

import "time"

// Default scoring rules applied when an enrollment is created without explicit values
const (
	DefaultAnswerBonus       = 5
	DefaultMistakePenalty    = 1
	DefaultShowAnswerPenalty = 2

	// MaxRuleValue bounds each bonus/penalty an author may configure
	MaxRuleValue = 10
)

// Course groups lessons under one author
type Course struct {
	ID            int64     `json:"id"`
	AuthorID      int64     `json:"author_id"`
	Name          string    `json:"name"`
	Public        bool      `json:"public"`
	HelperSymbols string    `json:"helper_symbols"`
	CreatedAt     time.Time `json:"created_at"`
}

// Rules is the scoring configuration of an enrollment
type Rules struct {
	AnswerBonus       int `json:"answer_bonus"`
	MistakePenalty    int `json:"mistake_penalty"`
	ShowAnswerPenalty int `json:"show_answer_penalty"`
}

// DefaultRules returns the 5/1/2 scoring configuration
func DefaultRules() Rules {
	return Rules{
		AnswerBonus:       DefaultAnswerBonus,
		MistakePenalty:    DefaultMistakePenalty,
		ShowAnswerPenalty: DefaultShowAnswerPenalty,
	}
}

// Valid reports whether every value is within 0..MaxRuleValue
func (r Rules) Valid() bool {
	for _, v := range []int{r.AnswerBonus, r.MistakePenalty, r.ShowAnswerPenalty} {
		if v < 0 || v > MaxRuleValue {
			return false
		}
	}
	return true
}

// Enrollment links a learner to a course with their scoring rules
type Enrollment struct {
	ID        int64     `json:"id"`
	LearnerID int64     `json:"learner_id"`
	CourseID  int64     `json:"course_id"`
	Rules     Rules     `json:"rules"`
	CreatedAt time.Time `json:"created_at"`
}

// CourseWithLessons is a course as seen by one enrolled learner
type CourseWithLessons struct {
	Course   Course   `json:"course"`
	Enrolled bool     `json:"enrolled"`
	Rules    Rules    `json:"rules"`
	Lessons  []Lesson `json:"lessons"`
}
