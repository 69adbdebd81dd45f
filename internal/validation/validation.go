package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"yourvocab/internal/models"
)

const (
	MaxNameLength   = 200
	MaxTextLength   = 500
	MaxLessonLength = 1000
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateName checks a course or lesson name
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: field, Message: "name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidateRules checks every scoring value is within 0..MaxRuleValue
func ValidateRules(r models.Rules) error {
	checks := []struct {
		field string
		value int
	}{
		{"answer_bonus", r.AnswerBonus},
		{"mistake_penalty", r.MistakePenalty},
		{"show_answer_penalty", r.ShowAnswerPenalty},
	}
	for _, c := range checks {
		if c.value < 0 || c.value > models.MaxRuleValue {
			return ValidationError{Field: c.field, Message: fmt.Sprintf("must be between 0 and %d", models.MaxRuleValue)}
		}
	}
	return nil
}

// BuildPairs zips questions and answers into pairs. Entries are trimmed,
// pairs blank on both sides are dropped.
func BuildPairs(questions, answers []string) ([]models.QAPair, error) {
	if len(questions) != len(answers) {
		return nil, ValidationError{Field: "answers", Message: fmt.Sprintf("got %d questions but %d answers", len(questions), len(answers))}
	}

	pairs := make([]models.QAPair, 0, len(questions))
	for i := range questions {
		q := strings.TrimSpace(strings.TrimSuffix(questions[i], "\r"))
		a := strings.TrimSpace(strings.TrimSuffix(answers[i], "\r"))
		switch {
		case q == "" && a == "":
			continue
		case q == "":
			return nil, ValidationError{Field: "questions", Message: fmt.Sprintf("line %d has an answer but no question", i+1)}
		case a == "":
			return nil, ValidationError{Field: "answers", Message: fmt.Sprintf("line %d has a question but no answer", i+1)}
		case utf8.RuneCountInString(q) > MaxTextLength || utf8.RuneCountInString(a) > MaxTextLength:
			return nil, ValidationError{Field: "questions", Message: fmt.Sprintf("line %d is longer than %d characters", i+1, MaxTextLength)}
		}
		pairs = append(pairs, models.QAPair{Question: q, Answer: a})
	}

	if len(pairs) > MaxLessonLength {
		return nil, ValidationError{Field: "questions", Message: fmt.Sprintf("a lesson holds at most %d questions", MaxLessonLength)}
	}
	return pairs, nil
}

// ParseQuestionBlocks splits two newline separated text blocks into pairs
func ParseQuestionBlocks(questions, answers string) ([]models.QAPair, error) {
	return BuildPairs(splitLines(questions), splitLines(answers))
}

func splitLines(block string) []string {
	block = strings.TrimRight(block, "\r\n")
	if block == "" {
		return nil
	}
	return strings.Split(block, "\n")
}
