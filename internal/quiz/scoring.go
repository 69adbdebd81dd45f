package quiz

import "yourvocab/internal/models"

// Outcome is the verdict on one submission
type Outcome string

const (
	Correct  Outcome = "correct"
	Wrong    Outcome = "wrong"
	Revealed Outcome = "revealed"
)

// ScoreDelta maps an outcome to the score change under the given rules
func ScoreDelta(outcome Outcome, rules models.Rules) int {
	switch outcome {
	case Correct:
		return rules.AnswerBonus
	case Wrong:
		return -rules.MistakePenalty
	case Revealed:
		return -rules.ShowAnswerPenalty
	default:
		return 0
	}
}
