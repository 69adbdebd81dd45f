package quiz

import (
	"math/rand/v2"
	"sync"

	"yourvocab/internal/models"
)

// Card is a value snapshot of a question taken at session start
type Card struct {
	QuestionID int64  `json:"question_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

// Shuffler permutes n elements through swap
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// NewRandomSource returns a goroutine safe shuffler with a random seed
func NewRandomSource() Shuffler {
	return &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSource returns a goroutine safe shuffler whose sequence is fixed by seed
func NewSeededSource(seed uint64) Shuffler {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed))}
}

// BuildDeck snapshots the questions and shuffles them with src.
// The input slice is not modified.
func BuildDeck(questions []models.Question, src Shuffler) ([]Card, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyLesson
	}

	deck := make([]Card, len(questions))
	for i, q := range questions {
		deck[i] = Card{
			QuestionID: q.ID,
			Question:   q.QuestionText,
			Answer:     q.AnswerText,
		}
	}

	src.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	return deck, nil
}
