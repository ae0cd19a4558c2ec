package engine

import "github.com/terraplay/geoquiz/internal/geoquiz"

// quizRun walks a stats quiz one item at a time. Options lock as soon as an
// answer lands and unlock when the next item is presented.
type quizRun struct {
	items  []geoquiz.QuizItem
	idx    int
	locked bool
	done   bool
}

func newQuizRun(items []geoquiz.QuizItem) *quizRun {
	return &quizRun{items: items, done: len(items) == 0}
}

func (q *quizRun) current() *geoquiz.QuizItem {
	if q.done || q.idx >= len(q.items) {
		return nil
	}
	return &q.items[q.idx]
}

// next advances past the current item after the reveal delay.
func (q *quizRun) next() {
	q.idx++
	q.locked = false
	if q.idx >= len(q.items) {
		q.done = true
	}
}

// QuizProgress is the externally visible state of a running quiz.
type QuizProgress struct {
	Index   int               `json:"index"`
	Total   int               `json:"total"`
	Locked  bool              `json:"locked"`
	Done    bool              `json:"done"`
	Current *geoquiz.QuizItem `json:"current,omitempty"`
}

func (q *quizRun) progress() *QuizProgress {
	p := &QuizProgress{
		Index:  q.idx,
		Total:  len(q.items),
		Locked: q.locked,
		Done:   q.done,
	}
	if cur := q.current(); cur != nil {
		p.Current = cur
	}
	return p
}
