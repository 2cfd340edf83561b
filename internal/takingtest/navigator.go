package takingtest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/answercode"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// Navigator errors. All of them indicate a desync between the UI and the question set.
var (
	ErrNoQuestions       = errors.New("question set is empty")
	ErrDuplicateQuestion = errors.New("duplicate question id")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrUnknownOption     = errors.New("unknown option")
	ErrOptionIndex       = errors.New("option index out of range")
	ErrOptionCount       = errors.New("option count does not match question")
	ErrQuestionType      = errors.New("operation does not match question type")
)

type answer struct {
	optionID int
	mask     []bool
}

// Navigator holds the candidate's working answers, review marks and cursor for
// one attempt. It is safe for concurrent use.
type Navigator struct {
	mu        sync.RWMutex
	order     []int
	questions map[int]model.Question
	answers   map[int]*answer
	marked    map[int]struct{}
	cursor    int
}

// NewNavigator builds an empty navigator over questions, keeping their order.
func NewNavigator(questions []model.Question) (*Navigator, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	n := &Navigator{
		order:     make([]int, 0, len(questions)),
		questions: make(map[int]model.Question, len(questions)),
		answers:   make(map[int]*answer),
		marked:    make(map[int]struct{}),
	}
	for _, q := range questions {
		if _, dup := n.questions[q.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateQuestion, q.ID)
		}
		n.order = append(n.order, q.ID)
		n.questions[q.ID] = q
	}
	return n, nil
}

func (n *Navigator) question(id int) (model.Question, error) {
	q, ok := n.questions[id]
	if !ok {
		return model.Question{}, fmt.Errorf("%w: %d", ErrUnknownQuestion, id)
	}
	return q, nil
}

// ─── Answers ────────────────────────────────────────────────────────

// SelectSingle records optionID as the answer to a single-choice question.
func (n *Navigator) SelectSingle(questionID, optionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	q, err := n.question(questionID)
	if err != nil {
		return err
	}
	if q.Type != model.QuestionTypeSingleChoice {
		return fmt.Errorf("%w: question %d is %s", ErrQuestionType, questionID, q.Type)
	}
	if q.OptionIndex(optionID) < 0 {
		return fmt.Errorf("%w: %d on question %d", ErrUnknownOption, optionID, questionID)
	}
	n.answers[questionID] = &answer{optionID: optionID}
	return nil
}

// ToggleMultiple flips the option at optionIndex of a multiple-choice question.
// optionCount must equal the question's current option count; a stored mask shorter
// than that is zero-padded before the flip.
func (n *Navigator) ToggleMultiple(questionID, optionIndex, optionCount int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	q, err := n.question(questionID)
	if err != nil {
		return err
	}
	if q.Type != model.QuestionTypeMultipleChoices {
		return fmt.Errorf("%w: question %d is %s", ErrQuestionType, questionID, q.Type)
	}
	if optionCount != len(q.Answers) {
		return fmt.Errorf("%w: got %d, question %d has %d", ErrOptionCount, optionCount, questionID, len(q.Answers))
	}
	if optionIndex < 0 || optionIndex >= optionCount {
		return fmt.Errorf("%w: %d of %d", ErrOptionIndex, optionIndex, optionCount)
	}

	a, ok := n.answers[questionID]
	if !ok {
		a = &answer{}
		n.answers[questionID] = a
	}
	if len(a.mask) < optionCount {
		padded := make([]bool, optionCount)
		copy(padded, a.mask)
		a.mask = padded
	}
	a.mask[optionIndex] = !a.mask[optionIndex]
	return nil
}

// Choose applies the natural click action for the option at optionIndex: select it
// on a single-choice question, toggle it on a multiple-choice one.
func (n *Navigator) Choose(questionID, optionIndex int) error {
	n.mu.RLock()
	q, err := n.question(questionID)
	n.mu.RUnlock()
	if err != nil {
		return err
	}
	if optionIndex < 0 || optionIndex >= len(q.Answers) {
		return fmt.Errorf("%w: %d of %d", ErrOptionIndex, optionIndex, len(q.Answers))
	}
	if q.Type == model.QuestionTypeMultipleChoices {
		return n.ToggleMultiple(questionID, optionIndex, len(q.Answers))
	}
	return n.SelectSingle(questionID, q.Answers[optionIndex].ID)
}

// IsSelected reports whether the option at optionIndex is currently chosen.
// Out-of-range indexes and unknown questions read as unselected.
func (n *Navigator) IsSelected(questionID, optionIndex int, questionType model.QuestionType) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()

	q, ok := n.questions[questionID]
	if !ok || optionIndex < 0 || optionIndex >= len(q.Answers) {
		return false
	}
	a, ok := n.answers[questionID]
	if !ok {
		return false
	}
	switch questionType {
	case model.QuestionTypeSingleChoice:
		return a.mask == nil && a.optionID == q.Answers[optionIndex].ID
	case model.QuestionTypeMultipleChoices:
		return optionIndex < len(a.mask) && a.mask[optionIndex]
	default:
		return false
	}
}

// Encoded returns the wire value for a question, and false when it has no entry.
func (n *Navigator) Encoded(questionID int) (string, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.encodedLocked(questionID)
}

func (n *Navigator) encodedLocked(questionID int) (string, bool) {
	a, ok := n.answers[questionID]
	if !ok {
		return "", false
	}
	q := n.questions[questionID]
	if q.Type == model.QuestionTypeMultipleChoices {
		return answercode.Encode(a.mask, len(q.Answers)), true
	}
	return answercode.Single(a.optionID), true
}

// Snapshot serializes every recorded answer in question order. Unanswered questions
// are omitted.
func (n *Navigator) Snapshot() []model.AnswerEntry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	entries := make([]model.AnswerEntry, 0, len(n.answers))
	for _, id := range n.order {
		if v, ok := n.encodedLocked(id); ok {
			entries = append(entries, model.AnswerEntry{QuestionID: id, AnswerChosen: v})
		}
	}
	return entries
}

// AnsweredCount counts questions with a recorded entry. A multiple-choice question
// whose options were all toggled back off still counts.
func (n *Navigator) AnsweredCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.answers)
}

// ─── Review marks ───────────────────────────────────────────────────

// ToggleMark flips the review mark of a question and returns the new state.
func (n *Navigator) ToggleMark(questionID int) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.question(questionID); err != nil {
		return false, err
	}
	if _, ok := n.marked[questionID]; ok {
		delete(n.marked, questionID)
		return false, nil
	}
	n.marked[questionID] = struct{}{}
	return true, nil
}

// IsMarked reports whether a question is marked for review.
func (n *Navigator) IsMarked(questionID int) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.marked[questionID]
	return ok
}

// Marked lists marked question ids in question order.
func (n *Navigator) Marked() []int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	ids := make([]int, 0, len(n.marked))
	for _, id := range n.order {
		if _, ok := n.marked[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ─── Cursor ─────────────────────────────────────────────────────────

// Questions returns the question set in order.
func (n *Navigator) Questions() []model.Question {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]model.Question, len(n.order))
	for i, id := range n.order {
		out[i] = n.questions[id]
	}
	return out
}

// Current returns the question under the cursor.
func (n *Navigator) Current() model.Question {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.questions[n.order[n.cursor]]
}

// Position returns the 0-based cursor and the question count.
func (n *Navigator) Position() (int, int) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cursor, len(n.order)
}

// Jump moves the cursor to questionID.
func (n *Navigator) Jump(questionID int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, id := range n.order {
		if id == questionID {
			n.cursor = i
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
}

// Next advances the cursor; it reports false at the last question.
func (n *Navigator) Next() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cursor+1 >= len(n.order) {
		return false
	}
	n.cursor++
	return true
}

// Prev moves the cursor back; it reports false at the first question.
func (n *Navigator) Prev() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cursor == 0 {
		return false
	}
	n.cursor--
	return true
}

// Letter is the display label of the option at index i (A, B, ... Z, AA, AB, ...).
func Letter(i int) string {
	if i < 0 {
		return ""
	}
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

// LetterIndex is the inverse of Letter; it returns -1 for invalid input.
func LetterIndex(label string) int {
	if label == "" {
		return -1
	}
	n := 0
	for _, r := range label {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if r < 'A' || r > 'Z' {
			return -1
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1
}
