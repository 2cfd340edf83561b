// Package console is a line-oriented terminal front end for a test attempt.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/takingtest"
)

// ErrNotLoaded is returned by Run for a controller whose Load did not succeed.
var ErrNotLoaded = errors.New("attempt not loaded")

// Outcome records where the attempt sent the candidate.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeLogin
	OutcomeHome
	OutcomeFinished
	OutcomeQuit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLogin:
		return "login"
	case OutcomeHome:
		return "home"
	case OutcomeFinished:
		return "finished"
	case OutcomeQuit:
		return "quit"
	default:
		return "none"
	}
}

// warnAt are the remaining-second marks that raise a toast.
var warnAt = []int64{15 * 60, 5 * 60, 60}

// Console renders an attempt and turns typed commands into controller calls.
// It is also the attempt's Notifier and Navigation.
type Console struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	outcome Outcome
	last    int64
}

// New builds a console reading commands from in and writing to out.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out, last: -1}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// ─── Notifier / Navigation ──────────────────────────────────────────

// Notify prints a toast.
func (c *Console) Notify(level takingtest.Level, message string) {
	c.printf("[%s] %s\n", strings.ToUpper(level.String()), message)
}

func (c *Console) setOutcome(o Outcome) {
	c.mu.Lock()
	c.outcome = o
	c.mu.Unlock()
}

func (c *Console) ToLogin()    { c.setOutcome(OutcomeLogin) }
func (c *Console) ToHome()     { c.setOutcome(OutcomeHome) }
func (c *Console) ToFinished() { c.setOutcome(OutcomeFinished) }

// Outcome reports how the attempt ended.
func (c *Console) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Tick raises a toast when the countdown crosses a warning mark. It is meant to be
// installed as the controller's OnTick.
func (c *Console) Tick(remaining int64) {
	c.mu.Lock()
	last := c.last
	c.last = remaining
	c.mu.Unlock()

	if last < 0 {
		return
	}
	for _, mark := range warnAt {
		if last > mark && remaining <= mark {
			c.Notify(takingtest.LevelWarn, fmt.Sprintf("%s left.", humanize(mark)))
			return
		}
	}
}

func humanize(seconds int64) string {
	if seconds%60 == 0 {
		m := seconds / 60
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	}
	return fmt.Sprintf("%d seconds", seconds)
}

// FormatRemaining renders seconds as HH:MM:SS.
func FormatRemaining(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// ─── Rendering ──────────────────────────────────────────────────────

func (c *Console) render(ctrl *takingtest.Controller) {
	nav := ctrl.Navigator()
	q := nav.Current()
	pos, total := nav.Position()

	var b strings.Builder
	kind := "single choice"
	if q.Type == model.QuestionTypeMultipleChoices {
		kind = "multiple choices"
	}
	fmt.Fprintf(&b, "\n── Question %d/%d (#%d, %s)", pos+1, total, q.ID, kind)
	if nav.IsMarked(q.ID) {
		b.WriteString(" [marked]")
	}
	b.WriteString("\n")
	b.WriteString(q.Content)
	b.WriteString("\n")
	for i, opt := range q.Answers {
		box := "[ ]"
		if nav.IsSelected(q.ID, i, q.Type) {
			box = "[x]"
		}
		if q.Type == model.QuestionTypeSingleChoice {
			box = "( )"
			if nav.IsSelected(q.ID, i, q.Type) {
				box = "(*)"
			}
		}
		fmt.Fprintf(&b, "  %s %s. %s\n", box, takingtest.Letter(i), opt.Content)
	}
	fmt.Fprintf(&b, "Answered %d/%d | Time left %s\n", nav.AnsweredCount(), total, FormatRemaining(ctrl.Remaining()))

	c.printf("%s", b.String())
}

func (c *Console) renderList(ctrl *takingtest.Controller) {
	nav := ctrl.Navigator()
	cur := nav.Current().ID

	var b strings.Builder
	for i, q := range nav.Questions() {
		cursor := " "
		if q.ID == cur {
			cursor = ">"
		}
		status := "unanswered"
		if enc, ok := nav.Encoded(q.ID); ok {
			status = "answered " + answerLabels(q, enc)
		}
		mark := ""
		if nav.IsMarked(q.ID) {
			mark = " [marked]"
		}
		fmt.Fprintf(&b, "%s %2d. #%d %s%s\n", cursor, i+1, q.ID, status, mark)
	}
	c.printf("%s", b.String())
}

// answerLabels renders an encoded answer as option letters.
func answerLabels(q model.Question, encoded string) string {
	if q.Type == model.QuestionTypeSingleChoice {
		id, err := strconv.Atoi(encoded)
		if err != nil {
			return "?"
		}
		return takingtest.Letter(q.OptionIndex(id))
	}
	var labels []string
	for i, ch := range encoded {
		if ch == '1' {
			labels = append(labels, takingtest.Letter(i))
		}
	}
	if len(labels) == 0 {
		return "-"
	}
	return strings.Join(labels, ",")
}

const help = `Commands:
  n / p        next / previous question
  g <id>       go to question by id
  A, B, ...    select (single) or toggle (multiple) an option
  o <letter>   same as a bare letter, for letters shadowed by commands
  m            mark / unmark for review
  l            list questions
  s            save progress
  submit       submit the test
  q            leave without submitting
  h            this help
`

// ─── Command loop ───────────────────────────────────────────────────

// Run drives the attempt until it is submitted, the candidate quits, input ends or
// ctx is cancelled. The caller still owns ctrl and must Close it.
func (c *Console) Run(ctx context.Context, ctrl *takingtest.Controller) error {
	if ctrl.Navigator() == nil {
		return ErrNotLoaded
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-ctrl.Done():
				return
			}
		}
	}()

	test := ctrl.Test()
	c.printf("%s (%s), %d questions. Type h for help.\n", test.TestName, test.Subject, test.QuestionCount)
	c.render(ctrl)

	confirming := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ctrl.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				c.setOutcomeIfNone(OutcomeQuit)
				return nil
			}
			if confirming {
				confirming = false
				c.confirmSubmit(ctx, ctrl, line)
				continue
			}
			var quit bool
			confirming, quit = c.handle(ctx, ctrl, strings.TrimSpace(line))
			if quit {
				c.setOutcomeIfNone(OutcomeQuit)
				return nil
			}
		}
	}
}

func (c *Console) setOutcomeIfNone(o Outcome) {
	c.mu.Lock()
	if c.outcome == OutcomeNone {
		c.outcome = o
	}
	c.mu.Unlock()
}

// handle runs one command. It reports whether a submit confirmation is pending and
// whether the candidate asked to quit.
func (c *Console) handle(ctx context.Context, ctrl *takingtest.Controller, line string) (confirm, quit bool) {
	nav := ctrl.Navigator()
	fields := strings.Fields(line)
	if len(fields) == 0 {
		c.render(ctrl)
		return false, false
	}

	switch cmd := strings.ToLower(fields[0]); {
	case cmd == "n" && len(fields) == 1:
		if !nav.Next() {
			c.printf("Already at the last question.\n")
		}
		c.render(ctrl)

	case cmd == "p" && len(fields) == 1:
		if !nav.Prev() {
			c.printf("Already at the first question.\n")
		}
		c.render(ctrl)

	case cmd == "g":
		if len(fields) != 2 {
			c.printf("Usage: g <question id>\n")
			return false, false
		}
		id, err := strconv.Atoi(fields[1])
		if err != nil || nav.Jump(id) != nil {
			c.printf("No question #%s.\n", fields[1])
			return false, false
		}
		c.render(ctrl)

	case cmd == "m" && len(fields) == 1:
		q := nav.Current()
		if _, err := nav.ToggleMark(q.ID); err != nil {
			c.printf("%v\n", err)
		}
		c.render(ctrl)

	case cmd == "l" && len(fields) == 1:
		c.renderList(ctrl)

	case cmd == "s" && len(fields) == 1:
		c.report(ctrl.Save(ctx))

	case cmd == "submit":
		if ctrl.State() == takingtest.StateSubmitting {
			c.printf("A submission is already in progress.\n")
			return false, false
		}
		_, total := nav.Position()
		c.printf("Submit your answers? %d of %d answered. (y/N) ", nav.AnsweredCount(), total)
		return true, false

	case cmd == "q" && len(fields) == 1:
		return false, true

	case (cmd == "h" || cmd == "?" || cmd == "help") && len(fields) == 1:
		c.printf("%s", help)

	case cmd == "o" && len(fields) == 2:
		c.choose(ctrl, fields[1])

	case len(fields) == 1:
		c.choose(ctrl, fields[0])

	default:
		c.printf("Unknown command %q. Type h for help.\n", line)
	}
	return false, false
}

func (c *Console) choose(ctrl *takingtest.Controller, label string) {
	nav := ctrl.Navigator()
	q := nav.Current()
	idx := takingtest.LetterIndex(label)
	if idx < 0 || idx >= len(q.Answers) {
		c.printf("No option %q on this question. Type h for help.\n", label)
		return
	}
	if state := ctrl.State(); state == takingtest.StateSubmitted || state == takingtest.StateSubmitting {
		c.printf("Answers can no longer be changed.\n")
		return
	}
	if err := nav.Choose(q.ID, idx); err != nil {
		c.printf("%v\n", err)
		return
	}
	c.render(ctrl)
}

func (c *Console) confirmSubmit(ctx context.Context, ctrl *takingtest.Controller, answer string) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		c.report(ctrl.Submit(ctx))
	default:
		c.printf("Submission cancelled.\n")
	}
}

// report explains errors the controller does not toast itself.
func (c *Console) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, takingtest.ErrSaveInFlight):
		c.printf("A save is already in progress.\n")
	case errors.Is(err, takingtest.ErrSubmitInFlight):
		c.printf("A submission is already in progress.\n")
	case errors.Is(err, takingtest.ErrNotActive):
		c.printf("The test is no longer active.\n")
	}
}
