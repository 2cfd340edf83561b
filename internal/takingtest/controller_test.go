package takingtest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// ─── Fakes ──────────────────────────────────────────────────────────

type fakeAPI struct {
	mu        sync.Mutex
	session   model.SessionInfo
	test      model.TestInfo
	qs        []model.Question
	loadErr   error
	saveErr   error
	submitErr error

	// saveGate, when set, blocks SaveProgress until closed.
	saveGate chan struct{}
	saveSeen chan struct{}
	// submitGate, when set, blocks Submit until closed.
	submitGate chan struct{}
	submitSeen chan struct{}

	saves    [][]model.AnswerEntry
	submits  int
	aborted  int
	events   []string
	tokens   []string
	loadCall int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		session: model.SessionInfo{ID: 7, Name: "Mid-term", StartTime: "01/01/2030 09:00", TimeLimit: "PT1H00M", Status: model.SessionStatusOngoing},
		test:    model.TestInfo{ID: 3, TestName: "Algebra", Subject: "Math", QuestionCount: 3},
		qs:      sampleQuestions(),
	}
}

func (f *fakeAPI) record(event, token string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func (f *fakeAPI) Session(_ context.Context, token string, _ int) (model.SessionInfo, error) {
	f.record("session", token)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCall++
	return f.session, f.loadErr
}

func (f *fakeAPI) Test(_ context.Context, token string, _ int) (model.TestInfo, error) {
	f.record("test", token)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCall++
	return f.test, nil
}

func (f *fakeAPI) Questions(_ context.Context, token string, _ int) ([]model.Question, error) {
	f.record("questions", token)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loadCall++
	return f.qs, nil
}

func (f *fakeAPI) SaveProgress(ctx context.Context, token string, _ int, entries []model.AnswerEntry) error {
	f.record("save", token)
	f.mu.Lock()
	gate, seen := f.saveGate, f.saveSeen
	f.saves = append(f.saves, entries)
	err := f.saveErr
	f.mu.Unlock()

	if seen != nil {
		select {
		case seen <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) Submit(ctx context.Context, token string, _ int) error {
	f.record("submit", token)
	f.mu.Lock()
	f.submits++
	gate, seen := f.submitGate, f.submitSeen
	err := f.submitErr
	f.mu.Unlock()

	if seen != nil {
		select {
		case seen <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			f.mu.Lock()
			f.aborted++
			f.mu.Unlock()
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeAPI) abortedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborted
}

func (f *fakeAPI) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeAPI) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

func (f *fakeAPI) lastSave() []model.AnswerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func (f *fakeAPI) eventLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type notice struct {
	level Level
	msg   string
}

type recorder struct {
	mu       sync.Mutex
	notices  []notice
	login    atomic.Int32
	home     atomic.Int32
	finished atomic.Int32
}

func (r *recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	r.notices = append(r.notices, notice{level, msg})
	r.mu.Unlock()
}

func (r *recorder) has(level Level, msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n.level == level && n.msg == msg {
			return true
		}
	}
	return false
}

func (r *recorder) count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, x := range r.notices {
		if x.level == level {
			n++
		}
	}
	return n
}

func (r *recorder) ToLogin()    { r.login.Add(1) }
func (r *recorder) ToHome()     { r.home.Add(1) }
func (r *recorder) ToFinished() { r.finished.Add(1) }

type harness struct {
	api   *fakeAPI
	rec   *recorder
	clock *fakeClock
	ctrl  *Controller
}

func newHarness(t *testing.T, mutate func(*fakeAPI, *Config)) *harness {
	t.Helper()
	h := &harness{
		api:   newFakeAPI(),
		rec:   &recorder{},
		clock: newFakeClock(time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)),
	}
	cfg := Config{
		Token:        "tok",
		SessionID:    7,
		Location:     time.UTC,
		TickInterval: 2 * time.Millisecond,
		Now:          h.clock.Now,
	}
	if mutate != nil {
		mutate(h.api, &cfg)
	}
	h.ctrl = NewController(h.api, h.rec, h.rec, cfg, zerolog.Nop())
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	if err := h.ctrl.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
}

// ─── Load ───────────────────────────────────────────────────────────

func TestLoadMissingTokenRedirectsToLogin(t *testing.T) {
	h := newHarness(t, func(_ *fakeAPI, cfg *Config) { cfg.Token = "" })

	err := h.ctrl.Load(context.Background())
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if h.rec.login.Load() != 1 {
		t.Fatalf("expected redirect to login")
	}
	if len(h.api.eventLog()) != 0 {
		t.Fatalf("expected no API calls, got %v", h.api.eventLog())
	}
	if h.ctrl.State() != StateLoadFailed {
		t.Fatalf("expected LOAD_FAILED, got %s", h.ctrl.State())
	}
}

func TestLoadFailureRedirectsHome(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.loadErr = errors.New("Session not found") })

	if err := h.ctrl.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	if h.rec.home.Load() != 1 {
		t.Fatalf("expected redirect home")
	}
	if h.rec.count(LevelError) != 1 {
		t.Fatalf("expected one error notice")
	}
	if h.ctrl.Navigator() != nil || h.ctrl.Remaining() != 0 {
		t.Fatalf("no attempt state should exist after a failed load")
	}
	if err := h.ctrl.Save(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive from save, got %v", err)
	}
}

func TestLoadTwiceIsRejected(t *testing.T) {
	h := newHarness(t, func(_ *fakeAPI, cfg *Config) { cfg.AutosaveInterval = time.Hour })
	h.load(t)

	if err := h.ctrl.Load(context.Background()); !errors.Is(err, ErrAlreadyLoaded) {
		t.Fatalf("expected ErrAlreadyLoaded, got %v", err)
	}
	h.api.mu.Lock()
	calls := h.api.loadCall
	h.api.mu.Unlock()
	if calls != 3 {
		t.Fatalf("second load should not reach the API, got %d calls", calls)
	}
	if h.ctrl.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", h.ctrl.State())
	}

	// Close must find the single autosave loop and return.
	closed := make(chan struct{})
	go func() {
		h.ctrl.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("close did not return")
	}
}

func TestLoadAfterCloseIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.ctrl.Close()

	if err := h.ctrl.Load(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if h.ctrl.State() != StateClosed {
		t.Fatalf("expected CLOSED, got %s", h.ctrl.State())
	}
	if h.ctrl.Navigator() != nil || len(h.api.eventLog()) != 0 {
		t.Fatalf("closed attempt should not load")
	}
}

func TestLoadSendsTokenOnEveryCall(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()
	if h.api.loadCall != 3 {
		t.Fatalf("expected 3 load calls, got %d", h.api.loadCall)
	}
	for _, tok := range h.api.tokens {
		if tok != "tok" {
			t.Fatalf("expected bearer token on every call, got %q", tok)
		}
	}
}

// ─── Countdown ──────────────────────────────────────────────────────

func TestCountdownAndAutoSubmit(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	if got := h.ctrl.Remaining(); got != 3600 {
		t.Fatalf("expected 3600s at 09:00, got %d", got)
	}
	if h.ctrl.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", h.ctrl.State())
	}

	nav := h.ctrl.Navigator()
	if err := nav.SelectSingle(11, 102); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := nav.ToggleMultiple(12, 0, 5); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	h.clock.Advance(time.Hour + time.Second)
	waitFor(t, "auto-submit", func() bool { return h.api.submitCount() == 1 })
	<-h.ctrl.Done()

	if !h.ctrl.Expired() {
		t.Fatalf("expected expired")
	}
	if h.ctrl.State() != StateSubmitted {
		t.Fatalf("expected SUBMITTED, got %s", h.ctrl.State())
	}
	if h.rec.finished.Load() != 1 {
		t.Fatalf("expected post-submit navigation")
	}
	if !h.rec.has(LevelWarn, "Time is up. Your answers are being submitted.") {
		t.Fatalf("expected time-up notice")
	}

	saved := h.api.lastSave()
	if len(saved) != 2 || saved[0].AnswerChosen != "102" || saved[1].AnswerChosen != "10000" {
		t.Fatalf("unexpected flushed answers %+v", saved)
	}
	events := h.api.eventLog()
	if events[len(events)-2] != "save" || events[len(events)-1] != "submit" {
		t.Fatalf("expected flush before submit, got %v", events)
	}

	// A late time-up signal after teardown is a no-op.
	h.ctrl.onTimeUp()
	time.Sleep(20 * time.Millisecond)
	if h.api.submitCount() != 1 {
		t.Fatalf("expected exactly one submit, got %d", h.api.submitCount())
	}
}

func TestAutoSubmitFailureKeepsAttemptActive(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.submitErr = errors.New("server down") })
	h.load(t)
	_ = h.ctrl.Navigator().SelectSingle(11, 102)

	h.clock.Advance(time.Hour + time.Second)
	waitFor(t, "auto-submit attempt", func() bool { return h.api.submitCount() == 1 })
	waitFor(t, "failure notice", func() bool {
		return h.rec.has(LevelError, "Submission failed: server down Please try again.")
	})
	waitFor(t, "active again", func() bool { return h.ctrl.State() == StateActive })

	if !h.rec.has(LevelWarn, "Time is up. Your answers are being submitted.") {
		t.Fatalf("expected time-up notice")
	}
	if enc, _ := h.ctrl.Navigator().Encoded(11); enc != "102" {
		t.Fatalf("answers lost after failed auto-submit")
	}
	select {
	case <-h.ctrl.Done():
		t.Fatalf("a failed auto-submit must not leave the page")
	default:
	}

	time.Sleep(20 * time.Millisecond)
	if h.api.submitCount() != 1 {
		t.Fatalf("expected exactly one submit, got %d", h.api.submitCount())
	}
	if h.rec.finished.Load() != 0 {
		t.Fatalf("expected no post-submit navigation")
	}
}

func TestExpiryDuringManualSubmitSubmitsOnce(t *testing.T) {
	gate := make(chan struct{})
	seen := make(chan struct{}, 1)
	h := newHarness(t, func(api *fakeAPI, _ *Config) {
		api.submitGate = gate
		api.submitSeen = seen
	})
	h.load(t)

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Submit(context.Background()) }()
	<-seen

	h.clock.Advance(time.Hour + time.Second)
	waitFor(t, "time-up notice", func() bool {
		return h.rec.has(LevelWarn, "Time is up. Your answers are being submitted.")
	})
	if h.ctrl.State() != StateSubmitting {
		t.Fatalf("expected SUBMITTING, got %s", h.ctrl.State())
	}

	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.ctrl.Close()

	if h.api.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", h.api.submitCount())
	}
	if h.ctrl.State() != StateSubmitted {
		t.Fatalf("expected SUBMITTED, got %s", h.ctrl.State())
	}
	if h.rec.finished.Load() != 1 {
		t.Fatalf("expected one post-submit navigation, got %d", h.rec.finished.Load())
	}
}

func TestUnparseableStartTimeExpiresImmediately(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.session.StartTime = "not a time" })
	h.load(t)

	waitFor(t, "auto-submit", func() bool { return h.api.submitCount() == 1 })
	if h.ctrl.Remaining() != 0 {
		t.Fatalf("expected 0 remaining")
	}
}

func TestOnTickReceivesCountdown(t *testing.T) {
	var last atomic.Int64
	last.Store(-1)
	h := newHarness(t, func(_ *fakeAPI, cfg *Config) {
		cfg.OnTick = func(rem int64) { last.Store(rem) }
	})
	h.load(t)

	waitFor(t, "first tick", func() bool { return last.Load() == 3600 })
	h.clock.Advance(30 * time.Minute)
	waitFor(t, "later tick", func() bool { return last.Load() == 1800 })
}

func TestRescheduleReplacesClock(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	info := h.ctrl.Session()
	info.TimeLimit = "PT2H"
	if err := h.ctrl.Reschedule(info); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got := h.ctrl.Remaining(); got != 7200 {
		t.Fatalf("expected 7200s after extension, got %d", got)
	}
	if h.ctrl.Session().TimeLimit != "PT2H" {
		t.Fatalf("session metadata not updated")
	}

	// The old deadline passing must not submit.
	h.clock.Advance(time.Hour + time.Minute)
	time.Sleep(20 * time.Millisecond)
	if h.api.submitCount() != 0 {
		t.Fatalf("old clock fired after reschedule")
	}

	h.clock.Advance(time.Hour)
	waitFor(t, "auto-submit on new deadline", func() bool { return h.api.submitCount() == 1 })
}

func TestRescheduleSameDeadlineIsSilent(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	if err := h.ctrl.Reschedule(h.ctrl.Session()); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if h.rec.has(LevelInfo, "The session schedule has changed.") {
		t.Fatalf("unchanged schedule was announced")
	}
	if got := h.ctrl.Remaining(); got != 3600 {
		t.Fatalf("expected 3600s, got %d", got)
	}
}

// ─── Save ───────────────────────────────────────────────────────────

func TestSaveWhileInFlightIsSkipped(t *testing.T) {
	gate := make(chan struct{})
	seen := make(chan struct{}, 1)
	h := newHarness(t, func(api *fakeAPI, _ *Config) {
		api.saveGate = gate
		api.saveSeen = seen
	})
	h.load(t)

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Save(context.Background()) }()
	<-seen

	if h.ctrl.State() != StateSaving {
		t.Fatalf("expected SAVING, got %s", h.ctrl.State())
	}
	if err := h.ctrl.Save(context.Background()); !errors.Is(err, ErrSaveInFlight) {
		t.Fatalf("expected ErrSaveInFlight, got %v", err)
	}
	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if h.api.saveCount() != 1 {
		t.Fatalf("expected exactly one outbound save, got %d", h.api.saveCount())
	}
	if !h.rec.has(LevelInfo, "Progress saved.") {
		t.Fatalf("expected success notice")
	}
	if h.ctrl.State() != StateActive {
		t.Fatalf("expected ACTIVE after save, got %s", h.ctrl.State())
	}
}

func TestSaveDuringSubmitIsRejected(t *testing.T) {
	gate := make(chan struct{})
	seen := make(chan struct{}, 1)
	h := newHarness(t, func(api *fakeAPI, _ *Config) {
		api.submitGate = gate
		api.submitSeen = seen
	})
	h.load(t)

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Submit(context.Background()) }()
	<-seen

	if err := h.ctrl.Save(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h.api.saveCount() != 1 {
		t.Fatalf("expected only the pre-submit flush, got %d saves", h.api.saveCount())
	}
	events := h.api.eventLog()
	if events[len(events)-1] != "submit" {
		t.Fatalf("no save may follow the submit, got %v", events)
	}
	if h.rec.has(LevelInfo, "Progress saved.") {
		t.Fatalf("rejected save should not announce success")
	}
}

func TestSaveFailureKeepsState(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.saveErr = errors.New("Session closed") })
	h.load(t)
	_ = h.ctrl.Navigator().SelectSingle(13, 301)

	if err := h.ctrl.Save(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if !h.rec.has(LevelError, "Could not save your progress: Session closed") {
		t.Fatalf("expected error notice")
	}
	if enc, _ := h.ctrl.Navigator().Encoded(13); enc != "301" {
		t.Fatalf("local answers lost")
	}
	if h.ctrl.State() != StateActive {
		t.Fatalf("expected ACTIVE, got %s", h.ctrl.State())
	}
}

func TestAutosaveRunsPeriodically(t *testing.T) {
	h := newHarness(t, func(_ *fakeAPI, cfg *Config) { cfg.AutosaveInterval = 5 * time.Millisecond })
	h.load(t)
	_ = h.ctrl.Navigator().SelectSingle(11, 101)

	waitFor(t, "autosave", func() bool { return h.api.saveCount() >= 2 })
	if h.rec.has(LevelInfo, "Progress saved.") {
		t.Fatalf("autosave should be silent")
	}
}

// ─── Submit ─────────────────────────────────────────────────────────

func TestSubmitFlushFailureDoesNotBlock(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.saveErr = errors.New("flaky") })
	h.load(t)

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h.api.submitCount() != 1 || h.rec.finished.Load() != 1 {
		t.Fatalf("expected submission to proceed")
	}
	if h.ctrl.State() != StateSubmitted {
		t.Fatalf("expected SUBMITTED, got %s", h.ctrl.State())
	}
}

func TestSubmitFailureReturnsToActive(t *testing.T) {
	h := newHarness(t, func(api *fakeAPI, _ *Config) { api.submitErr = errors.New("server down") })
	h.load(t)
	_ = h.ctrl.Navigator().SelectSingle(11, 103)

	if err := h.ctrl.Submit(context.Background()); err == nil {
		t.Fatalf("expected submit error")
	}
	if h.ctrl.State() != StateActive {
		t.Fatalf("expected ACTIVE after failed submit, got %s", h.ctrl.State())
	}
	if !h.rec.has(LevelError, "Submission failed: server down Please try again.") {
		t.Fatalf("expected failure notice")
	}
	if enc, _ := h.ctrl.Navigator().Encoded(11); enc != "103" {
		t.Fatalf("answers lost after failed submit")
	}

	h.api.mu.Lock()
	h.api.submitErr = nil
	h.api.mu.Unlock()
	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if h.api.submitCount() != 2 {
		t.Fatalf("expected a retry to reach the API")
	}
}

func TestSubmitAfterSubmittedIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)

	if err := h.ctrl.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	if err := h.ctrl.Reschedule(h.ctrl.Session()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive on reschedule, got %v", err)
	}
	if h.api.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", h.api.submitCount())
	}
}

func TestConcurrentSubmitOnlyOneWins(t *testing.T) {
	gate := make(chan struct{})
	seen := make(chan struct{}, 1)
	h := newHarness(t, func(api *fakeAPI, _ *Config) {
		api.saveGate = gate
		api.saveSeen = seen
	})
	h.load(t)

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Submit(context.Background()) }()
	<-seen

	if h.ctrl.State() != StateSubmitting {
		t.Fatalf("expected SUBMITTING, got %s", h.ctrl.State())
	}
	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("expected ErrSubmitInFlight, got %v", err)
	}
	close(gate)
	if err := <-errc; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h.api.submitCount() != 1 {
		t.Fatalf("expected one submit, got %d", h.api.submitCount())
	}
}

// ─── Teardown ───────────────────────────────────────────────────────

func TestCloseRejectsFurtherCalls(t *testing.T) {
	h := newHarness(t, nil)
	h.load(t)
	h.ctrl.Close()

	if h.ctrl.State() != StateClosed {
		t.Fatalf("expected CLOSED, got %s", h.ctrl.State())
	}
	if err := h.ctrl.Save(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive from save, got %v", err)
	}
	if err := h.ctrl.Submit(context.Background()); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive from submit, got %v", err)
	}
	info := h.ctrl.Session()
	info.TimeLimit = "PT2H00M"
	if err := h.ctrl.Reschedule(info); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive from reschedule, got %v", err)
	}
	if h.api.saveCount() != 0 || h.api.submitCount() != 0 {
		t.Fatalf("closed attempt reached the API: %v", h.api.eventLog())
	}
	select {
	case <-h.ctrl.Done():
	default:
		t.Fatalf("expected Done to be closed")
	}
}

func TestCloseWaitsForAutoSubmit(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	seen := make(chan struct{}, 1)
	h := newHarness(t, func(api *fakeAPI, _ *Config) {
		api.submitGate = gate
		api.submitSeen = seen
	})
	h.load(t)

	h.clock.Advance(time.Hour + time.Second)
	<-seen

	h.ctrl.Close()
	if h.api.abortedCount() != 1 {
		t.Fatalf("expected the auto-submit to have returned before Close, got %d", h.api.abortedCount())
	}
	if n := h.rec.count(LevelError); n != 0 {
		t.Fatalf("expected no error notice after close, got %d", n)
	}
	if h.rec.finished.Load() != 0 {
		t.Fatalf("expected no post-submit navigation")
	}
	if h.ctrl.State() != StateClosed {
		t.Fatalf("expected CLOSED, got %s", h.ctrl.State())
	}
}
