package takingtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
)

// Controller errors.
var (
	ErrMissingToken   = errors.New("missing authentication token")
	ErrAlreadyLoaded  = errors.New("attempt already loaded")
	ErrNotActive      = errors.New("attempt is not active")
	ErrSaveInFlight   = errors.New("save already in flight")
	ErrSubmitInFlight = errors.New("submit already in flight")
)

// State is the lifecycle state of one attempt.
type State string

const (
	StateLoading    State = "LOADING"
	StateLoadFailed State = "LOAD_FAILED"
	StateActive     State = "ACTIVE"
	StateSaving     State = "SAVING"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateClosed     State = "CLOSED"
)

// Config carries everything an attempt needs besides its collaborators.
type Config struct {
	Token     string
	SessionID int
	// Location interprets session start times. Defaults to time.Local.
	Location *time.Location
	// AutosaveInterval enables periodic saves when positive.
	AutosaveInterval time.Duration
	// TickInterval overrides the clock period (tests).
	TickInterval time.Duration
	// Now overrides the wall clock (tests).
	Now func() time.Time
	// OnTick receives the remaining seconds on every clock tick. It runs on the
	// clock goroutine and must not call Close.
	OnTick func(remaining int64)
}

// Controller orchestrates a single test attempt: load, autosave, manual save,
// submit and auto-submit on expiry.
type Controller struct {
	api    API
	notify Notifier
	nav    Navigation
	cfg    Config
	log    zerolog.Logger

	runCtx    context.Context
	runCancel context.CancelFunc

	mu        sync.RWMutex
	phase     State
	session   model.SessionInfo
	test      model.TestInfo
	navigator *Navigator
	clock     *Clock

	// clockMu serialises clock replacement.
	clockMu sync.Mutex
	// saveMu is the single guard shared by manual saves, autosaves and the
	// pre-submit flush.
	saveMu     sync.Mutex
	saving     atomic.Bool
	submitting atomic.Bool
	expired    atomic.Bool

	loadStarted atomic.Bool

	autosaveCancel context.CancelFunc
	autosaveDone   chan struct{}
	// bg tracks auto-submit goroutines. Add only under mu while not closed.
	bg sync.WaitGroup

	doneOnce sync.Once
	done     chan struct{}
}

// NewController prepares an attempt. Nothing happens until Load.
func NewController(api API, notify Notifier, nav Navigation, cfg Config, log zerolog.Logger) *Controller {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:       api,
		notify:    notify,
		nav:       nav,
		cfg:       cfg,
		log:       log.With().Str("component", "test_session").Int("session_id", cfg.SessionID).Logger(),
		runCtx:    ctx,
		runCancel: cancel,
		phase:     StateLoading,
		done:      make(chan struct{}),
	}
}

// ─── Accessors ──────────────────────────────────────────────────────

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	phase := c.phase
	c.mu.RUnlock()

	if phase != StateActive {
		return phase
	}
	if c.submitting.Load() {
		return StateSubmitting
	}
	if c.saving.Load() {
		return StateSaving
	}
	return StateActive
}

// Navigator returns the answer state, or nil before a successful load.
func (c *Controller) Navigator() *Navigator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.navigator
}

// Session returns the latest session metadata.
func (c *Controller) Session() model.SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Test returns the test metadata.
func (c *Controller) Test() model.TestInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.test
}

// Remaining returns the seconds left on the clock, or 0 before load.
func (c *Controller) Remaining() int64 {
	c.mu.RLock()
	clock := c.clock
	c.mu.RUnlock()
	if clock == nil {
		return 0
	}
	return clock.Remaining()
}

// Expired reports whether the time-up signal has fired for the current deadline.
func (c *Controller) Expired() bool {
	return c.expired.Load()
}

// Done is closed once the attempt leaves the page, by submission or Close.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

func (c *Controller) setPhase(s State) {
	c.mu.Lock()
	c.phase = s
	c.mu.Unlock()
}

func (c *Controller) requireActive() error {
	return c.requirePhase(StateActive)
}

func (c *Controller) requirePhase(want State) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.phase != want {
		return fmt.Errorf("%w: %s", ErrNotActive, c.phase)
	}
	return nil
}

// ─── Load ───────────────────────────────────────────────────────────

// Load fetches session, test and questions concurrently and activates the attempt.
// Any failure is reported to the candidate, who is sent home; there is no retry.
// Load runs at most once per Controller.
func (c *Controller) Load(ctx context.Context) error {
	if !c.loadStarted.CompareAndSwap(false, true) {
		return ErrAlreadyLoaded
	}
	if err := c.requirePhase(StateLoading); err != nil {
		return err
	}
	if c.cfg.Token == "" {
		c.setPhase(StateLoadFailed)
		c.notify.Notify(LevelError, "Please sign in to take this test.")
		c.nav.ToLogin()
		return ErrMissingToken
	}

	var (
		session   model.SessionInfo
		test      model.TestInfo
		questions []model.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		session, err = c.api.Session(gctx, c.cfg.Token, c.cfg.SessionID)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		test, err = c.api.Test(gctx, c.cfg.Token, c.cfg.SessionID)
		if err != nil {
			return fmt.Errorf("get test: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		questions, err = c.api.Questions(gctx, c.cfg.Token, c.cfg.SessionID)
		if err != nil {
			return fmt.Errorf("get questions: %w", err)
		}
		return nil
	})

	err := g.Wait()
	var navigator *Navigator
	if err == nil {
		navigator, err = NewNavigator(questions)
	}
	if err != nil {
		c.log.Error().Err(err).Msg("Load failed")
		c.setPhase(StateLoadFailed)
		c.notify.Notify(LevelError, "Could not load the test: "+userMessage(err))
		c.nav.ToHome()
		return fmt.Errorf("load attempt: %w", err)
	}

	c.mu.Lock()
	if c.phase != StateLoading {
		// Closed while fetching.
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotActive, phase)
	}
	c.session = session
	c.test = test
	c.navigator = navigator
	c.phase = StateActive
	c.mu.Unlock()

	c.log.Info().
		Str("test", test.TestName).
		Int("questions", len(questions)).
		Str("start_time", session.StartTime).
		Str("time_limit", session.TimeLimit).
		Msg("Attempt loaded")

	c.replaceClock(session)
	c.startAutosave()
	return nil
}

// ─── Clock ──────────────────────────────────────────────────────────

func (c *Controller) deadlineFor(info model.SessionInfo) time.Time {
	deadline, err := Deadline(info.StartTime, info.TimeLimit, c.cfg.Location)
	if err != nil {
		// A broken countdown is treated as already over.
		c.log.Warn().Err(err).Msg("Unparseable session schedule, treating as expired")
		return time.Time{}
	}
	return deadline
}

// replaceClock stops any running clock before starting one for info. It reports
// false when the deadline is unchanged and the running clock was kept.
func (c *Controller) replaceClock(info model.SessionInfo) bool {
	c.clockMu.Lock()
	defer c.clockMu.Unlock()

	deadline := c.deadlineFor(info)

	c.mu.RLock()
	old := c.clock
	c.mu.RUnlock()
	if old != nil {
		if old.Deadline().Equal(deadline) {
			return false
		}
		old.Stop()
	}

	opts := []ClockOption{WithNow(c.cfg.Now)}
	if c.cfg.TickInterval > 0 {
		opts = append(opts, WithInterval(c.cfg.TickInterval))
	}
	clock := NewClock(deadline, c.onTimeUp, opts...)

	c.mu.Lock()
	c.clock = clock
	c.session = info
	c.mu.Unlock()
	c.expired.Store(false)

	if err := clock.Start(c.runCtx, c.cfg.OnTick); err != nil {
		c.log.Error().Err(err).Msg("Clock start failed")
	}
	c.log.Debug().Time("deadline", deadline).Msg("Clock started")
	return true
}

// Reschedule applies changed session metadata. The previous tick loop is cancelled
// before the new one starts. Metadata with the current deadline is a silent no-op.
func (c *Controller) Reschedule(info model.SessionInfo) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if c.submitting.Load() {
		return ErrSubmitInFlight
	}
	if !c.replaceClock(info) {
		return nil
	}
	c.log.Info().Str("start_time", info.StartTime).Str("time_limit", info.TimeLimit).Msg("Session rescheduled")
	c.notify.Notify(LevelInfo, "The session schedule has changed.")
	return nil
}

// onTimeUp runs on the clock goroutine, so the submission is handed off.
func (c *Controller) onTimeUp() {
	if !c.expired.CompareAndSwap(false, true) {
		return
	}
	c.mu.Lock()
	if c.phase == StateClosed {
		c.mu.Unlock()
		return
	}
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		c.autoSubmit()
	}()
}

func (c *Controller) autoSubmit() {
	if c.requireActive() != nil {
		return
	}
	c.log.Info().Msg("Time is up, submitting")
	c.notify.Notify(LevelWarn, "Time is up. Your answers are being submitted.")
	if err := c.submit(c.runCtx); err != nil && !errors.Is(err, ErrSubmitInFlight) {
		c.log.Error().Err(err).Msg("Auto-submit failed")
	}
}

// ─── Save ───────────────────────────────────────────────────────────

// Save sends the current answers. A save requested while another is in flight is
// skipped with ErrSaveInFlight rather than queued, and one requested during a
// submission is rejected with ErrSubmitInFlight.
func (c *Controller) Save(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if c.submitting.Load() {
		return ErrSubmitInFlight
	}
	if !c.saveMu.TryLock() {
		c.log.Debug().Msg("Save skipped, already in flight")
		return ErrSaveInFlight
	}
	defer c.saveMu.Unlock()
	// A submit may have started between the check and the lock.
	if c.submitting.Load() {
		return ErrSubmitInFlight
	}
	return c.saveLocked(ctx, true)
}

// saveLocked must be called with saveMu held.
func (c *Controller) saveLocked(ctx context.Context, announce bool) error {
	c.saving.Store(true)
	defer c.saving.Store(false)

	entries := c.Navigator().Snapshot()
	if err := c.api.SaveProgress(ctx, c.cfg.Token, c.cfg.SessionID, entries); err != nil {
		c.log.Error().Err(err).Int("answers", len(entries)).Msg("Save progress failed")
		c.notify.Notify(LevelError, "Could not save your progress: "+userMessage(err))
		return fmt.Errorf("save progress: %w", err)
	}

	c.log.Debug().Int("answers", len(entries)).Msg("Progress saved")
	if announce {
		c.notify.Notify(LevelInfo, "Progress saved.")
	}
	return nil
}

func (c *Controller) startAutosave() {
	if c.cfg.AutosaveInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(c.runCtx)
	done := make(chan struct{})

	c.mu.Lock()
	c.autosaveCancel = cancel
	c.autosaveDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.cfg.AutosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.autosave(ctx)
			}
		}
	}()
}

func (c *Controller) autosave(ctx context.Context) {
	if c.requireActive() != nil || c.submitting.Load() {
		return
	}
	if !c.saveMu.TryLock() {
		return
	}
	defer c.saveMu.Unlock()
	_ = c.saveLocked(ctx, false)
}

// ─── Submit ─────────────────────────────────────────────────────────

// Submit flushes the answers and finishes the attempt. A second call while one is
// in flight returns ErrSubmitInFlight.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx)
}

func (c *Controller) submit(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if !c.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer c.submitting.Store(false)

	// Flush waits for an in-flight save instead of skipping it; its failure does
	// not block the submission.
	c.saveMu.Lock()
	flushErr := c.saveLocked(ctx, false)
	c.saveMu.Unlock()
	if flushErr != nil {
		c.log.Warn().Err(flushErr).Msg("Flush before submit failed, submitting anyway")
	}

	if err := c.api.Submit(ctx, c.cfg.Token, c.cfg.SessionID); err != nil {
		c.log.Error().Err(err).Msg("Submit failed")
		if c.requireActive() == nil {
			c.notify.Notify(LevelError, "Submission failed: "+userMessage(err)+" Please try again.")
		}
		return fmt.Errorf("submit: %w", err)
	}

	c.setPhase(StateSubmitted)
	c.log.Info().Int("answered", c.Navigator().AnsweredCount()).Msg("Attempt submitted")
	c.notify.Notify(LevelInfo, "Your test has been submitted.")
	c.release()
	c.nav.ToFinished()
	return nil
}

// ─── Teardown ───────────────────────────────────────────────────────

// release stops the clock and the autosave loop and closes Done.
func (c *Controller) release() {
	c.mu.Lock()
	cancel, done := c.autosaveCancel, c.autosaveDone
	c.autosaveCancel, c.autosaveDone = nil, nil
	clock := c.clock
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if clock != nil {
		clock.Stop()
	}
	c.doneOnce.Do(func() { close(c.done) })
}

// Close tears the attempt down and waits for a pending auto-submit to return.
// An attempt closed before submission moves to CLOSED and rejects further calls.
// It is safe to call more than once and after Submit.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.phase == StateLoading || c.phase == StateActive {
		c.phase = StateClosed
	}
	c.mu.Unlock()

	c.release()
	c.runCancel()
	c.bg.Wait()
}
