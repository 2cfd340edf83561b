package router_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Hecker-Chuoi/answergate-sub000/internal/apiclient"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/config"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/handler"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/model"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/repository"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/response"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/router"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/service"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/takingtest"
	"github.com/Hecker-Chuoi/answergate-sub000/internal/validator"
)

const fixture = `
candidates:
  - { id: 1, username: an, name: An, password: pw }
  - { id: 2, username: binh, name: Binh, password: pw }
  - { id: 9, username: boss, name: Boss, admin: true, password: root }
tests:
  - id: 3
    name: Algebra
    subject: Math
    questions:
      - id: 11
        content: "2+2"
        type: SINGLE_CHOICE
        answers: [{ id: 101, content: "3" }, { id: 102, content: "4", isCorrect: true }]
      - id: 12
        content: primes
        type: MULTIPLE_CHOICES
        answers:
          - { id: 201, content: "2", isCorrect: true }
          - { id: 202, content: "4" }
          - { id: 203, content: "5", isCorrect: true }
sessions:
  - { id: 7, testId: 3, name: Mid, startTime: "01/01/2030 09:00", durationMinutes: 60, candidates: [1] }
`

// now is inside session 7, ten minutes after the start.
var now = time.Date(2030, 1, 1, 9, 10, 0, 0, time.UTC)

type stack struct {
	srv      *httptest.Server
	client   *apiclient.Client
	progress *repository.ProgressStore
}

func newStack(t *testing.T) *stack {
	t.Helper()
	validator.Setup()

	cfg := &config.Config{
		GinMode:     gin.TestMode,
		JWTSecret:   "e2e-secret",
		JWTExpiry:   time.Hour,
		BcryptCost:  bcrypt.MinCost,
		SubmitGrace: 30 * time.Second,
		Location:    time.UTC,
	}

	seed, err := repository.ParseSeed([]byte(fixture), time.UTC)
	require.NoError(t, err)
	require.NoError(t, seed.HashPasswords(func(p string) (string, error) {
		return service.HashPassword(p, cfg.BcryptCost)
	}))
	catalog := repository.NewSeedCatalog(seed)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	progress := repository.NewProgressStore(rdb)

	log := zerolog.Nop()
	auth := service.NewAuthService(cfg, catalog)
	svc := service.NewTakingTestService(catalog, progress, service.TakingTestOptions{
		Location: time.UTC,
		Grace:    cfg.SubmitGrace,
		Now:      func() time.Time { return now },
	}, log)

	r := router.SetupRouter(auth, &router.Handlers{
		Auth:         handler.NewAuthHandler(auth, log),
		TakingTest:   handler.NewTakingTestHandler(svc, log),
		WS:           handler.NewWSHandler(svc, log, nil),
		AdminSession: handler.NewAdminSessionHandler(svc, log),
	}, cfg)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &stack{
		srv:      srv,
		client:   apiclient.New(srv.URL, log),
		progress: progress,
	}
}

func (s *stack) login(t *testing.T, username, password string) string {
	t.Helper()
	res, err := s.client.Login(context.Background(), username, password)
	require.NoError(t, err)
	return res.Token
}

type recorder struct {
	mu       sync.Mutex
	notes    []string
	finished bool
}

func (r *recorder) Notify(_ takingtest.Level, msg string) {
	r.mu.Lock()
	r.notes = append(r.notes, msg)
	r.mu.Unlock()
}
func (r *recorder) ToLogin() {}
func (r *recorder) ToHome() {}
func (r *recorder) ToFinished() {
	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
}

func (s *stack) controller(t *testing.T, token string, rec *recorder) *takingtest.Controller {
	t.Helper()
	ctrl := takingtest.NewController(s.client, rec, rec, takingtest.Config{
		Token:     token,
		SessionID: 7,
		Location:  time.UTC,
		Now:       func() time.Time { return now },
	}, zerolog.Nop())
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestHealth(t *testing.T) {
	s := newStack(t)
	resp, err := http.Get(s.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(response.HeaderRequestID))
}

func TestAttemptEndToEnd(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	token := s.login(t, "an", "pw")
	rec := &recorder{}
	ctrl := s.controller(t, token, rec)

	require.NoError(t, ctrl.Load(ctx))
	require.Equal(t, takingtest.StateActive, ctrl.State())
	require.Equal(t, "Algebra", ctrl.Test().TestName)
	require.Equal(t, 2, ctrl.Test().QuestionCount)
	require.EqualValues(t, 50*60, ctrl.Remaining())

	nav := ctrl.Navigator()
	require.NoError(t, nav.SelectSingle(11, 102))
	require.NoError(t, nav.ToggleMultiple(12, 2, 3))
	require.NoError(t, ctrl.Save(ctx))

	answers, err := s.progress.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"11": "102", "12": "001"}, answers)

	require.NoError(t, nav.ToggleMultiple(12, 0, 3))
	require.NoError(t, ctrl.Submit(ctx))
	require.Equal(t, takingtest.StateSubmitted, ctrl.State())
	require.True(t, rec.finished)

	answers, err = s.progress.Answers(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, "101", answers["12"])

	submitted, err := s.progress.IsSubmitted(ctx, 7, 1)
	require.NoError(t, err)
	require.True(t, submitted)

	err = s.client.Submit(ctx, token, 7)
	require.True(t, apiclient.IsStatus(err, int(response.ErrAlreadySubmitted)), "got %v", err)

	info, err := s.client.Session(ctx, token, 7)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusSubmitted, info.Status)
}

func TestAccessRules(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	_, err := s.client.Session(ctx, "", 7)
	require.True(t, apiclient.IsStatus(err, int(response.ErrTokenRequired)), "got %v", err)

	_, err = s.client.Session(ctx, "garbage", 7)
	require.True(t, apiclient.IsStatus(err, int(response.ErrTokenInvalid)), "got %v", err)

	binh := s.login(t, "binh", "pw")
	_, err = s.client.Questions(ctx, binh, 7)
	require.True(t, apiclient.IsStatus(err, int(response.ErrNotAssigned)), "got %v", err)

	an := s.login(t, "an", "pw")
	_, err = s.client.Session(ctx, an, 99)
	require.True(t, apiclient.IsStatus(err, int(response.ErrNotFound)), "got %v", err)

	admin := s.login(t, "boss", "root")
	_, err = s.client.Session(ctx, admin, 7)
	require.True(t, apiclient.IsStatus(err, int(response.ErrCandidateAccessOnly)), "got %v", err)

	_, err = s.client.Reschedule(ctx, an, 7, model.RescheduleRequest{StartTime: "01/01/2030 09:00", DurationMinutes: 90})
	require.True(t, apiclient.IsStatus(err, int(response.ErrAdminAccessOnly)), "got %v", err)

	_, err = s.client.Login(ctx, "an", "nope")
	require.True(t, apiclient.IsStatus(err, int(response.ErrInvalidCredentials)), "got %v", err)
}

func TestSaveProgressRejectsForeignAnswers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	token := s.login(t, "an", "pw")

	err := s.client.SaveProgress(ctx, token, 7, []model.AnswerEntry{{QuestionID: 11, AnswerChosen: "999"}})
	require.True(t, apiclient.IsStatus(err, int(response.ErrInvalidAnswer)), "got %v", err)

	err = s.client.SaveProgress(ctx, token, 7, []model.AnswerEntry{{QuestionID: 0, AnswerChosen: "1"}})
	require.True(t, apiclient.IsStatus(err, int(response.ErrValidation)), "got %v", err)
}

func TestQuestionsOmitCorrectness(t *testing.T) {
	s := newStack(t)
	token := s.login(t, "an", "pw")

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/taking-test/7/questions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `"statusCode":0`)
	require.NotContains(t, string(body), "isCorrect")
}

func TestRescheduleReachesRunningAttempt(t *testing.T) {
	s := newStack(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.login(t, "an", "pw")
	rec := &recorder{}
	ctrl := s.controller(t, token, rec)
	require.NoError(t, ctrl.Load(ctx))

	connected := make(chan struct{})
	var once sync.Once
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- s.client.WatchSession(ctx, token, 7, func(info model.SessionInfo) {
			once.Do(func() { close(connected) })
			_ = ctrl.Reschedule(info)
		})
	}()

	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("session stream never connected")
	}

	admin := s.login(t, "boss", "root")
	info, err := s.client.Reschedule(ctx, admin, 7, model.RescheduleRequest{
		StartTime:       "01/01/2030 09:00",
		DurationMinutes: 120,
	})
	require.NoError(t, err)
	require.Equal(t, "PT2H00M", info.TimeLimit)

	require.Eventually(t, func() bool {
		return ctrl.Remaining() == 110*60
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, "PT2H00M", ctrl.Session().TimeLimit)

	cancel()
	select {
	case err := <-watchDone:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
