package scraper

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/auth"
	"xscraper/pkg/browser"
	"xscraper/pkg/checkpoint"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/metadata"
	"xscraper/pkg/models"
	"xscraper/pkg/storage"
)

func post(t *testing.T, n int) extract.Item {
	t.Helper()
	html := fmt.Sprintf(`<article data-testid="tweet">
  <a href="/user%d/status/%d"><div dir="ltr"><span>@user%d</span></div></a>
  <time datetime="2024-03-01T10:%02d:00.000Z"></time>
  <div data-testid="tweetText">post   number %d</div>
</article>`, n, n, n, n, n)
	item, err := extract.NewHTMLItem(html)
	require.NoError(t, err)
	return item
}

func posts(t *testing.T, n int) []extract.Item {
	items := make([]extract.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, post(t, i))
	}
	return items
}

// fakeSession shows the same items on every scan with a fixed height.
type fakeSession struct {
	items     []extract.Item
	noResults bool
	closeErr  error
	closed    int
}

func (f *fakeSession) Navigate(context.Context, string) error { return nil }

func (f *fakeSession) WaitForSelector(context.Context, string, time.Duration) (bool, error) {
	return !f.noResults, nil
}

func (f *fakeSession) FindAll(context.Context, string) ([]extract.Item, error) {
	return f.items, nil
}

func (f *fakeSession) ScrollToBottom(context.Context) error      { return nil }
func (f *fakeSession) ScrollHeight(context.Context) (int, error) { return 1000, nil }

func (f *fakeSession) ExecuteScript(context.Context, string) (interface{}, error) {
	return nil, nil
}

func (f *fakeSession) Fill(context.Context, string, string, time.Duration) error { return nil }
func (f *fakeSession) ClickButton(context.Context, string, time.Duration) error  { return nil }
func (f *fakeSession) Visible(context.Context, string, time.Duration) bool       { return true }
func (f *fakeSession) TextOf(context.Context, string) (string, bool)             { return "", false }

func (f *fakeSession) Close() error {
	f.closed++
	return f.closeErr
}

// fakeAuth rejects the listed emails.
type fakeAuth struct {
	reject map[string]bool
	tried  *[]string
}

func (a fakeAuth) Login(_ context.Context, acct *auth.Account) error {
	*a.tried = append(*a.tried, acct.Email)
	if a.reject[acct.Email] {
		return errs.New(errs.ErrorTypeAuth, "login", "wrong password")
	}
	return nil
}

// recordingSleeper records every pause and can cancel after a number of calls.
type recordingSleeper struct {
	mu       sync.Mutex
	calls    []time.Duration
	cancelAt int
	cancel   context.CancelFunc
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	n := len(s.calls)
	s.mu.Unlock()
	if s.cancel != nil && n >= s.cancelAt {
		s.cancel()
	}
	return ctx.Err()
}

type harness struct {
	cfg      *config.Config
	sessions []*fakeSession
	tried    []string
	reject   map[string]bool
	sleeper  *recordingSleeper
	template fakeSession
}

func newHarness(t *testing.T) *harness {
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()
	cfg.Output.Checkpoint = false
	cfg.Output.WriteMetadata = false
	cfg.Output.WriteReport = false
	cfg.Notifications.Enabled = false
	cfg.Accounts.InitialDelayMin = 5 * time.Second
	cfg.Accounts.InitialDelayMax = 10 * time.Second
	cfg.Accounts.FailureGrace = 60 * time.Second
	cfg.Accounts.LoginsPerMinute = 0

	return &harness{
		cfg:     cfg,
		reject:  map[string]bool{},
		sleeper: &recordingSleeper{},
	}
}

func (h *harness) scraper(t *testing.T, accounts []*auth.Account, opts ...Option) *Scraper {
	t.Helper()
	base := []Option{
		WithSessionFactory(SessionFactoryFunc(func(context.Context, string) (Session, error) {
			s := h.template
			h.sessions = append(h.sessions, &s)
			return &s, nil
		})),
		WithAuthenticatorFactory(func(browser.LoginPage) auth.Authenticator {
			return fakeAuth{reject: h.reject, tried: &h.tried}
		}),
		WithSleeper(h.sleeper),
		WithRand(rand.New(rand.NewSource(1))),
		WithLogger(logger.NewTestLogger()),
		WithProgressOutput(nil),
	}
	s, err := New(h.cfg, accounts, append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func accounts(emails ...string) []*auth.Account {
	var out []*auth.Account
	for _, e := range emails {
		out = append(out, &auth.Account{Email: e, Username: "handle", Password: "secret"})
	}
	return out
}

func spec() models.SearchSpec {
	return models.SearchSpec{Query: "golang", Mode: models.ModeHashtag, Recency: models.RecencyLatest}
}

func TestRunRotatesAccountsAndWritesCSV(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 3)
	h.reject["first@example.com"] = true

	s := h.scraper(t, accounts("first@example.com", "second@example.com"))
	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 3})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, []string{"first@example.com", "second@example.com"}, h.tried)
	assert.Equal(t, "s***@example.com", res.Account)

	require.Len(t, h.sessions, 2)
	for i, sess := range h.sessions {
		assert.Equal(t, 1, sess.closed, "session %d closed once", i)
	}

	// first delay, grace after the failed login, second delay
	require.GreaterOrEqual(t, len(h.sleeper.calls), 3)
	assert.GreaterOrEqual(t, h.sleeper.calls[0], 5*time.Second)
	assert.LessOrEqual(t, h.sleeper.calls[0], 10*time.Second)
	assert.Equal(t, 60*time.Second, h.sleeper.calls[1])

	assert.Equal(t, s.StorageManager().CSVPath(models.ModeHashtag, "golang"), res.OutputFile)
	recs, err := storage.ReadRecords(res.OutputFile)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "@user3", recs[0].Author, "items are taken in reverse rendering order")
	assert.Equal(t, "post number 3", recs[0].Text)
}

func TestRunAllLoginsFail(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 3)
	h.reject["a@example.com"] = true
	h.reject["b@example.com"] = true

	s := h.scraper(t, accounts("a@example.com", "b@example.com"))
	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 3})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAuth))
	assert.Equal(t, OutcomeLoginFailed, res.Outcome)
	assert.Empty(t, res.OutputFile)
	for _, sess := range h.sessions {
		assert.Equal(t, 1, sess.closed)
	}
}

func TestRunSessionOpenFailureTriesNextAccount(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 2)
	opened := 0

	s := h.scraper(t, accounts("a@example.com", "b@example.com"),
		WithSessionFactory(SessionFactoryFunc(func(context.Context, string) (Session, error) {
			opened++
			if opened == 1 {
				return nil, errors.New("chrome not found")
			}
			sess := h.template
			h.sessions = append(h.sessions, &sess)
			return &sess, nil
		})))

	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 2})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, []string{"b@example.com"}, h.tried)
}

func TestRunInitialLoadFailed(t *testing.T) {
	h := newHarness(t)
	h.template.noResults = true

	s := h.scraper(t, accounts("a@example.com"))
	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 5})

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInitialLoad))
	assert.Equal(t, OutcomeInitialLoadFailed, res.Outcome)
	assert.Empty(t, res.OutputFile)
	require.Len(t, h.sessions, 1)
	assert.Equal(t, 1, h.sessions[0].closed)
}

func TestRunDateFilterLeavesNothing(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 3)

	sp := spec()
	sp.StartDate, _ = models.ParseDate("2024-04-01")

	s := h.scraper(t, accounts("a@example.com"))
	res, err := s.Run(context.Background(), Request{Search: sp, Target: 3})
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoResults, res.Outcome)
	assert.Equal(t, 3, res.Collected)
	assert.Equal(t, 3, res.OutOfRange)
	assert.Empty(t, res.OutputFile)

	_, statErr := os.Stat(s.StorageManager().CSVPath(sp.Mode, sp.Query))
	assert.True(t, os.IsNotExist(statErr), "no file for an empty result")
}

func TestRunDateFilterKeepsWindow(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 2)

	sp := spec()
	sp.StartDate, _ = models.ParseDate("2024-03-01")
	sp.EndDate, _ = models.ParseDate("2024-03-01")

	s := h.scraper(t, accounts("a@example.com"))
	res, err := s.Run(context.Background(), Request{Search: sp, Target: 2})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Len(t, res.Records, 2)
}

func TestRunCancelledWritesPartialResult(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// login delay, first scroll pause, then cancel during the second
	h.sleeper.cancel = cancel
	h.sleeper.cancelAt = 3

	s := h.scraper(t, accounts("a@example.com"))
	res, err := s.Run(ctx, Request{Search: spec(), Target: 10})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.Len(t, res.Records, 2)
	assert.NotEmpty(t, res.OutputFile)
	assert.Equal(t, 1, h.sessions[0].closed)
}

func TestRunReleaseErrorDoesNotMaskResult(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 1)
	h.template.closeErr = errors.New("browser already gone")

	log := logger.NewTestLogger()
	s := h.scraper(t, accounts("a@example.com"), WithLogger(log))
	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 1})

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.True(t, log.HasMessage("Failed to close browser session"))
}

func TestRunLogsFinalProgress(t *testing.T) {
	h := newHarness(t)
	h.template.items = posts(t, 2)

	log := logger.NewTestLogger()
	s := h.scraper(t, accounts("a@example.com"), WithLogger(log))
	_, err := s.Run(context.Background(), Request{Search: spec(), Target: 2})
	require.NoError(t, err)

	var progress []logger.LogMessage
	for _, m := range log.GetMessagesByLevel("INFO") {
		if m.Message == "Scraping progress" {
			progress = append(progress, m)
		}
	}
	require.Len(t, progress, 1)
	assert.Equal(t, 2, progress[0].Fields["collected"])
	assert.Equal(t, 2, progress[0].Fields["target"])
	assert.Equal(t, "golang", progress[0].Fields["query"])
}

func TestRunWritesMetadata(t *testing.T) {
	h := newHarness(t)
	h.cfg.Output.WriteMetadata = true
	h.template.items = posts(t, 2)

	s := h.scraper(t, accounts("a@example.com"))
	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 2})
	require.NoError(t, err)

	meta, err := metadata.Load(res.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "completed", meta.Outcome)
	assert.Equal(t, 2, meta.Written)
	assert.Equal(t, "DONE", meta.EngineState)
	assert.Equal(t, "a***@example.com", meta.Account)
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	h := newHarness(t)
	h.cfg.Output.Checkpoint = true
	dir := t.TempDir()
	items := posts(t, 3)
	h.template.items = items

	s := h.scraper(t, accounts("a@example.com"), WithCheckpointDir(dir))

	mgr, err := checkpoint.NewManagerInDir(dir, s.StorageManager().BaseName(models.ModeHashtag, "golang"))
	require.NoError(t, err)
	cp, err := mgr.Create(spec(), 3)
	require.NoError(t, err)
	first, _ := extract.Extract(items[0])
	cp.Records = []models.Record{first}
	require.NoError(t, mgr.Save(cp))

	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 3, Resume: true})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.Len(t, res.Records, 3)
	assert.Equal(t, first, res.Records[0], "seeded records stay first")
	assert.True(t, res.Metadata.Resumed)
	assert.False(t, mgr.Exists(), "checkpoint removed after completion")
}

func TestRunRefusesExistingCheckpoint(t *testing.T) {
	h := newHarness(t)
	h.cfg.Output.Checkpoint = true
	dir := t.TempDir()
	h.template.items = posts(t, 1)

	s := h.scraper(t, accounts("a@example.com"), WithCheckpointDir(dir))
	mgr, err := checkpoint.NewManagerInDir(dir, s.StorageManager().BaseName(models.ModeHashtag, "golang"))
	require.NoError(t, err)
	_, err = mgr.Create(spec(), 1)
	require.NoError(t, err)

	_, err = s.Run(context.Background(), Request{Search: spec(), Target: 1})
	assert.ErrorIs(t, err, ErrCheckpointExists)

	res, err := s.Run(context.Background(), Request{Search: spec(), Target: 1, ForceRestart: true})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestRunValidatesRequest(t *testing.T) {
	h := newHarness(t)
	s := h.scraper(t, accounts("a@example.com"))

	_, err := s.Run(context.Background(), Request{Search: models.SearchSpec{Mode: models.ModeUser}, Target: 1})
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))

	_, err = s.Run(context.Background(), Request{Search: spec(), Target: 0})
	assert.Equal(t, errs.ErrorTypeConfig, errs.TypeOf(err))
	assert.Empty(t, h.sessions)
}

func TestNewRequiresAccounts(t *testing.T) {
	_, err := New(config.DefaultConfig(), nil)
	assert.True(t, errors.Is(err, errs.ErrNoAccounts))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "initial_load_failed", OutcomeInitialLoadFailed.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
