package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"xscraper/pkg/auth"
	"xscraper/pkg/browser"
	"xscraper/pkg/checkpoint"
	"xscraper/pkg/collector"
	"xscraper/pkg/config"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/filter"
	"xscraper/pkg/logger"
	"xscraper/pkg/metadata"
	"xscraper/pkg/models"
	"xscraper/pkg/pagination"
	"xscraper/pkg/ratelimit"
	"xscraper/pkg/report"
	"xscraper/pkg/retry"
	"xscraper/pkg/search"
	"xscraper/pkg/storage"
	"xscraper/pkg/ui"
)

// ErrCheckpointExists is returned when a previous run left a checkpoint and
// the request neither resumes nor restarts.
var ErrCheckpointExists = errors.New("checkpoint exists - use --resume to continue or --force-restart to start fresh")

// Request describes one run.
type Request struct {
	Search models.SearchSpec
	Target int
	// Proxy is passed to the session factory. Empty means direct.
	Proxy        string
	Resume       bool
	ForceRestart bool
}

// Result is what a run produced. It is returned even when Run fails.
type Result struct {
	Outcome Outcome
	// Records are the rows written, after date filtering.
	Records    []models.Record
	Collected  int
	Dropped    []filter.Drop
	OutOfRange int
	OutputFile string
	ReportFile string
	Account    string
	Engine     pagination.Result
	Metadata   *metadata.RunMetadata
}

// Scraper orchestrates login, collection and output for one search at a time.
type Scraper struct {
	config         *config.Config
	accounts       []*auth.Account
	sessions       SessionFactory
	newAuth        AuthenticatorFactory
	storageManager *storage.Manager
	limiter        ratelimit.Limiter
	sleeper        retry.Sleeper
	rng            *rand.Rand
	logger         logger.Logger
	observers      []pagination.Observer
	notifier       *ui.Notifier
	progressOut    io.Writer
	tui            ui.TUI
	checkpointDir  string
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithSessionFactory replaces the go-rod browser launcher.
func WithSessionFactory(f SessionFactory) Option {
	return func(s *Scraper) { s.sessions = f }
}

// WithAuthenticatorFactory replaces the browser login flow.
func WithAuthenticatorFactory(f AuthenticatorFactory) Option {
	return func(s *Scraper) { s.newAuth = f }
}

// WithSleeper replaces the wall-clock sleeper used for login pacing.
func WithSleeper(sl retry.Sleeper) Option {
	return func(s *Scraper) { s.sleeper = sl }
}

func WithRand(r *rand.Rand) Option {
	return func(s *Scraper) { s.rng = r }
}

func WithLogger(l logger.Logger) Option {
	return func(s *Scraper) { s.logger = l }
}

// WithLimiter paces login attempts across accounts.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(s *Scraper) { s.limiter = l }
}

// WithObserver registers extra engine observers.
func WithObserver(obs ...pagination.Observer) Option {
	return func(s *Scraper) { s.observers = append(s.observers, obs...) }
}

// WithNotifier replaces the notifier built from the notification config.
func WithNotifier(n *ui.Notifier) Option {
	return func(s *Scraper) { s.notifier = n }
}

// WithProgressOutput sets where the progress line is printed. Nil disables it.
func WithProgressOutput(w io.Writer) Option {
	return func(s *Scraper) { s.progressOut = w }
}

// WithTUI routes progress to a full-screen interface instead of the
// progress line.
func WithTUI(t ui.TUI) Option {
	return func(s *Scraper) { s.tui = t }
}

// WithCheckpointDir stores checkpoints in dir instead of the user data directory.
func WithCheckpointDir(dir string) Option {
	return func(s *Scraper) { s.checkpointDir = dir }
}

// New creates a Scraper that logs in with accounts, in order.
func New(cfg *config.Config, accounts []*auth.Account, opts ...Option) (*Scraper, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if len(accounts) == 0 {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNoAccounts,
			Op:      "scraper.New",
			Message: "no accounts available",
		}
	}

	storageManager, err := storage.NewManager(cfg.Output.Directory, storage.Options{
		Prefix:    cfg.Output.FilePrefix,
		WriteBOM:  cfg.Output.WriteBOM,
		Overwrite: cfg.Output.OverwriteExisting,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	s := &Scraper{
		config:         cfg,
		accounts:       accounts,
		sessions:       BrowserSessions(cfg),
		newAuth:        BrowserLogin(cfg),
		storageManager: storageManager,
		limiter:        ratelimit.PerMinute(cfg.Accounts.LoginsPerMinute),
		sleeper:        retry.ContextSleeper{},
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:         logger.GetLogger().WithField("component", "scraper"),
		notifier:       ui.NewNotifierFromConfig(cfg.Notifications),
		progressOut:    os.Stdout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BrowserSessions launches go-rod sessions, retrying launch failures per
// the retry config.
func BrowserSessions(cfg *config.Config) SessionFactory {
	return SessionFactoryFunc(func(ctx context.Context, proxy string) (Session, error) {
		opts := browser.OptionsFromConfig(cfg.Browser, proxy)
		rc := retry.FromConfig(cfg.Retry, logger.GetLogger().WithField("component", "browser"))
		return retry.DoWithResult(ctx, func(ctx context.Context) (Session, error) {
			session, err := browser.Launch(ctx, opts)
			if err != nil {
				return nil, err
			}
			return session, nil
		}, rc)
	})
}

// BrowserLogin builds the multi-step browser login, with a terminal
// checkpoint when manual intervention is enabled.
func BrowserLogin(cfg *config.Config) AuthenticatorFactory {
	var cp auth.Checkpoint = auth.NoCheckpoint{}
	if cfg.Accounts.ManualCheckpoint {
		cp = auth.NewTerminalCheckpoint()
	}
	return func(page browser.LoginPage) auth.Authenticator {
		return browser.NewAuthenticator(page, cfg.Search.LoginURL, cp)
	}
}

// StorageManager exposes the output writer, e.g. for reports.
func (s *Scraper) StorageManager() *storage.Manager {
	return s.storageManager
}

// attempt is the result of trying one account.
type attempt struct {
	loggedIn bool
	engine   pagination.Result
	err      error
}

// Run executes req. The returned Result is non-nil whenever the request
// itself was valid, including on failure.
func (s *Scraper) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Search.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeConfig, "scraper.Run", err)
	}
	if req.Target <= 0 {
		return nil, errs.New(errs.ErrorTypeConfig, "scraper.Run", "target count must be positive")
	}

	log := s.logger.WithFields(logger.Fields{
		"query": req.Search.Query,
		"mode":  string(req.Search.Mode),
	})

	col, cpMgr, recorder, err := s.prepareCheckpoint(req, log)
	if err != nil {
		return nil, err
	}

	meta := metadata.NewRun(req.Search, req.Target)
	meta.URL = search.BuildURL(s.config.Search.BaseURL, req.Search)
	meta.Proxy = req.Proxy
	meta.Resumed = col.Len() > 0
	res := &Result{Metadata: meta}

	observers := s.buildObservers(recorder)
	notify := ui.NewScrapeNotifications(s.notifier, s.config.Notifications)
	observers = append(observers, notify)
	var progress *ui.ProgressDisplay
	if s.tui == nil && s.progressOut != nil {
		debug := strings.EqualFold(s.config.Logging.Level, "debug")
		progress = ui.NewProgressDisplayTo(s.progressOut, req.Search.Query, req.Target, debug)
		progress.SetCollectedCount(col.Len())
		observers = append(observers, progress)
	}

	logger.LogComponentStart("scraper", logger.Fields{
		"query":    req.Search.Query,
		"mode":     string(req.Search.Mode),
		"recency":  string(req.Search.Recency),
		"target":   req.Target,
		"accounts": len(s.accounts),
		"resumed":  meta.Resumed,
	})
	if s.tui != nil {
		s.tui.SetSearch(req.Search.Query, string(req.Search.Mode), req.Target)
	}

	var (
		chosen  attempt
		lastErr error
	)
	for i, acct := range s.accounts {
		if ctx.Err() != nil {
			break
		}
		a := s.tryAccount(ctx, i, acct, req.Proxy, meta.URL, col, pagination.Observers(observers), log)
		if !a.loggedIn {
			if a.err != nil {
				lastErr = a.err
			}
			continue
		}
		chosen = a
		res.Account = auth.MaskEmail(acct.Email)
		meta.Account = res.Account
		break
	}

	if !chosen.loggedIn {
		if ctx.Err() != nil {
			res.Outcome = OutcomeCancelled
			meta.Finish(res.Outcome.String(), nil)
			s.finish(res, progress, notify, nil, log)
			return res, nil
		}
		res.Outcome = OutcomeLoginFailed
		err := &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Op:      "scraper.Run",
			Message: fmt.Sprintf("all %d accounts failed to log in", len(s.accounts)),
			Err:     lastErr,
		}
		meta.Finish(res.Outcome.String(), err)
		s.finish(res, progress, notify, err, log)
		return res, err
	}

	res.Engine = chosen.engine
	runErr := chosen.err
	res.Outcome = classify(chosen.engine.State, runErr)
	res.Collected = len(chosen.engine.Records)

	filtered := filter.ByDate(chosen.engine.Records, req.Search.StartDate, req.Search.EndDate)
	for _, d := range filtered.Dropped {
		logger.LogDroppedRecord(log, d.Record.Author, d.Record.Timestamp, d.Reason)
	}
	if filtered.OutOfRange > 0 {
		log.InfoWithFields("Records outside the date range removed", logger.Fields{
			"out_of_range": filtered.OutOfRange,
		})
	}
	res.Records = filtered.Kept
	res.Dropped = filtered.Dropped
	res.OutOfRange = filtered.OutOfRange

	meta.Collected = res.Collected
	meta.Written = len(res.Records)
	meta.Dropped = len(res.Dropped)
	meta.OutOfRange = res.OutOfRange
	meta.Passes = res.Engine.Passes
	meta.Stalls = res.Engine.Stalls
	meta.LongPauses = res.Engine.LongPauses
	meta.EngineState = res.Engine.State.String()

	if len(res.Records) == 0 {
		if res.Outcome == OutcomeCompleted {
			res.Outcome = OutcomeNoResults
		}
		log.Warn("No records to write")
	} else if err := s.write(req, res, log); err != nil {
		runErr = errors.Join(runErr, err)
	}

	if recorder != nil {
		s.settleCheckpoint(res.Outcome, cpMgr, recorder, log)
	}

	meta.Finish(res.Outcome.String(), runErr)
	if s.config.Output.WriteMetadata && res.OutputFile != "" {
		if err := meta.Save(res.OutputFile); err != nil {
			log.WithError(err).Warn("Failed to save run metadata")
		}
	}

	s.finish(res, progress, notify, runErr, log)
	return res, runErr
}

// tryAccount opens a session, logs in with acct and, on success, runs the
// engine. The session is closed before it returns.
func (s *Scraper) tryAccount(ctx context.Context, idx int, acct *auth.Account, proxy, url string,
	col *collector.Collector, obs pagination.Observer, log logger.Logger) attempt {

	alog := log.WithFields(logger.Fields{
		"account": auth.MaskEmail(acct.Email),
		"attempt": idx + 1,
	})

	if err := s.limiter.Wait(ctx); err != nil {
		return attempt{}
	}

	s.phase(fmt.Sprintf("Opening browser (account %d/%d)", idx+1, len(s.accounts)))
	session, err := s.sessions.Open(ctx, proxy)
	if err != nil {
		alog.WithError(err).Error("Failed to open browser session")
		s.tuiLog("WARN", "Browser failed to start for account %d: %v", idx+1, err)
		return attempt{err: errs.Wrap(errs.ErrorTypeAdapter, "open_session", err)}
	}
	defer s.release(session, alog)

	delay := s.uniform(s.config.Accounts.InitialDelayMin, s.config.Accounts.InitialDelayMax)
	alog.DebugWithFields("Waiting before login", logger.Fields{"delay": delay.String()})
	if err := s.sleeper.Sleep(ctx, delay); err != nil {
		return attempt{}
	}

	s.phase("Logging in")
	if err := s.newAuth(session).Login(ctx, acct); err != nil {
		if ctx.Err() != nil {
			return attempt{}
		}
		alog.WithError(err).Warn("Login failed, trying next account")
		s.tuiLog("WARN", "Login failed for %s", auth.MaskEmail(acct.Email))
		if s.config.Accounts.FailureGrace > 0 {
			_ = s.sleeper.Sleep(ctx, s.config.Accounts.FailureGrace)
		}
		return attempt{err: err}
	}
	alog.Info("Login successful")
	s.tuiLog("SUCCESS", "Logged in as %s", auth.MaskEmail(acct.Email))

	s.phase("Scraping")
	engine, err := pagination.New(session,
		pagination.FromConfig(s.config.Pagination, col.Target()),
		pagination.WithCollector(col),
		pagination.WithSleeper(s.sleeper),
		pagination.WithRand(s.rng),
		pagination.WithLogger(log.WithField("component", "pagination")),
		pagination.WithObserver(obs),
	)
	if err != nil {
		return attempt{loggedIn: true, err: err}
	}
	result, err := engine.Run(ctx, url)
	return attempt{loggedIn: true, engine: result, err: err}
}

// release closes a session. Failures are logged only.
func (s *Scraper) release(session Session, log logger.Logger) {
	if err := session.Close(); err != nil {
		relErr := errs.Wrap(errs.ErrorTypeResourceRelease, "close_session", err)
		log.WithError(relErr).Warn("Failed to close browser session")
		return
	}
	log.Debug("Browser session closed")
}

func (s *Scraper) buildObservers(recorder *checkpoint.Recorder) []pagination.Observer {
	obs := append([]pagination.Observer{}, s.observers...)
	if recorder != nil {
		obs = append(obs, recorder)
	}
	if s.tui != nil {
		obs = append(obs, s.tui)
	}
	return obs
}

// prepareCheckpoint builds the collector, seeding it from a matching
// checkpoint when resuming.
func (s *Scraper) prepareCheckpoint(req Request, log logger.Logger) (*collector.Collector, *checkpoint.Manager, *checkpoint.Recorder, error) {
	col := collector.New(req.Target)
	if !s.config.Output.Checkpoint {
		return col, nil, nil, nil
	}

	key := s.storageManager.BaseName(req.Search.Mode, req.Search.Query)
	var (
		mgr *checkpoint.Manager
		err error
	)
	if s.checkpointDir != "" {
		mgr, err = checkpoint.NewManagerInDir(s.checkpointDir, key)
	} else {
		mgr, err = checkpoint.NewManager(key)
	}
	if err != nil {
		log.WithError(err).Warn("Checkpoints unavailable, continuing without")
		return col, nil, nil, nil
	}

	if req.ForceRestart && mgr.Exists() {
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Warn("Failed to delete existing checkpoint")
		}
		log.Info("Ignoring existing checkpoint")
	}

	var cp *checkpoint.Checkpoint
	if mgr.Exists() {
		if !req.Resume {
			return nil, nil, nil, ErrCheckpointExists
		}
		cp, err = mgr.Load()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if cp != nil && !cp.Matches(req.Search) {
			log.Warn("Checkpoint was written for a different search, starting fresh")
			cp = nil
		}
	}

	if cp == nil {
		cp, err = mgr.Create(req.Search, req.Target)
		if err != nil {
			log.WithError(err).Warn("Failed to create checkpoint")
			return col, nil, nil, nil
		}
	} else {
		seeded := col.Seed(cp.Records)
		log.InfoWithFields("Resuming from checkpoint", logger.Fields{
			"collected": seeded,
			"passes":    cp.Passes,
		})
		s.tuiLog("INFO", "Resuming with %d posts from checkpoint", seeded)
	}
	cp.Target = req.Target

	return col, mgr, checkpoint.NewRecorder(mgr, cp, col.Records), nil
}

// settleCheckpoint removes the checkpoint once the target was reached and
// saves the final state otherwise.
func (s *Scraper) settleCheckpoint(outcome Outcome, mgr *checkpoint.Manager, recorder *checkpoint.Recorder, log logger.Logger) {
	switch outcome {
	case OutcomeCompleted, OutcomeNoResults:
		if err := mgr.Delete(); err != nil {
			log.WithError(err).Warn("Failed to delete checkpoint")
			return
		}
		log.Debug("Checkpoint deleted after completion")
	default:
		if err := recorder.Flush(); err != nil {
			log.WithError(err).Warn("Failed to save checkpoint")
			return
		}
		log.InfoWithFields("Progress saved, rerun with --resume to continue", logger.Fields{
			"checkpoint": mgr.Path(),
		})
	}
}

// write persists the CSV and, if enabled, the HTML report.
func (s *Scraper) write(req Request, res *Result, log logger.Logger) error {
	path := s.storageManager.CSVPath(req.Search.Mode, req.Search.Query)
	if err := s.storageManager.SaveRecords(path, res.Records); err != nil {
		log.WithError(err).ErrorWithFields("Failed to write results", logger.Fields{"path": path})
		return err
	}
	res.OutputFile = path
	res.Metadata.OutputFile = path
	log.InfoWithFields("Results written", logger.Fields{
		"path":    path,
		"records": len(res.Records),
	})

	if s.config.Output.WriteReport {
		reportPath := strings.TrimSuffix(path, ".csv") + ".html"
		title := fmt.Sprintf("%s: %s", req.Search.Mode, req.Search.Query)
		if err := report.WriteFile(reportPath, title, res.Records); err != nil {
			log.WithError(err).Warn("Failed to write report")
		} else {
			res.ReportFile = reportPath
		}
	}
	return nil
}

func (s *Scraper) finish(res *Result, progress *ui.ProgressDisplay, notify *ui.ScrapeNotifications, err error, log logger.Logger) {
	query := res.Metadata.Search.Query
	if err != nil {
		notify.Failed(query, err)
	} else if res.Outcome == OutcomeCompleted {
		notify.Completed(query, len(res.Records))
	}

	if progress != nil && res.Outcome != OutcomeLoginFailed {
		progress.Complete(len(res.Records), len(res.Dropped)+res.OutOfRange, res.OutputFile)
	}
	if s.tui != nil {
		s.tui.Finish(res.Metadata.Summary())
	}

	logger.LogScrapeProgress(log, res.Collected, res.Metadata.Target)
	logger.LogComponentStop("scraper", res.Outcome.String())
	log.InfoWithFields("Run finished", logger.Fields{
		"outcome":   res.Outcome.String(),
		"collected": res.Collected,
		"written":   len(res.Records),
		"file":      res.OutputFile,
	})
}

// classify maps the engine's terminal state to a run outcome.
func classify(state pagination.State, err error) Outcome {
	switch {
	case errors.Is(err, errs.ErrInitialLoad):
		return OutcomeInitialLoadFailed
	case state == pagination.StateCancelled:
		return OutcomeCancelled
	case state == pagination.StateDone:
		return OutcomeCompleted
	default:
		return OutcomeFailed
	}
}

func (s *Scraper) phase(p string) {
	if s.tui != nil {
		s.tui.SetPhase(p)
	}
}

func (s *Scraper) tuiLog(level, format string, args ...interface{}) {
	if s.tui == nil {
		return
	}
	switch level {
	case "SUCCESS":
		s.tui.LogSuccess(format, args...)
	case "WARN":
		s.tui.LogWarning(format, args...)
	case "ERROR":
		s.tui.LogError(format, args...)
	default:
		s.tui.LogInfo(format, args...)
	}
}

// uniform draws a duration in [min, max].
func (s *Scraper) uniform(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)+1))
}
