package browser

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"xscraper/pkg/auth"
	errs "xscraper/pkg/errors"
	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
	"xscraper/pkg/retry"
)

// Login form selectors and labels.
const (
	emailInput    = `input[autocomplete="username"], input[name="text"]`
	verifyInput   = `input[data-testid="ocfEnterTextTextInput"], input[name="text"][type="text"]`
	passwordInput = `input[name="password"]`
	errorText     = `[data-testid="error-detail"], [role="alert"]`
	nextLabel     = "Next"
	loginLabel    = "Log in"
)

// LoginPage is the set of page steps the login flow uses.
type LoginPage interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error
	ClickButton(ctx context.Context, label string, timeout time.Duration) error
	Visible(ctx context.Context, selector string, timeout time.Duration) bool
	TextOf(ctx context.Context, selector string) (string, bool)
}

var _ LoginPage = (*Session)(nil)

// LoginTimings bounds each wait of the login flow.
type LoginTimings struct {
	SettleMin     time.Duration
	SettleMax     time.Duration
	Field         time.Duration
	Verify        time.Duration
	Timeline      time.Duration
	ManualSettle  time.Duration
	ManualRecheck time.Duration
}

// DefaultLoginTimings are tuned for a real site on a residential connection.
func DefaultLoginTimings() LoginTimings {
	return LoginTimings{
		SettleMin:     time.Second,
		SettleMax:     2500 * time.Millisecond,
		Field:         10 * time.Second,
		Verify:        5 * time.Second,
		Timeline:      20 * time.Second,
		ManualSettle:  3 * time.Second,
		ManualRecheck: 10 * time.Second,
	}
}

// Authenticator fills the multi-step login form on a LoginPage.
type Authenticator struct {
	Page       LoginPage
	LoginURL   string
	Checkpoint auth.Checkpoint
	Timings    LoginTimings
	Sleeper    retry.Sleeper
	Rand       *rand.Rand
	Log        logger.Logger
}

var _ auth.Authenticator = (*Authenticator)(nil)

// NewAuthenticator logs in through page. A nil checkpoint disables the
// manual fallback.
func NewAuthenticator(page LoginPage, loginURL string, checkpoint auth.Checkpoint) *Authenticator {
	if checkpoint == nil {
		checkpoint = auth.NoCheckpoint{}
	}
	return &Authenticator{
		Page:       page,
		LoginURL:   loginURL,
		Checkpoint: checkpoint,
		Timings:    DefaultLoginTimings(),
		Sleeper:    retry.ContextSleeper{},
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
		Log:        logger.GetLogger().WithField("component", "login"),
	}
}

func (a *Authenticator) settle(ctx context.Context) error {
	d := a.Timings.SettleMin
	if span := a.Timings.SettleMax - a.Timings.SettleMin; span > 0 {
		d += time.Duration(a.Rand.Int63n(int64(span)))
	}
	return a.Sleeper.Sleep(ctx, d)
}

// Login walks email, optional handle confirmation and password steps,
// then waits for the timeline. When the timeline does not appear the
// operator is asked to finish by hand.
func (a *Authenticator) Login(ctx context.Context, account *auth.Account) error {
	if err := account.Validate(); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "login", err)
	}
	log := a.Log.WithField("account", auth.MaskEmail(account.Email))
	log.Info("Logging in")

	if err := a.Page.Navigate(ctx, a.LoginURL); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "open_login", err)
	}
	if err := a.settle(ctx); err != nil {
		return err
	}

	if err := a.Page.Fill(ctx, emailInput, account.Email, a.Timings.Field); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "enter_email", err)
	}
	if err := a.Page.ClickButton(ctx, nextLabel, a.Timings.Field); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "submit_email", err)
	}
	if err := a.settle(ctx); err != nil {
		return err
	}

	// Unusual-activity check asks for the handle before the password.
	if a.Page.Visible(ctx, verifyInput, a.Timings.Verify) {
		if account.Username == "" {
			return errs.New(errs.ErrorTypeAuth, "verify_username", "site asked for the username but none is configured")
		}
		log.Info("Confirming username")
		if err := a.Page.Fill(ctx, verifyInput, account.Username, a.Timings.Field); err != nil {
			return errs.Wrap(errs.ErrorTypeAuth, "verify_username", err)
		}
		if err := a.Page.ClickButton(ctx, nextLabel, a.Timings.Field); err != nil {
			return errs.Wrap(errs.ErrorTypeAuth, "verify_username", err)
		}
		if err := a.settle(ctx); err != nil {
			return err
		}
	}

	if err := a.Page.Fill(ctx, passwordInput, account.Password, a.Timings.Field); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "enter_password", err)
	}
	if err := a.Page.ClickButton(ctx, loginLabel, a.Timings.Field); err != nil {
		return errs.Wrap(errs.ErrorTypeAuth, "submit_password", err)
	}

	if a.Page.Visible(ctx, extract.TimelineSelector, a.Timings.Timeline) {
		log.Info("Login successful")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	log.Warn("Timeline not visible after login, asking for manual verification")
	if err := a.Checkpoint.AwaitManual(ctx, "Login did not complete. Solve any CAPTCHA or verification in the browser window."); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return a.failure(ctx, err)
	}
	if err := a.Sleeper.Sleep(ctx, a.Timings.ManualSettle); err != nil {
		return err
	}
	if a.Page.Visible(ctx, extract.TimelineSelector, a.Timings.ManualRecheck) {
		log.Info("Login successful after manual verification")
		return nil
	}
	return a.failure(ctx, nil)
}

func (a *Authenticator) failure(ctx context.Context, cause error) error {
	msg := "timeline did not appear after login"
	if text, ok := a.Page.TextOf(ctx, errorText); ok && strings.TrimSpace(text) != "" {
		msg += ": " + extract.CollapseWhitespace(text)
	}
	return &errs.Error{Type: errs.ErrorTypeAuth, Op: "login", Message: msg, Err: cause}
}
