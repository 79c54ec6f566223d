//go:build !unittest

package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"xscraper/pkg/extract"
	"xscraper/pkg/logger"
)

// Launch starts a browser and opens one page.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{
		opts: opts,
		log:  logger.GetLogger().WithField("component", "browser"),
	}

	l := launcher.New().Context(ctx).Headless(opts.Headless)
	if opts.BinPath != "" {
		l = l.Bin(opts.BinPath)
	}
	if opts.Language != "" {
		l = l.Set(flags.Flag("lang"), opts.Language)
	}
	if opts.Proxy != "" {
		l = l.Proxy(opts.Proxy)
	}
	s.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	s.browser = browser

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.Language,
		}); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	if opts.BlockMedia {
		s.setupResourceBlocking()
	}

	s.log.InfoWithFields("Browser launched", logger.Fields{
		"headless": opts.Headless,
		"proxy":    opts.Proxy != "",
		"stealth":  opts.Stealth,
	})
	return s, nil
}

// setupResourceBlocking fails image, media and font requests. Layout
// depends on stylesheets so those still load.
func (s *Session) setupResourceBlocking() {
	router := s.browser.HijackRequests()
	router.MustAdd("*", func(ctx *rod.Hijack) {
		switch ctx.Request.Type() {
		case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia, proto.NetworkResourceTypeFont:
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	go router.Run()
	s.router = router
}

func (s *Session) pageCtx(ctx context.Context) (*rod.Page, error) {
	if s.page == nil {
		return nil, ErrBrowserNotReady
	}
	return s.page.Context(ctx), nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return err
	}
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := p.Timeout(s.actionTimeout()).WaitLoad(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return false, err
	}
	if _, err := p.Timeout(timeout).Element(selector); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]extract.Item, error) {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return nil, err
	}
	els, err := p.Timeout(s.actionTimeout()).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", selector, err)
	}

	items := make([]extract.Item, 0, len(els))
	for _, el := range els {
		html, err := el.HTML()
		if err != nil {
			// detached between lookup and read
			continue
		}
		item, err := extract.NewHTMLItem(html)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	_, err := s.ExecuteScript(ctx, scrollScript)
	return err
}

func (s *Session) ScrollHeight(ctx context.Context) (int, error) {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return 0, err
	}
	res, err := p.Timeout(s.actionTimeout()).Eval(heightScript)
	if err != nil {
		return 0, fmt.Errorf("read scroll height: %w", err)
	}
	return res.Value.Int(), nil
}

func (s *Session) ExecuteScript(ctx context.Context, script string) (interface{}, error) {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return nil, err
	}
	res, err := p.Timeout(s.actionTimeout()).Eval(script)
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}
	return res.Value.Val(), nil
}

// Fill types text into the first element matching selector.
func (s *Session) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return err
	}
	el, err := p.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	if err := el.Context(ctx).Input(text); err != nil {
		return fmt.Errorf("type into %s: %w", selector, err)
	}
	return nil
}

// ClickButton clicks the first button whose text matches label exactly.
func (s *Session) ClickButton(ctx context.Context, label string, timeout time.Duration) error {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return err
	}
	el, err := p.Timeout(timeout).ElementR("button", "^"+label+"$")
	if err != nil {
		return fmt.Errorf("%w: button %q", ErrElementNotFound, label)
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %q: %w", label, err)
	}
	return nil
}

// Visible reports whether selector matches within timeout.
func (s *Session) Visible(ctx context.Context, selector string, timeout time.Duration) bool {
	found, err := s.WaitForSelector(ctx, selector, timeout)
	return err == nil && found
}

// TextOf returns the text of the first element matching selector, if any.
func (s *Session) TextOf(ctx context.Context, selector string) (string, bool) {
	p, err := s.pageCtx(ctx)
	if err != nil {
		return "", false
	}
	has, el, err := p.Has(selector)
	if err != nil || !has {
		return "", false
	}
	text, err := el.Text()
	if err != nil {
		return "", false
	}
	return text, true
}

// Close releases the page, then the browser, then the process.
func (s *Session) Close() error {
	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop router: %w", err))
		}
		s.router = nil
	}
	if s.page != nil {
		if err := s.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
		s.page = nil
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return errors.Join(errs...)
}
