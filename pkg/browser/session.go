// Package browser drives a real Chromium instance through go-rod.
//
// Session implements the page capabilities the pagination engine needs and
// the primitive steps the login flow is built from. Building with the
// unittest tag replaces the rod calls with stubs so dependent packages can
// be tested without a browser.
package browser

import (
	"errors"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"xscraper/pkg/config"
	"xscraper/pkg/logger"
	"xscraper/pkg/pagination"
)

var (
	ErrBrowserNotReady = errors.New("browser: session not initialized")
	ErrElementNotFound = errors.New("browser: element not found")
)

const (
	scrollScript = `() => window.scrollTo(0, document.body.scrollHeight)`
	heightScript = `() => document.body.scrollHeight`
)

// Options configures a browser launch.
type Options struct {
	Headless      bool
	BinPath       string
	UserAgent     string
	Language      string
	Stealth       bool
	BlockMedia    bool
	ActionTimeout time.Duration
	// Proxy is passed to --proxy-server; empty means direct.
	Proxy string
}

// OptionsFromConfig maps the browser config section plus a chosen proxy.
func OptionsFromConfig(cfg config.BrowserConfig, proxy string) Options {
	return Options{
		Headless:      cfg.Headless,
		BinPath:       cfg.BinPath,
		UserAgent:     cfg.UserAgent,
		Language:      cfg.Language,
		Stealth:       cfg.Stealth,
		BlockMedia:    cfg.BlockMedia,
		ActionTimeout: cfg.ActionTimeout,
		Proxy:         proxy,
	}
}

// Session owns one browser process and its single page.
type Session struct {
	opts     Options
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	log      logger.Logger
}

var _ pagination.PageAdapter = (*Session)(nil)

func (s *Session) actionTimeout() time.Duration {
	if s.opts.ActionTimeout <= 0 {
		return 30 * time.Second
	}
	return s.opts.ActionTimeout
}
