//go:build unittest

package browser

import (
	"context"
	"fmt"
	"time"

	"xscraper/pkg/extract"
)

func Launch(ctx context.Context, opts Options) (*Session, error) {
	return nil, fmt.Errorf("launch: %w (build tag: unittest)", ErrBrowserNotReady)
}

func (s *Session) setupResourceBlocking() {}

func (s *Session) Navigate(context.Context, string) error { return ErrBrowserNotReady }

func (s *Session) WaitForSelector(context.Context, string, time.Duration) (bool, error) {
	return false, ErrBrowserNotReady
}

func (s *Session) FindAll(context.Context, string) ([]extract.Item, error) {
	return nil, ErrBrowserNotReady
}

func (s *Session) ScrollToBottom(context.Context) error { return ErrBrowserNotReady }

func (s *Session) ScrollHeight(context.Context) (int, error) { return 0, ErrBrowserNotReady }

func (s *Session) ExecuteScript(context.Context, string) (interface{}, error) {
	return nil, ErrBrowserNotReady
}

func (s *Session) Fill(context.Context, string, string, time.Duration) error {
	return ErrBrowserNotReady
}

func (s *Session) ClickButton(context.Context, string, time.Duration) error {
	return ErrBrowserNotReady
}

func (s *Session) Visible(context.Context, string, time.Duration) bool { return false }

func (s *Session) TextOf(context.Context, string) (string, bool) { return "", false }

func (s *Session) Close() error {
	s.page = nil
	s.browser = nil
	return nil
}
