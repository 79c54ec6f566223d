package scraper

import (
	"context"

	"xscraper/pkg/auth"
	"xscraper/pkg/browser"
	"xscraper/pkg/pagination"
)

// Session is one browser session: the page the engine drives plus the
// login surface. Close must be safe to call once on every path.
type Session interface {
	pagination.PageAdapter
	browser.LoginPage
	Close() error
}

// SessionFactory opens a browser session. An empty proxy means a direct
// connection.
type SessionFactory interface {
	Open(ctx context.Context, proxy string) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context, proxy string) (Session, error)

func (f SessionFactoryFunc) Open(ctx context.Context, proxy string) (Session, error) {
	return f(ctx, proxy)
}

// AuthenticatorFactory builds the login flow for a freshly opened session.
type AuthenticatorFactory func(page browser.LoginPage) auth.Authenticator
