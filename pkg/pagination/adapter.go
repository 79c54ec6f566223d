package pagination

import (
	"context"
	"time"

	"xscraper/pkg/extract"
)

// PageAdapter is the capability set the engine needs from a rendered page.
type PageAdapter interface {
	Navigate(ctx context.Context, url string) error
	// WaitForSelector blocks up to timeout for at least one match and
	// reports whether one appeared.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	FindAll(ctx context.Context, selector string) ([]extract.Item, error)
	ScrollToBottom(ctx context.Context) error
	// ScrollHeight is the page signature compared between passes.
	ScrollHeight(ctx context.Context) (int, error)
	ExecuteScript(ctx context.Context, script string) (interface{}, error)
}
