package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderedClient fetches pages through a headless browser, for sources
// that return an empty shell to a plain GET and only fill in their
// numbers after script execution.
type RenderedClient struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewRenderedClient starts a headless browser allocator.
func NewRenderedClient(userAgent string) *RenderedClient {
	if userAgent == "" {
		userAgent = UserAgent
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &RenderedClient{allocCtx: allocCtx, cancel: cancel}
}

// Close releases the browser allocator.
func (c *RenderedClient) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Fetch navigates to the request URL and returns the rendered HTML.
func (c *RenderedClient) Fetch(ctx context.Context, req Request) (*Payload, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	browserCtx, cancelBrowser := chromedp.NewContext(c.allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancelBrowser()
		case <-done:
		}
	}()
	defer close(done)

	var htmlContent string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(req.URL),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1*time.Second), // allow scripts to fill the page
		chromedp.OuterHTML(`html`, &htmlContent, chromedp.ByQuery),
	)
	if err != nil {
		return nil, NewTransport(fmt.Errorf("chromedp: %w", err))
	}
	if htmlContent == "" {
		return nil, NewTransport(fmt.Errorf("empty rendered page from %s", req.URL))
	}

	return &Payload{
		Body:        []byte(htmlContent),
		ContentType: "text/html",
		URL:         req.URL,
	}, nil
}
