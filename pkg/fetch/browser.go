package fetch

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"webfetch/pkg/utils"
)

// Browser is the minimal automation surface the rendered strategy needs.
// The engine itself (a local Chrome process or a remote DevTools endpoint)
// stays behind this interface.
type Browser interface {
	// NewPage opens a fresh page/tab.
	NewPage(ctx context.Context) (Page, error)
	// Close releases the browser: the local process is terminated, or the
	// remote connection is dropped.
	Close() error
}

// Page is one open browser tab.
type Page interface {
	// Navigate loads the URL and reports whether the browser produced a
	// response object for it.
	Navigate(ctx context.Context, url string) (gotResponse bool, err error)
	// Text returns the rendered text content of the page body.
	Text(ctx context.Context) (string, error)
	// Close closes the tab.
	Close() error
}

// BrowserLauncher opens a browser handle. Implementations either launch a
// local process or connect to an already-running one.
type BrowserLauncher func(ctx context.Context) (Browser, error)

// BrowserOptions configures how a Chrome browser is obtained. When
// RemoteEndpoint is set, Headless and ProxyServer are ignored: the remote
// side owns its launch settings.
type BrowserOptions struct {
	Headless       bool
	ProxyServer    string
	RemoteEndpoint string
}

// LaunchChrome returns a BrowserLauncher backed by chromedp. Local mode
// starts an isolated Chrome process; remote mode attaches to the DevTools
// websocket endpoint.
func LaunchChrome(opts BrowserOptions) BrowserLauncher {
	return func(ctx context.Context) (Browser, error) {
		var allocCtx context.Context
		var allocCancel context.CancelFunc

		if opts.RemoteEndpoint != "" {
			allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteEndpoint)
		} else {
			execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
			if !opts.Headless {
				execOpts = append(execOpts, chromedp.Flag("headless", false))
			}
			if opts.ProxyServer != "" {
				execOpts = append(execOpts, chromedp.ProxyServer(opts.ProxyServer))
			}
			allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
		}

		browserCtx, browserCancel := chromedp.NewContext(allocCtx)

		// Start the browser now so launch/connect failures surface here
		// rather than on the first navigation
		if err := chromedp.Run(browserCtx); err != nil {
			browserCancel()
			allocCancel()
			return nil, fmt.Errorf("%w: %v", utils.ErrBrowser, err)
		}

		return &chromeBrowser{
			ctx:         browserCtx,
			cancel:      browserCancel,
			allocCancel: allocCancel,
		}, nil
	}
}

type chromeBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func (b *chromeBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// A context derived from the browser context is a new tab
	pageCtx, pageCancel := chromedp.NewContext(b.ctx)
	return &chromePage{ctx: pageCtx, cancel: pageCancel}, nil
}

func (b *chromeBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	b.allocCancel()
	if err != nil {
		return fmt.Errorf("%w: close: %v", utils.ErrBrowser, err)
	}
	return nil
}

type chromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromePage) Navigate(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	resp, err := chromedp.RunResponse(p.ctx, chromedp.Navigate(url))
	if err != nil {
		return false, fmt.Errorf("%w: navigate %s: %v", utils.ErrBrowser, url, err)
	}
	return resp != nil, nil
}

func (p *chromePage) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	if err := chromedp.Run(p.ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: extract text: %v", utils.ErrBrowser, err)
	}
	return text, nil
}

func (p *chromePage) Close() error {
	p.cancel()
	return nil
}
