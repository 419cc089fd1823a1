package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webfetch/pkg/config"
	"webfetch/pkg/utils"
)

// fakeBrowser scripts per-URL outcomes so the rendered loader's sequencing
// and resource handling can be tested without a real browser.
type fakeBrowser struct {
	pages      map[string]fakePage
	closed     bool
	closeCalls int
	pagesOpen  int
}

type fakePage struct {
	text        string
	noResponse  bool
	navigateErr error
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	if b.closed {
		return nil, errors.New("browser already closed")
	}
	b.pagesOpen++
	return &fakeBrowserPage{browser: b}, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	b.closeCalls++
	return nil
}

type fakeBrowserPage struct {
	browser *fakeBrowser
	url     string
}

func (p *fakeBrowserPage) Navigate(_ context.Context, url string) (bool, error) {
	p.url = url
	page, ok := p.browser.pages[url]
	if !ok {
		return false, fmt.Errorf("%w: unexpected url %s", utils.ErrBrowser, url)
	}
	if page.navigateErr != nil {
		return false, page.navigateErr
	}
	return !page.noResponse, nil
}

func (p *fakeBrowserPage) Text(_ context.Context) (string, error) {
	return p.browser.pages[p.url].text, nil
}

func (p *fakeBrowserPage) Close() error {
	p.browser.pagesOpen--
	return nil
}

func fakeLauncher(b *fakeBrowser) BrowserLauncher {
	return func(ctx context.Context) (Browser, error) {
		return b, nil
	}
}

func renderedConfig(continueOnFailure bool) config.Config {
	cfg := unlimited()
	cfg.VerifySSL = boolPtr(false)
	cfg.ContinueOnFailure = boolPtr(continueOnFailure)
	return cfg
}

func TestRenderedLoader_FetchesInOrder(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://a.example.com/": {text: "rendered a"},
		"http://b.example.com/": {text: "rendered b"},
	}}

	loader := NewRenderedLoader(
		[]string{"http://a.example.com/", "http://b.example.com/"},
		renderedConfig(true), fakeLauncher(browser), testLogger())

	docs, err := loader.Load(context.Background()).Collect()
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "rendered a", docs[0].Content)
	assert.Equal(t, "rendered b", docs[1].Content)

	// Rendering path captures only the source URL
	assert.Equal(t, "http://a.example.com/", docs[0].Metadata.Source)
	assert.Empty(t, docs[0].Metadata.Title)
	assert.Empty(t, docs[0].Metadata.Description)
}

func TestRenderedLoader_BrowserClosedAtExhaustion(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://a.example.com/": {text: "a"},
	}}

	loader := NewRenderedLoader([]string{"http://a.example.com/"},
		renderedConfig(true), fakeLauncher(browser), testLogger())

	it := loader.Load(context.Background())
	_, err := it.Next()
	require.NoError(t, err)
	assert.False(t, browser.closed, "browser stays open while URLs remain")

	_, err = it.Next()
	assert.ErrorIs(t, err, utils.ErrDone)
	assert.True(t, browser.closed, "browser released at exhaustion")
	assert.Equal(t, 0, browser.pagesOpen, "every page closed")
}

func TestRenderedLoader_ContinueOnFailureSkips(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://1.example.com/": {text: "one"},
		"http://2.example.com/": {noResponse: true},
		"http://3.example.com/": {text: "three"},
	}}

	loader := NewRenderedLoader(
		[]string{"http://1.example.com/", "http://2.example.com/", "http://3.example.com/"},
		renderedConfig(true), fakeLauncher(browser), testLogger())

	docs, err := loader.Load(context.Background()).Collect()
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "one", docs[0].Content)
	assert.Equal(t, "three", docs[1].Content)
	assert.True(t, browser.closed)
}

func TestRenderedLoader_TerminalAbortSurfacesPartialResults(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://1.example.com/": {text: "one"},
		"http://2.example.com/": {noResponse: true},
		"http://3.example.com/": {text: "three"},
	}}

	loader := NewRenderedLoader(
		[]string{"http://1.example.com/", "http://2.example.com/", "http://3.example.com/"},
		renderedConfig(false), fakeLauncher(browser), testLogger())

	it := loader.Load(context.Background())

	// URL #1 is surfaced before the abort
	doc, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "one", doc.Content)

	// URL #2 terminates the sequence with a navigation error
	_, err = it.Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrNavigation)
	assert.True(t, browser.closed, "browser released on terminal abort")

	// URL #3 is never reached
	_, err = it.Next()
	assert.ErrorIs(t, err, utils.ErrDone)
	assert.Equal(t, 1, browser.closeCalls)
}

func TestRenderedLoader_NavigationErrorPropagates(t *testing.T) {
	navErr := errors.New("net::ERR_CONNECTION_REFUSED")
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://bad.example.com/": {navigateErr: navErr},
	}}

	loader := NewRenderedLoader([]string{"http://bad.example.com/"},
		renderedConfig(false), fakeLauncher(browser), testLogger())

	_, err := loader.Load(context.Background()).Next()
	assert.ErrorIs(t, err, navErr)
	assert.True(t, browser.closed)
}

func TestRenderedLoader_SSLGateAbortsURL(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{}}

	cfg := unlimited()
	cfg.ContinueOnFailure = boolPtr(false)
	// verify_ssl left at its default (true); the https URL cannot pass the
	// handshake probe since nothing is listening
	loader := NewRenderedLoader([]string{"https://127.0.0.1:1/"},
		cfg, fakeLauncher(browser), testLogger())

	_, err := loader.Load(context.Background()).Next()
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrSSLVerification)
	assert.True(t, browser.closed, "browser released after ssl abort")
}

func TestRenderedLoader_LaunchFailurePropagates(t *testing.T) {
	launchErr := fmt.Errorf("%w: chrome not found", utils.ErrBrowser)
	loader := NewRenderedLoader([]string{"http://a.example.com/"},
		renderedConfig(true),
		func(ctx context.Context) (Browser, error) { return nil, launchErr },
		testLogger())

	_, err := loader.Load(context.Background()).Next()
	assert.ErrorIs(t, err, launchErr)
}

func TestRenderedLoader_CloseReleasesEarly(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{
		"http://a.example.com/": {text: "a"},
		"http://b.example.com/": {text: "b"},
	}}

	loader := NewRenderedLoader(
		[]string{"http://a.example.com/", "http://b.example.com/"},
		renderedConfig(true), fakeLauncher(browser), testLogger())

	it := loader.Load(context.Background())
	_, err := it.Next()
	require.NoError(t, err)

	require.NoError(t, it.Close())
	assert.True(t, browser.closed, "Close releases the browser before exhaustion")

	_, err = it.Next()
	assert.ErrorIs(t, err, utils.ErrDone)
	assert.Equal(t, 1, browser.closeCalls, "release is idempotent")
}

func TestRenderedLoader_EmptyURLList(t *testing.T) {
	browser := &fakeBrowser{pages: map[string]fakePage{}}
	loader := NewRenderedLoader(nil, renderedConfig(true), fakeLauncher(browser), testLogger())

	docs, err := loader.Load(context.Background()).Collect()
	require.NoError(t, err)
	assert.Empty(t, docs)
}
