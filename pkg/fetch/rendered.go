package fetch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"webfetch/pkg/config"
	"webfetch/pkg/models"
	"webfetch/pkg/utils"
)

// RenderedLoader fetches pages through a headless browser so that
// script-generated content is captured. The browser is launched (or, with a
// remote endpoint, connected to) lazily on the first Next call and released
// when the sequence is exhausted, on a terminal error, or on Close,
// whichever comes first.
type RenderedLoader struct {
	urls              []string
	verifySSL         bool
	continueOnFailure bool
	verifier          *SSLVerifier
	limiter           *Limiter
	launch            BrowserLauncher
	log               *logrus.Entry
}

// NewRenderedLoader creates a RenderedLoader over the given (pre-validated)
// URLs. launch may be nil, in which case a chromedp-backed launcher is built
// from the configuration: remote mode when a remote browser endpoint is set
// (headless/proxy then owned by the remote side), local mode otherwise.
func NewRenderedLoader(urls []string, cfg config.Config, launch BrowserLauncher, log *logrus.Entry) *RenderedLoader {
	if launch == nil {
		launch = LaunchChrome(BrowserOptions{
			Headless:       cfg.EffectiveHeadless(),
			ProxyServer:    cfg.ProxyServer,
			RemoteEndpoint: cfg.RemoteBrowserEndpoint,
		})
	}
	return &RenderedLoader{
		urls:              urls,
		verifySSL:         cfg.EffectiveVerifySSL(),
		continueOnFailure: cfg.EffectiveContinueOnFailure(),
		verifier:          NewSSLVerifier(log),
		limiter:           NewLimiter(cfg.EffectiveRequestsPerSecond(), log),
		launch:            launch,
		log:               log,
	}
}

// Load returns the lazy document sequence for this loader's URLs. Documents
// fetched before a terminal failure are surfaced; the error follows them.
func (l *RenderedLoader) Load(ctx context.Context) *DocumentIterator {
	var browser Browser
	released := false
	i := 0

	release := func() error {
		if browser == nil || released {
			return nil
		}
		released = true
		if err := browser.Close(); err != nil {
			l.log.Warnf("Error closing browser: %v", err)
			return err
		}
		return nil
	}

	next := func() (models.Document, error) {
		if browser == nil {
			b, err := l.launch(ctx)
			if err != nil {
				return models.Document{}, err
			}
			browser = b
		}

		for i < len(l.urls) {
			pageURL := l.urls[i]
			i++

			doc, err := l.fetchOne(ctx, browser, pageURL)
			if err != nil {
				if l.continueOnFailure && ctx.Err() == nil {
					l.log.WithFields(logrus.Fields{
						"url":        pageURL,
						"error_type": utils.CategorizeError(err),
					}).Warnf("Error loading URL, skipping: %v", err)
					continue
				}
				// Terminal abort: the browser is released regardless
				release()
				return models.Document{}, err
			}
			return doc, nil
		}

		err := release()
		if err != nil {
			l.log.Debugf("Browser close at exhaustion reported: %v", err)
		}
		return models.Document{}, utils.ErrDone
	}

	return &DocumentIterator{next: next, release: release}
}

// LoadBlocking returns the same sequence with blocking waits.
func (l *RenderedLoader) LoadBlocking() *DocumentIterator {
	return l.Load(context.Background())
}

func (l *RenderedLoader) fetchOne(ctx context.Context, browser Browser, pageURL string) (models.Document, error) {
	// Safety gate before anything touches the network
	if l.verifySSL && !l.verifier.Verify(ctx, pageURL) {
		return models.Document{}, fmt.Errorf("%w: %s", utils.ErrSSLVerification, pageURL)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return models.Document{}, err
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		return models.Document{}, err
	}
	defer page.Close()

	gotResponse, err := page.Navigate(ctx, pageURL)
	if err != nil {
		return models.Document{}, err
	}
	if !gotResponse {
		return models.Document{}, fmt.Errorf("%w: %s", utils.ErrNavigation, pageURL)
	}

	text, err := page.Text(ctx)
	if err != nil {
		return models.Document{}, err
	}

	// The rendering path captures raw text plus the source URL only
	return models.Document{
		Content:  text,
		Metadata: models.PageMetadata{Source: pageURL},
	}, nil
}
