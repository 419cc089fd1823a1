package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"webfetch/pkg/config"
	"webfetch/pkg/models"
	"webfetch/pkg/utils"
)

// maxBodyBytes caps how much of a response body is read into memory.
const maxBodyBytes = 32 << 20 // 32MB

// StaticLoader fetches pages with a plain HTTP GET and extracts text and
// metadata from the parsed HTML. Per-URL failures are always logged and
// skipped; this strategy has no stop-on-failure mode.
type StaticLoader struct {
	urls      []string
	client    *http.Client
	limiter   *Limiter
	robots    *robotsGate // nil when robots checking is disabled
	userAgent string
	format    string
	converter *md.Converter
	log       *logrus.Entry
}

// NewStaticLoader creates a StaticLoader over the given (pre-validated)
// URLs. The verify_ssl setting maps onto the HTTP client's TLS verification;
// a remote browser endpoint, if configured, is ignored by this strategy.
func NewStaticLoader(urls []string, cfg config.Config, log *logrus.Entry) *StaticLoader {
	client := NewClient(cfg.HTTPClient, cfg.EffectiveVerifySSL(), cfg.ProxyServer, log)
	limiter := NewLimiter(cfg.EffectiveRequestsPerSecond(), log)

	l := &StaticLoader{
		urls:      urls,
		client:    client,
		limiter:   limiter,
		userAgent: cfg.UserAgent,
		format:    cfg.EffectiveContentFormat(),
		log:       log,
	}
	if cfg.RespectRobots {
		l.robots = newRobotsGate(client, limiter, cfg.UserAgent, log)
	}
	if l.format == config.FormatMarkdown {
		l.converter = md.NewConverter("", true, nil)
	}
	return l
}

// Load returns the lazy document sequence for this loader's URLs.
func (l *StaticLoader) Load(ctx context.Context) *DocumentIterator {
	i := 0
	next := func() (models.Document, error) {
		for i < len(l.urls) {
			pageURL := l.urls[i]
			i++

			doc, err := l.fetchOne(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return models.Document{}, ctx.Err()
				}
				l.log.WithFields(logrus.Fields{
					"url":        pageURL,
					"error_type": utils.CategorizeError(err),
				}).Warnf("Error loading URL, skipping: %v", err)
				continue
			}
			return doc, nil
		}
		return models.Document{}, utils.ErrDone
	}
	return &DocumentIterator{next: next}
}

// LoadBlocking returns the same sequence with blocking waits.
func (l *StaticLoader) LoadBlocking() *DocumentIterator {
	return l.Load(context.Background())
}

func (l *StaticLoader) fetchOne(ctx context.Context, pageURL string) (models.Document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %q: %v", utils.ErrParsing, pageURL, err)
	}

	if l.robots != nil && !l.robots.Allowed(ctx, parsed) {
		return models.Document{}, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, pageURL)
	}

	if err := l.limiter.Wait(ctx); err != nil {
		return models.Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", utils.ErrRequestCreation, err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", utils.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return models.Document{}, fmt.Errorf("%w: status %d %s", utils.ErrFetch, resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", utils.ErrParsing, err)
	}

	content, err := l.extractContent(doc)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		Content:  content,
		Metadata: extractMetadata(doc, pageURL),
	}, nil
}

func (l *StaticLoader) extractContent(doc *goquery.Document) (string, error) {
	if l.converter == nil {
		return extractText(doc), nil
	}
	markdown := l.converter.Convert(doc.Selection)
	return markdown, nil
}
