package fetch

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"webfetch/pkg/config"
	"webfetch/pkg/models"
	"webfetch/pkg/utils"
	"webfetch/pkg/webcheck"
)

// Loader fetches a fixed set of URLs lazily, one at a time, in input order.
// Construction wires policy (SSL verification, rate limit, failure handling);
// no network activity happens until the iterator is consumed.
type Loader interface {
	// Load returns the document sequence. Rate-limit waits and navigation
	// honor ctx cancellation, so concurrent work in the same process is not
	// blocked while this loader suspends.
	Load(ctx context.Context) *DocumentIterator
	// LoadBlocking is the fully blocking execution path. It is defined as
	// Load(context.Background()), which keeps the per-URL behavior of the
	// two paths identical by construction.
	LoadBlocking() *DocumentIterator
}

// DocumentIterator is a forward-only, single-pass sequence of fetched
// documents. Next returns utils.ErrDone once the sequence is exhausted; any
// other error is terminal. Close releases loader resources early and is
// idempotent; resources are also released automatically at exhaustion or on
// a terminal error.
type DocumentIterator struct {
	next    func() (models.Document, error)
	release func() error
	done    bool
}

// Next returns the next successfully fetched document.
func (it *DocumentIterator) Next() (models.Document, error) {
	if it.done {
		return models.Document{}, utils.ErrDone
	}
	doc, err := it.next()
	if err != nil {
		it.done = true
	}
	return doc, err
}

// Close releases any resources held by the underlying loader.
func (it *DocumentIterator) Close() error {
	it.done = true
	if it.release == nil {
		return nil
	}
	return it.release()
}

// Collect drains the iterator, returning every document fetched before the
// sequence ended. On a terminal error the documents gathered so far are
// returned alongside it.
func (it *DocumentIterator) Collect() ([]models.Document, error) {
	var docs []models.Document
	for {
		doc, err := it.Next()
		if err != nil {
			if errors.Is(err, utils.ErrDone) {
				return docs, nil
			}
			return docs, err
		}
		docs = append(docs, doc)
	}
}

// New builds a Loader for the given URLs and configuration snapshot. URLs
// are screened through the SSRF-safe filter first; the concrete strategy is
// then selected by the configured name, with unknown names falling back to
// the static strategy.
func New(ctx context.Context, urls []string, cfg config.Config, log *logrus.Logger) Loader {
	entry := log.WithFields(logrus.Fields{
		"component": "webloader",
		"loader_id": uuid.NewString()[:8],
	})

	validator := webcheck.NewValidator(nil, func() bool { return cfg.AllowLocalFetch }, entry)
	safeURLs := validator.SafeFilter(ctx, urls)

	switch cfg.Strategy {
	case config.StrategyRendered:
		entry.Debugf("Using rendered loader for %d URLs", len(safeURLs))
		return NewRenderedLoader(safeURLs, cfg, nil, entry)
	default:
		// Covers "safe_web", the empty string, and unrecognized names
		entry.Debugf("Using static loader for %d URLs", len(safeURLs))
		return NewStaticLoader(safeURLs, cfg, entry)
	}
}
