package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// robotsGate checks robots.txt rules before static fetches. Rules are
// fetched once per host and cached for the loader's lifetime. If robots.txt
// cannot be obtained or parsed, access is allowed (the conventional
// permissive fallback).
type robotsGate struct {
	client    *http.Client
	limiter   *Limiter
	userAgent string
	cache     map[string]*robotstxt.RobotsData // hostname -> parsed data (nil on failure)
	cacheMu   sync.Mutex
	log       *logrus.Entry
}

func newRobotsGate(client *http.Client, limiter *Limiter, userAgent string, log *logrus.Entry) *robotsGate {
	return &robotsGate{
		client:    client,
		limiter:   limiter,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
		log:       log,
	}
}

// Allowed reports whether the configured user agent may fetch target.
func (g *robotsGate) Allowed(ctx context.Context, target *url.URL) bool {
	data := g.robotsData(ctx, target)
	if data == nil {
		return true
	}
	return data.TestAgent(target.RequestURI(), g.userAgent)
}

// robotsData retrieves robots.txt data for the target's host, using cache or
// fetching. Returns nil on any error/4xx/missing file.
func (g *robotsGate) robotsData(ctx context.Context, target *url.URL) *robotstxt.RobotsData {
	host := target.Hostname()

	g.cacheMu.Lock()
	data, found := g.cache[host]
	g.cacheMu.Unlock()
	if found {
		return data // Cached result, possibly nil
	}

	robotsURL := &url.URL{Scheme: target.Scheme, Host: target.Host, Path: "/robots.txt"}
	robotsLog := g.log.WithFields(logrus.Fields{"host": host, "robots_url": robotsURL.String()})
	robotsLog.Debug("Fetching robots.txt...")

	// The robots fetch reaches the network, so it counts against the
	// loader's rate limit like any other request
	if err := g.limiter.Wait(ctx); err != nil {
		robotsLog.Warnf("Rate limit wait interrupted: %v", err)
		return nil
	}

	data = g.fetchAndParse(ctx, robotsURL.String(), robotsLog)

	g.cacheMu.Lock()
	g.cache[host] = data
	g.cacheMu.Unlock()
	return data
}

func (g *robotsGate) fetchAndParse(ctx context.Context, robotsURL string, robotsLog *logrus.Entry) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		robotsLog.Errorf("Error creating robots.txt request: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		robotsLog.Warnf("Fetching robots.txt failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		robotsLog.Debugf("robots.txt returned status %d", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		robotsLog.Warnf("Error reading robots.txt body: %v", err)
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		robotsLog.Warnf("Error parsing robots.txt: %v", err)
		return nil
	}

	robotsLog.Debug("Successfully fetched and parsed robots.txt")
	return data
}
