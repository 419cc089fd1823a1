package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webfetch/pkg/config"
	"webfetch/pkg/models"
)

func silentLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDoValidate_OK(t *testing.T) {
	path := writeConfig(t, "strategy: safe_web\nrequests_per_second: 1\n")

	var stdout, stderr bytes.Buffer
	code := doValidate(path, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "valid")
	assert.Empty(t, stderr.String())
}

func TestDoValidate_BadConfig(t *testing.T) {
	path := writeConfig(t, "content_format: pdf\n")

	var stdout, stderr bytes.Buffer
	code := doValidate(path, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "content_format")
}

func TestDoValidate_MissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := doValidate(filepath.Join(t.TempDir(), "nope.yaml"), &stdout, &stderr)
	assert.Equal(t, 1, code)
}

func TestDoFetch_JSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><head><title>Example</title></head><body>hello world</body></html>`))
	}))
	t.Cleanup(server.Close)

	rps := 0.0
	cfg := config.Config{AllowLocalFetch: true, RequestsPerSecond: &rps}
	_, err := cfg.Validate()
	require.NoError(t, err)

	var out bytes.Buffer
	code := doFetch(context.Background(), []string{server.URL}, cfg, true, silentLogger(), &out)
	require.Equal(t, 0, code)

	var doc models.Document
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &doc))
	assert.Equal(t, "hello world", doc.Content)
	assert.Equal(t, "Example", doc.Metadata.Title)
	assert.Equal(t, server.URL, doc.Metadata.Source)
}

func TestDoFetch_BlockedURLsYieldNothing(t *testing.T) {
	rps := 0.0
	cfg := config.Config{RequestsPerSecond: &rps} // local fetch disallowed

	var out bytes.Buffer
	code := doFetch(context.Background(), []string{"http://127.0.0.1:1/"}, cfg, false, silentLogger(), &out)

	assert.Equal(t, 0, code, "blocked URLs are dropped, not fatal")
	assert.Empty(t, out.String())
}

func TestApplyFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	cfg := &config.Config{Strategy: config.StrategyRendered}

	// Mirror the fetch command's flag names, setting only -rps
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.String("strategy", "", "")
	fs.Float64("rps", -1, "")
	fs.String("remote", "", "")
	fs.String("format", "", "")
	require.NoError(t, fs.Parse([]string{"-rps", "5"}))

	applyFlags(cfg, fs, "", 5, false, false, "", "")

	assert.Equal(t, config.StrategyRendered, cfg.Strategy, "unset flag leaves config value")
	require.NotNil(t, cfg.RequestsPerSecond)
	assert.Equal(t, 5.0, *cfg.RequestsPerSecond)
}
