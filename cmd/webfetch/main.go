package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"webfetch/pkg/config"
	"webfetch/pkg/fetch"
	"webfetch/pkg/utils"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fetch":
		runFetch(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("webfetch %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`webfetch - SSRF-safe web page fetcher

Usage:
  webfetch <command> [options]

Commands:
  fetch       Fetch one or more URLs and print the extracted documents
  validate    Validate a configuration file
  version     Show version info

Run 'webfetch <command> -h' for command-specific help.`)
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level %q, using info", logLevelStr)
	} else {
		log.SetLevel(level)
	}
	return log
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	configFile := fs.String("config", "", "Path to yaml config file (optional)")
	strategy := fs.String("strategy", "", "Loader strategy: safe_web or playwright (overrides config)")
	rps := fs.Float64("rps", -1, "Target requests per second, 0 disables limiting (overrides config)")
	noVerifySSL := fs.Bool("no-verify-ssl", false, "Disable SSL certificate verification")
	allowLocal := fs.Bool("allow-local", false, "Allow fetching private/loopback addresses")
	remote := fs.String("remote", "", "Remote browser websocket endpoint (playwright strategy)")
	format := fs.String("format", "", "Content format for safe_web: text or markdown")
	asJSON := fs.Bool("json", false, "Emit one JSON document per line instead of plain text")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webfetch fetch [options] <url> [url...]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  webfetch fetch https://example.com\n")
		fmt.Fprintf(os.Stderr, "  webfetch fetch -strategy playwright -remote ws://chrome:9222 https://example.com\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	urls := fs.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one URL is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	applyFlags(cfg, fs, *strategy, *rps, *noVerifySSL, *allowLocal, *remote, *format)

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if exitCode := doFetch(ctx, urls, *cfg, *asJSON, log, os.Stdout); exitCode != 0 {
		os.Exit(exitCode)
	}
}

// applyFlags overlays explicitly set command-line flags onto the config.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, strategy string, rps float64, noVerifySSL, allowLocal bool, remote, format string) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["strategy"] {
		cfg.Strategy = strategy
	}
	if set["rps"] {
		cfg.RequestsPerSecond = &rps
	}
	if noVerifySSL {
		verify := false
		cfg.VerifySSL = &verify
	}
	if allowLocal {
		cfg.AllowLocalFetch = true
	}
	if set["remote"] {
		cfg.RemoteBrowserEndpoint = remote
	}
	if set["format"] {
		cfg.ContentFormat = format
	}
}

// doFetch streams documents to w. Returns the process exit code.
func doFetch(ctx context.Context, urls []string, cfg config.Config, asJSON bool, log *logrus.Logger, w io.Writer) int {
	loader := fetch.New(ctx, urls, cfg, log)

	it := loader.Load(ctx)
	defer it.Close()

	enc := json.NewEncoder(w)
	fetched := 0
	for {
		doc, err := it.Next()
		if err != nil {
			if errors.Is(err, utils.ErrDone) {
				break
			}
			log.Errorf("Fetch aborted after %d document(s): %v", fetched, err)
			return 1
		}
		fetched++

		if asJSON {
			if err := enc.Encode(doc); err != nil {
				log.Errorf("Error encoding document: %v", err)
				return 1
			}
		} else {
			fmt.Fprintf(w, "--- %s\n%s\n", doc.Metadata.Source, doc.Content)
		}
	}

	log.Infof("Fetched %d of %d URL(s)", fetched, len(urls))
	return 0
}

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: webfetch validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, "Configuration is valid.")
	return 0
}
