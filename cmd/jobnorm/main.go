// Package main is the jobnorm CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/config"
	"github.com/hyperjump/jobnorm/internal/importer"
	"github.com/hyperjump/jobnorm/internal/lexicon"
	"github.com/hyperjump/jobnorm/internal/normalize"
	"github.com/hyperjump/jobnorm/internal/server"
	"github.com/hyperjump/jobnorm/internal/storage"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
	"github.com/hyperjump/jobnorm/internal/watcher"
	"github.com/hyperjump/jobnorm/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/jobnorm/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; if that exists it is used. When neither exists the
// built-in defaults are returned with an empty resolved path.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse() sees them. The flag package stops at the
// first non-flag argument, so "jobnorm match enginer --threshold 0.2" would otherwise
// leave --threshold unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "match":
		runMatch()
	case "normalize":
		runNormalize()
	case "tokenize":
		runTokenize()
	case "import":
		runImport()
	case "train":
		runTrain()
	case "keywords":
		runKeywords()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("jobnorm version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads the config and builds a logger; it exits on failure.
func setup(configPath string, debugFlag bool) (*config.Config, string, *zap.Logger, bool) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger, debugMode
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (keyword updates, requests, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, debugMode := setup(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	onChange := func(path string) {
		if _, err := components.LoadKeywordFile(context.Background(), path); err != nil {
			logger.Warn("keyword file load failed", zap.String("path", path), zap.Error(err))
		}
	}

	var files server.FileLister
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.EnabledOrDefault() && len(cfg.Lexicon.KeywordFiles) > 0 {
		watchOpts := []watcher.WatcherOption{
			watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS) * time.Millisecond),
		}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(cfg.Lexicon.KeywordFiles, onChange, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
		watchSvc.SyncExistingFiles()
		files = watchSvc
	} else {
		for _, path := range cfg.Lexicon.KeywordFiles {
			onChange(path)
		}
	}

	srv := server.NewServer(components.Normalizer, components.Storage, cfg, logger, files)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	if err := components.Normalizer.Save(ctx, components.Storage); err != nil {
		logger.Warn("lexicon snapshot failed", zap.Error(err))
	}
}

// Components holds initialized services.
type Components struct {
	Storage    *storage.SQLiteStorage
	Tokenizer  *tokenizer.Tokenizer
	Normalizer *normalize.Normalizer
	logger     *zap.Logger
}

// Close releases the storage.
func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// LoadKeywordFile reads a keyword file, adds its keywords to the lexicon and stores them.
// It returns how many keywords were new to the lexicon.
func (c *Components) LoadKeywordFile(ctx context.Context, path string) (int, error) {
	keywords, err := importer.ReadKeywords(path)
	if err != nil {
		return 0, err
	}
	added := c.Normalizer.AddKeywords(keywords)
	if c.Storage != nil {
		if _, err := c.Storage.AddKeywords(ctx, keywords); err != nil {
			return added, fmt.Errorf("store keywords: %w", err)
		}
	}
	c.logger.Info("keyword file loaded",
		zap.String("path", path),
		zap.Int("keywords", len(keywords)),
		zap.Int("added", added))
	return added, nil
}

func newTokenizer(cfg *config.Config) *tokenizer.Tokenizer {
	return tokenizer.New(tokenizer.WithMinLength(cfg.Tokenizer.MinLength))
}

// initializeComponents opens storage and restores the saved lexicon into a new normalizer.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	engineOpts := []lexicon.Option{
		lexicon.WithCosineCutoff(cfg.Lexicon.CosineCutoff),
		lexicon.WithWorkers(cfg.Lexicon.Workers),
	}
	if debug {
		engineOpts = append(engineOpts, lexicon.WithLogger(logger))
	}
	tok := newTokenizer(cfg)
	norm := normalize.New(lexicon.New(engineOpts...), tok, cfg.Lexicon.EditIntensity, logger)
	if err := norm.Load(context.Background(), store); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to restore lexicon: %w", err)
	}

	return &Components{
		Storage:    store,
		Tokenizer:  tok,
		Normalizer: norm,
		logger:     logger,
	}, nil
}

func printUsage() {
	fmt.Println(`jobnorm - Thai/English job posting normalizer

Usage:
  jobnorm server [flags]                         Start the HTTP server
  jobnorm match [flags] <words...>               Map words to their nearest keyword
  jobnorm normalize [flags] <text...>            Tokenize text and substitute keywords
  jobnorm tokenize [flags] <postings> <out.json> Tokenize postings and fit the vectorizer
  jobnorm import [flags] <file> [out.json]       Restructure raw postings (json, xlsx, pdf, docx, txt)
  jobnorm train [flags] <labeled postings>       Train and evaluate the label ensemble
  jobnorm keywords add <file|keywords...>        Add keywords to the lexicon
  jobnorm keywords list                          List keywords
  jobnorm status [flags]                         Show lexicon/storage status
  jobnorm version                                Show version
  jobnorm help                                   Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/jobnorm/config.yaml)

Server Flags:
  --debug            Enable debug logging

Match/Normalize Flags:
  --server string    Server URL; empty (default) uses the local database directly
  --threshold float  Edit intensity threshold (default from config, 0.1)
  --output string    Output format: text or json (default: text)

Tokenize Flags:
  --workers int      Tokenizer goroutines (default from config)
  --chunksize int    Postings per work unit (default from config)

Import Flags:
  --store            Also store the postings in the database

Train Flags:
  --label string     Train only this label (default: every label in the file)
  --seed int         Random seed for balancing and the test split (default: time-based)
  --out string       Write postings with predictions to this JSON file

Examples:
  jobnorm server
  jobnorm keywords add titles.txt
  jobnorm match enginer manger --threshold 0.2
  jobnorm normalize --output json "Senior Enginer"
  jobnorm import --store jobs.xlsx jobs.json
  jobnorm tokenize jobs.json jobs_tok.json
  jobnorm train labeled.json`)
}
