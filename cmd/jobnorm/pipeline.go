package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/classifier"
	"github.com/hyperjump/jobnorm/internal/cli"
	"github.com/hyperjump/jobnorm/internal/config"
	"github.com/hyperjump/jobnorm/internal/importer"
	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/storage"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
	"github.com/hyperjump/jobnorm/internal/vectorizer"
)

// vectorizerParams converts the configured document-frequency limits.
func vectorizerParams(cfg *config.Config) vectorizer.Params {
	return vectorizer.Params{
		Title: vectorizer.Options{
			MaxDF: vectorizer.LimitOf(cfg.Vectorizer.TitleMaxDF),
			MinDF: vectorizer.LimitOf(cfg.Vectorizer.TitleMinDF),
		},
		Desc: vectorizer.Options{
			MaxDF: vectorizer.LimitOf(cfg.Vectorizer.DescMaxDF),
			MinDF: vectorizer.LimitOf(cfg.Vectorizer.DescMinDF),
		},
	}
}

// writePostings writes postings as an indented JSON array to path, or to stdout when path
// is empty or "-".
func writePostings(path string, postings []*models.Posting) error {
	if postings == nil {
		postings = []*models.Posting{}
	}
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return cli.WriteJSON(w, postings)
}

// loadTokenized loads postings from path and fills their token sequences.
func loadTokenized(ctx context.Context, path string, tok *tokenizer.Tokenizer, workers, chunkSize int) ([]*models.Posting, error) {
	postings, err := importer.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := tok.TokenizeDocuments(ctx, postings, workers, chunkSize); err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	return postings, nil
}

func runTokenize() {
	fs := flag.NewFlagSet("tokenize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	workers := fs.Int("workers", 0, "tokenizer goroutines (0 = config default)")
	chunkSize := fs.Int("chunksize", 0, "postings per work unit (0 = config default)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 2 {
		fmt.Println("Usage: jobnorm tokenize [flags] <postings> <out.json>")
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	if *workers <= 0 {
		*workers = cfg.Tokenizer.Workers
	}
	if *chunkSize <= 0 {
		*chunkSize = cfg.Tokenizer.ChunkSize
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	postings, err := loadTokenized(ctx, fs.Arg(0), newTokenizer(cfg), *workers, *chunkSize)
	if err != nil {
		logger.Fatal("Tokenize failed", zap.Error(err))
	}
	logger.Info("postings tokenized",
		zap.Int("postings", len(postings)),
		zap.Int("workers", *workers),
		zap.Duration("elapsed", time.Since(start)))
	if err := writePostings(fs.Arg(1), postings); err != nil {
		logger.Fatal("Write failed", zap.Error(err))
	}

	dv, err := vectorizer.NewDocumentVectorizer(postings, vectorizerParams(cfg))
	if err != nil {
		logger.Warn("vectorizer fit failed", zap.Error(err))
		return
	}
	logger.Info("vectorizer fitted",
		zap.Int("title_terms", dv.Title.Len()),
		zap.Int("desc_terms", dv.Desc.Len()),
		zap.String("title_max_df", dv.Params.Title.MaxDF.String()),
		zap.String("title_min_df", dv.Params.Title.MinDF.String()))
}

func runImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	store := fs.Bool("store", false, "also store the postings in the database")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: jobnorm import [flags] <file> [out.json]")
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	ctx := context.Background()
	postings, err := loadTokenized(ctx, fs.Arg(0), newTokenizer(cfg), cfg.Tokenizer.Workers, cfg.Tokenizer.ChunkSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 1 || !*store {
		if err := writePostings(fs.Arg(1), postings); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
	}
	if *store {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Open storage failed: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.BatchCreatePostings(ctx, postings); err != nil {
			fmt.Fprintf(os.Stderr, "Store failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Stored %d posting(s)\n", len(postings))
	}
}

// trainLabels returns the distinct non-empty labels of postings in sorted order.
func trainLabels(postings []*models.Posting) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, p := range postings {
		if p.Label != "" && !seen[p.Label] {
			seen[p.Label] = true
			labels = append(labels, p.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// trainEnsemble fits a document vectorizer on postings and one binary model per label.
// Labels without positive or negative samples are skipped with a warning.
func trainEnsemble(postings []*models.Posting, labels []string, params vectorizer.Params, rng *rand.Rand, logger *zap.Logger) (*classifier.Ensemble, map[string]*classifier.Report, error) {
	dv, err := vectorizer.NewDocumentVectorizer(postings, params)
	if err != nil {
		return nil, nil, err
	}
	ens := classifier.NewEnsemble(dv, logger)
	reports := make(map[string]*classifier.Report, len(labels))
	for _, label := range labels {
		nb, report, err := ens.Train(postings, label, classifier.NewNaiveBayes(nil), rng)
		if errors.Is(err, classifier.ErrNoPositive) || errors.Is(err, classifier.ErrNoNegative) {
			logger.Warn("label skipped", zap.String("label", label), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("train %q: %w", label, err)
		}
		if err := ens.Append(nb); err != nil {
			return nil, nil, fmt.Errorf("append %q: %w", label, err)
		}
		reports[label] = report
	}
	return ens, reports, nil
}

func runTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	label := fs.String("label", "", "train only this label (empty = every label)")
	seed := fs.Int64("seed", 0, "random seed (0 = time-based)")
	out := fs.String("out", "", "write postings with predictions to this JSON file")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: jobnorm train [flags] <labeled postings>")
		os.Exit(1)
	}
	cfg, _, logger, _ := setup(*configPath, false)
	defer logger.Sync()

	postings, err := loadTokenized(context.Background(), fs.Arg(0), newTokenizer(cfg), cfg.Tokenizer.Workers, cfg.Tokenizer.ChunkSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}
	labels := trainLabels(postings)
	if *label != "" {
		labels = []string{*label}
	}
	if len(labels) == 0 {
		fmt.Fprintln(os.Stderr, "No labeled postings")
		os.Exit(1)
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	ens, reports, err := trainEnsemble(postings, labels, vectorizerParams(cfg), rand.New(rand.NewSource(*seed)), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Train failed: %v\n", err)
		os.Exit(1)
	}
	for _, l := range ens.Labels() {
		fmt.Printf("== %s ==\n%s\n", l, reports[l])
	}

	predicted := ens.PredictDocuments(postings, cfg.Classifier.Threshold)
	counts := make(map[string]int)
	for _, p := range predicted {
		counts[p.PredictedLabel]++
	}
	fmt.Printf("predictions (threshold %g):\n", cfg.Classifier.Threshold)
	for _, l := range append([]string{classifier.NoneLabel}, ens.Labels()...) {
		fmt.Printf("  %-20s %d\n", l, counts[l])
	}
	if *out != "" {
		if err := writePostings(*out, predicted); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
	}
}
