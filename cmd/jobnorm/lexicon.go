package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/cli"
	"github.com/hyperjump/jobnorm/internal/importer"
	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/storage"
)

// postJSON sends body to serverURL+path and decodes the JSON response into out.
func postJSON(serverURL, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func getJSON(serverURL, path string, out interface{}) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

// openDirect loads config and components for commands that work on the local database.
func openDirect(configPath string) (*Components, *zap.Logger) {
	cfg, _, logger, debugMode := setup(configPath, false)
	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, logger
}

func runMatch() {
	fs := flag.NewFlagSet("match", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use the local database)")
	threshold := fs.Float64("threshold", 0, "edit intensity threshold (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: jobnorm match [flags] <words...>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	req := &models.MatchRequest{Words: fs.Args(), Threshold: *threshold}

	var response models.MatchResponse
	if *serverURL != "" {
		if err := postJSON(*serverURL, "/api/v1/match", req, &response); err != nil {
			fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := openDirect(*configPath)
		defer logger.Sync()
		defer components.Close()

		norm := components.Normalizer
		response.Threshold = *threshold
		if response.Threshold <= 0 {
			response.Threshold = norm.Threshold()
		}
		response.Results = norm.MatchAll(req.Words, response.Threshold)
		if err := norm.Save(context.Background(), components.Storage); err != nil {
			logger.Warn("lexicon snapshot failed", zap.Error(err))
		}
	}
	if err := cli.WriteMatchResults(os.Stdout, &response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runNormalize() {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use the local database)")
	threshold := fs.Float64("threshold", 0, "edit intensity threshold (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Println("Usage: jobnorm normalize [flags] <text...>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)

	var res *models.NormalizeResult
	if *serverURL != "" {
		res = &models.NormalizeResult{}
		req := &models.NormalizeRequest{Text: text, Threshold: *threshold}
		if err := postJSON(*serverURL, "/api/v1/normalize", req, res); err != nil {
			fmt.Fprintf(os.Stderr, "Normalize failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		components, logger := openDirect(*configPath)
		defer logger.Sync()
		defer components.Close()

		res = components.Normalizer.NormalizeText(text, *threshold)
		if err := components.Normalizer.Save(context.Background(), components.Storage); err != nil {
			logger.Warn("lexicon snapshot failed", zap.Error(err))
		}
	}
	if err := cli.WriteNormalizeResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// keywordArgs expands keyword arguments: an argument naming an existing file is read as a
// keyword file, anything else is a keyword.
func keywordArgs(args []string, read func(path string) ([]string, error)) ([]string, error) {
	var out []string
	for _, a := range args {
		if info, err := os.Stat(a); err == nil && !info.IsDir() {
			kws, err := read(a)
			if err != nil {
				return nil, err
			}
			out = append(out, kws...)
			continue
		}
		if k := strings.TrimSpace(a); k != "" {
			out = append(out, k)
		}
	}
	return out, nil
}

func runKeywords() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: jobnorm keywords <add|list> [args]")
		fmt.Println("  jobnorm keywords add <file|keywords...>  Add keywords")
		fmt.Println("  jobnorm keywords list                    List keywords")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("keywords", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use the local database)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[3:]))

	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: jobnorm keywords add <file|keywords...>")
			os.Exit(1)
		}
		var added int
		if *serverURL != "" {
			keywords, err := keywordArgs(fs.Args(), importer.ReadKeywords)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Read keywords failed: %v\n", err)
				os.Exit(1)
			}
			var out map[string]int
			if err := postJSON(*serverURL, "/api/v1/keywords", &models.KeywordsRequest{Keywords: keywords}, &out); err != nil {
				fmt.Fprintf(os.Stderr, "Add failed: %v\n", err)
				os.Exit(1)
			}
			added = out["added"]
		} else {
			components, logger := openDirect(*configPath)
			defer logger.Sync()
			defer components.Close()
			keywords, err := keywordArgs(fs.Args(), importer.ReadKeywords)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Read keywords failed: %v\n", err)
				os.Exit(1)
			}
			added = components.Normalizer.AddKeywords(keywords)
			if err := components.Normalizer.Save(context.Background(), components.Storage); err != nil {
				fmt.Fprintf(os.Stderr, "Save failed: %v\n", err)
				os.Exit(1)
			}
		}
		fmt.Printf("Added %d keyword(s)\n", added)
	case "list":
		var keywords []string
		if *serverURL != "" {
			var out struct {
				Keywords []string `json:"keywords"`
			}
			if err := getJSON(*serverURL, "/api/v1/keywords", &out); err != nil {
				fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
				os.Exit(1)
			}
			keywords = out.Keywords
		} else {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				os.Exit(1)
			}
			store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Open storage failed: %v\n", err)
				os.Exit(1)
			}
			defer store.Close()
			keywords, err = store.ListKeywords(context.Background())
			if err != nil {
				fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
				os.Exit(1)
			}
		}
		if err := cli.WriteKeywords(os.Stdout, keywords, parseFormat(*outputFormat)); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown keywords subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// statusConfigResponse holds configuration info returned by status.
type statusConfigResponse struct {
	CosineCutoff  float64  `json:"cosine_cutoff"`
	EditIntensity float64  `json:"edit_intensity"`
	DatabasePath  string   `json:"database_path,omitempty"`
	KeywordFiles  []string `json:"keyword_files,omitempty"`
	WatchEnabled  bool     `json:"watch_enabled"`
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Words          int                   `json:"words"`
	Keywords       int                   `json:"keywords"`
	Postings       int64                 `json:"postings"`
	StoredWords    int64                 `json:"stored_words"`
	DiskUsageBytes *int64                `json:"disk_usage_bytes,omitempty"`
	Config         *statusConfigResponse `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = use the local database)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(*serverURL, "/api/v1/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, logger, debugMode := setup(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger, debugMode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		status, err = localStatus(context.Background(), components, cfg.Lexicon.CosineCutoff, cfg.Lexicon.KeywordFiles, cfg.Watch.EnabledOrDefault())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	}

	if format == cli.OutputJSON {
		if err := cli.WriteJSON(os.Stdout, status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}
	writeStatusText(os.Stdout, &status)
}

func localStatus(ctx context.Context, c *Components, cutoff float64, files []string, watch bool) (statusResponse, error) {
	stats := c.Normalizer.Stats()
	postings, err := c.Storage.CountPostings(ctx)
	if err != nil {
		return statusResponse{}, fmt.Errorf("count postings: %w", err)
	}
	stored, err := c.Storage.CountWords(ctx)
	if err != nil {
		return statusResponse{}, fmt.Errorf("count words: %w", err)
	}
	status := statusResponse{
		Words:       stats.Words,
		Keywords:    stats.Keywords,
		Postings:    postings,
		StoredWords: stored,
		Config: &statusConfigResponse{
			CosineCutoff:  cutoff,
			EditIntensity: c.Normalizer.Threshold(),
			DatabasePath:  c.Storage.Path(),
			KeywordFiles:  files,
			WatchEnabled:  watch,
		},
	}
	if diskBytes, err := storage.DiskUsageBytes(storage.DatabaseFiles(c.Storage.Path())...); err == nil {
		status.DiskUsageBytes = &diskBytes
	}
	return status, nil
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "words:              %d   # words in the lexicon\n", status.Words)
	fmt.Fprintf(w, "keywords:           %d   # keywords, including the empty keyword\n", status.Keywords)
	fmt.Fprintf(w, "postings:           %d   # stored postings\n", status.Postings)
	fmt.Fprintf(w, "stored_words:       %d   # lexicon records in the last snapshot\n", status.StoredWords)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database on disk\n", *status.DiskUsageBytes)
	}
	if status.Config != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "cosine_cutoff:      %g\n", status.Config.CosineCutoff)
		fmt.Fprintf(w, "edit_intensity:     %g\n", status.Config.EditIntensity)
		if status.Config.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", status.Config.DatabasePath)
		}
		for _, f := range status.Config.KeywordFiles {
			fmt.Fprintf(w, "keyword_file:       %s\n", f)
		}
		fmt.Fprintf(w, "watch_enabled:      %t\n", status.Config.WatchEnabled)
	}
}
