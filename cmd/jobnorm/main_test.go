package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/config"
	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
	"github.com/hyperjump/jobnorm/internal/vectorizer"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after words are moved first",
			args:     []string{"enginer", "-threshold", "0.2"},
			expected: []string{"-threshold", "0.2", "enginer"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-threshold", "0.2", "enginer"},
			expected: []string{"-threshold", "0.2", "enginer"},
		},
		{
			name:     "words only returns unchanged",
			args:     []string{"enginer", "manger"},
			expected: []string{"enginer", "manger"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"in.json", "out.json", "--workers", "8"},
			expected: []string{"--workers", "8", "in.json", "out.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
storage:
  database_path: "./test.db"
lexicon:
  edit_intensity: 0.2
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug || cfg.Lexicon.EditIntensity != 0.2 {
		t.Errorf("unexpected config: debug=%v edit_intensity=%v", cfg.Debug, cfg.Lexicon.EditIntensity)
	}
}

func TestLoadConfig_defaultsWhenNoFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists")
	}
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" {
		t.Errorf("resolved path = %q, want empty", resolved)
	}
	if cfg.Lexicon.CosineCutoff != config.DefaultCosineCutoff || cfg.Server.Port != config.DefaultPort {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.DatabasePath = filepath.Join(t.TempDir(), "jobnorm.db")
	return cfg
}

func TestInitializeComponents_restoresLexicon(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	c.Normalizer.AddKeywords([]string{"engineer"})
	c.Normalizer.AddWords([]string{"enginer"})
	if err := c.Normalizer.Save(ctx, c.Storage); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = initializeComponents(cfg, zap.NewNop(), true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	entry, ok := c.Normalizer.Lookup("enginer")
	if !ok || entry.Keyword != "engineer" {
		t.Errorf("restored entry = %+v, %v", entry, ok)
	}
}

func TestInitializeComponents_scoresKeywordsLoadedAfterSnapshot(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	c.Normalizer.AddWords([]string{"enginer"})
	if err := c.Normalizer.Save(ctx, c.Storage); err != nil {
		t.Fatal(err)
	}
	// Keyword file loaded, then the process dies before the next snapshot.
	path := filepath.Join(t.TempDir(), "titles.txt")
	if err := os.WriteFile(path, []byte("engineer\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := c.LoadKeywordFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if added, err := c.LoadKeywordFile(ctx, path); err != nil || added != 0 {
		t.Fatalf("reload: added=%d err=%v", added, err)
	}
	res := c.Normalizer.Match("enginer", 0.2)
	if !res.Matched || res.Keyword != "engineer" || res.Leven != 1 {
		t.Errorf("enginer after restart = %+v, want engineer at distance 1", res)
	}
}

func TestComponents_LoadKeywordFile(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	path := filepath.Join(t.TempDir(), "titles.yaml")
	if err := os.WriteFile(path, []byte("keywords:\n  - engineer\n  - manager\n"), 0600); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	added, err := c.LoadKeywordFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	stored, err := c.Storage.ListKeywords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(stored, []string{"engineer", "manager"}) {
		t.Errorf("stored = %v", stored)
	}

	if _, err := c.LoadKeywordFile(ctx, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestKeywordArgs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	read := func(p string) ([]string, error) {
		if p != path {
			t.Errorf("read called with %q", p)
		}
		return []string{"from", "file"}, nil
	}
	got, err := keywordArgs([]string{"engineer", path, "  ", " sales "}, read)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"engineer", "from", "file", "sales"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywordArgs = %v, want %v", got, want)
	}

	failing := func(string) ([]string, error) { return nil, errors.New("boom") }
	if _, err := keywordArgs([]string{path}, failing); err == nil {
		t.Error("read error should propagate")
	}
}

func TestLocalStatus(t *testing.T) {
	cfg := testConfig(t)
	c, err := initializeComponents(cfg, zap.NewNop(), false)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	c.Normalizer.AddKeywords([]string{"engineer"})
	c.Normalizer.AddWords([]string{"enginer"})

	status, err := localStatus(context.Background(), c, 0.25, []string{"/k.txt"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if status.Words != 1 || status.Keywords != 2 || status.StoredWords != 0 {
		t.Errorf("status = %+v", status)
	}
	if status.DiskUsageBytes == nil || *status.DiskUsageBytes <= 0 {
		t.Error("expected disk usage")
	}

	var buf bytes.Buffer
	writeStatusText(&buf, &status)
	for _, want := range []string{"words:              1", "keyword_file:       /k.txt", "watch_enabled:      true"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("status text missing %q:\n%s", want, buf.String())
		}
	}
}

func TestVectorizerParams(t *testing.T) {
	cfg := config.Default()
	cfg.Vectorizer.DescMinDF = 2
	p := vectorizerParams(cfg)
	if p.Title.MaxDF != vectorizer.Fraction(0.95) || p.Title.MinDF != vectorizer.Fraction(0.005) {
		t.Errorf("title params = %+v", p.Title)
	}
	if p.Desc.MinDF != vectorizer.Absolute(2) {
		t.Errorf("desc min_df = %+v", p.Desc.MinDF)
	}
}

func TestWritePostings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	in := []*models.Posting{{ID: "1", Title: "Engineer", TitleSeg: "engineer"}}
	if err := writePostings(path, in); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out []*models.Posting
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].TitleSeg != "engineer" {
		t.Errorf("written postings = %+v", out)
	}
}

func TestLoadTokenized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	content := `{"pos": "Data Engineer", "desc": "Build pipelines"}{"pos": "วิศวกร", "desc": "ออกแบบ"}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	postings, err := loadTokenized(context.Background(), path, tokenizer.New(), 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(postings) != 2 {
		t.Fatalf("postings = %d", len(postings))
	}
	if postings[0].TitleSeg != "data|engineer" || postings[1].TitleSeg != "วิศวกร" {
		t.Errorf("title_seg = %q, %q", postings[0].TitleSeg, postings[1].TitleSeg)
	}
}

func labeledPostings() []*models.Posting {
	tok := tokenizer.New()
	var postings []*models.Posting
	add := func(label, title, desc string) {
		postings = append(postings, &models.Posting{
			Label:    label,
			Title:    title,
			Desc:     desc,
			TitleSeg: tok.Tokenize(title),
			DescSeg:  tok.Tokenize(desc),
		})
	}
	add("engineer", "software engineer", "write code and review code")
	add("engineer", "data engineer", "code pipelines")
	add("engineer", "civil engineer", "design bridges with code")
	add("engineer", "network engineer", "code routers")
	add("engineer", "qa engineer", "test code")
	add("engineer", "site engineer", "inspect code compliance")
	add("sales", "sales executive", "meet customers")
	add("sales", "sales manager", "lead customers accounts")
	add("sales", "sales representative", "call customers")
	add("sales", "area sales", "visit customers shops")
	add("sales", "sales coordinator", "support customers orders")
	add("sales", "sales officer", "customers quotes")
	return postings
}

func TestTrainLabels(t *testing.T) {
	postings := labeledPostings()
	postings = append(postings, &models.Posting{})
	if got := trainLabels(postings); !reflect.DeepEqual(got, []string{"engineer", "sales"}) {
		t.Errorf("trainLabels = %v", got)
	}
}

func TestTrainEnsemble(t *testing.T) {
	postings := labeledPostings()
	labels := append(trainLabels(postings), "driver")

	ens, reports, err := trainEnsemble(postings, labels, vectorizer.DefaultParams(), rand.New(rand.NewSource(7)), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ens.Labels(), []string{"engineer", "sales"}) {
		t.Errorf("labels = %v (driver has no positives and is skipped)", ens.Labels())
	}
	if len(reports) != 2 || reports["engineer"].Support != 4 {
		t.Errorf("reports = %v", reports)
	}

	predicted := ens.PredictDocuments(postings, 0.5)
	if got := predicted[0].PredictedLabel; got != "engineer" {
		t.Errorf("first posting predicted %q (%v)", got, predicted[0].Predicted)
	}
	if got := predicted[6].PredictedLabel; got != "sales" {
		t.Errorf("seventh posting predicted %q (%v)", got, predicted[6].Predicted)
	}
	if postings[0].PredictedLabel != "" {
		t.Error("input postings must not be modified")
	}
}

func TestTrainEnsemble_emptyVocabulary(t *testing.T) {
	_, _, err := trainEnsemble([]*models.Posting{{Label: "a"}}, []string{"a"}, vectorizer.DefaultParams(), rand.New(rand.NewSource(1)), zap.NewNop())
	if !errors.Is(err, vectorizer.ErrEmptyVocabulary) {
		t.Errorf("err = %v, want ErrEmptyVocabulary", err)
	}
}
