// Package normalize serializes access to a lexicon engine and maps free text onto keywords.
package normalize

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/lexicon"
	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/storage"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
	"github.com/hyperjump/jobnorm/pkg/utils"
)

// Normalizer wraps one lexicon engine and a tokenizer. All methods are safe for
// concurrent use.
type Normalizer struct {
	mu        sync.Mutex
	engine    *lexicon.Engine
	tokenizer *tokenizer.Tokenizer
	threshold float64
	logger    *zap.Logger
}

// Stats holds lexicon sizes.
type Stats struct {
	Words    int `json:"words"`
	Keywords int `json:"keywords"`
}

// New creates a Normalizer. A threshold <= 0 falls back to lexicon.DefaultEditIntensity.
func New(engine *lexicon.Engine, tok *tokenizer.Tokenizer, threshold float64, logger *zap.Logger) *Normalizer {
	if engine == nil {
		engine = lexicon.New()
	}
	if tok == nil {
		tok = tokenizer.New()
	}
	if threshold <= 0 {
		threshold = lexicon.DefaultEditIntensity
	}
	return &Normalizer{engine: engine, tokenizer: tok, threshold: threshold, logger: utils.OrNop(logger)}
}

// Threshold returns the default edit intensity.
func (n *Normalizer) Threshold() float64 {
	return n.threshold
}

func (n *Normalizer) resolve(threshold float64) float64 {
	if threshold <= 0 {
		return n.threshold
	}
	return threshold
}

func toResult(word string, m lexicon.Match, ok bool) models.MatchResult {
	if !ok {
		return models.MatchResult{Word: word}
	}
	return models.MatchResult{Word: word, Matched: true, Keyword: m.Keyword, Leven: m.Leven, Cosine: m.Cosine}
}

// Match returns the nearest keyword for word when it is within threshold.
func (n *Normalizer) Match(word string, threshold float64) models.MatchResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.engine.Match(word, n.resolve(threshold))
	return toResult(word, m, ok)
}

// MatchAll matches each word in order.
func (n *Normalizer) MatchAll(words []string, threshold float64) []models.MatchResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	threshold = n.resolve(threshold)
	out := make([]models.MatchResult, len(words))
	for i, w := range words {
		m, ok := n.engine.Match(w, threshold)
		out[i] = toResult(w, m, ok)
	}
	return out
}

// Lookup returns the stored record for word without inserting it.
func (n *Normalizer) Lookup(word string) (models.LexiconEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	m, ok := n.engine.Lookup(word)
	if !ok {
		return models.LexiconEntry{}, false
	}
	return models.LexiconEntry{Word: word, Keyword: m.Keyword, Cosine: m.Cosine, Leven: m.Leven}, true
}

// AddWords inserts observed words and returns how many were new.
func (n *Normalizer) AddWords(words []string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.AddWords(words)
}

// AddKeywords inserts keywords and returns how many were new.
func (n *Normalizer) AddKeywords(keywords []string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	added := n.engine.AddKeywords(keywords)
	if added > 0 {
		n.logger.Info("keywords added",
			zap.Int("added", added),
			zap.Int("keywords", n.engine.KeywordCount()),
			zap.Int("words", n.engine.Len()))
	}
	return added
}

// SetKeywords replaces the keyword set and recomputes every record.
func (n *Normalizer) SetKeywords(keywords []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.SetKeywords(keywords)
	n.logger.Info("keywords replaced", zap.Int("keywords", n.engine.KeywordCount()))
}

// Keywords returns the keyword set, including the empty keyword.
func (n *Normalizer) Keywords() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Keywords()
}

// Tokens tokenizes text without touching the lexicon.
func (n *Normalizer) Tokens(text string) []string {
	return n.tokenizer.Tokens(text)
}

// NormalizeText tokenizes text and replaces every token that matches a non-empty keyword.
func (n *Normalizer) NormalizeText(text string, threshold float64) *models.NormalizeResult {
	tokens := n.tokenizer.Tokens(text)

	n.mu.Lock()
	defer n.mu.Unlock()
	threshold = n.resolve(threshold)
	res := &models.NormalizeResult{
		Text:       text,
		Tokens:     tokens,
		Normalized: make([]string, len(tokens)),
		Matches:    make([]models.MatchResult, len(tokens)),
		Threshold:  threshold,
	}
	for i, tok := range tokens {
		m, ok := n.engine.Match(tok, threshold)
		res.Matches[i] = toResult(tok, m, ok)
		if ok && m.Keyword != "" {
			res.Normalized[i] = m.Keyword
		} else {
			res.Normalized[i] = tok
		}
	}
	res.Sequence = tokenizer.Join(res.Normalized)
	return res
}

// Stats returns the word and keyword counts. The keyword count includes the empty keyword.
func (n *Normalizer) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Stats{Words: n.engine.Len(), Keywords: n.engine.KeywordCount()}
}

// Save persists a lexicon snapshot: every record together with the keyword set it was
// computed against. Keywords are merged into the stored set, never removed from it.
func (n *Normalizer) Save(ctx context.Context, store storage.Storage) error {
	n.mu.Lock()
	keywords := n.engine.Keywords()
	entries := n.engine.Entries()
	n.mu.Unlock()

	rows := make([]models.LexiconEntry, 0, len(entries))
	for w, m := range entries {
		rows = append(rows, models.LexiconEntry{Word: w, Keyword: m.Keyword, Cosine: m.Cosine, Leven: m.Leven})
	}
	if err := store.SaveLexicon(ctx, keywords, rows); err != nil {
		return fmt.Errorf("save lexicon: %w", err)
	}
	n.logger.Debug("lexicon saved", zap.Int("keywords", len(keywords)), zap.Int("words", len(rows)))
	return nil
}

// Load replaces the engine state with the stored keywords and the saved lexicon snapshot.
// Records are re-scored against stored keywords the snapshot was not computed against.
func (n *Normalizer) Load(ctx context.Context, store storage.Storage) error {
	keywords, err := store.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("load keywords: %w", err)
	}
	scored, rows, err := store.LoadLexicon(ctx)
	if err != nil {
		return fmt.Errorf("load lexicon: %w", err)
	}
	entries := make(map[string]lexicon.Match, len(rows))
	for _, r := range rows {
		entries[r.Word] = lexicon.Match{Keyword: r.Keyword, Cosine: r.Cosine, Leven: r.Leven}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.engine.Restore(scored, entries, keywords)
	n.logger.Info("lexicon loaded",
		zap.Int("keywords", n.engine.KeywordCount()),
		zap.Int("words", n.engine.Len()))
	return nil
}
