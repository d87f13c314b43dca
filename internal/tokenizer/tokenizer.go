// Package tokenizer turns raw Thai/English posting text into pipe-delimited token sequences.
package tokenizer

import (
	"context"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/jobnorm/internal/models"
)

// Separator delimits tokens in a token sequence.
const Separator = "|"

// Tokenizer splits text into lower-cased word tokens. Runs of Thai script are kept whole;
// everything else goes through a Unicode word-boundary tokenizer.
type Tokenizer struct {
	words     analysis.Tokenizer
	lower     analysis.TokenFilter
	minLength int
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMinLength drops tokens shorter than n runes.
func WithMinLength(n int) Option {
	return func(t *Tokenizer) {
		if n > 0 {
			t.minLength = n
		}
	}
}

// New returns a Tokenizer.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{
		words:     bleveunicode.NewUnicodeTokenizer(),
		lower:     lowercase.NewLowerCaseFilter(),
		minLength: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Normalize applies NFKC normalization, drops control characters other than newline and
// tab, and trims the result.
func Normalize(text string) string {
	normed := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, norm.NFKC.String(text))
	return strings.TrimSpace(normed)
}

// IsThai reports whether r is in the Thai Unicode block.
func IsThai(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

// Tokens returns the tokens of text in order.
func (t *Tokenizer) Tokens(text string) []string {
	text = Normalize(text)
	var tokens []string
	for _, run := range splitScripts(text) {
		if run.thai {
			tokens = t.appendToken(tokens, run.text)
			continue
		}
		stream := t.lower.Filter(t.words.Tokenize([]byte(run.text)))
		for _, tok := range stream {
			tokens = t.appendToken(tokens, string(tok.Term))
		}
	}
	return tokens
}

func (t *Tokenizer) appendToken(tokens []string, tok string) []string {
	if utf8.RuneCountInString(tok) < t.minLength {
		return tokens
	}
	return append(tokens, tok)
}

// Tokenize returns the token sequence of text.
func (t *Tokenizer) Tokenize(text string) string {
	return Join(t.Tokens(text))
}

// Join builds a token sequence from tokens.
func Join(tokens []string) string {
	return strings.Join(tokens, Separator)
}

// Split returns the tokens of a token sequence, skipping empty ones.
func Split(seq string) []string {
	parts := strings.Split(seq, Separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type scriptRun struct {
	text string
	thai bool
}

// splitScripts cuts text into maximal Thai and non-Thai runs. Whitespace ends a Thai run.
func splitScripts(text string) []scriptRun {
	var runs []scriptRun
	start := 0
	inThai := false
	for i, r := range text {
		thai := IsThai(r)
		if thai == inThai {
			continue
		}
		if i > start {
			runs = append(runs, scriptRun{text: text[start:i], thai: inThai})
		}
		start = i
		inThai = thai
	}
	if start < len(text) {
		runs = append(runs, scriptRun{text: text[start:], thai: inThai})
	}
	return runs
}

// TokenizeDocuments fills TitleSeg and DescSeg of every posting. Postings are processed in
// chunks of chunkSize spread over workers goroutines. It stops early when ctx is done.
func (t *Tokenizer) TokenizeDocuments(ctx context.Context, postings []*models.Posting, workers, chunkSize int) error {
	if workers <= 0 {
		workers = 1
	}
	if chunkSize <= 0 {
		chunkSize = 100
	}

	chunks := make(chan []*models.Posting)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range chunks {
				for _, p := range chunk {
					p.TitleSeg = t.Tokenize(p.Title)
					p.DescSeg = t.Tokenize(p.Desc)
				}
			}
		}()
	}

	var err error
feed:
	for start := 0; start < len(postings); start += chunkSize {
		if err = ctx.Err(); err != nil {
			break
		}
		end := start + chunkSize
		if end > len(postings) {
			end = len(postings)
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case chunks <- postings[start:end]:
		}
	}
	close(chunks)
	wg.Wait()
	return err
}
