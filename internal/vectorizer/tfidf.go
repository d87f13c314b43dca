// Package vectorizer turns tokenized posting fields into TF-IDF feature matrices.
package vectorizer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/tokenizer"
	"github.com/hyperjump/jobnorm/pkg/utils"
)

var (
	ErrNoDocuments     = errors.New("no documents to fit")
	ErrEmptyVocabulary = errors.New("vocabulary is empty after pruning")
	ErrInvalidLimits   = errors.New("max document frequency is below min document frequency")
	ErrUnknownField    = errors.New("unknown document field")
)

// Limit bounds a document frequency either as an absolute number of documents or as a
// fraction of the corpus. The zero Limit means "use the default".
type Limit struct {
	Count    int
	Fraction float64
}

// Absolute returns a Limit of n documents.
func Absolute(n int) Limit { return Limit{Count: n} }

// Fraction returns a Limit of f times the number of documents.
func Fraction(f float64) Limit { return Limit{Fraction: f} }

// LimitOf interprets a configured limit: values below 1 are fractions, other values are
// whole document counts.
func LimitOf(v float64) Limit {
	if v <= 0 {
		return Limit{}
	}
	if v < 1 {
		return Fraction(v)
	}
	return Absolute(int(v))
}

func (l Limit) isZero() bool { return l.Count == 0 && l.Fraction == 0 }

// resolve converts l to a document count for a corpus of n documents.
func (l Limit) resolve(n int, def float64) float64 {
	switch {
	case l.isZero():
		return def
	case l.Count != 0:
		return float64(l.Count)
	default:
		return l.Fraction * float64(n)
	}
}

func (l Limit) String() string {
	if l.Count != 0 {
		return fmt.Sprintf("%d", l.Count)
	}
	return fmt.Sprintf("%g", l.Fraction)
}

// Options controls vocabulary pruning. Terms that occur in more than MaxDF documents or in
// fewer than MinDF documents are dropped.
type Options struct {
	MaxDF Limit
	MinDF Limit
}

// TFIDF is a fitted term-frequency / inverse-document-frequency model.
type TFIDF struct {
	Vocabulary map[string]int
	Terms      []string // column order
	IDF        []float64
	Options    Options
}

func terms(seq string) []string {
	tokens := tokenizer.Split(seq)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// FitSequences learns the vocabulary and IDF weights from pipe-delimited token sequences.
func FitSequences(seqs []string, opts Options) (*TFIDF, error) {
	n := len(seqs)
	if n == 0 {
		return nil, ErrNoDocuments
	}

	df := make(map[string]int)
	for _, seq := range seqs {
		seen := make(map[string]bool)
		for _, t := range terms(seq) {
			if !seen[t] {
				df[t]++
				seen[t] = true
			}
		}
	}

	maxDocs := opts.MaxDF.resolve(n, float64(n))
	minDocs := opts.MinDF.resolve(n, 1)
	if maxDocs < minDocs {
		return nil, fmt.Errorf("%w: max_df=%s min_df=%s", ErrInvalidLimits, opts.MaxDF, opts.MinDF)
	}

	kept := make([]string, 0, len(df))
	for t, c := range df {
		if float64(c) > maxDocs || float64(c) < minDocs {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return nil, ErrEmptyVocabulary
	}
	sort.Strings(kept)

	v := &TFIDF{
		Vocabulary: make(map[string]int, len(kept)),
		Terms:      kept,
		IDF:        make([]float64, len(kept)),
		Options:    opts,
	}
	for i, t := range kept {
		v.Vocabulary[t] = i
		// smooth idf: ln((1+n)/(1+df)) + 1
		v.IDF[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
	return v, nil
}

// Fit learns a model from one tokenized field of postings: "title" or "desc".
func Fit(postings []*models.Posting, field string, opts Options) (*TFIDF, error) {
	var get func(p *models.Posting) string
	switch field {
	case "title":
		get = func(p *models.Posting) string { return p.TitleSeg }
	case "desc":
		get = func(p *models.Posting) string { return p.DescSeg }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	seqs := make([]string, len(postings))
	for i, p := range postings {
		seqs[i] = get(p)
	}
	return FitSequences(seqs, opts)
}

// Len returns the vocabulary size.
func (v *TFIDF) Len() int {
	return len(v.Terms)
}

// Transform returns one L2-normalized sparse row per sequence. Tokens outside the
// vocabulary are ignored; a sequence without known tokens yields an empty row.
func (v *TFIDF) Transform(seqs []string) Matrix {
	rows := make([]Row, len(seqs))
	for i, seq := range seqs {
		counts := make(map[int]float64)
		for _, t := range terms(seq) {
			if j, ok := v.Vocabulary[t]; ok {
				counts[j]++
			}
		}
		if len(counts) == 0 {
			continue
		}
		idx := make([]int, 0, len(counts))
		for j := range counts {
			idx = append(idx, j)
		}
		sort.Ints(idx)
		vals := make([]float64, len(idx))
		for k, j := range idx {
			vals[k] = counts[j] * v.IDF[j]
		}
		utils.NormalizeL2(vals)
		rows[i] = Row{Indices: idx, Values: vals}
	}
	return NewMatrix(len(v.Terms), rows)
}
