package vectorizer

import (
	"fmt"
	"time"

	"github.com/hyperjump/jobnorm/internal/models"
)

// Version of the document vectorizer layout.
const Version = "0.001"

// Params holds the pruning options for the title and description models.
type Params struct {
	Title Options
	Desc  Options
}

// DefaultParams prunes terms found in more than 95% or fewer than 0.5% of documents.
func DefaultParams() Params {
	return Params{
		Title: Options{MaxDF: Fraction(0.95), MinDF: Fraction(0.005)},
		Desc:  Options{MaxDF: Fraction(0.95), MinDF: Fraction(0.005)},
	}
}

// DocumentVectorizer extracts features from a posting's title and description.
type DocumentVectorizer struct {
	Version string
	Created time.Time
	Title   *TFIDF
	Desc    *TFIDF
	Params  Params
}

// NewDocumentVectorizer fits title and description models on tokenized postings.
// Zero limits in params fall back to DefaultParams.
func NewDocumentVectorizer(postings []*models.Posting, params Params) (*DocumentVectorizer, error) {
	def := DefaultParams()
	fill := func(o *Options, d Options) {
		if o.MaxDF.isZero() {
			o.MaxDF = d.MaxDF
		}
		if o.MinDF.isZero() {
			o.MinDF = d.MinDF
		}
	}
	fill(&params.Title, def.Title)
	fill(&params.Desc, def.Desc)

	title, err := Fit(postings, "title", params.Title)
	if err != nil {
		return nil, fmt.Errorf("fit title vectorizer: %w", err)
	}
	desc, err := Fit(postings, "desc", params.Desc)
	if err != nil {
		return nil, fmt.Errorf("fit desc vectorizer: %w", err)
	}
	return &DocumentVectorizer{
		Version: Version,
		Created: time.Now(),
		Title:   title,
		Desc:    desc,
		Params:  params,
	}, nil
}

// Features returns the title features followed by the description features.
func (d *DocumentVectorizer) Features(postings []*models.Posting) Matrix {
	titles := make([]string, len(postings))
	descs := make([]string, len(postings))
	for i, p := range postings {
		titles[i] = p.TitleSeg
		descs[i] = p.DescSeg
	}
	return HStack(d.Title.Transform(titles), d.Desc.Transform(descs))
}
