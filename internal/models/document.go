// Package models defines the data structures shared by the importer, storage, server and CLI.
package models

import "time"

// Posting is a job posting restructured into canonical fields.
// TitleSeg and DescSeg hold the pipe-delimited token sequences of Title and Desc.
type Posting struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Company       string `json:"company"`
	Title         string `json:"title"`
	Desc          string `json:"desc"`
	Qualification string `json:"qualification"`
	Location      string `json:"location"`
	Experience    string `json:"experience"`
	Age           string `json:"age"`
	Amount        string `json:"amount"`
	Benefits      string `json:"benefits"`
	Salary        string `json:"salary"`
	Gender        string `json:"gender"`

	TitleSeg string `json:"title_seg,omitempty"`
	DescSeg  string `json:"desc_seg,omitempty"`

	// Label is the training label; empty for unlabeled postings.
	Label string `json:"label,omitempty"`
	// Predicted maps each label (plus "None") to its probability.
	Predicted      map[string]float64 `json:"predicted,omitempty"`
	PredictedLabel string             `json:"predicted_label,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Clone returns a copy of p that shares no maps with it.
func (p *Posting) Clone() *Posting {
	c := *p
	if p.Predicted != nil {
		c.Predicted = make(map[string]float64, len(p.Predicted))
		for k, v := range p.Predicted {
			c.Predicted[k] = v
		}
	}
	return &c
}

// LexiconEntry is the persisted form of one lexicon record.
type LexiconEntry struct {
	Word    string  `json:"word" db:"word"`
	Keyword string  `json:"keyword" db:"keyword"`
	Cosine  float64 `json:"cosine" db:"cosine"`
	Leven   int     `json:"leven" db:"leven"`
}
