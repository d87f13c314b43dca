package models

import "fmt"

// MatchRequest asks for the nearest keyword of each word.
type MatchRequest struct {
	Word      string   `json:"word,omitempty"`
	Words     []string `json:"words,omitempty"`
	Threshold float64  `json:"threshold,omitempty"` // edit intensity; 0 means the server default
}

// Validate folds Word into Words and rejects empty requests.
func (q *MatchRequest) Validate() error {
	if q.Word != "" {
		q.Words = append([]string{q.Word}, q.Words...)
		q.Word = ""
	}
	if len(q.Words) == 0 {
		return fmt.Errorf("words cannot be empty")
	}
	if q.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	return nil
}

// NormalizeRequest asks for text to be tokenized and mapped onto keywords.
type NormalizeRequest struct {
	Text      string  `json:"text"`
	Threshold float64 `json:"threshold,omitempty"`
}

// Validate rejects empty text and negative thresholds.
func (q *NormalizeRequest) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("text cannot be empty")
	}
	if q.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative")
	}
	return nil
}

// TokenizeRequest asks for text to be tokenized.
type TokenizeRequest struct {
	Text string `json:"text"`
}

// KeywordsRequest adds keywords to the vocabulary.
type KeywordsRequest struct {
	Keywords []string `json:"keywords"`
}

// WordsRequest adds observed words to the lexicon.
type WordsRequest struct {
	Words []string `json:"words"`
}
