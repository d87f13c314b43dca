package models

// MatchResult is the outcome of matching one word. Keyword, Leven and Cosine are only
// meaningful when Matched is true.
type MatchResult struct {
	Word    string  `json:"word"`
	Matched bool    `json:"matched"`
	Keyword string  `json:"keyword,omitempty"`
	Leven   int     `json:"leven,omitempty"`
	Cosine  float64 `json:"cosine,omitempty"`
}

// MatchResponse is the response for a match request.
type MatchResponse struct {
	Results   []MatchResult `json:"results"`
	Threshold float64       `json:"threshold"`
}

// NormalizeResult is text after tokenization and keyword substitution.
type NormalizeResult struct {
	Text       string        `json:"text"`
	Tokens     []string      `json:"tokens"`
	Normalized []string      `json:"normalized"`
	Sequence   string        `json:"sequence"` // Normalized joined with "|"
	Matches    []MatchResult `json:"matches"`
	Threshold  float64       `json:"threshold"`
}

// TokenizeResult is the response for a tokenize request.
type TokenizeResult struct {
	Tokens   []string `json:"tokens"`
	Sequence string   `json:"sequence"`
}
