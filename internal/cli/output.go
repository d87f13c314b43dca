// Package cli provides output helpers for the jobnorm command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("invalid output format %q (want text or json)", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteMatchResults writes match results to w in the given format.
func WriteMatchResults(w io.Writer, response *models.MatchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, response)
	}
	matched := 0
	for _, r := range response.Results {
		if r.Matched {
			matched++
		}
	}
	fmt.Fprintf(w, "%d of %d words matched (edit intensity < %g)\n\n", matched, len(response.Results), response.Threshold)
	for _, r := range response.Results {
		writeOneMatch(w, r)
	}
	return nil
}

func writeOneMatch(w io.Writer, r models.MatchResult) {
	switch {
	case !r.Matched:
		fmt.Fprintf(w, "%s\t-\n", r.Word)
	case r.Keyword == "":
		fmt.Fprintf(w, "%s\t(none)\tleven=%d\n", r.Word, r.Leven)
	default:
		fmt.Fprintf(w, "%s\t%s\tleven=%d cosine=%.4f\n", r.Word, r.Keyword, r.Leven, r.Cosine)
	}
}

// WriteNormalizeResult writes a normalized text to w in the given format.
func WriteNormalizeResult(w io.Writer, res *models.NormalizeResult, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, res)
	}
	fmt.Fprintf(w, "Text: %s\n", utils.TruncateWords(res.Text, 30))
	fmt.Fprintf(w, "Tokens: %s\n", strings.Join(res.Tokens, "|"))
	fmt.Fprintf(w, "Normalized: %s\n", res.Sequence)
	for i, m := range res.Matches {
		if m.Matched && m.Keyword != "" && res.Normalized[i] != m.Word {
			fmt.Fprintf(w, "  %s -> %s (leven=%d)\n", m.Word, m.Keyword, m.Leven)
		}
	}
	return nil
}

// WriteKeywords writes a keyword list, one per line in text format.
func WriteKeywords(w io.Writer, keywords []string, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"keywords": keywords, "count": len(keywords)})
	}
	for _, k := range keywords {
		fmt.Fprintln(w, utils.Truncate(k, 80))
	}
	return nil
}
