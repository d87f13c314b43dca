package classifier

import (
	"fmt"
	"sort"
	"strings"
)

// ClassReport holds per-class scores on a held-out set.
type ClassReport struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes predictions against true labels.
type Report struct {
	Classes  []ClassReport `json:"classes"`
	Accuracy float64       `json:"accuracy"`
	Support  int           `json:"support"`
}

// NewReport scores predicted against truth. Classes are the sorted union of both label
// sets; an empty prediction counts as wrong and is not reported as a class. Undefined
// ratios are 0.
func NewReport(truth, predicted []string) *Report {
	seen := make(map[string]bool)
	tp := make(map[string]int)
	predCount := make(map[string]int)
	trueCount := make(map[string]int)
	correct := 0
	for i, t := range truth {
		p := predicted[i]
		seen[t] = true
		trueCount[t]++
		if p != "" {
			seen[p] = true
			predCount[p]++
		}
		if p == t {
			tp[t]++
			correct++
		}
	}

	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	r := &Report{Support: len(truth)}
	if len(truth) > 0 {
		r.Accuracy = float64(correct) / float64(len(truth))
	}
	for _, l := range labels {
		c := ClassReport{Label: l, Support: trueCount[l]}
		c.Precision = ratio(tp[l], predCount[l])
		c.Recall = ratio(tp[l], trueCount[l])
		if c.Precision+c.Recall > 0 {
			c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		r.Classes = append(r.Classes, c)
	}
	return r
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %9s %9s %9s %9s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%-24s %9.2f %9.2f %9.2f %9d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%-24s %9s %9s %9.2f %9d\n", "accuracy", "", "", r.Accuracy, r.Support)
	return b.String()
}
