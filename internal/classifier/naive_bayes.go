// Package classifier assigns labels to postings with an ensemble of binary naive Bayes models.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/jobnorm/internal/vectorizer"
)

var (
	ErrEmptyInput      = errors.New("no samples to fit")
	ErrShapeMismatch   = errors.New("samples and labels differ in length")
	ErrNegativeFeature = errors.New("multinomial features must be non-negative")
)

// NaiveBayes is a multinomial naive Bayes classifier with Laplace smoothing.
//
// When Cutoff is set, Predict assigns each row the last class (in class order) whose
// probability exceeds that class's cutoff, or "" when none does. Classes without a cutoff
// are never assigned in that mode.
type NaiveBayes struct {
	Alpha  float64
	Cutoff map[string]float64

	classes        []string
	classLogPrior  []float64
	featureLogProb [][]float64
}

// NewNaiveBayes returns an unfitted classifier with Alpha 1.
func NewNaiveBayes(cutoff map[string]float64) *NaiveBayes {
	return &NaiveBayes{Alpha: 1, Cutoff: cutoff}
}

// Classes returns the sorted class labels seen by Fit.
func (nb *NaiveBayes) Classes() []string {
	return append([]string(nil), nb.classes...)
}

// Fit estimates class priors and per-class feature distributions.
func (nb *NaiveBayes) Fit(x vectorizer.Matrix, y []string) error {
	if x.Rows() == 0 {
		return ErrEmptyInput
	}
	if x.Rows() != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrShapeMismatch, x.Rows(), len(y))
	}
	width := x.Cols()

	index := make(map[string]int)
	for _, label := range y {
		index[label] = 0
	}
	classes := make([]string, 0, len(index))
	for label := range index {
		classes = append(classes, label)
	}
	sort.Strings(classes)
	for i, c := range classes {
		index[c] = i
	}

	classCount := make([]float64, len(classes))
	featureCount := make([][]float64, len(classes))
	for i := range featureCount {
		featureCount[i] = make([]float64, width)
	}
	for r := 0; r < x.Rows(); r++ {
		row := x.Row(r)
		c := index[y[r]]
		classCount[c]++
		for k, j := range row.Indices {
			v := row.Values[k]
			if v < 0 {
				return fmt.Errorf("%w: row %d column %d", ErrNegativeFeature, r, j)
			}
			featureCount[c][j] += v
		}
	}

	alpha := nb.Alpha
	if alpha <= 0 {
		alpha = 1
	}
	nb.classes = classes
	nb.classLogPrior = make([]float64, len(classes))
	nb.featureLogProb = make([][]float64, len(classes))
	total := float64(len(y))
	for c := range classes {
		nb.classLogPrior[c] = math.Log(classCount[c]) - math.Log(total)
		var sum float64
		for _, v := range featureCount[c] {
			sum += v + alpha
		}
		logSum := math.Log(sum)
		flp := make([]float64, width)
		for j, v := range featureCount[c] {
			flp[j] = math.Log(v+alpha) - logSum
		}
		nb.featureLogProb[c] = flp
	}
	return nil
}

// PredictProba returns, per row, the posterior probability of each class in Classes order.
// Features beyond the fitted width are ignored.
func (nb *NaiveBayes) PredictProba(x vectorizer.Matrix) [][]float64 {
	out := make([][]float64, x.Rows())
	for r := range out {
		row := x.Row(r)
		jll := make([]float64, len(nb.classes))
		for c := range nb.classes {
			s := nb.classLogPrior[c]
			flp := nb.featureLogProb[c]
			for k, j := range row.Indices {
				if j < len(flp) {
					s += row.Values[k] * flp[j]
				}
			}
			jll[c] = s
		}
		norm := logSumExp(jll)
		for c := range jll {
			jll[c] = math.Exp(jll[c] - norm)
		}
		out[r] = jll
	}
	return out
}

// Predict returns one label per row.
func (nb *NaiveBayes) Predict(x vectorizer.Matrix) []string {
	proba := nb.PredictProba(x)
	out := make([]string, len(proba))
	for r, p := range proba {
		if nb.Cutoff != nil {
			for c, class := range nb.classes {
				if cut, ok := nb.Cutoff[class]; ok && p[c] > cut {
					out[r] = class
				}
			}
			continue
		}
		best := 0
		for c := range p {
			if p[c] > p[best] {
				best = c
			}
		}
		if len(p) > 0 {
			out[r] = nb.classes[best]
		}
	}
	return out
}

func logSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	if math.IsInf(m, -1) {
		return m
	}
	var s float64
	for _, v := range xs {
		s += math.Exp(v - m)
	}
	return m + math.Log(s)
}
