package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/hyperjump/jobnorm/internal/vectorizer"
)

// NoneLabel is the default prediction; its probability is the ensemble threshold.
const NoneLabel = "None"

// Version of the ensemble layout.
const Version = "0.001"

// DefaultThreshold is the probability a label must beat to be predicted.
const DefaultThreshold = 0.5

// testFraction is the share of balanced samples held out for the training report.
const testFraction = 0.3

var (
	ErrNotBinary   = errors.New("model must have exactly two classes")
	ErrNoPositive  = errors.New("no positive samples")
	ErrNoNegative  = errors.New("no negative samples")
	ErrNoExtractor = errors.New("ensemble has no feature extractor")
)

// Model is a fitted probabilistic classifier.
type Model interface {
	Classes() []string
	PredictProba(x vectorizer.Matrix) [][]float64
}

// FeatureExtractor turns postings into feature rows.
type FeatureExtractor interface {
	Features(postings []*models.Posting) vectorizer.Matrix
}

// NegativeLabel returns the label used for the negative class of a binary model. The "!"
// prefix sorts before letters and digits, so the positive class is always Classes()[1].
func NegativeLabel(pos string) string {
	return "!" + pos
}

// Ensemble combines one binary model per label. A posting may score high for several
// labels; PredictDocument picks the single most probable one.
type Ensemble struct {
	Version string
	Created time.Time

	extractor FeatureExtractor
	models    map[string]Model
	logger    *zap.Logger
}

// NewEnsemble returns an empty ensemble that extracts features with fx.
func NewEnsemble(fx FeatureExtractor, logger *zap.Logger) *Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{
		Version:   Version,
		Created:   time.Now(),
		extractor: fx,
		models:    make(map[string]Model),
		logger:    logger,
	}
}

// Append adds a binary model under its positive label, replacing any model already
// registered for that label.
func (e *Ensemble) Append(m Model) error {
	classes := m.Classes()
	if len(classes) != 2 {
		return fmt.Errorf("%w: got %v", ErrNotBinary, classes)
	}
	label := classes[1]
	if _, ok := e.models[label]; ok {
		e.logger.Warn("replacing classifier", zap.String("label", label))
	}
	e.models[label] = m
	return nil
}

// Pop removes the model for label and reports whether one was present.
func (e *Ensemble) Pop(label string) bool {
	if _, ok := e.models[label]; !ok {
		return false
	}
	delete(e.models, label)
	return true
}

// Labels returns the positive labels of all models, sorted.
func (e *Ensemble) Labels() []string {
	labels := make([]string, 0, len(e.models))
	for l := range e.models {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// PredictDocument scores p with every model. probs holds NoneLabel mapped to thres plus
// each label's positive probability; label is the entry with the strictly highest
// probability, NoneLabel winning ties.
func (e *Ensemble) PredictDocument(p *models.Posting, thres float64) (label string, probs map[string]float64) {
	predicted := e.predict([]*models.Posting{p}, thres)
	return predicted[0].PredictedLabel, predicted[0].Predicted
}

// PredictDocuments returns copies of postings with Predicted and PredictedLabel set.
func (e *Ensemble) PredictDocuments(postings []*models.Posting, thres float64) []*models.Posting {
	return e.predict(postings, thres)
}

func (e *Ensemble) predict(postings []*models.Posting, thres float64) []*models.Posting {
	out := make([]*models.Posting, len(postings))
	for i, p := range postings {
		out[i] = p.Clone()
		out[i].Predicted = map[string]float64{NoneLabel: thres}
		out[i].PredictedLabel = NoneLabel
	}
	labels := e.Labels()
	if len(postings) == 0 || len(labels) == 0 || e.extractor == nil {
		return out
	}

	x := e.extractor.Features(postings)
	for _, label := range labels {
		proba := e.models[label].PredictProba(x)
		for i := range out {
			prob := proba[i][1]
			out[i].Predicted[label] = prob
			if prob > out[i].Predicted[out[i].PredictedLabel] {
				out[i].PredictedLabel = label
			}
		}
	}
	return out
}

// Train fits nb as a one-vs-rest model for posLabel. Postings labelled posLabel are
// positives, all others negatives. The larger side is randomly downsampled to the size of
// the smaller one. A 70/30 split of the balanced set produces the returned report, then nb
// is refitted on the whole balanced set. A nil nb trains a fresh NaiveBayes; a nil rng
// uses a time-seeded source. The input postings are not modified.
func (e *Ensemble) Train(postings []*models.Posting, posLabel string, nb *NaiveBayes, rng *rand.Rand) (*NaiveBayes, *Report, error) {
	if e.extractor == nil {
		return nil, nil, ErrNoExtractor
	}
	if nb == nil {
		nb = NewNaiveBayes(nil)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var pos, neg []*models.Posting
	for _, p := range postings {
		if p.Label == posLabel {
			pos = append(pos, p)
		} else {
			neg = append(neg, p)
		}
	}
	if len(pos) == 0 {
		return nil, nil, fmt.Errorf("%w for label %q", ErrNoPositive, posLabel)
	}
	if len(neg) == 0 {
		return nil, nil, fmt.Errorf("%w for label %q", ErrNoNegative, posLabel)
	}

	if len(pos) > len(neg) {
		pos = sample(rng, pos, len(neg))
	} else if len(neg) > len(pos) {
		neg = sample(rng, neg, len(pos))
	}

	docs := make([]*models.Posting, 0, len(pos)+len(neg))
	labels := make([]string, 0, cap(docs))
	for _, p := range pos {
		docs = append(docs, p)
		labels = append(labels, posLabel)
	}
	for _, p := range neg {
		c := p.Clone()
		c.Label = NegativeLabel(posLabel)
		docs = append(docs, c)
		labels = append(labels, c.Label)
	}

	x := e.extractor.Features(docs)

	perm := rng.Perm(len(docs))
	nTest := int(math.Ceil(testFraction * float64(len(docs))))
	testIdx, trainIdx := perm[:nTest], perm[nTest:]
	xTrain, yTrain := subset(x, labels, trainIdx)
	xTest, yTest := subset(x, labels, testIdx)

	if err := nb.Fit(xTrain, yTrain); err != nil {
		return nil, nil, fmt.Errorf("fit training split: %w", err)
	}
	report := NewReport(yTest, nb.Predict(xTest))
	e.logger.Info("classifier test report",
		zap.String("label", posLabel),
		zap.Int("samples", len(docs)),
		zap.Int("test", nTest),
		zap.Float64("accuracy", report.Accuracy))
	for _, c := range report.Classes {
		e.logger.Debug("class report",
			zap.String("class", c.Label),
			zap.Float64("precision", c.Precision),
			zap.Float64("recall", c.Recall),
			zap.Float64("f1", c.F1),
			zap.Int("support", c.Support))
	}

	if err := nb.Fit(x, labels); err != nil {
		return nil, nil, fmt.Errorf("fit full set: %w", err)
	}
	return nb, report, nil
}

// sample picks size items without replacement, keeping their original order.
func sample(rng *rand.Rand, items []*models.Posting, size int) []*models.Posting {
	idx := rng.Perm(len(items))[:size]
	sort.Ints(idx)
	out := make([]*models.Posting, size)
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func subset(x vectorizer.Matrix, y []string, idx []int) (vectorizer.Matrix, []string) {
	ys := make([]string, len(idx))
	for i, j := range idx {
		ys[i] = y[j]
	}
	return x.Select(idx), ys
}
