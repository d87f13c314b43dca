package vectorizer

import (
	"math"
	"testing"

	"github.com/hyperjump/jobnorm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowNorm(row []float64) float64 {
	var s float64
	for _, v := range row {
		s += v * v
	}
	return math.Sqrt(s)
}

func TestFitSequences_vocabularyAndIDF(t *testing.T) {
	v, err := FitSequences([]string{"a|b", "A|c", "a"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, v.Terms)
	assert.Equal(t, 3, v.Len())
	assert.InDelta(t, 1.0, v.IDF[0], 1e-12)
	assert.InDelta(t, 1+math.Log(2), v.IDF[1], 1e-12)
	assert.InDelta(t, 1+math.Log(2), v.IDF[2], 1e-12)
}

func TestTransform_rowsAreNormalized(t *testing.T) {
	v, err := FitSequences([]string{"a|b", "a|c", "a"}, Options{})
	require.NoError(t, err)

	x := v.Transform([]string{"a|b", "b|b|c", "unknown", ""})
	require.Equal(t, 4, x.Rows())
	assert.Equal(t, 3, x.Cols())
	assert.Equal(t, 4, x.NonZero())
	m := x.Dense()

	assert.InDelta(t, 1.0, rowNorm(m[0]), 1e-12)
	assert.InDelta(t, 1.0, rowNorm(m[1]), 1e-12)
	assert.InDelta(t, (1+math.Log(2))/1, m[0][1]/m[0][0], 1e-12)
	assert.Equal(t, 0.0, m[0][2])
	assert.InDelta(t, 2.0, m[1][1]/m[1][2], 1e-12)

	assert.Equal(t, []float64{0, 0, 0}, m[2], "unknown tokens are ignored")
	assert.Equal(t, []float64{0, 0, 0}, m[3])
}

func TestFitSequences_pruning(t *testing.T) {
	seqs := []string{"a|b", "a|c", "a|b"}

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"defaults keep all", Options{}, []string{"a", "b", "c"}},
		{"absolute max", Options{MaxDF: Absolute(2)}, []string{"b", "c"}},
		{"fraction max", Options{MaxDF: Fraction(0.7)}, []string{"b", "c"}},
		{"absolute min", Options{MinDF: Absolute(2)}, []string{"a", "b"}},
		{"fraction min", Options{MinDF: Fraction(0.5)}, []string{"a", "b"}},
		{"both", Options{MaxDF: Absolute(2), MinDF: Absolute(2)}, []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := FitSequences(seqs, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Terms)
		})
	}
}

func TestFitSequences_errors(t *testing.T) {
	_, err := FitSequences(nil, Options{})
	assert.ErrorIs(t, err, ErrNoDocuments)

	_, err = FitSequences([]string{"a", "b"}, Options{MaxDF: Absolute(1), MinDF: Absolute(2)})
	assert.ErrorIs(t, err, ErrInvalidLimits)

	_, err = FitSequences([]string{"a", "b"}, Options{MinDF: Absolute(2)})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = FitSequences([]string{"", "|"}, Options{})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestFit_selectsField(t *testing.T) {
	postings := []*models.Posting{
		{TitleSeg: "engineer", DescSeg: "design|build"},
		{TitleSeg: "manager", DescSeg: "lead"},
	}

	title, err := Fit(postings, "title", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"engineer", "manager"}, title.Terms)

	desc, err := Fit(postings, "desc", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "design", "lead"}, desc.Terms)

	_, err = Fit(postings, "salary", Options{})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFit_unknownFieldWithoutPostings(t *testing.T) {
	_, err := Fit(nil, "bogus", Options{})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = Fit(nil, "title", Options{})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestMatrix_sparseRows(t *testing.T) {
	m := FromDense([][]float64{{0, 2, 0}, {0, 0, 0}, {1, 0, 3}})
	assert.Equal(t, 3, m.Rows())
	assert.Equal(t, 3, m.Cols())
	assert.Equal(t, 3, m.NonZero())
	assert.Equal(t, Row{Indices: []int{1}, Values: []float64{2}}, m.Row(0))
	assert.Empty(t, m.Row(1).Indices)
	assert.Equal(t, 3.0, m.Row(2).At(2))
	assert.Equal(t, 0.0, m.Row(2).At(1))
	assert.Equal(t, [][]float64{{0, 2, 0}, {0, 0, 0}, {1, 0, 3}}, m.Dense())

	sel := m.Select([]int{2, 0})
	assert.Equal(t, [][]float64{{1, 0, 3}, {0, 2, 0}}, sel.Dense())

	assert.Panics(t, func() { FromDense([][]float64{{1, 2}, {1}}) })
	assert.Panics(t, func() { NewMatrix(2, []Row{{Indices: []int{2}, Values: []float64{1}}}) })
	assert.Panics(t, func() { NewMatrix(2, []Row{{Indices: []int{0}}}) })
}

func TestHStack(t *testing.T) {
	a := FromDense([][]float64{{1, 2}, {3, 0}})
	b := FromDense([][]float64{{5}, {6}})
	got := HStack(a, b)
	assert.Equal(t, 3, got.Cols())
	assert.Equal(t, [][]float64{{1, 2, 5}, {3, 0, 6}}, got.Dense())
	assert.Equal(t, 0, HStack().Rows())

	assert.Panics(t, func() { HStack(a, FromDense([][]float64{{1}})) })
}

func TestDocumentVectorizer(t *testing.T) {
	postings := []*models.Posting{
		{TitleSeg: "software|engineer", DescSeg: "write|code"},
		{TitleSeg: "sales|manager", DescSeg: "lead|team"},
		{TitleSeg: "engineer", DescSeg: "build|code"},
	}

	dv, err := NewDocumentVectorizer(postings, Params{})
	require.NoError(t, err)
	assert.Equal(t, Version, dv.Version)
	assert.Equal(t, DefaultParams(), dv.Params)
	assert.Equal(t, 4, dv.Title.Len())
	assert.Equal(t, 5, dv.Desc.Len())

	x := dv.Features(postings)
	require.Equal(t, 3, x.Rows())
	assert.Equal(t, 9, x.Cols())
	for _, row := range x.Dense() {
		// Two unit-norm blocks side by side.
		assert.InDelta(t, math.Sqrt2, rowNorm(row), 1e-12)
	}
}

func TestNewDocumentVectorizer_propagatesErrors(t *testing.T) {
	_, err := NewDocumentVectorizer(nil, Params{})
	assert.ErrorIs(t, err, ErrNoDocuments)

	postings := []*models.Posting{{TitleSeg: "engineer"}}
	_, err = NewDocumentVectorizer(postings, Params{})
	assert.ErrorIs(t, err, ErrEmptyVocabulary, "desc has no tokens")
}

func TestLimitOf(t *testing.T) {
	assert.Equal(t, Fraction(0.95), LimitOf(0.95))
	assert.Equal(t, Absolute(1), LimitOf(1))
	assert.Equal(t, Absolute(5), LimitOf(5.7))
	assert.Equal(t, Limit{}, LimitOf(0))
	assert.Equal(t, Limit{}, LimitOf(-2))
}
