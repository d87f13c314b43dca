package vectorizer

import (
	"fmt"
	"sort"
)

// Row is a sparse feature vector. Indices are strictly increasing and Values[k] is the
// value at column Indices[k]; absent columns are zero.
type Row struct {
	Indices []int
	Values  []float64
}

// At returns the value at column j.
func (r Row) At(j int) float64 {
	k := sort.SearchInts(r.Indices, j)
	if k < len(r.Indices) && r.Indices[k] == j {
		return r.Values[k]
	}
	return 0
}

// Dense expands r to a slice of the given width.
func (r Row) Dense(width int) []float64 {
	out := make([]float64, width)
	for k, j := range r.Indices {
		out[j] = r.Values[k]
	}
	return out
}

// Matrix is a sparse row-major feature matrix with a fixed number of columns.
type Matrix struct {
	rows  []Row
	width int
}

// NewMatrix returns a matrix of width columns over rows. Every row index must be below
// width.
func NewMatrix(width int, rows []Row) Matrix {
	for i, r := range rows {
		if len(r.Indices) != len(r.Values) {
			panic(fmt.Sprintf("vectorizer: row %d has %d indices and %d values", i, len(r.Indices), len(r.Values)))
		}
		if n := len(r.Indices); n > 0 && r.Indices[n-1] >= width {
			panic(fmt.Sprintf("vectorizer: row %d column %d out of range %d", i, r.Indices[n-1], width))
		}
	}
	return Matrix{rows: rows, width: width}
}

// FromDense builds a matrix from dense rows, dropping zeros. All rows must have the same
// length.
func FromDense(dense [][]float64) Matrix {
	width := 0
	if len(dense) > 0 {
		width = len(dense[0])
	}
	rows := make([]Row, len(dense))
	for i, d := range dense {
		if len(d) != width {
			panic(fmt.Sprintf("vectorizer: dense row %d has %d columns, want %d", i, len(d), width))
		}
		for j, v := range d {
			if v != 0 {
				rows[i].Indices = append(rows[i].Indices, j)
				rows[i].Values = append(rows[i].Values, v)
			}
		}
	}
	return Matrix{rows: rows, width: width}
}

// Rows returns the number of rows.
func (m Matrix) Rows() int { return len(m.rows) }

// Cols returns the number of columns.
func (m Matrix) Cols() int { return m.width }

// Row returns row i.
func (m Matrix) Row(i int) Row { return m.rows[i] }

// NonZero returns the number of stored entries.
func (m Matrix) NonZero() int {
	n := 0
	for _, r := range m.rows {
		n += len(r.Indices)
	}
	return n
}

// Dense expands the matrix to rows of Cols() values.
func (m Matrix) Dense() [][]float64 {
	out := make([][]float64, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.Dense(m.width)
	}
	return out
}

// Select returns the rows at idx, in that order. Rows are shared, not copied.
func (m Matrix) Select(idx []int) Matrix {
	rows := make([]Row, len(idx))
	for i, j := range idx {
		rows[i] = m.rows[j]
	}
	return Matrix{rows: rows, width: m.width}
}

// HStack joins matrices side by side. All inputs must have the same number of rows.
func HStack(ms ...Matrix) Matrix {
	if len(ms) == 0 {
		return Matrix{}
	}
	n := ms[0].Rows()
	for _, m := range ms {
		if m.Rows() != n {
			panic(fmt.Sprintf("vectorizer: HStack row mismatch: %d vs %d", m.Rows(), n))
		}
	}
	rows := make([]Row, n)
	width := 0
	for _, m := range ms {
		for i, r := range m.rows {
			for k, j := range r.Indices {
				rows[i].Indices = append(rows[i].Indices, j+width)
				rows[i].Values = append(rows[i].Values, r.Values[k])
			}
		}
		width += m.width
	}
	return Matrix{rows: rows, width: width}
}
