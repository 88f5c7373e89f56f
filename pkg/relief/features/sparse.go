package features

import "sort"

// Vector is a sparse row. Indices are strictly increasing column numbers and
// Values holds the matching non-zero entries.
type Vector struct {
	Indices []int
	Values  []float64
}

// At returns the value at column j (zero when absent).
func (v Vector) At(j int) float64 {
	k := sort.SearchInts(v.Indices, j)
	if k < len(v.Indices) && v.Indices[k] == j {
		return v.Values[k]
	}
	return 0
}

// NNZ returns the number of stored entries.
func (v Vector) NNZ() int {
	return len(v.Indices)
}

// Matrix is a row-major sparse matrix.
type Matrix struct {
	Rows []Vector
	Cols int
}

// Len returns the number of rows.
func (m Matrix) Len() int {
	return len(m.Rows)
}

// Subset returns the rows at idx, in order. Rows are shared, not copied.
func (m Matrix) Subset(idx []int) Matrix {
	rows := make([]Vector, len(idx))
	for i, r := range idx {
		rows[i] = m.Rows[r]
	}
	return Matrix{Rows: rows, Cols: m.Cols}
}

// Dense expands the matrix; intended for small matrices and tests.
func (m Matrix) Dense() [][]float64 {
	out := make([][]float64, len(m.Rows))
	for i, row := range m.Rows {
		out[i] = make([]float64, m.Cols)
		for k, j := range row.Indices {
			out[i][j] = row.Values[k]
		}
	}
	return out
}

// Column is one feature's non-zero entries across rows, in row order.
type Column struct {
	Rows   []int
	Values []float64
}

// Columns transposes the matrix into per-feature entry lists.
func (m Matrix) Columns() []Column {
	counts := make([]int, m.Cols)
	for _, row := range m.Rows {
		for _, j := range row.Indices {
			counts[j]++
		}
	}
	cols := make([]Column, m.Cols)
	for j := range cols {
		cols[j] = Column{
			Rows:   make([]int, 0, counts[j]),
			Values: make([]float64, 0, counts[j]),
		}
	}
	for i, row := range m.Rows {
		for k, j := range row.Indices {
			cols[j].Rows = append(cols[j].Rows, i)
			cols[j].Values = append(cols[j].Values, row.Values[k])
		}
	}
	return cols
}
