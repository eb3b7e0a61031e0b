// Package matrix holds the caller-side matrix forms accepted by fmgo
// models: row-major dense and compressed-sparse-row (CSR). Both normalize
// arbitrary nested input into a canonical shape before the adapter
// marshals them for the training core.
package matrix

import (
	"errors"
	"fmt"
)

// Matrix is a canonical caller-side matrix. It is implemented by Dense
// and CSR only.
type Matrix interface {
	// Dims returns the number of rows and columns.
	Dims() (rows, cols int)
	// Validate checks internal consistency.
	Validate() error

	sealed()
}

// Dense is a row-major dense matrix.
type Dense struct {
	Data []float64
	Rows int
	Cols int
}

// NewDense wraps a row-major slice as a Dense matrix.
func NewDense(data []float64, rows, cols int) (*Dense, error) {
	d := &Dense{Data: data, Rows: rows, Cols: cols}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// FromRows flattens nested rows into a Dense matrix. Every row must have
// the same length.
func FromRows(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 {
		return nil, errors.New("matrix: no rows")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix: row %d has %d columns, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return NewDense(data, len(rows), cols)
}

// Dims returns the matrix shape.
func (d *Dense) Dims() (int, int) { return d.Rows, d.Cols }

// Validate checks internal consistency.
func (d *Dense) Validate() error {
	if d.Rows <= 0 || d.Cols <= 0 {
		return fmt.Errorf("matrix: non-positive dimensions %dx%d", d.Rows, d.Cols)
	}
	if len(d.Data) != d.Rows*d.Cols {
		return fmt.Errorf("matrix: data length %d, want %d", len(d.Data), d.Rows*d.Cols)
	}
	return nil
}

// At returns the value at row i, column j.
func (d *Dense) At(i, j int) float64 {
	return d.Data[i*d.Cols+j]
}

// ToCSR compresses the dense form, dropping entries that are exactly zero.
func (d *Dense) ToCSR() *CSR {
	c := &CSR{
		Rows:   d.Rows,
		Cols:   d.Cols,
		RowPtr: make([]int32, 1, d.Rows+1),
	}
	for i := 0; i < d.Rows; i++ {
		for j := 0; j < d.Cols; j++ {
			if v := d.At(i, j); v != 0 {
				c.Values = append(c.Values, v)
				c.ColIndices = append(c.ColIndices, int32(j))
			}
		}
		c.RowPtr = append(c.RowPtr, int32(len(c.Values)))
	}
	return c
}

func (*Dense) sealed() {}

// CSR is a compressed-sparse-row matrix: only non-zero entries are stored,
// as (row-pointer, column-index, value) triples.
type CSR struct {
	Values     []float64
	ColIndices []int32
	RowPtr     []int32
	Rows       int
	Cols       int
}

// NewCSR wraps CSR triples as a matrix.
func NewCSR(values []float64, colIndices, rowPtr []int32, rows, cols int) (*CSR, error) {
	c := &CSR{Values: values, ColIndices: colIndices, RowPtr: rowPtr, Rows: rows, Cols: cols}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dims returns the matrix shape.
func (c *CSR) Dims() (int, int) { return c.Rows, c.Cols }

// Validate checks internal consistency.
func (c *CSR) Validate() error {
	if c.Rows <= 0 || c.Cols <= 0 {
		return fmt.Errorf("matrix: non-positive dimensions %dx%d", c.Rows, c.Cols)
	}
	if len(c.RowPtr) != c.Rows+1 {
		return fmt.Errorf("matrix: rowPtr length %d, want %d", len(c.RowPtr), c.Rows+1)
	}
	if c.RowPtr[0] != 0 {
		return fmt.Errorf("matrix: rowPtr must start at 0, got %d", c.RowPtr[0])
	}
	for i := 0; i < c.Rows; i++ {
		if c.RowPtr[i+1] < c.RowPtr[i] {
			return fmt.Errorf("matrix: rowPtr not monotonic at row %d", i)
		}
	}
	if int(c.RowPtr[c.Rows]) != len(c.Values) {
		return fmt.Errorf("matrix: rowPtr end %d, want %d values", c.RowPtr[c.Rows], len(c.Values))
	}
	if len(c.ColIndices) != len(c.Values) {
		return fmt.Errorf("matrix: colIndices length %d, want %d", len(c.ColIndices), len(c.Values))
	}
	for _, col := range c.ColIndices {
		if col < 0 || int(col) >= c.Cols {
			return fmt.Errorf("matrix: column index %d out of range [0,%d)", col, c.Cols)
		}
	}
	return nil
}

func (*CSR) sealed() {}
