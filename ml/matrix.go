package ml

import (
	"fmt"
	"math"
)

// Matrix is the dense row-major input of the native booster interface.
// Missing cells are NaN.
type Matrix struct {
	rows int
	cols int
	data []float64
}

// MatrixFromFrame converts a frame into the native matrix form. Nil cells
// become NaN; any remaining non-numeric cell is an error.
func MatrixFromFrame(f *Frame) (*Matrix, error) {
	m := &Matrix{
		rows: f.NumRows(),
		cols: len(f.columns),
		data: make([]float64, f.NumRows()*len(f.columns)),
	}
	for i, row := range f.rows {
		for j, cell := range row {
			if cell == nil {
				m.data[i*m.cols+j] = math.NaN()
				continue
			}
			value, ok := cell.(float64)
			if !ok {
				return nil, fmt.Errorf("non-numeric value %v in column %q", cell, f.columns[j])
			}
			m.data[i*m.cols+j] = value
		}
	}
	return m, nil
}

// Rows returns the number of matrix rows.
func (m *Matrix) Rows() int {
	return m.rows
}

// Cols returns the number of matrix columns.
func (m *Matrix) Cols() int {
	return m.cols
}

// Row returns the i-th row as a slice backed by the matrix.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}
