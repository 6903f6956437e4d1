// Package grid implements the dense row-major 2D grid every stage of the
// engine operates on, together with padding, convolution, morphology and
// elementwise arithmetic.
//
// Grids are allocated once per frame geometry and reused. Coordinates passed
// to accessors are (x = column, y = row).
package grid

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrShapeMismatch is returned when two grids taking part in an operation
	// do not have identical dimensions.
	ErrShapeMismatch = errors.New("grid: shape mismatch")
	// ErrInvalidPadding is returned for negative padding, padding that does
	// not leave an interior, or padding smaller than a kernel radius.
	ErrInvalidPadding = errors.New("grid: invalid padding")
	// ErrDegenerateRange is returned by Rescale when every value is equal.
	ErrDegenerateRange = errors.New("grid: degenerate value range")
	// ErrAliased is returned when an operation requires distinct source and
	// destination grids but was given the same one.
	ErrAliased = errors.New("grid: source and destination alias")
)

// Grid is a rows x cols matrix stored contiguously in row-major order.
// The invariant len(data) == rows*cols holds for the lifetime of the grid.
type Grid[T any] struct {
	rows int
	cols int
	data []T
}

// New allocates a zeroed grid. Negative dimensions panic, like make.
func New[T any](rows, cols int) *Grid[T] {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("grid: negative dimensions %dx%d", rows, cols))
	}
	return &Grid[T]{rows: rows, cols: cols, data: make([]T, rows*cols)}
}

// NewFilled allocates a grid with every cell set to v.
func NewFilled[T any](rows, cols int, v T) *Grid[T] {
	g := New[T](rows, cols)
	g.Fill(v)
	return g
}

// FromSlice wraps data without copying.
func FromSlice[T any](rows, cols int, data []T) (*Grid[T], error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, errors.Wrapf(ErrShapeMismatch, "%d values for %dx%d", len(data), rows, cols)
	}
	return &Grid[T]{rows: rows, cols: cols, data: data}, nil
}

// Rows returns the number of rows.
func (g *Grid[T]) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid[T]) Cols() int { return g.cols }

// Len returns rows*cols.
func (g *Grid[T]) Len() int { return len(g.data) }

// Data exposes the backing slice in row-major order.
func (g *Grid[T]) Data() []T { return g.data }

// Row returns the backing slice of row y.
func (g *Grid[T]) Row(y int) []T {
	return g.data[y*g.cols : (y+1)*g.cols]
}

// Index returns the offset of (x, y) in Data.
func (g *Grid[T]) Index(x, y int) int { return y*g.cols + x }

// Get returns the value at column x, row y. No bounds checks beyond the
// slice's own.
func (g *Grid[T]) Get(x, y int) T { return g.data[y*g.cols+x] }

// Set stores v at column x, row y.
func (g *Grid[T]) Set(x, y int, v T) { g.data[y*g.cols+x] = v }

// InBounds reports whether (x, y) addresses a cell of the grid.
func (g *Grid[T]) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.cols && y < g.rows
}

// SafeGet returns the zero value for coordinates outside the grid.
func (g *Grid[T]) SafeGet(x, y int) T {
	if !g.InBounds(x, y) {
		var zero T
		return zero
	}
	return g.data[y*g.cols+x]
}

// SameShape reports whether o has the same dimensions as g.
func (g *Grid[T]) SameShape(o *Grid[T]) bool {
	return g.rows == o.rows && g.cols == o.cols
}

// Fill sets every cell to v.
func (g *Grid[T]) Fill(v T) {
	for i := range g.data {
		g.data[i] = v
	}
}

// Clone returns a deep copy.
func (g *Grid[T]) Clone() *Grid[T] {
	c := New[T](g.rows, g.cols)
	copy(c.data, g.data)
	return c
}

// CopyFrom overwrites g with the contents of src.
func (g *Grid[T]) CopyFrom(src *Grid[T]) error {
	if !g.SameShape(src) {
		return shapeError(g.rows, g.cols, src.rows, src.cols)
	}
	copy(g.data, src.data)
	return nil
}

// Swap exchanges the storage of g and o in O(1). Stages use it to ping-pong
// between scratch grids without copying.
func (g *Grid[T]) Swap(o *Grid[T]) error {
	if !g.SameShape(o) {
		return shapeError(g.rows, g.cols, o.rows, o.cols)
	}
	g.data, o.data = o.data, g.data
	return nil
}

// String describes the grid's shape.
func (g *Grid[T]) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.rows, g.cols)
}

func shapeError(r1, c1, r2, c2 int) error {
	return errors.Wrapf(ErrShapeMismatch, "%dx%d vs %dx%d", r1, c1, r2, c2)
}
