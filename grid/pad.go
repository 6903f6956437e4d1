package grid

import "github.com/pkg/errors"

// EdgeMode defines how border cells are derived from the interior.
// - EdgeReplicate: copies the nearest interior cell (the default).
// - EdgeMirror: reflects interior cells about the interior's edge.
// - EdgeWrap: tiles the interior.
type EdgeMode int

const (
	EdgeReplicate EdgeMode = iota
	EdgeMirror
	EdgeWrap
)

// String implements fmt.Stringer.
func (m EdgeMode) String() string {
	switch m {
	case EdgeMirror:
		return "mirror"
	case EdgeWrap:
		return "wrap"
	default:
		return "replicate"
	}
}

// PadBorders overwrites the outer p rows and columns with copies of the
// nearest interior cells. Rows 0..p-1 take row p, rows rows-p..rows-1 take row
// rows-1-p, columns likewise, and corners come from the nearest interior
// corner. p == 0 is a no-op. The operation is idempotent.
func (g *Grid[T]) PadBorders(p int) error {
	return g.PadBordersMode(p, EdgeReplicate)
}

// PadBordersMode is PadBorders with a selectable edge mode.
func (g *Grid[T]) PadBordersMode(p int, mode EdgeMode) error {
	if p == 0 {
		return nil
	}
	if p < 0 || 2*p >= g.rows || 2*p >= g.cols {
		return errors.Wrapf(ErrInvalidPadding, "padding %d for %dx%d", p, g.rows, g.cols)
	}

	innerCols := g.cols - 2*p
	innerRows := g.rows - 2*p

	// Columns first, for interior rows only.
	for y := p; y < g.rows-p; y++ {
		row := g.Row(y)
		for x := 0; x < p; x++ {
			row[x] = row[p+mapCoord(x-p, innerCols, mode)]
		}
		for x := g.cols - p; x < g.cols; x++ {
			row[x] = row[p+mapCoord(x-p, innerCols, mode)]
		}
	}

	// Border rows copy whole (already column-padded) interior rows, which
	// also fills the corners.
	for y := 0; y < p; y++ {
		copy(g.Row(y), g.Row(p+mapCoord(y-p, innerRows, mode)))
	}
	for y := g.rows - p; y < g.rows; y++ {
		copy(g.Row(y), g.Row(p+mapCoord(y-p, innerRows, mode)))
	}

	return nil
}

// mapCoord maps an index i to [0, n) according to edge mode.
// For Replicate: clamp to [0, n-1].
// For Mirror: reflect indices ... -2,-1,0,1,2, ... -> 1,0,0,1,2, ... (no duplication at edges).
// For Wrap: modulo wrap to [0, n).
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}
