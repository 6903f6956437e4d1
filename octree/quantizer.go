// Package octree reduces the colors of a frame to a bounded palette with an
// octree quantizer. Nodes live in a flat arena and refer to each other by
// index, so a quantizer can be reset and refilled every frame without
// reallocating.
package octree

import (
	"github.com/pkg/errors"

	"github.com/nvr-ai/go-pixel/colors"
)

// MaxDepth is the depth of terminal leaves. At depth 8 every bit of an 8-bit
// channel has selected a branch, so each leaf holds exactly one source color
// until the tree is reduced.
const MaxDepth = 8

const nilNode int32 = -1

var (
	// ErrPaletteFinalized is returned by AddColor once a palette was made.
	ErrPaletteFinalized = errors.New("octree: palette already made, reset before adding colors")
	// ErrNoPalette is returned by lookups before MakePalette.
	ErrNoPalette = errors.New("octree: no palette")
	// ErrInvalidPaletteSize is returned for palette sizes below 1.
	ErrInvalidPaletteSize = errors.New("octree: palette size must be >= 1")
	// ErrEmpty is returned by MakePalette when no color was added.
	ErrEmpty = errors.New("octree: no colors")
	// ErrUnindexed is returned by PaletteIndex when the lookup ends on a leaf
	// that did not fit into the palette.
	ErrUnindexed = errors.New("octree: leaf has no palette index")
)

type node struct {
	sum      colors.Sum
	count    uint64
	children [8]int32
	index    int32
}

func (n *node) leaf() bool { return n.count > 0 }

// Quantizer accumulates colors and reduces them to a palette.
//
// Usage per frame: AddColor for every pixel, MakePalette once, then
// PaletteIndex or Map for lookups. Lookups after MakePalette do not mutate the
// tree and may run concurrently. Everything else is single-threaded.
type Quantizer struct {
	nodes []node
	// levels[d] lists non-terminal nodes created at depth d.
	levels    [MaxDepth][]int32
	leaves    int
	palette   []colors.RGB
	finalized bool
	hist      Histogram
}

// New returns an empty quantizer.
func New() *Quantizer {
	q := &Quantizer{}
	q.Reset()
	return q
}

// Reset empties the tree and forgets the palette, keeping allocated storage.
func (q *Quantizer) Reset() {
	q.nodes = q.nodes[:0]
	for d := range q.levels {
		q.levels[d] = q.levels[d][:0]
	}
	q.leaves = 0
	q.palette = q.palette[:0]
	q.finalized = false
	q.hist = Histogram{}
	q.alloc(0)
}

func (q *Quantizer) alloc(depth int) int32 {
	idx := int32(len(q.nodes))
	q.nodes = append(q.nodes, node{
		children: [8]int32{nilNode, nilNode, nilNode, nilNode, nilNode, nilNode, nilNode, nilNode},
		index:    nilNode,
	})
	if depth < MaxDepth {
		q.levels[depth] = append(q.levels[depth], idx)
	}
	return idx
}

// branch picks the child for c at depth d from bit MaxDepth-1-d of each
// channel: red contributes 4, green 2, blue 1.
func branch(c colors.RGB, depth int) int {
	shift := MaxDepth - 1 - depth
	return int(c.R>>shift&1)<<2 | int(c.G>>shift&1)<<1 | int(c.B>>shift&1)
}

// AddColor inserts one occurrence of c.
func (q *Quantizer) AddColor(c colors.RGB) error {
	if q.finalized {
		return ErrPaletteFinalized
	}

	idx := int32(0)
	for depth := 0; depth < MaxDepth; depth++ {
		b := branch(c, depth)
		child := q.nodes[idx].children[b]
		if child == nilNode {
			child = q.alloc(depth + 1)
			q.nodes[idx].children[b] = child
		}
		idx = child
	}

	leaf := &q.nodes[idx]
	if leaf.count == 0 {
		q.leaves++
	}
	leaf.sum.Add(c)
	leaf.count++
	q.hist.Add(c)
	return nil
}

// MakePalette reduces the tree until it has at most target leaves and
// returns their mean colors. Reduction merges whole nodes bottom-up starting
// at the deepest level and stops as soon as the leaf count fits, so the
// palette may be smaller than target. It may be called again with a smaller
// target to reduce further.
func (q *Quantizer) MakePalette(target int) ([]colors.RGB, error) {
	if target < 1 {
		return nil, errors.Wrapf(ErrInvalidPaletteSize, "got %d", target)
	}
	if q.leaves == 0 {
		return nil, ErrEmpty
	}

	for depth := MaxDepth - 1; depth >= 0 && q.leaves > target; depth-- {
		for _, idx := range q.levels[depth] {
			if q.leaves <= target {
				break
			}
			if merged := q.merge(idx); merged > 0 {
				q.leaves -= merged - 1
			}
		}
	}

	q.palette = q.palette[:0]
	q.assign(0, target)
	q.finalized = true
	return q.Palette(), nil
}

// merge folds every child of idx into it and returns how many were merged.
func (q *Quantizer) merge(idx int32) int {
	n := &q.nodes[idx]
	merged := 0
	for b, child := range n.children {
		if child == nilNode {
			continue
		}
		c := &q.nodes[child]
		n.sum.Merge(c.sum)
		n.count += c.count
		n.children[b] = nilNode
		merged++
	}
	return merged
}

// assign numbers leaves depth-first in child order.
func (q *Quantizer) assign(idx int32, limit int) {
	n := &q.nodes[idx]
	if n.leaf() {
		if len(q.palette) < limit {
			n.index = int32(len(q.palette))
			q.palette = append(q.palette, n.sum.Mean(n.count))
		} else {
			n.index = nilNode
		}
		return
	}
	for _, child := range n.children {
		if child != nilNode {
			q.assign(child, limit)
		}
	}
}

// PaletteIndex descends the tree for c. When the branch for c is missing
// the first existing child is followed instead.
func (q *Quantizer) PaletteIndex(c colors.RGB) (int, error) {
	if !q.finalized {
		return 0, ErrNoPalette
	}

	idx := int32(0)
	for depth := 0; ; depth++ {
		n := &q.nodes[idx]
		if n.leaf() {
			if n.index < 0 {
				return 0, errors.Wrapf(ErrUnindexed, "node %d at depth %d", idx, depth)
			}
			return int(n.index), nil
		}
		next := n.children[branch(c, depth)]
		if next == nilNode {
			for _, child := range n.children {
				if child != nilNode {
					next = child
					break
				}
			}
		}
		if next == nilNode {
			return 0, ErrEmpty
		}
		idx = next
	}
}

// Map returns the palette color for c, or c itself when there is no palette.
func (q *Quantizer) Map(c colors.RGB) colors.RGB {
	i, err := q.PaletteIndex(c)
	if err != nil {
		return c
	}
	return q.palette[i]
}

// Palette returns a copy of the current palette.
func (q *Quantizer) Palette() []colors.RGB {
	out := make([]colors.RGB, len(q.palette))
	copy(out, q.palette)
	return out
}

// HasPalette reports whether MakePalette succeeded since the last Reset.
func (q *Quantizer) HasPalette() bool { return q.finalized }

// LeafCount returns the number of leaves, which is the palette size the tree
// can currently produce.
func (q *Quantizer) LeafCount() int { return q.leaves }

// Len returns the number of nodes in the arena.
func (q *Quantizer) Len() int { return len(q.nodes) }

// LuminanceHistogram returns the histogram of every color added since the
// last Reset.
func (q *Quantizer) LuminanceHistogram() Histogram { return q.hist }
