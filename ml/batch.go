package ml

import "math/rand"

// Batch pairs an input slice with its aligned targets.
type Batch struct {
	X *Matrix
	Y *Matrix
}

// BatchGenerator walks (x, y) in fixed-size batches, dropping any trailing
// partial batch. When shuffled, a single permutation reorders x and y
// together so row pairing survives the shuffle.
type BatchGenerator struct {
	x, y      *Matrix
	batchSize int
	nBatches  int
	next      int
	perm      []int
}

func NewBatchGenerator(x, y *Matrix, batchSize int, shuffle bool) (*BatchGenerator, error) {
	if x == nil || y == nil {
		return nil, &ConfigError{Op: "batch", Reason: "x and y must be non-nil"}
	}
	if x.rows != y.rows {
		return nil, &ConfigError{Op: "batch", Reason: "x and y row counts differ"}
	}
	if batchSize <= 0 {
		return nil, &ConfigError{Op: "batch", Reason: "batch size must be positive"}
	}

	g := &BatchGenerator{
		x:         x,
		y:         y,
		batchSize: batchSize,
		nBatches:  x.rows / batchSize,
	}
	if shuffle {
		g.perm = NewIndexList(x.rows)
		ShuffleIndices(g.perm)
	}
	return g, nil
}

// Len reports the number of full batches the generator yields.
func (g *BatchGenerator) Len() int { return g.nBatches }

// Next returns the next (x, y) batch, or ok=false once all full batches are
// consumed. Unshuffled batches are zero-copy views into the backing data.
func (g *BatchGenerator) Next() (xb, yb *Matrix, ok bool) {
	if g.next >= g.nBatches {
		return nil, nil, false
	}
	from := g.next * g.batchSize
	to := from + g.batchSize
	g.next++

	if g.perm == nil {
		return g.x.Rows(from, to), g.y.Rows(from, to), true
	}
	return gatherRows(g.x, g.perm[from:to]), gatherRows(g.y, g.perm[from:to]), true
}

func NewIndexList(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

func ShuffleIndices(indices []int) {
	rand.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// gatherRows copies the selected rows of m into a fresh matrix.
func gatherRows(m *Matrix, indices []int) *Matrix {
	out := NewMatrix(len(indices), m.cols)
	for i, idx := range indices {
		copy(out.data[i*m.cols:(i+1)*m.cols], m.data[idx*m.cols:(idx+1)*m.cols])
	}
	return out
}
