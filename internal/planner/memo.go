package planner

type cellState uint8

const (
	unsolved cellState = iota
	feasible
	infeasible
)

// cell is the memoized answer for (start, end, n). Feasible cells record the
// winning split so stages can be rebuilt without storing them per cell; a
// single-stage cell has split == end.
type cell struct {
	latency float64
	memory  int64
	split   int32
	left    int32 // stage count of [start, split)
	state   cellState
}

// memo holds one flat (L+1)x(L+1) plane per stage count. Plane n is written
// only while sweeping n, and only ever read while sweeping larger counts, so
// a cell has exactly one writer.
type memo struct {
	width  int
	planes [][]cell
}

func newMemo(numLayers int) *memo {
	return &memo{width: numLayers + 1, planes: make([][]cell, 1)}
}

func (m *memo) plane(n int) []cell {
	for len(m.planes) <= n {
		m.planes = append(m.planes, nil)
	}
	if m.planes[n] == nil {
		m.planes[n] = make([]cell, m.width*m.width)
	}
	return m.planes[n]
}

func (m *memo) at(start, end, n int) *cell {
	return &m.planes[n][start*m.width+end]
}
