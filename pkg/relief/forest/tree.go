package forest

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/cognicore/relief/pkg/relief/features"
)

// improvementEpsilon is the minimum impurity decrease that justifies a split.
const improvementEpsilon = 1e-12

// Node is one tree node. Leaves have Feature == -1 and carry the class
// distribution; internal nodes route x[Feature] <= Threshold to Left.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Dist      []float64 `json:"d,omitempty"`
}

// Tree is a fitted CART classification tree stored as a flat node list;
// node 0 is the root.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Leaf returns the class distribution of the leaf x falls into.
func (t *Tree) Leaf(x features.Vector) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Dist
		}
		if x.At(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type entry struct {
	value  float64
	class  int
	weight float64
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

// builder grows one tree. It is not shared between goroutines.
type builder struct {
	in        *Input
	y         []int
	w         []float64
	nClasses  int
	criterion Criterion
	maxDepth  int
	mtry      int
	rng       *rand.Rand

	perm      []int
	featStamp []int32
	rowStamp  []int32
	stamp     int32

	nodes []Node
}

func newBuilder(in *Input, y []int, w []float64, nClasses int, cfg Config, rng *rand.Rand) *builder {
	nf := in.X.Cols
	perm := make([]int, nf)
	for i := range perm {
		perm[i] = i
	}
	mtry := int(math.Sqrt(float64(nf)))
	if mtry < 1 {
		mtry = 1
	}
	return &builder{
		in:        in,
		y:         y,
		w:         w,
		nClasses:  nClasses,
		criterion: cfg.Criterion,
		maxDepth:  cfg.MaxDepth,
		mtry:      mtry,
		rng:       rng,
		perm:      perm,
		featStamp: make([]int32, nf),
		rowStamp:  make([]int32, in.X.Len()),
	}
}

func (b *builder) grow(rows []int) Tree {
	b.build(rows, 0)
	return Tree{Nodes: b.nodes}
}

func (b *builder) build(rows []int, depth int) int {
	counts := make([]float64, b.nClasses)
	var total float64
	for _, r := range rows {
		counts[b.y[r]] += b.w[r]
		total += b.w[r]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1})

	if len(rows) < 2 || pure(counts) || (b.maxDepth > 0 && depth >= b.maxDepth) {
		b.nodes[idx].Dist = distribution(counts, total)
		return idx
	}

	best, ok := b.bestSplit(rows, counts, total)
	if !ok {
		b.nodes[idx].Dist = distribution(counts, total)
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if b.in.X.Rows[r].At(best.feature) <= best.threshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := b.build(left, depth+1)
	rt := b.build(right, depth+1)
	b.nodes[idx] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: rt}
	return idx
}

// bestSplit samples features the way a random forest does: mtry draws
// without replacement, continuing past mtry until at least one
// non-constant feature has been seen.
func (b *builder) bestSplit(rows []int, counts []float64, total float64) (split, bool) {
	b.stamp++
	for _, r := range rows {
		b.rowStamp[r] = b.stamp
		for _, f := range b.in.X.Rows[r].Indices {
			b.featStamp[f] = b.stamp
		}
	}

	parent := b.criterion.impurity(counts, total)
	best := split{feature: -1, score: math.Inf(1)}
	nf := len(b.perm)
	visited, nonConstant := 0, 0

	for i := 0; i < nf; i++ {
		if visited >= b.mtry && nonConstant > 0 {
			break
		}
		j := i + b.rng.IntN(nf-i)
		b.perm[i], b.perm[j] = b.perm[j], b.perm[i]
		f := b.perm[i]
		visited++

		// Features absent from every row in the node are constant zero.
		if b.featStamp[f] != b.stamp {
			continue
		}
		s, ok := b.evaluate(f, rows, counts, total)
		if !ok {
			continue
		}
		nonConstant++
		if s.score < best.score {
			best = s
		}
	}

	if best.feature < 0 || best.score >= parent-improvementEpsilon {
		return split{}, false
	}
	return best, true
}

// evaluate finds the best threshold on feature f. It reports false when f is
// constant over the node.
func (b *builder) evaluate(f int, rows []int, counts []float64, total float64) (split, bool) {
	var entries []entry
	col := b.in.cols[f]
	if len(col.Rows) <= 4*len(rows) {
		for k, r := range col.Rows {
			if b.rowStamp[r] == b.stamp && b.w[r] > 0 && col.Values[k] != 0 {
				entries = append(entries, entry{value: col.Values[k], class: b.y[r], weight: b.w[r]})
			}
		}
	} else {
		for _, r := range rows {
			if v := b.in.X.Rows[r].At(f); v != 0 {
				entries = append(entries, entry{value: v, class: b.y[r], weight: b.w[r]})
			}
		}
	}
	if len(entries) == 0 {
		return split{}, false
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].value < entries[j].value })

	zero := make([]float64, b.nClasses)
	copy(zero, counts)
	zeroW := total
	for _, e := range entries {
		zero[e.class] -= e.weight
		zeroW -= e.weight
	}
	if zeroW < 1e-9 {
		zeroW = 0
	}

	left := make([]float64, b.nClasses)
	right := make([]float64, b.nClasses)
	var leftW float64
	prev, havePrev := 0.0, false
	best := split{feature: f, score: math.Inf(1)}
	found := false

	consider := func(next float64) {
		if !havePrev || next <= prev {
			return
		}
		rightW := total - leftW
		if leftW <= 0 || rightW <= 1e-12 {
			return
		}
		for c := range right {
			right[c] = counts[c] - left[c]
		}
		score := (leftW*b.criterion.impurity(left, leftW) + rightW*b.criterion.impurity(right, rightW)) / total
		found = true
		if score < best.score {
			best.score = score
			best.threshold = midpoint(prev, next)
		}
	}
	addZero := func() {
		consider(0)
		for c := range left {
			left[c] += zero[c]
		}
		leftW += zeroW
		prev, havePrev = 0, true
	}

	zeroPending := zeroW > 0
	for _, e := range entries {
		if zeroPending && e.value > 0 {
			addZero()
			zeroPending = false
		}
		consider(e.value)
		left[e.class] += e.weight
		leftW += e.weight
		prev, havePrev = e.value, true
	}
	if zeroPending {
		consider(0)
	}

	return best, found
}

func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m >= b || math.IsInf(m, 0) || math.IsNaN(m) {
		return a
	}
	return m
}

func pure(counts []float64) bool {
	nonzero := 0
	for _, c := range counts {
		if c > 0 {
			nonzero++
		}
	}
	return nonzero <= 1
}

func distribution(counts []float64, total float64) []float64 {
	dist := make([]float64, len(counts))
	if total <= 0 {
		return dist
	}
	for c, n := range counts {
		dist[c] = n / total
	}
	return dist
}
