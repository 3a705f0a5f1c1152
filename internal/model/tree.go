package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"
)

// TreeNode is one node of a fitted regression tree. Leaves carry the mean
// target of their training samples; internal nodes route on
// X[Feature] <= Threshold.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Value     float64
	Leaf      bool
}

// Tree is a CART regression tree grown to purity: splits minimize the
// summed squared error of the two children and recursion stops only when a
// node is constant or too small to split. All features are candidates at
// every split, so growth is deterministic given the sample set.
type Tree struct {
	Root            *TreeNode
	MinSamplesSplit int
	MinSamplesLeaf  int
}

func (t *Tree) fit(X *mat.Dense, y []float64, samples []int) {
	t.Root = t.grow(X, y, samples)
}

func (t *Tree) grow(X *mat.Dense, y []float64, samples []int) *TreeNode {
	node := &TreeNode{Value: meanAt(y, samples), Leaf: true}
	if len(samples) < t.MinSamplesSplit || isConstantAt(y, samples) {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, samples)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range samples {
		if X.At(i, feature) <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Leaf = false
	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.grow(X, y, left)
	node.Right = t.grow(X, y, right)
	return node
}

// bestSplit scans every feature with a sorted sweep, maintaining running
// sums so each candidate threshold is O(1) to evaluate.
func (t *Tree) bestSplit(X *mat.Dense, y []float64, samples []int) (int, float64, bool) {
	_, p := X.Dims()
	n := len(samples)

	var totalSum float64
	for _, i := range samples {
		totalSum += y[i]
	}

	bestSSE := sseAt(y, samples)
	bestFeature, bestThreshold := -1, 0.0
	order := make([]int, n)

	for f := 0; f < p; f++ {
		copy(order, samples)
		sort.Slice(order, func(a, b int) bool { return X.At(order[a], f) < X.At(order[b], f) })

		if X.At(order[0], f) == X.At(order[n-1], f) {
			continue // constant feature
		}

		leftSum, leftSq := 0.0, 0.0
		totalSq := 0.0
		for _, i := range samples {
			totalSq += y[i] * y[i]
		}

		for k := 0; k < n-1; k++ {
			yi := y[order[k]]
			leftSum += yi
			leftSq += yi * yi

			cur, next := X.At(order[k], f), X.At(order[k+1], f)
			if cur == next {
				continue // can't split between identical values
			}
			nl, nr := k+1, n-k-1
			if nl < t.MinSamplesLeaf || nr < t.MinSamplesLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) +
				(rightSq - rightSum*rightSum/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (t *Tree) predict(row func(j int) float64) float64 {
	node := t.Root
	for !node.Leaf {
		if row(node.Feature) <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

func meanAt(y []float64, samples []int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var s float64
	for _, i := range samples {
		s += y[i]
	}
	return s / float64(len(samples))
}

func sseAt(y []float64, samples []int) float64 {
	m := meanAt(y, samples)
	var s float64
	for _, i := range samples {
		d := y[i] - m
		s += d * d
	}
	return s
}

func isConstantAt(y []float64, samples []int) bool {
	for _, i := range samples[1:] {
		if y[i] != y[samples[0]] {
			return false
		}
	}
	return true
}
