package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// treeNode is one node of a decision tree, stored in a flattened slice.
// Left and Right are indexes into that slice; ClassDist is only set on leaves
// and holds the normalized class distribution of the training samples that
// reached the node.
type treeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Leaf      bool
	ClassDist []float64
}

type decisionTree struct {
	nodes []treeNode
}

// treeBuilder carries everything a single tree needs while growing:
// the full training matrix, the split constraints and a tree-local RNG
// for per-split feature subsampling.
type treeBuilder struct {
	features        [][]float64
	labels          []int
	classCount      int
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	rng             *rand.Rand
}

func (b *treeBuilder) build(sampleIdx []int) *decisionTree {
	return &decisionTree{nodes: b.buildNodes(sampleIdx, 0)}
}

// buildNodes grows the subtree for the given samples and returns it as a
// flattened slice with the subtree root at index 0. Child indexes inside each
// returned slice are local to the slice, so they are shifted when a subtree
// is appended below its parent.
func (b *treeBuilder) buildNodes(sampleIdx []int, depth int) []treeNode {
	if depth >= b.maxDepth || len(sampleIdx) < b.minSamplesSplit || b.isPure(sampleIdx) {
		return []treeNode{b.makeLeaf(sampleIdx)}
	}

	feature, threshold, ok := b.findBestSplit(sampleIdx)
	if !ok {
		return []treeNode{b.makeLeaf(sampleIdx)}
	}

	leftIdx, rightIdx := b.partition(sampleIdx, feature, threshold)
	if len(leftIdx) < b.minSamplesLeaf || len(rightIdx) < b.minSamplesLeaf {
		return []treeNode{b.makeLeaf(sampleIdx)}
	}

	leftNodes := b.buildNodes(leftIdx, depth+1)
	rightNodes := b.buildNodes(rightIdx, depth+1)

	// The left subtree starts right after the root, the right subtree after
	// the whole left one
	leftOffset := 1
	rightOffset := 1 + len(leftNodes)
	shiftChildren(leftNodes, leftOffset)
	shiftChildren(rightNodes, rightOffset)

	nodes := make([]treeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      leftOffset,
		Right:     rightOffset,
	})
	nodes = append(nodes, leftNodes...)
	nodes = append(nodes, rightNodes...)
	return nodes
}

func shiftChildren(nodes []treeNode, offset int) {
	for i := range nodes {
		if nodes[i].Leaf {
			continue
		}
		nodes[i].Left += offset
		nodes[i].Right += offset
	}
}

func (b *treeBuilder) makeLeaf(sampleIdx []int) treeNode {
	dist := make([]float64, b.classCount)
	for _, idx := range sampleIdx {
		dist[b.labels[idx]]++
	}
	if len(sampleIdx) > 0 {
		total := float64(len(sampleIdx))
		for i := range dist {
			dist[i] /= total
		}
	}
	return treeNode{
		Feature:   -1,
		Left:      -1,
		Right:     -1,
		Leaf:      true,
		ClassDist: dist,
	}
}

func (b *treeBuilder) isPure(sampleIdx []int) bool {
	if len(sampleIdx) == 0 {
		return true
	}
	first := b.labels[sampleIdx[0]]
	for _, idx := range sampleIdx[1:] {
		if b.labels[idx] != first {
			return false
		}
	}
	return true
}

// findBestSplit evaluates a random subset of features and returns the
// (feature, threshold) pair with the lowest weighted Gini impurity.
// Candidate thresholds are the midpoints between consecutive distinct
// feature values among the node's samples.
func (b *treeBuilder) findBestSplit(sampleIdx []int) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	for _, feature := range b.sampleFeatures() {
		for _, threshold := range b.candidateThresholds(sampleIdx, feature) {
			leftCounts, rightCounts, leftTotal, rightTotal := b.splitCounts(sampleIdx, feature, threshold)
			if leftTotal < b.minSamplesLeaf || rightTotal < b.minSamplesLeaf {
				continue
			}
			impurity := weightedGini(leftCounts, rightCounts, leftTotal, rightTotal)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}

	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

// sampleFeatures draws maxFeatures distinct feature indexes for one split.
func (b *treeBuilder) sampleFeatures() []int {
	featureCount := len(b.features[0])
	if b.maxFeatures >= featureCount {
		all := make([]int, featureCount)
		for i := range all {
			all[i] = i
		}
		return all
	}
	picked := b.rng.Perm(featureCount)[:b.maxFeatures]
	return picked
}

func (b *treeBuilder) candidateThresholds(sampleIdx []int, feature int) []float64 {
	values := make([]float64, 0, len(sampleIdx))
	seen := make(map[float64]bool, 2)
	for _, idx := range sampleIdx {
		v := b.features[idx][feature]
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return nil
	}
	sort.Float64s(values)
	thresholds := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		thresholds = append(thresholds, (values[i-1]+values[i])/2)
	}
	return thresholds
}

func (b *treeBuilder) splitCounts(sampleIdx []int, feature int, threshold float64) ([]int, []int, int, int) {
	leftCounts := make([]int, b.classCount)
	rightCounts := make([]int, b.classCount)
	leftTotal := 0
	rightTotal := 0
	for _, idx := range sampleIdx {
		if b.features[idx][feature] <= threshold {
			leftCounts[b.labels[idx]]++
			leftTotal++
		} else {
			rightCounts[b.labels[idx]]++
			rightTotal++
		}
	}
	return leftCounts, rightCounts, leftTotal, rightTotal
}

func (b *treeBuilder) partition(sampleIdx []int, feature int, threshold float64) ([]int, []int) {
	left := make([]int, 0, len(sampleIdx))
	right := make([]int, 0, len(sampleIdx))
	for _, idx := range sampleIdx {
		if b.features[idx][feature] <= threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	return left, right
}

func weightedGini(leftCounts, rightCounts []int, leftTotal, rightTotal int) float64 {
	total := float64(leftTotal + rightTotal)
	left := float64(leftTotal)
	right := float64(rightTotal)
	return (left/total)*giniFromCounts(leftCounts, leftTotal) +
		(right/total)*giniFromCounts(rightCounts, rightTotal)
}

func giniFromCounts(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	impurity := 1.0
	for _, count := range counts {
		prob := float64(count) / float64(total)
		impurity -= prob * prob
	}
	return impurity
}

// classDistribution walks the tree for one input vector and returns the
// class distribution of the leaf it lands in.
func (t *decisionTree) classDistribution(features []float64) []float64 {
	idx := 0
	for {
		node := t.nodes[idx]
		if node.Leaf {
			return node.ClassDist
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}
