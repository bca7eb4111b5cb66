package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// maxTreeDepth bounds recursion when TreeParams.MaxDepth is 0.
const maxTreeDepth = 64

type TreeParams struct {
	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	// MaxFeatures is the number of features examined per split; 0 means all.
	MaxFeatures int `json:"max_features"`
}

// DecisionTree is a CART classifier using Gini impurity. Nodes are stored in
// pre-order, so every child index is greater than its parent's.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`

	params TreeParams
	rnd    *rand.Rand
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
	IsLeaf     bool    `json:"is_leaf"`
}

// NewDecisionTree returns an untrained tree. rnd drives feature sampling and
// may be nil when MaxFeatures is 0.
func NewDecisionTree(params TreeParams, rnd *rand.Rand) *DecisionTree {
	if params.MaxDepth <= 0 || params.MaxDepth > maxTreeDepth {
		params.MaxDepth = maxTreeDepth
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &DecisionTree{params: params, rnd: rnd}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
	}
	if dt.rnd == nil || dt.params.MaxDepth == 0 {
		normalized := NewDecisionTree(dt.params, dt.rnd)
		dt.params, dt.rnd = normalized.params, normalized.rnd
	}

	classes := uniqueLabels(labels)
	encoded := make([]int, len(labels))
	for i, label := range labels {
		encoded[i] = sort.SearchInts(classes, label)
	}
	indices := make([]int, len(features))
	for i := range indices {
		indices[i] = i
	}

	b := &treeBuilder{
		params:   dt.params,
		rnd:      dt.rnd,
		features: features,
		labels:   encoded,
		classes:  classes,
		width:    width,
	}
	b.build(indices, 0)
	dt.Nodes = b.nodes
	return nil
}

func (dt *DecisionTree) Predict(features []float64) (int, float64, error) {
	if len(dt.Nodes) == 0 {
		return 0, 0, ErrNotTrained
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.ClassLabel, node.Confidence, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, 0, errors.New("invalid tree state")
		}
	}
}

// validate checks node links and feature indices against width.
func (dt *DecisionTree) validate(width int) error {
	if len(dt.Nodes) == 0 {
		return ErrNotTrained
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= width {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(dt.Nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}

type treeBuilder struct {
	params   TreeParams
	rnd      *rand.Rand
	features [][]float64
	labels   []int
	classes  []int
	width    int
	nodes    []TreeNode
}

// build appends the subtree over indices and returns its root position.
func (b *treeBuilder) build(indices []int, depth int) int {
	counts := b.classCounts(indices)
	majority := argmax(counts)
	pos := len(b.nodes)
	b.nodes = append(b.nodes, TreeNode{
		FeatureIdx: -1,
		LeftChild:  -1,
		RightChild: -1,
		ClassLabel: b.classes[majority],
		Confidence: float64(counts[majority]) / float64(len(indices)),
		Samples:    len(indices),
		IsLeaf:     true,
	})

	if depth >= b.params.MaxDepth || len(indices) < b.params.MinSamplesSplit || counts[majority] == len(indices) {
		return pos
	}

	feature, threshold, ok := b.bestSplit(indices, counts)
	if !ok {
		return pos
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if b.features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}

	leftPos := b.build(left, depth+1)
	rightPos := b.build(right, depth+1)

	node := &b.nodes[pos]
	node.IsLeaf = false
	node.FeatureIdx = feature
	node.Threshold = threshold
	node.LeftChild = leftPos
	node.RightChild = rightPos
	return pos
}

// bestSplit searches the sampled features for the threshold with the lowest
// weighted Gini impurity. When the sample yields no improving split the
// remaining features are tried as well.
func (b *treeBuilder) bestSplit(indices []int, parent []int) (int, float64, bool) {
	order := b.rnd.Perm(b.width)
	sampled := b.params.MaxFeatures
	if sampled <= 0 || sampled > b.width {
		sampled = b.width
	}

	n := float64(len(indices))
	bestImpurity := gini(parent, len(indices)) - 1e-12
	bestFeature := -1
	bestThreshold := 0.0

	sorted := make([]int, len(indices))
	left := make([]int, len(parent))
	right := make([]int, len(parent))

	for k, feature := range order {
		if k >= sampled && bestFeature != -1 {
			break
		}
		copy(sorted, indices)
		sort.Slice(sorted, func(a, c int) bool {
			return b.features[sorted[a]][feature] < b.features[sorted[c]][feature]
		})
		for c := range left {
			left[c] = 0
		}
		copy(right, parent)

		for i := 0; i < len(sorted)-1; i++ {
			label := b.labels[sorted[i]]
			left[label]++
			right[label]--

			value := b.features[sorted[i]][feature]
			next := b.features[sorted[i+1]][feature]
			if value == next {
				continue
			}
			nl := i + 1
			nr := len(sorted) - nl
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / n
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = feature
				bestThreshold = midpoint(value, next)
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (b *treeBuilder) classCounts(indices []int) []int {
	counts := make([]int, len(b.classes))
	for _, i := range indices {
		counts[b.labels[i]]++
	}
	return counts
}

// midpoint returns a threshold t with lo <= t < hi.
func midpoint(lo, hi float64) float64 {
	t := lo + (hi-lo)/2
	if t >= hi || math.IsInf(t, 0) {
		return lo
	}
	return t
}

func gini(counts []int, total int) float64 {
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

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func uniqueLabels(labels []int) []int {
	seen := make(map[int]bool)
	classes := make([]int, 0, 2)
	for _, label := range labels {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}
