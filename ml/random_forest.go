package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

// ForestParams mirrors the usual random forest knobs. MaxFeatures accepts
// "sqrt", "log2", "all" or a positive integer.
type ForestParams struct {
	NTrees          int    `json:"n_trees"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MaxFeatures     string `json:"max_features"`
	Bootstrap       bool   `json:"bootstrap"`
}

func DefaultForestParams() ForestParams {
	return ForestParams{
		NTrees:          100,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
	}
}

// RandomForest is a bagged ensemble of DecisionTrees voting by majority.
type RandomForest struct {
	Params  ForestParams    `json:"params"`
	Width   int             `json:"width"`
	Classes []int           `json:"classes"`
	Trees   []*DecisionTree `json:"trees"`

	rnd *rand.Rand
}

func NewRandomForest(params ForestParams, rnd *rand.Rand) *RandomForest {
	if params.NTrees <= 0 {
		params.NTrees = DefaultForestParams().NTrees
	}
	if params.MaxFeatures == "" {
		params.MaxFeatures = "sqrt"
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(1))
	}
	return &RandomForest{Params: params, rnd: rnd}
}

// ResolveMaxFeatures converts the MaxFeatures setting for a given width.
func ResolveMaxFeatures(setting string, width int) (int, error) {
	var n int
	switch setting {
	case "", "sqrt":
		n = int(math.Sqrt(float64(width)))
	case "log2":
		n = int(math.Log2(float64(width)))
	case "all":
		n = width
	default:
		v, err := strconv.Atoi(setting)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid max_features %q", setting)
		}
		n = v
	}
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n, nil
}

// Train fits NTrees trees. It stops early with ctx.Err() when cancelled.
func (rf *RandomForest) Train(ctx context.Context, features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if rf.rnd == nil {
		rf.rnd = rand.New(rand.NewSource(1))
	}

	width := len(features[0])
	maxFeatures, err := ResolveMaxFeatures(rf.Params.MaxFeatures, width)
	if err != nil {
		return err
	}
	treeParams := TreeParams{
		MaxDepth:        rf.Params.MaxDepth,
		MinSamplesSplit: rf.Params.MinSamplesSplit,
		MaxFeatures:     maxFeatures,
	}

	trees := make([]*DecisionTree, 0, rf.Params.NTrees)
	for t := 0; t < rf.Params.NTrees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sampleX, sampleY := features, labels
		if rf.Params.Bootstrap {
			sampleX, sampleY = bootstrap(features, labels, rf.rnd)
		}
		tree := NewDecisionTree(treeParams, rand.New(rand.NewSource(rf.rnd.Int63())))
		if err := tree.Train(sampleX, sampleY); err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		trees = append(trees, tree)
	}

	rf.Width = width
	rf.Classes = uniqueLabels(labels)
	rf.Trees = trees
	return nil
}

// Predict returns the majority vote and the share of trees that cast it.
// Ties go to the smaller label.
func (rf *RandomForest) Predict(features []float64) (int, float64, error) {
	if len(rf.Trees) == 0 {
		return 0, 0, ErrNotTrained
	}
	if len(features) != rf.Width {
		return 0, 0, fmt.Errorf("expected %d features, got %d", rf.Width, len(features))
	}
	votes := make(map[int]int, len(rf.Classes))
	for _, tree := range rf.Trees {
		label, _, err := tree.Predict(features)
		if err != nil {
			return 0, 0, err
		}
		votes[label]++
	}

	bestLabel, bestVotes := 0, -1
	for _, label := range rf.Classes {
		if votes[label] > bestVotes {
			bestLabel, bestVotes = label, votes[label]
		}
	}
	return bestLabel, float64(bestVotes) / float64(len(rf.Trees)), nil
}

// Validate checks a decoded forest against the expected input width.
func (rf *RandomForest) Validate(width int) error {
	if len(rf.Trees) == 0 {
		return ErrNotTrained
	}
	if rf.Width != width {
		return fmt.Errorf("forest width %d does not match %d features", rf.Width, width)
	}
	if len(rf.Classes) == 0 {
		return errors.New("forest has no classes")
	}
	for i, tree := range rf.Trees {
		if tree == nil {
			return fmt.Errorf("tree %d is empty", i)
		}
		if err := tree.validate(width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func bootstrap(features [][]float64, labels []int, rnd *rand.Rand) ([][]float64, []int) {
	n := len(features)
	x := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		idx := rnd.Intn(n)
		x[i] = features[idx]
		y[i] = labels[idx]
	}
	return x, y
}
