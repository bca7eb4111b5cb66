package ml

import (
	"errors"
	"math/rand"
	"testing"
)

func TestDecisionTreeLearnsThreshold(t *testing.T) {
	x, y := separable(40)
	tree := NewDecisionTree(TreeParams{}, rand.New(rand.NewSource(3)))
	if err := tree.Train(x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, row := range x {
		label, confidence, err := tree.Predict(row)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if label != y[i] {
			t.Fatalf("row %d: got %d want %d", i, label, y[i])
		}
		if confidence != 1 {
			t.Fatalf("expected pure leaf, got confidence %f", confidence)
		}
	}
	if err := tree.validate(2); err != nil {
		t.Fatalf("expected valid tree: %v", err)
	}
}

func TestDecisionTreeZeroValue(t *testing.T) {
	tree := &DecisionTree{}
	if _, _, err := tree.Predict([]float64{1}); !errors.Is(err, ErrNotTrained) {
		t.Fatalf("expected ErrNotTrained, got %v", err)
	}
	if err := tree.Train([][]float64{{1}, {2}}, []int{0, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	label, _, err := tree.Predict([]float64{2})
	if err != nil || label != 1 {
		t.Fatalf("got label %d err %v", label, err)
	}
}

func TestDecisionTreeMaxDepth(t *testing.T) {
	x, y := separable(40)
	tree := NewDecisionTree(TreeParams{MaxDepth: 1}, nil)
	if err := tree.Train(x, y); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Nodes) > 3 {
		t.Fatalf("depth-1 tree should have at most 3 nodes, got %d", len(tree.Nodes))
	}
}

func TestDecisionTreeSingleClass(t *testing.T) {
	tree := NewDecisionTree(TreeParams{}, nil)
	if err := tree.Train([][]float64{{1}, {2}, {3}}, []int{0, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Nodes) != 1 || !tree.Nodes[0].IsLeaf {
		t.Fatalf("expected a single leaf, got %+v", tree.Nodes)
	}
}

func TestDecisionTreeTrainErrors(t *testing.T) {
	tree := NewDecisionTree(TreeParams{}, nil)
	if err := tree.Train(nil, nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if err := tree.Train([][]float64{{1}}, []int{0, 1}); err == nil {
		t.Fatal("expected error for size mismatch")
	}
	if err := tree.Train([][]float64{{1}, {1, 2}}, []int{0, 1}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestDecisionTreeValidateRejectsBadLinks(t *testing.T) {
	tree := &DecisionTree{Nodes: []TreeNode{
		{FeatureIdx: 0, LeftChild: 0, RightChild: 1},
		{IsLeaf: true},
	}}
	if err := tree.validate(1); err == nil {
		t.Fatal("expected error for self-referencing node")
	}
	tree.Nodes[0] = TreeNode{FeatureIdx: 4, LeftChild: 1, RightChild: 1}
	if err := tree.validate(1); err == nil {
		t.Fatal("expected error for out of range feature")
	}
}

func TestMidpoint(t *testing.T) {
	if got := midpoint(1, 2); got != 1.5 {
		t.Fatalf("got %f", got)
	}
	lo := 1.0
	hi := 1.0000000000000002
	if got := midpoint(lo, hi); got < lo || got >= hi {
		t.Fatalf("midpoint %v outside [%v,%v)", got, lo, hi)
	}
}
