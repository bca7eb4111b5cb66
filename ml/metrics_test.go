package ml

import (
	"errors"
	"math"
	"testing"
)

type fakeModel struct {
	labels []int
	calls  int
	err    error
}

func (f *fakeModel) Predict(features []float64) (int, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	label := f.labels[f.calls]
	f.calls++
	return label, 1, nil
}

func TestEvaluate(t *testing.T) {
	model := &fakeModel{labels: []int{1, 1, 0, 0}}
	testX := [][]float64{{0}, {0}, {0}, {0}}
	testY := []int{1, 0, 1, 0}

	m := Evaluate(model, testX, testY, 1)
	if m.Samples != 4 || m.Accuracy != 0.5 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if m.Precision != 0.5 || m.Recall != 0.5 {
		t.Fatalf("unexpected precision/recall %+v", m)
	}
	if math.Abs(m.F1-0.5) > 1e-9 {
		t.Fatalf("unexpected f1 %f", m.F1)
	}
}

func TestEvaluateEmptyAndFailing(t *testing.T) {
	if m := Evaluate(&fakeModel{}, nil, nil, 1); m != (Metrics{}) {
		t.Fatalf("expected zero metrics, got %+v", m)
	}
	m := Evaluate(&fakeModel{err: errors.New("boom")}, [][]float64{{0}, {0}}, []int{1, 0}, 1)
	if m.Accuracy != 0 || m.Recall != 0 {
		t.Fatalf("failed predictions must not count as correct: %+v", m)
	}
}
