package ml

import (
	"context"
	"errors"
)

var ErrNotTrained = errors.New("model not trained")

// Classifier predicts a class label and a confidence in [0,1].
type Classifier interface {
	Predict(features []float64) (int, float64, error)
}

// Model is a Classifier that can be fitted.
type Model interface {
	Classifier
	Train(ctx context.Context, features [][]float64, labels []int) error
}
