// Package predictor serves predictions from a loaded model artifact. A
// Predictor is built once at startup and is read-only afterwards, so it can be
// shared by concurrent requests.
package predictor

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"waterguard/features"
	"waterguard/ml"
)

const (
	LabelSafe   = "Safe"
	LabelUnsafe = "Unsafe"
)

type Prediction struct {
	Class      int
	Confidence float64
}

// Verdict maps class 1 to Safe and everything else to Unsafe.
func (p Prediction) Verdict() string {
	if p.Class == 1 {
		return LabelSafe
	}
	return LabelUnsafe
}

// ModelInfo is the artifact metadata without the trees.
type ModelInfo struct {
	ModelType     string     `json:"model_type"`
	SchemaVersion string     `json:"schema_version"`
	Features      []string   `json:"features"`
	TrainedAt     time.Time  `json:"trained_at"`
	TrainingRows  int        `json:"training_rows"`
	TestRows      int        `json:"test_rows"`
	Trees         int        `json:"trees"`
	Metrics       ml.Metrics `json:"metrics"`
}

type Predictor struct {
	artifact *ml.Artifact
	schema   *features.Schema
	cache    *lru.Cache[string, Prediction]
}

// New wraps a validated artifact. cacheSize 0 disables memoisation.
func New(artifact *ml.Artifact, cacheSize int) (*Predictor, error) {
	if err := artifact.Validate(); err != nil {
		return nil, err
	}
	schema, err := artifact.Schema()
	if err != nil {
		return nil, err
	}
	p := &Predictor{artifact: artifact, schema: schema}
	if cacheSize > 0 {
		cache, err := lru.New[string, Prediction](cacheSize)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// Load reads the artifact at path. When expected is non-empty the artifact
// must have been fitted on exactly those features, in order.
func Load(path string, expected []string, cacheSize int) (*Predictor, error) {
	artifact, err := ml.LoadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	if len(expected) > 0 {
		want, err := features.New(expected)
		if err != nil {
			return nil, err
		}
		if !want.Equal(artifact.Features) {
			return nil, fmt.Errorf("%w: model features %v, configured %v", ml.ErrIncompatibleArtifact, artifact.Features, expected)
		}
	}
	return New(artifact, cacheSize)
}

func (p *Predictor) Schema() *features.Schema {
	return p.schema
}

// Predict classifies one feature vector in schema order.
func (p *Predictor) Predict(vector []float64) (Prediction, error) {
	if len(vector) != p.schema.Width() {
		return Prediction{}, fmt.Errorf("expected %d features, got %d", p.schema.Width(), len(vector))
	}
	var key string
	if p.cache != nil {
		key = cacheKey(vector)
		if cached, ok := p.cache.Get(key); ok {
			return cached, nil
		}
	}

	class, confidence, err := p.artifact.Predict(vector)
	if err != nil {
		return Prediction{}, err
	}
	prediction := Prediction{Class: class, Confidence: confidence}
	if p.cache != nil {
		p.cache.Add(key, prediction)
	}
	return prediction, nil
}

// PredictJSON validates a request body against the schema and classifies it.
// Validation failures are returned as *features.ValidationError.
func (p *Predictor) PredictJSON(body []byte) (Prediction, error) {
	vector, err := p.schema.ParseJSON(body)
	if err != nil {
		return Prediction{}, err
	}
	return p.Predict(vector)
}

func (p *Predictor) Info() ModelInfo {
	a := p.artifact
	return ModelInfo{
		ModelType:     a.ModelType,
		SchemaVersion: a.SchemaVersion,
		Features:      append([]string(nil), a.Features...),
		TrainedAt:     a.TrainedAt,
		TrainingRows:  a.TrainingRows,
		TestRows:      a.TestRows,
		Trees:         len(a.Forest.Trees),
		Metrics:       a.Metrics,
	}
}

func cacheKey(vector []float64) string {
	buf := make([]byte, 8*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return string(buf)
}
