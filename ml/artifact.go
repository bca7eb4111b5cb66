package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"waterguard/features"
)

const (
	ArtifactFormatVersion = 1
	ModelTypeRandomForest = "random_forest"
)

var ErrIncompatibleArtifact = errors.New("incompatible model artifact")

// Artifact is the persisted model plus the metadata needed to check that a
// request vector matches what the model was fitted on.
type Artifact struct {
	FormatVersion int           `json:"format_version"`
	ModelType     string        `json:"model_type"`
	SchemaVersion string        `json:"schema_version"`
	Features      []string      `json:"features"`
	LabelColumn   string        `json:"label_column"`
	TrainedAt     time.Time     `json:"trained_at"`
	TrainingRows  int           `json:"training_rows"`
	TestRows      int           `json:"test_rows"`
	Metrics       Metrics       `json:"metrics"`
	Forest        *RandomForest `json:"forest,omitempty"`
}

func NewArtifact(schema *features.Schema, forest *RandomForest) *Artifact {
	return &Artifact{
		FormatVersion: ArtifactFormatVersion,
		ModelType:     ModelTypeRandomForest,
		SchemaVersion: schema.Version,
		Features:      append([]string(nil), schema.Features...),
		LabelColumn:   schema.Label,
		TrainedAt:     time.Now().UTC(),
		Forest:        forest,
	}
}

// Schema rebuilds the input schema recorded in the artifact.
func (a *Artifact) Schema() (*features.Schema, error) {
	schema, err := features.New(a.Features)
	if err != nil {
		return nil, err
	}
	schema.Version = a.SchemaVersion
	if a.LabelColumn != "" {
		schema.Label = a.LabelColumn
	}
	return schema, nil
}

func (a *Artifact) Predict(vector []float64) (int, float64, error) {
	if a.Forest == nil {
		return 0, 0, ErrNotTrained
	}
	return a.Forest.Predict(vector)
}

// Validate reports ErrIncompatibleArtifact when the artifact cannot serve
// predictions for its own feature list.
func (a *Artifact) Validate() error {
	if a.FormatVersion != ArtifactFormatVersion {
		return fmt.Errorf("%w: format version %d, want %d", ErrIncompatibleArtifact, a.FormatVersion, ArtifactFormatVersion)
	}
	if a.SchemaVersion != features.SchemaVersion {
		return fmt.Errorf("%w: schema version %q, want %q", ErrIncompatibleArtifact, a.SchemaVersion, features.SchemaVersion)
	}
	if len(a.Features) == 0 {
		return fmt.Errorf("%w: no features recorded", ErrIncompatibleArtifact)
	}
	if _, err := features.New(a.Features); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	if a.Forest == nil {
		return fmt.Errorf("%w: missing forest", ErrIncompatibleArtifact)
	}
	if err := a.Forest.Validate(len(a.Features)); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}
	return nil
}

// Save writes the artifact to path, replacing any previous file. The write
// goes through a temporary file in the same directory and a rename.
func (a *Artifact) Save(path string) error {
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return ErrNotTrained
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
