package ml

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadArtifact reads and validates a model artifact.
func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var header struct {
		ModelType string `json:"model_type"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
	}

	switch header.ModelType {
	case ModelTypeRandomForest:
		var artifact Artifact
		if err := json.Unmarshal(payload, &artifact); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleArtifact, err)
		}
		if err := artifact.Validate(); err != nil {
			return nil, err
		}
		return &artifact, nil
	default:
		return nil, fmt.Errorf("%w: unsupported model type %q", ErrIncompatibleArtifact, header.ModelType)
	}
}
