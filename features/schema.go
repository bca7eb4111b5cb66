// Package features holds the measurement schema shared by training and
// inference. Both sides build feature vectors from the same ordered list.
package features

import (
	"errors"
	"fmt"
)

// Measurement columns, spelled exactly as in the dataset header.
const (
	PH              = "ph"
	Hardness        = "Hardness"
	Solids          = "Solids"
	Chloramines     = "Chloramines"
	Sulfate         = "Sulfate"
	Conductivity    = "Conductivity"
	OrganicCarbon   = "Organic_carbon"
	Trihalomethanes = "Trihalomethanes"
	Turbidity       = "Turbidity"

	// LabelColumn holds 1 for potable samples and 0 otherwise.
	LabelColumn = "Potability"
)

// SchemaVersion is stamped into every model artifact.
const SchemaVersion = "potability/v1"

var ErrUnknownFeature = errors.New("unknown feature")

var measurements = []string{
	PH,
	Hardness,
	Solids,
	Chloramines,
	Sulfate,
	Conductivity,
	OrganicCarbon,
	Trihalomethanes,
	Turbidity,
}

// Measurements returns the nine measurement names in dataset order.
func Measurements() []string {
	return append([]string(nil), measurements...)
}

// IsMeasurement reports whether name is one of the dataset measurements.
func IsMeasurement(name string) bool {
	for _, m := range measurements {
		if m == name {
			return true
		}
	}
	return false
}

// Schema is an ordered list of model inputs.
type Schema struct {
	Version  string
	Features []string
	Label    string
}

// Default returns the schema over all nine measurements.
func Default() *Schema {
	return &Schema{
		Version:  SchemaVersion,
		Features: Measurements(),
		Label:    LabelColumn,
	}
}

// New builds a schema from names. An empty list selects every measurement.
func New(names []string) (*Schema, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !IsMeasurement(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
	}
	return &Schema{
		Version:  SchemaVersion,
		Features: append([]string(nil), names...),
		Label:    LabelColumn,
	}, nil
}

// Width is the length of the feature vector.
func (s *Schema) Width() int {
	return len(s.Features)
}

// Index returns the vector position of name, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Features {
		if f == name {
			return i
		}
	}
	return -1
}

// Equal reports whether names lists the same features in the same order.
func (s *Schema) Equal(names []string) bool {
	if len(names) != len(s.Features) {
		return false
	}
	for i := range names {
		if names[i] != s.Features[i] {
			return false
		}
	}
	return true
}
