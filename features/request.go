package features

import (
	"bytes"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

// ValidationError describes a request body that cannot become a feature
// vector. Fields lists the offending keys in schema order.
type ValidationError struct {
	Reason string
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Reason
	}
	return e.Reason + ": " + strings.Join(e.Fields, ", ")
}

// ParseJSON builds a feature vector from a JSON object. Every schema feature
// must be present and hold a finite JSON number; other keys are ignored.
func (s *Schema) ParseJSON(body []byte) ([]float64, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil, &ValidationError{Reason: "invalid JSON body"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &ValidationError{Reason: "invalid JSON body"}
	}

	// Keys may contain gjson path syntax, so match them literally.
	fields := make(map[string]gjson.Result, len(s.Features))
	root.ForEach(func(key, value gjson.Result) bool {
		fields[key.String()] = value
		return true
	})

	vector := make([]float64, len(s.Features))
	var missing, nonNumeric []string
	for i, name := range s.Features {
		value, ok := fields[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if value.Type != gjson.Number {
			nonNumeric = append(nonNumeric, name)
			continue
		}
		f := value.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			nonNumeric = append(nonNumeric, name)
			continue
		}
		vector[i] = f
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Reason: "missing required fields", Fields: missing}
	}
	if len(nonNumeric) > 0 {
		return nil, &ValidationError{Reason: "non-numeric fields", Fields: nonNumeric}
	}
	return vector, nil
}

// FromMap builds a feature vector from named values.
func (s *Schema) FromMap(values map[string]float64) ([]float64, error) {
	vector := make([]float64, len(s.Features))
	var missing []string
	for i, name := range s.Features {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		vector[i] = v
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Reason: "missing required fields", Fields: missing}
	}
	return vector, nil
}
