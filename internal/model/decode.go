package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeProblem reads a problem in JSON or YAML. Unknown fields are errors
// in both formats.
func DecodeProblem(data []byte) (ProblemIn, error) {
	var in ProblemIn
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return in, fmt.Errorf("%w: empty document", ErrInvalidProblem)
	}
	if trimmed[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return in, fmt.Errorf("%w: decode json: %w", ErrInvalidProblem, err)
		}
		return in, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(trimmed))
	dec.KnownFields(true)
	if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
		return in, fmt.Errorf("%w: decode yaml: %w", ErrInvalidProblem, err)
	}
	return in, nil
}

// LoadProblemFile decodes the problem stored at path.
func LoadProblemFile(path string) (ProblemIn, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProblemIn{}, fmt.Errorf("load problem: %w", err)
	}
	in, err := DecodeProblem(data)
	if err != nil {
		return ProblemIn{}, fmt.Errorf("load problem %s: %w", path, err)
	}
	return in, nil
}
