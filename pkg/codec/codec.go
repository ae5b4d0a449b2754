// Package codec converts models to and from the canonical JSON shape.
// Decoding is fail-closed: input is validated against the embedded
// OpenAPI schema (unknown keys and unknown enum values are errors), then
// decoded strictly, then run through the rule engine. No partially-built
// model ever escapes.
package codec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/rules"
)

//go:embed schema.yaml
var schemaYAML []byte

var (
	schemaOnce  sync.Once
	modelSchema *openapi3.Schema
	schemaErr   error
)

// loadSchema parses the embedded schema document once per process.
func loadSchema() (*openapi3.Schema, error) {
	schemaOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(schemaYAML)
		if err != nil {
			schemaErr = fmt.Errorf("failed to load embedded schema: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			schemaErr = fmt.Errorf("embedded schema is invalid: %w", err)
			return
		}
		ref, ok := doc.Components.Schemas["Model"]
		if !ok || ref.Value == nil {
			schemaErr = errors.New("embedded schema is missing the Model definition")
			return
		}
		modelSchema = ref.Value
	})
	return modelSchema, schemaErr
}

// Encode serializes the model into canonical JSON: a {"slices": [...]}
// object, two-space indented, arrays in insertion order, empty optional
// collections omitted.
func Encode(m *domain.Model) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return data, nil
}

// Decode is the strict load path: schema validation, strict typed decode
// and the full rule engine pass. Sequencing findings come back as
// warnings next to the model.
func Decode(data []byte) (*domain.Model, []domain.Warning, error) {
	m, err := decodeRaw(data)
	if err != nil {
		return nil, nil, err
	}
	warnings, err := rules.ValidateModel(m)
	if err != nil {
		return nil, nil, err
	}
	return m, warnings, nil
}

// DecodeDraft loads a model that is schema-conformant and globally
// consistent but may not yet satisfy per-slice composition rules. Stores
// use this path so half-built authoring sessions survive persistence.
func DecodeDraft(data []byte) (*domain.Model, error) {
	m, err := decodeRaw(data)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateGlobal(m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeRaw(data []byte) (*domain.Model, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &domain.SchemaViolationError{Reason: "invalid JSON: " + err.Error()}
	}
	if err := schema.VisitJSON(raw); err != nil {
		return nil, asSchemaViolation(err)
	}

	// Belt and braces: the schema already rejects unknown keys, but the
	// strict decoder catches drift between schema.yaml and the structs.
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var m domain.Model
	if err := dec.Decode(&m); err != nil {
		return nil, &domain.SchemaViolationError{Reason: err.Error()}
	}
	m.Reindex()
	return &m, nil
}

func asSchemaViolation(err error) error {
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		reason := se.Reason
		if reason == "" {
			reason = se.Error()
		}
		return &domain.SchemaViolationError{
			Path:   "/" + strings.Join(se.JSONPointer(), "/"),
			Reason: reason,
		}
	}
	return &domain.SchemaViolationError{Reason: err.Error()}
}
