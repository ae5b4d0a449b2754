package domain

// Field describes a typed, example-bearing attribute of an element or
// table. Fields nest through Subfields; a nested field tree is only legal
// under the Custom type.
//
// The four flags are tri-state pointers so that an explicit "false"
// survives a serialization round trip, while an absent flag stays absent.
type Field struct {
	Name               string      `json:"name"`
	Type               FieldType   `json:"type"`
	Example            any         `json:"example,omitempty"`
	Cardinality        Cardinality `json:"cardinality,omitempty"`
	Optional           *bool       `json:"optional,omitempty"`
	IDAttribute        *bool       `json:"idAttribute,omitempty"`
	TechnicalAttribute *bool       `json:"technicalAttribute,omitempty"`
	Generated          *bool       `json:"generated,omitempty"`
	Subfields          []Field     `json:"subfields,omitempty"`
	Mapping            string      `json:"mapping,omitempty"`
	Schema             string      `json:"schema,omitempty"`
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	c := f
	c.Optional = cloneBool(f.Optional)
	c.IDAttribute = cloneBool(f.IDAttribute)
	c.TechnicalAttribute = cloneBool(f.TechnicalAttribute)
	c.Generated = cloneBool(f.Generated)
	c.Subfields = CloneFields(f.Subfields)
	return c
}

// CloneFields deep-copies a field list, preserving nil-ness.
func CloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// ValidateFields checks a field list recursively: non-empty names, known
// type and cardinality, sibling name uniqueness, and the rule that a
// field with subfields must be Custom-typed. The path names the owner
// (element or table id) for error messages.
func ValidateFields(path string, fields []Field) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldPath := path + "/" + f.Name
		if f.Name == "" {
			return &SchemaViolationError{Path: path, Reason: "field name must not be empty"}
		}
		if !f.Type.Valid() {
			return &SchemaViolationError{Path: fieldPath, Reason: "unknown field type: " + string(f.Type)}
		}
		if !f.Cardinality.Valid() {
			return &SchemaViolationError{Path: fieldPath, Reason: "unknown cardinality: " + string(f.Cardinality)}
		}
		if seen[f.Name] {
			return &SchemaViolationError{Path: fieldPath, Reason: "duplicate field name among siblings"}
		}
		seen[f.Name] = true
		if len(f.Subfields) > 0 {
			if f.Type != FieldCustom {
				return &SchemaViolationError{Path: fieldPath, Reason: "field with subfields must have type Custom"}
			}
			if err := ValidateFields(fieldPath, f.Subfields); err != nil {
				return err
			}
		}
	}
	return nil
}
