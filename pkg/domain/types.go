package domain

import "fmt"

// SliceType classifies a slice by the kind of business step it models.
type SliceType string

const (
	SliceStateChange SliceType = "STATE_CHANGE"
	SliceStateView   SliceType = "STATE_VIEW"
	SliceAutomation  SliceType = "AUTOMATION"
)

// Valid reports whether t is one of the known slice types.
func (t SliceType) Valid() bool {
	switch t {
	case SliceStateChange, SliceStateView, SliceAutomation:
		return true
	}
	return false
}

// ParseSliceType converts a raw string into a SliceType.
func ParseSliceType(s string) (SliceType, error) {
	t := SliceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown slice type: %q", s)
	}
	return t, nil
}

// SliceStatus tracks the implementation progress of a slice. It is
// display metadata only and never participates in validation.
type SliceStatus string

const (
	StatusPlanned     SliceStatus = "PLANNED"
	StatusInProgress  SliceStatus = "IN_PROGRESS"
	StatusImplemented SliceStatus = "IMPLEMENTED"
)

// Valid reports whether s is a known status. The empty string is valid
// (status is optional).
func (s SliceStatus) Valid() bool {
	switch s {
	case "", StatusPlanned, StatusInProgress, StatusImplemented:
		return true
	}
	return false
}

// ElementType classifies a node in the model graph.
type ElementType string

const (
	ElementCommand    ElementType = "COMMAND"
	ElementEvent      ElementType = "EVENT"
	ElementReadModel  ElementType = "READMODEL"
	ElementScreen     ElementType = "SCREEN"
	ElementAutomation ElementType = "AUTOMATION"
)

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case ElementCommand, ElementEvent, ElementReadModel, ElementScreen, ElementAutomation:
		return true
	}
	return false
}

// ParseElementType converts a raw string into an ElementType.
func ParseElementType(s string) (ElementType, error) {
	t := ElementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown element type: %q", s)
	}
	return t, nil
}

// DependencyType gives the direction of a dependency descriptor relative
// to the element that carries it.
type DependencyType string

const (
	DependencyInbound  DependencyType = "INBOUND"
	DependencyOutbound DependencyType = "OUTBOUND"
)

// Valid reports whether t is INBOUND or OUTBOUND.
func (t DependencyType) Valid() bool {
	return t == DependencyInbound || t == DependencyOutbound
}

// Mirror returns the direction the matching descriptor on the other
// endpoint must carry.
func (t DependencyType) Mirror() DependencyType {
	if t == DependencyInbound {
		return DependencyOutbound
	}
	return DependencyInbound
}

// FieldType is the closed set of attribute types.
type FieldType string

const (
	FieldString   FieldType = "String"
	FieldBoolean  FieldType = "Boolean"
	FieldDouble   FieldType = "Double"
	FieldDecimal  FieldType = "Decimal"
	FieldLong     FieldType = "Long"
	FieldCustom   FieldType = "Custom"
	FieldDate     FieldType = "Date"
	FieldDateTime FieldType = "DateTime"
	FieldUUID     FieldType = "UUID"
	FieldInt      FieldType = "Int"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldBoolean, FieldDouble, FieldDecimal, FieldLong,
		FieldCustom, FieldDate, FieldDateTime, FieldUUID, FieldInt:
		return true
	}
	return false
}

// Cardinality says whether a field holds one value or a list of them.
// The empty string means Single.
type Cardinality string

const (
	CardinalitySingle Cardinality = "Single"
	CardinalityList   Cardinality = "List"
)

// Valid reports whether c is a known cardinality (empty counts as Single).
func (c Cardinality) Valid() bool {
	return c == "" || c == CardinalitySingle || c == CardinalityList
}

// StepType classifies a Given/When/Then specification step.
type StepType string

const (
	StepEvent     StepType = "SPEC_EVENT"
	StepCommand   StepType = "SPEC_COMMAND"
	StepReadModel StepType = "SPEC_READMODEL"
	StepError     StepType = "SPEC_ERROR"
)

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	switch t {
	case StepEvent, StepCommand, StepReadModel, StepError:
		return true
	}
	return false
}

// LinksTo returns the element type a step of this type must reference,
// and whether it references one at all (SPEC_ERROR links nothing).
func (t StepType) LinksTo() (ElementType, bool) {
	switch t {
	case StepEvent:
		return ElementEvent, true
	case StepCommand:
		return ElementCommand, true
	case StepReadModel:
		return ElementReadModel, true
	}
	return "", false
}
