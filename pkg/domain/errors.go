package domain

import (
	"errors"
	"fmt"
)

// ErrModelNotFound is returned when a model id cannot be found in a store.
var ErrModelNotFound = errors.New("model not found")

// ErrorKind identifies a structural error category. Kind strings are
// stable API: the HTTP and MCP adapters map them to status codes and the
// metrics layer uses them as label values.
type ErrorKind string

const (
	KindDuplicateID         ErrorKind = "DUPLICATE_ID"
	KindUnknownReference    ErrorKind = "UNKNOWN_REFERENCE"
	KindTypeMismatch        ErrorKind = "TYPE_MISMATCH"
	KindInvalidTransition   ErrorKind = "INVALID_TRANSITION"
	KindCycle               ErrorKind = "CYCLE"
	KindComposition         ErrorKind = "COMPOSITION"
	KindDisconnectedElement ErrorKind = "DISCONNECTED_ELEMENT"
	KindReferencedElement   ErrorKind = "REFERENCED_ELEMENT"
	KindSchemaViolation     ErrorKind = "SCHEMA_VIOLATION"
	KindSequencing          ErrorKind = "SEQUENCING"
)

// DuplicateIDError reports an id collision across the whole model.
type DuplicateIDError struct {
	ID string
	// Existing names where the id already lives (slice id or "slices").
	Existing string
}

func (e *DuplicateIDError) Error() string {
	if e.Existing == "" {
		return fmt.Sprintf("duplicate id %q", e.ID)
	}
	return fmt.Sprintf("duplicate id %q (already defined in %s)", e.ID, e.Existing)
}

// Kind returns KindDuplicateID.
func (e *DuplicateIDError) Kind() ErrorKind { return KindDuplicateID }

// UnknownReferenceError reports a dependency or linkedId pointing at a
// non-existent element, or a missing mirror descriptor.
type UnknownReferenceError struct {
	From string // element or specification carrying the reference
	Ref  string // the id that failed to resolve
	Hint string // optional detail, e.g. "missing INBOUND mirror"
}

func (e *UnknownReferenceError) Error() string {
	msg := fmt.Sprintf("%s references unknown element %q", e.From, e.Ref)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// Kind returns KindUnknownReference.
func (e *UnknownReferenceError) Kind() ErrorKind { return KindUnknownReference }

// TypeMismatchError reports a descriptor whose declared elementType
// disagrees with the actual type of the referenced element.
type TypeMismatchError struct {
	From     string
	Ref      string
	Declared ElementType
	Actual   ElementType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s declares %q as %s but it is %s", e.From, e.Ref, e.Declared, e.Actual)
}

// Kind returns KindTypeMismatch.
func (e *TypeMismatchError) Kind() ErrorKind { return KindTypeMismatch }

// InvalidTransitionError reports an edge whose type pair is outside the
// allowed transition table.
type InvalidTransitionError struct {
	From   ElementType
	To     ElementType
	FromID string
	ToID   string
}

func (e *InvalidTransitionError) Error() string {
	if e.FromID != "" || e.ToID != "" {
		return fmt.Sprintf("invalid transition %s -> %s (%s -> %s)", e.From, e.To, e.FromID, e.ToID)
	}
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Kind returns KindInvalidTransition.
func (e *InvalidTransitionError) Kind() ErrorKind { return KindInvalidTransition }

// CycleError reports an edge that would close a cycle in the dependency
// graph.
type CycleError struct {
	From string
	To   string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -> %s would create a cycle", e.From, e.To)
}

// Kind returns KindCycle.
func (e *CycleError) Kind() ErrorKind { return KindCycle }

// CompositionError reports a slice that, at commit time, has the wrong
// count or kind of elements for its sliceType.
type CompositionError struct {
	SliceID string
	Reason  string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("slice %q: %s", e.SliceID, e.Reason)
}

// Kind returns KindComposition.
func (e *CompositionError) Kind() ErrorKind { return KindComposition }

// DisconnectedElementError reports an element with zero dependencies at
// slice commit.
type DisconnectedElementError struct {
	SliceID   string
	ElementID string
}

func (e *DisconnectedElementError) Error() string {
	return fmt.Sprintf("slice %q: element %q has no dependencies", e.SliceID, e.ElementID)
}

// Kind returns KindDisconnectedElement.
func (e *DisconnectedElementError) Kind() ErrorKind { return KindDisconnectedElement }

// ReferencedElementError reports a removal blocked by remaining
// references to the element.
type ReferencedElementError struct {
	ID           string
	ReferencedBy []string
}

func (e *ReferencedElementError) Error() string {
	return fmt.Sprintf("element %q is still referenced by %v", e.ID, e.ReferencedBy)
}

// Kind returns KindReferencedElement.
func (e *ReferencedElementError) Kind() ErrorKind { return KindReferencedElement }

// SchemaViolationError reports input that does not conform to the
// canonical shape: unknown key, wrong enum value, missing required field,
// or an illegal field definition.
type SchemaViolationError struct {
	Path   string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Path == "" {
		return "schema violation: " + e.Reason
	}
	return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Reason)
}

// Kind returns KindSchemaViolation.
func (e *SchemaViolationError) Kind() ErrorKind { return KindSchemaViolation }

// Kinder is implemented by every structural error in the taxonomy.
type Kinder interface {
	error
	Kind() ErrorKind
}

// KindOf extracts the ErrorKind from err, unwrapping as needed. It
// returns the empty kind for errors outside the taxonomy.
func KindOf(err error) ErrorKind {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// Warning is a non-fatal finding surfaced alongside a successful commit.
type Warning struct {
	Kind    ErrorKind `json:"kind"`
	SliceID string    `json:"sliceId,omitempty"`
	Message string    `json:"message"`
}

func (w Warning) String() string {
	if w.SliceID == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] slice %q: %s", w.Kind, w.SliceID, w.Message)
}
