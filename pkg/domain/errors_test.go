package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{&DuplicateIDError{ID: "x"}, KindDuplicateID},
		{&UnknownReferenceError{From: "a", Ref: "b"}, KindUnknownReference},
		{&TypeMismatchError{From: "a", Ref: "b"}, KindTypeMismatch},
		{&InvalidTransitionError{From: ElementEvent, To: ElementAutomation}, KindInvalidTransition},
		{&CycleError{From: "a", To: "b"}, KindCycle},
		{&CompositionError{SliceID: "s"}, KindComposition},
		{&DisconnectedElementError{SliceID: "s", ElementID: "e"}, KindDisconnectedElement},
		{&ReferencedElementError{ID: "e"}, KindReferencedElement},
		{&SchemaViolationError{Reason: "r"}, KindSchemaViolation},
		{errors.New("plain"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	inner := &CycleError{From: "a", To: "b"}
	wrapped := fmt.Errorf("commit failed: %w", inner)
	if got := KindOf(wrapped); got != KindCycle {
		t.Errorf("KindOf(wrapped) = %q, want CYCLE", got)
	}

	var ce *CycleError
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As should unwrap to *CycleError")
	}
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: KindSequencing, SliceID: "s1", Message: "out of order"}
	if got := w.String(); got != `[SEQUENCING] slice "s1": out of order` {
		t.Errorf("unexpected format: %s", got)
	}
}
