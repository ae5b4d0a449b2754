package domain

import "time"

// MutationEvent describes a successful builder mutation.
type MutationEvent struct {
	Op        string // addSlice, addElement, addDependency, ...
	SliceID   string
	ElementID string
}

// RejectEvent describes a builder mutation that was rolled back.
type RejectEvent struct {
	Op   string
	Kind ErrorKind
}

// CommitEvent describes a completed slice commit.
type CommitEvent struct {
	SliceID  string
	Warnings int
	Duration time.Duration
}

// LifecycleHooks defines callbacks for engine observability. All hooks
// are optional and are invoked synchronously on the mutating goroutine.
type LifecycleHooks struct {
	OnMutation func(*MutationEvent)
	OnReject   func(*RejectEvent)
	OnCommit   func(*CommitEvent)
}
