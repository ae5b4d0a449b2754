// Package builder is the single mutation surface of a model. Every
// mutating call is transactional: the model is cloned, the change is
// applied and validated on the clone, and only on success does the clone
// replace the live model. A failed call leaves the pre-call model
// untouched, byte for byte.
package builder

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/codec"
	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
	"github.com/aretw0/espalier/pkg/rules"
)

// Builder owns a model and its derived dependency graph. It is safe for
// concurrent use: reads take a shared lock, mutations an exclusive one.
type Builder struct {
	mu        sync.RWMutex
	model     *domain.Model
	committed map[string]bool
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Builder.
type Option func(*Builder)

// WithLogger sets a structured logger for mutation tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Builder) {
		b.hooks = hooks
	}
}

// New creates a builder over an empty model.
func New(opts ...Option) *Builder {
	b := &Builder{
		model:     domain.NewModel(),
		committed: make(map[string]bool),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Resume adopts an existing model, typically one loaded from a store.
// Global invariants are re-checked; all slices start uncommitted.
func Resume(m *domain.Model, opts ...Option) (*Builder, error) {
	b := New(opts...)
	adopted := m.Clone()
	if err := rules.ValidateGlobal(adopted); err != nil {
		return nil, err
	}
	b.model = adopted
	return b, nil
}

// mutate runs one transaction: clone, apply, validate, swap.
func (b *Builder) mutate(op string, fn func(next *domain.Model) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.model.Clone()
	if err := fn(next); err != nil {
		b.reject(op, err)
		return err
	}
	next.Reindex()
	if err := rules.ValidateGlobal(next); err != nil {
		b.reject(op, err)
		return err
	}
	b.model = next
	b.logger.Debug("mutation applied", "op", op)
	if b.hooks.OnMutation != nil {
		b.hooks.OnMutation(&domain.MutationEvent{Op: op})
	}
	return nil
}

func (b *Builder) reject(op string, err error) {
	b.logger.Warn("mutation rejected", "op", op, "err", err)
	if b.hooks.OnReject != nil {
		b.hooks.OnReject(&domain.RejectEvent{Op: op, Kind: domain.KindOf(err)})
	}
}

// AddSlice appends a slice. The payload may carry pre-populated element
// arrays (the deserializing collaborators use this); their ids and fields
// are validated like individual additions.
func (b *Builder) AddSlice(s domain.Slice) error {
	return b.mutate("addSlice", func(next *domain.Model) error {
		if s.ID == "" {
			return &domain.SchemaViolationError{Path: "slice", Reason: "id must not be empty"}
		}
		if !s.SliceType.Valid() {
			return &domain.SchemaViolationError{Path: "slice " + s.ID, Reason: "unknown slice type: " + string(s.SliceType)}
		}
		if _, exists := next.Slice(s.ID); exists {
			return &domain.DuplicateIDError{ID: s.ID, Existing: "slices"}
		}
		next.Slices = append(next.Slices, s.Clone())
		return nil
	})
}

// AddElement places an element into a slice, routed by its type: screens
// into the screens array, automations into processors. The element id
// must be unique across the whole model, not just the receiving slice.
func (b *Builder) AddElement(sliceID string, el domain.Element) error {
	return b.mutate("addElement", func(next *domain.Model) error {
		target, ok := next.Slice(sliceID)
		if !ok {
			return &domain.UnknownReferenceError{From: "addElement", Ref: sliceID}
		}
		if el.ID == "" {
			return &domain.SchemaViolationError{Path: "element", Reason: "id must not be empty"}
		}
		if !el.Type.Valid() {
			return &domain.SchemaViolationError{Path: "element " + el.ID, Reason: "unknown element type: " + string(el.Type)}
		}
		if owner, exists := next.SliceOf(el.ID); exists {
			return &domain.DuplicateIDError{ID: el.ID, Existing: owner}
		}
		if err := domain.ValidateFields("element "+el.ID, el.Fields); err != nil {
			return err
		}
		target.Place(el.Clone())
		next.Reindex()
		placed, _ := next.Element(el.ID)
		for _, d := range placed.Dependencies {
			if err := checkDescriptor(next, placed, d); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddDependency attaches one edge descriptor to an element. The
// referenced element must exist, the declared elementType must match its
// actual type, the type pair must be in the transition table, and the
// resulting edge must not close a cycle.
func (b *Builder) AddDependency(elementID string, d domain.Dependency) error {
	return b.mutate("addDependency", func(next *domain.Model) error {
		el, ok := next.Element(elementID)
		if !ok {
			return &domain.UnknownReferenceError{From: "addDependency", Ref: elementID}
		}
		if !d.Type.Valid() {
			return &domain.SchemaViolationError{Path: "element " + elementID, Reason: "unknown dependency type: " + string(d.Type)}
		}
		for _, existing := range el.Dependencies {
			if existing.ID == d.ID && existing.Type == d.Type {
				return &domain.DuplicateIDError{ID: d.ID, Existing: "dependencies of " + elementID}
			}
		}
		if err := checkDescriptor(next, el, d); err != nil {
			return err
		}
		g := graph.FromModel(next)
		from, to := edgeOf(el.ID, d)
		if !g.HasEdge(from, to) && g.WouldCreateCycle(from, to) {
			return &domain.CycleError{From: from, To: to}
		}
		el.Dependencies = append(el.Dependencies, d)
		return nil
	})
}

// Connect emits the symmetric descriptor pair for one edge: an OUTBOUND
// descriptor on from naming to, and the INBOUND mirror on to naming from.
// Titles and element types are denormalized from the endpoints.
// Connecting an already-connected pair is a no-op.
func (b *Builder) Connect(fromID, toID string) error {
	return b.mutate("connect", func(next *domain.Model) error {
		from, ok := next.Element(fromID)
		if !ok {
			return &domain.UnknownReferenceError{From: "connect", Ref: fromID}
		}
		to, ok := next.Element(toID)
		if !ok {
			return &domain.UnknownReferenceError{From: "connect", Ref: toID}
		}
		if err := rules.CheckTransition(from, to); err != nil {
			return err
		}
		for _, d := range from.Dependencies {
			if d.ID == toID && d.Type == domain.DependencyOutbound {
				return nil
			}
		}
		g := graph.FromModel(next)
		if g.WouldCreateCycle(fromID, toID) {
			return &domain.CycleError{From: fromID, To: toID}
		}
		from.Dependencies = append(from.Dependencies, domain.Dependency{
			ID:          toID,
			Type:        domain.DependencyOutbound,
			Title:       to.Title,
			ElementType: to.Type,
		})
		to.Dependencies = append(to.Dependencies, domain.Dependency{
			ID:          fromID,
			Type:        domain.DependencyInbound,
			Title:       from.Title,
			ElementType: from.Type,
		})
		return nil
	})
}

// AddSpecification attaches a Given/When/Then scenario to a slice after
// resolving every linkedId against the model.
func (b *Builder) AddSpecification(sliceID string, spec domain.Specification) error {
	return b.mutate("addSpecification", func(next *domain.Model) error {
		target, ok := next.Slice(sliceID)
		if !ok {
			return &domain.UnknownReferenceError{From: "addSpecification", Ref: sliceID}
		}
		for i := range next.Slices {
			for _, existing := range next.Slices[i].Specifications {
				if existing.ID == spec.ID {
					return &domain.DuplicateIDError{ID: spec.ID, Existing: "specifications of " + next.Slices[i].ID}
				}
			}
		}
		if err := rules.CheckSpecification(next, target.SliceType, &spec); err != nil {
			return err
		}
		target.Specifications = append(target.Specifications, spec.Clone())
		return nil
	})
}

// AddActor attaches an actor to a slice.
func (b *Builder) AddActor(sliceID string, a domain.Actor) error {
	return b.mutate("addActor", func(next *domain.Model) error {
		target, ok := next.Slice(sliceID)
		if !ok {
			return &domain.UnknownReferenceError{From: "addActor", Ref: sliceID}
		}
		if a.ID == "" {
			return &domain.SchemaViolationError{Path: "actor", Reason: "id must not be empty"}
		}
		for _, existing := range target.Actors {
			if existing.ID == a.ID {
				return &domain.DuplicateIDError{ID: a.ID, Existing: "actors of " + sliceID}
			}
		}
		target.Actors = append(target.Actors, a)
		return nil
	})
}

// AddTable attaches a table to a slice, validating its field tree.
func (b *Builder) AddTable(sliceID string, t domain.Table) error {
	return b.mutate("addTable", func(next *domain.Model) error {
		target, ok := next.Slice(sliceID)
		if !ok {
			return &domain.UnknownReferenceError{From: "addTable", Ref: sliceID}
		}
		if t.ID == "" {
			return &domain.SchemaViolationError{Path: "table", Reason: "id must not be empty"}
		}
		for _, existing := range target.Tables {
			if existing.ID == t.ID {
				return &domain.DuplicateIDError{ID: t.ID, Existing: "tables of " + sliceID}
			}
		}
		if err := domain.ValidateFields("table "+t.ID, t.Fields); err != nil {
			return err
		}
		target.Tables = append(target.Tables, t.Clone())
		return nil
	})
}

// RemoveElement deletes an element. Without cascade the call fails while
// any dependency descriptor or specification linkedId still points at it.
// With cascade the mirrored descriptors, referencing steps and any
// specification whose own linkedId would dangle are removed too.
func (b *Builder) RemoveElement(id string, cascade bool) error {
	return b.mutate("removeElement", func(next *domain.Model) error {
		if _, ok := next.Element(id); !ok {
			return &domain.UnknownReferenceError{From: "removeElement", Ref: id}
		}
		refs := referencesTo(next, id)
		if len(refs) > 0 && !cascade {
			return &domain.ReferencedElementError{ID: id, ReferencedBy: refs}
		}

		for i := range next.Slices {
			s := &next.Slices[i]
			removeFromArray(&s.Commands, id)
			removeFromArray(&s.Events, id)
			removeFromArray(&s.Readmodels, id)
			removeFromArray(&s.Screens, id)
			removeFromArray(&s.Processors, id)
			for _, el := range s.Elements() {
				el.Dependencies = dropDescriptors(el.Dependencies, id)
			}
			kept := s.Specifications[:0]
			for _, spec := range s.Specifications {
				if spec.LinkedID == id {
					continue
				}
				spec.Given = dropSteps(spec.Given, id)
				spec.When = dropSteps(spec.When, id)
				spec.Then = dropSteps(spec.Then, id)
				kept = append(kept, spec)
			}
			s.Specifications = kept
		}
		return nil
	})
}

// CommitSlice runs the type rule engine over one slice. On success the
// slice is marked committed and any sequencing warnings are returned;
// committing an already-committed slice re-checks it idempotently.
func (b *Builder) CommitSlice(sliceID string) ([]domain.Warning, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	s, ok := b.model.Slice(sliceID)
	if !ok {
		err := &domain.UnknownReferenceError{From: "commitSlice", Ref: sliceID}
		b.reject("commitSlice", err)
		return nil, err
	}
	warnings, err := rules.ValidateSlice(b.model, s)
	if err != nil {
		b.reject("commitSlice", err)
		return nil, err
	}
	b.committed[sliceID] = true
	b.logger.Info("slice committed", "slice", sliceID, "warnings", len(warnings))
	if b.hooks.OnCommit != nil {
		b.hooks.OnCommit(&domain.CommitEvent{
			SliceID:  sliceID,
			Warnings: len(warnings),
			Duration: time.Since(start),
		})
	}
	return warnings, nil
}

// Committed reports whether the slice has passed a commit check.
func (b *Builder) Committed(sliceID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.committed[sliceID]
}

// Slices returns deep copies of all slices in display (index) order.
func (b *Builder) Slices() []domain.Slice {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ordered := b.model.SlicesByIndex()
	out := make([]domain.Slice, len(ordered))
	for i, s := range ordered {
		out[i] = s.Clone()
	}
	return out
}

// Element returns a deep copy of the element with the given id.
func (b *Builder) Element(id string) (domain.Element, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	el, ok := b.model.Element(id)
	if !ok {
		return domain.Element{}, false
	}
	return el.Clone(), true
}

// Adjacency returns the dependency graph as a deterministic adjacency
// mapping over element ids.
func (b *Builder) Adjacency() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return graph.FromModel(b.model).Adjacency()
}

// Model returns a deep copy of the current model.
func (b *Builder) Model() *domain.Model {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model.Clone()
}

// Serialize encodes the current model into canonical JSON.
func (b *Builder) Serialize() ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return codec.Encode(b.model)
}

// checkDescriptor validates reference existence, declared-type agreement
// and transition legality for one descriptor carried by el.
func checkDescriptor(m *domain.Model, el *domain.Element, d domain.Dependency) error {
	if d.ID == "" {
		return &domain.SchemaViolationError{Path: "element " + el.ID, Reason: "dependency id must not be empty"}
	}
	target, ok := m.Element(d.ID)
	if !ok {
		return &domain.UnknownReferenceError{From: el.ID, Ref: d.ID}
	}
	if target.Type != d.ElementType {
		return &domain.TypeMismatchError{From: el.ID, Ref: d.ID, Declared: d.ElementType, Actual: target.Type}
	}
	if d.Type == domain.DependencyOutbound {
		return rules.CheckTransition(el, target)
	}
	return rules.CheckTransition(target, el)
}

// edgeOf resolves a descriptor on carrier into feed direction.
func edgeOf(carrierID string, d domain.Dependency) (from, to string) {
	if d.Type == domain.DependencyOutbound {
		return carrierID, d.ID
	}
	return d.ID, carrierID
}

// referencesTo lists descriptors and specification links still pointing
// at the element.
func referencesTo(m *domain.Model, id string) []string {
	var refs []string
	for i := range m.Slices {
		s := &m.Slices[i]
		for _, el := range s.Elements() {
			if el.ID == id {
				continue
			}
			for _, d := range el.Dependencies {
				if d.ID == id {
					refs = append(refs, "element "+el.ID)
					break
				}
			}
		}
		for _, spec := range s.Specifications {
			if spec.LinkedID == id {
				refs = append(refs, "specification "+spec.ID)
				continue
			}
			for _, group := range [][]domain.SpecificationStep{spec.Given, spec.When, spec.Then} {
				for _, step := range group {
					if step.LinkedID == id {
						refs = append(refs, "specification "+spec.ID)
					}
				}
			}
		}
	}
	return refs
}

func removeFromArray(arr *[]domain.Element, id string) {
	kept := (*arr)[:0]
	for _, el := range *arr {
		if el.ID != id {
			kept = append(kept, el)
		}
	}
	if len(kept) == 0 && len(*arr) > 0 {
		*arr = nil
		return
	}
	*arr = kept
}

func dropDescriptors(deps []domain.Dependency, id string) []domain.Dependency {
	kept := deps[:0]
	for _, d := range deps {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func dropSteps(steps []domain.SpecificationStep, id string) []domain.SpecificationStep {
	kept := steps[:0]
	for _, s := range steps {
		if s.LinkedID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
