// Package rules is the type rule engine: per-slice composition tables,
// the dependency transition table, sequencing checks and whole-model
// validation passes.
package rules

import (
	"fmt"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/graph"
)

// requirement is an inclusive count range for one element array.
type requirement struct {
	min int
	max int // -1 means unbounded
}

func (r requirement) contains(n int) bool {
	if n < r.min {
		return false
	}
	return r.max < 0 || n <= r.max
}

func (r requirement) String() string {
	switch {
	case r.max < 0:
		return fmt.Sprintf("%d+", r.min)
	case r.min == r.max:
		return fmt.Sprintf("exactly %d", r.min)
	default:
		return fmt.Sprintf("%d..%d", r.min, r.max)
	}
}

// composition holds the count requirements for one slice type.
type composition struct {
	commands   requirement
	events     requirement
	readmodels requirement
	screens    requirement
	processors requirement
}

// compositionFor returns the composition table row for the slice type.
// The switch is exhaustive over domain.SliceType: a new slice type will
// not validate until a row is added here.
func compositionFor(t domain.SliceType) (composition, error) {
	switch t {
	case domain.SliceStateChange:
		return composition{
			commands:   requirement{1, 1},
			events:     requirement{1, 1},
			readmodels: requirement{0, 0},
			screens:    requirement{0, 1},
			processors: requirement{0, 0},
		}, nil
	case domain.SliceStateView:
		return composition{
			commands:   requirement{0, 0},
			events:     requirement{0, 0},
			readmodels: requirement{1, 1},
			screens:    requirement{0, 1},
			processors: requirement{0, 0},
		}, nil
	case domain.SliceAutomation:
		return composition{
			commands:   requirement{1, 1},
			events:     requirement{1, -1},
			readmodels: requirement{0, 0},
			screens:    requirement{0, 0},
			processors: requirement{1, 1},
		}, nil
	}
	return composition{}, fmt.Errorf("unknown slice type: %q", t)
}

// transitions is the set of allowed OUTBOUND from->to element type pairs.
// READMODEL feeds both screens and processors; AUTOMATION->COMMAND closes
// the automation loop (the processor issues a command).
var transitions = map[domain.ElementType]map[domain.ElementType]bool{
	domain.ElementScreen:     {domain.ElementCommand: true},
	domain.ElementCommand:    {domain.ElementEvent: true},
	domain.ElementEvent:      {domain.ElementReadModel: true},
	domain.ElementReadModel:  {domain.ElementScreen: true, domain.ElementAutomation: true},
	domain.ElementAutomation: {domain.ElementCommand: true},
}

// AllowedTransition reports whether an edge from->to is in the transition
// table.
func AllowedTransition(from, to domain.ElementType) bool {
	return transitions[from][to]
}

// CheckTransition returns an InvalidTransitionError if the edge between
// the two elements is outside the transition table.
func CheckTransition(from, to *domain.Element) error {
	if AllowedTransition(from.Type, to.Type) {
		return nil
	}
	return &domain.InvalidTransitionError{
		From:   from.Type,
		To:     to.Type,
		FromID: from.ID,
		ToID:   to.ID,
	}
}

// CheckComposition validates the element counts of a slice against the
// composition table.
func CheckComposition(s *domain.Slice) error {
	comp, err := compositionFor(s.SliceType)
	if err != nil {
		return &domain.CompositionError{SliceID: s.ID, Reason: err.Error()}
	}
	checks := []struct {
		name string
		req  requirement
		got  int
	}{
		{"commands", comp.commands, len(s.Commands)},
		{"events", comp.events, len(s.Events)},
		{"readmodels", comp.readmodels, len(s.Readmodels)},
		{"screens", comp.screens, len(s.Screens)},
		{"processors", comp.processors, len(s.Processors)},
	}
	for _, c := range checks {
		if !c.req.contains(c.got) {
			return &domain.CompositionError{
				SliceID: s.ID,
				Reason:  fmt.Sprintf("%s slice requires %s %s, got %d", s.SliceType, c.req, c.name, c.got),
			}
		}
	}
	return nil
}

// CheckConnectivity rejects elements that sit in a committed slice with
// no dependencies at all.
func CheckConnectivity(s *domain.Slice) error {
	for _, el := range s.Elements() {
		if len(el.Dependencies) == 0 {
			return &domain.DisconnectedElementError{SliceID: s.ID, ElementID: el.ID}
		}
	}
	return nil
}

// CheckProcessorFeeds enforces the automation rule: a processor is fed by
// a read model, never directly by an event. A processor whose inbound
// descriptor is typed EVENT is an invalid transition; a processor with no
// inbound feed at all fails composition.
func CheckProcessorFeeds(s *domain.Slice) error {
	for i := range s.Processors {
		p := &s.Processors[i]
		fed := false
		for _, d := range p.Dependencies {
			if d.Type != domain.DependencyInbound {
				continue
			}
			if d.ElementType == domain.ElementReadModel {
				fed = true
				continue
			}
			return &domain.InvalidTransitionError{
				From:   d.ElementType,
				To:     domain.ElementAutomation,
				FromID: d.ID,
				ToID:   p.ID,
			}
		}
		if !fed {
			return &domain.CompositionError{
				SliceID: s.ID,
				Reason:  fmt.Sprintf("processor %q requires an inbound read model feed", p.ID),
			}
		}
	}
	return nil
}

// CheckSequencing applies the screen-placement sequencing rule as
// warnings: a STATE_CHANGE slice with a screen expects the immediately
// preceding slice (by index) to be STATE_VIEW, and vice versa. The first
// slice has no predecessor and never warns.
func CheckSequencing(m *domain.Model, s *domain.Slice) []domain.Warning {
	if len(s.Screens) == 0 {
		return nil
	}
	var expect domain.SliceType
	switch s.SliceType {
	case domain.SliceStateChange:
		expect = domain.SliceStateView
	case domain.SliceStateView:
		expect = domain.SliceStateChange
	default:
		return nil
	}

	ordered := m.SlicesByIndex()
	var prev *domain.Slice
	for _, cand := range ordered {
		if cand.ID == s.ID {
			break
		}
		prev = cand
	}
	if prev == nil {
		return nil
	}
	if prev.SliceType == expect {
		return nil
	}
	return []domain.Warning{{
		Kind:    domain.KindSequencing,
		SliceID: s.ID,
		Message: fmt.Sprintf("%s slice with a screen expects a preceding %s slice, found %s (%q)",
			s.SliceType, expect, prev.SliceType, prev.ID),
	}}
}

// CheckSpecification validates one scenario against the model: every
// linkedId resolves, step types are compatible with the linked element,
// and STATE_VIEW slices carry no "when" steps.
func CheckSpecification(m *domain.Model, sliceType domain.SliceType, spec *domain.Specification) error {
	if spec.ID == "" {
		return &domain.SchemaViolationError{Path: "specification", Reason: "id must not be empty"}
	}
	if sliceType == domain.SliceStateView && len(spec.When) > 0 {
		return &domain.CompositionError{
			SliceID: spec.ID,
			Reason:  "STATE_VIEW specification must have an empty when clause",
		}
	}
	if spec.LinkedID != "" {
		if _, ok := m.Element(spec.LinkedID); !ok {
			return &domain.UnknownReferenceError{From: "specification " + spec.ID, Ref: spec.LinkedID}
		}
	}
	for _, group := range [][]domain.SpecificationStep{spec.Given, spec.When, spec.Then} {
		for _, step := range group {
			if err := checkStep(m, spec.ID, &step); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkStep(m *domain.Model, specID string, step *domain.SpecificationStep) error {
	if !step.Type.Valid() {
		return &domain.SchemaViolationError{
			Path:   "specification " + specID + "/step " + step.ID,
			Reason: "unknown step type: " + string(step.Type),
		}
	}
	want, links := step.Type.LinksTo()
	if !links {
		return nil
	}
	if step.LinkedID == "" {
		return &domain.UnknownReferenceError{
			From: "specification " + specID + "/step " + step.ID,
			Ref:  "",
			Hint: string(step.Type) + " step requires a linkedId",
		}
	}
	el, ok := m.Element(step.LinkedID)
	if !ok {
		return &domain.UnknownReferenceError{
			From: "specification " + specID + "/step " + step.ID,
			Ref:  step.LinkedID,
		}
	}
	if el.Type != want {
		return &domain.TypeMismatchError{
			From:     "specification " + specID + "/step " + step.ID,
			Ref:      step.LinkedID,
			Declared: want,
			Actual:   el.Type,
		}
	}
	return nil
}

// ValidateSlice runs the commit-time checks for one slice: composition,
// connectivity, symmetry and transition legality of every edge, processor
// feeds and specifications. Sequencing findings come back as warnings.
func ValidateSlice(m *domain.Model, s *domain.Slice) ([]domain.Warning, error) {
	if err := CheckComposition(s); err != nil {
		return nil, err
	}
	if err := CheckConnectivity(s); err != nil {
		return nil, err
	}
	for _, el := range s.Elements() {
		if err := graph.VerifySymmetry(m, el.ID); err != nil {
			return nil, err
		}
		for _, d := range el.Dependencies {
			target, ok := m.Element(d.ID)
			if !ok {
				return nil, &domain.UnknownReferenceError{From: el.ID, Ref: d.ID}
			}
			var err error
			if d.Type == domain.DependencyOutbound {
				err = CheckTransition(el, target)
			} else {
				err = CheckTransition(target, el)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if err := CheckProcessorFeeds(s); err != nil {
		return nil, err
	}
	for i := range s.Specifications {
		if err := CheckSpecification(m, s.SliceType, &s.Specifications[i]); err != nil {
			return nil, err
		}
	}
	return CheckSequencing(m, s), nil
}

// ValidateGlobal checks the whole-model invariants that even a draft must
// satisfy: well-formed enums and fields, id uniqueness across slices,
// resolvable references with matching declared types, and acyclicity.
// Symmetry and composition are deliberately not checked here; drafts may
// be half-connected.
func ValidateGlobal(m *domain.Model) error {
	seenSlices := make(map[string]bool)
	seenElements := make(map[string]string)
	for i := range m.Slices {
		s := &m.Slices[i]
		if s.ID == "" {
			return &domain.SchemaViolationError{Path: "slices", Reason: "slice id must not be empty"}
		}
		if seenSlices[s.ID] {
			return &domain.DuplicateIDError{ID: s.ID, Existing: "slices"}
		}
		seenSlices[s.ID] = true
		if !s.SliceType.Valid() {
			return &domain.SchemaViolationError{Path: "slice " + s.ID, Reason: "unknown slice type: " + string(s.SliceType)}
		}
		if !s.Status.Valid() {
			return &domain.SchemaViolationError{Path: "slice " + s.ID, Reason: "unknown status: " + string(s.Status)}
		}
		for _, el := range s.Elements() {
			if el.ID == "" {
				return &domain.SchemaViolationError{Path: "slice " + s.ID, Reason: "element id must not be empty"}
			}
			if owner, dup := seenElements[el.ID]; dup {
				return &domain.DuplicateIDError{ID: el.ID, Existing: owner}
			}
			seenElements[el.ID] = s.ID
			if !el.Type.Valid() {
				return &domain.SchemaViolationError{Path: "element " + el.ID, Reason: "unknown element type: " + string(el.Type)}
			}
			if err := domain.ValidateFields("element "+el.ID, el.Fields); err != nil {
				return err
			}
		}
		for _, tbl := range s.Tables {
			if err := domain.ValidateFields("table "+tbl.ID, tbl.Fields); err != nil {
				return err
			}
		}
	}

	// References resolve and declared types match actual types.
	for i := range m.Slices {
		s := &m.Slices[i]
		for _, el := range s.Elements() {
			for _, d := range el.Dependencies {
				if !d.Type.Valid() {
					return &domain.SchemaViolationError{Path: "element " + el.ID, Reason: "unknown dependency type: " + string(d.Type)}
				}
				target, ok := m.Element(d.ID)
				if !ok {
					return &domain.UnknownReferenceError{From: el.ID, Ref: d.ID}
				}
				if target.Type != d.ElementType {
					return &domain.TypeMismatchError{From: el.ID, Ref: d.ID, Declared: d.ElementType, Actual: target.Type}
				}
			}
		}
		for si := range s.Specifications {
			spec := &s.Specifications[si]
			if spec.LinkedID != "" {
				if _, ok := m.Element(spec.LinkedID); !ok {
					return &domain.UnknownReferenceError{From: "specification " + spec.ID, Ref: spec.LinkedID}
				}
			}
			for _, group := range [][]domain.SpecificationStep{spec.Given, spec.When, spec.Then} {
				for _, step := range group {
					if step.LinkedID == "" {
						continue
					}
					if _, ok := m.Element(step.LinkedID); !ok {
						return &domain.UnknownReferenceError{
							From: "specification " + spec.ID + "/step " + step.ID,
							Ref:  step.LinkedID,
						}
					}
				}
			}
		}
	}

	g := graph.FromModel(m)
	if node, cyclic := g.FindCycle(); cyclic {
		return &domain.CycleError{From: node, To: node}
	}
	return nil
}

// ValidateModel is the strict whole-model pass used on deserialization:
// global invariants plus the commit-time checks for every slice. All
// sequencing warnings are accumulated and returned.
func ValidateModel(m *domain.Model) ([]domain.Warning, error) {
	if err := ValidateGlobal(m); err != nil {
		return nil, err
	}
	var warnings []domain.Warning
	for i := range m.Slices {
		w, err := ValidateSlice(m, &m.Slices[i])
		if err != nil {
			return nil, err
		}
		warnings = append(warnings, w...)
	}
	return warnings, nil
}
