package domain

import "sort"

// Dependency is one half of a directed edge, recorded on the element that
// carries it. ID names the element at the other end; ElementType is the
// carrier's claim about that element's actual type.
type Dependency struct {
	ID          string         `json:"id"`
	Type        DependencyType `json:"type"`
	Title       string         `json:"title,omitempty"`
	ElementType ElementType    `json:"elementType"`
}

// Element is a typed node in the model graph.
type Element struct {
	ID                    string       `json:"id"`
	Title                 string       `json:"title"`
	Type                  ElementType  `json:"type"`
	Fields                []Field      `json:"fields,omitempty"`
	Dependencies          []Dependency `json:"dependencies,omitempty"`
	Aggregate             string       `json:"aggregate,omitempty"`
	AggregateDependencies []string     `json:"aggregateDependencies,omitempty"`
	Actor                 string       `json:"actor,omitempty"`
	APIEndpoint           string       `json:"apiEndpoint,omitempty"`
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	c := e
	c.Fields = CloneFields(e.Fields)
	if e.Dependencies != nil {
		c.Dependencies = make([]Dependency, len(e.Dependencies))
		copy(c.Dependencies, e.Dependencies)
	}
	if e.AggregateDependencies != nil {
		c.AggregateDependencies = make([]string, len(e.AggregateDependencies))
		copy(c.AggregateDependencies, e.AggregateDependencies)
	}
	return c
}

// SpecificationStep is a single Given/When/Then step referencing an
// element through LinkedID (except SPEC_ERROR steps, which link nothing).
type SpecificationStep struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Type     StepType         `json:"type"`
	Fields   []Field          `json:"fields,omitempty"`
	LinkedID string           `json:"linkedId,omitempty"`
	Examples []map[string]any `json:"examples,omitempty"`
}

// Clone returns a deep copy of the step.
func (s SpecificationStep) Clone() SpecificationStep {
	c := s
	c.Fields = CloneFields(s.Fields)
	if s.Examples != nil {
		c.Examples = make([]map[string]any, len(s.Examples))
		for i, ex := range s.Examples {
			m := make(map[string]any, len(ex))
			for k, v := range ex {
				m[k] = v
			}
			c.Examples[i] = m
		}
	}
	return c
}

// Specification is a Given/When/Then scenario attached to a slice.
type Specification struct {
	ID       string              `json:"id"`
	Title    string              `json:"title"`
	Given    []SpecificationStep `json:"given,omitempty"`
	When     []SpecificationStep `json:"when,omitempty"`
	Then     []SpecificationStep `json:"then,omitempty"`
	LinkedID string              `json:"linkedId,omitempty"`
}

// Clone returns a deep copy of the specification.
func (s Specification) Clone() Specification {
	c := s
	c.Given = cloneSteps(s.Given)
	c.When = cloneSteps(s.When)
	c.Then = cloneSteps(s.Then)
	return c
}

func cloneSteps(steps []SpecificationStep) []SpecificationStep {
	if steps == nil {
		return nil
	}
	out := make([]SpecificationStep, len(steps))
	for i, s := range steps {
		out[i] = s.Clone()
	}
	return out
}

// Actor names a participant interacting with a slice's screens.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Table is a named set of fields used for tabular read model data.
type Table struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields,omitempty"`
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	c := t
	c.Fields = CloneFields(t.Fields)
	return c
}

// ScreenImage references a wireframe or mockup attached to a slice.
type ScreenImage struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Path  string `json:"path"`
}

// Comment is free-form annotation on a slice.
type Comment struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// Slice is one business-process step: a typed bundle of elements plus the
// specifications, actors and tables that describe it. Elements placed in
// a slice's arrays are defined there; an element id appears in exactly
// one slice across the whole model.
type Slice struct {
	ID             string          `json:"id"`
	Index          int             `json:"index"`
	Title          string          `json:"title"`
	SliceType      SliceType       `json:"sliceType"`
	Status         SliceStatus     `json:"status,omitempty"`
	Commands       []Element       `json:"commands,omitempty"`
	Events         []Element       `json:"events,omitempty"`
	Readmodels     []Element       `json:"readmodels,omitempty"`
	Screens        []Element       `json:"screens,omitempty"`
	Processors     []Element       `json:"processors,omitempty"`
	Tables         []Table         `json:"tables,omitempty"`
	Specifications []Specification `json:"specifications,omitempty"`
	Actors         []Actor         `json:"actors,omitempty"`
	Aggregates     []string        `json:"aggregates,omitempty"`
	ScreenImages   []ScreenImage   `json:"screenImages,omitempty"`
	Comments       []Comment       `json:"comments,omitempty"`
}

// Clone returns a deep copy of the slice.
func (s Slice) Clone() Slice {
	c := s
	c.Commands = cloneElements(s.Commands)
	c.Events = cloneElements(s.Events)
	c.Readmodels = cloneElements(s.Readmodels)
	c.Screens = cloneElements(s.Screens)
	c.Processors = cloneElements(s.Processors)
	if s.Tables != nil {
		c.Tables = make([]Table, len(s.Tables))
		for i, t := range s.Tables {
			c.Tables[i] = t.Clone()
		}
	}
	if s.Specifications != nil {
		c.Specifications = make([]Specification, len(s.Specifications))
		for i, sp := range s.Specifications {
			c.Specifications[i] = sp.Clone()
		}
	}
	if s.Actors != nil {
		c.Actors = make([]Actor, len(s.Actors))
		copy(c.Actors, s.Actors)
	}
	if s.Aggregates != nil {
		c.Aggregates = make([]string, len(s.Aggregates))
		copy(c.Aggregates, s.Aggregates)
	}
	if s.ScreenImages != nil {
		c.ScreenImages = make([]ScreenImage, len(s.ScreenImages))
		copy(c.ScreenImages, s.ScreenImages)
	}
	if s.Comments != nil {
		c.Comments = make([]Comment, len(s.Comments))
		copy(c.Comments, s.Comments)
	}
	return c
}

func cloneElements(els []Element) []Element {
	if els == nil {
		return nil
	}
	out := make([]Element, len(els))
	for i, e := range els {
		out[i] = e.Clone()
	}
	return out
}

// Elements returns pointers to every element defined in the slice, in
// array order (commands, events, readmodels, screens, processors).
func (s *Slice) Elements() []*Element {
	out := make([]*Element, 0,
		len(s.Commands)+len(s.Events)+len(s.Readmodels)+len(s.Screens)+len(s.Processors))
	for _, arr := range [][]Element{s.Commands, s.Events, s.Readmodels, s.Screens, s.Processors} {
		for i := range arr {
			out = append(out, &arr[i])
		}
	}
	return out
}

// Place appends the element to the slice array matching its type. SCREEN
// goes into screens, AUTOMATION into processors.
func (s *Slice) Place(el Element) {
	switch el.Type {
	case ElementCommand:
		s.Commands = append(s.Commands, el)
	case ElementEvent:
		s.Events = append(s.Events, el)
	case ElementReadModel:
		s.Readmodels = append(s.Readmodels, el)
	case ElementScreen:
		s.Screens = append(s.Screens, el)
	case ElementAutomation:
		s.Processors = append(s.Processors, el)
	}
}

// Model is the root of a blueprint: an ordered sequence of slices plus an
// id index maintained by Reindex. Slice order is insertion order; display
// order comes from Slice.Index.
type Model struct {
	Slices []Slice `json:"slices"`

	// elements maps element id -> pointer into Slices.
	// sliceOf maps element id -> owning slice id.
	elements map[string]*Element
	sliceOf  map[string]string
}

// NewModel returns an empty, indexed model. Slices is non-nil so the
// empty model serializes as {"slices": []}, which the schema accepts.
func NewModel() *Model {
	m := &Model{Slices: []Slice{}}
	m.Reindex()
	return m
}

// Reindex rebuilds the element id index from the slice arrays. It must be
// called after any direct mutation of Slices; the builder does this for
// every transaction. Duplicate ids keep the first occurrence (the
// duplicate itself is caught by validation).
func (m *Model) Reindex() {
	m.elements = make(map[string]*Element)
	m.sliceOf = make(map[string]string)
	for i := range m.Slices {
		s := &m.Slices[i]
		for _, el := range s.Elements() {
			if _, exists := m.elements[el.ID]; exists {
				continue
			}
			m.elements[el.ID] = el
			m.sliceOf[el.ID] = s.ID
		}
	}
}

// Element looks up an element by id.
func (m *Model) Element(id string) (*Element, bool) {
	el, ok := m.elements[id]
	return el, ok
}

// SliceOf returns the id of the slice defining the given element.
func (m *Model) SliceOf(elementID string) (string, bool) {
	id, ok := m.sliceOf[elementID]
	return id, ok
}

// Slice looks up a slice by id.
func (m *Model) Slice(id string) (*Slice, bool) {
	for i := range m.Slices {
		if m.Slices[i].ID == id {
			return &m.Slices[i], true
		}
	}
	return nil, false
}

// SlicesByIndex returns pointers to all slices sorted by Index (stable,
// so insertion order breaks ties).
func (m *Model) SlicesByIndex() []*Slice {
	out := make([]*Slice, len(m.Slices))
	for i := range m.Slices {
		out[i] = &m.Slices[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Clone returns a deep, independently indexed copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{}
	if m.Slices != nil {
		c.Slices = make([]Slice, len(m.Slices))
		for i, s := range m.Slices {
			c.Slices[i] = s.Clone()
		}
	}
	c.Reindex()
	return c
}
