// Package types holds the small, closed vocabulary of data shapes shared
// across the recognizer engine: spans, entity kinds, candidates, entities,
// and the events the engine emits. None of these carry behavior of their
// own; they are the nouns the rest of the packages operate on.
package types

import "fmt"

// Span is a half-open character interval [Start, End) into the full text.
type Span struct {
	Start int
	End   int
}

// Valid reports whether the span is a well-formed, non-empty interval that
// fits within a text of the given length.
func (s Span) Valid(textLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= textLen
}

// Clamp returns a span clipped to [0, textLen], along with whether the
// result is still a valid non-empty span.
func (s Span) Clamp(textLen int) (Span, bool) {
	start, end := s.Start, s.End
	if start < 0 {
		start = 0
	}
	if end > textLen {
		end = textLen
	}
	clamped := Span{Start: start, End: end}
	return clamped, clamped.Start < clamped.End
}

// EntityKind is a closed enumeration of recognized entity kinds, extensible
// only through the KindCustom sentinel.
type EntityKind string

const (
	KindQuantity EntityKind = "quantity"
	KindDatetime EntityKind = "datetime"
	KindEmail    EntityKind = "email"
	KindPhone    EntityKind = "phone"
	KindURL      EntityKind = "url"
	KindPerson   EntityKind = "person"
	KindPlace    EntityKind = "place"
	KindCustom   EntityKind = "custom"
)

// EntityStatus marks whether an entity came from a fast provisional pass or
// a confirming commit pass.
type EntityStatus string

const (
	StatusProvisional EntityStatus = "provisional"
	StatusConfirmed   EntityStatus = "confirmed"
)

// Candidate is a plugin's output record, before the store assigns it an id.
type Candidate struct {
	Key        string
	Kind       EntityKind
	Span       Span
	Text       string
	Value      any
	Confidence float64
	Status     EntityStatus
}

// Entity is a stored Candidate augmented with an engine-minted, opaque,
// stable id.
type Entity struct {
	ID         string
	Key        string
	Kind       EntityKind
	Span       Span
	Text       string
	Value      any
	Confidence float64
	Status     EntityStatus
}

// FromCandidate builds the stored representation of c under the given id,
// preserving every observable field from the candidate.
func FromCandidate(id string, c Candidate) Entity {
	return Entity{
		ID:         id,
		Key:        c.Key,
		Kind:       c.Kind,
		Span:       c.Span,
		Text:       c.Text,
		Value:      c.Value,
		Confidence: c.Confidence,
		Status:     c.Status,
	}
}

// Channel identifies one of the emitter's three dispatch channels.
type Channel string

const (
	ChannelEntity     Channel = "entity"
	ChannelRemove     Channel = "remove"
	ChannelDiagnostic Channel = "diagnostic"
)

// Severity classifies a Diagnostic event.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// EntityEvent is published on ChannelEntity whenever an entity is added or
// updated in the store.
type EntityEvent struct {
	Entity   Entity
	IsUpdate bool
}

// RemoveEvent is published on ChannelRemove whenever an entity leaves the
// store.
type RemoveEvent struct {
	ID  string
	Key string
}

// Diagnostic is published on ChannelDiagnostic for lifecycle notices and
// recovered faults.
type Diagnostic struct {
	Severity Severity
	Message  string
	Span     *Span
	Source   string
}

func (d Diagnostic) String() string {
	if d.Source != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Source, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}
