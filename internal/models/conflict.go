package models

// ConflictType names the dimension a conflict was found on.
type ConflictType string

const (
	ConflictRoom    ConflictType = "room"
	ConflictFaculty ConflictType = "faculty"
	ConflictClass   ConflictType = "class"
)

// Severity ranks how serious a conflict is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities, high first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// SuggestionKind tells whether a remedy was found. The zero value means no
// suggestion was computed at all.
type SuggestionKind string

const (
	SuggestionMove   SuggestionKind = "move"
	SuggestionRemove SuggestionKind = "remove"
	SuggestionNone   SuggestionKind = "none"
)

// Suggestion proposes a remedy for a conflict.
type Suggestion struct {
	Kind   SuggestionKind `json:"kind"`
	Text   string         `json:"text"`
	SlotID string         `json:"slotId,omitempty"`
	Day    *Weekday       `json:"day,omitempty"`
	Time   *ClockTime     `json:"time,omitempty"`
	RoomID string         `json:"roomId,omitempty"`
}

// Available reports whether the suggestion carries a concrete remedy.
func (s Suggestion) Available() bool {
	return s.Kind == SuggestionMove || s.Kind == SuggestionRemove
}

// Conflict is a detected constraint violation within a timetable.
type Conflict struct {
	ID          string       `json:"id"`
	Type        ConflictType `json:"type"`
	Severity    Severity     `json:"severity"`
	Rule        string       `json:"rule"`
	Description string       `json:"description"`
	SlotIDs     []string     `json:"slotIds"`
	Suggestion  Suggestion   `json:"suggestion"`
}
