package scheduler

import (
	"fmt"
	"strings"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when input entities or options are malformed.
// No part of the run is executed once it is raised.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// RuleCount tallies how often a rule rejected candidates.
type RuleCount struct {
	Rule  Rule `json:"rule"`
	Count int  `json:"count"`
}

// UnitFailure explains why a demand unit could not be placed.
type UnitFailure struct {
	UnitID    string      `json:"unitId"`
	ClassID   string      `json:"classId"`
	SubjectID string      `json:"subjectId"`
	Required  int         `json:"required"`
	Placed    int         `json:"placed"`
	DeadEnds  int         `json:"deadEnds"`
	Blocking  []RuleCount `json:"blocking"`
	Reason    string      `json:"reason"`
}

// InfeasibilityReport lists the demand units no assignment could satisfy.
type InfeasibilityReport struct {
	Units []UnitFailure `json:"units"`
}

// InfeasibilityError is returned together with a Result when the search
// proves that the hard constraints cannot all be met.
type InfeasibilityError struct {
	Report InfeasibilityReport
}

// Error implements the error interface.
func (e *InfeasibilityError) Error() string {
	if e == nil || len(e.Report.Units) == 0 {
		return "timetable infeasible"
	}
	ids := make([]string, 0, len(e.Report.Units))
	for _, u := range e.Report.Units {
		ids = append(ids, u.UnitID)
	}
	return "timetable infeasible: cannot place " + strings.Join(ids, ", ")
}
