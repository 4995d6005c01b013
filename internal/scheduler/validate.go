package scheduler

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/timetable-engine/internal/models"
)

var (
	structValidatorOnce sync.Once
	structValidator     *validator.Validate
)

func entityValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks a state snapshot against the entity invariants. It returns
// a *ValidationError listing every offending field, or nil.
func Validate(state models.TimetableState) error {
	verr := &ValidationError{}

	if err := entityValidator().Struct(state); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			verr.add(fieldPath(fe.Namespace()), "%s", fieldMessage(fe))
		}
	}

	subjects := make(map[string]models.Subject, len(state.Subjects))
	faculty := make(map[string]models.Faculty, len(state.Faculty))

	seen := map[string]bool{}
	for i, c := range state.Classes {
		if c.ID != "" && seen[c.ID] {
			verr.add(fmt.Sprintf("classes[%d].id", i), "duplicate class id %q", c.ID)
		}
		seen[c.ID] = true
	}

	seen = map[string]bool{}
	for i, f := range state.Faculty {
		if f.ID != "" && seen[f.ID] {
			verr.add(fmt.Sprintf("faculty[%d].id", i), "duplicate faculty id %q", f.ID)
		}
		seen[f.ID] = true
		faculty[f.ID] = f
		validateAvailability(verr, fmt.Sprintf("faculty[%d].availability", i), f.Availability)
		for j, d := range f.LeaveDays {
			if !d.Valid() {
				verr.add(fmt.Sprintf("faculty[%d].leaveDays[%d]", i, j), "invalid weekday")
			}
		}
	}

	seen = map[string]bool{}
	for i, r := range state.Rooms {
		if r.ID != "" && seen[r.ID] {
			verr.add(fmt.Sprintf("rooms[%d].id", i), "duplicate room id %q", r.ID)
		}
		seen[r.ID] = true
		validateAvailability(verr, fmt.Sprintf("rooms[%d].availability", i), r.Availability)
	}

	seen = map[string]bool{}
	for i, s := range state.Subjects {
		path := fmt.Sprintf("subjects[%d]", i)
		if s.ID != "" && seen[s.ID] {
			verr.add(path+".id", "duplicate subject id %q", s.ID)
		}
		seen[s.ID] = true
		subjects[s.ID] = s
		if s.MaxClassesPerDay > s.MaxClassesPerWeek {
			verr.add(path+".maxClassesPerDay", "must not exceed maxClassesPerWeek (%d)", s.MaxClassesPerWeek)
		}
		if s.FacultyID == "" {
			continue
		}
		f, ok := faculty[s.FacultyID]
		if !ok {
			verr.add(path+".facultyId", "unknown faculty %q", s.FacultyID)
			continue
		}
		if !f.Teaches(s.ID) {
			verr.add(path+".facultyId", "faculty %q is not qualified to teach %q", f.ID, s.ID)
		}
	}

	for i, c := range state.Classes {
		listed := map[string]bool{}
		for j, subjectID := range c.SubjectIDs {
			path := fmt.Sprintf("classes[%d].subjects[%d]", i, j)
			if _, ok := subjects[subjectID]; !ok && subjectID != "" {
				verr.add(path, "unknown subject %q", subjectID)
			}
			if listed[subjectID] {
				verr.add(path, "subject %q listed twice", subjectID)
			}
			listed[subjectID] = true
		}
	}

	return verr.orNil()
}

func validateAvailability(verr *ValidationError, path string, week models.WeeklyAvailability) {
	for _, d := range models.Weekdays() {
		day := week.Day(d)
		if day == nil {
			continue
		}
		dayPath := path + "." + d.String()
		if day.Start < 0 || day.End > models.EndOfDay {
			verr.add(dayPath, "window %s is outside the day", day.Window())
		}
		if day.End <= day.Start {
			verr.add(dayPath+".end", "end %s must be after start %s", day.End, day.Start)
			continue
		}
		breaks := append([]models.Interval(nil), day.Breaks...)
		sort.Slice(breaks, func(i, j int) bool { return breaks[i].Start < breaks[j].Start })
		for j, b := range breaks {
			if b.End <= b.Start {
				verr.add(fmt.Sprintf("%s.breaks[%d]", dayPath, j), "break %s is empty or reversed", b)
				continue
			}
			if !day.Window().Contains(b) {
				verr.add(fmt.Sprintf("%s.breaks[%d]", dayPath, j), "break %s lies outside %s", b, day.Window())
			}
			if j > 0 && breaks[j-1].Overlaps(b) {
				verr.add(fmt.Sprintf("%s.breaks[%d]", dayPath, j), "break %s overlaps %s", b, breaks[j-1])
			}
		}
	}
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email address"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
