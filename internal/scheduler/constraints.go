package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// Rule names a constraint. Rule names appear in conflicts, infeasibility
// reports and soft weight overrides.
type Rule string

const (
	RuleFacultyDoubleBooking Rule = "faculty-double-booking"
	RuleRoomDoubleBooking    Rule = "room-double-booking"
	RuleClassDoubleBooking   Rule = "class-double-booking"
	RuleFacultyUnavailable   Rule = "faculty-unavailable"
	RuleRoomUnavailable      Rule = "room-unavailable"
	RuleRoomTypeMismatch     Rule = "room-type-mismatch"
	RuleRoomCapacity         Rule = "room-capacity"

	RuleDailyLimit   Rule = "daily-limit"
	RuleWeeklyLimit  Rule = "weekly-limit"
	RuleDistribution Rule = "distribution"
	RuleFacultyLoad  Rule = "faculty-load"
	RuleRoomFit      Rule = "room-fit"

	RuleUnknownReference  Rule = "unknown-reference"
	RuleFacultyAssignment Rule = "faculty-assignment"
	RuleSlotType          Rule = "slot-type"
	RuleInvalidSlot       Rule = "invalid-slot"
)

// Placement is a candidate assignment of one session.
type Placement struct {
	SlotID    string
	UnitID    string
	Class     *models.Class
	Subject   *models.Subject
	FacultyID string
	Room      *models.Room
	Day       models.Weekday
	Time      models.ClockTime
	Minutes   int

	penalty float64
}

// Window returns the occupied interval.
func (p Placement) Window() models.Interval {
	return models.Interval{Start: p.Time, End: p.Time + models.ClockTime(p.Minutes)}
}

// Verdict is the outcome of evaluating one constraint.
type Verdict struct {
	Satisfied bool
	Severity  models.Severity
	Penalty   float64
	Reason    string
}

func satisfied() Verdict {
	return Verdict{Satisfied: true}
}

func violated(severity models.Severity, format string, args ...any) Verdict {
	return Verdict{Severity: severity, Reason: fmt.Sprintf(format, args...)}
}

// Constraint is a predicate over a candidate placement and the board it
// would be committed to.
type Constraint interface {
	Name() Rule
	Hard() bool
	Evaluate(b *Board, p Placement) Verdict
}

type availabilityConstraint struct {
	rule Rule
	kind EntityKind
}

func (c availabilityConstraint) Name() Rule { return c.rule }
func (c availabilityConstraint) Hard() bool { return true }

func (c availabilityConstraint) Evaluate(b *Board, p Placement) Verdict {
	id := p.FacultyID
	if c.kind == KindRoom {
		id = p.Room.ID
	}
	if b.index.IsFree(c.kind, id, p.Day, p.Time, p.Minutes) {
		return satisfied()
	}
	return violated(models.SeverityHigh, "%s %s is not available on %s %s", c.kind, id, p.Day, p.Window())
}

type roomTypeConstraint struct{}

func (roomTypeConstraint) Name() Rule { return RuleRoomTypeMismatch }
func (roomTypeConstraint) Hard() bool { return true }

func (roomTypeConstraint) Evaluate(_ *Board, p Placement) Verdict {
	if p.Room.Suits(p.Subject.Type) {
		return satisfied()
	}
	return violated(models.SeverityHigh, "%s subject %s needs a lab room, %s is a %s", p.Subject.Type, p.Subject.ID, p.Room.ID, p.Room.Type)
}

type roomCapacityConstraint struct{}

func (roomCapacityConstraint) Name() Rule { return RuleRoomCapacity }
func (roomCapacityConstraint) Hard() bool { return true }

func (roomCapacityConstraint) Evaluate(_ *Board, p Placement) Verdict {
	if p.Room.Capacity >= p.Class.StudentCount {
		return satisfied()
	}
	return violated(models.SeverityHigh, "room %s seats %d, class %s has %d students", p.Room.ID, p.Room.Capacity, p.Class.ID, p.Class.StudentCount)
}

type doubleBookingConstraint struct {
	rule Rule
	kind EntityKind
}

func (c doubleBookingConstraint) Name() Rule { return c.rule }
func (c doubleBookingConstraint) Hard() bool { return true }

func (c doubleBookingConstraint) Evaluate(b *Board, p Placement) Verdict {
	var id string
	switch c.kind {
	case KindFaculty:
		id = p.FacultyID
	case KindRoom:
		id = p.Room.ID
	default:
		id = p.Class.ID
	}
	if clash := b.occupancy.Overlapping(c.kind, id, p.Day, p.Window(), p.SlotID); len(clash) > 0 {
		return violated(models.SeverityHigh, "%s %s is already booked on %s %s by %v", c.kind, id, p.Day, p.Window(), clash)
	}
	return satisfied()
}

type dailyLimitConstraint struct{}

func (dailyLimitConstraint) Name() Rule { return RuleDailyLimit }
func (dailyLimitConstraint) Hard() bool { return false }

func (dailyLimitConstraint) Evaluate(b *Board, p Placement) Verdict {
	if b.placedOn(p.UnitID, p.Day) < p.Subject.MaxClassesPerDay {
		return satisfied()
	}
	return violated(models.SeverityMedium, "%s already has %d session(s) on %s", p.UnitID, p.Subject.MaxClassesPerDay, p.Day)
}

type weeklyLimitConstraint struct{}

func (weeklyLimitConstraint) Name() Rule { return RuleWeeklyLimit }
func (weeklyLimitConstraint) Hard() bool { return false }

func (weeklyLimitConstraint) Evaluate(b *Board, p Placement) Verdict {
	if b.placed(p.UnitID) < p.Subject.MaxClassesPerWeek {
		return satisfied()
	}
	return violated(models.SeverityMedium, "%s already has %d session(s) this week", p.UnitID, p.Subject.MaxClassesPerWeek)
}

// distributionConstraint penalizes stacking sessions of one unit on the same
// or neighbouring days.
type distributionConstraint struct{ weight float64 }

func (distributionConstraint) Name() Rule { return RuleDistribution }
func (distributionConstraint) Hard() bool { return false }

func (c distributionConstraint) Evaluate(b *Board, p Placement) Verdict {
	score := float64(b.placedOn(p.UnitID, p.Day))
	if p.Day > models.Monday {
		score += 0.5 * float64(b.placedOn(p.UnitID, p.Day-1))
	}
	if p.Day < models.Saturday {
		score += 0.5 * float64(b.placedOn(p.UnitID, p.Day+1))
	}
	if score == 0 {
		return satisfied()
	}
	return Verdict{Severity: models.SeverityLow, Penalty: c.weight * score, Reason: fmt.Sprintf("%s clusters on %s", p.UnitID, p.Day)}
}

// facultyLoadConstraint penalizes adding to a faculty member's busiest days.
type facultyLoadConstraint struct{ weight float64 }

func (facultyLoadConstraint) Name() Rule { return RuleFacultyLoad }
func (facultyLoadConstraint) Hard() bool { return false }

func (c facultyLoadConstraint) Evaluate(b *Board, p Placement) Verdict {
	load := b.facultyLoad(p.FacultyID, p.Day)
	if load == 0 {
		return satisfied()
	}
	return Verdict{Severity: models.SeverityLow, Penalty: c.weight * float64(load), Reason: fmt.Sprintf("faculty %s already teaches %d session(s) on %s", p.FacultyID, load, p.Day)}
}

// roomFitConstraint prefers the tightest room and keeps labs free for lab
// subjects.
type roomFitConstraint struct{ weight float64 }

func (roomFitConstraint) Name() Rule { return RuleRoomFit }
func (roomFitConstraint) Hard() bool { return false }

func (c roomFitConstraint) Evaluate(_ *Board, p Placement) Verdict {
	if p.Room.Capacity <= 0 {
		return satisfied()
	}
	score := float64(p.Room.Capacity-p.Class.StudentCount) / float64(p.Room.Capacity)
	if p.Subject.Type != models.SubjectTypeLab && p.Room.Type == models.RoomTypeLab {
		score++
	}
	if score <= 0 {
		return satisfied()
	}
	return Verdict{Severity: models.SeverityLow, Penalty: c.weight * score, Reason: fmt.Sprintf("room %s is a loose fit for class %s", p.Room.ID, p.Class.ID)}
}

// Weights scale the soft penalties used to rank candidates.
type Weights struct {
	Distribution float64
	FacultyLoad  float64
	RoomFit      float64
}

// DefaultWeights favours spreading a subject over the week above everything else.
func DefaultWeights() Weights {
	return Weights{Distribution: 10, FacultyLoad: 2, RoomFit: 1}
}

// WithOverrides applies overrides keyed by rule name. Unknown rules and
// negative weights are rejected.
func (w Weights) WithOverrides(overrides map[string]float64) (Weights, error) {
	verr := &ValidationError{}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := overrides[key]
		field := "config.softWeightOverrides." + key
		if value < 0 {
			verr.add(field, "weight must not be negative")
			continue
		}
		switch Rule(key) {
		case RuleDistribution:
			w.Distribution = value
		case RuleFacultyLoad:
			w.FacultyLoad = value
		case RuleRoomFit:
			w.RoomFit = value
		default:
			verr.add(field, "unknown soft constraint, expected one of %s, %s, %s", RuleDistribution, RuleFacultyLoad, RuleRoomFit)
		}
	}
	return w, verr.orNil()
}

// Checker groups constraints by how the scheduler treats them: static hard
// rules depend only on availability, dynamic hard rules on the board, limits
// filter candidates and soft rules rank them.
type Checker struct {
	static  []Constraint
	dynamic []Constraint
	limits  []Constraint
	soft    []Constraint
}

// NewChecker builds the standard rule set.
func NewChecker(w Weights) *Checker {
	return &Checker{
		static: []Constraint{
			roomTypeConstraint{},
			roomCapacityConstraint{},
			availabilityConstraint{rule: RuleFacultyUnavailable, kind: KindFaculty},
			availabilityConstraint{rule: RuleRoomUnavailable, kind: KindRoom},
		},
		dynamic: []Constraint{
			doubleBookingConstraint{rule: RuleFacultyDoubleBooking, kind: KindFaculty},
			doubleBookingConstraint{rule: RuleRoomDoubleBooking, kind: KindRoom},
			doubleBookingConstraint{rule: RuleClassDoubleBooking, kind: KindClass},
		},
		limits: []Constraint{
			dailyLimitConstraint{},
			weeklyLimitConstraint{},
		},
		soft: []Constraint{
			distributionConstraint{weight: w.Distribution},
			facultyLoadConstraint{weight: w.FacultyLoad},
			roomFitConstraint{weight: w.RoomFit},
		},
	}
}

// Constraints lists every rule in evaluation order.
func (c *Checker) Constraints() []Constraint {
	out := make([]Constraint, 0, len(c.static)+len(c.dynamic)+len(c.limits)+len(c.soft))
	out = append(out, c.static...)
	out = append(out, c.dynamic...)
	out = append(out, c.limits...)
	return append(out, c.soft...)
}

// Static returns the first availability or room rule the placement breaks.
func (c *Checker) Static(b *Board, p Placement) (Rule, bool) {
	return firstViolation(c.static, b, p)
}

// Feasible returns the first hard rule or limit the placement breaks.
func (c *Checker) Feasible(b *Board, p Placement) (Rule, bool) {
	if rule, ok := firstViolation(c.static, b, p); !ok {
		return rule, false
	}
	if rule, ok := firstViolation(c.dynamic, b, p); !ok {
		return rule, false
	}
	return firstViolation(c.limits, b, p)
}

// Penalty sums the soft penalties of a placement.
func (c *Checker) Penalty(b *Board, p Placement) float64 {
	total := 0.0
	for _, constraint := range c.soft {
		total += constraint.Evaluate(b, p).Penalty
	}
	return total
}

func firstViolation(constraints []Constraint, b *Board, p Placement) (Rule, bool) {
	for _, constraint := range constraints {
		if v := constraint.Evaluate(b, p); !v.Satisfied {
			return constraint.Name(), false
		}
	}
	return "", true
}
