package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/timetable-engine/internal/models"
)

const (
	defaultMaxBacktrackSteps = 10000
	defaultTimeBudget        = 5 * time.Second
	defaultSlotMinutes       = 60
)

// Status describes how a generation run ended.
type Status string

const (
	StatusComplete   Status = "complete"
	StatusTruncated  Status = "truncated"
	StatusCancelled  Status = "cancelled"
	StatusInfeasible Status = "infeasible"
)

// Options tunes a generation run. Zero values fall back to defaults.
type Options struct {
	MaxBacktrackSteps int
	TimeBudget        time.Duration
	// RandomSeed switches tie-breaking between equally penalized candidates
	// from lexical order to a seeded shuffle.
	RandomSeed  *int64
	SoftWeights map[string]float64
	// SlotMinutes is the length of one slot unit.
	SlotMinutes int
	Meta        models.TimetableMeta
	// Now stamps CreatedAt/UpdatedAt. Timestamps stay zero when nil.
	Now func() time.Time
	// Clock measures the time budget. Defaults to time.Now.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxBacktrackSteps == 0 {
		o.MaxBacktrackSteps = defaultMaxBacktrackSteps
	}
	if o.TimeBudget == 0 {
		o.TimeBudget = defaultTimeBudget
	}
	if o.SlotMinutes == 0 {
		o.SlotMinutes = defaultSlotMinutes
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

func (o Options) validate() error {
	verr := &ValidationError{}
	if o.MaxBacktrackSteps < 0 {
		verr.add("config.maxBacktrackSteps", "must not be negative")
	}
	if o.TimeBudget < 0 {
		verr.add("config.timeBudgetMs", "must not be negative")
	}
	if o.SlotMinutes < 0 || o.SlotMinutes > int(models.EndOfDay) {
		verr.add("config.slotMinutes", "must be between 1 and %d", int(models.EndOfDay))
	}
	return verr.orNil()
}

// Stats summarizes the search effort.
type Stats struct {
	Units      int           `json:"units"`
	Sessions   int           `json:"sessions"`
	Placed     int           `json:"placed"`
	Steps      int           `json:"steps"`
	Backtracks int           `json:"backtracks"`
	Elapsed    time.Duration `json:"elapsedNs"`
}

// Result is the outcome of a generation run. Timetable is nil only when the
// run proved infeasibility.
type Result struct {
	Status      Status               `json:"status"`
	Timetable   *models.Timetable    `json:"timetable,omitempty"`
	Truncated   bool                 `json:"truncated"`
	Seed        *int64               `json:"seed,omitempty"`
	Stats       Stats                `json:"stats"`
	Report      *InfeasibilityReport `json:"report,omitempty"`
	Reason      string               `json:"reason,omitempty"`
	Fingerprint string               `json:"fingerprint"`
}

type session struct {
	unit  *DemandUnit
	index int
	id    string
}

type frame struct {
	built      bool
	candidates []Placement
	next       int
}

type search struct {
	opts    Options
	board   *Board
	checker *Checker
	units   []*DemandUnit
	order   []session
	rng     *rand.Rand

	frames     []frame
	steps      int
	backtracks int
	best       []models.TimetableSlot
}

// Generate builds a timetable for the snapshot. A *ValidationError is
// returned for malformed input before any search happens. An infeasible
// snapshot yields a Result carrying the report together with an
// *InfeasibilityError. Cancelling ctx stops the search between placements;
// the partial Result is returned along with the context error.
func Generate(ctx context.Context, state models.TimetableState, opts Options) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	weights, err := DefaultWeights().WithOverrides(opts.SoftWeights)
	if err != nil {
		return nil, err
	}
	if err := Validate(state); err != nil {
		return nil, err
	}
	idx, err := NewIndex(state)
	if err != nil {
		return nil, err
	}
	fingerprint, err := Fingerprint(state, opts.Meta, opts.SlotMinutes, opts.RandomSeed, weights)
	if err != nil {
		return nil, fmt.Errorf("fingerprint state: %w", err)
	}

	started := opts.Clock()
	s := &search{
		opts:    opts,
		board:   newBoard(newLookup(state), idx, opts.SlotMinutes),
		checker: NewChecker(weights),
	}
	if opts.RandomSeed != nil {
		s.rng = rand.New(rand.NewSource(*opts.RandomSeed))
	}
	s.units = buildDemand(s.board, s.checker)
	for _, unit := range s.units {
		for k := 0; k < unit.Sessions; k++ {
			s.order = append(s.order, session{
				unit:  unit,
				index: k,
				id:    deriveID("slot", fingerprint, unit.ID, strconv.Itoa(k)),
			})
		}
	}
	s.frames = make([]frame, len(s.order))

	result := &Result{
		Seed:        opts.RandomSeed,
		Fingerprint: fingerprint,
		Stats:       Stats{Units: len(s.units), Sessions: len(s.order)},
	}
	finish := func(status Status, slots []models.TimetableSlot) {
		result.Status = status
		result.Truncated = status == StatusTruncated
		result.Stats.Steps = s.steps
		result.Stats.Backtracks = s.backtracks
		result.Stats.Elapsed = opts.Clock().Sub(started)
		if status != StatusInfeasible {
			result.Timetable = buildTimetable(fingerprint, opts, slots)
			result.Stats.Placed = len(slots)
		}
	}

	if empty := s.emptyDomains(); len(empty) > 0 {
		report := s.report(empty, nil)
		result.Report = &report
		result.Reason = "no candidate slot satisfies the hard constraints"
		finish(StatusInfeasible, nil)
		return result, &InfeasibilityError{Report: report}
	}

	depth := 0
	for depth < len(s.order) {
		if err := ctx.Err(); err != nil {
			result.Reason = "generation cancelled: " + err.Error()
			finish(StatusCancelled, s.board.Slots())
			return result, fmt.Errorf("generate timetable: %w", err)
		}
		if s.backtracks >= opts.MaxBacktrackSteps {
			result.Reason = fmt.Sprintf("backtrack budget of %d steps exhausted", opts.MaxBacktrackSteps)
			finish(StatusTruncated, s.best)
			return result, nil
		}
		if opts.Clock().Sub(started) > opts.TimeBudget {
			result.Reason = fmt.Sprintf("time budget of %s exhausted", opts.TimeBudget)
			finish(StatusTruncated, s.best)
			return result, nil
		}

		f := &s.frames[depth]
		if !f.built {
			f.candidates = s.candidates(s.order[depth])
			f.next = 0
			f.built = true
		}
		if f.next < len(f.candidates) {
			p := f.candidates[f.next]
			f.next++
			s.board.Commit(p)
			s.steps++
			depth++
			if s.board.Len() > len(s.best) {
				s.best = s.board.Slots()
			}
			continue
		}

		s.order[depth].unit.deadEnds++
		f.built = false
		f.candidates = nil
		if depth == 0 {
			failed := s.failedUnits()
			report := s.report(failed, s.best)
			result.Report = &report
			result.Reason = "search exhausted every alternative"
			finish(StatusInfeasible, nil)
			return result, &InfeasibilityError{Report: report}
		}
		depth--
		s.board.Undo()
		s.backtracks++
	}

	finish(StatusComplete, s.board.Slots())
	return result, nil
}

// candidates lists the feasible placements for one session, best first.
func (s *search) candidates(sess session) []Placement {
	unit := sess.unit
	last, hasLast := s.board.lastOf(unit.ID)
	var out []Placement
	for _, day := range models.Weekdays() {
		if hasLast && day < last.Day {
			continue
		}
		for _, start := range candidateTimes(s.board.index, unit.Faculty.ID, day, unit.Minutes, s.board.slotMinutes) {
			// Sessions of a unit are interchangeable, so each one starts after
			// the previous.
			if hasLast && day == last.Day && start <= last.Time {
				continue
			}
			for _, room := range s.board.lookup.roomOrder {
				p := Placement{
					SlotID:    sess.id,
					UnitID:    unit.ID,
					Class:     unit.Class,
					Subject:   unit.Subject,
					FacultyID: unit.Faculty.ID,
					Room:      room,
					Day:       day,
					Time:      start,
					Minutes:   unit.Minutes,
				}
				if rule, ok := s.checker.Feasible(s.board, p); !ok {
					unit.blocking[rule]++
					continue
				}
				p.penalty = s.checker.Penalty(s.board, p)
				out = append(out, p)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.penalty != b.penalty {
			return a.penalty < b.penalty
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Room.ID < b.Room.ID
	})
	if s.rng != nil {
		for lo := 0; lo < len(out); {
			hi := lo + 1
			for hi < len(out) && out[hi].penalty == out[lo].penalty {
				hi++
			}
			run := out[lo:hi]
			s.rng.Shuffle(len(run), func(i, j int) { run[i], run[j] = run[j], run[i] })
			lo = hi
		}
	}
	return out
}

func (s *search) emptyDomains() []*DemandUnit {
	var out []*DemandUnit
	for _, unit := range s.units {
		if unit.domain == 0 {
			out = append(out, unit)
		}
	}
	return out
}

// failedUnits returns the units whose candidate lists ran dry, most often
// first.
func (s *search) failedUnits() []*DemandUnit {
	var out []*DemandUnit
	for _, unit := range s.units {
		if unit.deadEnds > 0 {
			out = append(out, unit)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].deadEnds != out[j].deadEnds {
			return out[i].deadEnds > out[j].deadEnds
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *search) report(units []*DemandUnit, best []models.TimetableSlot) InfeasibilityReport {
	placed := map[string]int{}
	for _, slot := range best {
		placed[unitID(slot.ClassID, slot.SubjectID)]++
	}
	hard := make(map[Rule]bool)
	for _, c := range s.checker.Constraints() {
		hard[c.Name()] = c.Hard()
	}
	report := InfeasibilityReport{Units: make([]UnitFailure, 0, len(units))}
	for _, unit := range units {
		blocking := make([]RuleCount, 0, len(unit.blocking))
		for rule, count := range unit.blocking {
			blocking = append(blocking, RuleCount{Rule: rule, Count: count})
		}
		sort.Slice(blocking, func(i, j int) bool {
			if blocking[i].Count != blocking[j].Count {
				return blocking[i].Count > blocking[j].Count
			}
			return blocking[i].Rule < blocking[j].Rule
		})
		report.Units = append(report.Units, UnitFailure{
			UnitID:    unit.ID,
			ClassID:   unit.Class.ID,
			SubjectID: unit.Subject.ID,
			Required:  unit.Sessions,
			Placed:    placed[unit.ID],
			DeadEnds:  unit.deadEnds,
			Blocking:  blocking,
			Reason:    failureReason(unit, placed[unit.ID], blocking, hard),
		})
	}
	return report
}

func failureReason(unit *DemandUnit, placed int, blocking []RuleCount, hard map[Rule]bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "placed %d of %d session(s) of %s for class %s", placed, unit.Sessions, unit.Subject.ID, unit.Class.ID)
	if len(blocking) > 0 {
		parts := make([]string, 0, len(blocking))
		for _, rc := range blocking {
			parts = append(parts, fmt.Sprintf("%s (%d)", rc.Rule, rc.Count))
		}
		b.WriteString("; blocked by ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if len(blocking) > 0 && !anyHard(blocking, hard) {
		b.WriteString("; no hard constraint was violated, the per-day and per-week session limits leave too few usable slots")
	}
	return b.String()
}

func anyHard(blocking []RuleCount, hard map[Rule]bool) bool {
	for _, rc := range blocking {
		if hard[rc.Rule] {
			return true
		}
	}
	return false
}

func buildTimetable(fingerprint string, opts Options, slots []models.TimetableSlot) *models.Timetable {
	out := append([]models.TimetableSlot(nil), slots...)
	SortSlots(out)
	tt := &models.Timetable{
		ID:          deriveID("timetable", fingerprint),
		Title:       opts.Meta.Title,
		Description: opts.Meta.Description,
		Department:  opts.Meta.Department,
		Semester:    opts.Meta.Semester,
		Year:        opts.Meta.Year,
		Shift:       opts.Meta.Shift,
		Slots:       out,
	}
	if tt.Shift == "" {
		tt.Shift = models.ShiftMorning
	}
	if opts.Now != nil {
		now := opts.Now().UTC()
		tt.CreatedAt = now
		tt.UpdatedAt = now
	}
	return tt
}

// SortSlots orders slots for display: day, time, class, id.
func SortSlots(slots []models.TimetableSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if a.ClassID != b.ClassID {
			return a.ClassID < b.ClassID
		}
		return a.ID < b.ID
	})
}
