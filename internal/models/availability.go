package models

import (
	"encoding/json"
	"fmt"
)

// DayAvailability describes the bookable window of an entity on one weekday.
// Breaks are unavailable sub-ranges of [Start, End).
type DayAvailability struct {
	Start  ClockTime  `json:"start"`
	End    ClockTime  `json:"end"`
	Breaks []Interval `json:"breaks,omitempty"`
}

// Window returns the declared [Start, End) range.
func (d DayAvailability) Window() Interval {
	return Interval{Start: d.Start, End: d.End}
}

// WeeklyAvailability holds one optional entry per weekday. A day left nil is
// unavailable, unless every day is nil, in which case the entity is
// unrestricted.
type WeeklyAvailability [DayCount]*DayAvailability

// Unrestricted reports whether no day was declared.
func (w WeeklyAvailability) Unrestricted() bool {
	for _, day := range w {
		if day != nil {
			return false
		}
	}
	return true
}

// Day returns the availability for a weekday or nil.
func (w WeeklyAvailability) Day(d Weekday) *DayAvailability {
	if !d.Valid() {
		return nil
	}
	return w[d]
}

// Set assigns availability for a weekday.
func (w *WeeklyAvailability) Set(d Weekday, day DayAvailability) {
	if !d.Valid() {
		return
	}
	copied := day
	w[d] = &copied
}

// EveryDay builds availability with the same window on each listed day, or on
// all days when none are listed.
func EveryDay(start, end ClockTime, days ...Weekday) WeeklyAvailability {
	if len(days) == 0 {
		days = Weekdays()
	}
	var w WeeklyAvailability
	for _, d := range days {
		w.Set(d, DayAvailability{Start: start, End: end})
	}
	return w
}

// MarshalJSON encodes declared days as an object keyed by weekday name.
func (w WeeklyAvailability) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayAvailability, DayCount)
	for i, day := range w {
		if day != nil {
			out[Weekday(i).String()] = *day
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an object keyed by weekday name.
func (w *WeeklyAvailability) UnmarshalJSON(data []byte) error {
	var raw map[string]DayAvailability
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var decoded WeeklyAvailability
	for name, day := range raw {
		d, err := ParseWeekday(name)
		if err != nil {
			return fmt.Errorf("availability: %w", err)
		}
		decoded.Set(d, day)
	}
	*w = decoded
	return nil
}
