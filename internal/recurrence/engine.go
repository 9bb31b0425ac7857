package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// DateLayout is the roster representation of meeting start and end dates.
const DateLayout = "2006-01-02"

// ErrInvalidWindow indicates the meeting end date precedes its start date.
var ErrInvalidWindow = errors.New("recurrence: meeting end date precedes start date")

// ErrInvalidDuration indicates a meeting that does not end after it starts.
var ErrInvalidDuration = errors.New("recurrence: meeting must end after it starts")

// Pattern is the weekly meeting schedule of a course section.
type Pattern struct {
	Days      []time.Weekday
	StartDate time.Time
	EndDate   time.Time
	Start     Clock
	End       Clock
}

// Occurrence is a single class meeting produced from a Pattern.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// NewPattern builds a Pattern from roster strings.
func NewPattern(days, startDate, endDate, start, end string) (Pattern, error) {
	weekdays, err := ParseDays(days)
	if err != nil {
		return Pattern{}, err
	}
	first, err := parseDate(startDate)
	if err != nil {
		return Pattern{}, fmt.Errorf("recurrence: start date: %w", err)
	}
	last, err := parseDate(endDate)
	if err != nil {
		return Pattern{}, fmt.Errorf("recurrence: end date: %w", err)
	}
	if last.Before(first) {
		return Pattern{}, ErrInvalidWindow
	}
	startClock, err := ParseClock(start)
	if err != nil {
		return Pattern{}, err
	}
	endClock, err := ParseClock(end)
	if err != nil {
		return Pattern{}, err
	}
	if !startClock.Before(endClock) {
		return Pattern{}, ErrInvalidDuration
	}
	return Pattern{
		Days:      weekdays,
		StartDate: first,
		EndDate:   last,
		Start:     startClock,
		End:       endClock,
	}, nil
}

// WithWindow returns a copy of the pattern using the given start and end clocks.
func (p Pattern) WithWindow(start, end Clock) Pattern {
	p.Start = start
	p.End = end
	return p
}

// Duration returns the length of a single meeting.
func (p Pattern) Duration() time.Duration {
	minutes := p.End.Minutes() - p.Start.Minutes()
	if minutes <= 0 {
		minutes += minutesPerDay
	}
	return time.Duration(minutes) * time.Minute
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}

// Engine expands meeting patterns into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that places occurrences in loc. If loc is nil,
// UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// Location returns the zone occurrences are generated in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.UTC
	}
	return e.location
}

// Rule converts the pattern to a weekly rule that runs until the last meeting
// day (inclusive).
func (e *Engine) Rule(p Pattern) (*rrule.RRule, error) {
	if len(p.Days) == 0 {
		return nil, fmt.Errorf("%w: no meeting days", ErrInvalidDays)
	}
	loc := e.Location()
	byday := make([]rrule.Weekday, 0, len(p.Days))
	for _, day := range p.Days {
		byday = append(byday, rruleWeekdays[day])
	}

	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Wkst:      rrule.SU,
		Byweekday: byday,
		Dtstart:   p.Start.On(p.StartDate, loc),
		Until:     p.Start.On(p.EndDate, loc),
	})
}

// RRuleString renders the RRULE body (without DTSTART) for the pattern.
func (e *Engine) RRuleString(p Pattern) (string, error) {
	r, err := e.Rule(p)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

// Occurrences lists every meeting of the pattern in chronological order.
func (e *Engine) Occurrences(p Pattern) ([]Occurrence, error) {
	r, err := e.Rule(p)
	if err != nil {
		return nil, err
	}
	duration := p.Duration()
	starts := r.All()
	occurrences := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		occurrences = append(occurrences, Occurrence{Start: start, End: start.Add(duration)})
	}
	return occurrences, nil
}
