package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidDays indicates a meeting-days value that is not a run of two-letter day codes.
var ErrInvalidDays = errors.New("recurrence: invalid meeting days")

var dayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

// ParseDays splits roster meeting days such as "MOWEFR" into weekdays, in the
// order they appear. Repeated codes are collapsed.
func ParseDays(value string) ([]time.Weekday, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" || len(value)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDays, value)
	}

	seen := make(map[time.Weekday]bool, len(value)/2)
	days := make([]time.Weekday, 0, len(value)/2)
	for i := 0; i < len(value); i += 2 {
		day, ok := dayCodes[value[i:i+2]]
		if !ok {
			return nil, fmt.Errorf("%w: %q: unknown code %q", ErrInvalidDays, value, value[i:i+2])
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days, nil
}

// FormatDays renders roster meeting days the way the capture service expects
// them: "MOWEFR" becomes "MO, WE, FR". Unparseable input is returned trimmed.
func FormatDays(value string) string {
	days, err := ParseDays(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	codes := make([]string, 0, len(days))
	for _, day := range days {
		codes = append(codes, dayCode(day))
	}
	return strings.Join(codes, ", ")
}

func dayCode(day time.Weekday) string {
	for code, d := range dayCodes {
		if d == day {
			return code
		}
	}
	return ""
}
