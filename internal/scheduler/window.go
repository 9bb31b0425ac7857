package scheduler

import (
	"fmt"

	"github.com/example/capture-scheduler/internal/recurrence"
)

// AdjustTime shifts a 24-hour "HH:MM" meeting time by offsetMinutes.
// Results wrap within the same reference day.
func AdjustTime(militaryTime string, offsetMinutes int) (recurrence.Clock, error) {
	clock, err := recurrence.ParseClock(militaryTime)
	if err != nil {
		return recurrence.Clock{}, err
	}
	return clock.Add(offsetMinutes), nil
}

// Window is the span a capture device records for one meeting.
type Window struct {
	Start recurrence.Clock
	End   recurrence.Clock
}

// RecordingWindow applies the configured offsets to a meeting's start and end.
func RecordingWindow(startTime, endTime string, startOffset, endOffset int) (Window, error) {
	start, err := AdjustTime(startTime, startOffset)
	if err != nil {
		return Window{}, fmt.Errorf("meeting start: %w", err)
	}
	end, err := AdjustTime(endTime, endOffset)
	if err != nil {
		return Window{}, fmt.Errorf("meeting end: %w", err)
	}
	return Window{Start: start, End: end}, nil
}
