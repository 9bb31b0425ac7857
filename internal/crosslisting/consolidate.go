// Package crosslisting groups course sections that share one physical meeting.
//
// Rows are consumed in (ScheduleKey, section id) order. The first section of
// every key becomes the group's primary and the remaining sections become its
// cross-listed members. Keys held by a single section produce no group.
package crosslisting

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/example/capture-scheduler/internal/recurrence"
)

var (
	// ErrMalformedRow is returned when a row violates the input contract.
	ErrMalformedRow = errors.New("crosslisting: malformed meeting row")
	// ErrUnsortedRows is returned when rows are not ordered by (ScheduleKey, section id).
	ErrUnsortedRows = errors.New("crosslisting: meeting rows are not sorted")
)

// MeetingRow is one section's meeting schedule as read from the roster.
type MeetingRow struct {
	SectionID        int
	TermID           int
	MeetingDays      string
	MeetingStartDate string
	MeetingEndDate   string
	MeetingStartTime string
	MeetingEndTime   string
	MeetingLocation  string
}

// ScheduleKey identifies the physical meeting of the row. Only spaces are
// trimmed so the key orders exactly like SQLite's trim() over the same columns.
func (r MeetingRow) ScheduleKey() string {
	return trimSpaces(r.MeetingDays + r.MeetingEndDate + r.MeetingEndTime + r.MeetingLocation + r.MeetingStartDate + r.MeetingStartTime)
}

func trimSpaces(value string) string {
	return strings.Trim(value, " ")
}

// Group is a primary section with its cross-listed members.
type Group struct {
	TermID                int   `json:"term_id"`
	PrimarySectionID      int   `json:"section_id"`
	CrossListedSectionIDs []int `json:"cross_listed_section_ids"`
}

// RowError describes the first row that violated the input contract.
type RowError struct {
	Index     int
	SectionID int
	Field     string
	Value     string
	Reason    string
	Err       error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("crosslisting: row %d (section %d): %s %q: %s", e.Index, e.SectionID, e.Field, e.Value, e.Reason)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Consolidate groups rows for termID. Rows must all belong to termID, have
// every schedule field populated, carry "HH:MM" start and end times, and be
// sorted by (ScheduleKey, section id). The first violation is reported as a
// *RowError and no groups are returned.
//
// Groups are returned in the order their primaries were encountered.
func Consolidate(termID int, rows []MeetingRow) ([]Group, error) {
	if err := validateRows(termID, rows); err != nil {
		return nil, err
	}

	var (
		groups      []*Group
		current     *Group
		previousKey string
		assigned    = make(map[int]bool, len(rows))
	)

	for i, row := range rows {
		key := row.ScheduleKey()
		if !assigned[row.SectionID] {
			if i == 0 || key != previousKey {
				current = &Group{TermID: termID, PrimarySectionID: row.SectionID}
				groups = append(groups, current)
			} else {
				current.CrossListedSectionIDs = append(current.CrossListedSectionIDs, row.SectionID)
			}
			assigned[row.SectionID] = true
		}
		previousKey = key
	}

	result := make([]Group, 0, len(groups))
	for _, g := range groups {
		if len(g.CrossListedSectionIDs) == 0 {
			continue
		}
		result = append(result, *g)
	}
	return result, nil
}

func validateRows(termID int, rows []MeetingRow) error {
	for i, row := range rows {
		fields := []struct {
			name  string
			value string
		}{
			{"meeting_days", row.MeetingDays},
			{"meeting_start_date", row.MeetingStartDate},
			{"meeting_end_date", row.MeetingEndDate},
			{"meeting_start_time", row.MeetingStartTime},
			{"meeting_end_time", row.MeetingEndTime},
			{"meeting_location", row.MeetingLocation},
		}
		for _, f := range fields {
			if trimSpaces(f.value) == "" {
				return &RowError{Index: i, SectionID: row.SectionID, Field: f.name, Value: f.value, Reason: "empty schedule field", Err: ErrMalformedRow}
			}
		}
		if _, err := recurrence.ParseClock(row.MeetingStartTime); err != nil {
			return &RowError{Index: i, SectionID: row.SectionID, Field: "meeting_start_time", Value: row.MeetingStartTime, Reason: "not HH:MM", Err: errors.Join(ErrMalformedRow, err)}
		}
		if _, err := recurrence.ParseClock(row.MeetingEndTime); err != nil {
			return &RowError{Index: i, SectionID: row.SectionID, Field: "meeting_end_time", Value: row.MeetingEndTime, Reason: "not HH:MM", Err: errors.Join(ErrMalformedRow, err)}
		}
		if row.TermID != termID {
			return &RowError{Index: i, SectionID: row.SectionID, Field: "term_id", Value: strconv.Itoa(row.TermID), Reason: fmt.Sprintf("expected term %d", termID), Err: ErrMalformedRow}
		}
		if i > 0 && less(row, rows[i-1]) {
			return &RowError{Index: i, SectionID: row.SectionID, Field: "schedule_key", Value: row.ScheduleKey(), Reason: "row sorts before its predecessor", Err: ErrUnsortedRows}
		}
	}
	return nil
}

func less(a, b MeetingRow) bool {
	ak, bk := a.ScheduleKey(), b.ScheduleKey()
	if ak != bk {
		return ak < bk
	}
	return a.SectionID < b.SectionID
}

// Members lists every cross-listed member across groups in group order.
func Members(groups []Group) []int {
	var ids []int
	for _, g := range groups {
		ids = append(ids, g.CrossListedSectionIDs...)
	}
	return ids
}

// Chunk splits items into consecutive slices of at most size elements.
// A non-positive size yields a single chunk.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// Digest fingerprints the ordered (ScheduleKey, section id) input of a run.
func Digest(rows []MeetingRow) string {
	h, _ := blake2b.New256(nil)
	for _, row := range rows {
		h.Write([]byte(row.ScheduleKey()))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(row.SectionID)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
