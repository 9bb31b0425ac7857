package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/capture-scheduler/internal/persistence"
)

var rosterColumns = []string{
	"section_id",
	"course_name",
	"instruction_format",
	"section_num",
	"instructor_uid",
	"instructor_name",
	"instructor_email",
	"meeting_days",
	"meeting_start_date",
	"meeting_end_date",
	"meeting_start_time",
	"meeting_end_time",
	"meeting_location",
}

// readRoster parses a roster export. Columns are matched by header name, in
// any order; extra columns are ignored.
func readRoster(r io.Reader, termID int) ([]persistence.Section, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("roster: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("roster: read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	var missing []string
	for _, column := range rosterColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("roster: missing columns: %s", strings.Join(missing, ", "))
	}

	var sections []persistence.Section
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster: line %d: %w", line, err)
		}
		field := func(column string) string {
			i := index[column]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		sectionID, err := strconv.Atoi(field("section_id"))
		if err != nil || sectionID <= 0 {
			return nil, fmt.Errorf("roster: line %d: invalid section_id %q", line, field("section_id"))
		}
		sections = append(sections, persistence.Section{
			TermID:            termID,
			SectionID:         sectionID,
			CourseName:        field("course_name"),
			InstructionFormat: field("instruction_format"),
			SectionNum:        field("section_num"),
			InstructorUID:     field("instructor_uid"),
			InstructorName:    field("instructor_name"),
			InstructorEmail:   field("instructor_email"),
			MeetingDays:       field("meeting_days"),
			MeetingStartDate:  field("meeting_start_date"),
			MeetingEndDate:    field("meeting_end_date"),
			MeetingStartTime:  field("meeting_start_time"),
			MeetingEndTime:    field("meeting_end_time"),
			MeetingLocation:   field("meeting_location"),
		})
	}
	return sections, nil
}
