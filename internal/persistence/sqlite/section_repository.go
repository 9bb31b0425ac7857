package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/persistence"
)

const (
	sectionColumns = `term_id, section_id, course_name, instruction_format, section_num,
		instructor_uid, instructor_name, instructor_email, meeting_days,
		meeting_start_date, meeting_end_date, meeting_start_time, meeting_end_time,
		meeting_location, created_at, deleted_at`

	sectionInsertBatch = 200
)

// SectionRepository implements persistence.SectionRepository using SQLite
type SectionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewSectionRepository creates a new SQLite section repository
func NewSectionRepository(pool *ConnectionPool) *SectionRepository {
	return &SectionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// ImportSections replaces the roster of termID in a single transaction.
// Sections with a zero TermID take termID; any other mismatch is rejected.
func (r *SectionRepository) ImportSections(ctx context.Context, termID int, sections []persistence.Section) error {
	sections = append([]persistence.Section(nil), sections...)
	now := time.Now().UTC()
	for i := range sections {
		if sections[i].TermID == 0 {
			sections[i].TermID = termID
		}
		if sections[i].TermID != termID || sections[i].SectionID <= 0 {
			return persistence.ErrConstraintViolation
		}
		if sections[i].CreatedAt.IsZero() {
			sections[i].CreatedAt = now
		}
		normalizeSection(&sections[i])
	}

	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM sis_sections WHERE term_id = ?`, termID); err != nil {
				return r.mapper.MapError(err)
			}

			for _, batch := range crosslisting.Chunk(sections, sectionInsertBatch) {
				query := `INSERT INTO sis_sections (` + sectionColumns + `) VALUES ` + valuesPlaceholders(len(batch), 16)
				args := make([]any, 0, len(batch)*16)
				for _, s := range batch {
					var deletedAt sql.NullString
					if s.DeletedAt != nil {
						deletedAt = sql.NullString{String: formatTime(*s.DeletedAt), Valid: true}
					}
					args = append(args,
						s.TermID, s.SectionID, s.CourseName, s.InstructionFormat, s.SectionNum,
						s.InstructorUID, s.InstructorName, s.InstructorEmail, s.MeetingDays,
						s.MeetingStartDate, s.MeetingEndDate, s.MeetingStartTime, s.MeetingEndTime,
						s.MeetingLocation, formatTime(s.CreatedAt), deletedAt,
					)
				}
				if _, err := r.helper.ExecTx(ctx, tx, query, args...); err != nil {
					return r.mapper.MapError(err)
				}
			}
			return nil
		})
	})
}

// normalizeSection strips surrounding whitespace so stored schedule fields
// compare the same in SQL and in Go.
func normalizeSection(s *persistence.Section) {
	for _, field := range []*string{
		&s.CourseName, &s.InstructionFormat, &s.SectionNum,
		&s.InstructorUID, &s.InstructorName, &s.InstructorEmail,
		&s.MeetingDays, &s.MeetingStartDate, &s.MeetingEndDate,
		&s.MeetingStartTime, &s.MeetingEndTime, &s.MeetingLocation,
	} {
		*field = strings.TrimSpace(*field)
	}
}

// ListSections returns the roster of a term ordered by section and instructor.
func (r *SectionRepository) ListSections(ctx context.Context, termID int, includeDeleted bool) ([]persistence.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sis_sections WHERE term_id = ?`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY section_id ASC, instructor_uid ASC`

	rows, err := r.helper.Query(ctx, query, termID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()
	return scanSections(rows, r.mapper)
}

// GetSection returns every roster row of one section, soft-deleted included.
func (r *SectionRepository) GetSection(ctx context.Context, termID, sectionID int) ([]persistence.Section, error) {
	query := `SELECT ` + sectionColumns + ` FROM sis_sections
		WHERE term_id = ? AND section_id = ?
		ORDER BY instructor_uid ASC`

	rows, err := r.helper.Query(ctx, query, termID, sectionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	sections, err := scanSections(rows, r.mapper)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, persistence.ErrNotFound
	}
	return sections, nil
}

// ListMeetingRows returns one row per section with a complete meeting
// schedule, soft-deleted sections included, sorted by schedule key then
// section id.
func (r *SectionRepository) ListMeetingRows(ctx context.Context, termID int) ([]persistence.MeetingRow, error) {
	query := `
		SELECT term_id, section_id, meeting_days, meeting_start_date, meeting_end_date,
			meeting_start_time, meeting_end_time, meeting_location
		FROM (
			SELECT DISTINCT term_id, section_id, meeting_days, meeting_start_date, meeting_end_date,
				meeting_start_time, meeting_end_time, meeting_location
			FROM sis_sections
			WHERE term_id = ?
				AND trim(meeting_days) <> ''
				AND trim(meeting_start_date) <> ''
				AND trim(meeting_end_date) <> ''
				AND trim(meeting_start_time) <> ''
				AND trim(meeting_end_time) <> ''
				AND trim(meeting_location) <> ''
		)
		ORDER BY trim(meeting_days || meeting_end_date || meeting_end_time || meeting_location
			|| meeting_start_date || meeting_start_time) ASC, section_id ASC
	`

	rows, err := r.helper.Query(ctx, query, termID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var result []persistence.MeetingRow
	for rows.Next() {
		var m persistence.MeetingRow
		if err := rows.Scan(
			&m.TermID,
			&m.SectionID,
			&m.MeetingDays,
			&m.MeetingStartDate,
			&m.MeetingEndDate,
			&m.MeetingStartTime,
			&m.MeetingEndTime,
			&m.MeetingLocation,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

// GetMeetingTimes returns the meeting schedule of a section, preferring rows
// that are not soft-deleted.
func (r *SectionRepository) GetMeetingTimes(ctx context.Context, termID, sectionID int) (persistence.MeetingTimes, error) {
	query := `
		SELECT COALESCE(meeting_days, ''), COALESCE(meeting_start_time, ''), COALESCE(meeting_end_time, ''),
			COALESCE(meeting_start_date, ''), COALESCE(meeting_end_date, ''), COALESCE(meeting_location, '')
		FROM sis_sections
		WHERE term_id = ? AND section_id = ?
		ORDER BY deleted_at IS NOT NULL, rowid
		LIMIT 1
	`

	var mt persistence.MeetingTimes
	err := r.helper.QueryRow(ctx, query, termID, sectionID).Scan(
		&mt.Days, &mt.StartTime, &mt.EndTime, &mt.StartDate, &mt.EndDate, &mt.Location,
	)
	if err != nil {
		return persistence.MeetingTimes{}, r.mapper.MapError(err)
	}
	return mt, nil
}

// DistinctMeetingLocations lists every non-empty location of active roster rows.
func (r *SectionRepository) DistinctMeetingLocations(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT meeting_location
		FROM sis_sections
		WHERE deleted_at IS NULL AND trim(meeting_location) <> ''
		ORDER BY meeting_location ASC
	`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, r.mapper.MapError(err)
		}
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return locations, nil
}

func scanSections(rows *sql.Rows, mapper *ErrorMapper) ([]persistence.Section, error) {
	var sections []persistence.Section
	for rows.Next() {
		var (
			s                                                     persistence.Section
			courseName, format, sectionNum, instructorName, email sql.NullString
			days, startDate, endDate, startTime, endTime, loc     sql.NullString
			createdAt                                             string
			deletedAt                                             sql.NullString
		)
		if err := rows.Scan(
			&s.TermID, &s.SectionID, &courseName, &format, &sectionNum,
			&s.InstructorUID, &instructorName, &email, &days,
			&startDate, &endDate, &startTime, &endTime,
			&loc, &createdAt, &deletedAt,
		); err != nil {
			return nil, mapper.MapError(err)
		}

		s.CourseName = courseName.String
		s.InstructionFormat = format.String
		s.SectionNum = sectionNum.String
		s.InstructorName = instructorName.String
		s.InstructorEmail = email.String
		s.MeetingDays = days.String
		s.MeetingStartDate = startDate.String
		s.MeetingEndDate = endDate.String
		s.MeetingStartTime = startTime.String
		s.MeetingEndTime = endTime.String
		s.MeetingLocation = loc.String

		var err error
		if s.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		if s.DeletedAt, err = parseNullTime("deleted_at", deletedAt); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapper.MapError(err)
	}
	return sections, nil
}
