package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/capture-scheduler/internal/persistence"
)

const scheduledColumns = `id, term_id, section_id, room_id, instructor_uids, meeting_days,
	meeting_start_time, meeting_end_time, recording_type, publish_type, kaltura_series_id, created_at`

// ScheduledRepository implements persistence.ScheduledRepository using SQLite
type ScheduledRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewScheduledRepository creates a new SQLite scheduled recording repository
func NewScheduledRepository(pool *ConnectionPool) *ScheduledRepository {
	return &ScheduledRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateScheduled stores a booked recording. One recording per section and
// term; a second insert reports persistence.ErrDuplicate.
func (r *ScheduledRepository) CreateScheduled(ctx context.Context, scheduled persistence.Scheduled) (persistence.Scheduled, error) {
	if scheduled.ID == "" || scheduled.SectionID <= 0 || scheduled.TermID <= 0 {
		return persistence.Scheduled{}, persistence.ErrConstraintViolation
	}
	if scheduled.CreatedAt.IsZero() {
		scheduled.CreatedAt = time.Now().UTC()
	}
	if scheduled.InstructorUIDs == nil {
		scheduled.InstructorUIDs = []string{}
	}

	uids, err := json.Marshal(scheduled.InstructorUIDs)
	if err != nil {
		return persistence.Scheduled{}, fmt.Errorf("failed to encode instructor_uids: %w", err)
	}
	var seriesID sql.NullString
	if scheduled.KalturaSeriesID != nil {
		seriesID = sql.NullString{String: *scheduled.KalturaSeriesID, Valid: true}
	}

	query := `INSERT INTO scheduled (` + scheduledColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.helper.Exec(ctx, query,
		scheduled.ID,
		scheduled.TermID,
		scheduled.SectionID,
		scheduled.RoomID,
		string(uids),
		scheduled.MeetingDays,
		scheduled.MeetingStartTime,
		scheduled.MeetingEndTime,
		scheduled.RecordingType,
		scheduled.PublishType,
		seriesID,
		formatTime(scheduled.CreatedAt),
	)
	if err != nil {
		return persistence.Scheduled{}, r.mapper.MapError(err)
	}
	return scheduled, nil
}

// GetScheduled returns the recording booked for a section.
func (r *ScheduledRepository) GetScheduled(ctx context.Context, termID, sectionID int) (persistence.Scheduled, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled WHERE term_id = ? AND section_id = ?`
	scheduled, err := scanScheduled(r.helper.QueryRow(ctx, query, termID, sectionID))
	if err != nil {
		return persistence.Scheduled{}, r.mapper.MapError(err)
	}
	return scheduled, nil
}

// ListScheduled returns the recordings of a term ordered by section.
func (r *ScheduledRepository) ListScheduled(ctx context.Context, termID int) ([]persistence.Scheduled, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled WHERE term_id = ? ORDER BY section_id ASC`
	rows, err := r.helper.Query(ctx, query, termID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var result []persistence.Scheduled
	for rows.Next() {
		scheduled, err := scanScheduled(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		result = append(result, scheduled)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return result, nil
}

func scanScheduled(row rowScanner) (persistence.Scheduled, error) {
	var (
		s         persistence.Scheduled
		uids      string
		seriesID  sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&s.ID, &s.TermID, &s.SectionID, &s.RoomID, &uids, &s.MeetingDays,
		&s.MeetingStartTime, &s.MeetingEndTime, &s.RecordingType, &s.PublishType,
		&seriesID, &createdAt,
	); err != nil {
		return persistence.Scheduled{}, err
	}
	if err := json.Unmarshal([]byte(uids), &s.InstructorUIDs); err != nil {
		return persistence.Scheduled{}, fmt.Errorf("failed to decode instructor_uids: %w", err)
	}
	if seriesID.Valid {
		id := seriesID.String
		s.KalturaSeriesID = &id
	}

	var err error
	if s.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Scheduled{}, err
	}
	return s, nil
}
