package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/capture-scheduler/internal/persistence"
)

// ApprovalRepository implements persistence.ApprovalRepository using SQLite
type ApprovalRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewApprovalRepository creates a new SQLite approval repository
func NewApprovalRepository(pool *ConnectionPool) *ApprovalRepository {
	return &ApprovalRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateApproval stores an instructor's approval. A zero CreatedAt is set to now.
func (r *ApprovalRepository) CreateApproval(ctx context.Context, approval persistence.Approval) error {
	if strings.TrimSpace(approval.ApprovedByUID) == "" || approval.SectionID <= 0 || approval.TermID <= 0 {
		return persistence.ErrConstraintViolation
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO approvals (approved_by_uid, term_id, section_id, room_id, recording_type, publish_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		approval.ApprovedByUID,
		approval.TermID,
		approval.SectionID,
		approval.RoomID,
		approval.RecordingType,
		approval.PublishType,
		formatTime(approval.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ListApprovals returns the approvals of a section in creation order.
func (r *ApprovalRepository) ListApprovals(ctx context.Context, termID, sectionID int) ([]persistence.Approval, error) {
	query := `
		SELECT approved_by_uid, term_id, section_id, room_id, recording_type, publish_type, created_at
		FROM approvals
		WHERE term_id = ? AND section_id = ?
		ORDER BY created_at ASC, rowid ASC
	`
	rows, err := r.helper.Query(ctx, query, termID, sectionID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var approvals []persistence.Approval
	for rows.Next() {
		var (
			a         persistence.Approval
			createdAt string
		)
		if err := rows.Scan(
			&a.ApprovedByUID, &a.TermID, &a.SectionID, &a.RoomID,
			&a.RecordingType, &a.PublishType, &createdAt,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if a.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return approvals, nil
}

// ListUnscheduledSections returns approved sections without a scheduled
// recording. Soft-deleted sections are cross-listed members recorded through
// their primary and are never listed.
func (r *ApprovalRepository) ListUnscheduledSections(ctx context.Context, termID int) ([]int, error) {
	query := `
		SELECT DISTINCT a.section_id
		FROM approvals a
		LEFT JOIN scheduled s ON s.term_id = a.term_id AND s.section_id = a.section_id
		WHERE a.term_id = ? AND s.id IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM sis_sections ss
				WHERE ss.term_id = a.term_id
					AND ss.section_id = a.section_id
					AND ss.deleted_at IS NOT NULL
			)
		ORDER BY a.section_id ASC
	`
	rows, err := r.helper.Query(ctx, query, termID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sectionIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		sectionIDs = append(sectionIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return sectionIDs, nil
}
