package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/persistence"
)

// CrossListingRepository implements persistence.CrossListingRepository using SQLite
type CrossListingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCrossListingRepository creates a new SQLite cross-listing repository
func NewCrossListingRepository(pool *ConnectionPool) *CrossListingRepository {
	return &CrossListingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// BeginCrossListings opens a transaction for rewriting a term's cross-listings.
func (r *CrossListingRepository) BeginCrossListings(ctx context.Context) (persistence.CrossListingTx, error) {
	tx, err := r.pool.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", r.mapper.MapError(err))
	}
	return &crossListingTx{tx: tx, helper: r.helper, mapper: r.mapper}, nil
}

// ListCrossListings returns the committed cross-listings of a term in insert order.
func (r *CrossListingRepository) ListCrossListings(ctx context.Context, termID int) ([]persistence.CrossListing, error) {
	query := `
		SELECT term_id, section_id, cross_listed_section_ids, created_at
		FROM cross_listings
		WHERE term_id = ?
		ORDER BY rowid ASC
	`
	rows, err := r.helper.Query(ctx, query, termID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var listings []persistence.CrossListing
	for rows.Next() {
		var (
			cl        persistence.CrossListing
			idsJSON   string
			createdAt string
		)
		if err := rows.Scan(&cl.TermID, &cl.SectionID, &idsJSON, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &cl.CrossListedSectionIDs); err != nil {
			return nil, fmt.Errorf("failed to decode cross_listed_section_ids: %w", err)
		}
		if cl.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		listings = append(listings, cl)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return listings, nil
}

// LastConsolidationRun returns the most recently recorded run of a term.
func (r *CrossListingRepository) LastConsolidationRun(ctx context.Context, termID int) (persistence.ConsolidationRun, error) {
	query := `
		SELECT id, term_id, digest, row_count, group_count, member_count, batches, created_at
		FROM consolidation_runs
		WHERE term_id = ?
		ORDER BY rowid DESC
		LIMIT 1
	`
	var (
		run       persistence.ConsolidationRun
		createdAt string
	)
	err := r.helper.QueryRow(ctx, query, termID).Scan(
		&run.ID, &run.TermID, &run.Digest, &run.RowCount, &run.GroupCount,
		&run.MemberCount, &run.Batches, &createdAt,
	)
	if err != nil {
		return persistence.ConsolidationRun{}, r.mapper.MapError(err)
	}
	if run.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.ConsolidationRun{}, err
	}
	return run, nil
}

type crossListingTx struct {
	tx     *sql.Tx
	helper *QueryHelper
	mapper *ErrorMapper
}

func (u *crossListingTx) DeleteCrossListings(ctx context.Context, termID int) error {
	if _, err := u.helper.ExecTx(ctx, u.tx, `DELETE FROM cross_listings WHERE term_id = ?`, termID); err != nil {
		return u.mapper.MapError(err)
	}
	return nil
}

// InsertCrossListings writes one multi-row INSERT per chunk and returns the
// number of statements issued.
func (u *crossListingTx) InsertCrossListings(ctx context.Context, listings []persistence.CrossListing, chunkSize int) (int, error) {
	now := formatTime(time.Now())
	batches := crosslisting.Chunk(listings, chunkSize)

	for _, batch := range batches {
		query := `INSERT INTO cross_listings (term_id, section_id, cross_listed_section_ids, created_at) VALUES ` +
			valuesPlaceholders(len(batch), 4)
		args := make([]any, 0, len(batch)*4)
		for _, cl := range batch {
			ids := cl.CrossListedSectionIDs
			if ids == nil {
				ids = []int{}
			}
			idsJSON, err := json.Marshal(ids)
			if err != nil {
				return 0, fmt.Errorf("failed to encode cross_listed_section_ids: %w", err)
			}
			createdAt := now
			if !cl.CreatedAt.IsZero() {
				createdAt = formatTime(cl.CreatedAt)
			}
			args = append(args, cl.TermID, cl.SectionID, string(idsJSON), createdAt)
		}
		if _, err := u.helper.ExecTx(ctx, u.tx, query, args...); err != nil {
			return 0, u.mapper.MapError(err)
		}
	}
	return len(batches), nil
}

// MarkSectionsDeleted leaves exactly sectionIDs soft-deleted in the term:
// rows outside the set are restored and rows already deleted keep their
// original timestamp.
func (u *crossListingTx) MarkSectionsDeleted(ctx context.Context, termID int, sectionIDs []int) error {
	ids := sectionIDs
	if ids == nil {
		ids = []int{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode section ids: %w", err)
	}

	restore := `
		UPDATE sis_sections SET deleted_at = NULL
		WHERE term_id = ? AND deleted_at IS NOT NULL
			AND section_id NOT IN (SELECT value FROM json_each(?))
	`
	if _, err := u.helper.ExecTx(ctx, u.tx, restore, termID, string(idsJSON)); err != nil {
		return u.mapper.MapError(err)
	}

	mark := `
		UPDATE sis_sections SET deleted_at = ?
		WHERE term_id = ? AND deleted_at IS NULL
			AND section_id IN (SELECT value FROM json_each(?))
	`
	if _, err := u.helper.ExecTx(ctx, u.tx, mark, formatTime(time.Now()), termID, string(idsJSON)); err != nil {
		return u.mapper.MapError(err)
	}
	return nil
}

func (u *crossListingTx) RecordRun(ctx context.Context, run persistence.ConsolidationRun) error {
	if run.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO consolidation_runs (id, term_id, digest, row_count, group_count, member_count, batches, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := u.helper.ExecTx(ctx, u.tx, query,
		run.ID, run.TermID, run.Digest, run.RowCount, run.GroupCount,
		run.MemberCount, run.Batches, formatTime(run.CreatedAt),
	)
	if err != nil {
		return u.mapper.MapError(err)
	}
	return nil
}

func (u *crossListingTx) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return u.mapper.MapError(err)
	}
	return nil
}

// Rollback is a no-op after Commit so callers can defer it unconditionally.
func (u *crossListingTx) Rollback() error {
	if err := u.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return u.mapper.MapError(err)
	}
	return nil
}
