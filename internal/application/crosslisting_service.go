package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/capture-scheduler/internal/concurrent"
	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/logging"
)

// DefaultCrossListingChunkSize is the largest number of groups written by a
// single insert statement.
const DefaultCrossListingChunkSize = 500

// CrossListingService recomputes cross-listed section groups from the roster.
type CrossListingService struct {
	roster      RosterSource
	store       CrossListingStore
	chunkSize   int
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCrossListingService constructs a cross-listing service. A chunkSize
// outside 1..500 falls back to DefaultCrossListingChunkSize.
func NewCrossListingService(roster RosterSource, store CrossListingStore, chunkSize int, idGenerator func() string, now func() time.Time) *CrossListingService {
	return NewCrossListingServiceWithLogger(roster, store, chunkSize, idGenerator, now, nil)
}

// NewCrossListingServiceWithLogger constructs a cross-listing service with a specified logger.
func NewCrossListingServiceWithLogger(roster RosterSource, store CrossListingStore, chunkSize int, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CrossListingService {
	if chunkSize <= 0 || chunkSize > DefaultCrossListingChunkSize {
		chunkSize = DefaultCrossListingChunkSize
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CrossListingService{
		roster:      roster,
		store:       store,
		chunkSize:   chunkSize,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CrossListingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CrossListingService", operation, attrs...)
}

// RefreshCrossListings replaces the term's cross-listings with groups computed
// from the current roster and soft-deletes every member section. The delete,
// insert, soft delete and audit record commit together or not at all.
func (s *CrossListingService) RefreshCrossListings(ctx context.Context, termID int) (summary CrossListingSummary, err error) {
	if s == nil {
		err = fmt.Errorf("CrossListingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RefreshCrossListings", "term_id", termID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh cross-listings", logging.ErrKey, err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cross-listings refreshed",
			"rows", summary.Rows,
			"groups", summary.Groups,
			"members", summary.Members,
			"batches", summary.Batches,
			"unchanged", summary.Unchanged,
		)
	}()

	if err = validateTermID(termID); err != nil {
		return
	}
	if s.roster == nil || s.store == nil {
		err = fmt.Errorf("cross-listing collaborators not configured")
		return
	}

	var rows []crosslisting.MeetingRow
	rows, err = s.roster.FetchMeetingRows(ctx, termID)
	if err != nil {
		err = storeError("fetch meeting rows", err)
		return
	}

	var groups []crosslisting.Group
	groups, err = crosslisting.Consolidate(termID, rows)
	if err != nil {
		return
	}
	members := crosslisting.Members(groups)

	summary = CrossListingSummary{
		TermID:  termID,
		RunID:   s.idGenerator(),
		Rows:    len(rows),
		Groups:  len(groups),
		Members: len(members),
		Digest:  crosslisting.Digest(rows),
	}

	var previous string
	previous, err = s.store.LastRunDigest(ctx, termID)
	if err != nil {
		err = storeError("read last run", err)
		return
	}
	summary.Unchanged = previous != "" && previous == summary.Digest

	summary.Batches, err = s.apply(ctx, logger, termID, groups, members, summary)
	return
}

func (s *CrossListingService) apply(ctx context.Context, logger *slog.Logger, termID int, groups []crosslisting.Group, members []int, summary CrossListingSummary) (batches int, err error) {
	uow, err := s.store.BeginCrossListingRefresh(ctx)
	if err != nil {
		return 0, storeError("begin transaction", err)
	}
	defer func() {
		if rbErr := uow.Rollback(); rbErr != nil && err != nil {
			logger.ErrorContext(ctx, "rollback failed", logging.ErrKey, rbErr)
		}
	}()

	if err = uow.DeleteCrossListings(ctx, termID); err != nil {
		return 0, storeError("delete cross-listings", err)
	}
	if batches, err = uow.InsertCrossListings(ctx, termID, groups, s.chunkSize); err != nil {
		return 0, storeError("insert cross-listings", err)
	}
	if err = uow.MarkSectionsDeleted(ctx, termID, members); err != nil {
		return 0, storeError("mark sections deleted", err)
	}

	run := ConsolidationRun{
		ID:        summary.RunID,
		TermID:    termID,
		Digest:    summary.Digest,
		Rows:      summary.Rows,
		Groups:    summary.Groups,
		Members:   summary.Members,
		Batches:   batches,
		CreatedAt: s.now(),
	}
	if err = uow.RecordRun(ctx, run); err != nil {
		return 0, storeError("record run", err)
	}
	if err = uow.Commit(); err != nil {
		return 0, storeError("commit", err)
	}
	return batches, nil
}

// RefreshTerms refreshes several terms concurrently. Terms are independent, so
// one failure does not stop the others. The result maps every term to its
// error, nil on success.
func (s *CrossListingService) RefreshTerms(ctx context.Context, termIDs []int, workers int) map[int]error {
	results := make(map[int]error, len(termIDs))
	if len(termIDs) == 0 {
		return results
	}

	// The same term twice would race on its own rows.
	unique := make([]int, 0, len(termIDs))
	seen := make(map[int]bool, len(termIDs))
	for _, id := range termIDs {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}

	tasks := make([]func(context.Context) error, len(unique))
	for i, termID := range unique {
		termID := termID
		tasks[i] = func(ctx context.Context) error {
			_, err := s.RefreshCrossListings(ctx, termID)
			return err
		}
	}

	errs := concurrent.NewWorkerPool(workers).RunEach(ctx, tasks...)
	for i, termID := range unique {
		results[termID] = errs[i]
	}
	return results
}

// ListCrossListings returns the committed groups of a term.
func (s *CrossListingService) ListCrossListings(ctx context.Context, termID int) (listings []CrossListing, err error) {
	if err = validateTermID(termID); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, nil
	}
	listings, err = s.store.ListCrossListings(ctx, termID)
	if err != nil {
		err = storeError("list cross-listings", err)
		s.loggerWith(ctx, "ListCrossListings", "term_id", termID).
			ErrorContext(ctx, "failed to list cross-listings", logging.ErrKey, err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return listings, nil
}
