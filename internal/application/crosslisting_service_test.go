package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/capture-scheduler/internal/crosslisting"
)

func row(termID, sectionID int, days, start, end, location string) crosslisting.MeetingRow {
	return crosslisting.MeetingRow{
		SectionID:        sectionID,
		TermID:           termID,
		MeetingDays:      days,
		MeetingStartDate: "2023-08-23",
		MeetingEndDate:   "2023-12-08",
		MeetingStartTime: start,
		MeetingEndTime:   end,
		MeetingLocation:  location,
	}
}

// rosterRows returns rows already sorted by schedule key then section.
func rosterRows(termID int) []crosslisting.MeetingRow {
	return []crosslisting.MeetingRow{
		row(termID, 10, "FR", "09:00", "09:59", "Evans 10"),
		row(termID, 20, "MOWE", "10:00", "11:29", "Dwinelle 155"),
		row(termID, 21, "MOWE", "10:00", "11:29", "Dwinelle 155"),
		row(termID, 22, "MOWE", "10:00", "11:29", "Dwinelle 155"),
		row(termID, 30, "TUTH", "14:00", "15:29", "Wheeler 150"),
		row(termID, 31, "TUTH", "14:00", "15:29", "Wheeler 150"),
	}
}

func TestCrossListingService_RefreshCommitsEverything(t *testing.T) {
	rows := rosterRows(testTerm)
	roster := &rosterStub{rows: rows}
	store := &crossListingStoreStub{}
	svc := NewCrossListingService(roster, store, 0, sequentialIDs("run"), fixedNow)

	summary, err := svc.RefreshCrossListings(context.Background(), testTerm)
	require.NoError(t, err)

	require.Len(t, store.uows, 1)
	uow := store.uows[0]
	assert.Equal(t, []string{"delete", "insert", "mark", "record", "commit"}, uow.steps)
	assert.True(t, uow.committed)
	assert.False(t, uow.rolledBack)
	assert.Equal(t, testTerm, uow.deleted)
	assert.Equal(t, DefaultCrossListingChunkSize, uow.chunkSize)

	require.Len(t, uow.inserted, 2)
	assert.Equal(t, 20, uow.inserted[0].PrimarySectionID)
	assert.Equal(t, []int{21, 22}, uow.inserted[0].CrossListedSectionIDs)
	assert.Equal(t, 30, uow.inserted[1].PrimarySectionID)
	assert.Equal(t, []int{31}, uow.inserted[1].CrossListedSectionIDs)

	// Primaries and singletons stay visible; only members are soft-deleted.
	assert.ElementsMatch(t, []int{21, 22, 31}, uow.marked)

	assert.Equal(t, CrossListingSummary{
		TermID:  testTerm,
		RunID:   "run-1",
		Rows:    6,
		Groups:  2,
		Members: 3,
		Batches: 1,
		Digest:  crosslisting.Digest(rows),
	}, summary)

	assert.Equal(t, ConsolidationRun{
		ID:        "run-1",
		TermID:    testTerm,
		Digest:    summary.Digest,
		Rows:      6,
		Groups:    2,
		Members:   3,
		Batches:   1,
		CreatedAt: fixedNow(),
	}, uow.run)
}

func TestCrossListingService_ChunkSize(t *testing.T) {
	var rows []crosslisting.MeetingRow
	for i := 0; i < 7; i++ {
		room := string(rune('A' + i))
		rows = append(rows,
			row(testTerm, 100+2*i, "MO", "08:00", "08:59", "Room "+room),
			row(testTerm, 101+2*i, "MO", "08:00", "08:59", "Room "+room),
		)
	}
	store := &crossListingStoreStub{}
	svc := NewCrossListingService(&rosterStub{rows: rows}, store, 3, nil, nil)

	summary, err := svc.RefreshCrossListings(context.Background(), testTerm)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Groups)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, 3, store.uows[0].chunkSize)
	assert.Equal(t, 3, store.uows[0].run.Batches)
}

func TestCrossListingService_ChunkSizeCap(t *testing.T) {
	svc := NewCrossListingService(nil, nil, 10_000, nil, nil)
	assert.Equal(t, DefaultCrossListingChunkSize, svc.chunkSize)
}

func TestCrossListingService_FailureRollsBack(t *testing.T) {
	for _, step := range []string{"delete", "insert", "mark", "record", "commit"} {
		step := step
		t.Run(step, func(t *testing.T) {
			store := &crossListingStoreStub{failAt: step}
			svc := NewCrossListingService(&rosterStub{rows: rosterRows(testTerm)[1:]}, store, 0, nil, nil)

			_, err := svc.RefreshCrossListings(context.Background(), testTerm)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPersistence)
			assert.Equal(t, "persistence", ErrorKind(err))

			uow := store.uows[0]
			assert.False(t, uow.committed)
			assert.True(t, uow.rolledBack)
			assert.Equal(t, step, uow.steps[len(uow.steps)-1])
		})
	}
}

func TestCrossListingService_MalformedRowsWriteNothing(t *testing.T) {
	rows := rosterRows(testTerm)[1:]
	rows[1].MeetingStartTime = "10am"
	store := &crossListingStoreStub{}
	svc := NewCrossListingService(&rosterStub{rows: rows}, store, 0, nil, nil)

	_, err := svc.RefreshCrossListings(context.Background(), testTerm)
	require.Error(t, err)

	var rowErr *crosslisting.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Index)
	assert.Equal(t, "malformed_input", ErrorKind(err))
	assert.Empty(t, store.uows)
}

func TestCrossListingService_InvalidTerm(t *testing.T) {
	roster := &rosterStub{}
	svc := NewCrossListingService(roster, &crossListingStoreStub{}, 0, nil, nil)

	_, err := svc.RefreshCrossListings(context.Background(), 0)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.FieldErrors, "term_id")
	assert.Zero(t, roster.calls)
}

func TestCrossListingService_RosterFailure(t *testing.T) {
	store := &crossListingStoreStub{}
	svc := NewCrossListingService(&rosterStub{err: errors.New("disk gone")}, store, 0, nil, nil)

	_, err := svc.RefreshCrossListings(context.Background(), testTerm)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, store.uows)
}

func TestCrossListingService_UnchangedDigest(t *testing.T) {
	rows := rosterRows(testTerm)[1:]
	store := &crossListingStoreStub{digest: crosslisting.Digest(rows)}
	svc := NewCrossListingService(&rosterStub{rows: rows}, store, 0, nil, nil)

	summary, err := svc.RefreshCrossListings(context.Background(), testTerm)
	require.NoError(t, err)
	assert.True(t, summary.Unchanged)
	// The transaction still runs so a previous partial state is repaired.
	assert.True(t, store.uows[0].committed)
}

func TestCrossListingService_EmptyRoster(t *testing.T) {
	store := &crossListingStoreStub{}
	svc := NewCrossListingService(&rosterStub{}, store, 0, nil, nil)

	summary, err := svc.RefreshCrossListings(context.Background(), testTerm)
	require.NoError(t, err)
	assert.Zero(t, summary.Groups)
	assert.Zero(t, summary.Batches)
	assert.Empty(t, store.uows[0].marked)
	assert.True(t, store.uows[0].committed)
}

type lockedStore struct {
	mu sync.Mutex
	crossListingStoreStub
}

func (s *lockedStore) BeginCrossListingRefresh(ctx context.Context) (CrossListingUnitOfWork, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crossListingStoreStub.BeginCrossListingRefresh(ctx)
}

type lockedRoster struct {
	mu sync.Mutex
	rosterStub
}

func (r *lockedRoster) FetchMeetingRows(ctx context.Context, termID int) ([]crosslisting.MeetingRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterStub.FetchMeetingRows(ctx, termID)
}

func TestCrossListingService_RefreshTerms(t *testing.T) {
	rows := append(rosterRows(2238)[1:], rosterRows(2242)[1:]...)
	roster := &lockedRoster{rosterStub: rosterStub{rows: rows}}
	store := &lockedStore{}
	svc := NewCrossListingService(roster, store, 0, nil, nil)

	results := svc.RefreshTerms(context.Background(), []int{2238, 2242, 2238, -1}, 2)

	require.Len(t, results, 3)
	assert.NoError(t, results[2238])
	assert.NoError(t, results[2242])
	var vErr *ValidationError
	assert.True(t, errors.As(results[-1], &vErr))

	assert.Len(t, store.uows, 2)
	for _, uow := range store.uows {
		assert.True(t, uow.committed)
	}
}

func TestCrossListingService_RefreshTermsEmpty(t *testing.T) {
	svc := NewCrossListingService(&rosterStub{}, &crossListingStoreStub{}, 0, nil, nil)
	assert.Empty(t, svc.RefreshTerms(context.Background(), nil, 4))
}

func TestCrossListingService_ListCrossListings(t *testing.T) {
	store := &crossListingStoreStub{listings: []CrossListing{{TermID: testTerm, SectionID: 20, CrossListedSectionIDs: []int{21}}}}
	svc := NewCrossListingService(nil, store, 0, nil, nil)

	listings, err := svc.ListCrossListings(context.Background(), testTerm)
	require.NoError(t, err)
	assert.Equal(t, store.listings, listings)

	store.listErr = errors.New("boom")
	_, err = svc.ListCrossListings(context.Background(), testTerm)
	assert.ErrorIs(t, err, ErrPersistence)
}
