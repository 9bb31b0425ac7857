package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage       *sqlite.Storage
	Sections      persistence.SectionRepository
	CrossListings persistence.CrossListingRepository
	Rooms         persistence.RoomRepository
	Approvals     persistence.ApprovalRepository
	Scheduled     persistence.ScheduledRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "capture.db")

	storage, err := sqlite.Open(path)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:       storage,
		Sections:      storage.Sections,
		CrossListings: storage.CrossListings,
		Rooms:         storage.Rooms,
		Approvals:     storage.Approvals,
		Scheduled:     storage.Scheduled,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedSections imports the fixtures as the roster of termID.
func (h *SQLiteHarness) SeedSections(tb testing.TB, termID int, fixtures ...SectionFixture) {
	tb.Helper()
	sections := make([]persistence.Section, 0, len(fixtures))
	for _, f := range fixtures {
		sections = append(sections, f.Persistence())
	}
	if err := h.Sections.ImportSections(context.Background(), termID, sections); err != nil {
		tb.Fatalf("failed to seed sections: %v", err)
	}
}

// SeedRooms creates rooms and maps them to capture resources. mappings is
// keyed by location and replaces any existing mapping.
func (h *SQLiteHarness) SeedRooms(tb testing.TB, locations []string, mappings map[string]int) map[string]persistence.Room {
	tb.Helper()
	ctx := context.Background()

	rooms := make(map[string]persistence.Room, len(locations))
	byID := make(map[int]int, len(mappings))
	for _, location := range locations {
		room, err := h.Rooms.CreateRoom(ctx, location)
		if err != nil {
			tb.Fatalf("failed to seed room %q: %v", location, err)
		}
		rooms[location] = room
		if resourceID, ok := mappings[location]; ok {
			byID[room.ID] = resourceID
		}
	}
	if len(byID) == 0 {
		return rooms
	}

	if err := h.Rooms.UpdateKalturaResourceMappings(ctx, byID); err != nil {
		tb.Fatalf("failed to map rooms: %v", err)
	}
	for location, room := range rooms {
		reloaded, err := h.Rooms.GetRoom(ctx, room.ID)
		if err != nil {
			tb.Fatalf("failed to reload room %q: %v", location, err)
		}
		rooms[location] = reloaded
	}
	return rooms
}

// SeedApprovals stores the approval fixtures.
func (h *SQLiteHarness) SeedApprovals(tb testing.TB, fixtures ...ApprovalFixture) {
	tb.Helper()
	for _, f := range fixtures {
		if err := h.Approvals.CreateApproval(context.Background(), f.Persistence()); err != nil {
			tb.Fatalf("failed to seed approval: %v", err)
		}
	}
}
