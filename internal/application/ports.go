package application

import (
	"context"

	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/scheduler"
)

// RosterSource supplies a term's meeting rows sorted by schedule key and section.
type RosterSource interface {
	FetchMeetingRows(ctx context.Context, termID int) ([]crosslisting.MeetingRow, error)
}

// CrossListingUnitOfWork rewrites one term's cross-listings atomically.
// Rollback after Commit must be a no-op.
type CrossListingUnitOfWork interface {
	DeleteCrossListings(ctx context.Context, termID int) error
	InsertCrossListings(ctx context.Context, termID int, groups []crosslisting.Group, chunkSize int) (batches int, err error)
	MarkSectionsDeleted(ctx context.Context, termID int, sectionIDs []int) error
	RecordRun(ctx context.Context, run ConsolidationRun) error
	Commit() error
	Rollback() error
}

// CrossListingStore opens units of work and reads committed state.
type CrossListingStore interface {
	BeginCrossListingRefresh(ctx context.Context) (CrossListingUnitOfWork, error)
	// LastRunDigest returns "" when the term was never consolidated.
	LastRunDigest(ctx context.Context, termID int) (string, error)
	ListCrossListings(ctx context.Context, termID int) ([]CrossListing, error)
}

// RoomDirectory stores rooms and their capture resource mapping.
type RoomDirectory interface {
	GetRoom(ctx context.Context, id int) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListLocations(ctx context.Context) ([]string, error)
	CreateRoom(ctx context.Context, location string) (Room, error)
	UpdateCaptureResourceMappings(ctx context.Context, roomToResource map[int]int) error
}

// LocationSource lists the meeting locations found in the roster.
type LocationSource interface {
	DistinctMeetingLocations(ctx context.Context) ([]string, error)
}

// ResourceDirectory lists capture resources known to the capture service.
type ResourceDirectory interface {
	ListResources(ctx context.Context) ([]CaptureResource, error)
}

// MeetingTimeLookup resolves a section's meeting schedule.
type MeetingTimeLookup interface {
	GetMeetingTimes(ctx context.Context, termID, sectionID int) (MeetingTimes, error)
}

// CaptureBooker books a recording series and returns its identifier.
type CaptureBooker interface {
	ScheduleRecording(ctx context.Context, req BookingRequest) (seriesID string, err error)
}

// ScheduledStore persists booked recordings.
type ScheduledStore interface {
	CreateScheduledRecording(ctx context.Context, rec ScheduledRecording) (ScheduledRecording, error)
	ListScheduledRecordings(ctx context.Context, termID int) ([]ScheduledRecording, error)
}

// Notifier tells instructors their recordings were scheduled.
type Notifier interface {
	NotifyRecordingsScheduled(ctx context.Context, course Course, scheduled ScheduledRecording) error
}

// ApprovalSource lists approvals awaiting scheduling.
type ApprovalSource interface {
	ListUnscheduledSections(ctx context.Context, termID int) ([]int, error)
	ListApprovals(ctx context.Context, termID, sectionID int) ([]scheduler.Approval, error)
}

// CourseSource describes a course section and its instructors.
type CourseSource interface {
	GetCourse(ctx context.Context, termID, sectionID int) (Course, error)
}
