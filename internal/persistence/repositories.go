package persistence

import "context"

// SectionRepository stores the bulk-loaded section roster.
type SectionRepository interface {
	ImportSections(ctx context.Context, termID int, sections []Section) error
	ListSections(ctx context.Context, termID int, includeDeleted bool) ([]Section, error)
	GetSection(ctx context.Context, termID, sectionID int) ([]Section, error)
	ListMeetingRows(ctx context.Context, termID int) ([]MeetingRow, error)
	GetMeetingTimes(ctx context.Context, termID, sectionID int) (MeetingTimes, error)
	DistinctMeetingLocations(ctx context.Context) ([]string, error)
}

// CrossListingTx is a unit of work that rewrites a term's cross-listings.
// Nothing is visible to other readers until Commit.
type CrossListingTx interface {
	DeleteCrossListings(ctx context.Context, termID int) error
	InsertCrossListings(ctx context.Context, listings []CrossListing, chunkSize int) (int, error)
	MarkSectionsDeleted(ctx context.Context, termID int, sectionIDs []int) error
	RecordRun(ctx context.Context, run ConsolidationRun) error
	Commit() error
	Rollback() error
}

// CrossListingRepository reads cross-listings and opens units of work.
type CrossListingRepository interface {
	BeginCrossListings(ctx context.Context) (CrossListingTx, error)
	ListCrossListings(ctx context.Context, termID int) ([]CrossListing, error)
	LastConsolidationRun(ctx context.Context, termID int) (ConsolidationRun, error)
}

// RoomRepository stores rooms and their capture resource mapping.
type RoomRepository interface {
	CreateRoom(ctx context.Context, location string) (Room, error)
	GetRoom(ctx context.Context, id int) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListLocations(ctx context.Context) ([]string, error)
	UpdateKalturaResourceMappings(ctx context.Context, mappings map[int]int) error
}

// ApprovalRepository stores instructor approvals.
type ApprovalRepository interface {
	CreateApproval(ctx context.Context, approval Approval) error
	ListApprovals(ctx context.Context, termID, sectionID int) ([]Approval, error)
	ListUnscheduledSections(ctx context.Context, termID int) ([]int, error)
}

// ScheduledRepository stores booked recordings.
type ScheduledRepository interface {
	CreateScheduled(ctx context.Context, scheduled Scheduled) (Scheduled, error)
	GetScheduled(ctx context.Context, termID, sectionID int) (Scheduled, error)
	ListScheduled(ctx context.Context, termID int) ([]Scheduled, error)
}
