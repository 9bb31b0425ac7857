package persistence

import "time"

// Section is one roster row for a course section in a term.
type Section struct {
	TermID            int
	SectionID         int
	CourseName        string
	InstructionFormat string
	SectionNum        string
	InstructorUID     string
	InstructorName    string
	InstructorEmail   string
	MeetingDays       string
	MeetingStartDate  string
	MeetingEndDate    string
	MeetingStartTime  string
	MeetingEndTime    string
	MeetingLocation   string
	CreatedAt         time.Time
	DeletedAt         *time.Time
}

// MeetingRow is the schedule portion of a section row.
type MeetingRow struct {
	TermID           int
	SectionID        int
	MeetingDays      string
	MeetingStartDate string
	MeetingEndDate   string
	MeetingStartTime string
	MeetingEndTime   string
	MeetingLocation  string
}

// MeetingTimes is the canonical meeting schedule of a section.
type MeetingTimes struct {
	Days      string
	StartTime string
	EndTime   string
	StartDate string
	EndDate   string
	Location  string
}

// CrossListing maps a primary section to the sections that share its meeting.
type CrossListing struct {
	TermID                int
	SectionID             int
	CrossListedSectionIDs []int
	CreatedAt             time.Time
}

// ConsolidationRun records one cross-listing refresh for a term.
type ConsolidationRun struct {
	ID          string
	TermID      int
	Digest      string
	RowCount    int
	GroupCount  int
	MemberCount int
	Batches     int
	CreatedAt   time.Time
}

// Room is a physical teaching space.
type Room struct {
	ID                int
	Location          string
	KalturaResourceID *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Approval is an instructor's recording request for a section.
type Approval struct {
	ApprovedByUID string
	TermID        int
	SectionID     int
	RoomID        int
	RecordingType string
	PublishType   string
	CreatedAt     time.Time
}

// Scheduled is a booked recording series.
type Scheduled struct {
	ID               string
	TermID           int
	SectionID        int
	RoomID           int
	InstructorUIDs   []string
	MeetingDays      string
	MeetingStartTime string
	MeetingEndTime   string
	RecordingType    string
	PublishType      string
	KalturaSeriesID  *string
	CreatedAt        time.Time
}
