package application

import (
	"time"

	"github.com/example/capture-scheduler/internal/scheduler"
)

// Room is a teaching space that may be mapped to a capture resource.
type Room struct {
	ID                int    `json:"id"`
	Location          string `json:"location"`
	CaptureResourceID *int   `json:"capture_resource_id,omitempty"`
}

// HasCaptureResource reports whether recordings can be booked in the room.
func (r Room) HasCaptureResource() bool {
	return r.CaptureResourceID != nil
}

// Instructor teaches a course section.
type Instructor struct {
	UID   string `json:"uid"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Course describes the section being scheduled.
type Course struct {
	TermID      int          `json:"term_id"`
	SectionID   int          `json:"section_id"`
	Label       string       `json:"label"`
	Instructors []Instructor `json:"instructors"`
}

// InstructorUIDs lists the course instructors in order.
func (c Course) InstructorUIDs() []string {
	uids := make([]string, 0, len(c.Instructors))
	for _, i := range c.Instructors {
		uids = append(uids, i.UID)
	}
	return uids
}

// MeetingTimes is a section's canonical weekly meeting.
type MeetingTimes struct {
	Days      string
	StartTime string
	EndTime   string
	StartDate string
	EndDate   string
}

// CaptureResource is a recorder known to the capture service.
type CaptureResource struct {
	ID   int
	Name string
}

// BookingRequest is handed to the capture service. Times are the adjusted
// recording window; Days uses the "MO, WE" form.
type BookingRequest struct {
	CourseLabel   string
	Instructors   []Instructor
	Days          string
	StartTime     string
	EndTime       string
	PublishType   string
	RecordingType string
	Room          Room
	TermID        int
	SectionID     int
	StartDate     string
	EndDate       string
	RRule         string
}

// ScheduledRecording is the durable record of a booked recording. Meeting
// times are the roster times, not the adjusted window.
type ScheduledRecording struct {
	ID               string    `json:"id"`
	SectionID        int       `json:"section_id"`
	TermID           int       `json:"term_id"`
	RoomID           int       `json:"room_id"`
	InstructorUIDs   []string  `json:"instructor_uids"`
	MeetingDays      string    `json:"meeting_days"`
	MeetingStartTime string    `json:"meeting_start_time"`
	MeetingEndTime   string    `json:"meeting_end_time"`
	RecordingType    string    `json:"recording_type"`
	PublishType      string    `json:"publish_type"`
	SeriesID         string    `json:"series_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// CrossListing is a persisted group of sections sharing one meeting.
type CrossListing struct {
	TermID                int   `json:"term_id"`
	SectionID             int   `json:"section_id"`
	CrossListedSectionIDs []int `json:"cross_listed_section_ids"`
}

// ConsolidationRun is the audit record of one cross-listing refresh.
type ConsolidationRun struct {
	ID        string
	TermID    int
	Digest    string
	Rows      int
	Groups    int
	Members   int
	Batches   int
	CreatedAt time.Time
}

// CrossListingSummary reports the result of RefreshCrossListings.
type CrossListingSummary struct {
	TermID    int    `json:"term_id"`
	RunID     string `json:"run_id"`
	Rows      int    `json:"rows"`
	Groups    int    `json:"groups"`
	Members   int    `json:"members"`
	Batches   int    `json:"batches"`
	Digest    string `json:"digest"`
	Unchanged bool   `json:"unchanged"`
}

// OutcomeStatus is the terminal state of scheduling one course.
type OutcomeStatus string

const (
	OutcomeScheduled OutcomeStatus = "scheduled"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// ReasonNoCaptureResource explains a rejection for an unmapped room.
const ReasonNoCaptureResource = "no_capture_resource"

// ScheduleOutcome reports what ScheduleRecordings decided for a course.
type ScheduleOutcome struct {
	Status       OutcomeStatus       `json:"status"`
	Reason       string              `json:"reason,omitempty"`
	Approval     scheduler.Approval  `json:"-"`
	Room         Room                `json:"room"`
	Window       *scheduler.Window   `json:"-"`
	Meetings     int                 `json:"meetings"`
	Scheduled    *ScheduledRecording `json:"scheduled,omitempty"`
	Notified     bool                `json:"notified"`
	ApproverUIDs []string            `json:"approver_uids"`
}

// SectionFailure records why one section could not be scheduled.
type SectionFailure struct {
	SectionID int    `json:"section_id"`
	Kind      string `json:"kind"`
	Error     string `json:"error"`
}

// BatchSummary reports ScheduleTerm results.
type BatchSummary struct {
	TermID    int              `json:"term_id"`
	Sections  int              `json:"sections"`
	Scheduled int              `json:"scheduled"`
	Rejected  int              `json:"rejected"`
	Failed    int              `json:"failed"`
	Failures  []SectionFailure `json:"failures,omitempty"`
}

// RoomRefreshSummary reports RefreshRooms results.
type RoomRefreshSummary struct {
	RosterLocations  int      `json:"roster_locations"`
	CreatedLocations []string `json:"created_locations"`
	Resources        int      `json:"resources"`
	Mapped           int      `json:"mapped"`
}
