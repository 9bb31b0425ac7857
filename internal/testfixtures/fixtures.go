package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/capture-scheduler/internal/application"
	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/scheduler"
)

// TermID is the term used by fixtures unless overridden.
const TermID = 2238

var (
	sectionCounter   uint64
	approvalCounter  uint64
	scheduledCounter uint64
)

var referenceTime = time.Date(2023, time.August, 1, 12, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Section fixtures -----------------------------

// SectionFixture is one roster row of a course section.
type SectionFixture struct {
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

// SectionOption configures the generated section fixture.
type SectionOption func(*SectionFixture)

// NewSectionFixture returns a lecture meeting Monday and Wednesday in
// Dwinelle 155 with optional overrides.
func NewSectionFixture(opts ...SectionOption) SectionFixture {
	idx := atomic.AddUint64(&sectionCounter, 1)
	sectionID := 30000 + int(idx)
	fixture := SectionFixture{
		TermID:            TermID,
		SectionID:         sectionID,
		CourseName:        fmt.Sprintf("COURSE %d", idx),
		InstructionFormat: "LEC",
		SectionNum:        "001",
		InstructorUID:     fmt.Sprintf("uid-%03d", idx),
		InstructorName:    fmt.Sprintf("Instructor %03d", idx),
		InstructorEmail:   fmt.Sprintf("uid-%03d@example.edu", idx),
		MeetingDays:       "MOWE",
		MeetingStartDate:  "2023-08-23",
		MeetingEndDate:    "2023-12-08",
		MeetingStartTime:  "10:00",
		MeetingEndTime:    "11:29",
		MeetingLocation:   "Dwinelle 155",
		CreatedAt:         referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSectionID overrides the generated section ID.
func WithSectionID(id int) SectionOption {
	return func(f *SectionFixture) {
		f.SectionID = id
	}
}

// WithSectionTerm overrides the term.
func WithSectionTerm(termID int) SectionOption {
	return func(f *SectionFixture) {
		f.TermID = termID
	}
}

// WithMeeting sets the meeting days and times.
func WithMeeting(days, start, end string) SectionOption {
	return func(f *SectionFixture) {
		f.MeetingDays = days
		f.MeetingStartTime = start
		f.MeetingEndTime = end
	}
}

// WithLocation sets the meeting location.
func WithLocation(location string) SectionOption {
	return func(f *SectionFixture) {
		f.MeetingLocation = location
	}
}

// WithInstructor sets the instructor of the row.
func WithInstructor(uid, name, email string) SectionOption {
	return func(f *SectionFixture) {
		f.InstructorUID = uid
		f.InstructorName = name
		f.InstructorEmail = email
	}
}

// WithSectionDeletedAt marks the row soft-deleted.
func WithSectionDeletedAt(t time.Time) SectionOption {
	return func(f *SectionFixture) {
		f.DeletedAt = &t
	}
}

// Persistence converts the fixture to a persistence.Section.
func (f SectionFixture) Persistence() persistence.Section {
	section := persistence.Section{
		TermID:            f.TermID,
		SectionID:         f.SectionID,
		CourseName:        f.CourseName,
		InstructionFormat: f.InstructionFormat,
		SectionNum:        f.SectionNum,
		InstructorUID:     f.InstructorUID,
		InstructorName:    f.InstructorName,
		InstructorEmail:   f.InstructorEmail,
		MeetingDays:       f.MeetingDays,
		MeetingStartDate:  f.MeetingStartDate,
		MeetingEndDate:    f.MeetingEndDate,
		MeetingStartTime:  f.MeetingStartTime,
		MeetingEndTime:    f.MeetingEndTime,
		MeetingLocation:   f.MeetingLocation,
		CreatedAt:         f.CreatedAt,
	}
	if f.DeletedAt != nil {
		deleted := *f.DeletedAt
		section.DeletedAt = &deleted
	}
	return section
}

// Course converts the fixture to the application course it describes.
func (f SectionFixture) Course() application.Course {
	return application.Course{
		TermID:    f.TermID,
		SectionID: f.SectionID,
		Label:     fmt.Sprintf("%s %s %s", f.CourseName, f.InstructionFormat, f.SectionNum),
		Instructors: []application.Instructor{
			{UID: f.InstructorUID, Name: f.InstructorName, Email: f.InstructorEmail},
		},
	}
}

// MeetingTimes returns the meeting schedule of the fixture.
func (f SectionFixture) MeetingTimes() application.MeetingTimes {
	return application.MeetingTimes{
		Days:      f.MeetingDays,
		StartTime: f.MeetingStartTime,
		EndTime:   f.MeetingEndTime,
		StartDate: f.MeetingStartDate,
		EndDate:   f.MeetingEndDate,
	}
}

// ----------------------------- Approval fixtures -----------------------------

// ApprovalFixture is an instructor's recording request.
type ApprovalFixture struct {
	ApprovedByUID string
	TermID        int
	SectionID     int
	RoomID        int
	RecordingType string
	PublishType   string
	CreatedAt     time.Time
}

// ApprovalOption configures the generated approval fixture.
type ApprovalOption func(*ApprovalFixture)

// NewApprovalFixture returns an approval for room 1 created after the
// previous fixture.
func NewApprovalFixture(opts ...ApprovalOption) ApprovalFixture {
	idx := atomic.AddUint64(&approvalCounter, 1)
	fixture := ApprovalFixture{
		ApprovedByUID: fmt.Sprintf("approver-%03d", idx),
		TermID:        TermID,
		SectionID:     30001,
		RoomID:        1,
		RecordingType: "presenter_presentation_audio",
		PublishType:   "kaltura_media_gallery",
		CreatedAt:     referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithApprovalSection targets the approval at a section.
func WithApprovalSection(sectionID int) ApprovalOption {
	return func(f *ApprovalFixture) {
		f.SectionID = sectionID
	}
}

// WithApprovalRoom sets the room the approval asks to record in.
func WithApprovalRoom(roomID int) ApprovalOption {
	return func(f *ApprovalFixture) {
		f.RoomID = roomID
	}
}

// WithApprover overrides the approving instructor.
func WithApprover(uid string) ApprovalOption {
	return func(f *ApprovalFixture) {
		f.ApprovedByUID = uid
	}
}

// WithApprovalTypes sets the recording and publish types.
func WithApprovalTypes(recordingType, publishType string) ApprovalOption {
	return func(f *ApprovalFixture) {
		f.RecordingType = recordingType
		f.PublishType = publishType
	}
}

// WithApprovalCreatedAt sets the creation timestamp.
func WithApprovalCreatedAt(t time.Time) ApprovalOption {
	return func(f *ApprovalFixture) {
		f.CreatedAt = t
	}
}

// Persistence converts the fixture to a persistence.Approval.
func (f ApprovalFixture) Persistence() persistence.Approval {
	return persistence.Approval{
		ApprovedByUID: f.ApprovedByUID,
		TermID:        f.TermID,
		SectionID:     f.SectionID,
		RoomID:        f.RoomID,
		RecordingType: f.RecordingType,
		PublishType:   f.PublishType,
		CreatedAt:     f.CreatedAt,
	}
}

// Scheduler converts the fixture to a scheduler.Approval.
func (f ApprovalFixture) Scheduler() scheduler.Approval {
	return scheduler.Approval{
		ApprovedByUID: f.ApprovedByUID,
		TermID:        f.TermID,
		SectionID:     f.SectionID,
		RoomID:        f.RoomID,
		RecordingType: f.RecordingType,
		PublishType:   f.PublishType,
		CreatedAt:     f.CreatedAt,
	}
}

// ----------------------------- Scheduled fixtures -----------------------------

// ScheduledFixture is a booked recording series.
type ScheduledFixture struct {
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
	SeriesID         string
	CreatedAt        time.Time
}

// ScheduledOption configures the generated scheduled fixture.
type ScheduledOption func(*ScheduledFixture)

// NewScheduledFixture returns a recording booked in room 1.
func NewScheduledFixture(opts ...ScheduledOption) ScheduledFixture {
	idx := atomic.AddUint64(&scheduledCounter, 1)
	fixture := ScheduledFixture{
		ID:               fmt.Sprintf("scheduled-%03d", idx),
		TermID:           TermID,
		SectionID:        30001,
		RoomID:           1,
		InstructorUIDs:   []string{"uid-001"},
		MeetingDays:      "MOWE",
		MeetingStartTime: "10:00",
		MeetingEndTime:   "11:29",
		RecordingType:    "presenter_presentation_audio",
		PublishType:      "kaltura_media_gallery",
		SeriesID:         fmt.Sprintf("1_series%03d", idx),
		CreatedAt:        referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithScheduledSection targets the recording at a section.
func WithScheduledSection(sectionID int) ScheduledOption {
	return func(f *ScheduledFixture) {
		f.SectionID = sectionID
	}
}

// WithScheduledRoom sets the room of the recording.
func WithScheduledRoom(roomID int) ScheduledOption {
	return func(f *ScheduledFixture) {
		f.RoomID = roomID
	}
}

// WithSeriesID overrides the capture series id. An empty id stores NULL.
func WithSeriesID(seriesID string) ScheduledOption {
	return func(f *ScheduledFixture) {
		f.SeriesID = seriesID
	}
}

// Persistence converts the fixture to a persistence.Scheduled.
func (f ScheduledFixture) Persistence() persistence.Scheduled {
	scheduled := persistence.Scheduled{
		ID:               f.ID,
		TermID:           f.TermID,
		SectionID:        f.SectionID,
		RoomID:           f.RoomID,
		InstructorUIDs:   append([]string(nil), f.InstructorUIDs...),
		MeetingDays:      f.MeetingDays,
		MeetingStartTime: f.MeetingStartTime,
		MeetingEndTime:   f.MeetingEndTime,
		RecordingType:    f.RecordingType,
		PublishType:      f.PublishType,
		CreatedAt:        f.CreatedAt,
	}
	if f.SeriesID != "" {
		seriesID := f.SeriesID
		scheduled.KalturaSeriesID = &seriesID
	}
	return scheduled
}

// Application converts the fixture to an application.ScheduledRecording.
func (f ScheduledFixture) Application() application.ScheduledRecording {
	return application.ScheduledRecording{
		ID:               f.ID,
		SectionID:        f.SectionID,
		TermID:           f.TermID,
		RoomID:           f.RoomID,
		InstructorUIDs:   append([]string(nil), f.InstructorUIDs...),
		MeetingDays:      f.MeetingDays,
		MeetingStartTime: f.MeetingStartTime,
		MeetingEndTime:   f.MeetingEndTime,
		RecordingType:    f.RecordingType,
		PublishType:      f.PublishType,
		SeriesID:         f.SeriesID,
		CreatedAt:        f.CreatedAt,
	}
}
