package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/capture-scheduler/internal/logging"
	"github.com/example/capture-scheduler/internal/recurrence"
	"github.com/example/capture-scheduler/internal/scheduler"
)

// RecordingConfig holds the recording window offsets in minutes. Negative
// values move the boundary earlier.
type RecordingConfig struct {
	StartOffsetMinutes int
	EndOffsetMinutes   int
}

// RecordingDependencies groups the collaborators of RecordingService.
// Approvals and Courses are only needed by ScheduleTerm.
type RecordingDependencies struct {
	Rooms        RoomDirectory
	MeetingTimes MeetingTimeLookup
	Booker       CaptureBooker
	Scheduled    ScheduledStore
	Notifier     Notifier
	Approvals    ApprovalSource
	Courses      CourseSource
}

// RecordingService turns instructor approvals into booked capture recordings.
type RecordingService struct {
	deps        RecordingDependencies
	config      RecordingConfig
	engine      *recurrence.Engine
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRecordingService constructs a recording service.
func NewRecordingService(deps RecordingDependencies, cfg RecordingConfig, engine *recurrence.Engine, idGenerator func() string, now func() time.Time) *RecordingService {
	return NewRecordingServiceWithLogger(deps, cfg, engine, idGenerator, now, nil)
}

// NewRecordingServiceWithLogger constructs a recording service with a specified logger.
func NewRecordingServiceWithLogger(deps RecordingDependencies, cfg RecordingConfig, engine *recurrence.Engine, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RecordingService {
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RecordingService{
		deps:        deps,
		config:      cfg,
		engine:      engine,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RecordingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RecordingService", operation, attrs...)
}

// ScheduleRecordings books the recording for one course from its approvals.
//
// A room without a capture resource yields a rejected outcome and a nil
// error: nothing is booked, stored or notified. A capture service failure is
// returned wrapping ErrCaptureService and nothing is stored. A notification
// failure is logged and reported through Notified; the stored recording stays.
func (s *RecordingService) ScheduleRecordings(ctx context.Context, approvals []scheduler.Approval, course Course) (outcome ScheduleOutcome, err error) {
	if s == nil {
		err = fmt.Errorf("RecordingService is nil")
		return
	}

	ctx = logging.AppendCtx(ctx, slog.Int("term_id", course.TermID))
	ctx = logging.AppendCtx(ctx, slog.Int("section_id", course.SectionID))
	logger := s.loggerWith(ctx, "ScheduleRecordings", "course", course.Label)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule recordings", logging.ErrKey, err, "error_kind", ErrorKind(err))
		}
	}()

	var governing scheduler.Approval
	governing, err = scheduler.GoverningApproval(approvals)
	if err != nil {
		return
	}
	outcome.Approval = governing
	outcome.ApproverUIDs = scheduler.ApproverUIDs(approvals)

	if s.deps.Rooms == nil || s.deps.MeetingTimes == nil || s.deps.Booker == nil || s.deps.Scheduled == nil {
		err = fmt.Errorf("recording collaborators not configured")
		return
	}

	var room Room
	room, err = s.deps.Rooms.GetRoom(ctx, governing.RoomID)
	if err != nil {
		err = storeError(fmt.Sprintf("get room %d", governing.RoomID), err)
		return
	}
	outcome.Room = room

	if !room.HasCaptureResource() {
		outcome.Status = OutcomeRejected
		outcome.Reason = ReasonNoCaptureResource
		logger.ErrorContext(ctx, "room has no capture resource; recordings not scheduled",
			"room_id", room.ID,
			"room", room.Location,
			"approved_by_uid", governing.ApprovedByUID,
			"reason", ReasonNoCaptureResource,
		)
		return
	}

	var meeting MeetingTimes
	meeting, err = s.deps.MeetingTimes.GetMeetingTimes(ctx, course.TermID, course.SectionID)
	if err != nil {
		err = storeError("get meeting times", err)
		return
	}

	var window scheduler.Window
	window, err = scheduler.RecordingWindow(meeting.StartTime, meeting.EndTime, s.config.StartOffsetMinutes, s.config.EndOffsetMinutes)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("meeting_times", err.Error())
		err = vErr
		return
	}
	outcome.Window = &window

	req := BookingRequest{
		CourseLabel:   course.Label,
		Instructors:   course.Instructors,
		Days:          recurrence.FormatDays(meeting.Days),
		StartTime:     window.Start.String(),
		EndTime:       window.End.String(),
		PublishType:   governing.PublishType,
		RecordingType: governing.RecordingType,
		Room:          room,
		TermID:        course.TermID,
		SectionID:     course.SectionID,
		StartDate:     meeting.StartDate,
		EndDate:       meeting.EndDate,
	}
	req.RRule, outcome.Meetings = s.series(ctx, logger, meeting, window)

	var seriesID string
	seriesID, err = s.deps.Booker.ScheduleRecording(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrCaptureService) {
			err = fmt.Errorf("%w: %w", ErrCaptureService, err)
		}
		return
	}

	rec := ScheduledRecording{
		ID:               s.idGenerator(),
		SectionID:        course.SectionID,
		TermID:           course.TermID,
		RoomID:           room.ID,
		InstructorUIDs:   course.InstructorUIDs(),
		MeetingDays:      meeting.Days,
		MeetingStartTime: meeting.StartTime,
		MeetingEndTime:   meeting.EndTime,
		RecordingType:    governing.RecordingType,
		PublishType:      governing.PublishType,
		SeriesID:         seriesID,
		CreatedAt:        s.now(),
	}

	var stored ScheduledRecording
	stored, err = s.deps.Scheduled.CreateScheduledRecording(ctx, rec)
	if err != nil {
		err = storeError("create scheduled recording", err)
		logger.ErrorContext(ctx, "recording booked but not stored",
			logging.PriorityCritical(),
			"series_id", seriesID,
			logging.ErrKey, err,
		)
		return
	}
	outcome.Status = OutcomeScheduled
	outcome.Scheduled = &stored

	if s.deps.Notifier != nil {
		if notifyErr := s.deps.Notifier.NotifyRecordingsScheduled(ctx, course, stored); notifyErr != nil {
			logger.WarnContext(ctx, "failed to notify instructors", logging.ErrKey, notifyErr)
		} else {
			outcome.Notified = true
		}
	}

	logger.InfoContext(ctx, "recordings scheduled",
		"room", room.Location,
		"series_id", seriesID,
		"meetings", outcome.Meetings,
		"approved_by", outcome.ApproverUIDs,
	)
	return
}

// series describes the booked series and counts the meetings it covers. The
// rule is empty when the roster dates or days do not form a valid pattern;
// the capture service then falls back to the days and times alone.
func (s *RecordingService) series(ctx context.Context, logger *slog.Logger, meeting MeetingTimes, window scheduler.Window) (string, int) {
	pattern, err := recurrence.NewPattern(meeting.Days, meeting.StartDate, meeting.EndDate, meeting.StartTime, meeting.EndTime)
	if err != nil {
		logger.WarnContext(ctx, "meeting pattern unavailable", logging.ErrKey, err)
		return "", 0
	}
	pattern = pattern.WithWindow(window.Start, window.End)
	rule, err := s.engine.RRuleString(pattern)
	if err != nil {
		logger.WarnContext(ctx, "recurrence rule unavailable", logging.ErrKey, err)
		return "", 0
	}
	occurrences, err := s.engine.Occurrences(pattern)
	if err != nil {
		logger.WarnContext(ctx, "meeting occurrences unavailable", logging.ErrKey, err)
		return rule, 0
	}
	if len(occurrences) == 0 {
		logger.WarnContext(ctx, "meeting pattern has no occurrences", "rrule", rule)
	}
	return rule, len(occurrences)
}

// ScheduleTerm schedules every approved section of a term that has no
// recording yet. Sections are processed one at a time and a failure is
// recorded without stopping the batch.
func (s *RecordingService) ScheduleTerm(ctx context.Context, termID int) (summary BatchSummary, err error) {
	if s == nil {
		err = fmt.Errorf("RecordingService is nil")
		return
	}

	summary.TermID = termID
	logger := s.loggerWith(ctx, "ScheduleTerm", "term_id", termID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule term", logging.ErrKey, err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "term scheduled",
			"sections", summary.Sections,
			"scheduled", summary.Scheduled,
			"rejected", summary.Rejected,
			"failed", summary.Failed,
		)
	}()

	if err = validateTermID(termID); err != nil {
		return
	}
	if s.deps.Approvals == nil || s.deps.Courses == nil {
		err = fmt.Errorf("batch collaborators not configured")
		return
	}

	var sectionIDs []int
	sectionIDs, err = s.deps.Approvals.ListUnscheduledSections(ctx, termID)
	if err != nil {
		err = storeError("list unscheduled sections", err)
		return
	}
	summary.Sections = len(sectionIDs)

	for _, sectionID := range sectionIDs {
		if err = ctx.Err(); err != nil {
			return
		}

		outcome, sectionErr := s.scheduleSection(ctx, termID, sectionID)
		switch {
		case sectionErr != nil:
			summary.Failed++
			summary.Failures = append(summary.Failures, SectionFailure{
				SectionID: sectionID,
				Kind:      ErrorKind(sectionErr),
				Error:     sectionErr.Error(),
			})
		case outcome.Status == OutcomeRejected:
			summary.Rejected++
		default:
			summary.Scheduled++
		}
	}
	return
}

func (s *RecordingService) scheduleSection(ctx context.Context, termID, sectionID int) (ScheduleOutcome, error) {
	approvals, err := s.deps.Approvals.ListApprovals(ctx, termID, sectionID)
	if err != nil {
		return ScheduleOutcome{}, storeError("list approvals", err)
	}
	course, err := s.deps.Courses.GetCourse(ctx, termID, sectionID)
	if err != nil {
		return ScheduleOutcome{}, storeError("get course", err)
	}
	return s.ScheduleRecordings(ctx, approvals, course)
}

// ListScheduled returns the recordings booked for a term.
func (s *RecordingService) ListScheduled(ctx context.Context, termID int) ([]ScheduledRecording, error) {
	if err := validateTermID(termID); err != nil {
		return nil, err
	}
	if s.deps.Scheduled == nil {
		return nil, nil
	}
	recordings, err := s.deps.Scheduled.ListScheduledRecordings(ctx, termID)
	if err != nil {
		return nil, storeError("list scheduled recordings", err)
	}
	return recordings, nil
}
