package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/capture-scheduler/internal/application"
	"github.com/example/capture-scheduler/internal/capture"
	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/scheduler"
)

type rosterAdapter struct {
	sections persistence.SectionRepository
}

func newRosterAdapter(sections persistence.SectionRepository) *rosterAdapter {
	return &rosterAdapter{sections: sections}
}

func (a *rosterAdapter) FetchMeetingRows(ctx context.Context, termID int) ([]crosslisting.MeetingRow, error) {
	stored, err := a.sections.ListMeetingRows(ctx, termID)
	if err != nil {
		return nil, err
	}
	rows := make([]crosslisting.MeetingRow, 0, len(stored))
	for _, m := range stored {
		rows = append(rows, crosslisting.MeetingRow{
			SectionID:        m.SectionID,
			TermID:           m.TermID,
			MeetingDays:      m.MeetingDays,
			MeetingStartDate: m.MeetingStartDate,
			MeetingEndDate:   m.MeetingEndDate,
			MeetingStartTime: m.MeetingStartTime,
			MeetingEndTime:   m.MeetingEndTime,
			MeetingLocation:  m.MeetingLocation,
		})
	}
	return rows, nil
}

type crossListingStoreAdapter struct {
	repo persistence.CrossListingRepository
}

func newCrossListingStoreAdapter(repo persistence.CrossListingRepository) *crossListingStoreAdapter {
	return &crossListingStoreAdapter{repo: repo}
}

func (a *crossListingStoreAdapter) BeginCrossListingRefresh(ctx context.Context) (application.CrossListingUnitOfWork, error) {
	tx, err := a.repo.BeginCrossListings(ctx)
	if err != nil {
		return nil, err
	}
	return &crossListingUnitOfWork{tx: tx}, nil
}

func (a *crossListingStoreAdapter) LastRunDigest(ctx context.Context, termID int) (string, error) {
	run, err := a.repo.LastConsolidationRun(ctx, termID)
	if errors.Is(err, persistence.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return run.Digest, nil
}

func (a *crossListingStoreAdapter) ListCrossListings(ctx context.Context, termID int) ([]application.CrossListing, error) {
	stored, err := a.repo.ListCrossListings(ctx, termID)
	if err != nil {
		return nil, err
	}
	listings := make([]application.CrossListing, 0, len(stored))
	for _, l := range stored {
		listings = append(listings, application.CrossListing{
			TermID:                l.TermID,
			SectionID:             l.SectionID,
			CrossListedSectionIDs: append([]int(nil), l.CrossListedSectionIDs...),
		})
	}
	return listings, nil
}

type crossListingUnitOfWork struct {
	tx persistence.CrossListingTx
}

func (u *crossListingUnitOfWork) DeleteCrossListings(ctx context.Context, termID int) error {
	return u.tx.DeleteCrossListings(ctx, termID)
}

func (u *crossListingUnitOfWork) InsertCrossListings(ctx context.Context, termID int, groups []crosslisting.Group, chunkSize int) (int, error) {
	listings := make([]persistence.CrossListing, 0, len(groups))
	for _, g := range groups {
		if g.TermID != termID {
			return 0, fmt.Errorf("group of section %d belongs to term %d, not %d: %w", g.PrimarySectionID, g.TermID, termID, persistence.ErrConstraintViolation)
		}
		listings = append(listings, persistence.CrossListing{
			TermID:                g.TermID,
			SectionID:             g.PrimarySectionID,
			CrossListedSectionIDs: append([]int(nil), g.CrossListedSectionIDs...),
		})
	}
	return u.tx.InsertCrossListings(ctx, listings, chunkSize)
}

func (u *crossListingUnitOfWork) MarkSectionsDeleted(ctx context.Context, termID int, sectionIDs []int) error {
	return u.tx.MarkSectionsDeleted(ctx, termID, sectionIDs)
}

func (u *crossListingUnitOfWork) RecordRun(ctx context.Context, run application.ConsolidationRun) error {
	return u.tx.RecordRun(ctx, persistence.ConsolidationRun{
		ID:          run.ID,
		TermID:      run.TermID,
		Digest:      run.Digest,
		RowCount:    run.Rows,
		GroupCount:  run.Groups,
		MemberCount: run.Members,
		Batches:     run.Batches,
		CreatedAt:   run.CreatedAt,
	})
}

func (u *crossListingUnitOfWork) Commit() error   { return u.tx.Commit() }
func (u *crossListingUnitOfWork) Rollback() error { return u.tx.Rollback() }

type roomDirectoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomDirectoryAdapter(repo persistence.RoomRepository) *roomDirectoryAdapter {
	return &roomDirectoryAdapter{repo: repo}
}

func (a *roomDirectoryAdapter) GetRoom(ctx context.Context, id int) (application.Room, error) {
	room, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(room), nil
}

func (a *roomDirectoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	stored, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	rooms := make([]application.Room, 0, len(stored))
	for _, r := range stored {
		rooms = append(rooms, toApplicationRoom(r))
	}
	return rooms, nil
}

func (a *roomDirectoryAdapter) ListLocations(ctx context.Context) ([]string, error) {
	return a.repo.ListLocations(ctx)
}

func (a *roomDirectoryAdapter) CreateRoom(ctx context.Context, location string) (application.Room, error) {
	room, err := a.repo.CreateRoom(ctx, location)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(room), nil
}

func (a *roomDirectoryAdapter) UpdateCaptureResourceMappings(ctx context.Context, roomToResource map[int]int) error {
	return a.repo.UpdateKalturaResourceMappings(ctx, roomToResource)
}

type sectionLookupAdapter struct {
	sections persistence.SectionRepository
}

func newSectionLookupAdapter(sections persistence.SectionRepository) *sectionLookupAdapter {
	return &sectionLookupAdapter{sections: sections}
}

func (a *sectionLookupAdapter) GetMeetingTimes(ctx context.Context, termID, sectionID int) (application.MeetingTimes, error) {
	mt, err := a.sections.GetMeetingTimes(ctx, termID, sectionID)
	if err != nil {
		return application.MeetingTimes{}, err
	}
	return application.MeetingTimes{
		Days:      mt.Days,
		StartTime: mt.StartTime,
		EndTime:   mt.EndTime,
		StartDate: mt.StartDate,
		EndDate:   mt.EndDate,
	}, nil
}

func (a *sectionLookupAdapter) DistinctMeetingLocations(ctx context.Context) ([]string, error) {
	return a.sections.DistinctMeetingLocations(ctx)
}

// GetCourse folds the roster rows of a section, one per instructor, into a course.
func (a *sectionLookupAdapter) GetCourse(ctx context.Context, termID, sectionID int) (application.Course, error) {
	rows, err := a.sections.GetSection(ctx, termID, sectionID)
	if err != nil {
		return application.Course{}, err
	}
	first := rows[0]
	course := application.Course{
		TermID:    termID,
		SectionID: sectionID,
		Label:     strings.Join(strings.Fields(first.CourseName+" "+first.InstructionFormat+" "+first.SectionNum), " "),
	}
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		uid := strings.TrimSpace(row.InstructorUID)
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		course.Instructors = append(course.Instructors, application.Instructor{
			UID:   uid,
			Name:  row.InstructorName,
			Email: row.InstructorEmail,
		})
	}
	return course, nil
}

type approvalSourceAdapter struct {
	repo persistence.ApprovalRepository
}

func newApprovalSourceAdapter(repo persistence.ApprovalRepository) *approvalSourceAdapter {
	return &approvalSourceAdapter{repo: repo}
}

func (a *approvalSourceAdapter) ListUnscheduledSections(ctx context.Context, termID int) ([]int, error) {
	return a.repo.ListUnscheduledSections(ctx, termID)
}

func (a *approvalSourceAdapter) ListApprovals(ctx context.Context, termID, sectionID int) ([]scheduler.Approval, error) {
	stored, err := a.repo.ListApprovals(ctx, termID, sectionID)
	if err != nil {
		return nil, err
	}
	approvals := make([]scheduler.Approval, 0, len(stored))
	for _, s := range stored {
		approvals = append(approvals, scheduler.Approval{
			ApprovedByUID: s.ApprovedByUID,
			SectionID:     s.SectionID,
			TermID:        s.TermID,
			RoomID:        s.RoomID,
			RecordingType: s.RecordingType,
			PublishType:   s.PublishType,
			CreatedAt:     s.CreatedAt,
		})
	}
	return approvals, nil
}

type scheduledStoreAdapter struct {
	repo persistence.ScheduledRepository
}

func newScheduledStoreAdapter(repo persistence.ScheduledRepository) *scheduledStoreAdapter {
	return &scheduledStoreAdapter{repo: repo}
}

func (a *scheduledStoreAdapter) CreateScheduledRecording(ctx context.Context, rec application.ScheduledRecording) (application.ScheduledRecording, error) {
	stored, err := a.repo.CreateScheduled(ctx, toPersistenceScheduled(rec))
	if err != nil {
		return application.ScheduledRecording{}, err
	}
	return toApplicationScheduled(stored), nil
}

func (a *scheduledStoreAdapter) ListScheduledRecordings(ctx context.Context, termID int) ([]application.ScheduledRecording, error) {
	stored, err := a.repo.ListScheduled(ctx, termID)
	if err != nil {
		return nil, err
	}
	recs := make([]application.ScheduledRecording, 0, len(stored))
	for _, s := range stored {
		recs = append(recs, toApplicationScheduled(s))
	}
	return recs, nil
}

// captureAdapter exposes the capture client as the resource directory and booker.
type captureAdapter struct {
	client capture.API
}

func newCaptureAdapter(client capture.API) *captureAdapter {
	return &captureAdapter{client: client}
}

func (a *captureAdapter) ListResources(ctx context.Context) ([]application.CaptureResource, error) {
	resources, err := a.client.ListResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrCaptureService, err)
	}
	out := make([]application.CaptureResource, 0, len(resources))
	for _, r := range resources {
		out = append(out, application.CaptureResource{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (a *captureAdapter) ScheduleRecording(ctx context.Context, req application.BookingRequest) (string, error) {
	if req.Room.CaptureResourceID == nil {
		return "", fmt.Errorf("%w: room %d has no capture resource", application.ErrCaptureService, req.Room.ID)
	}
	instructors := make([]capture.Instructor, 0, len(req.Instructors))
	for _, i := range req.Instructors {
		instructors = append(instructors, capture.Instructor{UID: i.UID, Name: i.Name, Email: i.Email})
	}
	seriesID, err := a.client.ScheduleRecording(ctx, capture.Booking{
		Label:         req.CourseLabel,
		Instructors:   instructors,
		Days:          req.Days,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		RRule:         req.RRule,
		PublishType:   req.PublishType,
		RecordingType: req.RecordingType,
		ResourceID:    *req.Room.CaptureResourceID,
		TermID:        req.TermID,
		SectionID:     req.SectionID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", application.ErrCaptureService, err)
	}
	return seriesID, nil
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:                model.ID,
		Location:          model.Location,
		CaptureResourceID: cloneInt(model.KalturaResourceID),
	}
}

func toPersistenceScheduled(rec application.ScheduledRecording) persistence.Scheduled {
	scheduled := persistence.Scheduled{
		ID:               rec.ID,
		TermID:           rec.TermID,
		SectionID:        rec.SectionID,
		RoomID:           rec.RoomID,
		InstructorUIDs:   append([]string(nil), rec.InstructorUIDs...),
		MeetingDays:      rec.MeetingDays,
		MeetingStartTime: rec.MeetingStartTime,
		MeetingEndTime:   rec.MeetingEndTime,
		RecordingType:    rec.RecordingType,
		PublishType:      rec.PublishType,
		CreatedAt:        rec.CreatedAt,
	}
	if rec.SeriesID != "" {
		seriesID := rec.SeriesID
		scheduled.KalturaSeriesID = &seriesID
	}
	return scheduled
}

func toApplicationScheduled(model persistence.Scheduled) application.ScheduledRecording {
	rec := application.ScheduledRecording{
		ID:               model.ID,
		SectionID:        model.SectionID,
		TermID:           model.TermID,
		RoomID:           model.RoomID,
		InstructorUIDs:   append([]string(nil), model.InstructorUIDs...),
		MeetingDays:      model.MeetingDays,
		MeetingStartTime: model.MeetingStartTime,
		MeetingEndTime:   model.MeetingEndTime,
		RecordingType:    model.RecordingType,
		PublishType:      model.PublishType,
		CreatedAt:        model.CreatedAt,
	}
	if model.KalturaSeriesID != nil {
		rec.SeriesID = *model.KalturaSeriesID
	}
	return rec
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
