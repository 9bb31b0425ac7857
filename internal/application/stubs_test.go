package application

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/example/capture-scheduler/internal/crosslisting"
	"github.com/example/capture-scheduler/internal/persistence"
	"github.com/example/capture-scheduler/internal/scheduler"
)

const testTerm = 2238

func fixedNow() time.Time {
	return time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

type rosterStub struct {
	rows  []crosslisting.MeetingRow
	err   error
	calls int
}

func (r *rosterStub) FetchMeetingRows(ctx context.Context, termID int) ([]crosslisting.MeetingRow, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var rows []crosslisting.MeetingRow
	for _, row := range r.rows {
		if row.TermID == termID {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// uowStub records the steps of a cross-listing refresh. failAt names the
// step that should fail.
type uowStub struct {
	failAt string

	steps      []string
	deleted    int
	inserted   []crosslisting.Group
	chunkSize  int
	marked     []int
	run        ConsolidationRun
	committed  bool
	rolledBack bool
}

func (u *uowStub) step(name string) error {
	u.steps = append(u.steps, name)
	if u.failAt == name {
		return fmt.Errorf("%s failed", name)
	}
	return nil
}

func (u *uowStub) DeleteCrossListings(ctx context.Context, termID int) error {
	u.deleted = termID
	return u.step("delete")
}

func (u *uowStub) InsertCrossListings(ctx context.Context, termID int, groups []crosslisting.Group, chunkSize int) (int, error) {
	u.inserted = append([]crosslisting.Group(nil), groups...)
	u.chunkSize = chunkSize
	if err := u.step("insert"); err != nil {
		return 0, err
	}
	return len(crosslisting.Chunk(groups, chunkSize)), nil
}

func (u *uowStub) MarkSectionsDeleted(ctx context.Context, termID int, sectionIDs []int) error {
	u.marked = append([]int(nil), sectionIDs...)
	return u.step("mark")
}

func (u *uowStub) RecordRun(ctx context.Context, run ConsolidationRun) error {
	u.run = run
	return u.step("record")
}

func (u *uowStub) Commit() error {
	if err := u.step("commit"); err != nil {
		return err
	}
	u.committed = true
	return nil
}

func (u *uowStub) Rollback() error {
	if !u.committed {
		u.rolledBack = true
	}
	return nil
}

type crossListingStoreStub struct {
	uows     []*uowStub
	failAt   string
	beginErr error

	digest    string
	digestErr error

	listings []CrossListing
	listErr  error
}

func (s *crossListingStoreStub) BeginCrossListingRefresh(ctx context.Context) (CrossListingUnitOfWork, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	u := &uowStub{failAt: s.failAt}
	s.uows = append(s.uows, u)
	return u, nil
}

func (s *crossListingStoreStub) LastRunDigest(ctx context.Context, termID int) (string, error) {
	return s.digest, s.digestErr
}

func (s *crossListingStoreStub) ListCrossListings(ctx context.Context, termID int) ([]CrossListing, error) {
	return s.listings, s.listErr
}

type roomDirectoryStub struct {
	rooms     map[int]Room
	nextID    int
	getErr    error
	createErr error
	updateErr error

	created  []string
	mappings map[int]int
	updates  int
}

func newRoomDirectory(rooms ...Room) *roomDirectoryStub {
	d := &roomDirectoryStub{rooms: map[int]Room{}}
	for _, r := range rooms {
		d.rooms[r.ID] = r
		if r.ID > d.nextID {
			d.nextID = r.ID
		}
	}
	return d
}

func (d *roomDirectoryStub) GetRoom(ctx context.Context, id int) (Room, error) {
	if d.getErr != nil {
		return Room{}, d.getErr
	}
	room, ok := d.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (d *roomDirectoryStub) ListRooms(ctx context.Context) ([]Room, error) {
	rooms := make([]Room, 0, len(d.rooms))
	for _, r := range d.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

func (d *roomDirectoryStub) ListLocations(ctx context.Context) ([]string, error) {
	rooms, _ := d.ListRooms(ctx)
	locations := make([]string, 0, len(rooms))
	for _, r := range rooms {
		locations = append(locations, r.Location)
	}
	return locations, nil
}

func (d *roomDirectoryStub) CreateRoom(ctx context.Context, location string) (Room, error) {
	if d.createErr != nil {
		return Room{}, d.createErr
	}
	d.nextID++
	room := Room{ID: d.nextID, Location: location}
	d.rooms[room.ID] = room
	d.created = append(d.created, location)
	return room, nil
}

func (d *roomDirectoryStub) UpdateCaptureResourceMappings(ctx context.Context, roomToResource map[int]int) error {
	d.updates++
	if d.updateErr != nil {
		return d.updateErr
	}
	d.mappings = roomToResource
	for id, room := range d.rooms {
		room.CaptureResourceID = nil
		if resourceID, ok := roomToResource[id]; ok {
			rid := resourceID
			room.CaptureResourceID = &rid
		}
		d.rooms[id] = room
	}
	return nil
}

type locationSourceStub struct {
	locations []string
	err       error
}

func (l *locationSourceStub) DistinctMeetingLocations(ctx context.Context) ([]string, error) {
	return l.locations, l.err
}

type resourceDirectoryStub struct {
	resources []CaptureResource
	err       error
}

func (r *resourceDirectoryStub) ListResources(ctx context.Context) ([]CaptureResource, error) {
	return r.resources, r.err
}

type meetingLookupStub struct {
	meetings map[int]MeetingTimes
}

func (m *meetingLookupStub) GetMeetingTimes(ctx context.Context, termID, sectionID int) (MeetingTimes, error) {
	meeting, ok := m.meetings[sectionID]
	if !ok {
		return MeetingTimes{}, persistence.ErrNotFound
	}
	return meeting, nil
}

type bookerStub struct {
	seriesID string
	err      error
	requests []BookingRequest
}

func (b *bookerStub) ScheduleRecording(ctx context.Context, req BookingRequest) (string, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return "", b.err
	}
	return b.seriesID, nil
}

type scheduledStoreStub struct {
	err     error
	created []ScheduledRecording
}

func (s *scheduledStoreStub) CreateScheduledRecording(ctx context.Context, rec ScheduledRecording) (ScheduledRecording, error) {
	if s.err != nil {
		return ScheduledRecording{}, s.err
	}
	s.created = append(s.created, rec)
	return rec, nil
}

func (s *scheduledStoreStub) ListScheduledRecordings(ctx context.Context, termID int) ([]ScheduledRecording, error) {
	var out []ScheduledRecording
	for _, rec := range s.created {
		if rec.TermID == termID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type notifierMock struct {
	mock.Mock
}

func (n *notifierMock) NotifyRecordingsScheduled(ctx context.Context, course Course, scheduled ScheduledRecording) error {
	args := n.Called(ctx, course, scheduled)
	return args.Error(0)
}

type approvalSourceStub struct {
	unscheduled []int
	listErr     error
	approvals   map[int][]scheduler.Approval
}

func (a *approvalSourceStub) ListUnscheduledSections(ctx context.Context, termID int) ([]int, error) {
	return a.unscheduled, a.listErr
}

func (a *approvalSourceStub) ListApprovals(ctx context.Context, termID, sectionID int) ([]scheduler.Approval, error) {
	return a.approvals[sectionID], nil
}

type courseSourceStub struct {
	courses map[int]Course
}

func (c *courseSourceStub) GetCourse(ctx context.Context, termID, sectionID int) (Course, error) {
	course, ok := c.courses[sectionID]
	if !ok {
		return Course{}, persistence.ErrNotFound
	}
	return course, nil
}
