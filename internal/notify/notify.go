// Package notify tells instructors that their lecture recordings were booked.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/capture-scheduler/internal/application"
	"github.com/example/capture-scheduler/internal/logging"
)

// DefaultSubject is where scheduling events are published.
const DefaultSubject = "capture.recordings.scheduled"

// Encoding selects the wire format of published events.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ErrNotConnected is returned when the NATS connection is down.
var ErrNotConnected = errors.New("notify: nats connection is not available")

// Publisher is the part of a NATS connection the notifier needs.
type Publisher interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// InstructorEvent identifies one recipient of the notification.
type InstructorEvent struct {
	UID   string `json:"uid" msgpack:"uid"`
	Name  string `json:"name,omitempty" msgpack:"name,omitempty"`
	Email string `json:"email,omitempty" msgpack:"email,omitempty"`
}

// RecordingsScheduledEvent is published once per booked course.
type RecordingsScheduledEvent struct {
	TermID           int               `json:"term_id" msgpack:"term_id"`
	SectionID        int               `json:"section_id" msgpack:"section_id"`
	CourseLabel      string            `json:"course_label" msgpack:"course_label"`
	Instructors      []InstructorEvent `json:"instructors" msgpack:"instructors"`
	MeetingDays      string            `json:"meeting_days" msgpack:"meeting_days"`
	MeetingStartTime string            `json:"meeting_start_time" msgpack:"meeting_start_time"`
	MeetingEndTime   string            `json:"meeting_end_time" msgpack:"meeting_end_time"`
	RecordingType    string            `json:"recording_type" msgpack:"recording_type"`
	PublishType      string            `json:"publish_type" msgpack:"publish_type"`
	SeriesID         string            `json:"series_id,omitempty" msgpack:"series_id,omitempty"`
	ScheduledAt      time.Time         `json:"scheduled_at" msgpack:"scheduled_at"`
}

// NewRecordingsScheduledEvent builds the event for a stored recording.
func NewRecordingsScheduledEvent(course application.Course, scheduled application.ScheduledRecording) RecordingsScheduledEvent {
	instructors := make([]InstructorEvent, 0, len(course.Instructors))
	for _, i := range course.Instructors {
		instructors = append(instructors, InstructorEvent{UID: i.UID, Name: i.Name, Email: i.Email})
	}
	return RecordingsScheduledEvent{
		TermID:           scheduled.TermID,
		SectionID:        scheduled.SectionID,
		CourseLabel:      course.Label,
		Instructors:      instructors,
		MeetingDays:      scheduled.MeetingDays,
		MeetingStartTime: scheduled.MeetingStartTime,
		MeetingEndTime:   scheduled.MeetingEndTime,
		RecordingType:    scheduled.RecordingType,
		PublishType:      scheduled.PublishType,
		SeriesID:         scheduled.SeriesID,
		ScheduledAt:      scheduled.CreatedAt.UTC(),
	}
}

// ParseEncoding accepts "json" or "msgpack", case-insensitively.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(value))) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("notify: unknown encoding %q", value)
	}
}

// Encode renders the event in the given format.
func (e RecordingsScheduledEvent) Encode(encoding Encoding) ([]byte, error) {
	switch encoding {
	case EncodingJSON, "":
		return json.Marshal(e)
	case EncodingMsgpack:
		return msgpack.Marshal(e)
	default:
		return nil, fmt.Errorf("notify: unknown encoding %q", encoding)
	}
}

// DecodeEvent parses an event published with the given encoding.
func DecodeEvent(data []byte, encoding Encoding) (RecordingsScheduledEvent, error) {
	var event RecordingsScheduledEvent
	var err error
	switch encoding {
	case EncodingJSON, "":
		err = json.Unmarshal(data, &event)
	case EncodingMsgpack:
		err = msgpack.Unmarshal(data, &event)
	default:
		err = fmt.Errorf("notify: unknown encoding %q", encoding)
	}
	event.ScheduledAt = event.ScheduledAt.UTC()
	return event, err
}

// NATSNotifier publishes scheduling events on a NATS subject.
type NATSNotifier struct {
	conn     Publisher
	subject  string
	encoding Encoding
}

var _ application.Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier creates a notifier. An empty subject uses DefaultSubject.
func NewNATSNotifier(conn Publisher, subject string, encoding Encoding) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	if encoding == "" {
		encoding = EncodingJSON
	}
	return &NATSNotifier{conn: conn, subject: subject, encoding: encoding}
}

// NotifyRecordingsScheduled publishes the event for one booked course.
func (n *NATSNotifier) NotifyRecordingsScheduled(ctx context.Context, course application.Course, scheduled application.ScheduledRecording) error {
	if n.conn == nil || !n.conn.IsConnected() {
		slog.WarnContext(ctx, "skipping notification", logging.ErrKey, ErrNotConnected, "subject", n.subject)
		return ErrNotConnected
	}

	data, err := NewRecordingsScheduledEvent(course, scheduled).Encode(n.encoding)
	if err != nil {
		slog.ErrorContext(ctx, "error encoding notification", logging.ErrKey, err, "encoding", n.encoding)
		return err
	}

	if err := n.conn.Publish(n.subject, data); err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", n.subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", n.subject, "encoding", n.encoding, "bytes", len(data))
	return nil
}

// LogNotifier records notifications in the log instead of sending them.
type LogNotifier struct {
	logger *slog.Logger
}

var _ application.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a log-only notifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// NotifyRecordingsScheduled logs the event that would have been published.
func (n *LogNotifier) NotifyRecordingsScheduled(ctx context.Context, course application.Course, scheduled application.ScheduledRecording) error {
	event := NewRecordingsScheduledEvent(course, scheduled)
	uids := make([]string, 0, len(event.Instructors))
	for _, i := range event.Instructors {
		uids = append(uids, i.UID)
	}
	n.logger.InfoContext(ctx, "recordings scheduled notification",
		"term_id", event.TermID,
		"section_id", event.SectionID,
		"course", event.CourseLabel,
		"instructor_uids", uids,
		"series_id", event.SeriesID,
	)
	return nil
}
