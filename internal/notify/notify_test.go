package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/capture-scheduler/internal/application"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockPublisher) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func testCourse() application.Course {
	return application.Course{
		TermID:    2238,
		SectionID: 31204,
		Label:     "HISTORY 7A LEC 001",
		Instructors: []application.Instructor{
			{UID: "1001", Name: "Ada Lovelace", Email: "ada@example.edu"},
			{UID: "1002"},
		},
	}
}

func testScheduled() application.ScheduledRecording {
	return application.ScheduledRecording{
		ID:               "rec-1",
		SectionID:        31204,
		TermID:           2238,
		RoomID:           1,
		InstructorUIDs:   []string{"1001", "1002"},
		MeetingDays:      "MOWE",
		MeetingStartTime: "10:00",
		MeetingEndTime:   "11:29",
		RecordingType:    "presenter_presentation_audio",
		PublishType:      "kaltura_media_gallery",
		SeriesID:         "1_abcd",
		CreatedAt:        time.Date(2023, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNATSNotifier_Publish(t *testing.T) {
	for _, encoding := range []Encoding{EncodingJSON, EncodingMsgpack} {
		encoding := encoding
		t.Run(string(encoding), func(t *testing.T) {
			conn := new(MockPublisher)
			conn.On("IsConnected").Return(true)
			conn.On("Publish", "capture.test", mock.AnythingOfType("[]uint8")).Return(nil).Once()

			notifier := NewNATSNotifier(conn, "capture.test", encoding)
			require.NoError(t, notifier.NotifyRecordingsScheduled(context.Background(), testCourse(), testScheduled()))
			conn.AssertExpectations(t)

			data := conn.Calls[1].Arguments.Get(1).([]byte)
			event, err := DecodeEvent(data, encoding)
			require.NoError(t, err)
			assert.Equal(t, NewRecordingsScheduledEvent(testCourse(), testScheduled()), event)
			assert.Equal(t, "1_abcd", event.SeriesID)
			assert.Len(t, event.Instructors, 2)
		})
	}
}

func TestNATSNotifier_Errors(t *testing.T) {
	t.Run("disconnected", func(t *testing.T) {
		conn := new(MockPublisher)
		conn.On("IsConnected").Return(false)

		err := NewNATSNotifier(conn, "", "").NotifyRecordingsScheduled(context.Background(), testCourse(), testScheduled())
		assert.ErrorIs(t, err, ErrNotConnected)
		conn.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("publish failure", func(t *testing.T) {
		conn := new(MockPublisher)
		conn.On("IsConnected").Return(true)
		conn.On("Publish", DefaultSubject, mock.Anything).Return(errors.New("publish failed"))

		err := NewNATSNotifier(conn, "", "").NotifyRecordingsScheduled(context.Background(), testCourse(), testScheduled())
		assert.EqualError(t, err, "publish failed")
	})

	t.Run("nil connection", func(t *testing.T) {
		err := NewNATSNotifier(nil, "", "").NotifyRecordingsScheduled(context.Background(), testCourse(), testScheduled())
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    Encoding
		wantErr bool
	}{
		{"", EncodingJSON, false},
		{"json", EncodingJSON, false},
		{" MsgPack ", EncodingMsgpack, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEncoding(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, notifier.NotifyRecordingsScheduled(context.Background(), testCourse(), testScheduled()))
	assert.Contains(t, buf.String(), `"course":"HISTORY 7A LEC 001"`)
	assert.Contains(t, buf.String(), `"instructor_uids":["1001","1002"]`)
}
