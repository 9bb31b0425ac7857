package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/capture-scheduler/internal/recurrence"
)

func at(value string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGoverningApproval(t *testing.T) {
	t.Parallel()

	t.Run("latest created_at wins", func(t *testing.T) {
		t.Parallel()
		approvals := []Approval{
			{ApprovedByUID: "100", CreatedAt: at("2021-01-01T10:00")},
			{ApprovedByUID: "200", CreatedAt: at("2021-01-03T09:00")},
			{ApprovedByUID: "300", CreatedAt: at("2021-01-02T08:00")},
		}

		got, err := GoverningApproval(approvals)
		require.NoError(t, err)
		assert.Equal(t, "200", got.ApprovedByUID)
		assert.Equal(t, "100", approvals[0].ApprovedByUID, "input must not be reordered")
	})

	t.Run("ties go to the last in input order", func(t *testing.T) {
		t.Parallel()
		same := at("2021-01-03T09:00")
		approvals := []Approval{
			{ApprovedByUID: "a", CreatedAt: same},
			{ApprovedByUID: "b", CreatedAt: at("2021-01-01T09:00")},
			{ApprovedByUID: "c", CreatedAt: same},
		}

		got, err := GoverningApproval(approvals)
		require.NoError(t, err)
		assert.Equal(t, "c", got.ApprovedByUID)
	})

	t.Run("sub-second and zone differences are ordered chronologically", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)
		pacific := time.FixedZone("PST", -8*60*60)
		approvals := []Approval{
			{ApprovedByUID: "later", CreatedAt: base.Add(500 * time.Millisecond)},
			{ApprovedByUID: "earlier", CreatedAt: base},
			{ApprovedByUID: "latest", CreatedAt: base.Add(time.Second).In(pacific)},
		}

		sorted := SortApprovals(approvals)
		assert.Equal(t, []string{"earlier", "later", "latest"}, ApproverUIDs(sorted))
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		_, err := GoverningApproval(nil)
		assert.ErrorIs(t, err, ErrNoApprovals)
	})
}

func TestAdjustTime(t *testing.T) {
	t.Parallel()

	got, err := AdjustTime("08:05", -10)
	require.NoError(t, err)
	assert.Equal(t, recurrence.Clock{Hour: 7, Minute: 55}, got)

	got, err = AdjustTime("23:58", 5)
	require.NoError(t, err)
	assert.Equal(t, "00:03", got.String())

	_, err = AdjustTime("8.05", 5)
	assert.ErrorIs(t, err, recurrence.ErrInvalidClock)
}

func TestRecordingWindow(t *testing.T) {
	t.Parallel()

	window, err := RecordingWindow("10:00", "11:29", -5, 5)
	require.NoError(t, err)
	assert.Equal(t, "09:55", window.Start.String())
	assert.Equal(t, "11:34", window.End.String())

	_, err = RecordingWindow("10:00", "", -5, 5)
	assert.ErrorIs(t, err, recurrence.ErrInvalidClock)
}
