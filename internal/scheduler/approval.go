package scheduler

import (
	"errors"
	"sort"
	"time"
)

// ErrNoApprovals is returned when a governing approval is requested from an empty set.
var ErrNoApprovals = errors.New("scheduler: no approvals")

// isoLayout is a fixed-width ISO-8601 rendering, so string order is time order.
const isoLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Approval is an instructor's request to record a course section.
type Approval struct {
	ApprovedByUID string
	SectionID     int
	TermID        int
	RoomID        int
	RecordingType string
	PublishType   string
	CreatedAt     time.Time
}

// ISOCreatedAt returns the approval timestamp as sortable ISO-8601 text.
func (a Approval) ISOCreatedAt() string {
	return a.CreatedAt.UTC().Format(isoLayout)
}

// SortApprovals returns a copy of approvals stably ordered by creation time.
func SortApprovals(approvals []Approval) []Approval {
	sorted := make([]Approval, len(approvals))
	copy(sorted, approvals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ISOCreatedAt() < sorted[j].ISOCreatedAt()
	})
	return sorted
}

// GoverningApproval picks the most recently created approval. When several
// share the latest timestamp the last of them in input order wins.
func GoverningApproval(approvals []Approval) (Approval, error) {
	if len(approvals) == 0 {
		return Approval{}, ErrNoApprovals
	}
	sorted := SortApprovals(approvals)
	return sorted[len(sorted)-1], nil
}

// ApproverUIDs lists who approved, in input order.
func ApproverUIDs(approvals []Approval) []string {
	uids := make([]string, 0, len(approvals))
	for _, a := range approvals {
		uids = append(uids, a.ApprovedByUID)
	}
	return uids
}
