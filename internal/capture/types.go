package capture

// Resource is a capture device registered with the service. Its name matches
// the room location it is installed in.
type Resource struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ResourcesResponse is the body of GET /resources.
type ResourcesResponse struct {
	TotalCount int        `json:"total_count"`
	Objects    []Resource `json:"objects"`
}

// Instructor is attached to a recording series as co-owner.
type Instructor struct {
	UID   string `json:"uid" validate:"required"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Booking asks the capture service to record every meeting of a course.
// Times are the adjusted recording window in 24-hour "HH:MM".
type Booking struct {
	Label         string       `json:"label" validate:"required"`
	Instructors   []Instructor `json:"instructors" validate:"dive"`
	Days          string       `json:"days" validate:"required"`
	StartTime     string       `json:"start_time" validate:"required,len=5"`
	EndTime       string       `json:"end_time" validate:"required,len=5"`
	StartDate     string       `json:"start_date" validate:"required"`
	EndDate       string       `json:"end_date" validate:"required"`
	RRule         string       `json:"rrule,omitempty"`
	Timezone      string       `json:"timezone,omitempty"`
	PublishType   string       `json:"publish_type" validate:"required"`
	RecordingType string       `json:"recording_type" validate:"required"`
	ResourceID    int          `json:"resource_id" validate:"gt=0"`
	TermID        int          `json:"term_id" validate:"gt=0"`
	SectionID     int          `json:"section_id" validate:"gt=0"`
}

// ScheduleResponse is the body returned by POST /schedules.
type ScheduleResponse struct {
	SeriesID string `json:"series_id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
