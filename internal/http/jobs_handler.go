package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/capture-scheduler/internal/application"
)

type roomRefresher interface {
	RefreshRooms(ctx context.Context) (application.RoomRefreshSummary, error)
}

type crossListingRefresher interface {
	RefreshCrossListings(ctx context.Context, termID int) (application.CrossListingSummary, error)
}

type recordingScheduler interface {
	ScheduleTerm(ctx context.Context, termID int) (application.BatchSummary, error)
}

// JobHandler triggers the batch jobs on demand.
type JobHandler struct {
	rooms         roomRefresher
	crossListings crossListingRefresher
	recordings    recordingScheduler
	responder     responder
	logger        *slog.Logger
}

func NewJobHandler(rooms roomRefresher, crossListings crossListingRefresher, recordings recordingScheduler, logger *slog.Logger) *JobHandler {
	base := defaultLogger(logger)
	return &JobHandler{
		rooms:         rooms,
		crossListings: crossListings,
		recordings:    recordings,
		responder:     newResponder(base),
		logger:        base,
	}
}

func (h *JobHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "JobHandler", operation, attrs...)
}

func (h *JobHandler) RefreshRooms(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.rooms == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "RefreshRooms")
	summary, err := h.rooms.RefreshRooms(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "room refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rooms refreshed", "mapped", summary.Mapped, "created", len(summary.CreatedLocations))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summary)
}

func (h *JobHandler) RefreshCrossListings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.crossListings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	termID, ok := h.termID(w, r, "RefreshCrossListings")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "RefreshCrossListings", "term_id", termID)
	summary, err := h.crossListings.RefreshCrossListings(r.Context(), termID)
	if err != nil {
		logger.ErrorContext(r.Context(), "cross-listing refresh failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "cross-listings refreshed", "run_id", summary.RunID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summary)
}

func (h *JobHandler) ScheduleRecordings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.recordings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	termID, ok := h.termID(w, r, "ScheduleRecordings")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "ScheduleRecordings", "term_id", termID)
	summary, err := h.recordings.ScheduleTerm(r.Context(), termID)
	if err != nil {
		logger.ErrorContext(r.Context(), "recording batch failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "recording batch finished",
		"scheduled", summary.Scheduled,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
	)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, summary)
}

func (h *JobHandler) termID(w http.ResponseWriter, r *http.Request, operation string) (int, bool) {
	termID, err := parseTermID(r.Context())
	if err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid term id in path", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTermID)
		return 0, false
	}
	return termID, true
}

// parseTermID reads the path term id. Range checks are left to the services.
func parseTermID(ctx context.Context) (int, error) {
	raw, ok := TermIDFromContext(ctx)
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, errInvalidTermID
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}
