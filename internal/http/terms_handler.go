package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/capture-scheduler/internal/application"
)

type crossListingLister interface {
	ListCrossListings(ctx context.Context, termID int) ([]application.CrossListing, error)
}

type scheduledLister interface {
	ListScheduled(ctx context.Context, termID int) ([]application.ScheduledRecording, error)
}

// TermHandler serves the read-back endpoints of a term.
type TermHandler struct {
	crossListings crossListingLister
	scheduled     scheduledLister
	responder     responder
	logger        *slog.Logger
}

func NewTermHandler(crossListings crossListingLister, scheduled scheduledLister, logger *slog.Logger) *TermHandler {
	base := defaultLogger(logger)
	return &TermHandler{crossListings: crossListings, scheduled: scheduled, responder: newResponder(base), logger: base}
}

func (h *TermHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TermHandler", operation, attrs...)
}

func (h *TermHandler) CrossListings(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.crossListings == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	termID, err := parseTermID(r.Context())
	if err != nil {
		h.log(r.Context(), "CrossListings", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid term id in path", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTermID)
		return
	}

	listings, err := h.crossListings.ListCrossListings(r.Context(), termID)
	if err != nil {
		h.log(r.Context(), "CrossListings", "term_id", termID).ErrorContext(r.Context(), "listing cross-listings failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if listings == nil {
		listings = []application.CrossListing{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, crossListingsResponse{CrossListings: listings})
}

func (h *TermHandler) Scheduled(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.scheduled == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	termID, err := parseTermID(r.Context())
	if err != nil {
		h.log(r.Context(), "Scheduled", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid term id in path", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTermID)
		return
	}

	recordings, err := h.scheduled.ListScheduled(r.Context(), termID)
	if err != nil {
		h.log(r.Context(), "Scheduled", "term_id", termID).ErrorContext(r.Context(), "listing scheduled recordings failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if recordings == nil {
		recordings = []application.ScheduledRecording{}
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, scheduledResponse{Scheduled: recordings})
}

type crossListingsResponse struct {
	CrossListings []application.CrossListing `json:"cross_listings"`
}

type scheduledResponse struct {
	Scheduled []application.ScheduledRecording `json:"scheduled"`
}
