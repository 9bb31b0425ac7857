package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Health     *HealthHandler
	Jobs       *JobHandler
	Terms      *TermHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Health.Check(w, r)
		})
	}

	if cfg.Jobs != nil {
		mux.HandleFunc("/jobs/rooms/refresh", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Jobs.RefreshRooms(w, r)
		})
		mux.HandleFunc("/jobs/cross-listings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/jobs/cross-listings/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Jobs.RefreshCrossListings(w, r.WithContext(ContextWithTermID(r.Context(), id)))
		})
		mux.HandleFunc("/jobs/recordings/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/jobs/recordings/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Jobs.ScheduleRecordings(w, r.WithContext(ContextWithTermID(r.Context(), id)))
		})
	}

	if cfg.Terms != nil {
		mux.HandleFunc("/terms/", func(w http.ResponseWriter, r *http.Request) {
			id, resource, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/terms/"), "/")
			if !ok || id == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			r = r.WithContext(ContextWithTermID(r.Context(), id))
			switch resource {
			case "cross-listings":
				cfg.Terms.CrossListings(w, r)
			case "scheduled":
				cfg.Terms.Scheduled(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
