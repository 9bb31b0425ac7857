// Command scheduler books lecture recordings for approved course sections.
//
// Usage:
//
//	scheduler serve
//	scheduler load-sections -term 2238 -file roster.csv
//	scheduler refresh-rooms
//	scheduler refresh-cross-listings -terms 2238,2242
//	scheduler schedule-recordings -term 2238
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/example/capture-scheduler/internal/application"
	"github.com/example/capture-scheduler/internal/capture"
	"github.com/example/capture-scheduler/internal/config"
	httptransport "github.com/example/capture-scheduler/internal/http"
	"github.com/example/capture-scheduler/internal/logging"
	"github.com/example/capture-scheduler/internal/notify"
	"github.com/example/capture-scheduler/internal/persistence/sqlite"
	"github.com/example/capture-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/capture-scheduler/internal/recurrence"
)

const shutdownTimeout = 10 * time.Second

const usage = `usage: scheduler <command> [flags]

commands:
  serve                   run the operations API
  load-sections           import a roster CSV (-term, -file)
  refresh-rooms           create rooms and map capture resources
  refresh-cross-listings  recompute cross-listings (-terms)
  schedule-recordings     book recordings for approved sections (-term)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// command is a parsed subcommand ready to run against the wired application.
type command struct {
	name  string
	terms []int
	file  string
}

func parseCommand(args []string, stderr io.Writer) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}
	cmd := command{name: args[0]}
	fs := flag.NewFlagSet(cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var term int
	var terms string
	switch cmd.name {
	case "serve", "refresh-rooms":
	case "load-sections":
		fs.IntVar(&term, "term", 0, "term id of the roster")
		fs.StringVar(&cmd.file, "file", "", "roster CSV file")
	case "schedule-recordings":
		fs.IntVar(&term, "term", 0, "term id to schedule (defaults to CAPTURE_CURRENT_TERM)")
	case "refresh-cross-listings":
		fs.StringVar(&terms, "terms", "", "comma separated term ids (defaults to CAPTURE_CURRENT_TERM)")
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return command{}, err
	}
	if fs.NArg() > 0 {
		return command{}, fmt.Errorf("%s: unexpected arguments: %s", cmd.name, strings.Join(fs.Args(), " "))
	}

	if term != 0 {
		cmd.terms = []int{term}
	}
	if terms != "" {
		parsed, err := parseTermList(terms)
		if err != nil {
			return command{}, err
		}
		cmd.terms = parsed
	}
	if cmd.name == "load-sections" && (cmd.file == "" || len(cmd.terms) == 0) {
		return command{}, errors.New("load-sections: -term and -file are required")
	}
	return cmd, nil
}

// parseTermList reads "2238, 2242" into sorted, distinct term ids.
func parseTermList(value string) ([]int, error) {
	var terms []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid term id %q", part)
		}
		terms = append(terms, id)
	}
	if len(terms) == 0 {
		return nil, errors.New("no term ids given")
	}
	slices.Sort(terms)
	return slices.Compact(terms), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd, err := parseCommand(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "%v\n\n", err)
		}
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logging.NewLogger(stderr, "info", false).Error("failed to load configuration", logging.ErrKey, err)
		return 1
	}
	logger := logging.NewLogger(stdout, cfg.LogLevel, cfg.LogAddSource)
	slog.SetDefault(logger)

	if len(cmd.terms) == 0 && cfg.CurrentTermID > 0 {
		cmd.terms = []int{cfg.CurrentTermID}
	}

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", logging.ErrKey, err)
		return 1
	}
	defer app.Close()

	if err := app.dispatch(ctx, cmd); err != nil {
		logger.Error("command failed", "command", cmd.name, logging.ErrKey, err, "error_kind", application.ErrorKind(err))
		return 1
	}
	return 0
}

// app holds the wired services of one process.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	storage *sqlite.Storage
	nc      *nats.Conn

	crossListings *application.CrossListingService
	rooms         *application.RoomService
	recordings    *application.RecordingService
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.OpenWithConfig(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, storage: storage}

	var notifier application.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.NATSURL != "" {
		a.nc, err = connectNATS(ctx, cfg.Notify.NATSURL, logger)
		if err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		encoding, err := notify.ParseEncoding(cfg.Notify.Encoding)
		if err != nil {
			a.Close()
			return nil, err
		}
		notifier = notify.NewNATSNotifier(a.nc, cfg.Notify.Subject, encoding)
	}

	captureClient := newCaptureAdapter(capture.NewClient(capture.Config{
		BaseURL:      cfg.Capture.BaseURL,
		TokenURL:     cfg.Capture.TokenURL,
		ClientID:     cfg.Capture.ClientID,
		ClientSecret: cfg.Capture.ClientSecret,
		Timeout:      cfg.Capture.Timeout,
		Timezone:     cfg.Timezone,
	}))
	sections := newSectionLookupAdapter(storage.Sections)
	rooms := newRoomDirectoryAdapter(storage.Rooms)
	now := time.Now

	a.crossListings = application.NewCrossListingServiceWithLogger(
		newRosterAdapter(storage.Sections),
		newCrossListingStoreAdapter(storage.CrossListings),
		cfg.CrossListingChunkSize,
		uuid.NewString,
		now,
		logger,
	)
	a.rooms = application.NewRoomServiceWithLogger(rooms, sections, captureClient, now, logger)
	a.recordings = application.NewRecordingServiceWithLogger(
		application.RecordingDependencies{
			Rooms:        rooms,
			MeetingTimes: sections,
			Booker:       captureClient,
			Scheduled:    newScheduledStoreAdapter(storage.Scheduled),
			Notifier:     notifier,
			Approvals:    newApprovalSourceAdapter(storage.Approvals),
			Courses:      sections,
		},
		application.RecordingConfig{
			StartOffsetMinutes: cfg.StartOffsetMinutes,
			EndOffsetMinutes:   cfg.EndOffsetMinutes,
		},
		recurrence.NewEngine(cfg.Location),
		uuid.NewString,
		now,
		logger,
	)
	return a, nil
}

func connectNATS(ctx context.Context, url string, logger *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("capture-scheduler"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DrainTimeout(shutdownTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil && ctx.Err() == nil {
				logger.Warn("NATS disconnected", logging.ErrKey, err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, s *nats.Subscription, err error) {
			if s != nil {
				logger.With(logging.ErrKey, err, "subject", s.Subject).Error("async NATS error")
				return
			}
			logger.With(logging.ErrKey, err).Error("async NATS error outside subscription")
		}),
	)
}

// Close drains NATS and closes the database.
func (a *app) Close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.logger.Error("failed to drain NATS connection", logging.ErrKey, err)
		}
	}
	if err := a.storage.Close(); err != nil {
		a.logger.Error("failed to close storage", logging.ErrKey, err)
	}
}

func (a *app) dispatch(ctx context.Context, cmd command) error {
	switch cmd.name {
	case "serve":
		return a.serve(ctx)
	case "load-sections":
		return a.loadSections(ctx, cmd.terms[0], cmd.file)
	case "refresh-rooms":
		summary, err := a.rooms.RefreshRooms(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("refresh-rooms finished", "created", summary.CreatedLocations, "mapped", summary.Mapped)
		return nil
	case "refresh-cross-listings":
		if len(cmd.terms) == 0 {
			return errors.New("refresh-cross-listings: -terms is required when CAPTURE_CURRENT_TERM is unset")
		}
		var errs []error
		for termID, err := range a.crossListings.RefreshTerms(ctx, cmd.terms, a.cfg.TermWorkers) {
			if err != nil {
				errs = append(errs, fmt.Errorf("term %d: %w", termID, err))
			}
		}
		return errors.Join(errs...)
	case "schedule-recordings":
		if len(cmd.terms) == 0 {
			return errors.New("schedule-recordings: -term is required when CAPTURE_CURRENT_TERM is unset")
		}
		summary, err := a.recordings.ScheduleTerm(ctx, cmd.terms[0])
		if err != nil {
			return err
		}
		a.logger.Info("schedule-recordings finished",
			"term_id", summary.TermID,
			"scheduled", summary.Scheduled,
			"rejected", summary.Rejected,
			"failed", summary.Failed,
		)
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd.name)
}

func (a *app) loadSections(ctx context.Context, termID int, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sections, err := readRoster(f, termID)
	if err != nil {
		return err
	}
	if err := a.storage.Sections.ImportSections(ctx, termID, sections); err != nil {
		return fmt.Errorf("import sections: %w", err)
	}
	a.logger.Info("roster loaded", "term_id", termID, "rows", len(sections), "file", path)
	return nil
}

func (a *app) handler() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Health: httptransport.NewHealthHandler(a.storage, a.logger),
		Jobs:   httptransport.NewJobHandler(a.rooms, a.crossListings, a.recordings, a.logger),
		Terms:  httptransport.NewTermHandler(a.crossListings, a.recordings, a.logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(a.logger),
			httptransport.Recoverer(a.logger),
		},
	})
}

func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", logging.ErrKey, err)
		}
	}()

	a.logger.Info("capture scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.logger.Info("capture scheduler API stopped")
	return nil
}
