package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/capture-scheduler/internal/logging"
)

// RoomService keeps the room directory in step with the roster and the
// capture service's resource list.
type RoomService struct {
	rooms     RoomDirectory
	locations LocationSource
	resources ResourceDirectory
	now       func() time.Time
	logger    *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomDirectory, locations LocationSource, resources ResourceDirectory, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, locations, resources, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomDirectory, locations LocationSource, resources ResourceDirectory, now func() time.Time, logger *slog.Logger) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:     rooms,
		locations: locations,
		resources: resources,
		now:       now,
		logger:    defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// RefreshRooms creates a room for every roster location not yet known, then
// maps capture resources to rooms whose location equals the resource name.
// The mapping is replaced in one step and only when at least one match exists.
func (s *RoomService) RefreshRooms(ctx context.Context) (summary RoomRefreshSummary, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RefreshRooms")
	started := s.now()
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh rooms", logging.ErrKey, err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rooms refreshed",
			"roster_locations", summary.RosterLocations,
			"created", len(summary.CreatedLocations),
			"resources", summary.Resources,
			"mapped", summary.Mapped,
			"duration", s.now().Sub(started),
		)
	}()

	if s.rooms == nil || s.locations == nil || s.resources == nil {
		err = fmt.Errorf("room collaborators not configured")
		return
	}

	var roster []string
	roster, err = s.locations.DistinctMeetingLocations(ctx)
	if err != nil {
		err = storeError("list roster locations", err)
		return
	}
	summary.RosterLocations = len(roster)

	var known []string
	known, err = s.rooms.ListLocations(ctx)
	if err != nil {
		err = storeError("list room locations", err)
		return
	}

	summary.CreatedLocations, err = s.createMissing(ctx, roster, known)
	if err != nil {
		return
	}

	var resources []CaptureResource
	resources, err = s.resources.ListResources(ctx)
	if err != nil {
		if !errors.Is(err, ErrCaptureService) {
			err = fmt.Errorf("%w: %w", ErrCaptureService, err)
		}
		return
	}
	summary.Resources = len(resources)

	var rooms []Room
	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = storeError("list rooms", err)
		return
	}

	mappings := MatchResources(rooms, resources)
	summary.Mapped = len(mappings)
	if len(mappings) == 0 {
		logger.WarnContext(ctx, "no capture resources matched a room; mapping left unchanged")
		return
	}

	if err = s.rooms.UpdateCaptureResourceMappings(ctx, mappings); err != nil {
		err = storeError("update capture resource mappings", err)
		return
	}
	return
}

func (s *RoomService) createMissing(ctx context.Context, roster, known []string) ([]string, error) {
	existing := make(map[string]bool, len(known))
	for _, location := range known {
		existing[strings.TrimSpace(location)] = true
	}

	var created []string
	for _, location := range roster {
		location = strings.TrimSpace(location)
		if location == "" || existing[location] {
			continue
		}
		if _, err := s.rooms.CreateRoom(ctx, location); err != nil {
			return created, storeError(fmt.Sprintf("create room %q", location), err)
		}
		existing[location] = true
		created = append(created, location)
	}
	return created, nil
}

// MatchResources pairs rooms with the capture resource of the same name.
// When several resources share a name the one with the lowest ID wins, not
// the last one listed, so the result does not depend on the order the capture
// service returns resources in.
func MatchResources(rooms []Room, resources []CaptureResource) map[int]int {
	byName := make(map[string]int, len(resources))
	for _, resource := range resources {
		name := strings.TrimSpace(resource.Name)
		if current, ok := byName[name]; !ok || resource.ID < current {
			byName[name] = resource.ID
		}
	}

	mappings := make(map[int]int)
	for _, room := range rooms {
		if id, ok := byName[strings.TrimSpace(room.Location)]; ok {
			mappings[room.ID] = id
		}
	}
	return mappings
}

// ListRooms returns the room directory ordered by location.
func (s *RoomService) ListRooms(ctx context.Context) ([]Room, error) {
	if s == nil {
		return nil, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return nil, nil
	}
	raw, err := s.rooms.ListRooms(ctx)
	if err != nil {
		err = storeError("list rooms", err)
		s.loggerWith(ctx, "ListRooms").ErrorContext(ctx, "failed to list rooms", logging.ErrKey, err, "error_kind", ErrorKind(err))
		return nil, err
	}

	rooms := make([]Room, len(raw))
	copy(rooms, raw)
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].Location < rooms[j].Location
	})
	return rooms, nil
}
