package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/capture-scheduler/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateRoom inserts a room for location and returns it with its new ID.
func (r *RoomRepository) CreateRoom(ctx context.Context, location string) (persistence.Room, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return persistence.Room{}, persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO rooms (location, created_at, updated_at)
		VALUES (?, ?, ?)
	`
	result, err := r.helper.Exec(ctx, query, location, formatTime(now), formatTime(now))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return persistence.Room{}, fmt.Errorf("failed to read room id: %w", err)
	}

	return persistence.Room{
		ID:        int(id),
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetRoom retrieves a room by ID from the database
func (r *RoomRepository) GetRoom(ctx context.Context, id int) (persistence.Room, error) {
	if id <= 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, location, kaltura_resource_id, created_at, updated_at
		FROM rooms
		WHERE id = ?
	`
	room, err := scanRoom(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by location
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	query := `
		SELECT id, location, kaltura_resource_id, created_at, updated_at
		FROM rooms
		ORDER BY location ASC
	`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// ListLocations returns the location of every known room.
func (r *RoomRepository) ListLocations(ctx context.Context) ([]string, error) {
	rows, err := r.helper.Query(ctx, `SELECT location FROM rooms ORDER BY location ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, r.mapper.MapError(err)
		}
		locations = append(locations, location)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return locations, nil
}

// UpdateKalturaResourceMappings replaces the room to capture resource mapping
// in one transaction. Rooms absent from mappings lose their resource.
func (r *RoomRepository) UpdateKalturaResourceMappings(ctx context.Context, mappings map[int]int) error {
	now := formatTime(time.Now())

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		clearQuery := `UPDATE rooms SET kaltura_resource_id = NULL, updated_at = ? WHERE kaltura_resource_id IS NOT NULL`
		if _, err := r.helper.ExecTx(ctx, tx, clearQuery, now); err != nil {
			return r.mapper.MapError(err)
		}

		for roomID, resourceID := range mappings {
			result, err := r.helper.ExecTx(ctx, tx,
				`UPDATE rooms SET kaltura_resource_id = ?, updated_at = ? WHERE id = ?`,
				resourceID, now, roomID,
			)
			if err != nil {
				return r.mapper.MapError(err)
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return fmt.Errorf("room %d: %w", roomID, persistence.ErrNotFound)
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		resourceID           sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&room.ID, &room.Location, &resourceID, &createdAt, &updatedAt); err != nil {
		return persistence.Room{}, err
	}
	if resourceID.Valid {
		id := int(resourceID.Int64)
		room.KalturaResourceID = &id
	}

	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
