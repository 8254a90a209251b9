// Package repository implements persistence for the event registry system.
// It uses pgx directly (no ORM); every capacity-affecting write runs inside a
// transaction that locks the owning material row first.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent inserts a new event.
func (r *EventRepository) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, organizer_id, title, category, venue_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.OrganizerID, e.Title, e.Category, e.VenueType, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (r *EventRepository) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := r.db.QueryRow(ctx,
		`SELECT id, organizer_id, title, category, venue_type, created_at
		 FROM events WHERE id = $1`,
		id,
	).Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Category, &e.VenueType, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}
