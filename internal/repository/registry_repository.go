package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// RegistryRepository handles persistence for registry configs and materials.
type RegistryRepository struct {
	db *pgxpool.Pool
}

// NewRegistryRepository constructs a RegistryRepository.
func NewRegistryRepository(db *pgxpool.Pool) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// GetConfig returns the registry config for an event or ErrNotFound.
func (r *RegistryRepository) GetConfig(ctx context.Context, eventID string) (*model.RegistryConfig, error) {
	var cfg model.RegistryConfig
	err := r.db.QueryRow(ctx,
		`SELECT event_id, enabled, venue_type, visibility, updated_at
		 FROM registry_configs WHERE event_id = $1`,
		eventID,
	).Scan(&cfg.EventID, &cfg.Enabled, &cfg.VenueType, &cfg.Visibility, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registry config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig upserts the registry config. Config writes are single-writer
// (the organizer), so last-writer-wins is enough here.
func (r *RegistryRepository) SaveConfig(ctx context.Context, cfg *model.RegistryConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO registry_configs (event_id, enabled, venue_type, visibility, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id) DO UPDATE
		 SET enabled = EXCLUDED.enabled,
		     venue_type = EXCLUDED.venue_type,
		     visibility = EXCLUDED.visibility,
		     updated_at = EXCLUDED.updated_at`,
		cfg.EventID, cfg.Enabled, cfg.VenueType, cfg.Visibility, cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save registry config: %w", err)
	}
	return nil
}

const materialColumns = `id, event_id, item, quantity_description, max_quantity,
	is_required, provider, notes, registry_type, visibility, is_template_item,
	created_at, updated_at`

func scanMaterial(row pgx.Row) (*model.Material, error) {
	var m model.Material
	err := row.Scan(&m.ID, &m.EventID, &m.Item, &m.QuantityDescription, &m.MaxQuantity,
		&m.IsRequired, &m.Provider, &m.Notes, &m.RegistryType, &m.Visibility,
		&m.IsTemplateItem, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMaterials returns all materials for an event in creation order.
func (r *RegistryRepository) ListMaterials(ctx context.Context, eventID string) ([]model.Material, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE event_id = $1 ORDER BY created_at ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []model.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

// GetMaterial returns a single material or ErrNotFound.
func (r *RegistryRepository) GetMaterial(ctx context.Context, id string) (*model.Material, error) {
	m, err := scanMaterial(r.db.QueryRow(ctx,
		`SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

// InsertMaterial inserts a fully populated material.
func (r *RegistryRepository) InsertMaterial(ctx context.Context, m *model.Material) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO materials (`+materialColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		m.ID, m.EventID, m.Item, m.QuantityDescription, m.MaxQuantity,
		m.IsRequired, m.Provider, m.Notes, m.RegistryType, m.Visibility,
		m.IsTemplateItem, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// UpdateMaterial rewrites the mutable fields of a material.
func (r *RegistryRepository) UpdateMaterial(ctx context.Context, m *model.Material) error {
	m.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE materials
		 SET item = $2, quantity_description = $3, max_quantity = $4, is_required = $5,
		     provider = $6, notes = $7, registry_type = $8, visibility = $9, updated_at = $10
		 WHERE id = $1`,
		m.ID, m.Item, m.QuantityDescription, m.MaxQuantity, m.IsRequired,
		m.Provider, m.Notes, m.RegistryType, m.Visibility, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMaterial removes a material, cascade-cancelling its active claims in
// the same transaction so no claim ever dangles.
func (r *RegistryRepository) DeleteMaterial(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE claims SET status = $2, updated_at = $3
		 WHERE material_id = $1 AND status = $4`,
		id, model.ClaimStatusCancelled, now, model.ClaimStatusClaimed,
	)
	if err != nil {
		return fmt.Errorf("cancel claims for material: %w", err)
	}

	var tag pgconn.CommandTag
	tag, err = tx.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReplaceMaterials swaps the entire material list of an event for a new one.
// Existing claims are cancelled and existing materials deleted first; this is
// the destructive "start over from template" path, not a merge.
func (r *RegistryRepository) ReplaceMaterials(ctx context.Context, eventID string, materials []model.Material) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE claims SET status = $2, updated_at = $3
		 WHERE status = $4 AND material_id IN (SELECT id FROM materials WHERE event_id = $1)`,
		eventID, model.ClaimStatusCancelled, now, model.ClaimStatusClaimed,
	)
	if err != nil {
		return fmt.Errorf("cancel claims for event: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM materials WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete materials: %w", err)
	}

	for i := range materials {
		m := &materials[i]
		_, err = tx.Exec(ctx,
			`INSERT INTO materials (`+materialColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.ID, m.EventID, m.Item, m.QuantityDescription, m.MaxQuantity,
			m.IsRequired, m.Provider, m.Notes, m.RegistryType, m.Visibility,
			m.IsTemplateItem, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert material %q: %w", m.Item, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
