package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// maxTxAttempts bounds retries on serialization failures and deadlocks
// before the operation is surfaced as ErrBusy.
const maxTxAttempts = 3

// ClaimRepository is the allocation engine's persistence layer. Every
// capacity check-and-write runs as a single transaction that first takes a
// row-level lock on the material.
//
// A naive "read remaining, then insert" sequence is a race: two claimants can
// both read the same free capacity before either writes, overbooking the
// material. SELECT ... FOR UPDATE on the material row serialises concurrent
// claim attempts so only one transaction at a time can read-then-write the
// claims for that material.
type ClaimRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewClaimRepository constructs a ClaimRepository.
func NewClaimRepository(db *pgxpool.Pool, log *logger.Logger) *ClaimRepository {
	return &ClaimRepository{db: db, log: log.With("repo", "claims")}
}

// retryable reports whether a transaction should be re-run: Postgres
// serialization failure (40001) or deadlock (40P01).
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// withRetry runs fn up to maxTxAttempts times, retrying only on transient
// transaction failures, then gives up with ErrBusy.
func (r *ClaimRepository) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) {
			return err
		}
		r.log.Warn("transient transaction failure, retrying",
			"op", op, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%s: %w", op, ErrBusy)
}

// CreateClaim atomically checks capacity and inserts a prepared claim.
// Fails with ErrNotFound (material missing), ErrAlreadyClaimed (caller holds
// an active claim on this material) or CapacityError (quantity exceeds what
// remains). The claim row is never left partially created.
func (r *ClaimRepository) CreateClaim(ctx context.Context, c *model.Claim) error {
	return r.withRetry(ctx, "create claim", func(ctx context.Context) error {
		return r.createClaimTx(ctx, c)
	})
}

func (r *ClaimRepository) createClaimTx(ctx context.Context, c *model.Claim) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Lock the material row. All concurrent claim attempts on this material
	// queue up behind this lock until we commit or roll back.
	var maxQuantity *int
	err = tx.QueryRow(ctx,
		`SELECT max_quantity FROM materials WHERE id = $1 FOR UPDATE`,
		c.MaterialID,
	).Scan(&maxQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock material row: %w", err)
	}

	var dupCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM claims
		 WHERE material_id = $1 AND user_id = $2 AND status = $3`,
		c.MaterialID, c.UserID, model.ClaimStatusClaimed,
	).Scan(&dupCount)
	if err != nil {
		return fmt.Errorf("check duplicate claim: %w", err)
	}
	if dupCount > 0 {
		return ErrAlreadyClaimed
	}

	if maxQuantity != nil {
		var used int
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM claims
			 WHERE material_id = $1 AND status = $2`,
			c.MaterialID, model.ClaimStatusClaimed,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("sum claimed quantities: %w", err)
		}
		remaining := *maxQuantity - used
		if remaining < 0 {
			remaining = 0
		}
		if c.Quantity > remaining {
			return &CapacityError{Remaining: remaining}
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO claims (id, material_id, user_id, claim_type, quantity, notes, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.MaterialID, c.UserID, c.ClaimType, c.Quantity, c.Notes, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on (material_id, user_id) WHERE claimed is
		// the backstop for duplicate races the count above cannot see.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("insert claim: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UpdateClaim atomically rechecks capacity and rewrites quantity/notes of an
// active claim. Remaining capacity is computed excluding the claim's own
// current quantity, so raising a claim within its material's limit succeeds
// even when the material is otherwise full.
func (r *ClaimRepository) UpdateClaim(ctx context.Context, claimID string, quantity int, notes *string) (*model.Claim, error) {
	var updated *model.Claim
	err := r.withRetry(ctx, "update claim", func(ctx context.Context) error {
		var txErr error
		updated, txErr = r.updateClaimTx(ctx, claimID, quantity, notes)
		return txErr
	})
	return updated, err
}

func (r *ClaimRepository) updateClaimTx(ctx context.Context, claimID string, quantity int, notes *string) (c *model.Claim, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	c = &model.Claim{ID: claimID, Quantity: quantity}
	err = tx.QueryRow(ctx,
		`SELECT material_id, user_id, claim_type, notes, status, created_at
		 FROM claims WHERE id = $1`,
		claimID,
	).Scan(&c.MaterialID, &c.UserID, &c.ClaimType, &c.Notes, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	if c.Status != model.ClaimStatusClaimed {
		return nil, ErrNotFound
	}
	if notes != nil {
		c.Notes = *notes
	}

	var maxQuantity *int
	err = tx.QueryRow(ctx,
		`SELECT max_quantity FROM materials WHERE id = $1 FOR UPDATE`,
		c.MaterialID,
	).Scan(&maxQuantity)
	if err != nil {
		return nil, fmt.Errorf("lock material row: %w", err)
	}

	if maxQuantity != nil {
		var others int
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(quantity), 0) FROM claims
			 WHERE material_id = $1 AND status = $2 AND id <> $3`,
			c.MaterialID, model.ClaimStatusClaimed, claimID,
		).Scan(&others)
		if err != nil {
			return nil, fmt.Errorf("sum other claimed quantities: %w", err)
		}
		remaining := *maxQuantity - others
		if remaining < 0 {
			remaining = 0
		}
		if quantity > remaining {
			return nil, &CapacityError{Remaining: remaining}
		}
	}

	c.UpdatedAt = time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE claims SET quantity = $2, notes = $3, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		claimID, c.Quantity, c.Notes, c.UpdatedAt, model.ClaimStatusClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return c, nil
}

// CancelClaim soft-deletes a claim. Cancelling an already-cancelled claim is
// a no-op; only a missing claim is an error.
func (r *ClaimRepository) CancelClaim(ctx context.Context, claimID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE claims SET status = $2, updated_at = $3
		 WHERE id = $1 AND status = $4`,
		claimID, model.ClaimStatusCancelled, time.Now().UTC(), model.ClaimStatusClaimed,
	)
	if err != nil {
		return fmt.Errorf("cancel claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM claims WHERE id = $1)`, claimID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check claim exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

// GetClaim returns a single claim (any status) or ErrNotFound.
func (r *ClaimRepository) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	var c model.Claim
	err := r.db.QueryRow(ctx,
		`SELECT id, material_id, user_id, claim_type, quantity, notes, status, created_at, updated_at
		 FROM claims WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.MaterialID, &c.UserID, &c.ClaimType, &c.Quantity, &c.Notes, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &c, nil
}

// ListClaimsByEvent returns every active claim attached to an event's
// materials, oldest first.
func (r *ClaimRepository) ListClaimsByEvent(ctx context.Context, eventID string) ([]model.Claim, error) {
	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.material_id, c.user_id, c.claim_type, c.quantity, c.notes, c.status, c.created_at, c.updated_at
		 FROM claims c
		 JOIN materials m ON m.id = c.material_id
		 WHERE m.event_id = $1 AND c.status = $2
		 ORDER BY c.created_at ASC, c.id ASC`,
		eventID, model.ClaimStatusClaimed,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims by event: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := rows.Scan(&c.ID, &c.MaterialID, &c.UserID, &c.ClaimType, &c.Quantity, &c.Notes, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// RemainingCapacity returns how much of a material is still unclaimed.
// nil means unlimited. The result is floored at zero; a negative raw value
// can only come from historical data inconsistency and is logged, not fatal.
func (r *ClaimRepository) RemainingCapacity(ctx context.Context, materialID string) (*int, error) {
	var maxQuantity *int
	var used int
	err := r.db.QueryRow(ctx,
		`SELECT m.max_quantity,
		        COALESCE((SELECT SUM(quantity) FROM claims WHERE material_id = m.id AND status = $2), 0)
		 FROM materials m WHERE m.id = $1`,
		materialID, model.ClaimStatusClaimed,
	).Scan(&maxQuantity, &used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("remaining capacity: %w", err)
	}
	if maxQuantity == nil {
		return nil, nil
	}
	remaining := *maxQuantity - used
	if remaining < 0 {
		r.log.Warn("claimed quantities exceed material capacity, clamping to zero",
			"material_id", materialID, "max_quantity", *maxQuantity, "claimed", used)
		remaining = 0
	}
	return &remaining, nil
}
