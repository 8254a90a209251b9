package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// ClaimService handles the participant-facing claim lifecycle. Capacity
// enforcement itself lives in the ClaimStore; this layer does input
// validation, ownership checks and read caching.
type ClaimService struct {
	events   EventStore
	registry RegistryStore
	claims   ClaimStore
	capacity *CapacityCache
	log      *logger.Logger
}

// NewClaimService constructs a ClaimService. The capacity cache must be the
// same instance the registry service invalidates on material mutations.
func NewClaimService(events EventStore, registry RegistryStore, claims ClaimStore, capacity *CapacityCache, log *logger.Logger) *ClaimService {
	return &ClaimService{
		events:   events,
		registry: registry,
		claims:   claims,
		capacity: capacity,
		log:      log.With("service", "claims"),
	}
}

// Claim creates a new claim on a material for the acting user. A user who
// already holds an active claim on the material must edit it instead; the
// store rejects the duplicate. Visibility policy never gates claiming.
func (s *ClaimService) Claim(ctx context.Context, materialID, userID string, req model.ClaimRequest) (*model.Claim, error) {
	if materialID == "" {
		return nil, invalidf("material id is required")
	}
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	if req.Quantity < 1 {
		return nil, invalidf("quantity must be a positive integer")
	}
	if req.ClaimType == "" {
		req.ClaimType = model.ClaimPersonal
	}
	if !req.ClaimType.Valid() {
		return nil, invalidf("claim_type must be %q or %q", model.ClaimPersonal, model.ClaimLending)
	}

	now := time.Now().UTC()
	c := &model.Claim{
		ID:         uuid.New().String(),
		MaterialID: materialID,
		UserID:     userID,
		ClaimType:  req.ClaimType,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
		Status:     model.ClaimStatusClaimed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.claims.CreateClaim(ctx, c); err != nil {
		return nil, err
	}
	s.capacity.Invalidate(materialID)
	s.log.Info("material claimed",
		"material_id", materialID, "user_id", userID, "quantity", req.Quantity)
	return c, nil
}

// Update changes the quantity and/or notes of the caller's own active claim.
// Material and owner are immutable. The store rechecks capacity excluding
// the claim's current quantity.
func (s *ClaimService) Update(ctx context.Context, claimID, userID string, req model.UpdateClaimRequest) (*model.Claim, error) {
	if userID == "" {
		return nil, invalidf("user id is required")
	}
	if req.Quantity < 1 {
		return nil, invalidf("quantity must be a positive integer")
	}

	existing, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrUnauthorized
	}

	updated, err := s.claims.UpdateClaim(ctx, claimID, req.Quantity, req.Notes)
	if err != nil {
		return nil, err
	}
	s.capacity.Invalidate(updated.MaterialID)
	return updated, nil
}

// Unclaim cancels a claim. The claimant may cancel their own claim; the
// organizer of the owning event may force-cancel anyone's. For those two
// actors cancelling an already-cancelled claim is a no-op, not an error;
// anyone else is rejected regardless of the claim's status.
func (s *ClaimService) Unclaim(ctx context.Context, claimID, actorID string) error {
	if actorID == "" {
		return invalidf("user id is required")
	}
	c, err := s.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.UserID != actorID {
		m, err := s.registry.GetMaterial(ctx, c.MaterialID)
		if err != nil {
			return fmt.Errorf("resolve claim material: %w", err)
		}
		event, err := s.events.GetEvent(ctx, m.EventID)
		if err != nil {
			return fmt.Errorf("resolve claim event: %w", err)
		}
		if event.OrganizerID != actorID {
			return ErrUnauthorized
		}
	}
	if c.Status == model.ClaimStatusCancelled {
		return nil
	}
	if err := s.claims.CancelClaim(ctx, claimID); err != nil {
		return err
	}
	s.capacity.Invalidate(c.MaterialID)
	s.log.Info("claim cancelled", "claim_id", claimID, "actor_id", actorID)
	return nil
}

// RemainingCapacity returns the remaining capacity of a material, nil
// meaning unlimited, never negative.
func (s *ClaimService) RemainingCapacity(ctx context.Context, materialID string) (*int, error) {
	if remaining, ok := s.capacity.get(materialID); ok {
		return remaining, nil
	}
	remaining, err := s.claims.RemainingCapacity(ctx, materialID)
	if err != nil {
		return nil, err
	}
	s.capacity.set(materialID, remaining)
	return remaining, nil
}
