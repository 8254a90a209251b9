package repository

import (
	"context"
	"sync"
	"time"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// MemoryStore is a mutex-guarded in-memory implementation of the event,
// registry and claim stores. It backs STORE=memory for local development and
// lets the service and concurrency tests run without Postgres. One mutex
// covers everything, which trivially gives the same per-material
// serializability the Postgres row lock provides.
type MemoryStore struct {
	mu  sync.Mutex
	log *logger.Logger

	events    map[string]model.Event
	configs   map[string]model.RegistryConfig
	materials map[string]model.Material
	claims    map[string]model.Claim

	// insertion order, so listings are deterministic without timestamps
	materialOrder map[string][]string // eventID -> material IDs
	claimOrder    []string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		log:           log.With("repo", "memory"),
		events:        make(map[string]model.Event),
		configs:       make(map[string]model.RegistryConfig),
		materials:     make(map[string]model.Material),
		claims:        make(map[string]model.Claim),
		materialOrder: make(map[string][]string),
	}
}

// CreateEvent inserts a new event.
func (s *MemoryStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = *e
	return nil
}

// GetEvent returns a single event or ErrNotFound.
func (s *MemoryStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

// GetConfig returns the registry config for an event or ErrNotFound.
func (s *MemoryStore) GetConfig(_ context.Context, eventID string) (*model.RegistryConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// SaveConfig upserts the registry config.
func (s *MemoryStore) SaveConfig(_ context.Context, cfg *model.RegistryConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg.UpdatedAt = time.Now().UTC()
	s.configs[cfg.EventID] = *cfg
	return nil
}

// ListMaterials returns all materials for an event in insertion order.
func (s *MemoryStore) ListMaterials(_ context.Context, eventID string) ([]model.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Material
	for _, id := range s.materialOrder[eventID] {
		if m, ok := s.materials[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetMaterial returns a single material or ErrNotFound.
func (s *MemoryStore) GetMaterial(_ context.Context, id string) (*model.Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

// InsertMaterial inserts a fully populated material.
func (s *MemoryStore) InsertMaterial(_ context.Context, m *model.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.ID] = *m
	s.materialOrder[m.EventID] = append(s.materialOrder[m.EventID], m.ID)
	return nil
}

// UpdateMaterial rewrites the mutable fields of a material.
func (s *MemoryStore) UpdateMaterial(_ context.Context, m *model.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[m.ID]; !ok {
		return ErrNotFound
	}
	m.UpdatedAt = time.Now().UTC()
	s.materials[m.ID] = *m
	return nil
}

// DeleteMaterial removes a material, cascade-cancelling its active claims.
func (s *MemoryStore) DeleteMaterial(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return ErrNotFound
	}
	s.cancelClaimsLocked(func(c model.Claim) bool { return c.MaterialID == id })
	delete(s.materials, id)
	order := s.materialOrder[m.EventID]
	for i, mid := range order {
		if mid == id {
			s.materialOrder[m.EventID] = append(order[:i], order[i+1:]...)
			break
		}
	}
	return nil
}

// ReplaceMaterials swaps the entire material list of an event, cancelling
// every claim on the old list.
func (s *MemoryStore) ReplaceMaterials(_ context.Context, eventID string, materials []model.Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.materialOrder[eventID]
	oldSet := make(map[string]bool, len(old))
	for _, id := range old {
		oldSet[id] = true
		delete(s.materials, id)
	}
	s.cancelClaimsLocked(func(c model.Claim) bool { return oldSet[c.MaterialID] })
	s.materialOrder[eventID] = nil
	for _, m := range materials {
		s.materials[m.ID] = m
		s.materialOrder[eventID] = append(s.materialOrder[eventID], m.ID)
	}
	return nil
}

func (s *MemoryStore) cancelClaimsLocked(match func(model.Claim) bool) {
	now := time.Now().UTC()
	for id, c := range s.claims {
		if c.Status == model.ClaimStatusClaimed && match(c) {
			c.Status = model.ClaimStatusCancelled
			c.UpdatedAt = now
			s.claims[id] = c
		}
	}
}

// remainingLocked computes remaining capacity excluding the claim with
// excludeID. Returns nil for unlimited materials.
func (s *MemoryStore) remainingLocked(materialID, excludeID string) *int {
	m, ok := s.materials[materialID]
	if !ok || m.MaxQuantity == nil {
		return nil
	}
	used := 0
	for _, c := range s.claims {
		if c.MaterialID == materialID && c.Status == model.ClaimStatusClaimed && c.ID != excludeID {
			used += c.Quantity
		}
	}
	remaining := *m.MaxQuantity - used
	if remaining < 0 {
		s.log.Warn("claimed quantities exceed material capacity, clamping to zero",
			"material_id", materialID, "max_quantity", *m.MaxQuantity)
		remaining = 0
	}
	return &remaining
}

// CreateClaim checks capacity and inserts a prepared claim under the store
// lock, mirroring the Postgres engine's transaction semantics.
func (s *MemoryStore) CreateClaim(_ context.Context, c *model.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[c.MaterialID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.claims {
		if existing.MaterialID == c.MaterialID && existing.UserID == c.UserID &&
			existing.Status == model.ClaimStatusClaimed {
			return ErrAlreadyClaimed
		}
	}
	if remaining := s.remainingLocked(c.MaterialID, ""); remaining != nil && c.Quantity > *remaining {
		return &CapacityError{Remaining: *remaining}
	}
	s.claims[c.ID] = *c
	s.claimOrder = append(s.claimOrder, c.ID)
	return nil
}

// UpdateClaim rechecks capacity (excluding the claim's own quantity) and
// rewrites quantity/notes of an active claim.
func (s *MemoryStore) UpdateClaim(_ context.Context, claimID string, quantity int, notes *string) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok || c.Status != model.ClaimStatusClaimed {
		return nil, ErrNotFound
	}
	if remaining := s.remainingLocked(c.MaterialID, claimID); remaining != nil && quantity > *remaining {
		return nil, &CapacityError{Remaining: *remaining}
	}
	c.Quantity = quantity
	if notes != nil {
		c.Notes = *notes
	}
	c.UpdatedAt = time.Now().UTC()
	s.claims[claimID] = c
	return &c, nil
}

// CancelClaim soft-deletes a claim; cancelling twice is a no-op.
func (s *MemoryStore) CancelClaim(_ context.Context, claimID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[claimID]
	if !ok {
		return ErrNotFound
	}
	if c.Status == model.ClaimStatusClaimed {
		c.Status = model.ClaimStatusCancelled
		c.UpdatedAt = time.Now().UTC()
		s.claims[claimID] = c
	}
	return nil
}

// GetClaim returns a single claim (any status) or ErrNotFound.
func (s *MemoryStore) GetClaim(_ context.Context, id string) (*model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.claims[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

// ListClaimsByEvent returns every active claim attached to an event's
// materials in insertion order.
func (s *MemoryStore) ListClaimsByEvent(_ context.Context, eventID string) ([]model.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Claim
	for _, id := range s.claimOrder {
		c, ok := s.claims[id]
		if !ok || c.Status != model.ClaimStatusClaimed {
			continue
		}
		if m, ok := s.materials[c.MaterialID]; ok && m.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

// RemainingCapacity returns remaining capacity for one material, nil meaning
// unlimited, floored at zero.
func (s *MemoryStore) RemainingCapacity(_ context.Context, materialID string) (*int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.materials[materialID]; !ok {
		return nil, ErrNotFound
	}
	return s.remainingLocked(materialID, ""), nil
}
