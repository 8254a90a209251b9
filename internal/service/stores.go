// Package service implements business logic, validation and authorization
// between the HTTP handlers and the storage layer.
package service

import (
	"context"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// EventStore persists events. Implemented by the Postgres repositories and
// by the in-memory store.
type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// RegistryStore persists registry configs and material definitions.
type RegistryStore interface {
	GetConfig(ctx context.Context, eventID string) (*model.RegistryConfig, error)
	SaveConfig(ctx context.Context, cfg *model.RegistryConfig) error
	ListMaterials(ctx context.Context, eventID string) ([]model.Material, error)
	GetMaterial(ctx context.Context, id string) (*model.Material, error)
	InsertMaterial(ctx context.Context, m *model.Material) error
	UpdateMaterial(ctx context.Context, m *model.Material) error
	DeleteMaterial(ctx context.Context, id string) error
	ReplaceMaterials(ctx context.Context, eventID string, materials []model.Material) error
}

// ClaimStore is the allocation engine: capacity checks and claim writes are
// atomic inside the store, never split across calls.
type ClaimStore interface {
	CreateClaim(ctx context.Context, c *model.Claim) error
	UpdateClaim(ctx context.Context, claimID string, quantity int, notes *string) (*model.Claim, error)
	CancelClaim(ctx context.Context, claimID string) error
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListClaimsByEvent(ctx context.Context, eventID string) ([]model.Claim, error)
	RemainingCapacity(ctx context.Context, materialID string) (*int, error)
}
