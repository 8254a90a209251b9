package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/repository"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/template"
)

// RegistryService handles the organizer-facing registry operations and the
// registry read model.
type RegistryService struct {
	events   EventStore
	registry RegistryStore
	claims   ClaimStore
	capacity *CapacityCache
	log      *logger.Logger
}

// NewRegistryService constructs a RegistryService. Material mutations
// invalidate the shared capacity cache so cached remaining values never
// outlive a capacity change or removal.
func NewRegistryService(events EventStore, registry RegistryStore, claims ClaimStore, capacity *CapacityCache, log *logger.Logger) *RegistryService {
	return &RegistryService{
		events:   events,
		registry: registry,
		claims:   claims,
		capacity: capacity,
		log:      log.With("service", "registry"),
	}
}

// CreateEvent validates and creates an event owned by the acting user, with
// a disabled default registry config.
func (s *RegistryService) CreateEvent(ctx context.Context, organizerID string, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, invalidf("event title is required")
	}
	if req.VenueType == "" {
		req.VenueType = model.VenueHome
	}
	if !req.VenueType.Valid() {
		return nil, invalidf("venue_type must be %q or %q", model.VenueHome, model.VenueStudio)
	}

	event := &model.Event{
		ID:          uuid.New().String(),
		OrganizerID: organizerID,
		Title:       req.Title,
		Category:    strings.TrimSpace(req.Category),
		VenueType:   req.VenueType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	cfg := model.DefaultRegistryConfig(event.ID)
	cfg.VenueType = event.VenueType
	if err := s.registry.SaveConfig(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("seed registry config: %w", err)
	}
	return event, nil
}

// GetEvent returns a single event by ID.
func (s *RegistryService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalidf("event id is required")
	}
	return s.events.GetEvent(ctx, id)
}

// requireOrganizer loads the event and checks that the actor organizes it.
func (s *RegistryService) requireOrganizer(ctx context.Context, eventID, actorID string) (*model.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != actorID {
		return nil, ErrUnauthorized
	}
	return event, nil
}

func (s *RegistryService) configOrDefault(ctx context.Context, eventID string) (model.RegistryConfig, error) {
	cfg, err := s.registry.GetConfig(ctx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.DefaultRegistryConfig(eventID), nil
		}
		return model.RegistryConfig{}, err
	}
	return *cfg, nil
}

// UpdateConfig applies a partial update to the registry settings. Changing
// the venue type never touches existing materials; it only affects what a
// later template replace would produce.
func (s *RegistryService) UpdateConfig(ctx context.Context, eventID, actorID string, req model.UpdateRegistryConfigRequest) (*model.RegistryConfig, error) {
	if _, err := s.requireOrganizer(ctx, eventID, actorID); err != nil {
		return nil, err
	}
	cfg, err := s.configOrDefault(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.VenueType != nil {
		if !req.VenueType.Valid() {
			return nil, invalidf("venue_type must be %q or %q", model.VenueHome, model.VenueStudio)
		}
		cfg.VenueType = *req.VenueType
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			return nil, invalidf("visibility must be %q or %q", model.VisibilityPublic, model.VisibilityOrganizerOnly)
		}
		cfg.Visibility = *req.Visibility
	}

	if err := s.registry.SaveConfig(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("update registry config: %w", err)
	}
	return &cfg, nil
}

// ReplaceFromTemplate replaces the event's material list wholesale with the
// catalog template for the given category and venue type. Manual additions
// and edits are discarded and claims on the old materials are cancelled.
// This is an explicit "start over from template", not a merge.
func (s *RegistryService) ReplaceFromTemplate(ctx context.Context, eventID, actorID string, req model.ReplaceFromTemplateRequest) ([]model.Material, error) {
	if _, err := s.requireOrganizer(ctx, eventID, actorID); err != nil {
		return nil, err
	}
	if req.VenueType == "" {
		req.VenueType = model.VenueHome
	}
	if !req.VenueType.Valid() {
		return nil, invalidf("venue_type must be %q or %q", model.VenueHome, model.VenueStudio)
	}

	items := template.Get(req.Category, req.VenueType)
	now := time.Now().UTC()
	materials := make([]model.Material, 0, len(items))
	for _, it := range items {
		materials = append(materials, model.Material{
			ID:                  uuid.New().String(),
			EventID:             eventID,
			Item:                it.Item,
			QuantityDescription: it.QuantityDescription,
			MaxQuantity:         it.MaxQuantity,
			IsRequired:          it.IsRequired,
			Provider:            it.Provider,
			Notes:               it.Notes,
			RegistryType:        it.RegistryType,
			Visibility:          model.VisibilityPublic,
			IsTemplateItem:      true,
			CreatedAt:           now,
			UpdatedAt:           now,
		})
	}

	if err := s.registry.ReplaceMaterials(ctx, eventID, materials); err != nil {
		return nil, fmt.Errorf("replace materials from template: %w", err)
	}
	// The replaced material IDs are gone; drop every cached capacity rather
	// than track which entries belonged to this event.
	s.capacity.Reset()
	s.log.Info("registry replaced from template",
		"event_id", eventID, "category", req.Category, "venue_type", req.VenueType, "items", len(materials))
	return materials, nil
}

func validateMaterialFields(item string, maxQuantity *int, provider model.Provider, registryType model.RegistryType) error {
	if strings.TrimSpace(item) == "" {
		return invalidf("item name is required")
	}
	if maxQuantity != nil && *maxQuantity < 1 {
		return invalidf("max_quantity must be a positive integer")
	}
	if !provider.Valid() {
		return invalidf("provider must be %q, %q or %q", model.ProviderParticipant, model.ProviderOrganizer, model.ProviderEither)
	}
	if !registryType.Valid() {
		return invalidf("registry_type must be %q or %q", model.RegistryRequired, model.RegistryLending)
	}
	return nil
}

// AddMaterial adds a manually defined material to the registry.
func (s *RegistryService) AddMaterial(ctx context.Context, eventID, actorID string, req model.AddMaterialRequest) (*model.Material, error) {
	if _, err := s.requireOrganizer(ctx, eventID, actorID); err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = model.ProviderParticipant
	}
	if req.RegistryType == "" {
		req.RegistryType = model.RegistryRequired
	}
	if err := validateMaterialFields(req.Item, req.MaxQuantity, req.Provider, req.RegistryType); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &model.Material{
		ID:                  uuid.New().String(),
		EventID:             eventID,
		Item:                strings.TrimSpace(req.Item),
		QuantityDescription: req.QuantityDescription,
		MaxQuantity:         req.MaxQuantity,
		IsRequired:          req.IsRequired,
		Provider:            req.Provider,
		Notes:               req.Notes,
		RegistryType:        req.RegistryType,
		Visibility:          model.VisibilityPublic,
		IsTemplateItem:      false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.registry.InsertMaterial(ctx, m); err != nil {
		return nil, fmt.Errorf("add material: %w", err)
	}
	return m, nil
}

// UpdateMaterial applies a partial update to a material definition. Capacity
// rules apply to claims, not to definitions, so no engine is involved here.
func (s *RegistryService) UpdateMaterial(ctx context.Context, materialID, actorID string, req model.UpdateMaterialRequest) (*model.Material, error) {
	m, err := s.registry.GetMaterial(ctx, materialID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireOrganizer(ctx, m.EventID, actorID); err != nil {
		return nil, err
	}

	if req.Item != nil {
		m.Item = strings.TrimSpace(*req.Item)
	}
	if req.QuantityDescription != nil {
		m.QuantityDescription = *req.QuantityDescription
	}
	if req.MaxQuantityUnlimited {
		m.MaxQuantity = nil
	} else if req.MaxQuantity != nil {
		m.MaxQuantity = req.MaxQuantity
	}
	if req.IsRequired != nil {
		m.IsRequired = *req.IsRequired
	}
	if req.Provider != nil {
		m.Provider = *req.Provider
	}
	if req.Notes != nil {
		m.Notes = *req.Notes
	}
	if req.RegistryType != nil {
		m.RegistryType = *req.RegistryType
	}
	if err := validateMaterialFields(m.Item, m.MaxQuantity, m.Provider, m.RegistryType); err != nil {
		return nil, err
	}

	if err := s.registry.UpdateMaterial(ctx, m); err != nil {
		return nil, fmt.Errorf("update material: %w", err)
	}
	s.capacity.Invalidate(m.ID)
	return m, nil
}

// RemoveMaterial deletes a material; its active claims are cancelled in the
// same store transaction.
func (s *RegistryService) RemoveMaterial(ctx context.Context, materialID, actorID string) error {
	m, err := s.registry.GetMaterial(ctx, materialID)
	if err != nil {
		return err
	}
	if _, err := s.requireOrganizer(ctx, m.EventID, actorID); err != nil {
		return err
	}
	if err := s.registry.DeleteMaterial(ctx, materialID); err != nil {
		return fmt.Errorf("remove material: %w", err)
	}
	s.capacity.Invalidate(materialID)
	return nil
}

// ListMaterialsWithClaims builds the registry read model for a viewer. Claim
// identity and notes are filtered through the visibility policy; the
// viewer's own claim is always returned in full. Remaining capacity is
// derived from the fetched claims, so a view is internally consistent even
// if it is stale by one concurrent write.
func (s *RegistryService) ListMaterialsWithClaims(ctx context.Context, eventID, viewerID string) (*model.RegistryView, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	role := model.RoleParticipant
	if viewerID == event.OrganizerID {
		role = model.RoleOrganizer
	}

	cfg, err := s.configOrDefault(ctx, eventID)
	if err != nil {
		return nil, err
	}
	materials, err := s.registry.ListMaterials(ctx, eventID)
	if err != nil {
		return nil, err
	}
	claims, err := s.claims.ListClaimsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	byMaterial := make(map[string][]model.Claim, len(materials))
	for _, c := range claims {
		byMaterial[c.MaterialID] = append(byMaterial[c.MaterialID], c)
	}

	canView := model.CanViewClaimDetails(cfg, role)
	view := &model.RegistryView{
		Config:    cfg,
		Materials: make([]model.MaterialWithClaims, 0, len(materials)),
	}
	for _, m := range materials {
		row := model.MaterialWithClaims{Material: m, Claims: []model.Claim{}}
		used := 0
		for _, c := range byMaterial[m.ID] {
			used += c.Quantity
			if canView || c.UserID == viewerID {
				row.Claims = append(row.Claims, c)
			} else {
				row.Claims = append(row.Claims, model.RedactClaim(c))
			}
		}
		if m.MaxQuantity != nil {
			remaining := *m.MaxQuantity - used
			if remaining < 0 {
				s.log.Warn("claimed quantities exceed material capacity, clamping to zero",
					"material_id", m.ID, "max_quantity", *m.MaxQuantity, "claimed", used)
				remaining = 0
			}
			row.Remaining = &remaining
		}
		view.Materials = append(view.Materials, row)
	}
	return view, nil
}
