package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/logger"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/repository"
)

const organizerID = "organizer-1"

type fixture struct {
	store    *repository.MemoryStore
	registry *RegistryService
	claims   *ClaimService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := repository.NewMemoryStore(log)
	cache := NewCapacityCache()
	return &fixture{
		store:    store,
		registry: NewRegistryService(store, store, store, cache, log),
		claims:   NewClaimService(store, store, store, cache, log),
	}
}

func (f *fixture) createEvent(t *testing.T) *model.Event {
	t.Helper()
	event, err := f.registry.CreateEvent(context.Background(), organizerID, model.CreateEventRequest{
		Title:     "Sunset Yoga",
		Category:  "restorative yoga",
		VenueType: model.VenueHome,
	})
	require.NoError(t, err)
	return event
}

func (f *fixture) addMaterial(t *testing.T, eventID string, maxQuantity *int) *model.Material {
	t.Helper()
	m, err := f.registry.AddMaterial(context.Background(), eventID, organizerID, model.AddMaterialRequest{
		Item:        "Yoga Mat",
		MaxQuantity: maxQuantity,
	})
	require.NoError(t, err)
	return m
}

func intp(n int) *int { return &n }

// ─── Events & config ──────────────────────────────────────────────────────────

func TestCreateEvent_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.CreateEvent(context.Background(), organizerID, model.CreateEventRequest{Title: "  "})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = f.registry.CreateEvent(context.Background(), organizerID, model.CreateEventRequest{
		Title: "Picnic", VenueType: "park",
	})
	require.ErrorAs(t, err, &vErr)
}

func TestCreateEvent_SeedsDefaultConfig(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	view, err := f.registry.ListMaterialsWithClaims(context.Background(), event.ID, organizerID)
	require.NoError(t, err)
	require.False(t, view.Config.Enabled)
	require.Equal(t, model.VenueHome, view.Config.VenueType)
	require.Equal(t, model.VisibilityPublic, view.Config.Visibility)
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	ctx := context.Background()

	enabled := true
	studio := model.VenueStudio
	hidden := model.VisibilityOrganizerOnly
	cfg, err := f.registry.UpdateConfig(ctx, event.ID, organizerID, model.UpdateRegistryConfigRequest{
		Enabled: &enabled, VenueType: &studio, Visibility: &hidden,
	})
	require.NoError(t, err)
	require.True(t, cfg.Enabled)
	require.Equal(t, model.VenueStudio, cfg.VenueType)
	require.Equal(t, model.VisibilityOrganizerOnly, cfg.Visibility)

	// Partial update leaves the rest alone.
	disabled := false
	cfg, err = f.registry.UpdateConfig(ctx, event.ID, organizerID, model.UpdateRegistryConfigRequest{Enabled: &disabled})
	require.NoError(t, err)
	require.False(t, cfg.Enabled)
	require.Equal(t, model.VenueStudio, cfg.VenueType)
}

func TestUpdateConfig_Unauthorized(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	enabled := true
	_, err := f.registry.UpdateConfig(context.Background(), event.ID, "someone-else", model.UpdateRegistryConfigRequest{Enabled: &enabled})
	require.ErrorIs(t, err, ErrUnauthorized)
}

// ─── Template replace ─────────────────────────────────────────────────────────

func TestReplaceFromTemplate_MaterializesCatalog(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	materials, err := f.registry.ReplaceFromTemplate(context.Background(), event.ID, organizerID, model.ReplaceFromTemplateRequest{
		Category: "restorative yoga workshop", VenueType: model.VenueHome,
	})
	require.NoError(t, err)
	require.NotEmpty(t, materials)
	for _, m := range materials {
		require.NotEmpty(t, m.ID)
		require.Equal(t, event.ID, m.EventID)
		require.True(t, m.IsTemplateItem)
	}
	require.Equal(t, "Yoga Mat", materials[0].Item)
}

func TestReplaceFromTemplate_DiscardsManualAdditions(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	ctx := context.Background()

	manual := f.addMaterial(t, event.ID, nil)
	_, err := f.registry.ReplaceFromTemplate(ctx, event.ID, organizerID, model.ReplaceFromTemplateRequest{
		Category: "yoga", VenueType: model.VenueHome,
	})
	require.NoError(t, err)

	view, err := f.registry.ListMaterialsWithClaims(ctx, event.ID, organizerID)
	require.NoError(t, err)
	for _, m := range view.Materials {
		require.NotEqual(t, manual.ID, m.ID, "template replace is a full reset, not a merge")
		require.True(t, m.IsTemplateItem)
	}
}

func TestReplaceFromTemplate_Unauthorized(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	_, err := f.registry.ReplaceFromTemplate(context.Background(), event.ID, "participant-1", model.ReplaceFromTemplateRequest{
		Category: "yoga", VenueType: model.VenueHome,
	})
	require.ErrorIs(t, err, ErrUnauthorized)
}

// ─── Material CRUD ────────────────────────────────────────────────────────────

func TestAddMaterial_Validation(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	ctx := context.Background()

	var vErr *ValidationError
	_, err := f.registry.AddMaterial(ctx, event.ID, organizerID, model.AddMaterialRequest{Item: "   "})
	require.ErrorAs(t, err, &vErr)

	_, err = f.registry.AddMaterial(ctx, event.ID, organizerID, model.AddMaterialRequest{Item: "Mat", MaxQuantity: intp(0)})
	require.ErrorAs(t, err, &vErr)

	_, err = f.registry.AddMaterial(ctx, event.ID, organizerID, model.AddMaterialRequest{Item: "Mat", Provider: "vendor"})
	require.ErrorAs(t, err, &vErr)
}

func TestAddMaterial_Defaults(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)

	m, err := f.registry.AddMaterial(context.Background(), event.ID, organizerID, model.AddMaterialRequest{Item: " Towel "})
	require.NoError(t, err)
	require.Equal(t, "Towel", m.Item)
	require.Nil(t, m.MaxQuantity)
	require.Equal(t, model.ProviderParticipant, m.Provider)
	require.Equal(t, model.RegistryRequired, m.RegistryType)
	require.False(t, m.IsTemplateItem)
}

func TestUpdateMaterial(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(4))
	ctx := context.Background()

	item := "Thick Yoga Mat"
	lending := model.RegistryLending
	updated, err := f.registry.UpdateMaterial(ctx, m.ID, organizerID, model.UpdateMaterialRequest{
		Item: &item, RegistryType: &lending,
	})
	require.NoError(t, err)
	require.Equal(t, "Thick Yoga Mat", updated.Item)
	require.Equal(t, model.RegistryLending, updated.RegistryType)
	require.Equal(t, 4, *updated.MaxQuantity, "untouched fields survive")

	// Clearing the capacity makes the material unlimited.
	updated, err = f.registry.UpdateMaterial(ctx, m.ID, organizerID, model.UpdateMaterialRequest{MaxQuantityUnlimited: true})
	require.NoError(t, err)
	require.Nil(t, updated.MaxQuantity)

	_, err = f.registry.UpdateMaterial(ctx, m.ID, "stranger", model.UpdateMaterialRequest{Item: &item})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRemoveMaterial_CascadeCancelsClaims(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(3))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "participant-1", model.ClaimRequest{Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, f.registry.RemoveMaterial(ctx, m.ID, organizerID))

	_, err = f.claims.Update(ctx, claim.ID, "participant-1", model.UpdateClaimRequest{Quantity: 1})
	require.ErrorIs(t, err, repository.ErrNotFound, "cancelled claim is no longer editable")
}

// ─── Claim lifecycle ──────────────────────────────────────────────────────────

func TestClaimFlow_CapacityScenario(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	_, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 1, *remaining)

	_, err = f.claims.Claim(ctx, m.ID, "user-b", model.ClaimRequest{Quantity: 2})
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)

	_, err = f.claims.Claim(ctx, m.ID, "user-b", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 0, *remaining)

	_, err = f.claims.Claim(ctx, m.ID, "user-c", model.ClaimRequest{Quantity: 1})
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)
}

func TestClaim_Validation(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, nil)
	ctx := context.Background()

	var vErr *ValidationError
	_, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 0})
	require.ErrorAs(t, err, &vErr)

	_, err = f.claims.Claim(ctx, m.ID, "", model.ClaimRequest{Quantity: 1})
	require.ErrorAs(t, err, &vErr)

	_, err = f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1, ClaimType: "corporate"})
	require.ErrorAs(t, err, &vErr)
}

func TestClaim_DefaultsToPersonal(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, nil)

	claim, err := f.claims.Claim(context.Background(), m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, model.ClaimPersonal, claim.ClaimType)
	require.Equal(t, model.ClaimStatusClaimed, claim.Status)
}

func TestUpdateClaim_RaiseWithinOwnAllowance(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	updated, err := f.claims.Update(ctx, claim.ID, "user-a", model.UpdateClaimRequest{Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 2, updated.Quantity)
}

func TestUpdateClaim_OwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(5))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	_, err = f.claims.Update(ctx, claim.ID, "user-b", model.UpdateClaimRequest{Quantity: 2})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.claims.Update(ctx, claim.ID, organizerID, model.UpdateClaimRequest{Quantity: 2})
	require.ErrorIs(t, err, ErrUnauthorized, "even the organizer cannot edit someone else's quantity")
}

func TestUnclaim_FreesCapacity(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	a, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
	_, err = f.claims.Claim(ctx, m.ID, "user-b", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.claims.Unclaim(ctx, a.ID, "user-a"))
	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 1, *remaining)

	_, err = f.claims.Claim(ctx, m.ID, "user-c", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
}

func TestUnclaim_Idempotent(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, "user-a"))
	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, "user-a"), "second unclaim is a no-op")

	err = f.claims.Unclaim(ctx, "no-such-claim", "user-a")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUnclaim_OrganizerMayForceRemove(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	require.ErrorIs(t, f.claims.Unclaim(ctx, claim.ID, "user-b"), ErrUnauthorized)
	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, organizerID))
}

func TestUnclaim_CancelledClaimStillChecksAuthorization(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, "user-a"))

	// A stranger must not get a silent success on someone else's cancelled
	// claim; only the owner and the organizer get the idempotent no-op.
	require.ErrorIs(t, f.claims.Unclaim(ctx, claim.ID, "user-b"), ErrUnauthorized)
	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, "user-a"))
	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, organizerID))
}

func TestClaimAgainAfterUnclaim(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	first, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.NoError(t, err)

	_, err = f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 1})
	require.ErrorIs(t, err, repository.ErrAlreadyClaimed)

	require.NoError(t, f.claims.Unclaim(ctx, first.ID, "user-a"))
	_, err = f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 2})
	require.NoError(t, err)
}

// ─── Capacity reads & caching ─────────────────────────────────────────────────

func TestRemainingCapacity_UnlimitedIsNil(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
		require.NoError(t, err)
		require.Nil(t, remaining)
	}
}

func TestRemainingCapacity_CacheInvalidatedByMutations(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(5))
	ctx := context.Background()

	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 5, *remaining)

	// A write through the service must bust the cached read immediately.
	claim, err := f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 2})
	require.NoError(t, err)
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 3, *remaining)

	_, err = f.claims.Update(ctx, claim.ID, "user-a", model.UpdateClaimRequest{Quantity: 4})
	require.NoError(t, err)
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 1, *remaining)

	require.NoError(t, f.claims.Unclaim(ctx, claim.ID, "user-a"))
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 5, *remaining)
}

func TestRemainingCapacity_MaterialUpdateBustsCache(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(2))
	ctx := context.Background()

	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 2, *remaining)

	// Organizer raises the capacity; a read must see the new value, not the
	// cached old one.
	_, err = f.registry.UpdateMaterial(ctx, m.ID, organizerID, model.UpdateMaterialRequest{MaxQuantity: intp(10)})
	require.NoError(t, err)
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 10, *remaining)

	// Clearing the limit must surface as unlimited immediately.
	_, err = f.registry.UpdateMaterial(ctx, m.ID, organizerID, model.UpdateMaterialRequest{MaxQuantityUnlimited: true})
	require.NoError(t, err)
	remaining, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Nil(t, remaining)
}

func TestRemainingCapacity_MaterialRemovalBustsCache(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(5))
	ctx := context.Background()

	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 5, *remaining)

	require.NoError(t, f.registry.RemoveMaterial(ctx, m.ID, organizerID))
	_, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound, "deleted material must not keep reporting capacity")
}

func TestRemainingCapacity_TemplateReplaceBustsCache(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(5))
	ctx := context.Background()

	remaining, err := f.claims.RemainingCapacity(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, 5, *remaining)

	_, err = f.registry.ReplaceFromTemplate(ctx, event.ID, organizerID, model.ReplaceFromTemplateRequest{
		Category: "yoga", VenueType: model.VenueHome,
	})
	require.NoError(t, err)
	_, err = f.claims.RemainingCapacity(ctx, m.ID)
	require.ErrorIs(t, err, repository.ErrNotFound, "replaced material must not keep reporting capacity")
}

// ─── Visibility ───────────────────────────────────────────────────────────────

func TestListMaterialsWithClaims_Visibility(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t)
	m := f.addMaterial(t, event.ID, intp(5))
	ctx := context.Background()

	hidden := model.VisibilityOrganizerOnly
	_, err := f.registry.UpdateConfig(ctx, event.ID, organizerID, model.UpdateRegistryConfigRequest{Visibility: &hidden})
	require.NoError(t, err)

	_, err = f.claims.Claim(ctx, m.ID, "user-a", model.ClaimRequest{Quantity: 2, Notes: "the good mats"})
	require.NoError(t, err)
	_, err = f.claims.Claim(ctx, m.ID, "user-b", model.ClaimRequest{Quantity: 1, Notes: "mine is worn"})
	require.NoError(t, err)

	// Participant B: own claim in full, A's claim redacted but counted.
	view, err := f.registry.ListMaterialsWithClaims(ctx, event.ID, "user-b")
	require.NoError(t, err)
	require.Len(t, view.Materials, 1)
	row := view.Materials[0]
	require.Equal(t, 2, *row.Remaining)
	require.Len(t, row.Claims, 2)
	for _, c := range row.Claims {
		if c.UserID == "user-b" {
			require.Equal(t, "mine is worn", c.Notes)
			continue
		}
		require.Empty(t, c.UserID, "other claimants' identity must be hidden")
		require.Empty(t, c.Notes, "other claimants' notes must be hidden")
		require.Equal(t, 2, c.Quantity, "quantities stay visible")
	}

	// The organizer always sees full detail.
	view, err = f.registry.ListMaterialsWithClaims(ctx, event.ID, organizerID)
	require.NoError(t, err)
	for _, c := range view.Materials[0].Claims {
		require.NotEmpty(t, c.UserID)
		require.NotEmpty(t, c.Notes)
	}

	// Under a public policy everyone sees full detail.
	public := model.VisibilityPublic
	_, err = f.registry.UpdateConfig(ctx, event.ID, organizerID, model.UpdateRegistryConfigRequest{Visibility: &public})
	require.NoError(t, err)
	view, err = f.registry.ListMaterialsWithClaims(ctx, event.ID, "user-c")
	require.NoError(t, err)
	for _, c := range view.Materials[0].Claims {
		require.NotEmpty(t, c.UserID)
	}
}

func TestListMaterialsWithClaims_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	_, err := f.registry.ListMaterialsWithClaims(context.Background(), "no-such-event", "viewer")
	require.True(t, errors.Is(err, repository.ErrNotFound))
}
