package template

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

func TestGet_ExactKey(t *testing.T) {
	items := Get("yoga", model.VenueHome)
	require.NotEmpty(t, items)
	require.Equal(t, "Yoga Mat", items[0].Item)
	require.True(t, items[0].IsRequired)
}

func TestGet_SubstringBothDirections(t *testing.T) {
	// Category containing the key.
	require.Equal(t, Get("yoga", model.VenueHome), Get("restorative yoga workshop", model.VenueHome))
	require.Equal(t, Get("yoga", model.VenueHome), Get("Yoga Flow", model.VenueHome))
	require.Equal(t, Get("yoga", model.VenueHome), Get("restorative-yoga", model.VenueHome))

	// Key containing the category.
	require.Equal(t, Get("garden", model.VenueStudio), Get("garde", model.VenueStudio))
}

func TestGet_VenueSelectsItemSet(t *testing.T) {
	home := Get("yoga", model.VenueHome)
	studio := Get("yoga", model.VenueStudio)
	require.NotEqual(t, home, studio)

	// Studio venues provide the mats; participants only bring personal gear.
	for _, it := range studio {
		require.NotEqual(t, "Yoga Mat", it.Item)
	}
}

func TestGet_NoMatchReturnsEmpty(t *testing.T) {
	items := Get("underwater basket weaving", model.VenueHome)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestGet_EmptyCategoryNeverMatches(t *testing.T) {
	require.Empty(t, Get("", model.VenueHome))
	require.Empty(t, Get("   ", model.VenueStudio))
	require.False(t, Has(""))
}

func TestGet_DeterministicTieBreak(t *testing.T) {
	// A category matching several keys must resolve by declaration order,
	// every time.
	first := Get("yoga and meditation retreat", model.VenueHome)
	require.Equal(t, Get("yoga", model.VenueHome), first)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Get("yoga and meditation retreat", model.VenueHome))
	}
}

func TestGet_ReturnsFreshCopy(t *testing.T) {
	items := Get("music", model.VenueHome)
	require.NotEmpty(t, items)
	items[0].Item = "mutated"
	require.Equal(t, "Instrument", Get("music", model.VenueHome)[0].Item)
}

func TestGet_DoesNotShareCapacityPointers(t *testing.T) {
	items := Get("yoga", model.VenueHome)
	mutated := false
	for i := range items {
		if items[i].MaxQuantity != nil {
			*items[i].MaxQuantity = 99
			mutated = true
		}
	}
	require.True(t, mutated, "yoga home set is expected to carry bounded items")

	// Writes through the returned pointers must never reach the catalog.
	for _, it := range Get("yoga", model.VenueHome) {
		if it.MaxQuantity != nil {
			require.NotEqual(t, 99, *it.MaxQuantity)
		}
	}
}

func TestHas(t *testing.T) {
	require.True(t, Has("cooking"))
	require.True(t, Has("Thai Cooking Night"))
	require.False(t, Has("astrophysics"))
}

func TestGet_Determinism(t *testing.T) {
	venues := []model.VenueType{model.VenueHome, model.VenueStudio}
	rapid.Check(t, func(t *rapid.T) {
		category := rapid.String().Draw(t, "category")
		venue := rapid.SampledFrom(venues).Draw(t, "venue")
		first := Get(category, venue)
		second := Get(category, venue)
		require.Equal(t, first, second)
	})
}

func TestCatalog_ItemInvariants(t *testing.T) {
	// Every catalog entry must satisfy the material invariants so that
	// materializing a template always yields valid materials.
	for _, e := range catalog {
		for _, items := range [][]model.TemplateItem{e.home, e.studio} {
			for _, it := range items {
				require.NotEmpty(t, it.Item, "key %s", e.key)
				require.True(t, it.RegistryType.Valid(), "key %s item %s", e.key, it.Item)
				require.True(t, it.Provider.Valid(), "key %s item %s", e.key, it.Item)
				if it.MaxQuantity != nil {
					require.GreaterOrEqual(t, *it.MaxQuantity, 1, "key %s item %s", e.key, it.Item)
				}
			}
		}
	}
}
