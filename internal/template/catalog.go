// Package template holds the static material catalog used to seed a registry
// from an event's category and venue type.
package template

import (
	"strings"

	"github.com/FlowBondTech/harmonious-habitats-sub000/internal/model"
)

// entry pairs one canonical category key with its per-venue item lists.
// Entries live in a slice, not a map: declaration order is the tie-break
// priority when a category substring-matches more than one key.
type entry struct {
	key    string
	home   []model.TemplateItem
	studio []model.TemplateItem
}

func limit(n int) *int { return &n }

var catalog = []entry{
	{
		key: "yoga",
		home: []model.TemplateItem{
			{Item: "Yoga Mat", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Yoga Blocks", QuantityDescription: "2 per person", Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Blanket", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Spare Yoga Mat", MaxQuantity: limit(3), Provider: model.ProviderParticipant, Notes: "For guests who forget theirs", RegistryType: model.RegistryLending},
			{Item: "Bolster", MaxQuantity: limit(4), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Water Bottle", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Towel", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, Notes: "Mats and props provided by the studio", RegistryType: model.RegistryRequired},
			{Item: "Yoga Strap", MaxQuantity: limit(6), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
	},
	{
		key: "music",
		home: []model.TemplateItem{
			{Item: "Instrument", QuantityDescription: "your own", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Music Stand", MaxQuantity: limit(4), Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Extension Cord", MaxQuantity: limit(2), Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Spare Guitar", MaxQuantity: limit(2), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
			{Item: "Small Amp", MaxQuantity: limit(2), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Instrument", QuantityDescription: "your own", IsRequired: true, Provider: model.ProviderParticipant, Notes: "Amps, stands and PA provided", RegistryType: model.RegistryRequired},
			{Item: "Sheet Music Copies", QuantityDescription: "1 set per person", Provider: model.ProviderOrganizer, RegistryType: model.RegistryRequired},
			{Item: "Spare Cables", MaxQuantity: limit(4), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
	},
	{
		key: "garden",
		home: []model.TemplateItem{
			{Item: "Work Gloves", QuantityDescription: "1 pair per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Hand Trowel", QuantityDescription: "1 per person", Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Watering Can", MaxQuantity: limit(3), Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Wheelbarrow", MaxQuantity: limit(1), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
			{Item: "Pruning Shears", MaxQuantity: limit(4), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Work Gloves", QuantityDescription: "1 pair per person", IsRequired: true, Provider: model.ProviderParticipant, Notes: "Tools provided on site", RegistryType: model.RegistryRequired},
			{Item: "Sun Hat", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Seed Packets", MaxQuantity: limit(10), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
	},
	{
		key: "cooking",
		home: []model.TemplateItem{
			{Item: "Apron", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Chef's Knife", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Cutting Board", MaxQuantity: limit(6), Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Stand Mixer", MaxQuantity: limit(1), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
			{Item: "Extra Mixing Bowls", MaxQuantity: limit(4), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Apron", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, Notes: "Knives and equipment provided", RegistryType: model.RegistryRequired},
			{Item: "Containers for Leftovers", QuantityDescription: "a few per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Specialty Spices", MaxQuantity: limit(5), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
	},
	{
		key: "art",
		home: []model.TemplateItem{
			{Item: "Sketchbook", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Brushes", QuantityDescription: "a set per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Drop Cloth", MaxQuantity: limit(2), Provider: model.ProviderEither, RegistryType: model.RegistryRequired},
			{Item: "Easel", MaxQuantity: limit(3), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
			{Item: "Spare Paint Set", MaxQuantity: limit(2), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Apron or Old Shirt", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, Notes: "Easels and paint provided", RegistryType: model.RegistryRequired},
			{Item: "Reference Photos", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Specialty Brushes", MaxQuantity: limit(4), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
	},
	{
		key: "meditation",
		home: []model.TemplateItem{
			{Item: "Cushion", QuantityDescription: "1 per person", IsRequired: true, Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Blanket", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
			{Item: "Spare Cushion", MaxQuantity: limit(3), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
			{Item: "Singing Bowl", MaxQuantity: limit(1), Provider: model.ProviderParticipant, RegistryType: model.RegistryLending},
		},
		studio: []model.TemplateItem{
			{Item: "Comfortable Layers", QuantityDescription: "as needed", IsRequired: true, Provider: model.ProviderParticipant, Notes: "Cushions and mats provided", RegistryType: model.RegistryRequired},
			{Item: "Journal", QuantityDescription: "1 per person", Provider: model.ProviderParticipant, RegistryType: model.RegistryRequired},
		},
	},
}

// match finds the first catalog entry whose key contains the normalized
// category, or is contained by it. "restorative yoga workshop" therefore
// resolves to "yoga". An empty category never matches.
func match(category string) (entry, bool) {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return entry{}, false
	}
	for _, e := range catalog {
		if strings.Contains(c, e.key) || strings.Contains(e.key, c) {
			return e, true
		}
	}
	return entry{}, false
}

// Get returns the template item list for a category and venue type. An
// unknown category yields an empty list, never an error. The returned slice
// is a copy, MaxQuantity pointers included; callers may mutate it freely.
func Get(category string, venue model.VenueType) []model.TemplateItem {
	e, ok := match(category)
	if !ok {
		return []model.TemplateItem{}
	}
	src := e.home
	if venue == model.VenueStudio {
		src = e.studio
	}
	items := make([]model.TemplateItem, len(src))
	copy(items, src)
	for i := range items {
		if items[i].MaxQuantity != nil {
			v := *items[i].MaxQuantity
			items[i].MaxQuantity = &v
		}
	}
	return items
}

// Has reports whether the category resolves to any catalog entry.
func Has(category string) bool {
	_, ok := match(category)
	return ok
}
