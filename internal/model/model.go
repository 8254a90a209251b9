// Package model defines the core domain types for the event registry system.
package model

import "time"

// VenueType selects which template item set applies to an event.
type VenueType string

const (
	// VenueHome is an informal venue where participants bring their own gear.
	VenueHome VenueType = "home"
	// VenueStudio is a venue that provides most equipment itself.
	VenueStudio VenueType = "studio"
)

// Valid reports whether v is a known venue type.
func (v VenueType) Valid() bool {
	return v == VenueHome || v == VenueStudio
}

// Visibility controls who may see the identity and notes on claims.
type Visibility string

const (
	VisibilityPublic        Visibility = "public"
	VisibilityOrganizerOnly Visibility = "organizer_only"
)

// Valid reports whether v is a known visibility policy.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityOrganizerOnly
}

// Provider says who is expected to supply a material. Informational only.
type Provider string

const (
	ProviderParticipant Provider = "participant"
	ProviderOrganizer   Provider = "organizer"
	ProviderEither      Provider = "either"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderParticipant || p == ProviderOrganizer || p == ProviderEither
}

// RegistryType partitions materials into two independently rendered groups.
// It has no effect on allocation semantics.
type RegistryType string

const (
	// RegistryRequired marks things the event needs.
	RegistryRequired RegistryType = "required"
	// RegistryLending marks optional extras participants offer to share.
	RegistryLending RegistryType = "lending"
)

// Valid reports whether t is a known registry type.
func (t RegistryType) Valid() bool {
	return t == RegistryRequired || t == RegistryLending
}

// ClaimType records which registry section a claim was made from.
// Capacity is tracked per material, not per claim type.
type ClaimType string

const (
	ClaimPersonal ClaimType = "personal"
	ClaimLending  ClaimType = "lending"
)

// Valid reports whether t is a known claim type.
func (t ClaimType) Valid() bool {
	return t == ClaimPersonal || t == ClaimLending
}

// ClaimStatus is the lifecycle state of a claim. Cancelled is terminal;
// only claimed claims count against capacity.
type ClaimStatus string

const (
	ClaimStatusClaimed   ClaimStatus = "claimed"
	ClaimStatusCancelled ClaimStatus = "cancelled"
)

// ViewerRole is the role of the user reading the registry.
type ViewerRole string

const (
	RoleOrganizer   ViewerRole = "organizer"
	RoleParticipant ViewerRole = "participant"
)

// Event is the minimal event record the registry needs: ownership for
// authorization and a category for template seeding.
type Event struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	VenueType   VenueType `json:"venue_type"`
	CreatedAt   time.Time `json:"created_at"`
}

// RegistryConfig holds the organizer-facing registry settings for one event.
type RegistryConfig struct {
	EventID    string     `json:"event_id"`
	Enabled    bool       `json:"enabled"`
	VenueType  VenueType  `json:"venue_type"`
	Visibility Visibility `json:"visibility"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// DefaultRegistryConfig is the config an event starts with before the
// organizer touches any registry setting.
func DefaultRegistryConfig(eventID string) RegistryConfig {
	return RegistryConfig{
		EventID:    eventID,
		Enabled:    false,
		VenueType:  VenueHome,
		Visibility: VisibilityPublic,
	}
}

// Material is a registry item definition: what's needed or offered, and its
// capacity. MaxQuantity nil means unlimited.
type Material struct {
	ID                  string       `json:"id"`
	EventID             string       `json:"event_id"`
	Item                string       `json:"item"`
	QuantityDescription string       `json:"quantity_description,omitempty"`
	MaxQuantity         *int         `json:"max_quantity"`
	IsRequired          bool         `json:"is_required"`
	Provider            Provider     `json:"provider"`
	Notes               string       `json:"notes,omitempty"`
	RegistryType        RegistryType `json:"registry_type"`
	Visibility          Visibility   `json:"visibility"`
	IsTemplateItem      bool         `json:"is_template_item"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// Claim is a participant's pledge to supply some quantity of a material.
type Claim struct {
	ID         string      `json:"id"`
	MaterialID string      `json:"material_id"`
	UserID     string      `json:"user_id"`
	ClaimType  ClaimType   `json:"claim_type"`
	Quantity   int         `json:"quantity"`
	Notes      string      `json:"notes,omitempty"`
	Status     ClaimStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// TemplateItem is a catalog entry: a material definition without identifiers,
// ready to be materialized into a Material for a concrete event.
type TemplateItem struct {
	Item                string       `json:"item"`
	QuantityDescription string       `json:"quantity_description,omitempty"`
	MaxQuantity         *int         `json:"max_quantity"`
	IsRequired          bool         `json:"is_required"`
	Provider            Provider     `json:"provider"`
	Notes               string       `json:"notes,omitempty"`
	RegistryType        RegistryType `json:"registry_type"`
}

// MaterialWithClaims is the read-model row for the registry view: a material,
// its remaining capacity (nil = unlimited) and its visibility-filtered claims.
type MaterialWithClaims struct {
	Material
	Remaining *int    `json:"remaining"`
	Claims    []Claim `json:"claims"`
}

// RegistryView is the full registry read model for one event.
type RegistryView struct {
	Config    RegistryConfig       `json:"config"`
	Materials []MaterialWithClaims `json:"materials"`
}

// RequiredMaterials returns the required partition of the view. Partitions
// are derived on demand; the material list stays the single source of truth.
func (v RegistryView) RequiredMaterials() []MaterialWithClaims {
	return filterByType(v.Materials, RegistryRequired)
}

// LendingMaterials returns the lending partition of the view.
func (v RegistryView) LendingMaterials() []MaterialWithClaims {
	return filterByType(v.Materials, RegistryLending)
}

func filterByType(in []MaterialWithClaims, t RegistryType) []MaterialWithClaims {
	out := make([]MaterialWithClaims, 0, len(in))
	for _, m := range in {
		if m.RegistryType == t {
			out = append(out, m)
		}
	}
	return out
}
