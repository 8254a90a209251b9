package model

// CreateEventRequest is the payload for creating a new event.
// The organizer is taken from the authenticated caller, not the body.
type CreateEventRequest struct {
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	VenueType VenueType `json:"venue_type"`
}

// UpdateRegistryConfigRequest is a partial update of the registry settings.
// Nil fields are left unchanged.
type UpdateRegistryConfigRequest struct {
	Enabled    *bool       `json:"enabled,omitempty"`
	VenueType  *VenueType  `json:"venue_type,omitempty"`
	Visibility *Visibility `json:"visibility,omitempty"`
}

// ReplaceFromTemplateRequest asks for the material list to be replaced
// wholesale with the catalog template for the given category and venue.
type ReplaceFromTemplateRequest struct {
	Category  string    `json:"category"`
	VenueType VenueType `json:"venue_type"`
}

// AddMaterialRequest is the payload for adding a material to a registry.
type AddMaterialRequest struct {
	Item                string       `json:"item"`
	QuantityDescription string       `json:"quantity_description"`
	MaxQuantity         *int         `json:"max_quantity"`
	IsRequired          bool         `json:"is_required"`
	Provider            Provider     `json:"provider"`
	Notes               string       `json:"notes"`
	RegistryType        RegistryType `json:"registry_type"`
}

// UpdateMaterialRequest is a partial update of a material definition.
// Nil fields are left unchanged. MaxQuantityUnlimited clears MaxQuantity.
type UpdateMaterialRequest struct {
	Item                 *string       `json:"item,omitempty"`
	QuantityDescription  *string       `json:"quantity_description,omitempty"`
	MaxQuantity          *int          `json:"max_quantity,omitempty"`
	MaxQuantityUnlimited bool          `json:"max_quantity_unlimited,omitempty"`
	IsRequired           *bool         `json:"is_required,omitempty"`
	Provider             *Provider     `json:"provider,omitempty"`
	Notes                *string       `json:"notes,omitempty"`
	RegistryType         *RegistryType `json:"registry_type,omitempty"`
}

// ClaimRequest is the payload for claiming a quantity of a material.
type ClaimRequest struct {
	ClaimType ClaimType `json:"claim_type"`
	Quantity  int       `json:"quantity"`
	Notes     string    `json:"notes"`
}

// UpdateClaimRequest changes the quantity and/or notes of an existing claim.
// Material and owner are immutable.
type UpdateClaimRequest struct {
	Quantity int     `json:"quantity"`
	Notes    *string `json:"notes,omitempty"`
}

// RemainingCapacityResponse reports remaining capacity for one material.
// Remaining nil means the material is unlimited.
type RemainingCapacityResponse struct {
	MaterialID string `json:"material_id"`
	Remaining  *int   `json:"remaining"`
}

// TemplateResponse is the payload for template browsing.
type TemplateResponse struct {
	Category  string         `json:"category"`
	VenueType VenueType      `json:"venue_type"`
	Found     bool           `json:"found"`
	Items     []TemplateItem `json:"items"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
}
