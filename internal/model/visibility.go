package model

// CanViewClaimDetails decides whether a viewer may see the identity and notes
// attached to other users' claims. The organizer always can; everyone can
// under a public policy. This gates the read path only; claim creation is
// never affected by the visibility policy.
func CanViewClaimDetails(cfg RegistryConfig, role ViewerRole) bool {
	if role == RoleOrganizer {
		return true
	}
	return cfg.Visibility == VisibilityPublic
}

// RedactClaim strips the claimant identity and notes from a claim, keeping
// the quantity so capacity math stays visible to every viewer.
func RedactClaim(c Claim) Claim {
	c.UserID = ""
	c.Notes = ""
	return c
}
