package domain

// AuthContext carries the caller identity attached to a request. Identity is
// established out-of-band (a trusted gateway header or a signed identity
// token); this service never defaults it.
type AuthContext struct {
	UserID string `json:"user_id"`
}

// IdentityClaims are the claims carried by a signed identity token.
type IdentityClaims struct {
	UserID    string
	IssuedAt  int64
	ExpiresAt int64
}
