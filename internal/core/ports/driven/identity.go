package driven

import "github.com/clearfile-labs/drive-core/internal/core/domain"

// IdentityVerifier validates signed caller-identity tokens minted by the
// upstream gateway. This service verifies identity, it never issues it.
type IdentityVerifier interface {
	// Verify parses and validates an identity token, returning its claims.
	Verify(token string) (*domain.IdentityClaims, error)
}
