package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clearfile-labs/drive-core/internal/core/domain"
	"github.com/clearfile-labs/drive-core/internal/core/ports/driven"
)

// Ensure Adapter implements IdentityVerifier
var _ driven.IdentityVerifier = (*Adapter)(nil)

// jwtClaims wraps domain.IdentityClaims for JWT compatibility
type jwtClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Adapter verifies HS256-signed identity tokens minted by the upstream
// gateway. The secret is shared with the gateway out-of-band.
type Adapter struct {
	jwtSecret []byte
}

// NewAdapter creates a new identity verifier with the given shared secret
func NewAdapter(jwtSecret string) *Adapter {
	return &Adapter{jwtSecret: []byte(jwtSecret)}
}

// Verify validates an identity token and extracts its claims
func (a *Adapter) Verify(tokenString string) (*domain.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("identity token missing user_id")
	}

	out := &domain.IdentityClaims{UserID: claims.UserID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}

// MintToken creates a signed identity token. The service never calls this in
// production; it exists for tests and local tooling standing in for the
// gateway.
func (a *Adapter) MintToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}
