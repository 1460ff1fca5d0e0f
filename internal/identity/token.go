package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pockets/internal/core"
)

// TokenVerifier validates HS256 bearer tokens and extracts the principal.
// Claims: sub (user id), email, grp (active group).
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a token string.
func (v *TokenVerifier) Verify(tokenString string) (Principal, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, fmt.Errorf("%w: token expired", core.ErrNotAuthenticated)
		}
		return Principal{}, fmt.Errorf("%w: invalid token", core.ErrNotAuthenticated)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: invalid token claims", core.ErrNotAuthenticated)
	}

	p := Principal{}
	if sub, ok := claims["sub"].(string); ok {
		p.ID = sub
	}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	if grp, ok := claims["grp"].(string); ok {
		p.ActiveGroup = grp
	}
	if p.ID == "" {
		return Principal{}, fmt.Errorf("%w: token has no subject", core.ErrNotAuthenticated)
	}
	return p, nil
}

// Issue signs a token for the principal. Used by tests and local tooling;
// production tokens come from the identity provider that fronts this
// service.
func (v *TokenVerifier) Issue(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   p.ID,
		"email": p.Email,
		"grp":   p.ActiveGroup,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
