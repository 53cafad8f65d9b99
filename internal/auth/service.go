// Service layer of the internal package auth, verifies access tokens issued by the CRUD layer.

package auth

import (
	"Tracker/internal/entity"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrMalformedToken is returned when the token can't be parsed.
	ErrMalformedToken = errors.New("malformed token")
	// ErrExpiredToken is returned when the token is outside of its validity window.
	ErrExpiredToken = errors.New("expired token")
	// ErrInvalidToken is returned when the signature or the claims don't hold.
	ErrInvalidToken = errors.New("invalid token")
)

// AccessTokenType is the only token_type accepted at handshake.
const AccessTokenType = "access"

// AccessClaims mirrors the claims of access tokens issued by the CRUD layer.
type AccessClaims struct {
	TokenType string `json:"token_type,omitempty"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Verifier resolves a bearer token into an Identity.
// It has no side effects and is safe for concurrent use.
type Verifier interface {
	Verify(token string, now time.Time) (entity.Identity, error)
}

type verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns a Verifier for HS256 tokens signed with secret.
func NewVerifier(secret string) Verifier {
	return verifier{
		secret: []byte(secret),
		// Time based claims are checked against the caller's clock below
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation()),
	}
}

func (v verifier) Verify(token string, now time.Time) (entity.Identity, error) {
	if token == "" {
		return entity.Identity{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}
	var claims AccessClaims
	_, jwterr := v.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		// Check the signing method
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method found: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if jwterr != nil {
		if errors.Is(jwterr, jwt.ErrTokenMalformed) {
			return entity.Identity{}, fmt.Errorf("%w: %v", ErrMalformedToken, jwterr)
		}
		return entity.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, jwterr)
	}

	if !claims.VerifyExpiresAt(now, true) {
		return entity.Identity{}, fmt.Errorf("%w: token expired or has no exp claim", ErrExpiredToken)
	}
	if !claims.VerifyNotBefore(now, false) {
		return entity.Identity{}, fmt.Errorf("%w: token used before nbf", ErrExpiredToken)
	}
	if claims.TokenType != "" && claims.TokenType != AccessTokenType {
		return entity.Identity{}, fmt.Errorf("%w: token_type %q is not accepted", ErrInvalidToken, claims.TokenType)
	}
	if claims.UserID <= 0 {
		return entity.Identity{}, fmt.Errorf("%w: missing user_id claim", ErrInvalidToken)
	}
	return entity.Identity{ID: entity.UserID(claims.UserID), Username: claims.Username}, nil
}
