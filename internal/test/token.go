package test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Secret shared by tests signing and verifying access tokens.
const TokenSecret = "tracker-test-secret"

// AccessToken signs an access token the way the CRUD layer does.
func AccessToken(t testing.TB, userID int64, username string, ttl time.Duration) string {
	t.Helper()
	return SignClaims(t, TokenSecret, jwt.MapClaims{
		"token_type": "access",
		"jti":        uuid.NewString(),
		"user_id":    userID,
		"username":   username,
		"iat":        time.Now().Unix(),
		"exp":        time.Now().Add(ttl).Unix(),
	})
}

// SignClaims signs arbitrary claims with HS256.
func SignClaims(t testing.TB, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
