package utils

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionTokenSecret signs the edit-session tokens issued when a session
// opens. It should come from the environment in any real deployment.
var SessionTokenSecret = []byte(os.Getenv("SESSION_TOKEN_SECRET"))

// Claims represents the session token claims.
type Claims struct {
	SchemaID string `json:"schema_id"`
	jwt.RegisteredClaims
}

// GenerateSessionToken creates a signed token binding requests to one edit
// session. Tokens outlive nothing: the session registry is authoritative.
func GenerateSessionToken(sessionID uuid.UUID, schemaID string) (string, error) {
	claims := &Claims{
		SchemaID: schemaID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(SessionTokenSecret)
}

// VerifySessionToken parses and validates a session token, returning the
// session id it was issued for.
func VerifySessionToken(tokenStr string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return SessionTokenSecret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrSignatureInvalid
	}
	return uuid.Parse(claims.Subject)
}
