package client

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer = "SurrealDB"
	tokenExpiry = time.Hour
)

// rootClaims identify a root user session issued by an embedded datastore.
type rootClaims struct {
	jwt.RegisteredClaims
	User string `json:"user"`
}

func newSigningKey() ([]byte, error) {
	key := make([]byte, 64)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

func newSalt() string {
	return uuid.New().String()
}

func hashPassword(salt, password string) string {
	hasher := sha256.New()
	hasher.Write([]byte(salt + password))
	return hex.EncodeToString(hasher.Sum(nil))
}

func issueToken(key []byte, user string) (string, error) {
	return issueTokenAt(key, user, time.Now().UTC())
}

func issueTokenAt(key []byte, user string, now time.Time) (string, error) {
	claims := rootClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenExpiry)),
		},
		User: user,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verifySession checks the token a session was granted at signin. Only the
// signature and issuer are checked; a signed-in session does not expire.
func verifySession(key []byte, tokenString string) (*rootClaims, error) {
	var claims rootClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, wrapError(KindAuth, err, "There was a problem with authentication")
	}
	if claims.Issuer != tokenIssuer {
		return nil, newError(KindAuth, "There was a problem with authentication")
	}
	return &claims, nil
}
