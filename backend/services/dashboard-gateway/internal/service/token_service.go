package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "dashboard-gateway"

// ErrInvalidToken covers malformed, expired and foreign tokens.
var ErrInvalidToken = errors.New("token: invalid")

// Claims is the payload of the gateway session token. The session id lives in
// the registered jti claim.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionID returns the gateway session the token is bound to.
func (c *Claims) SessionID() string { return c.ID }

// TokenService signs and verifies session tokens with HS256.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
	parser    *jwt.Parser
}

// NewTokenService returns configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = 12 * time.Hour
	}
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// TTL is the lifetime of issued tokens.
func (t *TokenService) TTL() time.Duration { return t.expiresIn }

// GenerateToken issues a JWT bound to a gateway session.
func (t *TokenService) GenerateToken(sessionID string, userID int64, role string) (string, error) {
	if sessionID == "" {
		return "", errors.New("token: session id is required")
	}
	now := time.Now().UTC()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}).SignedString(t.secret)
}

// ValidateToken verifies the signature, issuer and expiry of tokenString.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := t.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrInvalidToken)
	}
	return claims, nil
}
