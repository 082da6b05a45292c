// Package auth validates access tokens minted by the external identity
// provider. Account management (email, password, signup) lives entirely
// in that provider; this API only needs to verify a bearer token and
// read the subject, username and tier claims out of it.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account tiers as they appear in the tier claim.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// AccessTokenExpiry is the lifetime of tokens minted by GenerateAccessToken.
const AccessTokenExpiry = time.Hour

// DefaultLeeway for clock skew during token validation.
const DefaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// ErrEmptyUserID is returned when userID is empty.
var ErrEmptyUserID = errors.New("userID cannot be empty")

// Claims are the identity-provider claims this API consumes.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
	Tier     string `json:"tier,omitempty"` // "free" or "pro"; absent means free
}

// Service validates identity-provider tokens.
// Supports dual-key rotation: tokens are signed with currentSecret but
// can be validated with either currentSecret or previousSecret, so the
// provider can rotate keys without invalidating live sessions.
type Service struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewService creates a Service with a single signing secret.
func NewService(secret string) *Service {
	return &Service{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewServiceWithRotation creates a Service with dual-key support.
// Pass an empty previousSecret when no rotation is in progress.
func NewServiceWithRotation(currentSecret, previousSecret string) *Service {
	svc := &Service{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// GenerateAccessToken mints an access token the way the identity
// provider does. Used by tests and local tooling; production tokens
// come from the provider itself.
func (s *Service) GenerateAccessToken(userID, username, tier string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenExpiry)),
		},
		Username: username,
		Tier:     tier,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateToken parses and validates a token, returning its claims.
// Tries currentSecret first, then previousSecret if set.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := s.parseWithSecret(tokenString, s.currentSecret)
	if err == nil {
		return claims, nil
	}

	if s.previousSecret != nil {
		if claims, prevErr := s.parseWithSecret(tokenString, s.previousSecret); prevErr == nil {
			return claims, nil
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

// parseWithSecret validates against a single secret, rejecting any
// signing method other than HS256.
func (s *Service) parseWithSecret(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TierOf normalizes the tier claim: anything other than "pro" is free.
func TierOf(claims *Claims) string {
	if claims != nil && claims.Tier == TierPro {
		return TierPro
	}
	return TierFree
}
