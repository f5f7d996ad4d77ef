// Package auth issues and validates the HS256 JWTs that guard the API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the typ claim. Only access tokens pass the
// auth middleware; refresh tokens exist to mint new access tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Lifetimes per token type.
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// DefaultLeeway absorbs clock skew between token issuer and validator.
const DefaultLeeway = 30 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
)

// Claims is the registered claim set plus the token type. The subject
// holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// JWTService signs tokens with the current secret and accepts tokens
// signed with either the current or the previous secret, so secrets can
// rotate without invalidating every session at once.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewJWTService creates a service with a single signing secret.
func NewJWTService(secret string) *JWTService {
	return NewJWTServiceWithRotation(secret, "")
}

// NewJWTServiceWithLeeway creates a service with a custom validation
// leeway instead of DefaultLeeway.
func NewJWTServiceWithLeeway(secret string, leeway time.Duration) *JWTService {
	svc := NewJWTServiceWithRotation(secret, "")
	svc.leeway = leeway
	return svc
}

// NewJWTServiceWithRotation creates a service mid-rotation: new tokens
// are signed with currentSecret, while tokens signed with previousSecret
// still validate. Pass an empty previousSecret when no rotation is in
// progress.
func NewJWTServiceWithRotation(currentSecret, previousSecret string) *JWTService {
	svc := &JWTService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// GenerateAccessToken mints a short-lived access token for the user.
func (s *JWTService) GenerateAccessToken(userID string) (string, error) {
	return s.issue(userID, TokenTypeAccess, AccessTokenExpiry)
}

// GenerateRefreshToken mints a long-lived refresh token for the user.
func (s *JWTService) GenerateRefreshToken(userID string) (string, error) {
	return s.issue(userID, TokenTypeRefresh, RefreshTokenExpiry)
}

func (s *JWTService) issue(userID, tokenType string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Type: tokenType,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.currentSecret)
}

// ValidateToken parses the token against every accepted secret, current
// first. Expiry under every secret maps to ErrExpiredToken; anything
// else to ErrInvalidToken.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	secrets := [][]byte{s.currentSecret}
	if s.previousSecret != nil {
		secrets = append(secrets, s.previousSecret)
	}

	var lastErr error
	for _, secret := range secrets {
		claims, err := s.parseWith(tokenString, secret)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

func (s *JWTService) parseWith(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Reject alg substitution, including alg=none
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
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
