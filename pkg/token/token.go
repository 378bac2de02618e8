// Package token implements the bearer token signer (C1): a symmetric
// HMAC-SHA256 (HS256-only) signer over the verification claim set.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel verify failures: verify fails with one of "expired" or
// "invalid" (signature mismatch, malformed, wrong algorithm).
var (
	ErrExpired = errors.New("expired")
	ErrInvalid = errors.New("invalid")
)

// Claims is the full claim set minted on ACCEPT.
type Claims struct {
	AgentID      string  `json:"agent_id"`
	VerifiedAt   int64   `json:"verified_at"`
	ExpiresIn    int64   `json:"expires_in"`
	StagesPassed []int   `json:"stages_passed"`
	jwt.RegisteredClaims
}

// Signer signs and verifies bearer tokens with a process-wide HMAC secret.
// Mirrors the single-purpose, stateless collaborator shape of tarsy's other
// C-prefixed components: no internal state beyond the secret and a TTL.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner returns a Signer using secret for HMAC-SHA256 and ttl as the
// token lifetime (spec default: 3600s).
func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

// Sign mints a signed token for agentID having passed the stages in
// stagesPassed (expected [1,2,3,4] on a full ACCEPT).
func (s *Signer) Sign(agentID string, stagesPassed []int) (string, error) {
	now := time.Now().Unix()
	exp := now + int64(s.ttl.Seconds())

	claims := Claims{
		AgentID:      agentID,
		VerifiedAt:   now,
		ExpiresIn:    int64(s.ttl.Seconds()),
		StagesPassed: stagesPassed,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Unix(now, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(exp, 0)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates token, returning its claims. Only HS256 is
// accepted; any other signing algorithm is rejected as ErrInvalid.
func (s *Signer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalid, t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}

	return claims, nil
}
