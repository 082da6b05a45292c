// Package session implements the stateless, HMAC-authenticated session
// token that carries a game's hidden answers to the client and back.
// Any server instance holding the shared secret can validate tokens
// issued by any other instance, so no session table is needed.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Token validation errors. Handlers must report both as the same
// "invalid session" response; the distinction exists only for logging.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
	ErrEmptySecret  = errors.New("session secret cannot be empty")
	ErrNoRounds     = errors.New("session must contain at least one round")
)

// DefaultMaxAge is the default staleness bound for issued tokens.
const DefaultMaxAge = 24 * time.Hour

// SecretRound is one round's hidden answer. It exists only inside a
// session token and is never persisted or sent to the client before the
// round is revealed.
type SecretRound struct {
	RoundNumber int     `cbor:"1,keyasint"`
	FIPS        string  `cbor:"2,keyasint"`
	County      string  `cbor:"3,keyasint"`
	State       string  `cbor:"4,keyasint"`
	Town        *string `cbor:"5,keyasint,omitempty"`
	Margin      float64 `cbor:"6,keyasint"`
}

// envelope is the signed token payload: the secret rounds plus the
// issue time used to enforce the staleness bound.
type envelope struct {
	Rounds   []SecretRound `cbor:"1,keyasint"`
	IssuedAt int64         `cbor:"2,keyasint"`
}

// Codec encodes and authenticates session tokens.
//
// Token format: base64url(cbor(envelope)) + "." + base64url(hmac-sha256).
// The payload is serialized with CBOR Core Deterministic encoding so the
// MAC is always computed over byte-identical input for equal content.
type Codec struct {
	secret []byte
	maxAge time.Duration
	encode cbor.EncMode
	decode cbor.DecMode
	now    func() time.Time
}

// NewCodec creates a Codec with the given shared secret and staleness
// bound. A maxAge of 0 disables expiry.
func NewCodec(secret string, maxAge time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	decMode, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		return nil, err
	}

	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		encode: encMode,
		decode: decMode,
		now:    time.Now,
	}, nil
}

// Encode serializes and signs the given rounds into an opaque token.
func (c *Codec) Encode(rounds []SecretRound) (string, error) {
	if len(rounds) == 0 {
		return "", ErrNoRounds
	}

	payload, err := c.encode.Marshal(envelope{
		Rounds:   rounds,
		IssuedAt: c.now().Unix(),
	})
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Decode authenticates a token and returns its secret rounds.
//
// The token is split on the last dot so a payload containing the
// separator cannot confuse parsing. The MAC is recomputed over the
// recovered payload and compared in constant time before any
// deserialization happens. All malformed-input and bad-signature paths
// return ErrInvalidToken uniformly; only staleness is distinguished.
func (c *Codec) Decode(token string) ([]SecretRound, error) {
	dot := strings.LastIndex(token, ".")
	if dot <= 0 || dot == len(token)-1 {
		return nil, ErrInvalidToken
	}

	encoded := token[:dot]
	sig, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	if err != nil {
		return nil, ErrInvalidToken
	}

	expected, err := base64.RawURLEncoding.DecodeString(c.sign(encoded))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !hmac.Equal(sig, expected) {
		return nil, ErrInvalidToken
	}

	// Authenticated. Safe to deserialize.
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var env envelope
	if err := c.decode.Unmarshal(payload, &env); err != nil {
		return nil, ErrInvalidToken
	}
	if len(env.Rounds) == 0 {
		return nil, ErrInvalidToken
	}

	// Round ordinals must be 1-based and unique within a session.
	seen := make(map[int]bool, len(env.Rounds))
	for _, r := range env.Rounds {
		if r.RoundNumber < 1 || seen[r.RoundNumber] {
			return nil, ErrInvalidToken
		}
		seen[r.RoundNumber] = true
	}

	if c.maxAge > 0 {
		issued := time.Unix(env.IssuedAt, 0)
		if c.now().Sub(issued) > c.maxAge {
			return nil, ErrExpiredToken
		}
	}

	return env.Rounds, nil
}

// sign computes the base64url-encoded HMAC-SHA256 of the encoded payload.
func (c *Codec) sign(encodedPayload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encodedPayload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
