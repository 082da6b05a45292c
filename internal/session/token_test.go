package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testRounds() []SecretRound {
	town := "Springfield"
	return []SecretRound{
		{RoundNumber: 1, FIPS: "17031", County: "Cook County", State: "Illinois", Margin: -47.0},
		{RoundNumber: 2, FIPS: "48201", County: "Harris County", State: "Texas", Town: &town, Margin: -18.5},
		{RoundNumber: 3, FIPS: "31039", County: "Cuming County", State: "Nebraska", Margin: 62.3},
	}
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec("test-secret-key", time.Hour)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	return codec
}

func TestNewCodec_EmptySecret(t *testing.T) {
	_, err := NewCodec("", time.Hour)
	if !errors.Is(err, ErrEmptySecret) {
		t.Errorf("expected ErrEmptySecret, got %v", err)
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t)
	rounds := testRounds()

	token, err := codec.Encode(rounds)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if len(decoded) != len(rounds) {
		t.Fatalf("expected %d rounds, got %d", len(rounds), len(decoded))
	}
	for i, want := range rounds {
		got := decoded[i]
		if got.RoundNumber != want.RoundNumber || got.FIPS != want.FIPS ||
			got.County != want.County || got.State != want.State ||
			got.Margin != want.Margin {
			t.Errorf("round %d mismatch: got %+v, want %+v", i, got, want)
		}
		if (got.Town == nil) != (want.Town == nil) {
			t.Errorf("round %d town presence mismatch", i)
		} else if got.Town != nil && *got.Town != *want.Town {
			t.Errorf("round %d town mismatch: got %q, want %q", i, *got.Town, *want.Town)
		}
	}
}

func TestCodec_Encode_NoRounds(t *testing.T) {
	codec := newTestCodec(t)
	if _, err := codec.Encode(nil); !errors.Is(err, ErrNoRounds) {
		t.Errorf("expected ErrNoRounds, got %v", err)
	}
}

func TestCodec_Encode_Deterministic(t *testing.T) {
	codec := newTestCodec(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return fixed }

	a, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	b, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if a != b {
		t.Error("expected identical tokens for identical content and time")
	}
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	other, err := NewCodec("a-different-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}
	if _, err := other.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong key, got %v", err)
	}
}

func TestCodec_Decode_TamperedPayload(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Flip one payload character, keeping the signature.
	dot := strings.LastIndex(token, ".")
	payload := []byte(token[:dot])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := string(payload) + token[dot:]

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered payload, got %v", err)
	}
}

func TestCodec_Decode_TamperedSignature(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	sig := []byte(token[strings.LastIndex(token, ".")+1:])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := token[:strings.LastIndex(token, ".")+1] + string(sig)

	if _, err := codec.Decode(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestCodec_Decode_Malformed(t *testing.T) {
	codec := newTestCodec(t)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"only separator", "."},
		{"empty payload", ".abc"},
		{"empty signature", "abc."},
		{"invalid base64 signature", "abc.!!!"},
		{"garbage both halves", "not-a-payload.not-a-signature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decode(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestCodec_Decode_DuplicateOrdinals(t *testing.T) {
	codec := newTestCodec(t)

	rounds := testRounds()
	rounds[2].RoundNumber = 1
	token, err := codec.Encode(rounds)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for duplicate ordinals, got %v", err)
	}
}

func TestCodec_Decode_ZeroOrdinal(t *testing.T) {
	codec := newTestCodec(t)

	rounds := testRounds()
	rounds[0].RoundNumber = 0
	token, err := codec.Encode(rounds)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for zero ordinal, got %v", err)
	}
}

func TestCodec_Decode_Expired(t *testing.T) {
	codec := newTestCodec(t)

	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// Within the bound
	codec.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := codec.Decode(token); err != nil {
		t.Errorf("expected valid token within maxAge, got %v", err)
	}

	// Beyond the bound
	codec.now = func() time.Time { return issued.Add(2 * time.Hour) }
	if _, err := codec.Decode(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestCodec_Decode_NoExpiryWhenMaxAgeZero(t *testing.T) {
	codec, err := NewCodec("test-secret-key", 0)
	if err != nil {
		t.Fatalf("failed to create codec: %v", err)
	}

	issued := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	codec.now = func() time.Time { return issued }
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	codec.now = time.Now
	if _, err := codec.Decode(token); err != nil {
		t.Errorf("expected no expiry with maxAge 0, got %v", err)
	}
}

func TestCodec_TokenIsOpaque(t *testing.T) {
	codec := newTestCodec(t)
	token, err := codec.Encode(testRounds())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	// The answers must not appear in cleartext anywhere in the token.
	for _, s := range []string{"Cook County", "Illinois", "17031"} {
		if strings.Contains(token, s) {
			t.Errorf("token leaks %q in cleartext", s)
		}
	}
}
