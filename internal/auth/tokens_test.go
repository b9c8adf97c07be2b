package auth_test

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-aurum/internal/auth"
)

func newIssuer() auth.TokenIssuer {
	return auth.TokenIssuer{
		Secret:   []byte("test-secret-test-secret-test-one"),
		Issuer:   "backend-aurum",
		Audience: "aurum-pos",
		TTL:      15 * time.Minute,
	}
}

func TestSignParseRoundTrip(t *testing.T) {
	issuer := newIssuer()
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	token, expiry, err := issuer.Sign("user-123", now)
	require.NoError(t, err)
	require.Equal(t, now.Add(15*time.Minute), expiry)

	subject, err := issuer.Parse(token, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, "user-123", subject)
}

func TestParseExpiredToken(t *testing.T) {
	issuer := newIssuer()
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	token, _, err := issuer.Sign("user-123", now)
	require.NoError(t, err)

	_, err = issuer.Parse(token, now.Add(16*time.Minute))
	require.Error(t, err)
}

func TestParseClockSkewTolerance(t *testing.T) {
	issuer := newIssuer()
	issuer.ClockSkew = 2 * time.Minute
	now := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	token, _, err := issuer.Sign("user-123", now)
	require.NoError(t, err)

	_, err = issuer.Parse(token, now.Add(16*time.Minute))
	require.NoError(t, err, "expiry within skew should be tolerated")
}

func TestParseWrongSecret(t *testing.T) {
	issuer := newIssuer()
	now := time.Now()

	token, _, err := issuer.Sign("user-123", now)
	require.NoError(t, err)

	other := newIssuer()
	other.Secret = []byte("a-completely-different-secret-00")
	_, err = other.Parse(token, now)
	require.Error(t, err)
}

func TestParseRejectsUnexpectedAlgorithm(t *testing.T) {
	signer := newIssuer()
	signer.Algorithm = jwa.HS384
	now := time.Now()

	token, _, err := signer.Sign("user-123", now)
	require.NoError(t, err)

	verifier := newIssuer()
	_, err = verifier.Parse(token, now)
	require.Error(t, err, "token signed with a different algorithm must be rejected")
}

func TestParseRejectsWrongAudience(t *testing.T) {
	issuer := newIssuer()
	now := time.Now()

	token, _, err := issuer.Sign("user-123", now)
	require.NoError(t, err)

	verifier := newIssuer()
	verifier.Audience = "some-other-service"
	_, err = verifier.Parse(token, now)
	require.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	issuer := newIssuer()
	_, err := issuer.Parse("not-a-token", time.Now())
	require.Error(t, err)
}

func TestSignRequiresSecret(t *testing.T) {
	issuer := auth.TokenIssuer{TTL: time.Minute}
	_, _, err := issuer.Sign("user-123", time.Now())
	require.Error(t, err)
}
