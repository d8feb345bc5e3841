package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/gogotex/gogotex/backend/auth-sessions/internal/config"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		AccessSecret:  "access-secret-32-bytes-xxxxxxxxxxxx",
		AccessTTL:     15 * time.Minute,
		RefreshSecret: "refresh-secret-32-bytes-xxxxxxxxxxx",
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func testClaims() Claims {
	return Claims{SubjectID: "user-123", Email: "test@example.com", Name: "Test User", SessionID: "sess-1"}
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)

	for _, kind := range []Kind{Access, Refresh} {
		tok, err := c.Issue(testClaims(), kind)
		require.NoError(t, err)

		got, err := c.Verify(tok, kind)
		require.NoError(t, err, kind.String())
		require.Equal(t, "user-123", got.SubjectID)
		require.Equal(t, "user-123", got.Subject)
		require.Equal(t, "test@example.com", got.Email)
		require.Equal(t, "Test User", got.Name)
		require.Equal(t, "sess-1", got.SessionID)
	}
}

func TestIssue_ExpiryFollowsKind(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c, err := NewCodec(testJWTConfig(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	access, err := c.Issue(testClaims(), Access)
	require.NoError(t, err)
	refresh, err := c.Issue(testClaims(), Refresh)
	require.NoError(t, err)

	ac, err := c.Verify(access, Access)
	require.NoError(t, err)
	rc, err := c.Verify(refresh, Refresh)
	require.NoError(t, err)

	require.Equal(t, now.Add(15*time.Minute).Unix(), ac.ExpiresAt.Unix())
	require.Equal(t, now.Add(7*24*time.Hour).Unix(), rc.ExpiresAt.Unix())
	require.Equal(t, 15*time.Minute, c.TTL(Access))
}

func TestVerify_KindsUseIndependentSecrets(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)

	access, err := c.Issue(testClaims(), Access)
	require.NoError(t, err)
	_, err = c.Verify(access, Refresh)
	require.ErrorIs(t, err, ErrInvalidSignature)

	refresh, err := c.Issue(testClaims(), Refresh)
	require.NoError(t, err)
	_, err = c.Verify(refresh, Access)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issuer, err := NewCodec(testJWTConfig(), WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	tok, err := issuer.Issue(testClaims(), Access)
	require.NoError(t, err)

	verifier, err := NewCodec(testJWTConfig())
	require.NoError(t, err)
	_, err = verifier.Verify(tok, Access)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerify_Malformed(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)
	_, err = c.Verify("not.a.jwt", Access)
	require.ErrorIs(t, err, ErrMalformed)
	_, err = c.Verify("", Access)
	require.ErrorIs(t, err, ErrMalformed)
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)
	payload := `{"id":"u-none","sessionId":"s","exp":9999999999}`
	enc := base64.RawURLEncoding
	tok := enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString([]byte(payload)) + "."
	_, err = c.Verify(tok, Access)
	require.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)
	tok, err := c.Issue(testClaims(), Access)
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payloadBytes), "user-123", "attacker", 1)))

	_, err = c.Verify(strings.Join(parts, "."), Access)
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_MissingSessionClaimIsMalformed(t *testing.T) {
	c, err := NewCodec(testJWTConfig())
	require.NoError(t, err)
	claims := testClaims()
	claims.SessionID = ""
	tok, err := c.Issue(claims, Access)
	require.NoError(t, err)
	_, err = c.Verify(tok, Access)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestNewCodec_RequiresSecrets(t *testing.T) {
	cfg := testJWTConfig()
	cfg.RefreshSecret = ""
	_, err := NewCodec(cfg)
	require.Error(t, err)
}
