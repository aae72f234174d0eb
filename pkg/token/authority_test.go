package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthority(t *testing.T) *Authority {
	t.Helper()
	a, err := NewAuthority([]byte("0123456789abcdef0123456789abcdef"), "interviewd-test", DefaultTTLs())
	require.NoError(t, err)
	return a
}

func TestDefaultTTLs(t *testing.T) {
	ttls := DefaultTTLs()
	assert.Equal(t, 24*time.Hour, ttls.User)
	assert.Equal(t, 24*time.Hour, ttls.Session)
	assert.Equal(t, 15*time.Minute, ttls.IST)
	assert.Equal(t, 15*time.Minute, ttls.WST)
	assert.Equal(t, 15*time.Minute, ttls.AIPT)
	assert.Equal(t, 15*time.Minute, ttls.UPT)
	assert.Equal(t, 15*time.Minute, ttls.ACET)
}

func TestMintAndVerify(t *testing.T) {
	a := testAuthority(t)

	raw, minted, err := a.Mint(MintSpec{
		Subject:   "user-1",
		Audience:  AudienceIST,
		SessionID: "sess-1",
		Scopes:    []string{"interview:answer"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotEmpty(t, minted.JTI)

	got, err := a.Verify(raw, AudienceIST, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, []string{"interview:answer"}, got.Scopes)
	assert.Equal(t, minted.JTI, got.JTI)
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	a := testAuthority(t)

	raw, _, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceWST, SessionID: "sess-1"})
	require.NoError(t, err)

	_, err = a.Verify(raw, AudienceIST, "sess-1")
	assert.ErrorIs(t, err, ErrWrongAudience)
}

func TestVerifyRejectsWrongSession(t *testing.T) {
	a := testAuthority(t)

	raw, _, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceIST, SessionID: "sess-1"})
	require.NoError(t, err)

	_, err = a.Verify(raw, AudienceIST, "sess-2")
	assert.ErrorIs(t, err, ErrWrongSession)
}

func TestVerifyRejectsExpired(t *testing.T) {
	a := testAuthority(t)
	base := time.Now()
	a.now = func() time.Time { return base }

	raw, _, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceAIPT, SessionID: "sess-1"})
	require.NoError(t, err)

	a.now = func() time.Time { return base.Add(16 * time.Minute) }
	_, err = a.Verify(raw, AudienceAIPT, "sess-1")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	a := testAuthority(t)

	raw, _, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceIST, SessionID: "sess-1"})
	require.NoError(t, err)

	other, err := NewAuthority([]byte("ffffffffffffffffffffffffffffffff"), "interviewd-test", DefaultTTLs())
	require.NoError(t, err)
	_, err = other.Verify(raw, AudienceIST, "sess-1")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	a := testAuthority(t)

	// Same secret, different issuer: the token must not cross over.
	other, err := NewAuthority([]byte("0123456789abcdef0123456789abcdef"), "some-other-service", DefaultTTLs())
	require.NoError(t, err)

	raw, _, err := other.Mint(MintSpec{Subject: "user-1", Audience: AudienceIST, SessionID: "sess-1"})
	require.NoError(t, err)

	_, err = a.Verify(raw, AudienceIST, "sess-1")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestMissingToken(t *testing.T) {
	a := testAuthority(t)
	_, err := a.Verify("", AudienceUser, "")
	assert.ErrorIs(t, err, ErrMissing)
}

func TestRefreshMintsFreshJTI(t *testing.T) {
	a := testAuthority(t)

	_, c1, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceIST, SessionID: "s"})
	require.NoError(t, err)
	_, c2, err := a.Mint(MintSpec{Subject: "user-1", Audience: AudienceIST, SessionID: "s"})
	require.NoError(t, err)
	assert.NotEqual(t, c1.JTI, c2.JTI)
}

func TestGenerationRoundTrips(t *testing.T) {
	a := testAuthority(t)

	raw, _, err := a.Mint(MintSpec{Subject: "u", Audience: AudienceAIPT, SessionID: "s", Generation: 3})
	require.NoError(t, err)

	got, err := a.Verify(raw, AudienceAIPT, "s")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Generation)
}
