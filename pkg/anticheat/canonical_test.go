package anticheat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firstround/interviewd/pkg/models"
)

func TestCanonicalDigestStableUnderKeyOrder(t *testing.T) {
	a := models.AntiCheatEvent{
		SessionID: "s1", Seq: 1, Type: models.EventTabSwitch,
		TS:      "2026-01-01T00:00:00Z",
		Details: json.RawMessage(`{"b":2,"a":1}`),
	}
	b := a
	b.Details = json.RawMessage(`{"a":1, "b":2}`)

	da, err := CanonicalDigest(a)
	require.NoError(t, err)
	db, err := CanonicalDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)
	assert.Regexp(t, "^[0-9a-f]+$", da)
}

func TestCanonicalDigestNilDetailsEqualsEmptyObject(t *testing.T) {
	a := models.AntiCheatEvent{SessionID: "s1", Seq: 1, Type: models.EventBlur, TS: "t"}
	b := a
	b.Details = json.RawMessage(`{}`)

	da, err := CanonicalDigest(a)
	require.NoError(t, err)
	db, err := CanonicalDigest(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestCanonicalDigestSensitivity(t *testing.T) {
	base := models.AntiCheatEvent{
		SessionID: "s1", Seq: 5, Type: models.EventFSExit,
		TS: "2026-01-01T00:00:00Z", PrevHash: "abc",
	}
	d0, err := CanonicalDigest(base)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*models.AntiCheatEvent){
		"seq":      func(e *models.AntiCheatEvent) { e.Seq = 6 },
		"type":     func(e *models.AntiCheatEvent) { e.Type = models.EventBlur },
		"ts":       func(e *models.AntiCheatEvent) { e.TS = "2026-01-01T00:00:01Z" },
		"prevHash": func(e *models.AntiCheatEvent) { e.PrevHash = "abd" },
		"details":  func(e *models.AntiCheatEvent) { e.Details = json.RawMessage(`{"x":1}`) },
		"session":  func(e *models.AntiCheatEvent) { e.SessionID = "s2" },
	} {
		evt := base
		mutate(&evt)
		d, err := CanonicalDigest(evt)
		require.NoError(t, err)
		assert.NotEqual(t, d0, d, "mutating %s must change the digest", name)
	}
}

func TestCanonicalDigestRejectsMalformedDetails(t *testing.T) {
	evt := models.AntiCheatEvent{SessionID: "s1", Seq: 1, Details: json.RawMessage(`{"a":`)}
	_, err := CanonicalDigest(evt)
	assert.Error(t, err)
}
