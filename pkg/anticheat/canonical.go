// Package anticheat verifies the tamper-evident proctoring event chain and
// turns accepted events into strikes per the policy table.
package anticheat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/firstround/interviewd/pkg/models"
)

// CanonicalDigest computes the chain hash for one event:
//
//	hex(sha256(sessionId || seq || type || ts || canonicalJSON(details) || prevHash))
//
// with seq in decimal and details re-encoded with sorted keys and no
// whitespace (nil details encode as {}). This is a wire contract with the
// proctoring client; changing it orphans every chain in flight.
func CanonicalDigest(e models.AntiCheatEvent) (string, error) {
	details, err := canonicalJSON(e.Details)
	if err != nil {
		return "", fmt.Errorf("canonicalizing details for seq %d: %w", e.Seq, err)
	}

	h := sha256.New()
	h.Write([]byte(e.SessionID))
	h.Write([]byte(strconv.FormatInt(e.Seq, 10)))
	h.Write([]byte(e.Type))
	h.Write([]byte(e.TS))
	h.Write(details)
	h.Write([]byte(e.PrevHash))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON normalizes arbitrary JSON to sorted-key, no-whitespace form.
// encoding/json sorts map keys on marshal, so one decode/encode round trip
// is sufficient.
func canonicalJSON(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 {
		return []byte("{}"), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
