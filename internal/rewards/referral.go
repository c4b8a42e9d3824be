package rewards

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	referralCodePrefix = "SHIELD-"
	// referralCodeAttempts bounds the retry loop when a freshly generated
	// code collides with an existing one.
	referralCodeAttempts = 5
)

// NewReferralCode generates a code of the form SHIELD-XXXXXXXX with a
// random uppercase hex suffix. Uniqueness is enforced by the store; the
// caller retries on a collision.
func NewReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic("rewards: crypto/rand unavailable: " + err.Error())
	}
	return referralCodePrefix + strings.ToUpper(hex.EncodeToString(buf))
}

// NormalizeReferralCode canonicalizes an entered code for the exact-match
// lookup.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
