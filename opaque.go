package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// opaqueTokenBytes gives 256 bits of entropy per token, matching the
// platform's verification, reset, and session tokens.
const opaqueTokenBytes = 32

// GenerateOpaqueToken returns a random hex string used for email
// verification, password reset, and device session tokens. The random
// source failing is catastrophic and not recoverable.
func GenerateOpaqueToken() string {
	b := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("identity: entropy source failed: %v", err))
	}
	return hex.EncodeToString(b)
}
