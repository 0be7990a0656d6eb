package memstore

import (
	"crypto/rand"
	"encoding/hex"
)

// generateID creates a random hex memory id, the same scheme this
// codebase uses for its own generated ids.
func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
