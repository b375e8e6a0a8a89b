package rooms

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	idAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	idLength   = 6
)

// GenerateID creates a random room code: fixed length, uppercase
// alphanumeric, with look-alike characters excluded.
func GenerateID() string {
	var sb strings.Builder
	for i := 0; i < idLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			// crypto/rand failing means the platform is broken
			panic(err)
		}
		sb.WriteByte(idAlphabet[n.Int64()])
	}
	return sb.String()
}

// NormalizeID uppercases a caller-supplied room code.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// ValidID reports whether id is a well-formed room code.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
