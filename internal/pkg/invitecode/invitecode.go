package invitecode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Length of generated codes
const Length = 8

// charset omits 0/O and 1/I so codes survive being read aloud
const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generate returns a new random invite code
func Generate() (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// Normalize trims whitespace and upper-cases a user supplied code
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
