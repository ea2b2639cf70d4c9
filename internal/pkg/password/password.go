package password

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the default bcrypt cost
const DefaultCost = 12

// cost is lowered by tests
var cost = DefaultCost

// SetCost overrides the bcrypt cost. Values outside bcrypt's range are ignored.
func SetCost(c int) {
	if c >= bcrypt.MinCost && c <= bcrypt.MaxCost {
		cost = c
	}
}

// Hash hashes a password using bcrypt
func Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
