// Package passwords hashes and verifies user passwords with bcrypt.
package passwords

import (
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt hashes passwords at a fixed cost.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a hasher. cost <= 0 selects bcrypt.DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

// Hash hashes a plain password.
func (b *Bcrypt) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	return string(bytes), err
}

// Verify compares a plain password with a hash.
func (b *Bcrypt) Verify(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
