// Package auth handles password hashing for registration, login and admin resets.
//
// WHY BCRYPT?
// bcrypt is deliberately slow and salts every hash, so the stored column is
// useless to someone who dumps the users table. The salt and cost live inside
// the hash string itself:
//
//	$2a$12$<22-char salt><31-char hash>
//
// Three flows touch this file:
//   - POST /register        → Hash the new password
//   - POST /login, /get-unique-code → Verify against the stored hash
//   - POST /change-password → Hash the replacement chosen by an admin
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPassword is returned by Verify when the hash does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// defaultCost is the bcrypt work factor used in production (~250ms per hash).
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs are silently
// truncated by the algorithm, so we reject them instead.
const maxPasswordBytes = 72

// PasswordService hashes and verifies passwords.
//
// The cost is a field so tests can drop it to bcrypt.MinCost.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low) cost.
// Used by service and handler tests in other packages.
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrInvalidPassword when
// it does not. Any other error means the stored hash is unreadable.
//
// bcrypt compares in constant time, so response timing does not leak how much
// of the password was right.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidPassword
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}
