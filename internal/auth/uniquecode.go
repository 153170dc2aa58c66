package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// UniqueCodeLength is the length of a submission code.
	UniqueCodeLength = 6

	uniqueCodeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// maxCodeAttempts bounds the collision retry loop. With 62^6 codes a
	// second attempt is already rare.
	maxCodeAttempts = 20
)

// CodeExistsFunc reports whether a code is already assigned to a user.
type CodeExistsFunc func(ctx context.Context, code string) (bool, error)

// NewUniqueCode draws random codes until exists reports one as free.
func NewUniqueCode(ctx context.Context, exists CodeExistsFunc) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := RandomCode()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("auth: checking unique code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("auth: no free unique code after %d attempts", maxCodeAttempts)
}

// RandomCode returns one random alphanumeric code. It never starts with '0'
// (people drop a leading zero when they type the code), a leading '0' is
// rewritten to '9'.
func RandomCode() (string, error) {
	return codeFrom(rand.Reader)
}

// codeFrom draws a code from src. Bytes at or above the largest multiple of
// the alphabet size are skipped so every character is equally likely.
func codeFrom(src io.Reader) (string, error) {
	const limit = 256 - 256%len(uniqueCodeAlphabet)

	out := make([]byte, 0, UniqueCodeLength)
	buf := make([]byte, UniqueCodeLength*2)
	for len(out) < UniqueCodeLength {
		if _, err := io.ReadFull(src, buf); err != nil {
			return "", fmt.Errorf("auth: reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, uniqueCodeAlphabet[int(b)%len(uniqueCodeAlphabet)])
			if len(out) == UniqueCodeLength {
				break
			}
		}
	}
	if out[0] == '0' {
		out[0] = '9'
	}
	return string(out), nil
}
