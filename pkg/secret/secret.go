// Package secret mints the one-time secrets embedded in payloads.
package secret

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/oobkit/oobkit/internal/hexutil"
)

// ErrInvalidLength is returned when a secret of non-positive length is requested.
var ErrInvalidLength = errors.New("secret: length must be positive")

// Generator produces random secrets. Implementations must be safe for
// concurrent use.
type Generator interface {
	// Generate returns the upper-case base-16 encoding of n random bytes,
	// so the result is 2n characters long.
	Generate(n int) (string, error)
}

// Random draws secrets from crypto/rand.
type Random struct{}

// NewRandom returns the production secret generator.
func NewRandom() Random { return Random{} }

// Generate implements Generator.
func (Random) Generate(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("secret: reading random bytes: %w", err)
	}
	return hexutil.EncodeUpper(buf), nil
}

// Static always returns the same secret. It exists for tests and for
// reproducing a detection attempt from logs.
type Static string

// Generate implements Generator. The requested length is ignored.
func (s Static) Generate(int) (string, error) {
	return string(s), nil
}
