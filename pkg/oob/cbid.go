package oob

import (
	"golang.org/x/crypto/sha3"

	"github.com/oobkit/oobkit/internal/hexutil"
)

// CBID derives the callback identifier for secret: the lower-case hex
// SHA3-224 digest. The callback server computes the same value from
// what the target sends back, which is how a hit is attributed to one
// detection attempt.
func CBID(secret string) string {
	sum := sha3.Sum224([]byte(secret))
	return hexutil.EncodeLower(sum[:])
}
