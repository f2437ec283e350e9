// Package hexutil provides lookup-table hex encoding for secrets and callback ids.
package hexutil

import "strings"

// Hex character tables
const (
	HexUpper = "0123456789ABCDEF"
	HexLower = "0123456789abcdef"
)

// Pre-computed two-character encodings for every byte value.
var (
	upperPairs [256]string
	lowerPairs [256]string
)

func init() {
	for i := 0; i < 256; i++ {
		upperPairs[i] = string([]byte{HexUpper[i>>4], HexUpper[i&0x0F]})
		lowerPairs[i] = string([]byte{HexLower[i>>4], HexLower[i&0x0F]})
	}
}

// EncodeUpper returns the upper-case base-16 encoding of b.
func EncodeUpper(b []byte) string {
	return encode(b, &upperPairs)
}

// EncodeLower returns the lower-case base-16 encoding of b.
func EncodeLower(b []byte) string {
	return encode(b, &lowerPairs)
}

func encode(b []byte, table *[256]string) string {
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		sb.WriteString(table[c])
	}
	return sb.String()
}

// WriteHexUpper writes a byte as two upper-case hex digits to the builder
func WriteHexUpper(sb *strings.Builder, b byte) {
	sb.WriteString(upperPairs[b])
}

// IsUpperHex reports whether s is a non-empty, even-length string of
// upper-case hex digits.
func IsUpperHex(s string) bool {
	if s == "" || len(s)%2 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(HexUpper, s[i]) < 0 {
			return false
		}
	}
	return true
}
