package starkcurve

import (
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

var selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

// ParseFelt parses a field element from a 0x-prefixed or bare hex string.
func ParseFelt(s string) (*big.Int, error) {
	clean := strings.TrimPrefix(strings.TrimSpace(strings.ToLower(s)), "0x")
	if clean == "" {
		return nil, fmt.Errorf("empty field element")
	}
	v, ok := new(big.Int).SetString(clean, 16)
	if !ok {
		return nil, fmt.Errorf("invalid field element %q", s)
	}
	if v.Cmp(P) >= 0 {
		return nil, fmt.Errorf("field element %q exceeds prime", s)
	}
	return v, nil
}

// Hex renders a field element as minimal 0x-prefixed hex.
func Hex(v *big.Int) string {
	return "0x" + v.Text(16)
}

// Selector computes the sn_keccak entrypoint selector: the Keccak-256 digest
// of the name truncated to 250 bits.
func Selector(name string) *big.Int {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	v := new(big.Int).SetBytes(h.Sum(nil))
	return v.And(v, selectorMask)
}

// EncodeShortString encodes an ASCII string of at most 31 chars as a felt.
func EncodeShortString(s string) *big.Int {
	return new(big.Int).SetBytes([]byte(s))
}

// DecodeShortString renders a felt back into its ASCII form, dropping
// non-printable bytes so garbage on chain cannot mangle replies.
func DecodeShortString(v *big.Int) string {
	raw := v.Bytes()
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b >= 0x20 && b < 0x7f {
			out = append(out, b)
		}
	}
	return string(out)
}
