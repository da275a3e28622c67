package orchestrator

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/hongbaolabs/hongbao/internal/core/domain"
)

const tokenDecimals = 18

var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(tokenDecimals), nil)

// ParseAmount converts a user-entered decimal token amount into wei.
// Rejects anything that is not a plain positive decimal with at most 18
// fractional digits.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, domain.E(domain.CodeInvalidInput, "amount is empty")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return nil, domain.E(domain.CodeInvalidInput, "malformed amount")
		}
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > tokenDecimals {
		return nil, domain.E(domain.CodeInvalidInput, "too many decimal places")
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, domain.E(domain.CodeInvalidInput, "malformed amount")
	}

	// Scale the fraction up to 18 digits and join.
	frac += strings.Repeat("0", tokenDecimals-len(frac))
	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, domain.E(domain.CodeInvalidInput, "malformed amount")
	}
	if wei.Sign() <= 0 {
		return nil, domain.E(domain.CodeInvalidInput, "amount must be positive")
	}
	return wei, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// FormatAmount renders wei as a decimal token amount with trailing zeros
// trimmed.
func FormatAmount(wei *big.Int) string {
	quo, rem := new(big.Int).QuoRem(wei, weiPerToken, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := strings.TrimRight(fmt.Sprintf("%018s", rem.String()), "0")
	return quo.String() + "." + frac
}

// Average renders the per-share amount with exactly two decimals,
// truncating rather than rounding.
func Average(totalWei *big.Int, count int) string {
	share := new(big.Int).Quo(totalWei, big.NewInt(int64(count)))
	cents := new(big.Int).Quo(new(big.Int).Mul(share, big.NewInt(100)), weiPerToken)
	quo, rem := new(big.Int).QuoRem(cents, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s.%02d", quo.String(), rem.Int64())
}

// splitU256 decomposes a value into the 128-bit low and high limbs used by
// u256 calldata.
func splitU256(v *big.Int) (low, high *big.Int) {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	low = new(big.Int).And(v, mask)
	high = new(big.Int).Rsh(v, 128)
	return low, high
}

// combineU256 reassembles a value from its calldata limbs.
func combineU256(low, high *big.Int) *big.Int {
	return new(big.Int).Add(new(big.Int).Lsh(high, 128), low)
}
