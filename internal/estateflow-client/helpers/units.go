package helpers

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// FormatUnitsTrim converts a base-unit amount to a human string:
// - divides by 10^decimals
// - trims to maxFrac decimal places
// - removes trailing zeros
//
// Examples:
//
//	amount=1234500000000000000, decimals=18 -> "1.2345"
//	amount=1000000000000000000, decimals=18 -> "1"
func FormatUnitsTrim(amount *big.Int, decimals uint8, maxFrac int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart := new(big.Int).Quo(amount, base)
	fracPart := new(big.Int).Abs(new(big.Int).Rem(amount, base))

	if fracPart.Sign() == 0 || maxFrac <= 0 {
		return intPart.String()
	}

	fracStr := fracPart.String()
	if len(fracStr) < int(decimals) {
		fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	}
	if len(fracStr) > maxFrac {
		fracStr = fracStr[:maxFrac]
	}
	fracStr = strings.TrimRight(fracStr, "0")
	if fracStr == "" {
		return intPart.String()
	}
	return intPart.String() + "." + fracStr
}

// ParseUnits is the inverse of FormatUnitsTrim for non-negative decimal strings.
// More fractional digits than decimals is an error, never a silent rounding.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty amount")
	}

	intStr, fracStr, _ := strings.Cut(s, ".")
	if intStr == "" && fracStr == "" {
		return nil, errors.Newf("invalid amount %q", s)
	}
	if !isDigits(intStr) || !isDigits(fracStr) {
		return nil, errors.Newf("invalid amount %q", s)
	}
	if len(fracStr) > int(decimals) {
		return nil, errors.Newf("amount %q has more than %d decimals", s, decimals)
	}

	digits := intStr + fracStr + strings.Repeat("0", int(decimals)-len(fracStr))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.Newf("invalid amount %q", s)
	}
	return v, nil
}

// ParseEther converts an ether amount to wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, 18)
}

// IntPrefix reads the leading integer of s the way form inputs are usually read:
// "12 months" is 12 and "abc" is not a number.
func IntPrefix(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FloatPrefix reads the leading decimal number of s: "4.5%" is 4.5.
func FloatPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
