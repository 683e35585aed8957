package web3

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// NativeDecimals is the decimal precision of the chain's native token.
const NativeDecimals = 18

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseUnits converts a decimal string such as "1.5" into base units.
func ParseUnits(decimal string, decimals int) (*big.Int, error) {
	decimal = strings.TrimSpace(decimal)
	if decimals < 0 {
		return nil, fmt.Errorf("decimals must be >= 0")
	}
	if !decimalPattern.MatchString(decimal) {
		return nil, fmt.Errorf("invalid amount %q", decimal)
	}
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = strings.TrimRight(parts[1], "0")
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("amount precision exceeds token decimals (%d)", decimals)
	}
	combined := strings.TrimLeft(intPart+fracPart+strings.Repeat("0", decimals-len(fracPart)), "0")
	if combined == "" {
		return new(big.Int), nil
	}
	out, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", decimal)
	}
	return out, nil
}

// ParseEther converts a native token amount into wei.
func ParseEther(decimal string) (*big.Int, error) {
	return ParseUnits(decimal, NativeDecimals)
}

// FormatUnits renders base units as a decimal string. Whole numbers keep a
// trailing ".0" so balances read the same way wallets display them.
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		value = new(big.Int)
	}
	negative := value.Sign() < 0
	s := new(big.Int).Abs(value).String()
	if decimals > 0 {
		if len(s) <= decimals {
			s = strings.Repeat("0", decimals-len(s)+1) + s
		}
		intPart := s[:len(s)-decimals]
		fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
		if fracPart == "" {
			fracPart = "0"
		}
		s = intPart + "." + fracPart
	} else {
		s += ".0"
	}
	if negative {
		s = "-" + s
	}
	return s
}

// FormatEther renders wei as a native token amount.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, NativeDecimals)
}
