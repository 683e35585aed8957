package web3

import (
	"math/big"
	"testing"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000001", 6, "1"},
		{"10.50", 2, "1050"},
		{"0", 18, "0"},
		{"007", 0, "7"},
	}
	for _, tc := range cases {
		got, err := ParseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ParseUnits(%q): %v", tc.in, err)
		}
		if got.String() != tc.want {
			t.Fatalf("ParseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got, tc.want)
		}
	}
}

func TestParseUnitsRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.", ".5", "1e18"} {
		if _, err := ParseUnits(in, 18); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if _, err := ParseUnits("0.001", 2); err == nil {
		t.Fatalf("expected precision error")
	}
}

func TestFormatUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatEther(wei); got != "1.5" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatEther(big.NewInt(0)); got != "0.0" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatEther(new(big.Int).Mul(big.NewInt(3), big.NewInt(1e18))); got != "3.0" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatUnits(big.NewInt(1), 6); got != "0.000001" {
		t.Fatalf("unexpected %s", got)
	}
	if got := FormatUnits(big.NewInt(-25), 1); got != "-2.5" {
		t.Fatalf("unexpected %s", got)
	}
}
