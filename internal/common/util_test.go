package common

import (
	"encoding/hex"
	"strconv"
	"testing"
)

// ---------- MakeRandHexString ----------

func TestMakeRandHexString_LengthAndHex(t *testing.T) {
	const n = 16
	s, err := MakeRandHexString(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != n*2 {
		t.Fatalf("expected hex length %d, got %d", n*2, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		t.Fatalf("string is not valid hex: %v", err)
	}
}

func TestMakeRandHexString_ZeroSize(t *testing.T) {
	s, err := MakeRandHexString(0)
	if err != nil {
		t.Fatalf("unexpected error for size=0: %v", err)
	}
	if s != "" {
		t.Fatalf("expected empty string for size=0, got %q", s)
	}
}

// ---------- GenerateOTP ----------

func TestGenerateOTP_SixDigitsInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %q", code)
		}
		if n < otpMin || n > otpMax {
			t.Fatalf("code %d out of range", n)
		}
	}
}

// ---------- BearerToken ----------

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{name: "empty header", header: "", ok: false},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", ok: false},
		{name: "lowercase scheme", header: "bearer abc", ok: false},
		{name: "scheme only", header: "Bearer", ok: false},
		{name: "blank token", header: "Bearer    ", ok: false},
		{name: "raw token without scheme", header: "abc.def.ghi", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("BearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}
