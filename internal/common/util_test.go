package common

import (
	"encoding/hex"
	"errors"
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

func TestMakeRandHexString_Distinct(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s, err := MakeRandHexString(16)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate value %q after %d draws", s, i)
		}
		seen[s] = struct{}{}
	}
}

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- ConstraintError ----------

func TestConstraintError_MatchesAlreadyExists(t *testing.T) {
	cause := errors.New("duplicate key")
	err := error(&ConstraintError{Constraint: "email", Err: cause})

	if !errors.Is(err, ErrorAlreadyExists) {
		t.Fatalf("expected errors.Is(err, ErrorAlreadyExists)")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}

	var ce *ConstraintError
	if !errors.As(err, &ce) || ce.Constraint != "email" {
		t.Fatalf("expected ConstraintError for email, got %v", err)
	}
	if err.Error() != "email: already exists" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestConstraintError_NilCause(t *testing.T) {
	err := error(&ConstraintError{Constraint: "username"})
	if !errors.Is(err, ErrorAlreadyExists) {
		t.Fatalf("expected errors.Is(err, ErrorAlreadyExists)")
	}
}
