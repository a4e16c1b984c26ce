package common

import "testing"

func TestMakeRandHexString(t *testing.T) {
	s1, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s2, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s1) != 32 || len(s2) != 32 {
		t.Errorf("expected 32 hex chars, got %d and %d", len(s1), len(s2))
	}
	if s1 == s2 {
		t.Errorf("expected different strings, got identical")
	}
}

func TestWipeByteArray(t *testing.T) {
	b := []byte{1, 2, 3}
	WipeByteArray(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("byte %d not wiped: %d", i, v)
		}
	}
	WipeByteArray(nil)
}
