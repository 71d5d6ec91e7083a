package order

import (
	"strings"
	"testing"
)

func TestNewOrderNumberShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		n, err := newOrderNumber()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		parts := strings.Split(n, "-")
		if len(parts) != 3 || parts[0] != "ALT" {
			t.Fatalf("unexpected shape %q", n)
		}
		for _, group := range parts[1:] {
			if len(group) != numberGroupLen {
				t.Fatalf("unexpected group length in %q", n)
			}
			for _, r := range group {
				if !strings.ContainsRune(numberAlphabet, r) {
					t.Fatalf("character %q outside alphabet in %q", r, n)
				}
			}
		}
	}
}

func TestNewOrderNumberAvoidsAmbiguousCharacters(t *testing.T) {
	for _, forbidden := range "0O1IL" {
		if strings.ContainsRune(numberAlphabet, forbidden) {
			t.Fatalf("alphabet must not contain %q", forbidden)
		}
	}
}
