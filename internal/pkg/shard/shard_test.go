package shard

import "testing"

func TestIndex(t *testing.T) {
	keys := []string{"", "a", "abcdef12", "https://example.com"}

	for _, n := range []int{-1, 0, 1} {
		for _, k := range keys {
			if got := Index(k, n); got != 0 {
				t.Errorf("Index(%q, %d) = %d, want 0", k, n, got)
			}
		}
	}

	for _, k := range keys {
		first := Index(k, 16)
		if first < 0 || first >= 16 {
			t.Fatalf("Index(%q, 16) = %d out of range", k, first)
		}
		if again := Index(k, 16); again != first {
			t.Errorf("Index(%q, 16) not stable: %d then %d", k, first, again)
		}
	}
}
