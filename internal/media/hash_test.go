package media

import (
	"testing"
)

func TestContentHash(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		data := []byte("the same bytes")
		if ContentHash(data) != ContentHash(data) {
			t.Error("identical bytes must yield identical digests")
		}
	})

	t.Run("single differing byte changes digest", func(t *testing.T) {
		a := []byte("photo payload A")
		b := []byte("photo payload B")
		if ContentHash(a) == ContentHash(b) {
			t.Error("different bytes must yield different digests")
		}
	})

	t.Run("empty input", func(t *testing.T) {
		// SHA-256 of the empty string.
		want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
		if got := ContentHash(nil); got != want {
			t.Errorf("ContentHash(nil) = %s, want %s", got, want)
		}
		if got := ContentHash([]byte{}); got != want {
			t.Errorf("ContentHash(empty) = %s, want %s", got, want)
		}
	})

	t.Run("hex encoded 256-bit digest", func(t *testing.T) {
		if got := len(ContentHash([]byte("x"))); got != 64 {
			t.Errorf("digest length = %d, want 64", got)
		}
	})
}
