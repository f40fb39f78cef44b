package objectkey

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	ts := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	t.Run("shape", func(t *testing.T) {
		key, err := Generate("IMG_0042.jpg", ts, "")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !strings.HasPrefix(key, "2024/06/") {
			t.Errorf("key %q should start with 2024/06/", key)
		}
		if !strings.HasSuffix(key, "-IMG_0042.jpg") {
			t.Errorf("key %q should end with sanitized filename", key)
		}
	})

	t.Run("folder prefix", func(t *testing.T) {
		key, err := Generate("a.jpg", ts, "travel")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !strings.HasPrefix(key, "travel/2024/06/") {
			t.Errorf("key %q should start with travel/2024/06/", key)
		}
	})

	t.Run("strips unsafe characters", func(t *testing.T) {
		key, err := Generate("my photo (1) ❤.jpg", ts, "")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if strings.ContainsAny(key, " ()❤") {
			t.Errorf("key %q contains unsafe characters", key)
		}
	})

	t.Run("empty filename gets placeholder", func(t *testing.T) {
		key, err := Generate("///", ts, "")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !strings.HasSuffix(key, "-file") {
			t.Errorf("key %q should end with placeholder name", key)
		}
	})

	t.Run("identical inputs never collide", func(t *testing.T) {
		seen := make(map[string]bool, 10000)
		for i := 0; i < 10000; i++ {
			key, err := Generate("same.jpg", ts, "")
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if seen[key] {
				t.Fatalf("duplicate key generated: %s", key)
			}
			seen[key] = true
		}
	})
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IMG_0042.jpg", "IMG_0042.jpg"},
		{"my photo.png", "myphoto.png"},
		{"../../etc/passwd", "......etcpasswd"},
		{"照片.jpg", ".jpg"},
		{"a-b_c.d", "a-b_c.d"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
