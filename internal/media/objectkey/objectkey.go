// Package objectkey derives collision-resistant, human-traceable
// storage paths for uploaded media.
package objectkey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// unsafeChars matches every character stripped from filenames before
// they are embedded in a key.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Generate derives a storage key of the form
//
//	[folder/]YYYY/MM/<random-token>-<sanitized-filename>
//
// The token comes from crypto/rand; it is the sole defense against
// two concurrent uploads of differently named files racing onto the
// same key, so filename and date alone are never used without it.
func Generate(filename string, t time.Time, folder string) (string, error) {
	random := make([]byte, 8)
	if _, err := rand.Read(random); err != nil {
		return "", fmt.Errorf("objectkey: read random: %w", err)
	}

	name := Sanitize(filename)
	if name == "" {
		name = "file"
	}

	key := fmt.Sprintf("%s/%s-%s", t.UTC().Format("2006/01"), hex.EncodeToString(random), name)
	if folder != "" {
		key = strings.Trim(Sanitize(folder), "-") + "/" + key
	}
	return key, nil
}

// Sanitize strips every character outside the safe
// alphanumeric/._- set from s.
func Sanitize(s string) string {
	return unsafeChars.ReplaceAllString(s, "")
}
