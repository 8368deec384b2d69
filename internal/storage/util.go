package storage

import (
	"fmt"
	"regexp"
)

// Keys double as file names, so they are restricted to a safe alphabet.
var keyRegex = regexp.MustCompile(`^[a-z0-9_]{1,128}$`)

// checkKey validates a storage key
func checkKey(key string) error {
	if !keyRegex.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// cloneBytes returns a copy of b so callers never share backing arrays
func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
