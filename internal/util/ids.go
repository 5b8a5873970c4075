package util

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewID returns a fresh 21 character nanoid.
func NewID() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("nanoid: %w", err)
	}
	return id, nil
}

// IsID reports whether s has the shape of an id produced by NewID.
func IsID(s string) bool {
	if len(s) != 21 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}
