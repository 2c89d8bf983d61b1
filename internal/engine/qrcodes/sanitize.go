package qrcodes

import (
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Sanitize turns a user supplied filename into one made only of
// [A-Za-z0-9._-]. Surrounding whitespace is trimmed, every inner whitespace
// character becomes an underscore and everything else outside the set is
// dropped. Leading dots are removed so a name can never be hidden or refer
// to a parent directory. Names that end up empty are rejected with
// ErrInvalidFilename.
func Sanitize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case isAllowed(r):
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), ".")

	if name != raw {
		log.Debug().Str("raw", raw).Str("sanitized", name).Msg("filename sanitized")
	}

	if name == "" {
		return "", ErrInvalidFilename
	}
	return name, nil
}

func isAllowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}
