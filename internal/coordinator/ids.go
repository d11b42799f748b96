package coordinator

import (
	"strings"

	"github.com/google/uuid"
)

const maxSlugLen = 40

// newProjectID returns a readable, unique project id such as "billing-api-1f3a9c2e".
func newProjectID(name string) string {
	return slug(name) + "-" + uuid.New().String()[:8]
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		return "project"
	}
	return s
}
