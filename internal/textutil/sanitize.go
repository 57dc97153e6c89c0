package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName makes an artifact or topic safe to use as a file name on
// common filesystems. Path separators and colons become dashes; control
// characters and shell-hostile punctuation are dropped.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*':
			b.WriteByte('-')
		case strings.ContainsRune(`?"<>|`, r), unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeToken folds a topic into a lowercase ASCII token: accents are
// stripped, letters and digits kept, runs of anything else collapse to one
// underscore. Empty results become "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range norm.NFKD.String(strings.TrimSpace(value)) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'):
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSep = true
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
