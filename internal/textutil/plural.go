package textutil

import "fmt"

// Plural formats n with the singular or plural noun, e.g. "1 entry".
func Plural(n int64, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
