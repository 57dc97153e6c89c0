package textutil

import (
	"path"
	"strings"
)

// DownloadName picks a local file name for an artifact. The artifact's own
// base name wins; a topic-derived name is used when the reference has none.
func DownloadName(ref, topic, ext string) string {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "\\", "/")
	if base := SanitizeFileName(path.Base(ref)); base != "" && base != "." && base != "-" {
		return base
	}
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "mp3"
	}
	return "podcast-" + SanitizeToken(topic) + "." + ext
}
