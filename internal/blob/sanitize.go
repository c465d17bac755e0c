package blob

import "strings"

// forbiddenFilenameChars are stripped from an inbound filename before
// it is used to construct a path on disk.
const forbiddenFilenameChars = `<>:"/\|?*`

func sanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(forbiddenFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.TrimSpace(b.String())
	if clean == "" {
		clean = "unnamed"
	}
	return clean
}
