package domain

import (
	"regexp"
	"strings"
)

const untitledStory = "Untitled Story"

var (
	boldTitle   = regexp.MustCompile(`^\*\*([^*]+)\*\*`)
	italicTitle = regexp.MustCompile(`^\*([^*]+)\*`)
	quotedTitle = regexp.MustCompile(`^"([^"]+)"`)
	colonTitle  = regexp.MustCompile(`^([^:.\n]{5,50}):`)
)

// ExtractTitle derives a display title from raw story text.
func ExtractTitle(source string) string {
	if source == "" {
		return untitledStory
	}
	for _, re := range []*regexp.Regexp{boldTitle, italicTitle, quotedTitle, colonTitle} {
		if m := re.FindStringSubmatch(source); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	firstLine := strings.TrimSpace(strings.Split(source, "\n")[0])
	if len([]rune(firstLine)) <= 60 {
		return firstLine
	}
	return strings.TrimSpace(string([]rune(firstLine)[:50])) + "..."
}
