package edgedupe

import "strings"

// AnimatedURLPatterns are URL substrings of animated or video media, which
// carry no single frame worth fingerprinting.
var AnimatedURLPatterns = []string{
	"gifs", ".gifv", ".gif", ".mp4", "v.redd.it",
}

// IsAnimatedURL checks if a lowercased URL contains animated media patterns.
func IsAnimatedURL(lower string) bool {
	for _, p := range AnimatedURLPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
