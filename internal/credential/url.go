package credential

import (
	"regexp"
	"strings"
)

var driveLetter = regexp.MustCompile(`^[A-Za-z]:`)

// URLCandidates returns the file: URL encodings of path to try, most likely
// first. Hosts disagree on how drive-letter and UNC paths map to URLs, so
// every path gets at least two forms.
func URLCandidates(path string) []string {
	slashed := strings.ReplaceAll(path, `\`, "/")

	switch {
	case driveLetter.MatchString(slashed):
		return []string{"file:/" + slashed, "file:///" + slashed}
	case strings.HasPrefix(slashed, "//"):
		return []string{"file:" + slashed, "file://" + slashed}
	case strings.HasPrefix(slashed, "/"):
		return []string{"file://" + slashed, "file:" + slashed}
	default:
		return []string{"file:" + slashed, "file:///" + slashed}
	}
}
