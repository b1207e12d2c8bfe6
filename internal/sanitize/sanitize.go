// Package sanitize scrubs untrusted free-text fields before they are
// interpolated into model prompts. Filtering is line-by-line so legitimate
// content survives when only part of a field matches an injection signature,
// and sanitized text is additionally wrapped in explicit delimiters so the
// model can tell quoted user data from instructions even if a line slips
// through the filter.
package sanitize

import (
	"fmt"
	"strings"
)

// injectionPrefixes are signatures of common prompt-injection attempts,
// matched case-insensitively against each trimmed line.
var injectionPrefixes = []string{
	"ignore",
	"system:",
	"you are now",
	"disregard",
	"forget all previous",
	"new instructions",
	"assistant:",
	"### system",
	"act as",
}

// Clean drops lines matching a known injection signature and returns the
// surviving text plus the number of lines removed. It never fails; worst
// case the whole field is dropped and an empty string is returned.
func Clean(text string) (string, int) {
	if text == "" {
		return "", 0
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	dropped := 0
	for _, line := range lines {
		if matchesInjection(line) {
			dropped++
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), dropped
}

func matchesInjection(line string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	for _, prefix := range injectionPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// Delimit wraps text in labelled markers before prompt interpolation.
// Free-text fields must never reach the model without this wrapping.
func Delimit(label, text string) string {
	return fmt.Sprintf("<<%s>>\n%s\n<</%s>>", label, text, label)
}
