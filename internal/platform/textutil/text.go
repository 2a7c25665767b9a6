package textutil

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// CleanText strips markup and surrounding whitespace from a free-text field.
func CleanText(value string) string {
	stripped := policy().Sanitize(strings.TrimSpace(value))
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// CleanOptional applies CleanText, returning nil when nothing meaningful remains.
func CleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := CleanText(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// Fold returns a case-folded form of value for caseless comparison.
func Fold(value string) string {
	return cases.Fold().String(value)
}

// ContainsFold reports whether needle occurs in any of the haystacks, ignoring case.
func ContainsFold(needle string, haystacks ...string) bool {
	needle = Fold(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, haystack := range haystacks {
		if strings.Contains(Fold(haystack), needle) {
			return true
		}
	}
	return false
}
