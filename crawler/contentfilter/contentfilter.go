// Package contentfilter implements the spam heuristic gating what the
// worker is willing to persist to the content store.
package contentfilter

import "strings"

// spamKeywords are matched case-insensitively against extracted page text.
var spamKeywords = []string{
	"viagra", "casino", "lottery", "click here", "buy now",
	"free money", "weight loss", "work from home", "make money fast",
}

const (
	keywordThreshold = 5
	urlMentionLimit  = 25
)

// IsSpam returns true if text is empty, if any configured keyword appears
// at least keywordThreshold times (case-insensitive), or if the substring
// "http" or "www." each appear more than urlMentionLimit times.
func IsSpam(text string) bool {
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range spamKeywords {
		if strings.Count(lower, kw) >= keywordThreshold {
			return true
		}
	}
	if strings.Count(lower, "http") > urlMentionLimit {
		return true
	}
	if strings.Count(lower, "www.") > urlMentionLimit {
		return true
	}
	return false
}
