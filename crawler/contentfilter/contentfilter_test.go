package contentfilter

import (
	"strings"
	"testing"
)

func TestIsSpamEmpty(t *testing.T) {
	if !IsSpam("") {
		t.Error("expected empty text to be spam")
	}
}

func TestIsSpamKeywordThreshold(t *testing.T) {
	four := strings.Repeat("casino ", 4)
	if IsSpam(four) {
		t.Error("4 occurrences should not trip the keyword threshold")
	}
	five := strings.Repeat("casino ", 5)
	if !IsSpam(five) {
		t.Error("5 occurrences should trip the keyword threshold")
	}
}

func TestIsSpamURLMentionSharpness(t *testing.T) {
	twentyFive := strings.Repeat("http ", 25) + "legitimate content here"
	if IsSpam(twentyFive) {
		t.Error("exactly 25 occurrences of http should not be spam")
	}
	twentySix := strings.Repeat("http ", 26) + "legitimate content here"
	if !IsSpam(twentySix) {
		t.Error("26 occurrences of http should be spam")
	}
}

func TestIsSpamNormalText(t *testing.T) {
	if IsSpam("A perfectly ordinary article about gardening and weather.") {
		t.Error("ordinary text flagged as spam")
	}
}
