package render

import (
	"strings"
	"testing"
)

func TestStealthInitScriptHidesWebdriver(t *testing.T) {
	if !strings.Contains(stealthInitScript, "Object.defineProperty(navigator, 'webdriver'") {
		t.Error("init script must hide navigator.webdriver")
	}
	if !strings.Contains(stealthInitScript, "window.chrome") {
		t.Error("init script must stub window.chrome")
	}
}

func TestScrollDistances(t *testing.T) {
	if firstScrollPx != 500 {
		t.Errorf("firstScrollPx = %d, want 500", firstScrollPx)
	}
	if secondScrollPx != 1000 {
		t.Errorf("secondScrollPx = %d, want 1000", secondScrollPx)
	}
}
