package htmlpipeline

import (
	"strings"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/a">a</a>
		<a href="/b">b</a>
		<a href="/a">dup</a>
		<a href="javascript:void(0)">js</a>
		<a href="#frag">frag</a>
		<a href="image.jpg">asset</a>
	</body></html>`

	links, err := ExtractLinks(strings.NewReader(html), "http://www.shiftdelete.net/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]bool{
		"http://shiftdelete.net/a": false,
		"http://shiftdelete.net/b": false,
	}
	if len(links) != len(want) {
		t.Fatalf("got %d links, want %d: %v", len(links), len(want), links)
	}
	for _, l := range links {
		if _, ok := want[l]; !ok {
			t.Errorf("unexpected link %q", l)
		}
	}
}

func TestExtractContentSkipsNoindex(t *testing.T) {
	html := `<html><head><meta name="robots" content="noindex,nofollow"><title>X</title></head><body>hi</body></html>`
	content, err := ExtractContent(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Keep {
		t.Error("expected noindex page to be skipped")
	}
}

func TestExtractContentSkips404Title(t *testing.T) {
	html := `<html><head><title>404 Not Found</title></head><body>gone</body></html>`
	content, err := ExtractContent(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Keep {
		t.Error("expected 404-titled page to be skipped")
	}
}

func TestExtractContentStripsBoilerplate(t *testing.T) {
	html := `<html><head><title>Article</title></head><body>
		<header>menu</header>
		<script>var x = 1;</script>
		<p>real content here</p>
		<footer>copyright</footer>
	</body></html>`
	content, err := ExtractContent(strings.NewReader(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !content.Keep {
		t.Fatal("expected page to be kept")
	}
	if strings.Contains(content.Text, "menu") || strings.Contains(content.Text, "copyright") {
		t.Errorf("expected boilerplate stripped from text, got %q", content.Text)
	}
	if content.ScriptCount != 1 {
		t.Errorf("ScriptCount = %d, want 1", content.ScriptCount)
	}
}
