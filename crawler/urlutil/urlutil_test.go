package urlutil

import "testing"

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"https://www.Shiftdelete.net/a/":     "https://shiftdelete.net/a",
		"shiftdelete.net/a":                  "http://shiftdelete.net/a",
		"https://host/path#frag":             "https://host/path",
		"https://host/?q=1":                  "https://host?q=1",
		"https://host/":                      "https://host",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	urls := []string{
		"https://www.Shiftdelete.net/a/",
		"http://host/path?x=1#f",
		"ftp://odd.example/a",
	}
	for _, u := range urls {
		once := Normalize(u)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", u, once, twice)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{"https://host/page", "http://host/", "host/path"}
	invalid := []string{
		"", "javascript:void(0)", "mailto:a@b.com", "tel:+123",
		"https://host/image.JPG", "https://host/app.js", "ftp://host/x",
	}
	for _, u := range valid {
		if !IsValid(u) {
			t.Errorf("IsValid(%q) = false, want true", u)
		}
	}
	for _, u := range invalid {
		if IsValid(u) {
			t.Errorf("IsValid(%q) = true, want false", u)
		}
	}
}

func TestDomain(t *testing.T) {
	if got := Domain("https://www.Shiftdelete.net/a"); got != "shiftdelete.net" {
		t.Errorf("Domain() = %q, want shiftdelete.net", got)
	}
}
