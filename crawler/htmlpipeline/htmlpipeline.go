// Package htmlpipeline extracts outbound links and page content from a
// fetched HTML document using goquery, the same parsing library the
// original crawler uses for link extraction, generalized here to also
// cover content extraction.
package htmlpipeline

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RadhiFadlillah/whatlanggo"

	"github.com/ayfilter/crawler/crawler/urlutil"
)

// skippedHrefPrefixes are never resolved or followed.
var skippedHrefPrefixes = []string{"javascript:", "mailto:", "tel:", "#"}

// strippedTags are removed from the tree before visible text is extracted.
var strippedTags = []string{"script", "style", "noscript", "meta", "link", "header", "footer", "nav"}

const languageSampleLength = 500

// Content is the structured result of ExtractContent: a page worth
// persisting, or a skip signal via the Keep field.
type Content struct {
	Title       string
	Text        string
	Language    string
	ScriptCount int
	Keep        bool
}

// ExtractLinks parses html, collects every anchor href, resolves it
// against base, skips javascript:/mailto:/tel:/# hrefs, filters through
// urlutil.IsValid, canonicalizes survivors, and deduplicates.
func ExtractLinks(html io.Reader, base string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var links []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		for _, prefix := range skippedHrefPrefixes {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(href)), prefix) {
				return
			}
		}
		resolved, ok := resolve(base, href)
		if !ok || !urlutil.IsValid(resolved) {
			return
		}
		canon := urlutil.Normalize(resolved)
		if _, dup := seen[canon]; dup {
			return
		}
		seen[canon] = struct{}{}
		links = append(links, canon)
	})
	return links, nil
}

// ExtractContent parses html and returns the page's title/text/language
// plus a script-tag count, or Keep=false meaning "skip this page".
func ExtractContent(html io.Reader) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return Content{}, err
	}

	if noindex(doc) {
		return Content{}, nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	lowerTitle := strings.ToLower(title)
	if title == "" || strings.Contains(lowerTitle, "404") || strings.Contains(lowerTitle, "not found") {
		return Content{}, nil
	}

	scriptCount := doc.Find("script").Length()

	for _, tag := range strippedTags {
		doc.Find(tag).Remove()
	}

	text := strings.TrimSpace(strings.Join(strings.Fields(doc.Find("body").Text()), " "))

	language := "unknown"
	if len(text) > 100 {
		sample := text
		if len(sample) > languageSampleLength {
			sample = sample[:languageSampleLength]
		}
		language = detectLanguage(sample)
	}

	return Content{
		Title:       title,
		Text:        text,
		Language:    language,
		ScriptCount: scriptCount,
		Keep:        true,
	}, nil
}

// detectLanguage is deterministic across runs: whatlanggo's detector has no
// internal random seed, unlike some language-detection libraries that
// require one to be fixed at startup for reproducible output.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Und {
		return "unknown"
	}
	return whatlanggo.LangToString(info.Lang)
}

func noindex(doc *goquery.Document) bool {
	found := false
	doc.Find(`meta[name="robots"]`).Each(func(_ int, sel *goquery.Selection) {
		content, _ := sel.Attr("content")
		if strings.Contains(strings.ToLower(content), "noindex") {
			found = true
		}
	})
	return found
}

func resolve(base, href string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Hostname() != "" {
		return u.String(), true
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	return baseURL.ResolveReference(u).String(), true
}
