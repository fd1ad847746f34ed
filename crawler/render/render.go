// Package render implements the JS-render fallback: a headless-browser
// re-fetch of a page when the static HTML pipeline extracts too little
// content from a script-heavy document.
package render

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/ayfilter/crawler/crawler/fetcher"
	"github.com/ayfilter/crawler/crawler/htmlpipeline"
)

const (
	viewportWidth  = 1280
	viewportHeight = 800

	firstScrollPx  = 500
	secondScrollPx = 1000
	scrollPause    = 300 * time.Millisecond
)

// stealthInitScript hides the automation indicator on navigator and plants
// a minimal chrome runtime stub, for rudimentary bot-detection evasion.
const stealthInitScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {} };
`

// FetchWithJS launches a headless browser, navigates to targetURL with a
// user agent drawn at random from fetcher.DefaultUserAgents and the
// standard viewport, coaxes
// lazily-loaded content with two scrolls, then runs the same content
// extraction the static pipeline uses. Any failure yields Keep=false; the
// browser is disposed on every exit path.
func FetchWithJS(ctx context.Context, targetURL string) (htmlpipeline.Content, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.UserAgent(fetcher.DefaultUserAgents[rand.Intn(len(fetcher.DefaultUserAgents))]),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	initialWait := time.Duration(1000+rand.Intn(2000)) * time.Millisecond

	var outerHTML string
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(c context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthInitScript).Do(c)
			return err
		}),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(initialWait),
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", firstScrollPx), nil),
		chromedp.Sleep(scrollPause),
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", secondScrollPx), nil),
		chromedp.Sleep(scrollPause),
		chromedp.OuterHTML("html", &outerHTML, chromedp.ByQuery),
	)
	if err != nil {
		return htmlpipeline.Content{}, err
	}

	return htmlpipeline.ExtractContent(strings.NewReader(outerHTML))
}
