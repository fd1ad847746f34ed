package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/ayfilter/crawler/crawler/contentfilter"
	"github.com/ayfilter/crawler/crawler/fetcher"
	"github.com/ayfilter/crawler/crawler/htmlpipeline"
	"github.com/ayfilter/crawler/crawler/render"
	"github.com/ayfilter/crawler/crawler/store/queuestore"
)

// Worker runs the per-URL pipeline: robots check, fetch (+ JS fallback),
// parse, filter, persist content, enqueue new links, mark visited/error.
type Worker struct {
	settings *Settings
}

// NewWorker builds a Worker bound to settings.
func NewWorker(settings *Settings) *Worker {
	return &Worker{settings: settings}
}

// Process runs the full sequence for a single claimed record. Every
// failure is converted to mark_error at this single top-level boundary;
// the scheduler never observes a worker crash.
func (w *Worker) Process(ctx context.Context, timeoutFactor float64, record queuestore.URLRecord) {
	defer w.politenessSleep(record.URL)

	s := w.settings
	log := s.Log.WithField("url", record.URL)

	// Step 1: harvest sitemaps for the domain, isolated from the rest of
	// the pipeline; failures here must not fail the URL.
	harvested := s.Sitemap.Harvest(ctx, record.Domain)
	if len(harvested) > 0 {
		if err := s.QueueStore.InsertBulk(ctx, harvested, s.Content.Exists); err != nil {
			log.WithError(err).Warn("sitemap insert_bulk failed")
		}
	}

	// Step 2: robots gate. A disallowed URL is marked visited, not
	// errored: a site-wide disallow is respected, not penalized.
	if !s.Robots.CanFetch(record.URL) {
		if err := s.QueueStore.MarkVisited(ctx, record.ID); err != nil {
			log.WithError(err).Error("mark_visited failed after robots denial")
		}
		return
	}

	// Step 2.5: domain quota. UpdateDomainCounter atomically checks and
	// consumes today's slot for the domain; a non-whitelisted domain at
	// DOMAIN_LIMIT is skipped rather than fetched. The row is marked
	// visited, not errored — hitting quota is not a failure of this URL.
	quotaCount, whitelisted, err := s.QueueStore.UpdateDomainCounter(ctx, record.Domain, s.Config.IsWhitelisted(record.Domain), s.Config.DomainLimit)
	if err != nil {
		log.WithError(err).Warn("update_domain_counter failed, proceeding without quota enforcement")
	} else if !whitelisted && quotaCount >= s.Config.DomainLimit {
		log.WithField("domain", record.Domain).Debug("domain quota reached, skipping for today")
		if err := s.QueueStore.MarkVisited(ctx, record.ID); err != nil {
			log.WithError(err).Error("mark_visited failed after domain quota skip")
		}
		return
	}

	// Step 3: fetch.
	result, err := s.Fetcher.Fetch(record.URL, timeoutFactor)
	if err != nil {
		w.fail(ctx, record, "transport", err.Error())
		return
	}

	// Step 4: bot-trap detection.
	if fetcher.IsBotTrap(result) {
		w.fail(ctx, record, "bot_trap", "403 response body mentions bot")
		return
	}

	// Step 5: non-200 status.
	if result.StatusCode != 200 {
		w.fail(ctx, record, "http_status", "unexpected status")
		return
	}

	// Step 6: HTML pipeline, including the JS-render escalation.
	content, err := w.extract(ctx, record.URL, result.Body)
	if err != nil {
		w.fail(ctx, record, "parse", err.Error())
		return
	}
	if !content.Keep {
		w.fail(ctx, record, "content_quality", "page skipped by extraction rules")
		return
	}

	// Step 7: spam filter.
	if contentfilter.IsSpam(content.Text) {
		w.fail(ctx, record, "spam", "content matched spam heuristic")
		return
	}

	// Step 8: persist content, enqueue discovered links, mark visited.
	if err := s.Content.Save(ctx, record.URL, content.Title, content.Text, content.Language, time.Now()); err != nil {
		log.WithError(err).Error("content store save failed")
		w.fail(ctx, record, "content_store", err.Error())
		return
	}

	links, err := htmlpipeline.ExtractLinks(bytes.NewReader(result.Body), record.URL)
	if err != nil {
		log.WithError(err).Warn("link extraction failed")
	} else if len(links) > 0 {
		if err := s.QueueStore.InsertBulk(ctx, links, s.Content.Exists); err != nil {
			log.WithError(err).Warn("insert_bulk for discovered links failed")
		}
	}

	if err := s.QueueStore.MarkVisited(ctx, record.ID); err != nil {
		log.WithError(err).Error("mark_visited failed")
		return
	}

	w.emit(record.URL, links)
}

// extract runs the static HTML pipeline, escalating to the JS render
// fallback when the page is short and script-heavy, per the minimum
// content gate.
func (w *Worker) extract(ctx context.Context, url string, body []byte) (htmlpipeline.Content, error) {
	s := w.settings
	content, err := htmlpipeline.ExtractContent(bytes.NewReader(body))
	if err != nil {
		return htmlpipeline.Content{}, err
	}
	if !content.Keep {
		return content, nil
	}
	if len(content.Text) >= s.Config.MinContentLength {
		return content, nil
	}
	if content.ScriptCount <= s.Config.JSRenderThreshold {
		return htmlpipeline.Content{}, nil
	}

	rendered, err := render.FetchWithJS(ctx, url)
	if err != nil || !rendered.Keep || len(rendered.Text) < s.Config.MinContentLength {
		return htmlpipeline.Content{}, nil
	}
	return rendered, nil
}

func (w *Worker) fail(ctx context.Context, record queuestore.URLRecord, errorType, message string) {
	s := w.settings
	log := s.Log.WithField("url", record.URL)

	errorCount, err := s.QueueStore.MarkError(ctx, record.ID)
	if err != nil {
		log.WithError(err).Error("mark_error failed")
		return
	}
	if err := s.QueueStore.LogError(ctx, record.URL, errorType, message); err != nil {
		log.WithError(err).Warn("error_logs insert failed")
	}
	if errorCount >= s.Config.MaxErrorCount {
		log.WithField("error_count", errorCount).Warn("url blacklisted: max error count reached")
	}
}

func (w *Worker) emit(url string, links []string) {
	payload, err := json.Marshal(ParsedResult{URL: url, Links: links})
	if err != nil {
		return
	}
	if w.settings.Queue == nil {
		return
	}
	if err := w.settings.Queue.Produce(payload); err != nil {
		w.settings.Log.WithError(err).Warn("unable to communicate with message queue")
	}
}

// politenessSleep waits a jittered 1-4s before the worker slot is
// released, floored by any robots Crawl-delay directive.
func (w *Worker) politenessSleep(url string) {
	jitter := politenessMinDelay + time.Duration(rand.Int63n(int64(politenessMaxDelay-politenessMinDelay)))
	if floor := w.settings.Robots.CrawlDelay(url); floor > jitter {
		jitter = floor
	}
	time.Sleep(jitter)
}
