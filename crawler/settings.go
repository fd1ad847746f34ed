// Package crawler contains the crawling logic and utilities to scrape
// remote resources on the web: the per-URL worker pipeline and the
// adaptive scheduler that drives it.
package crawler

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayfilter/crawler/crawler/config"
	"github.com/ayfilter/crawler/crawler/fetcher"
	"github.com/ayfilter/crawler/crawler/robots"
	"github.com/ayfilter/crawler/crawler/sitemap"
	"github.com/ayfilter/crawler/crawler/store/contentstore"
	"github.com/ayfilter/crawler/crawler/store/queuestore"
	"github.com/ayfilter/crawler/messaging"
)

const defaultUserAgent = "Mozilla/5.0 (compatible; AyfilterBot/1.0; +https://www.shiftdelete.net/)"

// ParsedResult is emitted on the messaging queue after a URL is
// successfully processed, JSON-serializable for downstream consumers.
type ParsedResult struct {
	URL   string   `json:"url"`
	Links []string `json:"links"`
}

// Settings bundles every dependency the scheduler and its workers need.
// These are process-wide singletons, constructed once at startup and
// passed down explicitly rather than reached for as ambient globals.
type Settings struct {
	Config config.Config

	Fetcher    *fetcher.Fetcher
	Robots     *robots.Gate
	Sitemap    *sitemap.Harvester
	QueueStore *queuestore.Store
	Content    *contentstore.Store
	Queue      messaging.Producer
	Log        *logrus.Entry
}

// NewSettings wires together the concrete dependencies for a Settings
// bundle from a Config, a queue store, a content store, and an outbound
// message producer.
func NewSettings(cfg config.Config, qs *queuestore.Store, cs *contentstore.Store, queue messaging.Producer, log *logrus.Entry) *Settings {
	return &Settings{
		Config:     cfg,
		Fetcher:    fetcher.New(cfg.RequestTimeout),
		Robots:     robots.New(defaultUserAgent, cfg.RobotsTimeout, log),
		Sitemap:    sitemap.New(log),
		QueueStore: qs,
		Content:    cs,
		Queue:      queue,
		Log:        log,
	}
}

const politenessMinDelay = 1 * time.Second
const politenessMaxDelay = 4 * time.Second
