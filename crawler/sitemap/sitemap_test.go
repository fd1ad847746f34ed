package sitemap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestHarvestPlainSitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap.xml" {
			w.Write([]byte(`<urlset><url><loc>` + "http://" + r.Host + `/a</loc></url></urlset>`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	h := New(testLog())
	// Harvest builds https://{domain}, but httptest serves http; probe
	// the known path directly instead.
	var found []string
	seen := make(map[string]struct{})
	h.harvestOne(context.Background(), "http://"+host+"/sitemap.xml", 0, seen, &found)
	if len(found) != 1 || found[0] != "http://"+host+"/a" {
		t.Errorf("found = %v", found)
	}
}

func TestHarvestSitemapIndexRecurses(t *testing.T) {
	var host string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap_index.xml":
			w.Write([]byte(`<sitemapindex><sitemap><loc>http://` + host + `/child.xml</loc></sitemap></sitemapindex>`))
		case "/child.xml":
			w.Write([]byte(`<urlset><url><loc>http://` + host + `/page</loc></url></urlset>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	host = strings.TrimPrefix(srv.URL, "http://")

	h := New(testLog())
	var found []string
	seen := make(map[string]struct{})
	h.harvestOne(context.Background(), "http://"+host+"/sitemap_index.xml", 0, seen, &found)
	if len(found) != 1 || found[0] != "http://"+host+"/page" {
		t.Errorf("found = %v", found)
	}
}
