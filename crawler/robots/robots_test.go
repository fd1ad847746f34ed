package robots

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestCanFetchDisallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == robotsTxtPath {
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := New("test-agent", 3*time.Second, testLog())
	if g.CanFetch(srv.URL + "/private/x") {
		t.Error("expected /private/x to be disallowed")
	}
	if !g.CanFetch(srv.URL + "/public/y") {
		t.Error("expected /public/y to be allowed")
	}
}

func TestCanFetchFailsOpenOnNetworkError(t *testing.T) {
	g := New("test-agent", 200*time.Millisecond, testLog())
	if !g.CanFetch("http://127.0.0.1:1/x") {
		t.Error("expected fail-open allow on network error")
	}
}

func TestCanFetchCachesGroupPerHost(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("User-agent: *\nDisallow: /x\n"))
	}))
	defer srv.Close()

	g := New("test-agent", 3*time.Second, testLog())
	g.CanFetch(srv.URL + "/a")
	g.CanFetch(srv.URL + "/b")
	if calls != 1 {
		t.Errorf("expected robots.txt fetched once, got %d calls", calls)
	}
}

// TestCanFetchConcurrentAccess exercises the Gate the way the scheduler's
// errgroup fan-out does: many goroutines hitting CanFetch on the same host
// at once. Run with -race to catch a regression to an unguarded map.
func TestCanFetchConcurrentAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /x\n"))
	}))
	defer srv.Close()

	g := New("test-agent", 3*time.Second, testLog())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.CanFetch(srv.URL + "/a")
			g.CrawlDelay(srv.URL + "/a")
		}()
	}
	wg.Wait()
}
