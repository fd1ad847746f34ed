package fetcher

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchSetsHeaders(t *testing.T) {
	var gotUA, gotReferer, gotDNT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		gotDNT = r.Header.Get("DNT")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(2 * time.Second)
	res, err := f.Fetch(srv.URL, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if gotUA == "" {
		t.Error("expected a User-Agent header to be set")
	}
	if gotReferer != "https://www.google.com/" {
		t.Errorf("Referer = %q", gotReferer)
	}
	if gotDNT != "0" && gotDNT != "1" {
		t.Errorf("DNT = %q, want 0 or 1", gotDNT)
	}
}

func TestIsBotTrap(t *testing.T) {
	trap := Result{StatusCode: http.StatusForbidden, Body: []byte("Our system detected you are a BOT")}
	if !IsBotTrap(trap) {
		t.Error("expected bot trap detected")
	}
	notTrap := Result{StatusCode: http.StatusForbidden, Body: []byte("access denied")}
	if IsBotTrap(notTrap) {
		t.Error("expected no bot trap without the keyword")
	}
	okStatus := Result{StatusCode: http.StatusOK, Body: []byte("bot bot bot")}
	if IsBotTrap(okStatus) {
		t.Error("expected no bot trap on non-403 status")
	}
}

func TestFetchTimeoutFactorScalesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// The 300ms response outlasts the 200ms base timeout but not the
	// 400ms scaled one.
	f := New(200 * time.Millisecond)
	if _, err := f.Fetch(srv.URL, 2.0); err != nil {
		t.Fatalf("unexpected error with scaled timeout: %v", err)
	}
	_ = strings.TrimSpace("")
}
