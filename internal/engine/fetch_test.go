package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte("<html>trang gia phả</html>"))
	}))
	defer srv.Close()
	Init(Config{})

	body, err := FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if !bytes.Contains(body, []byte("trang gia phả")) {
		t.Errorf("body = %q", body)
	}
}

func TestFetchPageGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("nén gzip"))
		gz.Close()
	}))
	defer srv.Close()
	Init(Config{HTTPClient: &http.Client{Transport: &http.Transport{DisableCompression: true}}})

	body, err := FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "nén gzip" {
		t.Errorf("body = %q", body)
	}
}

func TestFetchPageNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	Init(Config{})

	if _, err := FetchPage(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestFetchPageRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()
	Init(Config{})

	body, err := FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if string(body) != "ok" || calls != 3 {
		t.Errorf("body = %q after %d calls", body, calls)
	}
}
