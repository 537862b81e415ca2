package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/weblookup/internal/fetch"
)

const urlsetNS = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>https://example.com/page1</loc>
    <lastmod>2024-01-15</lastmod>
    <changefreq>daily</changefreq>
    <priority>0.8</priority>
  </url>
  <url>
    <loc>
      https://example.com/page2
    </loc>
    <lastmod>2024-02-01T10:30:00+02:00</lastmod>
  </url>
  <url>
    <loc>https://example.com/page3</loc>
    <lastmod>not a date</lastmod>
    <priority>high</priority>
  </url>
  <url>
    <changefreq>weekly</changefreq>
  </url>
</urlset>`

const urlsetPlain = `<urlset>
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

func newCrawler(srv *httptest.Server) *Crawler {
	return &Crawler{Client: &fetch.Client{HTTPClient: srv.Client()}}
}

func serveXML(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(body))
	}
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func urls(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.URL)
	}
	return out
}

func TestCollect_URLSetFields(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(serveXML(urlsetNS))
	t.Cleanup(srv.Close)

	entries, err := newCrawler(srv).Collect(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries (one lacks loc), got %d: %v", len(entries), urls(entries))
	}

	e := entries[0]
	if e.URL != "https://example.com/page1" || e.ChangeFrequency != "daily" {
		t.Fatalf("unexpected first entry: %+v", e)
	}
	if e.Priority == nil || *e.Priority != 0.8 {
		t.Fatalf("expected priority 0.8, got %v", e.Priority)
	}
	if e.LastModified == nil || !e.LastModified.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected lastmod: %v", e.LastModified)
	}

	if entries[1].URL != "https://example.com/page2" {
		t.Fatalf("expected trimmed loc, got %q", entries[1].URL)
	}
	want := time.Date(2024, 2, 1, 8, 30, 0, 0, time.UTC)
	if entries[1].LastModified == nil || !entries[1].LastModified.Equal(want) {
		t.Fatalf("unexpected lastmod with offset: %v", entries[1].LastModified)
	}

	if entries[2].LastModified != nil || entries[2].Priority != nil {
		t.Fatalf("expected unparseable lastmod/priority to be absent: %+v", entries[2])
	}
}

func TestCollect_WithoutNamespace(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(serveXML(urlsetPlain))
	t.Cleanup(srv.Close)

	entries, err := newCrawler(srv).Collect(context.Background(), srv.URL+"/sitemap.xml")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if got := urls(entries); len(got) != 2 || got[0] != "https://example.com/a" || got[1] != "https://example.com/b" {
		t.Fatalf("unexpected entries: %v", got)
	}
}

func TestCollect_UnrecognizedRootIsFlatList(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(serveXML(`<feed><url><loc>https://example.com/x</loc></url></feed>`))
	t.Cleanup(srv.Close)

	entries, err := newCrawler(srv).Collect(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(entries) != 1 || entries[0].URL != "https://example.com/x" {
		t.Fatalf("unexpected entries: %v", urls(entries))
	}
}

func TestCollect_IndexDepthFirstInOrder_SkipsBrokenChildren(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		serveXML(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/first.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/missing.xml</loc></sitemap>
  <sitemap><loc>` + srv.URL + `/broken.xml</loc></sitemap>
  <sitemap><loc>not a url</loc></sitemap>
  <sitemap><lastmod>2024-01-01</lastmod></sitemap>
  <sitemap><loc>` + srv.URL + `/second.xml</loc></sitemap>
</sitemapindex>`)(w, r)
	})
	mux.HandleFunc("/first.xml", serveXML(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://example.com/1</loc></url><url><loc>https://example.com/2</loc></url></urlset>`))
	mux.HandleFunc("/broken.xml", serveXML(`<urlset><url><loc>https://example.com/never`))
	mux.HandleFunc("/second.xml", serveXML(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>https://example.com/3</loc></url></urlset>`))

	entries, err := newCrawler(srv).Collect(context.Background(), srv.URL+"/index.xml")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	got := strings.Join(urls(entries), ",")
	if got != "https://example.com/1,https://example.com/2,https://example.com/3" {
		t.Fatalf("unexpected order or content: %s", got)
	}
}

func TestCollect_SelfReferencingIndexTerminates(t *testing.T) {
	t.Parallel()
	var hits int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/loop.xml", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		serveXML(`<sitemapindex><sitemap><loc>` + srv.URL + `/loop.xml</loc></sitemap></sitemapindex>`)(w, r)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	entries, err := newCrawler(srv).Collect(ctx, srv.URL+"/loop.xml")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	// Depths 0 through 10 are fetched, depth 11 is cut off.
	if got := atomic.LoadInt32(&hits); got != DefaultMaxDepth+1 {
		t.Fatalf("expected %d fetches, got %d", DefaultMaxDepth+1, got)
	}
}

func TestCollect_MaxDepthOverride(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		serveXML(`<sitemapindex><sitemap><loc>` + srv.URL + `/leaf.xml</loc></sitemap></sitemapindex>`)(w, r)
	})
	mux.HandleFunc("/leaf.xml", serveXML(urlsetPlain))

	c := newCrawler(srv)
	c.MaxDepth = 1
	entries, err := c.Collect(context.Background(), srv.URL+"/index.xml")
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected leaf at depth 1 to be read, got %d entries err=%v", len(entries), err)
	}
}

func TestCollect_NegativeMaxDepthReadsRootOnly(t *testing.T) {
	t.Parallel()
	var leafHits int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		serveXML(`<sitemapindex><sitemap><loc>` + srv.URL + `/leaf.xml</loc></sitemap></sitemapindex>`)(w, r)
	})
	mux.HandleFunc("/leaf.xml", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&leafHits, 1)
		serveXML(urlsetPlain)(w, r)
	})
	mux.HandleFunc("/plain.xml", serveXML(urlsetPlain))

	c := newCrawler(srv)
	c.MaxDepth = -1
	entries, err := c.Collect(context.Background(), srv.URL+"/index.xml")
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected no entries from the index alone, got %d err=%v", len(entries), err)
	}
	if atomic.LoadInt32(&leafHits) != 0 {
		t.Fatalf("expected child sitemap not to be fetched")
	}
	entries, err = c.Collect(context.Background(), srv.URL+"/plain.xml")
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected root urlset to be read, got %d err=%v", len(entries), err)
	}
}

func TestCollect_GzipBySuffixAndContentEncoding(t *testing.T) {
	t.Parallel()
	compressed := gzipBytes(t, urlsetNS)
	mux := http.NewServeMux()
	mux.HandleFunc("/plain.xml", serveXML(urlsetNS))
	mux.HandleFunc("/sitemap.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write(compressed)
	})
	mux.HandleFunc("/encoded.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(compressed)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	// Keep the transport from decoding Content-Encoding itself.
	hc := srv.Client()
	hc.Transport = &http.Transport{DisableCompression: true}
	c := &Crawler{Client: &fetch.Client{HTTPClient: hc}}

	plain, err := c.Collect(context.Background(), srv.URL+"/plain.xml")
	if err != nil || len(plain) != 3 {
		t.Fatalf("plain: %d entries, err=%v", len(plain), err)
	}
	for _, path := range []string{"/sitemap.xml.gz", "/encoded.xml"} {
		got, err := c.Collect(context.Background(), srv.URL+path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if strings.Join(urls(got), ",") != strings.Join(urls(plain), ",") {
			t.Fatalf("%s: expected %v, got %v", path, urls(plain), urls(got))
		}
	}
}

func TestStream_CancellationPropagates(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(serveXML(urlsetPlain))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries, err := newCrawler(srv).Collect(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries after cancellation, got %d", len(entries))
	}
}

func TestStream_StopsFetchingWhenConsumerBreaks(t *testing.T) {
	t.Parallel()
	var secondHits int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/index.xml", func(w http.ResponseWriter, r *http.Request) {
		serveXML(`<sitemapindex>
<sitemap><loc>` + srv.URL + `/first.xml</loc></sitemap>
<sitemap><loc>` + srv.URL + `/second.xml</loc></sitemap>
</sitemapindex>`)(w, r)
	})
	mux.HandleFunc("/first.xml", serveXML(urlsetPlain))
	mux.HandleFunc("/second.xml", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&secondHits, 1)
		serveXML(urlsetPlain)(w, r)
	})

	var seen int
	for e, err := range newCrawler(srv).Stream(context.Background(), srv.URL+"/index.xml") {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		seen++
		if e.URL == "https://example.com/a" {
			break
		}
	}
	if seen != 1 {
		t.Fatalf("expected to stop after one entry, saw %d", seen)
	}
	if got := atomic.LoadInt32(&secondHits); got != 0 {
		t.Fatalf("expected second sitemap never fetched, got %d hits", got)
	}
}

func TestParseLastMod(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-01-15", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-15T10:00:00Z", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), true},
		{"2024-01-15T10:00+01:00", time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), true},
		{"2024-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}
	for _, c := range cases {
		got, ok := parseLastMod(c.in)
		if ok != c.ok {
			t.Fatalf("%q: ok=%v, want %v", c.in, ok, c.ok)
		}
		if ok && !got.Equal(c.want) {
			t.Fatalf("%q: got %v, want %v", c.in, got, c.want)
		}
	}
}
