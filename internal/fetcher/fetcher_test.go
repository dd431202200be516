package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestPadCIK(t *testing.T) {
	assert.Equal(t, "0000320193", PadCIK("320193"))
	assert.Equal(t, "0000320193", PadCIK("0000320193"))
	assert.Equal(t, "0001234567", PadCIK(" 1234567 "))
}

func TestAdaptiveLimiterAdjusts(t *testing.T) {
	l := NewAdaptiveLimiter(10, 10)
	assert.Equal(t, rate.Limit(10), l.Limit())

	l.OnSuccess()
	assert.Equal(t, rate.Limit(12), l.Limit())

	for range 10 {
		l.OnSuccess()
	}
	assert.Equal(t, rate.Limit(20), l.Limit()) // capped at 2x

	for range 10 {
		l.OnRateLimit()
	}
	assert.Equal(t, rate.Limit(2.5), l.Limit()) // floored at initial/4
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Identity: "Test Suite test@example.com", MaxRetries: 3})
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestHTTPFetcherSendsIdentity(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Identity: "Jane Doe jane@example.com"})
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	assert.Contains(t, agent, "jane@example.com")
}

func TestDownloadIfChangedHonorsETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{Identity: "Test Suite test@example.com"})

	body, etag, changed, err := f.DownloadIfChanged(context.Background(), srv.URL, "")
	require.NoError(t, err)
	require.True(t, changed)
	body.Close()
	assert.Equal(t, `"v1"`, etag)

	_, _, changed, err = f.DownloadIfChanged(context.Background(), srv.URL, etag)
	require.NoError(t, err)
	assert.False(t, changed)
}

type memETagStore struct {
	etags map[string]string
}

func (m *memETagStore) GetETag(_ context.Context, url string) (string, error) {
	return m.etags[url], nil
}

func (m *memETagStore) SetETag(_ context.Context, url, etag string) error {
	m.etags[url] = etag
	return nil
}

func TestSubmissionsCacheRevalidatesWithETag(t *testing.T) {
	var full int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		atomic.AddInt32(&full, 1)
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`{"cik":"320193","filings":{}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewHTTPFetcher(HTTPOptions{Identity: "Test Suite test@example.com"})
	c := NewSubmissionsCache(dir, f, time.Hour)
	c.baseURL = srv.URL + "/submissions/CIK%s.json"
	etags := &memETagStore{etags: map[string]string{}}
	c.UseETagStore(etags)

	data, err := c.Get(context.Background(), "320193")
	require.NoError(t, err)
	assert.Contains(t, string(data), "320193")
	require.EqualValues(t, 1, atomic.LoadInt32(&full))
	assert.Equal(t, `"v1"`, etags.etags[srv.URL+"/submissions/CIK0000320193.json"])

	// Age the copy past maxAge; the stored ETag turns the refresh into a
	// 304 and the bytes on disk are served without a second download.
	path := filepath.Join(dir, "CIK0000320193.json")
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	data, err = c.Get(context.Background(), "320193")
	require.NoError(t, err)
	assert.Contains(t, string(data), "320193")
	assert.EqualValues(t, 1, atomic.LoadInt32(&full))

	// The 304 restarted the freshness window.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, time.Since(info.ModTime()), c.maxAge)
}

func TestSubmissionsCacheServesFreshAndReplacesCorrupt(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{"cik":"320193","filings":{}}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewHTTPFetcher(HTTPOptions{Identity: "Test Suite test@example.com"})
	c := NewSubmissionsCache(dir, f, time.Hour)

	// Point at the test server instead of data.sec.gov.
	path := filepath.Join(dir, "CIK0000320193.json")

	// Fresh valid file: served from disk, no download.
	require.NoError(t, os.WriteFile(path, []byte(`{"cik":"320193"}`), 0o644))
	data, err := c.Get(context.Background(), "320193")
	require.NoError(t, err)
	assert.Contains(t, string(data), "320193")
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits))

	// Corrupt file: deleted on read.
	require.NoError(t, os.WriteFile(path, []byte(`{"cik":`), 0o644))
	_, ok := c.readValid(path)
	assert.False(t, ok)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
