package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// submissionsURL is the EDGAR bulk submissions endpoint, keyed by
// zero-padded CIK.
const submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"

// ETagStore persists ETags between runs so a stale cache entry can be
// revalidated with a conditional request instead of re-downloaded.
type ETagStore interface {
	GetETag(ctx context.Context, url string) (string, error)
	SetETag(ctx context.Context, url, etag string) error
}

// SubmissionsCache keeps local copies of EDGAR submissions JSON files.
// Reads serve from disk while fresh; stale or corrupt copies are replaced
// atomically. A corrupt file is deleted and re-downloaded exactly once per
// access.
type SubmissionsCache struct {
	dir     string
	baseURL string
	fetcher Fetcher
	etags   ETagStore
	maxAge  time.Duration
}

// NewSubmissionsCache creates a cache rooted at dir. A zero maxAge defaults
// to 24 hours.
func NewSubmissionsCache(dir string, f Fetcher, maxAge time.Duration) *SubmissionsCache {
	if maxAge == 0 {
		maxAge = 24 * time.Hour
	}
	return &SubmissionsCache{dir: dir, baseURL: submissionsURL, fetcher: f, maxAge: maxAge}
}

// UseETagStore enables conditional refreshes: when a stale but parseable
// copy is on disk and the stored ETag still matches upstream, the refresh
// is a 304 and the cached bytes are reused.
func (c *SubmissionsCache) UseETagStore(s ETagStore) {
	c.etags = s
}

// Get returns the submissions JSON for a CIK, downloading when the cached
// copy is missing, stale, or corrupt.
func (c *SubmissionsCache) Get(ctx context.Context, cik string) ([]byte, error) {
	padded := PadCIK(cik)
	path := filepath.Join(c.dir, "CIK"+padded+".json")

	if data, ok := c.readValid(path); ok {
		return data, nil
	}

	if err := c.refresh(ctx, padded, path); err != nil {
		return nil, err
	}
	data, ok := c.readValid(path)
	if !ok {
		return nil, eris.Errorf("fetcher: submissions cache unreadable after refresh for CIK %s", cik)
	}
	return data, nil
}

// readValid returns the cached bytes when the file is fresh and parses as
// JSON; corrupt files are deleted so the caller re-downloads.
func (c *SubmissionsCache) readValid(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	if !json.Valid(data) {
		zap.L().Warn("fetcher: deleting corrupt submissions cache file",
			zap.String("path", path))
		_ = os.Remove(path)
		return nil, false
	}
	return data, true
}

// refresh downloads the submissions file to a temp path and atomically
// replaces the cache entry. With an ETag store and a parseable copy on disk
// the download is conditional, and a 304 just restarts the freshness window.
func (c *SubmissionsCache) refresh(ctx context.Context, paddedCIK, path string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return eris.Wrapf(err, "fetcher: create cache dir %s", c.dir)
	}

	url := fmt.Sprintf(c.baseURL, paddedCIK)
	etag := c.revalidationETag(ctx, url, path)

	body, newETag, changed, err := c.fetcher.DownloadIfChanged(ctx, url, etag)
	if err != nil {
		return eris.Wrapf(err, "fetcher: download submissions for CIK %s", paddedCIK)
	}
	if !changed {
		now := time.Now()
		if err := os.Chtimes(path, now, now); err != nil {
			return eris.Wrapf(err, "fetcher: touch cache file %s", path)
		}
		zap.L().Debug("fetcher: submissions unchanged upstream",
			zap.String("cik", paddedCIK), zap.String("etag", etag))
		return nil
	}
	defer body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(c.dir, "CIK"+paddedCIK+".*.tmp")
	if err != nil {
		return eris.Wrap(err, "fetcher: create temp cache file")
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()          //nolint:errcheck
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "fetcher: write temp cache file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "fetcher: close temp cache file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return eris.Wrap(err, "fetcher: replace cache file")
	}
	if c.etags != nil && newETag != "" {
		if err := c.etags.SetETag(ctx, url, newETag); err != nil {
			zap.L().Warn("fetcher: persist submissions etag",
				zap.String("url", url), zap.Error(err))
		}
	}
	zap.L().Debug("fetcher: refreshed submissions cache",
		zap.String("cik", paddedCIK), zap.String("path", path))
	return nil
}

// revalidationETag returns the stored ETag for a URL when a parseable
// cached copy exists to serve on a 304. Anything else forces a full
// download by returning "".
func (c *SubmissionsCache) revalidationETag(ctx context.Context, url, path string) string {
	if c.etags == nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil || !json.Valid(data) {
		return ""
	}
	etag, err := c.etags.GetETag(ctx, url)
	if err != nil {
		zap.L().Warn("fetcher: read stored etag",
			zap.String("url", url), zap.Error(err))
		return ""
	}
	return etag
}

// PadCIK zero-pads a CIK to the ten digits EDGAR endpoints expect.
func PadCIK(cik string) string {
	cik = strings.TrimLeft(strings.TrimSpace(cik), "0")
	if len(cik) >= 10 {
		return cik
	}
	return strings.Repeat("0", 10-len(cik)) + cik
}
