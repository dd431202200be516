// Package store persists the local filing index: which accession lives in
// which tar archive, plus ETag bookkeeping for conditional downloads.
package store

import (
	"context"
	"time"
)

// FilingRecord locates one filing inside a local archive.
type FilingRecord struct {
	ID         string    `json:"id"`
	Accession  string    `json:"accession"`
	CIK        string    `json:"cik"`
	FormType   string    `json:"form_type"`
	FilingDate string    `json:"filing_date"`
	TarPath    string    `json:"tar_path"`
	Member     string    `json:"member"`
	IndexedAt  time.Time `json:"indexed_at"`
}

// FilingFilter specifies criteria for listing indexed filings. A zero Limit
// defaults to 100; a negative Limit returns everything.
type FilingFilter struct {
	CIK      string `json:"cik,omitempty"`
	FormType string `json:"form_type,omitempty"`
	TarPath  string `json:"tar_path,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the filing index.
type Store interface {
	// Filing index
	IndexFiling(ctx context.Context, rec FilingRecord) (*FilingRecord, error)
	GetFiling(ctx context.Context, accession string) (*FilingRecord, error)
	ListFilings(ctx context.Context, filter FilingFilter) ([]FilingRecord, error)
	DeleteFilingsForTar(ctx context.Context, tarPath string) (int, error)

	// ETag cache
	GetETag(ctx context.Context, url string) (string, error)
	SetETag(ctx context.Context, url, etag string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
