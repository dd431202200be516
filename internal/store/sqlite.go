package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS filings (
	id          TEXT PRIMARY KEY,
	accession   TEXT NOT NULL UNIQUE,
	cik         TEXT NOT NULL,
	form_type   TEXT NOT NULL,
	filing_date TEXT NOT NULL,
	tar_path    TEXT NOT NULL,
	member      TEXT NOT NULL,
	indexed_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS etags (
	url        TEXT PRIMARY KEY,
	etag       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_filings_cik ON filings(cik);
CREATE INDEX IF NOT EXISTS idx_filings_form_type ON filings(form_type);
CREATE INDEX IF NOT EXISTS idx_filings_tar_path ON filings(tar_path);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IndexFiling upserts the record keyed by accession. Re-indexing a tar
// refreshes the location without duplicating rows.
func (s *SQLiteStore) IndexFiling(ctx context.Context, rec FilingRecord) (*FilingRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.IndexedAt.IsZero() {
		rec.IndexedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO filings (id, accession, cik, form_type, filing_date, tar_path, member, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(accession) DO UPDATE SET
		   cik = excluded.cik,
		   form_type = excluded.form_type,
		   filing_date = excluded.filing_date,
		   tar_path = excluded.tar_path,
		   member = excluded.member,
		   indexed_at = excluded.indexed_at`,
		rec.ID, rec.Accession, rec.CIK, rec.FormType, rec.FilingDate, rec.TarPath, rec.Member, rec.IndexedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: index filing %s", rec.Accession)
	}
	return s.GetFiling(ctx, rec.Accession)
}

func (s *SQLiteStore) GetFiling(ctx context.Context, accession string) (*FilingRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, accession, cik, form_type, filing_date, tar_path, member, indexed_at
		 FROM filings WHERE accession = ?`,
		accession,
	)

	var rec FilingRecord
	err := row.Scan(&rec.ID, &rec.Accession, &rec.CIK, &rec.FormType, &rec.FilingDate,
		&rec.TarPath, &rec.Member, &rec.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get filing %s", accession)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListFilings(ctx context.Context, filter FilingFilter) ([]FilingRecord, error) {
	query := `SELECT id, accession, cik, form_type, filing_date, tar_path, member, indexed_at
	          FROM filings WHERE 1=1`
	var args []any

	if filter.CIK != "" {
		query += ` AND cik = ?`
		args = append(args, filter.CIK)
	}
	if filter.FormType != "" {
		query += ` AND form_type = ?`
		args = append(args, filter.FormType)
	}
	if filter.TarPath != "" {
		query += ` AND tar_path = ?`
		args = append(args, filter.TarPath)
	}
	query += ` ORDER BY filing_date DESC, accession DESC`

	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = 100
		}
		query += ` LIMIT ?`
		args = append(args, limit)

		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list filings")
	}
	defer rows.Close()

	var recs []FilingRecord
	for rows.Next() {
		var rec FilingRecord
		if err := rows.Scan(&rec.ID, &rec.Accession, &rec.CIK, &rec.FormType, &rec.FilingDate,
			&rec.TarPath, &rec.Member, &rec.IndexedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan filing")
		}
		recs = append(recs, rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list filings iterate")
}

// DeleteFilingsForTar drops every index row pointing at a tar, for use when
// the archive is removed or about to be re-scanned.
func (s *SQLiteStore) DeleteFilingsForTar(ctx context.Context, tarPath string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM filings WHERE tar_path = ?`,
		tarPath,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete filings for %s", tarPath)
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetETag(ctx context.Context, url string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT etag FROM etags WHERE url = ?`, url)

	var etag string
	err := row.Scan(&etag)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: get etag")
	}
	return etag, nil
}

func (s *SQLiteStore) SetETag(ctx context.Context, url, etag string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etags (url, etag, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET etag = excluded.etag, fetched_at = excluded.fetched_at`,
		url, etag, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set etag")
}
