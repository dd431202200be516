// Package edgar is the public entry point of the library: parse a filing
// from any supported source, load a company's filing history, and derive
// stitched or trailing-twelve-month financial statements.
package edgar

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/fetcher"
	"github.com/sells-group/edgar-core/internal/filing"
	"github.com/sells-group/edgar-core/internal/sgml"
	"github.com/sells-group/edgar-core/internal/source"
	"github.com/sells-group/edgar-core/internal/store"
)

var (
	identityMu      sync.RWMutex
	defaultIdentity string
)

// SetIdentity sets the identity string ("Name email") sent to sec.gov on
// every request. EDGAR rejects requests without one. The EDGAR_IDENTITY
// environment variable is used when no identity has been set.
func SetIdentity(identity string) {
	identityMu.Lock()
	defaultIdentity = identity
	identityMu.Unlock()
}

// Identity returns the configured identity, falling back to EDGAR_IDENTITY.
func Identity() string {
	identityMu.RLock()
	id := defaultIdentity
	identityMu.RUnlock()
	if id == "" {
		id = os.Getenv(fetcher.EnvIdentity)
	}
	return id
}

// UseDatamuleStorage registers local datamule tar archives so accession
// numbers can be parsed without hitting sec.gov.
func UseDatamuleStorage(tarPaths ...string) error {
	return source.UseDatamuleStorage(tarPaths...)
}

// UseDatamuleStorageWithIndex registers tar archives like UseDatamuleStorage
// but keeps the accession index in the store: archives indexed on a previous
// run register from their persisted rows without re-reading the tar.
func UseDatamuleStorageWithIndex(ctx context.Context, st store.Store, tarPaths ...string) error {
	for _, tarPath := range tarPaths {
		recs, err := st.ListFilings(ctx, store.FilingFilter{TarPath: tarPath, Limit: -1})
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			accessions := make([]string, 0, len(recs))
			for _, rec := range recs {
				accessions = append(accessions, rec.Accession)
			}
			source.RegisterAccessions(tarPath, accessions)
			zap.L().Info("edgar: registered datamule archive from index",
				zap.String("tar", tarPath), zap.Int("filings", len(accessions)))
			continue
		}

		accessions, err := source.ScanTarAccessions(tarPath)
		if err != nil {
			return err
		}
		for _, accession := range accessions {
			if _, err := st.IndexFiling(ctx, store.FilingRecord{Accession: accession, TarPath: tarPath}); err != nil {
				return err
			}
		}
		source.RegisterAccessions(tarPath, accessions)
		zap.L().Info("edgar: indexed datamule archive",
			zap.String("tar", tarPath), zap.Int("filings", len(accessions)))
	}
	return nil
}

// dashlessAccessionLen is the length of an accession number with the dashes
// stripped (10-digit filer id, 2-digit year, 6-digit sequence).
const dashlessAccessionLen = 18

func looksLikeAccession(s string) bool {
	if sgml.AccessionNumberRe.MatchString(s) {
		return true
	}
	if len(s) != dashlessAccessionLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Parse loads one filing. The source may be an http(s) URL, a local file
// path (plain, gzip, or zstd compressed), a datamule tar archive holding a
// single filing, or an accession number resolved through registered
// datamule storage.
func Parse(ctx context.Context, src string) (*filing.FilingSGML, error) {
	switch {
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		return parseURL(ctx, src)
	case looksLikeAccession(src):
		tf, err := source.GetDatamuleFiling(src)
		if err != nil {
			return nil, err
		}
		return filing.FromTarFiling(tf), nil
	case strings.EqualFold(filepath.Ext(src), ".tar"):
		filings, err := ParseTar(src)
		if err != nil {
			return nil, err
		}
		if len(filings) != 1 {
			return nil, eris.Errorf("edgar: archive %s holds %d filings, use ParseTar", src, len(filings))
		}
		return filings[0], nil
	default:
		return parseFile(src)
	}
}

// ParseTar loads every filing from a datamule tar archive.
func ParseTar(tarPath string) ([]*filing.FilingSGML, error) {
	tarFilings, err := source.ReadTar(tarPath)
	if err != nil {
		return nil, err
	}
	filings := make([]*filing.FilingSGML, 0, len(tarFilings))
	for _, tf := range tarFilings {
		filings = append(filings, filing.FromTarFiling(tf))
	}
	return filings, nil
}

func parseURL(ctx context.Context, url string) (*filing.FilingSGML, error) {
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Identity: Identity()})
	body, err := f.Download(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: read %s", url)
	}
	return parseBytes(data)
}

func parseFile(path string) (*filing.FilingSGML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: read %s", path)
	}
	return parseBytes(data)
}

func parseBytes(data []byte) (*filing.FilingSGML, error) {
	text, err := source.Decode(data)
	if err != nil {
		return nil, err
	}
	result, err := sgml.Parse(text)
	if err != nil {
		return nil, err
	}
	return filing.FromParseResult(result)
}
