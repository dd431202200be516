package source

import (
	"archive/tar"
	"io"
	"os"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// storageIndex is the process-global datamule index: accession number to the
// tar archive holding the filing. It is populated by UseDatamuleStorage at
// startup and treated as immutable afterwards, so reads take no lock.
var storageIndex = map[string]string{}

// normalizeAccession strips dashes so both "0001234567-24-000123" and the
// dashless directory form key the same entry.
func normalizeAccession(accession string) string {
	return strings.ReplaceAll(strings.TrimSpace(accession), "-", "")
}

// UseDatamuleStorage scans the given tar archives and registers every
// accession number they contain. Call once during startup, before any
// lookups.
func UseDatamuleStorage(tarPaths ...string) error {
	for _, tarPath := range tarPaths {
		accessions, err := ScanTarAccessions(tarPath)
		if err != nil {
			return err
		}
		RegisterAccessions(tarPath, accessions)
		zap.L().Info("source: registered datamule archive",
			zap.String("tar", tarPath), zap.Int("filings", len(accessions)))
	}
	return nil
}

// RegisterAccessions seeds the index for one archive from a previously
// persisted scan, without reading the tar.
func RegisterAccessions(tarPath string, accessions []string) {
	for _, accession := range accessions {
		storageIndex[normalizeAccession(accession)] = tarPath
	}
}

// DatamuleTarPath looks up the tar archive registered for an accession.
func DatamuleTarPath(accession string) (string, bool) {
	tarPath, ok := storageIndex[normalizeAccession(accession)]
	return tarPath, ok
}

// GetDatamuleFiling loads one filing from the registered datamule storage.
func GetDatamuleFiling(accession string) (*TarFiling, error) {
	tarPath, ok := DatamuleTarPath(accession)
	if !ok {
		return nil, eris.Errorf("source: accession %s not present in datamule storage", accession)
	}
	filings, err := ReadTar(tarPath)
	if err != nil {
		return nil, err
	}
	want := normalizeAccession(accession)
	for _, filing := range filings {
		if normalizeAccession(filing.Accession) == want {
			return filing, nil
		}
	}
	return nil, eris.Errorf("source: accession %s indexed to %s but not found inside", accession, tarPath)
}

// ScanTarAccessions lists the accession numbers inside a tar without
// materializing document bodies. Batch tars expose accessions as directory
// names; single-filing tars expose one via the root metadata.json.
func ScanTarAccessions(tarPath string) ([]string, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open tar %s", tarPath)
	}
	defer f.Close()

	seen := map[string]bool{}
	var accessions []string

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: scan tar %s", tarPath)
		}

		name := path.Clean(hdr.Name)
		dir, base := path.Split(name)
		dir = strings.Trim(dir, "/")

		if dir == "" && base == "metadata.json" && hdr.Typeflag == tar.TypeReg {
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, eris.Wrapf(err, "source: read %s metadata.json", tarPath)
			}
			meta, err := ParseMetadata(data)
			if err == nil && meta.AccessionNumber != "" && !seen[meta.AccessionNumber] {
				seen[meta.AccessionNumber] = true
				accessions = append(accessions, meta.AccessionNumber)
			}
			continue
		}
		if dir != "" {
			top := strings.SplitN(dir, "/", 2)[0]
			if !seen[top] {
				seen[top] = true
				accessions = append(accessions, top)
			}
		}
	}
	return accessions, nil
}
