package filing

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Download writes every document of the filing to disk. With archive=false
// each document becomes a file under dest; with archive=true a single zip
// named <accession>.zip is written instead.
func (f *FilingSGML) Download(dest string, archive bool) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return eris.Wrapf(err, "filing: create dir %s", dest)
	}
	if archive {
		return f.downloadZip(dest)
	}

	for i, doc := range f.docsInOrder {
		name := doc.Filename
		if name == "" {
			name = f.Header.AccessionNumber + "-seq" + doc.Sequence + "-" + strconv.Itoa(i)
		}
		path := filepath.Join(dest, filepath.Base(name))
		if err := os.WriteFile(path, doc.Content(), 0o644); err != nil {
			return eris.Wrapf(err, "filing: write %s", path)
		}
	}
	zap.L().Info("filing: downloaded documents",
		zap.String("accession", f.Header.AccessionNumber),
		zap.Int("count", len(f.docsInOrder)),
		zap.String("dest", dest))
	return nil
}

func (f *FilingSGML) downloadZip(dest string) error {
	zipPath := filepath.Join(dest, f.Header.AccessionNumber+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return eris.Wrapf(err, "filing: create %s", zipPath)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for i, doc := range f.docsInOrder {
		name := doc.Filename
		if name == "" {
			name = "seq" + doc.Sequence + "-" + strconv.Itoa(i)
		}
		w, err := zw.Create(name)
		if err != nil {
			return eris.Wrapf(err, "filing: zip entry %s", name)
		}
		if _, err := w.Write(doc.Content()); err != nil {
			return eris.Wrapf(err, "filing: zip write %s", name)
		}
	}
	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "filing: close zip")
	}
	return nil
}
