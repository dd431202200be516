package source

import (
	"archive/tar"
	"encoding/json"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/sgml"
)

// Metadata is the normalized view of a datamule metadata.json. Both wire
// shapes (flat snake_case and nested kebab-case) map onto it.
type Metadata struct {
	AccessionNumber string
	Form            string
	FilingDate      string
	PeriodOfReport  string
	CIK             string
	CompanyName     string
	Documents       []DocumentMeta
}

// DocumentMeta describes one document inside a datamule archive.
type DocumentMeta struct {
	Type        string `json:"type"`
	Sequence    string `json:"sequence"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

// TarFiling is one filing extracted from a datamule tar archive.
type TarFiling struct {
	Accession string
	Metadata  *Metadata
	Documents []*sgml.Document
}

// ParseMetadata decodes a metadata.json payload, accepting both supported
// shapes.
func ParseMetadata(data []byte) (*Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "source: decode metadata.json")
	}

	m := &Metadata{
		AccessionNumber: pick(raw, "accession_number", "accession-number", "accessionNumber"),
		Form:            pick(raw, "form_type", "form", "submission_type", "submission-type"),
		FilingDate:      pick(raw, "filing_date", "filing-date"),
		PeriodOfReport:  pick(raw, "period_of_report", "period-of-report", "period"),
		CIK:             pick(raw, "cik"),
		CompanyName:     pick(raw, "company_name", "company-name"),
	}

	// Nested kebab-case shape carries company details under
	// filer.company-data.
	if filer, ok := nested(raw, "filer").(map[string]any); ok {
		if data, ok := nested(filer, "company-data").(map[string]any); ok {
			if m.CompanyName == "" {
				m.CompanyName = pick(data, "conformed-name")
			}
			if m.CIK == "" {
				m.CIK = pick(data, "cik")
			}
		}
	}

	if docs, ok := raw["documents"].([]any); ok {
		for _, d := range docs {
			entry, ok := d.(map[string]any)
			if !ok {
				continue
			}
			m.Documents = append(m.Documents, DocumentMeta{
				Type:        pick(entry, "type"),
				Sequence:    pick(entry, "sequence"),
				Filename:    pick(entry, "filename"),
				Description: pick(entry, "description"),
			})
		}
	}
	return m, nil
}

func pick(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func nested(m map[string]any, key string) any { return m[key] }

// ReadTar reads a datamule tar archive and returns the filings it contains.
// Two layouts are supported: a single-filing tar with metadata.json at the
// root, and a batch tar with one <accession>/ directory per filing.
func ReadTar(tarPath string) ([]*TarFiling, error) {
	f, err := os.Open(tarPath)
	if err != nil {
		return nil, eris.Wrapf(err, "source: open tar %s", tarPath)
	}
	defer f.Close()

	type entry struct {
		name string
		data []byte
	}
	byDir := make(map[string][]entry)
	var order []string

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: read tar %s", tarPath)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, eris.Wrapf(err, "source: read tar member %s", hdr.Name)
		}

		name := path.Clean(hdr.Name)
		dir, base := path.Split(name)
		dir = strings.Trim(dir, "/")
		if dir == "" {
			// Root member: single-filing layout.
			dir = "."
		}
		if _, seen := byDir[dir]; !seen {
			order = append(order, dir)
		}
		byDir[dir] = append(byDir[dir], entry{name: base, data: data})
	}

	var filings []*TarFiling
	for _, dir := range order {
		members := byDir[dir]
		filing := &TarFiling{}
		if dir != "." {
			filing.Accession = dir
		}

		var docsMeta []DocumentMeta
		for _, m := range members {
			if m.name == "metadata.json" {
				meta, err := ParseMetadata(m.data)
				if err != nil {
					zap.L().Warn("source: skipping unreadable metadata.json",
						zap.String("tar", tarPath), zap.String("dir", dir), zap.Error(err))
					continue
				}
				filing.Metadata = meta
				if filing.Accession == "" {
					filing.Accession = meta.AccessionNumber
				}
				docsMeta = meta.Documents
			}
		}

		seq := 0
		for _, m := range members {
			if m.name == "metadata.json" {
				continue
			}
			doc, err := tarDocument(m.name, m.data, docsMeta, &seq)
			if err != nil {
				zap.L().Warn("source: skipping unreadable tar document",
					zap.String("tar", tarPath), zap.String("file", m.name), zap.Error(err))
				continue
			}
			filing.Documents = append(filing.Documents, doc)
		}

		if filing.Metadata == nil && len(filing.Documents) == 0 {
			continue
		}
		filings = append(filings, filing)
	}
	return filings, nil
}

// tarDocument builds a document record from one tar member, decompressing
// zstd payloads and taking type/sequence/description from the metadata
// documents array when present.
func tarDocument(name string, data []byte, meta []DocumentMeta, seq *int) (*sgml.Document, error) {
	filename := strings.TrimSuffix(name, ".zst")
	if IsZstd(data) {
		decompressed, err := DecompressZstd(data)
		if err != nil {
			return nil, err
		}
		data = decompressed
	}

	text, err := Decode(data)
	if err != nil {
		return nil, err
	}

	doc := &sgml.Document{
		Filename: filename,
		Raw:      text,
	}
	for _, dm := range meta {
		if dm.Filename == filename {
			doc.Type = dm.Type
			doc.Sequence = dm.Sequence
			doc.Description = dm.Description
			break
		}
	}
	if doc.Type == "" {
		doc.Type = TypeFromExtension(filename)
	}
	if doc.Sequence == "" {
		*seq++
		doc.Sequence = strconv.Itoa(*seq)
	}
	return doc, nil
}

// TypeFromExtension infers a document type from a filename extension.
func TypeFromExtension(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".htm", ".html":
		return "HTML"
	case ".xml":
		return "XML"
	case ".xsd":
		return "XSD"
	case ".xbrl":
		return "XBRL"
	case ".txt":
		return "TEXT"
	case ".pdf":
		return "PDF"
	case ".gif", ".jpg", ".jpeg", ".png":
		return "GRAPHIC"
	case ".json":
		return "JSON"
	default:
		return ""
	}
}
