// Package filing assembles parsed SGML submissions into FilingSGML objects:
// header plus indexed, classified documents.
package filing

import (
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/sgml"
	"github.com/sells-group/edgar-core/internal/source"
)

// Attachment is one classified document of a filing.
type Attachment struct {
	Sequence    string
	Document    *sgml.Document
	IXBRL       bool
	Path        string
	Type        string
	Description string
	Size        int
	Purpose     string
}

// Attachments groups a filing's documents by role. The primary document is
// also present in Documents.
type Attachments struct {
	Primary   []*Attachment
	Documents []*Attachment
	DataFiles []*Attachment
}

// FilingSGML is the assembled filing: header, documents indexed by sequence
// and filename, and classified attachments.
type FilingSGML struct {
	Header      *sgml.FilingHeader
	Attachments Attachments

	sequences   []string
	bySequence  map[string][]*sgml.Document
	byFilename  map[string]*sgml.Document
	docsInOrder []*sgml.Document
}

// dataFileExts marks the filename suffixes EDGAR places in the data-file
// section of a filing (XBRL instance, schema, linkbases).
var dataFileExts = map[string]bool{".xml": true, ".xsd": true, ".xbrl": true}

// FromParseResult builds a FilingSGML from SGML parser output.
func FromParseResult(result *sgml.ParseResult) (*FilingSGML, error) {
	var header *sgml.FilingHeader
	var err error
	if result.Format == sgml.FormatSubmission {
		header = sgml.HeaderFromValues(result.Values)
	} else {
		header, err = sgml.ParseHeader(result.HeaderText)
		if err != nil {
			return nil, err
		}
	}
	return assemble(header, result.Documents), nil
}

// FromTarFiling builds a FilingSGML from a datamule tar filing, synthesizing
// the header from the archive metadata.
func FromTarFiling(tf *source.TarFiling) *FilingSGML {
	header := &sgml.FilingHeader{}
	if tf.Metadata != nil {
		header.AccessionNumber = tf.Metadata.AccessionNumber
		header.Form = tf.Metadata.Form
		header.CIK = tf.Metadata.CIK
		if tf.Metadata.FilingDate != "" {
			if t, err := sgml.ParseDate(tf.Metadata.FilingDate); err == nil {
				header.FilingDate = t
			}
		}
		if tf.Metadata.PeriodOfReport != "" {
			if t, err := sgml.ParseDate(tf.Metadata.PeriodOfReport); err == nil {
				header.PeriodOfReport = t
			}
		}
		if tf.Metadata.CompanyName != "" {
			header.Filers = []*sgml.Filer{{
				Company: sgml.CompanyInformation{
					Name: tf.Metadata.CompanyName,
					CIK:  tf.Metadata.CIK,
				},
			}}
		}
	}
	if header.AccessionNumber == "" {
		header.AccessionNumber = tf.Accession
	}
	return assemble(header, tf.Documents)
}

// assemble indexes the documents and runs the single-pass classification:
// sequence "1" is the primary document; the first non-primary document with
// a data-file extension flips the remainder of the filing into data-file
// mode (EDGAR orders documents first, then data files).
func assemble(header *sgml.FilingHeader, docs []*sgml.Document) *FilingSGML {
	f := &FilingSGML{
		Header:      header,
		bySequence:  make(map[string][]*sgml.Document),
		byFilename:  make(map[string]*sgml.Document),
		docsInOrder: docs,
	}

	prefix := strings.ReplaceAll(header.AccessionNumber, "-", "")
	dataFileMode := false

	for _, doc := range docs {
		if _, seen := f.bySequence[doc.Sequence]; !seen {
			f.sequences = append(f.sequences, doc.Sequence)
		}
		f.bySequence[doc.Sequence] = append(f.bySequence[doc.Sequence], doc)
		if doc.Filename != "" {
			if _, dup := f.byFilename[doc.Filename]; !dup {
				f.byFilename[doc.Filename] = doc
			}
		}

		att := &Attachment{
			Sequence:    doc.Sequence,
			Document:    doc,
			Path:        "/" + prefix + "/" + doc.Filename,
			Type:        refineType(doc),
			Description: doc.Description,
			Size:        len(doc.Raw),
			IXBRL:       isInlineXBRL(doc),
		}

		switch {
		case doc.Sequence == "1":
			f.Attachments.Primary = append(f.Attachments.Primary, att)
			f.Attachments.Documents = append(f.Attachments.Documents, att)
		case dataFileMode || dataFileExts[strings.ToLower(path.Ext(doc.Filename))]:
			dataFileMode = true
			f.Attachments.DataFiles = append(f.Attachments.DataFiles, att)
		default:
			f.Attachments.Documents = append(f.Attachments.Documents, att)
		}
	}

	f.applyFilingSummary()
	return f
}

// refineType prefers the declared document type, falling back to extension
// inference.
func refineType(doc *sgml.Document) string {
	if doc.Type != "" {
		return doc.Type
	}
	return source.TypeFromExtension(doc.Filename)
}

// isInlineXBRL detects inline-XBRL documents by their ix namespace.
func isInlineXBRL(doc *sgml.Document) bool {
	return strings.Contains(doc.Raw, "xmlns:ix=") || strings.Contains(doc.Raw, "<ix:")
}

// GetDocumentBySequence returns the first document with the given sequence.
func (f *FilingSGML) GetDocumentBySequence(seq string) *sgml.Document {
	docs := f.bySequence[seq]
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}

// DocumentsBySequence returns every document carrying the given sequence
// value; EDGAR reuses sequence numbers within one submission.
func (f *FilingSGML) DocumentsBySequence(seq string) []*sgml.Document {
	return f.bySequence[seq]
}

// GetDocumentByName returns the document with the given filename, or nil.
func (f *FilingSGML) GetDocumentByName(filename string) *sgml.Document {
	return f.byFilename[filename]
}

// Documents returns every document in source order.
func (f *FilingSGML) Documents() []*sgml.Document {
	return f.docsInOrder
}

// Primary returns the primary document (sequence "1"), or nil.
func (f *FilingSGML) Primary() *sgml.Document {
	return f.GetDocumentBySequence("1")
}

// HTML returns the HTML body of the primary document, or empty.
func (f *FilingSGML) HTML() string {
	if p := f.Primary(); p != nil {
		if body := p.HTML(); body != "" {
			return body
		}
		return p.Text()
	}
	return ""
}

// XML returns the first XML data file body, or the primary document's XML
// envelope.
func (f *FilingSGML) XML() string {
	for _, att := range f.Attachments.DataFiles {
		if body := att.Document.XML(); body != "" {
			return body
		}
		if strings.HasSuffix(strings.ToLower(att.Document.Filename), ".xml") {
			return att.Document.Text()
		}
	}
	if p := f.Primary(); p != nil {
		return p.XML()
	}
	return ""
}

// XBRLDocument returns the XBRL instance document of the filing: the first
// data file that looks like an instance (not a schema or linkbase), or nil.
func (f *FilingSGML) XBRLDocument() *sgml.Document {
	for _, att := range f.Attachments.DataFiles {
		name := strings.ToLower(att.Document.Filename)
		if strings.HasSuffix(name, ".xsd") {
			continue
		}
		if strings.Contains(name, "_cal") || strings.Contains(name, "_def") ||
			strings.Contains(name, "_lab") || strings.Contains(name, "_pre") {
			continue
		}
		body := att.Document.XML()
		if body == "" {
			body = att.Document.Text()
		}
		if strings.Contains(body, "<xbrl") || strings.Contains(body, ":xbrl") {
			return att.Document
		}
	}
	return nil
}

// applyFilingSummary parses FilingSummary.xml, when present, and attaches
// report short names as attachment purposes.
func (f *FilingSGML) applyFilingSummary() {
	doc := f.GetDocumentByName("FilingSummary.xml")
	if doc == nil {
		return
	}
	summary, err := parseFilingSummary(doc.Text())
	if err != nil {
		zap.L().Debug("filing: unreadable FilingSummary.xml",
			zap.String("accession", f.Header.AccessionNumber), zap.Error(err))
		return
	}
	purposes := make(map[string]string, len(summary.Reports))
	for _, r := range summary.Reports {
		if r.HTMLFileName != "" {
			purposes[r.HTMLFileName] = r.ShortName
		}
		if r.XMLFileName != "" {
			purposes[r.XMLFileName] = r.ShortName
		}
	}
	for _, group := range [][]*Attachment{f.Attachments.Documents, f.Attachments.DataFiles} {
		for _, att := range group {
			if purpose, ok := purposes[att.Document.Filename]; ok {
				att.Purpose = purpose
			}
		}
	}
}
