package sgml

import (
	"regexp"
	"strings"
	"sync"
)

// Document is one <DOCUMENT> block within a submission. Raw holds the full
// block body; decoded content is computed lazily on first access.
type Document struct {
	Sequence    string
	Type        string
	Filename    string
	Description string
	Raw         string

	once    sync.Once
	decoded []byte
	isUU    bool
}

var (
	docFieldRe = map[string]*regexp.Regexp{
		"type":        regexp.MustCompile(`(?m)^<TYPE>(.*)$`),
		"sequence":    regexp.MustCompile(`(?m)^<SEQUENCE>(.*)$`),
		"filename":    regexp.MustCompile(`(?m)^<FILENAME>(.*)$`),
		"description": regexp.MustCompile(`(?m)^<DESCRIPTION>(.*)$`),
	}

	textBlockRe = regexp.MustCompile(`(?is)<TEXT>\s*(.*?)\s*</TEXT>`)
	uuBeginRe   = regexp.MustCompile(`(?m)^begin \d{3} \S+`)
)

// newDocument extracts the TYPE/SEQUENCE/FILENAME/DESCRIPTION fields from a
// buffered <DOCUMENT> body and returns the document record.
func newDocument(raw string) *Document {
	get := func(key string) string {
		if m := docFieldRe[key].FindStringSubmatch(raw); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	return &Document{
		Sequence:    get("sequence"),
		Type:        get("type"),
		Filename:    get("filename"),
		Description: get("description"),
		Raw:         raw,
	}
}

// Text returns the content between <TEXT> and </TEXT>, or the raw body when
// no TEXT envelope is present.
func (d *Document) Text() string {
	if m := textBlockRe.FindStringSubmatch(d.Raw); m != nil {
		return m[1]
	}
	return d.Raw
}

// XML returns the content of the innermost <XML> envelope, if any.
func (d *Document) XML() string { return d.tagBlock("XML") }

// HTML returns the content of the innermost <HTML> envelope, if any.
func (d *Document) HTML() string { return d.tagBlock("HTML") }

// XBRL returns the content of the innermost <XBRL> envelope, if any.
func (d *Document) XBRL() string { return d.tagBlock("XBRL") }

// PDF returns the content of the innermost <PDF> envelope, if any.
func (d *Document) PDF() string { return d.tagBlock("PDF") }

// tagBlock extracts the innermost occurrence of <TAG>...</TAG>,
// case-insensitive. Inner blocks win: a <PDF> inside <TEXT> returns the PDF
// body, not the whole TEXT body.
func (d *Document) tagBlock(tag string) string {
	re := regexp.MustCompile(`(?is)<` + tag + `>\s*(.*?)\s*</` + tag + `>`)
	body := d.Text()
	var last string
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		last = m[1]
	}
	return last
}

// Content returns the fully decoded payload of the document. Bodies that
// start with a uuencode header ("begin NNN name") are uu-decoded to bytes;
// everything else is returned as text.
func (d *Document) Content() []byte {
	d.once.Do(func() {
		body := d.innermostBody()
		if uuBeginRe.MatchString(body) {
			if decoded, err := uuDecode(body); err == nil {
				d.decoded = decoded
				d.isUU = true
				return
			}
		}
		d.decoded = []byte(body)
	})
	return d.decoded
}

// IsBinary reports whether the content was uu-decoded from a binary body.
func (d *Document) IsBinary() bool {
	d.Content()
	return d.isUU
}

// innermostBody returns the most specific embedded payload, preferring
// PDF, then XBRL, then XML, then the TEXT envelope.
func (d *Document) innermostBody() string {
	for _, tag := range []string{"PDF", "XBRL", "XML"} {
		if body := d.tagBlock(tag); body != "" {
			return body
		}
	}
	return d.Text()
}
