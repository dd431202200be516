package sgml

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Format identifies one of the two on-the-wire submission dialects.
type Format int

const (
	// FormatSubmission is the modern <SUBMISSION> dialect with structured
	// role tags in the header.
	FormatSubmission Format = iota
	// FormatSECDocument is the legacy <SEC-DOCUMENT>/<IMS-DOCUMENT> dialect
	// with a free-text header block.
	FormatSECDocument
)

func (f Format) String() string {
	switch f {
	case FormatSubmission:
		return "SUBMISSION"
	case FormatSECDocument:
		return "SEC-DOCUMENT"
	default:
		return "UNKNOWN"
	}
}

// DetectFormat classifies the payload into one of the submission dialects.
// It runs the defensive transport-error checks first so that HTML error
// pages are never parsed as filings.
func DetectFormat(content string) (Format, error) {
	if err := detectTransportError(content); err != nil {
		return 0, err
	}

	trimmed := strings.TrimLeft(content, " \t\r\n")
	if strings.HasPrefix(trimmed, "<SUBMISSION>") {
		return FormatSubmission, nil
	}

	head := trimmed
	if len(head) > 1024 {
		head = head[:1024]
	}
	if strings.Contains(head, "<SEC-DOCUMENT>") ||
		strings.Contains(head, "<IMS-DOCUMENT>") ||
		strings.Contains(head, "<DOCUMENT>") {
		return FormatSECDocument, nil
	}

	return 0, &UnknownFormatError{Snippet: snippet(trimmed)}
}

// detectTransportError recognizes the three transport-level responses that
// masquerade as submissions: the SEC automated-tool rejection page, an
// S3 NoSuchKey error document, and any other HTML page.
func detectTransportError(content string) error {
	trimmed := strings.TrimLeft(content, " \t\r\n\ufeff")

	// S3-style error documents are short XML; check before the HTML branch.
	if strings.Contains(trimmed, "<Error>") && strings.Contains(trimmed, "<Code>NoSuchKey</Code>") {
		return &SECFilingNotFoundError{}
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "<!doctype html") && !strings.HasPrefix(lower, "<html") {
		return nil
	}

	// An HTML page where SGML was expected. Distinguish the SEC identity
	// rejection page from everything else by its visible text.
	text := lower
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed)); err == nil {
		text = strings.ToLower(doc.Text())
	}
	if strings.Contains(text, "automated tool") && strings.Contains(text, "sec") {
		return &SECIdentityError{}
	}

	return &SECHTMLResponseError{Snippet: snippet(trimmed)}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 120 {
		s = s[:120] + "..."
	}
	return strings.ReplaceAll(s, "\n", " ")
}
