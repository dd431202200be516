package sgml

import "fmt"

// SECIdentityError indicates EDGAR rejected the request because the client
// did not present a compliant identity string.
type SECIdentityError struct {
	URL string
}

func (e *SECIdentityError) Error() string {
	return fmt.Sprintf(
		"sgml: SEC rejected the request from %q as an undeclared automated tool. "+
			"EDGAR requires a declared identity: set the EDGAR_IDENTITY environment variable "+
			"or call edgar.SetIdentity(\"Sample Company admin@example.com\"). "+
			"See https://www.sec.gov/os/accessing-edgar-data", e.URL)
}

// SECFilingNotFoundError indicates the requested filing does not exist on the
// EDGAR archive (S3 NoSuchKey response).
type SECFilingNotFoundError struct {
	URL string
}

func (e *SECFilingNotFoundError) Error() string {
	return fmt.Sprintf("sgml: filing not found on EDGAR (NoSuchKey): %q. "+
		"Check the accession number and archive path", e.URL)
}

// SECHTMLResponseError indicates the server returned generic HTML or XML
// where an SGML submission was expected.
type SECHTMLResponseError struct {
	URL     string
	Snippet string
}

func (e *SECHTMLResponseError) Error() string {
	return fmt.Sprintf("sgml: received an HTML response where SGML was expected from %q: %s. "+
		"The URL may point at a viewer page rather than the raw submission", e.URL, e.Snippet)
}

// UnknownFormatError indicates the payload matched none of the known
// submission dialects.
type UnknownFormatError struct {
	Snippet string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("sgml: unknown submission format: %s", e.Snippet)
}

// InvalidSGMLError indicates a source that could not be parsed as SGML at all.
type InvalidSGMLError struct {
	Reason string
}

func (e *InvalidSGMLError) Error() string {
	return "sgml: invalid SGML: " + e.Reason
}

// MismatchedTagError indicates a closing tag that does not match the section
// currently open on the parser stack.
type MismatchedTagError struct {
	Line     int
	Expected string
	Got      string
}

func (e *MismatchedTagError) Error() string {
	return fmt.Sprintf("sgml: mismatched closing tag at line %d: expected </%s>, got </%s>",
		e.Line, e.Expected, e.Got)
}

// InvalidDateError indicates a date field that does not parse under any of
// the formats EDGAR uses.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("sgml: invalid date value %q", e.Value)
}
