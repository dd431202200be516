package sgml

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const submissionFixture = `<SUBMISSION>
<ACCESSION-NUMBER>0001234567-24-000123
<TYPE>10-K
<PUBLIC-DOCUMENT-COUNT>3
<PERIOD>20231231
<FILING-DATE>20240215
<FILER>
<COMPANY-DATA>
<CONFORMED-NAME>ALPHA WIDGETS INC
<CIK>0001234567
<ASSIGNED-SIC>3559
<IRS-NUMBER>770123456
<STATE-OF-INCORPORATION>DE
<FISCAL-YEAR-END>1231
</COMPANY-DATA>
<FILING-VALUES>
<FORM-TYPE>10-K
<ACT>34
<FILE-NUMBER>001-12345
<FILM-NUMBER>24123456
</FILING-VALUES>
<BUSINESS-ADDRESS>
<STREET1>100 MAIN ST
<CITY>SAN JOSE
<STATE>CA
<ZIP>95110
<PHONE>408-555-0100
</BUSINESS-ADDRESS>
<FORMER-COMPANY>
<FORMER-CONFORMED-NAME>ALPHA MACHINES CORP
<DATE-CHANGED>20150301
</FORMER-COMPANY>
</FILER>
<DOCUMENT>
<TYPE>10-K
<SEQUENCE>1
<FILENAME>alpha-10k.htm
<DESCRIPTION>ANNUAL REPORT
<TEXT>
<HTML><body>Annual report body</body></HTML>
</TEXT>
</DOCUMENT>
<DOCUMENT>
<TYPE>EX-21.1
<SEQUENCE>2
<FILENAME>subsidiaries.htm
<DESCRIPTION>SUBSIDIARIES
<TEXT>
subsidiary list
</TEXT>
</DOCUMENT>
<DOCUMENT>
<TYPE>XML
<SEQUENCE>3
<FILENAME>alpha-20231231.xml
<TEXT>
<XML>
<xbrl>facts</xbrl>
</XML>
</TEXT>
</DOCUMENT>
</SUBMISSION>
`

func TestParseSubmissionDialect(t *testing.T) {
	result, err := Parse(submissionFixture)
	require.NoError(t, err)
	assert.Equal(t, FormatSubmission, result.Format)
	require.Len(t, result.Documents, 3)

	assert.Equal(t, "1", result.Documents[0].Sequence)
	assert.Equal(t, "10-K", result.Documents[0].Type)
	assert.Equal(t, "alpha-10k.htm", result.Documents[0].Filename)
	assert.Equal(t, "ANNUAL REPORT", result.Documents[0].Description)
	assert.Equal(t, "alpha-20231231.xml", result.Documents[2].Filename)

	header := HeaderFromValues(result.Values)
	assert.Equal(t, "0001234567-24-000123", header.AccessionNumber)
	assert.Regexp(t, AccessionNumberRe, header.AccessionNumber)
	assert.Equal(t, "10-K", header.Form)
	assert.Equal(t, "2024-02-15", header.FilingDate.Format("2006-01-02"))
	assert.Equal(t, "2023-12-31", header.PeriodOfReport.Format("2006-01-02"))

	require.Len(t, header.Filers, 1)
	filer := header.Filers[0]
	assert.Equal(t, "ALPHA WIDGETS INC", filer.Company.Name)
	assert.Equal(t, "0001234567", filer.Company.CIK)
	assert.Equal(t, "DE", filer.Company.StateOfIncorporation)
	assert.Equal(t, "001-12345", filer.Filing.FileNumber)
	require.NotNil(t, filer.BusinessAddress)
	assert.Equal(t, "SAN JOSE", filer.BusinessAddress.City)
	require.Len(t, filer.FormerCompanies, 1)
	assert.Equal(t, "ALPHA MACHINES CORP", filer.FormerCompanies[0].Name)
	assert.Equal(t, "0001234567", header.CIK)
}

func TestParseDocumentCountMatchesMarkers(t *testing.T) {
	result, err := Parse(submissionFixture)
	require.NoError(t, err)
	markers := strings.Count(submissionFixture, "<DOCUMENT>")
	assert.Equal(t, markers, len(result.Documents))
}

const secDocumentFixture = `<SEC-DOCUMENT>0000950123-10-009905.txt : 20100201
<SEC-HEADER>0000950123-10-009905.hdr.sgml : 20100201
ACCESSION NUMBER:		0000950123-10-009905
CONFORMED SUBMISSION TYPE:	10-K
PUBLIC DOCUMENT COUNT:		2
CONFORMED PERIOD OF REPORT:	20091231
FILED AS OF DATE:		20100201

FILER:
	COMPANY DATA:
		COMPANY CONFORMED NAME:			BETA ENERGY CORP
		CENTRAL INDEX KEY:			0000320193
		STANDARD INDUSTRIAL CLASSIFICATION:	CRUDE PETROLEUM [1311]
		IRS NUMBER:				942404110
		STATE OF INCORPORATION:			NV
		FISCAL YEAR END:			1231

	FILING VALUES:
		FORM TYPE:		10-K
		SEC ACT:		1934 Act
		SEC FILE NUMBER:	001-04321
		FILM NUMBER:		10561543

	BUSINESS ADDRESS:
		STREET 1:		500 OIL ROW
		CITY:			HOUSTON
		STATE:			TX
		ZIP:			77002
		BUSINESS PHONE:		713-555-0142

	FORMER COMPANY:
		FORMER CONFORMED NAME:	BETA PETROLEUM INC
		DATE OF NAME CHANGE:	19920703

</SEC-HEADER>
<DOCUMENT>
<TYPE>10-K
<SEQUENCE>1
<FILENAME>beta-10k.txt
<DESCRIPTION>FORM 10-K
<TEXT>
annual report text
</TEXT>
</DOCUMENT>
<DOCUMENT>
<TYPE>GRAPHIC
<SEQUENCE>2
<FILENAME>logo.gif
<TEXT>
begin 644 logo.gif
#0V%T
` + "`" + `
end
</TEXT>
</DOCUMENT>
</SEC-DOCUMENT>
`

func TestParseSECDocumentDialect(t *testing.T) {
	result, err := Parse(secDocumentFixture)
	require.NoError(t, err)
	assert.Equal(t, FormatSECDocument, result.Format)
	require.Len(t, result.Documents, 2)
	assert.NotEmpty(t, result.HeaderText)

	header, err := ParseHeader(result.HeaderText)
	require.NoError(t, err)
	assert.Equal(t, "0000950123-10-009905", header.AccessionNumber)
	assert.Equal(t, "10-K", header.Form)
	assert.Equal(t, "2010-02-01", header.FilingDate.Format("2006-01-02"))
	assert.Equal(t, "2009-12-31", header.PeriodOfReport.Format("2006-01-02"))

	require.Len(t, header.Filers, 1)
	filer := header.Filers[0]
	assert.Equal(t, "BETA ENERGY CORP", filer.Company.Name)
	assert.Equal(t, "0000320193", filer.Company.CIK)
	assert.Equal(t, "NV", filer.Company.StateOfIncorporation)
	assert.Equal(t, "001-04321", filer.Filing.FileNumber)
	require.NotNil(t, filer.BusinessAddress)
	assert.Equal(t, "HOUSTON", filer.BusinessAddress.City)
	require.Len(t, filer.FormerCompanies, 1)
	assert.Equal(t, "BETA PETROLEUM INC", filer.FormerCompanies[0].Name)
	assert.Equal(t, "0000320193", header.CIK)
}

func TestParseLegacyTaggedHeader(t *testing.T) {
	// Pre-2000 filings use SGML tags in the header instead of tabbed
	// key-value pairs; the normalization pass converts them.
	raw := `<ACCESSION-NUMBER>0000912057-99-000123
<TYPE>10-K
<FILING-DATE>19990330
<FILER>
<COMPANY-DATA>
<CONFORMED-NAME>GAMMA STORES INC
<CIK>0000098765
</COMPANY-DATA>
<FILING-VALUES>
<FORM-TYPE>10-K
</FILING-VALUES>
</FILER>
`
	header, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, "0000912057-99-000123", header.AccessionNumber)
	assert.Equal(t, "10-K", header.Form)
	require.Len(t, header.Filers, 1)
	assert.Equal(t, "GAMMA STORES INC", header.Filers[0].Company.Name)
}

func TestHeaderSkipsInlineXBRLLines(t *testing.T) {
	raw := "ACCESSION NUMBER:\t0000000000-24-000001\n" +
		"<ix:nonNumeric contextRef=\"c1\">stray inline content</ix:nonNumeric>\n" +
		"CONFORMED SUBMISSION TYPE:\t8-K\n"
	header, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, "0000000000-24-000001", header.AccessionNumber)
	assert.Equal(t, "8-K", header.Form)
}

func TestParseMismatchedTag(t *testing.T) {
	src := `<SUBMISSION>
<FILER>
<COMPANY-DATA>
<CONFORMED-NAME>DELTA CO
</FILER>
</SUBMISSION>
`
	_, err := Parse(src)
	require.Error(t, err)
	var mismatched *MismatchedTagError
	assert.True(t, errors.As(err, &mismatched))
	assert.Equal(t, "COMPANY-DATA", mismatched.Expected)
	assert.Equal(t, "FILER", mismatched.Got)
}

func TestDetectIdentityRejection(t *testing.T) {
	page := `<html><head><title>SEC.gov</title></head><body>
<p>Your Request Originates from an Undeclared Automated Tool</p>
<p>To allow for equitable access to all users, SEC reserves the right to
limit requests originating from undeclared automated tools.</p>
</body></html>`

	_, err := Parse(page)
	require.Error(t, err)
	var identity *SECIdentityError
	require.True(t, errors.As(err, &identity))
	msg := identity.Error()
	assert.Contains(t, msg, "EDGAR_IDENTITY")
	assert.Contains(t, msg, "SetIdentity")
	assert.Contains(t, msg, "sec.gov")
	assert.Contains(t, msg, "admin@example.com")
}

func TestDetectNoSuchKey(t *testing.T) {
	page := `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`
	_, err := Parse(page)
	var notFound *SECFilingNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestDetectGenericHTML(t *testing.T) {
	page := `<!DOCTYPE html><html><body><h1>Maintenance</h1></body></html>`
	_, err := Parse(page)
	var htmlErr *SECHTMLResponseError
	require.True(t, errors.As(err, &htmlErr))
}

func TestDetectUnknownFormat(t *testing.T) {
	_, err := Parse("this is not a submission at all")
	var unknown *UnknownFormatError
	require.True(t, errors.As(err, &unknown))
}

func TestDetectErrorsAreDistinguishable(t *testing.T) {
	// The three transport errors must be separable by the caller.
	cases := []struct {
		payload string
		check   func(error) bool
	}{
		{
			payload: `<html><body>SEC: undeclared automated tool</body></html>`,
			check: func(err error) bool {
				var e *SECIdentityError
				return errors.As(err, &e)
			},
		},
		{
			payload: `<Error><Code>NoSuchKey</Code></Error>`,
			check: func(err error) bool {
				var e *SECFilingNotFoundError
				return errors.As(err, &e)
			},
		},
		{
			payload: `<html><body>nothing here</body></html>`,
			check: func(err error) bool {
				var e *SECHTMLResponseError
				return errors.As(err, &e)
			},
		},
	}
	for _, tc := range cases {
		_, err := Parse(tc.payload)
		require.Error(t, err)
		assert.True(t, tc.check(err), "payload %q produced %v", tc.payload, err)
	}
}

func TestDocumentContentUUDecode(t *testing.T) {
	result, err := Parse(secDocumentFixture)
	require.NoError(t, err)

	gif := result.Documents[1]
	assert.True(t, gif.IsBinary())
	assert.Equal(t, []byte("Cat"), gif.Content())
}

func TestDocumentTagBlocks(t *testing.T) {
	result, err := Parse(submissionFixture)
	require.NoError(t, err)

	assert.Contains(t, result.Documents[0].HTML(), "Annual report body")
	assert.Equal(t, "<xbrl>facts</xbrl>", result.Documents[2].XML())
	// Text content passes through unchanged for plain documents.
	assert.Contains(t, result.Documents[1].Text(), "subsidiary list")
	assert.False(t, result.Documents[1].IsBinary())
}

func TestRepeatableTagsAlwaysLists(t *testing.T) {
	src := `<SUBMISSION>
<ACCESSION-NUMBER>0000000000-24-000002
<TYPE>4
<REPORTING-OWNER>
<OWNER-DATA>
<CONFORMED-NAME>SMITH JANE
<CIK>0001111111
</OWNER-DATA>
</REPORTING-OWNER>
<ISSUER>
<COMPANY-DATA>
<CONFORMED-NAME>ALPHA WIDGETS INC
<CIK>0001234567
</COMPANY-DATA>
</ISSUER>
</SUBMISSION>
`
	result, err := Parse(src)
	require.NoError(t, err)

	// A single occurrence of a repeatable section is still a list.
	_, isList := result.Values["REPORTING-OWNER"].([]any)
	assert.True(t, isList)

	header := HeaderFromValues(result.Values)
	require.Len(t, header.ReportingOwners, 1)
	assert.Equal(t, "SMITH JANE", header.ReportingOwners[0].Name)
	require.NotNil(t, header.Issuer)
	assert.Equal(t, "ALPHA WIDGETS INC", header.Issuer.Company.Name)
}

func TestParseDateFormats(t *testing.T) {
	for _, v := range []string{"20240215", "2024-02-15"} {
		d, err := ParseDate(v)
		require.NoError(t, err)
		assert.Equal(t, "2024-02-15", d.Format("2006-01-02"))
	}
	_, err := ParseDate("Feb 15 2024")
	var invalid *InvalidDateError
	assert.True(t, errors.As(err, &invalid))
}
