package edgar

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-core/internal/fetcher"
	"github.com/sells-group/edgar-core/internal/filing"
	"github.com/sells-group/edgar-core/internal/sgml"
	"github.com/sells-group/edgar-core/internal/xbrl"
)

// instanceXML builds a minimal annual instance document for one fiscal year.
func instanceXML(year int, revenues, netIncome float64) string {
	start := fmt.Sprintf("%d-01-01", year)
	end := fmt.Sprintf("%d-12-31", year)
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<xbrl xmlns="http://www.xbrl.org/2003/instance"
      xmlns:dei="http://xbrl.sec.gov/dei/2023"
      xmlns:us-gaap="http://fasb.org/us-gaap/2023">
  <context id="FY">
    <entity><identifier scheme="http://www.sec.gov/CIK">0000320193</identifier></entity>
    <period><startDate>%s</startDate><endDate>%s</endDate></period>
  </context>
  <context id="AsOf">
    <entity><identifier scheme="http://www.sec.gov/CIK">0000320193</identifier></entity>
    <period><instant>%s</instant></period>
  </context>
  <unit id="usd"><measure>iso4217:USD</measure></unit>
  <dei:EntityRegistrantName contextRef="FY">ALPHA WIDGETS INC</dei:EntityRegistrantName>
  <dei:EntityCentralIndexKey contextRef="FY">0000320193</dei:EntityCentralIndexKey>
  <dei:DocumentType contextRef="FY">10-K</dei:DocumentType>
  <dei:DocumentPeriodEndDate contextRef="FY">%s</dei:DocumentPeriodEndDate>
  <dei:DocumentFiscalPeriodFocus contextRef="FY">FY</dei:DocumentFiscalPeriodFocus>
  <dei:DocumentFiscalYearFocus contextRef="FY">%d</dei:DocumentFiscalYearFocus>
  <dei:CurrentFiscalYearEndDate contextRef="FY">--12-31</dei:CurrentFiscalYearEndDate>
  <us-gaap:Revenues contextRef="FY" unitRef="usd" decimals="0">%.0f</us-gaap:Revenues>
  <us-gaap:NetIncomeLoss contextRef="FY" unitRef="usd" decimals="0">%.0f</us-gaap:NetIncomeLoss>
  <us-gaap:Assets contextRef="AsOf" unitRef="usd" decimals="0">5000000</us-gaap:Assets>
</xbrl>`, start, end, end, end, year, revenues, netIncome)
}

// submissionText wraps an instance document in a complete SEC-DOCUMENT
// submission.
func submissionText(accession string, year int, filed, instance string) string {
	return "<SEC-DOCUMENT>" + accession + ".txt : " + filed + "\n" +
		"<SEC-HEADER>" + accession + ".hdr.sgml : " + filed + "\n" +
		"ACCESSION NUMBER:\t\t" + accession + "\n" +
		"CONFORMED SUBMISSION TYPE:\t10-K\n" +
		"PUBLIC DOCUMENT COUNT:\t\t2\n" +
		fmt.Sprintf("CONFORMED PERIOD OF REPORT:\t%d1231\n", year) +
		"FILED AS OF DATE:\t\t" + filed + "\n" +
		"</SEC-HEADER>\n" +
		"<DOCUMENT>\n<TYPE>10-K\n<SEQUENCE>1\n<FILENAME>alpha-10k.htm\n<DESCRIPTION>ANNUAL REPORT\n<TEXT>\n<html>report</html>\n</TEXT>\n</DOCUMENT>\n" +
		fmt.Sprintf("<DOCUMENT>\n<TYPE>XML\n<SEQUENCE>2\n<FILENAME>alpha-%d1231.xml\n<DESCRIPTION>INSTANCE\n<TEXT>\n", year) +
		instance +
		"\n</TEXT>\n</DOCUMENT>\n</SEC-DOCUMENT>\n"
}

const submissionsJSON = `{
  "cik": "320193",
  "name": "ALPHA WIDGETS INC",
  "tickers": ["ALPH"],
  "exchanges": ["Nasdaq"],
  "filings": {
    "recent": {
      "accessionNumber": ["0000320193-25-000010", "0000320193-24-000010", "0000320193-24-000005"],
      "filingDate": ["2025-02-15", "2024-02-15", "2024-01-10"],
      "reportDate": ["2024-12-31", "2023-12-31", "2023-12-31"],
      "form": ["10-K", "10-K", "8-K"],
      "primaryDocument": ["alpha-10k.htm", "alpha-10k.htm", "event.htm"],
      "isXBRL": [1, 1, 0]
    }
  }
}`

func TestParseSubmissionsColumns(t *testing.T) {
	data, err := parseSubmissions([]byte(submissionsJSON))
	require.NoError(t, err)

	assert.Equal(t, "ALPHA WIDGETS INC", data.Name)
	assert.Equal(t, []string{"ALPH"}, data.Tickers)
	require.Len(t, data.Filings, 3)
	assert.Equal(t, "0000320193-25-000010", data.Filings[0].Accession)
	assert.Equal(t, "2024-12-31", data.Filings[0].ReportDate)
	assert.True(t, data.Filings[0].IsXBRL)
	assert.False(t, data.Filings[2].IsXBRL)

	tenKs := data.FilingsByForm("10-K")
	assert.Len(t, tenKs, 2)
}

func TestFilingsByFormIncludesAmendments(t *testing.T) {
	data := &EntityData{Filings: []FilingRef{
		{Accession: "a", Form: "10-K/A"},
		{Accession: "b", Form: "10-K"},
		{Accession: "c", Form: "10-Q"},
	}}
	refs := data.FilingsByForm("10-K")
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].Accession)
}

func TestLooksLikeAccession(t *testing.T) {
	assert.True(t, looksLikeAccession("0000320193-24-000123"))
	assert.True(t, looksLikeAccession("000032019324000123"))
	assert.False(t, looksLikeAccession("filing.txt"))
	assert.False(t, looksLikeAccession("00003201932400012"))
}

func TestParseLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filing.txt")
	text := submissionText("0000320193-25-000010", 2024, "20250215", instanceXML(2024, 1000000, 120000))
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))

	f, err := Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "0000320193-25-000010", f.Header.AccessionNumber)
	assert.Equal(t, "10-K", f.Header.Form)
	require.NotNil(t, f.XBRLDocument())
}

func TestParseGzippedFile(t *testing.T) {
	text := submissionText("0000320193-25-000010", 2024, "20250215", instanceXML(2024, 1000000, 120000))
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(text))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "filing.txt.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f, err := Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "0000320193-25-000010", f.Header.AccessionNumber)
}

func TestDropAmendedFilings(t *testing.T) {
	period := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	original := &filing.FilingSGML{Header: &sgml.FilingHeader{
		AccessionNumber: "0000320193-25-000010",
		Form:            "10-K",
		PeriodOfReport:  period,
		FilingDate:      time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC),
	}}
	amendment := &filing.FilingSGML{Header: &sgml.FilingHeader{
		AccessionNumber: "0000320193-25-000042",
		Form:            "10-K/A",
		PeriodOfReport:  period,
		FilingDate:      time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}}
	other := &filing.FilingSGML{Header: &sgml.FilingHeader{
		AccessionNumber: "0000320193-24-000010",
		Form:            "10-K",
		PeriodOfReport:  time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
		FilingDate:      time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
	}}

	kept := dropAmendedFilings([]*filing.FilingSGML{original, amendment, other})
	require.Len(t, kept, 2)
	assert.Equal(t, "0000320193-25-000042", kept[0].Header.AccessionNumber)
	assert.Equal(t, "0000320193-24-000010", kept[1].Header.AccessionNumber)
}

// newTestCompany wires a Company against a local archive server and a
// pre-seeded submissions cache.
func newTestCompany(t *testing.T) *Company {
	t.Helper()

	filings := map[string]string{
		"/320193/000032019325000010/0000320193-25-000010.txt": submissionText(
			"0000320193-25-000010", 2024, "20250215", instanceXML(2024, 1000000, 120000)),
		"/320193/000032019324000010/0000320193-24-000010.txt": submissionText(
			"0000320193-24-000010", 2023, "20240215", instanceXML(2023, 900000, 100000)),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := filings[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CIK0000320193.json"), []byte(submissionsJSON), 0o644))

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Identity: "Test Suite test@example.com"})
	return NewCompany("320193",
		WithFetcher(f),
		WithCacheDir(dir),
		WithArchiveBase(srv.URL),
	)
}

func TestCompanyData(t *testing.T) {
	c := newTestCompany(t)
	data, err := c.Data(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ALPHA WIDGETS INC", data.Name)
	assert.Equal(t, "0000320193", c.CIK())
}

func TestCompanyAnnualIncomeStatement(t *testing.T) {
	c := newTestCompany(t)
	st, err := c.IncomeStatement(context.Background(), PeriodAnnual, 0)
	require.NoError(t, err)

	assert.Equal(t, xbrl.IncomeStatement, st.Type)
	require.Equal(t, []string{"FY 2024", "FY 2023"}, st.Periods)

	var revenues *Row
	for i := range st.Rows {
		if st.Rows[i].Concept == "us-gaap:Revenues" {
			revenues = &st.Rows[i]
		}
	}
	require.NotNil(t, revenues)
	assert.Equal(t, 1000000.0, revenues.Values["FY 2024"])
	assert.Equal(t, 900000.0, revenues.Values["FY 2023"])
}

func TestCompanyAnnualBalanceSheet(t *testing.T) {
	c := newTestCompany(t)
	st, err := c.BalanceSheet(context.Background(), PeriodAnnual, 0)
	require.NoError(t, err)

	var assets *Row
	for i := range st.Rows {
		if st.Rows[i].Concept == "us-gaap:Assets" {
			assets = &st.Rows[i]
		}
	}
	require.NotNil(t, assets)
	assert.Len(t, st.Periods, 2)
}

func TestBalanceSheetRejectsTTM(t *testing.T) {
	c := newTestCompany(t)
	_, err := c.BalanceSheet(context.Background(), PeriodTTM, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no trailing-twelve-month view")
}

func TestStatementRejectsUnknownPeriod(t *testing.T) {
	c := newTestCompany(t)
	_, err := c.IncomeStatement(context.Background(), "weekly", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown period")
}

func TestNoCompanyFactsFoundError(t *testing.T) {
	err := &NoCompanyFactsFoundError{CIK: "0000000001"}
	assert.Contains(t, err.Error(), "0000000001")
	assert.Contains(t, err.Error(), "no XBRL facts")
}

func TestStatementString(t *testing.T) {
	st := &Statement{
		Type:    xbrl.IncomeStatement,
		Periods: []string{"FY 2024", "FY 2023"},
		Rows: []Row{
			{Label: "Revenue", Depth: 0, Values: map[string]float64{"FY 2024": 2500000, "FY 2023": 2000000}},
			{Label: "Net Income", Depth: 0, IsTotal: true, Values: map[string]float64{"FY 2024": 120000}},
		},
	}
	out := st.String()
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "2.5M")
	assert.Contains(t, out, "120000")
	assert.Contains(t, out, "FY 2023")
}
