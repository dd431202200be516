package edgar

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// FilingRef is one row of a company's filing history.
type FilingRef struct {
	Accession       string
	Form            string
	FilingDate      string
	ReportDate      string
	PrimaryDocument string
	IsXBRL          bool
}

// EntityData is the parsed submissions record for one company.
type EntityData struct {
	CIK       string
	Name      string
	Tickers   []string
	Exchanges []string
	Filings   []FilingRef
}

// FilingsByForm returns the filings matching any of the given form types,
// in the order EDGAR lists them (newest first). Amendments match their base
// form, so "10-K" includes "10-K/A".
func (e *EntityData) FilingsByForm(forms ...string) []FilingRef {
	want := map[string]bool{}
	for _, f := range forms {
		want[f] = true
	}
	var out []FilingRef
	for _, ref := range e.Filings {
		base := strings.TrimSuffix(ref.Form, "/A")
		if want[ref.Form] || want[base] {
			out = append(out, ref)
		}
	}
	return out
}

// submissionsFile mirrors the column-oriented layout of the EDGAR
// submissions endpoint.
type submissionsFile struct {
	CIK       string   `json:"cik"`
	Name      string   `json:"name"`
	Tickers   []string `json:"tickers"`
	Exchanges []string `json:"exchanges"`
	Filings   struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
			IsXBRL          []int    `json:"isXBRL"`
		} `json:"recent"`
	} `json:"filings"`
}

// parseSubmissions converts the column arrays of the submissions JSON into
// filing rows. Columns shorter than the accession column leave their fields
// empty rather than failing the whole file.
func parseSubmissions(data []byte) (*EntityData, error) {
	var sf submissionsFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, eris.Wrap(err, "edgar: parse submissions JSON")
	}

	out := &EntityData{
		CIK:       sf.CIK,
		Name:      sf.Name,
		Tickers:   sf.Tickers,
		Exchanges: sf.Exchanges,
	}

	recent := sf.Filings.Recent
	at := func(col []string, i int) string {
		if i < len(col) {
			return col[i]
		}
		return ""
	}
	for i, accession := range recent.AccessionNumber {
		ref := FilingRef{
			Accession:       accession,
			Form:            at(recent.Form, i),
			FilingDate:      at(recent.FilingDate, i),
			ReportDate:      at(recent.ReportDate, i),
			PrimaryDocument: at(recent.PrimaryDocument, i),
		}
		if i < len(recent.IsXBRL) {
			ref.IsXBRL = recent.IsXBRL[i] != 0
		}
		out.Filings = append(out.Filings, ref)
	}
	return out, nil
}
