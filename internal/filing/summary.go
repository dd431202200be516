package filing

import (
	"encoding/xml"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// filingSummary models the slice of FilingSummary.xml the assembler needs:
// the report index mapping file names to human-readable purposes.
type filingSummary struct {
	Reports []summaryReport
}

type summaryReport struct {
	ShortName    string
	HTMLFileName string
	XMLFileName  string
}

type filingSummaryXML struct {
	XMLName   xml.Name `xml:"FilingSummary"`
	MyReports struct {
		Reports []struct {
			ShortName    string `xml:"ShortName"`
			HTMLFileName string `xml:"HtmlFileName"`
			XMLFileName  string `xml:"XmlFileName"`
		} `xml:"Report"`
	} `xml:"MyReports"`
}

func parseFilingSummary(text string) (*filingSummary, error) {
	var raw filingSummaryXML
	if err := xml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, eris.Wrap(err, "filing: parse FilingSummary.xml")
	}
	summary := &filingSummary{}
	for _, r := range raw.MyReports.Reports {
		summary.Reports = append(summary.Reports, summaryReport{
			ShortName:    strings.TrimSpace(r.ShortName),
			HTMLFileName: strings.TrimSpace(r.HTMLFileName),
			XMLFileName:  strings.TrimSpace(r.XMLFileName),
		})
	}
	return summary, nil
}

// HTMLText extracts the visible text of an HTML document body, collapsing
// runs of whitespace. Used for full-text views of HTML attachments.
func HTMLText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return htmlBody
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
