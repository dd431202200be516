package xbrl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instanceFixture = `<?xml version="1.0" encoding="utf-8"?>
<xbrl xmlns="http://www.xbrl.org/2003/instance"
      xmlns:xbrldi="http://xbrl.org/2006/xbrldi"
      xmlns:dei="http://xbrl.sec.gov/dei/2023"
      xmlns:us-gaap="http://fasb.org/us-gaap/2023"
      xmlns:alpha="http://www.alphawidgets.com/20231231">
  <context id="FY2023">
    <entity><identifier scheme="http://www.sec.gov/CIK">0001234567</identifier></entity>
    <period><startDate>2023-01-01</startDate><endDate>2023-12-31</endDate></period>
  </context>
  <context id="Q42023">
    <entity><identifier scheme="http://www.sec.gov/CIK">0001234567</identifier></entity>
    <period><startDate>2023-10-01</startDate><endDate>2023-12-31</endDate></period>
  </context>
  <context id="AsOf2023">
    <entity><identifier scheme="http://www.sec.gov/CIK">0001234567</identifier></entity>
    <period><instant>2023-12-31</instant></period>
  </context>
  <context id="FY2023_Widgets">
    <entity>
      <identifier scheme="http://www.sec.gov/CIK">0001234567</identifier>
      <segment>
        <xbrldi:explicitMember dimension="us-gaap:StatementBusinessSegmentsAxis">alpha:WidgetsMember</xbrldi:explicitMember>
      </segment>
    </entity>
    <period><startDate>2023-01-01</startDate><endDate>2023-12-31</endDate></period>
  </context>
  <unit id="usd"><measure>iso4217:USD</measure></unit>
  <unit id="shares"><measure>shares</measure></unit>
  <unit id="usdPerShare">
    <divide>
      <unitNumerator><measure>iso4217:USD</measure></unitNumerator>
      <unitDenominator><measure>shares</measure></unitDenominator>
    </divide>
  </unit>
  <dei:EntityRegistrantName contextRef="FY2023">ALPHA WIDGETS INC</dei:EntityRegistrantName>
  <dei:EntityCentralIndexKey contextRef="FY2023">0001234567</dei:EntityCentralIndexKey>
  <dei:DocumentType contextRef="FY2023">10-K</dei:DocumentType>
  <dei:DocumentPeriodEndDate contextRef="FY2023">2023-12-31</dei:DocumentPeriodEndDate>
  <dei:DocumentFiscalPeriodFocus contextRef="FY2023">FY</dei:DocumentFiscalPeriodFocus>
  <dei:DocumentFiscalYearFocus contextRef="FY2023">2023</dei:DocumentFiscalYearFocus>
  <dei:CurrentFiscalYearEndDate contextRef="FY2023">--12-31</dei:CurrentFiscalYearEndDate>
  <us-gaap:Revenues contextRef="FY2023" unitRef="usd" decimals="-3">1,000,000</us-gaap:Revenues>
  <us-gaap:Revenues contextRef="Q42023" unitRef="usd" decimals="-3">260000</us-gaap:Revenues>
  <us-gaap:Revenues contextRef="FY2023_Widgets" unitRef="usd" decimals="-3">400000</us-gaap:Revenues>
  <us-gaap:NetIncomeLoss contextRef="FY2023" unitRef="usd" decimals="-3">120000</us-gaap:NetIncomeLoss>
  <us-gaap:EarningsPerShareBasic contextRef="FY2023" unitRef="usdPerShare" decimals="2">2.40</us-gaap:EarningsPerShareBasic>
  <us-gaap:Assets contextRef="AsOf2023" unitRef="usd" decimals="-3">5000000</us-gaap:Assets>
  <alpha:WidgetBacklog contextRef="AsOf2023" unitRef="usd" decimals="INF">31337</alpha:WidgetBacklog>
</xbrl>`

func parseFixture(t *testing.T) *XBRL {
	t.Helper()
	x, err := Parse([]byte(instanceFixture), FilingInfo{
		Accession:  "0001234567-24-000123",
		FormType:   "10-K",
		FilingDate: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return x
}

func TestParseEntityInfo(t *testing.T) {
	x := parseFixture(t)
	assert.Equal(t, "ALPHA WIDGETS INC", x.EntityInfo.Name)
	assert.Equal(t, "0001234567", x.EntityInfo.CIK)
	assert.Equal(t, "10-K", x.EntityInfo.FormType)
	assert.Equal(t, "2023-12-31", x.EntityInfo.DocumentPeriodEndDate.Format("2006-01-02"))
	assert.Equal(t, FiscalFY, x.EntityInfo.FiscalPeriod)
	assert.Equal(t, 2023, x.EntityInfo.FiscalYear)
	assert.Equal(t, 12, x.EntityInfo.FiscalYearEndMonth)
}

func TestParseFactValues(t *testing.T) {
	x := parseFixture(t)

	revs := ByConcept(Undimensioned(x.Facts), "us-gaap:Revenues")
	require.Len(t, revs, 2)

	fy := ByFiscalPeriod(revs, FiscalFY)
	require.Len(t, fy, 1)
	v, ok := fy[0].Numeric()
	require.True(t, ok)
	assert.Equal(t, 1000000.0, v)
	assert.Equal(t, -3, fy[0].Decimals)
	assert.Equal(t, "USD", fy[0].Unit)
	assert.Equal(t, "duration_2023-01-01_2023-12-31", fy[0].Period().Key())
	assert.Equal(t, 2023, fy[0].FiscalYear)

	q4 := ByFiscalPeriod(revs, FiscalQ4)
	require.Len(t, q4, 1)
	assert.Equal(t, 260000.0, *q4[0].NumericValue)

	eps := ByConcept(x.Facts, "EarningsPerShareBasic")
	require.Len(t, eps, 1)
	assert.Equal(t, "USD/shares", eps[0].Unit)
	assert.Equal(t, 2, eps[0].Decimals)
}

func TestParseDimensions(t *testing.T) {
	x := parseFixture(t)
	var segment *Fact
	for _, f := range x.ByConcept("us-gaap:Revenues") {
		if len(f.Dimensions) > 0 {
			segment = f
		}
	}
	require.NotNil(t, segment)
	assert.Equal(t, "alpha:WidgetsMember", segment.Dimensions["us-gaap:StatementBusinessSegmentsAxis"])
}

func TestParseCustomTaxonomy(t *testing.T) {
	x := parseFixture(t)
	facts := x.ByConcept("alpha:WidgetBacklog")
	require.Len(t, facts, 1)
	assert.Equal(t, "alpha", facts[0].Taxonomy)
	assert.Equal(t, 0, facts[0].Decimals)
	assert.Equal(t, PeriodInstant, facts[0].PeriodType)
	assert.Equal(t, "instant_2023-12-31", facts[0].Period().Key())
}

func TestStatementAssembly(t *testing.T) {
	x := parseFixture(t)

	is := x.Statement(IncomeStatement)
	require.NotNil(t, is)
	concepts := map[string]*LineItem{}
	for _, li := range is.Data {
		concepts[li.Concept] = li
	}
	require.Contains(t, concepts, "us-gaap:Revenues")
	require.Contains(t, concepts, "us-gaap:NetIncomeLoss")
	assert.True(t, concepts["us-gaap:NetIncomeLoss"].IsTotal)

	// The dimensioned segment value must not leak into the statement.
	fyKey := "duration_2023-01-01_2023-12-31"
	assert.Equal(t, 1000000.0, concepts["us-gaap:Revenues"].Values[fyKey])

	bs := x.Statement(BalanceSheet)
	require.NotNil(t, bs)
	var assets *LineItem
	for _, li := range bs.Data {
		if li.Concept == "us-gaap:Assets" {
			assets = li
		}
	}
	require.NotNil(t, assets)
	assert.Equal(t, 5000000.0, assets.Values["instant_2023-12-31"])
}

func TestStatementColumnsNewestFirst(t *testing.T) {
	facts := []*Fact{
		durFact("us-gaap:Revenues", 100, "2022-01-01", "2022-12-31"),
		durFact("us-gaap:Revenues", 120, "2023-01-01", "2023-12-31"),
	}
	classifyStatements(facts)
	s := buildStatement(IncomeStatement, facts)
	require.NotNil(t, s)
	require.Len(t, s.PeriodKeys, 2)
	assert.Equal(t, "duration_2023-01-01_2023-12-31", s.PeriodKeys[0])
	assert.Equal(t, "duration_2022-01-01_2022-12-31", s.PeriodKeys[1])
}

func TestFiscalClassificationWindows(t *testing.T) {
	facts := []*Fact{
		durFact("us-gaap:Revenues", 1, "2023-01-01", "2023-12-31"), // 364d
		durFact("us-gaap:Revenues", 2, "2023-01-01", "2023-03-31"), // 89d
		durFact("us-gaap:Revenues", 3, "2023-01-01", "2023-06-30"), // 180d
		durFact("us-gaap:Revenues", 4, "2023-01-01", "2023-09-30"), // 272d
		durFact("us-gaap:Revenues", 5, "2023-01-01", "2023-05-15"), // odd length
	}
	classifyFiscalPeriods(facts, EntityInfo{FiscalYearEndMonth: 12})

	assert.Equal(t, FiscalFY, facts[0].FiscalPeriod)
	assert.Equal(t, FiscalQ1, facts[1].FiscalPeriod)
	assert.Equal(t, FiscalYTD6M, facts[2].FiscalPeriod)
	assert.Equal(t, FiscalYTD9M, facts[3].FiscalPeriod)
	assert.Equal(t, FiscalPeriod(""), facts[4].FiscalPeriod)
}

func TestQuarterAtOffCalendarFiscalYear(t *testing.T) {
	// June fiscal year end: Jul-Sep is Q1, Apr-Jun is Q4.
	assert.Equal(t, FiscalQ1, QuarterAt(time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), 6))
	assert.Equal(t, FiscalQ2, QuarterAt(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), 6))
	assert.Equal(t, FiscalQ3, QuarterAt(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), 6))
	assert.Equal(t, FiscalQ4, QuarterAt(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), 6))

	assert.Equal(t, 2024, fiscalYearOf(time.Date(2023, 9, 30, 0, 0, 0, 0, time.UTC), 6))
	assert.Equal(t, 2024, fiscalYearOf(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), 6))
}

func TestLatestAndSort(t *testing.T) {
	old := durFact("us-gaap:Revenues", 100, "2022-01-01", "2022-12-31")
	newer := durFact("us-gaap:Revenues", 120, "2023-01-01", "2023-12-31")
	facts := []*Fact{old, newer}

	assert.Same(t, newer, Latest(facts))
	SortNewestFirst(facts)
	assert.Same(t, newer, facts[0])
}

func TestHumanizeLabel(t *testing.T) {
	assert.Equal(t, "Net Income Loss", humanizeLabel("NetIncomeLoss"))
	assert.Equal(t, "Earnings Per Share Basic", humanizeLabel("EarningsPerShareBasic"))
	assert.Equal(t, "Revenues", humanizeLabel("Revenues"))
}

func durFact(concept string, value float64, start, end string) *Fact {
	s, _ := time.Parse("2006-01-02", start)
	e, _ := time.Parse("2006-01-02", end)
	v := value
	return &Fact{
		Concept:     concept,
		Taxonomy:    "us-gaap",
		Label:       humanizeLabel(localName(concept)),
		NumericValue: &v,
		Unit:        "USD",
		PeriodType:  PeriodDuration,
		PeriodStart: s,
		PeriodEnd:   e,
	}
}
