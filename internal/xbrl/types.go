// Package xbrl parses XBRL instance documents from EDGAR filings into a
// single-filing view: typed facts, reporting periods, and per-statement line
// items.
package xbrl

import (
	"fmt"
	"time"
)

// PeriodType distinguishes point-in-time balances from flows.
type PeriodType int

const (
	PeriodInstant PeriodType = iota
	PeriodDuration
)

func (p PeriodType) String() string {
	if p == PeriodInstant {
		return "instant"
	}
	return "duration"
}

// Period is one XBRL reporting period.
type Period struct {
	Type    PeriodType
	Instant time.Time // instant periods
	Start   time.Time // duration periods
	End     time.Time
}

// Key returns the canonical period key: "instant_<date>" or
// "duration_<start>_<end>".
func (p Period) Key() string {
	if p.Type == PeriodInstant {
		return "instant_" + p.Instant.Format("2006-01-02")
	}
	return fmt.Sprintf("duration_%s_%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// EndDate returns the instant date or the duration end.
func (p Period) EndDate() time.Time {
	if p.Type == PeriodInstant {
		return p.Instant
	}
	return p.End
}

// DurationDays returns the period length in days; zero for instants.
func (p Period) DurationDays() int {
	if p.Type != PeriodDuration {
		return 0
	}
	return int(p.End.Sub(p.Start).Hours() / 24)
}

// FiscalPeriod classifies a duration fact within the fiscal year.
type FiscalPeriod string

const (
	FiscalFY    FiscalPeriod = "FY"
	FiscalQ1    FiscalPeriod = "Q1"
	FiscalQ2    FiscalPeriod = "Q2"
	FiscalQ3    FiscalPeriod = "Q3"
	FiscalQ4    FiscalPeriod = "Q4"
	FiscalYTD6M FiscalPeriod = "YTD_6M"
	FiscalYTD9M FiscalPeriod = "YTD_9M"
)

// IsQuarter reports whether the fiscal period is a discrete quarter.
func (fp FiscalPeriod) IsQuarter() bool {
	switch fp {
	case FiscalQ1, FiscalQ2, FiscalQ3, FiscalQ4:
		return true
	}
	return false
}

// StatementType is the closed set of financial statements the stitcher
// understands.
type StatementType string

const (
	IncomeStatement     StatementType = "IncomeStatement"
	BalanceSheet        StatementType = "BalanceSheet"
	CashFlowStatement   StatementType = "CashFlowStatement"
	StatementOfEquity   StatementType = "StatementOfEquity"
	ComprehensiveIncome StatementType = "ComprehensiveIncome"
)

// Fact is a single XBRL data point with its reporting context resolved.
type Fact struct {
	Concept      string // namespaced, e.g. "us-gaap:Revenues"
	Taxonomy     string // namespace prefix, e.g. "us-gaap"
	Label        string
	Value        string
	NumericValue *float64
	Unit         string
	Decimals     int

	PeriodType  PeriodType
	PeriodStart time.Time // zero for instants
	PeriodEnd   time.Time

	FiscalYear   int
	FiscalPeriod FiscalPeriod

	FilingDate    time.Time
	FormType      string
	Accession     string
	StatementType StatementType

	Dimensions map[string]string

	// CalculationContext carries provenance for derived facts
	// (quarterization, split adjustment).
	CalculationContext string
}

// Numeric returns the parsed numeric value, or false when the fact is
// non-numeric.
func (f *Fact) Numeric() (float64, bool) {
	if f.NumericValue == nil {
		return 0, false
	}
	return *f.NumericValue, true
}

// Period returns the fact's reporting period.
func (f *Fact) Period() Period {
	if f.PeriodType == PeriodInstant {
		return Period{Type: PeriodInstant, Instant: f.PeriodEnd}
	}
	return Period{Type: PeriodDuration, Start: f.PeriodStart, End: f.PeriodEnd}
}

// Clone returns a copy of the fact, sharing no mutable state.
func (f *Fact) Clone() *Fact {
	out := *f
	if f.NumericValue != nil {
		v := *f.NumericValue
		out.NumericValue = &v
	}
	if f.Dimensions != nil {
		out.Dimensions = make(map[string]string, len(f.Dimensions))
		for k, v := range f.Dimensions {
			out.Dimensions[k] = v
		}
	}
	return &out
}

// LineItem is one row of a statement: a concept with its per-period values.
type LineItem struct {
	Concept         string
	Label           string
	StandardConcept string
	Level           int
	IsAbstract      bool
	IsTotal         bool
	Values          map[string]float64 // period key -> value
	Decimals        map[string]int     // period key -> decimals
}

// PeriodMeta describes one column of a statement.
type PeriodMeta struct {
	Period Period
	Label  string
}

// Statement is one financial statement from a single filing.
type Statement struct {
	Type       StatementType
	Role       string
	Definition string
	PeriodKeys []string
	Periods    map[string]PeriodMeta
	Data       []*LineItem
}

// EntityInfo carries the DEI facts the period optimizer keys on.
type EntityInfo struct {
	Name                  string
	CIK                   string
	DocumentPeriodEndDate time.Time // zero when the filing does not tag it
	FiscalPeriod          FiscalPeriod
	FiscalYear            int
	FiscalYearEndMonth    int // 1..12; 0 when unknown
	FormType              string
	FilingDate            time.Time
	Accession             string
}
