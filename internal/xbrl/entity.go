package xbrl

import (
	"strconv"
	"strings"
	"time"
)

// extractEntityInfo pulls the DEI facts that identify the filing: registrant
// name, CIK, document period end date, and fiscal focus.
func extractEntityInfo(facts []*Fact, info FilingInfo) EntityInfo {
	ei := EntityInfo{
		FormType:           info.FormType,
		FilingDate:         info.FilingDate,
		Accession:          info.Accession,
		FiscalYearEndMonth: 12,
	}
	for _, f := range facts {
		if f.Taxonomy != "dei" || len(f.Dimensions) > 0 {
			continue
		}
		local := f.Concept[strings.Index(f.Concept, ":")+1:]
		switch local {
		case "EntityRegistrantName":
			ei.Name = f.Value
		case "EntityCentralIndexKey":
			ei.CIK = f.Value
		case "DocumentType":
			if ei.FormType == "" {
				ei.FormType = f.Value
			}
		case "DocumentPeriodEndDate":
			if t, err := time.Parse("2006-01-02", f.Value); err == nil {
				ei.DocumentPeriodEndDate = t
			}
		case "DocumentFiscalPeriodFocus":
			ei.FiscalPeriod = FiscalPeriod(strings.ToUpper(f.Value))
		case "DocumentFiscalYearFocus":
			if y, err := strconv.Atoi(f.Value); err == nil {
				ei.FiscalYear = y
			}
		case "CurrentFiscalYearEndDate":
			// dei encodes this as "--MM-DD".
			v := strings.TrimLeft(f.Value, "-")
			if len(v) >= 2 {
				if m, err := strconv.Atoi(v[:2]); err == nil && m >= 1 && m <= 12 {
					ei.FiscalYearEndMonth = m
				}
			}
		}
	}
	return ei
}

// Duration-day windows for fiscal period classification.
const (
	quarterMinDays = 80
	quarterMaxDays = 100
	ytd6MinDays    = 175
	ytd6MaxDays    = 190
	ytd9MinDays    = 260
	ytd9MaxDays    = 285
	annualMinDays  = 350
	annualMaxDays  = 380
)

// classifyFiscalPeriods assigns fiscal_year and fiscal_period to every
// duration fact by its length and position within the entity's fiscal year.
func classifyFiscalPeriods(facts []*Fact, ei EntityInfo) {
	fyEnd := ei.FiscalYearEndMonth
	if fyEnd == 0 {
		fyEnd = 12
	}
	for _, f := range facts {
		f.FiscalYear = fiscalYearOf(f.PeriodEnd, fyEnd)
		if f.PeriodType != PeriodDuration {
			continue
		}
		days := int(f.PeriodEnd.Sub(f.PeriodStart).Hours() / 24)
		switch {
		case days >= annualMinDays && days <= annualMaxDays:
			f.FiscalPeriod = FiscalFY
		case days >= quarterMinDays && days <= quarterMaxDays:
			f.FiscalPeriod = QuarterAt(f.PeriodEnd, fyEnd)
		case days >= ytd6MinDays && days <= ytd6MaxDays:
			f.FiscalPeriod = FiscalYTD6M
		case days >= ytd9MinDays && days <= ytd9MaxDays:
			f.FiscalPeriod = FiscalYTD9M
		}
	}
}

// fiscalYearOf maps a period end date to the fiscal year it falls in: the
// calendar year of the fiscal year's end month.
func fiscalYearOf(end time.Time, fyEndMonth int) int {
	if end.IsZero() {
		return 0
	}
	if fyEndMonth == 12 || int(end.Month()) <= fyEndMonth {
		return end.Year()
	}
	return end.Year() + 1
}

// QuarterAt maps a quarter-length period's end date to Q1..Q4 by months
// elapsed since the fiscal year start.
func QuarterAt(end time.Time, fyEndMonth int) FiscalPeriod {
	monthsIn := ((int(end.Month())-fyEndMonth-1+24)%12 + 1)
	q := (monthsIn + 2) / 3
	switch q {
	case 1:
		return FiscalQ1
	case 2:
		return FiscalQ2
	case 3:
		return FiscalQ3
	default:
		return FiscalQ4
	}
}
