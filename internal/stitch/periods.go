// Package stitch combines single-filing XBRL views of one entity into a
// unified multi-period statement: period selection, concept integration,
// ordering, and a presentation tree that keeps statement sections coherent.
package stitch

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// Duration windows used to pick the period that best represents a filing.
type durationRange struct {
	min, max, target int
}

var (
	annualRange    = durationRange{350, 380, 365}
	quarterlyRange = durationRange{80, 100, 90}
	ytd6Range      = durationRange{175, 190, 180}
	ytd9Range      = durationRange{260, 285, 270}
)

func (r durationRange) contains(days int) bool {
	return days >= r.min && days <= r.max
}

// SelectedPeriod is one period chosen from one input filing, enriched with
// the metadata the integration step keys on.
type SelectedPeriod struct {
	XBRLIndex    int
	Key          string
	Label        string
	Period       xbrl.Period
	FiscalPeriod xbrl.FiscalPeriod
	FiscalYear   int
	Entity       xbrl.EntityInfo
}

// SelectOptimalPeriods picks, per input view, the period(s) that best
// represent that filing for the given statement type, then deduplicates
// across filings and returns them newest first, truncated to maxPeriods.
//
// Views are expected newest-first; nil entries (filings without XBRL) are
// skipped.
func SelectOptimalPeriods(views []*xbrl.XBRL, st xbrl.StatementType, maxPeriods int) []SelectedPeriod {
	var selected []SelectedPeriod
	for i, v := range views {
		if v == nil {
			continue
		}
		p, ok := selectForView(v, st)
		if !ok {
			zap.L().Debug("stitch: no usable period in filing",
				zap.String("accession", v.EntityInfo.Accession),
				zap.String("statement", string(st)))
			continue
		}
		selected = append(selected, enrich(i, p, v.EntityInfo))
	}

	// Two periods are duplicates only when type and every date match; a
	// quarterly and a YTD sharing an end date stay distinct.
	seen := map[string]bool{}
	out := selected[:0]
	for _, sp := range selected {
		if seen[sp.Key] {
			continue
		}
		seen[sp.Key] = true
		out = append(out, sp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Period.EndDate().After(out[j].Period.EndDate())
	})
	if maxPeriods > 0 && len(out) > maxPeriods {
		out = out[:maxPeriods]
	}
	return out
}

func selectForView(v *xbrl.XBRL, st xbrl.StatementType) (xbrl.Period, bool) {
	periods := v.Periods()
	docEnd := v.EntityInfo.DocumentPeriodEndDate

	if st == xbrl.BalanceSheet {
		// Instants only. A known document period end must match exactly;
		// fuzzy fallback here could cross a fiscal-year boundary.
		if !docEnd.IsZero() {
			for _, p := range periods {
				if p.Type == xbrl.PeriodInstant && p.Instant.Equal(docEnd) {
					return p, true
				}
			}
			return xbrl.Period{}, false
		}
		for _, p := range periods {
			if p.Type == xbrl.PeriodInstant {
				return p, true
			}
		}
		return xbrl.Period{}, false
	}

	// Flow statements use durations.
	if !docEnd.IsZero() {
		var ending []xbrl.Period
		for _, p := range periods {
			if p.Type == xbrl.PeriodDuration && p.End.Equal(docEnd) {
				ending = append(ending, p)
			}
		}
		if len(ending) == 0 {
			return xbrl.Period{}, false
		}
		return pickByFiscalFocus(ending, v.EntityInfo.FiscalPeriod)
	}

	// No document period end: newest duration whose length fits any window.
	for _, p := range periods {
		if p.Type != xbrl.PeriodDuration {
			continue
		}
		d := p.DurationDays()
		if annualRange.contains(d) || quarterlyRange.contains(d) ||
			ytd6Range.contains(d) || ytd9Range.contains(d) {
			return p, true
		}
	}
	return xbrl.Period{}, false
}

// pickByFiscalFocus chooses among same-ending durations. Annual filings take
// the period closest to 365 days. Quarterly filings prefer the YTD duration
// over the discrete quarter when both are tagged, since companies usually
// tag the fuller detail on the YTD column.
func pickByFiscalFocus(candidates []xbrl.Period, focus xbrl.FiscalPeriod) (xbrl.Period, bool) {
	if focus == xbrl.FiscalFY {
		best, bestDist := xbrl.Period{}, math.MaxInt32
		found := false
		for _, p := range candidates {
			if !annualRange.contains(p.DurationDays()) {
				continue
			}
			dist := abs(p.DurationDays() - annualRange.target)
			if dist < bestDist {
				best, bestDist, found = p, dist, true
			}
		}
		if found {
			return best, true
		}
		return candidates[0], true
	}

	var quarterly, ytd *xbrl.Period
	for i := range candidates {
		d := candidates[i].DurationDays()
		switch {
		case quarterlyRange.contains(d) && quarterly == nil:
			quarterly = &candidates[i]
		case (ytd6Range.contains(d) || ytd9Range.contains(d) || annualRange.contains(d)) && ytd == nil:
			ytd = &candidates[i]
		}
	}
	if ytd != nil {
		return *ytd, true
	}
	if quarterly != nil {
		return *quarterly, true
	}
	return candidates[0], true
}

func enrich(idx int, p xbrl.Period, ei xbrl.EntityInfo) SelectedPeriod {
	sp := SelectedPeriod{
		XBRLIndex:  idx,
		Key:        p.Key(),
		Period:     p,
		FiscalYear: ei.FiscalYear,
		Entity:     ei,
	}
	if sp.FiscalYear == 0 {
		sp.FiscalYear = p.EndDate().Year()
	}

	if p.Type == xbrl.PeriodInstant {
		sp.Label = p.Instant.Format("2006-01-02")
		return sp
	}

	days := p.DurationDays()
	end := p.End.Format("2006-01-02")
	switch {
	case annualRange.contains(days):
		sp.FiscalPeriod = xbrl.FiscalFY
		sp.Label = fmt.Sprintf("FY %d", sp.FiscalYear)
	case ytd6Range.contains(days):
		sp.FiscalPeriod = xbrl.FiscalYTD6M
		sp.Label = "Q2 YTD " + end
	case ytd9Range.contains(days):
		sp.FiscalPeriod = xbrl.FiscalYTD9M
		sp.Label = "Q3 YTD " + end
	case quarterlyRange.contains(days):
		sp.FiscalPeriod = ei.FiscalPeriod
		if !sp.FiscalPeriod.IsQuarter() {
			sp.FiscalPeriod = xbrl.FiscalQ1
		}
		sp.Label = fmt.Sprintf("%s %d", sp.FiscalPeriod, sp.FiscalYear)
	default:
		sp.Label = end
	}
	return sp
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
