package ttm

import (
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// maxQuarterGapDays bounds the spacing between adjacent quarter ends in a
// TTM window; a larger gap means a missing quarter.
const maxQuarterGapDays = 100

// TTMMetric is one trailing-twelve-month value: the sum of four discrete
// quarters ending at AsOf.
type TTMMetric struct {
	Value   float64
	Periods []*xbrl.Fact // the four quarters, oldest first
	HasGaps bool
	AsOf    time.Time
}

// CalculateTTM sums the four most recent quarters ending at or before asOf
// (zero asOf means the latest available). The quarters must be discrete;
// run Quarterize first. HasGaps flags windows where adjacent quarter ends
// are more than ~100 days apart.
func CalculateTTM(quarters []*xbrl.Fact, asOf time.Time) (*TTMMetric, error) {
	window, err := selectWindow(quarters, asOf)
	if err != nil {
		return nil, err
	}

	m := &TTMMetric{
		Periods: window,
		AsOf:    window[3].PeriodEnd,
	}
	for i, q := range window {
		v, ok := q.Numeric()
		if !ok {
			return nil, eris.Errorf("ttm: non-numeric quarter %s %s", q.Concept, q.FiscalPeriod)
		}
		m.Value += v
		if i > 0 && !quarterEndsClose(window[i-1].PeriodEnd, q.PeriodEnd) {
			m.HasGaps = true
		}
	}
	return m, nil
}

// selectWindow picks the four-quarter window ending at or before asOf,
// oldest first.
func selectWindow(quarters []*xbrl.Fact, asOf time.Time) ([]*xbrl.Fact, error) {
	eligible := dedupeQuarters(quarters)
	if !asOf.IsZero() {
		var filtered []*xbrl.Fact
		for _, q := range eligible {
			if !q.PeriodEnd.After(asOf) {
				filtered = append(filtered, q)
			}
		}
		eligible = filtered
	}
	if len(eligible) < 4 {
		return nil, eris.Errorf("ttm: need 4 quarters, have %d", len(eligible))
	}
	return eligible[len(eligible)-4:], nil
}

// dedupeQuarters keeps the latest-filed fact per quarter end, sorted oldest
// first.
func dedupeQuarters(quarters []*xbrl.Fact) []*xbrl.Fact {
	byEnd := map[string]*xbrl.Fact{}
	for _, q := range quarters {
		if !q.FiscalPeriod.IsQuarter() || q.NumericValue == nil {
			continue
		}
		key := q.PeriodEnd.Format("2006-01-02")
		if prev, ok := byEnd[key]; ok && !q.FilingDate.After(prev.FilingDate) {
			continue
		}
		byEnd[key] = q
	}
	out := make([]*xbrl.Fact, 0, len(byEnd))
	for _, q := range byEnd {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodEnd.Before(out[j].PeriodEnd) })
	return out
}

// TTMPoint is one entry of a TTM trend.
type TTMPoint struct {
	AsOfQuarter  string
	AsOfDate     time.Time
	FiscalYear   int
	FiscalPeriod xbrl.FiscalPeriod
	Value        float64
	HasGaps      bool
}

// CalculateTTMTrend computes rolling four-quarter sums at each of the most
// recent n quarter ends, newest first. Windows with missing quarters are
// omitted.
func CalculateTTMTrend(quarters []*xbrl.Fact, n int) []TTMPoint {
	ordered := dedupeQuarters(quarters)
	var out []TTMPoint
	for i := len(ordered) - 1; i >= 3 && len(out) < n; i-- {
		window := ordered[i-3 : i+1]
		value := 0.0
		gaps := false
		for j, q := range window {
			value += *q.NumericValue
			if j > 0 && !quarterEndsClose(window[j-1].PeriodEnd, q.PeriodEnd) {
				gaps = true
			}
		}
		if gaps {
			continue
		}
		as := window[3]
		out = append(out, TTMPoint{
			AsOfQuarter:  fmt.Sprintf("%s %d", as.FiscalPeriod, as.FiscalYear),
			AsOfDate:     as.PeriodEnd,
			FiscalYear:   as.FiscalYear,
			FiscalPeriod: as.FiscalPeriod,
			Value:        value,
		})
	}
	return out
}

// CalculateTTMEPS computes trailing EPS: TTM net income divided by the
// average of the four quarters' weighted-average share counts. A plain sum
// of quarterly EPS would double-count share-count drift.
func CalculateTTMEPS(netIncomeQuarters, sharesQuarters []*xbrl.Fact, asOf time.Time) (*TTMMetric, error) {
	ni, err := CalculateTTM(netIncomeQuarters, asOf)
	if err != nil {
		return nil, eris.Wrap(err, "ttm: eps net income")
	}

	shares := dedupeQuarters(sharesQuarters)
	byEnd := map[string]float64{}
	for _, s := range shares {
		byEnd[s.PeriodEnd.Format("2006-01-02")] = *s.NumericValue
	}

	total, found := 0.0, 0
	for _, q := range ni.Periods {
		if v, ok := byEnd[q.PeriodEnd.Format("2006-01-02")]; ok {
			total += v
			found++
		}
	}
	if found < 4 {
		return nil, eris.Errorf("ttm: eps needs share counts for all 4 quarters, have %d", found)
	}
	avg := total / 4
	if avg == 0 {
		return nil, eris.New("ttm: zero average share count")
	}

	return &TTMMetric{
		Value:   ni.Value / avg,
		Periods: ni.Periods,
		HasGaps: ni.HasGaps,
		AsOf:    ni.AsOf,
	}, nil
}
