package ttm

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// yearFacts holds one concept's facts for one fiscal year, by fiscal period.
type yearFacts map[xbrl.FiscalPeriod]*xbrl.Fact

// Quarterize derives discrete quarterly facts from YTD and annual aggregates,
// per concept and fiscal year:
//
//	Q2 = YTD_6M - Q1
//	Q3 = YTD_9M - YTD_6M
//	Q4 = FY - YTD_9M  (or FY - Q1 - Q2 - Q3 when YTDs are absent)
//
// Existing quarter facts pass through untouched; only quarters are returned.
func Quarterize(facts []*xbrl.Fact) []*xbrl.Fact {
	byGroup := map[string]yearFacts{}
	var groupOrder []string

	for _, f := range facts {
		if f.NumericValue == nil || f.FiscalPeriod == "" || len(f.Dimensions) > 0 {
			continue
		}
		key := fmt.Sprintf("%s|%s|%d", f.Concept, f.Unit, f.FiscalYear)
		group, ok := byGroup[key]
		if !ok {
			group = yearFacts{}
			byGroup[key] = group
			groupOrder = append(groupOrder, key)
		}
		// Prefer the most recently filed fact for a slot.
		if prev, dup := group[f.FiscalPeriod]; dup && !f.FilingDate.After(prev.FilingDate) {
			continue
		}
		group[f.FiscalPeriod] = f
	}

	var out []*xbrl.Fact
	for _, key := range groupOrder {
		out = append(out, quarterizeYear(byGroup[key])...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PeriodEnd.Before(out[j].PeriodEnd) })
	return out
}

func quarterizeYear(group yearFacts) []*xbrl.Fact {
	var out []*xbrl.Fact
	for _, q := range []xbrl.FiscalPeriod{xbrl.FiscalQ1, xbrl.FiscalQ2, xbrl.FiscalQ3, xbrl.FiscalQ4} {
		if f, ok := group[q]; ok {
			out = append(out, f)
		}
	}

	q1, hasQ1 := group[xbrl.FiscalQ1]
	ytd6, hasYTD6 := group[xbrl.FiscalYTD6M]
	ytd9, hasYTD9 := group[xbrl.FiscalYTD9M]
	fy, hasFY := group[xbrl.FiscalFY]

	if _, has := group[xbrl.FiscalQ2]; !has && hasYTD6 && hasQ1 {
		if d := derive(xbrl.FiscalQ2, ytd6, q1, "derived_q2_from_ytd6m_minus_q1"); d != nil {
			group[xbrl.FiscalQ2] = d
			out = append(out, d)
		}
	}
	if _, has := group[xbrl.FiscalQ3]; !has && hasYTD9 && hasYTD6 {
		if d := derive(xbrl.FiscalQ3, ytd9, ytd6, "derived_q3_from_ytd9m_minus_ytd6m"); d != nil {
			group[xbrl.FiscalQ3] = d
			out = append(out, d)
		}
	}
	if _, has := group[xbrl.FiscalQ4]; !has && hasFY {
		var d *xbrl.Fact
		if hasYTD9 {
			d = derive(xbrl.FiscalQ4, fy, ytd9, "derived_q4_from_fy_minus_ytd9m")
		} else if q2, hasQ2 := group[xbrl.FiscalQ2]; hasQ2 {
			if q3, hasQ3 := group[xbrl.FiscalQ3]; hasQ3 && hasQ1 {
				d = deriveQ4FromQuarters(fy, q1, q2, q3)
			}
		}
		if d != nil {
			group[xbrl.FiscalQ4] = d
			out = append(out, d)
		}
	}
	return out
}

// derive builds quarter = longer - shorter, spanning the gap between them.
func derive(q xbrl.FiscalPeriod, longer, shorter *xbrl.Fact, context string) *xbrl.Fact {
	lv, lok := longer.Numeric()
	sv, sok := shorter.Numeric()
	if !lok || !sok {
		return nil
	}
	if !shorter.PeriodEnd.Before(longer.PeriodEnd) {
		zap.L().Debug("ttm: inconsistent periods for quarter derivation",
			zap.String("concept", longer.Concept),
			zap.String("quarter", string(q)))
		return nil
	}
	v := lv - sv
	d := longer.Clone()
	d.NumericValue = &v
	d.PeriodStart = shorter.PeriodEnd.AddDate(0, 0, 1)
	d.FiscalPeriod = q
	d.CalculationContext = context
	return d
}

func deriveQ4FromQuarters(fy, q1, q2, q3 *xbrl.Fact) *xbrl.Fact {
	fv, ok := fy.Numeric()
	if !ok {
		return nil
	}
	total := 0.0
	for _, q := range []*xbrl.Fact{q1, q2, q3} {
		v, ok := q.Numeric()
		if !ok {
			return nil
		}
		total += v
	}
	v := fv - total
	d := fy.Clone()
	d.NumericValue = &v
	d.PeriodStart = q3.PeriodEnd.AddDate(0, 0, 1)
	d.FiscalPeriod = xbrl.FiscalQ4
	d.CalculationContext = "derived_q4_from_fy_minus_q1_q2_q3"
	return d
}

// quarterEndsClose reports whether two quarter ends are within the TTM gap
// tolerance.
func quarterEndsClose(a, b time.Time) bool {
	gap := b.Sub(a)
	if gap < 0 {
		gap = -gap
	}
	return gap <= maxQuarterGapDays*24*time.Hour
}
