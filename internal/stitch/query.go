package stitch

import (
	"sort"
	"strings"
	"time"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// StitchedFact is one (concept, period) cell of a stitched statement,
// flattened for querying.
type StitchedFact struct {
	Concept         string
	Label           string
	StandardConcept string
	StatementType   xbrl.StatementType
	PeriodKey       string
	PeriodEnd       time.Time
	FiscalPeriod    xbrl.FiscalPeriod
	Value           float64
	Decimals        int
	FilingIndex     int
}

// StitchedFactQuery filters and shapes stitched facts. Every filter returns
// the query for chaining; Execute materializes the result.
type StitchedFactQuery struct {
	facts      []StitchedFact
	filters    []func(StitchedFact) bool
	minPeriods int
	complete   bool
	transform  func(float64) float64
}

// NewQuery flattens one or more stitched statements into a query.
func NewQuery(statements ...*StitchedStatement) *StitchedFactQuery {
	q := &StitchedFactQuery{}
	for _, st := range statements {
		if st == nil {
			continue
		}
		fyEnd := st.FiscalYearEndMonth
		if fyEnd < 1 || fyEnd > 12 {
			fyEnd = 12
		}
		for _, row := range st.Rows {
			for _, p := range st.Periods {
				v, ok := row.Values[p.Key]
				if !ok {
					continue
				}
				q.facts = append(q.facts, StitchedFact{
					Concept:         row.Concept,
					Label:           row.Label,
					StandardConcept: row.StandardConcept,
					StatementType:   st.Type,
					PeriodKey:       p.Key,
					PeriodEnd:       periodKeyEnd(p.Key),
					FiscalPeriod:    fiscalFromKey(p.Key, fyEnd),
					Value:           v,
					Decimals:        row.Decimals[p.Key],
					FilingIndex:     row.Filings[p.Key],
				})
			}
		}
	}
	return q
}

// fiscalFromKey classifies a duration period key by its length; discrete
// quarters resolve to Q1..Q4 by their end month within the fiscal year.
func fiscalFromKey(key string, fyEndMonth int) xbrl.FiscalPeriod {
	if !strings.HasPrefix(key, "duration_") {
		return ""
	}
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return ""
	}
	start, err1 := time.Parse("2006-01-02", parts[1])
	end, err2 := time.Parse("2006-01-02", parts[2])
	if err1 != nil || err2 != nil {
		return ""
	}
	days := int(end.Sub(start).Hours() / 24)
	switch {
	case annualRange.contains(days):
		return xbrl.FiscalFY
	case ytd6Range.contains(days):
		return xbrl.FiscalYTD6M
	case ytd9Range.contains(days):
		return xbrl.FiscalYTD9M
	case quarterlyRange.contains(days):
		return xbrl.QuarterAt(end, fyEndMonth)
	}
	return ""
}

// ByStandardConcept keeps facts whose cross-company identifier matches.
func (q *StitchedFactQuery) ByStandardConcept(std string) *StitchedFactQuery {
	q.filters = append(q.filters, func(f StitchedFact) bool { return f.StandardConcept == std })
	return q
}

// ByLabel keeps facts whose company-specific label contains the substring,
// case-insensitively.
func (q *StitchedFactQuery) ByLabel(label string) *StitchedFactQuery {
	needle := strings.ToLower(label)
	q.filters = append(q.filters, func(f StitchedFact) bool {
		return strings.Contains(strings.ToLower(f.Label), needle)
	})
	return q
}

// ByConcept keeps facts for the given XBRL concept.
func (q *StitchedFactQuery) ByConcept(concept string) *StitchedFactQuery {
	norm := normalizeConcept(concept)
	q.filters = append(q.filters, func(f StitchedFact) bool {
		return normalizeConcept(f.Concept) == norm
	})
	return q
}

// ByFiscalPeriod keeps facts of one fiscal period classification.
func (q *StitchedFactQuery) ByFiscalPeriod(fp xbrl.FiscalPeriod) *StitchedFactQuery {
	q.filters = append(q.filters, func(f StitchedFact) bool { return f.FiscalPeriod == fp })
	return q
}

// ByFilingIndex keeps facts contributed by the given input filing.
func (q *StitchedFactQuery) ByFilingIndex(idx int) *StitchedFactQuery {
	q.filters = append(q.filters, func(f StitchedFact) bool { return f.FilingIndex == idx })
	return q
}

// AcrossPeriods keeps only concepts that appear in at least k periods.
func (q *StitchedFactQuery) AcrossPeriods(k int) *StitchedFactQuery {
	q.minPeriods = k
	return q
}

// CompletePeriodsOnly keeps only concepts present in every period of the
// result set.
func (q *StitchedFactQuery) CompletePeriodsOnly() *StitchedFactQuery {
	q.complete = true
	return q
}

// Transform applies f to every value at execution time.
func (q *StitchedFactQuery) Transform(f func(float64) float64) *StitchedFactQuery {
	q.transform = f
	return q
}

// Execute materializes the query, newest periods first.
func (q *StitchedFactQuery) Execute() []StitchedFact {
	var out []StitchedFact
	for _, f := range q.facts {
		keep := true
		for _, pred := range q.filters {
			if !pred(f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, f)
		}
	}

	if q.minPeriods > 0 || q.complete {
		periodCount := map[string]map[string]bool{}
		allPeriods := map[string]bool{}
		for _, f := range out {
			if periodCount[f.Concept] == nil {
				periodCount[f.Concept] = map[string]bool{}
			}
			periodCount[f.Concept][f.PeriodKey] = true
			allPeriods[f.PeriodKey] = true
		}
		need := q.minPeriods
		if q.complete {
			need = len(allPeriods)
		}
		filtered := out[:0]
		for _, f := range out {
			if len(periodCount[f.Concept]) >= need {
				filtered = append(filtered, f)
			}
		}
		out = filtered
	}

	if q.transform != nil {
		for i := range out {
			out[i].Value = q.transform(out[i].Value)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PeriodEnd.After(out[j].PeriodEnd)
	})
	return out
}

// ToDataFrame pivots the result to concept -> period key -> value.
func (q *StitchedFactQuery) ToDataFrame() map[string]map[string]float64 {
	out := map[string]map[string]float64{}
	for _, f := range q.Execute() {
		if out[f.Concept] == nil {
			out[f.Concept] = map[string]float64{}
		}
		out[f.Concept][f.PeriodKey] = f.Value
	}
	return out
}

// TrendPoint is one cell of a trend frame, indexed by period end.
type TrendPoint struct {
	PeriodEnd time.Time
	Value     float64
}

// ToTrendDataFrame pivots to concept -> time-ordered points, newest first.
func (q *StitchedFactQuery) ToTrendDataFrame() map[string][]TrendPoint {
	out := map[string][]TrendPoint{}
	for _, f := range q.Execute() {
		out[f.Concept] = append(out[f.Concept], TrendPoint{PeriodEnd: f.PeriodEnd, Value: f.Value})
	}
	return out
}
