package xbrl

import "sort"

// ByConcept returns the facts tagged with the given concept. The match
// accepts either the namespaced name ("us-gaap:Revenues") or the bare local
// name ("Revenues").
func ByConcept(facts []*Fact, concept string) []*Fact {
	var out []*Fact
	for _, f := range facts {
		if f.Concept == concept || localName(f.Concept) == concept {
			out = append(out, f)
		}
	}
	return out
}

// ByFiscalPeriod returns the duration facts classified into the given fiscal
// period.
func ByFiscalPeriod(facts []*Fact, fp FiscalPeriod) []*Fact {
	var out []*Fact
	for _, f := range facts {
		if f.FiscalPeriod == fp {
			out = append(out, f)
		}
	}
	return out
}

// Undimensioned filters out facts carrying segment dimensions, keeping only
// consolidated entity-level values.
func Undimensioned(facts []*Fact) []*Fact {
	var out []*Fact
	for _, f := range facts {
		if len(f.Dimensions) == 0 {
			out = append(out, f)
		}
	}
	return out
}

// SortNewestFirst orders facts by period end descending, breaking ties with
// filing date descending. The sort is stable so same-period facts keep their
// source order.
func SortNewestFirst(facts []*Fact) {
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].PeriodEnd.Equal(facts[j].PeriodEnd) {
			return facts[i].PeriodEnd.After(facts[j].PeriodEnd)
		}
		return facts[i].FilingDate.After(facts[j].FilingDate)
	})
}

// Latest returns the fact with the newest period end, preferring the most
// recently filed on ties; nil for an empty slice.
func Latest(facts []*Fact) *Fact {
	var best *Fact
	for _, f := range facts {
		if best == nil ||
			f.PeriodEnd.After(best.PeriodEnd) ||
			(f.PeriodEnd.Equal(best.PeriodEnd) && f.FilingDate.After(best.FilingDate)) {
			best = f
		}
	}
	return best
}

// ByConcept returns this filing's facts for the concept.
func (x *XBRL) ByConcept(concept string) []*Fact {
	return ByConcept(x.Facts, concept)
}

// Periods returns every distinct reporting period in the filing, newest
// first.
func (x *XBRL) Periods() []Period {
	seen := map[string]Period{}
	var keys []string
	for _, f := range x.Facts {
		p := f.Period()
		k := p.Key()
		if _, ok := seen[k]; !ok {
			seen[k] = p
			keys = append(keys, k)
		}
	}
	out := make([]Period, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EndDate().After(out[j].EndDate())
	})
	return out
}
