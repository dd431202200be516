package ttm

import (
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// TTMItem is one line of a TTM statement: a concept with its rolling values
// keyed by as-of quarter.
type TTMItem struct {
	Label   string
	Concept string
	Depth   int
	IsTotal bool
	Values  map[string]float64
}

// TTMStatement is a statement where every column is a trailing-twelve-month
// window ending at a quarter.
type TTMStatement struct {
	StatementType xbrl.StatementType
	AsOfDate      time.Time
	Items         []TTMItem
	Periods       []string // as-of quarter labels, newest first
	CompanyName   string
	CIK           string
}

// basePeriodConcepts anchor the column set; every line item aligns to the
// quarters where the first available of these has a TTM value.
var basePeriodConcepts = []string{"us-gaap:Revenues", "us-gaap:NetIncomeLoss"}

// BuildTTMStatement computes rolling TTM values for every concept of the
// statement type. Facts should already be split-adjusted. Balance sheets
// have no TTM (point-in-time values).
func BuildTTMStatement(facts []*xbrl.Fact, st xbrl.StatementType, entity xbrl.EntityInfo, periods int) (*TTMStatement, error) {
	if st == xbrl.BalanceSheet {
		return nil, eris.New("ttm: balance sheet has no trailing-twelve-month view")
	}
	if periods <= 0 {
		periods = 4
	}

	byConcept := map[string][]*xbrl.Fact{}
	var conceptOrder []string
	labels := map[string]string{}
	for _, f := range xbrl.Undimensioned(facts) {
		if f.StatementType != st || f.NumericValue == nil {
			continue
		}
		if _, ok := byConcept[f.Concept]; !ok {
			conceptOrder = append(conceptOrder, f.Concept)
			labels[f.Concept] = f.Label
		}
		byConcept[f.Concept] = append(byConcept[f.Concept], f)
	}

	base := basePeriods(byConcept, periods)
	if len(base) == 0 {
		return nil, eris.New("ttm: no base quarters available")
	}

	out := &TTMStatement{
		StatementType: st,
		AsOfDate:      base[0].AsOfDate,
		CompanyName:   entity.Name,
		CIK:           entity.CIK,
	}
	for _, p := range base {
		out.Periods = append(out.Periods, p.AsOfQuarter)
	}

	for _, concept := range conceptOrder {
		if IsEPSConcept(concept) {
			// Ratio metrics need the share-count path, not a sum.
			continue
		}
		trend := CalculateTTMTrend(Quarterize(byConcept[concept]), periods)
		if len(trend) == 0 {
			zap.L().Debug("ttm: concept yields no trend", zap.String("concept", concept))
			continue
		}
		item := TTMItem{
			Label:   labels[concept],
			Concept: concept,
			IsTotal: xbrl.IsTotalConcept(concept),
			Values:  map[string]float64{},
		}
		for _, p := range trend {
			for _, b := range base {
				if b.AsOfQuarter == p.AsOfQuarter {
					item.Values[p.AsOfQuarter] = p.Value
					break
				}
			}
		}
		if len(item.Values) > 0 {
			out.Items = append(out.Items, item)
		}
	}

	if len(out.Items) == 0 {
		return nil, eris.New("ttm: no line items with TTM values")
	}
	return out, nil
}

// basePeriods derives the column set from the preferred anchor concept.
func basePeriods(byConcept map[string][]*xbrl.Fact, periods int) []TTMPoint {
	for _, concept := range basePeriodConcepts {
		facts, ok := byConcept[concept]
		if !ok {
			continue
		}
		if trend := CalculateTTMTrend(Quarterize(facts), periods); len(trend) > 0 {
			return trend
		}
	}
	// No anchor tagged: fall back to the widest trend available.
	var best []TTMPoint
	var concepts []string
	for c := range byConcept {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	for _, c := range concepts {
		if trend := CalculateTTMTrend(Quarterize(byConcept[c]), periods); len(trend) > len(best) {
			best = trend
		}
	}
	return best
}
