package ttm

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// epsVariant pairs an EPS concept with its share-count concept.
type epsVariant struct {
	eps    string
	shares string
	label  string
}

var epsVariants = []epsVariant{
	{"us-gaap:EarningsPerShareBasic", "us-gaap:WeightedAverageNumberOfSharesOutstandingBasic", "Earnings Per Share, Basic"},
	{"us-gaap:EarningsPerShareDiluted", "us-gaap:WeightedAverageNumberOfDilutedSharesOutstanding", "Earnings Per Share, Diluted"},
}

var netIncomeConcepts = []string{"us-gaap:NetIncomeLoss", "us-gaap:ProfitLoss"}

// ytdMonths maps a fiscal period to the month count of its YTD window.
var ytdMonths = map[xbrl.FiscalPeriod]int{
	xbrl.FiscalQ1:    3,
	xbrl.FiscalYTD6M: 6,
	xbrl.FiscalYTD9M: 9,
	xbrl.FiscalFY:    12,
}

// DeriveEPS fills in quarterly EPS facts where net income and share counts
// allow it. Existing EPS facts for a (period_end, fiscal_period) are never
// overwritten. Returns the input facts plus any derived ones.
func DeriveEPS(facts []*xbrl.Fact) []*xbrl.Fact {
	out := facts

	var netIncome []*xbrl.Fact
	for _, c := range netIncomeConcepts {
		netIncome = xbrl.ByConcept(facts, c)
		if len(netIncome) > 0 {
			break
		}
	}
	if len(netIncome) == 0 {
		return out
	}
	niQuarters := Quarterize(netIncome)

	for _, variant := range epsVariants {
		existing := map[string]bool{}
		for _, f := range Quarterize(xbrl.ByConcept(facts, variant.eps)) {
			existing[quarterSlot(f)] = true
		}
		shares := xbrl.ByConcept(facts, variant.shares)
		if len(shares) == 0 {
			continue
		}

		for _, niq := range niQuarters {
			if existing[quarterSlot(niq)] {
				continue
			}
			qShares, ok := quarterShares(shares, niq)
			if !ok || qShares == 0 {
				zap.L().Debug("ttm: no share count for quarter",
					zap.String("concept", variant.eps),
					zap.Time("period_end", niq.PeriodEnd))
				continue
			}
			ni, ok := niq.Numeric()
			if !ok {
				continue
			}
			v := ni / qShares
			d := niq.Clone()
			d.Concept = variant.eps
			d.Taxonomy = "us-gaap"
			d.Label = variant.label
			d.Unit = "USD/shares"
			d.NumericValue = &v
			d.CalculationContext = "derived_eps_from_net_income_and_shares"
			out = append(out, d)
			existing[quarterSlot(d)] = true
		}
	}
	return out
}

func quarterSlot(f *xbrl.Fact) string {
	return fmt.Sprintf("%s|%s", f.PeriodEnd.Format("2006-01-02"), f.FiscalPeriod)
}

// quarterShares resolves the weighted-average share count for one discrete
// quarter. A share fact tagged on the quarter itself wins; otherwise the
// count is recovered from YTD weighted averages using
//
//	quarter_shares = (N*WA_YTD_N - P*WA_YTD_prior) / (N - P)
//
// where N and P are month counts. This identity recovers the quarter's
// weighted average from two overlapping YTD averages; it assumes the YTD
// windows weight months uniformly.
func quarterShares(shares []*xbrl.Fact, quarter *xbrl.Fact) (float64, bool) {
	// Direct quarterly tag.
	for _, s := range shares {
		if s.FiscalPeriod == quarter.FiscalPeriod &&
			s.PeriodEnd.Equal(quarter.PeriodEnd) &&
			s.NumericValue != nil {
			return *s.NumericValue, true
		}
	}

	current, prior := ytdPairFor(quarter.FiscalPeriod)
	if current == "" {
		return 0, false
	}
	var curFact, priorFact *xbrl.Fact
	for _, s := range shares {
		if s.NumericValue == nil || s.FiscalYear != quarter.FiscalYear {
			continue
		}
		if s.FiscalPeriod == current && curFact == nil {
			curFact = s
		}
		if s.FiscalPeriod == prior && priorFact == nil {
			priorFact = s
		}
	}
	if curFact == nil || priorFact == nil {
		return 0, false
	}

	n := float64(ytdMonths[current])
	p := float64(ytdMonths[prior])
	weighted := n*(*curFact.NumericValue) - p*(*priorFact.NumericValue)
	return weighted / (n - p), true
}

// ytdPairFor returns the YTD windows bracketing a quarter; Q1 needs no
// derivation because its YTD is itself.
func ytdPairFor(q xbrl.FiscalPeriod) (current, prior xbrl.FiscalPeriod) {
	switch q {
	case xbrl.FiscalQ2:
		return xbrl.FiscalYTD6M, xbrl.FiscalQ1
	case xbrl.FiscalQ3:
		return xbrl.FiscalYTD9M, xbrl.FiscalYTD6M
	case xbrl.FiscalQ4:
		return xbrl.FiscalFY, xbrl.FiscalYTD9M
	}
	return "", ""
}

// IsEPSConcept reports whether a concept is an earnings-per-share metric,
// which aggregates as a ratio rather than a sum.
func IsEPSConcept(concept string) bool {
	return strings.Contains(strings.ToLower(concept), "earningspershare")
}
