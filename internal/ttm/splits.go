// Package ttm derives trailing-twelve-month metrics from XBRL facts:
// retrospective stock-split adjustment, discrete-quarter derivation from YTD
// aggregates, EPS derivation, and rolling four-quarter aggregation.
package ttm

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

const (
	// MaxSplitLagDays rejects split facts restated long after the event;
	// those are historical echoes in comparative columns of later filings.
	MaxSplitLagDays = 280

	// MaxSplitDurationDays rejects split facts aggregated over comparative
	// periods. A split is tagged over at most a short window around the
	// event date.
	MaxSplitDurationDays = 45
)

// Split is one detected stock split.
type Split struct {
	Date  time.Time
	Ratio float64
}

// DetectSplits scans facts for stock-split conversion ratios and filters out
// stale and aggregated tags. Results are deduplicated by (year, ratio) and
// sorted by date.
func DetectSplits(facts []*xbrl.Fact) []Split {
	var splits []Split
	seen := map[string]bool{}

	for _, f := range facts {
		if !strings.Contains(f.Concept, "StockSplitConversionRatio") {
			continue
		}
		ratio, ok := f.Numeric()
		if !ok || ratio <= 0 || f.PeriodEnd.IsZero() {
			continue
		}
		if !f.FilingDate.IsZero() && f.FilingDate.Sub(f.PeriodEnd) > MaxSplitLagDays*24*time.Hour {
			zap.L().Debug("ttm: rejecting stale split tag",
				zap.Time("period_end", f.PeriodEnd),
				zap.Time("filing_date", f.FilingDate),
				zap.Float64("ratio", ratio))
			continue
		}
		if !f.PeriodStart.IsZero() && f.PeriodEnd.Sub(f.PeriodStart) > MaxSplitDurationDays*24*time.Hour {
			continue
		}
		key := fmt.Sprintf("%d_%g", f.PeriodEnd.Year(), ratio)
		if seen[key] {
			continue
		}
		seen[key] = true
		splits = append(splits, Split{Date: f.PeriodEnd, Ratio: ratio})
	}

	sort.Slice(splits, func(i, j int) bool { return splits[i].Date.Before(splits[j].Date) })
	return splits
}

// ApplySplitAdjustments rewrites per-share and share-count facts that predate
// one or more splits and were filed before the split (i.e. not yet restated).
// Per-share values divide by the cumulative ratio; share counts multiply.
// Facts that need no adjustment are returned as-is.
func ApplySplitAdjustments(facts []*xbrl.Fact, splits []Split) []*xbrl.Fact {
	if len(splits) == 0 {
		return facts
	}
	out := make([]*xbrl.Fact, 0, len(facts))
	for _, f := range facts {
		adjusted := adjustFact(f, splits)
		out = append(out, adjusted)
	}
	return out
}

func adjustFact(f *xbrl.Fact, splits []Split) *xbrl.Fact {
	perShare := isPerShare(f)
	shareCount := !perShare && isShareCount(f)
	if !perShare && !shareCount {
		return f
	}
	v, ok := f.Numeric()
	if !ok {
		return f
	}

	ratio := 1.0
	for _, s := range splits {
		if !s.Date.After(f.PeriodEnd) {
			continue
		}
		if !f.FilingDate.IsZero() && f.FilingDate.After(s.Date) {
			// Already restated by the time it was filed.
			continue
		}
		ratio *= s.Ratio
	}
	if ratio == 1.0 || ratio <= 0 {
		return f
	}

	clone := f.Clone()
	if perShare {
		v /= ratio
	} else {
		v *= ratio
	}
	clone.NumericValue = &v
	clone.CalculationContext = fmt.Sprintf("split_adj_ratio_%.2f", ratio)
	return clone
}

func isPerShare(f *xbrl.Fact) bool {
	return strings.Contains(strings.ToLower(f.Unit), "/share") ||
		strings.Contains(strings.ToLower(f.Concept), "earningspershare")
}

func isShareCount(f *xbrl.Fact) bool {
	return strings.Contains(strings.ToLower(f.Unit), "shares")
}
