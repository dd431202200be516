package edgar

import (
	"context"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edgar-core/internal/filing"
	"github.com/sells-group/edgar-core/internal/stitch"
	"github.com/sells-group/edgar-core/internal/xbrl"
)

// parseConcurrency bounds how many instance documents parse at once.
const parseConcurrency = 4

// XBRLS holds the parsed XBRL views of a filing set, newest first, with a
// stitcher bound to them.
type XBRLS struct {
	Views []*xbrl.XBRL

	stitcher *stitch.Stitcher
}

// FromFilings parses the XBRL instance document of every filing into one
// view set. Filings without an instance document are skipped. When
// filterAmendments is set, an amendment replaces the original filing for
// the same form and period.
func FromFilings(ctx context.Context, filings []*filing.FilingSGML, filterAmendments bool) (*XBRLS, error) {
	if filterAmendments {
		filings = dropAmendedFilings(filings)
	}

	views := make([]*xbrl.XBRL, len(filings))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, f := range filings {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc := f.XBRLDocument()
			if doc == nil {
				zap.L().Debug("edgar: filing has no instance document",
					zap.String("accession", f.Header.AccessionNumber))
				return nil
			}
			body := doc.XML()
			if body == "" {
				body = string(doc.Content())
			}
			v, err := xbrl.Parse([]byte(body), xbrl.FilingInfo{
				Accession:  f.Header.AccessionNumber,
				FormType:   f.Header.Form,
				FilingDate: f.Header.FilingDate,
			})
			if err != nil {
				return eris.Wrapf(err, "edgar: parse instance of %s", f.Header.AccessionNumber)
			}
			views[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kept []*xbrl.XBRL
	for _, v := range views {
		if v != nil {
			kept = append(kept, v)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].EntityInfo.FilingDate.After(kept[j].EntityInfo.FilingDate)
	})

	stitcher, err := stitch.NewStitcher()
	if err != nil {
		return nil, err
	}
	return &XBRLS{Views: kept, stitcher: stitcher}, nil
}

// dropAmendedFilings keeps the latest filing per (base form, period); an
// amendment filed after the original wins.
func dropAmendedFilings(filings []*filing.FilingSGML) []*filing.FilingSGML {
	latest := map[string]*filing.FilingSGML{}
	var order []string
	for _, f := range filings {
		base := strings.TrimSuffix(f.Header.Form, "/A")
		key := base + "|" + f.Header.PeriodOfReport.Format("2006-01-02")
		cur, ok := latest[key]
		if !ok {
			latest[key] = f
			order = append(order, key)
			continue
		}
		if f.Header.FilingDate.After(cur.Header.FilingDate) {
			zap.L().Debug("edgar: amendment supersedes filing",
				zap.String("kept", f.Header.AccessionNumber),
				zap.String("dropped", cur.Header.AccessionNumber))
			latest[key] = f
		}
	}
	out := make([]*filing.FilingSGML, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// GetStatement stitches one statement type across the view set.
func (x *XBRLS) GetStatement(st xbrl.StatementType, opts stitch.Options) *stitch.StitchedStatement {
	return x.stitcher.Stitch(x.Views, st, opts)
}

// Query builds a fact query over the stitched statements of the given
// types, defaulting to the income statement.
func (x *XBRLS) Query(opts stitch.Options, types ...xbrl.StatementType) *stitch.StitchedFactQuery {
	if len(types) == 0 {
		types = []xbrl.StatementType{xbrl.IncomeStatement}
	}
	statements := make([]*stitch.StitchedStatement, 0, len(types))
	for _, st := range types {
		statements = append(statements, x.GetStatement(st, opts))
	}
	return stitch.NewQuery(statements...)
}

// Facts returns every fact across the view set, newest filings first.
func (x *XBRLS) Facts() []*xbrl.Fact {
	var facts []*xbrl.Fact
	for _, v := range x.Views {
		facts = append(facts, v.Facts...)
	}
	return facts
}
