package edgar

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/edgar-core/internal/fetcher"
	"github.com/sells-group/edgar-core/internal/filing"
	"github.com/sells-group/edgar-core/internal/stitch"
	"github.com/sells-group/edgar-core/internal/ttm"
	"github.com/sells-group/edgar-core/internal/xbrl"
)

// Statement period selectors.
const (
	PeriodAnnual    = "annual"
	PeriodQuarterly = "quarterly"
	PeriodTTM       = "ttm"
)

// defaultMaxFilings bounds how many filings back a statement reaches.
const defaultMaxFilings = 6

// defaultArchiveBase is the EDGAR archive root for full submission files.
const defaultArchiveBase = "https://www.sec.gov/Archives/edgar/data"

// NoCompanyFactsFoundError reports that none of a company's filings yielded
// XBRL facts.
type NoCompanyFactsFoundError struct {
	CIK string
}

func (e *NoCompanyFactsFoundError) Error() string {
	return fmt.Sprintf("edgar: no XBRL facts found for CIK %s; the company may not file "+
		"structured financials (funds and foreign private issuers often do not)", e.CIK)
}

// CompanyOption configures a Company.
type CompanyOption func(*Company)

// WithFetcher replaces the HTTP fetcher, mainly for tests.
func WithFetcher(f fetcher.Fetcher) CompanyOption {
	return func(c *Company) { c.fetcher = f }
}

// WithCacheDir sets the submissions cache directory.
func WithCacheDir(dir string) CompanyOption {
	return func(c *Company) { c.cacheDir = dir }
}

// WithETagStore persists submissions ETags so a stale cached copy can be
// revalidated with a conditional request instead of re-downloaded.
func WithETagStore(s fetcher.ETagStore) CompanyOption {
	return func(c *Company) { c.etags = s }
}

// WithArchiveBase overrides the EDGAR archive root, mainly for tests.
func WithArchiveBase(base string) CompanyOption {
	return func(c *Company) { c.archiveBase = strings.TrimSuffix(base, "/") }
}

// WithMaxFilings sets how many filings per form feed the statement views.
func WithMaxFilings(n int) CompanyOption {
	return func(c *Company) {
		if n > 0 {
			c.maxFilings = n
		}
	}
}

// Company is the entity-level entry point: filing history via the
// submissions endpoint, lazily loaded XBRL views, and derived statements.
// All derived state is cached on first use.
type Company struct {
	cik         string
	cacheDir    string
	archiveBase string
	maxFilings  int
	fetcher     fetcher.Fetcher
	etags       fetcher.ETagStore
	subs        *fetcher.SubmissionsCache

	mu       sync.Mutex
	data     *EntityData
	sets     map[string]*XBRLS
	adjusted []*xbrl.Fact
	entity   xbrl.EntityInfo
}

// NewCompany creates a company handle for a CIK (leading zeros optional).
func NewCompany(cik string, opts ...CompanyOption) *Company {
	c := &Company{
		cik:         fetcher.PadCIK(cik),
		cacheDir:    ".edgar-cache/submissions",
		archiveBase: defaultArchiveBase,
		maxFilings:  defaultMaxFilings,
		sets:        map[string]*XBRLS{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Identity: Identity()})
	}
	c.subs = fetcher.NewSubmissionsCache(c.cacheDir, c.fetcher, 0)
	if c.etags != nil {
		c.subs.UseETagStore(c.etags)
	}
	return c
}

// CIK returns the zero-padded CIK.
func (c *Company) CIK() string { return c.cik }

// Data returns the company's submissions record, fetching it on first use.
func (c *Company) Data(ctx context.Context) (*EntityData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataLocked(ctx)
}

func (c *Company) dataLocked(ctx context.Context) (*EntityData, error) {
	if c.data != nil {
		return c.data, nil
	}
	raw, err := c.subs.Get(ctx, c.cik)
	if err != nil {
		return nil, err
	}
	data, err := parseSubmissions(raw)
	if err != nil {
		return nil, err
	}
	c.data = data
	return data, nil
}

// filingSet loads and caches the XBRL view set for one form type.
func (c *Company) filingSet(ctx context.Context, form string) (*XBRLS, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filingSetLocked(ctx, form)
}

func (c *Company) filingSetLocked(ctx context.Context, form string) (*XBRLS, error) {
	if set, ok := c.sets[form]; ok {
		return set, nil
	}

	data, err := c.dataLocked(ctx)
	if err != nil {
		return nil, err
	}
	refs := data.FilingsByForm(form)
	if len(refs) > c.maxFilings {
		refs = refs[:c.maxFilings]
	}

	filings := make([]*filing.FilingSGML, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			f, err := c.downloadFiling(gctx, ref)
			if err != nil {
				return err
			}
			filings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set, err := FromFilings(ctx, filings, true)
	if err != nil {
		return nil, err
	}
	zap.L().Info("edgar: loaded filing set",
		zap.String("cik", c.cik), zap.String("form", form), zap.Int("views", len(set.Views)))
	c.sets[form] = set
	return set, nil
}

// downloadFiling fetches the complete submission text file for one filing.
func (c *Company) downloadFiling(ctx context.Context, ref FilingRef) (*filing.FilingSGML, error) {
	url := fmt.Sprintf("%s/%s/%s/%s.txt",
		c.archiveBase, strings.TrimLeft(c.cik, "0"),
		strings.ReplaceAll(ref.Accession, "-", ""), ref.Accession)
	body, err := c.fetcher.Download(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: download filing %s", ref.Accession)
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: read filing %s", ref.Accession)
	}
	return parseBytes(data)
}

// Facts returns every fact across the company's annual and quarterly
// filings, split-adjusted and cached.
func (c *Company) Facts(ctx context.Context) ([]*xbrl.Fact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.factsLocked(ctx)
}

func (c *Company) factsLocked(ctx context.Context) ([]*xbrl.Fact, error) {
	if c.adjusted != nil {
		return c.adjusted, nil
	}

	var facts []*xbrl.Fact
	for _, form := range []string{"10-K", "10-Q"} {
		set, err := c.filingSetLocked(ctx, form)
		if err != nil {
			return nil, err
		}
		if len(set.Views) > 0 && c.entity.CIK == "" {
			c.entity = set.Views[0].EntityInfo
		}
		facts = append(facts, set.Facts()...)
	}
	if len(facts) == 0 {
		return nil, &NoCompanyFactsFoundError{CIK: c.cik}
	}

	splits := ttm.DetectSplits(facts)
	c.adjusted = ttm.ApplySplitAdjustments(facts, splits)
	return c.adjusted, nil
}

// GetTTM computes the trailing-twelve-month value of one concept as of the
// given date (zero time means the latest available quarter).
func (c *Company) GetTTM(ctx context.Context, concept string, asOf time.Time) (*ttm.TTMMetric, error) {
	facts, err := c.Facts(ctx)
	if err != nil {
		return nil, err
	}
	matched := xbrl.Undimensioned(xbrl.ByConcept(facts, concept))
	if len(matched) == 0 {
		return nil, eris.Errorf("edgar: no facts for concept %s", concept)
	}
	return ttm.CalculateTTM(ttm.Quarterize(matched), asOf)
}

// IncomeStatement returns the income statement for a period selector
// (annual, quarterly, or ttm). A periods value of 0 uses the default
// column count.
func (c *Company) IncomeStatement(ctx context.Context, period string, periods int) (*Statement, error) {
	return c.statement(ctx, xbrl.IncomeStatement, period, periods)
}

// BalanceSheet returns the balance sheet; point-in-time values have no TTM
// view.
func (c *Company) BalanceSheet(ctx context.Context, period string, periods int) (*Statement, error) {
	if period == PeriodTTM {
		return nil, eris.New("edgar: balance sheet has no trailing-twelve-month view")
	}
	return c.statement(ctx, xbrl.BalanceSheet, period, periods)
}

// CashFlow returns the cash flow statement for a period selector.
func (c *Company) CashFlow(ctx context.Context, period string, periods int) (*Statement, error) {
	return c.statement(ctx, xbrl.CashFlowStatement, period, periods)
}

func (c *Company) statement(ctx context.Context, st xbrl.StatementType, period string, periods int) (*Statement, error) {
	switch period {
	case PeriodAnnual, PeriodQuarterly:
		form := "10-K"
		if period == PeriodQuarterly {
			form = "10-Q"
		}
		set, err := c.filingSet(ctx, form)
		if err != nil {
			return nil, err
		}
		if len(set.Views) == 0 {
			return nil, &NoCompanyFactsFoundError{CIK: c.cik}
		}
		opts := stitch.Options{MaxPeriods: periods, Standardize: true, UseOptimalPeriods: true}
		return fromStitched(set.GetStatement(st, opts)), nil

	case PeriodTTM:
		facts, err := c.Facts(ctx)
		if err != nil {
			return nil, err
		}
		if periods <= 0 {
			periods = 4
		}
		ts, err := ttm.BuildTTMStatement(facts, st, c.entity, periods)
		if err != nil {
			return nil, err
		}
		return fromTTM(ts), nil

	default:
		return nil, eris.Errorf("edgar: unknown period %q (want annual, quarterly, or ttm)", period)
	}
}
