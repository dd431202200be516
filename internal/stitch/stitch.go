package stitch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// DefaultMaxPeriods bounds the number of columns in a stitched statement.
const DefaultMaxPeriods = 8

// Options control one stitch.
type Options struct {
	MaxPeriods        int
	Standardize       bool
	UseOptimalPeriods bool
	IncludeDimensions bool
}

func (o Options) withDefaults() Options {
	if o.MaxPeriods <= 0 {
		o.MaxPeriods = DefaultMaxPeriods
	}
	return o
}

type cacheKey struct {
	st          xbrl.StatementType
	maxPeriods  int
	standardize bool
	optimal     bool
	dimensions  bool
}

// StitchedPeriod is one output column.
type StitchedPeriod struct {
	Key   string
	Label string
}

// StitchedRow is one output line item.
type StitchedRow struct {
	Label           string
	Level           int
	IsAbstract      bool
	IsTotal         bool
	Concept         string
	StandardConcept string
	Values          map[string]float64
	Decimals        map[string]int
	Filings         map[string]int // period key -> contributing view index
	HasValues       bool
}

// StitchedStatement is the unified multi-period statement.
type StitchedStatement struct {
	Type               xbrl.StatementType
	FiscalYearEndMonth int // from the newest contributing view; 12 when unknown
	Periods            []StitchedPeriod
	Rows               []*StitchedRow
}

// Stitcher combines XBRL views. Results are cached per option tuple; a
// Stitcher is meant to live alongside one entity's filing set.
type Stitcher struct {
	mapper *ConceptMapper
	cache  map[cacheKey]*StitchedStatement
}

// NewStitcher builds a stitcher with the embedded concept mappings.
func NewStitcher() (*Stitcher, error) {
	mapper, err := NewConceptMapper()
	if err != nil {
		return nil, err
	}
	return &Stitcher{mapper: mapper, cache: map[cacheKey]*StitchedStatement{}}, nil
}

// conceptEntry accumulates one concept's data across filings.
type conceptEntry struct {
	concept         string
	label           string
	standardConcept string
	level           int
	isAbstract      bool
	isTotal         bool
	newestEnd       time.Time
	refOrder        int // presentation index in the newest filing; -1 if absent
	firstSeen       int
	data            map[string]cell
}

type cell struct {
	value    float64
	decimals int
	filing   int // index of the contributing view
}

// Stitch merges the views (newest first) into one statement. Nil views are
// skipped; views whose statement is empty contribute nothing.
func (s *Stitcher) Stitch(views []*xbrl.XBRL, st xbrl.StatementType, opts Options) *StitchedStatement {
	opts = opts.withDefaults()
	key := cacheKey{st, opts.MaxPeriods, opts.Standardize, opts.UseOptimalPeriods, opts.IncludeDimensions}
	if cached, ok := s.cache[key]; ok {
		return cached
	}

	periods := s.selectPeriods(views, st, opts)
	periodKeys := map[string]bool{}
	for _, p := range periods {
		periodKeys[p.Key] = true
	}

	entries := s.integrate(views, st, opts, periodKeys)
	mergeByStandardConcept(entries)

	ordered := liveEntries(entries)
	positions := computePositions(ordered, st, views)
	rows := flattenTree(buildPresentationTree(ordered, positions))

	out := &StitchedStatement{Type: st, FiscalYearEndMonth: fiscalYearEnd(views)}
	for _, p := range periods {
		out.Periods = append(out.Periods, StitchedPeriod{Key: p.Key, Label: p.Label})
	}
	for _, r := range rows {
		row := &StitchedRow{
			Label:           r.entry.label,
			Level:           r.depth,
			IsAbstract:      r.entry.isAbstract,
			IsTotal:         r.entry.isTotal,
			Concept:         r.entry.concept,
			StandardConcept: r.entry.standardConcept,
			Values:          map[string]float64{},
			Decimals:        map[string]int{},
			Filings:         map[string]int{},
		}
		for pk, c := range r.entry.data {
			row.Values[pk] = c.value
			row.Decimals[pk] = c.decimals
			row.Filings[pk] = c.filing
			row.HasValues = true
		}
		out.Rows = append(out.Rows, row)
	}

	s.cache[key] = out
	return out
}

// fiscalYearEnd reads the fiscal year end month off the newest view.
func fiscalYearEnd(views []*xbrl.XBRL) int {
	for _, v := range views {
		if v == nil {
			continue
		}
		if m := v.EntityInfo.FiscalYearEndMonth; m >= 1 && m <= 12 {
			return m
		}
		break
	}
	return 12
}

func (s *Stitcher) selectPeriods(views []*xbrl.XBRL, st xbrl.StatementType, opts Options) []SelectedPeriod {
	if opts.UseOptimalPeriods {
		return SelectOptimalPeriods(views, st, opts.MaxPeriods)
	}
	// Every period from every view, deduplicated, newest first.
	var all []SelectedPeriod
	seen := map[string]bool{}
	for i, v := range views {
		if v == nil {
			continue
		}
		for _, p := range v.Periods() {
			if st == xbrl.BalanceSheet && p.Type != xbrl.PeriodInstant {
				continue
			}
			if st != xbrl.BalanceSheet && p.Type != xbrl.PeriodDuration {
				continue
			}
			sp := enrich(i, p, v.EntityInfo)
			if seen[sp.Key] {
				continue
			}
			seen[sp.Key] = true
			all = append(all, sp)
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Period.EndDate().After(all[j].Period.EndDate())
	})
	if len(all) > opts.MaxPeriods {
		all = all[:opts.MaxPeriods]
	}
	return all
}

// dimensionWrapperMarkers identify presentation scaffolding rows, not data.
var dimensionWrapperMarkers = []string{"[Axis]", "[Domain]", "[Member]", "[Line Items]", "[Table]", "[Abstract]"}

func isDimensionWrapper(label string) bool {
	for _, m := range dimensionWrapperMarkers {
		if strings.Contains(label, m) {
			return true
		}
	}
	return false
}

// integrate walks views newest-first and accumulates per-concept data for
// the selected periods. The concept is the identity key across filings; the
// display label follows the most recent filing that contributed data.
func (s *Stitcher) integrate(views []*xbrl.XBRL, st xbrl.StatementType, opts Options, periodKeys map[string]bool) map[string]*conceptEntry {
	entries := map[string]*conceptEntry{}
	refSeen := false
	order := 0

	for i, v := range views {
		if v == nil {
			continue
		}
		stmt := v.Statement(st)
		if stmt == nil {
			continue
		}
		items := stmt.Data
		if opts.IncludeDimensions {
			items = append(append([]*xbrl.LineItem{}, items...), dimensionItems(v, st)...)
		}
		isReference := !refSeen
		refSeen = true

		for itemIdx, li := range items {
			if isDimensionWrapper(li.Label) {
				continue
			}
			if li.IsAbstract && len(li.Values) == 0 {
				continue
			}

			label := li.Label
			std := li.StandardConcept
			if opts.Standardize {
				if mapping, ok := s.mapper.Map(st, li.Concept); ok {
					label = mapping.Label
					std = mapping.StandardConcept
				}
			}

			newest := newestPeriodEnd(li, periodKeys)

			entry, ok := entries[li.Concept]
			if !ok {
				entry = &conceptEntry{
					concept:    li.Concept,
					label:      label,
					level:      li.Level,
					isAbstract: li.IsAbstract,
					isTotal:    li.IsTotal,
					refOrder:   -1,
					firstSeen:  order,
					data:       map[string]cell{},
				}
				entries[li.Concept] = entry
				order++
			} else if label != entry.label && newest.After(entry.newestEnd) {
				// A filing with strictly newer data wins the label.
				entry.label = label
			}
			if isReference && entry.refOrder < 0 {
				entry.refOrder = itemIdx
			}
			if std != "" {
				entry.standardConcept = std
			}

			for pk := range periodKeys {
				val, ok := li.Values[pk]
				if !ok {
					continue
				}
				if _, taken := entry.data[pk]; taken {
					continue
				}
				entry.data[pk] = cell{value: val, decimals: li.Decimals[pk], filing: i}
				if end := periodKeyEnd(pk); end.After(entry.newestEnd) {
					entry.newestEnd = end
				}
			}
		}
	}
	return entries
}

// dimensionItems synthesizes line items for dimensioned facts, keyed as
// "concept[axis=member]".
func dimensionItems(v *xbrl.XBRL, st xbrl.StatementType) []*xbrl.LineItem {
	byKey := map[string]*xbrl.LineItem{}
	var keys []string
	for _, f := range v.Facts {
		if f.StatementType != st || f.NumericValue == nil || len(f.Dimensions) == 0 {
			continue
		}
		var dims []string
		for axis, member := range f.Dimensions {
			dims = append(dims, axis+"="+member)
		}
		sort.Strings(dims)
		key := f.Concept + "[" + strings.Join(dims, ",") + "]"
		li, ok := byKey[key]
		if !ok {
			li = &xbrl.LineItem{
				Concept:  key,
				Label:    f.Label + " (" + strings.Join(dims, ", ") + ")",
				Values:   map[string]float64{},
				Decimals: map[string]int{},
			}
			byKey[key] = li
			keys = append(keys, key)
		}
		pk := f.Period().Key()
		if _, dup := li.Values[pk]; !dup {
			li.Values[pk] = *f.NumericValue
			li.Decimals[pk] = f.Decimals
		}
	}
	sort.Strings(keys)
	out := make([]*xbrl.LineItem, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	return out
}

func newestPeriodEnd(li *xbrl.LineItem, periodKeys map[string]bool) time.Time {
	var newest time.Time
	for pk := range li.Values {
		if !periodKeys[pk] {
			continue
		}
		if end := periodKeyEnd(pk); end.After(newest) {
			newest = end
		}
	}
	return newest
}

// periodKeyEnd parses the end date out of a canonical period key.
func periodKeyEnd(key string) time.Time {
	parts := strings.Split(key, "_")
	if len(parts) < 2 {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", parts[len(parts)-1])
	if err != nil {
		return time.Time{}
	}
	return t
}

// mergeByStandardConcept unions entries that share a standard concept and
// have disjoint period sets; overlapping entries stay separate rows.
func mergeByStandardConcept(entries map[string]*conceptEntry) {
	byStd := map[string][]*conceptEntry{}
	for _, e := range entries {
		if e.standardConcept != "" {
			byStd[e.standardConcept] = append(byStd[e.standardConcept], e)
		}
	}
	for std, group := range byStd {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].newestEnd.Equal(group[j].newestEnd) {
				return group[i].newestEnd.After(group[j].newestEnd)
			}
			return group[i].firstSeen < group[j].firstSeen
		})
		target := group[0]
		for _, other := range group[1:] {
			if overlaps(target.data, other.data) {
				continue
			}
			for pk, c := range other.data {
				target.data[pk] = c
			}
			if target.refOrder < 0 {
				target.refOrder = other.refOrder
			}
			delete(entries, other.concept)
			zap.L().Debug("stitch: merged concepts by standard concept",
				zap.String("standard", std),
				zap.String("kept", target.concept),
				zap.String("dropped", other.concept))
		}
	}
}

func overlaps(a, b map[string]cell) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func liveEntries(entries map[string]*conceptEntry) []*conceptEntry {
	out := make([]*conceptEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	// Deterministic base order regardless of map iteration.
	sort.Slice(out, func(i, j int) bool { return out[i].firstSeen < out[j].firstSeen })
	return out
}

// computePositions runs the four ordering strategies and returns a position
// per concept.
func computePositions(entries []*conceptEntry, st xbrl.StatementType, views []*xbrl.XBRL) map[string]float64 {
	template := templateFor(st)
	positions := map[string]float64{}
	templateMatched := map[string]bool{}

	// 1. Template matching (concept first, fuzzy label fallback).
	for _, e := range entries {
		if pos, ok := templatePosition(template, e.concept, e.label); ok {
			positions[e.concept] = float64(pos)
			templateMatched[e.concept] = true
		}
	}

	// 2. Reference ordering: unmatched concepts inherit a slot just after
	// the nearest template-positioned concept preceding them in the newest
	// filing's presentation order.
	var refOrdered []*conceptEntry
	for _, e := range entries {
		if e.refOrder >= 0 {
			refOrdered = append(refOrdered, e)
		}
	}
	sort.Slice(refOrdered, func(i, j int) bool { return refOrdered[i].refOrder < refOrdered[j].refOrder })
	anchor, offset := -1.0, 0
	for _, e := range refOrdered {
		if templateMatched[e.concept] {
			anchor, offset = positions[e.concept], 0
			continue
		}
		if _, done := positions[e.concept]; done {
			continue
		}
		offset++
		positions[e.concept] = anchor + float64(offset)*0.01
	}

	// 3. Semantic positioning for everything else.
	for _, e := range entries {
		if _, done := positions[e.concept]; done {
			continue
		}
		if base, ok := semanticSection(st, e.concept, e.label); ok {
			positions[e.concept] = float64(base) + 99
			continue
		}
		if parent := wordSubsetParent(e, entries, positions); parent != "" {
			positions[e.concept] = positions[parent] + 0.5
			continue
		}
		if near := mostSimilar(e, entries, positions); near != "" {
			positions[e.concept] = positions[near] + 0.5
			continue
		}
		positions[e.concept] = 999
	}

	consolidateSections(entries, template, positions, templateMatched)
	return positions
}

func wordSubsetParent(e *conceptEntry, entries []*conceptEntry, positions map[string]float64) string {
	childWords := wordSet(e.label)
	for _, other := range entries {
		if other.concept == e.concept {
			continue
		}
		if _, placed := positions[other.concept]; !placed {
			continue
		}
		if isSubset(wordSet(other.label), childWords) {
			return other.concept
		}
	}
	return ""
}

func mostSimilar(e *conceptEntry, entries []*conceptEntry, positions map[string]float64) string {
	best, bestScore := "", 0.5
	for _, other := range entries {
		if other.concept == e.concept {
			continue
		}
		if _, placed := positions[other.concept]; !placed {
			continue
		}
		if score := similarity(e.label, other.label); score >= bestScore {
			best, bestScore = other.concept, score
		}
	}
	return best
}

// consolidateSections keeps each template section's concepts contiguous at
// the section base; per_share is pinned so nothing can fragment it.
func consolidateSections(entries []*conceptEntry, template []templateSection, positions map[string]float64, templateMatched map[string]bool) {
	for _, sec := range template {
		var members []*conceptEntry
		for _, e := range entries {
			if !templateMatched[e.concept] {
				continue
			}
			pos := positions[e.concept]
			if pos >= float64(sec.base) && pos < float64(sec.base+100) {
				members = append(members, e)
			}
		}
		if len(members) == 0 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return positions[members[i].concept] < positions[members[j].concept]
		})
		base := sec.base
		if sec.name == "per_share" {
			base = perShareBase
		}
		for i, e := range members {
			positions[e.concept] = float64(base + i)
		}

		// Push intruders past the now-contiguous block.
		hi := float64(base + len(members) - 1)
		for _, e := range entries {
			if templateMatched[e.concept] {
				continue
			}
			if pos := positions[e.concept]; pos > float64(base) && pos <= hi {
				positions[e.concept] = hi + 0.5
			}
		}
	}

	// Per-share-looking rows that template matching missed join the pinned
	// block rather than floating elsewhere.
	for _, e := range entries {
		if templateMatched[e.concept] {
			continue
		}
		if looksPerShare(e.label) && positions[e.concept] < float64(perShareBase) {
			positions[e.concept] = float64(perShareBase) + 90
		}
	}
}

// String renders a compact text view of the statement, columns newest first.
func (st *StitchedStatement) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d periods, %d rows)\n", st.Type, len(st.Periods), len(st.Rows))
	for _, r := range st.Rows {
		fmt.Fprintf(&b, "%s%s", strings.Repeat("  ", r.Level), r.Label)
		for _, p := range st.Periods {
			if v, ok := r.Values[p.Key]; ok {
				fmt.Fprintf(&b, "\t%.2f", v)
			} else {
				b.WriteString("\t-")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
