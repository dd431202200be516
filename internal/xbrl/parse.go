package xbrl

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FilingInfo stamps every parsed fact with its provenance.
type FilingInfo struct {
	Accession  string
	FormType   string
	FilingDate time.Time
}

// XBRL is the parsed view of one instance document.
type XBRL struct {
	EntityInfo EntityInfo
	Facts      []*Fact

	statements map[StatementType]*Statement
}

type instanceContext struct {
	id         string
	entity     string
	period     Period
	hasPeriod  bool
	dimensions map[string]string
}

type instanceUnit struct {
	id      string
	measure string
}

type rawFact struct {
	concept    string
	taxonomy   string
	contextRef string
	unitRef    string
	decimals   string
	value      string
	order      int
}

// namespaces whose elements are structure, not facts.
var structuralNS = map[string]bool{
	"http://www.xbrl.org/2003/instance":       true,
	"http://www.xbrl.org/2003/linkbase":       true,
	"http://www.w3.org/1999/xlink":            true,
	"http://www.w3.org/2001/XMLSchema-instance": true,
	"http://xbrl.org/2006/xbrldi":             true,
}

// Parse decodes an XBRL instance document into facts and entity info.
func Parse(data []byte, info FilingInfo) (*XBRL, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	contexts := map[string]*instanceContext{}
	units := map[string]*instanceUnit{}
	var raws []*rawFact
	nsPrefix := map[string]string{}
	order := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "xbrl: decode instance")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		for _, attr := range start.Attr {
			if attr.Name.Space == "xmlns" {
				nsPrefix[attr.Value] = attr.Name.Local
			}
		}

		switch {
		case start.Name.Local == "context":
			ctx, err := decodeContext(dec, start)
			if err != nil {
				zap.L().Debug("xbrl: skipping unreadable context", zap.Error(err))
				continue
			}
			contexts[ctx.id] = ctx
		case start.Name.Local == "unit":
			u, err := decodeUnit(dec, start)
			if err != nil {
				continue
			}
			units[u.id] = u
		case structuralNS[start.Name.Space]:
			continue
		default:
			contextRef := attrValue(start, "contextRef")
			if contextRef == "" {
				continue
			}
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				zap.L().Debug("xbrl: skipping unreadable fact",
					zap.String("concept", start.Name.Local), zap.Error(err))
				continue
			}
			raws = append(raws, &rawFact{
				concept:    start.Name.Local,
				taxonomy:   prefixFor(start.Name.Space, nsPrefix),
				contextRef: contextRef,
				unitRef:    attrValue(start, "unitRef"),
				decimals:   attrValue(start, "decimals"),
				value:      strings.TrimSpace(text),
				order:      order,
			})
			order++
		}
	}

	x := &XBRL{}
	for _, r := range raws {
		ctx, ok := contexts[r.contextRef]
		if !ok || !ctx.hasPeriod {
			continue
		}
		f := &Fact{
			Concept:    r.taxonomy + ":" + r.concept,
			Taxonomy:   r.taxonomy,
			Label:      humanizeLabel(r.concept),
			Value:      r.value,
			Decimals:   parseDecimals(r.decimals),
			PeriodType: ctx.period.Type,
			PeriodEnd:  ctx.period.EndDate(),
			FilingDate: info.FilingDate,
			FormType:   info.FormType,
			Accession:  info.Accession,
			Dimensions: ctx.dimensions,
		}
		if ctx.period.Type == PeriodDuration {
			f.PeriodStart = ctx.period.Start
		}
		if u, ok := units[r.unitRef]; ok {
			f.Unit = u.measure
		}
		if v, err := parseNumeric(r.value); err == nil {
			f.NumericValue = &v
		}
		x.Facts = append(x.Facts, f)
	}

	x.EntityInfo = extractEntityInfo(x.Facts, info)
	classifyFiscalPeriods(x.Facts, x.EntityInfo)
	classifyStatements(x.Facts)
	return x, nil
}

func decodeContext(dec *xml.Decoder, start xml.StartElement) (*instanceContext, error) {
	var raw struct {
		Entity struct {
			Identifier string `xml:"identifier"`
			Segment    struct {
				Members []struct {
					Dimension string `xml:"dimension,attr"`
					Value     string `xml:",chardata"`
				} `xml:"explicitMember"`
			} `xml:"segment"`
		} `xml:"entity"`
		Period struct {
			Instant   string `xml:"instant"`
			StartDate string `xml:"startDate"`
			EndDate   string `xml:"endDate"`
		} `xml:"period"`
	}
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, err
	}

	ctx := &instanceContext{
		id:     attrValue(start, "id"),
		entity: strings.TrimSpace(raw.Entity.Identifier),
	}
	for _, m := range raw.Entity.Segment.Members {
		if ctx.dimensions == nil {
			ctx.dimensions = map[string]string{}
		}
		ctx.dimensions[m.Dimension] = strings.TrimSpace(m.Value)
	}

	if raw.Period.Instant != "" {
		t, err := time.Parse("2006-01-02", strings.TrimSpace(raw.Period.Instant))
		if err != nil {
			return nil, err
		}
		ctx.period = Period{Type: PeriodInstant, Instant: t}
		ctx.hasPeriod = true
	} else if raw.Period.StartDate != "" && raw.Period.EndDate != "" {
		s, err := time.Parse("2006-01-02", strings.TrimSpace(raw.Period.StartDate))
		if err != nil {
			return nil, err
		}
		e, err := time.Parse("2006-01-02", strings.TrimSpace(raw.Period.EndDate))
		if err != nil {
			return nil, err
		}
		ctx.period = Period{Type: PeriodDuration, Start: s, End: e}
		ctx.hasPeriod = true
	}
	return ctx, nil
}

func decodeUnit(dec *xml.Decoder, start xml.StartElement) (*instanceUnit, error) {
	var raw struct {
		Measure string `xml:"measure"`
		Divide  struct {
			Numerator struct {
				Measure string `xml:"measure"`
			} `xml:"unitNumerator"`
			Denominator struct {
				Measure string `xml:"measure"`
			} `xml:"unitDenominator"`
		} `xml:"divide"`
	}
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, err
	}
	u := &instanceUnit{id: attrValue(start, "id")}
	if raw.Measure != "" {
		u.measure = stripMeasurePrefix(raw.Measure)
	} else if raw.Divide.Numerator.Measure != "" {
		u.measure = stripMeasurePrefix(raw.Divide.Numerator.Measure) + "/" +
			stripMeasurePrefix(raw.Divide.Denominator.Measure)
	}
	return u, nil
}

func stripMeasurePrefix(measure string) string {
	measure = strings.TrimSpace(measure)
	if i := strings.LastIndex(measure, ":"); i >= 0 {
		return measure[i+1:]
	}
	return measure
}

func attrValue(start xml.StartElement, name string) string {
	for _, attr := range start.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}

// prefixFor resolves a namespace URI to its declared prefix, falling back to
// well-known taxonomy tokens found in the URI itself.
func prefixFor(uri string, declared map[string]string) string {
	if p, ok := declared[uri]; ok && p != "" {
		return p
	}
	for _, known := range []string{"us-gaap", "ifrs-full", "dei", "srt", "country", "currency", "invest", "stpr", "exch"} {
		if strings.Contains(uri, "/"+known+"/") || strings.HasSuffix(uri, "/"+known) {
			return known
		}
	}
	return "custom"
}

func parseDecimals(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "INF") {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func parseNumeric(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, eris.New("xbrl: empty value")
	}
	return strconv.ParseFloat(s, 64)
}

// humanizeLabel turns a CamelCase concept local name into a display label.
func humanizeLabel(local string) string {
	var b strings.Builder
	for i, r := range local {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(local[i-1])
			if prev < 'A' || prev > 'Z' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
