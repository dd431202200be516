package edgar

import (
	"fmt"
	"strings"

	"github.com/sells-group/edgar-core/internal/stitch"
	"github.com/sells-group/edgar-core/internal/ttm"
	"github.com/sells-group/edgar-core/internal/xbrl"
)

// Row is one rendered line item.
type Row struct {
	Label      string
	Concept    string
	Depth      int
	IsAbstract bool
	IsTotal    bool
	Values     map[string]float64
}

// Statement is the render-ready form shared by stitched and TTM statements:
// period columns newest first, rows in presentation order.
type Statement struct {
	Type    xbrl.StatementType
	Entity  string
	Periods []string
	Rows    []Row
}

func fromStitched(s *stitch.StitchedStatement) *Statement {
	out := &Statement{Type: s.Type}
	keyToLabel := map[string]string{}
	for _, p := range s.Periods {
		out.Periods = append(out.Periods, p.Label)
		keyToLabel[p.Key] = p.Label
	}
	for _, r := range s.Rows {
		row := Row{
			Label:      r.Label,
			Concept:    r.Concept,
			Depth:      r.Level,
			IsAbstract: r.IsAbstract,
			IsTotal:    r.IsTotal,
			Values:     map[string]float64{},
		}
		for key, v := range r.Values {
			if label, ok := keyToLabel[key]; ok {
				row.Values[label] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func fromTTM(s *ttm.TTMStatement) *Statement {
	out := &Statement{
		Type:    s.StatementType,
		Entity:  s.CompanyName,
		Periods: append([]string(nil), s.Periods...),
	}
	for _, item := range s.Items {
		out.Rows = append(out.Rows, Row{
			Label:   item.Label,
			Concept: item.Concept,
			Depth:   item.Depth,
			IsTotal: item.IsTotal,
			Values:  item.Values,
		})
	}
	return out
}

// String renders the statement as a plain text table.
func (s *Statement) String() string {
	labelWidth := len("Line Item")
	for _, r := range s.Rows {
		if w := len(r.Label) + 2*r.Depth; w > labelWidth {
			labelWidth = w
		}
	}

	const colWidth = 18
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", labelWidth, "Line Item")
	for _, p := range s.Periods {
		fmt.Fprintf(&b, "  %*s", colWidth, p)
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", labelWidth+(colWidth+2)*len(s.Periods)))
	b.WriteByte('\n')

	for _, r := range s.Rows {
		fmt.Fprintf(&b, "%-*s", labelWidth, strings.Repeat("  ", r.Depth)+r.Label)
		for _, p := range s.Periods {
			if v, ok := r.Values[p]; ok {
				fmt.Fprintf(&b, "  %*s", colWidth, formatValue(v))
			} else {
				fmt.Fprintf(&b, "  %*s", colWidth, "")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func formatValue(v float64) string {
	switch {
	case v != float64(int64(v)):
		return fmt.Sprintf("%.2f", v)
	case v >= 1e6 || v <= -1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
