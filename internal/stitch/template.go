package stitch

import (
	"strings"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

// templateSection is one block of the canonical statement layout: a base
// position and the concepts that belong there, in order.
type templateSection struct {
	name     string
	base     int
	concepts []string
}

const perShareBase = 950

var incomeTemplate = []templateSection{
	{"revenue", 0, []string{
		"us-gaap:Revenues",
		"us-gaap:RevenueFromContractWithCustomerExcludingAssessedTax",
		"us-gaap:RevenueFromContractWithCustomerIncludingAssessedTax",
		"us-gaap:SalesRevenueNet",
	}},
	{"cost", 100, []string{
		"us-gaap:CostOfRevenue",
		"us-gaap:CostOfGoodsAndServicesSold",
		"us-gaap:CostOfGoodsSold",
	}},
	{"gross_profit", 200, []string{
		"us-gaap:GrossProfit",
	}},
	{"operating_expenses", 300, []string{
		"us-gaap:ResearchAndDevelopmentExpense",
		"us-gaap:SellingGeneralAndAdministrativeExpense",
		"us-gaap:GeneralAndAdministrativeExpense",
		"us-gaap:SellingAndMarketingExpense",
		"us-gaap:OperatingExpenses",
	}},
	{"operating_income", 400, []string{
		"us-gaap:OperatingIncomeLoss",
	}},
	{"non_operating", 500, []string{
		"us-gaap:InterestExpense",
		"us-gaap:InvestmentIncomeInterest",
		"us-gaap:OtherNonoperatingIncomeExpense",
		"us-gaap:NonoperatingIncomeExpense",
	}},
	{"pretax_income", 600, []string{
		"us-gaap:IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest",
		"us-gaap:IncomeLossFromContinuingOperationsBeforeIncomeTaxesMinorityInterestAndIncomeLossFromEquityMethodInvestments",
	}},
	{"tax", 700, []string{
		"us-gaap:IncomeTaxExpenseBenefit",
	}},
	{"net_income", 800, []string{
		"us-gaap:NetIncomeLoss",
		"us-gaap:ProfitLoss",
	}},
	{"per_share", 900, []string{
		"us-gaap:EarningsPerShareBasic",
		"us-gaap:EarningsPerShareDiluted",
		"us-gaap:WeightedAverageNumberOfSharesOutstandingBasic",
		"us-gaap:WeightedAverageNumberOfDilutedSharesOutstanding",
	}},
}

var balanceTemplate = []templateSection{
	{"current_assets", 0, []string{
		"us-gaap:CashAndCashEquivalentsAtCarryingValue",
		"us-gaap:ShortTermInvestments",
		"us-gaap:AccountsReceivableNetCurrent",
		"us-gaap:InventoryNet",
		"us-gaap:AssetsCurrent",
	}},
	{"noncurrent_assets", 100, []string{
		"us-gaap:PropertyPlantAndEquipmentNet",
		"us-gaap:Goodwill",
		"us-gaap:IntangibleAssetsNetExcludingGoodwill",
		"us-gaap:Assets",
	}},
	{"current_liabilities", 200, []string{
		"us-gaap:AccountsPayableCurrent",
		"us-gaap:AccruedLiabilitiesCurrent",
		"us-gaap:LiabilitiesCurrent",
	}},
	{"noncurrent_liabilities", 300, []string{
		"us-gaap:LongTermDebtNoncurrent",
		"us-gaap:Liabilities",
	}},
	{"equity", 400, []string{
		"us-gaap:CommonStockValue",
		"us-gaap:AdditionalPaidInCapital",
		"us-gaap:RetainedEarningsAccumulatedDeficit",
		"us-gaap:StockholdersEquity",
		"us-gaap:LiabilitiesAndStockholdersEquity",
	}},
}

var cashFlowTemplate = []templateSection{
	{"operating", 0, []string{
		"us-gaap:NetIncomeLoss",
		"us-gaap:DepreciationDepletionAndAmortization",
		"us-gaap:ShareBasedCompensation",
		"us-gaap:NetCashProvidedByUsedInOperatingActivities",
	}},
	{"investing", 100, []string{
		"us-gaap:PaymentsToAcquirePropertyPlantAndEquipment",
		"us-gaap:PaymentsToAcquireBusinessesNetOfCashAcquired",
		"us-gaap:NetCashProvidedByUsedInInvestingActivities",
	}},
	{"financing", 200, []string{
		"us-gaap:PaymentsOfDividends",
		"us-gaap:PaymentsForRepurchaseOfCommonStock",
		"us-gaap:ProceedsFromIssuanceOfLongTermDebt",
		"us-gaap:NetCashProvidedByUsedInFinancingActivities",
	}},
}

func templateFor(st xbrl.StatementType) []templateSection {
	switch st {
	case xbrl.IncomeStatement, xbrl.ComprehensiveIncome:
		return incomeTemplate
	case xbrl.BalanceSheet:
		return balanceTemplate
	case xbrl.CashFlowStatement:
		return cashFlowTemplate
	}
	return nil
}

// templatePosition matches a concept against the template, falling back to
// fuzzy label matching when no concept matches. Returns the assigned
// position and true on a match.
func templatePosition(template []templateSection, concept, label string) (int, bool) {
	norm := normalizeConcept(concept)
	for _, sec := range template {
		for i, c := range sec.concepts {
			if normalizeConcept(c) == norm {
				return sec.base + i, true
			}
		}
	}
	if label == "" {
		return 0, false
	}
	for _, sec := range template {
		for i, c := range sec.concepts {
			if similarity(label, splitCamel(localPart(c))) >= 0.7 {
				return sec.base + i, true
			}
		}
	}
	return 0, false
}

// semanticSection classifies a concept into a template section by keyword,
// returning the section base and true. per_share always lands at its pinned
// base so later placement cannot fragment it.
func semanticSection(st xbrl.StatementType, concept, label string) (int, bool) {
	text := strings.ToLower(localPart(concept) + " " + label)
	if st != xbrl.IncomeStatement && st != xbrl.ComprehensiveIncome {
		return 0, false
	}
	switch {
	case strings.Contains(text, "per share") || strings.Contains(text, "pershare") ||
		strings.Contains(text, "weighted average"):
		return perShareBase, true
	case strings.Contains(text, "revenue") && !strings.Contains(text, "cost"):
		return 0, true
	case strings.Contains(text, "cost of"):
		return 100, true
	case strings.Contains(text, "gross profit"):
		return 200, true
	case strings.Contains(text, "operating income"):
		return 400, true
	case strings.Contains(text, "interest") || strings.Contains(text, "nonoperating"):
		return 500, true
	case strings.Contains(text, "tax"):
		return 700, true
	case strings.Contains(text, "net income") || strings.Contains(text, "net loss"):
		return 800, true
	case strings.Contains(text, "expense"):
		return 300, true
	}
	return 0, false
}

func localPart(concept string) string {
	if i := strings.Index(concept, ":"); i >= 0 {
		return concept[i+1:]
	}
	return concept
}

func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev < 'A' || prev > 'Z' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// similarity is a token-overlap ratio over lowercased words: twice the
// intersection size over the total token count. Deterministic and symmetric.
func similarity(a, b string) float64 {
	ta := strings.Fields(strings.ToLower(a))
	tb := strings.Fields(strings.ToLower(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	set := map[string]int{}
	for _, w := range ta {
		set[w]++
	}
	matched := 0
	for _, w := range tb {
		if set[w] > 0 {
			set[w]--
			matched++
		}
	}
	return 2 * float64(matched) / float64(len(ta)+len(tb))
}

// wordSet returns the lowercased word set of a label.
func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(s)) {
		out[w] = true
	}
	return out
}

// isSubset reports whether every word of a appears in b.
func isSubset(a, b map[string]bool) bool {
	if len(a) == 0 {
		return false
	}
	for w := range a {
		if !b[w] {
			return false
		}
	}
	return true
}

// looksPerShare flags labels for EPS and share-count rows.
func looksPerShare(label string) bool {
	l := strings.ToLower(label)
	return strings.Contains(l, "per share") || strings.Contains(l, "earnings per") ||
		strings.Contains(l, "shares outstanding") || strings.Contains(l, "weighted average")
}
