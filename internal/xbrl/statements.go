package xbrl

import (
	"sort"
	"strings"
)

// coreStatementConcepts pins well-known us-gaap concepts to their statement.
// Keyword inference handles the long tail.
var coreStatementConcepts = map[string]StatementType{
	"Revenues":                                     IncomeStatement,
	"RevenueFromContractWithCustomerExcludingAssessedTax": IncomeStatement,
	"RevenueFromContractWithCustomerIncludingAssessedTax": IncomeStatement,
	"SalesRevenueNet":                              IncomeStatement,
	"CostOfRevenue":                                IncomeStatement,
	"CostOfGoodsAndServicesSold":                   IncomeStatement,
	"GrossProfit":                                  IncomeStatement,
	"OperatingExpenses":                            IncomeStatement,
	"ResearchAndDevelopmentExpense":                IncomeStatement,
	"SellingGeneralAndAdministrativeExpense":       IncomeStatement,
	"OperatingIncomeLoss":                          IncomeStatement,
	"IncomeTaxExpenseBenefit":                      IncomeStatement,
	"NetIncomeLoss":                                IncomeStatement,
	"ProfitLoss":                                   IncomeStatement,
	"EarningsPerShareBasic":                        IncomeStatement,
	"EarningsPerShareDiluted":                      IncomeStatement,
	"WeightedAverageNumberOfSharesOutstandingBasic":            IncomeStatement,
	"WeightedAverageNumberOfDilutedSharesOutstanding":          IncomeStatement,
	"ComprehensiveIncomeNetOfTax":                  ComprehensiveIncome,
	"OtherComprehensiveIncomeLossNetOfTax":         ComprehensiveIncome,

	"Assets":                                  BalanceSheet,
	"AssetsCurrent":                           BalanceSheet,
	"CashAndCashEquivalentsAtCarryingValue":   BalanceSheet,
	"AccountsReceivableNetCurrent":            BalanceSheet,
	"InventoryNet":                            BalanceSheet,
	"PropertyPlantAndEquipmentNet":            BalanceSheet,
	"Goodwill":                                BalanceSheet,
	"Liabilities":                             BalanceSheet,
	"LiabilitiesCurrent":                      BalanceSheet,
	"AccountsPayableCurrent":                  BalanceSheet,
	"LongTermDebtNoncurrent":                  BalanceSheet,
	"StockholdersEquity":                      BalanceSheet,
	"LiabilitiesAndStockholdersEquity":        BalanceSheet,
	"RetainedEarningsAccumulatedDeficit":      BalanceSheet,
	"CommonStockSharesOutstanding":            BalanceSheet,

	"NetCashProvidedByUsedInOperatingActivities": CashFlowStatement,
	"NetCashProvidedByUsedInInvestingActivities": CashFlowStatement,
	"NetCashProvidedByUsedInFinancingActivities": CashFlowStatement,
	"DepreciationDepletionAndAmortization":       CashFlowStatement,
	"PaymentsToAcquirePropertyPlantAndEquipment": CashFlowStatement,
	"PaymentsOfDividends":                        CashFlowStatement,
	"CashCashEquivalentsRestrictedCashAndRestrictedCashEquivalentsPeriodIncreaseDecreaseIncludingExchangeRateEffect": CashFlowStatement,

	"StockIssuedDuringPeriodValueNewIssues": StatementOfEquity,
	"StockRepurchasedDuringPeriodValue":     StatementOfEquity,
	"DividendsCommonStockCash":              StatementOfEquity,
}

// totalConcepts marks line items rendered as statement totals.
var totalConcepts = map[string]bool{
	"Revenues":                         true,
	"GrossProfit":                      true,
	"OperatingIncomeLoss":              true,
	"NetIncomeLoss":                    true,
	"ProfitLoss":                       true,
	"Assets":                           true,
	"AssetsCurrent":                    true,
	"Liabilities":                      true,
	"LiabilitiesCurrent":               true,
	"StockholdersEquity":               true,
	"LiabilitiesAndStockholdersEquity": true,
	"NetCashProvidedByUsedInOperatingActivities": true,
	"NetCashProvidedByUsedInInvestingActivities": true,
	"NetCashProvidedByUsedInFinancingActivities": true,
}

// IsTotalConcept reports whether a concept is rendered as a statement total.
func IsTotalConcept(concept string) bool {
	return totalConcepts[localName(concept)]
}

// classifyStatements assigns a statement type to every fact that looks like
// a financial-statement line item. Facts that match nothing stay untyped.
func classifyStatements(facts []*Fact) {
	for _, f := range facts {
		if f.Taxonomy == "dei" {
			continue
		}
		f.StatementType = statementTypeFor(f)
	}
}

func statementTypeFor(f *Fact) StatementType {
	local := localName(f.Concept)
	if st, ok := coreStatementConcepts[local]; ok {
		return st
	}

	switch {
	case strings.Contains(local, "CashProvidedByUsedIn"),
		strings.Contains(local, "CashFlow"),
		strings.HasPrefix(local, "PaymentsTo"),
		strings.HasPrefix(local, "PaymentsOf"),
		strings.HasPrefix(local, "ProceedsFrom"):
		return CashFlowStatement
	case strings.Contains(local, "ComprehensiveIncome"):
		return ComprehensiveIncome
	}

	if f.PeriodType == PeriodInstant {
		if f.NumericValue != nil {
			return BalanceSheet
		}
		return ""
	}

	switch {
	case strings.Contains(local, "Revenue"),
		strings.Contains(local, "CostOf"),
		strings.Contains(local, "Expense"),
		strings.Contains(local, "IncomeLoss"),
		strings.Contains(local, "EarningsPerShare"),
		strings.Contains(local, "WeightedAverageNumberOf"):
		return IncomeStatement
	case strings.Contains(local, "StockIssued"),
		strings.Contains(local, "StockRepurchased"),
		strings.Contains(local, "Dividends"):
		return StatementOfEquity
	}
	return ""
}

func localName(concept string) string {
	if i := strings.Index(concept, ":"); i >= 0 {
		return concept[i+1:]
	}
	return concept
}

// Statement returns the assembled statement of the given type, or nil when
// the filing tags no facts for it. Dimensioned facts are excluded; the
// statement carries only entity-level values.
func (x *XBRL) Statement(st StatementType) *Statement {
	if x.statements == nil {
		x.statements = map[StatementType]*Statement{}
	}
	if s, ok := x.statements[st]; ok {
		return s
	}
	s := buildStatement(st, x.Facts)
	x.statements[st] = s
	return s
}

func buildStatement(st StatementType, facts []*Fact) *Statement {
	s := &Statement{
		Type:    st,
		Periods: map[string]PeriodMeta{},
	}
	rows := map[string]*LineItem{}
	var rowOrder []string

	for _, f := range facts {
		if f.StatementType != st || f.NumericValue == nil || len(f.Dimensions) > 0 {
			continue
		}
		p := f.Period()
		key := p.Key()
		if _, ok := s.Periods[key]; !ok {
			s.Periods[key] = PeriodMeta{Period: p, Label: periodLabel(p)}
			s.PeriodKeys = append(s.PeriodKeys, key)
		}
		li, ok := rows[f.Concept]
		if !ok {
			li = &LineItem{
				Concept:  f.Concept,
				Label:    f.Label,
				IsTotal:  totalConcepts[localName(f.Concept)],
				Values:   map[string]float64{},
				Decimals: map[string]int{},
			}
			rows[f.Concept] = li
			rowOrder = append(rowOrder, f.Concept)
		}
		if _, dup := li.Values[key]; !dup {
			li.Values[key] = *f.NumericValue
			li.Decimals[key] = f.Decimals
		}
	}

	// Columns newest first.
	sort.SliceStable(s.PeriodKeys, func(i, j int) bool {
		return s.Periods[s.PeriodKeys[i]].Period.EndDate().After(s.Periods[s.PeriodKeys[j]].Period.EndDate())
	})
	for _, concept := range rowOrder {
		s.Data = append(s.Data, rows[concept])
	}
	if len(s.Data) == 0 {
		return nil
	}
	return s
}

func periodLabel(p Period) string {
	if p.Type == PeriodInstant {
		return p.Instant.Format("Jan 2, 2006")
	}
	return p.Start.Format("Jan 2, 2006") + " - " + p.End.Format("Jan 2, 2006")
}
