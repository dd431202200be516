package sgml

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// FilingHeader is the typed view of a submission header, common to both
// dialects.
type FilingHeader struct {
	Raw             string
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	PeriodOfReport  time.Time
	CIK             string

	Filers           []*Filer
	ReportingOwners  []*ReportingOwner
	Issuer           *Issuer
	SubjectCompanies []*SubjectCompany
}

// CompanyInformation identifies a company referenced by a header role.
type CompanyInformation struct {
	Name                 string
	CIK                  string
	SIC                  string
	IRSNumber            string
	StateOfIncorporation string
	FiscalYearEnd        string
}

// FilingInformation carries the per-role filing details.
type FilingInformation struct {
	Form       string
	FileNumber string
	SECAct     string
	FilmNumber string
}

// Address is a business or mailing address block.
type Address struct {
	Street1 string
	Street2 string
	City    string
	State   string
	Zip     string
	Phone   string
}

// FormerCompany records one entry of a company's former-name history.
type FormerCompany struct {
	Name        string
	DateChanged string
}

// Filer is a filing company role.
type Filer struct {
	Company         CompanyInformation
	Filing          FilingInformation
	BusinessAddress *Address
	MailingAddress  *Address
	FormerCompanies []FormerCompany
}

// ReportingOwner is an insider role on ownership filings.
type ReportingOwner struct {
	Name            string
	CIK             string
	Company         CompanyInformation
	Filing          FilingInformation
	BusinessAddress *Address
	MailingAddress  *Address
}

// Issuer is the issuer role on ownership filings.
type Issuer struct {
	Company         CompanyInformation
	BusinessAddress *Address
	MailingAddress  *Address
}

// SubjectCompany is the target-company role on tender and merger filings.
type SubjectCompany struct {
	Company         CompanyInformation
	Filing          FilingInformation
	BusinessAddress *Address
	MailingAddress  *Address
	FormerCompanies []FormerCompany
}

// AccessionNumberRe is the canonical accession number shape.
var AccessionNumberRe = regexp.MustCompile(`^\d{10}-\d{2}-\d{6}$`)

// validHeaderTagRe matches tags that belong to the SGML header vocabulary:
// uppercase ASCII with digits and hyphens, no namespace colon, no
// whitespace. Inline XBRL content that can trail a header never matches.
var validHeaderTagRe = regexp.MustCompile(`^[A-Z][A-Z0-9-]*$`)

// ParseHeader parses the raw SEC-DOCUMENT header text block into a typed
// FilingHeader.
func ParseHeader(text string) (*FilingHeader, error) {
	normalized := normalizeLegacyHeader(text)
	tree := parseHeaderTree(normalized)

	h := &FilingHeader{Raw: text}
	h.AccessionNumber = firstString(tree, "ACCESSION NUMBER", "ACCESSION-NUMBER")
	h.Form = firstString(tree, "CONFORMED SUBMISSION TYPE", "TYPE")
	h.CIK = firstString(tree, "CENTRAL INDEX KEY", "CIK")

	if v := firstString(tree, "FILED AS OF DATE", "FILING-DATE"); v != "" {
		if t, err := ParseDate(v); err == nil {
			h.FilingDate = t
		} else {
			zap.L().Debug("sgml: unparseable filing date", zap.String("value", v))
		}
	}
	if v := firstString(tree, "CONFORMED PERIOD OF REPORT", "PERIOD"); v != "" {
		if t, err := ParseDate(v); err == nil {
			h.PeriodOfReport = t
		}
	}

	for _, node := range childList(tree, "FILER") {
		h.Filers = append(h.Filers, filerFromTree(node))
	}
	for _, node := range childList(tree, "REPORTING-OWNER") {
		h.ReportingOwners = append(h.ReportingOwners, ownerFromTree(node))
	}
	for _, node := range childList(tree, "SUBJECT COMPANY", "SUBJECT-COMPANY") {
		h.SubjectCompanies = append(h.SubjectCompanies, subjectFromTree(node))
	}
	if nodes := childList(tree, "ISSUER"); len(nodes) > 0 {
		h.Issuer = issuerFromTree(nodes[0])
	}

	// Filer roles frequently carry the header-level fields when the top
	// level omits them.
	if h.CIK == "" && len(h.Filers) > 0 {
		h.CIK = h.Filers[0].Company.CIK
	}
	if h.Form == "" && len(h.Filers) > 0 {
		h.Form = h.Filers[0].Filing.Form
	}

	return h, nil
}

// HeaderFromValues assembles a typed FilingHeader from the SUBMISSION
// dialect tag tree.
func HeaderFromValues(values map[string]any) *FilingHeader {
	h := &FilingHeader{}
	h.AccessionNumber = stringField(values, "ACCESSION-NUMBER")
	h.Form = stringField(values, "TYPE")
	if v := stringField(values, "FILING-DATE"); v != "" {
		if t, err := ParseDate(v); err == nil {
			h.FilingDate = t
		}
	}
	if v := stringField(values, "PERIOD"); v != "" {
		if t, err := ParseDate(v); err == nil {
			h.PeriodOfReport = t
		}
	}

	for _, node := range valueList(values, "FILER") {
		h.Filers = append(h.Filers, filerFromValues(node))
	}
	for _, node := range valueList(values, "REPORTING-OWNER") {
		h.ReportingOwners = append(h.ReportingOwners, ownerFromValues(node))
	}
	for _, node := range valueList(values, "SUBJECT-COMPANY") {
		h.SubjectCompanies = append(h.SubjectCompanies, subjectFromValues(node))
	}
	if node, ok := values["ISSUER"].(map[string]any); ok {
		h.Issuer = issuerFromValues(node)
	}

	if len(h.Filers) > 0 {
		if h.CIK == "" {
			h.CIK = h.Filers[0].Company.CIK
		}
		if h.Form == "" {
			h.Form = h.Filers[0].Filing.Form
		}
	}
	return h
}

// ParseDate parses the date formats EDGAR headers use: YYYYMMDD and
// YYYY-MM-DD.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateError{Value: v}
}

// --- tabbed header-text tree ---

// headerNode is one section of the tab-indented header: direct fields plus
// nested subsections (repeats allowed).
type headerNode struct {
	fields   map[string]string
	children map[string][]*headerNode
}

func newHeaderNode() *headerNode {
	return &headerNode{fields: map[string]string{}, children: map[string][]*headerNode{}}
}

// parseHeaderTree parses the tab-indented key-value header text. A line
// "KEY:" with no value opens a subsection whose body is every following
// line at greater indent; "KEY:<tabs>VALUE" is a field of the current
// section. Malformed lines are skipped.
func parseHeaderTree(text string) *headerNode {
	root := newHeaderNode()
	type level struct {
		indent int
		node   *headerNode
	}
	stack := []level{{indent: -1, node: root}}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		indent := 0
		for indent < len(line) && line[indent] == '\t' {
			indent++
		}
		body := strings.TrimSpace(line)

		colon := strings.Index(body, ":")
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(body[:colon])
		value := strings.TrimSpace(body[colon+1:])
		if key == "" {
			continue
		}

		// Pop levels deeper than or equal to this line's indent.
		for len(stack) > 1 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}
		current := stack[len(stack)-1].node

		if value == "" {
			child := newHeaderNode()
			current.children[key] = append(current.children[key], child)
			stack = append(stack, level{indent: indent, node: child})
			continue
		}
		current.fields[key] = value
	}
	return root
}

// normalizeLegacyHeader rewrites pre-2000 "<TAG>value" and
// "<TAG>\ncontent\n</TAG>" header lines into the tabbed key-value form the
// tree parser consumes. Lines containing multiple '>' characters (inline
// XBRL trailing the header) are split on the first '>' only; tags failing
// the strict header-tag rules are skipped.
func normalizeLegacyHeader(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}

	var out strings.Builder
	depth := 0
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		trimmed := strings.TrimSpace(line)

		if !strings.HasPrefix(trimmed, "<") {
			out.WriteString(line)
			out.WriteByte('\n')
			continue
		}

		if strings.HasPrefix(trimmed, "</") {
			if depth > 0 {
				depth--
			}
			continue
		}

		gt := strings.Index(trimmed, ">")
		if gt < 0 {
			continue
		}
		tag := trimmed[1:gt]
		value := strings.TrimSpace(trimmed[gt+1:])
		if !validHeaderTagRe.MatchString(tag) {
			continue
		}

		out.WriteString(strings.Repeat("\t", depth))
		out.WriteString(tag)
		out.WriteString(":")
		if value == "" {
			depth++
		} else {
			out.WriteString("\t")
			out.WriteString(value)
		}
		out.WriteByte('\n')
	}
	return out.String()
}

// --- typed assembly from the header tree ---

func firstString(n *headerNode, keys ...string) string {
	for _, k := range keys {
		if v, ok := n.fields[k]; ok {
			return v
		}
	}
	return ""
}

func childList(n *headerNode, keys ...string) []*headerNode {
	for _, k := range keys {
		if nodes, ok := n.children[k]; ok {
			return nodes
		}
	}
	return nil
}

func firstChild(n *headerNode, keys ...string) *headerNode {
	if nodes := childList(n, keys...); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func companyFromTree(n *headerNode) CompanyInformation {
	if n == nil {
		return CompanyInformation{}
	}
	return CompanyInformation{
		Name:                 firstString(n, "COMPANY CONFORMED NAME", "CONFORMED-NAME"),
		CIK:                  firstString(n, "CENTRAL INDEX KEY", "CIK"),
		SIC:                  firstString(n, "STANDARD INDUSTRIAL CLASSIFICATION", "ASSIGNED-SIC"),
		IRSNumber:            firstString(n, "IRS NUMBER", "IRS-NUMBER"),
		StateOfIncorporation: firstString(n, "STATE OF INCORPORATION", "STATE-OF-INCORPORATION"),
		FiscalYearEnd:        firstString(n, "FISCAL YEAR END", "FISCAL-YEAR-END"),
	}
}

func filingInfoFromTree(n *headerNode) FilingInformation {
	if n == nil {
		return FilingInformation{}
	}
	return FilingInformation{
		Form:       firstString(n, "FORM TYPE", "FORM-TYPE"),
		FileNumber: firstString(n, "SEC FILE NUMBER", "FILE-NUMBER"),
		SECAct:     firstString(n, "SEC ACT", "ACT"),
		FilmNumber: firstString(n, "FILM NUMBER", "FILM-NUMBER"),
	}
}

func addressFromTree(n *headerNode) *Address {
	if n == nil {
		return nil
	}
	return &Address{
		Street1: firstString(n, "STREET 1", "STREET1"),
		Street2: firstString(n, "STREET 2", "STREET2"),
		City:    firstString(n, "CITY"),
		State:   firstString(n, "STATE"),
		Zip:     firstString(n, "ZIP"),
		Phone:   firstString(n, "BUSINESS PHONE", "PHONE"),
	}
}

func formerCompaniesFromTree(n *headerNode) []FormerCompany {
	var out []FormerCompany
	for _, fc := range childList(n, "FORMER COMPANY", "FORMER-COMPANY", "FORMER-NAME") {
		out = append(out, FormerCompany{
			Name:        firstString(fc, "FORMER CONFORMED NAME", "FORMER-CONFORMED-NAME"),
			DateChanged: firstString(fc, "DATE OF NAME CHANGE", "DATE-CHANGED"),
		})
	}
	return out
}

func filerFromTree(n *headerNode) *Filer {
	return &Filer{
		Company:         companyFromTree(firstChild(n, "COMPANY DATA", "COMPANY-DATA")),
		Filing:          filingInfoFromTree(firstChild(n, "FILING VALUES", "FILING-VALUES")),
		BusinessAddress: addressFromTree(firstChild(n, "BUSINESS ADDRESS", "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromTree(firstChild(n, "MAIL ADDRESS", "MAIL-ADDRESS")),
		FormerCompanies: formerCompaniesFromTree(n),
	}
}

func ownerFromTree(n *headerNode) *ReportingOwner {
	owner := &ReportingOwner{
		Company:         companyFromTree(firstChild(n, "COMPANY DATA", "COMPANY-DATA")),
		Filing:          filingInfoFromTree(firstChild(n, "FILING VALUES", "FILING-VALUES")),
		BusinessAddress: addressFromTree(firstChild(n, "BUSINESS ADDRESS", "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromTree(firstChild(n, "MAIL ADDRESS", "MAIL-ADDRESS")),
	}
	if data := firstChild(n, "OWNER DATA", "OWNER-DATA"); data != nil {
		owner.Name = firstString(data, "COMPANY CONFORMED NAME", "CONFORMED-NAME")
		owner.CIK = firstString(data, "CENTRAL INDEX KEY", "CIK")
	}
	return owner
}

func issuerFromTree(n *headerNode) *Issuer {
	return &Issuer{
		Company:         companyFromTree(firstChild(n, "COMPANY DATA", "COMPANY-DATA")),
		BusinessAddress: addressFromTree(firstChild(n, "BUSINESS ADDRESS", "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromTree(firstChild(n, "MAIL ADDRESS", "MAIL-ADDRESS")),
	}
}

func subjectFromTree(n *headerNode) *SubjectCompany {
	return &SubjectCompany{
		Company:         companyFromTree(firstChild(n, "COMPANY DATA", "COMPANY-DATA")),
		Filing:          filingInfoFromTree(firstChild(n, "FILING VALUES", "FILING-VALUES")),
		BusinessAddress: addressFromTree(firstChild(n, "BUSINESS ADDRESS", "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromTree(firstChild(n, "MAIL ADDRESS", "MAIL-ADDRESS")),
		FormerCompanies: formerCompaniesFromTree(n),
	}
}

// --- typed assembly from SUBMISSION values ---

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func valueList(m map[string]any, key string) []map[string]any {
	var out []map[string]any
	switch v := m[key].(type) {
	case []any:
		for _, item := range v {
			if node, ok := item.(map[string]any); ok {
				out = append(out, node)
			}
		}
	case map[string]any:
		out = append(out, v)
	}
	return out
}

func subMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key].(map[string]any); ok {
		return v
	}
	return nil
}

func companyFromValues(m map[string]any) CompanyInformation {
	if m == nil {
		return CompanyInformation{}
	}
	return CompanyInformation{
		Name:                 stringField(m, "CONFORMED-NAME"),
		CIK:                  stringField(m, "CIK"),
		SIC:                  stringField(m, "ASSIGNED-SIC"),
		IRSNumber:            stringField(m, "IRS-NUMBER"),
		StateOfIncorporation: stringField(m, "STATE-OF-INCORPORATION"),
		FiscalYearEnd:        stringField(m, "FISCAL-YEAR-END"),
	}
}

func filingInfoFromValues(m map[string]any) FilingInformation {
	if m == nil {
		return FilingInformation{}
	}
	return FilingInformation{
		Form:       stringField(m, "FORM-TYPE"),
		FileNumber: stringField(m, "FILE-NUMBER"),
		SECAct:     stringField(m, "ACT"),
		FilmNumber: stringField(m, "FILM-NUMBER"),
	}
}

func addressFromValues(m map[string]any) *Address {
	if m == nil {
		return nil
	}
	return &Address{
		Street1: stringField(m, "STREET1"),
		Street2: stringField(m, "STREET2"),
		City:    stringField(m, "CITY"),
		State:   stringField(m, "STATE"),
		Zip:     stringField(m, "ZIP"),
		Phone:   stringField(m, "PHONE"),
	}
}

func formerCompaniesFromValues(m map[string]any) []FormerCompany {
	var out []FormerCompany
	for _, key := range []string{"FORMER-COMPANY", "FORMER-NAME"} {
		for _, node := range valueList(m, key) {
			out = append(out, FormerCompany{
				Name:        stringField(node, "FORMER-CONFORMED-NAME"),
				DateChanged: stringField(node, "DATE-CHANGED"),
			})
		}
	}
	return out
}

func filerFromValues(m map[string]any) *Filer {
	return &Filer{
		Company:         companyFromValues(subMap(m, "COMPANY-DATA")),
		Filing:          filingInfoFromValues(subMap(m, "FILING-VALUES")),
		BusinessAddress: addressFromValues(subMap(m, "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromValues(subMap(m, "MAIL-ADDRESS")),
		FormerCompanies: formerCompaniesFromValues(m),
	}
}

func ownerFromValues(m map[string]any) *ReportingOwner {
	owner := &ReportingOwner{
		Company:         companyFromValues(subMap(m, "COMPANY-DATA")),
		Filing:          filingInfoFromValues(subMap(m, "FILING-VALUES")),
		BusinessAddress: addressFromValues(subMap(m, "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromValues(subMap(m, "MAIL-ADDRESS")),
	}
	if data := subMap(m, "OWNER-DATA"); data != nil {
		owner.Name = stringField(data, "CONFORMED-NAME")
		owner.CIK = stringField(data, "CIK")
	}
	return owner
}

func issuerFromValues(m map[string]any) *Issuer {
	return &Issuer{
		Company:         companyFromValues(subMap(m, "COMPANY-DATA")),
		BusinessAddress: addressFromValues(subMap(m, "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromValues(subMap(m, "MAIL-ADDRESS")),
	}
}

func subjectFromValues(m map[string]any) *SubjectCompany {
	return &SubjectCompany{
		Company:         companyFromValues(subMap(m, "COMPANY-DATA")),
		Filing:          filingInfoFromValues(subMap(m, "FILING-VALUES")),
		BusinessAddress: addressFromValues(subMap(m, "BUSINESS-ADDRESS")),
		MailingAddress:  addressFromValues(subMap(m, "MAIL-ADDRESS")),
		FormerCompanies: formerCompaniesFromValues(m),
	}
}
