package sgml

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ParseResult is the structured output of an SGML parse: the dialect, the
// header (tag tree for SUBMISSION, raw text for SEC-DOCUMENT), and the
// embedded documents in source order.
type ParseResult struct {
	Format     Format
	Values     map[string]any // SUBMISSION dialect tag tree
	HeaderText string         // SEC-DOCUMENT dialect raw header block
	Documents  []*Document
}

// sectionTags is the closed set of tags that open a nested section in the
// SUBMISSION dialect. Any other <TAG> line is a data field.
var sectionTags = map[string]bool{
	"FILER":                          true,
	"REPORTING-OWNER":                true,
	"ISSUER":                         true,
	"COMPANY-DATA":                   true,
	"OWNER-DATA":                     true,
	"FILING-VALUES":                  true,
	"BUSINESS-ADDRESS":               true,
	"MAIL-ADDRESS":                   true,
	"FORMER-COMPANY":                 true,
	"FORMER-NAME":                    true,
	"SUBJECT-COMPANY":                true,
	"CLASS-CONTRACT":                 true,
	"SERIES":                         true,
	"NEW-SERIES":                     true,
	"NEW-CLASSES-CONTRACTS":          true,
	"ACQUIRING-DATA":                 true,
	"TARGET-DATA":                    true,
	"MERGER":                         true,
	"DEPOSITOR":                      true,
	"SECURITIZER":                    true,
	"UNDERWRITER":                    true,
	"RULE":                           true,
	"ITEM":                           true,
	"SERIES-AND-CLASSES-CONTRACTS-DATA": true,
	"EXISTING-SERIES-AND-CLASSES-CONTRACTS": true,
	"MERGER-SERIES-AND-CLASSES-CONTRACTS":   true,
}

// repeatableTags always store as lists even when a single occurrence is
// present, so downstream code never branches on cardinality.
var repeatableTags = map[string]bool{
	"FILER":           true,
	"REPORTING-OWNER": true,
	"SERIES":          true,
	"CLASS-CONTRACT":  true,
	"FORMER-COMPANY":  true,
	"FORMER-NAME":     true,
	"SUBJECT-COMPANY": true,
	"UNDERWRITER":     true,
	"ITEM":            true,
	"MERGER":          true,
}

var (
	openTagRe  = regexp.MustCompile(`^<([A-Z0-9-]+)>$`)
	closeTagRe = regexp.MustCompile(`^</([A-Z0-9-]+)>$`)
	dataTagRe  = regexp.MustCompile(`^<([A-Z0-9-]+)>(.*\S.*)$`)
)

// Parse detects the dialect and parses the submission into a ParseResult.
func Parse(content string) (*ParseResult, error) {
	format, err := DetectFormat(content)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatSubmission:
		return parseSubmission(content)
	default:
		return parseSECDocument(content)
	}
}

type frame struct {
	tag string
	ctx map[string]any
}

// parseSubmission is the line-oriented, stack-based parser for the modern
// <SUBMISSION> dialect. It maintains a stack of open sections and a
// current-context pointer into the growing tag tree; on the first <DOCUMENT>
// line it switches permanently into document mode.
func parseSubmission(content string) (*ParseResult, error) {
	result := &ParseResult{
		Format: FormatSubmission,
		Values: make(map[string]any),
	}

	current := result.Values
	var stack []frame

	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			i++
			continue
		}

		if trimmed == "<DOCUMENT>" {
			doc, next, err := bufferDocument(lines, i)
			if err != nil {
				return nil, err
			}
			result.Documents = append(result.Documents, doc)
			i = next
			continue
		}

		switch {
		case trimmed == "<SUBMISSION>" || trimmed == "</SUBMISSION>":
			// Root wrapper carries no data.

		case openTagRe.MatchString(trimmed):
			tag := openTagRe.FindStringSubmatch(trimmed)[1]
			if sectionTags[tag] {
				section := make(map[string]any)
				storeValue(current, tag, section)
				stack = append(stack, frame{tag: tag, ctx: current})
				current = section
			} else {
				// Empty data tag.
				storeValue(current, tag, "")
			}

		case closeTagRe.MatchString(trimmed):
			tag := closeTagRe.FindStringSubmatch(trimmed)[1]
			if len(stack) == 0 {
				return nil, &MismatchedTagError{Line: i + 1, Got: tag}
			}
			top := stack[len(stack)-1]
			if top.tag != tag {
				return nil, &MismatchedTagError{Line: i + 1, Expected: top.tag, Got: tag}
			}
			current = top.ctx
			stack = stack[:len(stack)-1]

		case dataTagRe.MatchString(trimmed):
			m := dataTagRe.FindStringSubmatch(trimmed)
			storeValue(current, m[1], strings.TrimSpace(m[2]))

		default:
			zap.L().Debug("sgml: skipping unrecognized header line",
				zap.Int("line", i+1), zap.String("text", snippet(trimmed)))
		}
		i++
	}

	if len(result.Documents) == 0 && len(result.Values) == 0 {
		return nil, &InvalidSGMLError{Reason: "submission contains no header fields and no documents"}
	}
	return result, nil
}

// storeValue writes a field into the current context, promoting to a list on
// repeats and always using lists for the repeatable tags.
func storeValue(ctx map[string]any, tag string, value any) {
	if repeatableTags[tag] {
		list, _ := ctx[tag].([]any)
		ctx[tag] = append(list, value)
		return
	}
	existing, ok := ctx[tag]
	if !ok {
		ctx[tag] = value
		return
	}
	if list, isList := existing.([]any); isList {
		ctx[tag] = append(list, value)
		return
	}
	ctx[tag] = []any{existing, value}
}

// bufferDocument collects lines from the <DOCUMENT> marker through the
// matching </DOCUMENT> and emits the document record. Returns the index of
// the line after the close marker.
func bufferDocument(lines []string, start int) (*Document, int, error) {
	var buf strings.Builder
	for i := start + 1; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "</DOCUMENT>" {
			return newDocument(buf.String()), i + 1, nil
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	return nil, 0, &InvalidSGMLError{Reason: "unterminated <DOCUMENT> block"}
}
