package sgml

import "strings"

// parseSECDocument handles the legacy <SEC-DOCUMENT>/<IMS-DOCUMENT> dialect:
// the header is an opaque text block between <SEC-HEADER> and </SEC-HEADER>
// (parsed separately by ParseHeader), and documents are extracted the same
// way as in the SUBMISSION dialect.
func parseSECDocument(content string) (*ParseResult, error) {
	result := &ParseResult{Format: FormatSECDocument}

	var header strings.Builder
	inHeader := false

	lines := strings.Split(content, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "<SEC-HEADER>") || strings.HasPrefix(trimmed, "<IMS-HEADER>"):
			inHeader = true
			// Accession and timestamp may trail the open tag on the same line.
			if rest := trimmed[strings.Index(trimmed, ">")+1:]; strings.TrimSpace(rest) != "" {
				header.WriteString(strings.TrimSpace(rest))
				header.WriteByte('\n')
			}

		case trimmed == "</SEC-HEADER>" || trimmed == "</IMS-HEADER>":
			inHeader = false

		case trimmed == "<DOCUMENT>":
			doc, next, err := bufferDocument(lines, i)
			if err != nil {
				return nil, err
			}
			result.Documents = append(result.Documents, doc)
			i = next
			continue

		case inHeader:
			header.WriteString(line)
			header.WriteByte('\n')
		}
		i++
	}

	result.HeaderText = header.String()
	if result.HeaderText == "" && len(result.Documents) == 0 {
		return nil, &InvalidSGMLError{Reason: "no header block and no documents found"}
	}
	return result, nil
}
