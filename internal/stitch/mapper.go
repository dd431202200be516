package stitch

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/edgar-core/internal/xbrl"
)

//go:embed concept_mappings.yaml
var conceptMappingsYAML []byte

// ConceptMapping assigns a canonical label and a cross-company identifier to
// an entity-specific concept.
type ConceptMapping struct {
	Label           string `yaml:"label"`
	StandardConcept string `yaml:"standard_concept"`
}

// ConceptMapper standardizes concept labels per statement type. Lookups
// normalize namespaces so us-gaap, usgaap and gaap concepts all resolve.
type ConceptMapper struct {
	byStatement map[xbrl.StatementType]map[string]ConceptMapping
}

// NewConceptMapper loads the embedded mapping table.
func NewConceptMapper() (*ConceptMapper, error) {
	var raw map[string]map[string]ConceptMapping
	if err := yaml.Unmarshal(conceptMappingsYAML, &raw); err != nil {
		return nil, eris.Wrap(err, "stitch: parse concept mappings")
	}
	m := &ConceptMapper{byStatement: map[xbrl.StatementType]map[string]ConceptMapping{}}
	for st, concepts := range raw {
		table := make(map[string]ConceptMapping, len(concepts))
		for concept, mapping := range concepts {
			table[normalizeConcept(concept)] = mapping
		}
		m.byStatement[xbrl.StatementType(st)] = table
	}
	return m, nil
}

// Map returns the canonical mapping for a concept within a statement type,
// or false when the concept has no standardization.
func (m *ConceptMapper) Map(st xbrl.StatementType, concept string) (ConceptMapping, bool) {
	table, ok := m.byStatement[st]
	if !ok {
		return ConceptMapping{}, false
	}
	mapping, ok := table[normalizeConcept(concept)]
	return mapping, ok
}

// normalizeConcept lowercases, folds ":" to "_", and collapses the us-gaap
// namespace spelling variants to one alias.
func normalizeConcept(concept string) string {
	c := strings.ToLower(strings.TrimSpace(concept))
	c = strings.ReplaceAll(c, ":", "_")
	for _, alias := range []string{"us-gaap_", "us_gaap_", "gaap_"} {
		if strings.HasPrefix(c, alias) {
			return "usgaap_" + c[len(alias):]
		}
	}
	return c
}
