// Package normalize reconciles the column layouts published by the portal into
// canonical records.
package normalize

import (
	"portalharvest/internal/components/assert"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/record"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	report_normalizer_schema_gap = "normalizer.schema-gap"
)

// DefaultDetailTemplate is prefixed to the period key when a source has no
// detail reference column.
const DefaultDetailTemplate = "https://portaldatransparencia.gov.br/beneficios/pe-de-meia/"

// minHintSimilarity is the Jaro-Winkler score an unmapped column needs to be
// suggested as the likely source of a missing field.
const minHintSimilarity = 0.75

// Mapping is the resolved column index of every canonical field for one
// header, -1 means the field falls back to its default.
type Mapping struct {
	columns [record.FieldCount]int
}

// Column returns the source column index resolved for the field.
func (m Mapping) Column(f record.Field) (int, bool) {
	idx := m.columns[f]
	return idx, idx >= 0
}

// Gaps lists the fields that had no matching source column.
func (m Mapping) Gaps() []record.Field {
	var out []record.Field
	for _, f := range record.Fields() {
		if m.columns[f] < 0 {
			out = append(out, f)
		}
	}
	return out
}

// Normalizer maps source tables onto canonical records. It caches the
// resolution of every distinct header it sees, so it should live for one run.
type Normalizer struct {
	aliases        AliasTable
	detailTemplate string
	tel            telemetry.API

	resolved map[string]Mapping
}

func NewNormalizer(aliases AliasTable, detailTemplate string, tel telemetry.API) *Normalizer {
	assert.NotNil(tel)
	if aliases == nil {
		aliases = DefaultAliases
	}
	if detailTemplate == "" {
		detailTemplate = DefaultDetailTemplate
	}
	return &Normalizer{
		aliases:        aliases,
		detailTemplate: detailTemplate,
		tel:            telemetry.NewScopedAPI("normalize", tel),
		resolved:       map[string]Mapping{},
	}
}

// Resolve finds the source column of every canonical field. Aliases are tried
// in table order and the first one present in the header wins, when several
// columns fold to the same alias the leftmost is used.
func (n *Normalizer) Resolve(headers []string) Mapping {
	signature := strings.Join(headers, "\x00")
	if m, ok := n.resolved[signature]; ok {
		return m
	}

	folded := make(map[string]int, len(headers))
	for i, h := range headers {
		key := fold(h)
		if _, exists := folded[key]; !exists {
			folded[key] = i
		}
	}

	var m Mapping
	for i := range m.columns {
		m.columns[i] = -1
	}
	for _, f := range record.Fields() {
		rule, ok := n.aliases.rule(f)
		if !ok {
			continue
		}
		for _, alias := range rule.Aliases {
			idx, found := folded[fold(alias)]
			if found {
				m.columns[f] = idx
				break
			}
		}
	}

	n.reportGaps(headers, m)
	n.resolved[signature] = m
	return m
}

func (n *Normalizer) reportGaps(headers []string, m Mapping) {
	gaps := m.Gaps()
	if len(gaps) == 0 {
		return
	}

	var unmapped []string
	for i, h := range headers {
		if !slices.Contains(m.columns[:], i) {
			unmapped = append(unmapped, h)
		}
	}

	for _, f := range gaps {
		hint := closestColumn(fold(f.Header()), unmapped)
		n.tel.ReportWarning(report_normalizer_schema_gap, f.String(), hint)
	}
}

func closestColumn(target string, candidates []string) string {
	best := ""
	bestScore := minHintSimilarity
	for _, c := range candidates {
		score := matchr.JaroWinkler(target, fold(c), false)
		if score >= bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// Normalize converts every row of the table into a canonical record, in
// order. The period fills the detail reference and reference period when the
// table does not carry them, a zero period leaves them empty.
func (n *Normalizer) Normalize(table record.Table, period record.Period) []record.Record {
	m := n.Resolve(table.Headers)
	defaults := n.defaults(period)

	out := make([]record.Record, len(table.Rows))
	for i, row := range table.Rows {
		rec := defaults
		for _, f := range record.Fields() {
			idx, ok := m.Column(f)
			if !ok {
				continue
			}
			if idx < len(row) {
				rec[f] = row[idx]
			} else {
				rec[f] = ""
			}
		}
		out[i] = rec
	}
	return out
}

// NormalizeSources is Normalize for rows keyed by column name. Keys are
// resolved in sorted order so the outcome never depends on map iteration.
func (n *Normalizer) NormalizeSources(sources []record.Source, period record.Period) []record.Record {
	out := make([]record.Record, len(sources))
	for i, src := range sources {
		headers := make([]string, 0, len(src))
		for k := range src {
			headers = append(headers, k)
		}
		slices.Sort(headers)
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = src[h]
		}
		out[i] = n.Normalize(record.Table{Headers: headers, Rows: [][]string{row}}, period)[0]
	}
	return out
}

func (n *Normalizer) defaults(period record.Period) record.Record {
	var rec record.Record
	if period.IsZero() {
		return rec
	}
	rec[record.DetailReference] = n.detailTemplate + period.Key()
	rec[record.ReferencePeriod] = period.Reference()
	return rec
}
