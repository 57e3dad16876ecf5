package normalize

import (
	"portalharvest/internal/record"
)

// Rule lists, in priority order, the column names a provider has used for a
// canonical field. The first alias present in a header wins.
type Rule struct {
	Field   record.Field
	Aliases []string
}

// AliasTable is the ordered set of rules the normalizer resolves columns with.
// Fields without a rule always fall back to their default.
type AliasTable []Rule

// DefaultAliases covers the column layouts the portal has published: the
// rendered listing, the current monthly archive and legacy archives whose
// accented letters were dropped by the exporter.
var DefaultAliases = AliasTable{
	{
		Field:   record.DetailReference,
		Aliases: []string{"Detalhar", "LINK", "URL DETALHE"},
	},
	{
		Field: record.ReferencePeriod,
		Aliases: []string{
			"Mês Referência",
			"MES_REFERENCIA",
			"MÊS_REFERÊNCIA",
			"MES_REF",
			"MESREFERENCIA",
			"MÊS COMPETÊNCIA",
			"MES COMPETNCIA",
		},
	},
	{
		Field:   record.RegionCode,
		Aliases: []string{"UF", "ESTADO", "SIGLA UF"},
	},
	{
		Field: record.LocalityName,
		Aliases: []string{
			"Município",
			"NOME MUNICÍPIO",
			"NOME MUNICPIO",
			"MUNICIPIO",
		},
	},
	{
		Field: record.BeneficiaryName,
		Aliases: []string{
			"Beneficiário",
			"NOME BENEFICIÁRIO",
			"NOME BENEFICIRIO",
			"NOME_BENEFICIARIO",
			"BENEFICIARIO",
		},
	},
	{
		Field: record.BeneficiaryIdentifier,
		Aliases: []string{
			"CPF do Beneficiário",
			"CPF BENEFICIÁRIO",
			"CPF BENEFICIRIO",
			"CPF_BENEFICIARIO",
			"CPF",
		},
	},
	{
		Field: record.LegalRepresentativeName,
		Aliases: []string{
			"Representante Legal",
			"NOME RESPONSÁVEL",
			"NOME RESPONSVEL",
			"REPRESENTANTE_LEGAL",
		},
	},
	{
		Field: record.DisbursedAmount,
		Aliases: []string{
			"Valor Disponibilizado",
			"Valor Disponibilizado (R$)",
			"VALOR PARCELA",
			"VALOR_DISPONIBILIZADO",
			"VALOR",
		},
	},
}

// With returns a copy of the table with extra aliases appended to the rule of
// the given field, a rule is created when the field has none.
func (t AliasTable) With(field record.Field, aliases ...string) AliasTable {
	out := make(AliasTable, 0, len(t)+1)
	found := false
	for _, rule := range t {
		if rule.Field == field {
			merged := make([]string, 0, len(rule.Aliases)+len(aliases))
			merged = append(merged, rule.Aliases...)
			merged = append(merged, aliases...)
			rule = Rule{Field: field, Aliases: merged}
			found = true
		}
		out = append(out, rule)
	}
	if !found {
		out = append(out, Rule{Field: field, Aliases: aliases})
	}
	return out
}

func (t AliasTable) rule(field record.Field) (Rule, bool) {
	for _, rule := range t {
		if rule.Field == field {
			return rule, true
		}
	}
	return Rule{}, false
}
