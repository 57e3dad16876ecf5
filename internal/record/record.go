// Package record holds the canonical shape every harvested row is reconciled into.
package record

import (
	"strings"
)

// Field indexes a column of the canonical record.
type Field int

const (
	DetailReference Field = iota
	ReferencePeriod
	RegionCode
	LocalityName
	BeneficiaryName
	BeneficiaryIdentifier
	LegalRepresentativeName
	DisbursedAmount

	fieldCount
)

// FieldCount is the number of columns in a canonical record.
const FieldCount = int(fieldCount)

var headers = [FieldCount]string{
	"Detalhar",
	"Mês Referência",
	"UF",
	"Município",
	"Beneficiário",
	"CPF do Beneficiário",
	"Representante Legal",
	"Valor Disponibilizado",
}

var names = [FieldCount]string{
	"detail-reference",
	"reference-period",
	"region-code",
	"locality-name",
	"beneficiary-name",
	"beneficiary-identifier",
	"legal-representative-name",
	"disbursed-amount",
}

// Header returns the column title as it is written to the output dataset.
func (f Field) Header() string {
	return headers[f]
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return names[f]
}

// Fields lists every canonical field in column order.
func Fields() []Field {
	out := make([]Field, FieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Header returns the canonical header row.
func Header() []string {
	out := make([]string, FieldCount)
	copy(out, headers[:])
	return out
}

// Record is a canonical record, every field is always present and defaults
// to the empty string.
type Record [FieldCount]string

func (r Record) Get(f Field) string {
	return r[f]
}

func (r *Record) Set(f Field, value string) {
	r[f] = value
}

// Row returns the record as a slice in column order.
func (r Record) Row() []string {
	out := make([]string, FieldCount)
	copy(out, r[:])
	return out
}

// FromRow builds a record from a row in column order, missing trailing columns
// stay empty and extra columns are ignored.
func FromRow(row []string) Record {
	var r Record
	copy(r[:], row)
	return r
}

const keySeparator = "|"

// Key is the dedup key of the record: identifier and reference period joined
// verbatim, blank values included.
func (r Record) Key() string {
	return Key(r[BeneficiaryIdentifier], r[ReferencePeriod])
}

func Key(identifier, period string) string {
	var b strings.Builder
	b.Grow(len(identifier) + len(period) + len(keySeparator))
	b.WriteString(identifier)
	b.WriteString(keySeparator)
	b.WriteString(period)
	return b.String()
}
