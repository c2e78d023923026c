// Package table holds the catalog-derived data model shared between the
// replication client and its consumers: table identity, column schema, and
// the lookup key used to match a change to a prior row.
package table

import (
	"fmt"
	"strings"

	"github.com/jfoltran/pgreplicate/pkg/pgtypes"
)

// Name is a schema-qualified table identifier. Equality is by both parts.
type Name struct {
	Schema string
	Name   string
}

// String renders "schema.name" for logging and error messages.
func (n Name) String() string {
	return fmt.Sprintf("%s.%s", n.Schema, n.Name)
}

// AsQuotedIdentifier renders the name as a dotted pair of quoted SQL
// identifiers, e.g. "public"."orders". This is the only form in which a
// Name may appear inside constructed SQL.
func (n Name) AsQuotedIdentifier() string {
	return QuoteIdentifier(n.Schema) + "." + QuoteIdentifier(n.Name)
}

// ID is the Postgres relation OID backing a table. It is globally unique
// within a database cluster for the lifetime of the relation.
type ID uint32

// ColumnSchema describes one replicated column.
type ColumnSchema struct {
	Name     string
	Type     pgtypes.LogicalType
	Modifier int32
	Nullable bool
}

// LookupKeyKind distinguishes the two LookupKey variants. LookupKey is
// modeled as a tagged value (a Kind discriminant plus the fields relevant to
// that kind) rather than as an interface hierarchy: there is no behavior
// that varies by variant, only data.
type LookupKeyKind int

const (
	// KindKey is a safe lookup key: a unique, non-partial, non-deferrable
	// index over NOT NULL columns, all present in the published column set.
	KindKey LookupKeyKind = iota
	// KindFullRow means no safe key exists; row identity must be established
	// by comparing every replicated column.
	KindFullRow
)

func (k LookupKeyKind) String() string {
	switch k {
	case KindKey:
		return "Key"
	case KindFullRow:
		return "FullRow"
	default:
		return "Unknown"
	}
}

// LookupKey identifies how a downstream consumer should match an incoming
// change to a prior row.
type LookupKey struct {
	Kind LookupKeyKind
	// Name and Columns are populated only when Kind == KindKey.
	Name    string
	Columns []string
}

// Key constructs a safe lookup key.
func Key(name string, columns []string) LookupKey {
	return LookupKey{Kind: KindKey, Name: name, Columns: columns}
}

// FullRow constructs the unsafe "no key" variant.
func FullRow() LookupKey {
	return LookupKey{Kind: KindFullRow}
}

// IsSafe reports whether the key is usable for change matching.
func (k LookupKey) IsSafe() bool {
	return k.Kind == KindKey
}

// Schema is everything known about a published table: its identity, the
// columns replicated for it, and the key used to identify a row.
type Schema struct {
	TableName     Name
	TableID       ID
	ColumnSchemas []ColumnSchema
	LookupKey     LookupKey
}

// HasSafeLookupKey reports whether the table is safe to replicate. Tables
// without one are skipped at discovery time rather than surfaced.
func (s Schema) HasSafeLookupKey() bool {
	return s.LookupKey.IsSafe()
}

// ColumnNames returns the replicated column names in order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.ColumnSchemas))
	for i, c := range s.ColumnSchemas {
		names[i] = c.Name
	}
	return names
}

// QuoteIdentifier double-quotes a SQL identifier, doubling any embedded
// double quote. This is the sole defence constructed SQL has against
// injection from catalog-derived or user-supplied names.
func QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteLiteral single-quotes a SQL literal, doubling any embedded single
// quote.
func QuoteLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}
