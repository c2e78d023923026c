// Package pgtypes resolves Postgres type OIDs to the logical type
// descriptors carried on a column schema. Resolution is never fatal: an OID
// the driver's builtin registry doesn't recognize becomes a synthetic
// "unnamed" type rather than an error, leaving it to the downstream decoder
// to decide whether it can handle the type.
package pgtypes

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

// builtin is the driver's registry of well-known Postgres types, keyed by
// OID. It is populated once; pgtype.NewMap() walks a large static table on
// every call, so callers resolving per-column on every catalog query would
// otherwise pay that cost repeatedly.
var builtin = pgtype.NewMap()

// LogicalType is a column's resolved Postgres type: either one of the
// driver's well-known simple types, or a synthetic placeholder carrying the
// raw OID when the registry has no entry for it.
type LogicalType struct {
	OID       uint32
	Name      string
	Namespace string
	// Known is false when no builtin mapping exists for OID and Name/Namespace
	// were synthesized rather than looked up.
	Known bool
}

// Resolve looks up a type OID in the builtin registry. Unknown OIDs never
// produce an error: they resolve to an unnamed placeholder so that catalog
// discovery can proceed even against types the client doesn't recognize.
func Resolve(oid uint32) LogicalType {
	if t, ok := builtin.TypeForOID(oid); ok {
		return LogicalType{
			OID:       oid,
			Name:      t.Name,
			Namespace: "pg_catalog",
			Known:     true,
		}
	}
	return LogicalType{
		OID:       oid,
		Name:      fmt.Sprintf("unnamed(oid: %d)", oid),
		Namespace: "pg_catalog",
		Known:     false,
	}
}
