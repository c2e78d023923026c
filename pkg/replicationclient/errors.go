package replicationclient

import (
	"errors"
	"fmt"

	"github.com/jfoltran/pgreplicate/pkg/table"
)

// Kind discriminates the error taxonomy the client surfaces. Every failure
// the client returns carries one of these, with one exception:
// ReplicationStream.Next returns ctx.Err() unchanged when its context ends.
type Kind int

const (
	// DatabaseError wraps an underlying driver or protocol failure. Usually
	// fatal for the operation in progress; whether to reconnect is the
	// caller's call.
	DatabaseError Kind = iota
	// MissingColumn means a catalog row lacked an expected column, from
	// schema drift or insufficient privilege.
	MissingColumn
	// MissingPublication means the named publication does not exist.
	MissingPublication
	// MissingTable means the named table was not found in the catalog.
	MissingTable
	// ReplicaIdentityNotSupported means relreplident is neither 'd' nor 'f'.
	ReplicaIdentityNotSupported
	// UnsupportedType is reserved for the decoder layer; catalog discovery
	// never raises it, falling back to an unnamed type instead.
	UnsupportedType
	// OidColumnNotU32 means a numeric OID catalog column failed to parse.
	OidColumnNotU32
	// TypeModifierColumnNotI32 means a numeric typmod catalog column failed
	// to parse.
	TypeModifierColumnNotI32
	// InvalidPgLsn means an LSN string returned by the server failed to parse.
	InvalidPgLsn
	// FailedToCreateSlot means CREATE_REPLICATION_SLOT returned no row. The
	// slot may nonetheless exist server-side; the caller should diagnose.
	FailedToCreateSlot
)

func (k Kind) String() string {
	switch k {
	case DatabaseError:
		return "DatabaseError"
	case MissingColumn:
		return "MissingColumn"
	case MissingPublication:
		return "MissingPublication"
	case MissingTable:
		return "MissingTable"
	case ReplicaIdentityNotSupported:
		return "ReplicaIdentityNotSupported"
	case UnsupportedType:
		return "UnsupportedType"
	case OidColumnNotU32:
		return "OidColumnNotU32"
	case TypeModifierColumnNotI32:
		return "TypeModifierColumnNotI32"
	case InvalidPgLsn:
		return "InvalidPgLsn"
	case FailedToCreateSlot:
		return "FailedToCreateSlot"
	default:
		return "Unknown"
	}
}

// Error is the single tagged error type the client returns. Callers
// distinguish failure modes with errors.As and inspecting Kind, never by
// matching message text.
type Error struct {
	Kind Kind
	// Msg is a human-readable description specific to this occurrence
	// (column/relation names, the publication name, the offending value).
	Msg string
	// Cause is the wrapped underlying error, if any (a driver error, a
	// strconv failure, pglogrepl's LSN parse error).
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets two *Error values with the same Kind and Msg compare equal under
// errors.Is, so tests can assert on a constructed expectation.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind && e.Msg == other.Msg
}

func newDatabaseError(msg string, cause error) *Error {
	return &Error{Kind: DatabaseError, Msg: msg, Cause: cause}
}

func newMissingColumn(column, relation string) *Error {
	return &Error{Kind: MissingColumn, Msg: fmt.Sprintf("column %q missing from %q", column, relation)}
}

func newMissingPublication(name string) *Error {
	return &Error{Kind: MissingPublication, Msg: fmt.Sprintf("publication %q not found", name)}
}

func newMissingTable(name table.Name) *Error {
	return &Error{Kind: MissingTable, Msg: fmt.Sprintf("table %q not found", name)}
}

func newReplicaIdentityNotSupported(identity string) *Error {
	return &Error{Kind: ReplicaIdentityNotSupported, Msg: fmt.Sprintf("replica identity %q is not supported, must be DEFAULT or FULL", identity)}
}

func newOidColumnNotU32(raw string, cause error) *Error {
	return &Error{Kind: OidColumnNotU32, Msg: fmt.Sprintf("catalog OID column %q did not parse as uint32", raw), Cause: cause}
}

func newTypeModifierColumnNotI32(raw string, cause error) *Error {
	return &Error{Kind: TypeModifierColumnNotI32, Msg: fmt.Sprintf("catalog typmod column %q did not parse as int32", raw), Cause: cause}
}

func newInvalidPgLsn(raw string, cause error) *Error {
	return &Error{Kind: InvalidPgLsn, Msg: fmt.Sprintf("LSN %q failed to parse", raw), Cause: cause}
}

func newFailedToCreateSlot(slotName string) *Error {
	return &Error{Kind: FailedToCreateSlot, Msg: fmt.Sprintf("CREATE_REPLICATION_SLOT for %q returned no row", slotName)}
}
