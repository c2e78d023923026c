package replicationclient

import (
	"errors"
	"testing"

	"github.com/jfoltran/pgreplicate/pkg/table"
)

func TestError_Error(t *testing.T) {
	err := newMissingPublication("my_pub")
	want := `MissingPublication: publication "my_pub" not found`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := errors.New("boom")
	err := newDatabaseError("exec failed", cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap() did not return the wrapped cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to the wrapped cause")
	}
}

func TestError_MissingTable(t *testing.T) {
	name := table.Name{Schema: "public", Name: "orders"}
	err := newMissingTable(name)
	if err.Kind != MissingTable {
		t.Errorf("Kind = %v, want MissingTable", err.Kind)
	}
}

func TestError_Is(t *testing.T) {
	a := newMissingColumn("attname", "pg_attribute")
	b := newMissingColumn("attname", "pg_attribute")
	c := newMissingColumn("atttypid", "pg_attribute")

	if !errors.Is(a, b) {
		t.Error("equal Kind and Msg should compare equal under errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("differing Msg should not compare equal under errors.Is")
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{DatabaseError, "DatabaseError"},
		{MissingColumn, "MissingColumn"},
		{MissingPublication, "MissingPublication"},
		{MissingTable, "MissingTable"},
		{ReplicaIdentityNotSupported, "ReplicaIdentityNotSupported"},
		{UnsupportedType, "UnsupportedType"},
		{OidColumnNotU32, "OidColumnNotU32"},
		{TypeModifierColumnNotI32, "TypeModifierColumnNotI32"},
		{InvalidPgLsn, "InvalidPgLsn"},
		{FailedToCreateSlot, "FailedToCreateSlot"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
