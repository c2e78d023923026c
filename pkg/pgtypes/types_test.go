package pgtypes

import "testing"

func TestResolve_KnownType(t *testing.T) {
	got := Resolve(23) // int4
	if !got.Known {
		t.Fatalf("Resolve(23) = %+v, want a known type", got)
	}
	if got.Name != "int4" {
		t.Errorf("Resolve(23).Name = %q, want %q", got.Name, "int4")
	}
	if got.Namespace != "pg_catalog" {
		t.Errorf("Resolve(23).Namespace = %q, want pg_catalog", got.Namespace)
	}
}

func TestResolve_UnknownType(t *testing.T) {
	const madeUpOID = 999999
	got := Resolve(madeUpOID)
	if got.Known {
		t.Fatalf("Resolve(%d) = %+v, want unknown", madeUpOID, got)
	}
	if got.OID != madeUpOID {
		t.Errorf("Resolve(%d).OID = %d, want %d", madeUpOID, got.OID, madeUpOID)
	}
	want := "unnamed(oid: 999999)"
	if got.Name != want {
		t.Errorf("Resolve(%d).Name = %q, want %q", madeUpOID, got.Name, want)
	}
}

func TestResolve_StableAcrossCalls(t *testing.T) {
	a := Resolve(25) // text
	b := Resolve(25)
	if a != b {
		t.Errorf("Resolve(25) is not stable: %+v != %+v", a, b)
	}
}
