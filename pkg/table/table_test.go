package table

import "testing"

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"users", `"users"`},
		{"order", `"order"`},
		{`my"table`, `"my""table"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := QuoteIdentifier(tt.input); got != tt.want {
			t.Errorf("QuoteIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestQuoteLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"public", `'public'`},
		{"o'brien", `'o''brien'`},
		{"", `''`},
	}
	for _, tt := range tests {
		if got := QuoteLiteral(tt.input); got != tt.want {
			t.Errorf("QuoteLiteral(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestName_AsQuotedIdentifier(t *testing.T) {
	n := Name{Schema: "public", Name: "orders"}
	want := `"public"."orders"`
	if got := n.AsQuotedIdentifier(); got != want {
		t.Errorf("AsQuotedIdentifier() = %q, want %q", got, want)
	}
}

func TestName_String(t *testing.T) {
	n := Name{Schema: "public", Name: "orders"}
	if got := n.String(); got != "public.orders" {
		t.Errorf("String() = %q, want public.orders", got)
	}
}

func TestLookupKey_IsSafe(t *testing.T) {
	if !Key("t_pkey", []string{"id"}).IsSafe() {
		t.Error("Key(...) should be safe")
	}
	if FullRow().IsSafe() {
		t.Error("FullRow() should not be safe")
	}
}

func TestSchema_HasSafeLookupKey(t *testing.T) {
	safe := Schema{LookupKey: Key("t_pkey", []string{"id"})}
	if !safe.HasSafeLookupKey() {
		t.Error("expected safe schema to report HasSafeLookupKey")
	}
	unsafe := Schema{LookupKey: FullRow()}
	if unsafe.HasSafeLookupKey() {
		t.Error("expected FullRow schema to report not safe")
	}
}

func TestSchema_ColumnNames(t *testing.T) {
	s := Schema{ColumnSchemas: []ColumnSchema{{Name: "id"}, {Name: "email"}}}
	got := s.ColumnNames()
	want := []string{"id", "email"}
	if len(got) != len(want) {
		t.Fatalf("ColumnNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ColumnNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
