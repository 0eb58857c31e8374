package store

import "testing"

func TestRebindPostgresPassthrough(t *testing.T) {
	s := &Store{Dialect: DialectPostgres}
	q := "SELECT * FROM t WHERE a = $1 AND b = $2"
	if got := s.Rebind(q); got != q {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestRebindSQLiteRewritesPlaceholders(t *testing.T) {
	s := &Store{Dialect: DialectSQLite}
	got := s.Rebind("SELECT * FROM t WHERE a = $1 AND b = $2 AND c = $10")
	want := "SELECT * FROM t WHERE a = ? AND b = ? AND c = ?"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestBuildUpsertStatementShape(t *testing.T) {
	s := &Store{Dialect: DialectPostgres}
	rows := []UpsertRow{
		{Columns: []string{"a", "b"}, Values: []any{1, "x"}},
		{Columns: []string{"a", "b"}, Values: []any{2, "y"}},
	}
	query, args := s.buildUpsertStatement("t", []string{"a", "b"}, []string{"a"}, []string{"b"}, rows)
	wantQuery := "INSERT INTO t (a, b) VALUES ($1, $2), ($3, $4) ON CONFLICT (a) DO UPDATE SET b = EXCLUDED.b"
	if query != wantQuery {
		t.Fatalf("got %q want %q", query, wantQuery)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}

func TestBuildUpsertStatementDoNothingWithNoUpdateCols(t *testing.T) {
	s := &Store{Dialect: DialectPostgres}
	rows := []UpsertRow{{Columns: []string{"a"}, Values: []any{1}}}
	query, _ := s.buildUpsertStatement("t", []string{"a"}, []string{"a"}, nil, rows)
	want := "INSERT INTO t (a) VALUES ($1) ON CONFLICT (a) DO NOTHING"
	if query != want {
		t.Fatalf("got %q want %q", query, want)
	}
}
