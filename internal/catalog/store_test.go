package catalog

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"procedures", "procedure_statements"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.verifyPragma("journal_mode", "wal"))
	require.NoError(t, s.verifyPragma("foreign_keys", "1"))
	require.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	require.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`PRAGMA user_version = 2`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestOpen_KeepsVersionOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Define(context.Background(), Procedure{Schema: "dbo", Name: "Keep", Description: "kept", Statements: []string{"SELECT 1"}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.verifyPragma("user_version", "1"))
	procs, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "kept", procs[0].Description)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDefineAndLookup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Define(ctx, Procedure{
		Schema:      "dbo",
		Name:        "GetUsers",
		Description: "users then roles",
		Statements:  []string{"SELECT 1", "SELECT 2"},
	})
	require.NoError(t, err)

	got, err := s.Lookup(ctx, "dbo", "GetUsers")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 1", "SELECT 2"}, got)
}

func TestDefine_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P", Statements: []string{"SELECT 1", "SELECT 2"}}))
	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P", Description: "v2", Statements: []string{"SELECT 3"}}))

	got, err := s.Lookup(ctx, "dbo", "P")
	require.NoError(t, err)
	assert.Equal(t, []string{"SELECT 3"}, got)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Description)
}

func TestDefine_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.Define(ctx, Procedure{Schema: "", Name: "P", Statements: []string{"SELECT 1"}}))
	assert.Error(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P"}))
	assert.Error(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P", Statements: []string{"  "}}))
}

func TestLookup_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Lookup(context.Background(), "dbo", "Missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "dbo.Missing")
}

func TestLookup_SchemaIsNotDefaulted(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P", Statements: []string{"SELECT 1"}}))

	_, err := s.Lookup(ctx, "sales", "P")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_Ordered(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Define(ctx, Procedure{Schema: "sales", Name: "A", Statements: []string{"SELECT 1"}}))
	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "B", Statements: []string{"SELECT 1", "SELECT 2"}}))
	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "A", Statements: []string{"SELECT 1"}}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "dbo.A", all[0].QualifiedName())
	assert.Equal(t, "dbo.B", all[1].QualifiedName())
	assert.Len(t, all[1].Statements, 2)
	assert.Equal(t, "sales.A", all[2].QualifiedName())
}

func TestList_Empty(t *testing.T) {
	s := createTestStore(t)

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestDrop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Define(ctx, Procedure{Schema: "dbo", Name: "P", Statements: []string{"SELECT 1"}}))

	require.NoError(t, s.Drop(ctx, "dbo", "P"))

	_, err := s.Lookup(ctx, "dbo", "P")
	assert.ErrorIs(t, err, ErrNotFound)

	// Statements were removed by the cascade.
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM procedure_statements`).Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, s.Drop(ctx, "dbo", "P"), ErrNotFound)
}
