package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

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

	for _, table := range []string{"cases", "audit_logs"} {
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

func TestOpen_PureGoDriver(t *testing.T) {
	s := createTestStore(t, WithDriver(DriverPure))
	if s.Driver() != DriverPure {
		t.Fatalf("Driver() = %q, want %q", s.Driver(), DriverPure)
	}

	c := createTestCase(t, s, "case-pure")
	got, err := s.GetCase(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("GetCase() failed: %v", err)
	}
	if !got.CreatedAt.Equal(testEpoch) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, testEpoch)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "test.db"), WithDriver("postgres"))
	if err == nil {
		t.Fatal("expected error for unsupported driver, got nil")
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion() failed: %v", err)
	}
	if v != 2 {
		t.Errorf("SchemaVersion() = %d, want 2", v)
	}
}

func TestOpen_Indexes(t *testing.T) {
	s := createTestStore(t)
	for _, index := range []string{"idx_audit_logs_case_id", "idx_audit_logs_created_at"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			index,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q not found: %v", index, err)
		}
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestDB_ReturnsUnderlyingConnection(t *testing.T) {
	s := createTestStore(t)

	db := s.DB()
	if db == nil {
		t.Fatal("DB() returned nil")
	}
	if err := db.Ping(); err != nil {
		t.Errorf("DB() connection not usable: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, driver := range []string{DriverCGO, DriverPure} {
		s := createTestStore(t, WithDriver(driver))
		for _, tt := range tests {
			t.Run(driver+"/"+tt.name, func(t *testing.T) {
				if err := s.verifyPragma(tt.name, tt.expected); err != nil {
					t.Error(err)
				}
			})
		}
	}
}
