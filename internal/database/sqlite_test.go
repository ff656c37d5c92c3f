package database

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenSQLite_CreatesDocumentsTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "planner.db")

	db, err := OpenSQLite(path, time.Second)
	if err != nil {
		t.Fatalf("OpenSQLite returned error: %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'documents'").Scan(&name)
	if err != nil {
		t.Fatalf("documents table not found: %v", err)
	}
}

func TestOpenSQLite_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")

	db, err := OpenSQLite(path, time.Second)
	if err != nil {
		t.Fatalf("first OpenSQLite returned error: %v", err)
	}
	if _, err := db.Exec("INSERT INTO documents (name, body) VALUES ('teams', '[{\"team_id\":\"team_1\"}]')"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path, time.Second)
	if err != nil {
		t.Fatalf("second OpenSQLite returned error: %v", err)
	}
	defer db.Close()

	var body string
	if err := db.QueryRow("SELECT body FROM documents WHERE name = 'teams'").Scan(&body); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if body != `[{"team_id":"team_1"}]` {
		t.Errorf("body = %q, want the row written before reopening", body)
	}
}
