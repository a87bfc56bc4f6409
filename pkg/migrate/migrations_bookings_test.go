package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestInitialSchemaCoversCoreTables(t *testing.T) {
	path := filepath.Join("migrations", "20260115093000_initial_schema.sql")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(b)

	for _, table := range []string{
		"CREATE TABLE users",
		"CREATE TABLE interpreter_profiles",
		"CREATE TABLE languages",
		"CREATE TABLE blacklist_entries",
		"CREATE TABLE bookings",
		"CREATE TABLE assignments",
		"CREATE TABLE status_changes",
		"CREATE TABLE notifications",
		"CREATE TABLE outbox_events",
		"CREATE TABLE outbox_dlq",
	} {
		if !strings.Contains(sql, table) {
			t.Errorf("initial schema missing %q", table)
		}
	}

	// One active interpreter per booking is enforced at the schema level.
	if !strings.Contains(sql, "uq_assignments_active") {
		t.Error("initial schema missing the active-assignment unique index")
	}
	if !strings.Contains(sql, "uq_blacklist_pair") {
		t.Error("initial schema missing the blacklist pair unique index")
	}
}
