package main

import (
	"io"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"001_invalid.sql", false, "", ""},       // wrong number format
		{"0001_test", false, "", ""},             // missing .sql
		{"0001.sql", false, "", ""},              // missing name
		{"invalid_0001_test.sql", false, "", ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if (m != nil) != tt.valid {
				t.Fatalf("match = %v, want valid=%v", m, tt.valid)
			}
			if tt.valid && (m[1] != tt.version || m[2] != tt.name) {
				t.Errorf("match = %v, want %s/%s", m, tt.version, tt.name)
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/0002_b.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"migrations/0001_a.sql":  {Data: []byte("SELECT 1;")},
		"migrations/README.md":   {Data: []byte("notes")},
		"migrations/003_bad.sql": {Data: []byte("SELECT 3;")},
	}

	got, err := readMigrations(fsys, target{project: "p", dataset: "d"}, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if len(got) != 2 || got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("readMigrations() = %+v", got)
	}
	if !strings.Contains(got[1].SQL, "`p.d.b`") {
		t.Errorf("placeholders not replaced: %s", got[1].SQL)
	}

	// Same file, different dataset: same checksum.
	other, _ := readMigrations(fsys, target{project: "q", dataset: "e"}, zerolog.New(io.Discard))
	if other[1].Checksum != got[1].Checksum {
		t.Error("checksum should not depend on the target dataset")
	}
}

func TestReadMigrations_Embedded(t *testing.T) {
	got, err := readMigrations(embedded, target{project: "p", dataset: "d"}, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}
	if got[0].Name != "init_schema_migrations" {
		t.Errorf("first migration = %s, want init_schema_migrations", got[0].Name)
	}
	for _, table := range []string{"transactions", "budget_rules", "income"} {
		found := false
		for _, m := range got {
			if strings.Contains(m.SQL, "`p.d."+table+"`") {
				found = true
			}
		}
		if !found {
			t.Errorf("no migration creates %s", table)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "stale"},
	}

	pending, mismatched := pendingMigrations(all, applied)
	if len(pending) != 1 || pending[0].Version != 3 {
		t.Errorf("pending = %+v, want [3]", pending)
	}
	if len(mismatched) != 1 || mismatched[0].Version != 2 {
		t.Errorf("mismatched = %+v, want [2]", mismatched)
	}
}
