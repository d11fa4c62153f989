package db

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/clinic/clinic/migrations"
)

func mapFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name    string
		version int
		ok      bool
	}{
		{"001_core.sql", 1, true},
		{"010_tables.sql", 10, true},
		{"readme.sql", 0, false},
		{"abc_invalid.sql", 0, false},
		{"000_zero.sql", 0, false},
		{"-1_negative.sql", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := migrationVersion(tt.name)
			if v != tt.version || ok != tt.ok {
				t.Errorf("migrationVersion(%q) = %d, %v; want %d, %v", tt.name, v, ok, tt.version, tt.ok)
			}
		})
	}
}

func TestLoadMigrations_OrdersAndFilters(t *testing.T) {
	migrator := NewMigrator(nil, mapFS(map[string]string{
		"010_reports.sql":   "SELECT 10;",
		"002_clinical.sql":  "CREATE TABLE diagnosis (id UUID PRIMARY KEY);",
		"001_core.sql":      "CREATE TABLE patient (id UUID PRIMARY KEY);",
		"readme.sql":        "-- no version",
		"notes.txt":         "not sql",
		"003_inventory.sql": "CREATE TABLE medicine (id UUID PRIMARY KEY);",
	}))
	loaded, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}

	want := []int{1, 2, 3, 10}
	if len(loaded) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(loaded))
	}
	for i, v := range want {
		if loaded[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, loaded[i].Version)
		}
	}
	if loaded[0].Name != "001_core.sql" || !strings.HasPrefix(loaded[0].SQL, "CREATE TABLE patient") {
		t.Errorf("unexpected first migration: %+v", loaded[0])
	}
	if len(loaded[0].Checksum) != 64 {
		t.Errorf("expected sha256 hex checksum, got %q", loaded[0].Checksum)
	}
	if loaded[0].Checksum == loaded[1].Checksum {
		t.Error("expected different files to have different checksums")
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	migrator := NewMigrator(nil, mapFS(map[string]string{
		"001_core.sql":  "SELECT 1;",
		"001_other.sql": "SELECT 1;",
	}))
	if _, err := migrator.LoadMigrations(); err == nil {
		t.Fatal("expected error for duplicate migration version")
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	loaded, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected 0 migrations, got %d", len(loaded))
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	loaded, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(loaded) == 0 || loaded[0].Version != 1 {
		t.Fatalf("expected embedded migrations starting at version 1, got %+v", loaded)
	}

	var all strings.Builder
	for _, m := range loaded {
		all.WriteString(m.SQL)
	}
	for _, table := range []string{"patient", "doctor", "nurse", "appointment", "vital_signs", "diagnosis", "prescription", "medicine"} {
		if !strings.Contains(all.String(), "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("expected embedded migrations to create table %s", table)
		}
	}
}

func TestStatusOf(t *testing.T) {
	known := []Migration{
		{Version: 1, Name: "001_core.sql", Checksum: "aaa"},
		{Version: 2, Name: "002_clinical.sql", Checksum: "bbb"},
		{Version: 3, Name: "003_inventory.sql", Checksum: "ccc"},
	}
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	done := map[int]appliedMigration{
		1: {checksum: "aaa", at: at},
		2: {checksum: "edited", at: at},
	}

	got := statusOf(known, done)
	if len(got) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(got))
	}
	if !got[0].Applied || got[0].Modified || got[0].AppliedAt == nil || !got[0].AppliedAt.Equal(at) {
		t.Errorf("unexpected status for 001: %+v", got[0])
	}
	if !got[1].Modified {
		t.Error("expected 002 to be reported as modified")
	}
	if got[2].Applied || got[2].AppliedAt != nil {
		t.Errorf("expected 003 to be pending, got %+v", got[2])
	}
}

func TestStatusOf_LegacyRowsWithoutChecksum(t *testing.T) {
	got := statusOf(
		[]Migration{{Version: 1, Name: "001_core.sql", Checksum: "aaa"}},
		map[int]appliedMigration{1: {at: time.Now()}},
	)
	if got[0].Modified {
		t.Error("expected rows without a checksum to be trusted")
	}
}
