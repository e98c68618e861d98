package db

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/upstac/upstac/migrations"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"001_test_request.sql": {Data: []byte("CREATE TABLE test_request (id UUID PRIMARY KEY);")},
		"002_indexes.sql":      {Data: []byte("CREATE INDEX idx ON test_request (id);")},
		"003_columns.sql":      {Data: []byte("ALTER TABLE test_request ADD COLUMN x INT;")},
	}

	migrator := NewMigrator(nil, fsys)
	migrations, err := migrator.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 {
		t.Errorf("expected version 1, got %d", migrations[0].Version)
	}
	if migrations[0].Name != "001_test_request.sql" {
		t.Errorf("expected name 001_test_request.sql, got %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE test_request (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
	if migrations[2].Version != 3 {
		t.Errorf("expected version 3, got %d", migrations[2].Version)
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"010_tables.sql": {Data: []byte("SELECT 10;")},
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"005_middle.sql": {Data: []byte("SELECT 5;")},
	}

	migrations, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	expected := []int{1, 2, 5, 10}
	if len(migrations) != len(expected) {
		t.Fatalf("expected %d migrations, got %d", len(expected), len(migrations))
	}
	for i, v := range expected {
		if migrations[i].Version != v {
			t.Errorf("migration[%d]: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
}

func TestLoadMigrations_InvalidFilename(t *testing.T) {
	fsys := fstest.MapFS{
		"001_valid.sql":      {Data: []byte("SELECT 1;")},
		"readme.sql":         {Data: []byte("-- no version prefix")},
		"notes.txt":          {Data: []byte("not sql")},
		"abc_invalid.sql":    {Data: []byte("-- non-numeric prefix")},
		"002_also_valid.sql": {Data: []byte("SELECT 2;")},
		"sub/003_nested.sql": {Data: []byte("SELECT 3;")},
	}

	migrations, err := NewMigrator(nil, fsys).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 valid migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("unexpected versions %d, %d", migrations[0].Version, migrations[1].Version)
	}
}

func TestLoadMigrations_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_core.sql"), []byte("SELECT 1;"), 0644); err != nil {
		t.Fatalf("write migration: %v", err)
	}

	migrations, err := NewMigrator(nil, os.DirFS(dir)).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 1 || migrations[0].Name != "001_core.sql" {
		t.Fatalf("unexpected migrations: %+v", migrations)
	}
}

func TestLoadMigrations_Empty(t *testing.T) {
	migrations, err := NewMigrator(nil, fstest.MapFS{}).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 0 {
		t.Errorf("expected 0 migrations, got %d", len(migrations))
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	_, err := NewMigrator(nil, os.DirFS("/nonexistent/path/that/does/not/exist")).LoadMigrations()
	if err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestLoadMigrations_Embedded(t *testing.T) {
	loaded, err := NewMigrator(nil, migrations.FS).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(loaded) == 0 {
		t.Fatal("expected embedded migrations")
	}
	if loaded[0].Version != 1 {
		t.Errorf("expected first embedded migration to be version 1, got %d", loaded[0].Version)
	}
}
