package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ukepenger/internal/platform/config"
)

func TestPostgresRebind(t *testing.T) {
	d, err := DialectFor("postgres")
	if err != nil {
		t.Fatalf("DialectFor() error = %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{name: "No Placeholders", query: "SELECT 1", want: "SELECT 1"},
		{name: "Sequential", query: "SELECT * FROM claims WHERE id = ? AND family_id = ?", want: "SELECT * FROM claims WHERE id = $1 AND family_id = $2"},
		{name: "Quoted Mark", query: "SELECT '?' FROM t WHERE a = ?", want: "SELECT '?' FROM t WHERE a = $1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Rebind(tt.query); got != tt.want {
				t.Errorf("Rebind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialectFor(t *testing.T) {
	if _, err := DialectFor("mysql"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
	d, _ := DialectFor("")
	if d.Name() != "sqlite" {
		t.Errorf("Expected sqlite default, got %s", d.Name())
	}
}

func TestPlaceholders(t *testing.T) {
	if got := Placeholders(3); got != "?, ?, ?" {
		t.Errorf("Placeholders(3) = %q", got)
	}
	if got := Placeholders(0); got != "" {
		t.Errorf("Placeholders(0) = %q", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", URL: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
	}

	migrations, err := Migrations(db.Dialect())
	if err != nil || len(migrations) == 0 {
		t.Fatalf("Migrations() = %v, %v", migrations, err)
	}
	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != migrations[len(migrations)-1].Version {
		t.Errorf("Expected version %d, got %d", migrations[len(migrations)-1].Version, version)
	}
}

func TestPrepareSQLiteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	dsn, err := prepareSQLiteFile("file:" + filepath.Join(dir, "app.db") + "?cache=shared")
	if err != nil {
		t.Fatalf("prepareSQLiteFile() error = %v", err)
	}
	for _, want := range []string{"cache=shared", "_busy_timeout=5000", "_journal_mode=WAL"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("Expected %q in %q", want, dsn)
		}
	}

	db, err := Open(config.DatabaseConfig{Driver: "sqlite", URL: filepath.Join(dir, "app.db")})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	db.Close()
}
