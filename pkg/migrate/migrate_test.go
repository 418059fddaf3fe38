package migrate

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/multierr"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}

func TestEmbeddedMigrationsCreateCoreTables(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(Migrations, embeddedDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(Migrations, p)
		if err != nil {
			return err
		}
		all.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk migrations: %v", err)
	}

	for _, table := range []string{"users", "farms", "products", "orders", "order_items", "reviews", "chats", "messages", "notifications", "outbox_events"} {
		if !strings.Contains(all.String(), "CREATE TABLE "+table+" (") {
			t.Fatalf("expected a migration creating %s", table)
		}
	}
}

func TestValidateFSRejectsBadNames(t *testing.T) {
	fsys := fstest.MapFS{
		"m/add_things.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateFSRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: body},
		"m/20260101000000_b.sql": {Data: body},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestValidateFSRequiresDownSection(t *testing.T) {
	fsys := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
	}
	if err := ValidateFS(fsys, "m"); err == nil {
		t.Fatal("expected missing down error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Delivery Slots!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260301090500_add_delivery_slots.sql" {
		t.Fatalf("unexpected filename %q", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "add delivery slots", now); err == nil {
		t.Fatal("expected duplicate file error")
	}
}

func TestValidateFSReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"m/bad.sql":              {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/20260101000000_a.sql": {Data: []byte("SELECT 1;\n")},
		"m/README.md":            {Data: []byte("not a migration")},
	}
	err := ValidateFS(fsys, "m")
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 problems (name, up, down), got %d: %v", got, err)
	}
}

func TestShouldAutoMigrate(t *testing.T) {
	cases := []struct {
		env  string
		flag bool
		want bool
	}{
		{"dev", true, true},
		{"dev", false, false},
		{"prod", true, false},
	}
	for _, tc := range cases {
		cfg := &config.Config{}
		cfg.App.Env = tc.env
		cfg.FeatureFlags.AutoMigrate = tc.flag
		if got := shouldAutoMigrate(cfg); got != tc.want {
			t.Fatalf("env=%s flag=%v: got %v", tc.env, tc.flag, got)
		}
	}
}
