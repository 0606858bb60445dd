package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matches %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationEnforcesSessionUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT orders_external_session_id_key UNIQUE (external_session_id)",
		"CHECK (status IN ('awaiting_payment', 'payment_received'))",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartMigrationRequiresPositiveQuantity(t *testing.T) {
	content := readMigration(t, "*_create_cart_items.sql")
	for _, sub := range []string{
		"PRIMARY KEY (user_id, product_id)",
		"CHECK (quantity >= 1)",
		"REFERENCES products(id) ON DELETE CASCADE",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationHasPendingSession(t *testing.T) {
	content := readMigration(t, "*_create_users.sql")
	if !strings.Contains(content, "pending_session_id text") {
		t.Errorf("users table should carry pending_session_id")
	}
}

func TestEmbeddedMigrationsValidate(t *testing.T) {
	fsys, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	if err := migrate.Validate(fsys); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	entries, _ := fs.ReadDir(fsys, ".")
	onDisk, _ := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if len(entries) != len(onDisk) {
		t.Fatalf("embedded %d migrations, %d on disk", len(entries), len(onDisk))
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.sql":              {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
		"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"README.md":            {Data: []byte("ignored")},
	}
	err := migrate.Validate(fsys)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", got, err)
	}
}

func TestCreateWritesValidTemplate(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	path, err := migrate.Create(dir, "Add Order Notes!", at)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if filepath.Base(path) != "20260302100000_add_order_notes.sql" {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.Create(dir, "add order notes", at); err == nil {
		t.Fatal("expected a clash on the same version and name")
	}
	if _, err := migrate.Create(dir, "!!!", at); err == nil {
		t.Fatal("expected an unusable name to fail")
	}
}
