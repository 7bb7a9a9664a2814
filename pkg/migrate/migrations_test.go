package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/literature-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.ValidateFS(migrate.Migrations()); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestEmbeddedMatchesSourceDir(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	embedded, err := fs.Glob(migrate.Migrations(), "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	if len(onDisk) != len(embedded) {
		t.Fatalf("embedded %d migrations, %d on disk", len(embedded), len(onDisk))
	}
}

func TestInventoryMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_inventory_records.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS inventory_records",
		"UNIQUE (organization_id, literature_id)",
		"CHECK (quantity >= 0)",
		"CHECK (reserved_quantity >= 0)",
		"CHECK (reserved_quantity <= quantity)",
		"DROP TABLE IF EXISTS inventory_records",
	}
	assertContains(t, content, checks)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT ux_orders_order_number UNIQUE (order_number)",
		"CREATE TABLE IF NOT EXISTS order_items",
		"REFERENCES orders(id) ON DELETE CASCADE",
		"UNIQUE (order_id, literature_id)",
		"CHECK (quantity > 0)",
		"DROP TABLE IF EXISTS order_items",
	}
	assertContains(t, content, checks)
}

func TestTransactionsMigrationIsAppendOnlyShape(t *testing.T) {
	content := readMigration(t, "*_create_transactions.sql")

	checks := []string{
		"reverses_id uuid NULL REFERENCES transactions(id)",
		"UNIQUE (reverses_id)",
		"transfer_id uuid NULL",
		"CHECK (transfer_id IS NULL OR order_id IS NULL)",
		"(type = 'INCOMING' AND direction = 'IN')",
		"(type = 'OUTGOING' AND direction = 'OUT')",
	}
	assertContains(t, content, checks)
}

func TestEnumMigrationListsOrderStatuses(t *testing.T) {
	content := readMigration(t, "*_create_enum_types.sql")

	for _, status := range []string{"'DRAFT'", "'PENDING'", "'APPROVED'", "'IN_ASSEMBLY'", "'SHIPPED'", "'DELIVERED'", "'COMPLETED'", "'REJECTED'"} {
		if !strings.Contains(content, status) {
			t.Errorf("order_status enum missing %s", status)
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Order Notes!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260203040506_add_order_notes.sql" {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.ValidateFS(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add order notes", now); err == nil {
		t.Fatalf("expected duplicate migration error")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateFS(os.DirFS(dir)); err == nil {
		t.Fatalf("expected invalid filename error")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateFS(os.DirFS(dir)); err == nil {
		t.Fatalf("expected unbalanced statement error")
	}
}
