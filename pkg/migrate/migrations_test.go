package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/settlement-engine/pkg/migrate"
)

func TestSourceAndEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, migrate.Validate(os.DirFS("migrations")))
	require.NoError(t, migrate.Validate(migrate.Embedded()))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embedded, err := fs.Glob(migrate.Embedded(), "*.sql")
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestValidateRejectsBrokenMigrations(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {
			"add_orders.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"duplicate version": {
			"20260101090000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101090000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {
			"20260101090000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
		"down first": {
			"20260101090000_a.sql": {Data: []byte("-- +goose Down\n-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, migrate.Validate(fsys))
		})
	}
}

func TestCreateSQLMigrationWritesValidFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := migrate.CreateSQLMigration(dir, "Add Payout Batches!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260304050607_add_payout_batches.sql"), path)
	require.NoError(t, migrate.Validate(os.DirFS(dir)))

	_, err = migrate.CreateSQLMigration(dir, "add payout batches", now)
	require.Error(t, err, "same timestamp and name must not overwrite")

	_, err = migrate.CreateSQLMigration(dir, "!!!", now)
	require.Error(t, err)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CONSTRAINT orders_order_number_key UNIQUE (order_number)",
		"CHECK (total_cents = subtotal_cents + shipping_cents + tax_cents - discount_cents)",
		"CHECK (refund_amount_cents >= 0 AND refund_amount_cents <= total_cents)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestPaymentsMigrationEnforcesSingleCompletedPayment(t *testing.T) {
	content := readMigration(t, "*_create_payments_refunds_disputes.sql")

	checks := []string{
		"CONSTRAINT payments_stripe_session_id_key UNIQUE (stripe_session_id)",
		"payments_one_completed_per_order",
		"WHERE status = 'completed'",
		"disputes_one_open_per_order",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestWalletMigrationIsAppendOnly(t *testing.T) {
	content := readMigration(t, "*_create_wallets.sql")
	if !strings.Contains(content, "BEFORE UPDATE OR DELETE ON wallet_transactions") {
		t.Fatalf("wallet transactions trigger missing")
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

func TestLedgerEnumGainsWalletDebited(t *testing.T) {
	content := readMigration(t, "*_add_wallet_debited_ledger_event.sql")
	if !strings.Contains(content, "ADD VALUE IF NOT EXISTS 'wallet_debited'") {
		t.Fatalf("wallet_debited enum value missing")
	}
	if !strings.HasPrefix(content, "-- +goose NO TRANSACTION") {
		t.Fatalf("enum change must run outside a transaction")
	}
}
