package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/gigescrow-backend/pkg/migrate"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestDisputesMigrationEnforcesSingleActiveDispute(t *testing.T) {
	content := readMigration(t, "create_disputes")

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS disputes",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_disputes_active_order",
		"WHERE status IN ('open', 'under_review')",
		"DROP TABLE IF EXISTS disputes",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMoneyColumnsUseNumeric(t *testing.T) {
	checks := map[string][]string{
		"create_users_services_reviews": {
			"wallet numeric(12,2) NOT NULL DEFAULT 0",
			"CHECK (wallet >= 0)",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_reviews_user_service",
		},
		"create_orders_milestones": {
			"escrow_amount numeric(12,2) NOT NULL",
			"commission_amount numeric(12,2) NOT NULL",
			"platform_fee_percent numeric(5,2) NOT NULL",
			"CHECK (amount > 0)",
		},
		"create_wallet_transactions": {
			"affects_balance boolean NOT NULL DEFAULT true",
			"CHECK (amount >= 0)",
		},
		"create_coupons": {
			"CHECK (used_count >= 0 AND used_count <= max_usage)",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_coupons_code",
		},
		"create_withdrawal_requests": {
			"ux_withdrawal_requests_pending_seller",
		},
	}

	for suffix, subs := range checks {
		content := readMigration(t, suffix)
		for _, sub := range subs {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	require.Error(t, migrate.ValidateDir(dir))
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_only_up.sql"), []byte("-- +goose Up\n"), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "goose Down")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()

	path, err := migrate.CreateSQLMigration(dir, "Add Payout Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_payout_index.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion("20260301090500")
	require.NoError(t, err)
	require.Equal(t, int64(20260301090500), v)

	_, err = migrate.ParseVersion("2026")
	require.Error(t, err)
}

func TestValidateDirRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x();\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_swapped.sql"), []byte(body), 0o644))

	err := migrate.ValidateDir(dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must come after")
}

func TestCreateSQLMigrationStaysAfterLatestVersion(t *testing.T) {
	dir := t.TempDir()
	future := "20991231235959_far_future.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := migrate.CreateSQLMigration(dir, "release escrow index")
	require.NoError(t, err)
	require.Equal(t, "21000101000000_release_escrow_index.sql", filepath.Base(path))

	files, err := migrate.ListDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "far_future", files[0].Name)
	require.Equal(t, "release_escrow_index", files[1].Name)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationRejectsEmptyName(t *testing.T) {
	_, err := migrate.CreateSQLMigration(t.TempDir(), " !! ")
	require.Error(t, err)
}

func TestListDirOrdersShippedMigrations(t *testing.T) {
	files, err := migrate.ListDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	require.Equal(t, "create_enum_types", files[0].Name)
	for i := 1; i < len(files); i++ {
		require.Less(t, files[i-1].Version, files[i].Version)
	}
}
