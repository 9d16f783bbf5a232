package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/codr1/ShotSpot/internal/db"
	"github.com/codr1/ShotSpot/internal/testutil"
)

func TestMigrationsApplied(t *testing.T) {
	database := testutil.NewTestDB(t)

	expectedTables := []string{
		"users",
		"clubs",
		"teams",
		"players",
		"competitions",
		"games",
		"game_rosters",
		"shots",
		"game_events",
		"substitutions",
		"competition_teams",
		"tournament_brackets",
		"competition_standings",
		"achievements",
		"player_achievements",
		"export_settings",
		"exports",
		"scheduled_reports",
		"twizzit_credentials",
		"twizzit_mappings",
		"twizzit_sync_logs",
	}

	for _, table := range expectedTables {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}

	var seeded int
	if err := database.QueryRow("SELECT COUNT(*) FROM achievements").Scan(&seeded); err != nil {
		t.Fatalf("count achievements: %v", err)
	}
	if seeded == 0 {
		t.Fatalf("expected default achievements to be seeded")
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	database := testutil.NewTestDB(t)

	var foreignKeysEnabled int
	if err := database.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err := database.Exec(`INSERT INTO teams (club_id, name) VALUES (9999, 'Orphans')`)
	if err == nil {
		t.Fatal("expected foreign key constraint failure for invalid club_id")
	}
}

func TestRunInTxRollsBack(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := database.RunInTx(ctx, func(tx *db.DB) error {
		testutil.SeedClub(t, tx.Queries, "KC Rollback")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM clubs").Scan(&count); err != nil {
		t.Fatalf("count clubs: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d clubs", count)
	}
}

func TestMigrateDownAndVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	version, dirty, err := db.MigrationVersion(path)
	if err != nil || version != 0 || dirty {
		t.Fatalf("fresh database: version=%d dirty=%v err=%v", version, dirty, err)
	}

	database, err := db.New(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	database.Close()

	version, dirty, err = db.MigrationVersion(path)
	if err != nil || version != 1 || dirty {
		t.Fatalf("after up: version=%d dirty=%v err=%v", version, dirty, err)
	}

	if err := db.MigrateDown(path); err != nil {
		t.Fatalf("down: %v", err)
	}
	version, _, err = db.MigrationVersion(path)
	if err != nil || version != 0 {
		t.Fatalf("after down: version=%d err=%v", version, err)
	}
}
