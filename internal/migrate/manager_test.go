package migrate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// writeLayout builds the shipped directory shape: seeds nested under the
// migrations root.
func writeLayout(t *testing.T) (migrationsDir, seedsDir string) {
	t.Helper()
	migrationsDir = filepath.Join(t.TempDir(), "migrations")
	seedsDir = filepath.Join(migrationsDir, "seeds")
	if err := os.MkdirAll(seedsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(migrationsDir, "0001_init.sql"):  "create table profiles (id text primary key)",
		filepath.Join(migrationsDir, "0002_leads.sql"): "create table leads (id text primary key)",
		filepath.Join(seedsDir, "0001_demo.sql"):       "insert into profiles(id) values ('demo-free')",
		filepath.Join(migrationsDir, "README.md"):      "notes",
	}
	for path, body := range files {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return migrationsDir, seedsDir
}

func TestCollectSQLSkipsNestedSeeds(t *testing.T) {
	migrationsDir, seedsDir := writeLayout(t)

	files, err := collectSQL(migrationsDir)
	if err != nil {
		t.Fatalf("collectSQL(migrations): %v", err)
	}
	got := make([]string, 0, len(files))
	for _, f := range files {
		got = append(got, f.base)
	}
	want := []string{"0001_init.sql", "0002_leads.sql"}
	if len(got) != len(want) {
		t.Fatalf("migration files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("migration files = %v, want %v", got, want)
		}
	}

	seeds, err := collectSQL(seedsDir)
	if err != nil {
		t.Fatalf("collectSQL(seeds): %v", err)
	}
	if len(seeds) != 1 || seeds[0].base != "0001_demo.sql" {
		t.Fatalf("seed files = %v, want [0001_demo.sql]", seeds)
	}
}

func TestCollectSQLMissingDir(t *testing.T) {
	files, err := collectSQL(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("collectSQL: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("got %d files from missing dir", len(files))
	}
}

func TestUpAppliesSchemaFilesOnly(t *testing.T) {
	migrationsDir, _ := writeLayout(t)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`create table if not exists schema_migrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select name from schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	mock.ExpectBegin()
	mock.ExpectExec(`create table profiles`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`insert into schema_migrations`).
		WithArgs("0001_init.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectBegin()
	mock.ExpectExec(`create table leads`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec(`insert into schema_migrations`).
		WithArgs("0002_leads.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mgr := NewManager(db, migrationsDir, filepath.Join(migrationsDir, "seeds"))
	if err := mgr.Up(context.Background()); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSeedAppliesSeedFilesOnly(t *testing.T) {
	migrationsDir, seedsDir := writeLayout(t)

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(`create table if not exists schema_seeds`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`select name from schema_seeds`).
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	mock.ExpectBegin()
	mock.ExpectExec(`insert into profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec(`insert into schema_seeds`).
		WithArgs("0001_demo.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mgr := NewManager(db, migrationsDir, seedsDir)
	if err := mgr.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
