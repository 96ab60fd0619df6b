package migrator

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

var columns = []string{"version", "description", "checksum", "applied_at", "applied_by", "duration_ms", "execution_order"}

func twoMigrations() []Migration {
	return []Migration{
		{Version: 1, Description: "create t1", SQL: "CREATE TABLE IF NOT EXISTS t1 (id INTEGER)", Kind: KindUp},
		{Version: 2, Description: "create t2", SQL: "CREATE TABLE IF NOT EXISTS t2 (id INTEGER)", Kind: KindUp},
	}
}

func TestBuildPlan_PendingAndApplied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	all := twoMigrations()
	rows := sqlmock.NewRows(columns).
		AddRow(int64(1), "create t1", all[0].Checksum(), int64(1735689600000), "tester", int64(5), int64(1))
	mock.ExpectQuery("SELECT version, description, checksum").WillReturnRows(rows)

	st := &Storage{DB: db, Table: "schema_migrations"}
	plan, err := BuildPlan(context.Background(), all, st)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.All) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(plan.All))
	}
	if len(plan.Pending) != 1 || plan.Pending[0].Version != 2 {
		t.Fatalf("expected version 2 pending, got %+v", plan.Pending)
	}
	if got := plan.Applied[1].AppliedBy; got != "tester" {
		t.Fatalf("applied_by = %q", got)
	}
	if len(plan.Unknown()) != 0 {
		t.Fatalf("unexpected unknown versions %v", plan.Unknown())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBuildPlan_GapIsPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	all := twoMigrations()
	rows := sqlmock.NewRows(columns).
		AddRow(int64(2), "create t2", all[1].Checksum(), int64(0), "tester", int64(0), int64(1))
	mock.ExpectQuery("SELECT version").WillReturnRows(rows)

	plan, err := BuildPlan(context.Background(), all, &Storage{DB: db, Table: "schema_migrations"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Pending) != 1 || plan.Pending[0].Version != 1 {
		t.Fatalf("expected older version 1 pending, got %+v", plan.Pending)
	}
}

func TestBuildPlan_Drift(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows(columns).
		AddRow(int64(1), "create t1", "0000deadbeef0000", int64(0), "tester", int64(0), int64(1))
	mock.ExpectQuery("SELECT version").WillReturnRows(rows)

	_, err = BuildPlan(context.Background(), twoMigrations(), &Storage{DB: db, Table: "schema_migrations"})
	if !errors.Is(err, ErrDrift) {
		t.Fatalf("expected drift, got %v", err)
	}
}

func TestBuildPlan_UnknownVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	all := twoMigrations()
	rows := sqlmock.NewRows(columns).
		AddRow(int64(9), "from a newer build", "x", int64(0), "tester", int64(0), int64(3)).
		AddRow(int64(4), "from a newer build", "y", int64(0), "tester", int64(0), int64(2))
	mock.ExpectQuery("SELECT version").WillReturnRows(rows)

	plan, err := BuildPlan(context.Background(), all, &Storage{DB: db, Table: "schema_migrations"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	got := plan.Unknown()
	if len(got) != 2 || got[0] != 4 || got[1] != 9 {
		t.Fatalf("unknown = %v", got)
	}
}

func TestBuildPlan_RejectsInvalidRegistry(t *testing.T) {
	all := append(twoMigrations(), Migration{Version: 2, Description: "again", SQL: "SELECT 1", Kind: KindUp})
	_, err := BuildPlan(context.Background(), all, &Storage{Table: "schema_migrations"})
	if !errors.Is(err, ErrDuplicateVersion) {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}
