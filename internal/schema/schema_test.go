package schema

import (
	"context"
	"database/sql"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/0viii0viii/shelves/internal/db"
	"github.com/0viii0viii/shelves/internal/migrator"
)

func TestMigrationsAreOrderedAndUnique(t *testing.T) {
	ms := Migrations()
	if err := migrator.Validate(ms, migrator.KindUp); err != nil {
		t.Fatalf("registry invalid: %v", err)
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].Version <= ms[i-1].Version {
			t.Fatalf("version %d follows %d", ms[i].Version, ms[i-1].Version)
		}
	}
	if Latest() != ms[len(ms)-1].Version {
		t.Fatalf("latest = %d", Latest())
	}
}

func TestMigrationsAreDeterministic(t *testing.T) {
	a := Migrations()
	a[0].SQL = "mutated"
	b := Migrations()
	if b[0].SQL == "mutated" {
		t.Fatal("callers can mutate the registry")
	}
	if !reflect.DeepEqual(Migrations(), b) {
		t.Fatal("successive calls differ")
	}
}

func TestRollbacksMatchVersions(t *testing.T) {
	ups, downs := Migrations(), Rollbacks()
	if err := migrator.Validate(downs, migrator.KindDown); err != nil {
		t.Fatalf("rollbacks invalid: %v", err)
	}
	if len(ups) != len(downs) {
		t.Fatalf("%d up vs %d down", len(ups), len(downs))
	}
	for i := range ups {
		if ups[i].Version != downs[i].Version {
			t.Fatalf("index %d: up %d down %d", i, ups[i].Version, downs[i].Version)
		}
	}
}

func migrated(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	database, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), DatabaseFile))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	run := migrator.NewRunner(database, "schema_migrations", "test")
	if _, err := run.Up(ctx, Migrations(), nil); err != nil {
		t.Fatalf("up: %v", err)
	}
	return database
}

func TestFreshDatabaseGetsExactlyTheThreeTables(t *testing.T) {
	database := migrated(t)
	ctx := context.Background()

	want := map[string][]string{
		"todos": {"id", "content", "completed", "sortOrder", "createdAt", "updatedAt"},
		"notes": {"id", "title", "isLocked", "password", "sortOrder", "createdAt", "updatedAt"},
		"memos": {"id", "noteId", "content", "sortOrder", "createdAt", "updatedAt"},
	}
	for table, cols := range want {
		got, err := db.TableColumns(ctx, database, table)
		if err != nil {
			t.Fatalf("%s: %v", table, err)
		}
		if !reflect.DeepEqual(got, cols) {
			t.Fatalf("%s columns = %v, want %v", table, got, cols)
		}
	}

	rows, err := database.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'schema_migrations' ORDER BY name`)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatal(err)
		}
		names = append(names, n)
	}
	if !reflect.DeepEqual(names, []string{"memos", "notes", "todos"}) {
		t.Fatalf("tables = %v", names)
	}
}

type column struct {
	name    string
	typ     string
	notNull bool
	dflt    string
	pk      bool
}

func tableInfo(t *testing.T, database *sql.DB, table string) []column {
	t.Helper()
	rows, err := database.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("table_info %s: %v", table, err)
	}
	defer rows.Close()
	var out []column
	for rows.Next() {
		var (
			c       column
			cid     int
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &c.name, &c.typ, &notNull, &dflt, &pk); err != nil {
			t.Fatal(err)
		}
		c.notNull, c.dflt, c.pk = notNull == 1, dflt.String, pk > 0
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestColumnConstraints(t *testing.T) {
	database := migrated(t)

	want := map[string][]column{
		"todos": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "content", typ: "TEXT", notNull: true},
			{name: "completed", typ: "INTEGER", notNull: true, dflt: "0"},
			{name: "sortOrder", typ: "INTEGER", notNull: true, dflt: "0"},
			{name: "createdAt", typ: "TEXT", notNull: true},
			{name: "updatedAt", typ: "TEXT"},
		},
		"notes": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "title", typ: "TEXT", notNull: true},
			{name: "isLocked", typ: "INTEGER", notNull: true, dflt: "0"},
			{name: "password", typ: "TEXT"},
			{name: "sortOrder", typ: "INTEGER", notNull: true, dflt: "0"},
			{name: "createdAt", typ: "TEXT", notNull: true},
			{name: "updatedAt", typ: "TEXT"},
		},
		"memos": {
			{name: "id", typ: "INTEGER", pk: true},
			{name: "noteId", typ: "INTEGER", notNull: true},
			{name: "content", typ: "TEXT", notNull: true},
			{name: "sortOrder", typ: "INTEGER", notNull: true, dflt: "0"},
			{name: "createdAt", typ: "TEXT", notNull: true},
			{name: "updatedAt", typ: "TEXT"},
		},
	}
	for table, cols := range want {
		if got := tableInfo(t, database, table); !reflect.DeepEqual(got, cols) {
			t.Fatalf("%s:\n got %+v\nwant %+v", table, got, cols)
		}
	}

	for _, table := range []string{"todos", "notes", "memos"} {
		var autoinc int
		err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = ? AND sql LIKE '%AUTOINCREMENT%'`, table).Scan(&autoinc)
		if err != nil || autoinc != 1 {
			t.Fatalf("%s id is not AUTOINCREMENT (%v)", table, err)
		}
	}

	rows, err := database.Query("PRAGMA foreign_key_list(memos)")
	if err != nil {
		t.Fatalf("foreign_key_list: %v", err)
	}
	defer rows.Close()
	type fk struct{ table, from, to, onUpdate, onDelete string }
	var fks []fk
	for rows.Next() {
		var (
			id, seq int
			f       fk
			match   string
		)
		if err := rows.Scan(&id, &seq, &f.table, &f.from, &f.to, &f.onUpdate, &f.onDelete, &match); err != nil {
			t.Fatal(err)
		}
		fks = append(fks, f)
	}
	wantFK := []fk{{table: "notes", from: "noteId", to: "id", onUpdate: "NO ACTION", onDelete: "CASCADE"}}
	if !reflect.DeepEqual(fks, wantFK) {
		t.Fatalf("memos foreign keys = %+v", fks)
	}
	for _, table := range []string{"todos", "notes"} {
		var n int
		if err := database.QueryRow("SELECT COUNT(*) FROM pragma_foreign_key_list(?)", table).Scan(&n); err != nil || n != 0 {
			t.Fatalf("%s has %d foreign keys (%v)", table, n, err)
		}
	}
}

func TestRerunIsNoop(t *testing.T) {
	database := migrated(t)
	ctx := context.Background()
	run := migrator.NewRunner(database, "schema_migrations", "test")
	applied, err := run.Up(ctx, Migrations(), nil)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("re-run applied %d versions", len(applied))
	}

	// statements alone are also safe to replay thanks to the existence guards
	for _, m := range Migrations() {
		if _, err := database.ExecContext(ctx, m.SQL); err != nil {
			t.Fatalf("replay %d: %v", m.Version, err)
		}
	}
}

func TestDeletingNoteCascadesToMemos(t *testing.T) {
	database := migrated(t)
	ctx := context.Background()

	res, err := database.ExecContext(ctx, `INSERT INTO notes (title, createdAt) VALUES ('n', '2025-01-01T00:00:00.000Z')`)
	if err != nil {
		t.Fatalf("insert note: %v", err)
	}
	noteID, _ := res.LastInsertId()
	for i := 0; i < 2; i++ {
		if _, err := database.ExecContext(ctx, `INSERT INTO memos (noteId, content, createdAt) VALUES (?, 'm', '2025-01-01T00:00:00.000Z')`, noteID); err != nil {
			t.Fatalf("insert memo: %v", err)
		}
	}
	if _, err := database.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, noteID); err != nil {
		t.Fatalf("delete note: %v", err)
	}
	var n int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM memos`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected cascade to remove memos, %d left", n)
	}
}

func TestMemoRequiresExistingNote(t *testing.T) {
	database := migrated(t)
	_, err := database.Exec(`INSERT INTO memos (noteId, content, createdAt) VALUES (42, 'm', '2025-01-01T00:00:00.000Z')`)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}
