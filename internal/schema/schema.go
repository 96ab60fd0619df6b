// Package schema holds the versioned schema of the shelves database.
//
// Versions are never reused or edited once shipped; a change to the schema is
// a new version appended at the end of the list.
package schema

import "github.com/0viii0viii/shelves/internal/migrator"

// DatabaseFile is the SQLite file name, relative to the data directory.
const DatabaseFile = "shelves.db"

var up = []migrator.Migration{
	{
		Version:     1,
		Description: "create todos table",
		SQL: `CREATE TABLE IF NOT EXISTS todos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    sortOrder INTEGER NOT NULL DEFAULT 0,
    createdAt TEXT NOT NULL,
    updatedAt TEXT
)`,
		Kind: migrator.KindUp,
	},
	{
		Version:     2,
		Description: "create notes table",
		SQL: `CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    isLocked INTEGER NOT NULL DEFAULT 0,
    password TEXT,
    sortOrder INTEGER NOT NULL DEFAULT 0,
    createdAt TEXT NOT NULL,
    updatedAt TEXT
)`,
		Kind: migrator.KindUp,
	},
	{
		Version:     3,
		Description: "create memos table",
		SQL: `CREATE TABLE IF NOT EXISTS memos (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    noteId INTEGER NOT NULL,
    content TEXT NOT NULL,
    sortOrder INTEGER NOT NULL DEFAULT 0,
    createdAt TEXT NOT NULL,
    updatedAt TEXT,
    FOREIGN KEY (noteId) REFERENCES notes (id) ON DELETE CASCADE
)`,
		Kind: migrator.KindUp,
	},
}

var down = []migrator.Migration{
	{Version: 1, Description: "drop todos table", SQL: `DROP TABLE IF EXISTS todos`, Kind: migrator.KindDown},
	{Version: 2, Description: "drop notes table", SQL: `DROP TABLE IF EXISTS notes`, Kind: migrator.KindDown},
	{Version: 3, Description: "drop memos table", SQL: `DROP TABLE IF EXISTS memos`, Kind: migrator.KindDown},
}

// Migrations returns the forward migrations in version order.
// The slice is a fresh copy on every call.
func Migrations() []migrator.Migration {
	return append([]migrator.Migration(nil), up...)
}

// Rollbacks returns the down migrations, one per forward version.
func Rollbacks() []migrator.Migration {
	return append([]migrator.Migration(nil), down...)
}

// Latest is the newest forward version.
func Latest() int64 {
	return up[len(up)-1].Version
}
