package library

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	archiveSchemaVersion = 1
	archiveInsertBatch   = 500
	dialectSQLite        = "sqlite3"
	tableBooks           = "books"
	tableUsers           = "users"
	tableLoans           = "loans"
	tableExports         = "exports"
	colPosition          = "position"
	colExportedAt        = "exported_at"
)

// Snapshot is the complete library state at one point in time.
type Snapshot struct {
	Books []Book
	Users []User
	Loans []Loan
}

// Export describes one archive write.
type Export struct {
	ID         string    `db:"id"`
	ExportedAt time.Time `db:"exported_at"`
	BookCount  int       `db:"book_count"`
	UserCount  int       `db:"user_count"`
	LoanCount  int       `db:"loan_count"`
}

// Archive stores snapshots of the library in a SQLite database. Each write
// replaces the previous contents and is recorded in the exports table.
type Archive struct {
	db *sqlx.DB
}

// OpenArchive opens (or creates) the SQLite archive at path and applies the
// schema.
func OpenArchive(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", path)
	db, err := sqlx.Open(dialectSQLite, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyArchiveSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

// ---------------------------------------------------------------------------
// Schema
// ---------------------------------------------------------------------------

func applyArchiveSchema(db *sqlx.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	err := db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current >= archiveSchemaVersion {
		return nil
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER PRIMARY KEY,
            id INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            pages INTEGER NOT NULL,
            is_borrowed BOOLEAN NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            position INTEGER PRIMARY KEY,
            id INTEGER NOT NULL,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            position INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            book_id INTEGER NOT NULL,
            loan_date TEXT NOT NULL,
            return_date TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS exports (
            id TEXT PRIMARY KEY,
            exported_at DATETIME NOT NULL,
            book_count INTEGER NOT NULL,
            user_count INTEGER NOT NULL,
            loan_count INTEGER NOT NULL
        );`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, archiveSchemaVersion); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Write
// ---------------------------------------------------------------------------

// WriteSnapshot replaces the archived state with s in a single transaction and
// returns the id of the recorded export.
func (a *Archive) WriteSnapshot(s Snapshot) (string, error) {
	tx, err := a.db.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	for _, table := range []string{tableBooks, tableUsers, tableLoans} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return "", fmt.Errorf("clear %s: %w", table, err)
		}
	}

	books := make([]any, len(s.Books))
	for i, b := range s.Books {
		books[i] = goqu.Record{
			colPosition:   i,
			"id":          b.ID,
			"title":       b.Title,
			"author":      b.Author,
			"pages":       b.Pages,
			"is_borrowed": b.IsBorrowed,
		}
	}
	users := make([]any, len(s.Users))
	for i, u := range s.Users {
		users[i] = goqu.Record{colPosition: i, "id": u.ID, "name": u.Name}
	}
	loans := make([]any, len(s.Loans))
	for i, l := range s.Loans {
		var returnDate any
		if l.ReturnDate != nil {
			returnDate = *l.ReturnDate
		}
		loans[i] = goqu.Record{
			colPosition:   i,
			"user_id":     l.UserID,
			"book_id":     l.BookID,
			"loan_date":   l.LoanDate,
			"return_date": returnDate,
		}
	}

	for table, rows := range map[string][]any{tableBooks: books, tableUsers: users, tableLoans: loans} {
		if err := insertRows(tx, table, rows); err != nil {
			return "", err
		}
	}

	export := goqu.Record{
		"id":          uuid.NewString(),
		colExportedAt: time.Now().UTC(),
		"book_count":  len(s.Books),
		"user_count":  len(s.Users),
		"loan_count":  len(s.Loans),
	}
	if err := insertRows(tx, tableExports, []any{export}); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return export["id"].(string), nil
}

func insertRows(tx *sqlx.Tx, table string, rows []any) error {
	for start := 0; start < len(rows); start += archiveInsertBatch {
		end := min(start+archiveInsertBatch, len(rows))
		query, args, err := goqu.Dialect(dialectSQLite).
			Insert(table).
			Prepared(true).
			Rows(rows[start:end]...).
			ToSQL()
		if err != nil {
			return fmt.Errorf("build insert for %s: %w", table, err)
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Read
// ---------------------------------------------------------------------------

// ReadSnapshot loads the archived state in its original order.
func (a *Archive) ReadSnapshot() (Snapshot, error) {
	s := Snapshot{Books: []Book{}, Users: []User{}, Loans: []Loan{}}

	if err := a.selectOrdered(&s.Books, tableBooks, "id", "title", "author", "pages", "is_borrowed"); err != nil {
		return Snapshot{}, err
	}
	if err := a.selectOrdered(&s.Users, tableUsers, "id", "name"); err != nil {
		return Snapshot{}, err
	}
	if err := a.selectOrdered(&s.Loans, tableLoans, "user_id", "book_id", "loan_date", "return_date"); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

func (a *Archive) selectOrdered(dest any, table string, cols ...any) error {
	query, _, err := goqu.Dialect(dialectSQLite).
		From(table).
		Select(cols...).
		Order(goqu.I(colPosition).Asc()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build select for %s: %w", table, err)
	}
	if err := a.db.Select(dest, query); err != nil {
		return fmt.Errorf("read %s: %w", table, err)
	}
	return nil
}

// ErrNoExports is returned by LastExport on an archive that was never written.
var ErrNoExports = errors.New("archive has no exports")

// LastExport returns the most recent export record.
func (a *Archive) LastExport() (Export, error) {
	query, _, err := goqu.Dialect(dialectSQLite).
		From(tableExports).
		Select("id", colExportedAt, "book_count", "user_count", "loan_count").
		Order(goqu.I(colExportedAt).Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return Export{}, fmt.Errorf("build select for %s: %w", tableExports, err)
	}

	var exports []Export
	if err := a.db.Select(&exports, query); err != nil {
		return Export{}, fmt.Errorf("read %s: %w", tableExports, err)
	}
	if len(exports) == 0 {
		return Export{}, ErrNoExports
	}
	return exports[0], nil
}
