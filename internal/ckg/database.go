package ckg

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000

// Database is an open knowledge graph store bound to one fingerprint.
type Database struct {
	// Path is the store file.
	Path string
	// Fingerprint is the codebase digest the store was built for.
	Fingerprint string

	db *sql.DB
}

// openDatabase opens or creates the store at path with WAL, a busy timeout
// and a single connection, and applies the schema.
func openDatabase(ctx context.Context, path, fingerprint string) (*Database, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ckg: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ckg: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ckg: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Database{Path: path, Fingerprint: fingerprint, db: db}, nil
}

// Close releases the connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// insert writes all entries in one transaction, file by file.
func (d *Database) insert(ctx context.Context, files []FileEntries) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ckg: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	fnStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO functions (name, file_path, body, start_line, end_line, parent_function, parent_class)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ckg: prepare functions: %w", err)
	}
	defer func() { _ = fnStmt.Close() }()

	clsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO classes (name, file_path, body, fields, methods, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ckg: prepare classes: %w", err)
	}
	defer func() { _ = clsStmt.Close() }()

	for _, f := range files {
		for _, c := range f.Classes {
			if _, err := clsStmt.ExecContext(ctx,
				c.Name, c.FilePath, c.Body, nullable(c.Fields), nullable(c.Methods), c.StartLine, c.EndLine,
			); err != nil {
				return fmt.Errorf("ckg: insert class %s: %w", c.Name, err)
			}
		}
		for _, fn := range f.Functions {
			if _, err := fnStmt.ExecContext(ctx,
				fn.Name, fn.FilePath, fn.Body, fn.StartLine, fn.EndLine, nullable(fn.ParentFunction), nullable(fn.ParentClass),
			); err != nil {
				return fmt.Errorf("ckg: insert function %s: %w", fn.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ckg: commit: %w", err)
	}
	return nil
}

// QueryFunctions returns the entries named name, in insertion order.
func (d *Database) QueryFunctions(ctx context.Context, name string, kind FunctionKind) ([]FunctionEntry, error) {
	query := `SELECT name, file_path, body, start_line, end_line, parent_function, parent_class
		FROM functions WHERE name = ? AND parent_class IS NULL ORDER BY id`
	if kind == ClassMethod {
		query = `SELECT name, file_path, body, start_line, end_line, parent_function, parent_class
			FROM functions WHERE name = ? AND parent_class IS NOT NULL ORDER BY id`
	}

	rows, err := d.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("ckg: query functions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FunctionEntry
	for rows.Next() {
		var (
			e              FunctionEntry
			parentFunction sql.NullString
			parentClass    sql.NullString
		)
		if err := rows.Scan(&e.Name, &e.FilePath, &e.Body, &e.StartLine, &e.EndLine, &parentFunction, &parentClass); err != nil {
			return nil, fmt.Errorf("ckg: scan function: %w", err)
		}
		e.ParentFunction = parentFunction.String
		e.ParentClass = parentClass.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ckg: iterate functions: %w", err)
	}
	return out, nil
}

// QueryClasses returns the classes named name, in insertion order.
func (d *Database) QueryClasses(ctx context.Context, name string) ([]ClassEntry, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT name, file_path, body, fields, methods, start_line, end_line
		FROM classes WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("ckg: query classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ClassEntry
	for rows.Next() {
		var (
			e       ClassEntry
			fields  sql.NullString
			methods sql.NullString
		)
		if err := rows.Scan(&e.Name, &e.FilePath, &e.Body, &fields, &methods, &e.StartLine, &e.EndLine); err != nil {
			return nil, fmt.Errorf("ckg: scan class: %w", err)
		}
		e.Fields = fields.String
		e.Methods = methods.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ckg: iterate classes: %w", err)
	}
	return out, nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
