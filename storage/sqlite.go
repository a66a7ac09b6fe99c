package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/katalvlaran/lvplan/graph"
)

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// DefaultTable is the table node records are stored in.
const DefaultTable = "nodes"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	// Path is the database file, or MemoryPath.
	Path string

	// Table holds the records. Default: DefaultTable. Several collections may share a file.
	Table string
}

// SQLiteCollection is a graph.Collection over a SQLite table
// nodes(id TEXT PRIMARY KEY, data BLOB). Keys come back in insertion order.
type SQLiteCollection struct {
	db    *sql.DB
	table string
}

var _ Closer = (*SQLiteCollection)(nil)

// OpenSQLite opens or creates the database and migrates the schema.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteCollection, error) {
	if cfg.Path == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !tableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("storage: invalid table name %q", cfg.Table)
	}
	if cfg.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if cfg.Path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	if cfg.Path != MemoryPath {
		pragmas = append([]string{"PRAGMA journal_mode = WAL"}, pragmas...)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("storage: pragma %q: %w", p, err)
		}
	}

	c := &SQLiteCollection{db: db, table: cfg.Table}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migration: %w", err)
	}

	return c, nil
}

func (c *SQLiteCollection) migrate() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id   TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sequences (
			name  TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`, c.table)
	_, err := c.db.Exec(schema)

	return err
}

// Keys returns keys in insertion order.
func (c *SQLiteCollection) Keys() ([]string, error) {
	rows, err := c.db.Query(fmt.Sprintf("SELECT id FROM %s ORDER BY rowid", c.table))
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		keys = append(keys, id)
	}

	return keys, rows.Err()
}

// Insert stores rec unless key is live. Errors: graph.ErrDuplicateNode.
func (c *SQLiteCollection) Insert(key string, rec graph.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	res, err := c.db.Exec(fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES (?, ?) ON CONFLICT(id) DO NOTHING", c.table), key, data)
	if err != nil {
		return fmt.Errorf("storage: insert %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", graph.ErrDuplicateNode, key)
	}

	return nil
}

// Put stores or replaces rec, keeping the original insertion position.
func (c *SQLiteCollection) Put(key string, rec graph.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		c.table), key, data)
	if err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}

	return nil
}

// Get loads the record under key. Errors: graph.ErrNodeNotFound.
func (c *SQLiteCollection) Get(key string) (graph.Record, error) {
	var data []byte
	err := c.db.QueryRow(fmt.Sprintf("SELECT data FROM %s WHERE id = ?", c.table), key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.Record{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, key)
	}
	if err != nil {
		return graph.Record{}, fmt.Errorf("storage: get %s: %w", key, err)
	}

	return DecodeRecord(data)
}

// NextID advances the table's sequence past live keys.
func (c *SQLiteCollection) NextID() (string, error) {
	for {
		var n int64
		err := c.db.QueryRow(`
			INSERT INTO sequences (name, value) VALUES (?, 0)
			ON CONFLICT(name) DO UPDATE SET value = value + 1
			RETURNING value`, c.table).Scan(&n)
		if err != nil {
			return "", fmt.Errorf("storage: next id: %w", err)
		}
		id := strconv.FormatInt(n, 10)

		var one int
		err = c.db.QueryRow(fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", c.table), id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return id, nil
		}
		if err != nil {
			return "", fmt.Errorf("storage: next id: %w", err)
		}
	}
}

// Len returns the number of records.
func (c *SQLiteCollection) Len() (int, error) {
	var n int
	err := c.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(&n)

	return n, err
}

// Close closes the database.
func (c *SQLiteCollection) Close() error { return c.db.Close() }
