package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalvlaran/lvplan/graph"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// ErrUnknownBackend indicates a Config.Backend Open does not support.
var ErrUnknownBackend = errors.New("storage: unknown backend")

// Config selects and locates a backend.
type Config struct {
	Backend string

	// Path is the badger directory or the SQLite file. Ignored for memory.
	Path string

	// InMemory runs badger without disk, or SQLite on MemoryPath.
	InMemory bool
}

// Store hands out namespaced collections over one backend.
type Store struct {
	cfg    Config
	logger *slog.Logger
	db     *badger.DB

	mu     sync.Mutex
	opened []Closer
}

// Open prepares the backend named by cfg. Collections are created by Collection.
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{cfg: cfg, logger: logger}

	switch cfg.Backend {
	case "", BackendMemory:
		s.cfg.Backend = BackendMemory
	case BackendBadger:
		db, err := openBadgerDB(BadgerConfig{Path: cfg.Path, InMemory: cfg.InMemory, Logger: logger})
		if err != nil {
			return nil, err
		}
		s.db = db
	case BackendSQLite:
		if !cfg.InMemory && cfg.Path == "" {
			return nil, errors.New("storage: sqlite path is required for a persistent database")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	logger.Debug("storage opened", slog.String("backend", s.cfg.Backend), slog.String("path", cfg.Path))

	return s, nil
}

// Backend returns the backend name.
func (s *Store) Backend() string { return s.cfg.Backend }

// Collection returns the collection for namespace, e.g. "domain" or "search".
// namespace must be a valid SQL identifier.
func (s *Store) Collection(namespace string) (graph.Collection, error) {
	if !tableName.MatchString(namespace) {
		return nil, fmt.Errorf("storage: invalid namespace %q", namespace)
	}

	var (
		c   Closer
		err error
	)
	switch s.cfg.Backend {
	case BackendMemory:
		return graph.NewMemoryCollection(), nil
	case BackendBadger:
		c, err = NewBadgerCollection(s.db, namespace+"/")
	case BackendSQLite:
		path := s.cfg.Path
		if s.cfg.InMemory {
			path = MemoryPath
		}
		c, err = OpenSQLite(SQLiteConfig{Path: path, Table: namespace + "_" + DefaultTable})
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.opened = append(s.opened, c)
	s.mu.Unlock()
	s.logger.Debug("collection opened", slog.String("backend", s.cfg.Backend), slog.String("namespace", namespace))

	return c, nil
}

// Close closes every collection handed out, then the shared database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, c := range s.opened {
		errs = append(errs, c.Close())
	}
	s.opened = nil
	if s.db != nil {
		errs = append(errs, s.db.Close())
		s.db = nil
	}

	return errors.Join(errs...)
}

// DefaultPath returns the conventional location of a backend under dir.
func DefaultPath(backend, dir string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(dir, "lvplan.db")
	case BackendBadger:
		return filepath.Join(dir, "badger")
	default:
		return ""
	}
}
