package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/katalvlaran/lvplan/graph"
)

// DefaultPrefix is the key prefix node records are stored under.
const DefaultPrefix = "node/"

// sequencePrefix keys the id sequences. '!' cannot start a namespace, so no record
// prefix handed out by Store covers a sequence key.
const sequencePrefix = "!seq/"

// sequenceBandwidth is the number of ids leased from badger per round trip.
const sequenceBandwidth = 64

// BadgerConfig configures OpenBadger.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory.
	Path string

	// InMemory keeps the database in memory only.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Prefix namespaces the records; several collections may share one database.
	// Default: DefaultPrefix.
	Prefix string

	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerCollection is a graph.Collection over a badger database.
type BadgerCollection struct {
	db     *badger.DB
	prefix []byte
	seq    *badger.Sequence
	ownsDB bool
}

var _ Closer = (*BadgerCollection)(nil)

// OpenBadger opens a database per cfg and returns a collection owning it.
func OpenBadger(cfg BadgerConfig) (*BadgerCollection, error) {
	db, err := openBadgerDB(cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewBadgerCollection(db, cfg.Prefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.ownsDB = true

	return c, nil
}

func openBadgerDB(cfg BadgerConfig) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("storage: badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("storage: create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger: %w", err)
	}

	return db, nil
}

// NewBadgerCollection wraps an open database. Close releases the id sequence
// but leaves db open. An empty prefix means DefaultPrefix.
func NewBadgerCollection(db *badger.DB, prefix string) (*BadgerCollection, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	seq, err := db.GetSequence([]byte(sequencePrefix+prefix), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("storage: lease id sequence: %w", err)
	}

	return &BadgerCollection{db: db, prefix: []byte(prefix), seq: seq}, nil
}

func (c *BadgerCollection) key(id string) []byte {
	return append(append([]byte(nil), c.prefix...), id...)
}

// Keys returns record keys in byte order.
func (c *BadgerCollection) Keys() ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = c.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(c.prefix); it.ValidForPrefix(c.prefix); it.Next() {
			keys = append(keys, string(it.Item().Key()[len(c.prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}

	return keys, nil
}

// Insert stores rec unless key is live. Errors: graph.ErrDuplicateNode.
func (c *BadgerCollection) Insert(key string, rec graph.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(c.key(key))
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", graph.ErrDuplicateNode, key)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(c.key(key), data)
	})
}

// Put stores or replaces rec.
func (c *BadgerCollection) Put(key string, rec graph.Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key(key), data)
	})
}

// Get loads the record under key. Errors: graph.ErrNodeNotFound.
func (c *BadgerCollection) Get(key string) (graph.Record, error) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return graph.Record{}, fmt.Errorf("%w: %s", graph.ErrNodeNotFound, key)
	}
	if err != nil {
		return graph.Record{}, err
	}

	return DecodeRecord(data)
}

// NextID returns the next sequence value not used as a key.
func (c *BadgerCollection) NextID() (string, error) {
	for {
		n, err := c.seq.Next()
		if err != nil {
			return "", fmt.Errorf("storage: next id: %w", err)
		}
		id := strconv.FormatUint(n, 10)
		live, err := c.exists(id)
		if err != nil {
			return "", err
		}
		if !live {
			return id, nil
		}
	}
}

func (c *BadgerCollection) exists(id string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(c.key(id))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Close releases the id sequence and, when opened by OpenBadger, the database.
func (c *BadgerCollection) Close() error {
	err := c.seq.Release()
	if c.ownsDB {
		err = errors.Join(err, c.db.Close())
	}

	return err
}
