// Package config loads lvplan run settings from YAML with environment overrides.
//
// Priority: environment > file > defaults.
//
//	search:
//	  max_nodes: 100000   # 0 = unbounded
//	  backtrack: true
//	  selector: max       # max | min
//	  until: result       # solved once this key is readable
//	storage:
//	  backend: memory     # memory | badger | sqlite
//	  path: ""
//	  in_memory: false
//	log:
//	  level: info         # debug | info | warn | error
//	  format: text        # text | json
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/solver"
	"github.com/katalvlaran/lvplan/storage"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Environment variables read by ApplyEnv.
const (
	EnvMaxNodes       = "LVPLAN_MAX_NODES"
	EnvBacktrack      = "LVPLAN_BACKTRACK"
	EnvSelector       = "LVPLAN_SELECTOR"
	EnvUntil          = "LVPLAN_UNTIL"
	EnvStorageBackend = "LVPLAN_STORAGE_BACKEND"
	EnvStoragePath    = "LVPLAN_STORAGE_PATH"
	EnvLogLevel       = "LVPLAN_LOG_LEVEL"
	EnvLogFormat      = "LVPLAN_LOG_FORMAT"
)

// Config is the complete run configuration.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`

	// envErr records malformed environment values until Validate reports them.
	envErr error
}

// SearchConfig maps onto solver options.
type SearchConfig struct {
	MaxNodes  int    `yaml:"max_nodes"`
	Backtrack bool   `yaml:"backtrack"`
	Selector  string `yaml:"selector"`
	Until     string `yaml:"until"`
}

// StorageConfig selects the collection backend for the domain and the search space.
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// LogConfig configures NewLogger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Search: SearchConfig{
			MaxNodes:  100000,
			Backtrack: true,
			Selector:  graph.SelectMax.String(),
			Until:     "result",
		},
		Storage: StorageConfig{Backend: storage.BackendMemory},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (if non-empty) over the defaults, applies the environment and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if cfg, err = decode(data, cfg); err != nil {
			return cfg, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Parse decodes YAML over the defaults and validates. Unknown keys are errors.
func Parse(data []byte) (Config, error) {
	cfg, err := decode(data, Default())
	if err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decode(data []byte, cfg Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment. Malformed numbers and booleans
// leave the field unchanged and are reported by Validate.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvMaxNodes); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			c.Search.MaxNodes = i
		} else {
			c.envErr = errors.Join(c.envErr, fmt.Errorf("%s=%q: not an integer", EnvMaxNodes, v))
		}
	}
	if v := getenv(EnvBacktrack); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.Backtrack = b
		} else {
			c.envErr = errors.Join(c.envErr, fmt.Errorf("%s=%q: not a boolean", EnvBacktrack, v))
		}
	}
	if v := getenv(EnvSelector); v != "" {
		c.Search.Selector = v
	}
	if v := getenv(EnvUntil); v != "" {
		c.Search.Until = v
	}
	if v := getenv(EnvStorageBackend); v != "" {
		c.Storage.Backend = v
	}
	if v := getenv(EnvStoragePath); v != "" {
		c.Storage.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate checks every section. Errors wrap ErrInvalid.
func (c Config) Validate() error {
	if c.envErr != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, c.envErr)
	}
	if c.Search.MaxNodes < 0 {
		return fmt.Errorf("%w: search.max_nodes must be >= 0", ErrInvalid)
	}
	if _, err := graph.ParseSelector(c.Search.Selector); err != nil {
		return fmt.Errorf("%w: search.selector: %v", ErrInvalid, err)
	}
	if strings.TrimSpace(c.Search.Until) == "" {
		return fmt.Errorf("%w: search.until must name a key", ErrInvalid)
	}
	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendBadger, storage.BackendSQLite:
		if !c.Storage.InMemory && c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for %s", ErrInvalid, c.Storage.Backend)
		}
	default:
		return fmt.Errorf("%w: storage.backend %q", ErrInvalid, c.Storage.Backend)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}

	return nil
}

// SolverOptions maps the search section onto solver options.
func (c Config) SolverOptions(logger *slog.Logger) ([]solver.Option, error) {
	sel, err := graph.ParseSelector(c.Search.Selector)
	if err != nil {
		return nil, err
	}

	return []solver.Option{
		solver.WithMaxNodes(c.Search.MaxNodes),
		solver.WithBacktracking(c.Search.Backtrack),
		solver.WithSelector(sel),
		solver.WithLogger(logger),
	}, nil
}

// StorageOptions returns the storage section as a storage.Config.
func (c Config) StorageOptions() storage.Config {
	return storage.Config{
		Backend:  c.Storage.Backend,
		Path:     c.Storage.Path,
		InMemory: c.Storage.InMemory,
	}
}

// NewLogger builds a text or JSON slog.Logger writing to w.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("config: unknown log format %q", format)
	}
}

// Logger builds the logger described by the log section.
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	return NewLogger(c.Log.Level, c.Log.Format, w)
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("config: unknown log level %q", s)
	}

	return lvl, nil
}
