package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvplan/config"
	"github.com/katalvlaran/lvplan/domain"
	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
	"github.com/katalvlaran/lvplan/storage"
)

type runFlags struct {
	config      string
	maxNodes    int
	noBacktrack bool
	selector    string
	until       string
	path        bool
}

// runReport is printed as YAML after every run.
type runReport struct {
	Solved bool           `yaml:"solved"`
	Steps  int            `yaml:"steps"`
	Reason string         `yaml:"reason,omitempty"`
	Path   []string       `yaml:"path,omitempty"`
	Stats  map[string]int `yaml:"stats"`
	State  map[string]any `yaml:"state"`
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run DOMAIN.hcl...",
		Short: "Search a domain until the goal key is written",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return runSearch(cmd, cfg, args, f.path)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.config, "config", "c", "", "YAML configuration file")
	flags.IntVar(&f.maxNodes, "max-nodes", 0, "step budget, 0 = unbounded")
	flags.BoolVar(&f.noBacktrack, "no-backtrack", false, "close the frontier after every step")
	flags.StringVar(&f.selector, "selector", "", "frontier order: max | min")
	flags.StringVar(&f.until, "until", "", "goal key; solved once it is readable")
	flags.BoolVar(&f.path, "path", false, "include the selected domain nodes in the report")

	return cmd
}

// resolve layers explicitly set flags over config file and environment.
func (f *runFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("max-nodes") {
		cfg.Search.MaxNodes = f.maxNodes
	}
	if flags.Changed("no-backtrack") {
		cfg.Search.Backtrack = !f.noBacktrack
	}
	if flags.Changed("selector") {
		cfg.Search.Selector = f.selector
	}
	if flags.Changed("until") {
		cfg.Search.Until = f.until
	}

	return cfg, cfg.Validate()
}

func runSearch(cmd *cobra.Command, cfg config.Config, paths []string, withPath bool) (err error) {
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	d, err := domain.NewLoader(domain.WithLogger(logger)).Load(paths...)
	if err != nil {
		return err
	}

	st, err := storage.Open(cfg.StorageOptions(), logger)
	if err != nil {
		return err
	}
	defer closeWith(&err, st, "storage")
	coll, err := st.Collection("search")
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := solver.NewMetrics(reg)
	if err != nil {
		return err
	}
	opts, err := cfg.SolverOptions(logger)
	if err != nil {
		return err
	}
	opts = append(opts, solver.WithMetrics(metrics))

	s, err := solver.New(d.Graph, untilKey(cfg.Search.Until), opts...)
	if err != nil {
		return err
	}

	var store scope.Store = scope.NewFlatStore()
	if cfg.Search.Backtrack {
		store = scope.NewChainStore()
	}
	d.Seed(store.Init())
	space := graph.NewSearchSpace(s.Options().Selector, graph.WithCollection(coll))

	frame, evalErr := s.Eval(cmd.Context(), d.Start, solver.WithStore(store), solver.WithSearchSpace(space))
	report := runReport{
		Solved: evalErr == nil,
		Steps:  frame.NodeCounter(),
		Stats:  gatherStats(reg),
		State:  frame.Context().Snapshot(),
	}
	if withPath {
		if report.Path, err = referencePath(frame); err != nil {
			return err
		}
	}

	switch {
	case evalErr == nil:
	case errors.Is(evalErr, solver.ErrNoCandidates), errors.Is(evalErr, solver.ErrBudgetExceeded):
		report.Reason = evalErr.Error()
	default:
		return evalErr
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err = enc.Encode(report); err != nil {
		return err
	}
	if err = enc.Close(); err != nil {
		return err
	}
	logger.Debug("run finished", slog.Bool("solved", report.Solved), slog.Int("steps", report.Steps))

	if !report.Solved {
		return fmt.Errorf("%w: %s", errUnsolved, report.Reason)
	}

	return nil
}

// closeWith closes c and folds a close failure into *err.
// A failed close outranks an unsolved run: the exit code becomes exitError.
func closeWith(err *error, c io.Closer, what string) {
	cerr := c.Close()
	if cerr == nil {
		return
	}
	cerr = fmt.Errorf("close %s: %w", what, cerr)
	if errors.Is(*err, errUnsolved) {
		*err = fmt.Errorf("%w (%v)", cerr, *err)
		return
	}
	*err = errors.Join(*err, cerr)
}

// untilKey is solved once key is visible in the current scope chain.
func untilKey(key string) solver.SolutionFunc {
	return func(env *solver.Env) (bool, error) {
		_, err := env.Read(key)
		if errors.Is(err, scope.ErrKeyNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}

func referencePath(frame *solver.Frame) ([]string, error) {
	nodes, err := frame.Path()
	if err != nil {
		return nil, err
	}
	refs := make([]string, len(nodes))
	for i, n := range nodes {
		refs[i] = n.Reference
	}

	return refs, nil
}

// gatherStats flattens the run's counters into name{labels} -> value.
func gatherStats(reg *prometheus.Registry) map[string]int {
	stats := make(map[string]int)
	families, err := reg.Gather()
	if err != nil {
		return stats
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += fmt.Sprintf("{%s=%s}", lp.GetName(), lp.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				stats[name] = int(m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				stats[name] = int(m.GetGauge().GetValue())
			}
		}
	}

	return stats
}
