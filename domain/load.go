package domain

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/rules"
	"github.com/katalvlaran/lvplan/solver"
)

// fileRoot is the top level of a domain file.
type fileRoot struct {
	Start []string      `hcl:"start,optional"`
	Facts []*factsBlock `hcl:"facts,block"`
	Nodes []*nodeBlock  `hcl:"node,block"`
}

type factsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type nodeBlock struct {
	ID     string         `hcl:"id,label"`
	After  []string       `hcl:"after,optional"`
	Before []string       `hcl:"before,optional"`
	Test   *hcl.Attribute `hcl:"test,optional"`
	Action *hcl.Attribute `hcl:"action,optional"`
	Remain hcl.Body       `hcl:",remain"`
}

type parsedFile struct {
	name string
	file *hcl.File
	root fileRoot
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithGraphOptions is applied to the domain graph after the rule serializer,
// e.g. graph.WithCollection to keep the domain in a persistent backend.
func WithGraphOptions(opts ...graph.GraphOption) Option {
	return func(ld *Loader) { ld.graphOpts = append(ld.graphOpts, opts...) }
}

// Loader turns domain files into a Domain.
type Loader struct {
	logger    *slog.Logger
	graphOpts []graph.GraphOption
}

// NewLoader returns a Loader.
func NewLoader(opts ...Option) *Loader {
	ld := &Loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(ld)
	}

	return ld
}

// Load parses every .hcl file found under paths (files or directories, walked
// recursively) into one Domain. Errors: ErrNoFiles, HCL diagnostics, and build errors.
func Load(paths ...string) (*Domain, error) { return NewLoader().Load(paths...) }

// Parse builds a Domain from a single source. filename is used in diagnostics.
func Parse(src []byte, filename string) (*Domain, error) { return NewLoader().Parse(src, filename) }

// Load see package func Load.
func (ld *Loader) Load(paths ...string) (*Domain, error) {
	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoFiles, paths)
	}
	ld.logger.Debug("loading domain", slog.Int("files", len(files)))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	for _, name := range files {
		f, diags := parser.ParseHCLFile(name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("domain: failed to parse %s: %w", name, diags)
		}
		pf, err := decodeFile(name, f)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, pf)
	}

	return ld.build(parsed)
}

// Parse see package func Parse.
func (ld *Loader) Parse(src []byte, filename string) (*Domain, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("domain: failed to parse %s: %w", filename, diags)
	}
	pf, err := decodeFile(filename, f)
	if err != nil {
		return nil, err
	}

	return ld.build([]parsedFile{pf})
}

func decodeFile(name string, f *hcl.File) (parsedFile, error) {
	var root fileRoot
	if diags := gohcl.DecodeBody(f.Body, nil, &root); diags.HasErrors() {
		return parsedFile{}, fmt.Errorf("domain: failed to decode %s: %w", name, diags)
	}

	return parsedFile{name: name, file: f, root: root}, nil
}

// build creates nodes in file order, then relationships, then resolves the start set.
func (ld *Loader) build(files []parsedFile) (*Domain, error) {
	opts := append([]graph.GraphOption{graph.WithSerializer(rules.NewSerializer())}, ld.graphOpts...)
	d := &Domain{Graph: graph.NewGraph(opts...), Facts: make(map[string]any)}

	var (
		order     []string
		declared  = make(map[string]*graph.Node)
		startIDs  []string
		haveStart bool
	)
	for _, pf := range files {
		if err := ld.decodeFacts(pf, d.Facts); err != nil {
			return nil, err
		}
		if pf.root.Start != nil {
			haveStart = true
			startIDs = append(startIDs, pf.root.Start...)
		}
		for _, nb := range pf.root.Nodes {
			fields, err := nodeFields(pf, nb)
			if err != nil {
				return nil, err
			}
			n, err := d.Graph.CreateNode(graph.WithID(nb.ID), graph.WithFields(fields))
			if err != nil {
				return nil, fmt.Errorf("domain: %s: node %q: %w", pf.name, nb.ID, err)
			}
			declared[nb.ID] = n
			order = append(order, nb.ID)
		}
	}

	for _, pf := range files {
		for _, nb := range pf.root.Nodes {
			n := declared[nb.ID]
			for _, id := range nb.After {
				src, ok := declared[id]
				if !ok {
					return nil, fmt.Errorf("%w: %s: node %q: after %q", ErrUnknownNode, pf.name, nb.ID, id)
				}
				if err := d.Graph.CreateRelationship(src, n); err != nil {
					return nil, err
				}
			}
			for _, id := range nb.Before {
				dst, ok := declared[id]
				if !ok {
					return nil, fmt.Errorf("%w: %s: node %q: before %q", ErrUnknownNode, pf.name, nb.ID, id)
				}
				if err := d.Graph.CreateRelationship(n, dst); err != nil {
					return nil, err
				}
			}
		}
	}

	if !haveStart {
		for _, id := range order {
			if declared[id].InIDs.Len() == 0 {
				startIDs = append(startIDs, id)
			}
		}
	}
	seen := make(map[string]bool, len(startIDs))
	for _, id := range startIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := declared[id]; !ok {
			return nil, fmt.Errorf("%w: start %q", ErrUnknownNode, id)
		}
		n, err := d.Graph.GetNode(id)
		if err != nil {
			return nil, err
		}
		d.Start = append(d.Start, n)
	}

	res, err := d.Graph.BFS(d.StartIDs(), nil)
	if err != nil {
		return nil, err
	}
	for _, id := range order {
		if !res.Visited[id] {
			d.Unreachable = append(d.Unreachable, id)
			ld.logger.Warn("domain node unreachable from start", slog.String("node", id))
		}
	}
	ld.logger.Debug("domain loaded",
		slog.Int("nodes", len(order)),
		slog.Int("facts", len(d.Facts)),
		slog.Any("start", d.StartIDs()))

	return d, nil
}

func (ld *Loader) decodeFacts(pf parsedFile, into map[string]any) error {
	ctx := rules.StaticEvalContext()
	for _, fb := range pf.root.Facts {
		attrs, diags := fb.Body.JustAttributes()
		if diags.HasErrors() {
			return fmt.Errorf("domain: %s: facts: %w", pf.name, diags)
		}
		for _, name := range sortedAttrNames(attrs) {
			if _, dup := into[name]; dup {
				return fmt.Errorf("%w: %s: %q", ErrDuplicateFact, attrs[name].NameRange, name)
			}
			v, err := staticValue(attrs[name], ctx)
			if err != nil {
				return err
			}
			into[name] = v
		}
	}

	return nil
}

// nodeFields collects rule sources and static attributes of a node block.
func nodeFields(pf parsedFile, nb *nodeBlock) (map[string]any, error) {
	fields := make(map[string]any)
	if nb.Test != nil {
		fields[solver.FieldTest] = ruleSource(pf.file, nb.Test)
	}
	if nb.Action != nil {
		fields[solver.FieldAction] = ruleSource(pf.file, nb.Action)
	}

	attrs, diags := nb.Remain.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("domain: %s: node %q: %w", pf.name, nb.ID, diags)
	}
	ctx := rules.StaticEvalContext()
	for _, name := range sortedAttrNames(attrs) {
		switch name {
		case graph.FieldWeight, graph.FieldReference, graph.FieldContextID:
			return nil, fmt.Errorf("%w: %s: %q", ErrReservedAttribute, attrs[name].NameRange, name)
		}
		v, err := staticValue(attrs[name], ctx)
		if err != nil {
			return nil, err
		}
		fields[name] = v
	}

	return fields, nil
}

func ruleSource(f *hcl.File, attr *hcl.Attribute) string {
	return string(attr.Expr.Range().SliceBytes(f.Bytes))
}

func staticValue(attr *hcl.Attribute, ctx *hcl.EvalContext) (any, error) {
	v, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("domain: %s: %w", attr.NameRange, diags)
	}
	g, err := rules.FromCty(v)
	if err != nil {
		return nil, fmt.Errorf("domain: %s: %w", attr.NameRange, err)
	}

	return g, nil
}

func sortedAttrNames(attrs hcl.Attributes) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}

// findHCLFiles expands paths into .hcl files. Missing paths are errors.
func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("domain: error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}
		err = filepath.WalkDir(path, func(p string, e os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !e.IsDir() && filepath.Ext(p) == ".hcl" {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}
