package domain_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvplan/domain"
	"github.com/katalvlaran/lvplan/graph"
	"github.com/katalvlaran/lvplan/rules"
	"github.com/katalvlaran/lvplan/scope"
	"github.com/katalvlaran/lvplan/solver"
)

func quiet() domain.Option {
	return domain.WithLogger(slog.New(slog.DiscardHandler))
}

func loadVoting(t *testing.T) *domain.Domain {
	t.Helper()
	d, err := domain.NewLoader(quiet()).Load(filepath.Join("testdata", "voting.hcl"))
	require.NoError(t, err)

	return d
}

func solve(t *testing.T, d *domain.Domain) *solver.Frame {
	t.Helper()
	s, err := solver.New(d.Graph, func(env *solver.Env) (bool, error) {
		return env.ReadOr("result", nil) != nil, nil
	})
	require.NoError(t, err)

	store := scope.NewChainStore()
	d.Seed(store.Init())
	frame, err := s.Eval(context.Background(), d.Start, solver.WithStore(store))
	require.NoError(t, err)

	return frame
}

func TestLoad_Voting(t *testing.T) {
	d := loadVoting(t)

	n, err := d.Graph.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"root"}, d.StartIDs())
	assert.Empty(t, d.Unreachable)
	assert.Equal(t, []string{"person"}, d.FactNames())
	assert.Equal(t, map[string]any{"name": "Ann", "age": float64(15)}, d.Facts["person"])

	root, err := d.Graph.GetNode("root")
	require.NoError(t, err)
	assert.Equal(t, []string{"can_vote", "can_not_vote"}, root.OutIDs.IDs())

	cv, err := d.Graph.GetNode("can_vote")
	require.NoError(t, err)
	assert.Equal(t, "adult", cv.Fields["label"])
	test, ok := cv.Fields[solver.FieldTest].(*rules.Expr)
	require.True(t, ok)
	assert.Equal(t, `read("person").age >= 18`, test.Source())
	action, ok := cv.Fields[solver.FieldAction].(*rules.Expr)
	require.True(t, ok)
	assert.Equal(t, `write("result", "Can vote")`, action.Source())
}

func TestLoad_VotingSolves(t *testing.T) {
	d := loadVoting(t)
	frame := solve(t, d)

	v, err := frame.Context().Lookup("result")
	require.NoError(t, err)
	assert.Equal(t, "Can not vote", v)
	assert.Equal(t, "can_not_vote", frame.Selected().Reference)
	assert.Equal(t, 2, frame.NodeCounter())

	d.Facts["person"] = map[string]any{"age": 30}
	frame = solve(t, d)
	v, err = frame.Context().Lookup("result")
	require.NoError(t, err)
	assert.Equal(t, "Can vote", v)
}

func TestParse_DefaultStartAndUnreachable(t *testing.T) {
	var logs bytes.Buffer
	ld := domain.NewLoader(domain.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	d, err := ld.Parse([]byte(`
node "a" {}
node "b" { after = ["a"] }
node "c" { after = ["d"] }
node "d" { after = ["c"] }
node "e" { before = ["b"] }
`), "cycle.hcl")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "e"}, d.StartIDs(), "nodes without predecessors, in declaration order")
	assert.Equal(t, []string{"c", "d"}, d.Unreachable)
	assert.Contains(t, logs.String(), "unreachable")
	assert.Contains(t, logs.String(), "node=c")
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want error
	}{
		{"unknown after", `node "a" { after = ["ghost"] }`, domain.ErrUnknownNode},
		{"unknown before", `node "a" { before = ["ghost"] }`, domain.ErrUnknownNode},
		{"unknown start", "start = [\"ghost\"]\nnode \"a\" {}", domain.ErrUnknownNode},
		{"reserved attribute", `node "a" { weight = 1 }`, domain.ErrReservedAttribute},
		{"duplicate node", "node \"a\" {}\nnode \"a\" {}", graph.ErrDuplicateNode},
		{"duplicate fact", "facts {\n x = 1\n}\nfacts {\n x = 2\n}", domain.ErrDuplicateFact},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.NewLoader(quiet()).Parse([]byte(tc.src), "bad.hcl")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := domain.NewLoader(quiet()).Parse([]byte(`node "a" {`), "broken.hcl")
	assert.ErrorContains(t, err, "broken.hcl")

	_, err = domain.NewLoader(quiet()).Parse([]byte(`node "a" { label = read("x") }`), "dynamic.hcl")
	assert.Error(t, err, "static attributes cannot read scopes")
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_facts.hcl"), []byte(`
start = ["root"]
facts {
  limit = max(1, 3)
}
`), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nodes"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nodes", "b.hcl"), []byte(`
node "root" {}
node "next" { after = ["root"] }
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	coll := graph.NewMemoryCollection()
	d, err := domain.NewLoader(quiet(), domain.WithGraphOptions(graph.WithCollection(coll))).Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, coll.Len())
	assert.Equal(t, float64(3), d.Facts["limit"])
	assert.Equal(t, []string{"root"}, d.StartIDs())

	root := scope.NewRoot()
	d.Seed(root)
	v, err := root.Lookup("limit")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)

	_, err = domain.NewLoader(quiet()).Load(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoFiles)
	_, err = domain.NewLoader(quiet()).Load(filepath.Join(dir, "missing.hcl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
