package graph_test

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/lvplan/graph"
)

type SearchSpaceSuite struct {
	suite.Suite
	ss *graph.SearchSpace
}

func (s *SearchSpaceSuite) SetupTest() {
	s.ss = graph.NewSearchSpace(graph.SelectMax)
}

func (s *SearchSpaceSuite) node(id string, w float64) *graph.Node {
	n, err := s.ss.CreateNode(graph.WithID(id), graph.WithWeight(w))
	s.Require().NoError(err)

	return n
}

func (s *SearchSpaceSuite) weights() []float64 {
	var out []float64
	for n, err := range s.ss.OpenNodes() {
		s.Require().NoError(err)
		out = append(out, *n.Weight)
	}

	return out
}

// TestOpenCloseLifecycle replays a shuffled open, ordered read, close-by-id and drain.
func (s *SearchSpaceSuite) TestOpenCloseLifecycle() {
	var nodes []*graph.Node
	for i := 1; i <= 4; i++ {
		nodes = append(nodes, s.node(strconv.Itoa(i), float64(i)))
	}
	s.Equal(0, s.ss.LenOpen())

	r := rand.New(rand.NewPCG(7, 11))
	r.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
	for _, n := range nodes {
		s.Require().NoError(s.ss.OpenNode(n))
	}
	s.Equal(4, s.ss.LenOpen())
	s.Equal([]float64{4, 3, 2, 1}, s.weights())

	two, err := s.ss.GetNode("2")
	s.Require().NoError(err)
	s.Require().NoError(s.ss.CloseNode(two))
	s.Equal(3, s.ss.LenOpen())
	s.NotContains(s.ss.OpenIDs(), "2")

	s.Require().NoError(s.ss.OpenNode(s.node("10", 10)))
	s.Require().NoError(s.ss.OpenNode(s.node("11", 10)))
	s.Equal(5, s.ss.LenOpen())
	s.Equal([]string{"11", "10", "4", "3", "1"}, s.ss.OpenIDs())

	// Closing while ranging is safe: the order is snapshotted.
	for n, err := range s.ss.OpenNodes() {
		s.Require().NoError(err)
		s.Require().NoError(s.ss.CloseNode(n))
	}
	s.Equal(0, s.ss.LenOpen())
}

func (s *SearchSpaceSuite) TestCloseErrors() {
	n := s.node("a", 1)
	s.ErrorIs(s.ss.CloseNode(n), graph.ErrNodeNotOpen)

	s.Require().NoError(s.ss.OpenNode(n))
	other := s.node("b", 1)
	s.ErrorIs(s.ss.CloseNode(other), graph.ErrNodeNotOpen)

	unweighted, err := s.ss.CreateNode(graph.WithID("u"))
	s.Require().NoError(err)
	s.ErrorIs(s.ss.OpenNode(unweighted), graph.ErrNoWeight)
	s.ErrorIs(s.ss.CloseNode(unweighted), graph.ErrNoWeight)
	s.ErrorIs(s.ss.OpenNode(nil), graph.ErrNilNode)
}

func (s *SearchSpaceSuite) TestCloseAll() {
	for i, w := range []float64{2, 1, 3} {
		s.Require().NoError(s.ss.OpenNode(s.node(strconv.Itoa(i), w)))
	}
	s.ss.CloseAll()
	s.Equal(0, s.ss.LenOpen())
	s.Empty(s.ss.OpenIDs())

	n, err := s.ss.Len()
	s.Require().NoError(err)
	s.Equal(3, n, "closing keeps nodes in the graph")
}

func TestSearchSpaceSuite(t *testing.T) {
	suite.Run(t, new(SearchSpaceSuite))
}

// TestSearchSpace_FrontierOrdering ASSERTS weight traversal for both selectors.
func TestSearchSpace_FrontierOrdering(t *testing.T) {
	cases := []struct {
		name     string
		selector graph.Selector
		want     []float64
	}{
		{"max", graph.SelectMax, []float64{5, 4, 3, 1, 1}},
		{"min", graph.SelectMin, []float64{1, 1, 3, 4, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ss := graph.NewSearchSpace(tc.selector)
			assert.Equal(t, tc.selector, ss.Selector())
			for _, w := range []float64{3, 1, 4, 1, 5} {
				n, err := ss.CreateNode(graph.WithWeight(w))
				require.NoError(t, err)
				require.NoError(t, ss.OpenNode(n))
			}

			var got []float64
			for n, err := range ss.OpenNodes() {
				require.NoError(t, err)
				got = append(got, *n.Weight)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestSearchSpace_EqualWeightsNewestFirst ASSERTS the tie-break side for each selector.
func TestSearchSpace_EqualWeightsNewestFirst(t *testing.T) {
	for _, sel := range []graph.Selector{graph.SelectMax, graph.SelectMin} {
		t.Run(sel.String(), func(t *testing.T) {
			ss := graph.NewSearchSpace(sel)
			for _, id := range []string{"first", "second"} {
				n, err := ss.CreateNode(graph.WithID(id), graph.WithWeight(1))
				require.NoError(t, err)
				require.NoError(t, ss.OpenNode(n))
			}
			assert.Equal(t, []string{"second", "first"}, ss.OpenIDs())
		})
	}
}

// TestSearchSpace_CloseRemovesExactlyOne ASSERTS only the matching id is removed among equal weights.
func TestSearchSpace_CloseRemovesExactlyOne(t *testing.T) {
	ss := graph.NewSearchSpace(graph.SelectMin)
	a, err := ss.CreateNode(graph.WithID("a"), graph.WithWeight(2))
	require.NoError(t, err)
	b, err := ss.CreateNode(graph.WithID("b"), graph.WithWeight(2))
	require.NoError(t, err)
	require.NoError(t, ss.OpenNode(a))
	require.NoError(t, ss.OpenNode(b))

	require.NoError(t, ss.CloseNode(a))
	assert.Equal(t, []string{"b"}, ss.OpenIDs())
}

func TestParseSelector(t *testing.T) {
	sel, err := graph.ParseSelector("MIN")
	require.NoError(t, err)
	assert.Equal(t, graph.SelectMin, sel)

	sel, err = graph.ParseSelector("")
	require.NoError(t, err)
	assert.Equal(t, graph.SelectMax, sel)

	_, err = graph.ParseSelector("best")
	assert.Error(t, err)
}
