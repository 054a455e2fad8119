package neat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func buildLinearFeedForward(t *testing.T, reg *ActivationRegistry) (*Network, NodeId, NodeId, NodeId, EdgeId, EdgeId) {
	t.Helper()
	n := NewNetwork(FeedForward, reg)
	a, b, c := NodeId(0), NodeId(1), NodeId(2)
	require.NoError(t, n.AddNode(a, NodeInput, InvalidActivationId, false))
	require.NoError(t, n.AddNode(b, NodeHidden, InvalidActivationId, false))
	require.NoError(t, n.AddNode(c, NodeOutput, InvalidActivationId, false))
	e1, e2 := EdgeId(0), EdgeId(1)
	require.NoError(t, n.AddEdgeAt(a, b, e1, 1))
	require.NoError(t, n.AddEdgeAt(b, c, e2, 1))
	return n, a, b, c, e1, e2
}

func TestValidateAcceptsWellFormedNetwork(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, _, _, _, _, _ := buildLinearFeedForward(t, reg)
	require.True(t, n.Validate())
}

func TestValidateRejectsInputWithIncomingEdge(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n := NewNetwork(General, reg)
	a, b := NodeId(0), NodeId(1)
	require.NoError(t, n.AddNode(a, NodeInput, InvalidActivationId, false))
	require.NoError(t, n.AddNode(b, NodeHidden, InvalidActivationId, false))
	// smuggle an incoming edge onto an input node, bypassing AddEdgeAt's guards
	n.edges[0] = &Edge{Id: 0, In: b, Out: a, Weight: 1, Enabled: true}
	n.nodes[a].incoming = append(n.nodes[a].incoming, 0)
	n.nodes[b].outgoing = append(n.nodes[b].outgoing, 0)
	require.False(t, n.Validate())
}

// TestCycleRejection matches the specification's concrete scenario: a
// feed-forward A->B->C network refuses add_edge(C, A), and edge count is
// unchanged.
func TestCycleRejection(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, _, c, _, _ := buildLinearFeedForward(t, reg)
	before := n.NumEdges()

	err := n.AddEdgeAt(c, a, EdgeId(99), 1)
	require.ErrorIs(t, err, ErrWouldCreateCycle)
	require.Equal(t, before, n.NumEdges())
}

func TestAddEdgeRejectsAlreadyConnected(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, b, _, _, _ := buildLinearFeedForward(t, reg)
	err := n.AddEdgeAt(a, b, EdgeId(50), 2)
	require.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestAddEdgeRejectsIntoInputOrFromOutput(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, _, c, _, _ := buildLinearFeedForward(t, reg)

	err := n.AddEdgeAt(c, a, EdgeId(51), 1)
	require.Error(t, err)

	d := NodeId(10)
	require.NoError(t, n.AddNode(d, NodeHidden, InvalidActivationId, false))
	err = n.AddEdgeAt(d, a, EdgeId(52), 1)
	require.ErrorIs(t, err, ErrInvalidDirection)
}

// TestAddEdgeRejectsIntoBiasNodeRegardlessOfKind matches spec.md's invariant
// that bias nodes receive no incoming edges, which holds for General
// networks too, not only FeedForward ones.
func TestAddEdgeRejectsIntoBiasNodeRegardlessOfKind(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n := NewNetwork(General, reg)
	h, bias := NodeId(0), NodeId(1)
	require.NoError(t, n.AddNode(h, NodeHidden, InvalidActivationId, false))
	require.NoError(t, n.AddNode(bias, NodeBias, InvalidActivationId, false))

	err := n.AddEdgeAt(h, bias, EdgeId(0), 1)
	require.ErrorIs(t, err, ErrInvalidDirection)
	require.Equal(t, 0, n.NumEdges())
}

func TestIsConnectedBothDirections(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, b, _, _, _ := buildLinearFeedForward(t, reg)
	require.True(t, n.IsConnected(a, b))
	require.True(t, n.IsConnected(b, a))
}

// TestAddNodeAtPreservesFunctionUnderIdentity: splitting an edge with the
// identity activation must not change the network's output for the same
// input, because in(e)->new has weight 1 and new->out(e) keeps e's weight.
func TestAddNodeAtPreservesFunctionUnderIdentity(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	identityId, _ := reg.GetByName("identity")

	n1, a, _, c, e1, _ := buildLinearFeedForward(t, reg)
	require.NoError(t, n1.SetNodeValue(a, 3.0))
	require.NoError(t, n1.Evaluate())
	before, _ := n1.GetNode(c)

	newNode := NodeId(100)
	require.NoError(t, n1.AddNodeAt(e1, newNode, EdgeId(101), EdgeId(102), identityId.Id, true))
	require.NoError(t, n1.SetNodeValue(a, 3.0))
	require.NoError(t, n1.Evaluate())
	after, _ := n1.GetNode(c)

	require.InDelta(t, before.Activated, after.Activated, 1e-9)
}

func TestDisableThenReenableRestoresWeight(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, b, _, e1, _ := buildLinearFeedForward(t, reg)
	_ = a
	_ = b
	require.NoError(t, n.SetWeight(e1, 7.5))
	require.NoError(t, n.SetEdgeEnabled(e1, false))
	w, _ := n.Weight(e1)
	require.Equal(t, 0.0, w)

	require.NoError(t, n.SetEdgeEnabled(e1, true))
	w, _ = n.Weight(e1)
	require.Equal(t, 7.5, w)
}

func TestReplaceEdgeIdRoundTrip(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, _, _, _, e1, _ := buildLinearFeedForward(t, reg)
	before, _ := n.GetEdge(e1)

	require.NoError(t, n.ReplaceEdgeId(e1, EdgeId(999)))
	require.NoError(t, n.ReplaceEdgeId(EdgeId(999), e1))

	after, ok := n.GetEdge(e1)
	require.True(t, ok)
	require.Equal(t, before, after)
	require.True(t, n.Validate())
}

func TestReplaceNodeIdKeepsEdgesConsistent(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, _, b, _, e1, e2 := buildLinearFeedForward(t, reg)

	require.NoError(t, n.ReplaceNodeId(b, NodeId(777)))
	require.True(t, n.HasNode(NodeId(777)))
	require.False(t, n.HasNode(b))

	in, _ := n.InNode(e2)
	require.Equal(t, NodeId(777), in)
	out, _ := n.OutNode(e1)
	require.Equal(t, NodeId(777), out)
	require.True(t, n.Validate())
}

func TestEvaluateRecurrentNetworkTerminates(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n := NewNetwork(General, reg)
	a, b := NodeId(0), NodeId(1)
	identityId, _ := reg.GetByName("identity")
	require.NoError(t, n.AddNode(a, NodeInput, InvalidActivationId, false))
	require.NoError(t, n.AddNode(b, NodeOutput, identityId.Id, true))
	require.NoError(t, n.AddEdgeAt(a, b, EdgeId(0), 1))
	require.NoError(t, n.AddEdgeAt(b, b, EdgeId(1), 0.5)) // self-loop, recurrent

	require.NoError(t, n.SetNodeValue(a, 1.0))
	require.NoError(t, n.Evaluate())
	node, _ := n.GetNode(b)
	// first pass: back-edge source not yet evaluated this call, contributes
	// its previously-activated (zero) value.
	require.InDelta(t, 1.0, node.Activated, 1e-9)
}

func TestRemoveEdgeUpdatesAdjacency(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, a, b, _, e1, _ := buildLinearFeedForward(t, reg)
	require.NoError(t, n.RemoveEdge(e1))

	out, _ := n.OutgoingEdges(a)
	require.NotContains(t, out, e1)
	in, _ := n.IncomingEdges(b)
	require.NotContains(t, in, e1)
	_, ok := n.GetEdge(e1)
	require.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	reg := NewDefaultActivationRegistry()
	n, _, _, _, e1, _ := buildLinearFeedForward(t, reg)
	clone := n.Clone()

	require.NoError(t, clone.SetWeight(e1, 42))
	orig, _ := n.GetEdge(e1)
	cloned, _ := clone.GetEdge(e1)
	require.NotEqual(t, orig.Weight, cloned.Weight)
}
