package dag

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/envgridgo/internal/registry"
)

// NodeState is the lifecycle state of a node, stored atomically so workers
// and the reporter can read it without locking.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
	// Skipped marks nodes abandoned because an upstream step failed or the
	// run was canceled.
	Skipped
)

// String returns the lowercase state name used in logs and reports.
func (s NodeState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}

// Node represents a single step in the graph.
type Node struct {
	ID      string
	EnvName string
	Step    *registry.Step

	Deps       map[string]*Node
	Dependents map[string]*Node

	State  atomic.Int32
	Error  error
	Result *registry.Result

	StartedAt  time.Time
	FinishedAt time.Time

	depCount atomic.Int32
	skipOnce sync.Once
}

// SetInitialCounters primes the dependency counter before execution starts.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// CurrentState returns the node's state as a NodeState.
func (n *Node) CurrentState() NodeState {
	return NodeState(n.State.Load())
}

// Graph is a validated DAG of step nodes.
type Graph struct {
	// Nodes stores all nodes, keyed by their unique ID.
	Nodes map[string]*Node
	// EnvOrder preserves the envlist order for reporting.
	EnvOrder []string
	// Chains holds each environment's steps in execution order.
	Chains map[string][]*Node
}

// StateCounts tallies nodes per state, for progress reporting.
func (g *Graph) StateCounts() map[string]int {
	counts := make(map[string]int)
	for _, node := range g.Nodes {
		counts[node.CurrentState().String()]++
	}
	return counts
}
