package dag

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/envgridgo/internal/config"
	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/registry"
)

// BuildOptions tunes graph construction.
type BuildOptions struct {
	// CommandTimeout bounds every command step. Zero means unbounded.
	CommandTimeout time.Duration
}

// Build constructs a complete, validated dependency graph from the resolved
// environments.
func Build(ctx context.Context, envs []*config.ResolvedEnv, opts BuildOptions) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: starting graph construction.", "environments", len(envs))

	graph := &Graph{
		Nodes:  make(map[string]*Node),
		Chains: make(map[string][]*Node),
	}

	// First pass: compile every environment into its chain of step nodes.
	for _, env := range envs {
		graph.EnvOrder = append(graph.EnvOrder, env.Name)
		chain := planEnv(env, opts)
		for i, node := range chain {
			graph.Nodes[node.ID] = node
			if i > 0 {
				link(chain[i-1], node)
			}
		}
		graph.Chains[env.Name] = chain
	}
	logger.Debug("Build: node creation complete.", "node_count", len(graph.Nodes))

	// Second pass: cross-environment depends_on edges. A dependent chain's
	// first step waits for the terminal step of each named environment.
	for _, env := range envs {
		chain := graph.Chains[env.Name]
		for _, dep := range env.DependsOn {
			depChain, ok := graph.Chains[dep]
			if !ok {
				return nil, fmt.Errorf("environment %q depends on unknown environment %q", env.Name, dep)
			}
			link(depChain[len(depChain)-1], chain[0])
		}
	}
	logger.Debug("Build: node linking complete.")

	// Third pass: initialize counters.
	for _, node := range graph.Nodes {
		node.SetInitialCounters()
	}

	if err := graph.detectCycles(); err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("Build: graph construction successful.")
	return graph, nil
}

// planEnv compiles one resolved environment into its ordered steps: an
// install step when pins are declared, then either the lint step or the
// command list.
func planEnv(env *config.ResolvedEnv, opts BuildOptions) []*Node {
	base := registry.Step{
		EnvName:     env.Name,
		EnvDir:      env.Dir,
		Interpreter: env.Interpreter,
		PassEnv:     env.PassEnv,
		SetEnv:      env.SetEnv,
	}

	var chain []*Node
	add := func(id string, step registry.Step) {
		step.Index = len(chain)
		chain = append(chain, &Node{
			ID:         id,
			EnvName:    env.Name,
			Step:       &step,
			Deps:       make(map[string]*Node),
			Dependents: make(map[string]*Node),
		})
	}

	if len(env.Pins) > 0 {
		step := base
		step.Kind = registry.KindInstall
		step.Pins = env.Pins
		step.IndexURL = env.IndexURL
		add(fmt.Sprintf("env.%s.install", env.Name), step)
	}

	if env.IsLint() {
		step := base
		step.Kind = registry.KindLint
		step.Lint = env.Lint
		add(fmt.Sprintf("env.%s.lint", env.Name), step)
		return chain
	}

	for i, command := range env.Commands {
		step := base
		step.Kind = registry.KindCommand
		step.Command = command
		step.Timeout = opts.CommandTimeout
		add(fmt.Sprintf("env.%s.command[%d]", env.Name, i), step)
	}
	return chain
}

// link records a dependency edge from node to dep.
func link(dep, node *Node) {
	if _, exists := node.Deps[dep.ID]; exists {
		return
	}
	node.Deps[dep.ID] = dep
	dep.Dependents[node.ID] = node
}

// detectCycles walks the graph depth-first and rejects any back edge.
func (g *Graph) detectCycles() error {
	const (
		white = iota // unvisited
		grey         // on the current path
		black        // fully explored
	)
	colors := make(map[string]int, len(g.Nodes))

	var visit func(node *Node) error
	visit = func(node *Node) error {
		colors[node.ID] = grey
		for _, dep := range node.Dependents {
			switch colors[dep.ID] {
			case grey:
				return fmt.Errorf("dependency cycle detected through '%s' and '%s'", node.ID, dep.ID)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		colors[node.ID] = black
		return nil
	}

	for _, node := range g.Nodes {
		if colors[node.ID] == white {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
