package dag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vk/envgridgo/internal/ctxlog"
	"github.com/vk/envgridgo/internal/registry"
)

// Executor runs a graph's nodes on a fixed pool of workers.
type Executor struct {
	graph      *Graph
	numWorkers int
	registry   *registry.Registry
	// failFast cancels the whole run on the first step failure instead of
	// letting unrelated environment chains finish.
	failFast bool

	wg sync.WaitGroup
}

// NewExecutor creates an executor for the given graph.
func NewExecutor(graph *Graph, numWorkers int, reg *registry.Registry, failFast bool) *Executor {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Executor{
		graph:      graph,
		numWorkers: numWorkers,
		registry:   reg,
		failFast:   failFast,
	}
}

// Run executes the entire graph concurrently. It returns an error if any
// step failed, wrapping the first root-cause failure.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	readyChan := make(chan *Node, len(e.graph.Nodes))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rootNodeCount := 0
	for _, node := range e.graph.Nodes {
		if node.depCount.Load() == 0 {
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(runCtx, readyChan, cancel, i)
	}

	e.wg.Wait()
	close(readyChan)
	logger.Debug("All nodes completed.")

	var failedNodes []string
	var rootCause error
	for _, name := range e.graph.EnvOrder {
		for _, node := range e.graph.Chains[name] {
			if node.CurrentState() != Failed {
				continue
			}
			if node.Error != nil && !errors.Is(node.Error, context.Canceled) {
				failedNodes = append(failedNodes, node.ID)
				if rootCause == nil {
					rootCause = node.Error
				}
			}
		}
	}

	if rootCause != nil {
		return fmt.Errorf("execution failed for %s: %w", strings.Join(failedNodes, ", "), rootCause)
	}
	return nil
}

// worker is the core processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx).With("workerID", workerID)

	for node := range readyChan {
		nodeLogger := logger.With("nodeID", node.ID)

		if ctx.Err() != nil {
			node.skipOnce.Do(func() {
				nodeLogger.Warn("Context canceled, skipping node execution.")
				node.State.Store(int32(Skipped))
				node.Error = ctx.Err()
				e.wg.Done()
			})
			e.skipDependents(ctx, node)
			continue
		}

		nodeLogger.Debug("Worker picked up node for execution.")
		node.State.Store(int32(Running))
		node.StartedAt = time.Now()
		result, err := e.executeNode(ctx, node)
		node.FinishedAt = time.Now()
		node.Result = result

		if err != nil {
			nodeLogger.Error("Step failed.", "error", err)
			node.State.Store(int32(Failed))
			node.Error = err
			if e.failFast {
				cancel()
			}
			e.skipDependents(ctx, node)
			e.wg.Done()
			continue
		}

		nodeLogger.Debug("Step succeeded.")
		node.State.Store(int32(Done))

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				readyChan <- dependent
			}
		}
		e.wg.Done()
	}
}

// executeNode dispatches a node's step to its registered handler, applying
// the step's timeout when one is set.
func (e *Executor) executeNode(ctx context.Context, node *Node) (*registry.Result, error) {
	handler, ok := e.registry.Handler(node.Step.Kind)
	if !ok {
		return nil, fmt.Errorf("no handler registered for step kind %q", node.Step.Kind)
	}

	stepCtx := ctx
	if node.Step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, node.Step.Timeout)
		defer cancel()
	}
	return handler.Run(stepCtx, node.Step)
}

// skipDependents recursively marks all downstream nodes as skipped.
func (e *Executor) skipDependents(ctx context.Context, node *Node) {
	logger := ctxlog.FromContext(ctx)
	for _, dependent := range node.Dependents {
		dependent.skipOnce.Do(func() {
			logger.Warn("Skipping dependent node due to upstream failure.",
				"nodeID", dependent.ID, "dependency", node.ID)
			dependent.State.Store(int32(Skipped))
			dependent.Error = fmt.Errorf("skipped due to upstream failure of '%s'", node.ID)
			e.wg.Done()
			e.skipDependents(ctx, dependent)
		})
	}
}
