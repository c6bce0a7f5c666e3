// Package depgraph builds the step dependency graph of a program.
//
// Nodes are program-wide step indices (track-major, then position), so the
// graph holds no object references and copies freely. An edge p -> s exists
// when s is triggered by AfterStep(p).
package depgraph

import (
	"container/heap"
	"errors"
	"slices"

	"github.com/specialistvlad/tempogrid/internal/program"
)

// ErrCycle is returned by TopologicalOrder when the graph is not acyclic.
var ErrCycle = errors.New("dependency cycle")

// Graph is an integer-indexed adjacency list.
type Graph struct {
	ids   []string
	preds [][]int
	succs [][]int
}

// New builds the graph of p. References to unknown steps are skipped; the
// validator reports them.
func New(p *program.Program) *Graph {
	n := p.Len()
	g := &Graph{
		ids:   make([]string, n),
		preds: make([][]int, n),
		succs: make([][]int, n),
	}
	for i := 0; i < n; i++ {
		step := p.StepAt(i)
		g.ids[i] = step.ID

		after, ok := step.Trigger.(program.AfterStep)
		if !ok {
			continue
		}
		pred, ok := p.Step(after.StepID)
		if !ok {
			continue
		}
		g.preds[i] = append(g.preds[i], pred.Index)
		g.succs[pred.Index] = append(g.succs[pred.Index], i)
	}
	for i := range g.succs {
		slices.Sort(g.succs[i])
		g.succs[i] = slices.Compact(g.succs[i])
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.ids) }

// ID returns the step identifier of node i.
func (g *Graph) ID(i int) string { return g.ids[i] }

// Preds returns the predecessors of node i. The slice must not be modified.
func (g *Graph) Preds(i int) []int { return g.preds[i] }

// Succs returns the successors of node i in ascending order. The slice must
// not be modified.
func (g *Graph) Succs(i int) []int { return g.succs[i] }

// Sources returns the nodes without predecessors, ascending.
func (g *Graph) Sources() []int {
	var out []int
	for i, p := range g.preds {
		if len(p) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Sinks returns the nodes without successors, ascending.
func (g *Graph) Sinks() []int {
	var out []int
	for i, s := range g.succs {
		if len(s) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Descendants marks every node reachable from roots, roots included.
func (g *Graph) Descendants(roots ...int) []bool {
	seen := make([]bool, len(g.ids))
	stack := append([]int(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.succs[n]...)
	}
	return seen
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalOrder returns the nodes in dependency order, breaking ties by
// program order. If the graph has a cycle the nodes that could be ordered are
// returned together with ErrCycle.
func (g *Graph) TopologicalOrder() ([]int, error) {
	indeg := make([]int, len(g.ids))
	for i, p := range g.preds {
		indeg[i] = len(p)
	}

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.succs[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	if len(out) != len(indeg) {
		return out, ErrCycle
	}
	return out, nil
}

// Cycles returns one cycle per back edge found by a depth-first traversal in
// program order. Each cycle lists its member identifiers starting from the
// node the back edge points to.
func (g *Graph) Cycles() [][]string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.ids))
	var stack []int
	var cycles [][]string

	var dfs func(u int)
	dfs = func(u int) {
		color[u] = gray
		stack = append(stack, u)
		for _, v := range g.succs[u] {
			switch color[v] {
			case white:
				dfs(v)
			case gray:
				start := slices.Index(stack, v)
				members := make([]string, 0, len(stack)-start)
				for _, n := range stack[start:] {
					members = append(members, g.ids[n])
				}
				cycles = append(cycles, members)
			}
		}
		stack = stack[:len(stack)-1]
		color[u] = black
	}

	for i := range g.ids {
		if color[i] == white {
			dfs(i)
		}
	}
	return cycles
}
