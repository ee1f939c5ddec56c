// Package graph runs a pipeline as a set of named stages joined by edges and
// branch points. State flows through every stage as a plain map.
package graph

import (
	"context"
	"fmt"
	"time"
)

// NodeType represents the role of a node in the graph.
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeStage     NodeType = "stage"
	NodeTypeCondition NodeType = "condition"
	NodeTypeEnd       NodeType = "end"
)

// State is passed between nodes.
type State map[string]any

// NodeFunc is the function executed by a node.
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc picks the branch key to follow.
type ConditionFunc func(context.Context, State) (string, error)

// Observer is notified after every executed node, including failed ones.
type Observer func(node string, elapsed time.Duration, err error)

// Node represents a node in the execution graph.
type Node struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc
	Condition ConditionFunc     // condition nodes only
	Next      string            // single outgoing edge
	Branches  map[string]string // condition result -> next node
}

// Graph is an executable flow of nodes.
type Graph struct {
	nodes     map[string]*Node
	startNode string
	endNode   string
	maxVisits int
	observer  Observer
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (g *Graph) validateNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	default:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node. Start and end nodes are registered automatically.
func (g *Graph) AddNode(node *Node) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	g.validateNode(node)
	g.nodes[node.Name] = node

	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// SetStartNode sets the start node.
func (g *Graph) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetEndNode sets the end node.
func (g *Graph) SetEndNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.endNode = name
}

// SetObserver installs a callback fired after each executed node.
func (g *Graph) SetObserver(obs Observer) {
	g.observer = obs
}

// SetMaxVisits bounds how often a single node may run in one execution.
func (g *Graph) SetMaxVisits(maxVisits int) {
	g.maxVisits = maxVisits
}

// GetNode returns a node by name.
func (g *Graph) GetNode(name string) (*Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Validate checks that every edge points at a registered node.
func (g *Graph) Validate() error {
	if g.startNode == "" {
		return fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return fmt.Errorf("end node not set")
	}
	for _, node := range g.nodes {
		for _, next := range g.children(node) {
			if _, ok := g.nodes[next]; !ok {
				return fmt.Errorf("node %s points at unknown node %s", node.Name, next)
			}
		}
		if node.Type != NodeTypeEnd && len(g.children(node)) == 0 {
			return fmt.Errorf("node %s has no outgoing edge", node.Name)
		}
	}
	return nil
}

// Execute walks the graph from the start node until the end node has run.
// The context is checked before every node except the end node, so a
// cancelled request stops between stages but work already finished is kept.
func (g *Graph) Execute(ctx context.Context, initialState State) (State, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	state := initialState
	if state == nil {
		state = make(State)
	}

	visited := make(map[string]int)
	current := g.startNode
	for {
		node := g.nodes[current]
		if node.Type != NodeTypeEnd {
			if err := ctx.Err(); err != nil {
				return state, err
			}
		}

		visited[current]++
		if visited[current] > g.maxVisits {
			return state, fmt.Errorf("infinite loop detected at node %s", current)
		}

		if node.Type == NodeTypeCondition {
			key, err := node.Condition(ctx, state)
			if err != nil {
				return state, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
			}
			next, ok := node.Branches[key]
			if !ok {
				return state, fmt.Errorf("node %s has no branch for %q", node.Name, key)
			}
			current = next
			continue
		}

		next, err := g.run(ctx, node, state)
		if err != nil {
			return state, fmt.Errorf("error executing node %s: %w", node.Name, err)
		}
		if next != nil {
			state = next
		}
		if node.Type == NodeTypeEnd {
			return state, nil
		}
		current = node.Next
	}
}

func (g *Graph) run(ctx context.Context, node *Node, state State) (State, error) {
	start := time.Now()
	out, err := node.Execute(ctx, state)
	if g.observer != nil {
		g.observer(node.Name, time.Since(start), err)
	}
	return out, err
}

func (g *Graph) children(node *Node) []string {
	if node.Type == NodeTypeCondition {
		out := make([]string, 0, len(node.Branches))
		for _, child := range node.Branches {
			out = append(out, child)
		}
		return out
	}
	if node.Next == "" {
		return nil
	}
	return []string{node.Next}
}

// Builder helps build graphs fluently.
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new graph builder.
func NewBuilder() *Builder {
	return &Builder{graph: NewGraph()}
}

// AddNode adds an executable node.
func (b *Builder) AddNode(name string, nodeType NodeType, execute NodeFunc) *Builder {
	b.graph.AddNode(&Node{Name: name, Type: nodeType, Execute: execute})
	return b
}

// AddConditionNode adds a branch point.
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, branches map[string]string) *Builder {
	b.graph.AddNode(&Node{
		Name:      name,
		Type:      NodeTypeCondition,
		Condition: condition,
		Branches:  branches,
	})
	return b
}

// AddEdge connects two nodes. A node has at most one plain outgoing edge.
func (b *Builder) AddEdge(from, to string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Type == NodeTypeCondition {
		panic(fmt.Sprintf("condition node %s routes through branches", from))
	}
	node.Next = to
	return b
}

// SetStart sets the start node.
func (b *Builder) SetStart(name string) *Builder {
	b.graph.SetStartNode(name)
	return b
}

// SetEnd sets the end node.
func (b *Builder) SetEnd(name string) *Builder {
	b.graph.SetEndNode(name)
	return b
}

// SetMaxVisits bounds node revisits.
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.graph.SetMaxVisits(maxVisits)
	return b
}

// Observe installs a node observer.
func (b *Builder) Observe(obs Observer) *Builder {
	b.graph.SetObserver(obs)
	return b
}

// Build returns the constructed graph.
func (b *Builder) Build() *Graph {
	return b.graph
}
