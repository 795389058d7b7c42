package dag_test

import (
	"fmt"

	"github.com/matzehuels/pangraph/pkg/dag"
)

func ExampleGraph_basic() {
	// Three segments in a chain: 0 → 1 → 2
	g := dag.New(3)
	_ = g.AddNode(0, 120)
	_ = g.AddNode(1, 4)
	_ = g.AddNode(2, 37)
	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(1, 2)

	fmt.Println("Nodes:", g.NodeCount())
	fmt.Println("Edges:", g.EdgeCount())
	fmt.Println("Length of 2:", g.MustLength(2))
	// Output:
	// Nodes: 3
	// Edges: 2
	// Length of 2: 37
}

func ExampleGraph_traversal() {
	// A bubble: 0 branches into 1 and 2, which merge again in 3
	g := dag.New(4)
	for i := range 4 {
		_ = g.AddNode(i, 1)
	}
	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(1, 3)
	_ = g.AddEdge(2, 3)

	fmt.Println("Children of 0:", g.Outgoing(0))
	fmt.Println("Parents of 3:", g.Incoming(3))
	fmt.Println("Sources:", g.Sources())
	fmt.Println("Sinks:", g.Sinks())
	// Output:
	// Children of 0: [1 2]
	// Parents of 3: [1 2]
	// Sources: [0]
	// Sinks: [3]
}

func ExampleGraph_Validate() {
	g := dag.New(2)
	_ = g.AddNode(0, 1)
	_ = g.AddNode(1, 1)
	_ = g.AddEdge(0, 1)
	_ = g.AddEdge(1, 0)

	fmt.Println(g.Validate() != nil)
	// Output:
	// true
}
