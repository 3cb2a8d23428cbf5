// Package dbg is a compact de Bruijn graph: vertices are canonical k-mers and only the set of canonical (k+1)-mer edges is stored
package dbg

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/dna"
	"github.com/will-rowe/kdbg/src/kmer"
)

// Graph holds the vertex length and the set of canonical edge keys
type Graph struct {
	k     int
	edges *bighash.Set
}

// NewGraph returns an empty graph with room for capacity edges
func NewGraph(k int, capacity uint64) *Graph {
	return &Graph{
		k:     k,
		edges: bighash.NewSet(capacity),
	}
}

// NewGraphForMemory returns an empty graph sized to a memory budget in bytes
func NewGraphForMemory(k int, bytes uint64) *Graph {
	return &Graph{
		k:     k,
		edges: bighash.NewSetForMemory(bytes),
	}
}

// K returns the vertex length
func (g *Graph) K() int {
	return g.k
}

// AddEdge inserts a (k+1)-mer, returning true if it was new
func (g *Graph) AddEdge(e kmer.Canonical) bool {
	return g.edges.Put(e.Canonical())
}

// PutEdge inserts a canonical edge key, returning true if it was new
func (g *Graph) PutEdge(key uint64) bool {
	return g.edges.Put(key)
}

// ContainsEdge reports whether a (k+1)-mer is an edge
func (g *Graph) ContainsEdge(e kmer.Canonical) bool {
	return g.edges.Contains(e.Canonical())
}

// ContainsKey reports whether a canonical edge key is present
func (g *Graph) ContainsKey(key uint64) bool {
	return g.edges.Contains(key)
}

// EdgesSize returns the number of edges
func (g *Graph) EdgesSize() uint64 {
	return g.edges.Size()
}

// Edges exposes the underlying edge set
func (g *Graph) Edges() *bighash.Set {
	return g.edges
}

// Reset removes every edge, k is kept
func (g *Graph) Reset() {
	g.edges.Reset()
}

// Iterator walks the edge keys in slot order
func (g *Graph) Iterator() *bighash.SetIterator {
	return g.edges.Iterator()
}

// Outgoing returns the bases b for which vertex+b is an edge, keys are built with mode
func (g *Graph) Outgoing(vertex dna.Sequence, mode kmer.Mode) ([]byte, error) {
	return g.neighbours(vertex, mode, false)
}

// Incoming returns the bases b for which b+vertex is an edge
func (g *Graph) Incoming(vertex dna.Sequence, mode kmer.Mode) ([]byte, error) {
	return g.neighbours(vertex, mode, true)
}

func (g *Graph) neighbours(vertex dna.Sequence, mode kmer.Mode, left bool) ([]byte, error) {
	if vertex.Length() != g.k {
		return nil, errors.Errorf("vertex has length %d, graph has k=%d", vertex.Length(), g.k)
	}
	edge := make(dna.Dna, g.k+1)
	offset, free := 0, g.k
	if left {
		offset, free = 1, 0
	}
	for i := 0; i < g.k; i++ {
		edge[offset+i] = vertex.NucAt(i)
	}
	found := []byte{}
	for nuc := byte(0); nuc < 4; nuc++ {
		edge[free] = nuc
		var key uint64
		if err := kmer.Keys(edge, g.k+1, mode, func(k uint64) { key = k }); err != nil {
			return nil, err
		}
		if g.edges.Contains(key) {
			found = append(found, nuc)
		}
	}
	return found, nil
}

// WriteTo writes the edge set layout followed by k
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	e := bighash.NewEncoder(w)
	if err := g.edges.Encode(e); err != nil {
		return e.Written(), err
	}
	err := e.Int32s(int32(g.k))
	return e.Written(), err
}

// ReadFrom replaces the graph with one read from r
func (g *Graph) ReadFrom(r io.Reader) (int64, error) {
	d := bighash.NewDecoder(r)
	edges := &bighash.Set{}
	if err := edges.Decode(d); err != nil {
		return d.Consumed(), err
	}
	k, err := d.Int32()
	if err != nil {
		return d.Consumed(), err
	}
	g.k, g.edges = int(k), edges
	return d.Consumed(), nil
}

// Dump writes the graph to a file
func (g *Graph) Dump(path string) error {
	return bighash.DumpTo(path, g)
}

// Load replaces the graph with the contents of a file
func (g *Graph) Load(path string) error {
	return bighash.LoadFrom(path, g)
}

// SyncGraph guards a Graph with a mutex so loader minions can insert into it
type SyncGraph struct {
	mu    sync.Mutex
	graph *Graph
}

// NewSyncGraph wraps g
func NewSyncGraph(g *Graph) *SyncGraph {
	return &SyncGraph{graph: g}
}

// Add inserts a canonical edge key
func (sg *SyncGraph) Add(key uint64) {
	sg.mu.Lock()
	sg.graph.PutEdge(key)
	sg.mu.Unlock()
}

// Graph returns the wrapped graph, only safe once writers have finished
func (sg *SyncGraph) Graph() *Graph {
	return sg.graph
}

// Counts is anything that can iterate key/count pairs (bighash.Map, bighash.ShardedMap)
type Counts interface {
	Iterator() *bighash.MapIterator
}

// BuildFromCounts makes a graph of every edge key counted at least minCount times
func BuildFromCounts(counts Counts, k int, minCount int32) *Graph {
	var n uint64
	for it := counts.Iterator(); it.Next(); {
		if it.Value() >= minCount {
			n++
		}
	}
	g := NewGraph(k, bighash.CapacityFor(n, bighash.DefaultLoadFactor))
	for it := counts.Iterator(); it.Next(); {
		if it.Value() >= minCount {
			g.PutEdge(it.Key())
		}
	}
	return g
}
