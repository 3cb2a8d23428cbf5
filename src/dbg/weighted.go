package dbg

import (
	"io"
	"sync"

	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/kmer"
)

// BytesPerWeightedEdge is the memory budget used per edge of a WeightedGraph
const BytesPerWeightedEdge = 24

// WeightedGraph is a de Bruijn graph that keeps how many times each edge was seen.
// It has a single writer, loader minions write through a SyncWeightedGraph.
type WeightedGraph struct {
	k     int
	edges *bighash.Map
}

// NewWeightedGraph returns an empty graph with room for capacity edges
func NewWeightedGraph(k int, capacity uint64) *WeightedGraph {
	return &WeightedGraph{k: k, edges: bighash.NewMap(capacity)}
}

// WeightedCapacity returns the slots needed for n edges at bighash.DefaultLoadFactor,
// capped at what a memory budget in bytes can hold
func WeightedCapacity(n, maxBytes uint64) uint64 {
	capacity := bighash.CapacityFor(n, bighash.DefaultLoadFactor)
	limit := maxBytes / bighash.BytesPerMapEntry
	if limit < 1 {
		limit = 1
	}
	if capacity > limit {
		return limit
	}
	return capacity
}

// NewWeightedGraphForMemory returns an empty graph sized to a memory budget in bytes
func NewWeightedGraphForMemory(k int, bytes uint64) *WeightedGraph {
	capacity := bytes / BytesPerWeightedEdge
	if capacity < 1 {
		capacity = 1
	}
	return NewWeightedGraph(k, capacity)
}

// K returns the vertex length
func (wg *WeightedGraph) K() int {
	return wg.k
}

// AddEdge counts one occurrence of a (k+1)-mer and returns its new weight
func (wg *WeightedGraph) AddEdge(e kmer.Canonical) int32 {
	return wg.edges.Add(e.Canonical(), 1)
}

// AddWeight adds w to the weight of a canonical edge key and returns the new weight
func (wg *WeightedGraph) AddWeight(key uint64, w int32) int32 {
	return wg.edges.Add(key, w)
}

// Weight returns how many times an edge was seen
func (wg *WeightedGraph) Weight(e kmer.Canonical) int32 {
	return wg.edges.Get(e.Canonical())
}

// WeightOf returns the weight of a canonical edge key
func (wg *WeightedGraph) WeightOf(key uint64) int32 {
	return wg.edges.Get(key)
}

// EdgesSize returns the number of distinct edges
func (wg *WeightedGraph) EdgesSize() uint64 {
	return wg.edges.Size()
}

// LoadFactor returns the fill of the edge table
func (wg *WeightedGraph) LoadFactor() float64 {
	return wg.edges.LoadFactor()
}

// Reset removes every edge, k is kept
func (wg *WeightedGraph) Reset() {
	wg.edges.Reset()
}

// Iterator walks edge keys and weights in slot order
func (wg *WeightedGraph) Iterator() *bighash.MapIterator {
	return wg.edges.Iterator()
}

// Threshold returns the unweighted graph of edges seen at least minWeight times
func (wg *WeightedGraph) Threshold(minWeight int32) *Graph {
	return BuildFromCounts(wg, wg.k, minWeight)
}

// WriteTo writes the edge map layout followed by k
func (wg *WeightedGraph) WriteTo(w io.Writer) (int64, error) {
	e := bighash.NewEncoder(w)
	if err := wg.edges.Encode(e); err != nil {
		return e.Written(), err
	}
	err := e.Int32s(int32(wg.k))
	return e.Written(), err
}

// ReadFrom replaces the graph with one read from r
func (wg *WeightedGraph) ReadFrom(r io.Reader) (int64, error) {
	d := bighash.NewDecoder(r)
	edges := &bighash.Map{}
	if err := edges.Decode(d); err != nil {
		return d.Consumed(), err
	}
	k, err := d.Int32()
	if err != nil {
		return d.Consumed(), err
	}
	wg.k, wg.edges = int(k), edges
	return d.Consumed(), nil
}

// Dump writes the graph to a file
func (wg *WeightedGraph) Dump(path string) error {
	return bighash.DumpTo(path, wg)
}

// Load replaces the graph with the contents of a file
func (wg *WeightedGraph) Load(path string) error {
	return bighash.LoadFrom(path, wg)
}

// SyncWeightedGraph guards a WeightedGraph with a mutex so loader minions can count edges into it
type SyncWeightedGraph struct {
	mu    sync.Mutex
	graph *WeightedGraph
}

// NewSyncWeightedGraph wraps wg
func NewSyncWeightedGraph(wg *WeightedGraph) *SyncWeightedGraph {
	return &SyncWeightedGraph{graph: wg}
}

// Add counts one occurrence of a canonical edge key
func (sw *SyncWeightedGraph) Add(key uint64) {
	sw.mu.Lock()
	sw.graph.edges.Add(key, 1)
	sw.mu.Unlock()
}

// Graph returns the wrapped graph, only safe once writers have finished
func (sw *SyncWeightedGraph) Graph() *WeightedGraph {
	return sw.graph
}
