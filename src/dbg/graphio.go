package dbg

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/will-rowe/gfa"
	"github.com/will-rowe/kdbg/src/bighash"
	"github.com/will-rowe/kdbg/src/kmer"
)

// vertex is one end of a packed edge
type vertex struct {
	code   uint64
	strand []byte
}

func newVertex(fw uint64, k int) (vertex, error) {
	p, err := kmer.PackedFromLong(fw, k)
	if err != nil {
		return vertex{}, err
	}
	v := vertex{code: p.Canonical(), strand: []byte("+")}
	if p.Fw() != p.Canonical() {
		v.strand = []byte("-")
	}
	return v, nil
}

func (v vertex) name() []byte {
	return []byte(strconv.FormatUint(v.code, 10))
}

// splitEdge returns the prefix and suffix vertices of a packed (k+1)-mer key
func splitEdge(key uint64, k int) (vertex, vertex, error) {
	from, err := newVertex(key>>2, k)
	if err != nil {
		return vertex{}, vertex{}, err
	}
	to, err := newVertex(key, k)
	return from, to, err
}

// edgeFunc is called for every edge key and its weight
type edgeFunc func(key uint64, weight int32)

// SaveGraphAsGFA writes the graph in GFA v1, it returns the number of segments written.
// Edge keys must be packed (k+1)-mers, so k+1 must not exceed kmer.MaxPackedLength.
func (g *Graph) SaveGraphAsGFA(fileName string) (int, error) {
	return saveGFA(fileName, g.k, g.edges.Size(), false, func(fn edgeFunc) {
		for it := g.Iterator(); it.Next(); {
			fn(it.Key(), 0)
		}
	})
}

// SaveGraphAsGFA writes the graph in GFA v1, segments carry a KC tag with the summed weight of their edges
func (wg *WeightedGraph) SaveGraphAsGFA(fileName string) (int, error) {
	return saveGFA(fileName, wg.k, wg.edges.Size(), true, func(fn edgeFunc) {
		for it := wg.Iterator(); it.Next(); {
			fn(it.Key(), it.Value())
		}
	})
}

func saveGFA(fileName string, k int, numEdges uint64, weighted bool, edges func(edgeFunc)) (int, error) {
	if k+1 > kmer.MaxPackedLength {
		return 0, errors.Wrapf(kmer.ErrKmerTooLong, "GFA export needs packed edges, k+1=%d", k+1)
	}
	t := time.Now()
	stamp := fmt.Sprintf("de Bruijn graph exported by kdbg at: %v", t.Format("Mon Jan _2 15:04:05 2006"))
	newGFA := gfa.NewGFA()
	_ = newGFA.AddVersion(1)
	newGFA.AddComment([]byte(stamp))
	newGFA.AddComment([]byte(fmt.Sprintf("k=%d, segments are canonical k-mers named by their 2-bit code", k)))

	// collect the vertices first, summing the weight of the edges that touch them
	vertices := bighash.NewMap(bighash.CapacityFor(2*numEdges, bighash.DefaultLoadFactor))
	var splitErr error
	edges(func(key uint64, weight int32) {
		from, to, err := splitEdge(key, k)
		if err != nil {
			splitErr = err
			return
		}
		vertices.Add(from.code, weight)
		if to.code != from.code {
			vertices.Add(to.code, weight)
		}
	})
	if splitErr != nil {
		return 0, splitErr
	}
	for it := vertices.Iterator(); it.Next(); {
		p, err := kmer.PackedFromLong(it.Key(), k)
		if err != nil {
			return 0, err
		}
		v := vertex{code: it.Key()}
		seg, err := gfa.NewSegment(v.name(), []byte(p.String()))
		if err != nil {
			return 0, err
		}
		if weighted {
			ofs, err := gfa.NewOptionalFields([]byte(fmt.Sprintf("KC:i:%d", it.Value())))
			if err != nil {
				return 0, err
			}
			seg.AddOptionalFields(ofs)
		}
		seg.Add(newGFA)
	}

	// then one link per edge, the overlap is the shared k-1 bases
	overlap := []byte(strconv.Itoa(k-1) + "M")
	var linkErr error
	edges(func(key uint64, _ int32) {
		if linkErr != nil {
			return
		}
		from, to, err := splitEdge(key, k)
		if err != nil {
			linkErr = err
			return
		}
		link, err := gfa.NewLink(from.name(), from.strand, to.name(), to.strand, overlap)
		if err != nil {
			linkErr = err
			return
		}
		link.Add(newGFA)
	})
	if linkErr != nil {
		return 0, linkErr
	}

	outfile, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}
	defer outfile.Close()
	writer, err := gfa.NewWriter(outfile, newGFA)
	if err != nil {
		return 0, err
	}
	if err := newGFA.WriteGFAContent(writer); err != nil {
		return 0, err
	}
	return int(vertices.Size()), nil
}

// LoadGFA reads a GFA file into a GFA struct
func LoadGFA(fileName string) (*gfa.GFA, error) {
	fh, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	reader, err := gfa.NewReader(fh)
	if err != nil {
		return nil, fmt.Errorf("can't read gfa file: %v", err)
	}
	myGFA := reader.CollectGFA()
	for {
		line, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line in gfa file: %v", err)
		}
		if err := line.Add(myGFA); err != nil {
			return nil, fmt.Errorf("error adding line to GFA instance: %v", err)
		}
	}
	return myGFA, nil
}
