/*package snapshot reads and writes gopic's compressed state dumps. A dump
is a flat container of named 3D double blocks, stored without ghost
layers and compressed with zstd. The block paths mirror the layout older
tooling expects: /fields/{Bx,By,Bz,Ex,Ey,Ez}/cycle_N for the node fields
and /moments/species_<i>/rho/cycle_N for the per-species densities.

Restart policy lives outside the core: this package only moves blocks
between disk and the setters the field state exposes.*/
package snapshot

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/DataDog/zstd"

	"github.com/phil-mansfield/gopic/lib/field"
	"github.com/phil-mansfield/gopic/lib/grid"
)

const (
	// Magic marks gopic snapshot files.
	Magic uint64 = 0x50494347 // "GCIP"
	// Version differentiates breaking changes to the container format.
	Version uint64 = 0x1
)

// Block is one named 3D double block.
type Block struct {
	Path string
	Dims [3]int
	Data []float64
}

// Snapshot is an ordered collection of blocks.
type Snapshot struct {
	Blocks []Block
}

// Lookup returns the block with the given path, or an error naming the
// missing path.
func (s *Snapshot) Lookup(path string) (*Block, error) {
	for i := range s.Blocks {
		if s.Blocks[i].Path == path {
			return &s.Blocks[i], nil
		}
	}
	return nil, fmt.Errorf("The snapshot has no block named '%s'.", path)
}

// f64Bytes reinterprets a []float64 as raw bytes.
func f64Bytes(x []float64) []byte {
	if len(x) == 0 { return nil }
	return unsafe.Slice((*byte)(unsafe.Pointer(&x[0])), len(x)*8)
}

// Write stores a snapshot at path.
func Write(path string, s *Snapshot) error {
	f, err := os.Create(path)
	if err != nil { return err }
	defer f.Close()

	order := binary.LittleEndian
	if err := binary.Write(f, order, Magic); err != nil { return err }
	if err := binary.Write(f, order, Version); err != nil { return err }
	if err := binary.Write(f, order, int64(len(s.Blocks))); err != nil {
		return err
	}

	for i := range s.Blocks {
		b := &s.Blocks[i]
		if b.Dims[0]*b.Dims[1]*b.Dims[2] != len(b.Data) {
			return fmt.Errorf("Block '%s' claims dimensions (%d, %d, %d), "+
				"but holds %d values.", b.Path,
				b.Dims[0], b.Dims[1], b.Dims[2], len(b.Data))
		}

		comp, err := zstd.Compress(nil, f64Bytes(b.Data))
		if err != nil { return err }

		if err := binary.Write(f, order, int64(len(b.Path))); err != nil {
			return err
		}
		if _, err := f.Write([]byte(b.Path)); err != nil { return err }
		for d := 0; d < 3; d++ {
			if err := binary.Write(f, order, int64(b.Dims[d])); err != nil {
				return err
			}
		}
		if err := binary.Write(f, order, int64(len(comp))); err != nil {
			return err
		}
		if _, err := f.Write(comp); err != nil { return err }
	}
	return nil
}

// Read loads the snapshot at path.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil { return nil, err }
	defer f.Close()

	order := binary.LittleEndian
	var magic, version uint64
	if err := binary.Read(f, order, &magic); err != nil { return nil, err }
	if magic != Magic {
		return nil, fmt.Errorf("'%s' is not a gopic snapshot.", path)
	}
	if err := binary.Read(f, order, &version); err != nil { return nil, err }
	if version != Version {
		return nil, fmt.Errorf("'%s' has snapshot version %d, but this "+
			"build reads version %d.", path, version, Version)
	}

	var nBlocks int64
	if err := binary.Read(f, order, &nBlocks); err != nil { return nil, err }

	s := &Snapshot{}
	for bi := int64(0); bi < nBlocks; bi++ {
		var pathLen int64
		if err := binary.Read(f, order, &pathLen); err != nil {
			return nil, err
		}
		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(f, pathBytes); err != nil { return nil, err }

		b := Block{Path: string(pathBytes)}
		n := 1
		for d := 0; d < 3; d++ {
			var dim int64
			if err := binary.Read(f, order, &dim); err != nil {
				return nil, err
			}
			b.Dims[d] = int(dim)
			n *= b.Dims[d]
		}

		var compLen int64
		if err := binary.Read(f, order, &compLen); err != nil {
			return nil, err
		}
		comp := make([]byte, compLen)
		if _, err := io.ReadFull(f, comp); err != nil { return nil, err }

		b.Data = make([]float64, n)
		raw, err := zstd.Decompress(f64Bytes(b.Data), comp)
		if err != nil { return nil, err }
		if len(raw) != n*8 {
			return nil, fmt.Errorf("Block '%s' decompressed to %d bytes, "+
				"but its dimensions require %d.", b.Path, len(raw), n*8)
		}
		// Decompress may hand back its own buffer instead of ours.
		copy(f64Bytes(b.Data), raw)

		s.Blocks = append(s.Blocks, b)
	}
	return s, nil
}

// stripGhosts copies the interior of a node array into a fresh block.
func stripGhosts(g *grid.Grid, v []float64) ([3]int, []float64) {
	nx, ny, nz := g.Nxn-2, g.Nyn-2, g.Nzn-2
	out := make([]float64, nx*ny*nz)
	n := 0
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				out[n] = v[g.NIdx(i, j, k)]
				n++
			}
		}
	}
	return [3]int{nx, ny, nz}, out
}

// insertGhosts writes a block's values into the interior of a node array.
func insertGhosts(g *grid.Grid, v []float64, b *Block) error {
	if b.Dims != [3]int{g.Nxn - 2, g.Nyn - 2, g.Nzn - 2} {
		return fmt.Errorf("Block '%s' has dimensions (%d, %d, %d), but "+
			"the mesh interior is (%d, %d, %d).", b.Path,
			b.Dims[0], b.Dims[1], b.Dims[2],
			g.Nxn-2, g.Nyn-2, g.Nzn-2)
	}
	n := 0
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				v[g.NIdx(i, j, k)] = b.Data[n]
				n++
			}
		}
	}
	return nil
}

// FromState collects the field and per-species density blocks of one
// cycle.
func FromState(st *field.State, cycle int) *Snapshot {
	g := st.Grid()
	s := &Snapshot{}

	addNode := func(name string, v []float64) {
		dims, data := stripGhosts(g, v)
		s.Blocks = append(s.Blocks, Block{
			Path: fmt.Sprintf("/fields/%s/cycle_%d", name, cycle),
			Dims: dims, Data: data,
		})
	}
	addNode("Bx", st.Bxn)
	addNode("By", st.Byn)
	addNode("Bz", st.Bzn)
	addNode("Ex", st.Ex)
	addNode("Ey", st.Ey)
	addNode("Ez", st.Ez)

	for is, sp := range st.Species {
		dims, data := stripGhosts(g, sp.Rho)
		s.Blocks = append(s.Blocks, Block{
			Path: fmt.Sprintf("/moments/species_%d/rho/cycle_%d", is, cycle),
			Dims: dims, Data: data,
		})
	}
	return s
}

// Apply pushes a snapshot's cycle blocks back into a state through its
// setters. The caller re-runs the ghost exchanges afterwards.
func Apply(st *field.State, s *Snapshot, cycle int) error {
	g := st.Grid()

	load := func(name string, v []float64) error {
		b, err := s.Lookup(fmt.Sprintf("/fields/%s/cycle_%d", name, cycle))
		if err != nil { return err }
		return insertGhosts(g, v, b)
	}

	ex, ey, ez := g.NodeArray(), g.NodeArray(), g.NodeArray()
	bx, by, bz := g.NodeArray(), g.NodeArray(), g.NodeArray()
	copy(ex, st.Ex)
	copy(ey, st.Ey)
	copy(ez, st.Ez)
	copy(bx, st.Bxn)
	copy(by, st.Byn)
	copy(bz, st.Bzn)

	for _, pair := range []struct {
		name string
		v    []float64
	}{{"Ex", ex}, {"Ey", ey}, {"Ez", ez},
		{"Bx", bx}, {"By", by}, {"Bz", bz}} {
		if err := load(pair.name, pair.v); err != nil { return err }
	}
	st.SetE(ex, ey, ez)
	st.SetB(bx, by, bz)

	for is, sp := range st.Species {
		path := fmt.Sprintf("/moments/species_%d/rho/cycle_%d", is, cycle)
		b, err := s.Lookup(path)
		if err != nil { return err }
		if err := insertGhosts(g, sp.Rho, b); err != nil { return err }
	}
	return nil
}
