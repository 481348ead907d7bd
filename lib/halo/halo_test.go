package halo

import (
	"math"
	"sync"
	"testing"

	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

func singleRank(
	t *testing.T, px, py, pz bool,
) (*grid.Grid, *Comm) {
	g, err := grid.New(4, 4, 4, 1, 1, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("Expected grid.New to succeed, got: %s", err.Error())
	}
	topo, err := topology.NewCartesian(0, 1, 1, 1, px, py, pz)
	if err != nil {
		t.Fatalf("Expected NewCartesian to succeed, got: %s", err.Error())
	}
	tr := transport.NewNetwork(1).Endpoint(0)
	return g, New(g, topo, tr)
}

func TestNodePeriodicWrap(t *testing.T) {
	g, c := singleRank(t, true, true, true)

	v := g.NodeArray()
	for i := 0; i < g.Nxn; i++ {
		for j := 0; j < g.Nyn; j++ {
			for k := 0; k < g.Nzn; k++ {
				v[g.NIdx(i, j, k)] =
					float64(100*i + 10*j + k)
			}
		}
	}

	if err := c.NodeBC(v, [6]int{0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Expected NodeBC to succeed, got: %s", err.Error())
	}

	// Ghost plane 0 wraps to plane Nxn-3 and plane Nxn-1 to plane 2, in
	// the x-interior of the other axes.
	for j := 1; j < g.Nyn-1; j++ {
		for k := 1; k < g.Nzn-1; k++ {
			want := float64(100*(g.Nxn-3) + 10*j + k)
			if got := v[g.NIdx(0, j, k)]; got != want {
				t.Fatalf("Expected ghost (0, %d, %d) = %g, got %g.",
					j, k, want, got)
			}
			want = float64(100*2 + 10*j + k)
			if got := v[g.NIdx(g.Nxn-1, j, k)]; got != want {
				t.Fatalf("Expected ghost (%d, %d, %d) = %g, got %g.",
					g.Nxn-1, j, k, want, got)
			}
		}
	}
}

func TestCenterPeriodicWrap(t *testing.T) {
	g, c := singleRank(t, true, true, true)

	v := g.CenterArray()
	for i := 0; i < g.Nxc; i++ {
		for j := 0; j < g.Nyc; j++ {
			for k := 0; k < g.Nzc; k++ {
				v[g.CIdx(i, j, k)] = float64(100*i + 10*j + k)
			}
		}
	}

	if err := c.CenterBC(v, [6]int{0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Expected CenterBC to succeed, got: %s", err.Error())
	}

	for j := 1; j < g.Nyc-1; j++ {
		for k := 1; k < g.Nzc-1; k++ {
			want := float64(100*(g.Nxc-2) + 10*j + k)
			if got := v[g.CIdx(0, j, k)]; got != want {
				t.Fatalf("Expected ghost (0, %d, %d) = %g, got %g.",
					j, k, want, got)
			}
			want = float64(100*1 + 10*j + k)
			if got := v[g.CIdx(g.Nxc-1, j, k)]; got != want {
				t.Fatalf("Expected ghost (%d, %d, %d) = %g, got %g.",
					g.Nxc-1, j, k, want, got)
			}
		}
	}
}

func TestMirrorAndOpenFaces(t *testing.T) {
	g, c := singleRank(t, false, true, true)

	v := g.NodeArray()
	for i := range v {
		v[i] = 1
	}
	// mirror on the X faces, periodic elsewhere
	if err := c.NodeBC(v, [6]int{1, 1, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Expected NodeBC to succeed, got: %s", err.Error())
	}
	if got := v[g.NIdx(0, 2, 2)]; got != -1 {
		t.Errorf("Expected an odd reflection at the left wall, got %g.", got)
	}
	if got := v[g.NIdx(g.Nxn-1, 2, 2)]; got != -1 {
		t.Errorf("Expected an odd reflection at the right wall, got %g.",
			got)
	}

	for i := range v {
		v[i] = 1
	}
	if err := c.NodeBC(v, [6]int{2, 2, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Expected NodeBC to succeed, got: %s", err.Error())
	}
	if got := v[g.NIdx(0, 2, 2)]; got != 1 {
		t.Errorf("Expected an even reflection at the left wall, got %g.",
			got)
	}
}

func TestInterpAddSelfLoop(t *testing.T) {
	g, c := singleRank(t, true, true, true)

	v := g.NodeArray()
	// one unit on the x wall plane 1, at an interior (j, k)
	v[g.NIdx(1, 3, 3)] = 1

	if err := c.InterpAdd(v); err != nil {
		t.Fatalf("Expected InterpAdd to succeed, got: %s", err.Error())
	}

	// The wall planes 1 and Nxn-2 are the same physical nodes, so both
	// must now hold the full sum.
	if got := v[g.NIdx(1, 3, 3)]; got != 1 {
		t.Errorf("Expected plane 1 to keep its sum, got %g.", got)
	}
	if got := v[g.NIdx(g.Nxn-2, 3, 3)]; got != 1 {
		t.Errorf("Expected the far wall plane to gain the sum, got %g.",
			got)
	}
}

func TestInterpAddGhostContribution(t *testing.T) {
	g, c := singleRank(t, true, true, true)

	v := g.NodeArray()
	// a contribution that leaked into the x ghost plane
	v[g.NIdx(0, 3, 3)] = 2

	if err := c.InterpAdd(v); err != nil {
		t.Fatalf("Expected InterpAdd to succeed, got: %s", err.Error())
	}

	// Ghost plane 0 coincides with interior plane Nxn-3 under the wrap.
	if got := v[g.NIdx(g.Nxn-3, 3, 3)]; got != 2 {
		t.Errorf("Expected the ghost charge at interior plane %d, got %g.",
			g.Nxn-3, got)
	}
}

// TestTwoRankExchange splits a periodic axis across two ranks and checks
// that the ghost planes come from the neighbor.
func TestTwoRankExchange(t *testing.T) {
	net := transport.NewNetwork(2)

	gs := [2]*grid.Grid{}
	cs := [2]*Comm{}
	vs := [2][]float64{}
	for r := 0; r < 2; r++ {
		g, err := grid.New(4, 4, 4, 1, 1, 1, float64(r), 0, 0)
		if err != nil {
			t.Fatalf("Expected grid.New to succeed, got: %s", err.Error())
		}
		topo, err := topology.NewCartesian(r, 2, 1, 1, true, true, true)
		if err != nil {
			t.Fatalf("Expected NewCartesian to succeed, got: %s",
				err.Error())
		}
		gs[r] = g
		cs[r] = New(g, topo, net.Endpoint(r))
		vs[r] = g.CenterArray()
		for i := range vs[r] {
			vs[r][i] = float64(r + 1)
		}
	}

	wg := &sync.WaitGroup{}
	wg.Add(2)
	errs := [2]error{}
	for r := 0; r < 2; r++ {
		go func(r int) {
			defer wg.Done()
			errs[r] = cs[r].CenterBC(vs[r], [6]int{0, 0, 0, 0, 0, 0})
		}(r)
	}
	wg.Wait()
	for r := 0; r < 2; r++ {
		if errs[r] != nil {
			t.Fatalf("Expected rank %d's exchange to succeed, got: %s",
				r, errs[r].Error())
		}
	}

	g := gs[0]
	// rank 0's x ghosts both come from rank 1
	if got := vs[0][g.CIdx(0, 2, 2)]; got != 2 {
		t.Errorf("Expected rank 0's left ghost to come from rank 1, "+
			"got %g.", got)
	}
	if got := vs[0][g.CIdx(g.Nxc-1, 2, 2)]; got != 2 {
		t.Errorf("Expected rank 0's right ghost to come from rank 1, "+
			"got %g.", got)
	}
	if got := vs[1][g.CIdx(0, 2, 2)]; got != 1 {
		t.Errorf("Expected rank 1's left ghost to come from rank 0, "+
			"got %g.", got)
	}
}

func TestExchangePreservesInterior(t *testing.T) {
	g, c := singleRank(t, true, true, true)

	v := g.NodeArray()
	for i := range v {
		v[i] = math.Sin(float64(i))
	}
	want := make([]float64, len(v))
	copy(want, v)

	if err := c.NodeBC(v, [6]int{0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("Expected NodeBC to succeed, got: %s", err.Error())
	}

	for i := 2; i < g.Nxn-2; i++ {
		for j := 2; j < g.Nyn-2; j++ {
			for k := 2; k < g.Nzn-2; k++ {
				n := g.NIdx(i, j, k)
				if v[n] != want[n] {
					t.Fatalf("Expected the deep interior to be untouched "+
						"at (%d, %d, %d).", i, j, k)
				}
			}
		}
	}
}
