package grid

import (
	"math"
	"testing"
)

func testGrid(t *testing.T) *Grid {
	g, err := New(4, 4, 4, 1, 1, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("Expected New to succeed, got: %s", err.Error())
	}
	return g
}

func TestNewErrors(t *testing.T) {
	if _, err := New(0, 4, 4, 1, 1, 1, 0, 0, 0); err == nil {
		t.Errorf("Expected an error for a zero-cell mesh.")
	}
	if _, err := New(4, 4, 4, -1, 1, 1, 0, 0, 0); err == nil {
		t.Errorf("Expected an error for a negative extent.")
	}
}

func TestCoordinates(t *testing.T) {
	g := testGrid(t)

	if g.Nxc != 6 || g.Nxn != 7 {
		t.Errorf("Expected Nxc, Nxn = 6, 7, got %d, %d.", g.Nxc, g.Nxn)
	}
	if g.XN(1) != 0 {
		t.Errorf("Expected node 1 at the subdomain start, got %g.", g.XN(1))
	}
	if g.XN(g.Nxn-2) != g.XEnd {
		t.Errorf("Expected node %d at the subdomain end, got %g.",
			g.Nxn-2, g.XN(g.Nxn-2))
	}
	if math.Abs(g.XC(1)-g.Dx/2) > 1e-15 {
		t.Errorf("Expected center 1 at dx/2, got %g.", g.XC(1))
	}
	if math.Abs(g.XC(0)+g.Dx/2) > 1e-15 {
		t.Errorf("Expected ghost center 0 at -dx/2, got %g.", g.XC(0))
	}
}

func TestIndexRoundTrip(t *testing.T) {
	g := testGrid(t)
	seen := map[int]bool{}
	for i := 0; i < g.Nxn; i++ {
		for j := 0; j < g.Nyn; j++ {
			for k := 0; k < g.Nzn; k++ {
				n := g.NIdx(i, j, k)
				if n < 0 || n >= g.NN() || seen[n] {
					t.Fatalf("NIdx(%d, %d, %d) = %d is out of range or "+
						"repeated.", i, j, k, n)
				}
				seen[n] = true
			}
		}
	}
}

// fillPeriodicNode makes a node array's ghost and wall planes consistent
// with a periodic wrap.
func fillPeriodicNode(g *Grid, v []float64) {
	for j := 0; j < g.Nyn; j++ {
		for k := 0; k < g.Nzn; k++ {
			v[g.NIdx(g.Nxn-2, j, k)] = v[g.NIdx(1, j, k)]
			v[g.NIdx(0, j, k)] = v[g.NIdx(g.Nxn-3, j, k)]
			v[g.NIdx(g.Nxn-1, j, k)] = v[g.NIdx(2, j, k)]
		}
	}
	for i := 0; i < g.Nxn; i++ {
		for k := 0; k < g.Nzn; k++ {
			v[g.NIdx(i, g.Nyn-2, k)] = v[g.NIdx(i, 1, k)]
			v[g.NIdx(i, 0, k)] = v[g.NIdx(i, g.Nyn-3, k)]
			v[g.NIdx(i, g.Nyn-1, k)] = v[g.NIdx(i, 2, k)]
		}
	}
	for i := 0; i < g.Nxn; i++ {
		for j := 0; j < g.Nyn; j++ {
			v[g.NIdx(i, j, g.Nzn-2)] = v[g.NIdx(i, j, 1)]
			v[g.NIdx(i, j, 0)] = v[g.NIdx(i, j, g.Nzn-3)]
			v[g.NIdx(i, j, g.Nzn-1)] = v[g.NIdx(i, j, 2)]
		}
	}
}

// fillPeriodicCenter does the same for a center array.
func fillPeriodicCenter(g *Grid, v []float64) {
	for j := 0; j < g.Nyc; j++ {
		for k := 0; k < g.Nzc; k++ {
			v[g.CIdx(0, j, k)] = v[g.CIdx(g.Nxc-2, j, k)]
			v[g.CIdx(g.Nxc-1, j, k)] = v[g.CIdx(1, j, k)]
		}
	}
	for i := 0; i < g.Nxc; i++ {
		for k := 0; k < g.Nzc; k++ {
			v[g.CIdx(i, 0, k)] = v[g.CIdx(i, g.Nyc-2, k)]
			v[g.CIdx(i, g.Nyc-1, k)] = v[g.CIdx(i, 1, k)]
		}
	}
	for i := 0; i < g.Nxc; i++ {
		for j := 0; j < g.Nyc; j++ {
			v[g.CIdx(i, j, 0)] = v[g.CIdx(i, j, g.Nzc-2)]
			v[g.CIdx(i, j, g.Nzc-1)] = v[g.CIdx(i, j, 1)]
		}
	}
}

// hash fills an array with a deterministic pseudo-random pattern.
func hash(v []float64, seed uint64) {
	x := seed*0x9e3779b97f4a7c15 + 1
	for i := range v {
		x ^= x << 13
		x ^= x >> 7
		x ^= x << 17
		v[i] = float64(x%1000)/1000 - 0.5
	}
}

// TestGradDivAdjoint checks the discrete integration-by-parts identity:
// on a periodic box, sum(s * div(v)) = -sum(grad(s) . v) over unique
// cells and nodes.
func TestGradDivAdjoint(t *testing.T) {
	g := testGrid(t)

	s := g.CenterArray()
	vx, vy, vz := g.NodeArray(), g.NodeArray(), g.NodeArray()
	hash(s, 1)
	hash(vx, 2)
	hash(vy, 3)
	hash(vz, 4)
	fillPeriodicCenter(g, s)
	fillPeriodicNode(g, vx)
	fillPeriodicNode(g, vy)
	fillPeriodicNode(g, vz)

	div := g.CenterArray()
	g.DivN2C(div, vx, vy, vz)
	gx, gy, gz := g.NodeArray(), g.NodeArray(), g.NodeArray()
	g.GradC2N(gx, gy, gz, s)

	lhs := 0.0
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				c := g.CIdx(i, j, k)
				lhs += s[c] * div[c]
			}
		}
	}
	rhs := 0.0
	for i := 1; i < g.Nxn-2; i++ {
		for j := 1; j < g.Nyn-2; j++ {
			for k := 1; k < g.Nzn-2; k++ {
				n := g.NIdx(i, j, k)
				rhs += gx[n]*vx[n] + gy[n]*vy[n] + gz[n]*vz[n]
			}
		}
	}

	if math.Abs(lhs+rhs) > 1e-11 {
		t.Errorf("Expected sum(s div v) = -sum(grad s . v), got %g and %g "+
			"(defect %g).", lhs, rhs, lhs+rhs)
	}
}

// noopExchanger satisfies Exchanger without communicating; the test
// arrays already carry correct ghosts.
type noopExchanger struct{}

func (noopExchanger) CenterP(v []float64) error        { return nil }
func (noopExchanger) CenterStencilP(v []float64) error { return nil }

func TestLapC2CPoissonQuadratic(t *testing.T) {
	g := testGrid(t)
	ws := NewWorkspace(g)

	s := g.CenterArray()
	for i := 0; i < g.Nxc; i++ {
		for j := 0; j < g.Nyc; j++ {
			for k := 0; k < g.Nzc; k++ {
				x := g.XC(i)
				s[g.CIdx(i, j, k)] = x * x
			}
		}
	}

	out := g.CenterArray()
	if err := g.LapC2CPoisson(out, s, ws, noopExchanger{}); err != nil {
		t.Fatalf("Expected LapC2CPoisson to succeed, got: %s", err.Error())
	}

	// The centered second difference of x^2 is exactly 2 wherever the
	// stencil sees only un-reflected values.
	for i := 2; i < g.Nxc-2; i++ {
		for j := 2; j < g.Nyc-2; j++ {
			for k := 2; k < g.Nzc-2; k++ {
				got := out[g.CIdx(i, j, k)]
				if math.Abs(got-2) > 1e-10 {
					t.Fatalf("Expected lap(x^2) = 2 at (%d, %d, %d), "+
						"got %g.", i, j, k, got)
				}
			}
		}
	}
}

func TestLapN2NConstant(t *testing.T) {
	g := testGrid(t)
	ws := NewWorkspace(g)

	s := g.NodeArray()
	for i := range s {
		s[i] = 3.5
	}
	out := g.NodeArray()
	if err := g.LapN2N(out, s, ws, noopExchanger{}); err != nil {
		t.Fatalf("Expected LapN2N to succeed, got: %s", err.Error())
	}
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				if got := out[g.NIdx(i, j, k)]; math.Abs(got) > 1e-13 {
					t.Fatalf("Expected lap(const) = 0, got %g at "+
						"(%d, %d, %d).", got, i, j, k)
				}
			}
		}
	}
}

func TestInterpConstant(t *testing.T) {
	g := testGrid(t)

	n := g.NodeArray()
	for i := range n {
		n[i] = 2.25
	}
	c := g.CenterArray()
	g.InterpN2C(c, n)
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				if got := c[g.CIdx(i, j, k)]; got != 2.25 {
					t.Fatalf("Expected InterpN2C to preserve a constant, "+
						"got %g.", got)
				}
			}
		}
	}

	back := g.NodeArray()
	g.InterpC2N(back, c)
	for i := 2; i < g.Nxn-2; i++ {
		for j := 2; j < g.Nyn-2; j++ {
			for k := 2; k < g.Nzn-2; k++ {
				if got := back[g.NIdx(i, j, k)]; got != 2.25 {
					t.Fatalf("Expected InterpC2N to preserve a constant, "+
						"got %g.", got)
				}
			}
		}
	}
}

// TestCurlOfGradient checks that curl(grad(s)) vanishes identically on
// the staggered mesh.
func TestCurlOfGradient(t *testing.T) {
	g := testGrid(t)

	s := g.CenterArray()
	hash(s, 7)
	fillPeriodicCenter(g, s)

	gx, gy, gz := g.NodeArray(), g.NodeArray(), g.NodeArray()
	g.GradC2N(gx, gy, gz, s)
	fillPeriodicNode(g, gx)
	fillPeriodicNode(g, gy)
	fillPeriodicNode(g, gz)

	cx, cy, cz := g.CenterArray(), g.CenterArray(), g.CenterArray()
	g.CurlN2C(cx, cy, cz, gx, gy, gz)

	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				c := g.CIdx(i, j, k)
				for _, v := range [3]float64{cx[c], cy[c], cz[c]} {
					if math.Abs(v) > 1e-12 {
						t.Fatalf("Expected curl(grad s) = 0, got %g at "+
							"(%d, %d, %d).", v, i, j, k)
					}
				}
			}
		}
	}
}
