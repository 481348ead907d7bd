package moments

import (
	"math"
	"testing"

	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/particles"
)

func testGrid(t *testing.T) *grid.Grid {
	g, err := grid.New(4, 4, 4, 1, 1, 1, 0, 0, 0)
	if err != nil {
		t.Fatalf("Expected grid.New to succeed, got: %s", err.Error())
	}
	return g
}

// TestSingleParticleCellCenter puts one unit-charge particle at a cell
// center and checks that exactly 1/8 of the density lands on each of the
// cell's corners.
func TestSingleParticleCellCenter(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)
	dst := New(g)

	sp := particles.NewSpecies(particles.SoA)
	sp.Add(particles.Particle{Q: 1,
		X: g.XC(2), Y: g.YC(2), Z: g.ZC(2)})

	if err := acc.SumMoments(sp, dst); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	want := g.InvVol / 8
	corners := 0
	for i := 0; i < g.Nxn; i++ {
		for j := 0; j < g.Nyn; j++ {
			for k := 0; k < g.Nzn; k++ {
				rho := dst.Rho[g.NIdx(i, j, k)]
				if rho == 0 { continue }
				corners++
				if math.Abs(rho-want) > 1e-13*want {
					t.Errorf("Expected %g at corner (%d, %d, %d), got %g.",
						want, i, j, k, rho)
				}
			}
		}
	}
	if corners != 8 {
		t.Errorf("Expected exactly 8 corners to receive density, got %d.",
			corners)
	}
}

// TestChargeConservation checks that for particles strictly inside the
// subdomain, the node densities integrate back to the total particle
// charge.
func TestChargeConservation(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)
	dst := New(g)

	sp := particles.NewSpecies(particles.SoA)
	total := 0.0
	for p := 0; p < 50; p++ {
		f := float64(p)
		q := 0.01 * (f + 1)
		total += q
		// scatter through the interior, away from the walls
		sp.Add(particles.Particle{
			Q: q,
			U: f, V: -f, W: f / 2,
			X: 0.125 + 0.75*math.Mod(f*0.171, 1),
			Y: 0.125 + 0.75*math.Mod(f*0.377, 1),
			Z: 0.125 + 0.75*math.Mod(f*0.613, 1),
		})
	}

	if err := acc.SumMoments(sp, dst); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	dv := g.Dx * g.Dy * g.Dz
	sum := 0.0
	for _, rho := range dst.Rho {
		sum += rho
	}
	sum *= dv

	if math.Abs(sum-total) > 1e-12*total {
		t.Errorf("Expected the density to integrate to %g, got %g.",
			total, sum)
	}
}

// TestPartitionOfUnity checks that one particle's eight weights sum to
// q/V regardless of where it sits in its cell.
func TestPartitionOfUnity(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)

	for trial := 0; trial < 20; trial++ {
		f := float64(trial)
		sp := particles.NewSpecies(particles.SoA)
		sp.Add(particles.Particle{
			Q: 2,
			X: math.Mod(f*0.179, 1),
			Y: math.Mod(f*0.317, 1),
			Z: math.Mod(f*0.533, 1),
		})

		dst := New(g)
		if err := acc.SumMoments(sp, dst); err != nil {
			t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
		}

		sum := 0.0
		for _, rho := range dst.Rho {
			sum += rho
		}
		want := 2 * g.InvVol
		if math.Abs(sum-want) > 1e-12*want {
			t.Errorf("Trial %d: expected the weights to sum to %g, "+
				"got %g.", trial, want, sum)
		}
	}
}

// TestMomentLinearity deposits two particle sets separately and together;
// with the sets in different cells, the results must agree bitwise.
func TestMomentLinearity(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)

	a := particles.NewSpecies(particles.SoA)
	b := particles.NewSpecies(particles.SoA)
	both := particles.NewSpecies(particles.SoA)

	pa := particles.Particle{Q: 1, U: 2, V: 3, W: 4,
		X: 0.3, Y: 0.3, Z: 0.3}
	pb := particles.Particle{Q: -1, U: 5, V: 6, W: 7,
		X: 0.8, Y: 0.8, Z: 0.8}
	a.Add(pa)
	b.Add(pb)
	both.Add(pa)
	both.Add(pb)

	sum := New(g)
	if err := acc.SumMoments(a, sum); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}
	if err := acc.SumMoments(b, sum); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	once := New(g)
	if err := acc.SumMoments(both, once); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	sumArrays, onceArrays := sum.Arrays(), once.Arrays()
	for m := range sumArrays {
		for n := range sumArrays[m] {
			if sumArrays[m][n] != onceArrays[m][n] {
				t.Fatalf("Moment %d differs at node %d: %g vs %g.",
					m, n, sumArrays[m][n], onceArrays[m][n])
			}
		}
	}
}

// TestLayoutOracle checks that the SoA and AoS kernels produce identical
// moments for the same particle multiset.
func TestLayoutOracle(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)

	soa := particles.NewSpecies(particles.SoA)
	aos := particles.NewSpecies(particles.AoS)
	for p := 0; p < 100; p++ {
		f := float64(p)
		pcl := particles.Particle{
			Q: 0.5, U: f * 0.1, V: -f * 0.2, W: f * 0.05,
			X: math.Mod(f*0.101, 1),
			Y: math.Mod(f*0.239, 1),
			Z: math.Mod(f*0.457, 1),
		}
		soa.Add(pcl)
		aos.Add(pcl)
	}

	mSoA, mAoS := New(g), New(g)
	if err := acc.SumMoments(soa, mSoA); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}
	if err := acc.SumMoments(aos, mAoS); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	a, b := mSoA.Arrays(), mAoS.Arrays()
	for m := range a {
		for n := range a[m] {
			if a[m][n] != b[m][n] {
				t.Fatalf("Moment %d differs between layouts at node %d: "+
					"%g vs %g.", m, n, a[m][n], b[m][n])
			}
		}
	}
}

// TestVelocityMoments checks the current and pressure entries for one
// particle with a known velocity.
func TestVelocityMoments(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)
	dst := New(g)

	sp := particles.NewSpecies(particles.SoA)
	sp.Add(particles.Particle{Q: 1, U: 2, V: 3, W: 4,
		X: g.XC(2), Y: g.YC(2), Z: g.ZC(2)})
	if err := acc.SumMoments(sp, dst); err != nil {
		t.Fatalf("Expected SumMoments to succeed, got: %s", err.Error())
	}

	n := g.NIdx(2, 2, 2)
	rho := dst.Rho[n]
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"Jx", dst.Jx[n], 2 * rho},
		{"Jy", dst.Jy[n], 3 * rho},
		{"Jz", dst.Jz[n], 4 * rho},
		{"Pxx", dst.Pxx[n], 4 * rho},
		{"Pxy", dst.Pxy[n], 6 * rho},
		{"Pxz", dst.Pxz[n], 8 * rho},
		{"Pyy", dst.Pyy[n], 9 * rho},
		{"Pyz", dst.Pyz[n], 12 * rho},
		{"Pzz", dst.Pzz[n], 16 * rho},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-12*math.Abs(c.want) {
			t.Errorf("Expected %s = %g, got %g.", c.name, c.want, c.got)
		}
	}
}

// TestOutOfRangeParticle checks the precondition: a particle outside the
// ghost-extended subdomain is reported as an error.
func TestOutOfRangeParticle(t *testing.T) {
	g := testGrid(t)
	acc := NewAccumulator(g)
	dst := New(g)

	sp := particles.NewSpecies(particles.SoA)
	sp.Add(particles.Particle{Q: 1, X: 10, Y: 0.5, Z: 0.5})

	if err := acc.SumMoments(sp, dst); err == nil {
		t.Errorf("Expected an error for a particle far outside the " +
			"subdomain.")
	}
}
