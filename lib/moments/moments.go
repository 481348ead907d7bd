/*package moments implements particle-to-grid moment accumulation: the ten
velocity moments {1, u, v, w, uu, uv, uw, vv, vw, ww} of one species,
interpolated onto the node mesh with trilinear weights.

Accumulation runs with per-worker scratch arrays so no locks or atomics
appear in the hot loop: workers deposit disjoint particle ranges into their
own scratch, then a parallel reduction sums the scratch arrays into the
species' moment arrays, each worker owning a disjoint slab of node
indices.*/
package moments

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/particles"
	"github.com/phil-mansfield/gopic/lib/thread"
)

// nMoments is the number of accumulated velocity moments.
const nMoments = 10

// Moments holds one species' node-centered moment arrays: charge density,
// current, and the symmetric pressure tensor.
type Moments struct {
	Rho        []float64
	Jx, Jy, Jz []float64
	Pxx, Pxy, Pxz, Pyy, Pyz, Pzz []float64
}

// New allocates zeroed moment arrays for g.
func New(g *grid.Grid) *Moments {
	return &Moments{
		Rho: g.NodeArray(),
		Jx:  g.NodeArray(), Jy: g.NodeArray(), Jz: g.NodeArray(),
		Pxx: g.NodeArray(), Pxy: g.NodeArray(), Pxz: g.NodeArray(),
		Pyy: g.NodeArray(), Pyz: g.NodeArray(), Pzz: g.NodeArray(),
	}
}

// Arrays returns the ten moment arrays in accumulation order.
func (m *Moments) Arrays() [nMoments][]float64 {
	return [nMoments][]float64{m.Rho, m.Jx, m.Jy, m.Jz,
		m.Pxx, m.Pxy, m.Pxz, m.Pyy, m.Pyz, m.Pzz}
}

// SetZero clears every moment array.
func (m *Moments) SetZero() {
	for _, a := range m.Arrays() {
		for i := range a {
			a[i] = 0
		}
	}
}

// Accumulator deposits one species at a time. It owns one full-sized
// scratch array per worker, created once and reused every cycle.
type Accumulator struct {
	g       *grid.Grid
	scratch [][]float64
}

// NewAccumulator creates an accumulator for g with one scratch slot per
// current worker thread.
func NewAccumulator(g *grid.Grid) *Accumulator {
	acc := &Accumulator{g: g}
	acc.scratch = make([][]float64, thread.Workers())
	for i := range acc.scratch {
		acc.scratch[i] = make([]float64, g.NN()*nMoments)
	}
	return acc
}

// SumMoments accumulates the ten moments of sp into dst, adding to
// whatever dst already holds. A particle outside the ghost-extended
// subdomain is a programming error in the mover/migration stage and is
// reported as such.
func (acc *Accumulator) SumMoments(
	sp *particles.Species, dst *Moments,
) error {
	n := sp.Len()
	p := len(acc.scratch)
	if p > n { p = n }
	if p < 1 { p = 1 }

	errs := make([]error, p)
	thread.SplitN(p, n, func(id, lo, hi int) {
		zero(acc.scratch[id])
		if sp.Layout() == particles.SoA {
			errs[id] = acc.depositSoA(sp, id, lo, hi)
		} else {
			errs[id] = acc.depositAoS(sp, id, lo, hi)
		}
	})
	for _, err := range errs {
		if err != nil { return err }
	}

	acc.reduce(dst, p)
	return nil
}

func zero(x []float64) {
	for i := range x {
		x[i] = 0
	}
}

func (acc *Accumulator) depositSoA(
	sp *particles.Species, id, lo, hi int,
) error {
	u, v, w, q, x, y, z, err := sp.Arrays()
	if err != nil { return err }

	for i := lo; i < hi; i++ {
		if err := acc.deposit(id,
			u[i], v[i], w[i], q[i], x[i], y[i], z[i]); err != nil {
			return fmt.Errorf("Particle %d: %s", i, err.Error())
		}
	}
	return nil
}

func (acc *Accumulator) depositAoS(
	sp *particles.Species, id, lo, hi int,
) error {
	pcls, err := sp.Records()
	if err != nil { return err }

	for i := lo; i < hi; i++ {
		p := &pcls[i]
		if err := acc.deposit(id,
			p.U, p.V, p.W, p.Q, p.X, p.Y, p.Z); err != nil {
			return fmt.Errorf("Particle %d: %s", i, err.Error())
		}
	}
	return nil
}

// deposit adds one particle's ten moments to the eight nodes of its cell.
func (acc *Accumulator) deposit(id int, u, v, w, q, x, y, z float64) error {
	g := acc.g

	ix := 2 + int(math.Floor((x-g.XStart)*g.InvDx))
	iy := 2 + int(math.Floor((y-g.YStart)*g.InvDy))
	iz := 2 + int(math.Floor((z-g.ZStart)*g.InvDz))
	if ix < 1 || ix > g.Nxn-1 || iy < 1 || iy > g.Nyn-1 ||
		iz < 1 || iz > g.Nzn-1 {
		return fmt.Errorf("position (%g, %g, %g) is outside the "+
			"ghost-extended subdomain [%g, %g] x [%g, %g] x [%g, %g].",
			x, y, z, g.XStart-g.Dx, g.XEnd+g.Dx,
			g.YStart-g.Dy, g.YEnd+g.Dy, g.ZStart-g.Dz, g.ZEnd+g.Dz)
	}

	xi0, eta0, zeta0 := x-g.XN(ix-1), y-g.YN(iy-1), z-g.ZN(iz-1)
	xi1, eta1, zeta1 := g.XN(ix)-x, g.YN(iy)-y, g.ZN(iz)-z

	qiv := q * g.InvVol
	w0, w1 := qiv*xi0, qiv*xi1
	w00, w01, w10, w11 := w0*eta0, w0*eta1, w1*eta0, w1*eta1
	var weights [8]float64
	weights[0] = w00 * zeta0
	weights[1] = w00 * zeta1
	weights[2] = w01 * zeta0
	weights[3] = w01 * zeta1
	weights[4] = w10 * zeta0
	weights[5] = w10 * zeta1
	weights[6] = w11 * zeta0
	weights[7] = w11 * zeta1

	var vm [nMoments]float64
	vm[0] = 1
	vm[1], vm[2], vm[3] = u, v, w
	vm[4], vm[5], vm[6] = u*u, u*v, u*w
	vm[7], vm[8], vm[9] = v*v, v*w, w*w

	s := acc.scratch[id]
	var bases [8]int
	bases[0] = g.NIdx(ix, iy, iz) * nMoments
	bases[1] = g.NIdx(ix, iy, iz-1) * nMoments
	bases[2] = g.NIdx(ix, iy-1, iz) * nMoments
	bases[3] = g.NIdx(ix, iy-1, iz-1) * nMoments
	bases[4] = g.NIdx(ix-1, iy, iz) * nMoments
	bases[5] = g.NIdx(ix-1, iy, iz-1) * nMoments
	bases[6] = g.NIdx(ix-1, iy-1, iz) * nMoments
	bases[7] = g.NIdx(ix-1, iy-1, iz-1) * nMoments

	for c := 0; c < 8; c++ {
		b, wc := bases[c], weights[c]
		for m := 0; m < nMoments; m++ {
			s[b+m] += vm[m] * wc
		}
	}
	return nil
}

// reduce folds the first p worker scratch arrays into dst, parallel over
// node slabs with the worker axis serial.
func (acc *Accumulator) reduce(dst *Moments, p int) {
	arrays := dst.Arrays()
	invVol := acc.g.InvVol

	thread.Split(acc.g.NN(), func(_, lo, hi int) {
		for id := 0; id < p; id++ {
			s := acc.scratch[id]
			for n := lo; n < hi; n++ {
				b := n * nMoments
				for m := 0; m < nMoments; m++ {
					arrays[m][n] += invVol * s[b+m]
				}
			}
		}
	})
}
