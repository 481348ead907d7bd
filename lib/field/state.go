/*package field owns the electromagnetic state of one rank: the E and B
fields on their staggerings, the charge and current densities, the
per-species moments, and the implicit Maxwell solve that advances them.

Everything a solver iteration touches is allocated once, here, so the
GMRES inner loop never allocates.*/
package field

import (
	"math"

	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/halo"
	"github.com/phil-mansfield/gopic/lib/moments"
	"github.com/phil-mansfield/gopic/lib/thread"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

// fieldStride is the per-node stride of the packed mover field: six
// components plus two pad slots keep each node on its own cache line.
const fieldStride = 8

// InjFields is the injection template of one open face. Templates are
// constant in the face-tangential directions.
type InjFields struct {
	Ex, Ey, Ez float64
	Bx, By, Bz float64
}

// State owns the mesh fields of one rank.
type State struct {
	g    *grid.Grid
	c    *halo.Comm
	topo topology.Topology
	ws   *grid.Workspace

	// run parameters, immutable after New
	ns                int
	qom               []float64
	dt, th, cspeed    float64
	smoothVal, delt   float64
	cgTol, gmresTol   float64
	poissonCorrection bool
	legacyZ           bool
	caseKind          config.Case
	b0x, b0y, b0z     float64
	delta             float64
	ly                float64
	ue0, ve0, we0     float64
	bcEMFace          [6]int
	fbc               *config.FieldBC

	// node-centered fields
	Ex, Ey, Ez       []float64
	Exth, Eyth, Ezth []float64
	Bxn, Byn, Bzn    []float64
	Rhon             []float64
	Jx, Jy, Jz       []float64
	Jxh, Jyh, Jzh    []float64
	BxExt, ByExt, BzExt []float64
	JxExt, JyExt, JzExt []float64

	// center-centered fields
	Phi            []float64
	Bxc, Byc, Bzc  []float64
	Rhoc, Rhoh     []float64

	// per-species moments
	Species []*moments.Moments

	// open-boundary injection templates, indexed by face
	inj [6]InjFields

	// solver temporaries
	tempX, tempY, tempZ    []float64
	tempXN, tempYN, tempZN []float64
	temp2X, temp2Y, temp2Z []float64
	vectX, vectY, vectZ    []float64
	imageX, imageY, imageZ []float64
	dX, dY, dZ             []float64
	tempC, divC            []float64
	tempXC, tempYC, tempZC []float64
	smoothTmp              []float64
	susA, susB, susC       []float64
	xkrylov, bkrylov       []float64
	xkPoisson, bkPoisson   []float64
	poissonTmp, poissonIm  []float64

	fieldForPcls []float64
}

// New creates the field state of one rank from a validated run deck.
func New(
	g *grid.Grid, c *halo.Comm, topo topology.Topology, cfg *config.Config,
) *State {
	st := &State{
		g: g, c: c, topo: topo, ws: grid.NewWorkspace(g),
		ns: len(cfg.Species), qom: cfg.Qom(),
		dt: cfg.Time.Dt, th: cfg.Time.Theta, cspeed: cfg.Fields.C,
		smoothVal: cfg.Fields.Smooth, delt: cfg.Delt(),
		cgTol: cfg.Solver.CGTol, gmresTol: cfg.Solver.GMRESTol,
		poissonCorrection: cfg.Solver.PoissonCorrection,
		legacyZ:  cfg.Solver.LegacyZBoundary,
		caseKind: cfg.Case,
		b0x: cfg.Fields.B0x, b0y: cfg.Fields.B0y, b0z: cfg.Fields.B0z,
		delta: cfg.Fields.Delta, ly: cfg.Grid.Ly,
		ue0: cfg.Fields.Ue0, ve0: cfg.Fields.Ve0, we0: cfg.Fields.We0,
		bcEMFace: cfg.BC.EM, fbc: cfg.DeriveFieldBC(),
	}

	n := func() []float64 { return g.NodeArray() }
	cn := func() []float64 { return g.CenterArray() }

	st.Ex, st.Ey, st.Ez = n(), n(), n()
	st.Exth, st.Eyth, st.Ezth = n(), n(), n()
	st.Bxn, st.Byn, st.Bzn = n(), n(), n()
	st.Rhon = n()
	st.Jx, st.Jy, st.Jz = n(), n(), n()
	st.Jxh, st.Jyh, st.Jzh = n(), n(), n()
	st.BxExt, st.ByExt, st.BzExt = n(), n(), n()
	st.JxExt, st.JyExt, st.JzExt = n(), n(), n()

	st.Phi = cn()
	st.Bxc, st.Byc, st.Bzc = cn(), cn(), cn()
	st.Rhoc, st.Rhoh = cn(), cn()

	st.Species = make([]*moments.Moments, st.ns)
	for i := range st.Species {
		st.Species[i] = moments.New(g)
	}

	st.tempX, st.tempY, st.tempZ = n(), n(), n()
	st.tempXN, st.tempYN, st.tempZN = n(), n(), n()
	st.temp2X, st.temp2Y, st.temp2Z = n(), n(), n()
	st.vectX, st.vectY, st.vectZ = n(), n(), n()
	st.imageX, st.imageY, st.imageZ = n(), n(), n()
	st.dX, st.dY, st.dZ = n(), n(), n()
	st.tempC, st.divC = cn(), cn()
	st.tempXC, st.tempYC, st.tempZC = cn(), cn(), cn()
	st.smoothTmp = n()
	st.poissonTmp, st.poissonIm = cn(), cn()

	face := g.Nyn * g.Nzn
	if s := g.Nxn * g.Nzn; s > face { face = s }
	if s := g.Nxn * g.Nyn; s > face { face = s }
	st.susA = make([]float64, face)
	st.susB = make([]float64, face)
	st.susC = make([]float64, face)

	st.xkrylov = make([]float64, 3*st.interiorNodes())
	st.bkrylov = make([]float64, 3*st.interiorNodes())
	st.xkPoisson = make([]float64, st.interiorCenters())
	st.bkPoisson = make([]float64, st.interiorCenters())

	st.fieldForPcls = make([]float64, g.NN()*fieldStride)

	return st
}

// Grid returns the mesh the state lives on.
func (st *State) Grid() *grid.Grid { return st.g }

func (st *State) interiorNodes() int {
	g := st.g
	return (g.Nxn - 2) * (g.Nyn - 2) * (g.Nzn - 2)
}

func (st *State) interiorCenters() int {
	g := st.g
	return (g.Nxc - 2) * (g.Nyc - 2) * (g.Nzc - 2)
}

// InitUniform fills the state with the deck's uniform initial condition:
// B = B0 on both staggerings, E = 0, and each species at its configured
// uniform density. Problem-specific initializers live outside the core
// and use the same setters.
func (st *State) InitUniform(cfg *config.Config) error {
	fill(st.Bxc, cfg.Fields.B0x)
	fill(st.Byc, cfg.Fields.B0y)
	fill(st.Bzc, cfg.Fields.B0z)
	fill(st.Bxn, cfg.Fields.B0x)
	fill(st.Byn, cfg.Fields.B0y)
	fill(st.Bzn, cfg.Fields.B0z)
	fill(st.Ex, 0)
	fill(st.Ey, 0)
	fill(st.Ez, 0)

	for is := range st.Species {
		fill(st.Species[is].Rho, cfg.Species[is].RhoInit)
	}
	st.UpdateInjection()
	st.SumOverSpecies()
	return nil
}

func fill(x []float64, v float64) {
	for i := range x {
		x[i] = v
	}
}

// SetE overwrites the electric field; used by restart loaders.
func (st *State) SetE(ex, ey, ez []float64) {
	copy(st.Ex, ex)
	copy(st.Ey, ey)
	copy(st.Ez, ez)
}

// SetB overwrites the node magnetic field and refreshes the center field
// by interpolation; used by restart loaders.
func (st *State) SetB(bx, by, bz []float64) {
	copy(st.Bxn, bx)
	copy(st.Byn, by)
	copy(st.Bzn, bz)
	st.g.InterpN2C(st.Bxc, st.Bxn)
	st.g.InterpN2C(st.Byc, st.Byn)
	st.g.InterpN2C(st.Bzc, st.Bzn)
}

// SetExternalB overwrites the static external magnetic field.
func (st *State) SetExternalB(bx, by, bz []float64) {
	copy(st.BxExt, bx)
	copy(st.ByExt, by)
	copy(st.BzExt, bz)
}

// SetZeroPrimaryMoments clears the accumulated species moments ahead of a
// new particle-to-grid pass.
func (st *State) SetZeroPrimaryMoments() {
	for _, sp := range st.Species {
		sp.SetZero()
	}
}

// SetZeroDerivedMoments clears the summed and hat moments.
func (st *State) SetZeroDerivedMoments() {
	for _, a := range [][]float64{st.Rhon, st.Jx, st.Jy, st.Jz,
		st.Jxh, st.Jyh, st.Jzh, st.Rhoc, st.Rhoh} {
		fill(a, 0)
	}
}

// SumOverSpecies accumulates the species densities into the total charge
// density on nodes and interpolates it to centers.
func (st *State) SumOverSpecies() {
	fill(st.Rhon, 0)
	for _, sp := range st.Species {
		for i, v := range sp.Rho {
			st.Rhon[i] += v
		}
	}
	st.InterpDensitiesN2C()
}

// SumOverSpeciesJ accumulates the species currents into the total current.
func (st *State) SumOverSpeciesJ() {
	fill(st.Jx, 0)
	fill(st.Jy, 0)
	fill(st.Jz, 0)
	for _, sp := range st.Species {
		for i := range sp.Jx {
			st.Jx[i] += sp.Jx[i]
			st.Jy[i] += sp.Jy[i]
			st.Jz[i] += sp.Jz[i]
		}
	}
}

// InterpDensitiesN2C interpolates the total node charge density to cell
// centers.
func (st *State) InterpDensitiesN2C() {
	st.g.InterpN2C(st.Rhoc, st.Rhon)
}

// CommunicateGhostP2G finishes species is after accumulation: the additive
// halo exchange folds wall and ghost contributions into their owners, the
// non-periodic fix-up doubles the wall layers, and a final overwrite
// exchange makes the ghost layer consistent.
func (st *State) CommunicateGhostP2G(is int) error {
	sp := st.Species[is]
	a := sp.Arrays()
	if err := st.c.InterpAdd(a[0], a[1], a[2], a[3], a[4],
		a[5], a[6], a[7], a[8], a[9]); err != nil {
		return err
	}

	st.adjustNonPeriodicDensities(is)

	for _, v := range a {
		if err := st.c.NodeP(v); err != nil { return err }
	}
	return nil
}

// adjustNonPeriodicDensities doubles the moments on the first interior
// layer of every physical face, so the integral accounts for the half
// cell hanging over the wall.
func (st *State) adjustNonPeriodicDensities(is int) {
	g := st.g
	a := st.Species[is].Arrays()

	double := func(idx int) {
		for _, v := range a {
			v[idx] += v[idx]
		}
	}

	if st.topo.NeighborP(topology.X, topology.Left) == transport.ProcNull {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				double(g.NIdx(1, j, k))
			}
		}
	}
	if st.topo.NeighborP(topology.X, topology.Right) == transport.ProcNull {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				double(g.NIdx(g.Nxn-2, j, k))
			}
		}
	}
	if st.topo.NeighborP(topology.Y, topology.Left) == transport.ProcNull {
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				double(g.NIdx(i, 1, k))
			}
		}
	}
	if st.topo.NeighborP(topology.Y, topology.Right) == transport.ProcNull {
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				double(g.NIdx(i, g.Nyn-2, k))
			}
		}
	}
	if st.topo.NeighborP(topology.Z, topology.Left) == transport.ProcNull {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				double(g.NIdx(i, j, 1))
			}
		}
	}
	if st.topo.NeighborP(topology.Z, topology.Right) == transport.ProcNull {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				double(g.NIdx(i, j, g.Nzn-2))
			}
		}
	}
}

// SetFieldForPcls packs B + B_ext and E into the per-particle layout the
// mover consumes.
func (st *State) SetFieldForPcls() {
	g := st.g
	thread.Split(g.NN(), func(_, lo, hi int) {
		for n := lo; n < hi; n++ {
			b := n * fieldStride
			st.fieldForPcls[b+0] = st.Bxn[n] + st.BxExt[n]
			st.fieldForPcls[b+1] = st.Byn[n] + st.ByExt[n]
			st.fieldForPcls[b+2] = st.Bzn[n] + st.BzExt[n]
			st.fieldForPcls[b+4] = st.Ex[n]
			st.fieldForPcls[b+5] = st.Ey[n]
			st.fieldForPcls[b+6] = st.Ez[n]
		}
	})
}

// FieldForPcls returns the packed mover field: stride 8 per node, indices
// 0..2 hold B + B_ext, 4..6 hold E, 3 and 7 are padding.
func (st *State) FieldForPcls() []float64 { return st.fieldForPcls }

// EEnergy returns the electric field energy of the proper subdomain.
func (st *State) EEnergy() float64 {
	g := st.g
	dv := g.Dx * g.Dy * g.Dz
	sum := 0.0
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				sum += st.Ex[n]*st.Ex[n] + st.Ey[n]*st.Ey[n] +
					st.Ez[n]*st.Ez[n]
			}
		}
	}
	return dv / (2 * config.FourPI) * sum
}

// BEnergy returns the magnetic field energy of the proper subdomain,
// external field included.
func (st *State) BEnergy() float64 {
	g := st.g
	dv := g.Dx * g.Dy * g.Dz
	sum := 0.0
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				bx := st.Bxn[n] + st.BxExt[n]
				by := st.Byn[n] + st.ByExt[n]
				bz := st.Bzn[n] + st.BzExt[n]
				sum += bx*bx + by*by + bz*bz
			}
		}
	}
	return dv / (2 * config.FourPI) * sum
}

// MaxAbsE returns the largest |E| component over the proper subdomain.
func (st *State) MaxAbsE() float64 {
	g := st.g
	max := 0.0
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				for _, v := range [3]float64{st.Ex[n], st.Ey[n], st.Ez[n]} {
					if a := math.Abs(v); a > max { max = a }
				}
			}
		}
	}
	return max
}
