package field

/* update.go advances the magnetic field from Faraday's law once the
implicit electric field is known, plus the problem-specific boundary
pinning that some cases need on B. */

import (
	"math"

	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

// CalculateB advances B one cycle: B_c -= c*dt*curl(E_theta) at centers,
// the ghost and case fix-ups, then interpolation back to nodes.
func (st *State) CalculateB() error {
	g := st.g

	g.CurlN2C(st.tempXC, st.tempYC, st.tempZC, st.Exth, st.Eyth, st.Ezth)
	addScaled(st.Bxc, -st.cspeed*st.dt, st.tempXC)
	addScaled(st.Byc, -st.cspeed*st.dt, st.tempYC)
	addScaled(st.Bzc, -st.cspeed*st.dt, st.tempZC)

	if err := st.c.CenterBC(st.Bxc, st.fbc.Bx); err != nil { return err }
	if err := st.c.CenterBC(st.Byc, st.fbc.By); err != nil { return err }
	if err := st.c.CenterBC(st.Bzc, st.fbc.Bz); err != nil { return err }

	st.fixBCase()
	st.boundaryConditionsB()

	g.InterpC2N(st.Bxn, st.Bxc)
	g.InterpC2N(st.Byn, st.Byc)
	g.InterpC2N(st.Bzn, st.Bzc)

	if err := st.c.NodeBC(st.Bxn, st.fbc.Bx); err != nil { return err }
	if err := st.c.NodeBC(st.Byn, st.fbc.By); err != nil { return err }
	return st.c.NodeBC(st.Bzn, st.fbc.Bz)
}

// fixBCase applies the configured case's boundary pinning to the center
// magnetic field.
func (st *State) fixBCase() {
	switch st.caseKind {
	case config.CaseGEM:
		st.fixBGEM()
	case config.CaseForceFree:
		st.fixBForceFree()
	}
}

// fixBGEM pins the Harris-sheet field on the non-periodic Y walls.
func (st *State) fixBGEM() {
	if st.delta == 0 { return }
	g := st.g

	if st.topo.Neighbor(topology.Y, topology.Right) == transport.ProcNull {
		for i := 0; i < g.Nxc; i++ {
			for k := 0; k < g.Nzc; k++ {
				bx := st.b0x * math.Tanh((g.YC(g.Nyc-1)-st.ly/2)/st.delta)
				for off := 1; off <= 3; off++ {
					n := g.CIdx(i, g.Nyc-off, k)
					st.Bxc[n] = bx
					st.Bzc[n] = st.b0z
				}
				st.Byc[g.CIdx(i, g.Nyc-1, k)] = st.b0y
			}
		}
	}
	if st.topo.Neighbor(topology.Y, topology.Left) == transport.ProcNull {
		for i := 0; i < g.Nxc; i++ {
			for k := 0; k < g.Nzc; k++ {
				bx := st.b0x * math.Tanh((g.YC(0)-st.ly/2)/st.delta)
				for off := 0; off < 3; off++ {
					n := g.CIdx(i, off, k)
					st.Bxc[n] = bx
					st.Bzc[n] = st.b0z
				}
				st.Byc[g.CIdx(i, 0, k)] = st.b0y
			}
		}
	}
}

// fixBForceFree pins the force-free sheet field on the non-periodic Y
// walls, with the out-of-plane component following sech(y).
func (st *State) fixBForceFree() {
	if st.delta == 0 { return }
	g := st.g

	if st.topo.Neighbor(topology.Y, topology.Right) == transport.ProcNull {
		for i := 0; i < g.Nxc; i++ {
			for k := 0; k < g.Nzc; k++ {
				n := g.CIdx(i, g.Nyc-1, k)
				st.Bxc[n] = st.b0x *
					math.Tanh((g.YC(g.Nyc-1)-st.ly/2)/st.delta)
				st.Byc[n] = st.b0y
				for off := 1; off <= 3; off++ {
					m := g.CIdx(i, g.Nyc-off, k)
					st.Bzc[m] = st.b0z /
						math.Cosh((g.YC(g.Nyc-off)-st.ly/2)/st.delta)
				}
			}
		}
	}
	if st.topo.Neighbor(topology.Y, topology.Left) == transport.ProcNull {
		for i := 0; i < g.Nxc; i++ {
			for k := 0; k < g.Nzc; k++ {
				n := g.CIdx(i, 0, k)
				st.Bxc[n] = st.b0x * math.Tanh((g.YC(0)-st.ly/2)/st.delta)
				st.Byc[n] = st.b0y
				for off := 0; off < 3; off++ {
					m := g.CIdx(i, off, k)
					st.Bzc[m] = st.b0z /
						math.Cosh((g.YC(off)-st.ly/2)/st.delta)
				}
			}
		}
	}
}
