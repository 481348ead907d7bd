package field

/* bc.go holds the boundary policy of the implicit solve: the face-local
susceptibility tables, the perfect-conductor image and source overrides,
and the open-boundary injection overlays.

Two index quirks inherited from long-standing production behavior are kept
behind the LegacyZBoundary switch: the Z-right susceptibility samples the
density with the Y extent in its last slot, and the Z-left conductor image
routes the X trial component into the Y image. Turning the switch off
gives the symmetric forms. */

import (
	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

// faceNull reports whether the face at (ax, side) is a physical boundary.
func (st *State) faceNull(ax topology.Axis, s topology.Side) bool {
	return st.topo.Neighbor(ax, s) == transport.ProcNull
}

// faceIdx maps (axis, side) onto the run deck's face table order.
func faceIdx(ax topology.Axis, s topology.Side) int {
	i := 2 * int(ax)
	if s == topology.Left { i++ }
	return i
}

// pcFace reports whether the face carries a perfect-conductor condition.
func (st *State) pcFace(ax topology.Axis, s topology.Side) bool {
	return st.faceNull(ax, s) &&
		st.bcEMFace[faceIdx(ax, s)] == config.PerfectConductor
}

// openFace reports whether the face carries an open condition.
func (st *State) openFace(ax topology.Axis, s topology.Side) bool {
	return st.faceNull(ax, s) && st.bcEMFace[faceIdx(ax, s)] == config.Open
}

// susPrefactor is the per-species weight of the boundary susceptibility.
func (st *State) susPrefactor(is int) (beta, pref float64) {
	beta = 0.5 * st.qom[is] * st.dt / st.cspeed
	pref = config.FourPI / 2 * st.delt * st.dt / st.cspeed * st.qom[is]
	return beta, pref
}

// sustensorX fills the (diagonal, yx, zx) susceptibility tables on the X
// face holding node plane i.
func (st *State) sustensorX(susxx, susyx, suszx []float64, i int) {
	g := st.g
	for j := 0; j < g.Nyn; j++ {
		for k := 0; k < g.Nzn; k++ {
			f := j*g.Nzn + k
			susxx[f], susyx[f], suszx[f] = 1, 0, 0
		}
	}
	for is := 0; is < st.ns; is++ {
		beta, pref := st.susPrefactor(is)
		rho := st.Species[is].Rho
		for j := 0; j < g.Nyn; j++ {
			for k := 0; k < g.Nzn; k++ {
				n := g.NIdx(i, j, k)
				omx, omy, omz := beta*st.Bxn[n], beta*st.Byn[n], beta*st.Bzn[n]
				denom := pref * rho[n] / (1 + omx*omx + omy*omy + omz*omz)
				f := j*g.Nzn + k
				susxx[f] += (1 + omx*omx) * denom
				susyx[f] += (-omz + omx*omy) * denom
				suszx[f] += (omy + omx*omz) * denom
			}
		}
	}
}

// sustensorY fills the (xy, diagonal, zy) tables on the Y face holding
// node plane j.
func (st *State) sustensorY(susxy, susyy, suszy []float64, j int) {
	g := st.g
	for i := 0; i < g.Nxn; i++ {
		for k := 0; k < g.Nzn; k++ {
			f := i*g.Nzn + k
			susxy[f], susyy[f], suszy[f] = 0, 1, 0
		}
	}
	for is := 0; is < st.ns; is++ {
		beta, pref := st.susPrefactor(is)
		rho := st.Species[is].Rho
		for i := 0; i < g.Nxn; i++ {
			for k := 0; k < g.Nzn; k++ {
				n := g.NIdx(i, j, k)
				omx, omy, omz := beta*st.Bxn[n], beta*st.Byn[n], beta*st.Bzn[n]
				denom := pref * rho[n] / (1 + omx*omx + omy*omy + omz*omz)
				f := i*g.Nzn + k
				susxy[f] += (omz + omx*omy) * denom
				susyy[f] += (1 + omy*omy) * denom
				suszy[f] += (-omx + omy*omz) * denom
			}
		}
	}
}

// sustensorZ fills the (xz, yz, diagonal) tables on the Z face holding
// node plane k. On the right face with the legacy switch on, the density
// is sampled at the historical index (the Y node count standing in for
// the Z slot) whenever that index is in range.
func (st *State) sustensorZ(susxz, susyz, suszz []float64, k int, right bool) {
	g := st.g
	for i := 0; i < g.Nxn; i++ {
		for j := 0; j < g.Nyn; j++ {
			f := i*g.Nyn + j
			susxz[f], susyz[f], suszz[f] = 0, 0, 1
		}
	}

	krho := k
	if right && st.legacyZ && g.Nyn-2 < g.Nzn {
		krho = g.Nyn - 2
	}

	for is := 0; is < st.ns; is++ {
		beta, pref := st.susPrefactor(is)
		rho := st.Species[is].Rho
		for i := 0; i < g.Nxn; i++ {
			for j := 0; j < g.Nyn; j++ {
				n := g.NIdx(i, j, k)
				omx, omy, omz := beta*st.Bxn[n], beta*st.Byn[n], beta*st.Bzn[n]
				denom := pref * rho[g.NIdx(i, j, krho)] /
					(1 + omx*omx + omy*omy + omz*omz)
				f := i*g.Nyn + j
				susxz[f] += (-omy + omx*omz) * denom
				susyz[f] += (omx + omy*omz) * denom
				suszz[f] += (1 + omz*omz) * denom
			}
		}
	}
}

// perfectConductorImage substitutes the mixed susceptibility expression
// for the image on every perfect-conductor face: the normal component is
// pinned through the face susceptibility, the tangential components pass
// the trial through unchanged.
func (st *State) perfectConductorImage(
	imageX, imageY, imageZ, vectX, vectY, vectZ []float64,
) {
	g := st.g
	jt4 := st.dt * st.th * config.FourPI

	if st.pcFace(topology.X, topology.Left) {
		st.sustensorX(st.susA, st.susB, st.susC, 1)
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n, f := g.NIdx(1, j, k), j*g.Nzn+k
				imageX[n] = vectX[n] - (st.Ex[n] - st.susB[f]*vectY[n] -
					st.susC[f]*vectZ[n] - st.Jxh[n]*jt4) / st.susA[f]
				imageY[n] = vectY[n]
				imageZ[n] = vectZ[n]
			}
		}
	}
	if st.pcFace(topology.X, topology.Right) {
		st.sustensorX(st.susA, st.susB, st.susC, g.Nxn-2)
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n, f := g.NIdx(g.Nxn-2, j, k), j*g.Nzn+k
				imageX[n] = vectX[n] - (st.Ex[n] - st.susB[f]*vectY[n] -
					st.susC[f]*vectZ[n] - st.Jxh[n]*jt4) / st.susA[f]
				imageY[n] = vectY[n]
				imageZ[n] = vectZ[n]
			}
		}
	}

	if st.pcFace(topology.Y, topology.Left) {
		st.sustensorY(st.susA, st.susB, st.susC, 1)
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				n, f := g.NIdx(i, 1, k), i*g.Nzn+k
				imageX[n] = vectX[n]
				imageY[n] = vectY[n] - (st.Ey[n] - st.susA[f]*vectX[n] -
					st.susC[f]*vectZ[n] - st.Jyh[n]*jt4) / st.susB[f]
				imageZ[n] = vectZ[n]
			}
		}
	}
	if st.pcFace(topology.Y, topology.Right) {
		st.sustensorY(st.susA, st.susB, st.susC, g.Nyn-2)
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				n, f := g.NIdx(i, g.Nyn-2, k), i*g.Nzn+k
				imageX[n] = vectX[n]
				imageY[n] = vectY[n] - (st.Ey[n] - st.susA[f]*vectX[n] -
					st.susC[f]*vectZ[n] - st.Jyh[n]*jt4) / st.susB[f]
				imageZ[n] = vectZ[n]
			}
		}
	}

	if st.pcFace(topology.Z, topology.Left) {
		st.sustensorZ(st.susA, st.susB, st.susC, 1, false)
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				n, f := g.NIdx(i, j, 1), i*g.Nyn+j
				imageX[n] = vectX[n]
				if st.legacyZ {
					imageY[n] = vectX[n]
				} else {
					imageY[n] = vectY[n]
				}
				imageZ[n] = vectZ[n] - (st.Ez[n] - st.susA[f]*vectX[n] -
					st.susB[f]*vectY[n] - st.Jzh[n]*jt4) / st.susC[f]
			}
		}
	}
	if st.pcFace(topology.Z, topology.Right) {
		st.sustensorZ(st.susA, st.susB, st.susC, g.Nzn-2, true)
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				n, f := g.NIdx(i, j, g.Nzn-2), i*g.Nyn+j
				imageX[n] = vectX[n]
				imageY[n] = vectY[n]
				imageZ[n] = vectZ[n] - (st.Ez[n] - st.susA[f]*vectX[n] -
					st.susB[f]*vectY[n] - st.Jzh[n]*jt4) / st.susC[f]
			}
		}
	}
}

// convectiveE returns ebc = -v0 x B0, the boundary electric field of a
// drifting upstream plasma.
func (st *State) convectiveE() (ex, ey, ez float64) {
	cx := st.ve0*st.b0z - st.we0*st.b0y
	cy := st.we0*st.b0x - st.ue0*st.b0z
	cz := st.ue0*st.b0y - st.ve0*st.b0x
	return -cx, -cy, -cz
}

// perfectConductorSource overrides the Krylov source on every
// perfect-conductor face: the normal component vanishes and the
// tangential components take the convective field.
func (st *State) perfectConductorSource(vx, vy, vz []float64) {
	g := st.g
	ex, ey, ez := st.convectiveE()

	setX := func(i int) {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = 0, ey, ez
			}
		}
	}
	setY := func(j int) {
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = ex, 0, ez
			}
		}
	}
	setZ := func(k int) {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = ex, ey, 0
			}
		}
	}

	if st.pcFace(topology.X, topology.Left) { setX(1) }
	if st.pcFace(topology.X, topology.Right) { setX(g.Nxn - 2) }
	if st.pcFace(topology.Y, topology.Left) { setY(1) }
	if st.pcFace(topology.Y, topology.Right) { setY(g.Nyn - 2) }
	if st.pcFace(topology.Z, topology.Left) { setZ(1) }
	if st.pcFace(topology.Z, topology.Right) { setZ(g.Nzn - 2) }
}

// UpdateInjection recomputes the open-boundary injection templates from
// the configured upstream field and drift.
func (st *State) UpdateInjection() {
	ex, ey, ez := st.convectiveE()
	for f := 0; f < 6; f++ {
		st.inj[f] = InjFields{
			Ex: ex, Ey: ey, Ez: ez,
			Bx: st.b0x, By: st.b0y, Bz: st.b0z,
		}
	}
}

// Injection returns the template of one face; restart loaders may
// overwrite it with SetInjection.
func (st *State) Injection(face int) InjFields { return st.inj[face] }

// SetInjection overwrites the template of one face.
func (st *State) SetInjection(face int, inj InjFields) { st.inj[face] = inj }

// boundaryConditionsB overlays the injected magnetic field on the ghost
// planes of open faces. It operates on the center-staggered field.
func (st *State) boundaryConditionsB() {
	g := st.g

	setX := func(i int, inj InjFields) {
		for j := 0; j < g.Nyc; j++ {
			for k := 0; k < g.Nzc; k++ {
				n := g.CIdx(i, j, k)
				st.Bxc[n], st.Byc[n], st.Bzc[n] = inj.Bx, inj.By, inj.Bz
			}
		}
	}
	setY := func(j int, inj InjFields) {
		for i := 0; i < g.Nxc; i++ {
			for k := 0; k < g.Nzc; k++ {
				n := g.CIdx(i, j, k)
				st.Bxc[n], st.Byc[n], st.Bzc[n] = inj.Bx, inj.By, inj.Bz
			}
		}
	}
	setZ := func(k int, inj InjFields) {
		for i := 0; i < g.Nxc; i++ {
			for j := 0; j < g.Nyc; j++ {
				n := g.CIdx(i, j, k)
				st.Bxc[n], st.Byc[n], st.Bzc[n] = inj.Bx, inj.By, inj.Bz
			}
		}
	}

	if st.openFace(topology.X, topology.Left) {
		setX(0, st.inj[config.XLeft])
	}
	if st.openFace(topology.X, topology.Right) {
		setX(g.Nxc-1, st.inj[config.XRight])
	}
	if st.openFace(topology.Y, topology.Left) {
		setY(0, st.inj[config.YLeft])
	}
	if st.openFace(topology.Y, topology.Right) {
		setY(g.Nyc-1, st.inj[config.YRight])
	}
	if st.openFace(topology.Z, topology.Left) {
		setZ(0, st.inj[config.ZLeft])
	}
	if st.openFace(topology.Z, topology.Right) {
		setZ(g.Nzc-1, st.inj[config.ZRight])
	}
}

// boundaryConditionsE overlays the injected electric field on open faces
// of a node-staggered field triple.
func (st *State) boundaryConditionsE(vx, vy, vz []float64) {
	g := st.g

	setX := func(i int, inj InjFields) {
		for j := 0; j < g.Nyn; j++ {
			for k := 0; k < g.Nzn; k++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = inj.Ex, inj.Ey, inj.Ez
			}
		}
	}
	setY := func(j int, inj InjFields) {
		for i := 0; i < g.Nxn; i++ {
			for k := 0; k < g.Nzn; k++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = inj.Ex, inj.Ey, inj.Ez
			}
		}
	}
	setZ := func(k int, inj InjFields) {
		for i := 0; i < g.Nxn; i++ {
			for j := 0; j < g.Nyn; j++ {
				n := g.NIdx(i, j, k)
				vx[n], vy[n], vz[n] = inj.Ex, inj.Ey, inj.Ez
			}
		}
	}

	// The X-left overlay lands on the wall plane rather than the ghost;
	// this matches the behavior existing decks were tuned against.
	if st.openFace(topology.X, topology.Left) {
		setX(1, st.inj[config.XLeft])
	}
	if st.openFace(topology.X, topology.Right) {
		setX(g.Nxn-1, st.inj[config.XRight])
	}
	if st.openFace(topology.Y, topology.Left) {
		setY(0, st.inj[config.YLeft])
	}
	if st.openFace(topology.Y, topology.Right) {
		setY(g.Nyn-1, st.inj[config.YRight])
	}
	if st.openFace(topology.Z, topology.Left) {
		setZ(0, st.inj[config.ZLeft])
	}
	if st.openFace(topology.Z, topology.Right) {
		setZ(g.Nzn-1, st.inj[config.ZRight])
	}
}

// boundaryConditionsEImage pins the image on the ghost planes of open
// faces: im = trial - injected value, so the residual vanishes on the
// imposed boundary.
func (st *State) boundaryConditionsEImage(
	imageX, imageY, imageZ, vectX, vectY, vectZ []float64,
) {
	g := st.g

	setX := func(i int, inj InjFields) {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				imageX[n] = vectX[n] - inj.Ex
				imageY[n] = vectY[n] - inj.Ey
				imageZ[n] = vectZ[n] - inj.Ez
			}
		}
	}
	setY := func(j int, inj InjFields) {
		for i := 1; i < g.Nxn-1; i++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				imageX[n] = vectX[n] - inj.Ex
				imageY[n] = vectY[n] - inj.Ey
				imageZ[n] = vectZ[n] - inj.Ez
			}
		}
	}
	setZ := func(k int, inj InjFields) {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				n := g.NIdx(i, j, k)
				imageX[n] = vectX[n] - inj.Ex
				imageY[n] = vectY[n] - inj.Ey
				imageZ[n] = vectZ[n] - inj.Ez
			}
		}
	}

	if st.openFace(topology.X, topology.Left) {
		setX(0, st.inj[config.XLeft])
	}
	if st.openFace(topology.X, topology.Right) {
		setX(g.Nxn-1, st.inj[config.XRight])
	}
	if st.openFace(topology.Y, topology.Left) {
		setY(0, st.inj[config.YLeft])
	}
	if st.openFace(topology.Y, topology.Right) {
		setY(g.Nyn-1, st.inj[config.YRight])
	}
	if st.openFace(topology.Z, topology.Left) {
		setZ(0, st.inj[config.ZLeft])
	}
	if st.openFace(topology.Z, topology.Right) {
		setZ(g.Nzn-1, st.inj[config.ZRight])
	}
}
