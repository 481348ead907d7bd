package field

/* maxwell.go is the implicit field solve: the Krylov packing, the
right-hand side, the matrix-free Maxwell image handed to GMRES, and the
E update that follows the solve. */

import (
	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/solver"
)

// physToSolverN3 packs the interior of three node arrays into Krylov
// space, component-major.
func (st *State) physToSolverN3(dst, vx, vy, vz []float64) {
	g := st.g
	n := 0
	for _, v := range [][]float64{vx, vy, vz} {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				for k := 1; k < g.Nzn-1; k++ {
					dst[n] = v[g.NIdx(i, j, k)]
					n++
				}
			}
		}
	}
}

// solverToPhysN3 unpacks Krylov space into the interiors of three node
// arrays.
func (st *State) solverToPhysN3(vx, vy, vz, src []float64) {
	g := st.g
	n := 0
	for _, v := range [][]float64{vx, vy, vz} {
		for i := 1; i < g.Nxn-1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				for k := 1; k < g.Nzn-1; k++ {
					v[g.NIdx(i, j, k)] = src[n]
					n++
				}
			}
		}
	}
}

// physToSolverC packs the interior of a center array into Krylov space.
func (st *State) physToSolverC(dst, s []float64) {
	g := st.g
	n := 0
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				dst[n] = s[g.CIdx(i, j, k)]
				n++
			}
		}
	}
}

// solverToPhysC unpacks Krylov space into the interior of a center array.
func (st *State) solverToPhysC(s, src []float64) {
	g := st.g
	n := 0
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				s[g.CIdx(i, j, k)] = src[n]
				n++
			}
		}
	}
}

// MaxwellSource assembles the right-hand side of the implicit Maxwell
// system in Krylov space:
// b = E + delt*(curl B - 4pi/c (J-hat + J_ext)) - delt^2 4pi grad(rho-hat),
// with perfect-conductor overrides on the physical faces that carry them.
func (st *State) MaxwellSource(b []float64) error {
	g := st.g

	if err := st.c.CenterBC(st.Bxc, st.fbc.Bx); err != nil { return err }
	if err := st.c.CenterBC(st.Byc, st.fbc.By); err != nil { return err }
	if err := st.c.CenterBC(st.Bzc, st.fbc.Bz); err != nil { return err }

	st.fixBCase()
	st.boundaryConditionsB()

	g.CurlC2N(st.tempXN, st.tempYN, st.tempZN, st.Bxc, st.Byc, st.Bzc)

	k := -config.FourPI / st.cspeed
	for i := range st.temp2X {
		st.temp2X[i] = k*(st.Jxh[i]+st.JxExt[i]) + st.tempXN[i]
		st.temp2Y[i] = k*(st.Jyh[i]+st.JyExt[i]) + st.tempYN[i]
		st.temp2Z[i] = k*(st.Jzh[i]+st.JzExt[i]) + st.tempZN[i]
	}
	scale(st.temp2X, st.delt)
	scale(st.temp2Y, st.delt)
	scale(st.temp2Z, st.delt)

	if err := st.c.CenterBCP(st.Rhoh, neumann6); err != nil { return err }
	g.GradC2N(st.tempX, st.tempY, st.tempZ, st.Rhoh)
	scale(st.tempX, -st.delt*st.delt*config.FourPI)
	scale(st.tempY, -st.delt*st.delt*config.FourPI)
	scale(st.tempZ, -st.delt*st.delt*config.FourPI)

	add(st.tempX, st.Ex)
	add(st.tempY, st.Ey)
	add(st.tempZ, st.Ez)
	add(st.tempX, st.temp2X)
	add(st.tempY, st.temp2Y)
	add(st.tempZ, st.temp2Z)

	st.perfectConductorSource(st.tempX, st.tempY, st.tempZ)

	st.physToSolverN3(b, st.tempX, st.tempY, st.tempZ)
	return nil
}

// MaxwellImage applies the implicit operator to a Krylov vector:
// im = E' + mu*E' - delt^2 (lap E' + grad div(mu*E')), with the boundary
// overlays that pin the image on physical faces. It matches the Image
// signature of the solvers.
func (st *State) MaxwellImage(im, v []float64) error {
	g := st.g

	st.solverToPhysN3(st.vectX, st.vectY, st.vectZ, v)
	for _, a := range [][]float64{st.vectX, st.vectY, st.vectZ} {
		if err := st.c.NodeStencilP(a); err != nil { return err }
	}

	if err := g.LapN2N(st.imageX, st.vectX, st.ws, st.c); err != nil {
		return err
	}
	if err := g.LapN2N(st.imageY, st.vectY, st.ws, st.c); err != nil {
		return err
	}
	if err := g.LapN2N(st.imageZ, st.vectZ, st.ws, st.c); err != nil {
		return err
	}
	scale(st.imageX, -1)
	scale(st.imageY, -1)
	scale(st.imageZ, -1)

	// D = mu * E'
	st.muDot(st.dX, st.dY, st.dZ, st.vectX, st.vectY, st.vectZ)
	g.DivN2C(st.divC, st.dX, st.dY, st.dZ)
	if err := st.c.CenterBC(st.divC, neumann6); err != nil { return err }
	g.GradC2N(st.tempX, st.tempY, st.tempZ, st.divC)

	sub(st.imageX, st.tempX)
	sub(st.imageY, st.tempY)
	sub(st.imageZ, st.tempZ)
	scale(st.imageX, st.delt*st.delt)
	scale(st.imageY, st.delt*st.delt)
	scale(st.imageZ, st.delt*st.delt)

	add(st.imageX, st.dX)
	add(st.imageY, st.dY)
	add(st.imageZ, st.dZ)
	add(st.imageX, st.vectX)
	add(st.imageY, st.vectY)
	add(st.imageZ, st.vectZ)

	st.perfectConductorImage(st.imageX, st.imageY, st.imageZ,
		st.vectX, st.vectY, st.vectZ)
	st.boundaryConditionsEImage(st.imageX, st.imageY, st.imageZ,
		st.vectX, st.vectY, st.vectZ)

	st.physToSolverN3(im, st.imageX, st.imageY, st.imageZ)
	return nil
}

func sub(x, y []float64) {
	for i := range x {
		x[i] -= y[i]
	}
}

// CalculateE advances the electric field one cycle: the optional Poisson
// divergence cleaning, the GMRES solve of the implicit system for
// E^(n+theta), the extrapolation to E^(n+1), smoothing, and the boundary
// refresh. The returned results let the driver report convergence
// failures; a failed solve still leaves the best-effort field in place.
func (st *State) CalculateE() (poisson, maxwell solver.Result, err error) {
	if st.poissonCorrection {
		if poisson, err = st.divergenceClean(); err != nil { return }
	}

	if err = st.MaxwellSource(st.bkrylov); err != nil { return }
	st.physToSolverN3(st.xkrylov, st.Ex, st.Ey, st.Ez)

	maxwell, err = solver.GMRES(st.xkrylov, st.bkrylov, 20, 200,
		st.gmresTol, st.MaxwellImage)
	if err != nil { return }

	st.solverToPhysN3(st.Exth, st.Eyth, st.Ezth, st.xkrylov)

	// E^(n+1) = Eth/theta - (1-theta)/theta * E^n
	for i := range st.Ex {
		st.Ex[i] = st.Exth[i]/st.th - (1-st.th)/st.th*st.Ex[i]
		st.Ey[i] = st.Eyth[i]/st.th - (1-st.th)/st.th*st.Ey[i]
		st.Ez[i] = st.Ezth[i]/st.th - (1-st.th)/st.th*st.Ez[i]
	}

	for rep := 0; rep < 3; rep++ {
		if err = st.SmoothE(st.smoothVal); err != nil { return }
	}

	ths := [][]float64{st.Exth, st.Eyth, st.Ezth}
	es := [][]float64{st.Ex, st.Ey, st.Ez}
	bcs := [][6]int{st.fbc.Ex, st.fbc.Ey, st.fbc.Ez}
	for comp := 0; comp < 3; comp++ {
		if err = st.c.NodeBC(ths[comp], bcs[comp]); err != nil { return }
		if err = st.c.NodeBC(es[comp], bcs[comp]); err != nil { return }
	}

	st.boundaryConditionsE(st.Exth, st.Eyth, st.Ezth)
	st.boundaryConditionsE(st.Ex, st.Ey, st.Ez)

	return poisson, maxwell, nil
}
