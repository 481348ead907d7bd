package field

/* hat.go builds the implicit source terms: the hat current from the
species currents and pressure divergence through the per-species rotation
tensor, and the hat density from its divergence. The MU and PI kernels
here are the linearized particle response that also drives the Maxwell
image. */

import (
	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/thread"
)

// CalculateHatFunctions computes rho-hat and J-hat from the gathered
// species moments.
func (st *State) CalculateHatFunctions() error {
	g := st.g

	if err := st.smoothCenter(st.smoothVal, st.Rhoc); err != nil {
		return err
	}

	fill(st.Jxh, 0)
	fill(st.Jyh, 0)
	fill(st.Jzh, 0)
	for is := 0; is < st.ns; is++ {
		sp := st.Species[is]
		g.DivSymmTensorN2C(st.tempXC, st.tempYC, st.tempZC,
			sp.Pxx, sp.Pxy, sp.Pxz, sp.Pyy, sp.Pyz, sp.Pzz)

		scale(st.tempXC, -st.dt/2)
		scale(st.tempYC, -st.dt/2)
		scale(st.tempZC, -st.dt/2)

		for _, v := range [][]float64{st.tempXC, st.tempYC, st.tempZC} {
			if err := st.c.CenterBCP(v, neumann6); err != nil { return err }
		}

		g.InterpC2N(st.tempXN, st.tempXC)
		g.InterpC2N(st.tempYN, st.tempYC)
		g.InterpC2N(st.tempZN, st.tempZC)
		add(st.tempXN, sp.Jx)
		add(st.tempYN, sp.Jy)
		add(st.tempZN, sp.Jz)

		st.piDot(st.Jxh, st.Jyh, st.Jzh,
			st.tempXN, st.tempYN, st.tempZN, is)
	}

	if err := st.smoothNode(st.smoothVal, st.Jxh); err != nil { return err }
	if err := st.smoothNode(st.smoothVal, st.Jyh); err != nil { return err }
	if err := st.smoothNode(st.smoothVal, st.Jzh); err != nil { return err }

	// rho-hat = rho - dt*theta*div(J-hat)
	g.DivN2C(st.tempC, st.Jxh, st.Jyh, st.Jzh)
	scale(st.tempC, -st.dt*st.th)
	add(st.tempC, st.Rhoc)
	copy(st.Rhoh, st.tempC)

	return st.c.CenterBCP(st.Rhoh, neumann6)
}

// neumann6 is the all-Neumann face table used on source quantities.
var neumann6 = [6]int{2, 2, 2, 2, 2, 2}

func scale(x []float64, a float64) {
	for i := range x {
		x[i] *= a
	}
}

func add(x, y []float64) {
	for i := range x {
		x[i] += y[i]
	}
}

func addScaled(x []float64, a float64, y []float64) {
	for i := range x {
		x[i] += a * y[i]
	}
}

// piDot adds the species-is rotation tensor applied to (vx, vy, vz) into
// (ox, oy, oz): Pi*v = (v + v x omega + (v.omega) omega) / (1 + |omega|^2)
// with omega = beta * (Bn + B_ext).
func (st *State) piDot(ox, oy, oz, vx, vy, vz []float64, is int) {
	g := st.g
	beta := 0.5 * st.qom[is] * st.dt / st.cspeed

	thread.Split(g.Nxn-2, func(_, lo, hi int) {
		for i := lo + 1; i < hi+1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				for k := 1; k < g.Nzn-1; k++ {
					n := g.NIdx(i, j, k)
					omx := beta * (st.Bxn[n] + st.BxExt[n])
					omy := beta * (st.Byn[n] + st.ByExt[n])
					omz := beta * (st.Bzn[n] + st.BzExt[n])
					edotb := vx[n]*omx + vy[n]*omy + vz[n]*omz
					denom := 1 / (1 + omx*omx + omy*omy + omz*omz)
					ox[n] += (vx[n] + (vy[n]*omz - vz[n]*omy + edotb*omx)) * denom
					oy[n] += (vy[n] + (vz[n]*omx - vx[n]*omz + edotb*omy)) * denom
					oz[n] += (vz[n] + (vx[n]*omy - vy[n]*omx + edotb*omz)) * denom
				}
			}
		}
	})
}

// muDot applies the summed susceptibility of the linearized particle
// response: each species contributes its rotation tensor weighted by
// 4pi/(2c) * delt * qom * rho.
func (st *State) muDot(ox, oy, oz, vx, vy, vz []float64) {
	g := st.g
	thread.Split(g.Nxn-2, func(_, lo, hi int) {
		for i := lo + 1; i < hi+1; i++ {
			for j := 1; j < g.Nyn-1; j++ {
				for k := 1; k < g.Nzn-1; k++ {
					ox[g.NIdx(i, j, k)] = 0
					oy[g.NIdx(i, j, k)] = 0
					oz[g.NIdx(i, j, k)] = 0
				}
			}
		}
	})

	for is := 0; is < st.ns; is++ {
		beta := 0.5 * st.qom[is] * st.dt / st.cspeed
		pref := config.FourPI / 2 * st.delt * st.dt / st.cspeed * st.qom[is]
		rho := st.Species[is].Rho

		thread.Split(g.Nxn-2, func(_, lo, hi int) {
			for i := lo + 1; i < hi+1; i++ {
				for j := 1; j < g.Nyn-1; j++ {
					for k := 1; k < g.Nzn-1; k++ {
						n := g.NIdx(i, j, k)
						omx := beta * (st.Bxn[n] + st.BxExt[n])
						omy := beta * (st.Byn[n] + st.ByExt[n])
						omz := beta * (st.Bzn[n] + st.BzExt[n])
						edotb := vx[n]*omx + vy[n]*omy + vz[n]*omz
						denom := pref * rho[n] /
							(1 + omx*omx + omy*omy + omz*omz)
						ox[n] += (vx[n] + (vy[n]*omz - vz[n]*omy + edotb*omx)) * denom
						oy[n] += (vy[n] + (vz[n]*omx - vx[n]*omz + edotb*omy)) * denom
						oz[n] += (vz[n] + (vx[n]*omy - vy[n]*omx + edotb*omz)) * denom
					}
				}
			}
		})
	}
}

// smoothCenter runs the binomial smoother on a center array. The knob
// value engages the smoother when it is anything other than 1.
func (st *State) smoothCenter(value float64, v []float64) error {
	return st.smooth(value, v, false, nil)
}

// smoothNode runs the binomial smoother on a node array.
func (st *State) smoothNode(value float64, v []float64) error {
	return st.smooth(value, v, true, nil)
}

// smooth is the 6-pass alternating binomial smoother. Passes alternate
// the center weight between 0 and 1/2; the ghost layer is refreshed
// before each pass, with bc overriding the projector exchange when the
// array needs its field boundary table.
func (st *State) smooth(value float64, v []float64, node bool, bc *[6]int) error {
	if value == 1.0 { return nil }
	g := st.g

	const passes = 6
	for pass := 1; pass <= passes; pass++ {
		var err error
		switch {
		case node && bc != nil:
			err = st.c.NodeStencilBC(v, *bc)
		case node:
			err = st.c.NodeStencilP(v)
		default:
			err = st.c.CenterStencilP(v)
		}
		if err != nil { return err }

		w := 0.0
		if pass%2 == 0 { w = 0.5 }
		alpha := (1 - w) / 6

		nx, ny, nz := g.Nxc, g.Nyc, g.Nzc
		idx := g.CIdx
		if node {
			nx, ny, nz = g.Nxn, g.Nyn, g.Nzn
			idx = g.NIdx
		}

		tmp := st.smoothTmp
		for i := 1; i < nx-1; i++ {
			for j := 1; j < ny-1; j++ {
				for k := 1; k < nz-1; k++ {
					n := idx(i, j, k)
					tmp[n] = w*v[n] + alpha*(v[idx(i-1, j, k)]+
						v[idx(i+1, j, k)]+v[idx(i, j-1, k)]+
						v[idx(i, j+1, k)]+v[idx(i, j, k-1)]+
						v[idx(i, j, k+1)])
				}
			}
		}
		for i := 1; i < nx-1; i++ {
			for j := 1; j < ny-1; j++ {
				for k := 1; k < nz-1; k++ {
					n := idx(i, j, k)
					v[n] = tmp[n]
				}
			}
		}
	}
	return nil
}

// SmoothE applies the smoother to the three components of E with their
// boundary tables.
func (st *State) SmoothE(value float64) error {
	if err := st.smooth(value, st.Ex, true, &st.fbc.Ex); err != nil {
		return err
	}
	if err := st.smooth(value, st.Ey, true, &st.fbc.Ey); err != nil {
		return err
	}
	return st.smooth(value, st.Ez, true, &st.fbc.Ez)
}
