package grid

/* operators.go contains the discrete differential operators of the
staggered mesh. Every operator is pure on its inputs, writes to a
caller-supplied output, and assumes ghost layers are current. Derivatives
between the two staggerings average the four edge differences that cross
the dual face, which keeps grad/div discretely adjoint up to boundary
terms. */

// GradC2N computes the gradient of the center scalar s on interior nodes.
func (g *Grid) GradC2N(gx, gy, gz, s []float64) {
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				gx[n] = 0.25 * g.InvDx * (s[g.CIdx(i, j, k)] - s[g.CIdx(i-1, j, k)] +
					s[g.CIdx(i, j-1, k)] - s[g.CIdx(i-1, j-1, k)] +
					s[g.CIdx(i, j, k-1)] - s[g.CIdx(i-1, j, k-1)] +
					s[g.CIdx(i, j-1, k-1)] - s[g.CIdx(i-1, j-1, k-1)])
				gy[n] = 0.25 * g.InvDy * (s[g.CIdx(i, j, k)] - s[g.CIdx(i, j-1, k)] +
					s[g.CIdx(i-1, j, k)] - s[g.CIdx(i-1, j-1, k)] +
					s[g.CIdx(i, j, k-1)] - s[g.CIdx(i, j-1, k-1)] +
					s[g.CIdx(i-1, j, k-1)] - s[g.CIdx(i-1, j-1, k-1)])
				gz[n] = 0.25 * g.InvDz * (s[g.CIdx(i, j, k)] - s[g.CIdx(i, j, k-1)] +
					s[g.CIdx(i-1, j, k)] - s[g.CIdx(i-1, j, k-1)] +
					s[g.CIdx(i, j-1, k)] - s[g.CIdx(i, j-1, k-1)] +
					s[g.CIdx(i-1, j-1, k)] - s[g.CIdx(i-1, j-1, k-1)])
			}
		}
	}
}

// GradN2C computes the gradient of the node scalar s on every center that
// has full node support, ghost centers included.
func (g *Grid) GradN2C(gx, gy, gz, s []float64) {
	for i := 0; i < g.Nxc; i++ {
		for j := 0; j < g.Nyc; j++ {
			for k := 0; k < g.Nzc; k++ {
				c := g.CIdx(i, j, k)
				gx[c] = 0.25 * g.InvDx * (s[g.NIdx(i+1, j, k)] - s[g.NIdx(i, j, k)] +
					s[g.NIdx(i+1, j+1, k)] - s[g.NIdx(i, j+1, k)] +
					s[g.NIdx(i+1, j, k+1)] - s[g.NIdx(i, j, k+1)] +
					s[g.NIdx(i+1, j+1, k+1)] - s[g.NIdx(i, j+1, k+1)])
				gy[c] = 0.25 * g.InvDy * (s[g.NIdx(i, j+1, k)] - s[g.NIdx(i, j, k)] +
					s[g.NIdx(i+1, j+1, k)] - s[g.NIdx(i+1, j, k)] +
					s[g.NIdx(i, j+1, k+1)] - s[g.NIdx(i, j, k+1)] +
					s[g.NIdx(i+1, j+1, k+1)] - s[g.NIdx(i+1, j, k+1)])
				gz[c] = 0.25 * g.InvDz * (s[g.NIdx(i, j, k+1)] - s[g.NIdx(i, j, k)] +
					s[g.NIdx(i+1, j, k+1)] - s[g.NIdx(i+1, j, k)] +
					s[g.NIdx(i, j+1, k+1)] - s[g.NIdx(i, j+1, k)] +
					s[g.NIdx(i+1, j+1, k+1)] - s[g.NIdx(i+1, j+1, k)])
			}
		}
	}
}

// DivN2C computes the divergence of the node vector (vx, vy, vz) on
// interior centers.
func (g *Grid) DivN2C(d, vx, vy, vz []float64) {
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				c := g.CIdx(i, j, k)
				ddx := 0.25 * g.InvDx * (vx[g.NIdx(i+1, j, k)] - vx[g.NIdx(i, j, k)] +
					vx[g.NIdx(i+1, j+1, k)] - vx[g.NIdx(i, j+1, k)] +
					vx[g.NIdx(i+1, j, k+1)] - vx[g.NIdx(i, j, k+1)] +
					vx[g.NIdx(i+1, j+1, k+1)] - vx[g.NIdx(i, j+1, k+1)])
				ddy := 0.25 * g.InvDy * (vy[g.NIdx(i, j+1, k)] - vy[g.NIdx(i, j, k)] +
					vy[g.NIdx(i+1, j+1, k)] - vy[g.NIdx(i+1, j, k)] +
					vy[g.NIdx(i, j+1, k+1)] - vy[g.NIdx(i, j, k+1)] +
					vy[g.NIdx(i+1, j+1, k+1)] - vy[g.NIdx(i+1, j, k+1)])
				ddz := 0.25 * g.InvDz * (vz[g.NIdx(i, j, k+1)] - vz[g.NIdx(i, j, k)] +
					vz[g.NIdx(i+1, j, k+1)] - vz[g.NIdx(i+1, j, k)] +
					vz[g.NIdx(i, j+1, k+1)] - vz[g.NIdx(i, j+1, k)] +
					vz[g.NIdx(i+1, j+1, k+1)] - vz[g.NIdx(i+1, j+1, k)])
				d[c] = ddx + ddy + ddz
			}
		}
	}
}

// DivC2N computes the divergence of the center vector (fx, fy, fz) on
// interior nodes.
func (g *Grid) DivC2N(d, fx, fy, fz []float64) {
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				ddx := 0.25 * g.InvDx * (fx[g.CIdx(i, j, k)] - fx[g.CIdx(i-1, j, k)] +
					fx[g.CIdx(i, j-1, k)] - fx[g.CIdx(i-1, j-1, k)] +
					fx[g.CIdx(i, j, k-1)] - fx[g.CIdx(i-1, j, k-1)] +
					fx[g.CIdx(i, j-1, k-1)] - fx[g.CIdx(i-1, j-1, k-1)])
				ddy := 0.25 * g.InvDy * (fy[g.CIdx(i, j, k)] - fy[g.CIdx(i, j-1, k)] +
					fy[g.CIdx(i-1, j, k)] - fy[g.CIdx(i-1, j-1, k)] +
					fy[g.CIdx(i, j, k-1)] - fy[g.CIdx(i, j-1, k-1)] +
					fy[g.CIdx(i-1, j, k-1)] - fy[g.CIdx(i-1, j-1, k-1)])
				ddz := 0.25 * g.InvDz * (fz[g.CIdx(i, j, k)] - fz[g.CIdx(i, j, k-1)] +
					fz[g.CIdx(i-1, j, k)] - fz[g.CIdx(i-1, j, k-1)] +
					fz[g.CIdx(i, j-1, k)] - fz[g.CIdx(i, j-1, k-1)] +
					fz[g.CIdx(i-1, j-1, k)] - fz[g.CIdx(i-1, j-1, k-1)])
				d[n] = ddx + ddy + ddz
			}
		}
	}
}

// CurlC2N computes the curl of the center vector (bx, by, bz) on interior
// nodes.
func (g *Grid) CurlC2N(cx, cy, cz, bx, by, bz []float64) {
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n := g.NIdx(i, j, k)
				dzdy := 0.25 * g.InvDy * (bz[g.CIdx(i, j, k)] - bz[g.CIdx(i, j-1, k)] +
					bz[g.CIdx(i-1, j, k)] - bz[g.CIdx(i-1, j-1, k)] +
					bz[g.CIdx(i, j, k-1)] - bz[g.CIdx(i, j-1, k-1)] +
					bz[g.CIdx(i-1, j, k-1)] - bz[g.CIdx(i-1, j-1, k-1)])
				dydz := 0.25 * g.InvDz * (by[g.CIdx(i, j, k)] - by[g.CIdx(i, j, k-1)] +
					by[g.CIdx(i-1, j, k)] - by[g.CIdx(i-1, j, k-1)] +
					by[g.CIdx(i, j-1, k)] - by[g.CIdx(i, j-1, k-1)] +
					by[g.CIdx(i-1, j-1, k)] - by[g.CIdx(i-1, j-1, k-1)])
				dxdz := 0.25 * g.InvDz * (bx[g.CIdx(i, j, k)] - bx[g.CIdx(i, j, k-1)] +
					bx[g.CIdx(i-1, j, k)] - bx[g.CIdx(i-1, j, k-1)] +
					bx[g.CIdx(i, j-1, k)] - bx[g.CIdx(i, j-1, k-1)] +
					bx[g.CIdx(i-1, j-1, k)] - bx[g.CIdx(i-1, j-1, k-1)])
				dzdx := 0.25 * g.InvDx * (bz[g.CIdx(i, j, k)] - bz[g.CIdx(i-1, j, k)] +
					bz[g.CIdx(i, j-1, k)] - bz[g.CIdx(i-1, j-1, k)] +
					bz[g.CIdx(i, j, k-1)] - bz[g.CIdx(i-1, j, k-1)] +
					bz[g.CIdx(i, j-1, k-1)] - bz[g.CIdx(i-1, j-1, k-1)])
				dydx := 0.25 * g.InvDx * (by[g.CIdx(i, j, k)] - by[g.CIdx(i-1, j, k)] +
					by[g.CIdx(i, j-1, k)] - by[g.CIdx(i-1, j-1, k)] +
					by[g.CIdx(i, j, k-1)] - by[g.CIdx(i-1, j, k-1)] +
					by[g.CIdx(i, j-1, k-1)] - by[g.CIdx(i-1, j-1, k-1)])
				dxdy := 0.25 * g.InvDy * (bx[g.CIdx(i, j, k)] - bx[g.CIdx(i, j-1, k)] +
					bx[g.CIdx(i-1, j, k)] - bx[g.CIdx(i-1, j-1, k)] +
					bx[g.CIdx(i, j, k-1)] - bx[g.CIdx(i, j-1, k-1)] +
					bx[g.CIdx(i-1, j, k-1)] - bx[g.CIdx(i-1, j-1, k-1)])
				cx[n] = dzdy - dydz
				cy[n] = dxdz - dzdx
				cz[n] = dydx - dxdy
			}
		}
	}
}

// CurlN2C computes the curl of the node vector (vx, vy, vz) on interior
// centers.
func (g *Grid) CurlN2C(cx, cy, cz, vx, vy, vz []float64) {
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				c := g.CIdx(i, j, k)
				dzdy := 0.25 * g.InvDy * (vz[g.NIdx(i, j+1, k)] - vz[g.NIdx(i, j, k)] +
					vz[g.NIdx(i+1, j+1, k)] - vz[g.NIdx(i+1, j, k)] +
					vz[g.NIdx(i, j+1, k+1)] - vz[g.NIdx(i, j, k+1)] +
					vz[g.NIdx(i+1, j+1, k+1)] - vz[g.NIdx(i+1, j, k+1)])
				dydz := 0.25 * g.InvDz * (vy[g.NIdx(i, j, k+1)] - vy[g.NIdx(i, j, k)] +
					vy[g.NIdx(i+1, j, k+1)] - vy[g.NIdx(i+1, j, k)] +
					vy[g.NIdx(i, j+1, k+1)] - vy[g.NIdx(i, j+1, k)] +
					vy[g.NIdx(i+1, j+1, k+1)] - vy[g.NIdx(i+1, j+1, k)])
				dxdz := 0.25 * g.InvDz * (vx[g.NIdx(i, j, k+1)] - vx[g.NIdx(i, j, k)] +
					vx[g.NIdx(i+1, j, k+1)] - vx[g.NIdx(i+1, j, k)] +
					vx[g.NIdx(i, j+1, k+1)] - vx[g.NIdx(i, j+1, k)] +
					vx[g.NIdx(i+1, j+1, k+1)] - vx[g.NIdx(i+1, j+1, k)])
				dzdx := 0.25 * g.InvDx * (vz[g.NIdx(i+1, j, k)] - vz[g.NIdx(i, j, k)] +
					vz[g.NIdx(i+1, j+1, k)] - vz[g.NIdx(i, j+1, k)] +
					vz[g.NIdx(i+1, j, k+1)] - vz[g.NIdx(i, j, k+1)] +
					vz[g.NIdx(i+1, j+1, k+1)] - vz[g.NIdx(i, j+1, k+1)])
				dydx := 0.25 * g.InvDx * (vy[g.NIdx(i+1, j, k)] - vy[g.NIdx(i, j, k)] +
					vy[g.NIdx(i+1, j+1, k)] - vy[g.NIdx(i, j+1, k)] +
					vy[g.NIdx(i+1, j, k+1)] - vy[g.NIdx(i, j, k+1)] +
					vy[g.NIdx(i+1, j+1, k+1)] - vy[g.NIdx(i, j+1, k+1)])
				dxdy := 0.25 * g.InvDy * (vx[g.NIdx(i, j+1, k)] - vx[g.NIdx(i, j, k)] +
					vx[g.NIdx(i+1, j+1, k)] - vx[g.NIdx(i+1, j, k)] +
					vx[g.NIdx(i, j+1, k+1)] - vx[g.NIdx(i, j, k+1)] +
					vx[g.NIdx(i+1, j+1, k+1)] - vx[g.NIdx(i+1, j, k+1)])
				cx[c] = dzdy - dydz
				cy[c] = dxdz - dzdx
				cz[c] = dydx - dxdy
			}
		}
	}
}

// LapN2N computes the node Laplacian of the node scalar s as the composed
// div(grad(s)), with one center ghost exchange between the two halves.
func (g *Grid) LapN2N(out, s []float64, ws *Workspace, ex Exchanger) error {
	g.GradN2C(ws.Cx, ws.Cy, ws.Cz, s)
	if err := ex.CenterP(ws.Cx); err != nil { return err }
	if err := ex.CenterP(ws.Cy); err != nil { return err }
	if err := ex.CenterP(ws.Cz); err != nil { return err }
	g.DivC2N(out, ws.Cx, ws.Cy, ws.Cz)
	return nil
}

// LapC2CPoisson computes the center Laplacian of the center scalar s as
// the composed div(grad(s)) through the node staggering, which is exactly
// the operator the divergence-cleaning residual lives in. The ghost layer
// of s is refreshed with the Neumann projector before the gradient.
func (g *Grid) LapC2CPoisson(out, s []float64, ws *Workspace, ex Exchanger) error {
	if err := ex.CenterStencilP(s); err != nil { return err }
	g.GradC2N(ws.Nx, ws.Ny, ws.Nz, s)
	g.DivN2C(out, ws.Nx, ws.Ny, ws.Nz)
	return nil
}

// InterpN2C interpolates the node scalar n onto interior centers.
func (g *Grid) InterpN2C(c, n []float64) {
	for i := 1; i < g.Nxc-1; i++ {
		for j := 1; j < g.Nyc-1; j++ {
			for k := 1; k < g.Nzc-1; k++ {
				c[g.CIdx(i, j, k)] = 0.125 * (n[g.NIdx(i, j, k)] +
					n[g.NIdx(i+1, j, k)] + n[g.NIdx(i, j+1, k)] +
					n[g.NIdx(i, j, k+1)] + n[g.NIdx(i+1, j+1, k)] +
					n[g.NIdx(i+1, j, k+1)] + n[g.NIdx(i, j+1, k+1)] +
					n[g.NIdx(i+1, j+1, k+1)])
			}
		}
	}
}

// InterpC2N interpolates the center scalar c onto interior nodes.
func (g *Grid) InterpC2N(n, c []float64) {
	for i := 1; i < g.Nxn-1; i++ {
		for j := 1; j < g.Nyn-1; j++ {
			for k := 1; k < g.Nzn-1; k++ {
				n[g.NIdx(i, j, k)] = 0.125 * (c[g.CIdx(i, j, k)] +
					c[g.CIdx(i-1, j, k)] + c[g.CIdx(i, j-1, k)] +
					c[g.CIdx(i, j, k-1)] + c[g.CIdx(i-1, j-1, k)] +
					c[g.CIdx(i-1, j, k-1)] + c[g.CIdx(i, j-1, k-1)] +
					c[g.CIdx(i-1, j-1, k-1)])
			}
		}
	}
}

// DivSymmTensorN2C computes the divergence of a symmetric node tensor
// (pxx, pxy, pxz, pyy, pyz, pzz) on interior centers. It is used on the
// species pressure tensor when assembling the hat current.
func (g *Grid) DivSymmTensorN2C(tx, ty, tz []float64,
	pxx, pxy, pxz, pyy, pyz, pzz []float64) {

	g.DivN2C(tx, pxx, pxy, pxz)
	g.DivN2C(ty, pxy, pyy, pyz)
	g.DivN2C(tz, pxz, pyz, pzz)
}
