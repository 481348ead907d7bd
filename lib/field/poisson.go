package field

/* poisson.go is the divergence-cleaning stage that precedes the Maxwell
solve: a CG solve of lap(PHI) = div(E) - 4pi rho, with a GMRES fallback
when CG stalls, followed by E -= grad(PHI). */

import (
	"log"

	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/solver"
)

// PoissonImage applies the center Laplacian to a Krylov vector. It
// matches the Image signature of the solvers.
func (st *State) PoissonImage(im, v []float64) error {
	fill(st.poissonTmp, 0)
	st.solverToPhysC(st.poissonTmp, v)
	err := st.g.LapC2CPoisson(st.poissonIm, st.poissonTmp, st.ws, st.c)
	if err != nil { return err }
	st.physToSolverC(im, st.poissonIm)
	return nil
}

// divergenceClean solves for the correction potential and subtracts its
// gradient from E. CG gets the first try; if it fails to converge within
// its budget the system falls back to GMRES(20, 200).
func (st *State) divergenceClean() (solver.Result, error) {
	g := st.g

	g.DivN2C(st.divC, st.Ex, st.Ey, st.Ez)
	for i := range st.divC {
		st.divC[i] -= config.FourPI * st.Rhoc[i]
	}
	st.physToSolverC(st.bkPoisson, st.divC)

	fill(st.xkPoisson, 0)
	res, err := solver.CG(st.xkPoisson, st.bkPoisson, 3000, st.cgTol,
		st.PoissonImage)
	if err != nil { return res, err }
	if res.Outcome != solver.Converged {
		if st.topo.Rank() == 0 {
			log.Printf("CG not converged (%s after %d iterations, "+
				"residual %.3g); retrying with GMRes. Consider increasing "+
				"the CG iteration budget.",
				res.Outcome, res.Iterations, res.Residual)
		}
		fill(st.xkPoisson, 0)
		res, err = solver.GMRES(st.xkPoisson, st.bkPoisson, 20, 200,
			st.gmresTol, st.PoissonImage)
		if err != nil { return res, err }
	}

	st.solverToPhysC(st.Phi, st.xkPoisson)
	if err := st.c.CenterBC(st.Phi, neumann6); err != nil { return res, err }

	// the gradient only covers the interior, so clear the stale ghosts
	// before it is subtracted from the full arrays
	fill(st.tempX, 0)
	fill(st.tempY, 0)
	fill(st.tempZ, 0)
	g.GradC2N(st.tempX, st.tempY, st.tempZ, st.Phi)
	sub(st.Ex, st.tempX)
	sub(st.Ey, st.tempY)
	sub(st.Ez, st.tempZ)

	return res, nil
}

// DivE computes div(E) on interior centers into out; diagnostics use it
// to measure cleaning quality.
func (st *State) DivE(out []float64) {
	st.g.DivN2C(out, st.Ex, st.Ey, st.Ez)
}
