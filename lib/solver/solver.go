/*package solver contains the matrix-free Krylov solvers used by the
implicit field solve: restarted GMRES for the Maxwell system and conjugate
gradient for the Poisson divergence cleaning. Both operate on flat arrays
of interior unknowns (the ghost layer never enters Krylov space) and call
the operator through an Image callback.

Neither solver mutates the right-hand side. The initial content of x is
used as the starting guess and overwritten with the solution.*/
package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Image applies the matrix-free operator: im = A*v. It must not retain or
// modify v.
type Image func(im, v []float64) error

// Outcome classifies how a solve ended.
type Outcome int

const (
	// Converged: the residual dropped below the tolerance.
	Converged Outcome = iota
	// IterationLimit: the iteration budget ran out first.
	IterationLimit
	// ToleranceNotMet: the solver stalled without reaching the tolerance.
	ToleranceNotMet
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case IterationLimit:
		return "iteration limit"
	}
	return "tolerance not met"
}

// Result reports a solve's outcome, iteration count, and final relative
// residual.
type Result struct {
	Outcome    Outcome
	Iterations int
	Residual   float64
}

// CG runs conjugate gradient on the symmetric system A*x = b to a relative
// residual of tol, with at most maxIter iterations.
func CG(x, b []float64, maxIter int, tol float64, image Image) (Result, error) {
	n := len(x)
	r := make([]float64, n)
	p := make([]float64, n)
	ap := make([]float64, n)

	// r = b - A*x
	if err := image(r, x); err != nil { return Result{}, err }
	floats.Scale(-1, r)
	floats.Add(r, b)
	copy(p, r)

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 { bnorm = 1 }

	rr := floats.Dot(r, r)
	for k := 0; k < maxIter; k++ {
		res := floats.Norm(r, 2) / bnorm
		if res < tol {
			return Result{Converged, k, res}, nil
		}

		if err := image(ap, p); err != nil { return Result{}, err }
		pap := floats.Dot(p, ap)
		if pap == 0 {
			return Result{ToleranceNotMet, k, res}, nil
		}
		alpha := rr / pap
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, ap)

		rrNew := floats.Dot(r, r)
		beta := rrNew / rr
		rr = rrNew
		for i := range p {
			p[i] = r[i] + beta*p[i]
		}
	}
	return Result{IterationLimit, maxIter, floats.Norm(r, 2) / bnorm}, nil
}

// GMRES runs restarted GMRES(m) on A*x = b: restart every m inner
// iterations, at most maxIter iterations in total, to a relative residual
// of tol. The Hessenberg system is solved with Givens rotations, so the
// residual norm is available at every inner step without forming the
// solution.
func GMRES(
	x, b []float64, m, maxIter int, tol float64, image Image,
) (Result, error) {
	n := len(x)

	v := make([][]float64, m+1)
	for i := range v {
		v[i] = make([]float64, n)
	}
	h := mat.NewDense(m+1, m, nil)
	cs := make([]float64, m)
	sn := make([]float64, m)
	s := make([]float64, m+1)
	y := make([]float64, m)
	w := make([]float64, n)

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 { bnorm = 1 }

	total := 0
	res := 0.0
	for total < maxIter {
		// v[0] = (b - A*x) / beta
		if err := image(w, x); err != nil { return Result{}, err }
		for i := range w {
			v[0][i] = b[i] - w[i]
		}
		beta := floats.Norm(v[0], 2)
		res = beta / bnorm
		if res < tol {
			return Result{Converged, total, res}, nil
		}
		floats.Scale(1/beta, v[0])

		for i := range s {
			s[i] = 0
		}
		s[0] = beta

		k := 0
		for ; k < m && total < maxIter; k++ {
			total++

			// Arnoldi step with modified Gram-Schmidt.
			if err := image(w, v[k]); err != nil { return Result{}, err }
			for i := 0; i <= k; i++ {
				hik := floats.Dot(w, v[i])
				h.Set(i, k, hik)
				floats.AddScaled(w, -hik, v[i])
			}
			wnorm := floats.Norm(w, 2)
			h.Set(k+1, k, wnorm)
			if wnorm != 0 {
				for i := range w {
					v[k+1][i] = w[i] / wnorm
				}
			}

			// Apply the accumulated rotations to the new column, then
			// generate the rotation that kills h[k+1][k].
			for i := 0; i < k; i++ {
				hi, hi1 := h.At(i, k), h.At(i+1, k)
				h.Set(i, k, cs[i]*hi+sn[i]*hi1)
				h.Set(i+1, k, -sn[i]*hi+cs[i]*hi1)
			}
			cs[k], sn[k] = givens(h.At(k, k), h.At(k+1, k))
			h.Set(k, k, cs[k]*h.At(k, k)+sn[k]*h.At(k+1, k))
			h.Set(k+1, k, 0)
			s[k+1] = -sn[k] * s[k]
			s[k] = cs[k] * s[k]

			res = abs(s[k+1]) / bnorm
			if res < tol {
				k++
				break
			}
			if wnorm == 0 {
				// exact breakdown: the Krylov space is invariant
				k++
				break
			}
		}

		// Back-substitute y from the triangularized Hessenberg system and
		// update x.
		for i := k - 1; i >= 0; i-- {
			y[i] = s[i]
			for j := i + 1; j < k; j++ {
				y[i] -= h.At(i, j) * y[j]
			}
			y[i] /= h.At(i, i)
		}
		for i := 0; i < k; i++ {
			floats.AddScaled(x, y[i], v[i])
		}

		if res < tol {
			return Result{Converged, total, res}, nil
		}
	}

	if res < tol {
		return Result{Converged, total, res}, nil
	}
	return Result{IterationLimit, total, res}, nil
}

// givens returns the rotation (c, s) with c*a + s*b = r, -s*a + c*b = 0.
func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if abs(b) > abs(a) {
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		return s * t, s
	}
	t := b / a
	c = 1 / math.Sqrt(1+t*t)
	return c, c * t
}

func abs(x float64) float64 {
	if x < 0 { return -x }
	return x
}
