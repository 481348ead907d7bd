/*package grid implements the local staggered Cartesian mesh: index
arithmetic, node and cell-center coordinates, and the discrete differential
operators that couple the two staggerings.

Arrays are stored flat in [i][j][k] order. Every mesh array carries one
ghost layer on each face, so a process that owns nx*ny*nz cells stores
(nx+2)*(ny+2)*(nz+2) cell centers and (nx+3)*(ny+3)*(nz+3) nodes. Node 1
sits at the lower corner of the proper subdomain and node Nxn-2 at the
upper corner.*/
package grid

import (
	"fmt"
)

// Grid holds the process-local mesh geometry. It is immutable after
// construction and shared by every component of a run.
type Grid struct {
	// Cell-center and node counts per axis, ghost layers included.
	Nxc, Nyc, Nzc int
	Nxn, Nyn, Nzn int

	// Cell spacings and their inverses.
	Dx, Dy, Dz          float64
	InvDx, InvDy, InvDz float64
	// InvVol = 1/(Dx*Dy*Dz).
	InvVol float64

	// Coordinates of the lower and upper corners of the proper subdomain.
	XStart, YStart, ZStart float64
	XEnd, YEnd, ZEnd       float64
}

// New creates the local mesh for a process owning nx*ny*nz cells of size
// (lx/nx, ly/ny, lz/nz) whose proper subdomain starts at (x0, y0, z0).
func New(nx, ny, nz int, lx, ly, lz, x0, y0, z0 float64) (*Grid, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("The local mesh must own at least one cell "+
			"per axis, but was given (%d, %d, %d).", nx, ny, nz)
	}
	if lx <= 0 || ly <= 0 || lz <= 0 {
		return nil, fmt.Errorf("The local subdomain must have positive "+
			"extent, but was given (%g, %g, %g).", lx, ly, lz)
	}

	g := &Grid{
		Nxc: nx + 2, Nyc: ny + 2, Nzc: nz + 2,
		Nxn: nx + 3, Nyn: ny + 3, Nzn: nz + 3,
		Dx: lx / float64(nx), Dy: ly / float64(ny), Dz: lz / float64(nz),
		XStart: x0, YStart: y0, ZStart: z0,
		XEnd: x0 + lx, YEnd: y0 + ly, ZEnd: z0 + lz,
	}
	g.InvDx, g.InvDy, g.InvDz = 1/g.Dx, 1/g.Dy, 1/g.Dz
	g.InvVol = g.InvDx * g.InvDy * g.InvDz

	return g, nil
}

// NIdx returns the flat index of node (i, j, k).
func (g *Grid) NIdx(i, j, k int) int {
	return (i*g.Nyn+j)*g.Nzn + k
}

// CIdx returns the flat index of cell center (i, j, k).
func (g *Grid) CIdx(i, j, k int) int {
	return (i*g.Nyc+j)*g.Nzc + k
}

// NN returns the length of a node array, ghosts included.
func (g *Grid) NN() int { return g.Nxn * g.Nyn * g.Nzn }

// NC returns the length of a center array, ghosts included.
func (g *Grid) NC() int { return g.Nxc * g.Nyc * g.Nzc }

// NodeArray allocates a zeroed node array.
func (g *Grid) NodeArray() []float64 { return make([]float64, g.NN()) }

// CenterArray allocates a zeroed center array.
func (g *Grid) CenterArray() []float64 { return make([]float64, g.NC()) }

// XN returns the x coordinate of node plane i. Node 1 is at XStart.
func (g *Grid) XN(i int) float64 { return g.XStart + float64(i-1)*g.Dx }

// YN returns the y coordinate of node plane j.
func (g *Grid) YN(j int) float64 { return g.YStart + float64(j-1)*g.Dy }

// ZN returns the z coordinate of node plane k.
func (g *Grid) ZN(k int) float64 { return g.ZStart + float64(k-1)*g.Dz }

// XC returns the x coordinate of center plane i.
func (g *Grid) XC(i int) float64 {
	return g.XStart + (float64(i)-0.5)*g.Dx
}

// YC returns the y coordinate of center plane j.
func (g *Grid) YC(j int) float64 {
	return g.YStart + (float64(j)-0.5)*g.Dy
}

// ZC returns the z coordinate of center plane k.
func (g *Grid) ZC(k int) float64 {
	return g.ZStart + (float64(k)-0.5)*g.Dz
}

// Workspace holds the temporaries needed by the composed Laplacians. One
// Workspace is owned per FieldState so that no operator allocates inside
// a solver iteration.
type Workspace struct {
	Cx, Cy, Cz []float64
	Nx, Ny, Nz []float64
}

// NewWorkspace allocates a Workspace for g.
func NewWorkspace(g *Grid) *Workspace {
	return &Workspace{
		g.CenterArray(), g.CenterArray(), g.CenterArray(),
		g.NodeArray(), g.NodeArray(), g.NodeArray(),
	}
}

// Exchanger is the slice of the halo layer the operators need: a center
// ghost refresh with projector (Neumann) face policy. It is implemented by
// halo.Comm.
type Exchanger interface {
	CenterP(v []float64) error
	CenterStencilP(v []float64) error
}
