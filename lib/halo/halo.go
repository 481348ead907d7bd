/*package halo implements the blocking ghost-cell exchanges of the mesh:
overwrite exchanges for node and center arrays with per-face boundary
condition codes, and the additive exchange that folds particle-to-grid
contributions across subdomain boundaries.

Faces are indexed the way the run deck orders them: 0 X-right, 1 X-left,
2 Y-right, 3 Y-left, 4 Z-right, 5 Z-left. Face codes are 0 (periodic,
handled by the topology), 1 (mirror: odd reflection through the wall) and
2 (open: even reflection through the wall). A face whose neighbor is
transport.ProcNull is a physical boundary and gets the coded reflection;
every other face gets its neighbor's data.

Exchanges run axis by axis over full planes (ghost rows of the other axes
included), which fills edge and corner ghosts without dedicated edge
messages.*/
package halo

import (
	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

// Direction tags keep the two messages between a pair of processes apart
// when a periodic axis is only one or two processes thick.
const (
	tagXDn = iota + 1
	tagXUp
	tagYDn
	tagYUp
	tagZDn
	tagZUp
)

func tagDn(ax topology.Axis) int { return tagXDn + 2*int(ax) }
func tagUp(ax topology.Axis) int { return tagXUp + 2*int(ax) }

// Comm runs ghost exchanges for one rank. It owns per-axis pack buffers so
// steady-state exchanges do not allocate.
type Comm struct {
	g    *grid.Grid
	topo topology.Topology
	tr   transport.Transport

	// pack/unpack scratch, sized for the largest node plane
	sendL, sendR []float64
	recvL, recvR []float64
}

// Interface check: Comm is the Exchanger the grid operators need.
var _ grid.Exchanger = &Comm{}

// New creates a Comm over the given mesh, neighbor graph and fabric.
func New(g *grid.Grid, topo topology.Topology, tr transport.Transport) *Comm {
	max := g.Nyn * g.Nzn
	if s := g.Nxn * g.Nzn; s > max { max = s }
	if s := g.Nxn * g.Nyn; s > max { max = s }
	// the additive exchange ships two planes at a time
	max *= 2

	return &Comm{
		g: g, topo: topo, tr: tr,
		sendL: make([]float64, max), sendR: make([]float64, max),
		recvL: make([]float64, max), recvR: make([]float64, max),
	}
}

// dims describes the array being exchanged (node- or center-shaped).
type dims struct{ nx, ny, nz int }

func (d dims) idx(i, j, k int) int { return (i*d.ny+j)*d.nz + k }

func (d dims) planeLen(ax topology.Axis) int {
	switch ax {
	case topology.X:
		return d.ny * d.nz
	case topology.Y:
		return d.nx * d.nz
	}
	return d.nx * d.ny
}

// packPlane copies plane p of axis ax into buf.
func (d dims) packPlane(v []float64, ax topology.Axis, p int, buf []float64) {
	n := 0
	switch ax {
	case topology.X:
		for j := 0; j < d.ny; j++ {
			for k := 0; k < d.nz; k++ {
				buf[n] = v[d.idx(p, j, k)]
				n++
			}
		}
	case topology.Y:
		for i := 0; i < d.nx; i++ {
			for k := 0; k < d.nz; k++ {
				buf[n] = v[d.idx(i, p, k)]
				n++
			}
		}
	default:
		for i := 0; i < d.nx; i++ {
			for j := 0; j < d.ny; j++ {
				buf[n] = v[d.idx(i, j, p)]
				n++
			}
		}
	}
}

// unpackPlane copies buf into plane p of axis ax, either overwriting or
// adding.
func (d dims) unpackPlane(v []float64, ax topology.Axis, p int,
	buf []float64, add bool) {

	n := 0
	set := func(idx int) {
		if add {
			v[idx] += buf[n]
		} else {
			v[idx] = buf[n]
		}
		n++
	}
	switch ax {
	case topology.X:
		for j := 0; j < d.ny; j++ {
			for k := 0; k < d.nz; k++ {
				set(d.idx(p, j, k))
			}
		}
	case topology.Y:
		for i := 0; i < d.nx; i++ {
			for k := 0; k < d.nz; k++ {
				set(d.idx(i, p, k))
			}
		}
	default:
		for i := 0; i < d.nx; i++ {
			for j := 0; j < d.ny; j++ {
				set(d.idx(i, j, p))
			}
		}
	}
}

// reflectPlane fills ghost plane p from mirror plane m, negating for a
// mirror (code 1) face.
func (d dims) reflectPlane(v []float64, ax topology.Axis, p, m int, code int) {
	sign := 1.0
	if code == 1 { sign = -1 }

	switch ax {
	case topology.X:
		for j := 0; j < d.ny; j++ {
			for k := 0; k < d.nz; k++ {
				v[d.idx(p, j, k)] = sign * v[d.idx(m, j, k)]
			}
		}
	case topology.Y:
		for i := 0; i < d.nx; i++ {
			for k := 0; k < d.nz; k++ {
				v[d.idx(i, p, k)] = sign * v[d.idx(i, m, k)]
			}
		}
	default:
		for i := 0; i < d.nx; i++ {
			for j := 0; j < d.ny; j++ {
				v[d.idx(i, j, p)] = sign * v[d.idx(i, j, m)]
			}
		}
	}
}

// faceCode picks the run-deck code for (axis, side) out of the 6-element
// face table.
func faceCode(bc [6]int, ax topology.Axis, s topology.Side) int {
	// table order: Xright, Xleft, Yright, Yleft, Zright, Zleft
	i := 2 * int(ax)
	if s == topology.Left { i++ }
	return bc[i]
}

// exchangeAxis refreshes the ghost planes of v along ax. sendL/sendR are
// the planes shipped to each neighbor; mirrorL/mirrorR are the planes
// reflected into the ghosts at physical faces.
func (c *Comm) exchangeAxis(v []float64, d dims, ax topology.Axis,
	sendLp, sendRp, mirrorL, mirrorR int, bc [6]int, particle bool) error {

	left := c.neighbor(ax, topology.Left, particle)
	right := c.neighbor(ax, topology.Right, particle)

	n := d.planeLen(ax)
	var reqL, reqR transport.Request
	var err error

	if left != transport.ProcNull {
		d.packPlane(v, ax, sendLp, c.sendL[:n])
		if _, err = c.tr.Isend(left, tagDn(ax), c.sendL[:n]); err != nil {
			return err
		}
		if reqL, err = c.tr.Irecv(left, tagUp(ax), c.recvL[:n]); err != nil {
			return err
		}
	}
	if right != transport.ProcNull {
		d.packPlane(v, ax, sendRp, c.sendR[:n])
		if _, err = c.tr.Isend(right, tagUp(ax), c.sendR[:n]); err != nil {
			return err
		}
		if reqR, err = c.tr.Irecv(right, tagDn(ax), c.recvR[:n]); err != nil {
			return err
		}
	}

	if reqL != nil {
		if _, err = reqL.Wait(); err != nil { return err }
		d.unpackPlane(v, ax, 0, c.recvL[:n], false)
	} else {
		d.reflectPlane(v, ax, 0, mirrorL, faceCode(bc, ax, topology.Left))
	}
	if reqR != nil {
		if _, err = reqR.Wait(); err != nil { return err }
		d.unpackPlane(v, ax, axisLen(d, ax)-1, c.recvR[:n], false)
	} else {
		d.reflectPlane(v, ax, axisLen(d, ax)-1, mirrorR,
			faceCode(bc, ax, topology.Right))
	}
	return nil
}

func axisLen(d dims, ax topology.Axis) int {
	switch ax {
	case topology.X:
		return d.nx
	case topology.Y:
		return d.ny
	}
	return d.nz
}

func (c *Comm) neighbor(ax topology.Axis, s topology.Side, particle bool) int {
	if particle { return c.topo.NeighborP(ax, s) }
	return c.topo.Neighbor(ax, s)
}

// NodeBC refreshes the ghost layer of the node array v with per-face codes.
func (c *Comm) NodeBC(v []float64, bc [6]int) error {
	return c.nodeExchange(v, bc, false)
}

// NodeP refreshes the ghost layer of the node array v with the even
// projector on every physical face, over the particle neighbor graph. It
// is used to finish the moment arrays after the additive exchange.
func (c *Comm) NodeP(v []float64) error {
	return c.nodeExchange(v, [6]int{2, 2, 2, 2, 2, 2}, true)
}

// NodeStencilBC is the ghost refresh run between smoothing passes. The
// plane exchange already carries edge and corner ghosts, so it shares the
// face implementation.
func (c *Comm) NodeStencilBC(v []float64, bc [6]int) error {
	return c.nodeExchange(v, bc, false)
}

// NodeStencilP is NodeStencilBC with the even projector on physical faces.
func (c *Comm) NodeStencilP(v []float64) error {
	return c.nodeExchange(v, [6]int{2, 2, 2, 2, 2, 2}, false)
}

func (c *Comm) nodeExchange(v []float64, bc [6]int, particle bool) error {
	g := c.g
	d := dims{g.Nxn, g.Nyn, g.Nzn}
	// The wall sits on node plane 1 (and Nxn-2), so the neighbor's value
	// for ghost plane 0 is its plane Nxn-3, and reflections mirror about
	// the wall plane.
	if err := c.exchangeAxis(v, d, topology.X,
		2, g.Nxn-3, 2, g.Nxn-3, bc, particle); err != nil {
		return err
	}
	if err := c.exchangeAxis(v, d, topology.Y,
		2, g.Nyn-3, 2, g.Nyn-3, bc, particle); err != nil {
		return err
	}
	return c.exchangeAxis(v, d, topology.Z,
		2, g.Nzn-3, 2, g.Nzn-3, bc, particle)
}

// CenterBC refreshes the ghost layer of the center array v with per-face
// codes.
func (c *Comm) CenterBC(v []float64, bc [6]int) error {
	return c.centerExchange(v, bc, false)
}

// CenterBCP is CenterBC over the particle neighbor graph; it is the
// projector exchange used on the hat and source quantities.
func (c *Comm) CenterBCP(v []float64, bc [6]int) error {
	return c.centerExchange(v, bc, true)
}

// CenterP refreshes the ghost layer of the center array v with the even
// projector on every physical face.
func (c *Comm) CenterP(v []float64) error {
	return c.centerExchange(v, [6]int{2, 2, 2, 2, 2, 2}, true)
}

// CenterStencilP is the center ghost refresh run between smoothing or
// Laplacian stencil passes.
func (c *Comm) CenterStencilP(v []float64) error {
	return c.centerExchange(v, [6]int{2, 2, 2, 2, 2, 2}, true)
}

func (c *Comm) centerExchange(v []float64, bc [6]int, particle bool) error {
	g := c.g
	d := dims{g.Nxc, g.Nyc, g.Nzc}
	// Center ghosts pair with the neighbor's outermost owned centers, and
	// the wall sits between ghost 0 and center 1.
	if err := c.exchangeAxis(v, d, topology.X,
		1, g.Nxc-2, 1, g.Nxc-2, bc, particle); err != nil {
		return err
	}
	if err := c.exchangeAxis(v, d, topology.Y,
		1, g.Nyc-2, 1, g.Nyc-2, bc, particle); err != nil {
		return err
	}
	return c.exchangeAxis(v, d, topology.Z,
		1, g.Nzc-2, 1, g.Nzc-2, bc, particle)
}

// InterpAdd folds the particle-to-grid contributions that landed in the
// ghost and wall planes of each node array into the neighbor that owns
// them. Received planes are added, not overwritten: after the call both
// sides of every shared wall plane hold the full sum. Physical faces
// receive nothing; the caller applies the boundary fix-up afterwards.
func (c *Comm) InterpAdd(vs ...[]float64) error {
	g := c.g
	d := dims{g.Nxn, g.Nyn, g.Nzn}

	for _, v := range vs {
		for _, ax := range []topology.Axis{topology.X, topology.Y, topology.Z} {
			if err := c.interpAddAxis(v, d, ax); err != nil { return err }
		}
	}
	return nil
}

func (c *Comm) interpAddAxis(v []float64, d dims, ax topology.Axis) error {
	left := c.topo.NeighborP(ax, topology.Left)
	right := c.topo.NeighborP(ax, topology.Right)

	n := d.planeLen(ax)
	last := axisLen(d, ax) - 1
	var reqL, reqR transport.Request
	var err error

	// Ship [ghost, wall] planes in both directions before applying any
	// received contributions, so a self-loop adds pre-exchange values.
	if left != transport.ProcNull {
		d.packPlane(v, ax, 0, c.sendL[:n])
		d.packPlane(v, ax, 1, c.sendL[n:2*n])
		if _, err = c.tr.Isend(left, tagDn(ax), c.sendL[:2*n]); err != nil {
			return err
		}
		if reqL, err = c.tr.Irecv(left, tagUp(ax), c.recvL[:2*n]); err != nil {
			return err
		}
	}
	if right != transport.ProcNull {
		d.packPlane(v, ax, last, c.sendR[:n])
		d.packPlane(v, ax, last-1, c.sendR[n:2*n])
		if _, err = c.tr.Isend(right, tagUp(ax), c.sendR[:2*n]); err != nil {
			return err
		}
		if reqR, err = c.tr.Irecv(right, tagDn(ax), c.recvR[:2*n]); err != nil {
			return err
		}
	}

	// A left neighbor's [last, last-1] planes coincide with our [2, 1];
	// a right neighbor's [0, 1] planes coincide with our [last-2, last-1].
	if reqL != nil {
		if _, err = reqL.Wait(); err != nil { return err }
		d.unpackPlane(v, ax, 2, c.recvL[:n], true)
		d.unpackPlane(v, ax, 1, c.recvL[n:2*n], true)
	}
	if reqR != nil {
		if _, err = reqR.Wait(); err != nil { return err }
		d.unpackPlane(v, ax, last-2, c.recvR[:n], true)
		d.unpackPlane(v, ax, last-1, c.recvR[n:2*n], true)
	}
	return nil
}
