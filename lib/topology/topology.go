/*package topology abstracts the process-neighbor graph of a run. The core
never discovers the Cartesian decomposition itself: it only asks who its six
face neighbors are. A neighbor of transport.ProcNull marks a physical
boundary, and the caller applies the configured boundary condition there.*/
package topology

import (
	"fmt"

	"github.com/phil-mansfield/gopic/lib/transport"
)

// Axis selects one of the three mesh directions.
type Axis int

const (
	X Axis = iota
	Y
	Z
)

// Side selects the lower or upper face along an axis.
type Side int

const (
	Left Side = iota
	Right
)

// Topology is the neighbor graph seen by one rank. The P variants are the
// neighbors used for particle and moment traffic; for a plain Cartesian
// decomposition they match the field neighbors.
type Topology interface {
	Rank() int
	Neighbor(ax Axis, s Side) int
	NeighborP(ax Axis, s Side) int
	// Periodic reports whether the global mesh wraps along ax.
	Periodic(ax Axis) bool
	// Coords returns the rank's position in the process mesh.
	Coords() (cx, cy, cz int)
}

// Cartesian is a topology over an XLen*YLen*ZLen process mesh with
// per-axis periodicity. Rank r sits at coordinates
// (r/(YLen*ZLen), (r/ZLen)%YLen, r%ZLen).
type Cartesian struct {
	rank                int
	XLen, YLen, ZLen    int
	periodic            [3]bool
	coords              [3]int
}

// NewCartesian builds the neighbor graph for the given rank of an
// xLen*yLen*zLen process mesh.
func NewCartesian(
	rank, xLen, yLen, zLen int, periodicX, periodicY, periodicZ bool,
) (*Cartesian, error) {
	n := xLen * yLen * zLen
	if xLen < 1 || yLen < 1 || zLen < 1 {
		return nil, fmt.Errorf("The process mesh must be at least 1 "+
			"process thick per axis, but is (%d, %d, %d).", xLen, yLen, zLen)
	}
	if rank < 0 || rank >= n {
		return nil, fmt.Errorf("Rank %d is outside the %d-process mesh.",
			rank, n)
	}

	c := &Cartesian{
		rank: rank, XLen: xLen, YLen: yLen, ZLen: zLen,
		periodic: [3]bool{periodicX, periodicY, periodicZ},
	}
	c.coords = [3]int{rank / (yLen * zLen), (rank / zLen) % yLen, rank % zLen}
	return c, nil
}

func (c *Cartesian) Rank() int { return c.rank }

func (c *Cartesian) axisLen(ax Axis) int {
	switch ax {
	case X:
		return c.XLen
	case Y:
		return c.YLen
	}
	return c.ZLen
}

func (c *Cartesian) Neighbor(ax Axis, s Side) int {
	coord := c.coords[ax]
	length := c.axisLen(ax)

	step := -1
	if s == Right { step = +1 }
	next := coord + step

	if next < 0 || next >= length {
		if !c.periodic[ax] { return transport.ProcNull }
		next = (next + length) % length
	}

	out := c.coords
	out[ax] = next
	return (out[0]*c.YLen+out[1])*c.ZLen + out[2]
}

func (c *Cartesian) NeighborP(ax Axis, s Side) int {
	return c.Neighbor(ax, s)
}

func (c *Cartesian) Periodic(ax Axis) bool { return c.periodic[ax] }

func (c *Cartesian) Coords() (cx, cy, cz int) {
	return c.coords[0], c.coords[1], c.coords[2]
}
