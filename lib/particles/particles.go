/*package particles stores the macro-particles of one species. A species
holds its particles either as parallel arrays (SoA) or as an array of
64-byte records (AoS); the same species has exactly one layout at a time,
and the moment accumulator has a kernel per layout.

The AoS record doubles as the wire format of the migration channels:
[u, v, w, q, x, y, z, tag] as doubles, one cache line per particle.*/
package particles

import (
	"fmt"
)

// Particle is the 64-byte particle record.
type Particle struct {
	U, V, W, Q float64
	X, Y, Z    float64
	// Tag carries the particle's tracking ID through migration.
	Tag float64
}

// Layout selects a species' storage scheme.
type Layout int

const (
	SoA Layout = iota
	AoS
)

// Species is an ordered collection of macro-particles with a single
// storage layout.
type Species struct {
	layout Layout

	// AoS storage
	pcls []Particle

	// SoA storage
	u, v, w, q, x, y, z, tag []float64
}

// NewSpecies creates an empty species with the given layout.
func NewSpecies(layout Layout) *Species {
	return &Species{layout: layout}
}

// Layout returns the species' storage layout.
func (s *Species) Layout() Layout { return s.layout }

// Len returns the number of particles.
func (s *Species) Len() int {
	if s.layout == AoS { return len(s.pcls) }
	return len(s.x)
}

// Add appends a particle.
func (s *Species) Add(p Particle) {
	if s.layout == AoS {
		s.pcls = append(s.pcls, p)
		return
	}
	s.u, s.v, s.w = append(s.u, p.U), append(s.v, p.V), append(s.w, p.W)
	s.q = append(s.q, p.Q)
	s.x, s.y, s.z = append(s.x, p.X), append(s.y, p.Y), append(s.z, p.Z)
	s.tag = append(s.tag, p.Tag)
}

// Get returns particle i regardless of layout.
func (s *Species) Get(i int) Particle {
	if s.layout == AoS { return s.pcls[i] }
	return Particle{s.u[i], s.v[i], s.w[i], s.q[i],
		s.x[i], s.y[i], s.z[i], s.tag[i]}
}

// Records returns the backing record array of an AoS species.
func (s *Species) Records() ([]Particle, error) {
	if s.layout != AoS {
		return nil, fmt.Errorf("Records was called on an SoA species.")
	}
	return s.pcls, nil
}

// Arrays returns the backing parallel arrays of an SoA species in the
// order (u, v, w, q, x, y, z).
func (s *Species) Arrays() (u, v, w, q, x, y, z []float64, err error) {
	if s.layout != SoA {
		return nil, nil, nil, nil, nil, nil, nil,
			fmt.Errorf("Arrays was called on an AoS species.")
	}
	return s.u, s.v, s.w, s.q, s.x, s.y, s.z, nil
}

// Convert switches the species to the given layout, preserving particle
// order.
func (s *Species) Convert(to Layout) {
	if to == s.layout { return }

	n := s.Len()
	out := NewSpecies(to)
	for i := 0; i < n; i++ {
		out.Add(s.Get(i))
	}
	*s = *out
}
