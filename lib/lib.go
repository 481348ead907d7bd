/*package lib ties gopic's subsystems into the implicit PIC cycle. Almost
all of the heavy lifting is done by lib/'s subpackages; this package owns
the per-cycle sequencing:

	(1) particle-to-grid moments, per species
	(2) additive ghost exchange + boundary fix-up of the moments
	(3) hat sources rho-hat, J-hat
	(4) implicit field solve for E^(n+theta)
	(5) Faraday update of B
	(6) packing the fields into the mover layout
	(7) the external mover
*/
package lib

import (
	"fmt"
	"log"

	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/field"
	"github.com/phil-mansfield/gopic/lib/grid"
	"github.com/phil-mansfield/gopic/lib/halo"
	"github.com/phil-mansfield/gopic/lib/moments"
	"github.com/phil-mansfield/gopic/lib/particles"
	"github.com/phil-mansfield/gopic/lib/solver"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

// Version differentiates breaking changes to gopic's on-disk formats.
var Version uint64 = 0x1

// Mover advances the particles through the packed field one time step.
// The push and the migration live outside the core; a nil Mover leaves
// the particles static.
type Mover func(species []*particles.Species, st *field.State) error

// Simulator owns one rank's share of a run.
type Simulator struct {
	Cfg     *config.Config
	Grid    *grid.Grid
	Topo    topology.Topology
	Comm    *halo.Comm
	State   *field.State
	Acc     *moments.Accumulator
	Species []*particles.Species
	Mover   Mover

	cycle int
}

// NewSimulator builds a rank's simulator from a validated deck, its spot
// in the process topology, and its endpoint on the fabric.
func NewSimulator(
	cfg *config.Config, topo topology.Topology, tr transport.Transport,
) (*Simulator, error) {
	gc := &cfg.Grid
	nx, ny, nz := gc.Nx/gc.XLen, gc.Ny/gc.YLen, gc.Nz/gc.ZLen
	lx := gc.Lx / float64(gc.XLen)
	ly := gc.Ly / float64(gc.YLen)
	lz := gc.Lz / float64(gc.ZLen)
	cx, cy, cz := topo.Coords()

	g, err := grid.New(nx, ny, nz, lx, ly, lz,
		gc.X0+float64(cx)*lx, gc.Y0+float64(cy)*ly, gc.Z0+float64(cz)*lz)
	if err != nil { return nil, err }

	comm := halo.New(g, topo, tr)
	st := field.New(g, comm, topo, cfg)
	if err := st.InitUniform(cfg); err != nil { return nil, err }

	sim := &Simulator{
		Cfg: cfg, Grid: g, Topo: topo, Comm: comm,
		State: st, Acc: moments.NewAccumulator(g),
	}
	for _, sc := range cfg.Species {
		layout := particles.SoA
		if sc.Layout == "aos" { layout = particles.AoS }
		sim.Species = append(sim.Species, particles.NewSpecies(layout))
	}
	return sim, nil
}

// SeedUniform fills every species with its deck-configured cold lattice:
// npcel^3 stationary particles per cell, evenly spaced, carrying the
// charge that reproduces the species' uniform density. Species with
// npcel = 0 stay empty for an external loader.
func (sim *Simulator) SeedUniform() {
	g := sim.Grid
	for is, sc := range sim.Cfg.Species {
		m := sc.Npcel
		if m <= 0 { continue }

		q := sc.RhoInit * g.Dx * g.Dy * g.Dz / float64(m*m*m)
		sp := sim.Species[is]

		for i := 1; i < g.Nxc-1; i++ {
			for j := 1; j < g.Nyc-1; j++ {
				for k := 1; k < g.Nzc-1; k++ {
					for a := 0; a < m; a++ {
						for b := 0; b < m; b++ {
							for c := 0; c < m; c++ {
								sp.Add(particles.Particle{
									Q: q,
									X: g.XN(i) + (float64(a)+0.5)*g.Dx/float64(m),
									Y: g.YN(j) + (float64(b)+0.5)*g.Dy/float64(m),
									Z: g.ZN(k) + (float64(c)+0.5)*g.Dz/float64(m),
								})
							}
						}
					}
				}
			}
		}
	}
}

// GatherMoments runs the particle-to-grid stage: zero the sinks, deposit
// every species, fold the halo contributions, and build the summed
// densities and currents.
func (sim *Simulator) GatherMoments() error {
	st := sim.State
	st.SetZeroPrimaryMoments()
	st.SetZeroDerivedMoments()

	for is, sp := range sim.Species {
		if err := sim.Acc.SumMoments(sp, st.Species[is]); err != nil {
			return err
		}
		if err := st.CommunicateGhostP2G(is); err != nil { return err }
	}

	st.SumOverSpecies()
	st.SumOverSpeciesJ()
	return nil
}

// Step advances the run one cycle.
func (sim *Simulator) Step() error {
	st := sim.State

	if err := sim.GatherMoments(); err != nil { return err }
	if err := st.CalculateHatFunctions(); err != nil { return err }

	_, maxwell, err := st.CalculateE()
	if err != nil { return err }
	if maxwell.Outcome != solver.Converged && sim.Topo.Rank() == 0 {
		log.Printf("cycle %d: Maxwell GMRES %s after %d iterations, "+
			"residual %.3g; continuing with the best-effort field.",
			sim.cycle, maxwell.Outcome, maxwell.Iterations, maxwell.Residual)
	}

	if err := st.CalculateB(); err != nil { return err }
	st.SetFieldForPcls()

	if sim.Mover != nil {
		if err := sim.Mover(sim.Species, st); err != nil {
			return fmt.Errorf("cycle %d: mover: %s", sim.cycle, err.Error())
		}
	}

	sim.cycle++
	return nil
}

// Cycle returns the number of completed cycles.
func (sim *Simulator) Cycle() int { return sim.cycle }

// Run advances the configured number of cycles, logging the field
// energies from rank 0.
func (sim *Simulator) Run() error {
	for i := 0; i < sim.Cfg.Time.Cycles; i++ {
		if err := sim.Step(); err != nil { return err }
		if sim.Topo.Rank() == 0 {
			log.Printf("cycle %4d  E energy %.6e  B energy %.6e",
				sim.cycle, sim.State.EEnergy(), sim.State.BEnergy())
		}
	}
	return nil
}
