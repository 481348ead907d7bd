/*package config reads and validates gopic run decks. A run deck is a TOML
file fixing everything that is immutable for a run: the mesh, the process
decomposition, the species, the field knobs, the per-face boundary
condition codes, and the solver tolerances. Derived quantities (delt, the
per-component boundary tables) are computed here once so the kernels never
re-derive them.*/
package config

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"
)

// FourPI is the 4*pi that appears in the Gaussian-unit source terms.
var FourPI = 16 * math.Atan(1)

// Face indices of the 6-element boundary tables.
const (
	XRight = iota
	XLeft
	YRight
	YLeft
	ZRight
	ZLeft
)

// EM face codes.
const (
	PerfectConductor = 0
	Mirror           = 1
	Open             = 2
)

// PHI face codes.
const (
	PhiPeriodic  = 0
	PhiDirichlet = 1
	PhiNeumann   = 2
)

// Case selects the problem-specific boundary fix-up applied to B.
type Case int

const (
	CaseDefault Case = iota
	CaseGEM
	CaseForceFree
)

// Grid is the [grid] section: the global mesh and its decomposition.
// TOML keys match the field names case-insensitively.
type Grid struct {
	Nx, Ny, Nz int
	Lx, Ly, Lz float64
	X0, Y0, Z0 float64

	XLen, YLen, ZLen int
	PeriodicX        bool `toml:"periodic_x"`
	PeriodicY        bool `toml:"periodic_y"`
	PeriodicZ        bool `toml:"periodic_z"`
}

// Time is the [time] section.
type Time struct {
	Dt     float64
	Theta  float64
	Cycles int
}

// Species is one [[species]] block. Npcel is the per-axis particle count
// of the uniform seeding helper; 0 leaves the species empty for an
// external loader.
type Species struct {
	Qom     float64
	RhoInit float64 `toml:"rho_init"`
	Layout  string
	Npcel   int
}

// Fields is the [fields] section.
type Fields struct {
	C      float64
	Smooth float64

	B0x, B0y, B0z float64
	B1x, B1y, B1z float64
	Delta         float64

	// Drift velocity of the convecting boundary field, E = -v0 x B0.
	Ue0, Ve0, We0 float64
}

// BC is the [bc] section: one code per face for PHI and for the EM fields,
// in the order Xright, Xleft, Yright, Yleft, Zright, Zleft.
type BC struct {
	Phi [6]int
	EM  [6]int
}

// Solver is the [solver] section.
type Solver struct {
	CGTol             float64 `toml:"cg_tol"`
	GMRESTol          float64 `toml:"gmres_tol"`
	PoissonCorrection bool    `toml:"poisson_correction"`
	// LegacyZBoundary keeps the historical Z-face susceptibility indexing
	// (see lib/field/bc.go). On by default to match existing runs.
	LegacyZBoundary bool `toml:"legacy_z_boundary"`
}

// Config is a fully parsed run deck.
type Config struct {
	Grid    Grid
	Time    Time
	Species []Species
	Fields  Fields
	BC      BC
	Solver  Solver
	CaseStr string `toml:"case"`

	Case Case `toml:"-"`
}

// Default returns a run deck with the usual knob settings; sections the
// deck file sets override these.
func Default() *Config {
	return &Config{
		Grid: Grid{XLen: 1, YLen: 1, ZLen: 1,
			PeriodicX: true, PeriodicY: true, PeriodicZ: true},
		Time: Time{Theta: 1, Cycles: 1},
		Fields: Fields{C: 1, Smooth: 1},
		Solver: Solver{CGTol: 1e-3, GMRESTol: 1e-3,
			LegacyZBoundary: true},
		CaseStr: "Default",
	}
}

// Load reads and validates the run deck at path.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil { return nil, err }
	return cfg, nil
}

// Validate checks the deck for configuration errors and fills in derived
// fields. Every failure here is terminal: there is no sensible way to run
// with a broken deck.
func (cfg *Config) Validate() error {
	g := &cfg.Grid
	if g.Nx < 1 || g.Ny < 1 || g.Nz < 1 {
		return fmt.Errorf("The mesh must have at least one cell per axis, "+
			"but nx, ny, nz = %d, %d, %d.", g.Nx, g.Ny, g.Nz)
	}
	if g.Lx <= 0 || g.Ly <= 0 || g.Lz <= 0 {
		return fmt.Errorf("The box must have positive extent, but "+
			"lx, ly, lz = %g, %g, %g.", g.Lx, g.Ly, g.Lz)
	}
	if g.XLen < 1 || g.YLen < 1 || g.ZLen < 1 {
		return fmt.Errorf("The process mesh must be at least 1 process "+
			"thick per axis, but is (%d, %d, %d).", g.XLen, g.YLen, g.ZLen)
	}
	if g.Nx%g.XLen != 0 || g.Ny%g.YLen != 0 || g.Nz%g.ZLen != 0 {
		return fmt.Errorf("The mesh (%d, %d, %d) does not divide evenly "+
			"across the (%d, %d, %d) process mesh.",
			g.Nx, g.Ny, g.Nz, g.XLen, g.YLen, g.ZLen)
	}

	t := &cfg.Time
	if t.Dt <= 0 {
		return fmt.Errorf("The time step must be positive, but dt = %g.",
			t.Dt)
	}
	if t.Theta < 0.5 || t.Theta > 1 {
		return fmt.Errorf("The time-centering parameter must be in "+
			"[0.5, 1], but theta = %g.", t.Theta)
	}

	if len(cfg.Species) == 0 {
		return fmt.Errorf("The deck defines no species.")
	}
	for i := range cfg.Species {
		switch cfg.Species[i].Layout {
		case "", "soa", "aos":
		default:
			return fmt.Errorf("Species %d requests the particle layout "+
				"'%s', but only 'soa' and 'aos' exist.",
				i, cfg.Species[i].Layout)
		}
	}

	if cfg.Fields.C <= 0 {
		return fmt.Errorf("The speed of light must be positive, but "+
			"c = %g.", cfg.Fields.C)
	}

	for f := 0; f < 6; f++ {
		if cfg.BC.Phi[f] < 0 || cfg.BC.Phi[f] > 2 {
			return fmt.Errorf("PHI face %d has the boundary code %d; "+
				"only 0 (periodic), 1 (Dirichlet), and 2 (Neumann) exist.",
				f, cfg.BC.Phi[f])
		}
		if cfg.BC.EM[f] < 0 || cfg.BC.EM[f] > 2 {
			return fmt.Errorf("EM face %d has the boundary code %d; only "+
				"0 (perfect conductor), 1 (mirror), and 2 (open) exist.",
				f, cfg.BC.EM[f])
		}
	}

	s := &cfg.Solver
	if s.CGTol <= 0 || s.GMRESTol <= 0 {
		return fmt.Errorf("Solver tolerances must be positive, but "+
			"cg_tol = %g and gmres_tol = %g.", s.CGTol, s.GMRESTol)
	}

	switch cfg.CaseStr {
	case "", "Default":
		cfg.Case = CaseDefault
	case "GEM":
		cfg.Case = CaseGEM
	case "ForceFree":
		cfg.Case = CaseForceFree
	default:
		return fmt.Errorf("The case '%s' is not one of 'Default', 'GEM', "+
			"or 'ForceFree'.", cfg.CaseStr)
	}

	return nil
}

// Delt is the implicit length scale c*theta*dt.
func (cfg *Config) Delt() float64 {
	return cfg.Fields.C * cfg.Time.Theta * cfg.Time.Dt
}

// Qom returns the charge-to-mass ratios of every species.
func (cfg *Config) Qom() []float64 {
	qom := make([]float64, len(cfg.Species))
	for i := range qom {
		qom[i] = cfg.Species[i].Qom
	}
	return qom
}

// FieldBC holds the per-component boundary tables derived from the EM face
// codes. The tables swap the tangential/normal role between E and B: on a
// perfect-conductor face the tangential E and normal B mirror and the
// other components reflect evenly; on every other face the roles flip, so
// the normal E and tangential B mirror.
type FieldBC struct {
	Ex, Ey, Ez [6]int
	Bx, By, Bz [6]int
}

// faceAxis maps a face index to its axis (0 x, 1 y, 2 z).
func faceAxis(f int) int { return f / 2 }

// DeriveFieldBC computes the per-component tables from the EM face codes.
func (cfg *Config) DeriveFieldBC() *FieldBC {
	bc := &FieldBC{}
	e := [3]*[6]int{&bc.Ex, &bc.Ey, &bc.Ez}
	b := [3]*[6]int{&bc.Bx, &bc.By, &bc.Bz}

	for f := 0; f < 6; f++ {
		pc := cfg.BC.EM[f] == PerfectConductor
		for comp := 0; comp < 3; comp++ {
			normal := comp == faceAxis(f)
			switch {
			case pc && normal:
				e[comp][f], b[comp][f] = 2, 1
			case pc:
				e[comp][f], b[comp][f] = 1, 2
			case normal:
				e[comp][f], b[comp][f] = 1, 2
			default:
				e[comp][f], b[comp][f] = 2, 1
			}
		}
	}
	return bc
}
