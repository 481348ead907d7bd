package main

import (
	"flag"
	"fmt"

	"github.com/phil-mansfield/gopic/lib"
	"github.com/phil-mansfield/gopic/lib/config"
	"github.com/phil-mansfield/gopic/lib/error"
	"github.com/phil-mansfield/gopic/lib/snapshot"
	"github.com/phil-mansfield/gopic/lib/thread"
	"github.com/phil-mansfield/gopic/lib/topology"
	"github.com/phil-mansfield/gopic/lib/transport"
)

func main() {
	threads := flag.Int("threads", -1,
		"Worker threads per rank; -1 means one per core.")
	out := flag.String("out", "",
		"Snapshot file written after the last cycle.")
	flag.Parse()

	if flag.NArg() != 2 {
		error.External("Usage: gopic [flags] <mode> <deck.toml>. The " +
			"valid modes are 'check' and 'run'.")
	}
	mode, deck := flag.Arg(0), flag.Arg(1)

	switch mode {
	case "check":
		Check(deck)
	case "run":
		Run(deck, *threads, *out)
	default:
		error.External("You attempted to run gopic in the mode '%s', but "+
			"the only valid modes are 'check' and 'run'.", mode)
	}
}

// Check runs gopic's "check" mode, which tests for errors in the run
// deck.
func Check(deck string) {
	if _, err := config.Load(deck); err != nil {
		error.External("%s", err.Error())
	}
	fmt.Println("No errors detected.")
}

// Run runs gopic's "run" mode: a single-rank cycle loop over the deck's
// configured cycle count.
func Run(deck string, threads int, out string) {
	cfg, err := config.Load(deck)
	if err != nil {
		error.External("%s", err.Error())
	}
	if n := cfg.Grid.XLen * cfg.Grid.YLen * cfg.Grid.ZLen; n != 1 {
		error.External("The deck asks for %d ranks, but the gopic binary "+
			"runs a single rank; multi-rank runs go through the MPI "+
			"launcher.", n)
	}

	thread.Set(threads)

	topo, err := topology.NewCartesian(0, 1, 1, 1,
		cfg.Grid.PeriodicX, cfg.Grid.PeriodicY, cfg.Grid.PeriodicZ)
	if err != nil {
		error.Internal("%s", err.Error())
	}
	tr := transport.NewNetwork(1).Endpoint(0)

	sim, err := lib.NewSimulator(cfg, topo, tr)
	if err != nil {
		error.External("%s", err.Error())
	}
	sim.SeedUniform()

	if err := sim.Run(); err != nil {
		error.External("%s", err.Error())
	}

	if out != "" {
		snap := snapshot.FromState(sim.State, sim.Cycle())
		if err := snapshot.Write(out, snap); err != nil {
			error.External("%s", err.Error())
		}
	}

	fmt.Println("Run complete.")
}
