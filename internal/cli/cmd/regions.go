package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/rvvsim/rvvsim/internal/cli"
	"github.com/rvvsim/rvvsim/internal/hartconfig"
	"github.com/rvvsim/rvvsim/internal/log"
)

// regions loads a hart configuration file and prints the resolved PMA
// attributes for each configured region and memory-mapped register,
// without running any instructions. It exists to let a config author
// confirm lowest-index-wins resolution and MMR placement before wiring a
// hart up to real work.
type regions struct {
	fs     *flag.FlagSet
	config *string
}

var _ cli.Command = (*regions)(nil)

func Regions() *regions {
	r := &regions{fs: flag.NewFlagSet("regions", flag.ExitOnError)}
	r.config = r.fs.String("config", "", "path to a hart TOML configuration file")

	return r
}

func (*regions) Description() string {
	return "print the PMA regions and MMRs a config file resolves to"
}

func (r *regions) FlagSet() *cli.FlagSet { return r.fs }

func (*regions) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, "regions -config <path>")
	return err
}

func (r *regions) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	if *r.config == "" {
		fmt.Fprintln(out, "regions: -config is required")
		return 1
	}

	cfg, err := hartconfig.Load(*r.config)
	if err != nil {
		logger.Error("regions: load", "ERR", err)
		return 1
	}

	m, err := cfg.BuildMap()
	if err != nil {
		logger.Error("regions: build map", "ERR", err)
		return 1
	}

	for _, rs := range cfg.Region {
		p := m.PmaFor(rs.First)
		fmt.Fprintf(out, "region[%d] [%#x, %#x] -> %s\n", rs.Index, rs.First, rs.Last, p)
	}

	for _, mm := range cfg.MMR {
		p := m.PmaFor(mm.Addr)
		fmt.Fprintf(out, "mmr %#x (size %d) -> %s\n", mm.Addr, mm.Size, p)
	}

	return 0
}
