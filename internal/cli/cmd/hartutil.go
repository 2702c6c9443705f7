package cmd

import (
	"fmt"

	"github.com/rvvsim/rvvsim/internal/hart"
	"github.com/rvvsim/rvvsim/internal/hartconfig"
	"github.com/rvvsim/rvvsim/internal/vector"
)

// loadHart builds a *hart.Hart from a TOML configuration file, shared by
// every subcommand that needs a live hart rather than just a PMA map.
func loadHart(configPath string) (*hart.Hart, error) {
	if configPath == "" {
		return nil, fmt.Errorf("-config is required")
	}

	cfg, err := hartconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	m, err := cfg.BuildMap()
	if err != nil {
		return nil, err
	}

	ram := make([]byte, cfg.Hart.MemSize)
	h := hart.New(hart.Config{
		VLEN:      cfg.Hart.VLEN,
		Vill:      cfg.VillBehavior(),
		VSEnabled: true,
		MstatusVS: vector.VSDirty,
		Checker:   vector.CheckerConfig{TrapOnOOBVstart: cfg.Hart.TrapOnOOBVstart},
	}, m, 0, ram)

	return h, nil
}
