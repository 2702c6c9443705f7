// Package hartconfig loads a hart's static configuration — its vector
// register width, illegal-vtype policy, and initial PMA regions and
// memory-mapped registers — from a TOML file.
//
// TOML is the pack's configuration format of choice (github.com/BurntSushi/toml,
// carried in go.mod from rcornwell-S370's dependency set); it is used here
// the same way that repo's peripheral definitions are loaded: a flat
// document decoded straight into typed structs, with no intermediate
// schema validation library, so every semantic check (region count,
// attribute spelling, size legality) happens in Go after Decode returns.
package hartconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rvvsim/rvvsim/internal/pma"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// Config is the decoded shape of a hart's TOML configuration file.
type Config struct {
	Hart   HartSection    `toml:"hart"`
	Region []RegionSection `toml:"region"`
	MMR    []MMRSection    `toml:"mmr"`
}

// HartSection configures the register file width and vsetvl illegal-type
// policy, per spec.md §4.3's configurable knobs.
type HartSection struct {
	VLEN            uint64 `toml:"vlen"`
	MemSize         uint64 `toml:"mem_size"`
	Vill            string `toml:"vill"` // "trap" or "continue"
	TrapOnOOBVstart bool   `toml:"trap_on_oob_vstart"`
}

// RegionSection configures one PMA region, matching pma.Map.DefineRegion's
// arguments.
type RegionSection struct {
	Index  int      `toml:"index"`
	First  uint64   `toml:"first"`
	Last   uint64   `toml:"last"`
	Attrib []string `toml:"attrib"`
}

// MMRSection configures one memory-mapped register, matching
// pma.Map.DefineMMR's arguments.
type MMRSection struct {
	Addr   uint64   `toml:"addr"`
	Mask   uint64   `toml:"mask"`
	Size   int      `toml:"size"`
	Attrib []string `toml:"attrib"`
}

// attribNames maps the TOML attribute spellings to pma.Attrib bits. Kept
// as a map rather than a generated stringer-reverse lookup since the set
// is small and config files are hand-written, not machine-generated.
var attribNames = map[string]pma.Attrib{
	"read":        pma.Read,
	"write":       pma.Write,
	"exec":        pma.Exec,
	"idempotent":  pma.Idempotent,
	"amo_other":   pma.AmoOther,
	"amo_swap":    pma.AmoSwap,
	"amo_logical": pma.AmoLogical,
	"mem_mapped":  pma.MemMapped,
	"rsrv":        pma.Rsrv,
	"io":          pma.Io,
	"cacheable":   pma.Cacheable,
	"misal_ok":    pma.MisalOk,
	"misal_fault": pma.MisalAccFault,
}

// ParseAttrib decodes a list of attribute names into a combined bitset,
// returning an error naming the first unrecognized entry.
func ParseAttrib(names []string) (pma.Attrib, error) {
	var a pma.Attrib

	for _, n := range names {
		bit, ok := attribNames[n]
		if !ok {
			return 0, fmt.Errorf("hartconfig: unknown attribute %q", n)
		}

		a |= bit
	}

	return a, nil
}

// Load decodes the TOML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hartconfig: %w", err)
	}

	var cfg Config

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("hartconfig: decode: %w", err)
	}

	return &cfg, nil
}

// VillBehavior translates the hart section's "trap"/"continue" string into
// a vtype.VillBehavior, defaulting to VillTrap for an empty or unrecognized
// value.
func (c *Config) VillBehavior() vtype.VillBehavior {
	if c.Hart.Vill == "continue" {
		return vtype.VillContinue
	}

	return vtype.VillTrap
}

// BuildMap constructs a *pma.Map from the configuration's region and MMR
// sections, returning an error identifying the first definition that pma
// rejects (bad index, bad size, misaligned MMR address, and so on).
func (c *Config) BuildMap() (*pma.Map, error) {
	m := pma.NewMap(c.Hart.MemSize)

	for _, r := range c.Region {
		attr, err := ParseAttrib(r.Attrib)
		if err != nil {
			return nil, err
		}

		if !m.DefineRegion(r.Index, r.First, r.Last, pma.NewPma(attr)) {
			return nil, fmt.Errorf("hartconfig: region %d: rejected (index %d, first %#x, last %#x)",
				r.Index, r.Index, r.First, r.Last)
		}
	}

	for _, mm := range c.MMR {
		attr, err := ParseAttrib(mm.Attrib)
		if err != nil {
			return nil, err
		}

		if !m.DefineMMR(mm.Addr, mm.Mask, mm.Size, pma.NewPma(attr)) {
			return nil, fmt.Errorf("hartconfig: mmr at %#x: rejected (size %d)", mm.Addr, mm.Size)
		}
	}

	return m, nil
}
