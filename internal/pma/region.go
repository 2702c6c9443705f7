package pma

import (
	"sync"

	"github.com/rvvsim/rvvsim/internal/log"
)

// MaxRegions is the hard limit on the number of PMA regions a Map can hold,
// per spec.md §4.1.
const MaxRegions = 128

// region is one entry in the ordered PMA table.
type region struct {
	first, last uint64
	attr        Pma
	valid       bool
}

func (r region) overlaps(addr uint64) bool {
	return r.valid && addr >= r.first && addr <= r.last
}

func (r region) overlapsRange(first, last uint64) bool {
	return r.valid && last >= r.first && first <= r.last
}

// AccessReason distinguishes why an address was resolved, for tracing.
type AccessReason int

const (
	ReasonNone AccessReason = iota
	ReasonFetch
	ReasonLoadStore
)

// Access records one resolved lookup for diagnostics, mirroring the
// original PmaManager's PmaTrace (see SPEC_FULL.md §"SUPPLEMENTED
// FEATURES").
type Access struct {
	Index  int
	Addr   uint64
	First  uint64
	Last   uint64
	Reason AccessReason
}

// Map resolves physical addresses to their attribute set and owns the
// memory-mapped-register bank. A Map is mutated only during hart
// configuration; instruction execution only reads it, guarded by a
// reader/writer lock so a hart may reconfigure peripherals between
// instructions without racing the vector memory engine's own reads (which
// take the read lock via PmaFor/ReadMMR/WriteMMR).
type Map struct {
	mu      sync.RWMutex
	regions [MaxRegions]region
	memSize uint64

	mmr MMRBank

	defaultPma  Pma
	noAccessPma Pma

	traceEnabled bool
	trace        []Access
	reason       AccessReason

	log *log.Logger
}

// NewMap creates a Map governing memSize bytes of ordinary memory.
// Addresses at or beyond memSize resolve to the no-access Pma unless a
// region says otherwise.
func NewMap(memSize uint64) *Map {
	m := &Map{
		memSize:     memSize,
		defaultPma:  DefaultPma,
		noAccessPma: NoAccess,
		log:         log.DefaultLogger(),
	}
	m.mmr.log = m.log

	return m
}

// WithLogger attaches a logger used for region/MMR configuration events.
func (m *Map) WithLogger(l *log.Logger) *Map {
	m.log = l
	m.mmr.log = l

	return m
}

// DefineRegion installs or replaces the region at index, spanning
// [first, last] inclusive. It returns false if index is out of range or
// first > last.
func (m *Map) DefineRegion(index int, first, last uint64, attr Pma) bool {
	if index < 0 || index >= MaxRegions || first > last {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.regions[index] = region{first: first, last: last, attr: attr, valid: true}
	m.log.Debug("pma region defined",
		"INDEX", index, "FIRST", log.String("first", hexString(first)),
		"LAST", log.String("last", hexString(last)), "ATTR", attr)

	return true
}

// InvalidateRegion disables matching for the region at index.
func (m *Map) InvalidateRegion(index int) bool {
	if index < 0 || index >= MaxRegions {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.regions[index].valid = false

	return true
}

// SetDefault replaces the attribute set used for addresses inside the
// memory range but not covered by any region.
func (m *Map) SetDefault(p Pma) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPma = p
}

// EnableDefault ORs attributes into the default Pma.
func (m *Map) EnableDefault(a Attrib) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPma = m.defaultPma.Enable(a)
}

// ClearDefault resets the default Pma to no access.
func (m *Map) ClearDefault() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPma = NoAccess
}

// SetMisalignedDataOK toggles MisalOk on both the default and no-access
// Pmas, mirroring enableMisalignedData in the original PmaManager.
func (m *Map) SetMisalignedDataOK(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ok {
		m.defaultPma = m.defaultPma.Enable(MisalOk)
		m.noAccessPma = m.noAccessPma.Enable(MisalOk)
	} else {
		m.defaultPma = m.defaultPma.Disable(MisalOk)
		m.noAccessPma = m.noAccessPma.Disable(MisalOk)
	}
}

// EnableTrace turns PMA resolution tracing on or off.
func (m *Map) EnableTrace(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.traceEnabled = on
}

// SetAccessReason tags subsequent PmaFor calls for tracing, distinguishing
// instruction fetch from load/store the way the original PmaManager does.
func (m *Map) SetAccessReason(r AccessReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reason = r
}

// LastTrace returns the accumulated trace entries recorded since the last
// ClearTrace.
func (m *Map) LastTrace() []Access {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Access, len(m.trace))
	copy(out, m.trace)

	return out
}

// ClearTrace discards accumulated trace entries.
func (m *Map) ClearTrace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = m.trace[:0]
}

// PmaFor resolves the physical memory attributes covering addr, per
// spec.md §4.1: word-align the address, return the lowest-indexed valid
// region containing it; if that region is MemMapped, defer to the MMR
// bank's attribute for the owning word or double-word; otherwise fall back
// to the default (or no-access, if beyond memSize) Pma.
func (m *Map) PmaFor(addr uint64) Pma {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pmaForLocked(addr)
}

func (m *Map) pmaForLocked(addr uint64) Pma {
	word := addr &^ 0x3

	for i := range m.regions {
		r := &m.regions[i]
		if !r.overlaps(word) {
			continue
		}

		if m.traceEnabled {
			m.trace = append(m.trace, Access{
				Index: i, Addr: word, First: r.first, Last: r.last, Reason: m.reason,
			})
		}

		if !r.attr.HasMemMappedReg() {
			return r.attr
		}

		return m.mmr.attrFor(word, r.attr)
	}

	if word >= m.memSize {
		return m.noAccessPma
	}

	return m.defaultPma
}

// MatchesMultiple reports whether addr is covered by more than one valid
// region; used by tests exercising testable property 8 (lowest-index-wins
// ordering).
func (m *Map) MatchesMultiple(addr uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	word := addr &^ 0x3
	hit := false

	for i := range m.regions {
		if m.regions[i].overlaps(word) {
			if hit {
				return true
			}

			hit = true
		}
	}

	return false
}

// OverlapsMMR reports whether [first, last] intersects any memory-mapped
// register range, restored from the original PmaManager's
// overlapsMemMappedRegs (SPEC_FULL.md §"SUPPLEMENTED FEATURES" item 3).
func (m *Map) OverlapsMMR(first, last uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.mmr.overlapsRange(first, last)
}

// MMR returns the map's memory-mapped-register bank. Callers configuring
// devices at hart setup time use this; the vector memory engine reads and
// writes through Map.ReadMMR/WriteMMR instead, which take the Map's lock.
func (m *Map) MMR() *MMRBank { return &m.mmr }

func hexString(v uint64) string {
	const digits = "0123456789abcdef"

	buf := make([]byte, 18)
	buf[0], buf[1] = '0', 'x'

	for i := 0; i < 16; i++ {
		shift := uint(60 - 4*i)
		buf[2+i] = digits[(v>>shift)&0xf]
	}

	return string(buf)
}
