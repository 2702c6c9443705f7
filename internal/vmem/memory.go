// Package vmem implements the vector memory engine: the shared per-element
// load/store flow spec.md §4.6 describes, specialized for unit-stride,
// strided, indexed, segment, whole-register, and mask access patterns.
//
// It is grounded on smoynes-elsie's internal/vm/mem.go: a Memory
// controller that dispatches each access either to a flat backing buffer
// or, above a boundary address, to memory-mapped device registers. Here
// the boundary test is the PMA map's MemMapped attribute rather than a
// fixed address range, and the device dispatch itself lives in package
// pma's MMRBank; vmem only decides RAM vs. MMR and enforces the
// permission/misalignment checks the original's privileged()/MemoryError
// pair perform for the LC-3's two-ring model.
package vmem

import (
	"encoding/binary"
	"fmt"

	"github.com/rvvsim/rvvsim/internal/pma"
)

// AccessKind distinguishes a load from a store for fault reporting and PMA
// permission checks.
type AccessKind int

const (
	AccessLoad AccessKind = iota
	AccessStore
)

func (k AccessKind) String() string {
	if k == AccessStore {
		return "store"
	}

	return "load"
}

// Fault describes one element access that failed, mirroring the
// MemoryError pattern: a concrete error value carrying the address needed
// to populate mtval/htval.
type Fault struct {
	Addr  uint64
	Index int
	Kind  AccessKind
}

func (f *Fault) Error() string {
	return fmt.Sprintf("vmem: %s access fault at %#x (element %d)", f.Kind, f.Addr, f.Index)
}

// TriggerFunc reports whether a debug trigger fires for this access,
// before any memory side effect occurs. A nil TriggerFunc never fires.
type TriggerFunc func(addr uint64, size int, kind AccessKind) bool

// Memory is the physical memory backing every vector load and store: a
// flat RAM buffer for ordinary addresses, and the PMA map's MMR bank for
// addresses a region tags MemMapped. Address translation (virtual to
// physical) is out of scope here; addr is already a physical address, and
// the PMA map is the sole source of permission and misalignment rules.
type Memory struct {
	Pma     *pma.Map
	Trigger TriggerFunc

	ram     []byte
	ramBase uint64
}

// NewMemory wraps ram (backing len(ram) bytes starting at ramBase) with the
// PMA checks every vector access must satisfy.
func NewMemory(m *pma.Map, ramBase uint64, ram []byte) *Memory {
	return &Memory{Pma: m, ram: ram, ramBase: ramBase}
}

// WithTrigger installs the debug-trigger callback.
func (mem *Memory) WithTrigger(fn TriggerFunc) *Memory {
	mem.Trigger = fn
	return mem
}

// Read performs a width-byte (1, 2, 4, or 8) read at addr. fault is true
// when the PMA forbids the read, the access is misaligned and the PMA
// does not tolerate it, or an MMR read misses.
func (mem *Memory) Read(addr uint64, width int) (value uint64, fault bool) {
	p := mem.Pma.PmaFor(addr)

	if !p.IsRead() {
		return 0, true
	}

	if addr%uint64(width) != 0 && !p.IsMisalignedOk() {
		return 0, true
	}

	if p.HasMemMappedReg() {
		v, ok := mem.Pma.ReadMMR(addr, width)
		return v, !ok
	}

	return mem.readRAM(addr, width), false
}

// Write performs a width-byte write at addr. fault has the same meaning
// as in Read.
func (mem *Memory) Write(addr uint64, width int, value uint64) (fault bool) {
	p := mem.Pma.PmaFor(addr)

	if !p.IsWrite() {
		return true
	}

	if addr%uint64(width) != 0 && !p.IsMisalignedOk() {
		return true
	}

	if p.HasMemMappedReg() {
		return !mem.Pma.WriteMMR(addr, width, value)
	}

	mem.writeRAM(addr, width, value)

	return false
}

// ReadByte and WriteByte support the mask load/store pattern, which always
// transfers whole bytes regardless of SEW.
func (mem *Memory) ReadByte(addr uint64) (byte, bool) {
	v, fault := mem.Read(addr, 1)
	return byte(v), fault
}

func (mem *Memory) WriteByte(addr uint64, v byte) bool {
	return mem.Write(addr, 1, uint64(v))
}

func (mem *Memory) readRAM(addr uint64, width int) uint64 {
	off := addr - mem.ramBase
	buf := mem.ram[off : off+uint64(width)]

	switch width {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf))
	default:
		return binary.LittleEndian.Uint64(buf)
	}
}

func (mem *Memory) writeRAM(addr uint64, width int, value uint64) {
	off := addr - mem.ramBase
	buf := mem.ram[off : off+uint64(width)]

	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	default:
		binary.LittleEndian.PutUint64(buf, value)
	}
}
