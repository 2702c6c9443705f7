// Package pma implements the physical-memory-attribute map and the
// memory-mapped-register bank that backs every vector load and store.
//
// The design is grounded on TT_IOMMU::PmaManager (see original_source in the
// retrieval pack): one flat table of up to 128 ordered regions, a default
// attribute for unclaimed addresses, and a separate table of memory-mapped
// registers keyed by aligned address. The vector memory engine (package
// vmem) consults a *Map snapshot for every element access; it owns no
// pointer back into the map, so there is no cycle between the two packages.
package pma

import (
	"fmt"

	"github.com/rvvsim/rvvsim/internal/log"
)

// Attrib is a bitset of the physical memory attributes a Region or Pma
// carries. Read, Write and Exec use the same low bits as the PMACFG CSR;
// the other attributes have their own bit positions, and UnpackPmacfg maps
// each PMACFG field onto them one by one.
type Attrib uint32

const (
	None       Attrib = 0
	Read       Attrib = 1 << 0
	Write      Attrib = 1 << 1
	Exec       Attrib = 1 << 2
	Idempotent Attrib = 1 << 3
	AmoOther   Attrib = 1 << 4 // amo add/min/max
	AmoSwap    Attrib = 1 << 5
	AmoLogical Attrib = 1 << 6
	MemMapped  Attrib = 1 << 9
	Rsrv       Attrib = 1 << 10
	Io         Attrib = 1 << 11
	Cacheable  Attrib = 1 << 12
	MisalOk    Attrib = 1 << 13

	MisalAccFault Attrib = 1 << 14

	Mapped  = Exec | Read | Write
	AmoAny  = AmoSwap | AmoOther | AmoLogical
	Default = Read | Write | Exec | Idempotent | AmoAny | Rsrv | MisalOk
)

//go:generate stringer -type=Attrib

// Pma is the attribute set associated with a word-aligned section of the
// address space.
type Pma struct {
	attrib Attrib
}

// NewPma builds a Pma from the given attributes.
func NewPma(a Attrib) Pma { return Pma{attrib: a} }

// NoAccess is the attribute set returned for addresses outside of any
// region and outside of installed memory.
var NoAccess = Pma{attrib: None}

// DefaultPma is the attribute set spec.md §4.1 calls "the default PMA":
// readable, writable, executable, atomic, reservable, idempotent, and
// misalignment-tolerant.
var DefaultPma = Pma{attrib: Default}

func (p Pma) Has(a Attrib) bool { return p.attrib&a == a }
func (p Pma) Any(a Attrib) bool { return p.attrib&a != 0 }

func (p Pma) IsMapped() bool       { return p.Any(Mapped) }
func (p Pma) IsRead() bool         { return p.Has(Read) }
func (p Pma) IsWrite() bool        { return p.Has(Write) }
func (p Pma) IsExec() bool         { return p.Has(Exec) }
func (p Pma) IsIdempotent() bool   { return p.Has(Idempotent) }
func (p Pma) IsCacheable() bool    { return p.Has(Cacheable) }
func (p Pma) IsAmo() bool          { return p.Any(AmoAny) }
func (p Pma) IsRsrv() bool         { return p.Has(Rsrv) }
func (p Pma) IsIo() bool           { return p.Has(Io) }
func (p Pma) HasMemMappedReg() bool { return p.Has(MemMapped) }
func (p Pma) IsMisalignedOk() bool {
	return p.Has(MisalOk) && !p.Has(MisalAccFault)
}
func (p Pma) MisalFaults() bool { return p.Has(MisalAccFault) }

// Enable returns a copy of p with the given attributes set.
func (p Pma) Enable(a Attrib) Pma { p.attrib |= a; return p }

// Disable returns a copy of p with the given attributes cleared.
func (p Pma) Disable(a Attrib) Pma { p.attrib &^= a; return p }

func (p Pma) Attributes() Attrib { return p.attrib }

func (p Pma) String() string {
	return fmt.Sprintf("PMA(%#x)", uint32(p.attrib))
}

func (p Pma) LogValue() log.Value {
	return log.StringValue(p.String())
}

// UnpackPmacfg decodes a 64-bit PMACFG CSR value per spec.md §4.1 and §6:
//
//	bits 2:0   R/W/X
//	bits 4:3   memory-type (0 main, nonzero => IO)
//	bits 6:5   AMO class (1 swap, 2 logical, 3 arith/other)
//	bit  7     cacheable
//	bits 55:12 base address (low/high bits cleared/set by size)
//	bits 63:58 log2(size); 0 means invalid
//
// It returns whether the entry is valid, the first and last address of the
// region, and the decoded Pma.
func UnpackPmacfg(value uint64) (valid bool, first, last uint64, attr Pma) {
	log2size := value >> 58 & 0x3f
	if log2size == 0 {
		return false, 0, 0, Pma{}
	}

	if log2size < 12 {
		log2size = 12 // minimum 4 KiB region
	}

	n := uint(log2size)
	base := value & 0x00ff_ffff_ffff_f000 // bits 55:12

	first = base &^ ((uint64(1) << n) - 1)
	last = base | ((uint64(1) << n) - 1)

	var a Attrib

	if value&0x1 != 0 {
		a |= Read
	}

	if value&0x2 != 0 {
		a |= Write
	}

	if value&0x4 != 0 {
		a |= Exec
	}

	memType := value >> 3 & 0x3
	if memType != 0 {
		a |= Io
		a |= MisalAccFault
	} else {
		a |= MisalOk
	}

	switch value >> 5 & 0x3 {
	case 1:
		a |= AmoSwap
	case 2:
		a |= AmoLogical
	case 3:
		a |= AmoOther
	}

	if value>>7&0x1 != 0 {
		a |= Cacheable
	}

	return true, first, last, Pma{attrib: a}
}
