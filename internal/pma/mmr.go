package pma

import (
	"fmt"
	"sort"

	"github.com/rvvsim/rvvsim/internal/device"
	"github.com/rvvsim/rvvsim/internal/log"
)

// entry is a plain value-backed memory-mapped register: reads/writes are
// applied directly to a stored value, filtered through writeMask.
type entry struct {
	value     uint64
	writeMask uint64
	size      int // 4 or 8
	attr      Pma
}

// binding associates a claimed address range with a device.Device.
type binding struct {
	first, last uint64
	dev         device.Device
}

// MMRBank is the key-value store of memory-mapped registers described in
// spec.md §4.1. Plain registers (defined with DefineMMR) are backed by an
// in-bank value and write-mask; devices (bound with BindDevice) own their
// state entirely and are dispatched to directly, matching the "narrow
// capability" contract in spec.md §4.2.
type MMRBank struct {
	entries  map[uint64]*entry
	bindings []binding

	log *log.Logger
}

// DefineMMR installs a plain value-backed register at addr. It fails if
// size is not 4 or 8, or addr is not aligned to size.
func (b *MMRBank) DefineMMR(addr, mask uint64, size int, attr Pma) bool {
	if size != 4 && size != 8 {
		return false
	}

	if addr&uint64(size-1) != 0 {
		return false
	}

	if b.entries == nil {
		b.entries = make(map[uint64]*entry)
	}

	b.entries[addr] = &entry{writeMask: mask, size: size, attr: attr}

	if b.log != nil {
		b.log.Debug("mmr defined", "ADDR", log.String("addr", hexString(addr)), "SIZE", size)
	}

	return true
}

// BindDevice claims [first, last] for dev. Addresses in the range bypass
// the value/mask storage entirely and are read/written through dev.
func (b *MMRBank) BindDevice(first, last uint64, dev device.Device) {
	b.bindings = append(b.bindings, binding{first: first, last: last, dev: dev})

	sort.Slice(b.bindings, func(i, j int) bool {
		return b.bindings[i].first < b.bindings[j].first
	})

	if b.log != nil {
		b.log.Debug("device bound", "NAME", dev.Name(),
			"FIRST", log.String("first", hexString(first)),
			"LAST", log.String("last", hexString(last)))
	}
}

func (b *MMRBank) deviceFor(addr uint64) device.Device {
	for _, bn := range b.bindings {
		if addr >= bn.first && addr <= bn.last {
			return bn.dev
		}
	}

	return nil
}

func (b *MMRBank) overlapsRange(first, last uint64) bool {
	for _, bn := range b.bindings {
		if last >= bn.first && first <= bn.last {
			return true
		}
	}

	for addr, e := range b.entries {
		entLast := addr + uint64(e.size) - 1
		if last >= addr && first <= entLast {
			return true
		}
	}

	return false
}

// attrFor returns the Pma that should be reported for the word- or
// double-word-aligned address word, which a region has already tagged
// MemMapped. fallback is the region's own attribute, returned unchanged
// when no MMR or device claims word.
func (b *MMRBank) attrFor(word uint64, fallback Pma) Pma {
	if b.deviceFor(word) != nil {
		return fallback
	}

	if e, ok := b.entries[word]; ok {
		return e.attr
	}

	dword := word &^ 0x7
	if e, ok := b.entries[dword]; ok {
		return e.attr
	}

	return fallback
}

// Read performs a width-byte (1, 2, 4, or 8) read at addr, decomposing
// across the owning word or double-word register as described in spec.md
// §4.1 and §6: an 8-byte read over a pair of 4-byte registers stitches the
// upper lane from addr+4.
func (b *MMRBank) Read(addr uint64, width int) (uint64, bool) {
	if dev := b.deviceFor(addr); dev != nil {
		v, err := dev.Read(addr, width)
		return v, err == nil
	}

	word := addr &^ 0x3

	// An 8-byte read spanning two 4-byte registers: addr and addr+4.
	if width == 8 {
		lo, okLo := b.entries[word]
		hi, okHi := b.entries[word+4]

		if okLo && okHi && lo.size == 4 && hi.size == 4 {
			return uint64(lo.value&0xffffffff) | (hi.value&0xffffffff)<<32, true
		}
	}

	if e, ok := b.entries[word]; ok {
		return b.readFromEntry(e, word, addr, width)
	}

	dword := addr &^ 0x7
	if e, ok := b.entries[dword]; ok {
		return b.readFromEntry(e, dword, addr, width)
	}

	return 0, false
}

func (b *MMRBank) readFromEntry(e *entry, base, addr uint64, width int) (uint64, bool) {
	offset := (addr - base) * 8
	shifted := e.value >> offset

	return shifted & widthMask(width), true
}

// Write performs a width-byte write at addr, applying the owning
// register's write-mask to only the targeted byte lane.
func (b *MMRBank) Write(addr uint64, width int, value uint64) bool {
	if dev := b.deviceFor(addr); dev != nil {
		return dev.Write(addr, width, value) == nil
	}

	word := addr &^ 0x3
	if e, ok := b.entries[word]; ok {
		b.writeEntry(e, word, addr, width, value, true)
		return true
	}

	dword := addr &^ 0x7
	if e, ok := b.entries[dword]; ok {
		b.writeEntry(e, dword, addr, width, value, true)
		return true
	}

	return false
}

// Poke writes addr bypassing the write-mask, for debugger/test use
// (SPEC_FULL.md §"SUPPLEMENTED FEATURES" item 5).
func (b *MMRBank) Poke(addr uint64, width int, value uint64) bool {
	word := addr &^ 0x3
	if e, ok := b.entries[word]; ok {
		b.writeEntry(e, word, addr, width, value, false)
		return true
	}

	dword := addr &^ 0x7
	if e, ok := b.entries[dword]; ok {
		b.writeEntry(e, dword, addr, width, value, false)
		return true
	}

	return false
}

func (b *MMRBank) writeEntry(e *entry, base, addr uint64, width int, value uint64, masked bool) {
	offset := (addr - base) * 8
	byteMask := widthMask(width) << offset
	shiftedValue := (value & widthMask(width)) << offset

	if masked {
		regMask := e.writeMask & byteMask
		e.value = (e.value &^ byteMask &^ regMask) | (shiftedValue & regMask)
	} else {
		e.value = (e.value &^ byteMask) | shiftedValue
	}
}

func widthMask(width int) uint64 {
	switch width {
	case 1:
		return 0xff
	case 2:
		return 0xffff
	case 4:
		return 0xffffffff
	case 8:
		return ^uint64(0)
	default:
		return 0
	}
}

// ErrBadMMRConfig is returned by configuration helpers that wrap DefineMMR
// with a richer error than a bare bool.
var ErrBadMMRConfig = fmt.Errorf("pma: invalid mmr configuration")
