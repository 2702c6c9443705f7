package vmem

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// State names the stages of the per-element access flow spec.md §4.6
// describes as a coroutine (try/commit across an element loop). Modeling
// it as an explicit state machine, per spec.md's design notes, makes the
// fault-first truncation and the ordinary fault-and-persist-vstart paths
// two distinct terminal states instead of two exit points buried in a
// single function.
type State int

const (
	StatePre State = iota
	StatePerElement
	StateFaulted
	StateCommitted
)

// Loop is the element range and masking configuration shared by every
// access pattern's per-element flow.
type Loop struct {
	VStart, VL uint64
	Masked     bool
	MaskReg    int
	FaultFirst bool
	Policy     vreg.InactivePolicy
}

// Result reports how an access pattern's element loop terminated.
type Result struct {
	State      State
	VStart     uint64 // the vstart value to persist when State != StateCommitted; the truncated vl when Truncated
	Fault      *Fault
	TriggerHit bool
	Truncated  bool // fault-first load truncated vl instead of faulting
}

// AddrFunc computes the byte address of element ix for one access pattern.
type AddrFunc func(ix int) uint64

// RunLoad runs the shared per-element load flow for one register group:
// for each active index in [vstart, vl), resolve the address, check for a
// trigger hit, read memory, and write the element. A masked-off element is
// filled per the inactive policy and never faults. On the first real
// fault, State is StateFaulted and VStart records the faulting index,
// except for fault-first loads past element 0, which truncate instead.
func RunLoad(f *vreg.File, mem *Memory, l Loop, sew vtype.SEW, vd, group int, addrFor AddrFunc) Result {
	size := sew.Bytes()

	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			fillInactive(f, sew, vd, ix, group, l.Policy)
			continue
		}

		addr := addrFor(ix)

		if mem.Trigger != nil && mem.Trigger(addr, size, AccessLoad) {
			return Result{State: StateFaulted, VStart: uint64(ix), TriggerHit: true}
		}

		value, fault := mem.Read(addr, size)
		if fault {
			if l.FaultFirst && ix > 0 {
				return Result{State: StateCommitted, Truncated: true, VStart: uint64(ix)}
			}

			return Result{
				State:  StateFaulted,
				VStart: uint64(ix),
				Fault:  &Fault{Addr: addr, Index: ix, Kind: AccessLoad},
			}
		}

		writeElemSized(f, sew, vd, ix, group, value)
	}

	return Result{State: StateCommitted, VStart: l.VL}
}

// RunStore mirrors RunLoad with write_memory substituted for read_memory;
// masked-off elements contribute no memory side effect.
func RunStore(f *vreg.File, mem *Memory, l Loop, sew vtype.SEW, vs3, group int, addrFor AddrFunc) Result {
	size := sew.Bytes()

	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			continue
		}

		addr := addrFor(ix)

		if mem.Trigger != nil && mem.Trigger(addr, size, AccessStore) {
			return Result{State: StateFaulted, VStart: uint64(ix), TriggerHit: true}
		}

		value := readElemSized(f, sew, vs3, ix, group)

		if fault := mem.Write(addr, size, value); fault {
			return Result{
				State:  StateFaulted,
				VStart: uint64(ix),
				Fault:  &Fault{Addr: addr, Index: ix, Kind: AccessStore},
			}
		}
	}

	return Result{State: StateCommitted, VStart: l.VL}
}

// UnitStrideAddr returns the AddrFunc for addr = base + ix*EEW/8.
func UnitStrideAddr(base uint64, sew vtype.SEW) AddrFunc {
	size := uint64(sew.Bytes())
	return func(ix int) uint64 { return base + uint64(ix)*size }
}

// StridedAddr returns the AddrFunc for addr = base + ix*stride, stride
// being a signed byte offset that may be zero (broadcast).
func StridedAddr(base uint64, stride int64) AddrFunc {
	return func(ix int) uint64 { return uint64(int64(base) + int64(ix)*stride) }
}

// IndexedAddr returns the AddrFunc for addr = base + zext(index[ix]),
// reading the index register at its own EEW/EMUL, independent of the data
// element's width and group.
func IndexedAddr(f *vreg.File, base uint64, vIdx, idxEEW, idxGroup int) AddrFunc {
	return func(ix int) uint64 {
		return base + vreg.ReadIndexReg(f, vIdx, ix, idxEEW, idxGroup)
	}
}

// fillInactive writes the inactive-element fill for a masked-off
// destination: all-ones under the agnostic policy, or nothing under the
// undisturbed policy, at the element width sew specifies.
func fillInactive(f *vreg.File, sew vtype.SEW, reg, ix, group int, policy vreg.InactivePolicy) {
	if policy != vreg.PolicyAgnostic {
		return
	}

	switch sew {
	case vtype.SEW8:
		vreg.WriteElem[uint8](f, reg, ix, group, ^uint8(0))
	case vtype.SEW16:
		vreg.WriteElem[uint16](f, reg, ix, group, ^uint16(0))
	case vtype.SEW32:
		vreg.WriteElem[uint32](f, reg, ix, group, ^uint32(0))
	default:
		vreg.WriteElem[uint64](f, reg, ix, group, ^uint64(0))
	}
}

func writeElemSized(f *vreg.File, sew vtype.SEW, reg, ix, group int, v uint64) {
	switch sew {
	case vtype.SEW8:
		vreg.WriteElem[uint8](f, reg, ix, group, uint8(v))
	case vtype.SEW16:
		vreg.WriteElem[uint16](f, reg, ix, group, uint16(v))
	case vtype.SEW32:
		vreg.WriteElem[uint32](f, reg, ix, group, uint32(v))
	default:
		vreg.WriteElem[uint64](f, reg, ix, group, v)
	}
}

func readElemSized(f *vreg.File, sew vtype.SEW, reg, ix, group int) uint64 {
	switch sew {
	case vtype.SEW8:
		return uint64(vreg.ReadElem[uint8](f, reg, ix, group))
	case vtype.SEW16:
		return uint64(vreg.ReadElem[uint16](f, reg, ix, group))
	case vtype.SEW32:
		return uint64(vreg.ReadElem[uint32](f, reg, ix, group))
	default:
		return vreg.ReadElem[uint64](f, reg, ix, group)
	}
}
