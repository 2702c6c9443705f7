package vmem

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// MaxSegmentBytes is the spec cap on N*group*8 for a single segment
// access, independent of the 32-register (N*group) limit the legality
// checker enforces before the engine ever runs.
const MaxSegmentBytes = 64

// SegmentAddrFunc computes the base address of field 0 of element ix; the
// engine adds the per-field stride itself.
type SegmentAddrFunc func(ix int) uint64

// RunSegmentLoad loads N fields per element into register groups
// vd, vd+group, ..., vd+(n-1)*group, per spec.md §4.6. fieldStride is the
// byte distance between field k's address and field k+1's address at the
// same element (EEW/8 for unit-stride segments, the configured stride for
// strided segments, or a separately-supplied per-element increment for
// indexed segments, already folded into baseFor).
//
// When atomic, a fault partway through an element's fields rolls back
// every field write already made for that element, restoring the
// registers' pre-instruction contents captured in prior. Non-atomic mode
// commits each field as it succeeds, per invariant 7's segment-atomic
// carve-out.
func RunSegmentLoad(f *vreg.File, mem *Memory, l Loop, sew vtype.SEW, vd, n, group int, fieldStride int64, baseFor SegmentAddrFunc, atomic bool, prior *vreg.File) Result {
	size := sew.Bytes()

	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			for field := 0; field < n; field++ {
				fillInactive(f, sew, vd+field*group, ix, group, l.Policy)
			}

			continue
		}

		base := baseFor(ix)

		for field := 0; field < n; field++ {
			addr := uint64(int64(base) + int64(field)*fieldStride)

			if mem.Trigger != nil && mem.Trigger(addr, size, AccessLoad) {
				return Result{State: StateFaulted, VStart: uint64(ix), TriggerHit: true}
			}

			value, fault := mem.Read(addr, size)
			if fault {
				if atomic {
					rollbackSegment(f, prior, sew, vd, ix, group, field)
				}

				return Result{
					State:  StateFaulted,
					VStart: uint64(ix),
					Fault:  &Fault{Addr: addr, Index: ix, Kind: AccessLoad},
				}
			}

			writeElemSized(f, sew, vd+field*group, ix, group, value)
		}
	}

	return Result{State: StateCommitted, VStart: l.VL}
}

// RunSegmentStore mirrors RunSegmentLoad for stores. Atomic mode has no
// rollback to perform (memory writes that already landed cannot be
// unwound), so it only matters for loads; non-atomic and atomic stores
// behave identically here, a simplification recorded in DESIGN.md.
func RunSegmentStore(f *vreg.File, mem *Memory, l Loop, sew vtype.SEW, vs3, n, group int, fieldStride int64, baseFor SegmentAddrFunc) Result {
	size := sew.Bytes()

	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			continue
		}

		base := baseFor(ix)

		for field := 0; field < n; field++ {
			addr := uint64(int64(base) + int64(field)*fieldStride)

			if mem.Trigger != nil && mem.Trigger(addr, size, AccessStore) {
				return Result{State: StateFaulted, VStart: uint64(ix), TriggerHit: true}
			}

			value := readElemSized(f, sew, vs3+field*group, ix, group)

			if fault := mem.Write(addr, size, value); fault {
				return Result{
					State:  StateFaulted,
					VStart: uint64(ix),
					Fault:  &Fault{Addr: addr, Index: ix, Kind: AccessStore},
				}
			}
		}
	}

	return Result{State: StateCommitted, VStart: l.VL}
}

// rollbackSegment restores fields [0, faultedField) of element ix to their
// pre-instruction values from prior, implementing the atomic-segment
// all-or-nothing commit invariant.
func rollbackSegment(f, prior *vreg.File, sew vtype.SEW, vd, ix, group, faultedField int) {
	if prior == nil {
		return
	}

	for field := 0; field < faultedField; field++ {
		v := readElemSized(prior, sew, vd+field*group, ix, group)
		writeElemSized(f, sew, vd+field*group, ix, group, v)
	}
}
