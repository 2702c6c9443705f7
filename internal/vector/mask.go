package vector

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// MaskOp names one of the eight mask-logical opcodes.
type MaskOp int

const (
	MAnd MaskOp = iota
	MNand
	MOr
	MNor
	MXor
	MXnor
	MAndn
	MOrn
)

func maskOp(op MaskOp, a, b bool) bool {
	switch op {
	case MAnd:
		return a && b
	case MNand:
		return !(a && b)
	case MOr:
		return a || b
	case MNor:
		return !(a || b)
	case MXor:
		return a != b
	case MXnor:
		return a == b
	case MAndn:
		return a && !b
	case MOrn:
		return a || !b
	default:
		return false
	}
}

// RunMaskLogical computes vd.mask[i] = op(vs2.mask[i], vs1.mask[i]) for i
// in [0, elems). elems is VL, unless wholeMask is configured, in which case
// it is the register's full bit width (VLEN), per spec.md §4.5.
// Mask-logical ops must be unmasked.
func RunMaskLogical(f *vreg.File, op MaskOp, vd, vs2, vs1 int, elems int) {
	for i := 0; i < elems; i++ {
		a := f.ReadMaskBit(vs2, i)
		b := f.ReadMaskBit(vs1, i)
		f.WriteMaskBit(vd, i, maskOp(op, a, b))
	}
}

// RunCpop counts set mask bits in [vstart, vl) (vcpop.m).
func RunCpop(f *vreg.File, vreg_ int, vstart, vl uint64, masked bool, maskReg int) uint64 {
	var count uint64

	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		if f.ReadMaskBit(vreg_, ix) {
			count++
		}
	}

	return count
}

// RunFirst returns the index of the first set mask bit in [vstart, vl), or
// -1 if none is set (vfirst.m).
func RunFirst(f *vreg.File, vreg_ int, vstart, vl uint64, masked bool, maskReg int) int64 {
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		if f.ReadMaskBit(vreg_, ix) {
			return int64(ix)
		}
	}

	return -1
}

// MsXKind selects among vmsbf.m (set-before-first), vmsif.m
// (set-including-first), and vmsof.m (set-only-first).
type MsXKind int

const (
	MsBeforeFirst MsXKind = iota
	MsIncludingFirst
	MsOnlyFirst
)

// RunMaskSetBeforeIncludingOnlyFirst implements the vmsbf/vmsif/vmsof.m
// family, which require vstart == 0 (enforced by the caller).
func RunMaskSetBeforeIncludingOnlyFirst(f *vreg.File, kind MsXKind, vd, vs2 int, vl uint64, masked bool, maskReg int) {
	found := false

	for ix := 0; ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		bit := f.ReadMaskBit(vs2, ix)

		var out bool

		switch kind {
		case MsBeforeFirst:
			out = !found && !bit
		case MsIncludingFirst:
			out = !found
		case MsOnlyFirst:
			out = !found && bit
		}

		if bit {
			found = true
		}

		f.WriteMaskBit(vd, ix, out)
	}
}

// RunIota implements viota.m: vd[i] = running popcount of vs2.mask over
// [0, i), for active elements; requires vstart == 0.
func RunIota(f *vreg.File, sew vtype.SEW, vd, vs2 int, group int, vl uint64, masked bool, maskReg int) {
	var count uint64

	for ix := 0; ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		writeUnsignedSized(f, sew.Bytes(), vd, ix, group, count)

		if f.ReadMaskBit(vs2, ix) {
			count++
		}
	}
}

// RunVid implements vid.v: vd[i] = i over [vstart, vl); masked-off elements
// are skipped and left undisturbed.
func RunVid(f *vreg.File, sew vtype.SEW, vd int, group int, vstart, vl uint64, masked bool, maskReg int) {
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		writeUnsignedSized(f, sew.Bytes(), vd, ix, group, uint64(ix))
	}
}

func writeUnsignedSized(f *vreg.File, size int, reg, ix, group int, v uint64) {
	switch size {
	case 1:
		vreg.WriteElem[uint8](f, reg, ix, group, uint8(v))
	case 2:
		vreg.WriteElem[uint16](f, reg, ix, group, uint16(v))
	case 4:
		vreg.WriteElem[uint32](f, reg, ix, group, uint32(v))
	default:
		vreg.WriteElem[uint64](f, reg, ix, group, v)
	}
}
