package vector

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// RunAdc computes vd = vs2 + vs1 + carry-in, where carry-in is read from
// mask register maskReg at each element index. vadc/vsbc are unmasked-only
// (reserved in the masked encoding), per spec.md §4.5.
func RunAdc(f *vreg.File, sew vtype.SEW, vd, vs2, vs1, maskReg int, group int, vstart, vl uint64, scalar *uint64) {
	for ix := int(vstart); ix < int(vl); ix++ {
		carry := f.ReadMaskBit(maskReg, ix)
		a := readUnsignedAt(f, sew, vs2, ix, group)

		var b uint64
		if scalar != nil {
			b = *scalar
		} else {
			b = readUnsignedAt(f, sew, vs1, ix, group)
		}

		sum := a + b
		if carry {
			sum++
		}

		writeUnsigned(f, sew, vd, ix, group, sum)
	}
}

// RunSbc computes vd = vs2 - vs1 - borrow-in.
func RunSbc(f *vreg.File, sew vtype.SEW, vd, vs2, vs1, maskReg int, group int, vstart, vl uint64, scalar *uint64) {
	for ix := int(vstart); ix < int(vl); ix++ {
		borrow := f.ReadMaskBit(maskReg, ix)
		a := readUnsignedAt(f, sew, vs2, ix, group)

		var b uint64
		if scalar != nil {
			b = *scalar
		} else {
			b = readUnsignedAt(f, sew, vs1, ix, group)
		}

		diff := a - b
		if borrow {
			diff--
		}

		writeUnsigned(f, sew, vd, ix, group, diff)
	}
}

// RunMadc computes the carry-out mask of vs2 + vs1 (+carry-in when
// useCarryIn), writing one bit per element into mask register vd.
func RunMadc(f *vreg.File, sew vtype.SEW, vd, vs2, vs1, maskReg int, group int, vstart, vl uint64, scalar *uint64, useCarryIn bool) {
	width := uint(sew)

	for ix := int(vstart); ix < int(vl); ix++ {
		a := readUnsignedAt(f, sew, vs2, ix, group)

		var b uint64
		if scalar != nil {
			b = *scalar
		} else {
			b = readUnsignedAt(f, sew, vs1, ix, group)
		}

		var carryIn uint64
		if useCarryIn && f.ReadMaskBit(maskReg, ix) {
			carryIn = 1
		}

		sum := a + b + carryIn
		carryOut := (sum>>width)&1 != 0 || (width == 64 && sum < a)

		f.WriteMaskBit(vd, ix, carryOut)
	}
}

// RunMsbc is RunMadc's subtract/borrow counterpart.
func RunMsbc(f *vreg.File, sew vtype.SEW, vd, vs2, vs1, maskReg int, group int, vstart, vl uint64, scalar *uint64, useBorrowIn bool) {
	for ix := int(vstart); ix < int(vl); ix++ {
		a := readUnsignedAt(f, sew, vs2, ix, group)

		var b uint64
		if scalar != nil {
			b = *scalar
		} else {
			b = readUnsignedAt(f, sew, vs1, ix, group)
		}

		var borrowIn uint64
		if useBorrowIn && f.ReadMaskBit(maskReg, ix) {
			borrowIn = 1
		}

		borrowOut := a < b+borrowIn || (b == ^uint64(0) && borrowIn == 1)

		f.WriteMaskBit(vd, ix, borrowOut)
	}
}

func readUnsignedAt(f *vreg.File, sew vtype.SEW, reg, ix, group int) uint64 {
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
