package vector

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// VXRM selects the fixed-point rounding mode, per spec.md §4.5.
type VXRM int

const (
	RoundNearestUp VXRM = iota
	RoundNearestEven
	RoundDown
	RoundOdd
)

// round applies VXRM to a value before it is right-shifted by n bits,
// returning the rounded, shifted result. v is the full-precision value;
// n is how many low bits are discarded.
func round(rm VXRM, v int64, n uint) int64 {
	if n == 0 {
		return v
	}

	shifted := v >> n
	dropped := v & ((1 << n) - 1)
	half := int64(1) << (n - 1)

	switch rm {
	case RoundNearestUp:
		if dropped >= half {
			shifted++
		}
	case RoundNearestEven:
		if dropped > half || (dropped == half && shifted&1 != 0) {
			shifted++
		}
	case RoundDown:
		// truncate; nothing to add.
	case RoundOdd:
		if dropped != 0 {
			shifted |= 1
		}
	}

	return shifted
}

// FixedPointState carries the two CSR-like bits the fixed-point engine
// reads and writes: the rounding mode and the sticky saturation flag.
type FixedPointState struct {
	VXRM  VXRM
	VXSAT bool
}

func saturateSigned(v int64, bits uint) (int64, bool) {
	max := int64(1)<<(bits-1) - 1
	min := -(int64(1) << (bits - 1))

	if v > max {
		return max, true
	}

	if v < min {
		return min, true
	}

	return v, false
}

func saturateUnsigned(v int64, bits uint) (uint64, bool) {
	max := int64(1)<<bits - 1

	if v > max {
		return uint64(max), true
	}

	if v < 0 {
		return 0, true
	}

	return uint64(v), false
}

// RunSaddSub computes saturating add/sub for signed or unsigned elements of
// width sew, setting fp.VXSAT on overflow.
func RunSaddSub(f *vreg.File, sew vtype.SEW, signed, sub bool, fp *FixedPointState, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	bits := uint(sew)

	runRange(f, l, func(ix int) {
		var a, b int64

		if signed {
			a = int64(readSignedAt(f, sew, vs2, ix, group))
		} else {
			a = int64(readUnsignedAt(f, sew, vs2, ix, group))
		}

		if scalar != nil {
			b = int64(*scalar)
		} else if signed {
			b = int64(readSignedAt(f, sew, vs1, ix, group))
		} else {
			b = int64(readUnsignedAt(f, sew, vs1, ix, group))
		}

		var sum int64
		if sub {
			sum = a - b
		} else {
			sum = a + b
		}

		if signed {
			v, sat := saturateSigned(sum, bits)
			fp.VXSAT = fp.VXSAT || sat
			writeSigned(f, sew, vd, ix, group, v)
		} else {
			v, sat := saturateUnsigned(sum, bits)
			fp.VXSAT = fp.VXSAT || sat
			writeUnsigned(f, sew, vd, ix, group, v)
		}
	})
}

// RunAverageAddSub computes rounding average add/sub ((a+b) or (a-b),
// rounded right by 1 bit per VXRM), signed or unsigned.
func RunAverageAddSub(f *vreg.File, sew vtype.SEW, signed, sub bool, fp *FixedPointState, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	runRange(f, l, func(ix int) {
		var a, b int64

		if signed {
			a = int64(readSignedAt(f, sew, vs2, ix, group))
		} else {
			a = int64(readUnsignedAt(f, sew, vs2, ix, group))
		}

		if scalar != nil {
			b = int64(*scalar)
		} else if signed {
			b = int64(readSignedAt(f, sew, vs1, ix, group))
		} else {
			b = int64(readUnsignedAt(f, sew, vs1, ix, group))
		}

		var wide int64
		if sub {
			wide = a - b
		} else {
			wide = a + b
		}

		result := round(fp.VXRM, wide, 1)

		if signed {
			writeSigned(f, sew, vd, ix, group, result)
		} else {
			writeUnsigned(f, sew, vd, ix, group, uint64(result))
		}
	})
}

// RunSmul computes a fractional saturating multiply: (a*b) rounded right
// by (SEW-1) bits with VXRM, saturating the one case that overflows
// (INT_MIN * INT_MIN).
func RunSmul(f *vreg.File, sew vtype.SEW, fp *FixedPointState, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	bits := uint(sew)

	runRange(f, l, func(ix int) {
		a := int64(readSignedAt(f, sew, vs2, ix, group))

		var b int64
		if scalar != nil {
			b = int64(*scalar)
		} else {
			b = int64(readSignedAt(f, sew, vs1, ix, group))
		}

		wide := a * b
		result := round(fp.VXRM, wide, bits-1)

		v, sat := saturateSigned(result, bits)
		fp.VXSAT = fp.VXSAT || sat

		writeSigned(f, sew, vd, ix, group, v)
	})
}

// RunSsr computes rounded (not saturating) shift-right, logical or
// arithmetic, by a per-element or scalar shift amount.
func RunSsr(f *vreg.File, sew vtype.SEW, signed bool, fp *FixedPointState, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	bits := uint(sew)

	runRange(f, l, func(ix int) {
		var a int64
		if signed {
			a = int64(readSignedAt(f, sew, vs2, ix, group))
		} else {
			a = int64(readUnsignedAt(f, sew, vs2, ix, group))
		}

		var shamt uint64
		if scalar != nil {
			shamt = *scalar
		} else {
			shamt = readUnsignedAt(f, sew, vs1, ix, group)
		}

		shamt &= uint64(bits - 1)

		result := round(fp.VXRM, a, uint(shamt))

		if signed {
			writeSigned(f, sew, vd, ix, group, result)
		} else {
			writeUnsigned(f, sew, vd, ix, group, uint64(result))
		}
	})
}

// RunNclip narrows a 2*SEW source to a SEW destination, rounding by VXRM
// and saturating, signed or unsigned.
func RunNclip(f *vreg.File, dstSEW vtype.SEW, signed bool, fp *FixedPointState, vd, vs2, vs1 int, dstGroup, srcGroup int, l Loop, scalar *uint64) {
	bits := uint(dstSEW)
	srcSEW := dstSEW * 2

	runRange(f, l, func(ix int) {
		var a int64
		if signed {
			a = int64(readSignedAt(f, srcSEW, vs2, ix, srcGroup))
		} else {
			a = int64(readUnsignedAt(f, srcSEW, vs2, ix, srcGroup))
		}

		var shamt uint64
		if scalar != nil {
			shamt = *scalar
		} else {
			shamt = readUnsignedAt(f, dstSEW, vs1, ix, dstGroup)
		}

		shamt &= uint64(bits)

		rounded := round(fp.VXRM, a, uint(shamt))

		if signed {
			v, sat := saturateSigned(rounded, bits)
			fp.VXSAT = fp.VXSAT || sat
			writeSigned(f, dstSEW, vd, ix, dstGroup, v)
		} else {
			v, sat := saturateUnsigned(rounded, bits)
			fp.VXSAT = fp.VXSAT || sat
			writeUnsigned(f, dstSEW, vd, ix, dstGroup, v)
		}
	})
}

func readSignedAt(f *vreg.File, sew vtype.SEW, reg, ix, group int) int64 {
	switch sew {
	case vtype.SEW8:
		return int64(vreg.ReadElem[int8](f, reg, ix, group))
	case vtype.SEW16:
		return int64(vreg.ReadElem[int16](f, reg, ix, group))
	case vtype.SEW32:
		return int64(vreg.ReadElem[int32](f, reg, ix, group))
	default:
		return vreg.ReadElem[int64](f, reg, ix, group)
	}
}
