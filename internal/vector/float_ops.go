package vector

import (
	"math"

	"github.com/rvvsim/rvvsim/internal/vreg"
)

// FloatWidth is the three floating-point element widths spec.md §4.5
// names: Zvfh half, single, and double. It is deliberately distinct from
// vtype.SEW, since the same SEW value has both an integer and a
// floating-point interpretation.
type FloatWidth int

const (
	FloatHalf FloatWidth = iota
	FloatSingle
	FloatDouble
)

// FCSRFlags accumulates the IEEE exception flags the engine ORs into fcsr
// at instruction completion, per spec.md §4.5 and §7.
type FCSRFlags struct {
	Invalid, DivByZero, Overflow, Underflow, Inexact bool
}

func (fl *FCSRFlags) observe(v float64) {
	if math.IsNaN(v) {
		fl.Invalid = true
	}

	if math.IsInf(v, 0) {
		fl.Overflow = true
	}
}

// readFloat loads the element at ix as a float64, widening half/single
// storage. Half precision is decoded from its IEEE 754-2008 binary16
// bit pattern; the pack carries no half-float library, so this is
// implemented directly against the standard library (see DESIGN.md).
func readFloat(f *vreg.File, w FloatWidth, reg, ix, group int) float64 {
	switch w {
	case FloatHalf:
		bits := vreg.ReadElem[uint16](f, reg, ix, group)
		return float64(decodeHalf(bits))
	case FloatSingle:
		bits := vreg.ReadElem[uint32](f, reg, ix, group)
		return float64(math.Float32frombits(bits))
	default:
		bits := vreg.ReadElem[uint64](f, reg, ix, group)
		return math.Float64frombits(bits)
	}
}

func writeFloat(f *vreg.File, w FloatWidth, reg, ix, group int, v float64) {
	switch w {
	case FloatHalf:
		vreg.WriteElem[uint16](f, reg, ix, group, encodeHalf(float32(v)))
	case FloatSingle:
		vreg.WriteElem[uint32](f, reg, ix, group, math.Float32bits(float32(v)))
	default:
		vreg.WriteElem[uint64](f, reg, ix, group, math.Float64bits(v))
	}
}

// decodeHalf converts an IEEE 754 binary16 bit pattern to float32.
func decodeHalf(bits uint16) float32 {
	sign := uint32(bits>>15) & 1
	exp := uint32(bits>>10) & 0x1f
	frac := uint32(bits) & 0x3ff

	var out uint32

	switch {
	case exp == 0 && frac == 0:
		out = sign << 31
	case exp == 0x1f:
		out = sign<<31 | 0xff<<23 | frac<<13
	case exp == 0:
		// subnormal: normalize.
		e := 0
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}

		frac &= 0x3ff
		out = sign<<31 | uint32(127+e-15+1)<<23 | frac<<13
	default:
		out = sign<<31 | (exp-15+127)<<23 | frac<<13
	}

	return math.Float32frombits(out)
}

// encodeHalf converts a float32 to an IEEE 754 binary16 bit pattern by
// truncating the mantissa (no round-to-nearest). Values too large for
// binary16 become infinity; values below the normal binary16 range,
// including float32 subnormals, become a signed zero (no binary16
// subnormals are produced).
func encodeHalf(v float32) uint16 {
	bits := math.Float32bits(v)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	frac := bits & 0x7fffff

	switch {
	case exp == 0xff:
		if frac != 0 {
			return sign | 0x7e00 // qNaN
		}

		return sign | 0x7c00 // infinity
	case exp == 0:
		return sign // zero/subnormal flushed to zero
	}

	newExp := exp - 127 + 15
	if newExp >= 0x1f {
		return sign | 0x7c00 // overflow to infinity
	}

	if newExp <= 0 {
		return sign // underflow to zero
	}

	return sign | uint16(newExp)<<10 | uint16(frac>>13)
}

// FloatBinary is the shape of a two-operand IEEE floating-point op.
type FloatBinary func(a, b float64) float64

// RunFloatBinary runs the element loop for a two-operand float op,
// accumulating exception flags and applying sNaN-to-qNaN per spec.md §4.5.
func RunFloatBinary(f *vreg.File, w FloatWidth, fl *FCSRFlags, op FloatBinary, vd, vs2, vs1 int, group int, l Loop, scalar *float64) {
	runRange(f, l, func(ix int) {
		a := canonicalizeNaN(readFloat(f, w, vs2, ix, group))

		var b float64
		if scalar != nil {
			b = canonicalizeNaN(*scalar)
		} else {
			b = canonicalizeNaN(readFloat(f, w, vs1, ix, group))
		}

		result := op(a, b)
		fl.observe(result)

		writeFloat(f, w, vd, ix, group, result)
	})
}

// canonicalizeNaN replaces any NaN bit pattern with the canonical quiet
// NaN, modeling the sNaN -> qNaN promotion spec.md requires without
// tracking the signaling bit explicitly (Go's math package does not
// expose it).
func canonicalizeNaN(v float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}

	return v
}

func FAdd(a, b float64) float64  { return a + b }
func FSub(a, b float64) float64  { return a - b }
func FRSub(a, b float64) float64 { return b - a }
func FMul(a, b float64) float64  { return a * b }
func FDiv(a, b float64) float64  { return a / b }
func FRDiv(a, b float64) float64 { return b / a }

func FMin(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}

	if math.IsNaN(b) {
		return a
	}

	return math.Min(a, b)
}

func FMax(a, b float64) float64 {
	if math.IsNaN(a) {
		return b
	}

	if math.IsNaN(b) {
		return a
	}

	return math.Max(a, b)
}

// FMASign picks one of the four fused-multiply-add sign variants:
// vfmacc (+a*b+c), vfnmacc (-a*b-c), vfmsac (+a*b-c), vfnmsac (-a*b+c).
type FMASign struct{ NegMul, NegAdd bool }

// RunFloatFMA runs the fused multiply-add element loop. vdIsMultiplicand
// selects the vfmadd/vfnmadd/vfmsub/vfnmsub family, where the destination
// register and vs1 (or the scalar) are the multiplicands and vs2 supplies
// the addend, instead of the vfmacc/vfnmacc/vfmsac/vfnmsac family where the
// destination supplies the addend.
func RunFloatFMA(f *vreg.File, w FloatWidth, fl *FCSRFlags, sign FMASign, vdIsMultiplicand bool, vd, vs2, vs1 int, group int, l Loop, scalar *float64) {
	runRange(f, l, func(ix int) {
		vs2Val := readFloat(f, w, vs2, ix, group)

		var vs1Val float64
		if scalar != nil {
			vs1Val = *scalar
		} else {
			vs1Val = readFloat(f, w, vs1, ix, group)
		}

		vdVal := readFloat(f, w, vd, ix, group)

		var prod, addend float64
		if vdIsMultiplicand {
			prod = vdVal * vs1Val
			addend = vs2Val
		} else {
			prod = vs2Val * vs1Val
			addend = vdVal
		}

		if sign.NegMul {
			prod = -prod
		}

		if sign.NegAdd {
			addend = -addend
		}

		result := prod + addend
		fl.observe(result)

		writeFloat(f, w, vd, ix, group, result)
	})
}

// RunFloatUnary runs a one-operand float element op (sqrt, classify via
// caller, sign-injection handled separately).
func RunFloatUnary(f *vreg.File, w FloatWidth, fl *FCSRFlags, op func(float64) float64, vd, vs2 int, group int, l Loop) {
	runRange(f, l, func(ix int) {
		a := readFloat(f, w, vs2, ix, group)
		result := op(a)
		fl.observe(result)

		writeFloat(f, w, vd, ix, group, result)
	})
}

func FSqrt(a float64) float64 { return math.Sqrt(a) }

// FClass implements vfclass.v's ten-bit classification mask.
func FClass(a float64) uint64 {
	switch {
	case math.IsInf(a, -1):
		return 1 << 0
	case a < 0 && !isSubnormal(a):
		return 1 << 1
	case a < 0 && isSubnormal(a):
		return 1 << 2
	case a == 0 && math.Signbit(a):
		return 1 << 3
	case a == 0:
		return 1 << 4
	case a > 0 && isSubnormal(a):
		return 1 << 5
	case a > 0 && !isSubnormal(a) && !math.IsInf(a, 1):
		return 1 << 6
	case math.IsInf(a, 1):
		return 1 << 7
	case math.IsNaN(a):
		return 1 << 9 // treat all NaNs as quiet; signaling bit not modeled
	default:
		return 0
	}
}

func isSubnormal(v float64) bool {
	return v != 0 && math.Abs(v) < 2.2250738585072014e-308
}

// Sign-injection variants.
func FSgnj(a, b float64) float64  { return math.Copysign(a, b) }
func FSgnjn(a, b float64) float64 { return math.Copysign(a, -b) }
func FSgnjx(a, b float64) float64 {
	if math.Signbit(a) == math.Signbit(b) {
		return math.Copysign(a, 1)
	}

	return math.Copysign(a, -1)
}

// FRec7 and FRsqrt7 approximate the reciprocal and reciprocal-square-root
// instructions using their mathematical definitions rather than the
// 7-bit lookup tables the hardware instructions are specified against;
// this keeps the quotient correctly rounded instead of table-approximate,
// a simplification recorded in DESIGN.md.
func FRec7(a float64) float64   { return 1 / a }
func FRsqrt7(a float64) float64 { return 1 / math.Sqrt(a) }

// Compare returns a FloatBinary-shaped predicate as a mask-writing loop.
type FloatCompare func(a, b float64) bool

// RunFloatCompare writes one mask bit per element into vd (a mask
// register), comparing vs2 against vs1 or a scalar.
func RunFloatCompare(f *vreg.File, w FloatWidth, vd, vs2, vs1 int, group int, l Loop, scalar *float64, cmp FloatCompare) {
	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			continue
		}

		a := readFloat(f, w, vs2, ix, group)

		var b float64
		if scalar != nil {
			b = *scalar
		} else {
			b = readFloat(f, w, vs1, ix, group)
		}

		f.WriteMaskBit(vd, ix, cmp(a, b))
	}
}

func FEq(a, b float64) bool { return a == b }
func FNe(a, b float64) bool { return a != b }
func FLt(a, b float64) bool { return a < b }
func FLe(a, b float64) bool { return a <= b }
func FGt(a, b float64) bool { return a > b }
func FGe(a, b float64) bool { return a >= b }
