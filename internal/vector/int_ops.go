package vector

import (
	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// Signed and Unsigned narrow vreg.Element to the two families integer ops
// need distinct implementations for (shift and divide behavior differs).
type Unsigned interface{ ~uint8 | ~uint16 | ~uint32 | ~uint64 }
type Signed interface{ ~int8 | ~int16 | ~int32 | ~int64 }

// IntBinary is the element function every two-operand integer opcode
// reduces to once SEW and signedness are resolved; package vector's engine
// never duplicates the (op, SEW) Cartesian product as a switch, only (op)
// via this closure, and (SEW) via RunIntBinary's single runtime dispatch.
type IntBinary[T vreg.Element] func(a, b T) T

// IntTernary handles the multiply-add family, where a third operand (the
// prior destination value or a scalar) participates.
type IntTernary[T vreg.Element] func(a, b, c T) T

// Loop is the element range and masking configuration of the unifying
// element loop from spec.md §4.5. runRange skips masked-off elements and
// leaves them undisturbed; it does not apply Policy, so no all-ones fill
// happens for masked-off elements under the agnostic policy.
type Loop struct {
	VStart, VL uint64
	Masked     bool
	Policy     vreg.InactivePolicy
	MaskReg    int
}

func runRange(f *vreg.File, l Loop, body func(ix int)) {
	for ix := int(l.VStart); ix < int(l.VL); ix++ {
		if l.Masked && !f.ReadMaskBit(l.MaskReg, ix) {
			continue
		}

		body(ix)
	}
}

// RunIntBinaryT runs a two-operand element loop for one fixed element type.
func RunIntBinaryT[T vreg.Element](f *vreg.File, vd, vs2, vs1 int, group int, l Loop, op IntBinary[T], scalar *T) {
	runRange(f, l, func(ix int) {
		a := vreg.ReadElem[T](f, vs2, ix, group)

		var b T
		if scalar != nil {
			b = *scalar
		} else {
			b = vreg.ReadElem[T](f, vs1, ix, group)
		}

		vreg.WriteElem[T](f, vd, ix, group, op(a, b))
	})
}

// RunIntTernaryT runs the multiply-add element loop for one element type.
func RunIntTernaryT[T vreg.Element](f *vreg.File, vd, vs2, vs1 int, group int, l Loop, op IntTernary[T], scalar *T) {
	runRange(f, l, func(ix int) {
		a := vreg.ReadElem[T](f, vs2, ix, group)

		var b T
		if scalar != nil {
			b = *scalar
		} else {
			b = vreg.ReadElem[T](f, vs1, ix, group)
		}

		c := vreg.ReadElem[T](f, vd, ix, group)

		vreg.WriteElem[T](f, vd, ix, group, op(a, b, c))
	})
}

// IntOp names the shape of an integer element operation; one switch in
// intBinaryUnsigned (or intBinarySigned) resolves it to a closure, rather
// than a switch per SEW.
type IntOp int

const (
	OpAdd IntOp = iota
	OpSub
	OpRSub
	OpAnd
	OpOr
	OpXor
	OpSll
	OpSrl
	OpSra
	OpMinU
	OpMin
	OpMaxU
	OpMax
	OpMul
	OpMulhU
	OpMulh
	OpMulhsu
	OpDivU
	OpDiv
	OpRemU
	OpRem
)

func shiftAmount[T vreg.Element](b T) uint {
	size := 0

	switch any(b).(type) {
	case uint8, int8:
		size = 8
	case uint16, int16:
		size = 16
	case uint32, int32:
		size = 32
	case uint64, int64:
		size = 64
	}

	return uint(uint64(b)) & uint(size-1)
}

func intBinaryUnsigned[T Unsigned](op IntOp) IntBinary[T] {
	return func(a, b T) T {
		switch op {
		case OpAdd:
			return a + b
		case OpSub:
			return a - b
		case OpRSub:
			return b - a
		case OpAnd:
			return a & b
		case OpOr:
			return a | b
		case OpXor:
			return a ^ b
		case OpSll:
			return a << shiftAmount[T](b)
		case OpSrl:
			return a >> shiftAmount[T](b)
		case OpMinU:
			if a < b {
				return a
			}

			return b
		case OpMaxU:
			if a > b {
				return a
			}

			return b
		case OpMul:
			return a * b
		case OpMulhU:
			return mulhUnsigned(a, b)
		case OpDivU:
			if b == 0 {
				return ^T(0) // all-ones, RISC-V division-by-zero rule
			}

			return a / b
		case OpRemU:
			if b == 0 {
				return a
			}

			return a % b
		default:
			return 0
		}
	}
}

func intBinarySigned[T Signed](op IntOp) IntBinary[T] {
	return func(a, b T) T {
		switch op {
		case OpAdd:
			return a + b
		case OpSub:
			return a - b
		case OpRSub:
			return b - a
		case OpAnd:
			return a & b
		case OpOr:
			return a | b
		case OpXor:
			return a ^ b
		case OpSra:
			return a >> shiftAmount[T](b)
		case OpMin:
			if a < b {
				return a
			}

			return b
		case OpMax:
			if a > b {
				return a
			}

			return b
		case OpMul:
			return a * b
		case OpMulh:
			return mulhSigned(a, b)
		case OpDiv:
			if b == 0 {
				return -1
			}

			if isIntMin(a) && b == -1 {
				return a
			}

			return a / b
		case OpRem:
			if b == 0 {
				return a
			}

			if isIntMin(a) && b == -1 {
				return 0
			}

			return a % b
		default:
			return 0
		}
	}
}

func isIntMin[T Signed](v T) bool {
	size := 0

	switch any(v).(type) {
	case int8:
		size = 8
	case int16:
		size = 16
	case int32:
		size = 32
	case int64:
		size = 64
	}

	min := -(int64(1) << (size - 1))

	return int64(v) == min
}

func mulhUnsigned[T Unsigned](a, b T) T {
	switch any(a).(type) {
	case uint8:
		return T(uint16(a) * uint16(b) >> 8)
	case uint16:
		return T(uint32(a) * uint32(b) >> 16)
	case uint32:
		return T(uint64(a) * uint64(b) >> 32)
	case uint64:
		hi, _ := bitsMul64(uint64(a), uint64(b))
		return T(hi)
	default:
		return 0
	}
}

func mulhSigned[T Signed](a, b T) T {
	switch any(a).(type) {
	case int8:
		return T(int16(a) * int16(b) >> 8)
	case int16:
		return T(int32(a) * int32(b) >> 16)
	case int32:
		return T(int64(a) * int64(b) >> 32)
	case int64:
		hi := mulh64(int64(a), int64(b))
		return T(hi)
	default:
		return 0
	}
}

func bitsMul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xffffffff

	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = a * b

	return hi, lo
}

func mulh64(a, b int64) int64 {
	hi, _ := bitsMul64(uint64(a), uint64(b))
	result := int64(hi)
	result -= (a >> 63) & b
	result -= (b >> 63) & a

	return result
}

// DecodeOpcodeOp maps an isa.InstrID onto the IntOp it corresponds to, for
// the subset of InstrIDs that are plain two-operand integer operations.
func DecodeOpcodeOp(id isa.InstrID) (op IntOp, ok bool) {
	switch id {
	case InstrVAdd:
		return OpAdd, true
	case InstrVSub:
		return OpSub, true
	case InstrVRSub:
		return OpRSub, true
	case InstrVAnd:
		return OpAnd, true
	case InstrVOr:
		return OpOr, true
	case InstrVXor:
		return OpXor, true
	case InstrVSll:
		return OpSll, true
	case InstrVSrl:
		return OpSrl, true
	case InstrVSra:
		return OpSra, true
	case InstrVMinu:
		return OpMinU, true
	case InstrVMin:
		return OpMin, true
	case InstrVMaxu:
		return OpMaxU, true
	case InstrVMax:
		return OpMax, true
	case InstrVMul:
		return OpMul, true
	case InstrVMulhu:
		return OpMulhU, true
	case InstrVMulh:
		return OpMulh, true
	case InstrVDivu:
		return OpDivU, true
	case InstrVDiv:
		return OpDiv, true
	case InstrVRemu:
		return OpRemU, true
	case InstrVRem:
		return OpRem, true
	default:
		return 0, false
	}
}

// RunIntBinary resolves sew/signed to a concrete element type with one
// runtime switch and runs the element loop. scalar, when non-nil, supplies
// a broadcast rs1/imm operand instead of reading vs1 per element.
func RunIntBinary(f *vreg.File, sew vtype.SEW, signed bool, op IntOp, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	switch sew {
	case vtype.SEW8:
		if signed {
			runSigned8(f, op, vd, vs2, vs1, group, l, scalar)
		} else {
			runUnsigned8(f, op, vd, vs2, vs1, group, l, scalar)
		}
	case vtype.SEW16:
		if signed {
			runSigned16(f, op, vd, vs2, vs1, group, l, scalar)
		} else {
			runUnsigned16(f, op, vd, vs2, vs1, group, l, scalar)
		}
	case vtype.SEW32:
		if signed {
			runSigned32(f, op, vd, vs2, vs1, group, l, scalar)
		} else {
			runUnsigned32(f, op, vd, vs2, vs1, group, l, scalar)
		}
	case vtype.SEW64:
		if signed {
			runSigned64(f, op, vd, vs2, vs1, group, l, scalar)
		} else {
			runUnsigned64(f, op, vd, vs2, vs1, group, l, scalar)
		}
	}
}

func scalarAs[T vreg.Element](scalar *uint64) *T {
	if scalar == nil {
		return nil
	}

	v := T(*scalar)

	return &v
}

func runUnsigned8(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinaryUnsigned[uint8](op), scalarAs[uint8](s))
}
func runUnsigned16(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinaryUnsigned[uint16](op), scalarAs[uint16](s))
}
func runUnsigned32(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinaryUnsigned[uint32](op), scalarAs[uint32](s))
}
func runUnsigned64(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinaryUnsigned[uint64](op), scalarAs[uint64](s))
}
func runSigned8(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinarySigned[int8](op), scalarAs[int8](s))
}
func runSigned16(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinarySigned[int16](op), scalarAs[int16](s))
}
func runSigned32(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinarySigned[int32](op), scalarAs[int32](s))
}
func runSigned64(f *vreg.File, op IntOp, vd, vs2, vs1, group int, l Loop, s *uint64) {
	RunIntBinaryT(f, vd, vs2, vs1, group, l, intBinarySigned[int64](op), scalarAs[int64](s))
}

// MaccKind distinguishes the four multiply-add/subtract variants.
type MaccKind int

const (
	MaccAdd    MaccKind = iota // vmacc:  vd += vs1*vs2
	MaccNmsac                  // vnmsac: vd -= vs1*vs2
	MaccMadd                   // vmadd:  vd = vs1*vd + vs2 (vd supplies one multiplicand)
	MaccNmsub                  // vnmsub: vd = -(vs1*vd) + vs2
)

func maccOp[T vreg.Element](kind MaccKind) IntTernary[T] {
	return func(a, b, c T) T {
		switch kind {
		case MaccAdd:
			return c + a*b
		case MaccNmsac:
			return c - a*b
		case MaccMadd:
			return b*c + a
		case MaccNmsub:
			return -(b * c) + a
		default:
			return c
		}
	}
}

// RunMacc resolves sew to a concrete element type and runs the
// multiply-add element loop.
func RunMacc(f *vreg.File, sew vtype.SEW, kind MaccKind, vd, vs2, vs1 int, group int, l Loop, scalar *uint64) {
	switch sew {
	case vtype.SEW8:
		RunIntTernaryT(f, vd, vs2, vs1, group, l, maccOp[uint8](kind), scalarAs[uint8](scalar))
	case vtype.SEW16:
		RunIntTernaryT(f, vd, vs2, vs1, group, l, maccOp[uint16](kind), scalarAs[uint16](scalar))
	case vtype.SEW32:
		RunIntTernaryT(f, vd, vs2, vs1, group, l, maccOp[uint32](kind), scalarAs[uint32](scalar))
	case vtype.SEW64:
		RunIntTernaryT(f, vd, vs2, vs1, group, l, maccOp[uint64](kind), scalarAs[uint64](scalar))
	}
}

// RunSext widens a source of width srcSEW to destination width dstSEW,
// sign-extending. ratio (2, 4, 8) must divide dstSEW/srcSEW.
func RunSext(f *vreg.File, dstSEW, srcSEW vtype.SEW, vd, vs2 int, dstGroup, srcGroup int, l Loop) {
	runRange(f, l, func(ix int) {
		var v int64

		switch srcSEW {
		case vtype.SEW8:
			v = int64(vreg.ReadElem[int8](f, vs2, ix, srcGroup))
		case vtype.SEW16:
			v = int64(vreg.ReadElem[int16](f, vs2, ix, srcGroup))
		case vtype.SEW32:
			v = int64(vreg.ReadElem[int32](f, vs2, ix, srcGroup))
		case vtype.SEW64:
			v = vreg.ReadElem[int64](f, vs2, ix, srcGroup)
		}

		writeSigned(f, dstSEW, vd, ix, dstGroup, v)
	})
}

// RunZext is RunSext's unsigned counterpart.
func RunZext(f *vreg.File, dstSEW, srcSEW vtype.SEW, vd, vs2 int, dstGroup, srcGroup int, l Loop) {
	runRange(f, l, func(ix int) {
		var v uint64

		switch srcSEW {
		case vtype.SEW8:
			v = uint64(vreg.ReadElem[uint8](f, vs2, ix, srcGroup))
		case vtype.SEW16:
			v = uint64(vreg.ReadElem[uint16](f, vs2, ix, srcGroup))
		case vtype.SEW32:
			v = uint64(vreg.ReadElem[uint32](f, vs2, ix, srcGroup))
		case vtype.SEW64:
			v = vreg.ReadElem[uint64](f, vs2, ix, srcGroup)
		}

		writeUnsigned(f, dstSEW, vd, ix, dstGroup, v)
	})
}

func writeSigned(f *vreg.File, sew vtype.SEW, reg, ix, group int, v int64) {
	switch sew {
	case vtype.SEW8:
		vreg.WriteElem[int8](f, reg, ix, group, int8(v))
	case vtype.SEW16:
		vreg.WriteElem[int16](f, reg, ix, group, int16(v))
	case vtype.SEW32:
		vreg.WriteElem[int32](f, reg, ix, group, int32(v))
	case vtype.SEW64:
		vreg.WriteElem[int64](f, reg, ix, group, v)
	}
}

func writeUnsigned(f *vreg.File, sew vtype.SEW, reg, ix, group int, v uint64) {
	switch sew {
	case vtype.SEW8:
		vreg.WriteElem[uint8](f, reg, ix, group, uint8(v))
	case vtype.SEW16:
		vreg.WriteElem[uint16](f, reg, ix, group, uint16(v))
	case vtype.SEW32:
		vreg.WriteElem[uint32](f, reg, ix, group, uint32(v))
	case vtype.SEW64:
		vreg.WriteElem[uint64](f, reg, ix, group, v)
	}
}
