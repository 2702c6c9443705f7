// Package isa declares the decoded-instruction record the vector engines
// consume. Decoding RISC-V encodings into this record is out of scope here
// (spec.md's Non-goals exclude a front-end decoder); the record is the
// external interface engines are built against, in the same spirit as the
// teacher's internal/vm staged operation interfaces (fetchable, executable,
// storable) that separate instruction-cycle stages from the concrete
// encodings.
package isa

// OperandType distinguishes the kind of operand carried in an Instruction's
// operand slots.
type OperandType int

const (
	OperandNone OperandType = iota
	OperandIntReg
	OperandFPReg
	OperandVecReg
	OperandMaskReg
	OperandImmediate
)

func (t OperandType) String() string {
	switch t {
	case OperandIntReg:
		return "int"
	case OperandFPReg:
		return "fp"
	case OperandVecReg:
		return "vec"
	case OperandMaskReg:
		return "mask"
	case OperandImmediate:
		return "imm"
	default:
		return "none"
	}
}

// OperandMode further qualifies how an operand is used, beyond its type:
// plain vector register, widened/narrowed group, or scalar broadcast.
type OperandMode int

const (
	ModePlain OperandMode = iota
	ModeWidened
	ModeNarrowed
	ModeScalar
	ModeIndex
)

// Opcode identifies the operation an Instruction performs. Instruction
// does not carry an Opcode, and no engine reads one; package vector
// selects behavior from the InstrID.
type Opcode int

// Class groups opcodes by the shared element-loop shape they need. No
// engine and not the legality checker reads Class; they work from the
// InstrID.
type Class int

const (
	ClassNone Class = iota
	ClassIntArith
	ClassCarry
	ClassFixedPoint
	ClassFloat
	ClassReduce
	ClassPermute
	ClassMaskLogical
	ClassMaskTraversal
	ClassLoad
	ClassStore
	ClassWholeReg
	ClassConfig // vsetvl family
)

// Instruction is the decoded-instruction record described in spec.md §6:
// up to four operand slots, their types and modes, whether the instruction
// is predicated by v0, how many vector register groups a segment access
// touches, and any decoded immediate.
type Instruction struct {
	ID InstrID

	Op0, Op1, Op2, Op3 uint32
	OpTypes            [4]OperandType
	OpModes            [4]OperandMode

	IsMasked       bool
	VecFieldCount  int // segment field count N; 1 for non-segment ops
	Immediate      int64
}

// InstrID names the specific operation, used by package vector (for
// example DecodeOpcodeOp) to select the concrete element function.
type InstrID int

// Operand returns the i'th operand register/immediate and its type.
func (in *Instruction) Operand(i int) (value uint32, typ OperandType, mode OperandMode) {
	switch i {
	case 0:
		return in.Op0, in.OpTypes[0], in.OpModes[0]
	case 1:
		return in.Op1, in.OpTypes[1], in.OpModes[1]
	case 2:
		return in.Op2, in.OpTypes[2], in.OpModes[2]
	case 3:
		return in.Op3, in.OpTypes[3], in.OpModes[3]
	default:
		return 0, OperandNone, ModePlain
	}
}

// Dest returns the destination register number, by convention Op0.
func (in *Instruction) Dest() uint32 { return in.Op0 }
