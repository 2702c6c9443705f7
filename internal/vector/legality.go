// Package vector implements the vector arithmetic engine: the operand
// legality checker and the per-class element loops described in spec.md
// §4.3 and §4.5. The element loop is written once, generic over element
// type, and the per-opcode behavior is supplied as a small function value:
// DecodeOpcodeOp maps an isa.InstrID to an IntOp, and one switch per
// signedness turns the IntOp into a closure, instead of a hand-rolled
// switch per (op, SEW).
package vector

import (
	"errors"

	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// ErrIllegalInstruction is returned by the Checker when any of spec.md
// §4.3's seven legality rules fails. VSTART and all other vector state are
// left unchanged by the caller, per spec.md §7.
var ErrIllegalInstruction = errors.New("vector: illegal instruction")

// MstatusVS mirrors the two bits of mstatus/vsstatus.VS the checker needs:
// whether the vector extension's context is usable at all.
type MstatusVS int

const (
	VSOff MstatusVS = iota
	VSInitial
	VSClean
	VSDirty
)

// CheckerConfig holds the hart-wide legality knobs spec.md §4.3 leaves
// configurable.
type CheckerConfig struct {
	TrapOnOOBVstart    bool
	WholeRegMoveIgnoresVill bool
}

// Checker validates an isa.Instruction against the current vtype.State
// before the engine runs its element loop.
type Checker struct {
	cfg CheckerConfig
}

func NewChecker(cfg CheckerConfig) *Checker { return &Checker{cfg: cfg} }

// OperandInfo describes one vector-register operand's effective width and
// group, as derived by the caller from the instruction's opcode class and
// modes (widening/narrowing change EEW/EMUL relative to vtype.SEW/LMUL).
type OperandInfo struct {
	Reg     int
	EEW     vtype.SEW
	EMUL    int // in eighths, same convention as vtype.LMUL
	IsDest  bool
	IsMask  bool // EEW==1 mask register read, not predicate v0
}

// Check runs all seven legality rules. vs is the hart's current vector
// type state; vsEnabled and mstatusVS reflect mstatus/vsstatus.VS; operands
// describes every vector-register operand the instruction touches.
func (c *Checker) Check(
	in *isa.Instruction,
	vs *vtype.State,
	vsEnabled bool,
	mstatusVS MstatusVS,
	vstart uint64,
	operands []OperandInfo,
	isWideningDest, isNarrowingDest bool,
	srcForOverlap, dstForOverlap int,
	groupSrc, groupDst int,
	noOverlapAllowed bool,
	isReduction bool,
) error {
	// Rule 1: extension enabled.
	if !vsEnabled || mstatusVS == VSOff {
		return ErrIllegalInstruction
	}

	// Rule 2: vill, with whole-register-move carve-out.
	isWholeRegMove := in.ID == InstrVmvNR
	if vs.VType.Vill && !(isWholeRegMove && c.cfg.WholeRegMoveIgnoresVill) {
		return ErrIllegalInstruction
	}

	// Rule 3: vstart bound.
	for _, op := range operands {
		vlmax := vs.VLMax(op.EEW, vtype.LMUL(op.EMUL))
		if vstart > vlmax && c.cfg.TrapOnOOBVstart {
			return ErrIllegalInstruction
		}
	}

	// Rule 4: masked instruction register-0 restrictions.
	if in.IsMasked {
		for _, op := range operands {
			if op.IsDest && op.Reg == 0 {
				return ErrIllegalInstruction
			}

			if !op.IsMask && !op.IsDest && op.Reg == 0 {
				return ErrIllegalInstruction
			}
		}
	}

	// Rule 5: register number multiple of effective LMUL.
	for _, op := range operands {
		eff := vtype.LMUL(op.EMUL).EffectiveLMUL()
		if op.Reg%eff != 0 {
			return ErrIllegalInstruction
		}
	}

	// Rule 6: widening/narrowing overlap, and no-overlap ops.
	if noOverlapAllowed {
		if rangesOverlap(srcForOverlap, groupSrc, dstForOverlap, groupDst) {
			return ErrIllegalInstruction
		}
	} else if isWideningDest {
		allowed := srcForOverlap == dstForOverlap+groupDst-groupSrc
		if rangesOverlap(srcForOverlap, groupSrc, dstForOverlap, groupDst) && !allowed {
			return ErrIllegalInstruction
		}
	} else if isNarrowingDest {
		allowed := srcForOverlap == dstForOverlap
		if rangesOverlap(srcForOverlap, groupSrc, dstForOverlap, groupDst) && !allowed {
			return ErrIllegalInstruction
		}
	}

	// Rule 7: reduction constraints.
	if isReduction && vstart != 0 {
		return ErrIllegalInstruction
	}

	return nil
}

func rangesOverlap(a, groupA, b, groupB int) bool {
	aEnd := a + groupA - 1
	bEnd := b + groupB - 1

	return a <= bEnd && b <= aEnd
}
