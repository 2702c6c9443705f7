package hart_test

import (
	"context"
	"testing"

	"github.com/rvvsim/rvvsim/internal/hart"
	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/pma"
	"github.com/rvvsim/rvvsim/internal/vector"
	"github.com/rvvsim/rvvsim/internal/vmem"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

func newTestHart(memSize uint64) *hart.Hart {
	m := pma.NewMap(memSize)
	ram := make([]byte, memSize)

	return hart.New(hart.Config{
		VLEN:      128,
		Vill:      vtype.VillTrap,
		VSEnabled: true,
		MstatusVS: vector.VSDirty,
	}, m, 0, ram)
}

func operandInfo(reg int, eew vtype.SEW, emul int, isDest bool) vector.OperandInfo {
	return vector.OperandInfo{Reg: reg, EEW: eew, EMUL: emul, IsDest: isDest}
}

func TestArithOpRunsAndResetsVStart(t *testing.T) {
	h := newTestHart(256)
	h.VStart = 3

	vreg.WriteElem[uint32](h.VRF, 1, 0, 1, 10)
	vreg.WriteElem[uint32](h.VRF, 2, 0, 1, 20)

	in := &isa.Instruction{ID: vector.InstrVAdd}
	args := hart.LegalityArgs{
		Operands: []vector.OperandInfo{
			operandInfo(0, vtype.SEW32, 8, true),
			operandInfo(1, vtype.SEW32, 8, false),
			operandInfo(2, vtype.SEW32, 8, false),
		},
	}

	err := h.ArithOp(in, args, func() {
		l := vector.Loop{VStart: 0, VL: 1}
		vector.RunIntBinary(h.VRF, vtype.SEW32, true, vector.OpAdd, 0, 1, 2, 1, l, nil)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := vreg.ReadElem[uint32](h.VRF, 0, 0, 1); got != 30 {
		t.Errorf("got %d, want 30", got)
	}

	if h.VStart != 0 {
		t.Errorf("got vstart %d, want 0 after commit", h.VStart)
	}
}

func TestArithOpRejectsMisalignedRegister(t *testing.T) {
	h := newTestHart(256)

	in := &isa.Instruction{ID: vector.InstrVAdd}
	args := hart.LegalityArgs{
		Operands: []vector.OperandInfo{
			// EMUL=16 (LMUL2) requires an even register number; 1 is odd.
			operandInfo(1, vtype.SEW32, 16, true),
		},
	}

	ran := false

	err := h.ArithOp(in, args, func() { ran = true })
	if err != vector.ErrIllegalInstruction {
		t.Fatalf("got %v, want ErrIllegalInstruction", err)
	}

	if ran {
		t.Error("engine closure ran despite illegal operands")
	}
}

func TestArithOpRejectsWhenExtensionDisabled(t *testing.T) {
	h := newTestHart(256)
	h.VSEnabled = false

	in := &isa.Instruction{ID: vector.InstrVAdd}

	err := h.ArithOp(in, hart.LegalityArgs{}, func() {})
	if err != vector.ErrIllegalInstruction {
		t.Fatalf("got %v, want ErrIllegalInstruction", err)
	}
}

func TestMemOpCommitsAndResetsVStart(t *testing.T) {
	h := newTestHart(256)
	h.VStart = 7

	for i := 0; i < 4; i++ {
		h.Mem.Write(uint64(i*4), 4, uint64(100+i))
	}

	in := &isa.Instruction{ID: isa.InstrID(0)}

	res, err := h.MemOp(in, hart.LegalityArgs{}, func() vmem.Result {
		l := vmem.Loop{VStart: 0, VL: 4}
		return vmem.RunLoad(h.VRF, h.Mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", res.State)
	}

	if h.VStart != 0 {
		t.Errorf("got vstart %d, want 0 after commit", h.VStart)
	}

	for i := 0; i < 4; i++ {
		if got := vreg.ReadElem[uint32](h.VRF, 0, i, 1); got != uint32(100+i) {
			t.Errorf("elem %d: got %d, want %d", i, got, 100+i)
		}
	}
}

func TestMemOpPersistsVStartOnFault(t *testing.T) {
	h := newTestHart(8) // only the first two 4-byte elements are mapped

	in := &isa.Instruction{ID: isa.InstrID(0)}

	res, err := h.MemOp(in, hart.LegalityArgs{}, func() vmem.Result {
		l := vmem.Loop{VStart: 0, VL: 4}
		return vmem.RunLoad(h.VRF, h.Mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))
	})

	if err == nil {
		t.Fatal("expected a fault error")
	}

	if res.State != vmem.StateFaulted {
		t.Fatalf("got state %v, want faulted", res.State)
	}

	if h.VStart != 2 {
		t.Errorf("got vstart %d, want 2 (first out-of-range element)", h.VStart)
	}
}

func TestSetVLResetsVStart(t *testing.T) {
	h := newTestHart(256)
	h.VStart = 5

	vl, err := h.SetVL(vtype.SetVLRequest{
		Requested: vtype.VType{SEW: vtype.SEW32, LMUL: vtype.LMUL1, TA: true, MA: true},
		RdIsX0:    false,
		Rs1IsX0:   true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if vl != h.VType.VLMax(vtype.SEW32, vtype.LMUL1) {
		t.Errorf("got vl %d, want vlmax", vl)
	}

	if h.VStart != 0 {
		t.Errorf("got vstart %d, want 0", h.VStart)
	}
}

func TestSetVLIllegalTrapsAndLeavesStateUnchanged(t *testing.T) {
	h := newTestHart(256)
	beforeType, beforeVL := h.VType.VType, h.VType.VL

	_, err := h.SetVL(vtype.SetVLRequest{
		Requested: vtype.VType{SEW: vtype.SEW32, LMUL: vtype.LMULReserved},
	})

	if err != vtype.ErrIllegal {
		t.Fatalf("got %v, want ErrIllegal", err)
	}

	if h.VType.VType != beforeType || h.VType.VL != beforeVL {
		t.Errorf("got vtype %+v vl %d, want unchanged %+v vl %d", h.VType.VType, h.VType.VL, beforeType, beforeVL)
	}
}

func TestRunStopsWhenNextReturnsFalse(t *testing.T) {
	h := newTestHart(256)

	calls := 0
	next := func(h *hart.Hart) (func() error, bool) {
		if calls >= 3 {
			return nil, false
		}

		calls++

		return func() error { return nil }, true
	}

	if err := h.Run(context.Background(), next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 3 {
		t.Errorf("got %d steps, want 3", calls)
	}
}

func TestRunStopsOnHalt(t *testing.T) {
	h := newTestHart(256)

	calls := 0
	next := func(h *hart.Hart) (func() error, bool) {
		calls++

		return func() error {
			if calls == 2 {
				h.Halt()
			}

			return nil
		}, true
	}

	if err := h.Run(context.Background(), next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 2 {
		t.Errorf("got %d steps, want 2 (halted after the second)", calls)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	h := newTestHart(256)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	next := func(h *hart.Hart) (func() error, bool) {
		t.Fatal("next should not be called on an already-cancelled context")
		return nil, false
	}

	if err := h.Run(ctx, next); err != context.Canceled {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestRunPropagatesStepError(t *testing.T) {
	h := newTestHart(256)

	wantErr := vector.ErrIllegalInstruction
	next := func(h *hart.Hart) (func() error, bool) {
		return func() error { return wantErr }, true
	}

	if err := h.Run(context.Background(), next); err != wantErr {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
