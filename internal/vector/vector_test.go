package vector_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/vector"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

func validInstruction() *isa.Instruction {
	return &isa.Instruction{ID: vector.InstrVAdd}
}

func validState() *vtype.State {
	s := vtype.NewState(128, vtype.VillTrap)
	s.VType.LMUL = vtype.LMUL2
	s.VType.SEW = vtype.SEW32

	return s
}

func TestRunIntBinaryAdd(t *testing.T) {
	f := vreg.NewFile(128)
	vreg.WriteElem[uint32](f, 8, 0, 1, 10)
	vreg.WriteElem[uint32](f, 12, 0, 1, 32)

	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunIntBinary(f, vtype.SEW32, false, vector.OpAdd, 4, 8, 12, 1, l, nil)

	if got := vreg.ReadElem[uint32](f, 4, 0, 1); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestRunIntBinaryDivideByZero(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[int32](f, 2, 0, 1, 7)
	vreg.WriteElem[int32](f, 3, 0, 1, 0)

	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunIntBinary(f, vtype.SEW32, true, vector.OpDiv, 1, 2, 3, 1, l, nil)

	if got := vreg.ReadElem[int32](f, 1, 0, 1); got != -1 {
		t.Errorf("div by zero: got %d, want -1", got)
	}

	vector.RunIntBinary(f, vtype.SEW32, true, vector.OpRem, 1, 2, 3, 1, l, nil)
	if got := vreg.ReadElem[int32](f, 1, 0, 1); got != 7 {
		t.Errorf("rem by zero: got %d, want 7 (dividend)", got)
	}
}

func TestRunIntBinaryIntMinDivNegOne(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[int32](f, 2, 0, 1, math.MinInt32)
	vreg.WriteElem[int32](f, 3, 0, 1, -1)

	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunIntBinary(f, vtype.SEW32, true, vector.OpDiv, 1, 2, 3, 1, l, nil)

	if got := vreg.ReadElem[int32](f, 1, 0, 1); got != math.MinInt32 {
		t.Errorf("got %d, want INT_MIN", got)
	}

	vector.RunIntBinary(f, vtype.SEW32, true, vector.OpRem, 1, 2, 3, 1, l, nil)
	if got := vreg.ReadElem[int32](f, 1, 0, 1); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestRunMaccAddsProductToDest(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[uint32](f, 1, 0, 1, 3) // vs2
	vreg.WriteElem[uint32](f, 2, 0, 1, 4) // vs1
	vreg.WriteElem[uint32](f, 0, 0, 1, 100) // vd seed

	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunMacc(f, vtype.SEW32, vector.MaccAdd, 0, 1, 2, 1, l, nil)

	if got := vreg.ReadElem[uint32](f, 0, 0, 1); got != 112 {
		t.Errorf("got %d, want 112", got)
	}
}

func TestRunSaddSatUnsigned(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[uint8](f, 1, 0, 1, 250)
	vreg.WriteElem[uint8](f, 2, 0, 1, 20)

	fp := &vector.FixedPointState{}
	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunSaddSub(f, vtype.SEW8, false, false, fp, 0, 1, 2, 1, l, nil)

	if got := vreg.ReadElem[uint8](f, 0, 0, 1); got != 255 {
		t.Errorf("got %d, want 255 (saturated)", got)
	}

	if !fp.VXSAT {
		t.Error("expected VXSAT set")
	}
}

func TestRoundingModes(t *testing.T) {
	// v = 0b1011 (11), shift right by 2: quotient 2, remainder 3 (0b11), half = 2.
	cases := []struct {
		rm   vector.VXRM
		want int64
	}{
		{vector.RoundDown, 2},
		{vector.RoundNearestUp, 3},   // dropped(3) >= half(2)
		{vector.RoundOdd, 3},         // dropped != 0 => force lsb=1
	}

	for _, c := range cases {
		f := vreg.NewFile(64)
		vreg.WriteElem[uint8](f, 1, 0, 1, 11)
		vreg.WriteElem[uint8](f, 2, 0, 1, 2) // shift amount

		fp := &vector.FixedPointState{VXRM: c.rm}
		l := vector.Loop{VStart: 0, VL: 1}
		vector.RunSsr(f, vtype.SEW8, false, fp, 0, 1, 2, 1, l, nil)

		if got := int64(vreg.ReadElem[uint8](f, 0, 0, 1)); got != c.want {
			t.Errorf("rm=%v: got %d, want %d", c.rm, got, c.want)
		}
	}
}

func TestFloatAddRoundTrip(t *testing.T) {
	f := vreg.NewFile(128)
	vreg.WriteElem[uint64](f, 1, 0, 1, math.Float64bits(1.5))
	vreg.WriteElem[uint64](f, 2, 0, 1, math.Float64bits(2.5))

	fl := &vector.FCSRFlags{}
	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunFloatBinary(f, vector.FloatDouble, fl, vector.FAdd, 0, 1, 2, 1, l, nil)

	got := math.Float64frombits(vreg.ReadElem[uint64](f, 0, 0, 1))
	if got != 4.0 {
		t.Errorf("got %v, want 4.0", got)
	}
}

func TestFloatMinMaxNaNHandling(t *testing.T) {
	if vector.FMin(math.NaN(), 3.0) != 3.0 {
		t.Error("expected FMin to prefer the non-NaN operand")
	}

	if vector.FMax(5.0, math.NaN()) != 5.0 {
		t.Error("expected FMax to prefer the non-NaN operand")
	}
}

func TestFloatReduceUnorderedEmptyCanonicalizesToNaN(t *testing.T) {
	f := vreg.NewFile(128)
	vreg.WriteElem[uint64](f, 1, 0, 1, math.Float64bits(9.0)) // seed, irrelevant to emptiness

	fl := &vector.FCSRFlags{}
	// vl == vstart => no active elements
	vector.RunFloatReduce(f, vector.FloatDouble, fl, 0, 1, 2, 1, 0, 0, false, 0, false)

	got := math.Float64frombits(vreg.ReadElem[uint64](f, 0, 0, 1))
	if !math.IsNaN(got) {
		t.Errorf("got %v, want NaN", got)
	}
}

func TestRunGatherOutOfRangeYieldsZero(t *testing.T) {
	f := vreg.NewFile(128)
	vreg.WriteElem[uint32](f, 1, 0, 1, 0xaa)
	vreg.WriteElem[uint32](f, 1, 1, 1, 0xbb)
	vreg.WriteElem[uint32](f, 2, 0, 1, 99) // out of range index

	l := vector.Loop{VStart: 0, VL: 1}
	vector.RunGather(f, vtype.SEW32, 0, 1, 2, 1, 1, l, 4, nil)

	if got := vreg.ReadElem[uint32](f, 0, 0, 1); got != 0 {
		t.Errorf("got %#x, want 0", got)
	}
}

func TestRunCompressPacksSelectedElements(t *testing.T) {
	f := vreg.NewFile(128)

	for i := 0; i < 4; i++ {
		vreg.WriteElem[uint32](f, 1, i, 1, uint32(10+i))
	}

	f.WriteMaskBit(2, 0, true)
	f.WriteMaskBit(2, 2, true)

	vector.RunCompress(f, vtype.SEW32, 0, 1, 2, 1, 4, false)

	if got := vreg.ReadElem[uint32](f, 0, 0, 1); got != 10 {
		t.Errorf("got %d, want 10", got)
	}

	if got := vreg.ReadElem[uint32](f, 0, 1, 1); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
}

func TestRunSlideUpAndDown(t *testing.T) {
	f := vreg.NewFile(128)

	for i := 0; i < 4; i++ {
		vreg.WriteElem[uint32](f, 1, i, 1, uint32(i))
	}

	vector.RunSlideUp(f, vtype.SEW32, 0, 1, 0, 1, 0, 4, 1, false)

	if got := vreg.ReadElem[uint32](f, 0, 1, 1); got != 0 {
		t.Errorf("slideup[1]: got %d, want 0", got)
	}

	if got := vreg.ReadElem[uint32](f, 0, 3, 1); got != 2 {
		t.Errorf("slideup[3]: got %d, want 2", got)
	}

	vector.RunSlideDown(f, vtype.SEW32, 2, 1, 0, 1, 0, 4, 1, 4, false)
	if got := vreg.ReadElem[uint32](f, 2, 2, 1); got != 3 {
		t.Errorf("slidedown[2]: got %d, want 3", got)
	}

	if got := vreg.ReadElem[uint32](f, 2, 3, 1); got != 0 {
		t.Errorf("slidedown[3]: got %d, want 0 (past vlmax)", got)
	}
}

func TestRunMaskLogicalAnd(t *testing.T) {
	f := vreg.NewFile(64)
	f.WriteMaskBit(1, 0, true)
	f.WriteMaskBit(1, 1, false)
	f.WriteMaskBit(2, 0, true)
	f.WriteMaskBit(2, 1, true)

	vector.RunMaskLogical(f, vector.MAnd, 0, 1, 2, 2)

	if !f.ReadMaskBit(0, 0) {
		t.Error("expected bit 0 set")
	}

	if f.ReadMaskBit(0, 1) {
		t.Error("expected bit 1 clear")
	}
}

func TestRunCpopAndFirst(t *testing.T) {
	f := vreg.NewFile(64)
	f.WriteMaskBit(1, 1, true)
	f.WriteMaskBit(1, 3, true)

	if got := vector.RunCpop(f, 1, 0, 8, false, 0); got != 2 {
		t.Errorf("cpop: got %d, want 2", got)
	}

	if got := vector.RunFirst(f, 1, 0, 8, false, 0); got != 1 {
		t.Errorf("first: got %d, want 1", got)
	}
}

func TestRunIotaRunningPopcount(t *testing.T) {
	f := vreg.NewFile(128)
	f.WriteMaskBit(1, 0, true)
	f.WriteMaskBit(1, 2, true)

	vector.RunIota(f, vtype.SEW32, 0, 1, 1, 4, false, 0)

	got := make([]uint32, 4)
	for i := range got {
		got[i] = vreg.ReadElem[uint32](f, 0, i, 1)
	}

	want := []uint32{0, 1, 1, 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("iota result mismatch (-want +got):\n%s", diff)
	}
}

func TestRunWholeRegMove(t *testing.T) {
	f := vreg.NewFile(128) // 16 bytes/reg
	vreg.WriteElem[uint64](f, 4, 0, 1, 0x1111)
	vreg.WriteElem[uint64](f, 4, 1, 1, 0x2222)
	vreg.WriteElem[uint64](f, 5, 0, 1, 0x3333)

	vector.RunWholeRegMove(f, 8, 4, 2)

	if got := vreg.ReadElem[uint64](f, 8, 0, 1); got != 0x1111 {
		t.Errorf("got %#x, want 0x1111", got)
	}

	if got := vreg.ReadElem[uint64](f, 9, 0, 1); got != 0x3333 {
		t.Errorf("got %#x, want 0x3333", got)
	}
}

func TestCheckerRejectsMisalignedRegister(t *testing.T) {
	c := vector.NewChecker(vector.CheckerConfig{})

	err := c.Check(
		validInstruction(), validState(), true, vector.VSClean, 0,
		[]vector.OperandInfo{{Reg: 1, EEW: vtype.SEW32, EMUL: 16 /* m2 */}},
		false, false, 0, 0, 1, 1, false, false,
	)

	if err != vector.ErrIllegalInstruction {
		t.Errorf("got %v, want ErrIllegalInstruction", err)
	}
}

func TestCheckerAcceptsWellFormedInstruction(t *testing.T) {
	c := vector.NewChecker(vector.CheckerConfig{})

	err := c.Check(
		validInstruction(), validState(), true, vector.VSClean, 0,
		[]vector.OperandInfo{{Reg: 4, EEW: vtype.SEW32, EMUL: 16}},
		false, false, 0, 0, 1, 1, false, false,
	)

	if err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestCheckerRejectsMaskedSourceAtV0(t *testing.T) {
	c := vector.NewChecker(vector.CheckerConfig{})

	in := &isa.Instruction{ID: vector.InstrVAdd, IsMasked: true}

	err := c.Check(
		in, validState(), true, vector.VSClean, 0,
		[]vector.OperandInfo{
			{Reg: 8, EEW: vtype.SEW32, EMUL: 16, IsDest: true},
			{Reg: 0, EEW: vtype.SEW32, EMUL: 16},
		},
		false, false, 0, 0, 1, 1, false, false,
	)

	if err != vector.ErrIllegalInstruction {
		t.Errorf("got %v, want ErrIllegalInstruction", err)
	}
}

func TestCheckerAcceptsMaskedV0MaskRead(t *testing.T) {
	c := vector.NewChecker(vector.CheckerConfig{})

	in := &isa.Instruction{ID: vector.InstrVAdd, IsMasked: true}

	err := c.Check(
		in, validState(), true, vector.VSClean, 0,
		[]vector.OperandInfo{
			{Reg: 8, EEW: vtype.SEW32, EMUL: 16, IsDest: true},
			{Reg: 0, EEW: vtype.SEW32, EMUL: 16, IsMask: true},
		},
		false, false, 0, 0, 1, 1, false, false,
	)

	if err != nil {
		t.Errorf("got %v, want nil", err)
	}
}
