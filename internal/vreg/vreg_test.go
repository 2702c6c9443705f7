package vreg_test

import (
	"testing"

	"github.com/rvvsim/rvvsim/internal/vreg"
)

func TestReadWriteElemRoundTrip(t *testing.T) {
	f := vreg.NewFile(128) // 16 bytes per register

	vreg.WriteElem[uint32](f, 4, 0, 1, 0xdeadbeef)
	vreg.WriteElem[uint32](f, 4, 3, 1, 0x11223344)

	if got := vreg.ReadElem[uint32](f, 4, 0, 1); got != 0xdeadbeef {
		t.Errorf("got %#x, want 0xdeadbeef", got)
	}

	if got := vreg.ReadElem[uint32](f, 4, 3, 1); got != 0x11223344 {
		t.Errorf("got %#x, want 0x11223344", got)
	}

	if !f.Touched(4) {
		t.Error("expected register 4 to be touched")
	}
}

func TestReadWriteElemSpansGroup(t *testing.T) {
	f := vreg.NewFile(64) // 8 bytes per register, LMUL=2 group of 2 regs

	// uint64 element index 1 should land in register 9, not 8.
	vreg.WriteElem[uint64](f, 8, 1, 2, 0x0102030405060708)

	if got := vreg.ReadElem[uint64](f, 8, 1, 2); got != 0x0102030405060708 {
		t.Errorf("got %#x, want 0x0102030405060708", got)
	}

	if !f.Touched(9) || f.Touched(8) {
		t.Errorf("expected only register 9 touched, got reg8=%v reg9=%v", f.Touched(8), f.Touched(9))
	}
}

func TestReadElemOutOfRangePanics(t *testing.T) {
	f := vreg.NewFile(64)

	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()

	vreg.ReadElem[uint64](f, 0, 1, 1) // 8 bytes/reg, 1 group => only index 0 valid
}

func TestMaskBitRoundTrip(t *testing.T) {
	f := vreg.NewFile(128)

	f.WriteMaskBit(0, 5, true)
	f.WriteMaskBit(0, 9, true)

	if !f.ReadMaskBit(0, 5) || !f.ReadMaskBit(0, 9) {
		t.Error("expected bits 5 and 9 set")
	}

	if f.ReadMaskBit(0, 6) {
		t.Error("expected bit 6 clear")
	}

	f.WriteMaskBit(0, 5, false)
	if f.ReadMaskBit(0, 5) {
		t.Error("expected bit 5 cleared")
	}
}

func TestFinalizeMaskTail(t *testing.T) {
	f := vreg.NewFile(64) // 64 bits

	f.FinalizeMaskTail(1, 4, true)

	for i := 0; i < 4; i++ {
		if f.ReadMaskBit(1, i) {
			t.Errorf("expected bit %d untouched (clear)", i)
		}
	}

	for i := 4; i < 64; i++ {
		if !f.ReadMaskBit(1, i) {
			t.Errorf("expected tail bit %d set", i)
		}
	}
}

func TestFinalizeMaskTailUndisturbedWhenNotAgnostic(t *testing.T) {
	f := vreg.NewFile(64)
	f.FinalizeMaskTail(1, 4, false)

	for i := 4; i < 64; i++ {
		if f.ReadMaskBit(1, i) {
			t.Errorf("expected bit %d to remain clear when mask-undisturbed", i)
		}
	}
}

func TestIsElementActive(t *testing.T) {
	f := vreg.NewFile(64)
	f.WriteMaskBit(0, 2, true)

	if !f.IsElementActive(2, true) {
		t.Error("expected element 2 active when masked and bit set")
	}

	if f.IsElementActive(3, true) {
		t.Error("expected element 3 inactive when masked and bit clear")
	}

	if !f.IsElementActive(3, false) {
		t.Error("expected element always active when unmasked")
	}
}

func TestIsDestActiveAgnosticFillsOnes(t *testing.T) {
	f := vreg.NewFile(64)
	// mask bit 0 clear => element 0 inactive

	active := vreg.IsDestActive[uint16](f, 2, 0, 1, true, vreg.PolicyAgnostic)
	if active {
		t.Fatal("expected inactive element")
	}

	if got := vreg.ReadElem[uint16](f, 2, 0, 1); got != 0xffff {
		t.Errorf("got %#x, want 0xffff (agnostic fill)", got)
	}
}

func TestIsDestActiveUndisturbedLeavesPriorValue(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[uint16](f, 2, 0, 1, 0x1234)

	active := vreg.IsDestActive[uint16](f, 2, 0, 1, true, vreg.PolicyUndisturbed)
	if active {
		t.Fatal("expected inactive element")
	}

	if got := vreg.ReadElem[uint16](f, 2, 0, 1); got != 0x1234 {
		t.Errorf("got %#x, want 0x1234 (undisturbed)", got)
	}
}

func TestReadIndexRegZeroExtends(t *testing.T) {
	f := vreg.NewFile(64)
	vreg.WriteElem[uint8](f, 3, 0, 1, 0xff)

	if got := vreg.ReadIndexReg(f, 3, 0, 8, 1); got != 0xff {
		t.Errorf("got %#x, want 0xff", got)
	}
}
