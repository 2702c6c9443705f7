package vmem_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rvvsim/rvvsim/internal/pma"
	"github.com/rvvsim/rvvsim/internal/vmem"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

func newTestMemory(size uint64) (*pma.Map, *vmem.Memory) {
	m := pma.NewMap(size)
	ram := make([]byte, size)
	mem := vmem.NewMemory(m, 0, ram)

	return m, mem
}

func TestUnitStrideLoadRoundTrip(t *testing.T) {
	m, mem := newTestMemory(256)
	f := vreg.NewFile(128)

	for i := 0; i < 4; i++ {
		mem.Write(uint64(i*4), 4, uint64(100+i))
	}

	l := vmem.Loop{VStart: 0, VL: 4}
	res := vmem.RunLoad(f, mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", res.State)
	}

	got := make([]uint32, 4)
	for i := range got {
		got[i] = vreg.ReadElem[uint32](f, 0, i, 1)
	}

	want := []uint32{100, 101, 102, 103}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded elements mismatch (-want +got):\n%s", diff)
	}

	_ = m
}

func TestUnitStrideStoreRoundTrip(t *testing.T) {
	_, mem := newTestMemory(256)
	f := vreg.NewFile(128)

	for i := 0; i < 4; i++ {
		vreg.WriteElem[uint32](f, 2, i, 1, uint32(7+i))
	}

	l := vmem.Loop{VStart: 0, VL: 4}
	res := vmem.RunStore(f, mem, l, vtype.SEW32, 2, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", res.State)
	}

	for i := 0; i < 4; i++ {
		v, fault := mem.Read(uint64(i*4), 4)
		if fault {
			t.Fatalf("unexpected fault reading back element %d", i)
		}

		if v != uint64(7+i) {
			t.Errorf("elem %d: got %d, want %d", i, v, 7+i)
		}
	}
}

func TestStridedAddrZeroStrideBroadcasts(t *testing.T) {
	addrFor := vmem.StridedAddr(0x100, 0)

	for ix := 0; ix < 3; ix++ {
		if got := addrFor(ix); got != 0x100 {
			t.Errorf("ix=%d: got %#x, want 0x100", ix, got)
		}
	}
}

func TestLoadFaultsOnUnmappedRegion(t *testing.T) {
	m := pma.NewMap(8) // only the first two 4-byte elements are in range
	mem := vmem.NewMemory(m, 0, make([]byte, 8))
	f := vreg.NewFile(128)

	l := vmem.Loop{VStart: 0, VL: 4}
	res := vmem.RunLoad(f, mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateFaulted {
		t.Fatalf("got state %v, want faulted", res.State)
	}

	if res.Fault == nil {
		t.Fatal("expected a fault")
	}

	if res.VStart != 2 {
		t.Errorf("got vstart %d, want 2 (first out-of-range element)", res.VStart)
	}
}

func TestFaultFirstLoadTruncatesInsteadOfFaulting(t *testing.T) {
	m := pma.NewMap(8) // two 4-byte words mapped, rest faults
	mem := vmem.NewMemory(m, 0, make([]byte, 8))
	f := vreg.NewFile(128)

	mem.Write(0, 4, 11)
	mem.Write(4, 4, 22)

	l := vmem.Loop{VStart: 0, VL: 4, FaultFirst: true}
	res := vmem.RunLoad(f, mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed (fault-first truncates)", res.State)
	}

	if !res.Truncated {
		t.Error("expected Truncated to be set")
	}

	if res.VStart != 2 {
		t.Errorf("got truncated vl %d, want 2", res.VStart)
	}
}

func TestFaultFirstLoadFaultsOnFirstElement(t *testing.T) {
	m := pma.NewMap(0) // nothing mapped
	mem := vmem.NewMemory(m, 0, make([]byte, 0))
	f := vreg.NewFile(128)

	l := vmem.Loop{VStart: 0, VL: 4, FaultFirst: true}
	res := vmem.RunLoad(f, mem, l, vtype.SEW32, 0, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateFaulted {
		t.Fatalf("got state %v, want faulted (fault-first never truncates at element 0)", res.State)
	}
}

func TestMaskedOffElementSkipsMemoryAndFillsAgnostic(t *testing.T) {
	_, mem := newTestMemory(256)
	f := vreg.NewFile(128)
	vreg.WriteElem[uint32](f, 0, 1, 1, 0xdead)

	f.WriteMaskBit(0, 0, true)
	f.WriteMaskBit(0, 1, false)

	l := vmem.Loop{VStart: 0, VL: 2, Masked: true, MaskReg: 0, Policy: vreg.PolicyAgnostic}
	res := vmem.RunLoad(f, mem, l, vtype.SEW32, 1, 1, vmem.UnitStrideAddr(0, vtype.SEW32))

	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", res.State)
	}

	if got := vreg.ReadElem[uint32](f, 1, 1, 1); got != 0xffffffff {
		t.Errorf("got %#x, want all-ones fill for masked-off element", got)
	}
}

func TestIndexedAddrZeroExtendsIndex(t *testing.T) {
	f := vreg.NewFile(128)
	vreg.WriteElem[uint32](f, 4, 0, 1, 16)

	addrFor := vmem.IndexedAddr(f, 0x1000, 4, 32, 1)

	if got := addrFor(0); got != 0x1010 {
		t.Errorf("got %#x, want 0x1010", got)
	}
}

func TestWholeRegLoadStoreRoundTrip(t *testing.T) {
	_, mem := newTestMemory(256)
	f := vreg.NewFile(128) // 16 bytes/reg

	mem.Write(0, 8, 0xaaaa)
	mem.Write(8, 8, 0xbbbb)

	res := vmem.RunWholeRegLoad(f, mem, 4, 1, 0)
	if res.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", res.State)
	}

	if got := vreg.ReadElem[uint64](f, 4, 0, 1); got != 0xaaaa {
		t.Errorf("got %#x, want 0xaaaa", got)
	}

	storeRes := vmem.RunWholeRegStore(f, mem, 4, 1, 0x40)
	if storeRes.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", storeRes.State)
	}

	v, fault := mem.Read(0x40, 8)
	if fault || v != 0xaaaa {
		t.Errorf("got %#x, fault=%v, want 0xaaaa", v, fault)
	}
}

func TestMaskLoadStoreRoundTrip(t *testing.T) {
	_, mem := newTestMemory(256)
	f := vreg.NewFile(128)

	f.WriteMaskBit(1, 0, true)
	f.WriteMaskBit(1, 3, true)

	storeRes := vmem.RunMaskStore(f, mem, 1, 0x20, 8)
	if storeRes.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", storeRes.State)
	}

	loadRes := vmem.RunMaskLoad(f, mem, 2, 0x20, 8)
	if loadRes.State != vmem.StateCommitted {
		t.Fatalf("got state %v, want committed", loadRes.State)
	}

	if !f.ReadMaskBit(2, 0) || !f.ReadMaskBit(2, 3) {
		t.Error("expected bits 0 and 3 set after round trip")
	}

	if f.ReadMaskBit(2, 1) {
		t.Error("expected bit 1 clear")
	}
}

func TestSegmentLoadAtomicRollsBackOnFault(t *testing.T) {
	m := pma.NewMap(4) // only the first field of the first element is mapped
	mem := vmem.NewMemory(m, 0, make([]byte, 8))
	f := vreg.NewFile(128)
	prior := vreg.NewFile(128)

	vreg.WriteElem[uint32](f, 0, 0, 1, 0x1111) // field 0, element 0, pre-instruction
	vreg.WriteElem[uint32](prior, 0, 0, 1, 0x1111)

	mem.Write(0, 4, 99) // field 0 of element 0 is readable

	l := vmem.Loop{VStart: 0, VL: 1}
	res := vmem.RunSegmentLoad(f, mem, l, vtype.SEW32, 0, 2, 1, 4, func(ix int) uint64 { return 0 }, true, prior)

	if res.State != vmem.StateFaulted {
		t.Fatalf("got state %v, want faulted", res.State)
	}

	got := []uint32{
		vreg.ReadElem[uint32](f, 0, 0, 1),
		vreg.ReadElem[uint32](f, 1, 0, 1),
	}
	want := []uint32{
		vreg.ReadElem[uint32](prior, 0, 0, 1),
		vreg.ReadElem[uint32](prior, 1, 0, 1),
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields not rolled back to prior snapshot (-want +got):\n%s", diff)
	}
}
