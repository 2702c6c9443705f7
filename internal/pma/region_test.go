package pma_test

import (
	"testing"

	"github.com/rvvsim/rvvsim/internal/pma"
)

func TestSetDefaultAndEnableDefault(t *testing.T) {
	m := pma.NewMap(0x1000)

	m.SetDefault(pma.NewPma(pma.Read))
	if got := m.PmaFor(0x10); got.IsWrite() {
		t.Errorf("expected read-only default, got %s", got)
	}

	m.EnableDefault(pma.Write)
	if got := m.PmaFor(0x10); !got.IsWrite() {
		t.Errorf("expected EnableDefault to add write, got %s", got)
	}

	m.ClearDefault()
	if got := m.PmaFor(0x10); got.IsMapped() {
		t.Errorf("expected ClearDefault to leave no access, got %s", got)
	}
}

func TestSetMisalignedDataOK(t *testing.T) {
	m := pma.NewMap(0x1000)

	m.SetMisalignedDataOK(false)
	if m.PmaFor(0x10).IsMisalignedOk() {
		t.Error("expected misaligned access disallowed")
	}

	m.SetMisalignedDataOK(true)
	if !m.PmaFor(0x10).IsMisalignedOk() {
		t.Error("expected misaligned access allowed")
	}
}

func TestTraceRecordsAccess(t *testing.T) {
	m := pma.NewMap(0x10000)
	m.DefineRegion(0, 0x1000, 0x1fff, pma.NewPma(pma.Read))

	m.EnableTrace(true)
	m.SetAccessReason(pma.ReasonLoadStore)

	m.PmaFor(0x1004)
	m.PmaFor(0x1008)

	trace := m.LastTrace()
	if len(trace) != 2 {
		t.Fatalf("expected 2 trace entries, got %d", len(trace))
	}

	for _, a := range trace {
		if a.Reason != pma.ReasonLoadStore {
			t.Errorf("expected ReasonLoadStore, got %v", a.Reason)
		}

		if a.Index != 0 {
			t.Errorf("expected region index 0, got %d", a.Index)
		}
	}

	m.ClearTrace()
	if got := m.LastTrace(); len(got) != 0 {
		t.Errorf("expected trace cleared, got %d entries", len(got))
	}
}

func TestTraceDisabledByDefault(t *testing.T) {
	m := pma.NewMap(0x1000)
	m.DefineRegion(0, 0, 0xff, pma.NewPma(pma.Read))

	m.PmaFor(0x10)

	if got := m.LastTrace(); len(got) != 0 {
		t.Errorf("expected no trace entries without EnableTrace, got %d", len(got))
	}
}

func TestOverlapsMMR(t *testing.T) {
	m := pma.NewMap(0x10000)

	if m.OverlapsMMR(0x2000, 0x2fff) {
		t.Error("expected no overlap before any MMR is defined")
	}

	if !m.DefineMMR(0x2000, 0xffffffff, 4, pma.NewPma(pma.Read|pma.Write)) {
		t.Fatal("DefineMMR failed")
	}

	if !m.OverlapsMMR(0x1000, 0x2fff) {
		t.Error("expected overlap with the defined register")
	}

	if m.OverlapsMMR(0x3000, 0x3fff) {
		t.Error("expected no overlap past the register")
	}
}

func TestInvalidateRegionOutOfRange(t *testing.T) {
	m := pma.NewMap(0x1000)

	if m.InvalidateRegion(-1) {
		t.Error("expected negative index to fail")
	}

	if m.InvalidateRegion(pma.MaxRegions) {
		t.Error("expected out-of-range index to fail")
	}
}
