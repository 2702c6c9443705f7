package vmem

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
)

// RunWholeRegLoad implements vl<n>re*.v: transfers n*VLEN/8 bytes from
// base into registers vd..vd+n-1, ignoring vl and vtype entirely, per
// spec.md §4.6. It reads 8 bytes at a time, faulting the whole operation
// (no partial-element concept applies to a byte transfer) at the first
// bad double-word.
func RunWholeRegLoad(f *vreg.File, mem *Memory, vd, n int, base uint64) Result {
	vlenBytes := f.VLENBytes()
	total := n * vlenBytes / 8

	for i := 0; i < total; i++ {
		addr := base + uint64(i)*8

		value, fault := mem.Read(addr, 8)
		if fault {
			return Result{State: StateFaulted, Fault: &Fault{Addr: addr, Index: i, Kind: AccessLoad}}
		}

		vreg.WriteElem[uint64](f, vd, i, n, value)
	}

	return Result{State: StateCommitted}
}

// RunWholeRegStore implements vs<n>r.v.
func RunWholeRegStore(f *vreg.File, mem *Memory, vs3, n int, base uint64) Result {
	vlenBytes := f.VLENBytes()
	total := n * vlenBytes / 8

	for i := 0; i < total; i++ {
		addr := base + uint64(i)*8
		value := vreg.ReadElem[uint64](f, vs3, i, n)

		if fault := mem.Write(addr, 8, value); fault {
			return Result{State: StateFaulted, Fault: &Fault{Addr: addr, Index: i, Kind: AccessStore}}
		}
	}

	return Result{State: StateCommitted}
}

// RunMaskLoad implements vlm.v: always byte-wise, transferring
// ceil(vl/8) bytes into mask register vd's byte buffer directly, with no
// masking of its own (the instruction is always unmasked).
func RunMaskLoad(f *vreg.File, mem *Memory, vd int, base uint64, vl uint64) Result {
	nbytes := (vl + 7) / 8

	for i := 0; i < int(nbytes); i++ {
		addr := base + uint64(i)

		b, fault := mem.ReadByte(addr)
		if fault {
			return Result{State: StateFaulted, Fault: &Fault{Addr: addr, Index: i, Kind: AccessLoad}}
		}

		for bit := 0; bit < 8; bit++ {
			f.WriteMaskBit(vd, i*8+bit, b>>uint(bit)&1 != 0)
		}
	}

	return Result{State: StateCommitted}
}

// RunMaskStore implements vsm.v.
func RunMaskStore(f *vreg.File, mem *Memory, vs3 int, base uint64, vl uint64) Result {
	nbytes := (vl + 7) / 8

	for i := 0; i < int(nbytes); i++ {
		addr := base + uint64(i)

		var b byte
		for bit := 0; bit < 8; bit++ {
			if f.ReadMaskBit(vs3, i*8+bit) {
				b |= 1 << uint(bit)
			}
		}

		if fault := mem.WriteByte(addr, b); fault {
			return Result{State: StateFaulted, Fault: &Fault{Addr: addr, Index: i, Kind: AccessStore}}
		}
	}

	return Result{State: StateCommitted}
}
