package vector

import (
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// RunGather implements vrgather.vv|vx|vi: vd[i] = vs2[index(i)], zero when
// the index is out of [0, vlmax). Index elements are read at sew, the data
// element width; there is no separate 16-bit index width, so
// vrgatherei16.vv is not implemented here. Source and destination must not overlap; the caller's
// legality check enforces that before this runs.
func RunGather(f *vreg.File, sew vtype.SEW, vd, vs2, vsIdx int, group, idxGroup int, l Loop, vlmax uint64, scalarIdx *uint64) {
	runRange(f, l, func(ix int) {
		var idx uint64
		if scalarIdx != nil {
			idx = *scalarIdx
		} else {
			idx = readUnsignedAt(f, sew, vsIdx, ix, idxGroup)
		}

		if idx >= vlmax {
			writeUnsigned(f, sew, vd, ix, group, 0)
			return
		}

		v := readUnsignedAt(f, sew, vs2, int(idx), group)
		writeUnsigned(f, sew, vd, ix, group, v)
	})
}

// RunCompress packs the elements of vs1 whose corresponding mask bit in
// vs2 (a true mask register) is set, into vd starting at element 0.
// vcompress.vm must be unmasked with vstart == 0, enforced by the caller.
func RunCompress(f *vreg.File, sew vtype.SEW, vd, vs1, maskVreg int, group int, vl uint64, tailAgnostic bool) {
	out := 0

	for ix := 0; ix < int(vl); ix++ {
		if !f.ReadMaskBit(maskVreg, ix) {
			continue
		}

		v := readUnsignedAt(f, sew, vs1, ix, group)
		writeUnsigned(f, sew, vd, out, group, v)
		out++
	}

	if tailAgnostic {
		for ix := out; ix < int(vl); ix++ {
			writeUnsigned(f, sew, vd, ix, group, ^uint64(0))
		}
	}
}

// RunSlideUp shifts elements up by amount: vd[i] = vs2[i-amount] for
// i >= max(vstart, amount); lower indices (and anything below vstart) are
// left untouched, per spec.md §4.5.
func RunSlideUp(f *vreg.File, sew vtype.SEW, vd, vs2, maskReg int, group int, vstart, vl, amount uint64, masked bool) {
	start := vstart
	if amount > start {
		start = amount
	}

	for ix := int(start); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		src := uint64(ix) - amount
		v := readUnsignedAt(f, sew, vs2, int(src), group)
		writeUnsigned(f, sew, vd, ix, group, v)
	}
}

// RunSlideDown shifts elements down by amount: vd[i] = vs2[i+amount], zero
// filling once i+amount reaches vlmax.
func RunSlideDown(f *vreg.File, sew vtype.SEW, vd, vs2, maskReg int, group int, vstart, vl, amount, vlmax uint64, masked bool) {
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		src := uint64(ix) + amount

		var v uint64
		if src < vlmax {
			v = readUnsignedAt(f, sew, vs2, int(src), group)
		}

		writeUnsigned(f, sew, vd, ix, group, v)
	}
}

// RunSlide1Up inserts scalar at element 0 and slides the rest up by one.
func RunSlide1Up(f *vreg.File, sew vtype.SEW, vd, vs2, maskReg int, group int, vstart, vl uint64, masked bool, scalar uint64) {
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		var v uint64
		if ix == 0 {
			v = scalar
		} else {
			v = readUnsignedAt(f, sew, vs2, ix-1, group)
		}

		writeUnsigned(f, sew, vd, ix, group, v)
	}
}

// RunSlide1Down inserts scalar at the top (vl-1) and slides the rest down
// by one.
func RunSlide1Down(f *vreg.File, sew vtype.SEW, vd, vs2, maskReg int, group int, vstart, vl uint64, masked bool, scalar uint64) {
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		var v uint64
		if uint64(ix) == vl-1 {
			v = scalar
		} else {
			v = readUnsignedAt(f, sew, vs2, ix+1, group)
		}

		writeUnsigned(f, sew, vd, ix, group, v)
	}
}

// MvXS reads element 0 of vs2 as an integer scalar (vmv.x.s).
func MvXS(f *vreg.File, sew vtype.SEW, vs2 int) uint64 {
	return readUnsignedAt(f, sew, vs2, 0, 1)
}

// MvSX writes scalar into element 0 of vd (vmv.s.x), leaving the rest of
// the register group undisturbed.
func MvSX(f *vreg.File, sew vtype.SEW, vd int, scalar uint64) {
	writeUnsigned(f, sew, vd, 0, 1, scalar)
}

// RunWholeRegMove copies n whole registers starting at vs2 to vd verbatim,
// ignoring vl and vtype, per spec.md §4.6. n is 1, 2, 4, or 8 and both vd
// and vs2 must already satisfy the register-alignment rule (checked by the
// legality checker's rule 5 with EMUL = n*8).
func RunWholeRegMove(f *vreg.File, vd, vs2, n int) {
	for i := 0; i < n; i++ {
		for b := 0; b < f.VLENBytes(); b += 8 {
			v := vreg.ReadElem[uint64](f, vs2+i, b/8, 1)
			vreg.WriteElem[uint64](f, vd+i, b/8, 1, v)
		}
	}
}
