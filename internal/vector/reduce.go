package vector

import (
	"math"

	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// RunIntReduce implements spec.md §4.5's reduction loop for integer ops:
// scan vs1 over [vstart, vl), seeded by element 0 of vs2, writing the
// scalar result to element 0 of vd. Integer reductions are always
// effectively ordered (no rounding-mode sensitivity), so no tree variant
// is needed.
func RunIntReduce(f *vreg.File, sew vtype.SEW, signed bool, op IntOp, vd, vs2, vs1 int, group int, vstart, vl uint64, masked bool, maskReg int) {
	var acc uint64
	if signed {
		acc = uint64(readSignedAt(f, sew, vs2, 0, 1))
	} else {
		acc = readUnsignedAt(f, sew, vs2, 0, 1)
	}

	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		var v uint64
		if signed {
			v = uint64(readSignedAt(f, sew, vs1, ix, group))
		} else {
			v = readUnsignedAt(f, sew, vs1, ix, group)
		}

		if signed {
			fn := intBinarySigned[int64](op)
			acc = uint64(fn(int64(acc), int64(v)))
		} else {
			fn := intBinaryUnsigned[uint64](op)
			acc = fn(acc, v)
		}
	}

	if signed {
		writeSigned(f, sew, vd, 0, 1, int64(acc))
	} else {
		writeUnsigned(f, sew, vd, 0, 1, acc)
	}
}

// RunFloatReduce implements both the ordered (vfredosum) and unordered,
// tree-based (vfredusum/vfwredusum) floating-point sum reductions.
// Ordered reduction folds left-to-right; unordered pairs adjacent active
// elements first, then folds the running partials, and folds the vs2 seed
// last, canonicalizing an empty unordered reduction to quiet-NaN.
func RunFloatReduce(f *vreg.File, w FloatWidth, fl *FCSRFlags, vd, vs2, vs1 int, group int, vstart, vl uint64, masked bool, maskReg int, ordered bool) {
	seed := readFloat(f, w, vs2, 0, 1)

	var active []float64
	for ix := int(vstart); ix < int(vl); ix++ {
		if masked && !f.ReadMaskBit(maskReg, ix) {
			continue
		}

		active = append(active, readFloat(f, w, vs1, ix, group))
	}

	var result float64

	if ordered {
		result = seed

		for _, v := range active {
			result = FAdd(result, v)
			fl.observe(result)
		}
	} else {
		if len(active) == 0 {
			result = math.NaN()
		} else {
			for len(active) > 1 {
				var next []float64

				for i := 0; i+1 < len(active); i += 2 {
					next = append(next, FAdd(active[i], active[i+1]))
				}

				if len(active)%2 == 1 {
					next = append(next, active[len(active)-1])
				}

				active = next
			}

			result = FAdd(active[0], seed)
		}

		fl.observe(result)
	}

	writeFloat(f, w, vd, 0, 1, result)
}
