// Package vtype implements the vector type state (vtype, vl, vstart) and
// the vsetvl family's legality rules from spec.md §4.3. It is grounded on
// the same bit-unpacking discipline package pma uses for PMACFG: decode a
// CSR-shaped value into a small struct, and keep the decode function pure
// so the hart can log or trap on the result without re-deriving it.
package vtype

import "fmt"

// SEW is the selected element width, in bits.
type SEW int

const (
	SEW8 SEW = 8 << iota
	SEW16
	SEW32
	SEW64
)

func (s SEW) Bytes() int { return int(s) / 8 }

// LMUL is the register grouping multiplier, represented as eighths so
// fractional groupings (mf2, mf4, mf8) are exact integers.
type LMUL int

const (
	LMULReserved LMUL = 0
	LMUL1        LMUL = 8
	LMUL2        LMUL = 16
	LMUL4        LMUL = 32
	LMUL8        LMUL = 64
	LMULMF2      LMUL = 4
	LMULMF4      LMUL = 2
	LMULMF8      LMUL = 1
)

// Eighths returns lmul as a count of eighths (LMUL1 is 8), for vlmax
// arithmetic.
func (l LMUL) Eighths() int { return int(l) }

// EffectiveLMUL returns max(lmul, 1) per spec.md §4.3 rule 5: register
// numbers must be a multiple of the *effective* LMUL, which floors
// fractional groupings to 1.
func (l LMUL) EffectiveLMUL() int {
	if l < LMUL1 {
		return 1
	}

	return int(l) / 8
}

// VType holds the decoded vtype CSR fields.
type VType struct {
	SEW  SEW
	LMUL LMUL
	TA   bool // tail-agnostic
	MA   bool // mask-agnostic
	Vill bool
}

// VillBehavior selects what happens when vsetvl computes an illegal type,
// a hart-wide configuration knob per spec.md §4.3.
type VillBehavior int

const (
	// VillTrap raises an illegal-instruction exception.
	VillTrap VillBehavior = iota
	// VillContinue zeroes all type fields, sets Vill, and continues.
	VillContinue
)

// State is the vector type/length state a hart carries: vtype, vl, vstart,
// plus the vsetvl configuration knobs spec.md leaves as Open Questions.
type State struct {
	VType VType
	VL    uint64
	VLEN  uint64 // bits per vector register; hart-wide constant

	Vill             VillBehavior
	StripMineVlmaxOnReconfig bool // see SetVL's rd==0,rs1==0 case
	StrictVstart     bool        // not read by SetVL or the legality checker; vector.CheckerConfig.TrapOnOOBVstart controls the vstart bound
}

// NewState returns a State for a hart with the given VLEN (bits) and the
// given vill policy; the strip-mine and vstart knobs start false.
func NewState(vlen uint64, vill VillBehavior) *State {
	return &State{
		VLEN: vlen,
		VType: VType{
			SEW:  SEW8,
			LMUL: LMUL1,
			TA:   true,
			MA:   true,
		},
		Vill: vill,
	}
}

// ErrIllegal is returned by SetVL when the requested type is illegal and
// the hart is configured to trap rather than continue.
var ErrIllegal = fmt.Errorf("vtype: illegal vector type")

// VLMax returns the maximum element count for sew/lmul given the hart's
// VLEN: VLEN * lmul/8 / sew.
func (s *State) VLMax(sew SEW, lmul LMUL) uint64 {
	if lmul == LMULReserved {
		return 0
	}

	num := s.VLEN * uint64(lmul)
	den := uint64(8) * uint64(sew)

	return num / den
}

// DecodeVTypeImm decodes the 11-bit vtype immediate carried by vsetvli:
// bits 2:0 sew, bits 5:3 lmul (sign-extended 3-bit field per the reserved
// encodings below), bit 6 ta, bit 7 ma; higher bits must be zero.
func DecodeVTypeImm(imm uint32) (vt VType, reservedBits bool) {
	sewBits := imm & 0x7
	lmulBits := imm >> 3 & 0x7
	ta := imm>>6&0x1 != 0
	ma := imm>>7&0x1 != 0
	hi := imm >> 8

	vt.SEW = SEW(8 << sewBits)
	vt.LMUL = decodeLMUL(lmulBits)
	vt.TA = ta
	vt.MA = ma

	if sewBits > 3 || vt.LMUL == LMULReserved || hi != 0 {
		reservedBits = true
	}

	return vt, reservedBits
}

func decodeLMUL(bits uint32) LMUL {
	switch bits {
	case 0:
		return LMUL1
	case 1:
		return LMUL2
	case 2:
		return LMUL4
	case 3:
		return LMUL8
	case 5:
		return LMULMF8
	case 6:
		return LMULMF4
	case 7:
		return LMULMF2
	default: // 4 is reserved
		return LMULReserved
	}
}

// SetVLRequest carries the three pieces of a vsetvl{,i,vli} instruction
// the legality rule in spec.md §4.3 needs: the requested vtype, whether rd
// and rs1 name register 0, and (for the strip-mine case) the AVL value
// read from rs1.
type SetVLRequest struct {
	Requested    VType
	ReservedBits bool
	RdIsX0       bool
	Rs1IsX0      bool
	AVL          uint64
}

// SetVL applies spec.md §4.3's vsetvl legality rule, updating s in place
// and returning the resulting vl. If the computed type is illegal and the
// hart traps on vill, it returns ErrIllegal and leaves s unchanged.
func (s *State) SetVL(req SetVLRequest) (uint64, error) {
	vlmax := s.VLMax(req.Requested.SEW, req.Requested.LMUL)
	illegal := req.ReservedBits || req.Requested.LMUL == LMULReserved || vlmax == 0

	if illegal {
		if s.Vill == VillTrap {
			return 0, ErrIllegal
		}

		s.VType = VType{Vill: true}
		s.VL = 0

		return 0, nil
	}

	var vl uint64

	switch {
	case !req.RdIsX0 && req.Rs1IsX0:
		vl = vlmax
	case req.RdIsX0 && req.Rs1IsX0:
		vl = s.VL

		if vl > vlmax {
			if s.StripMineVlmaxOnReconfig {
				vl = vlmax
			} else if s.Vill == VillTrap {
				return 0, ErrIllegal
			} else {
				s.VType = VType{Vill: true}
				s.VL = 0

				return 0, nil
			}
		}
	default:
		if req.AVL <= vlmax {
			vl = req.AVL
		} else {
			vl = vlmax
		}
	}

	s.VType = req.Requested
	s.VL = vl

	return vl, nil
}
