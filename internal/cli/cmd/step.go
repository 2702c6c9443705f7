package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rvvsim/rvvsim/internal/cli"
	"github.com/rvvsim/rvvsim/internal/hart"
	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/log"
	"github.com/rvvsim/rvvsim/internal/vector"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// step builds a hart from a config file, loads two SEW32 operand vectors
// into v1 and v2, runs one vadd.vv into v0, and prints the result. Since
// instruction decoding is out of scope for the hart itself, this command's
// "program" is the single hard-wired operation a front end would normally
// supply as a decoded instruction record.
type step struct {
	fs     *flag.FlagSet
	config *string
	a, b   *string
}

var _ cli.Command = (*step)(nil)

func Step() *step {
	s := &step{fs: flag.NewFlagSet("step", flag.ExitOnError)}
	s.config = s.fs.String("config", "", "path to a hart TOML configuration file")
	s.a = s.fs.String("a", "1,2,3,4", "comma-separated uint32 values for v1")
	s.b = s.fs.String("b", "10,20,30,40", "comma-separated uint32 values for v2")

	return s
}

func (*step) Description() string {
	return "run one vadd.vv against two operand vectors and print the result"
}

func (s *step) FlagSet() *cli.FlagSet { return s.fs }

func (*step) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, "step -config <path> [-a v,v,...] [-b v,v,...]")
	return err
}

func parseUint32List(s string) ([]uint32, error) {
	fields := strings.Split(s, ",")
	out := make([]uint32, 0, len(fields))

	for _, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", f, err)
		}

		out = append(out, uint32(v))
	}

	return out, nil
}

func (s *step) Run(_ context.Context, _ []string, out io.Writer, logger *log.Logger) int {
	a, err := parseUint32List(*s.a)
	if err != nil {
		logger.Error("step: parse -a", "ERR", err)
		return 1
	}

	b, err := parseUint32List(*s.b)
	if err != nil {
		logger.Error("step: parse -b", "ERR", err)
		return 1
	}

	h, err := loadHart(*s.config)
	if err != nil {
		logger.Error("step: setup", "ERR", err)
		return 1
	}

	vl := uint64(len(a))
	if uint64(len(b)) < vl {
		vl = uint64(len(b))
	}

	if _, err := h.SetVL(vtype.SetVLRequest{
		Requested: vtype.VType{SEW: vtype.SEW32, LMUL: vtype.LMUL1, TA: true, MA: true},
		RdIsX0:    false,
		Rs1IsX0:   false,
		AVL:       vl,
	}); err != nil {
		logger.Error("step: vsetvl", "ERR", err)
		return 1
	}

	for i, v := range a {
		vreg.WriteElem[uint32](h.VRF, 1, i, 1, v)
	}

	for i, v := range b {
		vreg.WriteElem[uint32](h.VRF, 2, i, 1, v)
	}

	in := &isa.Instruction{ID: vector.InstrVAdd}
	args := hart.LegalityArgs{
		Operands: []vector.OperandInfo{
			{Reg: 0, EEW: vtype.SEW32, EMUL: 8, IsDest: true},
			{Reg: 1, EEW: vtype.SEW32, EMUL: 8},
			{Reg: 2, EEW: vtype.SEW32, EMUL: 8},
		},
	}

	err = h.ArithOp(in, args, func() {
		l := vector.Loop{VStart: 0, VL: vl}
		vector.RunIntBinary(h.VRF, vtype.SEW32, true, vector.OpAdd, 0, 1, 2, 1, l, nil)
	})
	if err != nil {
		logger.Error("step: execute", "ERR", err)
		return 1
	}

	fmt.Fprintf(out, "vl=%d\n", vl)

	for i := uint64(0); i < vl; i++ {
		fmt.Fprintf(out, "v0[%d] = %d\n", i, vreg.ReadElem[uint32](h.VRF, 0, int(i), 1))
	}

	return 0
}
