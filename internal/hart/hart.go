// Package hart assembles the vector register file, the PMA-backed memory
// system, the vector type state, and the operand legality checker into a
// single hart-wide object, and drives the per-instruction cycle over them.
//
// It is grounded on smoynes-elsie's internal/vm: LC3 composes its
// registers and memory into one struct and runs an instruction cycle in
// Step/Run (fetch, decode, eval-address, fetch-operands, execute,
// writeback). Decoding and address evaluation are front-end concerns
// spec.md places out of scope, so Hart's cycle collapses to three stages
// that mirror the teacher's shape: legalize (the checker, standing in for
// fetch+decode), execute (the caller-supplied engine call, standing in for
// eval-address+fetch-operands+execute), and commit (persist vstart and any
// cumulative flags, standing in for writeback).
package hart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rvvsim/rvvsim/internal/isa"
	"github.com/rvvsim/rvvsim/internal/log"
	"github.com/rvvsim/rvvsim/internal/pma"
	"github.com/rvvsim/rvvsim/internal/vector"
	"github.com/rvvsim/rvvsim/internal/vmem"
	"github.com/rvvsim/rvvsim/internal/vreg"
	"github.com/rvvsim/rvvsim/internal/vtype"
)

// ErrHalted mirrors the teacher's sentinel for stepping a stopped hart.
var ErrHalted = errors.New("halted")

// Hart is the vector-subset hart state spec.md §3 describes: the register
// file, the cached vtype/vl/vstart state, the fixed-point and
// floating-point cumulative flags, the legality checker, and the memory
// system every load and store runs through.
type Hart struct {
	VType *vtype.State
	VRF   *vreg.File
	Mem   *vmem.Memory
	Pma   *pma.Map

	Checker *vector.Checker

	FixedPoint vector.FixedPointState
	Float      vector.FCSRFlags

	VStart    uint64
	VSEnabled bool
	MstatusVS vector.MstatusVS

	running bool
	log     *log.Logger
}

// Config supplies the construction-time knobs for a new Hart.
type Config struct {
	VLEN      uint64
	Vill      vtype.VillBehavior
	Checker   vector.CheckerConfig
	VSEnabled bool
	MstatusVS vector.MstatusVS
}

// New assembles a Hart around the given PMA map and RAM buffer, per
// [Config]. The hart starts with the vector extension usable and the
// register file zeroed, mirroring the teacher's New(...OptionFn) assembly
// except that, since decoding is out of scope, there is no device map or
// privilege drop to run before first use: callers install devices on the
// PMA map directly.
func New(cfg Config, pmaMap *pma.Map, ramBase uint64, ram []byte) *Hart {
	h := &Hart{
		VType:     vtype.NewState(cfg.VLEN, cfg.Vill),
		VRF:       vreg.NewFile(cfg.VLEN),
		Pma:       pmaMap,
		Checker:   vector.NewChecker(cfg.Checker),
		VSEnabled: cfg.VSEnabled,
		MstatusVS: cfg.MstatusVS,
		running:   true,
		log:       log.DefaultLogger(),
	}

	h.Mem = vmem.NewMemory(pmaMap, ramBase, ram)

	return h
}

// WithLogger replaces the hart's logger, mirroring the teacher's
// updateLogger hook.
func (h *Hart) WithLogger(l *log.Logger) *Hart {
	h.log = l
	return h
}

// WithTrigger installs the debug-trigger callback the memory engine
// consults before every element access.
func (h *Hart) WithTrigger(fn vmem.TriggerFunc) *Hart {
	h.Mem.WithTrigger(fn)
	return h
}

// Halt stops Run and causes Step to return ErrHalted, mirroring MCR's
// Running() flag.
func (h *Hart) Halt() { h.running = false }

// Running reports whether the hart will continue stepping.
func (h *Hart) Running() bool { return h.running }

func (h *Hart) String() string {
	return fmt.Sprintf(
		"vl=%d vstart=%d sew=%d lmul=%d vill=%t vxrm=%d vxsat=%t",
		h.VType.VL, h.VStart, h.VType.VType.SEW, h.VType.VType.LMUL,
		h.VType.VType.Vill, h.FixedPoint.VXRM, h.FixedPoint.VXSAT,
	)
}

// LegalityArgs bundles the operand-shape facts the checker's seven rules
// need beyond the hart's own state, which Check reads directly. Every
// field mirrors a [vector.Checker.Check] parameter.
type LegalityArgs struct {
	Operands                     []vector.OperandInfo
	IsWideningDest               bool
	IsNarrowingDest              bool
	SrcForOverlap, DstForOverlap int
	GroupSrc, GroupDst           int
	NoOverlapAllowed             bool
	IsReduction                  bool
}

// Legalize runs the operand legality checker against the hart's current
// vtype/vstart/extension-enable state, standing in for the teacher's
// fetch+decode stage: nothing below it runs unless this succeeds.
func (h *Hart) Legalize(in *isa.Instruction, args LegalityArgs) error {
	return h.Checker.Check(
		in,
		h.VType,
		h.VSEnabled,
		h.MstatusVS,
		h.VStart,
		args.Operands,
		args.IsWideningDest, args.IsNarrowingDest,
		args.SrcForOverlap, args.DstForOverlap,
		args.GroupSrc, args.GroupDst,
		args.NoOverlapAllowed,
		args.IsReduction,
	)
}

// ArithOp runs a legality-checked arithmetic, fixed-point, reduction, or
// permute instruction: the element loop itself never faults (it has no
// memory side effects), so on success vstart simply resets to 0 per the
// instruction-completes-clears-vstart rule every vector ISA manual states.
// fn is the already-bound call into package vector (e.g. a closure over
// vector.RunIntBinary's arguments).
func (h *Hart) ArithOp(in *isa.Instruction, args LegalityArgs, fn func()) error {
	if err := h.Legalize(in, args); err != nil {
		h.log.Debug("instruction rejected by legality checker", "ID", in.ID, "ERR", err)
		return err
	}

	fn()
	h.VStart = 0

	h.log.Debug("executed arithmetic instruction", "ID", in.ID, log.Group("STATE", h))

	return nil
}

// MemOp runs a legality-checked load or store: fn invokes the memory
// engine (package vmem) and returns its Result. On a fault, VStart persists
// the faulting element index so a restarted instruction resumes correctly;
// on a clean or fault-first-truncated commit, VStart resets to 0. MemOp
// does not change vl; a truncated commit reports the new element count in
// the returned Result's VStart.
func (h *Hart) MemOp(in *isa.Instruction, args LegalityArgs, fn func() vmem.Result) (vmem.Result, error) {
	if err := h.Legalize(in, args); err != nil {
		h.log.Debug("memory instruction rejected by legality checker", "ID", in.ID, "ERR", err)
		return vmem.Result{}, err
	}

	res := fn()

	switch res.State {
	case vmem.StateFaulted:
		h.VStart = res.VStart
		h.log.Debug("memory access faulted", "ID", in.ID, "FAULT", res.Fault, log.Group("STATE", h))

		if res.Fault != nil {
			return res, res.Fault
		}

		return res, fmt.Errorf("hart: trigger hit at element %d", res.VStart)
	case vmem.StateCommitted:
		h.VStart = 0
		h.log.Debug("memory instruction committed", "ID", in.ID, "TRUNCATED", res.Truncated, log.Group("STATE", h))

		return res, nil
	default:
		return res, fmt.Errorf("hart: memory engine left result in state %v", res.State)
	}
}

// SetVL applies a vsetvl{,i,vli} request to the hart's vtype state,
// resetting vstart to 0 on success per the architecture's rule that any
// successful vset instruction clears vstart.
func (h *Hart) SetVL(req vtype.SetVLRequest) (uint64, error) {
	vl, err := h.VType.SetVL(req)
	if err != nil {
		h.log.Debug("vsetvl rejected", "ERR", err)
		return 0, err
	}

	h.VStart = 0
	h.log.Debug("vsetvl applied", log.Group("STATE", h))

	return vl, nil
}

// Next produces the hart's next unit of work: a fully legality-described
// operation ready for ArithOp or MemOp, or ok=false to halt the Run loop.
// Supplying this is the caller's responsibility since instruction fetch
// and decode are out of scope; Next stands in for the teacher's
// Fetch+Decode stage.
type Next func(h *Hart) (op func() error, ok bool)

// Run drives the hart until ctx is cancelled, Next reports no more work,
// or a step returns an error, mirroring the teacher's Run(ctx) loop
// structure (cancellation check, halt check, step, log) with
// serviceInterrupts omitted, since trigger/exception routing into the
// rest of the hart is out of scope per spec.md.
func (h *Hart) Run(ctx context.Context, next Next) error {
	var err error

	h.log.Info("START", log.Group("STATE", h))

	for {
		select {
		case <-ctx.Done():
			h.log.Warn("CANCELLED")
			return ctx.Err()
		default:
		}

		if !h.running {
			break
		}

		step, ok := next(h)
		if !ok {
			break
		}

		if err = step(); err != nil {
			break
		}

		h.log.Info("EXEC", log.Group("STATE", h))
	}

	if err != nil {
		h.log.Error("HALTED", "ERR", err, log.Group("STATE", h))
	} else {
		h.log.Info("HALTED", log.Group("STATE", h))
	}

	return err
}
