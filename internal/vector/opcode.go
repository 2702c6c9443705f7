package vector

import "github.com/rvvsim/rvvsim/internal/isa"

// Instruction identifiers the engine's per-class tables dispatch on. These
// are deliberately sparse relative to the full RV vector extension: each
// one stands in for a family the table-driven element functions already
// generalize over SEW and signedness, per the engine's design.
const (
	InstrVAdd isa.InstrID = iota
	InstrVSub
	InstrVRSub
	InstrVAnd
	InstrVOr
	InstrVXor
	InstrVSll
	InstrVSrl
	InstrVSra
	InstrVMinu
	InstrVMin
	InstrVMaxu
	InstrVMax
	InstrVMul
	InstrVMulhu
	InstrVMulh
	InstrVMulhsu
	InstrVMacc
	InstrVNmsac
	InstrVMadd
	InstrVNmsub
	InstrVDivu
	InstrVDiv
	InstrVRemu
	InstrVRem
	InstrVSext
	InstrVZext

	InstrVAdc
	InstrVSbc
	InstrVMadc
	InstrVMsbc

	InstrVSaddu
	InstrVSadd
	InstrVSsubu
	InstrVSsub
	InstrVAadd
	InstrVAsub
	InstrVSmul
	InstrVSsrl
	InstrVSsra
	InstrVNclipu
	InstrVNclip

	InstrVFAdd
	InstrVFSub
	InstrVFRSub
	InstrVFMul
	InstrVFDiv
	InstrVFRDiv
	InstrVFSqrt
	InstrVFMin
	InstrVFMax
	InstrVFMacc
	InstrVFNmacc
	InstrVFMsac
	InstrVFNmsac
	InstrVFMadd
	InstrVFNmadd
	InstrVFMsub
	InstrVFNmsub
	InstrVFClass
	InstrVFSgnj
	InstrVFSgnjn
	InstrVFSgnjx
	InstrVFRec7
	InstrVFRsqrt7
	InstrVMFEq
	InstrVMFNe
	InstrVMFLt
	InstrVMFLe
	InstrVMFGt
	InstrVMFGe

	InstrVRedSum
	InstrVRedMaxu
	InstrVRedMax
	InstrVRedMinu
	InstrVRedMin
	InstrVRedAnd
	InstrVRedOr
	InstrVRedXor
	InstrVFRedOSum
	InstrVFRedUSum
	InstrVFWRedUSum

	InstrVRGather
	InstrVRGatherEI16
	InstrVCompress
	InstrVSlideUp
	InstrVSlideDown
	InstrVSlide1Up
	InstrVSlide1Down
	InstrVMvXS
	InstrVMvSX
	InstrVmvNR

	InstrVMAnd
	InstrVMNand
	InstrVMOr
	InstrVMNor
	InstrVMXor
	InstrVMXnor
	InstrVMAndn
	InstrVMOrn
	InstrVCpop
	InstrVFirst
	InstrVMsbf
	InstrVMsif
	InstrVMsof
	InstrVIota
	InstrVId
)
