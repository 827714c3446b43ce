package telemetry

import (
	"math"

	"steppump/core"
)

// Register map, relative to the configured base address
//
//	[0]          board state
//	[1+6*axis+0] motion state
//	[1+6*axis+1] steps performed, high word
//	[1+6*axis+2] steps performed, low word
//	[1+6*axis+3] supplied volume in µl, high word
//	[1+6*axis+4] supplied volume in µl, low word
//	[1+6*axis+5] flow rate in 0.01 ml/min
const (
	RegBoard     = 0
	RegAxisBase  = 1
	AxisRegs     = 6
	RegisterSize = RegAxisBase + core.NumAxes*AxisRegs
)

const (
	regMotion = iota
	regStepsHi
	regStepsLo
	regVolumeHi
	regVolumeLo
	regFlow
)

// Registers encodes snap with the register map above
func Registers(snap core.Snapshot) []uint16 {
	regs := make([]uint16, RegisterSize)
	regs[RegBoard] = uint16(snap.Board)

	for i := 0; i < core.NumAxes; i++ {
		axis := core.AxisID(i)
		a := snap.Axes[i]
		base := RegAxisBase + i*AxisRegs

		ul := saturate32(float64(snap.SuppliedVolume(axis)) * 1000)
		flow := saturate16(float64(snap.FlowRate(axis)) * 100)

		regs[base+regMotion] = uint16(a.State)
		regs[base+regStepsHi] = uint16(a.Steps >> 16)
		regs[base+regStepsLo] = uint16(a.Steps)
		regs[base+regVolumeHi] = uint16(ul >> 16)
		regs[base+regVolumeLo] = uint16(ul)
		regs[base+regFlow] = flow
	}
	return regs
}

func saturate32(v float64) uint32 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}

func saturate16(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}
