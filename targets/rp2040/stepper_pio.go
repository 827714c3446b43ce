//go:build rp2040

package main

// PIO step line backend using tinygo-org/pio
// The scheduler decides when the step line changes; the state machine
// latches each requested level onto the pin.

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"steppump/core"
)

// buildStepLevelProgram creates the two instruction level latch
func buildStepLevelProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),          // 0: pull block
		asm.Out(rp2pio.OutDestPins, 1).Encode(), // 1: out pins, 1 (step level)
		// .wrap
	}
}

const stepLevelOrigin = -1 // Any free slot; the program has no absolute jumps

var errNoStateMachine = errors.New("pio: no free state machine")

var (
	// The program is loaded once per PIO block and shared by its state machines
	programOffsets [2]uint8
	programLoaded  [2]bool

	// PIO allocation tracking: 2 PIO blocks with 4 state machines each
	pioAllocations = [2][4]bool{}
)

// PIOStepperBackend drives the step line through a PIO state machine and the
// direction line as a plain GPIO
type PIOStepperBackend struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	pioNum  uint8
	stepPin machine.Pin
	dirPin  machine.Pin
}

// allocatePIOBackend claims the next free state machine
func allocatePIOBackend() (*PIOStepperBackend, error) {
	for pioNum := uint8(0); pioNum < 2; pioNum++ {
		pioHW := rp2pio.PIO0
		if pioNum == 1 {
			pioHW = rp2pio.PIO1
		}
		for smNum := uint8(0); smNum < 4; smNum++ {
			if pioAllocations[pioNum][smNum] {
				continue
			}
			sm := pioHW.StateMachine(smNum)
			if !sm.TryClaim() {
				continue
			}
			pioAllocations[pioNum][smNum] = true
			return &PIOStepperBackend{pio: pioHW, sm: sm, pioNum: pioNum}, nil
		}
	}
	return nil, errNoStateMachine
}

func (b *PIOStepperBackend) Init(stepPin, dirPin core.GPIOPin) error {
	b.stepPin = machine.Pin(stepPin)
	b.dirPin = machine.Pin(dirPin)

	if !programLoaded[b.pioNum] {
		offset, err := b.pio.AddProgram(buildStepLevelProgram(), stepLevelOrigin)
		if err != nil {
			return err
		}
		programOffsets[b.pioNum] = offset
		programLoaded[b.pioNum] = true
	}
	offset := programOffsets[b.pioNum]

	b.stepPin.Configure(machine.PinConfig{Mode: b.pio.PinMode()})
	b.dirPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.dirPin.Low()

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(b.stepPin, 1)
	// Shift right, no autopull, 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	b.sm.Init(offset, cfg)

	// Pin directions must be set after Init
	b.sm.SetPindirsConsecutive(b.stepPin, 1, true)
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)

	b.sm.SetEnabled(true)
	return nil
}

// SetStep queues a step line level. The FIFO is four words deep and drained
// within a few PIO cycles, so the wait is bounded.
func (b *PIOStepperBackend) SetStep(high bool) {
	word := uint32(0)
	if high {
		word = 1
	}
	for b.sm.IsTxFIFOFull() {
	}
	b.sm.TxPut(word)
}

func (b *PIOStepperBackend) SetDirection(reverse bool) {
	b.dirPin.Set(reverse)
}

// Stop drops queued levels and forces the step line low
func (b *PIOStepperBackend) Stop() {
	b.sm.SetEnabled(false)
	b.sm.ClearFIFOs()
	b.sm.Restart()
	b.sm.SetPinsConsecutive(b.stepPin, 1, false)
	b.sm.SetEnabled(true)
}

func (b *PIOStepperBackend) GetName() string {
	return "PIO"
}
