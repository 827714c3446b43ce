package telemetry

import (
	"errors"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// RegisterWriter stores a block of holding registers starting at addr
type RegisterWriter interface {
	WriteRegisters(addr uint16, regs []uint16) error
}

type WriterConfig struct {
	Endpoint string
	UnitID   uint8
	Timeout  time.Duration
}

// ModbusWriter is a single Modbus TCP connection to the status endpoint.
// The connection is opened on the first write and reopened after a failure.
type ModbusWriter struct {
	mu      sync.Mutex
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

func NewModbusWriter(cfg WriterConfig) (*ModbusWriter, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("telemetry modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(cfg.Endpoint)
	h.Timeout = cfg.Timeout
	h.SlaveId = cfg.UnitID

	return &ModbusWriter{
		handler: h,
		client:  modbus.NewClient(h),
	}, nil
}

func (w *ModbusWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handler.Close()
}

func (w *ModbusWriter) WriteRegisters(addr uint16, regs []uint16) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	qty := uint16(len(regs))
	payload := packRegisters(regs)

	if _, err := w.client.WriteMultipleRegisters(addr, qty, payload); err != nil {
		w.handler.Close()
		return err
	}
	return nil
}

func packRegisters(regs []uint16) []byte {
	out := make([]byte, len(regs)*2)
	for i, r := range regs {
		out[2*i] = byte(r >> 8)
		out[2*i+1] = byte(r)
	}
	return out
}
