// Package telemetry mirrors the pump status into Modbus holding registers
package telemetry

import (
	"context"
	"log"
	"time"

	"steppump/core"
)

// Source provides controller snapshots
type Source interface {
	Snapshot() core.Snapshot
}

// Publisher writes a snapshot of Source to a RegisterWriter every Interval
type Publisher struct {
	Source   Source
	Writer   RegisterWriter
	Address  uint16
	Interval time.Duration

	// Logf reports write failures and recoveries; nil uses log.Printf
	Logf func(format string, args ...any)

	failing bool
}

// Publish writes one snapshot
func (p *Publisher) Publish() error {
	return p.Writer.WriteRegisters(p.Address, Registers(p.Source.Snapshot()))
}

// Run publishes immediately and then on every tick until ctx is done.
// A failed write is logged once and retried on the next tick.
func (p *Publisher) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		p.tick()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Publisher) tick() {
	err := p.Publish()
	switch {
	case err != nil && !p.failing:
		p.failing = true
		p.logf("telemetry: write failed: %v", err)
	case err == nil && p.failing:
		p.failing = false
		p.logf("telemetry: write recovered")
	}
}

func (p *Publisher) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}
