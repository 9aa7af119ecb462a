// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ffutop/must-reader/internal/telemetry"
	rtupacket "github.com/ffutop/must-reader/modbus/rtu"
	"github.com/ffutop/must-reader/transport"
	"github.com/ffutop/must-reader/transport/rtu"
)

// DefaultCommandDelay separates the two commands; the device drops a
// request that follows the previous response too closely.
const DefaultCommandDelay = 30 * time.Millisecond

// TransportOpenError is returned by ReadAll when the port cannot be opened.
type TransportOpenError struct {
	Err error
}

func (e *TransportOpenError) Error() string {
	return fmt.Sprintf("open transport: %v", e.Err)
}

func (e *TransportOpenError) Unwrap() error {
	return e.Err
}

// Reader runs read cycles against one device. Calls to ReadAll are
// serialized; each cycle owns the port from open to close.
type Reader struct {
	opener transport.Opener
	clock  transport.Clock
	logger *slog.Logger

	chargerCmd  rtupacket.Command
	inverterCmd rtupacket.Command

	commandDelay time.Duration
	bounded      rtu.BoundedOptions
	timeout      rtu.TimeoutOptions

	mu sync.Mutex
}

// Option configures a Reader.
type Option func(*Reader)

func WithClock(c transport.Clock) Option {
	return func(r *Reader) { r.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

func WithCommandDelay(d time.Duration) Option {
	return func(r *Reader) { r.commandDelay = d }
}

// WithChargerPolling sets the bounded-retry discipline of the charger command.
func WithChargerPolling(opts rtu.BoundedOptions) Option {
	return func(r *Reader) { r.bounded = opts }
}

// WithInverterPolling sets the wall-clock discipline of the inverter command.
func WithInverterPolling(opts rtu.TimeoutOptions) Option {
	return func(r *Reader) { r.timeout = opts }
}

// WithCommands replaces the charger and inverter requests, e.g. for a
// device at another address.
func WithCommands(charger, inverter rtupacket.Command) Option {
	return func(r *Reader) {
		r.chargerCmd = charger
		r.inverterCmd = inverter
	}
}

// New creates a Reader that opens its port through opener.
func New(opener transport.Opener, opts ...Option) *Reader {
	r := &Reader{
		opener:       opener,
		clock:        transport.SystemClock{},
		logger:       slog.Default(),
		chargerCmd:   rtupacket.MustCommandFromHex(rtupacket.ChargerCommand),
		inverterCmd:  rtupacket.MustCommandFromHex(rtupacket.InverterCommand),
		commandDelay: DefaultCommandDelay,
		bounded:      rtu.DefaultBoundedOptions,
		timeout:      rtu.DefaultTimeoutOptions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadAll opens the port, queries charger and inverter blocks and returns
// the merged record. A block that does not arrive or does not decode is
// left out, so the record may be partial or empty. Only failing to open the
// port, or ctx ending, is reported as an error.
func (r *Reader) ReadAll(ctx context.Context) (telemetry.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.logger.With("cycle", uuid.New().String())

	port, err := r.opener.Open(ctx)
	if err != nil {
		return nil, &TransportOpenError{Err: err}
	}
	defer func() {
		if err := port.Close(); err != nil {
			logger.Warn("Failed to close transport", "err", err)
		}
	}()

	result := telemetry.Record{}

	bounded := r.bounded
	bounded.Logger = logger
	frame, err := rtu.ReadBounded(ctx, port, r.clock, r.chargerCmd, bounded)
	if err := r.degrade(ctx, logger, "charger", err); err != nil {
		return nil, err
	}
	if rec, ok := r.decode(logger, "charger", frame, r.chargerCmd, telemetry.DecodeCharger); ok {
		result.Merge(rec)
	}

	if err := r.clock.Sleep(ctx, r.commandDelay); err != nil {
		return nil, err
	}

	timeout := r.timeout
	timeout.Logger = logger
	frame, err = rtu.ReadTimeout(ctx, port, r.clock, r.inverterCmd, timeout)
	if err := r.degrade(ctx, logger, "inverter", err); err != nil {
		return nil, err
	}
	if rec, ok := r.decode(logger, "inverter", frame, r.inverterCmd, telemetry.DecodeInverter); ok {
		result.Merge(rec)
	}

	logger.Debug("Read cycle finished", "fields", result.Keys())
	return result, nil
}

// degrade turns an I/O failure of one block into missing data. Cancellation
// is passed through.
func (r *Reader) degrade(ctx context.Context, logger *slog.Logger, block string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return err
	}
	logger.Warn("Block read failed", "block", block, "err", err)
	return nil
}

func (r *Reader) decode(logger *slog.Logger, block string, frame []byte, cmd rtupacket.Command, decode func([]string) (telemetry.Record, bool)) (telemetry.Record, bool) {
	if frame == nil {
		logger.Warn("No frame received", "block", block)
		return nil, false
	}
	if !rtupacket.VerifyTrailer(frame) {
		logger.Debug("Frame checksum mismatch", "block", block)
	}

	regs, err := rtupacket.Extract(frame, cmd.RegisterCount())
	if err != nil {
		// Assemblers hand out exact-size frames only.
		logger.Error("Discarding malformed frame", "block", block, "err", err)
		return nil, false
	}
	rec, ok := decode(regs)
	if !ok {
		logger.Warn("Register block does not match schema", "block", block, "registers", len(regs))
	}
	return rec, ok
}
