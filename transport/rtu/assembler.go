// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	rtupacket "github.com/ffutop/must-reader/modbus/rtu"
	"github.com/ffutop/must-reader/transport"
)

// BoundedOptions controls ReadBounded.
type BoundedOptions struct {
	Attempts int
	Interval time.Duration

	// Logger receives the request/response dumps. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultBoundedOptions gives up after roughly four seconds.
var DefaultBoundedOptions = BoundedOptions{
	Attempts: 40,
	Interval: 100 * time.Millisecond,
}

// TimeoutOptions controls ReadTimeout.
type TimeoutOptions struct {
	Timeout  time.Duration
	Interval time.Duration
	Chunk    int

	// Logger receives the request/response dumps. Nil means slog.Default().
	Logger *slog.Logger
}

var DefaultTimeoutOptions = TimeoutOptions{
	Timeout:  600 * time.Millisecond,
	Interval: 20 * time.Millisecond,
	Chunk:    512,
}

// ReadBounded writes cmd and polls port up to opts.Attempts times. Each
// attempt looks only at the bytes available at that moment; once they cover
// the whole response they are truncated to its size and returned.
//
// A failed read counts as an attempt without data. A nil frame with a nil
// error means the device did not answer in time.
func ReadBounded(ctx context.Context, port transport.Port, clock transport.Clock, cmd rtupacket.Command, opts BoundedOptions) ([]byte, error) {
	logger := loggerOr(opts.Logger)
	if err := send(logger, port, cmd); err != nil {
		return nil, err
	}
	expected := cmd.ExpectedLength()

	for attempt := 0; attempt < opts.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := port.ReadAvailable(rtupacket.MaxSize)
		if err != nil {
			logger.Warn("read from device failed", "request", cmd.String(), "attempt", attempt+1, "err", err)
			data = nil
		}
		if len(data) >= expected {
			frame := data[:expected]
			logger.Debug("recv from device", "response", hex.EncodeToString(frame), "attempt", attempt+1)
			return frame, nil
		}
		if err := clock.Sleep(ctx, opts.Interval); err != nil {
			return nil, err
		}
	}

	logger.Debug("no frame, retries exhausted", "request", cmd.String(), "attempts", opts.Attempts)
	return nil, nil
}

// ReadTimeout writes cmd and accumulates chunks of at most opts.Chunk bytes
// until the response is complete or opts.Timeout has elapsed since the write.
//
// A failed read contributes no bytes. A nil frame with a nil error means the
// device did not answer in time.
func ReadTimeout(ctx context.Context, port transport.Port, clock transport.Clock, cmd rtupacket.Command, opts TimeoutOptions) ([]byte, error) {
	logger := loggerOr(opts.Logger)
	if err := send(logger, port, cmd); err != nil {
		return nil, err
	}
	start := clock.Now()
	expected := cmd.ExpectedLength()
	buf := make([]byte, 0, expected)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := port.ReadAvailable(opts.Chunk)
		if err != nil {
			logger.Warn("read from device failed", "request", cmd.String(), "received", len(buf), "err", err)
			chunk = nil
		}
		buf = append(buf, chunk...)

		if len(buf) >= expected {
			frame := buf[:expected]
			logger.Debug("recv from device", "response", hex.EncodeToString(frame), "elapsed", clock.Now().Sub(start))
			return frame, nil
		}
		if clock.Now().Sub(start) > opts.Timeout {
			logger.Debug("no frame, timed out", "request", cmd.String(), "received", len(buf), "expected", expected)
			return nil, nil
		}
		if err := clock.Sleep(ctx, opts.Interval); err != nil {
			return nil, err
		}
	}
}

func send(logger *slog.Logger, port transport.Port, cmd rtupacket.Command) error {
	logger.Debug("send to device", "request", cmd.String())
	if _, err := port.Write(cmd.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", cmd, err)
	}
	return nil
}

func loggerOr(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
