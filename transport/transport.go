// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"time"
)

// Port is a duplex byte channel to the device. A Port is owned by exactly
// one read cycle and must not be shared between goroutines.
type Port interface {
	Write(p []byte) (int, error)

	// ReadAvailable returns at most max bytes that are already buffered by
	// the driver, without waiting for more. An empty result is not an error.
	ReadAvailable(max int) ([]byte, error)

	Close() error
}

// Opener opens and configures the device behind a Port.
// The port is 8 data bits, 1 stop bit, no parity, raw mode, no flow control.
type Opener interface {
	Open(ctx context.Context) (Port, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Port, error)

func (f OpenerFunc) Open(ctx context.Context) (Port, error) {
	return f(ctx)
}

// Clock is the time source for polling loops.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
