// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package reader

import (
	"context"
	"errors"
	"time"

	"github.com/ffutop/must-reader/internal/telemetry"
)

// Run calls ReadAll every interval until ctx is done, handing each record to
// sink. A cycle always finishes, port closed, before the next one starts.
// Open failures are logged and retried on the next tick.
func (r *Reader) Run(ctx context.Context, interval time.Duration, sink func(telemetry.Record)) error {
	if interval <= 0 {
		return errors.New("reader: interval must be > 0")
	}

	for {
		started := r.clock.Now()

		rec, err := r.ReadAll(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			r.logger.Error("Read cycle failed", "err", err)
		default:
			sink(rec)
		}

		wait := interval - r.clock.Now().Sub(started)
		if wait < 0 {
			wait = 0
		}
		if err := r.clock.Sleep(ctx, wait); err != nil {
			return nil
		}
	}
}
