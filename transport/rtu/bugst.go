// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/must-reader/internal/config"
	"github.com/ffutop/must-reader/transport"
	"go.bug.st/serial"
)

// BugstOpener opens the device with go.bug.st/serial. It is the fallback on
// platforms where github.com/grid-x/serial has no termios support.
type BugstOpener struct {
	Device      string
	Mode        serial.Mode
	ReadTimeout time.Duration
}

func NewBugstOpener(cfg config.SerialConfig) (*BugstOpener, error) {
	o := &BugstOpener{
		Device:      cfg.Device,
		ReadTimeout: cfg.ReadTimeout,
		Mode: serial.Mode{
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
		},
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = serialReadTimeout
	}

	switch cfg.Parity {
	case "N", "":
		o.Mode.Parity = serial.NoParity
	case "E":
		o.Mode.Parity = serial.EvenParity
	case "O":
		o.Mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", cfg.Parity)
	}

	switch cfg.StopBits {
	case 1, 0:
		o.Mode.StopBits = serial.OneStopBit
	case 2:
		o.Mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("unsupported stop bits %d", cfg.StopBits)
	}
	return o, nil
}

func (o *BugstOpener) Open(ctx context.Context) (transport.Port, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	port, err := serial.Open(o.Device, &o.Mode)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", o.Device, err)
	}
	// go.bug.st/serial returns (0, nil) once the read timeout expires.
	if err := port.SetReadTimeout(o.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("could not set read timeout on %s: %w", o.Device, err)
	}
	slog.Debug("serial port opened", "device", o.Device, "baudRate", o.Mode.BaudRate, "driver", config.DriverBugst)
	return &serialPort{port: port}, nil
}
