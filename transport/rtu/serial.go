// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ffutop/must-reader/internal/config"
	"github.com/ffutop/must-reader/transport"
	"github.com/grid-x/serial"
)

const (
	// Default per-read wait while draining the driver buffer.
	serialReadTimeout = 5 * time.Millisecond
)

// SerialOpener opens the device with github.com/grid-x/serial.
type SerialOpener struct {
	// Serial port configuration.
	serial.Config
}

// NewSerialOpener maps the serial section of the configuration onto the driver.
func NewSerialOpener(cfg config.SerialConfig) *SerialOpener {
	o := &SerialOpener{}
	o.Config.Address = cfg.Device
	o.Config.BaudRate = cfg.BaudRate
	o.Config.DataBits = cfg.DataBits
	o.Config.StopBits = cfg.StopBits
	o.Config.Parity = cfg.Parity
	o.Config.Timeout = cfg.ReadTimeout
	if o.Config.Timeout <= 0 {
		o.Config.Timeout = serialReadTimeout
	}
	return o
}

func (o *SerialOpener) Open(ctx context.Context) (transport.Port, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	port, err := serial.Open(&o.Config)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", o.Config.Address, err)
	}
	slog.Debug("serial port opened", "device", o.Config.Address, "baudRate", o.Config.BaudRate, "driver", config.DriverGridX)
	return &serialPort{port: port, isTimeout: isGridXTimeout}, nil
}

func isGridXTimeout(err error) bool {
	return errors.Is(err, serial.ErrTimeout)
}

// serialPort turns a blocking-with-timeout driver into a transport.Port.
type serialPort struct {
	port      io.ReadWriteCloser
	isTimeout func(error) bool
}

func (p *serialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// ReadAvailable drains whatever the driver has buffered, up to max bytes.
// A read that times out or returns nothing ends the drain.
func (p *serialPort) ReadAvailable(max int) ([]byte, error) {
	buf := make([]byte, max)
	n := 0
	for n < max {
		m, err := p.port.Read(buf[n:])
		// grid-x/serial passes syscall.Read through, which yields -1 on EIO.
		if m > 0 {
			n += m
		}
		if err != nil {
			if p.isTimeout != nil && p.isTimeout(err) {
				break
			}
			return buf[:n], err
		}
		if m <= 0 {
			break
		}
	}
	return buf[:n], nil
}

func (p *serialPort) Close() error {
	return p.port.Close()
}

// NewOpener picks the serial driver named in cfg.
func NewOpener(cfg config.SerialConfig) (transport.Opener, error) {
	switch cfg.Driver {
	case config.DriverGridX, "":
		return NewSerialOpener(cfg), nil
	case config.DriverBugst:
		return NewBugstOpener(cfg)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}
