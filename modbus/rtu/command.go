// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ffutop/must-reader/modbus/crc"
)

// Command is an encoded read request including its checksum.
// The zero value is not usable; build one with NewCommand or CommandFromHex.
type Command struct {
	raw []byte
}

// NewCommand encodes a read holding registers request:
//
//	Slave Address   : 1 byte
//	Function        : 1 byte (0x03)
//	Start Register  : 2 bytes
//	Register Count  : 2 bytes
//	CRC             : 2 bytes
func NewCommand(address byte, start, count uint16) (Command, error) {
	if count == 0 || count > MaxRegisters {
		return Command{}, fmt.Errorf("modbus: register count '%v' must be between 1 and '%v'", count, MaxRegisters)
	}
	payload := make([]byte, CommandSize-TrailerSize)
	payload[0] = address
	payload[1] = FuncCodeReadHoldingRegister
	binary.BigEndian.PutUint16(payload[2:], start)
	binary.BigEndian.PutUint16(payload[4:], count)
	return Command{raw: crc.Append(payload)}, nil
}

// CommandFromHex builds a command from its hex text, e.g. "04 03 3B 61 00 15".
func CommandFromHex(text string) (Command, error) {
	payload, err := ParseHex(text)
	if err != nil {
		return Command{}, err
	}
	if len(payload) != CommandSize-TrailerSize {
		return Command{}, fmt.Errorf("modbus: command '%v' must be %v bytes, got %v", text, CommandSize-TrailerSize, len(payload))
	}
	if payload[1] != FuncCodeReadHoldingRegister {
		return Command{}, fmt.Errorf("modbus: unsupported function code: 0x%02X", payload[1])
	}
	return NewCommand(payload[0], binary.BigEndian.Uint16(payload[2:]), binary.BigEndian.Uint16(payload[4:]))
}

// MustCommandFromHex is like CommandFromHex but panics on malformed input.
func MustCommandFromHex(text string) Command {
	cmd, err := CommandFromHex(text)
	if err != nil {
		panic(err)
	}
	return cmd
}

// ParseHex strips spaces from text, pads an odd trailing nibble with zero
// and decodes the result.
func ParseHex(text string) ([]byte, error) {
	text = strings.ReplaceAll(text, " ", "")
	if len(text)%2 != 0 {
		text += "0"
	}
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("modbus: invalid hex %q: %w", text, err)
	}
	return b, nil
}

// Bytes returns a copy of the wire bytes.
func (c Command) Bytes() []byte {
	return append([]byte(nil), c.raw...)
}

func (c Command) SlaveID() byte {
	return c.raw[0]
}

func (c Command) StartRegister() uint16 {
	return binary.BigEndian.Uint16(c.raw[2:])
}

func (c Command) RegisterCount() int {
	return int(binary.BigEndian.Uint16(c.raw[4:]))
}

// ExpectedLength returns the size of a complete response to c.
func (c Command) ExpectedLength() int {
	return ResponseLength(c.RegisterCount())
}

func (c Command) String() string {
	return hex.EncodeToString(c.raw)
}

// ResponseLength returns the frame size carrying n registers.
func ResponseLength(n int) int {
	return HeaderSize + 2*n + TrailerSize
}
