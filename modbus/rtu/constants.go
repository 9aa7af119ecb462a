// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

const (
	// HeaderSize covers address, function code and byte count.
	HeaderSize = 3
	// TrailerSize is the checksum.
	TrailerSize = 2

	// MaxSize is the largest RTU frame.
	MaxSize = 256

	// CommandSize is a read request: address, function, start(2), count(2), crc(2).
	CommandSize = 8

	// MaxRegisters keeps a response inside one 256 byte RTU frame.
	MaxRegisters = 125
)

const FuncCodeReadHoldingRegister = 0x03

// Commands understood by MUST PV/PH series devices at address 0x04.
const (
	// ChargerCommand reads 21 registers of charger state starting at 15201.
	ChargerCommand = "04 03 3B 61 00 15"
	// InverterCommand reads 74 registers of inverter state starting at 25201.
	InverterCommand = "04 03 62 71 00 4A"
)
