// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the frame check sequence used by MUST
// charger/inverter devices. The device firmware computes it bit-serially on
// two 8-bit accumulators (reduction 0xA0 high, 0x01 low) and this package
// keeps that shape so it can be checked against the vendor documentation.
package crc

// CRC holds the two 8-bit accumulators of the running checksum.
type CRC struct {
	low  byte
	high byte
}

// Reset sets both accumulators back to 0xFF.
func (crc *CRC) Reset() *CRC {
	crc.low = 0xFF
	crc.high = 0xFF
	return crc
}

// PushByte folds one byte into the checksum.
func (crc *CRC) PushByte(b byte) *CRC {
	crc.low ^= b
	for i := 0; i < 8; i++ {
		carry := crc.high & 1
		out := crc.low & 1

		crc.high >>= 1
		crc.low >>= 1
		if carry == 1 {
			crc.low |= 0x80
		}
		if out == 1 {
			crc.high ^= 0xA0
			crc.low ^= 0x01
		}
	}
	return crc
}

func (crc *CRC) PushBytes(bs []byte) *CRC {
	for _, b := range bs {
		crc.PushByte(b)
	}
	return crc
}

// Value returns the checksum with the low accumulator in the low byte.
func (crc *CRC) Value() uint16 {
	return uint16(crc.high)<<8 | uint16(crc.low)
}

// Bytes returns the checksum in wire order (low, high).
func (crc *CRC) Bytes() [2]byte {
	return [2]byte{crc.low, crc.high}
}

// Append returns data followed by its two checksum bytes. data is not modified.
func Append(data []byte) []byte {
	var crc CRC
	sum := crc.Reset().PushBytes(data).Bytes()

	out := make([]byte, 0, len(data)+2)
	out = append(out, data...)
	return append(out, sum[0], sum[1])
}
