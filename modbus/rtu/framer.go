// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"fmt"

	"github.com/ffutop/must-reader/modbus/crc"
)

// FrameLengthError reports a response whose size does not match the
// requested register count. Assemblers always truncate to the expected size,
// so seeing this means a caller bypassed them.
type FrameLengthError struct {
	Expected int
	Actual   int
}

func (e *FrameLengthError) Error() string {
	return fmt.Sprintf("invalid frame length, expected %d got %d", e.Expected, e.Actual)
}

// Extract splits a response frame into n registers rendered as four upper
// case hex digits. The first three and last two bytes are skipped by
// position; the header is not parsed.
func Extract(frame []byte, n int) ([]string, error) {
	if len(frame) != ResponseLength(n) {
		return nil, &FrameLengthError{Expected: ResponseLength(n), Actual: len(frame)}
	}

	out := make([]string, 0, n)
	var high byte
	for i, b := range frame {
		if i < HeaderSize || i >= len(frame)-TrailerSize {
			continue
		}
		if (i-HeaderSize)%2 == 0 {
			high = b
			continue
		}
		out = append(out, fmt.Sprintf("%02X%02X", high, b))
	}
	return out, nil
}

// VerifyTrailer reports whether the last two bytes of frame are the
// checksum of everything before them.
func VerifyTrailer(frame []byte) bool {
	if len(frame) < TrailerSize+1 {
		return false
	}
	body := frame[:len(frame)-TrailerSize]
	var c crc.CRC
	sum := c.Reset().PushBytes(body).Bytes()
	return sum[0] == frame[len(frame)-2] && sum[1] == frame[len(frame)-1]
}
