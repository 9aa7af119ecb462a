// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package telemetry

import (
	"math"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func registers(n int, set map[int]string) []string {
	regs := make([]string, n)
	for i := range regs {
		regs[i] = "0000"
	}
	for i, v := range set {
		regs[i] = v
	}
	return regs
}

func TestTwosComplement16(t *testing.T) {
	tests := []struct {
		hex  string
		want int
	}{
		{"7FFF", 32767},
		{"8000", -32768},
		{"FFFF", -1},
		{"0000", 0},
		{"0064", 100},
		{"ff9c", -100},
	}

	for _, tt := range tests {
		t.Run(tt.hex, func(t *testing.T) {
			got, err := TwosComplement16(tt.hex)
			assert.NilError(t, err)
			assert.Equal(t, got, tt.want)
		})
	}

	_, err := TwosComplement16("XYZW")
	assert.Assert(t, err != nil)
	_, err = TwosComplement16("10000")
	assert.Assert(t, err != nil)
}

func TestDecodeCharger(t *testing.T) {
	regs := registers(21, map[int]string{
		0:  "0002",
		1:  "0001",
		2:  "0003",
		3:  "7777", // unmapped
		4:  "0064",
		5:  "0209",
		6:  "FFFF",
		7:  "01F4",
		8:  "0023",
		9:  "FFF6",
		10: "0001",
		11: "0000",
		12: "0010",
		13: "0020",
		14: "7777", // unmapped
		15: "0258",
	})

	rec, ok := DecodeCharger(regs)
	assert.Assert(t, ok)
	assert.Equal(t, len(rec), 14)
	assert.DeepEqual(t, rec, Record{
		"ChargerWorkstate":    2,
		"MpptState":           1,
		"ChargingState":       3,
		"PvVoltage":           "10.00",
		"BatteryVoltage":      "52.10",
		"ChargerCurrent":      "-0.10",
		"ChargerPower":        500,
		"RadiatorTemperature": 35,
		"ExternalTemperature": -10,
		"BatteryRelay":        1,
		"PvRelay":             0,
		"ErrorMessage":        16,
		"WarningMessage":      32,
		"RatedCurrent":        "60.00",
	})
}

func TestDecodeInverter(t *testing.T) {
	regs := registers(74, map[int]string{
		0:  "0004",
		2:  "0BB8",
		4:  "020D",
		6:  "08FC",
		12: "FF38",
		24: "1388",
		25: "1387",
		28: "0001",
		29: "8000",
		30: "0002",
		33: "002D",
		44: "0001",
		45: "000A",
		46: "FFFF",
		47: "0005",
		58: "0000",
		59: "3039",
		72: "FC18",
		73: "FFEC",
	})

	rec, ok := DecodeInverter(regs)
	assert.Assert(t, ok)
	assert.Equal(t, len(rec), len(InverterSchema.Fields))
	assert.Equal(t, len(rec), 45)

	assert.Equal(t, rec["WorkState"], 4)
	assert.Equal(t, rec["RatedPower"], 3000)
	assert.Equal(t, rec["InverterBatteryVoltage"], "52.50")
	assert.Equal(t, rec["GridVoltage"], "230.00")
	assert.Equal(t, rec["InverterVoltage"], "0.00")
	assert.Equal(t, rec["PInverter"], -200)
	assert.Equal(t, rec["GridFrequency"], "49.99")
	assert.Equal(t, rec["InverterMaxNumber"], "0001")
	assert.Equal(t, rec["CombineType"], "8000")
	assert.Equal(t, rec["InverterNumber"], "0002")
	assert.Equal(t, rec["TransformerTemperature"], 45)
	assert.Equal(t, rec["AccumulatedChargerPower"], "1001.00")
	assert.Equal(t, rec["AccumulatedDischargerPower"], "-999.50")
	assert.Equal(t, rec["AccumulatedGrid_chargerPower"], "1234.50")
	assert.Equal(t, rec["AccumulatedSellPower"], "0.00")
	assert.Equal(t, rec["BattPower"], -1000)
	assert.Equal(t, rec["BattCurrent"], -20)

	freq, ok := rec["InverterFrequency"].(float64)
	assert.Assert(t, ok, "InverterFrequency is %T", rec["InverterFrequency"])
	assert.Assert(t, math.Abs(freq-50) < 1e-9)
}

func TestDecode_WrongArity(t *testing.T) {
	tests := []struct {
		name   string
		decode func([]string) (Record, bool)
		n      int
	}{
		{"ChargerShort", DecodeCharger, 20},
		{"ChargerLong", DecodeCharger, 22},
		{"ChargerGivenInverter", DecodeCharger, 74},
		{"InverterShort", DecodeInverter, 73},
		{"InverterGivenCharger", DecodeInverter, 21},
		{"Empty", DecodeInverter, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := tt.decode(registers(tt.n, nil))
			assert.Assert(t, !ok)
			assert.Assert(t, is.Nil(rec))
		})
	}
}

func TestDecode_BadRegister(t *testing.T) {
	rec, ok := DecodeCharger(registers(21, map[int]string{4: "zz"}))
	assert.Assert(t, !ok)
	assert.Assert(t, is.Nil(rec))
}

func TestSchemas_Disjoint(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range []Schema{ChargerSchema, InverterSchema} {
		for _, f := range s.Fields {
			assert.Assert(t, !seen[f.Name], "duplicate field %s", f.Name)
			seen[f.Name] = true
			last := f.Index
			if f.Transform == Energy {
				last++
			}
			assert.Assert(t, last < s.Registers, "%s index %d out of range", f.Name, f.Index)
		}
	}
	assert.DeepEqual(t, ChargerSchema.Names()[:3], []string{"ChargerWorkstate", "MpptState", "ChargingState"})
}

func TestRecord_MergeKeys(t *testing.T) {
	r := Record{"b": 1}
	r.Merge(Record{"a": "x"})
	r.Merge(nil)
	assert.DeepEqual(t, r.Keys(), []string{"a", "b"})
}
