// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package telemetry

import "fmt"

// Transform says how a register becomes a field value.
type Transform int

const (
	// Signed is the two's complement value as an int.
	Signed Transform = iota
	// Tenth is Signed × 0.1 formatted with two decimals.
	Tenth
	// Hundredth is Signed × 0.01 formatted with two decimals.
	Hundredth
	// HundredthRaw is Signed × 0.01 left as a float64.
	HundredthRaw
	// Energy combines Index (×1000) and Index+1 (×0.1), formatted with two decimals.
	Energy
	// RawHex is the register text, not even sign corrected.
	RawHex
)

// Field is one row of a register map.
type Field struct {
	Index     int
	Name      string
	Transform Transform
}

// Schema is a fixed register map for one command.
type Schema struct {
	Name      string
	Registers int
	Fields    []Field
}

// ChargerSchema decodes the 21 register block starting at 15201.
var ChargerSchema = Schema{
	Name:      "charger",
	Registers: 21,
	Fields: []Field{
		{0, "ChargerWorkstate", Signed},
		{1, "MpptState", Signed},
		{2, "ChargingState", Signed},
		{4, "PvVoltage", Tenth},
		{5, "BatteryVoltage", Tenth},
		{6, "ChargerCurrent", Tenth},
		{7, "ChargerPower", Signed},
		{8, "RadiatorTemperature", Signed},
		{9, "ExternalTemperature", Signed},
		{10, "BatteryRelay", Signed},
		{11, "PvRelay", Signed},
		{12, "ErrorMessage", Signed},
		{13, "WarningMessage", Signed},
		{15, "RatedCurrent", Tenth},
	},
}

// InverterSchema decodes the 74 register block starting at 25201.
// InverterFrequency stays a float64 while GridFrequency is a formatted string.
var InverterSchema = Schema{
	Name:      "inverter",
	Registers: 74,
	Fields: []Field{
		{0, "WorkState", Signed},
		{1, "AcVoltageGrade", Signed},
		{2, "RatedPower", Signed},
		{4, "InverterBatteryVoltage", Tenth},
		{5, "InverterVoltage", Tenth},
		{6, "GridVoltage", Tenth},
		{7, "BusVoltage", Tenth},
		{8, "ControlCurrent", Tenth},
		{9, "InverterCurrent", Tenth},
		{10, "GridCurrent", Tenth},
		{11, "LoadCurrent", Tenth},
		{12, "PInverter", Signed},
		{13, "PGrid", Signed},
		{14, "PLoad", Signed},
		{15, "LoadPercent", Signed},
		{16, "SInverter", Signed},
		{17, "SGrid", Signed},
		{18, "Sload", Signed},
		{20, "Qinverter", Signed},
		{21, "Qgrid", Signed},
		{22, "Qload", Signed},
		{24, "InverterFrequency", HundredthRaw},
		{25, "GridFrequency", Hundredth},
		{28, "InverterMaxNumber", RawHex},
		{29, "CombineType", RawHex},
		{30, "InverterNumber", RawHex},
		{32, "AcRadiatorTemperature", Signed},
		{33, "TransformerTemperature", Signed},
		{34, "DcRadiatorTemperature", Signed},
		{36, "InverterRelayState", Signed},
		{37, "GridRelayState", Signed},
		{38, "LoadRelayState", Signed},
		{39, "N_LineRelayState", Signed},
		{40, "DCRelayState", Signed},
		{41, "EarthRelayState", Signed},
		{44, "AccumulatedChargerPower", Energy},
		{46, "AccumulatedDischargerPower", Energy},
		{48, "AccumulatedBuyPower", Energy},
		{50, "AccumulatedSellPower", Energy},
		{52, "AccumulatedLoadPower", Energy},
		{54, "AccumulatedSelf_usePower", Energy},
		{56, "AccumulatedPV_sellPower", Energy},
		{58, "AccumulatedGrid_chargerPower", Energy},
		{72, "BattPower", Signed},
		{73, "BattCurrent", Signed},
	},
}

// Decode applies s to regs. It reports false when regs has the wrong length
// or holds a register that is not hex.
func (s Schema) Decode(regs []string) (Record, bool) {
	if len(regs) != s.Registers {
		return nil, false
	}
	rec := make(Record, len(s.Fields))
	for _, f := range s.Fields {
		v, err := f.value(regs)
		if err != nil {
			return nil, false
		}
		rec[f.Name] = v
	}
	return rec, true
}

// Names lists the field names in register order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (f Field) value(regs []string) (any, error) {
	if f.Transform == RawHex {
		return regs[f.Index], nil
	}
	v, err := TwosComplement16(regs[f.Index])
	if err != nil {
		return nil, err
	}

	switch f.Transform {
	case Signed:
		return v, nil
	case Tenth:
		return fmt.Sprintf("%.2f", float64(v)*0.1), nil
	case Hundredth:
		return fmt.Sprintf("%.2f", float64(v)*0.01), nil
	case HundredthRaw:
		return float64(v) * 0.01, nil
	case Energy:
		low, err := TwosComplement16(regs[f.Index+1])
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%.2f", float64(v)*1000+float64(low)*0.1), nil
	default:
		return nil, fmt.Errorf("unknown transform %d for %s", f.Transform, f.Name)
	}
}

// DecodeCharger decodes the charger block.
func DecodeCharger(regs []string) (Record, bool) {
	return ChargerSchema.Decode(regs)
}

// DecodeInverter decodes the inverter block.
func DecodeInverter(regs []string) (Record, bool) {
	return InverterSchema.Decode(regs)
}
