// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
	"gotest.tools/v3/assert"

	"github.com/ffutop/must-reader/internal/telemetry"
)

func sample() telemetry.Record {
	return telemetry.Record{
		"PvVoltage":         "10.00",
		"ChargerPower":      500,
		"InverterFrequency": 50.0,
		"CombineType":       "0001",
	}
}

func TestJSONEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, "json")
	assert.NilError(t, err)
	assert.NilError(t, enc.Encode(sample()))
	assert.NilError(t, enc.Encode(nil))
	assert.NilError(t, Close(enc))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, len(lines), 2)
	assert.Equal(t, lines[0], `{"ChargerPower":500,"CombineType":"0001","InverterFrequency":50,"PvVoltage":"10.00"}`)
	assert.Equal(t, lines[1], `{}`)

	var back map[string]any
	assert.NilError(t, json.Unmarshal([]byte(lines[0]), &back))
	assert.Equal(t, back["PvVoltage"], "10.00")
}

func TestYAMLEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, "yaml")
	assert.NilError(t, err)
	assert.NilError(t, enc.Encode(sample()))
	assert.NilError(t, enc.Encode(sample()))
	assert.NilError(t, Close(enc))

	dec := yaml.NewDecoder(&buf)
	docs := 0
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			break
		}
		docs++
		assert.Equal(t, doc["PvVoltage"], "10.00")
		assert.Equal(t, doc["CombineType"], "0001")
		assert.Equal(t, doc["ChargerPower"], 500)
	}
	assert.Equal(t, docs, 2)
}

func TestNewEncoder_Unknown(t *testing.T) {
	_, err := NewEncoder(&bytes.Buffer{}, "xml")
	assert.ErrorContains(t, err, "xml")
}

func TestListFields(t *testing.T) {
	var buf bytes.Buffer
	assert.NilError(t, ListFields(&buf, "json"))

	var got map[string][]string
	assert.NilError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, len(got["charger"]), len(telemetry.ChargerSchema.Fields))
	assert.Equal(t, len(got["inverter"]), len(telemetry.InverterSchema.Fields))
	assert.Equal(t, got["charger"][0], "ChargerWorkstate")

	buf.Reset()
	assert.NilError(t, ListFields(&buf, "yaml"))
	var fromYAML map[string][]string
	assert.NilError(t, yaml.Unmarshal(buf.Bytes(), &fromYAML))
	assert.DeepEqual(t, fromYAML, got)

	assert.Assert(t, ListFields(&buf, "csv") != nil)
}
