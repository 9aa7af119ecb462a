// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ffutop/must-reader/internal/config"
	"github.com/ffutop/must-reader/internal/telemetry"
)

// Encoder writes one record per call. JSON records are one per line, YAML
// records are separate documents.
type Encoder interface {
	Encode(rec telemetry.Record) error
}

// NewEncoder returns an encoder for format (config.FormatJSON or config.FormatYAML).
func NewEncoder(w io.Writer, format string) (Encoder, error) {
	switch format {
	case config.FormatJSON, "":
		return &jsonEncoder{enc: json.NewEncoder(w)}, nil
	case config.FormatYAML:
		return &yamlEncoder{enc: yaml.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

type jsonEncoder struct {
	enc *json.Encoder
}

func (e *jsonEncoder) Encode(rec telemetry.Record) error {
	if rec == nil {
		rec = telemetry.Record{}
	}
	return e.enc.Encode(rec)
}

type yamlEncoder struct {
	enc *yaml.Encoder
}

func (e *yamlEncoder) Encode(rec telemetry.Record) error {
	if rec == nil {
		rec = telemetry.Record{}
	}
	return e.enc.Encode(map[string]any(rec))
}

type fieldList struct {
	Charger  []string `json:"charger" yaml:"charger"`
	Inverter []string `json:"inverter" yaml:"inverter"`
}

// ListFields writes the field names of both register blocks in register
// order.
func ListFields(w io.Writer, format string) error {
	fields := fieldList{
		Charger:  telemetry.ChargerSchema.Names(),
		Inverter: telemetry.InverterSchema.Names(),
	}
	switch format {
	case config.FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(fields)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(fields); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Close flushes a YAML stream; other encoders need nothing.
func Close(enc Encoder) error {
	if y, ok := enc.(*yamlEncoder); ok {
		return y.enc.Close()
	}
	return nil
}
