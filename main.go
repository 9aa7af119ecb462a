// Copyright (c) 2025 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ffutop/must-reader/internal/config"
	"github.com/ffutop/must-reader/internal/output"
	"github.com/ffutop/must-reader/internal/reader"
	"github.com/ffutop/must-reader/internal/telemetry"
	"github.com/ffutop/must-reader/transport/rtu"
)

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		os.Exit(2)
	}
	configFile, _ := flags.GetString("config")

	// Load Configuration
	cfg, err := config.LoadConfig(configFile, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if list, _ := flags.GetBool("list-fields"); list {
		if err := output.ListFields(os.Stdout, cfg.Output.Format); err != nil {
			slog.Error("Invalid output configuration", "err", err)
			os.Exit(1)
		}
		return
	}

	opener, err := rtu.NewOpener(cfg.Serial)
	if err != nil {
		slog.Error("Invalid serial configuration", "err", err)
		os.Exit(1)
	}

	r := reader.New(opener,
		reader.WithCommandDelay(cfg.Reader.CommandDelay),
		reader.WithChargerPolling(rtu.BoundedOptions{
			Attempts: cfg.Reader.ChargerAttempts,
			Interval: cfg.Reader.ChargerInterval,
		}),
		reader.WithInverterPolling(rtu.TimeoutOptions{
			Timeout:  cfg.Reader.InverterTimeout,
			Interval: cfg.Reader.InverterInterval,
			Chunk:    cfg.Reader.InverterChunk,
		}),
	)

	enc, err := output.NewEncoder(os.Stdout, cfg.Output.Format)
	if err != nil {
		slog.Error("Invalid output configuration", "err", err)
		os.Exit(1)
	}
	defer output.Close(enc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Reading MUST device", "device", cfg.Serial.Device, "baudRate", cfg.Serial.BaudRate, "driver", cfg.Serial.Driver, "interval", cfg.Poll.Interval)

	if cfg.Poll.Interval == 0 {
		if err := readOnce(ctx, r, enc, cycleBudget(cfg.Reader)); err != nil {
			slog.Error("Read failed", "err", err)
			output.Close(enc)
			os.Exit(1)
		}
		return
	}

	err = r.Run(ctx, cfg.Poll.Interval, func(rec telemetry.Record) {
		if err := enc.Encode(rec); err != nil {
			slog.Error("Failed to write record", "err", err)
		}
	})
	if err != nil {
		slog.Error("Polling stopped with error", "err", err)
	}
	slog.Info("Goodbye.")
}

// cycleBudget is the slowest possible read cycle plus a second of slack.
func cycleBudget(cfg config.ReaderConfig) time.Duration {
	return time.Duration(cfg.ChargerAttempts)*cfg.ChargerInterval +
		cfg.CommandDelay + cfg.InverterTimeout + cfg.InverterInterval + time.Second
}

func readOnce(ctx context.Context, r *reader.Reader, enc output.Encoder, budget time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	rec, err := r.ReadAll(ctx)
	if err != nil {
		return err
	}
	if len(rec) == 0 {
		slog.Warn("Device returned no telemetry")
	}
	return enc.Encode(rec)
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	// Records go to stdout, so logs default to stderr.
	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file, falling back to stderr: %v\n", err)
			handler = slog.NewTextHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
