// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSystemClock_Sleep(t *testing.T) {
	var c SystemClock
	start := c.Now()
	if err := c.Sleep(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Errorf("Sleep() returned after %v", elapsed)
	}
}

func TestSystemClock_SleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (SystemClock{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}

func TestOpenerFunc(t *testing.T) {
	called := false
	var o Opener = OpenerFunc(func(ctx context.Context) (Port, error) {
		called = true
		return nil, errors.New("no device")
	})
	if _, err := o.Open(context.Background()); err == nil || !called {
		t.Errorf("OpenerFunc.Open() err = %v, called = %v", err, called)
	}
}
