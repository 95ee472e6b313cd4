// Package plctest provides the simulator to Go tests, either per test via
// Start or per test binary via Main.
package plctest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/lifecycle"
)

// Start acquires the simulator for tb and releases it when tb finishes.
// A failed acquisition stops the test immediately.
func Start(tb testing.TB, cfg *config.Config, opts ...lifecycle.Option) lifecycle.Handle {
	tb.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	f := lifecycle.New(cfg, opts...)
	tb.Cleanup(func() {
		if err := f.Release(context.Background()); err != nil {
			tb.Errorf("release simulator: %v", err)
		}
	})
	h, err := f.Acquire(context.Background())
	if err != nil {
		tb.Fatalf("provision simulator: %v", err)
	}
	return h
}

// runner is the part of *testing.M that Main needs.
type runner interface {
	Run() int
}

// Main is meant to be called from TestMain. It acquires one simulator for the
// whole test binary, runs the tests, releases the simulator and exits with
// the test result.
func Main(m *testing.M, cfg *config.Config, opts ...lifecycle.Option) {
	os.Exit(run(m, cfg, opts...))
}

func run(m runner, cfg *config.Config, opts ...lifecycle.Option) int {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ctx := context.Background()
	code := 1
	err := lifecycle.With(ctx, cfg, func(ctx context.Context, h lifecycle.Handle) error {
		code = m.Run()
		return nil
	}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plctest: %v\n", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}
