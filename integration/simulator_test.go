package integration

import (
	"context"
	"net"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/docker"
	"github.com/opcpublisher/plcharness/internal/lifecycle"
)

// These tests are skipped by default. To run them locally, set
// RUN_DOCKER_INTEGRATION=1 in your environment. They need a Docker engine
// able to pull the simulator image.
func requireDocker(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_DOCKER_INTEGRATION") != "1" {
		t.Skip("skipping integration test; set RUN_DOCKER_INTEGRATION=1 to enable")
	}
}

func remaining(t *testing.T, ctx context.Context, cfg *config.Config) []docker.Container {
	t.Helper()
	ep, err := lifecycle.ResolveEndpoint(runtime.GOOS)
	if err != nil {
		t.Fatalf("resolve endpoint: %v", err)
	}
	ep = ep.WithOverride(cfg.EngineHost)
	cli, err := docker.Connect(ctx, ep.Address, docker.Options{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer func() { _ = cli.Close() }()
	all, err := cli.ListContainers(ctx, cfg.ListLimit)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var out []docker.Container
	for _, c := range all {
		if c.Image == cfg.Image {
			out = append(out, c)
		}
	}
	return out
}

func TestSimulatorLifecycle(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	err = lifecycle.With(ctx, cfg, func(ctx context.Context, h lifecycle.Handle) error {
		addr := net.JoinHostPort("localhost", "50000")
		deadline := time.Now().Add(time.Minute)
		for {
			conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
			if err == nil {
				_ = conn.Close()
				return nil
			}
			if time.Now().After(deadline) {
				return err
			}
			time.Sleep(time.Second)
		}
	})
	if err != nil {
		t.Fatalf("simulator run failed: %v", err)
	}
	if left := remaining(t, ctx, cfg); len(left) != 0 {
		t.Fatalf("expected no simulator containers after release, got %v", left)
	}
}

func TestRepeatedAcquireReplacesStale(t *testing.T) {
	requireDocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	// a fixture that is never released leaves a stale instance behind
	first := lifecycle.New(cfg)
	h1, err := first.Acquire(ctx)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	second := lifecycle.New(cfg)
	h2, err := second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	defer func() { _ = second.Release(ctx) }()
	if h1.ID == h2.ID {
		t.Fatalf("expected a fresh container, got the same id %s", h1.ID)
	}
	left := remaining(t, ctx, cfg)
	if len(left) != 1 || left[0].ID != h2.ID {
		t.Fatalf("expected only %s running, got %v", h2.ID, left)
	}
}
