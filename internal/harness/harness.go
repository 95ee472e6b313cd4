// Package harness wires the collaborators a publisher test run needs around
// the simulator fixture: logging, the temp data directory and the OPC UA
// application configuration.
package harness

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/lifecycle"
	"github.com/opcpublisher/plcharness/internal/logging"
)

// Harness is one test run's view of its dependencies.
type Harness struct {
	Config   *config.Config
	App      *AppConfig
	TempData string
	Fixture  *lifecycle.Fixture
	PLC      lifecycle.Handle

	closeLog func()
}

// Setup initializes logging (unless already done), creates the temp data
// directory, configures the application and acquires the simulator. It
// returns an error rather than a partially usable harness; on error everything
// it acquired has been released.
func Setup(ctx context.Context, cfg *config.Config, opts ...lifecycle.Option) (_ *Harness, err error) {
	closeLog, err := logging.EnsureInit(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	h := &Harness{Config: cfg, closeLog: closeLog}
	defer func() {
		if err != nil {
			err = errors.Join(err, h.Close(ctx))
		}
	}()

	h.TempData, err = EnsureTempData(cfg.TempRoot)
	if err != nil {
		return nil, err
	}
	h.App = DefaultAppConfig(runtime.GOOS, h.TempData)
	if err := h.App.Configure(ctx); err != nil {
		return nil, fmt.Errorf("configure application: %w", err)
	}

	h.Fixture = lifecycle.New(cfg, opts...)
	h.PLC, err = h.Fixture.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	logging.Get().Info().Str("tempdata", h.TempData).Str("plc", h.PLC.Endpoint()).Msg("harness ready")
	return h, nil
}

// Close releases the simulator. It is safe to call more than once.
func (h *Harness) Close(ctx context.Context) error {
	var err error
	if h.Fixture != nil {
		err = h.Fixture.Release(ctx)
	}
	if h.closeLog != nil {
		h.closeLog()
		h.closeLog = nil
	}
	return err
}
