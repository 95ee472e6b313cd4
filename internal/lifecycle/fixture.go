package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/opcpublisher/plcharness/internal/config"
	"github.com/opcpublisher/plcharness/internal/docker"
	"github.com/opcpublisher/plcharness/internal/logging"
	"github.com/opcpublisher/plcharness/internal/metrics"
)

// State is the lifecycle state of a Fixture.
type State int

const (
	StateIdle State = iota
	StateActive
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Dialer opens an engine connection for a resolved endpoint.
type Dialer func(ctx context.Context, ep Endpoint) (docker.Client, error)

// Option configures a Fixture.
type Option func(*Fixture)

// WithPlatform overrides the host platform (a GOOS value) used to resolve
// the engine endpoint.
func WithPlatform(goos string) Option {
	return func(f *Fixture) { f.goos = goos }
}

// WithDialer replaces the Docker SDK dialer.
func WithDialer(d Dialer) Option {
	return func(f *Fixture) { f.dial = d }
}

// Fixture owns one simulator container from Acquire until Release. It is
// single use: after Acquire fails or Release ran, create a new Fixture.
type Fixture struct {
	cfg  config.Config
	goos string
	dial Dialer

	mu     sync.Mutex
	state  State
	ep     Endpoint
	ref    ImageReference
	conn   docker.Client
	handle Handle
	err    error
}

// New returns an Idle fixture for cfg. cfg is copied.
func New(cfg *config.Config, opts ...Option) *Fixture {
	f := &Fixture{cfg: *cfg, goos: runtime.GOOS}
	f.dial = f.dialDocker
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fixture) dialDocker(ctx context.Context, ep Endpoint) (docker.Client, error) {
	return docker.Connect(ctx, ep.Address, docker.Options{
		RegistryUser:  f.cfg.RegistryUser,
		RegistryPass:  f.cfg.RegistryPass,
		SanitizeNames: true,
	})
}

// Acquire provisions the simulator: it resolves the engine endpoint,
// connects, reaps stale containers of the image, pulls the latest image and
// creates and starts the container. Any failure moves the fixture to
// StateFailed; call Release to clean up whatever the attempt left behind.
func (f *Fixture) Acquire(ctx context.Context) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateIdle {
		return Handle{}, fmt.Errorf("%w: fixture is %s", ErrFixtureUsed, f.state)
	}

	start := time.Now()
	h, err := f.acquire(ctx)
	if err != nil {
		f.state = StateFailed
		f.err = err
		metrics.IncAcquireFailed()
		logging.Get().Error().Err(err).Str("endpoint", f.ep.Address).Msg("failed to provision simulator")
		return Handle{}, err
	}
	f.state = StateActive
	f.handle = h
	metrics.IncAcquire()
	metrics.ObserveAcquireDuration(time.Since(start).Seconds())
	logging.Get().Info().Str("container", h.ID).Str("endpoint", h.Endpoint()).Msg("simulator running")
	return h, nil
}

func (f *Fixture) acquire(ctx context.Context) (Handle, error) {
	conn, err := f.connect(ctx)
	if err != nil {
		return Handle{}, err
	}
	f.conn = conn

	if _, err := Reap(ctx, conn, f.ref, f.reapOptions()); err != nil {
		return Handle{}, err
	}
	info, err := EnsureImage(ctx, conn, f.ref)
	if err != nil {
		return Handle{}, err
	}
	return Provision(ctx, conn, BuildSpec(f.ref, info, &f.cfg))
}

// connect resolves the endpoint, checks the configuration and dials the
// engine. It records the endpoint and image reference on f.
func (f *Fixture) connect(ctx context.Context) (docker.Client, error) {
	ep, err := ResolveEndpoint(f.goos)
	if err != nil {
		return nil, err
	}
	f.ep = ep.WithOverride(f.cfg.EngineHost)

	if err := f.cfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range f.cfg.Validate() {
		logging.Get().Warn().Str("warning", w).Msg("config validation")
	}
	ref, err := ParseImageReference(f.cfg.Image)
	if err != nil {
		return nil, err
	}
	f.ref = ref.Latest()

	conn, err := f.dial(ctx, f.ep)
	if err != nil {
		return nil, &Error{Kind: ErrConnection, Platform: f.ep.Platform, Endpoint: f.ep.Address, Err: err}
	}
	return conn, nil
}

func (f *Fixture) reapOptions() ReapOptions {
	return ReapOptions{Limit: f.cfg.ListLimit, BestEffort: f.cfg.ReapMode == config.ReapBestEffort}
}

// Release reaps every container of the fixture image, including containers
// this fixture did not create, and closes the engine connection. Release on
// an Idle fixture does nothing; a second Release performs no engine calls.
func (f *Fixture) Release(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case StateIdle, StateReleased:
		return nil
	}

	conn := f.conn
	f.conn = nil
	f.handle = Handle{}
	f.state = StateReleased
	if conn == nil {
		return nil
	}

	_, reapErr := Reap(ctx, conn, f.ref, f.reapOptions())
	closeErr := conn.Close()
	metrics.IncRelease()
	if reapErr != nil {
		logging.Get().Error().Err(reapErr).Str("image", f.ref.Name).Msg("release reap failed")
	} else {
		logging.Get().Info().Str("image", f.ref.Name).Msg("released simulator")
	}
	if closeErr != nil {
		closeErr = fmt.Errorf("close engine connection: %w", closeErr)
	}
	return errors.Join(reapErr, closeErr)
}

// State returns the current lifecycle state.
func (f *Fixture) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Handle returns the running container, or the zero Handle unless Active.
func (f *Fixture) Handle() Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle
}

// Err returns the error that moved the fixture to StateFailed.
func (f *Fixture) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// With acquires a fixture for cfg, runs fn with the running container and
// releases the fixture on every exit path, including a failed acquire and a
// panic in fn.
func With(ctx context.Context, cfg *config.Config, fn func(context.Context, Handle) error, opts ...Option) (err error) {
	f := New(cfg, opts...)
	defer func() {
		if rerr := f.Release(ctx); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	h, err := f.Acquire(ctx)
	if err != nil {
		return err
	}
	return fn(ctx, h)
}

// Sweep connects to the engine for cfg and reaps every container of the
// configured image without provisioning a new one.
func Sweep(ctx context.Context, cfg *config.Config, opts ...Option) (int, error) {
	f := New(cfg, opts...)
	conn, err := f.connect(ctx)
	if err != nil {
		return 0, err
	}
	n, err := Reap(ctx, conn, f.ref, f.reapOptions())
	if cerr := conn.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close engine connection: %w", cerr))
	}
	return n, err
}
