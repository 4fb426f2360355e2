// Package guard controls how database clients are constructed: one shared
// client per process outside production, an independent client per call in
// production, and an inert placeholder on browser-like hosts.
package guard

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"devdb/pkg/common/env"
	"devdb/pkg/common/logger"
)

var (
	// ErrPlaceholder is returned by every operation of a placeholder handle.
	ErrPlaceholder = errors.New("guard: placeholder handle has no database client")
	// ErrNoResetter is returned by Reset when the factory was built without one.
	ErrNoResetter = errors.New("guard: reset is not configured")
)

// Client is the capability the guard needs from a database client.
type Client interface {
	Disconnect(ctx context.Context) error
}

// Constructor builds a client from opaque arguments.
type Constructor[C Client, A any] func(ctx context.Context, args A) (C, error)

// Resetter wipes the development database.
type Resetter interface {
	Reset(ctx context.Context) error
}

type settings struct {
	registry *Registry
	mode     func() env.Mode
	resetter Resetter
	log      *zerolog.Logger
}

// Option configures a Factory.
type Option func(*settings)

// WithRegistry sets the registry holding the shared client. Defaults to Shared().
func WithRegistry(r *Registry) Option { return func(s *settings) { s.registry = r } }

// WithMode pins the environment mode instead of detecting it on each Create.
func WithMode(m env.Mode) Option { return func(s *settings) { s.mode = func() env.Mode { return m } } }

// WithResetter sets the operation behind Handle.Reset.
func WithResetter(r Resetter) Option { return func(s *settings) { s.resetter = r } }

// WithLogger sets the logger the factory writes to. Defaults to the guard
// component logger.
func WithLogger(l *zerolog.Logger) Option { return func(s *settings) { s.log = l } }

// Factory creates guarded handles around a constructor.
type Factory[C Client, A any] struct {
	ctor Constructor[C, A]
	settings
}

// NewFactory wraps ctor.
func NewFactory[C Client, A any](ctor Constructor[C, A], opts ...Option) *Factory[C, A] {
	s := settings{
		registry: Shared(),
		mode:     func() env.Mode { return env.Detect(nil) },
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.WithComponent("guard")
	}
	return &Factory[C, A]{ctor: ctor, settings: s}
}

// Registry returns the registry the factory installs shared clients into.
func (f *Factory[C, A]) Registry() *Registry { return f.registry }

// Create returns a handle according to the current environment mode:
//   - browser-like host outside tests: a placeholder, nothing is constructed
//   - production: a new independent client, the registry is not touched
//   - otherwise: the registry's client is disconnected, a new one constructed
//     and installed, and the installed handle returned
//
// Constructor errors are returned unchanged.
func (f *Factory[C, A]) Create(ctx context.Context, args A) (*Handle[C], error) {
	mode := f.mode()
	if mode.PlaceholderOnly() {
		f.log.Debug().Str("mode", mode.String()).Msg("browser-like host, returning placeholder")
		return &Handle[C]{placeholder: true}, nil
	}
	if mode.Production {
		return f.construct(ctx, args)
	}

	var h *Handle[C]
	_, err := f.registry.swap(ctx, func(ctx context.Context) (Client, error) {
		var err error
		h, err = f.construct(ctx, args)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (f *Factory[C, A]) construct(ctx context.Context, args A) (*Handle[C], error) {
	c, err := f.ctor(ctx, args)
	if err != nil {
		return nil, err
	}
	return &Handle[C]{client: c, resetter: f.resetter}, nil
}

// Handle is a constructed client augmented with Reset.
type Handle[C Client] struct {
	client      C
	placeholder bool
	resetter    Resetter
}

// Client returns the wrapped client; ok is false for placeholders.
func (h *Handle[C]) Client() (c C, ok bool) {
	if h.placeholder {
		return c, false
	}
	return h.client, true
}

// MustClient returns the wrapped client and panics on a placeholder.
func (h *Handle[C]) MustClient() C {
	c, ok := h.Client()
	if !ok {
		panic(ErrPlaceholder)
	}
	return c
}

func (h *Handle[C]) IsPlaceholder() bool { return h.placeholder }

// Disconnect disconnects the wrapped client.
func (h *Handle[C]) Disconnect(ctx context.Context) error {
	if h.placeholder {
		return ErrPlaceholder
	}
	return h.client.Disconnect(ctx)
}

// Reset runs the development reset. See migrate.Reset for its contract.
func (h *Handle[C]) Reset(ctx context.Context) error {
	if h.placeholder {
		return ErrPlaceholder
	}
	if h.resetter == nil {
		return ErrNoResetter
	}
	return h.resetter.Reset(ctx)
}
