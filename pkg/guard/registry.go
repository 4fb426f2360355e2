package guard

import (
	"context"
	"sync"

	"devdb/pkg/common/logger"
)

// Registry owns the shared client of a process. The zero value is an empty
// registry.
type Registry struct {
	mu       sync.Mutex
	current  Client
	replaced uint64
}

var shared = NewRegistry()

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Shared returns the process-wide registry used when a factory is not given one.
func Shared() *Registry { return shared }

// Current returns the installed client, or nil.
func (r *Registry) Current() Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Replacements counts how many clients have been installed.
func (r *Registry) Replacements() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaced
}

// Replace disconnects the installed client, waiting for it to finish, and
// installs c. c is installed even when that disconnect fails; the disconnect
// error is returned.
func (r *Registry) Replace(ctx context.Context, c Client) error {
	priorErr, _ := r.swap(ctx, func(context.Context) (Client, error) { return c, nil })
	return priorErr
}

// swap disconnects the current client before build runs, so at most one
// connection is open at any time. priorErr is the disconnect error of the
// previous client, which is logged and never blocks the swap. If build fails
// the previous client stays installed (disconnected) and err is the build
// error as is.
func (r *Registry) swap(ctx context.Context, build func(context.Context) (Client, error)) (priorErr, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		if priorErr = r.current.Disconnect(ctx); priorErr != nil {
			logger.WithComponent("guard").Warn().Err(priorErr).Msg("disconnecting previous shared client failed")
		}
	}
	c, err := build(ctx)
	if err != nil {
		return priorErr, err
	}
	r.current = c
	r.replaced++
	logger.WithComponent("guard").Debug().Uint64("replacements", r.replaced).Msg("shared client installed")
	return priorErr, nil
}

// Disconnect disconnects the installed client but keeps it installed.
func (r *Registry) Disconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.Disconnect(ctx)
}

// Clear disconnects and removes the installed client.
func (r *Registry) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	err := r.current.Disconnect(ctx)
	r.current = nil
	return err
}
