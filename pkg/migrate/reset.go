// Package migrate implements the development database reset: it shells out
// to the external migration tool and then disconnects the shared client.
package migrate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"devdb/pkg/common/env"
	"devdb/pkg/common/logger"
	"devdb/pkg/guard"
)

// State is a step of a reset run.
type State int

const (
	StateIdle State = iota
	StateProductionCheck
	StateToolLookup
	StateSubprocessRunning
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProductionCheck:
		return "production_check"
	case StateToolLookup:
		return "tool_lookup"
	case StateSubprocessRunning:
		return "subprocess_running"
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == StateSuccess || s == StateFailure }

// Reset is the guard.Resetter backed by the migration tool.
type Reset struct {
	runner   *Runner
	registry *guard.Registry
	mode     func() env.Mode
	log      *zerolog.Logger

	mu       sync.Mutex
	state    State
	lastErr  error
	lastDone time.Time
}

// ResetOption configures a Reset.
type ResetOption func(*Reset)

// WithMode pins the environment mode instead of detecting it per run.
func WithMode(m env.Mode) ResetOption {
	return func(r *Reset) { r.mode = func() env.Mode { return m } }
}

// NewReset returns a reset that runs runner and, on success, disconnects the
// client held by registry.
func NewReset(runner *Runner, registry *guard.Registry, opts ...ResetOption) *Reset {
	r := &Reset{
		runner:   runner,
		registry: registry,
		mode:     func() env.Mode { return env.Detect(nil) },
		log:      logger.WithComponent("migrate"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reset wipes the database by running the migration tool. It refuses to run
// in production. The shared client is disconnected only when the tool exits
// with code 0; on failure it is left connected. There is no retry. ctx bounds
// the disconnect only; a started tool always runs to completion.
func (r *Reset) Reset(ctx context.Context) error {
	r.enter(StateProductionCheck)
	if r.mode().Production {
		return r.fail(ErrProductionReset)
	}

	r.enter(StateToolLookup)
	path, err := r.runner.Locator.Locate()
	if err != nil {
		return r.fail(err)
	}

	r.enter(StateSubprocessRunning)
	r.log.Info().Str("tool", path).Strs("args", r.runner.Args).Msg("running migration reset")
	if err := r.runner.Exec(path); err != nil {
		return r.fail(err)
	}

	if err := r.registry.Disconnect(ctx); err != nil {
		r.log.Warn().Err(err).Msg("disconnecting shared client after reset failed")
	}
	r.finish(StateSuccess, nil)
	r.log.Info().Msg("database reset complete")
	return nil
}

// State returns the current or last terminal state.
func (r *Reset) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Last returns the result of the most recent finished run.
func (r *Reset) Last() (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastDone, r.lastErr
}

func (r *Reset) enter(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.log.Debug().Str("state", s.String()).Msg("reset transition")
}

func (r *Reset) fail(err error) error {
	ev := r.log.Error().Err(err)
	if code, ok := ExitCode(err); ok {
		ev = ev.Int("exit_code", code)
	}
	ev.Msg("database reset failed")
	r.finish(StateFailure, err)
	return err
}

func (r *Reset) finish(s State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	r.lastErr = err
	r.lastDone = time.Now()
}
