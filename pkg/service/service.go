package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"devdb/pkg/common/config"
	"devdb/pkg/common/database"
	"devdb/pkg/common/env"
	"devdb/pkg/common/logger"
	"devdb/pkg/common/worker"
	"devdb/pkg/guard"
	"devdb/pkg/migrate"
)

// ErrResetRunning is returned when a reset is submitted while one is in flight.
var ErrResetRunning = errors.New("a database reset is already running")

// JobStatus describes the most recent background reset. Unset times are
// omitted from JSON.
type JobStatus struct {
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Status is the view served by the admin API.
type Status struct {
	Mode        string    `json:"mode"`
	Production  bool      `json:"production"`
	Placeholder bool      `json:"placeholder"`
	Connected   bool      `json:"connected"`
	Target      string    `json:"target,omitempty"`
	LastReset   JobStatus `json:"last_reset"`
}

// Service wires the guarded database client and its reset operation.
type Service struct {
	cfg     *config.Config
	mode    env.Mode
	factory *guard.Factory[*database.Client, config.Database]
	reset   *migrate.Reset
	handle  *guard.Handle[*database.Client]
	log     *zerolog.Logger

	mu      sync.Mutex
	running bool
	job     JobStatus
}

// ServiceOption customizes NewService, mostly for tests.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	registry *guard.Registry
	mode     *env.Mode
	runner   *migrate.Runner
	models   []interface{}
}

func WithRegistry(r *guard.Registry) ServiceOption {
	return func(o *serviceOptions) { o.registry = r }
}

func WithMode(m env.Mode) ServiceOption {
	return func(o *serviceOptions) { o.mode = &m }
}

func WithRunner(r *migrate.Runner) ServiceOption {
	return func(o *serviceOptions) { o.runner = r }
}

// WithModels registers gorm models to auto migrate on connect.
func WithModels(models ...interface{}) ServiceOption {
	return func(o *serviceOptions) { o.models = append(o.models, models...) }
}

// NewService creates the guarded client for cfg.
func NewService(ctx context.Context, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	o := serviceOptions{registry: guard.Shared()}
	for _, opt := range opts {
		opt(&o)
	}
	mode := env.Detect(cfg)
	if o.mode != nil {
		mode = *o.mode
	}
	runner := o.runner
	if runner == nil {
		runner = migrate.NewRunner(cfg.Migrate)
	}

	reset := migrate.NewReset(runner, o.registry, migrate.WithMode(mode))
	factory := guard.NewFactory(
		guard.Constructor[*database.Client, config.Database](database.NewConstructor(o.models...)),
		guard.WithRegistry(o.registry),
		guard.WithMode(mode),
		guard.WithResetter(reset),
	)
	handle, err := factory.Create(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		mode:    mode,
		factory: factory,
		reset:   reset,
		handle:  handle,
		log:     logger.WithComponent("app"),
		job:     JobStatus{State: migrate.StateIdle.String()},
	}
	s.log.Info().Str("mode", mode.String()).Bool("placeholder", handle.IsPlaceholder()).Msg("database client ready")
	return s, nil
}

// Handle returns the guarded client.
func (s *Service) Handle() *guard.Handle[*database.Client] { return s.handle }

func (s *Service) Mode() env.Mode { return s.mode }

// Status reports the client and last reset.
func (s *Service) Status() Status {
	st := Status{
		Mode:        s.mode.String(),
		Production:  s.mode.Production,
		Placeholder: s.handle.IsPlaceholder(),
	}
	if c, ok := s.handle.Client(); ok {
		st.Connected = c.Connected()
		st.Target = c.Target()
	}
	s.mu.Lock()
	st.LastReset = s.job
	s.mu.Unlock()
	return st
}

// ResetNow runs the reset synchronously.
func (s *Service) ResetNow(ctx context.Context) error {
	if _, err := s.begin(); err != nil {
		return err
	}
	err := s.handle.Reset(ctx)
	s.end(err)
	return err
}

// SubmitReset queues the reset on the worker pool and returns immediately.
// Production refusals are reported synchronously.
func (s *Service) SubmitReset() (JobStatus, error) {
	if s.mode.Production {
		return JobStatus{}, migrate.ErrProductionReset
	}
	if s.handle.IsPlaceholder() {
		return JobStatus{}, guard.ErrPlaceholder
	}
	job, err := s.begin()
	if err != nil {
		return JobStatus{}, err
	}
	err = worker.Submit("db.reset", func() {
		s.end(s.handle.Reset(context.Background()))
	})
	if err != nil {
		s.end(err)
		return JobStatus{}, err
	}
	return job, nil
}

// LastReset returns the status of the most recent reset.
func (s *Service) LastReset() JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Close disconnects the shared client.
func (s *Service) Close(ctx context.Context) error {
	if s.handle.IsPlaceholder() {
		return nil
	}
	if s.mode.Production {
		return s.handle.Disconnect(ctx)
	}
	return s.factory.Registry().Clear(ctx)
}

// begin marks a reset as running and returns the job as submitted.
func (s *Service) begin() (JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return JobStatus{}, ErrResetRunning
	}
	s.running = true
	now := time.Now()
	s.job = JobStatus{State: migrate.StateSubprocessRunning.String(), StartedAt: &now}
	return s.job, nil
}

func (s *Service) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	now := time.Now()
	s.job.FinishedAt = &now
	if err == nil {
		s.job.State = migrate.StateSuccess.String()
		return
	}
	s.job.State = migrate.StateFailure.String()
	s.job.Error = err.Error()
	if code, ok := migrate.ExitCode(err); ok {
		s.job.ExitCode = &code
	}
}
