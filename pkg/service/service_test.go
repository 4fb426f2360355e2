package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"devdb/pkg/common/config"
	"devdb/pkg/common/env"
	"devdb/pkg/common/worker"
	"devdb/pkg/guard"
	"devdb/pkg/migrate"
)

type Note struct {
	ID   uint
	Body string
}

const toolName = "devdb-test-migrate"

// newTestService builds a service over a temp sqlite file and a shell script
// tool exiting with code.
func newTestService(t *testing.T, mode env.Mode, code int) (*Service, *guard.Registry) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	dir := t.TempDir()
	binDir := filepath.Join(dir, "bin")
	os.MkdirAll(binDir, 0755)
	script := fmt.Sprintf("#!/bin/sh\nexit %d\n", code)
	if err := os.WriteFile(filepath.Join(binDir, toolName), []byte(script), 0755); err != nil {
		t.Fatalf("write tool: %v", err)
	}

	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(dir, "dev.db")
	cfg.Migrate.Tool = toolName
	cfg.Migrate.SearchDirs = []string{"bin"}

	runner := migrate.NewRunner(cfg.Migrate)
	runner.Locator.BaseDir = dir
	runner.Locator.LookPath = nil
	runner.Stdout = &bytes.Buffer{}

	reg := guard.NewRegistry()
	svc, err := NewService(context.Background(), cfg,
		WithRegistry(reg), WithMode(mode), WithRunner(runner), WithModels(&Note{}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close(context.Background())
		worker.Release()
	})
	return svc, reg
}

func TestNewServiceDevelopmentInstallsShared(t *testing.T) {
	svc, reg := newTestService(t, env.Mode{}, 0)

	if svc.Handle().IsPlaceholder() {
		t.Fatal("expected real client")
	}
	if reg.Current() != guard.Client(svc.Handle()) {
		t.Error("expected handle installed as shared client")
	}
	st := svc.Status()
	if !st.Connected || st.Production || st.Placeholder {
		t.Errorf("unexpected status %+v", st)
	}
	db, err := svc.Handle().MustClient().DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	if !db.Migrator().HasTable(&Note{}) {
		t.Error("expected models migrated")
	}
}

func TestNewServiceProductionNotShared(t *testing.T) {
	svc, reg := newTestService(t, env.Mode{Production: true}, 0)
	if reg.Current() != nil {
		t.Error("production client must not be shared")
	}
	if err := svc.ResetNow(context.Background()); !errors.Is(err, migrate.ErrProductionReset) {
		t.Errorf("expected ErrProductionReset, got %v", err)
	}
	if _, err := svc.SubmitReset(); !errors.Is(err, migrate.ErrProductionReset) {
		t.Errorf("expected ErrProductionReset, got %v", err)
	}
	if !svc.Status().Connected {
		t.Error("refused reset must not disconnect")
	}
}

func TestNewServiceBrowserPlaceholder(t *testing.T) {
	svc, reg := newTestService(t, env.Mode{Browser: true}, 0)
	if !svc.Handle().IsPlaceholder() {
		t.Fatal("expected placeholder")
	}
	if reg.Current() != nil {
		t.Error("placeholder must not be shared")
	}
	st := svc.Status()
	if !st.Placeholder || st.Connected {
		t.Errorf("unexpected status %+v", st)
	}
	if _, err := svc.SubmitReset(); !errors.Is(err, guard.ErrPlaceholder) {
		t.Errorf("expected ErrPlaceholder, got %v", err)
	}
}

func TestResetNowSuccess(t *testing.T) {
	svc, _ := newTestService(t, env.Mode{}, 0)

	if err := svc.ResetNow(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	job := svc.LastReset()
	if job.State != "success" || job.FinishedAt == nil {
		t.Errorf("unexpected job %+v", job)
	}
	if svc.Status().Connected {
		t.Error("expected shared client disconnected after reset")
	}
	// the client reconnects lazily on next use
	if err := svc.Handle().MustClient().Ping(context.Background()); err != nil {
		t.Errorf("ping after reset: %v", err)
	}
}

func TestResetNowFailureKeepsConnection(t *testing.T) {
	svc, _ := newTestService(t, env.Mode{}, 2)

	err := svc.ResetNow(context.Background())
	if code, ok := migrate.ExitCode(err); !ok || code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	job := svc.LastReset()
	if job.State != "failure" || job.ExitCode == nil || *job.ExitCode != 2 {
		t.Errorf("unexpected job %+v", job)
	}
	if !svc.Status().Connected {
		t.Error("failed reset must leave the client connected")
	}
}

func TestSubmitResetAsync(t *testing.T) {
	svc, _ := newTestService(t, env.Mode{}, 0)

	job, err := svc.SubmitReset()
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if job.State != "subprocess_running" || job.StartedAt == nil || job.FinishedAt != nil {
		t.Errorf("unexpected submitted job %+v", job)
	}
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Contains(data, []byte(`"started_at"`)) || bytes.Contains(data, []byte(`"finished_at"`)) {
		t.Errorf("running job must carry started_at only, got %s", data)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.LastReset().State == "success" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("reset did not finish: %+v", svc.LastReset())
}

func TestSubmitResetWhileRunning(t *testing.T) {
	svc, _ := newTestService(t, env.Mode{}, 0)

	if _, err := svc.begin(); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := svc.SubmitReset(); !errors.Is(err, ErrResetRunning) {
		t.Errorf("expected ErrResetRunning, got %v", err)
	}
	if err := svc.ResetNow(context.Background()); !errors.Is(err, ErrResetRunning) {
		t.Errorf("expected ErrResetRunning, got %v", err)
	}
	svc.end(nil)
	if err := svc.ResetNow(context.Background()); err != nil {
		t.Errorf("reset after previous finished: %v", err)
	}
}

func TestNewServiceReplacesPreviousShared(t *testing.T) {
	first, reg := newTestService(t, env.Mode{}, 0)

	cfg := config.Default()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "second.db")
	second, err := NewService(context.Background(), cfg, WithRegistry(reg), WithMode(env.Mode{}))
	if err != nil {
		t.Fatalf("second service: %v", err)
	}
	defer second.Close(context.Background())

	if first.Status().Connected {
		t.Error("previous shared client must be disconnected")
	}
	if reg.Current() != guard.Client(second.Handle()) {
		t.Error("expected newest client installed")
	}
}

func TestStatusOmitsUnsetResetTimes(t *testing.T) {
	svc, _ := newTestService(t, env.Mode{}, 0)

	data, err := json.Marshal(svc.Status())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if bytes.Contains(data, []byte("started_at")) || bytes.Contains(data, []byte("finished_at")) {
		t.Errorf("expected no reset times before any reset, got %s", data)
	}
}
