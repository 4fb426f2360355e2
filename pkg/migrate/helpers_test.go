package migrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
)

// writeTool installs a shell script standing in for the migration tool. It
// records its arguments next to itself and exits with code.
func writeTool(t *testing.T, dir, name string, code int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(dir, name)
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > \"$0.args\"\necho \"tool output\"\nexit %d\n", code)
	if err := os.WriteFile(p, []byte(script), 0755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	return p
}

// recordedArgs returns the arguments the tool at path was called with, or
// ok=false if it never ran.
func recordedArgs(t *testing.T, path string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(path + ".args")
	if os.IsNotExist(err) {
		return "", false
	}
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.TrimSpace(string(data)), true
}

type fakeClient struct{ disconnects atomic.Int32 }

func (c *fakeClient) Disconnect(ctx context.Context) error {
	c.disconnects.Add(1)
	return nil
}

func noPath(string) (string, error) { return "", os.ErrNotExist }
