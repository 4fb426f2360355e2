package migrate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"devdb/pkg/common/config"
)

// DefaultArgs reset the schema without prompting, skip client generation and
// allow preview features.
var DefaultArgs = []string{"migrate", "reset", "--force", "--skip-generate", "--preview-feature"}

// Runner spawns the migration tool with inherited standard streams.
type Runner struct {
	Locator *Locator
	Args    []string
	Dir     string   // child working directory, inherited when empty
	Env     []string // appended to the parent environment
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// NewRunner builds a runner from the migrate config section.
func NewRunner(cfg config.Migrate) *Runner {
	args := cfg.Args
	if len(args) == 0 {
		args = DefaultArgs
	}
	name := cfg.Tool
	if name == "" {
		name = config.Default().Migrate.Tool
	}
	return &Runner{
		Locator: NewLocator(name, cfg.SearchDirs...),
		Args:    append([]string(nil), args...),
	}
}

// Run locates the tool and executes it.
func (r *Runner) Run() error {
	path, err := r.Locator.Locate()
	if err != nil {
		return err
	}
	return r.Exec(path)
}

// Exec runs the executable at path and blocks until it exits. A non-zero
// exit yields *ExitError. Once started the tool is never killed or signalled,
// so a hung tool blocks the caller.
func (r *Runner) Exec(path string) error {
	cmd := exec.Command(path, r.Args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = orReader(r.Stdin, os.Stdin)
	cmd.Stdout = orWriter(r.Stdout, os.Stdout)
	cmd.Stderr = orWriter(r.Stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Tool: path, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", path, err)
	}
	return nil
}

func orReader(r io.Reader, def io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return def
}

func orWriter(w io.Writer, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}
