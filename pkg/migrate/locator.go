package migrate

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"devdb/pkg/common/fs"
)

// Locator resolves the migration tool executable. Bin directories are tried
// relative to BaseDir and each of its ancestors, then PATH.
type Locator struct {
	Fs       afero.Fs
	Name     string
	BaseDir  string // working directory when empty
	BinDirs  []string
	LookPath func(file string) (string, error) // PATH lookup, exec.LookPath by default; nil skips PATH
}

// NewLocator returns an OS-backed locator for name.
func NewLocator(name string, binDirs ...string) *Locator {
	return &Locator{
		Fs:       afero.NewOsFs(),
		Name:     name,
		BinDirs:  binDirs,
		LookPath: exec.LookPath,
	}
}

// Locate returns the path of the first executable found.
func (l *Locator) Locate() (string, error) {
	if l.Name == "" {
		return "", fmt.Errorf("%w: empty tool name", ErrToolNotFound)
	}
	base := l.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
	}

	// explicit path, relative to base
	if strings.ContainsRune(l.Name, filepath.Separator) || strings.ContainsRune(l.Name, '/') {
		p := l.Name
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		if ok, err := fs.IsExecutable(l.Fs, p); err != nil {
			return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
		} else if ok {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s is not an executable file", ErrToolNotFound, p)
	}

	for dir := base; ; {
		for _, bin := range l.BinDirs {
			p := filepath.Join(dir, bin, l.Name)
			ok, err := fs.IsExecutable(l.Fs, p)
			if err != nil {
				return "", fmt.Errorf("%w: %w", ErrToolNotFound, err)
			}
			if ok {
				return p, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if l.LookPath != nil {
		p, err := l.LookPath(l.Name)
		if err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: %q: %w", ErrToolNotFound, l.Name, err)
	}
	return "", fmt.Errorf("%w: %q not in %v", ErrToolNotFound, l.Name, l.BinDirs)
}
