// Package env classifies the runtime context the database guard runs in.
package env

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"devdb/pkg/common/config"
)

const (
	// EnvBrowser forces the browser-like classification, e.g. for wasm shims.
	EnvBrowser = "DEVDB_BROWSER"
	// EnvTest marks a test-execution context outside of go test.
	EnvTest = "DEVDB_TEST"
	// EnvName overrides the environment name, like the environment config key.
	EnvName = "DEVDB_ENV"
	// EnvConfigName is the viper override of the environment config key.
	EnvConfigName = "DEVDB_ENVIRONMENT"
	// EnvGoEnv is the conventional environment name variable.
	EnvGoEnv = "GO_ENV"
)

// productionVars are read on every Detect, whether or not config was loaded.
var productionVars = []string{EnvName, EnvConfigName, EnvGoEnv}

// Mode is a read-only snapshot of the runtime classification.
type Mode struct {
	Production bool
	Browser    bool
	Test       bool
}

// Detect classifies the current process. A nil cfg uses config.Get().
// The process is production if the config or any of DEVDB_ENV,
// DEVDB_ENVIRONMENT and GO_ENV says so; no source can downgrade another.
func Detect(cfg *config.Config) Mode {
	if cfg == nil {
		cfg = config.Get()
	}
	production := cfg.IsProduction()
	for _, name := range productionVars {
		if isProduction(os.Getenv(name)) {
			production = true
		}
	}
	return Mode{
		Production: production,
		Browser:    runtime.GOOS == "js" || flag(EnvBrowser),
		Test:       testing.Testing() || flag(EnvTest),
	}
}

// PlaceholderOnly reports whether construction must yield an empty stand-in:
// a browser-like host that is not executing tests.
func (m Mode) PlaceholderOnly() bool {
	return m.Browser && !m.Test
}

func (m Mode) String() string {
	var parts []string
	if m.Production {
		parts = append(parts, "production")
	} else {
		parts = append(parts, "development")
	}
	if m.Browser {
		parts = append(parts, "browser")
	}
	if m.Test {
		parts = append(parts, "test")
	}
	return strings.Join(parts, "+")
}

func isProduction(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "production")
}

func flag(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}
