package env

import (
	"testing"

	"devdb/pkg/common/config"
)

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, name := range productionVars {
		t.Setenv(name, "")
	}
}

func TestDetectProduction(t *testing.T) {
	clearEnvironment(t)
	m := Detect(&config.Config{Environment: "production"})
	if !m.Production {
		t.Error("expected production")
	}
	m = Detect(&config.Config{Environment: "development"})
	if m.Production {
		t.Error("expected development")
	}
}

func TestDetectProductionVariables(t *testing.T) {
	for _, name := range productionVars {
		t.Run(name, func(t *testing.T) {
			clearEnvironment(t)
			t.Setenv(name, " Production ")
			if !Detect(&config.Config{}).Production {
				t.Errorf("expected %s to select production with an empty environment", name)
			}
			if !Detect(&config.Config{Environment: "development"}).Production {
				t.Errorf("expected %s to win over the development default", name)
			}
		})
	}
}

func TestDetectNilConfigWithoutLoad(t *testing.T) {
	config.Set(nil)
	for _, name := range []string{EnvName, EnvGoEnv} {
		t.Run(name, func(t *testing.T) {
			clearEnvironment(t)
			if Detect(nil).Production {
				t.Fatal("expected development before the variable is set")
			}
			t.Setenv(name, "production")
			if !Detect(nil).Production {
				t.Errorf("expected %s=production to be honored without a loaded config", name)
			}
		})
	}
}

func TestDetectVariableCannotDowngrade(t *testing.T) {
	clearEnvironment(t)
	t.Setenv(EnvGoEnv, "development")
	if !Detect(&config.Config{Environment: "production"}).Production {
		t.Error("a development variable must not override a production config")
	}
}

func TestDetectUnderGoTest(t *testing.T) {
	if !Detect(&config.Config{}).Test {
		t.Error("expected test context under go test")
	}
}

func TestDetectBrowserFlag(t *testing.T) {
	t.Setenv(EnvBrowser, "1")
	m := Detect(&config.Config{})
	if !m.Browser {
		t.Error("expected browser flag to be honored")
	}
	// go test always counts as test execution, so no placeholder here.
	if m.PlaceholderOnly() {
		t.Error("test context must not yield placeholders")
	}
}

func TestDetectNilConfigUsesGlobal(t *testing.T) {
	clearEnvironment(t)
	config.Set(&config.Config{Environment: "production"})
	defer config.Set(nil)
	if !Detect(nil).Production {
		t.Error("expected global config to be consulted")
	}
}

func TestPlaceholderOnly(t *testing.T) {
	cases := []struct {
		mode Mode
		want bool
	}{
		{Mode{Browser: true}, true},
		{Mode{Browser: true, Production: true}, true},
		{Mode{Browser: true, Test: true}, false},
		{Mode{}, false},
		{Mode{Production: true}, false},
	}
	for _, c := range cases {
		if got := c.mode.PlaceholderOnly(); got != c.want {
			t.Errorf("%s: PlaceholderOnly() = %v, want %v", c.mode, got, c.want)
		}
	}
}

func TestModeString(t *testing.T) {
	if s := (Mode{Production: true}).String(); s != "production" {
		t.Errorf("got %q", s)
	}
	if s := (Mode{Browser: true, Test: true}).String(); s != "development+browser+test" {
		t.Errorf("got %q", s)
	}
}
