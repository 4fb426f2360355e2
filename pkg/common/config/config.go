package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. DEVDB_ENVIRONMENT or DEVDB_DATABASE_DRIVER.
const EnvPrefix = "DEVDB"

// Config represents the application configuration
type Config struct {
	Debug       bool     `json:"debug" mapstructure:"debug"`
	Environment string   `json:"environment" mapstructure:"environment"`
	Database    Database `json:"database" mapstructure:"database"`
	Migrate     Migrate  `json:"migrate" mapstructure:"migrate"`
	Server      Server   `json:"server" mapstructure:"server"`
	Worker      Worker   `json:"worker" mapstructure:"worker"`
	Log         Log      `json:"log" mapstructure:"log"`
}

// Database selects the gorm driver and connection target.
type Database struct {
	Driver string `json:"driver" mapstructure:"driver"` // sqlite, postgres or mysql
	DSN    string `json:"dsn" mapstructure:"dsn"`
	Name   string `json:"name" mapstructure:"name"` // sqlite file name inside .runtime
}

// Migrate configures the external migration tool used by reset.
type Migrate struct {
	Tool       string   `json:"tool" mapstructure:"tool"`
	Args       []string `json:"args" mapstructure:"args"`
	SearchDirs []string `json:"search_dirs" mapstructure:"search_dirs"`
}

type Server struct {
	Address string `json:"address" mapstructure:"address"`
}

type Worker struct {
	Size int `json:"size" mapstructure:"size"`
}

type Log struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"`
	Output string `json:"output" mapstructure:"output"`
}

var appConfig *Config

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:       false,
		Environment: "development",
		Database: Database{
			Driver: "sqlite",
			Name:   "devdb.db",
		},
		Migrate: Migrate{
			Tool:       "prisma",
			Args:       []string{"migrate", "reset", "--force", "--skip-generate", "--preview-feature"},
			SearchDirs: []string{"node_modules/.bin", "bin"},
		},
		Server: Server{Address: ":8080"},
		Worker: Worker{Size: 2},
		Log: Log{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

func setDefaults() {
	d := Default()
	viper.SetDefault("debug", d.Debug)
	viper.SetDefault("environment", d.Environment)
	viper.SetDefault("database.driver", d.Database.Driver)
	viper.SetDefault("database.dsn", d.Database.DSN)
	viper.SetDefault("database.name", d.Database.Name)
	viper.SetDefault("migrate.tool", d.Migrate.Tool)
	viper.SetDefault("migrate.args", d.Migrate.Args)
	viper.SetDefault("migrate.search_dirs", d.Migrate.SearchDirs)
	viper.SetDefault("server.address", d.Server.Address)
	viper.SetDefault("worker.size", d.Worker.Size)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("log.output", d.Log.Output)
}

// Load loads the configuration from config.json file
func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	if configPath != "" {
		viper.AddConfigPath(configPath)
	} else {
		// Default paths to look for config file
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	setDefaults()
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		// If config file doesn't exist, create a default one
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createDefaultConfig(configPath)
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return unmarshal()
}

func unmarshal() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	appConfig = &config
	return &config, nil
}

// createDefaultConfig writes the defaults to config.json in dir (or the working directory).
func createDefaultConfig(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	configFile := filepath.Join(dir, "config.json")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return nil, fmt.Errorf("error creating default config file: %w", err)
	}
	return unmarshal()
}

// Get returns the current configuration
func Get() *Config {
	if appConfig == nil {
		return Default()
	}
	return appConfig
}

// Set replaces the current configuration. Used by tests and by callers that
// build a Config without a file.
func Set(cfg *Config) {
	appConfig = cfg
}

// IsDebug returns whether debug mode is enabled
func IsDebug() bool {
	return Get().Debug
}

// IsProduction reports whether the configured environment is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// Reload reloads the configuration from file
func Reload() error {
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reloading config: %w", err)
	}
	_, err := unmarshal()
	return err
}
