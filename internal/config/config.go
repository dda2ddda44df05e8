package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mickamy/manythrough/orm"
	"github.com/mickamy/manythrough/through"
)

// Config holds the CLI configuration.
// It comes from a YAML file; environment variables override YAML values
// for fields that support both. The DSN may carry a password, so it is
// only read from the environment.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`

	// Associations are declared in order and the registry is sealed after
	// the last one.
	Associations []through.Declaration `yaml:"associations"`
}

// DatabaseConfig selects the SQL driver and connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"MANYTHROUGH_DB_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"-" env:"MANYTHROUGH_DB_DSN"` // Secret - not in YAML
}

// LogConfig controls the zap logger built by Logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"MANYTHROUGH_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"MANYTHROUGH_LOG_FORMAT" env-default:"console"`
}

// Load reads the YAML file at path with environment variable overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := orm.DialectFor(c.Database.Driver); err != nil {
		return err //nolint:wrapcheck // already prefixed
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format %q must be console or json", c.Log.Format)
	}
	return nil
}

// Registry declares every configured association in a new registry and
// seals it.
func (c *Config) Registry() (*through.Registry, error) {
	r := through.NewRegistry()
	for i, decl := range c.Associations {
		if _, err := r.Declare(decl); err != nil {
			return nil, fmt.Errorf("associations[%d]: %w", i, err)
		}
	}
	r.Seal()
	return r, nil
}

// Logger builds a zap logger from the log section.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build() //nolint:wrapcheck // thin wrapper
}
