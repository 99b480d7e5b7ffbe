package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Journal drivers.
const (
	DriverNone     = "none"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Simulator holds all configuration for the encounter simulator.
type Simulator struct {
	LogLevel string `yaml:"log_level" env:"D20_LOG_LEVEL"`

	// Runs
	Seed      string `yaml:"seed" env:"D20_SEED"`
	Runs      int    `yaml:"runs" env:"D20_RUNS"`
	Workers   int    `yaml:"workers" env:"D20_WORKERS"`
	MaxRounds int    `yaml:"max_rounds" env:"D20_MAX_ROUNDS"`

	// Rules
	CatalogPath string `yaml:"catalog_path" env:"D20_CATALOG"`
	DRStrategy  string `yaml:"dr_strategy" env:"D20_DR_STRATEGY"`

	Teams []TeamConfig `yaml:"teams"`

	Journal JournalConfig `yaml:"journal" envPrefix:"D20_JOURNAL_"`
}

// TeamConfig lists the creature templates fighting on one side.
type TeamConfig struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// JournalConfig selects where encounter results are recorded.
type JournalConfig struct {
	Driver   string         `yaml:"driver" env:"DRIVER"`
	SQLite   string         `yaml:"sqlite_path" env:"SQLITE_PATH"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	DBName   string `yaml:"dbname" env:"NAME"`
	SSLMode  string `yaml:"sslmode" env:"SSLMODE"`
	MaxConns int32  `yaml:"max_conns" env:"MAX_CONNS"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// DefaultSimulator returns Simulator config with sensible defaults.
func DefaultSimulator() Simulator {
	return Simulator{
		LogLevel:   "info",
		Seed:       "d20",
		Runs:       100,
		Workers:    4,
		MaxRounds:  50,
		DRStrategy: "greedy",
		Teams: []TeamConfig{
			{Name: "red", Members: []string{"fighter", "rogue"}},
			{Name: "blue", Members: []string{"barbarian", "orc"}},
		},
		Journal: JournalConfig{
			Driver: DriverNone,
			SQLite: "combat.db",
			Database: DatabaseConfig{
				Host:     "127.0.0.1",
				Port:     5432,
				User:     "d20",
				Password: "d20",
				DBName:   "d20",
				SSLMode:  "disable",
				MaxConns: 4,
			},
		},
	}
}

// LoadSimulator loads simulator config: defaults, then the YAML file at path
// if it exists, then D20_* environment overrides.
func LoadSimulator(path string) (Simulator, error) {
	cfg := DefaultSimulator()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the config for values the simulator cannot run with.
func (c Simulator) Validate() error {
	var errs []error
	if c.Runs <= 0 {
		errs = append(errs, fmt.Errorf("runs must be positive, got %d", c.Runs))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("max_rounds must be positive, got %d", c.MaxRounds))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.DRStrategy) {
	case "", "greedy", "exact":
	default:
		errs = append(errs, fmt.Errorf("unknown dr_strategy %q", c.DRStrategy))
	}
	if len(c.Teams) < 2 {
		errs = append(errs, fmt.Errorf("need at least two teams, got %d", len(c.Teams)))
	}
	seen := make(map[string]bool, len(c.Teams))
	for _, t := range c.Teams {
		if t.Name == "" {
			errs = append(errs, errors.New("team without a name"))
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("duplicate team %q", t.Name))
		}
		seen[t.Name] = true
		if len(t.Members) == 0 {
			errs = append(errs, fmt.Errorf("team %q has no members", t.Name))
		}
	}
	switch c.Journal.Driver {
	case "", DriverNone:
	case DriverPostgres:
		if c.Journal.Database.Host == "" || c.Journal.Database.DBName == "" {
			errs = append(errs, errors.New("postgres journal needs host and dbname"))
		}
	case DriverSQLite:
		if c.Journal.SQLite == "" {
			errs = append(errs, errors.New("sqlite journal needs sqlite_path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown journal driver %q", c.Journal.Driver))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c Simulator) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}
