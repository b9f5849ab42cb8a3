package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/axekar/Demodigi/domain/core"
)

// Config carries the tunables of analysis and power search runs. All
// fields have working defaults; the environment overrides them.
type Config struct {
	Trials        int
	TargetPower   float64
	Alpha         float64
	Level         float64
	StartN        int
	MaxN          int
	Tolerance     int
	MaxIterations int
	MarginSE      float64
	RecheckFactor int
	Workers       int
	MasterSeed    int64
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Trials:        1000,
		TargetPower:   0.8,
		Alpha:         0.05,
		Level:         0.95,
		StartN:        8,
		MaxN:          10000,
		Tolerance:     1,
		MaxIterations: 32,
		MarginSE:      1.0,
		RecheckFactor: 4,
		Workers:       runtime.GOMAXPROCS(0),
		MasterSeed:    1,
	}
}

// Load builds the configuration from defaults, a .env file when
// present, and DD_* environment variables, then validates it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	var err error
	if err = overrideInt(&cfg.Trials, "DD_TRIALS"); err != nil {
		return cfg, err
	}
	if err = overrideFloat(&cfg.TargetPower, "DD_TARGET_POWER"); err != nil {
		return cfg, err
	}
	if err = overrideFloat(&cfg.Alpha, "DD_ALPHA"); err != nil {
		return cfg, err
	}
	if err = overrideFloat(&cfg.Level, "DD_LEVEL"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.StartN, "DD_START_N"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.MaxN, "DD_MAX_N"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.Tolerance, "DD_SEARCH_TOLERANCE"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.MaxIterations, "DD_MAX_ITERATIONS"); err != nil {
		return cfg, err
	}
	if err = overrideFloat(&cfg.MarginSE, "DD_MARGIN_SE"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.RecheckFactor, "DD_RECHECK_FACTOR"); err != nil {
		return cfg, err
	}
	if err = overrideInt(&cfg.Workers, "DD_WORKERS"); err != nil {
		return cfg, err
	}
	if err = overrideInt64(&cfg.MasterSeed, "DD_MASTER_SEED"); err != nil {
		return cfg, err
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks every range constraint the engine and search depend
// on. Cross-field constraints are validated where they bind, inside
// the search configuration.
func (c Config) Validate() error {
	if c.Trials < 1 {
		return core.NewConfigurationError("trial count must be positive, got %d", c.Trials)
	}
	if c.TargetPower <= 0 || c.TargetPower >= 1 {
		return core.NewConfigurationError("target power must sit in (0,1), got %g", c.TargetPower)
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		return core.NewConfigurationError("alpha must sit in (0,1), got %g", c.Alpha)
	}
	if c.Level <= 0 || c.Level >= 1 {
		return core.NewConfigurationError("interval level must sit in (0,1), got %g", c.Level)
	}
	if c.StartN < 1 {
		return core.NewConfigurationError("starting size must be positive, got %d", c.StartN)
	}
	if c.MaxN < c.StartN {
		return core.NewConfigurationError("maximum size %d is below starting size %d", c.MaxN, c.StartN)
	}
	if c.Tolerance < 1 {
		return core.NewConfigurationError("tolerance must be positive, got %d", c.Tolerance)
	}
	if c.MaxIterations < 1 {
		return core.NewConfigurationError("iteration cap must be positive, got %d", c.MaxIterations)
	}
	if c.MarginSE < 0 {
		return core.NewConfigurationError("margin multiplier cannot be negative, got %g", c.MarginSE)
	}
	if c.RecheckFactor < 1 {
		return core.NewConfigurationError("recheck factor must be positive, got %d", c.RecheckFactor)
	}
	if c.Workers < 1 {
		return core.NewConfigurationError("worker count must be positive, got %d", c.Workers)
	}
	return nil
}

func overrideInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return core.NewConfigurationError("%s: %q is not an integer", key, raw)
	}
	*dst = v
	return nil
}

func overrideInt64(dst *int64, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return core.NewConfigurationError("%s: %q is not an integer", key, raw)
	}
	*dst = v
	return nil
}

func overrideFloat(dst *float64, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return core.NewConfigurationError("%s: %q is not a number", key, raw)
	}
	*dst = v
	return nil
}
