// Package config loads engine, simulation and logging settings from a YAML or JSON file
// with environment variable overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meenmo/ccrfast/ccr"
	"github.com/meenmo/ccrfast/simulation"
)

// EnvPrefix prefixes every environment override, e.g. CCRFAST_SIMULATION_PATHS.
const EnvPrefix = "CCRFAST"

// Config is the complete run configuration.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"     yaml:"engine"`
	Simulation SimulationConfig `mapstructure:"simulation" yaml:"simulation"`
	Logging    LoggingConfig    `mapstructure:"logging"    yaml:"logging"`
}

// EngineConfig mirrors ccr.Options. IncludeSettlePayments has no implicit meaning: it is
// false unless stated.
type EngineConfig struct {
	DiscountAccrued                bool    `mapstructure:"discount_accrued"                  yaml:"discount_accrued"`
	IncludeSettlePayments          bool    `mapstructure:"include_settle_payments"           yaml:"include_settle_payments"`
	FixConvexityVolatility         bool    `mapstructure:"fix_convexity_volatility"          yaml:"fix_convexity_volatility"`
	ForwardVolatilityTermStructure bool    `mapstructure:"forward_volatility_term_structure" yaml:"forward_volatility_term_structure"`
	ExposureDatesFromSettle        bool    `mapstructure:"exposure_dates_from_settle"        yaml:"exposure_dates_from_settle"`
	CleanPv                        bool    `mapstructure:"clean_pv"                          yaml:"clean_pv"`
	BasketTolerance                float64 `mapstructure:"basket_tolerance"                  yaml:"basket_tolerance"`
	ProtectionGridMonths           int     `mapstructure:"protection_grid_months"            yaml:"protection_grid_months"`
}

// SimulationConfig holds the Monte Carlo settings.
type SimulationConfig struct {
	Paths         int     `mapstructure:"paths"          yaml:"paths"`
	Workers       int     `mapstructure:"workers"        yaml:"workers"` // 0 = one per CPU
	Seed          uint64  `mapstructure:"seed"           yaml:"seed"`
	HorizonYears  int     `mapstructure:"horizon_years"  yaml:"horizon_years"`
	StepMonths    int     `mapstructure:"step_months"    yaml:"step_months"`
	Currency      string  `mapstructure:"currency"       yaml:"currency"`
	RateVol       float64 `mapstructure:"rate_vol"       yaml:"rate_vol"`
	MeanReversion float64 `mapstructure:"mean_reversion" yaml:"mean_reversion"`
	SpotVol       float64 `mapstructure:"spot_vol"       yaml:"spot_vol"`
	Quantile      float64 `mapstructure:"quantile"       yaml:"quantile"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration at path. An empty path uses defaults and environment
// variables only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := ccr.DefaultOptions()
	v.SetDefault("engine.discount_accrued", def.DiscountAccrued)
	v.SetDefault("engine.include_settle_payments", def.IncludeSettlePayments)
	v.SetDefault("engine.fix_convexity_volatility", def.FixConvexityVolatility)
	v.SetDefault("engine.forward_volatility_term_structure", def.ForwardVolatilityTermStructure)
	v.SetDefault("engine.exposure_dates_from_settle", def.ExposureDatesFromSettle)
	v.SetDefault("engine.clean_pv", def.CleanPv)
	v.SetDefault("engine.basket_tolerance", def.BasketTolerance)
	v.SetDefault("engine.protection_grid_months", def.ProtectionGridMonths)

	sim := simulation.DefaultConfig()
	v.SetDefault("simulation.paths", sim.Paths)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.seed", sim.Seed)
	v.SetDefault("simulation.horizon_years", 10)
	v.SetDefault("simulation.step_months", 3)
	v.SetDefault("simulation.currency", sim.Model.Currency)
	v.SetDefault("simulation.rate_vol", sim.Model.RateVol)
	v.SetDefault("simulation.mean_reversion", sim.Model.MeanReversion)
	v.SetDefault("simulation.spot_vol", sim.Model.SpotVol)
	v.SetDefault("simulation.quantile", sim.Quantile)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Validate checks the values viper cannot.
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.Paths <= 0:
		return fmt.Errorf("simulation.paths must be > 0, got %d", s.Paths)
	case s.HorizonYears <= 0:
		return fmt.Errorf("simulation.horizon_years must be > 0, got %d", s.HorizonYears)
	case s.StepMonths <= 0:
		return fmt.Errorf("simulation.step_months must be > 0, got %d", s.StepMonths)
	case s.Quantile <= 0 || s.Quantile >= 1:
		return fmt.Errorf("simulation.quantile must be in (0, 1), got %g", s.Quantile)
	case c.Engine.BasketTolerance < 0:
		return fmt.Errorf("engine.basket_tolerance must be >= 0, got %g", c.Engine.BasketTolerance)
	}
	return nil
}

// Options returns the engine options.
func (e EngineConfig) Options() ccr.Options {
	return ccr.Options{
		DiscountAccrued:                e.DiscountAccrued,
		IncludeSettlePayments:          e.IncludeSettlePayments,
		FixConvexityVolatility:         e.FixConvexityVolatility,
		ForwardVolatilityTermStructure: e.ForwardVolatilityTermStructure,
		ExposureDatesFromSettle:        e.ExposureDatesFromSettle,
		CleanPv:                        e.CleanPv,
		BasketTolerance:                e.BasketTolerance,
		ProtectionGridMonths:           e.ProtectionGridMonths,
	}
}

// Config returns the simulation engine configuration for the given simulated assets.
func (s SimulationConfig) Config(assets []string) simulation.Config {
	return simulation.Config{
		Paths:    s.Paths,
		Workers:  s.Workers,
		Seed:     s.Seed,
		Quantile: s.Quantile,
		Model: simulation.Model{
			RateVol:       s.RateVol,
			MeanReversion: s.MeanReversion,
			SpotVol:       s.SpotVol,
			Currency:      s.Currency,
			Assets:        assets,
		},
	}
}

// NewLogger builds a zap logger for the configured level and format.
func NewLogger(c LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logging.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}
