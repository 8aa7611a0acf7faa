// Package config loads optimizer and server settings from defaults, an
// optional YAML file, ROUTEOPT_* environment variables and bound flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"parcelroute/internal/model"
	"parcelroute/internal/opt"
)

var ErrInvalidConfig = errors.New("invalid config")

const EnvPrefix = "ROUTEOPT"

type AnnealingConfig struct {
	InitialTemperature       float64 `mapstructure:"initial_temperature" json:"initialTemperature" yaml:"initial_temperature"`
	CoolingRate              float64 `mapstructure:"cooling_rate" json:"coolingRate" yaml:"cooling_rate"`
	StoppingTemperature      float64 `mapstructure:"stopping_temperature" json:"stoppingTemperature" yaml:"stopping_temperature"`
	IterationsPerTemperature int     `mapstructure:"iterations_per_temperature" json:"iterationsPerTemperature" yaml:"iterations_per_temperature"`
	SwapAttempts             int     `mapstructure:"swap_attempts" json:"swapAttempts" yaml:"swap_attempts"`
}

type GeneticConfig struct {
	PopulationSize int     `mapstructure:"population_size" json:"populationSize" yaml:"population_size"`
	Generations    int     `mapstructure:"generations" json:"generations" yaml:"generations"`
	MutationRate   float64 `mapstructure:"mutation_rate" json:"mutationRate" yaml:"mutation_rate"`
	MutationMode   string  `mapstructure:"mutation_mode" json:"mutationMode" yaml:"mutation_mode"`
	Elite          int     `mapstructure:"elite" json:"elite" yaml:"elite"`
	ParentPool     int     `mapstructure:"parent_pool" json:"parentPool" yaml:"parent_pool"`
}

type ServerConfig struct {
	Addr               string  `mapstructure:"addr" json:"addr" yaml:"addr"`
	DatabaseURL        string  `mapstructure:"database_url" json:"-" yaml:"database_url"`
	RedisURL           string  `mapstructure:"redis_url" json:"-" yaml:"redis_url"`
	Migrate            bool    `mapstructure:"migrate" json:"migrate" yaml:"migrate"`
	MigrationsDir      string  `mapstructure:"migrations_dir" json:"migrationsDir" yaml:"migrations_dir"`
	RateRPS            float64 `mapstructure:"rate_rps" json:"rateRps" yaml:"rate_rps"`
	RateBurst          int     `mapstructure:"rate_burst" json:"rateBurst" yaml:"rate_burst"`
	WebhookMaxAttempts int     `mapstructure:"webhook_max_attempts" json:"webhookMaxAttempts" yaml:"webhook_max_attempts"`
	MetricsKeep        int     `mapstructure:"metrics_keep" json:"metricsKeep" yaml:"metrics_keep"`
}

type Config struct {
	// Seed 0 picks a time-based seed per run.
	Seed             int64           `mapstructure:"seed" json:"seed" yaml:"seed"`
	Algorithm        string          `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"`
	Polish           bool            `mapstructure:"polish" json:"polish" yaml:"polish"`
	PolishIterations int             `mapstructure:"polish_iterations" json:"polishIterations" yaml:"polish_iterations"`
	Annealing        AnnealingConfig `mapstructure:"annealing" json:"annealing" yaml:"annealing"`
	Genetic          GeneticConfig   `mapstructure:"genetic" json:"genetic" yaml:"genetic"`
	Server           ServerConfig    `mapstructure:"server" json:"server" yaml:"server"`
}

func Default() Config {
	a := opt.DefaultAnnealParams()
	g := opt.DefaultGeneticParams()
	return Config{
		Algorithm:        model.AlgorithmBoth,
		PolishIterations: 50,
		Annealing: AnnealingConfig{
			InitialTemperature:       a.InitialTemp,
			CoolingRate:              a.Cooling,
			StoppingTemperature:      a.StopTemp,
			IterationsPerTemperature: a.ItersPerTemp,
			SwapAttempts:             a.SwapAttempts,
		},
		Genetic: GeneticConfig{
			PopulationSize: g.PopulationSize,
			Generations:    g.Generations,
			MutationRate:   g.MutationRate,
			MutationMode:   g.Mutation.String(),
			Elite:          g.Elite,
			ParentPool:     g.ParentPool,
		},
		Server: ServerConfig{
			Addr:               ":8080",
			Migrate:            true,
			MigrationsDir:      "db/migrations",
			WebhookMaxAttempts: 10,
			MetricsKeep:        1000,
		},
	}
}

// Validate checks every range. All problems are reported together and wrap
// ErrInvalidConfig.
func (c Config) Validate() error {
	var errs []error
	if !model.ValidAlgorithm(c.Algorithm) {
		errs = append(errs, fmt.Errorf("algorithm must be anneal, genetic or both, got %q", c.Algorithm))
	}
	if c.PolishIterations <= 0 {
		errs = append(errs, errors.New("polish_iterations must be > 0"))
	}
	a := c.Annealing
	if !(a.InitialTemperature > 0) {
		errs = append(errs, errors.New("annealing.initial_temperature must be > 0"))
	}
	if !(a.CoolingRate > 0 && a.CoolingRate < 1) {
		errs = append(errs, errors.New("annealing.cooling_rate must be in (0,1)"))
	}
	if !(a.StoppingTemperature > 0) {
		errs = append(errs, errors.New("annealing.stopping_temperature must be > 0"))
	}
	if a.IterationsPerTemperature <= 0 {
		errs = append(errs, errors.New("annealing.iterations_per_temperature must be > 0"))
	}
	if a.SwapAttempts <= 0 {
		errs = append(errs, errors.New("annealing.swap_attempts must be > 0"))
	}
	g := c.Genetic
	if g.PopulationSize <= 0 {
		errs = append(errs, errors.New("genetic.population_size must be > 0"))
	}
	if g.Generations <= 0 {
		errs = append(errs, errors.New("genetic.generations must be > 0"))
	}
	if !(g.MutationRate >= 0 && g.MutationRate <= 1) {
		errs = append(errs, errors.New("genetic.mutation_rate must be in [0,1]"))
	}
	if _, err := opt.ParseMutationMode(g.MutationMode); err != nil {
		errs = append(errs, fmt.Errorf("genetic.mutation_mode: %w", err))
	}
	if g.Elite <= 0 || g.Elite > g.PopulationSize {
		errs = append(errs, errors.New("genetic.elite must be in [1,population_size]"))
	}
	if g.ParentPool <= 0 {
		errs = append(errs, errors.New("genetic.parent_pool must be > 0"))
	}
	if c.Server.RateRPS < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server.rate_rps and server.rate_burst must be >= 0"))
	}
	if c.Server.WebhookMaxAttempts <= 0 {
		errs = append(errs, errors.New("server.webhook_max_attempts must be > 0"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) AnnealParams() opt.AnnealParams {
	return opt.AnnealParams{
		InitialTemp:  c.Annealing.InitialTemperature,
		Cooling:      c.Annealing.CoolingRate,
		StopTemp:     c.Annealing.StoppingTemperature,
		ItersPerTemp: c.Annealing.IterationsPerTemperature,
		SwapAttempts: c.Annealing.SwapAttempts,
	}
}

// GeneticParams assumes a validated config; an unknown mutation mode falls
// back to any-route.
func (c Config) GeneticParams() opt.GeneticParams {
	mode, _ := opt.ParseMutationMode(c.Genetic.MutationMode)
	return opt.GeneticParams{
		PopulationSize: c.Genetic.PopulationSize,
		Generations:    c.Genetic.Generations,
		MutationRate:   c.Genetic.MutationRate,
		Mutation:       mode,
		Elite:          c.Genetic.Elite,
		ParentPool:     c.Genetic.ParentPool,
	}
}

// WithParams overlays non-zero per-run overrides.
func (c Config) WithParams(p *model.Params) Config {
	if p == nil {
		return c
	}
	setFloat(&c.Annealing.InitialTemperature, p.InitialTemperature)
	setFloat(&c.Annealing.CoolingRate, p.CoolingRate)
	setFloat(&c.Annealing.StoppingTemperature, p.StoppingTemperature)
	setInt(&c.Annealing.IterationsPerTemperature, p.IterationsPerTemperature)
	setInt(&c.Annealing.SwapAttempts, p.SwapAttempts)
	setInt(&c.Genetic.PopulationSize, p.PopulationSize)
	setInt(&c.Genetic.Generations, p.Generations)
	if p.MutationRate != nil {
		c.Genetic.MutationRate = *p.MutationRate
	}
	if p.MutationMode != "" {
		c.Genetic.MutationMode = p.MutationMode
	}
	setInt(&c.Genetic.Elite, p.Elite)
	setInt(&c.Genetic.ParentPool, p.ParentPool)
	return c
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// legacyEnv maps keys to the unprefixed variables the server has always
// honoured.
var legacyEnv = map[string]string{
	"server.database_url":         "DATABASE_URL",
	"server.redis_url":            "REDIS_URL",
	"server.rate_rps":             "RATE_RPS",
	"server.rate_burst":           "RATE_BURST",
	"server.webhook_max_attempts": "WEBHOOK_MAX_ATTEMPTS",
	"server.migrate":              "DB_MIGRATE",
}

// Load layers Default, the YAML file at path (skipped when empty), the
// environment and whatever flags the caller bound on v. v may be nil.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("seed", d.Seed)
	v.SetDefault("algorithm", d.Algorithm)
	v.SetDefault("polish", d.Polish)
	v.SetDefault("polish_iterations", d.PolishIterations)

	v.SetDefault("annealing.initial_temperature", d.Annealing.InitialTemperature)
	v.SetDefault("annealing.cooling_rate", d.Annealing.CoolingRate)
	v.SetDefault("annealing.stopping_temperature", d.Annealing.StoppingTemperature)
	v.SetDefault("annealing.iterations_per_temperature", d.Annealing.IterationsPerTemperature)
	v.SetDefault("annealing.swap_attempts", d.Annealing.SwapAttempts)

	v.SetDefault("genetic.population_size", d.Genetic.PopulationSize)
	v.SetDefault("genetic.generations", d.Genetic.Generations)
	v.SetDefault("genetic.mutation_rate", d.Genetic.MutationRate)
	v.SetDefault("genetic.mutation_mode", d.Genetic.MutationMode)
	v.SetDefault("genetic.elite", d.Genetic.Elite)
	v.SetDefault("genetic.parent_pool", d.Genetic.ParentPool)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.database_url", d.Server.DatabaseURL)
	v.SetDefault("server.redis_url", d.Server.RedisURL)
	v.SetDefault("server.migrate", d.Server.Migrate)
	v.SetDefault("server.migrations_dir", d.Server.MigrationsDir)
	v.SetDefault("server.rate_rps", d.Server.RateRPS)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)
	v.SetDefault("server.webhook_max_attempts", d.Server.WebhookMaxAttempts)
	v.SetDefault("server.metrics_keep", d.Server.MetricsKeep)
}
