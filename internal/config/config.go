package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/zeusync/enemyai/internal/core/npc"
	"github.com/zeusync/enemyai/internal/core/observability/log"
	"github.com/zeusync/enemyai/internal/core/observability/metrics"
	"github.com/zeusync/enemyai/internal/core/world"
)

// EnvPrefix is prepended to every environment override, e.g.
// ENEMYAI_SCHEDULER_WORKERS=4.
const EnvPrefix = "ENEMYAI"

var (
	ErrReadConfig    = errors.New("read config")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config is the full runtime configuration of the enemyai binary.
type Config struct {
	Log        log.Config          `mapstructure:"log" json:"log" yaml:"log"`
	Scheduler  npc.SchedulerConfig `mapstructure:"scheduler" json:"scheduler" yaml:"scheduler"`
	Templates  TemplatesConfig     `mapstructure:"templates" json:"templates" yaml:"templates"`
	World      world.Config        `mapstructure:"world" json:"world" yaml:"world"`
	Simulation SimulationConfig    `mapstructure:"simulation" json:"simulation" yaml:"simulation"`
	Watch      WatchConfig         `mapstructure:"watch" json:"watch" yaml:"watch"`
	Metrics    metrics.Config      `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
}

type TemplatesConfig struct {
	Dir string `mapstructure:"dir" json:"dir" yaml:"dir" validate:"required"`
	// Default is the template spawned enemies use.
	Default string `mapstructure:"default" json:"default" yaml:"default" validate:"required"`
}

// SimulationConfig places enemies for the run command.
type SimulationConfig struct {
	Enemies int     `mapstructure:"enemies" json:"enemies" yaml:"enemies" validate:"gte=0,lte=100000"`
	Radius  float64 `mapstructure:"radius" json:"radius" yaml:"radius" validate:"gt=0"`
	// Ticks stops the run after that many ticks; 0 runs until interrupted.
	Ticks uint64 `mapstructure:"ticks" json:"ticks" yaml:"ticks"`
	// RespawnAfter revives a dead player after that many ticks; 0 never does.
	RespawnAfter uint64 `mapstructure:"respawn_after" json:"respawn_after" yaml:"respawn_after"`
}

type WatchConfig struct {
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" json:"addr" yaml:"addr" validate:"required_if=Enabled true"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Log:       log.DefaultConfig(),
		Scheduler: npc.DefaultSchedulerConfig(),
		Templates: TemplatesConfig{Dir: "configs/templates", Default: "grunt"},
		World:     world.DefaultConfig(),
		Simulation: SimulationConfig{
			Enemies:      8,
			Radius:       12,
			RespawnAfter: 40,
		},
		Watch:   WatchConfig{Enabled: true, Addr: ":8080"},
		Metrics: metrics.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
	v.SetDefault("log.development", d.Log.Development)

	v.SetDefault("scheduler.tick_rate", d.Scheduler.TickRate)
	v.SetDefault("scheduler.workers", d.Scheduler.Workers)
	v.SetDefault("scheduler.shards", d.Scheduler.Shards)

	v.SetDefault("templates.dir", d.Templates.Dir)
	v.SetDefault("templates.default", d.Templates.Default)

	v.SetDefault("world.player_id", d.World.PlayerID)
	v.SetDefault("world.player_health", d.World.PlayerHealth)
	v.SetDefault("world.player_position", map[string]any{"x": 0.0, "y": 0.0, "z": 0.0})
	damage := make(map[string]any, len(d.World.Damage))
	for k, amount := range d.World.Damage {
		damage[k] = amount
	}
	v.SetDefault("world.damage", damage)
	v.SetDefault("world.default_damage", d.World.DefaultDamage)

	v.SetDefault("simulation.enemies", d.Simulation.Enemies)
	v.SetDefault("simulation.radius", d.Simulation.Radius)
	v.SetDefault("simulation.ticks", d.Simulation.Ticks)
	v.SetDefault("simulation.respawn_after", d.Simulation.RespawnAfter)

	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.addr", d.Watch.Addr)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Load reads path (YAML, JSON or TOML by extension) on top of the defaults,
// applies ENEMYAI_* environment overrides and validates the result. An empty
// path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrReadConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs the struct validation rules of every section.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
