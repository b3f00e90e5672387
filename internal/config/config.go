package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Game     GameConfig     `mapstructure:"game"`
	Cards    CardsConfig    `mapstructure:"cards"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
}

// DatabaseConfig holds PostgreSQL connection settings. The database is
// optional: with Enabled false the card catalog loads from file instead.
type DatabaseConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Database       string        `mapstructure:"database"`
	SSLMode        string        `mapstructure:"ssl_mode"`
	MaxConns       int32         `mapstructure:"max_conns"`
	MinConns       int32         `mapstructure:"min_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// DSN renders the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig holds the session-store settings. Redis is optional: with
// Enabled false reconnection sessions are kept in process memory.
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Address    string        `mapstructure:"address"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// GameConfig carries the rule defaults applied when a game is created
// without explicit overrides.
type GameConfig struct {
	MaxPlayers       int `mapstructure:"max_players"`
	MaxRounds        int `mapstructure:"max_rounds"`
	MandateThreshold int `mapstructure:"mandate_threshold"`
	InitialHandSize  int `mapstructure:"initial_hand_size"`
}

// CardsConfig selects the card catalog source.
type CardsConfig struct {
	Source string `mapstructure:"source"` // file or postgres
	Path   string `mapstructure:"path"`   // JSON catalog when source=file
}

// Load reads configuration from the given file, with environment variables
// (POWER_SECTION_KEY) overriding file values and built-in defaults filling
// the rest. A missing file is not an error; defaults and env apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("POWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A present-but-broken file is fatal; absence is fine.
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Game.MaxPlayers < 2 {
		return fmt.Errorf("game.max_players must be at least 2, got %d", c.Game.MaxPlayers)
	}
	if c.Game.MaxRounds < 1 {
		return fmt.Errorf("game.max_rounds must be positive, got %d", c.Game.MaxRounds)
	}
	if c.Game.MandateThreshold < 1 {
		return fmt.Errorf("game.mandate_threshold must be positive, got %d", c.Game.MandateThreshold)
	}
	switch c.Cards.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("cards.source must be file or postgres, got %q", c.Cards.Source)
	}
	if c.Cards.Source == "postgres" && !c.Database.Enabled {
		return fmt.Errorf("cards.source=postgres requires database.enabled=true")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "power")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "power")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.connect_timeout", 5*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", 24*time.Hour)

	v.SetDefault("game.max_players", 4)
	v.SetDefault("game.max_rounds", 10)
	v.SetDefault("game.mandate_threshold", 5)
	v.SetDefault("game.initial_hand_size", 5)

	v.SetDefault("cards.source", "file")
	v.SetDefault("cards.path", "config/cards.json")
}
