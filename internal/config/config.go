package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера и клиента.
// Отсутствующие поля заполняются значениями по умолчанию.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	World     WorldConfig     `yaml:"world"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	NATS      NATSConfig      `yaml:"nats"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	TCPPort          int    `yaml:"tcp_port"`
	Host             string `yaml:"host"`
	Transport        string `yaml:"transport"`
	TickRate         int    `yaml:"tick_rate"`
	MaxMessageSize   int    `yaml:"max_message_size"`
	CompressionLevel int    `yaml:"compression_level"`
}

type WorldConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	Seed            int64   `yaml:"seed"`
	ActorsFile      string  `yaml:"actors_file"`
	InitialCreeps   int     `yaml:"initial_creeps"`
	CreepType       string  `yaml:"creep_type"`
	HeroSpawnPeriod float64 `yaml:"hero_spawn_period"`
	MaxHeroes       int     `yaml:"max_heroes"`
	DeltaStrategy   string  `yaml:"delta_strategy"`
}

type APIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type NATSConfig struct {
	URL       string `yaml:"url"`
	Prefix    string `yaml:"prefix"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type RedisConfig struct {
	Addr         string  `yaml:"addr"`
	Password     string  `yaml:"password"`
	DB           int     `yaml:"db"`
	Key          string  `yaml:"key"`
	TTLSeconds   int     `yaml:"ttl_seconds"`
	PublishEvery float64 `yaml:"publish_every_seconds"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	FileLevel string `yaml:"file_level"`
	Files     bool   `yaml:"files"`
}

// Default конфигурация без файла
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Transport:        "tcp",
			TickRate:         30,
			MaxMessageSize:   60 * 1024,
			CompressionLevel: 1,
		},
		World: WorldConfig{
			Width:           800,
			Height:          600,
			ActorsFile:      "actors.yaml",
			InitialCreeps:   20,
			CreepType:       "creep",
			HeroSpawnPeriod: 5,
			MaxHeroes:       5,
			DeltaStrategy:   "incremental",
		},
		API:       APIConfig{Enabled: true},
		Telemetry: TelemetryConfig{ServiceName: "mmo-manager"},
		NATS:      NATSConfig{Prefix: "mmo.events", Retention: 24},
		Redis:     RedisConfig{Key: "mmo:status", TTLSeconds: 10, PublishEvery: 2},
		Logging:   LoggingConfig{Level: "info", FileLevel: "debug"},
	}
}

// GetTCPPort возвращает игровой порт с поддержкой fallback значений
func (s *ServerConfig) GetTCPPort() int {
	return getPortWithEnvFallback(s.TCPPort, "GAME_TCP_PORT", 8888)
}

// Addr адрес для прослушивания
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.GetTCPPort())
}

// TickInterval длительность тика в секундах
func (s *ServerConfig) TickInterval() float64 {
	if s.TickRate <= 0 {
		return 1.0 / 30
	}
	return 1.0 / float64(s.TickRate)
}

// GetPort возвращает порт HTTP API с метриками
func (a *APIConfig) GetPort() int {
	return getPortWithEnvFallback(a.Port, "GAME_METRICS_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет значения, которые нельзя молча исправить
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("world size must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.Server.MaxMessageSize <= 0 || c.Server.MaxMessageSize > 65535 {
		return fmt.Errorf("server.max_message_size must be in (0, 65535], got %d", c.Server.MaxMessageSize)
	}
	if c.World.MaxHeroes < 0 || c.World.InitialCreeps < 0 {
		return fmt.Errorf("world.max_heroes and world.initial_creeps must not be negative")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать из ENV GAME_CONFIG; если и там пусто,
// возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
