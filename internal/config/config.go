// config предоставляет структуру конфигурации catalog-service и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	GRPC      GRPCConfig      `yaml:"grpc"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Limits    LimitsConfig    `yaml:"limits"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// HTTPConfig — сетевые настройки публичного REST-сервера.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8000"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// GRPCConfig описывает gRPC-листенер для health-проверок.
// По умолчанию выключен: основной интерфейс сервиса — REST.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled" env:"GRPC_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port    string `yaml:"port" env:"GRPC_PORT" env-default:"50051"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов
// и политику проверки учётных данных.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"catalog-service"`
	Audience        string        `yaml:"audience" env:"AUDIENCE" env-default:"catalog-api"`
	Leeway          time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"5s"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	PasswordMinLen  int           `yaml:"password_min_len" env:"PASSWORD_MIN_LEN" env-default:"8"`
	UsernameMaxLen  int           `yaml:"username_max_len" env:"USERNAME_MAX_LEN" env-default:"150"`
	// LedgerRetention — сколько хранить записи о отозванных токенах после истечения
	// самих токенов. 0 — фоновая очистка выключена.
	LedgerRetention time.Duration `yaml:"ledger_retention" env:"LEDGER_RETENTION" env-default:"0s"`
}

// StorageConfig выбирает реализацию хранилища.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

// DBConfig — настройки подключения к базе данных.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// RedisConfig — кэш отозванных refresh-токенов. Пустой URL выключает кэш.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"catalog:revoked:"`
}

// LimitsConfig — размеры страниц для списков каталога.
type LimitsConfig struct {
	Default int32 `yaml:"default" env:"LIMIT_DEFAULT" env-default:"20"`
	Max     int32 `yaml:"max" env:"LIMIT_MAX" env-default:"100"`
}

// RateLimitConfig — ограничение частоты запросов к эндпойнтам учётных данных
// на один IP. RPS <= 0 выключает ограничение.
type RateLimitConfig struct {
	RPS        float64 `yaml:"rps" env:"RATE_LIMIT_RPS" env-default:"5"`
	Burst      int     `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"10"`
	// TrustProxy — брать адрес клиента из X-Forwarded-For/X-Real-IP.
	// Включать только за доверенным обратным прокси.
	TrustProxy bool    `yaml:"trust_proxy" env:"RATE_LIMIT_TRUST_PROXY" env-default:"false"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла поверх значений из YAML накладываются ENV-переменные.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return nil, err
		}

		return &cfg, nil
	}

	// 1) Явный путь.
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH.
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml.
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) Только ENV.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность значений, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("invalid config: db.db_url is required for storage driver %q", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid config: unknown storage driver %q", c.Storage.Driver)
	}

	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("invalid config: token ttl must be positive")
	}

	if c.Auth.AccessTokenTTL >= c.Auth.RefreshTokenTTL {
		return fmt.Errorf("invalid config: access_token_ttl must be shorter than refresh_token_ttl")
	}

	if c.Auth.LedgerRetention < 0 {
		return fmt.Errorf("invalid config: auth.ledger_retention must not be negative")
	}

	// Токен принимается до exp+leeway; запись журнала должна жить не меньше.
	if c.Auth.LedgerRetention > 0 && c.Auth.LedgerRetention <= c.Auth.Leeway {
		return fmt.Errorf("invalid config: auth.ledger_retention must exceed auth.leeway")
	}

	if c.Limits.Max > 0 && c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("invalid config: limits.default exceeds limits.max")
	}

	return nil
}
