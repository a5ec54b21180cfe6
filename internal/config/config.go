// config предоставляет структуру конфигурации сервиса и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилищ.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRedis    = "redis"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Auth     AuthConfig    `yaml:"auth"`
	Sweeper  SweeperConfig `yaml:"sweeper"`
	Storage  StorageConfig `yaml:"storage"`
	Mongo    MongoConfig   `yaml:"mongo"`
	DB       DBConfig      `yaml:"db"`
	Redis    RedisConfig   `yaml:"redis"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig — таймауты сервиса.
type TimeoutConfig struct {
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
}

// HTTPConfig — сетевые настройки HTTP-сервера.
//   - FrontendURL — единственный origin, которому разрешён CORS (пусто — CORS выключен);
//   - RateLimit/RateWindow — лимит запросов с одного IP за окно (0 — без лимита).
type HTTPConfig struct {
	Host        string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port        string        `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	FrontendURL string        `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:5173"`
	RateLimit   int           `yaml:"rate_limit" env:"HTTP_RATE_LIMIT" env-default:"100"`
	RateWindow  time.Duration `yaml:"rate_window" env:"HTTP_RATE_WINDOW" env-default:"15m"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig содержит параметры выпуска и валидации токенов.
// Секреты access и refresh обязаны различаться: утечка ключа access-токенов
// не должна позволять подделать refresh-токен.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_EXPIRATION" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"JWT_REFRESH_EXPIRATION" env-default:"168h"`
	Issuer          string        `yaml:"issuer" env:"ISSUER" env-default:"rideshare-auth"`
	Audience        []string      `yaml:"audience" env:"AUDIENCE" env-default:"rideshare-web"`
	Leeway          time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
}

// SweeperConfig — параметры фоновой очистки истёкших refresh-токенов.
type SweeperConfig struct {
	Interval time.Duration `yaml:"interval" env:"SWEEP_INTERVAL" env-default:"24h"`
	Timeout  time.Duration `yaml:"timeout" env:"SWEEP_TIMEOUT" env-default:"1m"`
}

// StorageConfig выбирает бэкенды хранилищ.
//   - Driver — хранилище аккаунтов и (по умолчанию) refresh-токенов: mongo | postgres | memory;
//   - TokenDriver — отдельное хранилище refresh-токенов: пусто (как Driver) | redis.
type StorageConfig struct {
	Driver      string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo"`
	TokenDriver string `yaml:"token_driver" env:"TOKEN_STORAGE_DRIVER"`
}

// MongoConfig — подключение к MongoDB (имя БД берётся из пути URI).
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL"`
}

// DBConfig — настройки подключения к PostgreSQL.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// RedisConfig — подключение к Redis для хранилища refresh-токенов.
type RedisConfig struct {
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX" env-default:"auth:"`
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
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
// Результат проходит Validate.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	// чтение файла + overlay ENV.
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file does not exist: %q: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
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

	return &cfg, nil
}

// Validate проверяет согласованность значений, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("auth: access_secret and refresh_secret are required"))
	} else if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("auth: access_secret and refresh_secret must differ"))
	}

	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth: access_token_ttl must be positive"))
	}

	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("auth: refresh_token_ttl must be positive"))
	}

	if c.HTTP.RateLimit < 0 {
		errs = append(errs, errors.New("http: rate_limit must not be negative"))
	} else if c.HTTP.RateLimit > 0 && c.HTTP.RateWindow <= 0 {
		errs = append(errs, errors.New("http: rate_window must be positive when rate_limit is set"))
	}

	if c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("sweeper: interval must be positive"))
	}

	switch c.Storage.Driver {
	case DriverMongo:
		if c.Mongo.URL == "" {
			errs = append(errs, errors.New("mongo: url is required for driver mongo"))
		}
	case DriverPostgres:
		if c.DB.DatabaseURL == "" {
			errs = append(errs, errors.New("db: db_url is required for driver postgres"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}

	switch c.Storage.TokenDriver {
	case "":
	case DriverRedis:
		if c.Redis.RedisURL == "" {
			errs = append(errs, errors.New("redis: redis_url is required for token_driver redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown token_driver %q", c.Storage.TokenDriver))
	}

	return errors.Join(errs...)
}
