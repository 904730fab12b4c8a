package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	API      APIConfig
	Telegram TelegramConfig
	Storage  StorageConfig
	DB       DBConfig
	Lang     string // default language when Telegram does not tell us one
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type TelegramConfig struct {
	Token string
}

type StorageConfig struct {
	Driver      string // "sqlite" or "postgres"
	SQLitePath  string
	AutoMigrate bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConnString returns the pgx connection URL.
func (c DBConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

// New returns a viper instance with defaults and environment bindings.
// Values from a .env file in the working directory are loaded first.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("api_url", "http://localhost:5000/api")
	v.SetDefault("http_timeout", "15s")
	v.SetDefault("token", "")
	v.SetDefault("storage_driver", StorageSQLite)
	v.SetDefault("sqlite_path", "food_client.db")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "food_client")
	v.SetDefault("default_lang", "ru")
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from v (see New).
func Load(v *viper.Viper) (*Config, error) {
	timeout := v.GetDuration("http_timeout")
	if timeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q", v.GetString("http_timeout"))
	}
	driver := strings.ToLower(strings.TrimSpace(v.GetString("storage_driver")))
	if driver != StorageSQLite && driver != StoragePostgres {
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
	baseURL := strings.TrimRight(strings.TrimSpace(v.GetString("api_url")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("API_URL is empty")
	}

	return &Config{
		API: APIConfig{
			BaseURL: baseURL,
			Timeout: timeout,
		},
		Telegram: TelegramConfig{
			Token: v.GetString("token"),
		},
		Storage: StorageConfig{
			Driver:      driver,
			SQLitePath:  v.GetString("sqlite_path"),
			AutoMigrate: v.GetBool("auto_migrate"),
		},
		DB: DBConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetInt("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Database: v.GetString("db_name"),
		},
		Lang: v.GetString("default_lang"),
	}, nil
}
