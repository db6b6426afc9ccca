package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Debug     bool          `yaml:"debug" env:"DEBUG"`
	Limiter   Limiter       `yaml:"limiter"`
	AppID     int32         `yaml:"app_id" env:"APP_ID"`
	AppSecret string        `yaml:"app_secret" env:"APP_SECRET"`
	Server    Server        `yaml:"server"`
	Storage   Storage       `yaml:"storage"`
	DB        DB            `yaml:"db"`
	Reviews   Reviews       `yaml:"reviews"`
	Cache     Cache         `yaml:"cache"`
	Clients   ClientsConfig `yaml:"clients"`
}

type Limiter struct {
	Enabled bool    `yaml:"enabled"`
	Rps     float64 `yaml:"rps" env-default:"20"`
	Burst   int     `yaml:"burst" env-default:"5"`
}

type Client struct {
	Addr         string        `yaml:"addr"`
	RetryTimeout time.Duration `yaml:"retry_timeout" env-default:"1s"`
	RetriesCount int           `yaml:"retries_count" env-default:"1"`
}

type TMDBClient struct {
	BaseURL string        `yaml:"base_url" env:"TMDB_BASE_URL" env-default:"https://api.themoviedb.org/3"`
	APIKey  string        `yaml:"api_key" env:"TMDB_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type ClientsConfig struct {
	SSO  Client     `yaml:"sso"`
	TMDB TMDBClient `yaml:"tmdb"`
}

type Server struct {
	Port string `yaml:"port" env:"PORT" env-default:"8000"`
	Host string `yaml:"host" env-default:"localhost"`

	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"20s"`
}

type Storage struct {
	// Driver is either "memory" or "postgres".
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"postgres"`
}

type DB struct {
	Dsn             string        `yaml:"dsn" env:"DB_DSN"`
	MaxConns        int           `yaml:"max_conns" env-default:"25"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env-default:"10m"`
	SkipMigrations  bool          `yaml:"skip_migrations" env:"DB_SKIP_MIGRATIONS"`
}

// Boolean switches in this package default to false. cleanenv treats an
// explicit false like a missing key and would overwrite it with env-default.
type Reviews struct {
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"5s"`
	LatestLimit    int           `yaml:"latest_limit" env-default:"20"`

	// PreserveHelpfulOnUpsert keeps the helpful counter when a review is resubmitted.
	PreserveHelpfulOnUpsert bool `yaml:"preserve_helpful_on_upsert" env:"REVIEWS_PRESERVE_HELPFUL"`
}

type Cache struct {
	TTL time.Duration `yaml:"ttl" env-default:"10m"`
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.DB.Dsn == "" {
			return fmt.Errorf("db.dsn is required for the %s storage driver", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

func MustLoad(configPath string) *Config {
	var cfg Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic(fmt.Errorf("config file %s not found", configPath))
	}
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic(err)
	}
	if err := cfg.validate(); err != nil {
		panic(err)
	}

	return &cfg
}
