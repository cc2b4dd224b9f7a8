package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      App      `yaml:"app"`
	Database Database `yaml:"database"`
	Redis    Redis    `yaml:"redis"`
	Sessions Sessions `yaml:"sessions"`
	Webhooks Webhooks `yaml:"webhooks"`
	Realtime Realtime `yaml:"realtime"`
	Allows   Allows   `yaml:"allows"`
}

type App struct {
	Name      string `yaml:"name" env:"APP_NAME" env-default:"wagate"`
	Port      string `yaml:"port" env:"APP_PORT" env-default:"8000"`
	Host      string `yaml:"host" env:"APP_HOST" env-default:"0.0.0.0"`
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogPretty bool   `yaml:"log_pretty" env:"LOG_PRETTY"`
	Secret    string `yaml:"secret" env:"SECRET"`
}

type Database struct {
	Host string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User string `yaml:"user" env:"DB_USER"`
	Pass string `yaml:"pass" env:"DB_PASSWORD"`
	Name string `yaml:"name" env:"DB_NAME"`
}

// Redis backs the QR artifact cache. An empty Addr selects the in-memory cache.
type Redis struct {
	Addr  string        `yaml:"addr" env:"REDIS_ADDR"`
	Pass  string        `yaml:"pass" env:"REDIS_PASSWORD"`
	DB    int           `yaml:"db" env:"REDIS_DB"`
	QRTTL time.Duration `yaml:"qr_ttl" env:"REDIS_QR_TTL" env-default:"2m"`
}

type Sessions struct {
	DataDir         string        `yaml:"data_dir" env:"SESSIONS_DATA_DIR" env-default:"./sessions"`
	InitTimeout     time.Duration `yaml:"init_timeout" env:"SESSIONS_INIT_TIMEOUT" env-default:"60s"`
	LogoutTimeout   time.Duration `yaml:"logout_timeout" env:"SESSIONS_LOGOUT_TIMEOUT" env-default:"10s"`
	DestroyTimeout  time.Duration `yaml:"destroy_timeout" env:"SESSIONS_DESTROY_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SESSIONS_SHUTDOWN_TIMEOUT" env-default:"5s"`
	CreationWait    time.Duration `yaml:"creation_wait" env:"SESSIONS_CREATION_WAIT" env-default:"1s"`
	CleanupGrace    time.Duration `yaml:"cleanup_grace" env:"SESSIONS_CLEANUP_GRACE" env-default:"500ms"`
	RestoreOnStart  bool          `yaml:"restore_on_start" env:"SESSIONS_RESTORE_ON_START"`
}

type Webhooks struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"WEBHOOKS_DEFAULT_TIMEOUT" env-default:"10s"`
	MaxConcurrent  int64         `yaml:"max_concurrent" env:"WEBHOOKS_MAX_CONCURRENT" env-default:"64"`
	UserAgent      string        `yaml:"user_agent" env:"WEBHOOKS_USER_AGENT" env-default:"wagate-webhooks/1.0"`
}

type Realtime struct {
	SendBuffer     int      `yaml:"send_buffer" env:"REALTIME_SEND_BUFFER" env-default:"64"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"REALTIME_ALLOWED_ORIGINS" env-separator:","`
}

type Allows struct {
	Methods []string `yaml:"methods"`
	Origins []string `yaml:"origins"`
	Headers []string `yaml:"headers"`
}

// InitConfig reads ./config.yaml (or CONFIG_PATH) and overlays environment
// variables. A missing file is not an error; defaults and env still apply.
func InitConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	var configs Config

	fileName, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	yamlFile, err := os.ReadFile(fileName)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(yamlFile, &configs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", fileName, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", fileName, err)
	}

	if err := cleanenv.ReadEnv(&configs); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	return &configs, nil
}
