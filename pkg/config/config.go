package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App       `yaml:"app"`
		Log       `yaml:"logger"`
		Store     `yaml:"store"`
		Backend   `yaml:"backend"`
		Reconcile `yaml:"reconcile"`
		Audio     `yaml:"audio"`
	}

	App struct {
		Env  string `yaml:"env"  env:"MATH_ALARM_ENV" env-default:"local" validate:"oneof=local dev prod"`
		Name string `yaml:"name" env-default:"Math Alarm"`
		ID   string `yaml:"id"   env-default:"com.borgmon.mathalarm"`
	}

	Log struct {
		Level string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	}

	Store struct {
		Driver     string `yaml:"driver"      env:"MATH_ALARM_STORE" env-default:"prefs" validate:"oneof=prefs badger"`
		Path       string `yaml:"path"        env:"MATH_ALARM_DB"`
		SyncWrites bool   `yaml:"sync_writes" env-default:"true"`
	}

	// Boolean defaults of true can only be turned off from the environment
	Backend struct {
		Tick                 time.Duration `yaml:"tick"                  env-default:"1s" validate:"min=100ms"`
		NotificationsAllowed bool          `yaml:"notifications_allowed" env:"MATH_ALARM_NOTIFICATIONS" env-default:"true"`
	}

	Reconcile struct {
		Interval     time.Duration `yaml:"interval"      env-default:"15m" validate:"min=1s"`
		InitialDelay time.Duration `yaml:"initial_delay" env-default:"30s"`
	}

	Audio struct {
		SoundsDir string `yaml:"sounds_dir" env:"MATH_ALARM_SOUNDS"`
	}
)

// EnvConfigPathName names the env var holding the config file path
const EnvConfigPathName = "MATH_ALARM_CONFIG"

// Load reads the config file at path, or at $MATH_ALARM_CONFIG when path is
// empty. Without a file, values come from the environment and defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPathName)
	}

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Store.Driver == "badger" && cfg.Store.Path == "" {
		dir, err := DataDir(cfg.App.ID)
		if err != nil {
			return nil, err
		}
		cfg.Store.Path = filepath.Join(dir, "db")
	}
	return cfg, nil
}

// DataDir returns the per-user data directory of the app
func DataDir(appID string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, appID), nil
}

// Description returns the env var help text
func Description() string {
	header := "Math Alarm - alarm clock with challenge to dismiss"
	help, err := cleanenv.GetDescription(&Config{}, &header)
	if err != nil {
		return header
	}
	return help
}

// IsNotExist reports whether err came from a missing config file
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
