package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrConfigDefaults = errors.New("failed to apply config defaults")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// EnvPrefix marks environment variables that override file settings.
// SERVICECHECK_MAIL__PASSWORD sets mail.password.
const EnvPrefix = "SERVICECHECK_"

var (
	_k      *koanf.Koanf
	_config *Config
	once    sync.Once
)

func GetConfig() *Config {
	if _config == nil {
		log.Info().Msg("config is nil trying to init")
		if err := InitConfig(); err != nil {
			log.Error().Msgf("error initializing config: %v", err)
		}
	}

	return _config
}

func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func InitConfig() error {
	var err error
	once.Do(func() {
		_k = koanf.New(".")

		configFile := GetEnv("CONFIG_FILE", ".env.toml")

		if err := _k.Load(file.Provider(configFile), toml.Parser()); err != nil {
			log.Warn().Msgf("error loading config [TOML]: %v", err)
		}

		_k.Load(file.Provider(".env"), dotenv.Parser())

		if err := _k.Load(EnvProvider(), nil); err != nil {
			log.Warn().Msgf("error loading config [ENV]: %v", err)
		}

		cfg, loadErr := Load(_k)
		if loadErr != nil {
			err = loadErr
			return
		}
		_config = cfg

		if level, levelErr := zerolog.ParseLevel(cfg.APP.LogLevel); levelErr == nil {
			zerolog.SetGlobalLevel(level)
		}
	})

	return err
}

// EnvProvider maps SERVICECHECK_ prefixed variables onto config keys, with a
// double underscore separating sections.
func EnvProvider() *env.Env {
	return env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	})
}

// Load builds a Config from k on top of the struct tag defaults and validates it.
func Load(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Join(ErrConfigDefaults, err)
	}

	if k != nil {
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	log.Trace().Msgf("config: %+v", cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Join(ErrConfigInvalid, err)
	}

	return cfg, nil
}

// Default returns the configuration made of struct tag defaults only.
func Default() *Config {
	cfg, err := Load(nil)
	if err != nil {
		// defaults are static, a failure here is a programming error
		panic(err)
	}
	return cfg
}

func IsDevMode() bool {
	if _config == nil {
		return true
	}

	return _config.APP.Environment == "development"
}

// MailEnabled reports whether an SMTP transport is configured.
func (m *MailConfig) MailEnabled() bool {
	return m.Host != ""
}
