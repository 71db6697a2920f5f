package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ER_DATABASE_URL.
const EnvPrefix = "ER"

// ErrSecretInConfigFile indicates a password found in a config file.
var ErrSecretInConfigFile = errors.New("database password not allowed in config files (use ER_DATABASE_URL environment variable)")

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"db":               "database.url",
	"concurrency":      "engine.concurrency",
	"timeout":          "engine.timeout",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metrics-textfile": "metrics.textfile",
}

// Load builds the configuration from defaults, an optional config file,
// ER_* environment variables and flags, in increasing precedence.
// flags may be nil; only flags listed in flagKeys are bound.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("engine.concurrency", def.Engine.Concurrency)
	v.SetDefault("engine.timeout", def.Engine.Timeout.String())
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("metrics.textfile", def.Metrics.Textfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := validateNoSecretsInConfig(configPath); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := newValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = validate.RegisterValidation("dburl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil {
			return false
		}
		switch u.Scheme {
		case "memory":
			return true
		case "sqlite":
			return u.Host != "" || u.Path != ""
		case "postgres", "postgresql":
			return u.Host != ""
		default:
			return false
		}
	})
	return validate
}

// validateNoSecretsInConfig keeps database passwords out of config files.
// The URL may still carry a password when it comes from the environment
// or a flag, so the file is read on its own without those layers.
func validateNoSecretsInConfig(configPath string) error {
	file := viper.New()
	file.SetConfigFile(configPath)
	if err := file.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if !file.IsSet("database.url") {
		return nil
	}
	secret, err := hasPassword(file.GetString("database.url"))
	if err != nil {
		return err
	}
	if secret {
		return ErrSecretInConfigFile
	}
	return nil
}
