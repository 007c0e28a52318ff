package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"
)

// AppConfig holds configuration values parsed from environment variables.
// Command line flags are applied on top of it by the CLI.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,log_level"`

	// Port is the port queried on every nameserver.
	Port int `koanf:"port" validate:"required,gte=1,lte=65535"`

	// Timeout bounds a single DNS exchange.
	Timeout time.Duration `koanf:"timeout" validate:"required,gte=100ms,lte=1m"`

	// Attempts is the number of tries for a query that fails with a temporary error.
	Attempts int `koanf:"attempts" validate:"required,gte=1,lte=10"`

	// Backoff is the base delay between attempts; the n-th retry waits n*Backoff.
	Backoff time.Duration `koanf:"backoff" validate:"gte=0,lte=10s"`

	// Concurrency is the number of in-flight queries per snapshot.
	Concurrency int `koanf:"concurrency" validate:"required,gte=1,lte=256"`

	// Follow adds the in-zone MX, SRV and CNAME targets of the apex and of the
	// caller-supplied names to the probed names.
	Follow bool `koanf:"follow"`

	// Output selects the report format.
	Output string `koanf:"output" validate:"required,oneof=text json yaml"`

	// ResolvConf is the resolver configuration used for the system default resolver.
	ResolvConf string `koanf:"resolv_conf" validate:"required"`

	HostCacheSize int `koanf:"host_cache_size" validate:"required,gte=1"`
}

// DEFAULT_APP_CONFIG defines the default application configuration settings for zonediff.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:           "prod",
	LogLevel:      "warn",
	Port:          53,
	Timeout:       5 * time.Second,
	Attempts:      3,
	Backoff:       200 * time.Millisecond,
	Concurrency:   8,
	Follow:        true,
	Output:        "text",
	ResolvConf:    "/etc/resolv.conf",
	HostCacheSize: 128,
}

// envLoader is a function that loads environment variables with the prefix "ZONEDIFF_".
// It transforms the keys to lowercase and removes the prefix,
// and can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "ZONEDIFF_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "ZONEDIFF_"))
			return key, strings.TrimSpace(value)
		},
	}), nil)
}

// defaultLoader loads default configuration values into the provided Koanf instance
// using the structs provider and the DEFAULT_APP_CONFIG struct.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// validLogLevel reports whether the field holds a level the logger accepts.
// Levels above error are rejected; panic and fatal are not user-selectable.
func validLogLevel(fl validator.FieldLevel) bool {
	lvl, err := zapcore.ParseLevel(strings.ToLower(fl.Field().String()))
	return err == nil && lvl <= zapcore.ErrorLevel
}

// registerValidation registers the custom "log_level" validation with the provided validator.
// Returns an error if registration fails.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("log_level", validLogLevel)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration. The CLI calls it again after applying flags.
func (c *AppConfig) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := registerValidation(validate)
	if err != nil {
		return fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(c)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
