package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment variable read by insightchat
const EnvPrefix = "INSIGHTCHAT"

// Env holds values read from the environment (and an optional .env file).
// Non-empty values take precedence over the config file.
type Env struct {
	Endpoint string  `envconfig:"ENDPOINT"`
	Protocol string  `envconfig:"PROTOCOL"`
	Model    string  `envconfig:"MODEL"`
	Timeout  Seconds `envconfig:"TIMEOUT"`
	Verbose  bool    `envconfig:"VERBOSE"`
	LogFile  string  `envconfig:"LOG_FILE"`

	// Credentials compared by the static authenticator
	UserEmail        string `envconfig:"USER_EMAIL"`
	UserPassword     string `envconfig:"USER_PASSWORD"`
	UserPasswordHash string `envconfig:"USER_PASSWORD_HASH"`
}

// Seconds is a timeout read from the environment. A bare integer counts
// seconds, like timeout_seconds in the config file; duration syntax such as
// "2m" or "1500ms" is accepted too.
type Seconds time.Duration

// Decode implements envconfig.Decoder
func (s *Seconds) Decode(value string) error {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return fmt.Errorf("timeout must not be negative: %d", n)
		}
		*s = Seconds(time.Duration(n) * time.Second)
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("timeout must be seconds or a duration like 2m: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("timeout must not be negative: %s", value)
	}
	*s = Seconds(d)
	return nil
}

// WholeSeconds rounds up, so a sub-second timeout never turns into "none"
func (s Seconds) WholeSeconds() int {
	d := time.Duration(s)
	return int((d + time.Second - 1) / time.Second)
}

// Credentials are the login values the static authenticator compares against
type Credentials struct {
	Email        string
	Password     string
	PasswordHash string // bcrypt hash, preferred over Password when set
}

// Configured reports whether enough values are present to log anyone in
func (c Credentials) Configured() bool {
	return c.Email != "" && (c.Password != "" || c.PasswordHash != "")
}

// Credentials returns the credential values read from the environment
func (e Env) Credentials() Credentials {
	return Credentials{
		Email:        e.UserEmail,
		Password:     e.UserPassword,
		PasswordHash: e.UserPasswordHash,
	}
}

// LoadEnv loads .env files (missing files are ignored) and then binds the
// INSIGHTCHAT_* variables.
func LoadEnv(dotenvPaths ...string) (Env, error) {
	var env Env

	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return env, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return env, fmt.Errorf("failed to process environment: %w", err)
	}

	return env, nil
}

// ApplyEnv returns cfg with environment overrides applied, plus the keys that
// were overridden.
func ApplyEnv(cfg Config, env Env) (Config, []string) {
	var overridden []string

	if env.Endpoint != "" {
		cfg.Endpoint = env.Endpoint
		overridden = append(overridden, "endpoint")
	}
	if env.Protocol != "" {
		cfg.Protocol = env.Protocol
		overridden = append(overridden, "protocol")
	}
	if env.Model != "" {
		cfg.Model = env.Model
		overridden = append(overridden, "model")
	}
	if env.Timeout > 0 {
		cfg.TimeoutSeconds = env.Timeout.WholeSeconds()
		overridden = append(overridden, "timeout_seconds")
	}
	if env.Verbose {
		cfg.Verbose = true
		overridden = append(overridden, "verbose")
	}
	if env.LogFile != "" {
		cfg.LogFile = env.LogFile
		overridden = append(overridden, "log_file")
	}

	return cfg, overridden
}

// Effective is the merged configuration used at runtime
type Effective struct {
	Config      Config
	Credentials Credentials
	Overridden  []string
}

// LoadEffective loads the config file and applies the environment on top.
// A broken config file still yields defaults together with the error.
func LoadEffective() (Effective, error) {
	cfg, cfgErr := LoadConfig()

	env, err := LoadEnv()
	if err != nil {
		return Effective{Config: cfg}, err
	}

	merged, overridden := ApplyEnv(cfg, env)
	eff := Effective{
		Config:      merged,
		Credentials: env.Credentials(),
		Overridden:  overridden,
	}

	if cfgErr != nil {
		return eff, cfgErr
	}
	return eff, merged.Validate()
}
