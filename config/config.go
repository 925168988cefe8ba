// Package config loads and validates the testbench's configuration: a
// key:value file on disk, layered with environment-variable overrides,
// merged into a single immutable Settings value before any service
// starts.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// DefaultPath is the configuration file location used when no --config
// flag is given. No environment variable overrides this path.
const DefaultPath = "~/.plato-wp36/installation_settings.conf"

// Settings holds the merged configuration every component needs: store
// connection parameters, broker URL, filesystem roots for the arena's
// archive backend, and the debug flag.
type Settings struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBDatabase string
	Debug      bool

	BrokerURL   string
	RedisURL    string
	DataPath    string
	ScratchPath string
	OutputPath  string
}

// FileSettings loads the key:value, #-comment configuration file format
// described for the testbench: one `key:value` pair per line, blank
// lines and lines starting with # ignored, surrounding whitespace
// trimmed from both key and value.
func FileSettings(path string) (Settings, error) {
	resolved, err := homedir.Expand(path)
	if err != nil {
		return Settings{}, fmt.Errorf("config: expanding path %q: %w", path, err)
	}

	f, err := os.Open(resolved)
	if err != nil {
		return Settings{}, fmt.Errorf("config: opening %q: %w", resolved, err)
	}
	defer f.Close()

	raw := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return Settings{}, fmt.Errorf("config: %q: line %q is not key:value", resolved, line)
		}
		raw[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, fmt.Errorf("config: reading %q: %w", resolved, err)
	}

	debug, _ := strconv.ParseBool(raw["debug"])
	return Settings{
		DBHost:      raw["db_host"],
		DBUser:      raw["db_user"],
		DBPassword:  raw["db_password"],
		DBDatabase:  raw["db_database"],
		Debug:       debug,
		BrokerURL:   raw["broker_url"],
		RedisURL:    raw["redis_url"],
		DataPath:    raw["data_path"],
		ScratchPath: raw["scratch_path"],
		OutputPath:  raw["output_path"],
	}, nil
}

// EnvOverlay lets any Settings field be overridden by an EAS_-prefixed
// environment variable (EAS_DB_HOST, EAS_BROKER_URL, ...), the same
// env-prefix convention as the teacher's EnvConfig, applied on top of a
// file-loaded Settings rather than as its own standalone loader.
func EnvOverlay(s Settings) Settings {
	env := newEnvConfig("EAS")
	s.DBHost = env.GetString("DB_HOST", s.DBHost)
	s.DBUser = env.GetString("DB_USER", s.DBUser)
	s.DBPassword = env.GetString("DB_PASSWORD", s.DBPassword)
	s.DBDatabase = env.GetString("DB_DATABASE", s.DBDatabase)
	s.Debug = env.GetBool("DEBUG", s.Debug)
	s.BrokerURL = env.GetString("BROKER_URL", s.BrokerURL)
	s.RedisURL = env.GetString("REDIS_URL", s.RedisURL)
	s.DataPath = env.GetString("DATA_PATH", s.DataPath)
	s.ScratchPath = env.GetString("SCRATCH_PATH", s.ScratchPath)
	s.OutputPath = env.GetString("OUTPUT_PATH", s.OutputPath)
	return s
}

// envConfig is the env-prefix lookup helper, carried over from the
// teacher's EnvConfig but trimmed to the string/bool accessors EnvOverlay
// actually needs.
type envConfig struct {
	prefix string
}

func newEnvConfig(prefix string) *envConfig {
	return &envConfig{prefix: prefix}
}

func (ec *envConfig) buildKey(key string) string {
	return ec.prefix + "_" + key
}

func (ec *envConfig) GetString(key, defaultValue string) string {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

func (ec *envConfig) GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(ec.buildKey(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validator accumulates configuration validation errors, carried over
// from the teacher's Validator.
type Validator struct {
	errors []string
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{errors: make([]string, 0)}
}

// RequireString validates that a string field is not empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequireURL validates that a string is non-empty and starts with one of
// the given schemes followed by "://" (ValidateSettings passes "amqp" for
// broker_url; the teacher's http(s)-only check doesn't fit that scheme).
func (v *Validator) RequireURL(field, value string, schemes ...string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
		return
	}
	for _, scheme := range schemes {
		if strings.HasPrefix(value, scheme+"://") {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must start with one of %v", field, schemes))
}

// IsValid returns true if there are no validation errors.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// ErrorString returns all validation errors as a single string.
func (v *Validator) ErrorString() string {
	return strings.Join(v.errors, "; ")
}

// Validate runs validation and returns an error if invalid, the policy
// spec's error taxonomy calls for on a missing/malformed configuration
// file: exit non-zero at startup.
func (v *Validator) Validate() error {
	if !v.IsValid() {
		return fmt.Errorf("config: validation failed: %s", v.ErrorString())
	}
	return nil
}

// ValidateSettings applies the testbench's required fields: store
// connection parameters and a broker URL are load-bearing for every
// component; redis_url is optional (cluster-mode dedup degrades to
// always-dispatch when absent, per dispatch.Cluster's nil-Locker path).
func ValidateSettings(s Settings) error {
	v := NewValidator()
	v.RequireString("db_host", s.DBHost)
	v.RequireString("db_user", s.DBUser)
	v.RequireString("db_database", s.DBDatabase)
	v.RequireURL("broker_url", s.BrokerURL, "amqp")
	return v.Validate()
}

// Load resolves path (expanding ~), loads the file, applies the
// EAS_-prefixed environment overlay, and validates the result in one
// call — the entry point every cli subcommand uses.
func Load(path string) (Settings, error) {
	if path == "" {
		path = DefaultPath
	}
	s, err := FileSettings(path)
	if err != nil {
		return Settings{}, err
	}
	s = EnvOverlay(s)
	if err := ValidateSettings(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// PostgresDSN builds the libpq-style connection string store.Open expects
// from the merged Settings.
func (s Settings) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
		s.DBHost, s.DBUser, s.DBPassword, s.DBDatabase)
}

// EnsureDirs creates the arena's data/scratch/output roots if absent,
// used by `run` and `worker` so a fresh installation doesn't fail the
// first time an archive artifact is written.
func EnsureDirs(s Settings) error {
	for _, dir := range []string{s.DataPath, s.ScratchPath, s.OutputPath} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
			return fmt.Errorf("config: creating directory %q: %w", dir, err)
		}
	}
	return nil
}
