package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem is what the loader needs from the disk.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFS struct{}

func (osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFS) LoadEnv(path string) error { return godotenv.Load(path) }

// LoaderConfig holds the loader's dependencies and file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvPrefix scopes which environment variables are bound. Defaults to
	// the upper-cased service name.
	EnvPrefix string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces disk access, for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the search for a config file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search for a .env file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = prefix }
}

// LoadConfig fills cfg from, in increasing precedence, the service's YAML
// file, its .env file and PREFIX_* environment variables. A missing config
// file is not an error; one that fails to parse is.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: osFS{}}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.EnvPrefix == "" {
		lc.EnvPrefix = strings.ToUpper(strings.ReplaceAll(serviceName, "-", "_"))
	}
	configFile, envFile := resolveFiles(lc, serviceName)

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}
	if envFile != "" {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}
	bindPrefixedEnv(v, lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// resolveFiles returns the config and env files that exist, preferring the
// explicit paths in lc over the search locations. "" means none.
func resolveFiles(lc LoaderConfig, serviceName string) (configFile, envFile string) {
	firstExisting := func(explicit string, candidates []string) string {
		if explicit != "" {
			candidates = []string{explicit}
		}
		for _, p := range candidates {
			if lc.FileSystem.Exists(p) {
				return p
			}
		}
		return ""
	}

	configs := []string{
		"./cmd/" + serviceName + "/config.yml",
		"../cmd/" + serviceName + "/config.yml",
		"../../cmd/" + serviceName + "/config.yml",
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}
	var envs []string
	for _, name := range []string{".env." + serviceName, ".env"} {
		for _, dir := range []string{"./cmd/" + serviceName, "./config", ".", ".."} {
			envs = append(envs, dir+"/"+name)
		}
	}
	return firstExisting(lc.ConfigFile, configs), firstExisting(lc.EnvFile, envs)
}

// bindPrefixedEnv sets every PREFIX_* variable under each nested key it
// could denote, since underscores separate both sections and words.
func bindPrefixedEnv(v *viper.Viper, prefix string, environ []string) {
	p := strings.ToUpper(prefix) + "_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, p) {
			continue
		}
		for _, path := range envKeyVariants(strings.TrimPrefix(key, p)) {
			v.Set(path, value)
		}
	}
}

// envKeyVariants lists the config paths an env key may denote, splitting
// sections at every underscore in turn:
//
//	SAGA_JOB_TIMEOUT -> [saga_job_timeout saga.job_timeout saga.job.timeout]
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	variants := []string{strings.Join(parts, "_")}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}
