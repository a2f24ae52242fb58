package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/leapquery/pkg/core"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "leapquery.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "leapquery.yml"

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: LEAPQUERY_QUERY__TIMEOUT sets query.timeout.
const EnvPrefix = "LEAPQUERY_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// FlagKeys maps CLI flag names to config keys. Other flags are not configuration.
var FlagKeys = map[string]string{
	"check-schema": "query.check_schema",
	"timeout":      "query.timeout",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"max-limit":    "query.max_limit",
	"verbose":      "verbose",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// File is an explicit config file. When empty the loader searches Dir
	// and its parents for leapquery.yaml.
	File string
	// Dir is the search start (defaults to the working directory).
	Dir string
	// Flags overrides every other source. Only changed flags are applied.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ for tests.
	Environ []string
}

// Loaded is a configuration together with the file it came from.
type Loaded struct {
	*Config
	// File is the config file used, empty when none was found.
	File string
}

// Load loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(opts LoadOptions) (*Loaded, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := opts.File
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			dir, _ = os.Getwd()
		}
		if root := FindProjectRoot(dir); root != "" {
			path = findConfigFile(root)
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// 3. Environment variables (LEAPQUERY_ prefix)
	if err := loadEnv(k, opts.Environ); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	for i := range cfg.Datasources {
		expandDatasourceEnvVars(&cfg.Datasources[i], opts.Environ)
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Loaded{Config: &cfg, File: path}, nil
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	transform := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}
	if environ == nil {
		return k.Load(env.Provider(EnvPrefix, ".", transform), nil)
	}

	values := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		values[transform(name)] = value
	}
	return k.Load(confmap.Provider(values, "."), nil)
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory to find a directory
// containing leapquery.yaml or leapquery.yml.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if findConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns. Unset variables are left as written.
func expandEnvVars(s string, environ []string) string {
	lookup := os.LookupEnv
	if environ != nil {
		lookup = func(name string) (string, bool) {
			for _, kv := range environ {
				if k, v, ok := strings.Cut(kv, "="); ok && k == name {
					return v, true
				}
			}
			return "", false
		}
	}
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := lookup(match[2 : len(match)-1]); ok && val != "" {
			return val
		}
		return match
	})
}

// expandDatasourceEnvVars expands environment variables in credential fields.
func expandDatasourceEnvVars(ds *core.DatasourceConfig, environ []string) {
	ds.Host = expandEnvVars(ds.Host, environ)
	ds.Username = expandEnvVars(ds.Username, environ)
	ds.Password = expandEnvVars(ds.Password, environ)
	ds.Database = expandEnvVars(ds.Database, environ)
	ds.Path = expandEnvVars(ds.Path, environ)
	ds.ConnectionString = expandEnvVars(ds.ConnectionString, environ)
}
