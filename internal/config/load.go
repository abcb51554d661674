package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by Load.
const (
	DefaultPort        = 22
	DefaultStatePath   = ".pvecfg/state.db"
	DefaultConcurrency = 4
)

var envRefRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, expands, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, err
	}

	// Relative paths in the file are relative to the file.
	base := filepath.Dir(path)
	cfg.Connection.PrivateKeyPath = resolvePath(base, cfg.Connection.PrivateKeyPath)
	cfg.Connection.KnownHostsPath = resolvePath(base, cfg.Connection.KnownHostsPath)
	if cfg.State.Backend == "sqlite" {
		cfg.State.Path = resolvePath(base, cfg.State.Path)
	}
	return cfg, nil
}

// LoadFromBytes parses and validates a configuration held in memory.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded, err := expandEnv(string(data))
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Connection.Port == 0 {
		c.Connection.Port = DefaultPort
	}
	if c.State.Backend == "" {
		c.State.Backend = "sqlite"
	}
	if c.State.Backend == "sqlite" && c.State.Path == "" {
		c.State.Path = DefaultStatePath
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
}

// expandEnv replaces ${NAME} references. Unset variables are an error so a
// missing secret never turns into an empty flag value.
func expandEnv(data string) (string, error) {
	missing := map[string]bool{}
	out := envRefRe.ReplaceAllStringFunc(data, func(ref string) string {
		name := envRefRe.FindStringSubmatch(ref)[1]
		val, ok := os.LookupEnv(name)
		if !ok {
			missing[name] = true
		}
		return val
	})
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("environment variables not set: %s", strings.Join(names, ", "))
	}
	return out, nil
}

func resolvePath(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// FindConfigFile searches for a config file in common locations.
// It checks the current directory, then walks up to find pvecfg.yaml.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	dir := cwd
	for {
		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
}
