package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "TERMWINDOW_"

// FileSystem reads configuration files. It allows tests to use in-memory
// files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Load reads the config file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithFS(OSFS{}, path)
}

// LoadWithFS is Load reading through fsys.
func LoadWithFS(fsys FileSystem, path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := fsys.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Missing file keeps the defaults.
		case err != nil:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		default:
			if err := decode(path, data, cfg, true); err != nil {
				return nil, err
			}
		}
	}

	if err := applyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(source string, data []byte, cfg *Config, strict bool) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(cfg); err != nil {
		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// sections lists the tables environment overrides may target.
var sections = map[string]bool{
	"terminal": true,
	"window":   true,
	"watch":    true,
	"logging":  true,
}

// envAliases maps short variables to their config path.
var envAliases = map[string]string{
	EnvPrefix + "LOG_LEVEL": "logging.level",
	EnvPrefix + "SHELL":     "terminal.shell",
}

// applyEnv decodes TERMWINDOW_ variables from environ over cfg. Variables
// naming no known section are ignored.
func applyEnv(cfg *Config, environ []string) error {
	overrides := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		path, ok := envAliases[name]
		if !ok {
			path = envToPath(name)
		}
		section, key, ok := strings.Cut(path, ".")
		if !ok || key == "" || !sections[section] {
			continue
		}
		table, _ := overrides[section].(map[string]any)
		if table == nil {
			table = make(map[string]any)
			overrides[section] = table
		}
		table[key] = parseValue(value)
	}
	if len(overrides) == 0 {
		return nil
	}

	data, err := toml.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encoding environment overrides: %w", err)
	}
	return decode("environment", data, cfg, false)
}

// envToPath converts TERMWINDOW_WINDOW_MAX_LINES to window.max_lines.
func envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, EnvPrefix))
	section, key, _ := strings.Cut(name, "_")
	return section + "." + key
}

// parseValue converts an environment value to a bool or integer when it
// reads as one, and a string otherwise.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}
