package repo

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zlib"
)

const configFileName = "config.toml"

// Config stores repository-local settings read from .hpn/config.toml.
type Config struct {
	User UserConfig `toml:"user"`
	Core CoreConfig `toml:"core"`
}

// UserConfig is the static identity stamped on commits.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// CoreConfig holds storage and work tree settings.
type CoreConfig struct {
	// Timezone is the fixed offset marker written on commits, e.g. "+0000".
	Timezone string `toml:"timezone"`
	// Compression is the zlib level for new objects (-2..9).
	Compression int `toml:"compression"`
	// Ignore lists extra exclusion patterns in .hpnignore syntax.
	Ignore []string `toml:"ignore,omitempty"`
}

// DefaultConfig returns the settings used when config.toml is absent.
func DefaultConfig() *Config {
	return &Config{
		User: UserConfig{
			Name:  "HPN User",
			Email: "user@hpn.local",
		},
		Core: CoreConfig{
			Timezone:    "+0000",
			Compression: zlib.DefaultCompression,
		},
	}
}

// Identity formats the user as "Name <email>".
func (c *Config) Identity() string {
	if strings.TrimSpace(c.User.Email) == "" {
		return c.User.Name
	}
	return fmt.Sprintf("%s <%s>", c.User.Name, c.User.Email)
}

// Validate checks that the config can be used to write objects and commits.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.User.Name) == "" {
		return fmt.Errorf("user.name is required")
	}
	if strings.ContainsAny(c.User.Name+c.User.Email, "<>\n") {
		return fmt.Errorf("user identity must not contain '<', '>' or newlines")
	}
	if !validTimezone(c.Core.Timezone) {
		return fmt.Errorf("core.timezone %q: want [+-]HHMM", c.Core.Timezone)
	}
	if c.Core.Compression < zlib.HuffmanOnly || c.Core.Compression > zlib.BestCompression {
		return fmt.Errorf("core.compression %d: want %d..%d", c.Core.Compression, zlib.HuffmanOnly, zlib.BestCompression)
	}
	return nil
}

func validTimezone(tz string) bool {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return false
	}
	for i := 1; i < 5; i++ {
		if tz[i] < '0' || tz[i] > '9' {
			return false
		}
	}
	return tz[3] <= '5'
}

// ReadConfig reads .hpn/config.toml on top of DefaultConfig. A missing file
// returns the defaults.
func ReadConfig(metaDir string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(filepath.Join(metaDir, configFileName), cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// WriteConfig atomically writes .hpn/config.toml.
func WriteConfig(metaDir string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(metaDir, configFileName), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
