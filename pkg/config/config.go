// Package config loads pangraph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/pangraph/config.toml (usually
// ~/.config/pangraph/config.toml). PANGRAPH_CONFIG points at an alternate
// file. A missing file is not an error: [Default] values are used. Values set
// in the file override defaults; command-line flags override both.
//
// Example file:
//
//	[view]
//	radius = 150
//	palette = ["#00ff00", "#0000ff"]
//
//	[layout]
//	origin_x = 543
//	origin_y = 291
//	step = 40
//
//	[cache]
//	shared = true
//
//	[server]
//	addr = ":8080"
//	redis_addr = "localhost:6379"
//	view_ttl = "12h"
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/pangraph/pkg/condition"
	"github.com/matzehuels/pangraph/pkg/dag/transform"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/pipeline"
	"github.com/matzehuels/pangraph/pkg/session"
)

// EnvVar names the environment variable that overrides the config path.
const EnvVar = "PANGRAPH_CONFIG"

// Config is the full set of user settings.
type Config struct {
	View   ViewConfig   `toml:"view"`
	Layout LayoutConfig `toml:"layout"`
	Server ServerConfig `toml:"server"`
	Cache  CacheConfig  `toml:"cache"`
}

// ViewConfig sets the initial window and condition colors.
type ViewConfig struct {
	Center  int      `toml:"center"`
	Radius  int      `toml:"radius"`
	Palette []string `toml:"palette"`
}

// LayoutConfig sets the layout origin and spacing.
type LayoutConfig struct {
	OriginX float64 `toml:"origin_x"`
	OriginY float64 `toml:"origin_y"`
	Step    float64 `toml:"step"`
}

// ServerConfig configures `pangraph serve`.
type ServerConfig struct {
	Addr          string   `toml:"addr"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	ViewTTL       Duration `toml:"view_ttl"`
	AllowOrigins  []string `toml:"allow_origins"`
}

// CacheConfig selects where graph caches are written.
type CacheConfig struct {
	Disabled bool `toml:"disabled"` // Never read or write graph caches
	Shared   bool `toml:"shared"`   // Keep graph caches in the user cache dir instead of next to the source
}

// Duration is a time.Duration written as a string ("12h", "30m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		View: ViewConfig{
			Center: pipeline.DefaultCenter,
			Radius: pipeline.DefaultRadius,
		},
		Layout: LayoutConfig{Step: transform.DefaultOptions().Step},
		Server: ServerConfig{
			Addr:    ":8080",
			ViewTTL: Duration{session.DefaultTTL},
		},
	}
}

// Path returns the config file location.
func Path() (string, error) {
	if p := os.Getenv(EnvVar); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("get config dir: %w", err)
	}
	return filepath.Join(dir, "pangraph", "config.toml"), nil
}

// Load reads the config file at [Path].
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	return LoadFile(p)
}

// LoadFile reads the config file at path over the defaults. A missing file
// yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), perrors.Wrap(perrors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Default(), perrors.New(perrors.ErrCodeInvalidInput, "config %s: unknown key %q", path, keys[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and the palette.
func (c Config) Validate() error {
	if c.View.Center < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "view.center must be >= 0")
	}
	if c.View.Radius < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "view.radius must be >= 0")
	}
	if c.Layout.Step < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "layout.step must be >= 0")
	}
	if c.Server.ViewTTL.Duration < 0 {
		return perrors.New(perrors.ErrCodeInvalidInput, "server.view_ttl must be >= 0")
	}
	if _, err := c.Palette(); err != nil {
		return err
	}
	return nil
}

// LayoutOptions converts the layout section.
func (c Config) LayoutOptions() transform.Options {
	return transform.Options{
		Origin: transform.Point{X: c.Layout.OriginX, Y: c.Layout.OriginY},
		Step:   c.Layout.Step,
	}
}

// Palette parses the configured colors, falling back to the default palette.
func (c Config) Palette() ([]colorful.Color, error) {
	if len(c.View.Palette) == 0 {
		return condition.DefaultPalette, nil
	}
	return condition.ParsePalette(c.View.Palette)
}

// ViewTTL returns the session lifetime, defaulting when unset.
func (c Config) ViewTTL() time.Duration {
	if c.Server.ViewTTL.Duration <= 0 {
		return session.DefaultTTL
	}
	return c.Server.ViewTTL.Duration
}

// Write encodes c as TOML to path, creating parent directories.
func Write(path string, c Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
