package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/codalotl/livediff/internal/diff"
	"github.com/codalotl/livediff/internal/q/cascade"
	"github.com/codalotl/livediff/internal/rewriter"
	"github.com/codalotl/livediff/internal/session"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// Config is livediff's configuration. Sources, from lowest to highest precedence: built-in defaults, ~/.livediff/config.toml, the nearest .livediff/config.toml
// found walking up from the working directory, environment variables, and command-line flags.
type Config struct {
	Mode          string   `toml:"mode"` // replace, raw, or ref
	Model         string   `toml:"model"`
	Prompt        string   `toml:"prompt"` // empty uses the built-in rewrite prompt
	Debounce      Duration `toml:"debounce"`
	Width         int      `toml:"width"` // wrap width when output is not a terminal
	StripMarkdown bool     `toml:"strip_markdown"`

	OpenAI   OpenAIConfig   `toml:"openai"`
	Simulate SimulateConfig `toml:"simulate"`
	Match    MatchConfig    `toml:"match"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type SimulateConfig struct {
	Delay Duration `toml:"delay"` // pause between simulated tokens
}

type MatchConfig struct {
	ErrorThreshold int     `toml:"error_threshold"`
	ErrorRatio     float64 `toml:"error_ratio"`
}

// Duration is a time.Duration written as a string ("50ms") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func defaultConfig() Config {
	return Config{
		Mode:     diff.ModeKeepRefForModified.String(),
		Model:    rewriter.DefaultModel,
		Debounce: Duration(session.DefaultDebounce),
		Width:    100,
		Simulate: SimulateConfig{Delay: Duration(30 * time.Millisecond)},
		Match:    MatchConfig{ErrorThreshold: session.DefaultMatchConfig.ErrorThreshold, ErrorRatio: session.DefaultMatchConfig.ErrorRatio},
	}
}

// configEnv is what loadConfig needs from the process environment.
type configEnv struct {
	home   string              // user home directory; "" skips the global config
	dir    string              // working directory to search upward from; "" skips the project config
	getenv func(string) string // nil skips environment variables
}

func processConfigEnv() configEnv {
	home, _ := os.UserHomeDir()
	dir, _ := os.Getwd()
	return configEnv{home: home, dir: dir, getenv: os.Getenv}
}

const configDirName = ".livediff"

// envKeys maps configuration keys to the environment variables that set them.
var envKeys = map[string]string{
	"mode":            "LIVEDIFF_MODE",
	"model":           "LIVEDIFF_MODEL",
	"openai.api_key":  "OPENAI_API_KEY",
	"openai.base_url": "LIVEDIFF_OPENAI_BASE_URL",
}

// flagKeys maps configuration keys to the command-line flags that set them. A command only sees the flags it defines.
var flagKeys = map[string]string{
	"mode":                  "mode",
	"model":                 "model",
	"width":                 "width",
	"strip_markdown":        "strip-markdown",
	"debounce":              "debounce",
	"simulate.delay":        "delay",
	"match.error_threshold": "threshold",
	"match.error_ratio":     "ratio",
}

// defaultValues is defaultConfig as cascade defaults.
func defaultValues() map[string]any {
	d := defaultConfig()
	return map[string]any{
		"mode":                  d.Mode,
		"model":                 d.Model,
		"debounce":              time.Duration(d.Debounce).String(),
		"width":                 d.Width,
		"strip_markdown":        d.StripMarkdown,
		"simulate.delay":        time.Duration(d.Simulate.Delay).String(),
		"match.error_threshold": d.Match.ErrorThreshold,
		"match.error_ratio":     d.Match.ErrorRatio,
	}
}

// loadConfig layers defaults, the home config, the nearest project config, the environment, and the changed flags of fs (nil for none), then validates the
// result.
func loadConfig(env configEnv, fs *pflag.FlagSet) (Config, error) {
	loader := cascade.New().WithDefaults(defaultValues())
	if env.home != "" {
		loader = loader.WithTOMLFile(filepath.Join(env.home, configDirName, "config.toml"))
	}
	if env.dir != "" {
		loader = loader.WithNearestTOMLFile(filepath.Join(configDirName, "config.toml"), env.dir)
	}
	if env.getenv != nil {
		loader = loader.WithEnv(env.getenv, envKeys)
	}
	if fs != nil {
		loader = loader.WithFlags(fs, flagKeys)
	}

	var cfg Config
	if err := loader.StrictlyLoad(&cfg); err != nil {
		return Config{}, fmt.Errorf("load configuration: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if _, err := diff.ParseMode(cfg.Mode); err != nil {
		return fmt.Errorf("invalid configuration: mode: %w", err)
	}
	if cfg.Debounce < 0 {
		return fmt.Errorf("invalid configuration: debounce must be >= 0 (got %s)", time.Duration(cfg.Debounce))
	}
	if cfg.Width <= 0 {
		return fmt.Errorf("invalid configuration: width must be > 0 (got %d)", cfg.Width)
	}
	if cfg.Simulate.Delay < 0 {
		return fmt.Errorf("invalid configuration: simulate.delay must be >= 0 (got %s)", time.Duration(cfg.Simulate.Delay))
	}
	if cfg.Match.ErrorThreshold < 0 {
		return fmt.Errorf("invalid configuration: match.error_threshold must be >= 0 (got %d)", cfg.Match.ErrorThreshold)
	}
	if cfg.Match.ErrorRatio < 0 {
		return fmt.Errorf("invalid configuration: match.error_ratio must be >= 0 (got %g)", cfg.Match.ErrorRatio)
	}
	return nil
}

// writeConfigTOML writes cfg as TOML, with the API key masked.
func writeConfigTOML(w io.Writer, cfg Config) error {
	if cfg.OpenAI.APIKey != "" {
		cfg.OpenAI.APIKey = "********"
	}
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(cfg)
}
