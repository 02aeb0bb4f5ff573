package emuera

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const configFile = "emuera.toml"

// Config holds everything an Interpreter is tuned by.
type Config struct {
	Entry         string `toml:"entry"`
	ScriptDir     string `toml:"script-dir"`
	BaselineDepth int    `toml:"baseline-depth"`
	MaxCallDepth  int    `toml:"max-call-depth"`
	Persist       bool   `toml:"persist"`
	SaveDir       string `toml:"save-dir"`
	DrawLineWidth int    `toml:"drawline-width"`
	Seed          int64  `toml:"seed"`

	Trace TraceConfig `toml:"trace"`
	Log   LogConfig   `toml:"log"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// TraceConfig selects the trace output written to the trace writer.
type TraceConfig struct {
	Exec  bool `toml:"exec"`
	Vars  bool `toml:"vars"`
	Dump  bool `toml:"dump"`
	Stack bool `toml:"stack"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

func DefaultConfig() *Config {

	return &Config{
		Entry:         defaultEntry,
		ScriptDir:     "ERB",
		MaxCallDepth:  defaultMaxCallDepth,
		SaveDir:       "sav",
		DrawLineWidth: defaultDrawLineWidth,
	}
}

//
// LoadConfig reads a TOML file over the defaults, so a file only needs
// the keys it changes. Relative directories resolve against the file
//

func LoadConfig(path string) (*Config, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse error in %s", path)
	}
	cfg.Path = path

	dir := filepath.Dir(path)
	if cfg.ScriptDir != "" && !filepath.IsAbs(cfg.ScriptDir) {
		cfg.ScriptDir = filepath.Join(dir, cfg.ScriptDir)
	}
	if cfg.SaveDir != "" && !filepath.IsAbs(cfg.SaveDir) {
		cfg.SaveDir = filepath.Join(dir, cfg.SaveDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

//
// FindConfig walks up from dir looking for emuera.toml. No file found
// yields the defaults
//

func FindConfig(dir string) (*Config, error) {

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, configFile)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return DefaultConfig(), nil
		}
		dir = parent
	}
}

func (c *Config) Validate() error {

	switch {
	case c.Entry == "":
		return errors.New("entry must not be empty")
	case c.MaxCallDepth <= 0:
		return errors.Errorf("max-call-depth must be positive, got %d", c.MaxCallDepth)
	case c.BaselineDepth < 0 || c.BaselineDepth >= c.MaxCallDepth:
		return errors.Errorf("baseline-depth must be in 0..%d, got %d", c.MaxCallDepth-1, c.BaselineDepth)
	case c.DrawLineWidth < 0:
		return errors.Errorf("drawline-width must not be negative, got %d", c.DrawLineWidth)
	}
	return nil
}
