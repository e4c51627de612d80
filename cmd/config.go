package cmd

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment first; flags given before the
// command name override it.
type Config struct {
	Datadir     string        `env:"MAPASSET_DATADIR"      envDefault:"data"`
	ConfigPath  string        `env:"MAPASSET_CONFIG"       envDefault:"assets.json"`
	BaseURL     string        `env:"MAPASSET_BASE_URL"`
	Workers     int           `env:"MAPASSET_WORKERS"      envDefault:"4"`
	LogLevel    string        `env:"MAPASSET_LOG_LEVEL"    envDefault:"info"`
	Devel       bool          `env:"MAPASSET_DEVEL"`
	LoadTimeout time.Duration `env:"MAPASSET_LOAD_TIMEOUT" envDefault:"30s"`
}

// Parses the environment and the leading flags of args. Returns the
// arguments left over, starting with the command name.
func parseConfig(args []string, stderr io.Writer) (Config, []string, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, nil, fmt.Errorf("couldn't read environment: %w", err)
	}

	fs := flag.NewFlagSet("mapasset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: mapasset [flags] <%s> [args]\n", commandNames())
		fs.PrintDefaults()
	}
	fs.StringVar(&cfg.Datadir, "datadir", cfg.Datadir, "directory that relative paths and file locators are resolved against")
	fs.StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "asset config, relative to the datadir unless absolute")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "fetch images over http relative to this url instead of from the datadir")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of images loaded at once")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	fs.BoolVar(&cfg.Devel, "devel", cfg.Devel, "check path casing of every file read")
	fs.DurationVar(&cfg.LoadTimeout, "timeout", cfg.LoadTimeout, "how long to wait for images to load")
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	if cfg.Workers <= 0 {
		return cfg, nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	return cfg, fs.Args(), nil
}

// Absolute or datadir-relative path of the asset config.
func (c Config) configFile() string {
	if filepath.IsAbs(c.ConfigPath) {
		return c.ConfigPath
	}
	return filepath.Join(c.Datadir, filepath.FromSlash(c.ConfigPath))
}
