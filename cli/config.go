package cli

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/autogql/autogql/store/pg"
)

type serverConfig struct {
	Addr     string `yaml:"addr"`
	Database struct {
		URL  string     `yaml:"url"`
		Pool poolConfig `yaml:"pool"`
	} `yaml:"database"`
	Subscriptions bool   `yaml:"subscriptions"`
	CustomsDir    string `yaml:"customs_dir"`
	Tracing       struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"tracing"`
}

type poolConfig struct {
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

func (pc poolConfig) options() []pg.Option {
	opts := []pg.Option{}
	if pc.MaxConns > 0 {
		opts = append(opts, pg.WithMaxConns(pc.MaxConns))
	}
	if pc.MinConns > 0 {
		opts = append(opts, pg.WithMinConns(pc.MinConns))
	}
	if pc.MaxConnLifetime > 0 {
		opts = append(opts, pg.WithMaxConnLifetime(pc.MaxConnLifetime))
	}
	return opts
}

func loadConfig(path string) (serverConfig, error) {
	cfg := serverConfig{Addr: ":8080"}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return cfg, nil
}
