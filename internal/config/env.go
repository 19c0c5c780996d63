package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is process configuration read from the environment.
type Env struct {
	EnablePprofHTTP bool   `env:"IDLE_ENABLE_PPROF_HTTP" envDefault:"false"`
	BlobBackend     string `env:"IDLE_BLOB_BACKEND"      envDefault:"sqlite"`
	AllowRemoteView bool   `env:"IDLE_ALLOW_REMOTE_VIEW" envDefault:"false"`
	JournalEvents   bool   `env:"IDLE_JOURNAL_EVENTS"    envDefault:"true"`
}

// ParseEnv loads Env from the environment.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.BlobBackend {
	case "sqlite", "file", "memory":
	default:
		return Env{}, fmt.Errorf("IDLE_BLOB_BACKEND: unknown backend %q", cfg.BlobBackend)
	}
	return cfg, nil
}
