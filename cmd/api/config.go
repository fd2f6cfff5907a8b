package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type serverConfig struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

func serverConfigFromEnv() (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("parse server config: %w", err)
	}
	return cfg, nil
}
