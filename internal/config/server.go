package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// DisconnectGrace is how long a fully-offline participant of an active
	// game has to reconnect before the opponent is awarded the win.
	DisconnectGrace time.Duration `env:"DISCONNECT_GRACE" envDefault:"30s"`

	// FinishedRetention is how long a finished game stays queryable in
	// memory for late state fetches and rematch votes.
	FinishedRetention time.Duration `env:"FINISHED_RETENTION" envDefault:"60s"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
