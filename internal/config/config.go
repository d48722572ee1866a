package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime settings, read from environment variables.
type Config struct {
	// RootDir is the project directory that holds data/, input/, output/
	// and sessions/. Defaults to the current working directory.
	RootDir string `envconfig:"REVIEWFLOW_ROOT" default:"."`

	ServerHost string `envconfig:"REVIEWFLOW_SERVER_HOST" default:"127.0.0.1"`
	ServerPort int    `envconfig:"REVIEWFLOW_SERVER_PORT" default:"8080"`

	HealthTimeout time.Duration `envconfig:"REVIEWFLOW_HEALTH_TIMEOUT" default:"1s"`
	PollInterval  time.Duration `envconfig:"REVIEWFLOW_POLL_INTERVAL" default:"250ms"`
	PollAttempts  int           `envconfig:"REVIEWFLOW_POLL_ATTEMPTS" default:"20"`
	StopSettle    time.Duration `envconfig:"REVIEWFLOW_STOP_SETTLE" default:"1s"`

	Debug bool `envconfig:"REVIEWFLOW_DEBUG" default:"false"`
}

// Addr returns the host:port the companion server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Load reads the configuration from the environment, honouring a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
