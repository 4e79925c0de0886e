package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // text | json

	GRPCAddr  string `env:"GRPC_ADDR" envDefault:":9999"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`

	// StorageRoot is the provisioned tenant tree: {root}/{client_id}/{Raw,Clean,Downloads}.
	StorageRoot  string `env:"STORAGE_ROOT" envDefault:"storage"`
	RegistryPath string `env:"REGISTRY_PATH" envDefault:"users.json"`

	EngineBin        string        `env:"ENGINE_BIN" envDefault:"sqlmesh"`
	EngineProjectDir string        `env:"ENGINE_PROJECT_DIR" envDefault:"."`
	EngineTimeout    time.Duration `env:"ENGINE_TIMEOUT" envDefault:"10m"`
	// EngineSettleDelay is the wait between the engine returning and the
	// checkpoint pass, letting the OS release the engine's file handles.
	// Set to 0 to disable.
	EngineSettleDelay time.Duration `env:"ENGINE_SETTLE_DELAY" envDefault:"500ms"`

	IngestRatePerSec float64 `env:"INGEST_RATE_PER_SEC" envDefault:"4"`
	IngestBurst      int     `env:"INGEST_BURST" envDefault:"8"`

	// StreamBatchRows bounds how many result rows ride in one reply frame.
	StreamBatchRows int `env:"STREAM_BATCH_ROWS" envDefault:"1024"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
