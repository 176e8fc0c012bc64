package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	NASA      NASAConfig
	EONET     EONETConfig
	Assistant AssistantConfig
	Upstream  UpstreamConfig
	Enhance   EnhanceConfig
	Log       LogConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type CORSConfig struct {
	AllowedOrigins []string
}

type NASAConfig struct {
	APIKey  string
	BaseURL string
}

// EONETConfig points at the natural-event service, which needs no key.
type EONETConfig struct {
	BaseURL string
}

type AssistantConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type UpstreamConfig struct {
	Timeout time.Duration
}

type EnhanceConfig struct {
	Command       []string
	Timeout       time.Duration
	MaxConcurrent int
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
	Token   string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 5000,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		NASA: NASAConfig{
			BaseURL: "https://api.nasa.gov",
		},
		EONET: EONETConfig{
			BaseURL: "https://eonet.gsfc.nasa.gov/api/v3",
		},
		Assistant: AssistantConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "mistralai/mistral-small-3.2-24b-instruct:free",
		},
		Upstream: UpstreamConfig{
			Timeout: 30 * time.Second,
		},
		Enhance: EnhanceConfig{
			Command:       []string{"esrgan-stub"},
			Timeout:       30 * time.Second,
			MaxConcurrent: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// DotEnvFile is the optional file read by Load before the environment.
const DotEnvFile = ".env"

// Load builds the process configuration from defaults, an optional .env file
// in the working directory and the process environment, in that order.
// Variables already present in the environment are never overwritten by the
// .env file.
//
// Both upstream credentials are required; Load fails when either is missing.
func Load() (Config, error) {
	loadDotEnv()
	return loadWith(os.Getenv)
}

// Inspect resolves the configuration like Load but returns it even when it
// is invalid, together with the error Load would have reported.
func Inspect() (Config, error) {
	loadDotEnv()
	cfg := defaults()
	applyEnv(&cfg, os.Getenv)
	return cfg, cfg.validate()
}

func loadDotEnv() {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] could not read %s: %v. Continuing with process environment.\n", DotEnvFile, err)
	}
}

func loadWith(getenv func(string) string) (Config, error) {
	cfg := defaults()
	applyEnv(&cfg, getenv)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var missing []string
	if c.NASA.APIKey == "" {
		missing = append(missing, "NASA_API_KEY")
	}
	if c.Assistant.APIKey == "" {
		missing = append(missing, "OPENROUTER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s must be set in the environment or %s",
			strings.Join(missing, ", "), DotEnvFile)
	}

	if len(c.Enhance.Command) == 0 {
		return errors.New("ENHANCE_COMMAND must name an executable")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Server.Port)
	}
	return nil
}
