package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kDuration
	kList
	kFields
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "cors.allowed_origins", typ: kList, env: "FRONTEND_URL",
		apply:   func(cfg *Config, v any) { cfg.CORS.AllowedOrigins = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.CORS.AllowedOrigins, ",") },
	},
	{
		key: "nasa.api_key", typ: kString, env: "NASA_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.NASA.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.NASA.APIKey },
	},
	{
		key: "nasa.base_url", typ: kString, env: "NASA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.NASA.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.NASA.BaseURL },
	},
	{
		key: "eonet.base_url", typ: kString, env: "EONET_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.EONET.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.EONET.BaseURL },
	},
	{
		key: "assistant.api_key", typ: kString, env: "OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Assistant.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.APIKey },
	},
	{
		key: "assistant.base_url", typ: kString, env: "OPENROUTER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.BaseURL },
	},
	{
		key: "assistant.model", typ: kString, env: "ASSISTANT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Assistant.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Assistant.Model },
	},
	{
		key: "upstream.timeout", typ: kDuration, env: "UPSTREAM_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Upstream.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Upstream.Timeout },
	},
	{
		key: "enhance.command", typ: kFields, env: "ENHANCE_COMMAND",
		apply:   func(cfg *Config, v any) { cfg.Enhance.Command = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Enhance.Command, " ") },
	},
	{
		key: "enhance.timeout", typ: kDuration, env: "ENHANCE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Enhance.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Enhance.Timeout },
	},
	{
		key: "enhance.max_concurrent", typ: kInt, env: "ENHANCE_MAX_CONCURRENT",
		apply:   func(cfg *Config, v any) { cfg.Enhance.MaxConcurrent = v.(int) },
		extract: func(cfg Config) any { return cfg.Enhance.MaxConcurrent },
	},
	{
		key: "log.level", typ: kString, env: "LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "metrics.enabled", typ: kBool, env: "METRICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Metrics.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Metrics.Enabled },
	},
	{
		key: "metrics.token", typ: kString, env: "METRICS_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Metrics.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Metrics.Token },
	},
}

func applyEnv(cfg *Config, getenv func(string) string) {
	for _, s := range specs {
		raw := strings.TrimSpace(getenv(s.env))
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				warnParse("integer", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				warnParse("bool", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				s.apply(cfg, d)
			} else {
				if err == nil {
					err = fmt.Errorf("must be positive")
				}
				warnParse("duration", s.env, raw, err)
			}
		case kList:
			if list := splitList(raw); len(list) > 0 {
				s.apply(cfg, list)
			}
		case kFields:
			if fields := strings.Fields(raw); len(fields) > 0 {
				s.apply(cfg, fields)
			}
		}
	}
}

func warnParse(kind, env, raw string, err error) {
	fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", kind, env, raw, err)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimRight(strings.TrimSpace(part), "/")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
