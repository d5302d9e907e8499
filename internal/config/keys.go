package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "watch.dir", typ: kString, env: "PAPERSIFT_WATCH_DIR",
		apply:   func(cfg *Config, v any) { cfg.Watch.Dir = v.(string) },
		extract: func(cfg Config) any { return cfg.Watch.Dir },
	},
	{
		key: "watch.interval", typ: kString, env: "PAPERSIFT_WATCH_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Watch.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Watch.Interval },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PAPERSIFT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "ollama.base_url", typ: kString, env: "PAPERSIFT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "PAPERSIFT_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "classify.topic", typ: kString, env: "PAPERSIFT_CLASSIFY_TOPIC",
		apply:   func(cfg *Config, v any) { cfg.Classify.Topic = v.(string) },
		extract: func(cfg Config) any { return cfg.Classify.Topic },
	},
	{
		key: "classify.timeout", typ: kString, env: "PAPERSIFT_CLASSIFY_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Classify.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Classify.Timeout },
	},
	{
		key: "fetch.timeout", typ: kString, env: "PAPERSIFT_FETCH_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Fetch.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Fetch.Timeout },
	},
	{
		key: "server.port", typ: kInt, env: "PAPERSIFT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "PAPERSIFT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
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
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
