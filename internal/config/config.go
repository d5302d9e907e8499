package config

import (
	"github.com/joho/godotenv"
)

type Config struct {
	Watch    WatchConfig
	Storage  StorageConfig
	Ollama   OllamaConfig
	Classify ClassifyConfig
	Fetch    FetchConfig
	Server   ServerConfig
	Log      LogConfig
}

type WatchConfig struct {
	Dir      string
	Interval string
}

type StorageConfig struct {
	DataDir string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type ClassifyConfig struct {
	Topic   string
	Timeout string
}

type FetchConfig struct {
	Timeout string
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Watch: WatchConfig{
			Dir:      "papers",
			Interval: "5s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "phi3.5",
		},
		Classify: ClassifyConfig{
			Topic:   "protein targets relevant to fibrolamellar carcinoma (FLC)",
			Timeout: "60s",
		},
		Fetch: FetchConfig{
			Timeout: "10s",
		},
		Server: ServerConfig{
			Port: 4000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.papersift.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/papersift/config.json.
//
// A .env file in the working directory is loaded first; environment variables
// (PAPERSIFT_*) override backend values on all platforms.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
