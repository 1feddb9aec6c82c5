package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration returns the duration value (e.g. "5s") of the environment
// variable named by key, or fallback if it is unset, empty, or malformed.
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// Settings is the complete runtime configuration.
type Settings struct {
	Port        string       `yaml:"port"`
	LogLevel    string       `yaml:"log_level"`
	LogFormat   string       `yaml:"log_format"`
	API         APISettings  `yaml:"api"`
	Poll        PollSettings `yaml:"poll"`
	ArtifactDir string       `yaml:"artifact_dir"`
}

// APISettings configures the remote download service client.
type APISettings struct {
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// PollSettings configures status polling of deferred jobs.
type PollSettings struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "json",
		API: APISettings{
			BaseURL: "https://try-back-end.onrender.com",
			Timeout: 60 * time.Second,
		},
		Poll: PollSettings{
			Interval:    5 * time.Second,
			MaxAttempts: 60,
		},
		ArtifactDir: "downloads",
	}
}

// LoadSettings starts from Defaults, overlays the YAML file at path when path
// is not empty, then applies environment overrides.
func LoadSettings(path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return s, errors.Wrap(err, "read settings file")
		}
		if err := yaml.UnmarshalStrict(b, &s); err != nil {
			return s, errors.Wrapf(err, "parse settings file %s", path)
		}
	}

	s.Port = GetEnv("PORT", s.Port)
	s.LogLevel = GetEnv("LOG_LEVEL", s.LogLevel)
	s.LogFormat = GetEnv("LOG_FORMAT", s.LogFormat)
	s.API.BaseURL = GetEnv("API_BASE_URL", s.API.BaseURL)
	s.API.Timeout = GetEnvDuration("API_TIMEOUT", s.API.Timeout)
	s.API.RetryMax = GetEnvInt("API_RETRY_MAX", s.API.RetryMax)
	s.Poll.Interval = GetEnvDuration("POLL_INTERVAL", s.Poll.Interval)
	s.Poll.MaxAttempts = GetEnvInt("POLL_MAX_ATTEMPTS", s.Poll.MaxAttempts)
	s.ArtifactDir = GetEnv("ARTIFACT_DIR", s.ArtifactDir)

	return s, nil
}
