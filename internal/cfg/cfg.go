package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"improvit/internal/common"
)

type Settings struct {
	Port             int
	DataPath         string
	ModelDir         string
	RemoteScoringURL string
	RemoteTimeout    time.Duration
	BatchConcurrency int
	LogLevel         string
}

type ConfigFile struct {
	Server struct {
		Port     int    `yaml:"port"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"server"`

	ML struct {
		ModelDir         string `yaml:"modelDir"`
		RemoteScoringURL string `yaml:"remoteScoringURL"`
		RemoteTimeout    string `yaml:"remoteTimeout"`
		BatchConcurrency int    `yaml:"batchConcurrency"`
	} `yaml:"ml"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Local development convenience; absence of a .env file is normal.
	_ = godotenv.Load()

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	remoteTimeout, err := time.ParseDuration(config.ML.RemoteTimeout)
	if err != nil {
		remoteTimeout = 30 * time.Second
	}

	settings := Settings{
		Port:             getIntFromEnvOrConfig(common.EnvPort, config.Server.Port),
		DataPath:         getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ModelDir:         getEnvOrDefault(common.EnvModelDir, config.ML.ModelDir),
		RemoteScoringURL: getEnvOrDefault(common.EnvRemoteScoringURL, config.ML.RemoteScoringURL),
		RemoteTimeout:    remoteTimeout,
		BatchConcurrency: getIntFromEnvOrConfig(common.EnvBatchConcurrency, config.ML.BatchConcurrency),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, config.Server.LogLevel),
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		Port:             getIntOrDefault(common.EnvPort, common.DefaultPort),
		DataPath:         os.Getenv(common.EnvDataPath), // optional
		ModelDir:         getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		RemoteScoringURL: os.Getenv(common.EnvRemoteScoringURL), // optional
		RemoteTimeout:    getDurationOrDefault(common.EnvRemoteTimeout, 30*time.Second),
		BatchConcurrency: getIntOrDefault(common.EnvBatchConcurrency, common.DefaultBatchConcurrency),
		LogLevel:         getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.Port == 0 {
		s.Port = common.DefaultPort
	}
	if s.ModelDir == "" {
		s.ModelDir = common.DefaultModelDir
	}
	if s.BatchConcurrency == 0 {
		s.BatchConcurrency = common.DefaultBatchConcurrency
	}
	if s.LogLevel == "" {
		s.LogLevel = common.DefaultLogLevel
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func validateSettings(s *Settings) error {
	if s.Port < 1024 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1024 and 65535, got %d", s.Port)
	}
	if s.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}
	if s.BatchConcurrency <= 0 || s.BatchConcurrency > 128 {
		return fmt.Errorf("batch concurrency must be between 1 and 128, got %d", s.BatchConcurrency)
	}
	if s.RemoteTimeout < time.Second || s.RemoteTimeout > 2*time.Minute {
		return fmt.Errorf("remote timeout must be between 1s and 2m, got %v", s.RemoteTimeout)
	}
	return nil
}
