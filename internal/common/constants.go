package common

// Environment variable keys
const (
	EnvConfigFile       = "CONFIG_FILE"
	EnvPort             = "PORT"
	EnvDataPath         = "DATA_PATH"
	EnvModelDir         = "MODEL_DIR"
	EnvRemoteScoringURL = "REMOTE_SCORING_URL"
	EnvRemoteTimeout    = "REMOTE_TIMEOUT"
	EnvBatchConcurrency = "BATCH_CONCURRENCY"
	EnvLogLevel         = "LOG_LEVEL"
)

// Configuration defaults
const (
	DefaultPort             = 8081
	DefaultModelDir         = "models"
	DefaultBatchConcurrency = 8
	DefaultLogLevel         = "info"
)

// APIPrefix is the versioned route prefix for all JSON endpoints.
const APIPrefix = "/api/v1"
