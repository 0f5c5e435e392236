package core

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Pipeline variants.
var PipelineVariants = []string{"edge-adaptive", "edge-fixed", "depth-seg", "depth-seg-curtain"}

// Inference backends.
var InferenceBackends = []string{"http", "openai", "stub"}

// Storage backends for generated images.
var StorageBackends = []string{"local", "s3", "none"}

// Config holds every runtime setting. It is read once at startup by
// LoadConfig and passed down explicitly.
type Config struct {
	// Server
	Port        int
	DevMode     bool
	LogFile     string
	DataDir     string
	CORSOrigins []string

	// APITokenHash is a bcrypt hash of the bearer token; empty disables auth.
	APITokenHash string

	RateLimitRPS   float64
	RateLimitBurst int

	// Pipeline
	PipelineVariant      string
	Precision            string
	InferenceSteps       int
	GuidanceScale        float64
	ParallelConditioning bool
	PromptTemplatesFile  string

	// Inference backend
	InferenceBackend string
	ModelServerURL   string
	ModelServerToken string
	InferenceTimeout time.Duration
	MaxConcurrent    int

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIImageModel string

	// Storage and history
	StorageBackend  string
	S3Bucket        string
	S3Prefix        string
	AWSRegion       string
	DBPath          string
	HistoryPageSize int
	// RetentionDays of 0 keeps history forever.
	RetentionDays   int

	// Async jobs
	JobResultTTL time.Duration
	JobWorkers   int
	JobQueueSize int
}

// LoadConfig reads the environment. It never fails on malformed numbers,
// which fall back to defaults; call Validate for semantic checks.
func LoadConfig() *Config {
	dataDir := GetEnvOrDefault("DATA_DIR", "./data")

	return &Config{
		Port:         ParseIntEnv("PORT", 8080),
		DevMode:      ParseBoolEnv("DEV_MODE", false),
		LogFile:      GetEnvOrDefault("LOG_FILE", "roomify.log"),
		DataDir:      dataDir,
		CORSOrigins:  ParseListEnv("CORS_ORIGINS", []string{"*"}),
		APITokenHash: GetEnvOrDefault("API_TOKEN_HASH", ""),

		RateLimitRPS:   ParseFloat64Env("RATE_LIMIT_RPS", 1),
		RateLimitBurst: ParseIntEnv("RATE_LIMIT_BURST", 5),

		PipelineVariant:      strings.ToLower(GetEnvOrDefault("PIPELINE_VARIANT", "depth-seg")),
		Precision:            strings.ToLower(GetEnvOrDefault("PRECISION", "fp16")),
		InferenceSteps:       ParseIntEnv("INFERENCE_STEPS", 30),
		GuidanceScale:        ParseFloat64Env("GUIDANCE_SCALE", 7.5),
		ParallelConditioning: ParseBoolEnv("PARALLEL_CONDITIONING", true),
		PromptTemplatesFile:  GetEnvOrDefault("PROMPT_TEMPLATES_FILE", ""),

		InferenceBackend: strings.ToLower(GetEnvOrDefault("INFERENCE_BACKEND", "http")),
		ModelServerURL:   GetEnvOrDefault("MODEL_SERVER_URL", "http://127.0.0.1:7860"),
		ModelServerToken: GetEnvOrDefault("MODEL_SERVER_TOKEN", ""),
		InferenceTimeout: ParseDurationEnv("INFERENCE_TIMEOUT", 120*time.Second),
		MaxConcurrent:    ParseIntEnv("MAX_CONCURRENT", 2),

		OpenAIAPIKey:     GetEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    GetEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIImageModel: GetEnvOrDefault("OPENAI_IMAGE_MODEL", "dall-e-3"),

		StorageBackend:  strings.ToLower(GetEnvOrDefault("STORAGE_BACKEND", "local")),
		S3Bucket:        GetEnvOrDefault("S3_BUCKET", ""),
		S3Prefix:        GetEnvOrDefault("S3_PREFIX", "designs/"),
		AWSRegion:       GetEnvOrDefault("AWS_REGION", "us-east-1"),
		DBPath:          GetEnvOrDefault("DB_PATH", filepath.Join(dataDir, "roomify.db")),
		HistoryPageSize: ParseIntEnv("HISTORY_PAGE_SIZE", 5),
		RetentionDays:   ParseIntEnv("HISTORY_RETENTION_DAYS", 0),

		JobResultTTL: ParseDurationEnv("JOB_RESULT_TTL", 30*time.Minute),
		JobWorkers:   ParseIntEnv("JOB_WORKERS", 2),
		JobQueueSize: ParseIntEnv("JOB_QUEUE_SIZE", 32),
	}
}

// Validate checks enumerations, ranges and backend prerequisites. The
// first problem found is returned as a *ConfigError.
func (c *Config) Validate() error {
	if !contains(PipelineVariants, c.PipelineVariant) {
		return ErrInvalidValue("PIPELINE_VARIANT", c.PipelineVariant, PipelineVariants)
	}
	if c.Precision != "fp16" && c.Precision != "fp32" {
		return ErrInvalidValue("PRECISION", c.Precision, []string{"fp16", "fp32"})
	}
	if c.InferenceSteps < 1 || c.InferenceSteps > 100 {
		return ErrOutOfRange("INFERENCE_STEPS", float64(c.InferenceSteps), 1, 100)
	}
	if c.GuidanceScale < 1 || c.GuidanceScale > 30 {
		return ErrOutOfRange("GUIDANCE_SCALE", c.GuidanceScale, 1, 30)
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrOutOfRange("PORT", float64(c.Port), 1, 65535)
	}
	if c.MaxConcurrent < 1 {
		return ErrOutOfRange("MAX_CONCURRENT", float64(c.MaxConcurrent), 1, 64)
	}

	if !contains(InferenceBackends, c.InferenceBackend) {
		return ErrInvalidValue("INFERENCE_BACKEND", c.InferenceBackend, InferenceBackends)
	}
	if c.InferenceBackend == "http" {
		if err := ValidateServerURL(c.ModelServerURL); err != nil {
			return ErrInvalidServerURL(c.ModelServerURL, err.Error())
		}
	}
	if c.InferenceBackend == "openai" && c.OpenAIAPIKey == "" {
		return ErrMissingAuth("openai")
	}

	if !contains(StorageBackends, c.StorageBackend) {
		return ErrInvalidValue("STORAGE_BACKEND", c.StorageBackend, StorageBackends)
	}
	if c.StorageBackend == "s3" && c.S3Bucket == "" {
		return ErrMissingConfig("S3_BUCKET")
	}

	if c.JobWorkers < 1 {
		return ErrOutOfRange("JOB_WORKERS", float64(c.JobWorkers), 1, 64)
	}
	if c.JobQueueSize < 1 {
		return ErrOutOfRange("JOB_QUEUE_SIZE", float64(c.JobQueueSize), 1, 1<<16)
	}
	if c.HistoryPageSize < 1 {
		return ErrOutOfRange("HISTORY_PAGE_SIZE", float64(c.HistoryPageSize), 1, 100)
	}
	if c.RetentionDays < 0 {
		return ErrOutOfRange("HISTORY_RETENTION_DAYS", float64(c.RetentionDays), 0, 3650)
	}
	return nil
}

// HistoryEnabled reports whether generations are persisted.
func (c *Config) HistoryEnabled() bool {
	return c.StorageBackend != "none"
}

// AuthEnabled reports whether bearer-token auth is configured.
func (c *Config) AuthEnabled() bool {
	return c.APITokenHash != ""
}

// ValidateServerURL requires an http(s) URL with a host.
func ValidateServerURL(serverURL string) error {
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return errEmptyURL
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return err
	}
	if s := strings.ToLower(u.Scheme); s != "http" && s != "https" {
		return errURLScheme
	}
	if u.Host == "" {
		return errURLHost
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
