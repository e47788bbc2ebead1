package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	S3       S3Config
	OpenAI   OpenAIConfig
	FacePP   FacePPConfig
	AWS      AWSConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// OpenAIConfig OpenAI vision credentials for student ID text extraction
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// FacePPConfig Face++ credentials for the secondary face comparison provider
type FacePPConfig struct {
	APIKey    string
	APISecret string
}

// AWSConfig credentials for Rekognition, the primary face comparison provider
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "unimarket"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry:  parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m")),
			RefreshTokenExpiry: parseDuration(getEnv("JWT_REFRESH_TOKEN_EXPIRY", "168h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "unimarket-uploads"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
		FacePP: FacePPConfig{
			APIKey:    getEnv("FACEPP_API_KEY", ""),
			APISecret: getEnv("FACEPP_API_SECRET", ""),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}

	return config, nil
}

// VerificationConfig holds the tunable policy for the student verification
// pipeline. It is resolved from the environment on every call and never
// cached, so it stays side-effect free and easy to override in tests.
type VerificationConfig struct {
	// Score thresholds (0-100)
	FaceMatchMinScore        float64
	FaceMatchConfidenceMin   float64
	OCRConfidenceMin         float64
	AutoApprovalFaceMatchMin float64
	AutoApprovalOCRConfMin   float64

	// Processing controls
	MaxRetries             int
	ProcessingTimeoutMs    int
	QueueBatchSize         int
	QueuePollingIntervalMs int
	RetentionDays          int

	// Feature flags
	EnableFaceMatching bool
	EnableOCR          bool
	EnableAutoApproval bool

	// Lowercase substrings matched against the extracted college name
	RecognizedColleges []string
}

var defaultRecognizedColleges = []string{
	"university", "college", "institute of technology", "polytechnic",
	"community college", "state", "tech",
	"mit", "stanford", "berkeley", "harvard", "caltech",
}

// LoadVerificationConfig resolves the verification policy from the
// environment with built-in defaults.
func LoadVerificationConfig() VerificationConfig {
	cfg := VerificationConfig{
		FaceMatchMinScore:        getEnvFloat("VERIFICATION_FACE_MATCH_MIN_SCORE", 70),
		FaceMatchConfidenceMin:   getEnvFloat("VERIFICATION_FACE_MATCH_CONFIDENCE_MIN", 80),
		OCRConfidenceMin:         getEnvFloat("VERIFICATION_OCR_CONFIDENCE_MIN", 60),
		AutoApprovalFaceMatchMin: getEnvFloat("VERIFICATION_AUTO_APPROVAL_FACE_MATCH_MIN", 85),
		AutoApprovalOCRConfMin:   getEnvFloat("VERIFICATION_AUTO_APPROVAL_OCR_CONFIDENCE_MIN", 75),

		MaxRetries:             getEnvInt("VERIFICATION_MAX_RETRIES", 3),
		ProcessingTimeoutMs:    getEnvInt("VERIFICATION_PROCESSING_TIMEOUT_MS", 30000),
		QueueBatchSize:         getEnvInt("VERIFICATION_QUEUE_BATCH_SIZE", 5),
		QueuePollingIntervalMs: getEnvInt("VERIFICATION_QUEUE_POLLING_INTERVAL_MS", 30000),
		RetentionDays:          getEnvInt("VERIFICATION_RETENTION_DAYS", 90),

		EnableFaceMatching: getEnvBool("VERIFICATION_ENABLE_FACE_MATCHING", true),
		EnableOCR:          getEnvBool("VERIFICATION_ENABLE_OCR", true),
		EnableAutoApproval: getEnvBool("VERIFICATION_ENABLE_AUTO_APPROVAL", true),

		RecognizedColleges: defaultRecognizedColleges,
	}

	if raw := os.Getenv("VERIFICATION_RECOGNIZED_COLLEGES"); raw != "" {
		var colleges []string
		for _, entry := range parseSlice(raw) {
			entry = strings.ToLower(strings.TrimSpace(entry))
			if entry != "" {
				colleges = append(colleges, entry)
			}
		}
		if len(colleges) > 0 {
			cfg.RecognizedColleges = colleges
		}
	}

	return cfg
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("Invalid number for %s: %q, using default %g", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Invalid boolean for %s: %q, using default %t", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 15m", s)
		return 15 * time.Minute
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
