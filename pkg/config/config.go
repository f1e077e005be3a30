package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Escalation  EscalationConfig
	Inactivity  InactivityConfig
	QuestionGen QuestionGenConfig
	SMS         SMSConfig
	Vision      VisionConfig
	Uploads     UploadsConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	RunMigrations bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EscalationConfig holds the two absence windows. They are evaluated independently over the same ledger.
type EscalationConfig struct {
	AssignmentWindowDays       int
	AssignmentAbsenceThreshold int
	SMSWindowDays              int
	SMSAbsenceThreshold        int
	RecoveryDueIn              time.Duration
	RecoveryLockTTL            time.Duration
}

// InactivityConfig governs the live-session inactivity alert.
type InactivityConfig struct {
	Threshold  int
	SessionTTL time.Duration
}

// QuestionGenConfig configures the OpenAI-compatible question generation endpoint.
type QuestionGenConfig struct {
	Enabled       bool
	BaseURL       string
	APIKey        string
	Model         string
	Temperature   float32
	MaxTokens     int
	QuestionCount int
	MaxQuestions  int
	Timeout       time.Duration
}

// SMSConfig configures the SMS gateway and the dispatch queue.
type SMSConfig struct {
	Provider      string
	AccountSID    string
	AuthToken     string
	FromNumber    string
	DefaultRegion string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	Workers       int
	BufferSize    int
}

// VisionConfig points at the engagement classifier.
type VisionConfig struct {
	URL     string
	Timeout time.Duration
}

// UploadsConfig controls where submitted assignment files land.
type UploadsConfig struct {
	StorageDir        string
	AllowedExtensions []string
	MaxFileSizeBytes  int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		RunMigrations: v.GetBool("DB_RUN_MIGRATIONS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Escalation = EscalationConfig{
		AssignmentWindowDays:       positiveInt(v.GetInt("ASSIGNMENT_WINDOW_DAYS"), 7),
		AssignmentAbsenceThreshold: positiveInt(v.GetInt("ASSIGNMENT_ABSENCE_THRESHOLD"), 3),
		SMSWindowDays:              positiveInt(v.GetInt("SMS_WINDOW_DAYS"), 3),
		SMSAbsenceThreshold:        positiveInt(v.GetInt("SMS_ABSENCE_THRESHOLD"), 3),
		RecoveryDueIn:              parseDuration(v.GetString("RECOVERY_DUE_IN"), 7*24*time.Hour),
		RecoveryLockTTL:            parseDuration(v.GetString("RECOVERY_LOCK_TTL"), time.Minute),
	}

	cfg.Inactivity = InactivityConfig{
		Threshold:  positiveInt(v.GetInt("INACTIVITY_THRESHOLD"), 5),
		SessionTTL: parseDuration(v.GetString("INACTIVITY_SESSION_TTL"), 2*time.Hour),
	}

	cfg.QuestionGen = QuestionGenConfig{
		Enabled:       v.GetBool("QUESTION_GEN_ENABLED"),
		BaseURL:       v.GetString("QUESTION_GEN_BASE_URL"),
		APIKey:        v.GetString("QUESTION_GEN_API_KEY"),
		Model:         v.GetString("QUESTION_GEN_MODEL"),
		Temperature:   float32(v.GetFloat64("QUESTION_GEN_TEMPERATURE")),
		MaxTokens:     positiveInt(v.GetInt("QUESTION_GEN_MAX_TOKENS"), 1000),
		QuestionCount: positiveInt(v.GetInt("QUESTION_GEN_QUESTION_COUNT"), 5),
		MaxQuestions:  positiveInt(v.GetInt("QUESTION_GEN_MAX_QUESTIONS"), 11),
		Timeout:       parseDuration(v.GetString("QUESTION_GEN_TIMEOUT"), 30*time.Second),
	}

	cfg.SMS = SMSConfig{
		Provider:      strings.ToLower(v.GetString("SMS_PROVIDER")),
		AccountSID:    v.GetString("TWILIO_ACCOUNT_SID"),
		AuthToken:     v.GetString("TWILIO_AUTH_TOKEN"),
		FromNumber:    v.GetString("TWILIO_PHONE_NUMBER"),
		DefaultRegion: v.GetString("SMS_DEFAULT_REGION"),
		Timeout:       parseDuration(v.GetString("SMS_TIMEOUT"), 10*time.Second),
		MaxRetries:    clampInt(v.GetInt("SMS_MAX_RETRIES"), 0, 1),
		RetryDelay:    parseDuration(v.GetString("SMS_RETRY_DELAY"), 2*time.Second),
		Workers:       positiveInt(v.GetInt("SMS_WORKERS"), 2),
		BufferSize:    positiveInt(v.GetInt("SMS_BUFFER_SIZE"), 64),
	}

	cfg.Vision = VisionConfig{
		URL:     v.GetString("VISION_URL"),
		Timeout: parseDuration(v.GetString("VISION_TIMEOUT"), 5*time.Second),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		StorageDir:        v.GetString("UPLOADS_STORAGE_DIR"),
		AllowedExtensions: splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTENSIONS")),
		MaxFileSizeBytes:  maxUpload,
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "smart_classroom")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_RUN_MIGRATIONS", true)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ASSIGNMENT_WINDOW_DAYS", 7)
	v.SetDefault("ASSIGNMENT_ABSENCE_THRESHOLD", 3)
	v.SetDefault("SMS_WINDOW_DAYS", 3)
	v.SetDefault("SMS_ABSENCE_THRESHOLD", 3)
	v.SetDefault("RECOVERY_DUE_IN", "168h")
	v.SetDefault("RECOVERY_LOCK_TTL", "1m")

	v.SetDefault("INACTIVITY_THRESHOLD", 5)
	v.SetDefault("INACTIVITY_SESSION_TTL", "2h")

	v.SetDefault("QUESTION_GEN_ENABLED", true)
	v.SetDefault("QUESTION_GEN_BASE_URL", "https://integrate.api.nvidia.com/v1")
	v.SetDefault("QUESTION_GEN_API_KEY", "")
	v.SetDefault("QUESTION_GEN_MODEL", "nvidia/llama-3.1-nemotron-70b-instruct")
	v.SetDefault("QUESTION_GEN_TEMPERATURE", 1.2)
	v.SetDefault("QUESTION_GEN_MAX_TOKENS", 1000)
	v.SetDefault("QUESTION_GEN_QUESTION_COUNT", 5)
	v.SetDefault("QUESTION_GEN_MAX_QUESTIONS", 11)
	v.SetDefault("QUESTION_GEN_TIMEOUT", "30s")

	v.SetDefault("SMS_PROVIDER", "log")
	v.SetDefault("TWILIO_ACCOUNT_SID", "")
	v.SetDefault("TWILIO_AUTH_TOKEN", "")
	v.SetDefault("TWILIO_PHONE_NUMBER", "")
	v.SetDefault("SMS_DEFAULT_REGION", "")
	v.SetDefault("SMS_TIMEOUT", "10s")
	v.SetDefault("SMS_MAX_RETRIES", 1)
	v.SetDefault("SMS_RETRY_DELAY", "2s")
	v.SetDefault("SMS_WORKERS", 2)
	v.SetDefault("SMS_BUFFER_SIZE", 64)

	v.SetDefault("VISION_URL", "http://localhost:5001/detect")
	v.SetDefault("VISION_TIMEOUT", "5s")

	v.SetDefault("UPLOADS_STORAGE_DIR", "./uploads")
	v.SetDefault("UPLOADS_ALLOWED_EXTENSIONS", ".pdf,.doc,.docx")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 10*1024*1024)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveInt(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
