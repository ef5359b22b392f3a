package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort      string
	JWTKey       []byte
	JWTExp       time.Duration
	CookieSecure bool

	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSslMode     string
	DBConnStr     string
	DBAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SubmissionLockTTL time.Duration

	Judge0BaseURL      string
	Judge0APIKey       string
	Judge0APIHost      string
	Judge0Base64       bool
	Judge0HTTPTimeout  time.Duration
	Judge0MaxWait      time.Duration
	Judge0PollInterval time.Duration

	ValidationParallel bool

	LogLevel  string
	LogFormat string
}

var AppConfig *Config

// Load reads the optional .env file and the process environment into AppConfig.
// It reports whether a .env file was found.
func Load() bool {
	envFileFound := godotenv.Load() == nil

	AppConfig = &Config{
		APIPort:      getEnv("API_PORT", "8080"),
		JWTKey:       []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:       time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 168)) * time.Hour,
		CookieSecure: getEnvAsBool("COOKIE_SECURE", true),

		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "user"),
		DBPassword:    getEnv("DB_PASSWORD", "password"),
		DBName:        getEnv("DB_NAME", "bitscode"),
		DBSslMode:     getEnv("DB_SSLMODE", "disable"),
		DBAutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SubmissionLockTTL: time.Duration(getEnvAsInt("SUBMISSION_LOCK_TTL_SECONDS", 60)) * time.Second,

		Judge0BaseURL:      getEnv("JUDGE0_BASE_URL", "https://judge0-ce.p.rapidapi.com"),
		Judge0APIKey:       getEnv("JUDGE0_API_KEY", ""),
		Judge0APIHost:      getEnv("JUDGE0_API_HOST", "judge0-ce.p.rapidapi.com"),
		Judge0Base64:       getEnvAsBool("JUDGE0_BASE64", true),
		Judge0HTTPTimeout:  time.Duration(getEnvAsInt("JUDGE0_HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		Judge0MaxWait:      time.Duration(getEnvAsInt("JUDGE0_MAX_WAIT_SECONDS", 25)) * time.Second,
		Judge0PollInterval: time.Duration(getEnvAsInt("JUDGE0_POLL_INTERVAL_MS", 1000)) * time.Millisecond,

		ValidationParallel: getEnvAsBool("VALIDATION_PARALLEL", false),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
	return envFileFound
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}
