// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// 動作環境
const (
	// EnvDevelopment は開発環境。
	EnvDevelopment = "development"
	// EnvProduction は本番環境。
	EnvProduction = "production"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	AuthJWTSecret string

	// Admin
	// AdminKey は管理者APIの共有シークレット。
	// 既知のデフォルト値へのフォールバックは行わず、未設定なら起動に失敗する。
	AdminKey string

	// Credential
	// CredentialKey はプラットフォームパスワード暗号化のAES-256鍵（16進64文字）。
	CredentialKey string

	// OpenAI互換のレビュー生成API
	OpenAIAPIKey   string
	OpenAIEndpoint string
	OpenAIModel    string
	OpenAITimeout  time.Duration
	OpenAIMaxBody  int64

	// Crawler
	CrawlerServiceURL  string
	CrawlInterval      time.Duration
	CrawlTimeout       time.Duration
	CrawlMaxConcurrent int

	// Rate Limit（req/min/user）
	RateLimitGeneral   int
	RateLimitReviewGen int

	// Server
	ServerPort string
	AppEnv     string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// 管理者キーと暗号鍵は意図的に必須とし、既定値での黙示的な起動を許さない。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if cfg.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}

	cfg.AdminKey = os.Getenv("ADMIN_KEY")
	if cfg.AdminKey == "" {
		missing = append(missing, "ADMIN_KEY")
	}

	cfg.CredentialKey = os.Getenv("CREDENTIAL_KEY")
	if cfg.CredentialKey == "" {
		missing = append(missing, "CREDENTIAL_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	// OPENAI_API_KEYは任意。未設定の場合、レビュー生成APIがCONFIG_ERRORを返す。
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIEndpoint = getEnvString("OPENAI_ENDPOINT", "https://api.openai.com/v1/chat/completions")
	cfg.OpenAIModel = getEnvString("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAITimeout = getEnvDuration("OPENAI_TIMEOUT", 60*time.Second)
	cfg.OpenAIMaxBody = getEnvInt64("OPENAI_MAX_BODY", 1048576)
	cfg.CrawlerServiceURL = getEnvString("CRAWLER_SERVICE_URL", "")
	cfg.CrawlInterval = getEnvDuration("CRAWL_INTERVAL", 6*time.Hour)
	cfg.CrawlTimeout = getEnvDuration("CRAWL_TIMEOUT", 30*time.Second)
	cfg.CrawlMaxConcurrent = getEnvInt("CRAWL_MAX_CONCURRENT", 5)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitReviewGen = getEnvInt("RATE_LIMIT_REVIEW_GEN", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.AppEnv = getEnvString("APP_ENV", EnvDevelopment)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// IsProduction は本番環境かどうかを返す。
// エラーレスポンスへの内部詳細の付与可否の判定などに使用する。
func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
