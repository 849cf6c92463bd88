package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/kazz187/taskdesk/pkg/storage"
)

type BaseEnv struct {
	Env                string   `envconfig:"ENV" default:"local"`
	HTTPHost           string   `envconfig:"HTTP_HOST" default:""`
	HTTPPort           string   `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel           string   `envconfig:"LOG_LEVEL" default:"debug"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type AuthEnv struct {
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskdesk/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskdesk/"`
	S3Region string `envconfig:"S3_REGION" default:"ap-northeast-1"`
	// Postgres settings (used when Type == "postgres")
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
}

type MailEnv struct {
	Driver       string `envconfig:"MAIL_DRIVER" default:"log"`
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	From         string `envconfig:"MAIL_FROM" default:"taskdesk@localhost"`
	TemplateDir  string `envconfig:"MAIL_TEMPLATE_DIR"`
	AppBaseURL   string `envconfig:"APP_BASE_URL" default:"http://localhost:5173"`
}

type VAPIDEnv struct {
	VAPIDPublicKey  string `envconfig:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `envconfig:"VAPID_PRIVATE_KEY"`
	VAPIDContact    string `envconfig:"VAPID_CONTACT" default:"mailto:admin@localhost"`
}

type RedisEnv struct {
	Addr            string        `envconfig:"REDIS_ADDR"`
	Password        string        `envconfig:"REDIS_PASSWORD"`
	DB              int           `envconfig:"REDIS_DB" default:"0"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"120"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

type ConcurrencyEnv struct {
	DirectoryConcurrency int `envconfig:"DIRECTORY_CONCURRENCY" default:"8"`
	NotifyConcurrency    int `envconfig:"NOTIFY_CONCURRENCY" default:"4"`
}

type Env struct {
	BaseEnv
	AuthEnv
	StorageEnv
	MailEnv
	VAPIDEnv
	RedisEnv
	ConcurrencyEnv
}

const namespace = "TASKDESK"

// LoadEnv reads an optional .env file and then the TASKDESK_* variables.
// Variables already present in the process environment win over .env.
func LoadEnv(dotenvFiles ...string) (*Env, error) {
	_ = godotenv.Load(dotenvFiles...)
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) IsLocal() bool {
	return e.Env == "local"
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

func StorageEnvFromEnv(env *Env) *StorageEnv {
	return &env.StorageEnv
}

func (e *StorageEnv) StorageConfig() storage.Config {
	return storage.Config{
		Type:        e.Type,
		BaseDir:     e.BaseDir,
		S3Bucket:    e.S3Bucket,
		S3Prefix:    e.S3Prefix,
		S3Region:    e.S3Region,
		PostgresDSN: e.PostgresDSN,
	}
}

func VAPIDEnvFromEnv(env *Env) *VAPIDEnv {
	return &env.VAPIDEnv
}
