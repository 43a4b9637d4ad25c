package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full server configuration, read from the environment.
type Config struct {
	Port     string `env:"TALLY_PORT" envDefault:"8080"`
	DBPath   string `env:"TALLY_DB_PATH" envDefault:"tally.db"`
	LogLevel string `env:"TALLY_LOG_LEVEL" envDefault:"info"`

	// JWTSecret signs auth tokens. Generated at startup when empty, which
	// invalidates sessions on restart; set it for anything beyond local use.
	JWTSecret     string `env:"TALLY_JWT_SECRET"`
	SecureCookies bool   `env:"TALLY_SECURE_COOKIES" envDefault:"false"`

	VAPIDPublicKey  string `env:"TALLY_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"TALLY_VAPID_PRIVATE_KEY"`
	PushSubscriber  string `env:"TALLY_PUSH_SUBSCRIBER"`

	BackupPassphrase string `env:"TALLY_BACKUP_PASSPHRASE"`
	BackupHour       int    `env:"TALLY_BACKUP_HOUR" envDefault:"3"`
	S3Endpoint       string `env:"TALLY_S3_ENDPOINT"`
	S3Bucket         string `env:"TALLY_S3_BUCKET"`
	S3Region         string `env:"TALLY_S3_REGION" envDefault:"auto"`
	S3AccessKey      string `env:"TALLY_S3_ACCESS_KEY"`
	S3SecretKey      string `env:"TALLY_S3_SECRET_KEY"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
