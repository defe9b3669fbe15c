package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "FTJOURNAL_"

// ApplyEnv loads a .env file from the working directory if present and
// overwrites cfg fields whose FTJOURNAL_* variable is set and non-empty.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	setStr(&cfg.DBPath, EnvPrefix+"DB_PATH")
	setBool(&cfg.Encrypted, EnvPrefix+"ENCRYPTED")
	setStr(&cfg.LogLevel, EnvPrefix+"LOG_LEVEL")

	setStr(&cfg.Backup.S3.Endpoint, EnvPrefix+"S3_ENDPOINT")
	setStr(&cfg.Backup.S3.Region, EnvPrefix+"S3_REGION")
	setStr(&cfg.Backup.S3.Bucket, EnvPrefix+"S3_BUCKET")
	setStr(&cfg.Backup.S3.Prefix, EnvPrefix+"S3_PREFIX")
	setStr(&cfg.Backup.S3.AccessKey, EnvPrefix+"S3_ACCESS_KEY")
	setStr(&cfg.Backup.S3.SecretKey, EnvPrefix+"S3_SECRET_KEY")
	setBool(&cfg.Backup.S3.ForcePathStyle, EnvPrefix+"S3_FORCE_PATH_STYLE")
}

// Passphrase returns FTJOURNAL_PASSPHRASE. It is read from the
// environment only and never written to a config file.
func Passphrase() string {
	return os.Getenv(EnvPrefix + "PASSPHRASE")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
