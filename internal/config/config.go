// Package config loads runtime settings from defaults, an optional config
// file and FAMILYFEED_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/dukerupert/familyfeed/internal/blob"
	"github.com/dukerupert/familyfeed/internal/logging"
	"github.com/dukerupert/familyfeed/internal/roster"
)

const EnvPrefix = "FAMILYFEED"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	S3       S3Config       `mapstructure:"s3"`
	Roster   RosterConfig   `mapstructure:"roster"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cleanup  CleanupConfig  `mapstructure:"cleanup"`
	Backup   BackupConfig   `mapstructure:"backup"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	SecureCookie    bool          `mapstructure:"secure_cookie"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
	Prefix    string `mapstructure:"prefix"`
}

type RosterConfig struct {
	MaxAssetBytes    int           `mapstructure:"max_asset_bytes"`
	UploadTimeout    time.Duration `mapstructure:"upload_timeout"`
	SaveTimeout      time.Duration `mapstructure:"save_timeout"`
	PurgeConcurrency int           `mapstructure:"purge_concurrency"`
}

type AuthConfig struct {
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	LoginRateLimit  int           `mapstructure:"login_rate_limit"`
	LoginRateWindow time.Duration `mapstructure:"login_rate_window"`
}

type CleanupConfig struct {
	// Schedule is a cron expression or descriptor such as "@hourly".
	Schedule string `mapstructure:"schedule"`
}

type BackupConfig struct {
	// Schedule is empty to disable scheduled snapshots.
	Schedule   string `mapstructure:"schedule"`
	Prefix     string `mapstructure:"prefix"`
	Passphrase string `mapstructure:"passphrase"`
	// Timeout bounds one scheduled snapshot run.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SetDefaults registers every key so environment variables can override
// keys that appear in no config file.
func SetDefaults(v *viper.Viper) {
	rc := roster.DefaultConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.secure_cookie", false)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "familyfeed.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.public_url", "")
	v.SetDefault("s3.prefix", "birthcharts/")

	v.SetDefault("roster.max_asset_bytes", rc.MaxAssetBytes)
	v.SetDefault("roster.upload_timeout", rc.UploadTimeout)
	v.SetDefault("roster.save_timeout", rc.SaveTimeout)
	v.SetDefault("roster.purge_concurrency", rc.PurgeConcurrency)

	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.login_rate_limit", 10)
	v.SetDefault("auth.login_rate_window", time.Minute)

	v.SetDefault("cleanup.schedule", "@hourly")

	v.SetDefault("backup.schedule", "")
	v.SetDefault("backup.prefix", "backups/")
	v.SetDefault("backup.passphrase", "")
	v.SetDefault("backup.timeout", 30*time.Minute)
}

// Load reads configuration into a fresh viper instance. file may be empty.
func Load(file string) (Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Roster.MaxAssetBytes <= 0 {
		errs = append(errs, errors.New("roster.max_asset_bytes must be positive"))
	}
	if c.Roster.UploadTimeout <= 0 || c.Roster.SaveTimeout <= 0 {
		errs = append(errs, errors.New("roster timeouts must be positive"))
	}
	if c.Auth.LoginRateLimit <= 0 || c.Auth.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("auth.login_rate_limit and auth.login_rate_window must be positive"))
	}
	if _, err := cron.ParseStandard(c.Cleanup.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("cleanup.schedule: %w", err))
	}
	if c.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(c.Backup.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("backup.schedule: %w", err))
		}
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("backup.schedule requires s3.bucket"))
		}
		if c.Backup.Timeout <= 0 {
			errs = append(errs, errors.New("backup.timeout must be positive"))
		}
	}
	if c.S3.Bucket != "" && (c.S3.AccessKey == "" || c.S3.SecretKey == "") {
		errs = append(errs, errors.New("s3.access_key and s3.secret_key are required when s3.bucket is set"))
	}
	return errors.Join(errs...)
}

func (c Config) BlobConfig() blob.Config {
	return blob.Config{
		Endpoint:  c.S3.Endpoint,
		Bucket:    c.S3.Bucket,
		Region:    c.S3.Region,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		PublicURL: c.S3.PublicURL,
		Prefix:    c.S3.Prefix,
	}
}

// BackupBlobConfig targets the same bucket as BlobConfig under the backup
// prefix.
func (c Config) BackupBlobConfig() blob.Config {
	bc := c.BlobConfig()
	bc.Prefix = c.Backup.Prefix
	return bc
}

func (c Config) RosterConfig() roster.Config {
	return roster.Config{
		MaxAssetBytes:    c.Roster.MaxAssetBytes,
		UploadTimeout:    c.Roster.UploadTimeout,
		SaveTimeout:      c.Roster.SaveTimeout,
		PurgeConcurrency: c.Roster.PurgeConcurrency,
	}
}

func (c Config) LogOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
