package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig selects the blob backend. Backend "disk" serves files from
// BaseDir; backend "s3" uses a minio-compatible endpoint.
type StorageConfig struct {
	Backend   string
	BaseDir   string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

type SecurityConfig struct {
	JWTSecret string
}

// AnalysisConfig tunes the stand-in sensitivity scorer. FlagThreshold is the
// score above which a video is flagged.
type AnalysisConfig struct {
	TickInterval  time.Duration
	ProgressStep  int
	FlagThreshold int
}

type PipelineConfig struct {
	MaxConcurrent int
}

type JanitorConfig struct {
	Schedule   string
	StaleAfter time.Duration
	LockTTL    time.Duration
}

type UploadConfig struct {
	MaxSizeBytes int64
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Analysis         AnalysisConfig
	Pipeline         PipelineConfig
	Janitor          JanitorConfig
	Upload           UploadConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("VIDSCREEN")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.backend", "disk")
	v.SetDefault("storage.basedir", "./data/videos")
	v.SetDefault("storage.bucket", "vidscreen-videos")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("analysis.tickinterval", "500ms")
	v.SetDefault("analysis.progressstep", 10)
	v.SetDefault("analysis.flagthreshold", 70)

	v.SetDefault("pipeline.maxconcurrent", 4)

	v.SetDefault("janitor.schedule", "0 */10 * * * *")
	v.SetDefault("janitor.staleafter", "1h")
	v.SetDefault("janitor.lockttl", "5m")

	v.SetDefault("upload.maxsizebytes", 1<<30) // 1 GiB
}
