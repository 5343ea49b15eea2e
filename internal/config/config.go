package config

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigFile = "config.yml"

type Config struct {
	Server   ServerConfig
	Postgres DBConfig
	Redis    RedisConfig
	S3       S3Config
	Session  Session
	Cookie   Cookie
	Logger   Logger
	Worker   WorkerConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	AppVersion   string
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxFileSize  int64
	CorsOrigins  []string
}

type WorkerConfig struct {
	Family            string
	WorkerCount       int
	MaxCPUUsage       float64
	CPUCheckInterval  time.Duration
	ConversionTimeout time.Duration
	ErrorBackoff      time.Duration
	TempDir           string
	Port              string
	LibreOfficePath   string
	PdftoppmPath      string
	ImageDPI          int
	GotenbergURL      string
}

type JobsConfig struct {
	DefaultPriority   int
	MaxRetries        int
	ExpiryHours       int
	FailedExpiryHours int
}

type Session struct {
	Name   string
	Expire int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	PgDriver string
}

type Cookie struct {
	Secure   bool
	HTTPOnly bool
}

type RedisConfig struct {
	RedisAddr      string
	RedisPassword  string
	DB             int
	MinIdleConns   int
	PoolSize       int
	PoolTimeout    int
	UseTLS         bool
	DequeueTimeout time.Duration
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

// ConfigPath returns the config file location, honouring CONFIG_PATH.
func ConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return defaultConfigFile
}

func LoadConfig(filename string) (*viper.Viper, error) {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) || os.IsNotExist(err) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	log.Printf("config loaded: mode=%s bucket=%s", c.Server.Mode, c.S3.Bucket)
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8010")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxFileSize", 100*1024*1024)
	v.SetDefault("server.corsOrigins", []string{"*"})

	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslMode", "disable")
	v.SetDefault("postgres.pgDriver", "pgx")

	v.SetDefault("redis.redisAddr", ":6379")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.poolTimeout", 30)
	v.SetDefault("redis.dequeueTimeout", 5*time.Second)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "file-converter")

	v.SetDefault("session.name", "session_id")
	v.SetDefault("session.expire", 30*24*60*60)
	v.SetDefault("cookie.httpOnly", true)

	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.level", "info")

	v.SetDefault("worker.workerCount", 3)
	v.SetDefault("worker.maxCPUUsage", 90.0)
	v.SetDefault("worker.cpuCheckInterval", 10*time.Second)
	v.SetDefault("worker.conversionTimeout", 60*time.Second)
	v.SetDefault("worker.errorBackoff", time.Second)
	v.SetDefault("worker.tempDir", "/tmp/file-converter")
	v.SetDefault("worker.port", ":8001")
	v.SetDefault("worker.libreOfficePath", "soffice")
	v.SetDefault("worker.pdftoppmPath", "pdftoppm")
	v.SetDefault("worker.imageDPI", 150)

	v.SetDefault("jobs.defaultPriority", 1)
	v.SetDefault("jobs.maxRetries", 3)
	v.SetDefault("jobs.expiryHours", 24)
	v.SetDefault("jobs.failedExpiryHours", 6)
}
