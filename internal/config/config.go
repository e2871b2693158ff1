package config

import (
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultSecret = "default-secret"

var (
	ErrDatabaseURLRequired  = errors.New("database_url is required")
	ErrInvalidPort          = errors.New("port must be a number")
	ErrInvalidSessionTTL    = errors.New("session_ttl must be positive")
	ErrStripeWebhookMissing = errors.New("stripe.webhook_secret is required when stripe.secret_key is set")
)

type IdentityConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type StripeConfig struct {
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	SuccessURL    string `yaml:"success_url"`
	CancelURL     string `yaml:"cancel_url"`
}

type Config struct {
	Debug            bool     `yaml:"debug"`
	Dev              bool     `yaml:"dev"`
	Host             string   `yaml:"host"`
	Port             string   `yaml:"port"`
	BaseURL          string   `yaml:"base_url"`
	Secret           string   `yaml:"secret"`
	DatabaseURL      string   `yaml:"database_url"`
	MigrationSource  string   `yaml:"migration_source"`
	RedisURL         string   `yaml:"redis_url"`
	OtelCollectorUrl string   `yaml:"otel_collector_url"`
	AllowOrigins     []string `yaml:"allow_origins"`
	AdminToken       string   `yaml:"admin_token"`
	CasbinModelPath  string   `yaml:"casbin_model_path"`
	CasbinPolicyPath string   `yaml:"casbin_policy_path"`

	SessionTTL         time.Duration `yaml:"session_ttl"`
	VerificationTTL    time.Duration `yaml:"verification_ttl"`
	OTPSendPerMinute   float64       `yaml:"otp_send_per_minute"`
	OTPSendBurst       int           `yaml:"otp_send_burst"`
	ServiceablePincode []string      `yaml:"serviceable_pincode_prefixes"`

	Identity IdentityConfig `yaml:"identity"`
	Stripe   StripeConfig   `yaml:"stripe"`
}

type logEntry struct {
	level   string
	message string
	fields  []zap.Field
}

// LogBuffer keeps messages produced before the logger exists.
type LogBuffer struct {
	entries []logEntry
}

func (b *LogBuffer) Info(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "info", message: msg, fields: fields})
}

func (b *LogBuffer) Warn(msg string, fields ...zap.Field) {
	b.entries = append(b.entries, logEntry{level: "warn", message: msg, fields: fields})
}

func (b *LogBuffer) FlushToZap(logger *zap.Logger) {
	for _, e := range b.entries {
		switch e.level {
		case "warn":
			logger.Warn(e.message, e.fields...)
		default:
			logger.Info(e.message, e.fields...)
		}
	}
	b.entries = nil
}

func defaultConfig() Config {
	return Config{
		Host:             "localhost",
		Port:             "8080",
		BaseURL:          "http://localhost:8080",
		Secret:           DefaultSecret,
		MigrationSource:  "file://internal/database/migrations",
		CasbinModelPath:  "internal/auth/casbin/model.conf",
		CasbinPolicyPath: "internal/auth/casbin/policy.csv",
		AllowOrigins:     []string{"http://localhost:3000"},
		SessionTTL:       2 * time.Hour,
		VerificationTTL:  10 * time.Minute,
		OTPSendPerMinute: 1,
		OTPSendBurst:     3,
		Identity: IdentityConfig{
			BaseURL: "https://identitytoolkit.googleapis.com/v1",
			Timeout: 10 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return ErrInvalidPort
	}

	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}

	if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
		return ErrStripeWebhookMissing
	}

	return nil
}

// Load reads configuration in increasing priority: defaults, config file,
// .env file, environment variables and command line flags.
func Load() (Config, *LogBuffer) {
	logBuffer := &LogBuffer{}
	config := defaultConfig()

	configFile := os.Getenv("CONFIG_FILE")
	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.StringVar(&configFile, "config", configFile, "path to the yaml config file")
	host := flagSet.String("host", "", "listen host")
	port := flagSet.String("port", "", "listen port")
	debug := flagSet.Bool("debug", false, "enable debug logging")
	dev := flagSet.Bool("dev", false, "enable development mode")
	_ = flagSet.Parse(os.Args[1:])

	if configFile != "" {
		fileConfig, err := FromFile(configFile, config)
		if err != nil {
			logBuffer.Warn("Failed to load config file, using defaults", zap.String("path", configFile), zap.Error(err))
		} else {
			config = fileConfig
			logBuffer.Info("Loaded config file", zap.String("path", configFile))
		}
	}

	if err := godotenv.Load(); err != nil {
		logBuffer.Info("No .env file loaded", zap.String("reason", err.Error()))
	}

	config = FromEnv(config, logBuffer)

	if *host != "" {
		config.Host = *host
	}
	if *port != "" {
		config.Port = *port
	}
	if *debug {
		config.Debug = true
	}
	if *dev {
		config.Dev = true
	}

	return config, logBuffer
}

func FromFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}

	config := base
	if err := yaml.Unmarshal(data, &config); err != nil {
		return base, err
	}

	return config, nil
}

func FromEnv(config Config, logBuffer *LogBuffer) Config {
	setString := func(key string, target *string) {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}
	setBool := func(key string, target *bool) {
		if v, ok := os.LookupEnv(key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				logBuffer.Warn("Ignoring invalid boolean environment variable", zap.String("key", key), zap.String("value", v))
				return
			}
			*target = parsed
		}
	}
	setDuration := func(key string, target *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				logBuffer.Warn("Ignoring invalid duration environment variable", zap.String("key", key), zap.String("value", v))
				return
			}
			*target = parsed
		}
	}
	setList := func(key string, target *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			var items []string
			for _, item := range strings.Split(v, ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, item)
				}
			}
			*target = items
		}
	}

	setBool("DEBUG", &config.Debug)
	setBool("DEV", &config.Dev)
	setString("HOST", &config.Host)
	setString("PORT", &config.Port)
	setString("BASE_URL", &config.BaseURL)
	setString("SECRET", &config.Secret)
	setString("DATABASE_URL", &config.DatabaseURL)
	setString("MIGRATION_SOURCE", &config.MigrationSource)
	setString("REDIS_URL", &config.RedisURL)
	setString("OTEL_COLLECTOR_URL", &config.OtelCollectorUrl)
	setList("ALLOW_ORIGINS", &config.AllowOrigins)
	setString("ADMIN_TOKEN", &config.AdminToken)
	setString("CASBIN_MODEL_PATH", &config.CasbinModelPath)
	setString("CASBIN_POLICY_PATH", &config.CasbinPolicyPath)
	setDuration("SESSION_TTL", &config.SessionTTL)
	setDuration("VERIFICATION_TTL", &config.VerificationTTL)
	setList("SERVICEABLE_PINCODE_PREFIXES", &config.ServiceablePincode)

	if v, ok := os.LookupEnv("OTP_SEND_PER_MINUTE"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			logBuffer.Warn("Ignoring invalid OTP_SEND_PER_MINUTE", zap.String("value", v))
		} else {
			config.OTPSendPerMinute = parsed
		}
	}
	if v, ok := os.LookupEnv("OTP_SEND_BURST"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			logBuffer.Warn("Ignoring invalid OTP_SEND_BURST", zap.String("value", v))
		} else {
			config.OTPSendBurst = parsed
		}
	}

	setString("IDENTITY_BASE_URL", &config.Identity.BaseURL)
	setString("IDENTITY_API_KEY", &config.Identity.APIKey)
	setDuration("IDENTITY_TIMEOUT", &config.Identity.Timeout)

	setString("STRIPE_SECRET_KEY", &config.Stripe.SecretKey)
	setString("STRIPE_WEBHOOK_SECRET", &config.Stripe.WebhookSecret)
	setString("STRIPE_SUCCESS_URL", &config.Stripe.SuccessURL)
	setString("STRIPE_CANCEL_URL", &config.Stripe.CancelURL)

	return config
}
