package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"wedding-rsvp"`

	// Redis 配置：表单会话、提交标记、CMS 缓存、限流都在这里
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"wedding"`

	// RabbitMQ 配置，仅在 SUBMIT_TRANSPORT=amqp 时连接
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// CMS（microCMS 形式）配置
	CMSEndpoint        string `env:"CMS_ENDPOINT" envDefault:"https://example.microcms.io/api/v1/guests"`
	CMSAPIKey          string `env:"CMS_API_KEY"`
	CMSTimeoutMS       int    `env:"CMS_TIMEOUT_MS" envDefault:"3000"`
	CMSCacheTTLSeconds int    `env:"CMS_CACHE_TTL_SECONDS" envDefault:"300"`

	// 郵便番号検索 API（zipcloud 互换）
	PostalAPIURL    string `env:"POSTAL_API_URL" envDefault:"https://zipcloud.ibsnet.co.jp/api/search"`
	PostalTimeoutMS int    `env:"POSTAL_TIMEOUT_MS" envDefault:"3000"`

	// RSVP 提交端点
	SubmitTransport  string `env:"SUBMIT_TRANSPORT" envDefault:"http"` // http, amqp
	SubmitEndpoint   string `env:"SUBMIT_ENDPOINT"`
	SubmitTimeoutMS  int    `env:"SUBMIT_TIMEOUT_MS" envDefault:"10000"`
	SubmitExchange   string `env:"SUBMIT_EXCHANGE" envDefault:"rsvp"`
	SubmitRoutingKey string `env:"SUBMIT_ROUTING_KEY" envDefault:"rsvp.submitted"`

	// 会话 / CSRF
	SessionSecret    string `env:"SESSION_SECRET"`
	CSRFEnabled      bool   `env:"CSRF_ENABLED" envDefault:"false"`
	CORSAllowOrigins string `env:"CORS_ALLOW_ORIGINS"` // 逗号分隔，为空时回显请求的 Origin

	// 表单会话过期时间
	FormTTLHours int `env:"FORM_TTL_HOURS" envDefault:"24"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	OTelEnabled     bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint    string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// 挙式の日時（倒计时使用），RFC3339
	WeddingDate string `env:"WEDDING_DATE" envDefault:"2026-11-22T11:00:00+09:00"`
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

// validateConfig 只做提示，缺失的外部依赖会在运行时降级
func validateConfig() {
	if Cfg.CMSAPIKey == "" {
		log.Printf("WARN: CMS_API_KEY is not set, guest lookups will degrade to anonymous forms")
	}

	if Cfg.SubmitTransport == "http" && Cfg.SubmitEndpoint == "" {
		log.Printf("WARN: SUBMIT_ENDPOINT is not set, RSVP submissions will fail")
	}

	if Cfg.SubmitTransport != "http" && Cfg.SubmitTransport != "amqp" {
		log.Printf("WARN: unknown SUBMIT_TRANSPORT %q, falling back to http", Cfg.SubmitTransport)
		Cfg.SubmitTransport = "http"
	}

	if Cfg.CSRFEnabled && Cfg.SessionSecret == "" {
		log.Printf("WARN: CSRF_ENABLED without SESSION_SECRET, CSRF protection is disabled")
		Cfg.CSRFEnabled = false
	}

	if _, err := time.Parse(time.RFC3339, Cfg.WeddingDate); err != nil {
		log.Printf("WARN: WEDDING_DATE %q is not RFC3339: %v", Cfg.WeddingDate, err)
	}
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) FormTTL() time.Duration {
	return time.Duration(c.FormTTLHours) * time.Hour
}

func (c *Config) CMSCacheTTL() time.Duration {
	return time.Duration(c.CMSCacheTTLSeconds) * time.Second
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (c *Config) CMSTimeout() time.Duration    { return millis(c.CMSTimeoutMS) }
func (c *Config) PostalTimeout() time.Duration { return millis(c.PostalTimeoutMS) }
func (c *Config) SubmitTimeout() time.Duration { return millis(c.SubmitTimeoutMS) }

// WeddingTime 解析 WEDDING_DATE，失败时返回零值
func (c *Config) WeddingTime() time.Time {
	t, err := time.Parse(time.RFC3339, c.WeddingDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
