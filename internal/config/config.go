package config

import (
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "SUPPORTBOT"

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	Debug     bool   `envconfig:"DEBUG" default:"false"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json logfmt"`

	KnowledgeURL    string        `envconfig:"KNOWLEDGE_URL" validate:"required,url"`
	CacheTTL        time.Duration `envconfig:"CACHE_TTL" default:"5m" validate:"gt=0"`
	RefreshInterval time.Duration `envconfig:"REFRESH_INTERVAL" default:"0s" validate:"gte=0"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s" validate:"gt=0"`
	FetchRetries    uint64        `envconfig:"FETCH_RETRIES" default:"2" validate:"lte=10"`

	HistoryCap  int           `envconfig:"HISTORY_CAP" default:"10" validate:"gt=0"`
	MaxSessions int           `envconfig:"MAX_SESSIONS" default:"0" validate:"gte=0"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"0s" validate:"gte=0"`

	TopK                int      `envconfig:"TOP_K" default:"3" validate:"gt=0"`
	FallbackMode        string   `envconfig:"FALLBACK_MODE" default:"marker" validate:"oneof=marker prefix keywords"`
	FallbackPrefixChars int      `envconfig:"FALLBACK_PREFIX_CHARS" default:"2000" validate:"gt=0"`
	FallbackKeywords    []string `envconfig:"FALLBACK_KEYWORDS"`

	CompletionAPIKey  string        `envconfig:"COMPLETION_API_KEY"`
	CompletionBaseURL string        `envconfig:"COMPLETION_BASE_URL" default:"https://api.groq.com/openai/v1" validate:"omitempty,url"`
	CompletionModel   string        `envconfig:"COMPLETION_MODEL" default:"llama-3.3-70b-versatile" validate:"required"`
	CompletionTimeout time.Duration `envconfig:"COMPLETION_TIMEOUT" default:"12s" validate:"gt=0"`
	Temperature       float32       `envconfig:"TEMPERATURE" default:"0.3" validate:"gte=0,lte=2"`
	MaxTokens         int           `envconfig:"MAX_TOKENS" default:"500" validate:"gt=0"`

	BrandName     string `envconfig:"BRAND_NAME" default:"FortusPay"`
	ContactFooter string `envconfig:"CONTACT_FOOTER" default:"Kontakta support@fortuspay.com eller ring 010-222 15 20 för hjälp."`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// Var describes one environment variable Config reads.
type Var struct {
	Name     string `json:"name"`
	Default  string `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Vars lists every SUPPORTBOT_* variable in field order with its default.
func Vars() []Var {
	t := reflect.TypeOf(Config{})
	vars := make([]Var, 0, t.NumField())
	for i := range t.NumField() {
		field := t.Field(i)
		key := field.Tag.Get("envconfig")
		if key == "" {
			continue
		}
		vars = append(vars, Var{
			Name:     envPrefix + "_" + key,
			Default:  field.Tag.Get("default"),
			Required: strings.HasPrefix(field.Tag.Get("validate"), "required"),
		})
	}
	return vars
}

// Load reads .env and the environment, then validates the result.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnv is Load without validation, for callers that layer flag overrides
// on top before calling Validate.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate checks field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) HasCompletion() bool {
	return c.CompletionAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
