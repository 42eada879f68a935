package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	PageFormatText     = "text"
	PageFormatMarkdown = "markdown"

	// DefaultUserAgent is the desktop Chrome string sent to generic pages.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5_1) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36"
)

type providerDefaults struct {
	model   string
	baseURL string
}

//nolint:gochecknoglobals // Lookup table meant to be immutable.
var defaultsByProvider = map[string]providerDefaults{
	ProviderGroq:   {model: "llama-3.3-70b-versatile", baseURL: "https://api.groq.com/openai/v1/"},
	ProviderOpenAI: {model: "gpt-4o-mini", baseURL: "https://api.openai.com/v1/"},
	ProviderGemini: {model: "gemini-2.5-flash"},
}

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	LLM   LLM   `envPrefix:"LLM_"`
	Fetch Fetch `envPrefix:"FETCH_"`

	PageFormat          string   `env:"PAGE_FORMAT"          envDefault:"text"`
	TranscriptLanguages []string `env:"TRANSCRIPT_LANGUAGES" envDefault:"en"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`
}

type LLM struct {
	Provider string `env:"PROVIDER" envDefault:"groq"`
	Model    string `env:"MODEL"`
	BaseURL  string `env:"BASE_URL"`
	// APIKey is only used by the Telegram front-end; web users bring their own.
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT"`
}

type Fetch struct {
	Timeout            time.Duration `env:"TIMEOUT"`
	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"true"`
	UserAgent          string        `env:"USER_AGENT"`
}

// Load reads an optional .env file and then the process environment.
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}

	if err := godotenv.Load(dotenvPaths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.normalize(); err != nil {
		return Config{}, fmt.Errorf("normalize: %w", err)
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))

	defaults, ok := defaultsByProvider[c.LLM.Provider]
	if !ok {
		return fmt.Errorf("unknown LLM provider: %q", c.LLM.Provider)
	}

	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaults.model
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaults.baseURL
	}

	c.PageFormat = strings.ToLower(strings.TrimSpace(c.PageFormat))
	if !slices.Contains([]string{PageFormatText, PageFormatMarkdown}, c.PageFormat) {
		return fmt.Errorf("unknown page format: %q", c.PageFormat)
	}

	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		c.Fetch.UserAgent = DefaultUserAgent
	}

	languages := c.TranscriptLanguages[:0]
	for _, lang := range c.TranscriptLanguages {
		if lang = strings.TrimSpace(lang); lang != "" {
			languages = append(languages, lang)
		}
	}
	c.TranscriptLanguages = languages

	c.TelegramToken = strings.TrimSpace(c.TelegramToken)

	return nil
}

