// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Letter        LetterConfig            `mapstructure:"letter"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	UsePlaintext   bool   `mapstructure:"use_plaintext"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
	// ThrowOnError overrides the worker's default for raising business
	// outcomes as BPMN errors. Unset keeps the default.
	ThrowOnError *bool `mapstructure:"throw_on_error"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

// GenAIConfig configures the section generation collaborator.
type GenAIConfig struct {
	// Provider is "http" (generic JSON endpoint) or "openai".
	Provider    string  `mapstructure:"provider" validate:"omitempty,oneof=http openai"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout" validate:"gte=0"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries" validate:"gte=0"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	CacheTTL    int     `mapstructure:"cache_ttl"` // seconds; 0 disables the cache
}

// NotificationConfig holds settings for review notifications.
type NotificationConfig struct {
	SNS SNSConfig `mapstructure:"sns"`
}

type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Region   string `mapstructure:"region"`
	TopicARN string `mapstructure:"topic_arn" validate:"required_if=Enabled true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LetterConfig calibrates the letter pipeline.
type LetterConfig struct {
	DocumentType      string                  `mapstructure:"document_type" validate:"oneof=cover_letter attorney_letter"`
	RequiredVoice     string                  `mapstructure:"required_voice" validate:"omitempty,oneof=first third"`
	MaxTotalWords     int                     `mapstructure:"max_total_words" validate:"gt=0"`
	ReducibleSections []string                `mapstructure:"reducible_sections" validate:"dive,required"`
	Sections          map[string]SectionLimit `mapstructure:"sections" validate:"dive"`
	Layout            LayoutConfig            `mapstructure:"layout"`
	// ContradictionWindow is the character distance within which stated
	// required and available figures are compared.
	ContradictionWindow int `mapstructure:"contradiction_window" validate:"gt=0"`
}

type SectionLimit struct {
	Min int `mapstructure:"min" validate:"gte=0"`
	Max int `mapstructure:"max" validate:"gtfield=Min"`
}

type LayoutConfig struct {
	AvgWordsPerLine      float64 `mapstructure:"avg_words_per_line" validate:"gt=0"`
	MaxWordsPerPage      int     `mapstructure:"max_words_per_page" validate:"gt=0"`
	MaxPages             float64 `mapstructure:"max_pages" validate:"gt=0"`
	MinLinesPerParagraph float64 `mapstructure:"min_lines_per_paragraph" validate:"gte=0"`
	MaxLinesPerParagraph float64 `mapstructure:"max_lines_per_paragraph" validate:"gtfield=MinLinesPerParagraph"`
	MaxWordsPerParagraph int     `mapstructure:"max_words_per_paragraph" validate:"gt=0"`
	MinParagraphs        int     `mapstructure:"min_paragraphs" validate:"gte=0"`
	MaxParagraphs        int     `mapstructure:"max_paragraphs" validate:"gtefield=MinParagraphs"`
}
