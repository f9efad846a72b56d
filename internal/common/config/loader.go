// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/letter/layout"
	"petition-workers/internal/letter/sizing"
	"petition-workers/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on
// top and applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the environment file is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// APIS_GENAI_API_KEY overrides apis.genai.api_key
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found between the working directory and
// the module root. It returns the path it loaded, or "".
func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// findProjectRoot walks up looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values. Unset
// variables expand to "".
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally passed as bare
// environment variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.GenAI.APIKey == "" {
		if val := os.Getenv("GENAI_API_KEY"); val != "" {
			cfg.APIs.GenAI.APIKey = val
		} else if val := os.Getenv("OPENAI_API_KEY"); val != "" && cfg.APIs.GenAI.Provider == "openai" {
			cfg.APIs.GenAI.APIKey = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Notifications.SNS.TopicARN == "" {
		if val := os.Getenv("REVIEW_TOPIC_ARN"); val != "" {
			cfg.Notifications.SNS.TopicARN = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "petition-workers"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	g := &cfg.APIs.GenAI
	if g.Provider == "" {
		g.Provider = "http"
	}
	if g.Timeout == 0 {
		g.Timeout = 60000
	}
	if g.MaxRetries == 0 {
		g.MaxRetries = 2
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 2048
	}
	if g.Model == "" && g.Provider == "openai" {
		g.Model = "gpt-4o-mini"
	}

	if cfg.Notifications.SNS.Region == "" {
		cfg.Notifications.SNS.Region = "us-east-1"
	}

	applyLetterDefaults(&cfg.Letter)
}

func applyLetterDefaults(l *LetterConfig) {
	if l.DocumentType == "" {
		l.DocumentType = compliance.DocumentCoverLetter
	}
	if l.MaxTotalWords == 0 {
		l.MaxTotalWords = sizing.DefaultMaxTotalWords
	}
	if l.ContradictionWindow == 0 {
		l.ContradictionWindow = compliance.DefaultContradictionWindow
	}
	if len(l.ReducibleSections) == 0 {
		for _, name := range sizing.DefaultReducible {
			l.ReducibleSections = append(l.ReducibleSections, string(name))
		}
	}
	if l.Sections == nil {
		l.Sections = map[string]SectionLimit{}
	}
	for name, lim := range sizing.DefaultLimits {
		if _, ok := l.Sections[string(name)]; !ok {
			l.Sections[string(name)] = SectionLimit{Min: lim.Min, Max: lim.Max}
		}
	}

	d := layout.DefaultConfig()
	lc := &l.Layout
	if lc.AvgWordsPerLine == 0 {
		lc.AvgWordsPerLine = d.AvgWordsPerLine
	}
	if lc.MaxWordsPerPage == 0 {
		lc.MaxWordsPerPage = d.MaxWordsPerPage
	}
	if lc.MaxPages == 0 {
		lc.MaxPages = d.MaxPages
	}
	if lc.MinLinesPerParagraph == 0 {
		lc.MinLinesPerParagraph = d.MinLinesPerParagraph
	}
	if lc.MaxLinesPerParagraph == 0 {
		lc.MaxLinesPerParagraph = d.MaxLinesPerParagraph
	}
	if lc.MaxWordsPerParagraph == 0 {
		lc.MaxWordsPerParagraph = d.MaxWordsPerParagraph
	}
	if lc.MinParagraphs == 0 {
		lc.MinParagraphs = d.MinParagraphs
	}
	if lc.MaxParagraphs == 0 {
		lc.MaxParagraphs = d.MaxParagraphs
	}
}

// validateConfig validates critical configuration fields. The broker
// address is checked by RequireBroker since the CLI runs without one.
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg.Letter); err != nil {
		return fmt.Errorf("letter: %w", err)
	}
	if err := validate.Struct(cfg.APIs.GenAI); err != nil {
		return fmt.Errorf("apis.genai: %w", err)
	}
	if err := validate.Struct(cfg.Notifications.SNS); err != nil {
		return fmt.Errorf("notifications.sns: %w", err)
	}
	for name := range cfg.Letter.Sections {
		if !models.SectionName(name).Known() {
			return fmt.Errorf("letter.sections: unknown section %q", name)
		}
	}
	for _, name := range cfg.Letter.ReducibleSections {
		if !models.SectionName(name).Known() {
			return fmt.Errorf("letter.reducible_sections: unknown section %q", name)
		}
	}
	if cfg.APIs.GenAI.Provider == "http" && cfg.APIs.GenAI.BaseURL != "" &&
		!strings.HasPrefix(cfg.APIs.GenAI.BaseURL, "http") {
		return fmt.Errorf("apis.genai.base_url must be an http(s) URL")
	}
	return nil
}

// RequireBroker reports a missing workflow broker address.
func RequireBroker(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
