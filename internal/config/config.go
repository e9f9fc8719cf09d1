// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Oracle    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	Navigator NavigatorConfig `mapstructure:"navigator" yaml:"navigator"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser session.
type BrowserConfig struct {
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Args     []string `mapstructure:"args" yaml:"args"`
	// ScreenshotDir, when non-empty, receives a timestamp-named copy of every
	// screenshot for later inspection. Archival is best-effort only.
	ScreenshotDir     string        `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout" yaml:"click_timeout"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// OracleConfig defines the connection to the vision guidance service.
type OracleConfig struct {
	// APIKey is bound to the ANTHROPIC_API_KEY environment variable and is
	// never written back to disk.
	APIKey     string        `mapstructure:"api_key" yaml:"-"`
	Endpoint   string        `mapstructure:"endpoint" yaml:"endpoint"`
	Model      string        `mapstructure:"model" yaml:"model"`
	MaxTokens  int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// MaxAttempts bounds the total tries per guidance call, first attempt
	// included. Only transient failures are retried.
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BackoffMin  time.Duration `mapstructure:"backoff_min" yaml:"backoff_min"`
	BackoffMax  time.Duration `mapstructure:"backoff_max" yaml:"backoff_max"`
}

// NavigatorConfig tunes the perception-decide-act loop.
type NavigatorConfig struct {
	StartURL string `mapstructure:"start_url" yaml:"start_url"`
	// Task is the fixed natural-language instruction sent to the oracle with
	// every screenshot. It must describe the response grammar the interpreter
	// understands.
	Task           string        `mapstructure:"task" yaml:"task"`
	SettleDelay    time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	RecoveryDelay  time.Duration `mapstructure:"recovery_delay" yaml:"recovery_delay"`
	IterationDelay time.Duration `mapstructure:"iteration_delay" yaml:"iteration_delay"`
	// MaxSteps caps the number of loop iterations when positive. Zero keeps
	// the loop unbounded, which matches the default run-until-DONE behavior.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

// defaultTask mirrors the hotel-search instruction the tool was built around.
// It spells out the exact four response grammars the interpreter accepts.
const defaultTask = `I'm trying to navigate Expedia.com to find the best rated hotel in Seattle for April 17th to April 20.
Step by Step example is:
Step1: click on stays,
Step2: close any pop ups on the screen.
Step3: Type in Seattle. Step4: Enter the dates
Step4: Click on search
Step5: Optionally sign in as Sumant
Please analyze this screenshot and tell me what element I should click next. Return the response in this format: 'CLICK: [xpath or css selector]' or 'TYPE: [text to type]' or 'WAIT: [seconds]' or 'DONE' if we've reached the hotel page.`

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "bookingnav")
	v.SetDefault("logger.log_file", "logs/bookingnav.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.screenshot_dir", "screenshots")
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.click_timeout", "10s")
	v.SetDefault("browser.debug", false)

	// -- Oracle --
	v.SetDefault("oracle.endpoint", "https://api.anthropic.com/v1/messages")
	v.SetDefault("oracle.model", "claude-3-opus-20240229")
	v.SetDefault("oracle.max_tokens", 1000)
	v.SetDefault("oracle.api_timeout", "60s")
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.backoff_min", "4s")
	v.SetDefault("oracle.backoff_max", "10s")

	// -- Navigator --
	v.SetDefault("navigator.start_url", "https://www.expedia.com")
	v.SetDefault("navigator.task", defaultTask)
	v.SetDefault("navigator.settle_delay", "5s")
	v.SetDefault("navigator.recovery_delay", "5s")
	v.SetDefault("navigator.iteration_delay", "1s")
	v.SetDefault("navigator.max_steps", 0)
}

// NewFromViper creates a validated configuration instance from a viper object.
func NewFromViper(v *viper.Viper) (*Config, error) {
	// Bind the credential explicitly so the canonical variable name works
	// without the BOOKINGNAV_ prefix.
	v.BindEnv("oracle.api_key", "ANTHROPIC_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig returns a configuration populated with default values.
// Primarily useful in tests.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
// The oracle credential is deliberately not checked here; the oracle client
// reports it as a setup failure so the message points at the right component.
func (c *Config) Validate() error {
	if c.Navigator.StartURL == "" {
		return fmt.Errorf("navigator.start_url is a required configuration field")
	}
	if c.Navigator.Task == "" {
		return fmt.Errorf("navigator.task is a required configuration field")
	}
	if c.Navigator.IterationDelay <= 0 {
		return fmt.Errorf("navigator.iteration_delay must be a positive duration")
	}
	if c.Navigator.MaxSteps < 0 {
		return fmt.Errorf("navigator.max_steps must not be negative")
	}
	if c.Oracle.MaxAttempts <= 0 {
		return fmt.Errorf("oracle.max_attempts must be a positive integer")
	}
	if c.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle.max_tokens must be a positive integer")
	}
	if c.Oracle.BackoffMin <= 0 || c.Oracle.BackoffMax < c.Oracle.BackoffMin {
		return fmt.Errorf("oracle backoff bounds must satisfy 0 < backoff_min <= backoff_max")
	}
	if c.Browser.ClickTimeout <= 0 {
		return fmt.Errorf("browser.click_timeout must be a positive duration")
	}
	return nil
}
