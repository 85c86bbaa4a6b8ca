// Package config loads the agent configuration.
//
// Precedence: defaults, then the YAML file, then the .env file, then the
// process environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nbenliogludev/go-web-agent/internal/agent"
	"github.com/nbenliogludev/go-web-agent/internal/browser"
	"github.com/nbenliogludev/go-web-agent/internal/llm"
)

type Config struct {
	LLM     LLMConfig     `yaml:"llm" env:"LLM"`
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`
	Agent   AgentConfig   `yaml:"agent" env:"AGENT"`
	Runner  RunnerConfig  `yaml:"runner" env:"RUNNER"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
}

type LLMConfig struct {
	Model   string `yaml:"model" env:"MODEL"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// APIKeys is the credential pool; one running task per key.
	APIKeys     []string      `yaml:"api_keys" env:"API_KEYS"`
	Seed        int           `yaml:"seed" env:"SEED"`
	Temperature float64       `yaml:"temperature" env:"TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
}

type BrowserConfig struct {
	Headless       bool          `yaml:"headless" env:"HEADLESS"`
	Channel        string        `yaml:"channel" env:"CHANNEL"`
	ViewportWidth  int           `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight int           `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UserDataDir    string        `yaml:"user_data_dir" env:"USER_DATA_DIR"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	SkipInstall    bool          `yaml:"skip_install" env:"SKIP_INSTALL"`
}

type AgentConfig struct {
	MaxErrorCount int           `yaml:"max_error_count" env:"MAX_ERROR_COUNT"`
	BackoffBase   time.Duration `yaml:"backoff_base" env:"BACKOFF_BASE"`
	StepDelay     time.Duration `yaml:"step_delay" env:"STEP_DELAY"`
}

type RunnerConfig struct {
	Dataset    string  `yaml:"dataset" env:"DATASET"`
	OutputRoot string  `yaml:"output_root" env:"OUTPUT_ROOT"`
	StepFactor float64 `yaml:"step_factor" env:"STEP_FACTOR"`
	MaxSteps   int     `yaml:"max_steps" env:"MAX_STEPS"`
}

type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
}

func DefaultConfig() *Config {
	b := browser.DefaultOptions()
	a := agent.DefaultConfig()
	return &Config{
		LLM: LLMConfig{
			Model:   "gemini-2.5-flash",
			BaseURL: llm.GeminiBaseURL,
			Seed:    42,
			Timeout: 20 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:       b.Headless,
			ViewportWidth:  b.ViewportWidth,
			ViewportHeight: b.ViewportHeight,
			Timeout:        b.Timeout,
			IdleTimeout:    b.IdleTimeout,
		},
		Agent: AgentConfig{
			MaxErrorCount: a.MaxErrorCount,
			BackoffBase:   a.BackoffBase,
			StepDelay:     a.StepDelay,
		},
		Runner: RunnerConfig{
			Dataset:    "data/Online_Mind2Web.json",
			OutputRoot: "output",
			StepFactor: 2.5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func (c *Config) Validate() error {
	var errs []string

	if len(c.LLM.APIKeys) == 0 {
		errs = append(errs, "no LLM API key (set GEMINI_API_KEY)")
	}
	for i, k := range c.LLM.APIKeys {
		if strings.TrimSpace(k) == "" {
			errs = append(errs, fmt.Sprintf("llm.api_keys[%d] is empty", i))
		}
	}
	if c.LLM.Model == "" {
		errs = append(errs, "llm.model is required")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm.temperature must be between 0 and 2")
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, "llm.timeout must be positive")
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, "browser viewport must be positive")
	}

	if c.Agent.MaxErrorCount < 0 {
		errs = append(errs, "agent.max_error_count must not be negative")
	}
	if c.Agent.BackoffBase < 0 || c.Agent.StepDelay < 0 {
		errs = append(errs, "agent delays must not be negative")
	}

	if c.Runner.StepFactor <= 0 {
		errs = append(errs, "runner.step_factor must be positive")
	}
	if c.Runner.MaxSteps < 0 {
		errs = append(errs, "runner.max_steps must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:       c.Browser.Headless,
		Channel:        c.Browser.Channel,
		ViewportWidth:  c.Browser.ViewportWidth,
		ViewportHeight: c.Browser.ViewportHeight,
		UserDataDir:    c.Browser.UserDataDir,
		Timeout:        c.Browser.Timeout,
		IdleTimeout:    c.Browser.IdleTimeout,
		SkipInstall:    c.Browser.SkipInstall,
	}
}

func (c *Config) AgentConfig() agent.Config {
	return agent.Config{
		MaxErrorCount: c.Agent.MaxErrorCount,
		BackoffBase:   c.Agent.BackoffBase,
		StepDelay:     c.Agent.StepDelay,
	}
}

func (c *Config) ClientConfig(apiKey string) llm.ClientConfig {
	return llm.ClientConfig{
		APIKey:      apiKey,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		Seed:        c.LLM.Seed,
		Temperature: float32(c.LLM.Temperature),
		Timeout:     c.LLM.Timeout,
		MaxTokens:   c.LLM.MaxTokens,
	}
}
