package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDefaults(t *testing.T) {
	cfg, err := NewLoader().WithEnvFile("").WithLookup(envMap(nil)).Load()
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.LLM.Seed)
	assert.Equal(t, 20*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2.5, cfg.Runner.StepFactor)
	assert.Equal(t, 3, cfg.Agent.MaxErrorCount)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.Empty(t, cfg.LLM.APIKeys)
	assert.ErrorContains(t, cfg.Validate(), "no LLM API key")
}

func TestLoadPrecedence(t *testing.T) {
	yml := write(t, "config.yaml", `
llm:
  model: gemini-2.0-flash
  timeout: 45s
runner:
  step_factor: 3
  max_steps: 30
agent:
  step_delay: 1s
log:
  level: debug
`)
	dotenv := write(t, ".env", "GEMINI_API_KEY=from-dotenv\nWEBAGENT_RUNNER_MAX_STEPS=25\n")

	cfg, err := NewLoader().
		WithConfigPath(yml).
		WithEnvFile(dotenv).
		WithLookup(envMap(map[string]string{
			"WEBAGENT_RUNNER_MAX_STEPS": "12",
			"WEBAGENT_BROWSER_HEADLESS": "true",
			"GEMINI_API_KEY_2":          "second",
		})).
		Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3.0, cfg.Runner.StepFactor)
	assert.Equal(t, 12, cfg.Runner.MaxSteps, "process env beats .env beats yaml")
	assert.Equal(t, time.Second, cfg.Agent.StepDelay)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"from-dotenv", "second"}, cfg.LLM.APIKeys)
}

func TestLoadAPIKeys(t *testing.T) {
	cfg, err := NewLoader().WithEnvFile("").WithLookup(envMap(map[string]string{
		"WEBAGENT_LLM_API_KEYS": "a, b ,c",
	})).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.LLM.APIKeys)

	cfg, err = NewLoader().WithEnvFile("").WithLookup(envMap(map[string]string{
		"OPENAI_API_KEY": "sk-test",
	})).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"sk-test"}, cfg.LLM.APIKeys)

	// The second Gemini key alone is not enough.
	cfg, err = NewLoader().WithEnvFile("").WithLookup(envMap(map[string]string{
		"GEMINI_API_KEY_2": "lonely",
	})).Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.LLM.APIKeys)
}

func TestLoadErrors(t *testing.T) {
	_, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).Load()
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = NewLoader().WithConfigPath(write(t, "bad.yaml", "llm: [")).WithEnvFile("").Load()
	assert.ErrorContains(t, err, "failed to parse config file")

	_, err = NewLoader().WithEnvFile("").WithLookup(envMap(map[string]string{
		"WEBAGENT_LLM_TIMEOUT": "soon",
	})).Load()
	assert.ErrorContains(t, err, "WEBAGENT_LLM_TIMEOUT")

	// A missing .env is fine.
	_, err = NewLoader().WithEnvFile(filepath.Join(t.TempDir(), ".env")).WithLookup(envMap(nil)).Load()
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKeys = []string{"k", " "}
	cfg.Runner.StepFactor = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.api_keys[1] is empty")
	assert.Contains(t, err.Error(), "runner.step_factor must be positive")
	assert.Contains(t, err.Error(), `invalid log format "xml"`)
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Temperature = 0.5

	cc := cfg.ClientConfig("key")
	assert.Equal(t, "key", cc.APIKey)
	assert.Equal(t, float32(0.5), cc.Temperature)
	assert.Equal(t, 42, cc.Seed)

	assert.Equal(t, 3*time.Second, cfg.AgentConfig().StepDelay)
	assert.Equal(t, 1080, cfg.BrowserOptions().ViewportHeight)
}
