package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultEnvPrefix = "WEBAGENT"

// Credential variables read without the prefix. A second Gemini key
// enables two tasks in parallel.
const (
	EnvGeminiKey  = "GEMINI_API_KEY"
	EnvGeminiKey2 = "GEMINI_API_KEY_2"
	EnvOpenAIKey  = "OPENAI_API_KEY"
)

type Loader struct {
	configPath string
	envFile    string
	envPrefix  string
	lookup     func(string) (string, bool)
}

func NewLoader() *Loader {
	return &Loader{
		envFile:   ".env",
		envPrefix: DefaultEnvPrefix,
		lookup:    os.LookupEnv,
	}
}

func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvFile sets the dotenv file. An empty path disables it.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithLookup replaces os.LookupEnv.
func (l *Loader) WithLookup(fn func(string) (string, bool)) *Loader {
	l.lookup = fn
	return l
}

// Load builds the configuration. It does not validate it.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	dotenv, err := l.readEnvFile()
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}
	get := func(key string) string {
		if v, ok := l.lookup(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}

	if err := setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix, get); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if key := get(EnvGeminiKey); key != "" {
		cfg.LLM.APIKeys = []string{key}
		if key2 := get(EnvGeminiKey2); key2 != "" {
			cfg.LLM.APIKeys = append(cfg.LLM.APIKeys, key2)
		}
	} else if len(cfg.LLM.APIKeys) == 0 {
		if key := get(EnvOpenAIKey); key != "" {
			cfg.LLM.APIKeys = []string{key}
		}
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// A missing dotenv file is not an error.
func (l *Loader) readEnvFile() (map[string]string, error) {
	if l.envFile == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(l.envFile)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return vals, err
}

func setFieldsFromEnv(v reflect.Value, prefix string, get func(string) string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag

		if field.Kind() == reflect.Struct {
			if err := setFieldsFromEnv(field, key, get); err != nil {
				return err
			}
			continue
		}

		value := get(key)
		if value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
