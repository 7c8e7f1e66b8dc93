package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port     string
		LogLevel string
	}
	Interrupt struct {
		IgnoreWords      string // comma-separated override; empty keeps defaults
		SpeechTimeoutSec int
	}
	Worker struct {
		TokenSecret   string
		TokenSkewSecs int
		TokenExpMin   int
	}
	OpenAI struct {
		APIKey       string
		Model        string
		SystemPrompt string
		MaxTokens    int
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("interrupt.speech_timeout_sec", 60)

	v.SetDefault("worker.token_skew_secs", 60)
	v.SetDefault("worker.token_exp_min", 720)

	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 256)
	v.SetDefault("openai.system_prompt", "You are a concise voice assistant. Keep answers short enough to speak aloud.")

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")

	v.BindEnv("interrupt.ignore_words", "IGNORE_WORDS")
	v.BindEnv("interrupt.speech_timeout_sec", "SPEECH_TIMEOUT_SEC")

	v.BindEnv("worker.token_secret", "WORKER_TOKEN_SECRET")
	v.BindEnv("worker.token_skew_secs", "WORKER_TOKEN_SKEW_SECS")
	v.BindEnv("worker.token_exp_min", "WORKER_TOKEN_EXP_MIN")

	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")
	v.BindEnv("openai.system_prompt", "OPENAI_SYSTEM_PROMPT")
	v.BindEnv("openai.max_tokens", "OPENAI_MAX_TOKENS")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")

	c.Interrupt.IgnoreWords = v.GetString("interrupt.ignore_words")
	c.Interrupt.SpeechTimeoutSec = v.GetInt("interrupt.speech_timeout_sec")

	c.Worker.TokenSecret = v.GetString("worker.token_secret")
	c.Worker.TokenSkewSecs = v.GetInt("worker.token_skew_secs")
	c.Worker.TokenExpMin = v.GetInt("worker.token_exp_min")

	c.OpenAI.APIKey = v.GetString("openai.api_key")
	c.OpenAI.Model = v.GetString("openai.model")
	c.OpenAI.SystemPrompt = v.GetString("openai.system_prompt")
	c.OpenAI.MaxTokens = v.GetInt("openai.max_tokens")

	log.Printf("config loaded: port=%s model=%s ignore_words=%q", c.Server.Port, c.OpenAI.Model, c.Interrupt.IgnoreWords)
	return c
}

// ResolveIgnoreWords splits the IGNORE_WORDS override into a word list.
// Returns nil when unset so the classifier falls back to its defaults.
func (c Config) ResolveIgnoreWords() []string {
	if strings.TrimSpace(c.Interrupt.IgnoreWords) == "" {
		return nil
	}
	parts := strings.Split(c.Interrupt.IgnoreWords, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func toString(v any) string { return fmt.Sprint(v) }
