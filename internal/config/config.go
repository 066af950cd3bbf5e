// Package config loads service settings from defaults, an optional
// config/config.yaml, a .env file and the environment, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"voice-interviewer-go/internal/emotion"
	"voice-interviewer-go/internal/prosody"
	"voice-interviewer-go/internal/voice"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Upload        UploadConfig        `mapstructure:"upload"`
	Prosody       prosody.Config      `mapstructure:"prosody"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	Voice         voice.Config        `mapstructure:"voice"`
	Emotion       emotion.Thresholds  `mapstructure:"emotion"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	TurnTimeout  time.Duration `mapstructure:"turn_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type LLMConfig struct {
	GatewayURL string `mapstructure:"gateway_url"`
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Mock       bool   `mapstructure:"mock"`
}

type TranscriptionConfig struct {
	URL      string `mapstructure:"url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
	Mock     bool   `mapstructure:"mock"`
}

type UploadConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

type InterviewConfig struct {
	Template  string `mapstructure:"template"`
	GuidePath string `mapstructure:"guide_path"`
}

// envNames keeps the variable names used by existing deployments working.
var envNames = map[string][]string{
	"server.port":           {"PORT"},
	"log.level":             {"LOG_LEVEL"},
	"log.file":              {"LOG_FILE"},
	"llm.gateway_url":       {"LLM_GATEWAY_URL"},
	"llm.api_key":           {"LLM_API_KEY"},
	"llm.model":             {"LLM_MODEL"},
	"llm.mock":              {"USE_MOCK_LLM"},
	"transcription.url":     {"TRANSCRIBE_URL"},
	"transcription.api_key": {"TRANSCRIBE_API_KEY", "OPENAI_API_KEY"},
	"transcription.model":   {"TRANSCRIBE_MODEL"},
	"transcription.mock":    {"USE_MOCK_TRANSCRIBE"},
	"upload.url":            {"BLOB_URL"},
	"upload.token":          {"BLOB_READ_WRITE_TOKEN"},
	"prosody.base_url":      {"HUME_API_URL"},
	"prosody.api_key":       {"HUME_API_KEY"},
	"prosody.secret_key":    {"HUME_SECRET_KEY"},
	"interview.template":    {"INTERVIEW_TEMPLATE"},
	"interview.guide_path":  {"GUIDE_PATH"},
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:         "8080",
			TurnTimeout:  90 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Log:           LogConfig{Level: "info"},
		LLM:           LLMConfig{Model: "gpt-3.5-turbo"},
		Transcription: TranscriptionConfig{URL: "https://api.openai.com/v1", Model: "whisper-1", Language: "en"},
		Upload:        UploadConfig{URL: "https://blob.vercel-storage.com"},
		Prosody:       prosody.DefaultConfig(),
		Interview:     InterviewConfig{Template: "product_feedback"},
		Voice:         voice.DefaultConfig(),
		Emotion:       emotion.DefaultThresholds(),
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.turn_timeout", d.Server.TurnTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("transcription.url", d.Transcription.URL)
	v.SetDefault("transcription.model", d.Transcription.Model)
	v.SetDefault("transcription.language", d.Transcription.Language)
	v.SetDefault("upload.url", d.Upload.URL)
	v.SetDefault("prosody.base_url", d.Prosody.BaseURL)
	v.SetDefault("prosody.poll_interval", d.Prosody.PollInterval)
	v.SetDefault("prosody.timeout", d.Prosody.Timeout)
	v.SetDefault("interview.template", d.Interview.Template)
}

// Loader wraps the viper instance so the file can be watched after loading.
type Loader struct {
	v *viper.Viper
}

// Load reads .env (if present) and configDir/config.yaml (if present).
func Load(configDir string) (*Config, *Loader, error) {
	_ = godotenv.Load() // loads .env

	v := viper.New()
	setDefaults(v, Default())

	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("INTERVIEWER") // e.g. INTERVIEWER_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envNames {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, &Loader{v: v}, nil
}

// File is the config file in use, or "" when running on defaults.
func (l *Loader) File() string {
	if f := l.v.ConfigFileUsed(); f != "" {
		return filepath.Clean(f)
	}
	return ""
}

// Watch calls onChange with the re-decoded config whenever the file changes.
func (l *Loader) Watch(onChange func(*Config, error)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		onChange(decode(l.v))
	})
	l.v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return &cfg, nil
}
