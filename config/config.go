package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Audio   AudioConfig   `yaml:"audio"`
}

type ServerConfig struct {
	Port string `yaml:"port"`

	// Mutating mix routes share one token bucket: EditRateLimit requests per
	// second with bursts of EditBurst. Zero disables limiting.
	EditRateLimit float64 `yaml:"edit_rate_limit"`
	EditBurst     int     `yaml:"edit_burst"`

	MaxConcurrentRenders int `yaml:"max_concurrent_renders"`
}

type StorageConfig struct {
	// Type of storage: "local" or "gcs"
	Type string `yaml:"type"`

	// Local storage options
	OutputDir string `yaml:"output_dir"`
	TempDir   string `yaml:"temp_dir"`

	// GCS storage options
	Bucket          string `yaml:"bucket"`
	ObjectPrefix    string `yaml:"object_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

type AudioConfig struct {
	// Backend output: "auto", "pipe" or "null"
	Backend         string `yaml:"backend"`
	SampleRate      int    `yaml:"sample_rate"`
	BufferMs        int    `yaml:"buffer_ms"`
	FrameIntervalMs int    `yaml:"frame_interval_ms"`
	MaxConcurrency  int    `yaml:"max_concurrency"`
	AssetDir        string `yaml:"asset_dir"`
	FFmpegPath      string `yaml:"ffmpeg_path"`

	// Sound id -> location: a path, an http(s) URL, noise:<color> or tone:<hz>
	Sounds map[string]string `yaml:"sounds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.setDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.EditBurst <= 0 {
		c.Server.EditBurst = 20
	}
	if c.Server.MaxConcurrentRenders <= 0 {
		c.Server.MaxConcurrentRenders = 2
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "output/tmp"
	}

	if c.Audio.Backend == "" {
		c.Audio.Backend = "auto"
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.BufferMs <= 0 {
		c.Audio.BufferMs = 20
	}
	if c.Audio.FrameIntervalMs <= 0 {
		c.Audio.FrameIntervalMs = 16
	}
	if c.Audio.AssetDir == "" {
		c.Audio.AssetDir = "output/assets"
	}
	if c.Audio.Sounds == nil {
		c.Audio.Sounds = map[string]string{}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "local":
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	switch c.Audio.Backend {
	case "auto", "pipe", "null":
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}

	if c.Server.EditRateLimit < 0 {
		return fmt.Errorf("server.edit_rate_limit must not be negative")
	}
	return nil
}
