package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Transport kinds accepted by Config.Transport.
const (
	TransportAuto = "auto"
	TransportUnix = "unix"
	TransportTCP  = "tcp"
)

// Defaults mirror the well-known addresses clients expect.
const (
	DefaultSocketPath   = "/tmp/pink-transcriber.sock"
	DefaultTCPAddr      = "127.0.0.1:19876"
	DefaultModel        = "ggml-large-v3.bin"
	DefaultQuantModel   = "ggml-large-v3-q8_0.bin"
	DefaultBeamSize     = 5
	DefaultReadTimeout  = 30 * time.Second
	DefaultShutdownWait = 10 * time.Second
)

// Config holds runtime parameters for the server and client.
// Zero values mean "unspecified" and are replaced by Default() values in Merge.
type Config struct {
	Transport  string `json:"transport" yaml:"transport" toml:"transport"`
	SocketPath string `json:"socket_path" yaml:"socket_path" toml:"socket_path"`
	TCPAddr    string `json:"tcp_addr" yaml:"tcp_addr" toml:"tcp_addr"`

	ModelDir       string `json:"model_dir" yaml:"model_dir" toml:"model_dir"`
	Model          string `json:"model" yaml:"model" toml:"model"`
	QuantizedModel string `json:"quantized_model" yaml:"quantized_model" toml:"quantized_model"`
	AutoDownload   bool   `json:"auto_download" yaml:"auto_download" toml:"auto_download"`
	Language       string `json:"language" yaml:"language" toml:"language"`
	BeamSize       int    `json:"beam_size" yaml:"beam_size" toml:"beam_size"`
	Threads        int    `json:"threads" yaml:"threads" toml:"threads"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	Verbose  bool   `json:"verbose" yaml:"verbose" toml:"verbose"`

	ReadTimeoutSeconds     int `json:"read_timeout_seconds" yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`

	HTTPAddr    string   `json:"http_addr" yaml:"http_addr" toml:"http_addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	LockPath    string `json:"lock_path" yaml:"lock_path" toml:"lock_path"`
	ProcessScan bool   `json:"process_scan" yaml:"process_scan" toml:"process_scan"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Transport:              TransportAuto,
		SocketPath:             DefaultSocketPath,
		TCPAddr:                DefaultTCPAddr,
		Model:                  DefaultModel,
		QuantizedModel:         DefaultQuantModel,
		Language:               "auto",
		BeamSize:               DefaultBeamSize,
		LogLevel:               "info",
		ReadTimeoutSeconds:     int(DefaultReadTimeout / time.Second),
		ShutdownTimeoutSeconds: int(DefaultShutdownWait / time.Second),
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of over onto c.
func (c Config) Merge(over Config) Config {
	if over.Transport != "" {
		c.Transport = over.Transport
	}
	if over.SocketPath != "" {
		c.SocketPath = over.SocketPath
	}
	if over.TCPAddr != "" {
		c.TCPAddr = over.TCPAddr
	}
	if over.ModelDir != "" {
		c.ModelDir = over.ModelDir
	}
	if over.Model != "" {
		c.Model = over.Model
	}
	if over.QuantizedModel != "" {
		c.QuantizedModel = over.QuantizedModel
	}
	if over.AutoDownload {
		c.AutoDownload = true
	}
	if over.Language != "" {
		c.Language = over.Language
	}
	if over.BeamSize > 0 {
		c.BeamSize = over.BeamSize
	}
	if over.Threads > 0 {
		c.Threads = over.Threads
	}
	if over.LogLevel != "" {
		c.LogLevel = over.LogLevel
	}
	if over.Verbose {
		c.Verbose = true
	}
	if over.ReadTimeoutSeconds > 0 {
		c.ReadTimeoutSeconds = over.ReadTimeoutSeconds
	}
	if over.ShutdownTimeoutSeconds > 0 {
		c.ShutdownTimeoutSeconds = over.ShutdownTimeoutSeconds
	}
	if over.HTTPAddr != "" {
		c.HTTPAddr = over.HTTPAddr
	}
	if len(over.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), over.CORSOrigins...)
	}
	if over.LockPath != "" {
		c.LockPath = over.LockPath
	}
	if over.ProcessScan {
		c.ProcessScan = true
	}
	return c
}

// ApplyEnv overlays environment overrides onto c.
func (c Config) ApplyEnv() Config {
	var env Config
	env.Transport = os.Getenv("PINK_TRANSCRIBER_TRANSPORT")
	env.SocketPath = os.Getenv("PINK_TRANSCRIBER_SOCKET")
	env.TCPAddr = os.Getenv("PINK_TRANSCRIBER_TCP_ADDR")
	env.ModelDir = os.Getenv("PINK_TRANSCRIBER_MODEL_DIR")
	env.HTTPAddr = os.Getenv("PINK_TRANSCRIBER_HTTP_ADDR")
	env.LogLevel = os.Getenv("PINK_TRANSCRIBER_LOG_LEVEL")
	// legacy switches
	env.Verbose = os.Getenv("VERBOSE") == "1" || os.Getenv("DEV") == "1"
	return c.Merge(env)
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportAuto, TransportUnix, TransportTCP:
	default:
		return fmt.Errorf("unknown transport %q (want auto|unix|tcp)", c.Transport)
	}
	if c.BeamSize < 0 {
		return fmt.Errorf("beam_size must be >= 0")
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// ReadTimeout is the per-connection deadline for receiving the command line.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds how long shutdown waits for the in-service job.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Resolve builds the effective config: defaults, then the optional file, then
// the environment.
func Resolve(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	cfg = cfg.ApplyEnv()
	return cfg, cfg.Validate()
}
