package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shipscan/scanner-api/internal/scanners"
	"shipscan/scanner-api/internal/scanners/nuclei"
	"shipscan/scanner-api/internal/summary"
)

const (
	RunnerExec   = "exec"
	RunnerDocker = "docker"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scanner ScannerConfig `yaml:"scanner"`
	Summary SummaryConfig `yaml:"summary"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type ScannerConfig struct {
	ForceMock      bool          `yaml:"force_mock"`
	Binary         string        `yaml:"binary"`
	Runner         string        `yaml:"runner"`
	Image          string        `yaml:"image"`
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	MockDelay      time.Duration `yaml:"mock_delay"`
	RateLimit      int           `yaml:"rate_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Retries        int           `yaml:"retries"`
	Tags           []string      `yaml:"tags"`
}

type SummaryConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:9001",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Scanner: ScannerConfig{
			Binary:         scanners.Nuclei.Binary,
			Runner:         RunnerExec,
			Image:          scanners.Nuclei.Image,
			ScanTimeout:    5 * time.Minute,
			ProbeTimeout:   5 * time.Second,
			MockDelay:      2 * time.Second,
			RateLimit:      10,
			RequestTimeout: 5 * time.Second,
			Retries:        1,
			Tags:           append([]string(nil), scanners.Nuclei.Tags...),
		},
		Summary: SummaryConfig{
			BaseURL: summary.DefaultBaseURL,
			Model:   summary.DefaultModel,
			Timeout: time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads .env (if present), the YAML file named by SHIPSCAN_CONFIG (if
// set) and then environment overrides, on top of Default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(os.Getenv("SHIPSCAN_CONFIG"), os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
		return nil
	}

	str("SHIPSCAN_LISTEN_ADDR", &cfg.Server.ListenAddr)
	str("NUCLEI_PATH", &cfg.Scanner.Binary)
	str("SCANNER_RUNNER", &cfg.Scanner.Runner)
	str("NUCLEI_IMAGE", &cfg.Scanner.Image)
	str("DEEPSEEK_API_KEY", &cfg.Summary.APIKey)
	str("DEEPSEEK_BASE_URL", &cfg.Summary.BaseURL)
	str("DEEPSEEK_MODEL", &cfg.Summary.Model)
	str("LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("NUCLEI_TAGS"); ok && v != "" {
		cfg.Scanner.Tags = splitList(v)
	}

	for _, err := range []error{
		boolean("USE_MOCK_SCANNER", &cfg.Scanner.ForceMock),
		boolean("NUCLEI_MOCK", &cfg.Scanner.ForceMock),
		boolean("LOG_PRETTY", &cfg.Log.Pretty),
		duration("NUCLEI_TIMEOUT", &cfg.Scanner.ScanTimeout),
		duration("NUCLEI_MOCK_DELAY", &cfg.Scanner.MockDelay),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Scanner.Runner {
	case RunnerExec, RunnerDocker:
	default:
		return fmt.Errorf("scanner.runner: unknown runner %q", c.Scanner.Runner)
	}
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Scanner.Runner == RunnerExec && c.Scanner.Binary == "" {
		return errors.New("scanner.binary is required for the exec runner")
	}
	if c.Scanner.Runner == RunnerDocker && c.Scanner.Image == "" {
		return errors.New("scanner.image is required for the docker runner")
	}
	for name, d := range map[string]time.Duration{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"scanner.scan_timeout":    c.Scanner.ScanTimeout,
		"scanner.probe_timeout":   c.Scanner.ProbeTimeout,
		"scanner.request_timeout": c.Scanner.RequestTimeout,
		"summary.timeout":         c.Summary.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Scanner.MockDelay < 0 {
		return errors.New("scanner.mock_delay must not be negative")
	}
	if c.Scanner.RateLimit <= 0 {
		return errors.New("scanner.rate_limit must be positive")
	}
	if c.Scanner.Retries < 0 {
		return errors.New("scanner.retries must not be negative")
	}
	return nil
}

// Adapter converts the scanner section into scanner adapter settings.
func (s ScannerConfig) Adapter() scanners.Config {
	return scanners.Config{
		ForceMock:    s.ForceMock,
		ScanTimeout:  s.ScanTimeout,
		ProbeTimeout: s.ProbeTimeout,
		MockDelay:    s.MockDelay,
		Nuclei: nuclei.Options{
			RateLimit:      s.RateLimit,
			RequestTimeout: s.RequestTimeout,
			Retries:        s.Retries,
			Tags:           s.Tags,
		},
	}
}

func (s SummaryConfig) Client() summary.ClientConfig {
	return summary.ClientConfig{
		BaseURL: s.BaseURL,
		APIKey:  s.APIKey,
		Model:   s.Model,
		Timeout: s.Timeout,
	}
}
