package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the sentinel engine.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Detector  DetectorConfig  `yaml:"detector"`
	Adaptive  AdaptiveConfig  `yaml:"adaptive"`
	Healer    HealerConfig    `yaml:"healer"`
	Notify    NotifyConfig    `yaml:"notify"`
	Report    ReportConfig    `yaml:"report"`
	Intervals IntervalsConfig `yaml:"intervals"`
}

// ServerConfig controls the HTTP listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// IngestConfig bounds the raw operation-record window.
type IngestConfig struct {
	WindowSize int `yaml:"windowSize"`
}

// DetectorConfig exposes the anomaly-scoring constants. The defaults mirror
// the documented heuristic; their optimality is not assumed, which is why
// they are configuration rather than code.
type DetectorConfig struct {
	BaselineSize int `yaml:"baselineSize"`
	HistorySize  int `yaml:"historySize"`
	MinBaseline  int `yaml:"minBaseline"`

	SaturationStdDevs float64 `yaml:"saturationStdDevs"`

	Weights WeightsConfig   `yaml:"weights"`
	Risk    RiskCutoffs     `yaml:"risk"`
	Signals SignalThresholds `yaml:"signals"`
}

// WeightsConfig weights the four sub-scores into the overall anomaly score.
type WeightsConfig struct {
	Error       float64 `yaml:"error"`
	Performance float64 `yaml:"performance"`
	Memory      float64 `yaml:"memory"`
	Pattern     float64 `yaml:"pattern"`
}

// RiskCutoffs maps the overall score onto risk levels.
type RiskCutoffs struct {
	Warning  float64 `yaml:"warning"`
	Alert    float64 `yaml:"alert"`
	Critical float64 `yaml:"critical"`
}

// SignalThresholds controls pattern-anomaly expectations and the
// detected-pattern tag cutoffs.
type SignalThresholds struct {
	ExpectedErrorRatio  float64 `yaml:"expectedErrorRatio"`
	ExpectedSlowRatio   float64 `yaml:"expectedSlowRatio"`
	SlowOperationMS     float64 `yaml:"slowOperationMS"`
	BurstWindow         int     `yaml:"burstWindow"`
	RepeatWindow        int     `yaml:"repeatWindow"`
	RepeatCount         int     `yaml:"repeatCount"`
	ErrorSpikePercent   float64 `yaml:"errorSpikePercent"`
	HighMemoryMB        float64 `yaml:"highMemoryMB"`
	SlowResponseMS      float64 `yaml:"slowResponseMS"`
	CascadeErrorPercent float64 `yaml:"cascadeErrorPercent"`
	CascadeLatencyMS    float64 `yaml:"cascadeLatencyMS"`
}

// AdaptiveConfig tunes pattern synthesis.
type AdaptiveConfig struct {
	LogCapacity        int           `yaml:"logCapacity"`
	PatternCapacity    int           `yaml:"patternCapacity"`
	MinEvidence        int           `yaml:"minEvidence"`
	SynthesisThreshold float64       `yaml:"synthesisThreshold"`
	RecentWindow       time.Duration `yaml:"recentWindow"`
}

// HealerConfig controls rule-pack loading for the auto-healer.
type HealerConfig struct {
	RulesPath      string `yaml:"rulesPath"`
	HistoryCapacity int   `yaml:"historyCapacity"`
}

// NotifyConfig controls alert fan-out.
type NotifyConfig struct {
	ChannelTimeout time.Duration `yaml:"channelTimeout"`
}

// ReportConfig controls daily-report caching.
type ReportConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// IntervalsConfig sets the cadence of the periodic tasks.
type IntervalsConfig struct {
	Snapshot time.Duration `yaml:"snapshot"`
	Adaptive time.Duration `yaml:"adaptive"`
	Healing  time.Duration `yaml:"healing"`
	Report   time.Duration `yaml:"report"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_SENTINEL_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	cfg.normalize()
	return &cfg, nil
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8480",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Ingest:  IngestConfig{WindowSize: 1000},
		Detector: DetectorConfig{
			BaselineSize:      50,
			HistorySize:       200,
			MinBaseline:       5,
			SaturationStdDevs: 4,
			Weights: WeightsConfig{
				Error:       0.35,
				Performance: 0.30,
				Memory:      0.20,
				Pattern:     0.15,
			},
			Risk: RiskCutoffs{Warning: 0.5, Alert: 0.7, Critical: 0.9},
			Signals: SignalThresholds{
				ExpectedErrorRatio:  0.02,
				ExpectedSlowRatio:   0.05,
				SlowOperationMS:     1000,
				BurstWindow:         100,
				RepeatWindow:        50,
				RepeatCount:         3,
				ErrorSpikePercent:   5,
				HighMemoryMB:        512,
				SlowResponseMS:      200,
				CascadeErrorPercent: 2,
				CascadeLatencyMS:    100,
			},
		},
		Adaptive: AdaptiveConfig{
			LogCapacity:        500,
			PatternCapacity:    200,
			MinEvidence:        3,
			SynthesisThreshold: 0.6,
			RecentWindow:       24 * time.Hour,
		},
		Healer: HealerConfig{
			RulesPath:       "configs/rules/default.yaml",
			HistoryCapacity: 100,
		},
		Notify: NotifyConfig{ChannelTimeout: 5 * time.Second},
		Report: ReportConfig{TTL: 5 * time.Minute},
		Intervals: IntervalsConfig{
			Snapshot: 60 * time.Second,
			Adaptive: 30 * time.Second,
			Healing:  60 * time.Second,
			Report:   10 * time.Minute,
		},
	}
}

// normalize keeps degenerate configs from producing invalid scores.
func (c *Config) normalize() {
	if c.Ingest.WindowSize <= 0 {
		c.Ingest.WindowSize = 1000
	}
	d := &c.Detector
	if d.BaselineSize <= 0 {
		d.BaselineSize = 50
	}
	if d.HistorySize <= 0 {
		d.HistorySize = 200
	}
	if d.MinBaseline <= 0 {
		d.MinBaseline = 5
	}
	if d.SaturationStdDevs <= 0 {
		d.SaturationStdDevs = 4
	}
	w := &d.Weights
	if w.Error+w.Performance+w.Memory+w.Pattern <= 0 {
		*w = Default().Detector.Weights
	}
	if c.Adaptive.MinEvidence <= 0 {
		c.Adaptive.MinEvidence = 3
	}
	if c.Adaptive.SynthesisThreshold <= 0 {
		c.Adaptive.SynthesisThreshold = 0.6
	}
	if c.Notify.ChannelTimeout <= 0 {
		c.Notify.ChannelTimeout = 5 * time.Second
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_SENTINEL_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_SENTINEL_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_SENTINEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_SENTINEL_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_SENTINEL_RULES_PATH"); v != "" {
		cfg.Healer.RulesPath = v
	}
	if v := os.Getenv("MIRADOR_SENTINEL_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ingest.WindowSize = n
		}
	}
	if v := os.Getenv("MIRADOR_SENTINEL_SNAPSHOT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Intervals.Snapshot = d
		}
	}
	if v := os.Getenv("MIRADOR_SENTINEL_ADAPTIVE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Intervals.Adaptive = d
		}
	}
	if v := os.Getenv("MIRADOR_SENTINEL_HEALING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Intervals.Healing = d
		}
	}
	if v := os.Getenv("MIRADOR_SENTINEL_NOTIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Notify.ChannelTimeout = d
		}
	}
	if v := os.Getenv("MIRADOR_SENTINEL_DISABLE_HEALER"); strings.EqualFold(v, "true") || v == "1" {
		cfg.Healer.RulesPath = ""
	}
}
