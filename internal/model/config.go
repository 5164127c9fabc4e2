package model

import (
	"fmt"
	"strings"
	"time"
)

// Config is the process-wide slopwatch configuration.
// It is validated once at startup and never mutated after the engine starts.
type Config struct {
	ProjectPath      string        `yaml:"project_path" mapstructure:"project_path"`
	AnalysisWindow   time.Duration `yaml:"analysis_window" mapstructure:"analysis_window"` // Correlation window
	AutoAnalyze      bool          `yaml:"auto_analyze" mapstructure:"auto_analyze"`
	EnabledDetectors []string      `yaml:"enabled_detectors" mapstructure:"enabled_detectors"` // Ordered; first match wins

	Include []string `yaml:"include" mapstructure:"include"`
	Exclude []string `yaml:"exclude" mapstructure:"exclude"`

	Debounce        time.Duration `yaml:"debounce" mapstructure:"debounce"`
	SettleDelay     time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`           // Re-arm delay after a related change
	MaxInitialDelay time.Duration `yaml:"max_initial_delay" mapstructure:"max_initial_delay"` // Cap for window/3
	SweepInterval   time.Duration `yaml:"sweep_interval" mapstructure:"sweep_interval"`
	DetectorTimeout time.Duration `yaml:"detector_timeout" mapstructure:"detector_timeout"`
	QueueSize       int           `yaml:"queue_size" mapstructure:"queue_size"`   // Engine inbound queue
	BufferSize      int           `yaml:"buffer_size" mapstructure:"buffer_size"` // Max buffered changes
	ScoreWindow     time.Duration `yaml:"score_window" mapstructure:"score_window"`
	Retention       time.Duration `yaml:"retention" mapstructure:"retention"`

	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Forward    ForwardConfig    `yaml:"forward" mapstructure:"forward"`
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// StoreConfig selects where verdicts are kept
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory, sqlite
	Path   string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// ForwardConfig configures fire-and-forget delivery to an external collaborator
type ForwardConfig struct {
	URL     string  `yaml:"url" mapstructure:"url"`     // Empty disables forwarding
	Proxy   string  `yaml:"proxy" mapstructure:"proxy"` // Empty uses HTTP(S)_PROXY from the environment
	Rate    float64 `yaml:"rate" mapstructure:"rate"`
	Burst   int     `yaml:"burst" mapstructure:"burst"`
	Workers int     `yaml:"workers" mapstructure:"workers"`
	Queue   int     `yaml:"queue" mapstructure:"queue"`
}

// ThresholdsConfig holds the tuned confidence constants used by extraction and detection
type ThresholdsConfig struct {
	MinClaimConfidence    float64 `yaml:"min_claim_confidence" mapstructure:"min_claim_confidence"`
	AgreementBoost        float64 `yaml:"agreement_boost" mapstructure:"agreement_boost"`
	ProximityWindow       int     `yaml:"proximity_window" mapstructure:"proximity_window"`
	LieConfidence         float64 `yaml:"lie_confidence" mapstructure:"lie_confidence"`
	PlaceholderConfidence float64 `yaml:"placeholder_confidence" mapstructure:"placeholder_confidence"`
	PartialConfidence     float64 `yaml:"partial_confidence" mapstructure:"partial_confidence"`
	VerifiedBase          float64 `yaml:"verified_base" mapstructure:"verified_base"`
	WeightScale           float64 `yaml:"weight_scale" mapstructure:"weight_scale"`
	MaxConfidence         float64 `yaml:"max_confidence" mapstructure:"max_confidence"`
	OffCategoryPenalty    float64 `yaml:"off_category_penalty" mapstructure:"off_category_penalty"`
	FileChangeWeight      float64 `yaml:"file_change_weight" mapstructure:"file_change_weight"` // Generic detector: share of score from touched files
	KeywordWeight         float64 `yaml:"keyword_weight" mapstructure:"keyword_weight"`         // Generic detector: share from target keywords
	PassCutoff            float64 `yaml:"pass_cutoff" mapstructure:"pass_cutoff"`
}

// DefaultThresholds returns the built-in confidence constants
func DefaultThresholds() ThresholdsConfig {
	return ThresholdsConfig{
		MinClaimConfidence:    0.3,
		AgreementBoost:        0.1,
		ProximityWindow:       20,
		LieConfidence:         0.85,
		PlaceholderConfidence: 0.78,
		PartialConfidence:     0.55,
		VerifiedBase:          0.6,
		WeightScale:           0.5,
		MaxConfidence:         0.95,
		OffCategoryPenalty:    0.1,
		FileChangeWeight:      0.6,
		KeywordWeight:         0.4,
		PassCutoff:            0.6,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	detectors := make([]string, len(Domains))
	for i, d := range Domains {
		detectors[i] = string(d)
	}

	return &Config{
		ProjectPath:      ".",
		AnalysisWindow:   30 * time.Second,
		AutoAnalyze:      true,
		EnabledDetectors: detectors,
		Include:          []string{},
		Exclude:          []string{},
		Debounce:         300 * time.Millisecond,
		SettleDelay:      2 * time.Second,
		MaxInitialDelay:  10 * time.Second,
		SweepInterval:    60 * time.Second,
		DetectorTimeout:  250 * time.Millisecond,
		QueueSize:        256,
		BufferSize:       1024,
		ScoreWindow:      time.Hour,
		Retention:        7 * 24 * time.Hour,
		Store: StoreConfig{
			Driver: "memory",
			Path:   "~/.slopwatch/slopwatch.db",
		},
		Server: ServerConfig{
			Listen: "127.0.0.1:7433",
		},
		Forward: ForwardConfig{
			Rate:    5,
			Burst:   10,
			Workers: 2,
			Queue:   128,
		},
		Thresholds: DefaultThresholds(),
		LogLevel:   "info",
	}
}

// InitialDelay is the deferred-evaluation delay armed when a claim arrives: min(window/3, MaxInitialDelay)
func (c *Config) InitialDelay() time.Duration {
	d := c.AnalysisWindow / 3
	if c.MaxInitialDelay > 0 && d > c.MaxInitialDelay {
		d = c.MaxInitialDelay
	}
	return d
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration; it is only ever called at initialization
func (c *Config) Validate() error {
	durations := []struct {
		field string
		value time.Duration
	}{
		{"analysis_window", c.AnalysisWindow},
		{"debounce", c.Debounce},
		{"settle_delay", c.SettleDelay},
		{"max_initial_delay", c.MaxInitialDelay},
		{"sweep_interval", c.SweepInterval},
		{"detector_timeout", c.DetectorTimeout},
		{"score_window", c.ScoreWindow},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return &ConfigError{Field: d.field, Reason: "must be positive"}
		}
	}
	if c.QueueSize <= 0 {
		return &ConfigError{Field: "queue_size", Reason: "must be positive"}
	}
	if c.BufferSize <= 0 {
		return &ConfigError{Field: "buffer_size", Reason: "must be positive"}
	}
	if c.Retention < 0 {
		return &ConfigError{Field: "retention", Reason: "must not be negative"}
	}

	if len(c.EnabledDetectors) == 0 {
		return &ConfigError{Field: "enabled_detectors", Reason: "at least one detector required"}
	}
	for _, name := range c.EnabledDetectors {
		if !knownDomain(name) {
			return &ConfigError{Field: "enabled_detectors", Reason: fmt.Sprintf("unknown detector %q", name)}
		}
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			return &ConfigError{Field: "store.path", Reason: "required for sqlite driver"}
		}
	default:
		return &ConfigError{Field: "store.driver", Reason: fmt.Sprintf("unknown driver %q", c.Store.Driver)}
	}

	return c.Thresholds.validate()
}

func (t ThresholdsConfig) validate() error {
	unit := []struct {
		field string
		value float64
	}{
		{"thresholds.min_claim_confidence", t.MinClaimConfidence},
		{"thresholds.agreement_boost", t.AgreementBoost},
		{"thresholds.lie_confidence", t.LieConfidence},
		{"thresholds.placeholder_confidence", t.PlaceholderConfidence},
		{"thresholds.partial_confidence", t.PartialConfidence},
		{"thresholds.verified_base", t.VerifiedBase},
		{"thresholds.weight_scale", t.WeightScale},
		{"thresholds.max_confidence", t.MaxConfidence},
		{"thresholds.off_category_penalty", t.OffCategoryPenalty},
		{"thresholds.file_change_weight", t.FileChangeWeight},
		{"thresholds.keyword_weight", t.KeywordWeight},
		{"thresholds.pass_cutoff", t.PassCutoff},
	}
	for _, u := range unit {
		if u.value < 0 || u.value > 1 {
			return &ConfigError{Field: u.field, Reason: "must be within [0,1]"}
		}
	}
	if t.ProximityWindow <= 0 {
		return &ConfigError{Field: "thresholds.proximity_window", Reason: "must be positive"}
	}
	return nil
}

func knownDomain(name string) bool {
	for _, d := range Domains {
		if string(d) == name {
			return true
		}
	}
	return false
}
