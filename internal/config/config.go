// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Device() DeviceConfig
	Matching() MatchingConfig
	Launch() LaunchConfig
	History() HistoryConfig
	Oracle() OracleConfig
	Embedding() EmbeddingConfig
	OCR() OCRConfig
	AppStore() AppStoreConfig
	Metrics() MetricsConfig
	Tasks() TasksConfig

	// Device setters used by CLI flags.
	SetDeviceSerial(serial string)
	SetDeviceTransport(t TransportKind)

	// Matching setters
	SetVisualSearchEnabled(bool)
}

// Config holds the entire application configuration.
// Sections are exported so viper can decode into them; callers go through the getters.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	DeviceCfg    DeviceConfig    `mapstructure:"device" yaml:"device"`
	MatchingCfg  MatchingConfig  `mapstructure:"matching" yaml:"matching"`
	LaunchCfg    LaunchConfig    `mapstructure:"launch" yaml:"launch"`
	HistoryCfg   HistoryConfig   `mapstructure:"history" yaml:"history"`
	OracleCfg    OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	EmbeddingCfg EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	OCRCfg       OCRConfig       `mapstructure:"ocr" yaml:"ocr"`
	AppStoreCfg  AppStoreConfig  `mapstructure:"appstore" yaml:"appstore"`
	MetricsCfg   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	TasksCfg     TasksConfig     `mapstructure:"tasks" yaml:"tasks"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Device() DeviceConfig       { return c.DeviceCfg }
func (c *Config) Matching() MatchingConfig   { return c.MatchingCfg }
func (c *Config) Launch() LaunchConfig       { return c.LaunchCfg }
func (c *Config) History() HistoryConfig     { return c.HistoryCfg }
func (c *Config) Oracle() OracleConfig       { return c.OracleCfg }
func (c *Config) Embedding() EmbeddingConfig { return c.EmbeddingCfg }
func (c *Config) OCR() OCRConfig             { return c.OCRCfg }
func (c *Config) AppStore() AppStoreConfig   { return c.AppStoreCfg }
func (c *Config) Metrics() MetricsConfig     { return c.MetricsCfg }
func (c *Config) Tasks() TasksConfig         { return c.TasksCfg }

func (c *Config) SetDeviceSerial(serial string)      { c.DeviceCfg.Serial = serial }
func (c *Config) SetDeviceTransport(t TransportKind) { c.DeviceCfg.Transport = t }
func (c *Config) SetVisualSearchEnabled(b bool)      { c.EmbeddingCfg.Enabled = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// TransportKind selects the device transport implementation.
type TransportKind string

const (
	TransportADB TransportKind = "adb"
	TransportCDP TransportKind = "cdp"
)

// DeviceConfig configures the device bridge and its transport.
type DeviceConfig struct {
	Transport        TransportKind `mapstructure:"transport" yaml:"transport"`
	ADBPath          string        `mapstructure:"adb_path" yaml:"adb_path"`
	Serial           string        `mapstructure:"serial" yaml:"serial"`
	WirelessEndpoint string        `mapstructure:"wireless_endpoint" yaml:"wireless_endpoint"`
	DefaultEndpoint  string        `mapstructure:"default_endpoint" yaml:"default_endpoint"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	CommandTimeout   time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	LaunchSettle     time.Duration `mapstructure:"launch_settle" yaml:"launch_settle"`
	CharDelay        time.Duration `mapstructure:"char_delay" yaml:"char_delay"`
	SwipeDuration    time.Duration `mapstructure:"swipe_duration" yaml:"swipe_duration"`
	TapJitterPx      int           `mapstructure:"tap_jitter_px" yaml:"tap_jitter_px"`
	DefaultWidth     int           `mapstructure:"default_width" yaml:"default_width"`
	DefaultHeight    int           `mapstructure:"default_height" yaml:"default_height"`
	CDP              CDPConfig     `mapstructure:"cdp" yaml:"cdp"`
}

// CDPConfig configures the Chrome DevTools transport used for mobile web targets.
type CDPConfig struct {
	StartURL  string  `mapstructure:"start_url" yaml:"start_url"`
	Headless  bool    `mapstructure:"headless" yaml:"headless"`
	Width     int     `mapstructure:"width" yaml:"width"`
	Height    int     `mapstructure:"height" yaml:"height"`
	Scale     float64 `mapstructure:"scale" yaml:"scale"`
	UserAgent string  `mapstructure:"user_agent" yaml:"user_agent"`
}

// MatchingConfig tunes text matching, region scoring and hybrid ranking.
type MatchingConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" yaml:"similarity_threshold"`
	VisualWeight        float64 `mapstructure:"visual_weight" yaml:"visual_weight"`
	OverlapBoost        float64 `mapstructure:"overlap_boost" yaml:"overlap_boost"`
	GridCols            int     `mapstructure:"grid_cols" yaml:"grid_cols"`
	GridRows            int     `mapstructure:"grid_rows" yaml:"grid_rows"`
	RegionConcurrency   int     `mapstructure:"region_concurrency" yaml:"region_concurrency"`
	SwipeFraction       float64 `mapstructure:"swipe_fraction" yaml:"swipe_fraction"`
}

// LaunchConfig drives the app launch cascade.
type LaunchConfig struct {
	VerifyTimeout   time.Duration `mapstructure:"verify_timeout" yaml:"verify_timeout"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	HomeSettle      time.Duration `mapstructure:"home_settle" yaml:"home_settle"`
	PageSettle      time.Duration `mapstructure:"page_settle" yaml:"page_settle"`
	DrawerSwipes    []float64     `mapstructure:"drawer_swipes" yaml:"drawer_swipes"`
	PageSwipe       float64       `mapstructure:"page_swipe" yaml:"page_swipe"`
	MaxPages        int           `mapstructure:"max_pages" yaml:"max_pages"`
	BottomOffset    int           `mapstructure:"bottom_offset" yaml:"bottom_offset"`
	DrawerMarkers   []string      `mapstructure:"drawer_markers" yaml:"drawer_markers"`
	SearchMarkers   []string      `mapstructure:"search_markers" yaml:"search_markers"`
	PersistOnLaunch bool          `mapstructure:"persist_on_launch" yaml:"persist_on_launch"`
}

// HistoryConfig bounds the action history ring.
type HistoryConfig struct {
	Capacity    int    `mapstructure:"capacity" yaml:"capacity"`
	RecentCount int    `mapstructure:"recent_count" yaml:"recent_count"`
	ExportPath  string `mapstructure:"export_path" yaml:"export_path"`
}

// LLMProvider defines the supported oracle backends.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderGemini LLMProvider = "gemini"
	ProviderOllama LLMProvider = "ollama"
)

// LLMModelConfig defines the configuration for a single model endpoint.
type LLMModelConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// OracleConfig configures the decision and identity oracles.
// Text prompts go to Text, prompts carrying a screenshot go to Vision.
type OracleConfig struct {
	Text       LLMModelConfig `mapstructure:"text" yaml:"text"`
	Vision     LLMModelConfig `mapstructure:"vision" yaml:"vision"`
	RateLimit  float64        `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst      int            `mapstructure:"burst" yaml:"burst"`
	MaxRetries int            `mapstructure:"max_retries" yaml:"max_retries"`
}

// EmbeddingConfig enables the optional visual-region similarity oracle.
type EmbeddingConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Provider LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model    string        `mapstructure:"model" yaml:"model"`
	APIKey   string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OCRConfig points at the text recognition service.
type OCRConfig struct {
	Endpoint      string        `mapstructure:"endpoint" yaml:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// AppStoreKind selects the backend for persisted app launch configs.
type AppStoreKind string

const (
	AppStoreFile     AppStoreKind = "file"
	AppStorePostgres AppStoreKind = "postgres"
	AppStoreRedis    AppStoreKind = "redis"
)

// AppStoreConfig configures where app launch configs are persisted.
type AppStoreConfig struct {
	Type     AppStoreKind   `mapstructure:"type" yaml:"type"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Watch    bool           `mapstructure:"watch" yaml:"watch"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
}

// PostgresConfig holds the connection details for the postgres app store.
type PostgresConfig struct {
	URL   string `mapstructure:"url" yaml:"url"`
	Table string `mapstructure:"table" yaml:"table"`
}

// RedisConfig holds the connection details for the redis app store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Password  string `mapstructure:"password" yaml:"password"`
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	Namespace  string `mapstructure:"namespace" yaml:"namespace"`
}

// TasksConfig configures batch task execution.
type TasksConfig struct {
	OutputDir     string        `mapstructure:"output_dir" yaml:"output_dir"`
	WaitAfter     time.Duration `mapstructure:"wait_after" yaml:"wait_after"`
	StopOnFailure bool          `mapstructure:"stop_on_failure" yaml:"stop_on_failure"`
	GoalMaxSteps  int           `mapstructure:"goal_max_steps" yaml:"goal_max_steps"`
	StepDelay     time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "droidpilot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Device --
	v.SetDefault("device.transport", string(TransportADB))
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.wireless_endpoint", "")
	v.SetDefault("device.default_endpoint", "127.0.0.1:16384")
	v.SetDefault("device.max_retries", 3)
	v.SetDefault("device.retry_delay", "2s")
	v.SetDefault("device.command_timeout", "20s")
	v.SetDefault("device.launch_settle", "2s")
	v.SetDefault("device.char_delay", "100ms")
	v.SetDefault("device.swipe_duration", "300ms")
	v.SetDefault("device.tap_jitter_px", 0)
	v.SetDefault("device.default_width", 1080)
	v.SetDefault("device.default_height", 2340)
	v.SetDefault("device.cdp.start_url", "about:blank")
	v.SetDefault("device.cdp.headless", true)
	v.SetDefault("device.cdp.width", 412)
	v.SetDefault("device.cdp.height", 915)
	v.SetDefault("device.cdp.scale", 2.625)
	v.SetDefault("device.cdp.user_agent", "")

	// -- Matching --
	v.SetDefault("matching.similarity_threshold", 0.6)
	v.SetDefault("matching.visual_weight", 1.2)
	v.SetDefault("matching.overlap_boost", 1.5)
	v.SetDefault("matching.grid_cols", 3)
	v.SetDefault("matching.grid_rows", 3)
	v.SetDefault("matching.region_concurrency", 4)
	v.SetDefault("matching.swipe_fraction", 0.5)

	// -- Launch --
	v.SetDefault("launch.verify_timeout", "10s")
	v.SetDefault("launch.poll_interval", "1s")
	v.SetDefault("launch.home_settle", "1500ms")
	v.SetDefault("launch.page_settle", "1s")
	v.SetDefault("launch.drawer_swipes", []float64{0.4, 0.5})
	v.SetDefault("launch.page_swipe", 0.3)
	v.SetDefault("launch.max_pages", 3)
	v.SetDefault("launch.bottom_offset", 100)
	v.SetDefault("launch.drawer_markers", []string{"应用", "Apps"})
	v.SetDefault("launch.search_markers", []string{"搜索", "Search"})
	v.SetDefault("launch.persist_on_launch", true)

	// -- History --
	v.SetDefault("history.capacity", 20)
	v.SetDefault("history.recent_count", 5)
	v.SetDefault("history.export_path", "")

	// -- Oracle --
	v.SetDefault("oracle.text.provider", string(ProviderOpenAI))
	v.SetDefault("oracle.text.model", "gpt-4o-mini")
	v.SetDefault("oracle.text.api_timeout", "60s")
	v.SetDefault("oracle.text.temperature", 0.2)
	v.SetDefault("oracle.text.max_tokens", 1024)
	v.SetDefault("oracle.vision.provider", string(ProviderOpenAI))
	v.SetDefault("oracle.vision.model", "gpt-4o")
	v.SetDefault("oracle.vision.api_timeout", "90s")
	v.SetDefault("oracle.vision.temperature", 0.1)
	v.SetDefault("oracle.vision.max_tokens", 1024)
	v.SetDefault("oracle.rate_limit", 2.0)
	v.SetDefault("oracle.burst", 2)
	v.SetDefault("oracle.max_retries", 3)

	// -- Embedding --
	v.SetDefault("embedding.enabled", false)
	v.SetDefault("embedding.provider", string(ProviderOpenAI))
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", "30s")

	// -- OCR --
	v.SetDefault("ocr.endpoint", "http://127.0.0.1:8866/predict/ocr_system")
	v.SetDefault("ocr.timeout", "30s")
	v.SetDefault("ocr.min_confidence", 0.0)
	v.SetDefault("ocr.max_retries", 2)

	// -- App store --
	v.SetDefault("appstore.type", string(AppStoreFile))
	v.SetDefault("appstore.path", "~/.droidpilot/app_packages.yaml")
	v.SetDefault("appstore.watch", true)
	v.SetDefault("appstore.postgres.table", "app_launch_configs")
	v.SetDefault("appstore.redis.addr", "127.0.0.1:6379")
	v.SetDefault("appstore.redis.db", 0)
	v.SetDefault("appstore.redis.key_prefix", "droidpilot:apps:")

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9464")
	v.SetDefault("metrics.namespace", "droidpilot")

	// -- Tasks --
	v.SetDefault("tasks.output_dir", "output")
	v.SetDefault("tasks.wait_after", "2s")
	v.SetDefault("tasks.stop_on_failure", false)
	v.SetDefault("tasks.goal_max_steps", 20)
	v.SetDefault("tasks.step_delay", "1s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("oracle.text.api_key", "DROIDPILOT_ORACLE_API_KEY")
	v.BindEnv("oracle.vision.api_key", "DROIDPILOT_ORACLE_VISION_API_KEY")
	v.BindEnv("embedding.api_key", "DROIDPILOT_EMBEDDING_API_KEY")
	v.BindEnv("appstore.postgres.url", "DROIDPILOT_APPSTORE_DSN")
	v.BindEnv("appstore.redis.password", "DROIDPILOT_REDIS_PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Fall back to the provider's conventional variables.
	cfg.OracleCfg.Text.APIKey = firstNonEmpty(cfg.OracleCfg.Text.APIKey, providerKeyFromEnv(cfg.OracleCfg.Text.Provider))
	cfg.OracleCfg.Vision.APIKey = firstNonEmpty(cfg.OracleCfg.Vision.APIKey, cfg.OracleCfg.Text.APIKey, providerKeyFromEnv(cfg.OracleCfg.Vision.Provider))
	cfg.EmbeddingCfg.APIKey = firstNonEmpty(cfg.EmbeddingCfg.APIKey, providerKeyFromEnv(cfg.EmbeddingCfg.Provider))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.DeviceCfg.Validate(); err != nil {
		return fmt.Errorf("device configuration invalid: %w", err)
	}
	if err := c.MatchingCfg.Validate(); err != nil {
		return fmt.Errorf("matching configuration invalid: %w", err)
	}
	if err := c.LaunchCfg.Validate(); err != nil {
		return fmt.Errorf("launch configuration invalid: %w", err)
	}
	if c.HistoryCfg.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be a positive integer")
	}
	switch c.AppStoreCfg.Type {
	case AppStoreFile:
		if c.AppStoreCfg.Path == "" {
			return fmt.Errorf("appstore.path is required for the file store")
		}
	case AppStorePostgres:
		if c.AppStoreCfg.Postgres.URL == "" {
			return fmt.Errorf("appstore.postgres.url is required. Ensure DROIDPILOT_APPSTORE_DSN is set")
		}
	case AppStoreRedis:
		if c.AppStoreCfg.Redis.Addr == "" {
			return fmt.Errorf("appstore.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown appstore.type %q", c.AppStoreCfg.Type)
	}
	return nil
}

// Validate checks the device settings.
func (d *DeviceConfig) Validate() error {
	switch d.Transport {
	case TransportADB, TransportCDP:
	default:
		return fmt.Errorf("unknown transport %q", d.Transport)
	}
	if d.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be a positive integer")
	}
	if d.RetryDelay < 0 || d.LaunchSettle < 0 || d.CharDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if d.TapJitterPx < 0 {
		return fmt.Errorf("tap_jitter_px must not be negative")
	}
	return nil
}

// Validate checks the matching settings.
func (m *MatchingConfig) Validate() error {
	if m.SimilarityThreshold < 0.0 || m.SimilarityThreshold > 1.0 {
		return fmt.Errorf("similarity_threshold must be between 0.0 and 1.0")
	}
	if m.GridCols <= 0 || m.GridRows <= 0 {
		return fmt.Errorf("grid_cols and grid_rows must be positive integers")
	}
	if m.RegionConcurrency <= 0 {
		return fmt.Errorf("region_concurrency must be a positive integer")
	}
	if m.SwipeFraction <= 0 || m.SwipeFraction > 1 {
		return fmt.Errorf("swipe_fraction must be in (0, 1]")
	}
	return nil
}

// Validate checks the launch cascade settings.
func (l *LaunchConfig) Validate() error {
	if l.VerifyTimeout <= 0 {
		return fmt.Errorf("verify_timeout must be a positive duration")
	}
	if l.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if l.MaxPages < 0 {
		return fmt.Errorf("max_pages must not be negative")
	}
	for _, f := range append(append([]float64{}, l.DrawerSwipes...), l.PageSwipe) {
		if f <= 0 || f > 1 {
			return fmt.Errorf("swipe fractions must be in (0, 1], got %v", f)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path %q: %w", path, err)
	}
	return expanded, nil
}

func providerKeyFromEnv(p LLMProvider) string {
	switch p {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
