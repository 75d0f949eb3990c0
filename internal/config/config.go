package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Platform  PlatformConfig  `mapstructure:"platform"`
	Polling   PollingConfig   `mapstructure:"polling"`
	Typing    TypingConfig    `mapstructure:"typing"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// PlatformConfig uyir平台API配置（视频生成上游）
type PlatformConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PollingConfig 视频生成状态轮询策略
type PollingConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	MaxErrors int           `mapstructure:"max_errors"`
}

// TypingConfig 打字动画节奏配置
type TypingConfig struct {
	ChatTick      time.Duration `mapstructure:"chat_tick"`
	ScriptTick    time.Duration `mapstructure:"script_tick"`
	WebviewSettle time.Duration `mapstructure:"webview_settle"`
}

// KnowledgeConfig 知识库检索（外围协作方，可关闭）
type KnowledgeConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxSnippets int           `mapstructure:"max_snippets"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	DataDir   string `mapstructure:"data_dir"`
	CacheSize int    `mapstructure:"cache_size"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("UYIR")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// 配置文件优先，token缺省时回退环境变量
	if cfg.Platform.APIToken == "" {
		if token := os.Getenv("PLATFORM_API_TOKEN"); token != "" {
			cfg.Platform.APIToken = token
		}
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults 关键时序参数缺省值，保证配置文件不全时行为仍符合预期
func applyDefaults(c *Config) {
	if c.Polling.Interval <= 0 {
		c.Polling.Interval = 5 * time.Second
	}
	if c.Polling.MaxErrors <= 0 {
		c.Polling.MaxErrors = 3
	}
	if c.Typing.ChatTick <= 0 {
		c.Typing.ChatTick = 35 * time.Millisecond
	}
	if c.Typing.ScriptTick <= 0 {
		c.Typing.ScriptTick = 80 * time.Millisecond
	}
	if c.Typing.WebviewSettle <= 0 {
		c.Typing.WebviewSettle = 1500 * time.Millisecond
	}
	if c.Platform.Timeout <= 0 {
		c.Platform.Timeout = 25 * time.Second
	}
	if c.Knowledge.MaxSnippets <= 0 {
		c.Knowledge.MaxSnippets = 3
	}
}
