package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrConfigInvalid 启动期配置缺失/非法，整次运行直接失败
var ErrConfigInvalid = errors.New("配置不合法")

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig            `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig          `mapstructure:"database"`  // PostgreSQL配置
	Log       LogConfig               `mapstructure:"log"`       // 日志配置
	Sync      SyncConfig              `mapstructure:"sync"`      // 采集调度配置
	LLM       LLMConfig               `mapstructure:"llm"`       // 字段抽取所用大模型
	Geocoding GeocodingConfig         `mapstructure:"geocoding"` // 外部地理编码
	Quality   QualityConfig           `mapstructure:"quality"`   // 质量评分权重
	Sources   map[string]SourceConfig `mapstructure:"sources"`   // 各票务来源独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（URL形式）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogSQL          bool          `mapstructure:"log_sql"`           // 是否打印SQL
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug/info/warn/error
	Format string `mapstructure:"format"` // text/json
}

// SyncConfig 采集调度配置
type SyncConfig struct {
	EnabledSources []string      `mapstructure:"enabled_sources"` // 启用的来源列表，按此顺序执行
	RunTimeout     time.Duration `mapstructure:"run_timeout"`     // 单次全量采集超时，0表示不限制
}

// LLMConfig OpenAI兼容接口配置
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"`     // 单次调用超时（秒）
	Temperature float64 `mapstructure:"temperature"` // 抽取任务建议0
	MaxContent  int     `mapstructure:"max_content"` // 送入模型的正文最大字符数
	JSONMode    bool    `mapstructure:"json_mode"`   // 是否请求 response_format=json_object
	SystemRole  string  `mapstructure:"system_role"` // 覆盖默认system提示词
	Proxy       string  `mapstructure:"proxy"`       // 代理地址
	UserAgent   string  `mapstructure:"user_agent"`  // 自定义UA
	Degraded    bool    `mapstructure:"degraded"`    // 为true时不调用模型，直接走兜底（离线调试用）
}

// GeocodingConfig 外部地理编码配置（Nominatim 兼容）
type GeocodingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	UserAgent   string `mapstructure:"user_agent"`
	CountryCode string `mapstructure:"country_code"`
	Timeout     int    `mapstructure:"timeout"`  // 秒
	DelayMs     int    `mapstructure:"delay_ms"` // 两次外部调用之间的固定间隔
	Proxy       string `mapstructure:"proxy"`
}

// QualityConfig 质量评分各项权重，总分按100截断
type QualityConfig struct {
	Title         int `mapstructure:"title"`
	Description   int `mapstructure:"description"`
	StartDate     int `mapstructure:"start_date"`
	VenueKnown    int `mapstructure:"venue_known"`
	Coordinates   int `mapstructure:"coordinates"`
	Price         int `mapstructure:"price"`
	Image         int `mapstructure:"image"`
	Lineup        int `mapstructure:"lineup"`
	Genre         int `mapstructure:"genre"`
	CategoryKnown int `mapstructure:"category_known"`
}

// SourceConfig 单个来源的独立配置
type SourceConfig struct {
	BaseURL                string   `mapstructure:"base_url"`                 // 站点基础地址
	Timeout                int      `mapstructure:"timeout"`                  // 请求超时（秒）
	RetryCount             int      `mapstructure:"retry_count"`              // 详情页重试次数
	Proxy                  string   `mapstructure:"proxy"`                    // 代理地址
	UserAgent              string   `mapstructure:"user_agent"`               // 自定义UA
	RequestDelayMs         int      `mapstructure:"request_delay_ms"`         // 详情请求之间的固定间隔
	DiscoverDelayMs        int      `mapstructure:"discover_delay_ms"`        // 列表/搜索请求之间的固定间隔
	MaxItems               int      `mapstructure:"max_items"`                // 单次运行最多处理条数
	Concurrency            int      `mapstructure:"concurrency"`              // 详情抓取并发上限
	MaxConsecutiveFailures int      `mapstructure:"max_consecutive_failures"` // 连续失败多少次放弃该来源剩余条目
	Organizations          []string `mapstructure:"organizations"`            // KKTIX组织ID列表
	Queries                []string `mapstructure:"queries"`                  // Accupass搜索关键字
	DefaultCategory        string   `mapstructure:"default_category"`         // 模型未给出分类时的默认值
}

// RequestDelay 详情请求间隔
func (s SourceConfig) RequestDelay() time.Duration {
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// DiscoverDelay 列表请求间隔
func (s SourceConfig) DiscoverDelay() time.Duration {
	return time.Duration(s.DiscoverDelayMs) * time.Millisecond
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	setDefaults(v)

	// 2. 读取 config.yaml；EVENTSYNC_CONFIG 可指定完整路径
	if path := os.Getenv("EVENTSYNC_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(cfg)
	return cfg, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]SourceConfig{}
	}
	// 未在yaml中出现的来源补齐默认配置
	for name, def := range DefaultSources() {
		sc, ok := cfg.Sources[name]
		if !ok {
			cfg.Sources[name] = def
			continue
		}
		prefix := "sources." + name + "."
		cfg.Sources[name] = mergeSource(sc, def, func(key string) bool { return v.IsSet(prefix + key) })
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GEOCODING_USER_AGENT"); v != "" {
		cfg.Geocoding.UserAgent = v
	}
	if v := os.Getenv("SCRAPER_PROXY"); v != "" {
		for name, sc := range cfg.Sources {
			sc.Proxy = v
			cfg.Sources[name] = sc
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate 启动前校验：缺少数据库或模型凭证时无法继续
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database.dsn 为空（可用 DATABASE_DSN 设置）", ErrConfigInvalid)
	}
	if !c.LLM.Degraded && strings.TrimSpace(c.LLM.APIKey) == "" {
		return fmt.Errorf("%w: llm.api_key 为空（可用 LLM_API_KEY 设置）", ErrConfigInvalid)
	}
	if len(c.Sync.EnabledSources) == 0 {
		return fmt.Errorf("%w: sync.enabled_sources 为空", ErrConfigInvalid)
	}
	for _, name := range c.Sync.EnabledSources {
		if _, ok := c.Sources[name]; !ok {
			return fmt.Errorf("%w: 未知来源 %s", ErrConfigInvalid, name)
		}
	}
	return nil
}
