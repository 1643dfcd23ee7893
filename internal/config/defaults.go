package config

import (
	"time"

	"github.com/spf13/viper"
)

// 来源名称，与 model.SourceType 取值一致
const (
	SourceKKTIX    = "kktix"
	SourceIndievox = "indievox"
	SourceAccupass = "accupass"
)

const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// KKTIX 上的音乐相关组织
var defaultKKTIXOrganizations = []string{
	"streetvoice",
	"thewall",
	"legacy",
	"riverside",
	"bluenote",
	"eslite",
	"indievox",
	"ticketplus",
	"musicmatters",
	"taipeiarena",
	"ticc",
}

// Accupass 音乐相关搜索关键字
var defaultAccupassQueries = []string{
	"演唱會", "音樂會", "音樂節", "live house", "live music",
	"搖滾", "流行音樂", "獨立音樂", "民謠", "爵士",
	"DJ", "電子音樂", "EDM", "techno", "house music",
	"嘉年華", "跨年", "春天吶喊", "貢寮",
	"古典音樂", "交響樂", "室內樂", "歌劇",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("sync.enabled_sources", []string{SourceKKTIX, SourceIndievox, SourceAccupass})
	v.SetDefault("sync.run_timeout", 2*time.Hour)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 60)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_content", 3000)
	v.SetDefault("llm.json_mode", true)

	v.SetDefault("geocoding.enabled", false)
	v.SetDefault("geocoding.base_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocoding.user_agent", "EventSync-Scraper/1.0")
	v.SetDefault("geocoding.country_code", "tw")
	v.SetDefault("geocoding.timeout", 5)
	v.SetDefault("geocoding.delay_ms", 1000)

	q := DefaultQuality()
	v.SetDefault("quality.title", q.Title)
	v.SetDefault("quality.description", q.Description)
	v.SetDefault("quality.start_date", q.StartDate)
	v.SetDefault("quality.venue_known", q.VenueKnown)
	v.SetDefault("quality.coordinates", q.Coordinates)
	v.SetDefault("quality.price", q.Price)
	v.SetDefault("quality.image", q.Image)
	v.SetDefault("quality.lineup", q.Lineup)
	v.SetDefault("quality.genre", q.Genre)
	v.SetDefault("quality.category_known", q.CategoryKnown)
}

// DefaultQuality 每项10分，十项满分100
func DefaultQuality() QualityConfig {
	return QualityConfig{
		Title:         10,
		Description:   10,
		StartDate:     10,
		VenueKnown:    10,
		Coordinates:   10,
		Price:         10,
		Image:         10,
		Lineup:        10,
		Genre:         10,
		CategoryKnown: 10,
	}
}

// DefaultSources 三个内置来源的默认配置
func DefaultSources() map[string]SourceConfig {
	return map[string]SourceConfig{
		SourceKKTIX: {
			BaseURL:                "https://%s.kktix.cc/events.atom?locale=zh-TW",
			Timeout:                10,
			RetryCount:             1,
			UserAgent:              "EventSync Event Scraper/1.0",
			DiscoverDelayMs:        1000,
			MaxItems:               30,
			Concurrency:            1,
			MaxConsecutiveFailures: 5,
			Organizations:          append([]string(nil), defaultKKTIXOrganizations...),
			DefaultCategory:        "other",
		},
		SourceIndievox: {
			BaseURL:                "https://www.indievox.com",
			Timeout:                15,
			RetryCount:             2,
			UserAgent:              browserUserAgent,
			RequestDelayMs:         1500,
			MaxItems:               20,
			Concurrency:            1,
			MaxConsecutiveFailures: 5,
			DefaultCategory:        "live_music",
		},
		SourceAccupass: {
			BaseURL:                "https://www.accupass.com",
			Timeout:                15,
			RetryCount:             2,
			UserAgent:              browserUserAgent,
			RequestDelayMs:         1500,
			DiscoverDelayMs:        2000,
			MaxItems:               30,
			Concurrency:            1,
			MaxConsecutiveFailures: 5,
			Queries:                append([]string(nil), defaultAccupassQueries...),
			DefaultCategory:        "other",
		},
	}
}

// mergeSource yaml 中未填写（零值）的字段使用默认值
// 重试次数与延迟允许显式写 0 关闭，只有未出现时才取默认
func mergeSource(sc, def SourceConfig, isSet func(key string) bool) SourceConfig {
	if sc.BaseURL == "" {
		sc.BaseURL = def.BaseURL
	}
	if sc.Timeout <= 0 {
		sc.Timeout = def.Timeout
	}
	if sc.RetryCount < 0 || (sc.RetryCount == 0 && !isSet("retry_count")) {
		sc.RetryCount = def.RetryCount
	}
	if sc.UserAgent == "" {
		sc.UserAgent = def.UserAgent
	}
	if sc.RequestDelayMs < 0 || (sc.RequestDelayMs == 0 && !isSet("request_delay_ms")) {
		sc.RequestDelayMs = def.RequestDelayMs
	}
	if sc.DiscoverDelayMs < 0 || (sc.DiscoverDelayMs == 0 && !isSet("discover_delay_ms")) {
		sc.DiscoverDelayMs = def.DiscoverDelayMs
	}
	if sc.MaxItems <= 0 {
		sc.MaxItems = def.MaxItems
	}
	if sc.Concurrency <= 0 {
		sc.Concurrency = def.Concurrency
	}
	if sc.MaxConsecutiveFailures <= 0 {
		sc.MaxConsecutiveFailures = def.MaxConsecutiveFailures
	}
	if len(sc.Organizations) == 0 {
		sc.Organizations = def.Organizations
	}
	if len(sc.Queries) == 0 {
		sc.Queries = def.Queries
	}
	if sc.DefaultCategory == "" {
		sc.DefaultCategory = def.DefaultCategory
	}
	return sc
}
