package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const defaultGeocodeCity = "台灣"

// Query 批量地理编码的一项
type Query struct {
	Name    string
	Address string
	City    string
}

// Geocoder Nominatim 兼容的外部地理编码，缓存优先，外部调用之间固定间隔
type Geocoder struct {
	client      *http.Client
	baseURL     string
	countryCode string
	userAgent   string
	limiter     *rate.Limiter
	cache       *GeocodeCache
	logger      *logrus.Logger
}

// NewGeocoder cache 为 nil 时自建一个
func NewGeocoder(cfg *config.GeocodingConfig, cache *GeocodeCache, logger *logrus.Logger) *Geocoder {
	if cache == nil {
		cache = NewGeocodeCache()
	}
	delay := time.Duration(cfg.DelayMs) * time.Millisecond
	if delay <= 0 {
		delay = time.Second
	}
	return &Geocoder{
		client: httpclient.NewHTTPClient(httpclient.Options{
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
			Proxy:     cfg.Proxy,
			UserAgent: cfg.UserAgent,
		}, logger),
		baseURL:     cfg.BaseURL,
		countryCode: cfg.CountryCode,
		userAgent:   cfg.UserAgent,
		limiter:     rate.NewLimiter(rate.Every(delay), 1),
		cache:       cache,
		logger:      logger,
	}
}

// Cache 暴露缓存以便统计/清空
func (g *Geocoder) Cache() *GeocodeCache {
	return g.cache
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// GeocodeAddress 任何失败都返回 nil，调用方回退到默认坐标
func (g *Geocoder) GeocodeAddress(ctx context.Context, name, address, city string) *GeocodeResult {
	if name == "" && address == "" {
		return nil
	}
	if city == "" {
		city = defaultGeocodeCity
	}
	key := CacheKey(name, address, city)
	if res, ok := g.cache.Get(key); ok {
		g.logger.WithField("venue", name).Debug("命中地理编码缓存")
		return &res
	}

	res, err := g.lookup(ctx, name, address, city)
	if err != nil {
		g.logger.WithError(err).WithField("venue", name).Warn("地理编码失败")
		return nil
	}
	if res == nil {
		g.logger.WithField("venue", name).Info("地理编码无结果")
		return nil
	}
	stored := g.cache.Put(key, *res)
	return &stored
}

func (g *Geocoder) lookup(ctx context.Context, name, address, city string) (*GeocodeResult, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("等待限速失败: %w", err)
	}

	q := fmt.Sprintf("%s, %s", name, city)
	if address != "" {
		q = fmt.Sprintf("%s, %s, %s", name, address, city)
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("format", "json")
	params.Set("limit", "1")
	if g.countryCode != "" {
		params.Set("countrycodes", g.countryCode)
	}

	headers := map[string]string{}
	if g.userAgent != "" {
		headers["User-Agent"] = g.userAgent
	}
	body, err := httpclient.GetBody(ctx, g.client, g.baseURL+"?"+params.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("解析地理编码响应失败: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("纬度非法(%s): %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("经度非法(%s): %w", places[0].Lon, err)
	}

	display := places[0].DisplayName
	if display == "" {
		display = address
	}
	if display == "" {
		display = name
	}
	return &GeocodeResult{Latitude: lat, Longitude: lon, City: city, Address: display}, nil
}

// GeocodeMany 顺序批量编码，按场地名返回命中的结果
func (g *Geocoder) GeocodeMany(ctx context.Context, queries []Query) map[string]GeocodeResult {
	out := make(map[string]GeocodeResult, len(queries))
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		if res := g.GeocodeAddress(ctx, q.Name, q.Address, q.City); res != nil {
			out[q.Name] = *res
		}
	}
	return out
}
