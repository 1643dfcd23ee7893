package accupass

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"EventSync/internal/adapter"
	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"
	"EventSync/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	platformName       = "Accupass"
	musicCategoryParam = "4"
	minTitleRunes      = 4
	maxTitleRunes      = 200
	maxBodyRunes       = 5000
	maxFallbackDesc    = 2000
)

var (
	eventIDPattern = regexp.MustCompile(`/event/([^/?&#]+)`)
	htmlHeaders    = map[string]string{"Accept": "text/html,application/xhtml+xml"}
)

const descriptionSelector = ".event-content, .event-description, .activity-content, article"

func init() {
	adapter.Register(model.SourceAccupass, New)
}

// Collector 关键字搜索 Accupass 音乐分类，跨关键字按活动ID去重
type Collector struct {
	cfg    *config.SourceConfig
	client *http.Client
	logger *logrus.Logger
}

func New(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceCollector {
	return &Collector{
		cfg:    cfg,
		client: httpclient.NewHTTPClient(httpclient.OptionsFromSource(cfg), logger),
		logger: logger,
	}
}

func (c *Collector) GetName() string             { return platformName }
func (c *Collector) GetSource() model.SourceType { return model.SourceAccupass }

func (c *Collector) baseURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/")
}

// SearchURL 搜索地址
func (c *Collector) SearchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("category", musicCategoryParam)
	return c.baseURL() + "/search?" + params.Encode()
}

// Discover 依次执行关键字搜索；单个关键字失败只记录日志，全部失败时返回错误
func (c *Collector) Discover(ctx context.Context) ([]*model.ListingItem, error) {
	var (
		items  []*model.ListingItem
		byID   = map[string]*model.ListingItem{}
		failed int
	)
	for i, query := range c.cfg.Queries {
		if i > 0 {
			if err := adapter.SleepContext(ctx, c.cfg.DiscoverDelay()); err != nil {
				return items, err
			}
		}
		log := c.logger.WithFields(logrus.Fields{"source": model.SourceAccupass, "query": query})

		found, err := c.search(ctx, query)
		if err != nil {
			failed++
			log.WithError(err).Warn("搜索失败，跳过该关键字")
			continue
		}
		added := 0
		for _, item := range found {
			if _, dup := byID[item.SourceID]; dup {
				continue
			}
			byID[item.SourceID] = item
			items = append(items, item)
			added++
		}
		log.WithFields(logrus.Fields{"found": len(found), "added": added}).Info("搜索完成")
	}

	if failed > 0 && failed == len(c.cfg.Queries) {
		return nil, fmt.Errorf("全部%d个关键字搜索失败", failed)
	}
	return items, nil
}

func (c *Collector) search(ctx context.Context, query string) ([]*model.ListingItem, error) {
	body, err := httpclient.GetBody(ctx, c.client, c.SearchURL(query), htmlHeaders)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}

	var items []*model.ListingItem
	seen := map[string]struct{}{}
	doc.Find(`a[href*="/event/"]`).Each(func(_ int, s *goquery.Selection) {
		m := eventIDPattern.FindStringSubmatch(s.AttrOr("href", ""))
		if m == nil {
			return
		}
		id := m[1]
		title := adapter.CollapseSpace(s.Text())
		if utf8.RuneCountInString(title) < minTitleRunes {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		items = append(items, &model.ListingItem{
			SourceID: id,
			Title:    model.TruncateRunes(title, maxTitleRunes),
			URL:      c.baseURL() + "/event/" + id,
			Tags:     []string{query},
		})
	})
	return items, nil
}

// FetchDetail 详情页；og:image -> twitter:image -> 页面图片
func (c *Collector) FetchDetail(ctx context.Context, item *model.ListingItem) (*model.RawListing, error) {
	body, err := httpclient.GetBody(ctx, c.client, item.URL, htmlHeaders)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析详情页失败: %w", err)
	}

	desc := doc.Find(descriptionSelector).First()
	descriptionHTML, _ := desc.Html()
	description := adapter.CollapseSpace(desc.Text())

	doc.Find("script, style, noscript").Remove()
	rawContent := adapter.CollapseSpace(doc.Find("body").Text())
	if description == "" {
		description = model.TruncateRunes(rawContent, maxFallbackDesc)
	}

	title := adapter.FirstAttr(doc, "content", `meta[property="og:title"]`)
	if title == "" {
		title = item.Title
	}

	imageURL := adapter.FirstAttr(doc, "content", `meta[property="og:image"]`, `meta[name="twitter:image"]`)
	if imageURL == "" {
		imageURL = adapter.FirstAttr(doc, "src",
			".event-banner img",
			".event-cover img",
			`img[alt="event-banner"]`,
			`img[src*="eventbanner"]`,
			`img[src*="static.accupass"]`,
		)
	}
	imageURL = adapter.AbsoluteURL(c.baseURL(), imageURL)

	return &model.RawListing{
		Item:            item,
		SourceID:        item.SourceID,
		Title:           title,
		Body:            model.TruncateRunes(rawContent, maxBodyRunes),
		Description:     description,
		DescriptionHTML: strings.TrimSpace(descriptionHTML),
		ImageURL:        imageURL,
		Images:          adapter.CoverImages(imageURL),
	}, nil
}

func (c *Collector) BuildCandidate(raw *model.RawListing, fields *model.PartialEventFields) *model.EventCandidate {
	tags := []string{"accupass", "taiwan"}
	if raw.Item != nil {
		tags = append(tags, raw.Item.Tags...)
	}
	return adapter.BuildCandidate(raw, fields, adapter.CandidateOptions{
		Source:          model.SourceAccupass,
		Platform:        platformName,
		DefaultCategory: adapter.DefaultCategory(c.cfg),
		Tags:            tags,
		Organizer:       model.Organizer{Name: platformName},
	})
}
