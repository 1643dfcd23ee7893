package indievox

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"EventSync/internal/adapter"
	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"
	"EventSync/internal/utils/httpclient"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	platformName  = "iNDIEVOX"
	listPath      = "/activity/list"
	maxTitleRunes = 200
	maxBodyRunes  = 5000
)

var (
	detailIDPattern = regexp.MustCompile(`/activity/detail/([^/?#]+)`)
	defaultTags     = []string{"indievox", "taiwan", "live"}
	htmlHeaders     = map[string]string{"Accept": "text/html,application/xhtml+xml"}
)

const descriptionSelector = ".tab-pane.active, .event-info, .activity-content, #activityInfo"

func init() {
	adapter.Register(model.SourceIndievox, New)
}

// Collector 解析 iNDIEVOX 活动列表页与详情页
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
func (c *Collector) GetSource() model.SourceType { return model.SourceIndievox }

func (c *Collector) baseURL() string {
	return strings.TrimSuffix(c.cfg.BaseURL, "/")
}

// Discover 列表页中的 /activity/detail/ 链接，按ID去重
func (c *Collector) Discover(ctx context.Context) ([]*model.ListingItem, error) {
	listURL := c.baseURL() + listPath
	body, err := httpclient.GetBody(ctx, c.client, listURL, htmlHeaders)
	if err != nil {
		return nil, fmt.Errorf("获取活动列表失败: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("解析活动列表失败: %w", err)
	}

	var items []*model.ListingItem
	seen := map[string]struct{}{}
	doc.Find(`a[href*="/activity/detail/"]`).Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		m := detailIDPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id := m[1]
		if _, dup := seen[id]; dup {
			return
		}

		title := adapter.CollapseSpace(s.Find("h5, h4, .title, .event-title").First().Text())
		if title == "" {
			title = adapter.CollapseSpace(s.Text())
		}
		if title == "" {
			return
		}
		seen[id] = struct{}{}

		items = append(items, &model.ListingItem{
			SourceID: id,
			Title:    model.TruncateRunes(title, maxTitleRunes),
			URL:      adapter.AbsoluteURL(c.baseURL(), href),
			ImageURL: adapter.AbsoluteURL(c.baseURL(), s.Find("img").First().AttrOr("src", "")),
			Date:     adapter.CollapseSpace(s.Find(".date, time, .event-date").First().Text()),
		})
	})

	c.logger.WithFields(logrus.Fields{"source": model.SourceIndievox, "count": len(items)}).Info("活动列表解析完成")
	return items, nil
}

// FetchDetail 详情页正文与封面图（og:image 优先）
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
	if description == "" {
		description = item.Title
	}

	imageURL := adapter.FirstAttr(doc, "content", `meta[property="og:image"]`)
	if imageURL == "" {
		imageURL = adapter.FirstAttr(doc, "src",
			".event-poster img",
			".activity-poster img",
			".main-image img",
			`img[src*="activity"]`,
			`img[src*="indievox.static"]`,
			`img[src*="tixcraft"]`,
		)
	}
	if imageURL == "" {
		imageURL = item.ImageURL
	}
	imageURL = adapter.AbsoluteURL(c.baseURL(), imageURL)

	return &model.RawListing{
		Item:            item,
		SourceID:        item.SourceID,
		Title:           item.Title,
		Body:            model.TruncateRunes(description, maxBodyRunes),
		Description:     description,
		DescriptionHTML: strings.TrimSpace(descriptionHTML),
		ImageURL:        imageURL,
		Images:          adapter.CoverImages(imageURL),
	}, nil
}

func (c *Collector) BuildCandidate(raw *model.RawListing, fields *model.PartialEventFields) *model.EventCandidate {
	return adapter.BuildCandidate(raw, fields, adapter.CandidateOptions{
		Source:          model.SourceIndievox,
		Platform:        platformName,
		DefaultCategory: adapter.DefaultCategory(c.cfg),
		Tags:            append([]string(nil), defaultTags...),
		Organizer:       model.Organizer{Name: platformName},
	})
}
