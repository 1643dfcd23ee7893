package kktix

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"EventSync/internal/adapter"
	"EventSync/internal/config"
	"EventSync/internal/interfaces"
	"EventSync/internal/model"
	"EventSync/internal/utils/httpclient"

	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"
)

const platformName = "KKTIX"

var eventIDPattern = regexp.MustCompile(`/events/([^/?#]+)`)

func init() {
	adapter.Register(model.SourceKKTIX, New)
}

// Collector 按组织拉取 KKTIX Atom feed；feed 条目自带正文，详情阶段不再请求
type Collector struct {
	cfg    *config.SourceConfig
	client *http.Client
	parser *gofeed.Parser
	logger *logrus.Logger
}

func New(cfg *config.SourceConfig, logger *logrus.Logger) interfaces.SourceCollector {
	return &Collector{
		cfg:    cfg,
		client: httpclient.NewHTTPClient(httpclient.OptionsFromSource(cfg), logger),
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

func (c *Collector) GetName() string             { return platformName }
func (c *Collector) GetSource() model.SourceType { return model.SourceKKTIX }

// FeedURL 组织的 feed 地址
func (c *Collector) FeedURL(org string) string {
	if strings.Contains(c.cfg.BaseURL, "%s") {
		return fmt.Sprintf(c.cfg.BaseURL, org)
	}
	return strings.TrimSuffix(c.cfg.BaseURL, "/") + "/" + org + "/events.atom?locale=zh-TW"
}

// Discover 逐个组织拉取 feed，单个组织失败只记录日志；全部失败时返回错误
func (c *Collector) Discover(ctx context.Context) ([]*model.ListingItem, error) {
	var (
		items  []*model.ListingItem
		seen   = map[string]struct{}{}
		failed int
	)
	for i, org := range c.cfg.Organizations {
		if i > 0 {
			if err := adapter.SleepContext(ctx, c.cfg.DiscoverDelay()); err != nil {
				return items, err
			}
		}
		log := c.logger.WithFields(logrus.Fields{"source": model.SourceKKTIX, "organization": org})

		feed, err := c.fetchFeed(ctx, org)
		if err != nil {
			failed++
			log.WithError(err).Warn("拉取组织feed失败，跳过")
			continue
		}

		count := 0
		for _, entry := range feed.Items {
			item := toListingItem(entry, org)
			if item == nil {
				continue
			}
			if _, dup := seen[item.SourceID]; dup {
				continue
			}
			seen[item.SourceID] = struct{}{}
			items = append(items, item)
			count++
		}
		log.WithField("count", count).Info("组织feed解析完成")
	}

	if failed > 0 && failed == len(c.cfg.Organizations) {
		return nil, fmt.Errorf("全部%d个组织feed拉取失败", failed)
	}
	return items, nil
}

func (c *Collector) fetchFeed(ctx context.Context, org string) (*gofeed.Feed, error) {
	body, err := httpclient.GetBody(ctx, c.client, c.FeedURL(org), map[string]string{
		"Accept": "application/atom+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, err
	}
	feed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("解析feed失败: %w", err)
	}
	return feed, nil
}

func toListingItem(entry *gofeed.Item, org string) *model.ListingItem {
	if entry == nil {
		return nil
	}
	link := entry.Link
	if link == "" && len(entry.Links) > 0 {
		link = entry.Links[0]
	}
	m := eventIDPattern.FindStringSubmatch(link)
	if m == nil {
		return nil
	}
	var date string
	if entry.PublishedParsed != nil {
		date = entry.PublishedParsed.Format(time.RFC3339)
	}
	return &model.ListingItem{
		SourceID: m[1],
		Title:    strings.TrimSpace(entry.Title),
		URL:      link,
		Date:     date,
		OrgID:    org,
		Data:     entry,
	}
}

// FetchDetail feed 条目内容即详情
func (c *Collector) FetchDetail(_ context.Context, item *model.ListingItem) (*model.RawListing, error) {
	entry, ok := item.Data.(*gofeed.Item)
	if !ok || entry == nil {
		return nil, fmt.Errorf("KKTIX条目缺少feed内容: %s", item.URL)
	}

	contentHTML := entry.Content
	if contentHTML == "" {
		contentHTML = entry.Description
	}
	text := adapter.StripHTML(contentHTML)

	author := ""
	if entry.Author != nil {
		author = entry.Author.Name
	} else if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		author = entry.Authors[0].Name
	}

	return &model.RawListing{
		Item:            item,
		SourceID:        item.SourceID,
		Title:           item.Title,
		Body:            text,
		Description:     text,
		DescriptionHTML: contentHTML,
		Summary:         adapter.StripHTML(entry.Description),
		Images:          adapter.ExtractImages(contentHTML),
		Author:          author,
		PublishedAt:     item.Date,
	}, nil
}

func (c *Collector) BuildCandidate(raw *model.RawListing, fields *model.PartialEventFields) *model.EventCandidate {
	orgID := ""
	if raw.Item != nil {
		orgID = raw.Item.OrgID
	}
	organizer := model.Organizer{Name: raw.Author, OrganizationID: orgID}
	if organizer.Name == "" {
		organizer.Name = orgID
	}
	return adapter.BuildCandidate(raw, fields, adapter.CandidateOptions{
		Source:          model.SourceKKTIX,
		Platform:        platformName,
		DefaultCategory: adapter.DefaultCategory(c.cfg),
		Tags:            []string{},
		Organizer:       organizer,
	})
}
