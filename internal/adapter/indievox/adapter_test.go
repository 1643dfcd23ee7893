package indievox

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"EventSync/internal/config"
	"EventSync/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listPage = `<html><body>
<div class="list">
  <a href="/activity/detail/26_iv0a1b2c3"><img src="/images/thumb1.jpg"><h5>Legacy 冬季巡演</h5><span class="date">2026/12/20 (六)</span></a>
  <a href="/activity/detail/26_iv0a1b2c3">重複連結</a>
  <a href="https://www.indievox.com/activity/detail/26_iv9z8y7x6">  Revolver
     周末派對 </a>
  <a href="/activity/list?page=2">下一頁</a>
</div>
</body></html>`

const detailPage = `<html><head>
<meta property="og:image" content="https://static.indievox.com/poster/26_iv0a1b2c3.jpg">
</head><body>
<div class="tab-pane active"><p>演出場地：Legacy Taipei</p>
<p>票價 NT$1,200</p></div>
</body></html>`

const bareDetailPage = `<html><body>
<div class="event-poster"><img src="/upload/poster.png"></div>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/activity/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, listPage)
	})
	mux.HandleFunc("/activity/detail/26_iv0a1b2c3", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, detailPage)
	})
	mux.HandleFunc("/activity/detail/bare", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, bareDetailPage)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestCollector(t *testing.T, baseURL string) *Collector {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(&config.SourceConfig{BaseURL: baseURL, Timeout: 5, DefaultCategory: "live_music"}, logger).(*Collector)
}

func TestDiscover(t *testing.T) {
	srv := newTestServer(t)
	c := newTestCollector(t, srv.URL)

	items, err := c.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "26_iv0a1b2c3", items[0].SourceID)
	assert.Equal(t, "Legacy 冬季巡演", items[0].Title)
	assert.Equal(t, srv.URL+"/activity/detail/26_iv0a1b2c3", items[0].URL)
	assert.Equal(t, srv.URL+"/images/thumb1.jpg", items[0].ImageURL)
	assert.Equal(t, "2026/12/20 (六)", items[0].Date)

	assert.Equal(t, "26_iv9z8y7x6", items[1].SourceID)
	assert.Equal(t, "Revolver 周末派對", items[1].Title)
}

func TestDiscover_ListUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestCollector(t, srv.URL).Discover(context.Background())
	assert.Error(t, err)
}

func TestFetchDetail_OpenGraphImage(t *testing.T) {
	srv := newTestServer(t)
	c := newTestCollector(t, srv.URL)
	item := &model.ListingItem{
		SourceID: "26_iv0a1b2c3",
		Title:    "Legacy 冬季巡演",
		URL:      srv.URL + "/activity/detail/26_iv0a1b2c3",
		ImageURL: srv.URL + "/images/thumb1.jpg",
	}

	raw, err := c.FetchDetail(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, "演出場地：Legacy Taipei 票價 NT$1,200", raw.Description)
	assert.Equal(t, raw.Description, raw.Body)
	assert.Equal(t, "https://static.indievox.com/poster/26_iv0a1b2c3.jpg", raw.ImageURL)
	require.Len(t, raw.Images, 1)
	assert.Equal(t, model.ImageTypeCover, raw.Images[0].Type)
}

func TestFetchDetail_FallbacksToPosterAndTitle(t *testing.T) {
	srv := newTestServer(t)
	c := newTestCollector(t, srv.URL)
	item := &model.ListingItem{SourceID: "bare", Title: "只有標題", URL: srv.URL + "/activity/detail/bare"}

	raw, err := c.FetchDetail(context.Background(), item)
	require.NoError(t, err)
	assert.Equal(t, "只有標題", raw.Description)
	assert.Equal(t, srv.URL+"/upload/poster.png", raw.ImageURL)
}

func TestBuildCandidate(t *testing.T) {
	c := newTestCollector(t, "https://www.indievox.com")
	raw := &model.RawListing{
		Item:        &model.ListingItem{SourceID: "26_iv0a1b2c3", URL: "https://www.indievox.com/activity/detail/26_iv0a1b2c3"},
		SourceID:    "26_iv0a1b2c3",
		Title:       "Legacy 冬季巡演",
		Description: "演出場地：Legacy Taipei",
		ImageURL:    "https://static.indievox.com/poster.jpg",
	}
	fields := &model.PartialEventFields{
		Venue:           model.UnconfirmedVenue(),
		Category:        model.CategoryOther,
		CategoryGuessed: true,
	}

	cand := c.BuildCandidate(raw, fields)
	require.NotNil(t, cand)
	assert.Equal(t, model.SourceIndievox, cand.Source)
	assert.Equal(t, model.CategoryLiveMusic, cand.Category)
	assert.Equal(t, []string{"indievox", "taiwan", "live"}, cand.Tags)
	assert.Equal(t, "iNDIEVOX", cand.Organizer.Name)
	assert.Equal(t, "iNDIEVOX", cand.Ticketing.TicketPlatform)
	require.Len(t, cand.Images, 1)
	assert.Equal(t, "https://static.indievox.com/poster.jpg", cand.Images[0].URL)

	// 模型给出分类时不使用来源默认值
	fields.Category = model.CategoryConcert
	fields.CategoryGuessed = false
	assert.Equal(t, model.CategoryConcert, c.BuildCandidate(raw, fields).Category)
}
