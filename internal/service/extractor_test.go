package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/model"
	"EventSync/internal/venue"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply      string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeLLM) Complete(_ context.Context, _, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.reply, f.err
}

type fakeGeocoder struct {
	result *venue.GeocodeResult
	calls  int
}

func (f *fakeGeocoder) GeocodeAddress(_ context.Context, _, _, _ string) *venue.GeocodeResult {
	f.calls++
	return f.result
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestExtractor(client *fakeLLM, geo *fakeGeocoder) *FieldExtractor {
	cfg := &config.LLMConfig{MaxContent: 3000}
	var g *FieldExtractor
	if geo != nil {
		g = NewFieldExtractor(cfg, client, venue.NewResolver(), geo, logrus.New())
	} else {
		g = NewFieldExtractor(cfg, client, venue.NewResolver(), nil, logrus.New())
	}
	g.now = func() time.Time { return fixedNow }
	return g
}

func assertFallback(t *testing.T, f *model.PartialEventFields) {
	t.Helper()
	require.NotNil(t, f)
	assert.True(t, f.Degraded)
	assert.Equal(t, model.CategoryOther, f.Category)
	assert.False(t, f.Ticketing.IsFree)
	assert.Equal(t, model.TicketOnSale, f.Ticketing.Status)
	assert.Equal(t, 0.0, f.Ticketing.PriceRange.Min)
	assert.Equal(t, 0.0, f.Ticketing.PriceRange.Max)
	assert.Equal(t, model.DefaultCurrency, f.Ticketing.PriceRange.Currency)
	assert.Equal(t, model.UnconfirmedVenueName, f.Venue.Name)
	assert.Equal(t, model.DefaultLocation, f.Venue.Location)
	assert.Empty(t, f.Genres)
	assert.Empty(t, f.Lineup)
	assert.Equal(t, fixedNow, f.StartDate)
	assert.Equal(t, fixedNow, f.EndDate)
}

func TestExtract_Success(t *testing.T) {
	client := &fakeLLM{reply: "```json\n" + `{
		"venue": {"name": "Legacy", "address": "八德路一段1號", "city": "", "latitude": 1.0, "longitude": 2.0},
		"ticketing": {"isFree": false, "minPrice": "1,200", "maxPrice": 1800, "status": "sold_out"},
		"category": "Concert",
		"genres": ["rock", "indie", "rock", " "],
		"lineup": [{"name": "Band A", "role": "主唱", "order": "1"}, {"name": ""}],
		"startDate": "2026-05-01T19:30:00+08:00",
		"endDate": "2026-05-01 22:00"
	}` + "\n```"}
	e := newTestExtractor(client, nil)

	f := e.Extract(context.Background(), "raw body", "Test Show")
	require.NotNil(t, f)
	assert.False(t, f.Degraded)
	assert.Equal(t, 1, client.calls)
	assert.Contains(t, client.lastPrompt, "Test Show")

	assert.Equal(t, "Legacy", f.Venue.Name)
	assert.Equal(t, "台北", f.Venue.City)
	assert.Equal(t, "信義區", f.Venue.District)
	assert.Equal(t, model.Location{Latitude: 25.0443, Longitude: 121.5597}, f.Venue.Location)

	assert.Equal(t, model.TicketSoldOut, f.Ticketing.Status)
	assert.Equal(t, 1200.0, f.Ticketing.PriceRange.Min)
	assert.Equal(t, 1800.0, f.Ticketing.PriceRange.Max)

	assert.Equal(t, model.CategoryConcert, f.Category)
	assert.False(t, f.CategoryGuessed)
	assert.Equal(t, []string{"indie", "rock"}, f.Genres)
	require.Len(t, f.Lineup, 1)
	assert.Equal(t, model.LineupEntry{Name: "Band A", Role: "主唱", Order: 1}, f.Lineup[0])

	assert.True(t, f.StartDate.Equal(time.Date(2026, 5, 1, 11, 30, 0, 0, time.UTC)))
	assert.True(t, f.EndDate.Equal(time.Date(2026, 5, 1, 14, 0, 0, 0, time.UTC)))
}

func TestExtract_CallErrorFallsBack(t *testing.T) {
	client := &fakeLLM{err: errors.New("context deadline exceeded")}
	assertFallback(t, newTestExtractor(client, nil).Extract(context.Background(), "body", "title"))
}

func TestExtract_MalformedOutputFallsBack(t *testing.T) {
	for _, reply := range []string{"not json at all", `{"venue": {"name": `, `{"category": 42}`} {
		client := &fakeLLM{reply: reply}
		assertFallback(t, newTestExtractor(client, nil).Extract(context.Background(), "body", "title"))
	}
}

func TestExtract_EmptyObjectMaterializesDefaults(t *testing.T) {
	client := &fakeLLM{reply: `{}`}
	f := newTestExtractor(client, nil).Extract(context.Background(), "body", "title")

	require.NotNil(t, f)
	assert.False(t, f.Degraded)
	assert.True(t, f.CategoryGuessed)
	assert.Equal(t, model.CategoryOther, f.Category)
	assert.Equal(t, model.UnconfirmedVenueName, f.Venue.Name)
	assert.Equal(t, model.TicketOnSale, f.Ticketing.Status)
	assert.Equal(t, fixedNow, f.StartDate)
	assert.Equal(t, fixedNow, f.EndDate)
	assert.NotNil(t, f.Genres)
	assert.NotNil(t, f.Lineup)
}

func TestExtract_FreeEventZeroesPrice(t *testing.T) {
	client := &fakeLLM{reply: `{"ticketing": {"isFree": "true", "minPrice": 500, "maxPrice": 900}, "startDate": "2026-06-01"}`}
	f := newTestExtractor(client, nil).Extract(context.Background(), "body", "title")

	assert.True(t, f.Ticketing.IsFree)
	assert.Equal(t, 0.0, f.Ticketing.PriceRange.Min)
	assert.Equal(t, 0.0, f.Ticketing.PriceRange.Max)
	assert.Equal(t, f.StartDate, f.EndDate)
}

func TestExtract_UnknownVenueUsesGeocoderThenDefault(t *testing.T) {
	geo := &fakeGeocoder{result: &venue.GeocodeResult{Latitude: 24.1, Longitude: 120.6, City: "台中"}}
	client := &fakeLLM{reply: `{"venue": {"name": "Some Small Bar", "city": "台中"}}`}
	f := newTestExtractor(client, geo).Extract(context.Background(), "body", "title")
	assert.Equal(t, 1, geo.calls)
	assert.Equal(t, model.Location{Latitude: 24.1, Longitude: 120.6}, f.Venue.Location)
	assert.Equal(t, "台中", f.Venue.City)

	geo.result = nil
	f = newTestExtractor(client, geo).Extract(context.Background(), "body", "title")
	assert.Equal(t, model.DefaultLocation, f.Venue.Location)
}

func TestExtract_TruncatesContent(t *testing.T) {
	client := &fakeLLM{reply: `{}`}
	e := newTestExtractor(client, nil)
	e.maxContent = 10

	body := strings.Repeat("演", 10) + "TAIL-MARKER"
	e.Extract(context.Background(), body, "title")
	assert.Contains(t, client.lastPrompt, strings.Repeat("演", 10))
	assert.NotContains(t, client.lastPrompt, "TAIL-MARKER")
}

func TestExtract_DegradedModeSkipsCall(t *testing.T) {
	client := &fakeLLM{reply: `{"category":"concert"}`}
	e := NewFieldExtractor(&config.LLMConfig{Degraded: true}, client, nil, nil, logrus.New())
	e.now = func() time.Time { return fixedNow }

	assertFallback(t, e.Extract(context.Background(), "body", "title"))
	assert.Equal(t, 0, client.calls)
}
