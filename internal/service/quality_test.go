package service

import (
	"testing"
	"time"

	"EventSync/internal/config"
	"EventSync/internal/model"

	"github.com/stretchr/testify/assert"
)

func completeCandidate() *model.EventCandidate {
	start := time.Now().Add(48 * time.Hour)
	return &model.EventCandidate{
		Source:      model.SourceKKTIX,
		SourceID:    "abc123",
		SourceURL:   "https://legacy.kktix.cc/events/abc123",
		Title:       "Test Show",
		Description: "An evening of indie rock",
		StartDate:   start,
		EndDate:     start.Add(3 * time.Hour),
		Venue: &model.Venue{
			Name:     "Legacy Taipei",
			City:     "台北",
			Location: model.Location{Latitude: 25.0443, Longitude: 121.5597},
		},
		Ticketing: &model.Ticketing{
			Status:     model.TicketOnSale,
			PriceRange: model.PriceRange{Min: 800, Max: 1200, Currency: model.DefaultCurrency},
		},
		Category:  model.CategoryConcert,
		Genres:    []string{"indie", "rock"},
		Images:    []model.Image{{URL: "https://img.example/cover.jpg", Type: model.ImageTypeCover}},
		Lineup:    []model.LineupEntry{{Name: "Band A", Order: 1}},
		ScrapedAt: time.Now(),
	}
}

func TestQualityScorer_CompleteRecordScores100(t *testing.T) {
	s := NewQualityScorer(config.DefaultQuality())
	assert.Equal(t, 100, s.Score(completeCandidate().ToEvent()))
}

func TestQualityScorer_FallbackRecord(t *testing.T) {
	s := NewQualityScorer(config.DefaultQuality())
	fields := Fallback(time.Now())
	c := &model.EventCandidate{
		Title:     "Only a title",
		StartDate: fields.StartDate,
		EndDate:   fields.EndDate,
		Venue:     &fields.Venue,
		Ticketing: &fields.Ticketing,
		Category:  fields.Category,
	}
	// title + startDate + 默认坐标
	assert.Equal(t, 30, s.Score(c.ToEvent()))
}

func TestQualityScorer_FreeEventCountsAsPriced(t *testing.T) {
	s := NewQualityScorer(config.DefaultQuality())
	c := completeCandidate()
	c.Ticketing = &model.Ticketing{IsFree: true, PriceRange: model.PriceRange{Currency: model.DefaultCurrency}}
	assert.Equal(t, 100, s.Score(c.ToEvent()))
}

func TestQualityScorer_Bounds(t *testing.T) {
	heavy := config.DefaultQuality()
	heavy.Title = 90
	heavy.Description = 90
	assert.Equal(t, 100, NewQualityScorer(heavy).Score(completeCandidate().ToEvent()))

	negative := config.QualityConfig{Title: -50}
	assert.Equal(t, 0, NewQualityScorer(negative).Score(completeCandidate().ToEvent()))

	assert.Equal(t, 0, NewQualityScorer(config.DefaultQuality()).Score(nil))
}
