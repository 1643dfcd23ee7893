package service

import (
	"EventSync/internal/config"
	"EventSync/internal/model"
)

const maxQualityScore = 100

// QualityScorer 按字段完整度计分，权重可配置，结果截断到 0~100
type QualityScorer struct {
	weights config.QualityConfig
}

func NewQualityScorer(weights config.QualityConfig) *QualityScorer {
	return &QualityScorer{weights: weights}
}

// Score 只依赖记录本身，可随时重算
func (s *QualityScorer) Score(e *model.CanonicalEvent) int {
	if e == nil {
		return 0
	}
	w := s.weights
	venue := e.Venue.Data()
	ticketing := e.Ticketing.Data()

	score := 0
	if e.Title != "" {
		score += w.Title
	}
	if e.Description != "" {
		score += w.Description
	}
	if !e.StartDate.IsZero() {
		score += w.StartDate
	}
	if venue.IsConfirmed() {
		score += w.VenueKnown
	}
	if venue.Location.Latitude != 0 && venue.Location.Longitude != 0 {
		score += w.Coordinates
	}
	if ticketing.PriceRange.Min > 0 || ticketing.IsFree {
		score += w.Price
	}
	if len(e.Images.Data()) > 0 {
		score += w.Image
	}
	if len(e.Lineup.Data()) > 0 {
		score += w.Lineup
	}
	if len(e.Genres.Data()) > 0 {
		score += w.Genre
	}
	if e.Category != "" && e.Category != model.CategoryOther {
		score += w.CategoryKnown
	}

	switch {
	case score < 0:
		return 0
	case score > maxQualityScore:
		return maxQualityScore
	}
	return score
}
