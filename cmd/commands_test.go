package main

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"EventSync/internal/adapter"
	"EventSync/internal/config"
	"EventSync/internal/model"
	"EventSync/internal/service"
	"EventSync/internal/venue"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	for _, src := range []model.SourceType{model.SourceKKTIX, model.SourceIndievox, model.SourceAccupass} {
		_, ok := adapter.GetFactory(src)
		assert.True(t, ok, src)
	}
}

func TestCollectorRegistry_SkipsUnknownSources(t *testing.T) {
	cfg := &config.Config{Sources: config.DefaultSources()}
	cfg.Sync.EnabledSources = []string{"kktix", "tixcraft", "accupass", "kktix"}
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	registry := adapter.NewCollectorRegistry(cfg, logger)
	assert.Equal(t, 2, registry.Count())
	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, model.SourceKKTIX, list[0].GetSource())
	assert.Equal(t, model.SourceAccupass, list[1].GetSource())
}

func TestPrintReport(t *testing.T) {
	report := &service.RunReport{
		Providers: []*service.ProviderReport{
			{Source: model.SourceKKTIX, Discovered: 3, Candidates: 2, UpsertResult: model.UpsertResult{Inserted: 2}},
			{Source: model.SourceAccupass, Err: errors.New("x"), ErrorMsg: "全部3个关键字搜索失败"},
		},
		Discovered: 3,
		Candidates: 2,
		Total:      model.UpsertResult{Inserted: 2},
		Cancelled:  true,
	}
	var buf bytes.Buffer
	printReport(&buf, report)

	out := buf.String()
	assert.Contains(t, out, "SOURCE")
	assert.Contains(t, out, "kktix")
	assert.Contains(t, out, "全部3个关键字搜索失败")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "运行被取消")
}

func TestPrintVenueStats(t *testing.T) {
	var buf bytes.Buffer
	printVenueStats(&buf, venue.NewResolver().Stats())
	assert.Contains(t, buf.String(), "台北")
}

func TestParser_DefaultsToIngest(t *testing.T) {
	parser := newParser()
	require.NotNil(t, parser.Find("ingest"))
	require.NotNil(t, parser.Find("serve"))
	assert.True(t, parser.SubcommandsOptional)
}
