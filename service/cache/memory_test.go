package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

func verdict(fake float64) *model.Verdict {
	return &model.Verdict{
		Scores:         model.Score{Fake: fake, Real: 1 - fake},
		Classification: model.ClassificationReal,
		Confidence:     1 - fake,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	svc := NewMemory(config.NewHardCoded())

	_, ok := svc.Get("https://example.com/a.jpg")
	assert.False(t, ok)

	svc.Set("https://example.com/a.jpg", verdict(0.2))

	got, ok := svc.Get("https://example.com/a.jpg")
	require.True(t, ok)
	assert.InDelta(t, 0.2, got.Scores.Fake, 1e-9)
}

func TestCacheDelete(t *testing.T) {
	svc := NewMemory(config.NewHardCoded())

	svc.Set("https://example.com/a.jpg", verdict(0.2))
	svc.Delete("https://example.com/a.jpg")

	_, ok := svc.Get("https://example.com/a.jpg")
	assert.False(t, ok)
}

func TestCacheEvictsWhenFull(t *testing.T) {
	cfgSvc := config.NewHardCoded()
	svc := NewMemory(cfgSvc)

	max := cfgSvc.GetAnalysisCacheSize()
	for i := 0; i < max+10; i++ {
		svc.Set(fmt.Sprintf("https://example.com/%d.jpg", i), verdict(0.1))
	}

	assert.LessOrEqual(t, svc.Len(), max)
}

func TestCacheFinalize(t *testing.T) {
	svc := NewMemory(config.NewHardCoded())

	svc.Set("https://example.com/a.jpg", verdict(0.2))
	svc.Finalize()

	assert.Equal(t, 0, svc.Len())
}
