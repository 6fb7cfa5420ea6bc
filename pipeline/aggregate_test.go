package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

func oneFace() []model.FaceInfo {
	return []model.FaceInfo{{X: 10, Y: 10, Width: 100, Height: 100, Confidence: 0.9}}
}

func TestAggregateWeightedAverage(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := []ScoredFrame{
		{Name: "face0", Weight: 5.0, Score: model.Score{Fake: 0.8, Real: 0.2}},
		{Name: "full", Weight: 1.0, Score: model.Score{Fake: 0.2, Real: 0.8}},
	}

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, nil)

	// (0.8*5 + 0.2*1) / 6 = 0.7 with no boost firing.
	assert.InDelta(t, 0.7, score.Fake, 1e-9)
	assert.InDelta(t, 0.3, score.Real, 1e-9)
	assert.Equal(t, 1, details.FakeVotes)
	assert.Equal(t, 1, details.RealVotes)
	assert.Len(t, details.FrameBreakdown, 2)
	require.NotNil(t, details.AvgFaceScore)
	assert.InDelta(t, 0.8, *details.AvgFaceScore, 1e-9)
	assert.Nil(t, details.TemporalBoost)
	assert.Nil(t, details.FFTBoost)
	assert.Nil(t, details.MultiFaceBoost)
}

func TestAggregateEmptyFrameSet(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	score, details := ag.Aggregate(nil, nil, model.MediaTypeImage, nil)

	assert.Equal(t, 0.5, score.Fake)
	assert.Equal(t, 0.5, score.Real)
	assert.Equal(t, "undetermined", details.ContentType)
}

func TestAggregateIdempotent(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := []ScoredFrame{
		{Name: "face0", Weight: 5.0, Score: model.Score{Fake: 0.6, Real: 0.4}},
		{Name: "face0_fft", Weight: 3.0, Score: model.Score{Fake: 0.7, Real: 0.3}},
	}

	first, _ := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, nil)
	second, _ := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, nil)

	assert.Equal(t, first, second)
}

func TestAggregateClampUpper(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// 0.95 + fft boost + gan boost overshoots 1.0 and must clamp.
	scored := []ScoredFrame{
		{Name: "full_fft", Weight: 1.0, Score: model.Score{Fake: 0.95, Real: 0.05}},
	}

	score, _ := ag.Aggregate(scored, nil, model.MediaTypeImage, nil)

	assert.Equal(t, 0.99, score.Fake)
	assert.InDelta(t, 0.01, score.Real, 1e-9)
}

func TestAggregateFrameNameClassification(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// "face0_fft" counts as an fft frame, not a face frame.
	scored := []ScoredFrame{
		{Name: "face0", Weight: 1.0, Score: model.Score{Fake: 0.3, Real: 0.7}},
		{Name: "face0_fft", Weight: 1.0, Score: model.Score{Fake: 0.4, Real: 0.6}},
		{Name: "eyes", Weight: 1.0, Score: model.Score{Fake: 0.5, Real: 0.5}},
	}

	_, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, nil)

	require.NotNil(t, details.AvgFaceScore)
	require.NotNil(t, details.AvgFFTScore)
	require.NotNil(t, details.AvgEyeScore)
	assert.InDelta(t, 0.3, *details.AvgFaceScore, 1e-9)
	assert.InDelta(t, 0.4, *details.AvgFFTScore, 1e-9)
	assert.InDelta(t, 0.5, *details.AvgEyeScore, 1e-9)
}

func TestFinalizeTiers(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	cases := []struct {
		fake           float64
		classification model.Classification
		confidence     float64
	}{
		{0.60, model.ClassificationFake, 0.60},
		{0.45, model.ClassificationSuspicious, 0.45},
		{0.20, model.ClassificationReal, 0.80},
	}

	for _, c := range cases {
		v := ag.Finalize(model.Score{Fake: c.fake, Real: 1 - c.fake}, &model.AnalysisDetails{})
		assert.Equal(t, c.classification, v.Classification, "fake=%v", c.fake)
		assert.InDelta(t, c.confidence, v.Confidence, 1e-9, "fake=%v", c.fake)
	}
}

func TestFinalizeThresholdBoundaries(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// Exactly at a threshold stays in the lower tier.
	v := ag.Finalize(model.Score{Fake: 0.52, Real: 0.48}, &model.AnalysisDetails{})
	assert.Equal(t, model.ClassificationSuspicious, v.Classification)

	v = ag.Finalize(model.Score{Fake: 0.42, Real: 0.58}, &model.AnalysisDetails{})
	assert.Equal(t, model.ClassificationReal, v.Classification)
}
