package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

func flatFrames(name string, fake float64, count int) []ScoredFrame {
	out := make([]ScoredFrame, count)
	for i := range out {
		out[i] = ScoredFrame{Name: name, Weight: 1.0, Score: model.Score{Fake: fake, Real: 1 - fake}}
	}
	return out
}

func TestTemporalBoostErraticVideo(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// Scores jump 0.2 -> 0.8 -> 0.2: variance 0.08, mean diff 0.6,
	// raw boost 0.55 capped at 0.35.
	scored := []ScoredFrame{
		{Name: "frame_0", Weight: 1.0, Score: model.Score{Fake: 0.2, Real: 0.8}},
		{Name: "frame_1", Weight: 1.0, Score: model.Score{Fake: 0.8, Real: 0.2}},
		{Name: "frame_2", Weight: 1.0, Score: model.Score{Fake: 0.2, Real: 0.8}},
	}

	score, details := ag.Aggregate(scored, nil, model.MediaTypeVideo, nil)

	require.NotNil(t, details.TemporalBoost)
	assert.InDelta(t, 0.35, *details.TemporalBoost, 1e-9)
	assert.InDelta(t, 0.75, score.Fake, 1e-9)
}

func TestTemporalBoostStableVideo(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	score, details := ag.Aggregate(flatFrames("frame", 0.6, 4), nil, model.MediaTypeVideo, nil)

	// Variance and frame deltas are zero: evaluated, nothing applied.
	require.NotNil(t, details.TemporalBoost)
	assert.Equal(t, 0.0, *details.TemporalBoost)
	assert.InDelta(t, 0.6, score.Fake, 1e-9)
}

func TestTemporalBoostRecordedBelowMinimum(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// Small wobble: variance 0.0001, mean diff 0.02, boost 0.015125.
	// That stays under the 0.05 minimum: recorded but never applied.
	scored := []ScoredFrame{
		{Name: "frame_1", Weight: 1.0, Score: model.Score{Fake: 0.5, Real: 0.5}},
		{Name: "frame_2", Weight: 1.0, Score: model.Score{Fake: 0.52, Real: 0.48}},
		{Name: "frame_3", Weight: 1.0, Score: model.Score{Fake: 0.5, Real: 0.5}},
		{Name: "frame_4", Weight: 1.0, Score: model.Score{Fake: 0.52, Real: 0.48}},
	}

	score, details := ag.Aggregate(scored, nil, model.MediaTypeVideo, nil)

	require.NotNil(t, details.TemporalBoost)
	assert.InDelta(t, 0.015125, *details.TemporalBoost, 1e-6)
	assert.InDelta(t, 0.51, score.Fake, 1e-9)
	assert.InDelta(t, 0.0, details.TemporalAnalysis["appliedBoost"].(float64), 1e-9)
}

func TestTemporalBoostSkippedForImages(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	_, details := ag.Aggregate(flatFrames("frame", 0.6, 4), nil, model.MediaTypeImage, nil)

	assert.Nil(t, details.TemporalBoost)
}

func TestFFTAndGanBoosts(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := []ScoredFrame{
		{Name: "full_fft", Weight: 1.0, Score: model.Score{Fake: 0.7, Real: 0.3}},
	}

	score, details := ag.Aggregate(scored, nil, model.MediaTypeImage, nil)

	// fft average: (0.7-0.5)*0.2 = 0.04; gan fingerprint adds 0.10.
	require.NotNil(t, details.FFTBoost)
	assert.InDelta(t, 0.04, *details.FFTBoost, 1e-9)
	require.NotNil(t, details.GanBoost)
	assert.InDelta(t, 0.10, *details.GanBoost, 1e-9)
	assert.InDelta(t, 0.84, score.Fake, 1e-9)
}

func TestEyeBoost(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := []ScoredFrame{
		{Name: "eyes", Weight: 1.0, Score: model.Score{Fake: 0.8, Real: 0.2}},
	}

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, nil)

	// (0.8-0.5)*0.15 = 0.045.
	require.NotNil(t, details.EyeBoost)
	assert.InDelta(t, 0.045, *details.EyeBoost, 1e-9)
	assert.InDelta(t, 0.845, score.Fake, 1e-9)
}

func TestMultiFaceBoost(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	faces := []model.FaceInfo{
		{Width: 100, Height: 100}, {Width: 90, Height: 90},
	}
	scored := []ScoredFrame{
		{Name: "face0", Weight: 1.0, Score: model.Score{Fake: 0.9, Real: 0.1}},
		{Name: "face1", Weight: 1.0, Score: model.Score{Fake: 0.2, Real: 0.8}},
	}

	score, details := ag.Aggregate(scored, faces, model.MediaTypeImage, nil)

	// Variance 0.1225, boost 0.06125 (under the 0.12 cap).
	require.NotNil(t, details.MultiFaceBoost)
	assert.InDelta(t, 0.06125, *details.MultiFaceBoost, 1e-9)
	assert.InDelta(t, 0.61125, score.Fake, 1e-9)
}

func TestMultiFaceConsistentScoresNoBoost(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	faces := []model.FaceInfo{
		{Width: 100, Height: 100}, {Width: 90, Height: 90},
	}
	scored := []ScoredFrame{
		{Name: "face0", Weight: 1.0, Score: model.Score{Fake: 0.55, Real: 0.45}},
		{Name: "face1", Weight: 1.0, Score: model.Score{Fake: 0.50, Real: 0.50}},
	}

	_, details := ag.Aggregate(scored, faces, model.MediaTypeImage, nil)

	assert.Nil(t, details.MultiFaceBoost)
	assert.NotNil(t, details.MultiFaceAnalysis)
}

func TestFilterCompensation(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Filter: &model.ProbeResult{Score: 0.9, Details: map[string]interface{}{}},
	}
	scored := flatFrames("full", 0.5, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	// 0.5 - 0.9*0.06 = 0.446.
	require.NotNil(t, details.FilterCompensation)
	assert.InDelta(t, 0.054, *details.FilterCompensation, 1e-9)
	assert.InDelta(t, 0.446, score.Fake, 1e-9)
	require.NotNil(t, details.HasFilter)
	assert.True(t, *details.HasFilter)
}

func TestFilterCompensationFloor(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Filter: &model.ProbeResult{Score: 1.0},
	}
	scored := flatFrames("full", 0.1, 1)

	score, _ := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	assert.InDelta(t, 0.08, score.Fake, 1e-9)
}

func TestFilterBelowGateNoCompensation(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Filter: &model.ProbeResult{Score: 0.3},
	}
	scored := flatFrames("full", 0.5, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	assert.Nil(t, details.FilterCompensation)
	require.NotNil(t, details.HasFilter)
	assert.False(t, *details.HasFilter)
	assert.InDelta(t, 0.5, score.Fake, 1e-9)
}

func TestScreenCompensation(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Screen: &model.ProbeResult{
			Score:   0.8,
			Details: map[string]interface{}{"isScreenContent": true},
		},
	}
	scored := flatFrames("full", 0.6, 1)

	score, details := ag.Aggregate(scored, nil, model.MediaTypeImage, probes)

	// 0.6 - 0.8*0.30 = 0.36; the forced authentic floor must not fire.
	assert.Equal(t, "screen_content", details.ContentType)
	require.NotNil(t, details.ScreenCompensation)
	assert.InDelta(t, 0.24, *details.ScreenCompensation, 1e-9)
	assert.InDelta(t, 0.36, score.Fake, 1e-9)
	assert.False(t, details.NoFaceForced)
}

func TestScreenCompensationFloor(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Screen: &model.ProbeResult{
			Score:   1.0,
			Details: map[string]interface{}{"isScreenContent": true},
		},
	}
	scored := flatFrames("full", 0.2, 1)

	score, _ := ag.Aggregate(scored, nil, model.MediaTypeImage, probes)

	assert.InDelta(t, 0.10, score.Fake, 1e-9)
}

func TestNoFaceForcedAuthentic(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := flatFrames("full", 0.05, 1)

	score, details := ag.Aggregate(scored, nil, model.MediaTypeImage, nil)

	// All sub-signals absent (treated low) and the score is low: force 0.08.
	assert.True(t, details.NoFaceForced)
	assert.InDelta(t, 0.08, score.Fake, 1e-9)
}

func TestNoFaceHighScoreTrusted(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	scored := flatFrames("full", 0.9, 1)

	score, details := ag.Aggregate(scored, nil, model.MediaTypeImage, nil)

	assert.False(t, details.NoFaceForced)
	assert.InDelta(t, 0.9, score.Fake, 1e-9)
}

func TestNoFaceMixedSignalsPassThrough(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	// fft average 0.45 is above the low-signal threshold, so the score
	// passes through even though it sits below the trust threshold.
	scored := []ScoredFrame{
		{Name: "full", Weight: 1.0, Score: model.Score{Fake: 0.3, Real: 0.7}},
		{Name: "center_fft", Weight: 1.0, Score: model.Score{Fake: 0.45, Real: 0.55}},
	}

	score, details := ag.Aggregate(scored, nil, model.MediaTypeImage, nil)

	assert.False(t, details.NoFaceForced)
	assert.InDelta(t, 0.375, score.Fake, 1e-9)
}

func TestStylizationBoost(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Stylization: &model.ProbeResult{
			Score: 0.7,
			Details: map[string]interface{}{
				"isStylized": true,
				"fakeBoost":  0.3,
			},
		},
	}
	scored := flatFrames("face0", 0.4, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	require.NotNil(t, details.StylizationBoost)
	assert.InDelta(t, 0.3, *details.StylizationBoost, 1e-9)
	assert.InDelta(t, 0.7, score.Fake, 1e-9)
}

func TestStylizationSkippedForVideo(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Stylization: &model.ProbeResult{
			Score:   0.7,
			Details: map[string]interface{}{"isStylized": true, "fakeBoost": 0.3},
		},
	}
	scored := flatFrames("f0_face0", 0.4, 3)

	_, details := ag.Aggregate(scored, oneFace(), model.MediaTypeVideo, probes)

	assert.Nil(t, details.StylizationBoost)
}

func TestPhase1Boosts(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Exif: &model.ProbeResult{
			Score: 0.0,
			Details: map[string]interface{}{
				"editingSoftwareDetected": true,
				"metadataStripped":        true,
			},
		},
	}
	scored := flatFrames("face0", 0.3, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	// 0.10 editing software + 0.05 stripped metadata.
	require.NotNil(t, details.Phase1Boost)
	assert.InDelta(t, 0.15, *details.Phase1Boost, 1e-9)
	assert.InDelta(t, 0.45, score.Fake, 1e-9)
}

func TestPhase1BlendingAndCompression(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Compression: &model.ProbeResult{
			Details: map[string]interface{}{"doubleCompression": true},
		},
		Blending: &model.ProbeResult{
			Details: map[string]interface{}{"detected": true},
		},
	}
	scored := flatFrames("face0", 0.3, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	// 0.08 double compression + 0.15 blending seam, then the ensemble
	// check: secondary mean 0 vs cumulative 0.53 never disagrees upward.
	require.NotNil(t, details.Phase1Boost)
	assert.InDelta(t, 0.23, *details.Phase1Boost, 1e-9)
	assert.InDelta(t, 0.53, score.Fake, 1e-9)
}

func TestPhase2LandmarkBoosts(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Landmarks: &model.ProbeResult{
			Score: 0.0,
			Details: map[string]interface{}{
				"suspicious": true,
				"tooSmooth":  true,
			},
		},
	}
	scored := flatFrames("face0", 0.5, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	// 0.08 landmark + 0.05 too-smooth.
	require.NotNil(t, details.Phase2Boost)
	assert.InDelta(t, 0.13, *details.Phase2Boost, 1e-9)
	assert.InDelta(t, 0.63, score.Fake, 1e-9)
}

func TestPhase2EnsembleDisagreement(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Compression: &model.ProbeResult{Score: 0.9},
		Exif:        &model.ProbeResult{Score: 0.8},
		Blending:    &model.ProbeResult{Score: 0.7},
		Landmarks:   &model.ProbeResult{Score: 0.6},
	}
	scored := flatFrames("face0", 0.3, 1)

	score, details := ag.Aggregate(scored, oneFace(), model.MediaTypeImage, probes)

	// Secondary mean 0.75 vs 0.3: disagreement 0.45, boost 0.135.
	require.NotNil(t, details.Phase2Boost)
	assert.InDelta(t, 0.135, *details.Phase2Boost, 1e-9)
	assert.InDelta(t, 0.435, score.Fake, 1e-9)
	assert.NotNil(t, details.EnsembleAnalysis)
}

func TestPhase2SkippedForVideo(t *testing.T) {
	ag := NewAggregator(config.NewHardCoded())

	probes := &ProbeContext{
		Landmarks: &model.ProbeResult{
			Details: map[string]interface{}{"suspicious": true},
		},
	}
	scored := flatFrames("f0_face0", 0.5, 3)

	_, details := ag.Aggregate(scored, oneFace(), model.MediaTypeVideo, probes)

	assert.Nil(t, details.Phase2Boost)
}
