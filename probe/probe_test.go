package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoiseSuspicionBands(t *testing.T) {
	assert.InDelta(t, 0.7, noiseSuspicion(1.0), 1e-9)
	assert.InDelta(t, 0.7, noiseSuspicion(2.99), 1e-9)
	assert.InDelta(t, 0.0, noiseSuspicion(3.0), 1e-9)
	assert.InDelta(t, 0.0, noiseSuspicion(12.0), 1e-9)
	assert.InDelta(t, 0.0, noiseSuspicion(25.0), 1e-9)
	assert.InDelta(t, 0.5, noiseSuspicion(25.01), 1e-9)
}

func TestColorSuspicionAtOptimal(t *testing.T) {
	assert.InDelta(t, 0.0, colorSuspicion(20, 20), 1e-9)
}

func TestColorSuspicionSymmetricDeviation(t *testing.T) {
	// Deviation in either direction from the optimal spread counts the same.
	low := colorSuspicion(10, 10)
	high := colorSuspicion(30, 30)
	assert.InDelta(t, low, high, 1e-9)
	assert.InDelta(t, 0.5, low, 1e-9)
}

func TestColorSuspicionClamped(t *testing.T) {
	assert.LessOrEqual(t, colorSuspicion(200, 200), 1.0)
}

func TestFrequencySuspicion(t *testing.T) {
	// Healthy 1/f decay with no peaks is not suspicious.
	assert.InDelta(t, 0.0, frequencySuspicion(-1.8, 0.005), 1e-9)

	// A flat spectrum alone raises suspicion.
	assert.Greater(t, frequencySuspicion(0.0, 0.0), 0.1)

	// Peaks alone raise suspicion too.
	assert.Greater(t, frequencySuspicion(-1.8, 0.05), 0.1)

	assert.LessOrEqual(t, frequencySuspicion(2.0, 0.5), 1.0)
}

func TestBlockinessScore(t *testing.T) {
	// Clean image: boundary steps match interior gradient.
	score, double := blockinessScore(1.0, 1.0)
	assert.False(t, double)
	assert.InDelta(t, 0.0, score, 1e-9)

	// Mid-band boundary step flags double compression.
	score, double = blockinessScore(1.8, 5.0)
	assert.True(t, double)
	assert.Greater(t, score, 0.5)

	// Extreme steps are genuine edges, not block artifacts.
	_, double = blockinessScore(1.8, 30.0)
	assert.False(t, double)
}

func TestBlendingSuspicionBands(t *testing.T) {
	assert.InDelta(t, 0.0, blendingSuspicion(0.01), 1e-9)
	assert.InDelta(t, 0.7, blendingSuspicion(0.15), 1e-9)
	assert.InDelta(t, 0.1, blendingSuspicion(0.4), 1e-9)
}

func TestLandmarkSuspicion(t *testing.T) {
	// A normal face: moderate symmetry, normal ratios, textured skin.
	score, suspicious, tooSmooth := landmarkSuspicion(0.75, 1.5, 45)
	assert.InDelta(t, 0.0, score, 1e-9)
	assert.False(t, suspicious)
	assert.False(t, tooSmooth)

	// Machine-perfect symmetry trips the flag.
	score, suspicious, _ = landmarkSuspicion(0.95, 1.5, 45)
	assert.True(t, suspicious)
	assert.InDelta(t, 0.4, score, 1e-9)

	// Poreless skin sets the too-smooth flag on its own.
	_, _, tooSmooth = landmarkSuspicion(0.75, 1.5, 10)
	assert.True(t, tooSmooth)
}

func TestExifSuspicion(t *testing.T) {
	assert.InDelta(t, 0.9, exifSuspicion(false, false, true, false), 1e-9)
	assert.InDelta(t, 0.3, exifSuspicion(true, false, false, false), 1e-9)
	assert.InDelta(t, 0.4, exifSuspicion(false, true, false, false), 1e-9)
	assert.InDelta(t, 0.6, exifSuspicion(false, true, false, true), 1e-9)
	assert.InDelta(t, 0.0, exifSuspicion(false, false, false, false), 1e-9)
}

func TestFilterIntensityAdditive(t *testing.T) {
	// All six sub-signals firing caps at 1.
	sig := filterSignals{
		smoothness:     30,
		edgeDensity:    0.1,
		hueEntropy:     1.0,
		orangeFrac:     0.2,
		tealFrac:       0.2,
		vignetteCorr:   -0.5,
		skinLumaStd:    8,
		skinPixels:     1000,
		saturationMean: 150,
		saturationStd:  20,
	}
	assert.InDelta(t, 1.0, filterIntensity(sig), 1e-9)

	// Nothing firing scores zero.
	assert.InDelta(t, 0.0, filterIntensity(filterSignals{
		smoothness:  200,
		hueEntropy:  2.5,
		skinLumaStd: 30,
	}), 1e-9)
}

func TestScreenScoreWeights(t *testing.T) {
	all := screenIndicators{
		MonitorRect:    true,
		HighSaturation: true,
		DarkWithSpots:  true,
		DenseEdges:     true,
		AxisGradients:  true,
		UniformBlocks:  true,
	}
	assert.InDelta(t, 1.0, screenScore(all), 1e-9)

	assert.InDelta(t, 0.30, screenScore(screenIndicators{MonitorRect: true}), 1e-9)
	assert.InDelta(t, 0.0, screenScore(screenIndicators{}), 1e-9)
}

func TestStylizationVerdictTiers(t *testing.T) {
	// Strongly stylized content: boost capped at 0.4.
	combined, boost, style := stylizationVerdict(0.9, 0.9, 0.9, 0.9)
	assert.Greater(t, combined, 0.65)
	assert.InDelta(t, 0.4, boost, 1e-9)
	assert.NotEqual(t, StylePhotorealistic, style)

	// Weak signal: proportional boost.
	combined, boost, style = stylizationVerdict(0.5, 0.5, 0.5, 0.5)
	assert.InDelta(t, 0.5, combined, 1e-9)
	assert.InDelta(t, 0.15, boost, 1e-9)
	assert.Equal(t, StyleUnknown, style)

	// Photorealistic: no boost at all.
	_, boost, style = stylizationVerdict(0.1, 0.2, 0.2, 0.1)
	assert.InDelta(t, 0.0, boost, 1e-9)
	assert.Equal(t, StylePhotorealistic, style)
}

func TestStylizationStyleLabels(t *testing.T) {
	_, _, style := stylizationVerdict(0.9, 0.6, 0.6, 0.8)
	assert.Equal(t, StyleAnime, style)

	_, _, style = stylizationVerdict(0.5, 0.9, 0.8, 0.7)
	assert.Equal(t, StyleCartoon, style)

	_, _, style = stylizationVerdict(0.9, 0.8, 0.6, 0.3)
	assert.Equal(t, StyleRender3D, style)
}

func TestSceneTier(t *testing.T) {
	assert.Equal(t, SceneLikelyAI, sceneTier(0.61))
	assert.Equal(t, SceneSuspicious, sceneTier(0.5))
	assert.Equal(t, SceneLikelyAuthentic, sceneTier(0.3))
}

func TestBestGenerator(t *testing.T) {
	gen, conf := bestGenerator(0.1, 0.1, 0.1, 0.05)
	assert.Equal(t, GeneratorLikelyReal, gen)
	assert.InDelta(t, 0.9, conf, 1e-9)

	gen, conf = bestGenerator(0.3, 0.6, 0.4, 0.2)
	assert.Equal(t, GeneratorMidjourney, gen)
	assert.InDelta(t, 0.6, conf, 1e-9)
}

func TestStatsHelpers(t *testing.T) {
	xs := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 3.0, mean(xs), 1e-9)
	assert.InDelta(t, 2.0, variance(xs), 1e-9)
	assert.InDelta(t, 5.0, percentile(xs, 100), 1e-9)
	assert.InDelta(t, 1.0, percentile(xs, 0), 1e-9)

	ys := []float64{2, 4, 6, 8, 10}
	assert.InDelta(t, 1.0, correlation(xs, ys), 1e-6)

	neg := []float64{10, 8, 6, 4, 2}
	assert.InDelta(t, -1.0, correlation(xs, neg), 1e-6)
}
