package pipeline

import (
	"math"

	"github.com/khaledhikmat/dfd-go/model"
)

// boostChain is the ordered score transformation sequence. Each stage
// reads the cumulative fake score left by the previous one; reordering
// changes verdicts.
var boostChain = []BoostStage{
	{Name: "temporal", Apply: temporalStage},
	{Name: "fft_average", Apply: fftAverageStage},
	{Name: "eye_average", Apply: eyeAverageStage},
	{Name: "multi_face", Apply: multiFaceStage},
	{Name: "filter_compensation", Apply: filterCompensationStage},
	{Name: "gan_fingerprint", Apply: ganFingerprintStage},
	{Name: "screen_compensation", Apply: screenCompensationStage},
	{Name: "no_face", Apply: noFaceStage},
	{Name: "stylization", Apply: stylizationStage},
	{Name: "phase1_forensics", Apply: phase1Stage},
	{Name: "phase2_forensics", Apply: phase2Stage},
}

// temporalStage boosts on erratic per-frame scores in videos. A genuine
// clip scores consistently; splicing leaves variance and jumps.
func temporalStage(s *boostState) {
	if s.mediaType != model.MediaTypeVideo || len(s.scored) <= 2 {
		return
	}

	fakes := make([]float64, len(s.scored))
	for i, sf := range s.scored {
		fakes[i] = sf.Score.Fake
	}

	variance := varianceOf(fakes)
	var diffSum float64
	for i := 1; i < len(fakes); i++ {
		diffSum += math.Abs(fakes[i] - fakes[i-1])
	}
	meanDiff := diffSum / float64(len(fakes)-1)

	boost := (variance*2.5 + meanDiff*1.5) / 2
	if boost > s.cfg.TemporalCap {
		boost = s.cfg.TemporalCap
	}

	// The computed boost is always recorded; it only moves the score when
	// it clears the minimum.
	applied := 0.0
	if boost > s.cfg.TemporalMin {
		s.fake += boost
		applied = boost
	}
	s.details.TemporalBoost = &boost
	s.details.TemporalAnalysis = map[string]interface{}{
		"variance":         variance,
		"meanFrameToFrame": meanDiff,
		"appliedBoost":     applied,
	}
}

func fftAverageStage(s *boostState) {
	if len(s.fftScores) == 0 {
		return
	}
	avg := avgOf(s.fftScores)
	if avg <= s.cfg.FFTAvgThreshold {
		return
	}
	boost := (avg - 0.5) * s.cfg.FFTAvgScale
	s.fake += boost
	s.details.FFTBoost = &boost
}

func eyeAverageStage(s *boostState) {
	if len(s.eyeScores) == 0 {
		return
	}
	avg := avgOf(s.eyeScores)
	if avg <= s.cfg.EyeAvgThreshold {
		return
	}
	boost := (avg - 0.5) * s.cfg.EyeAvgScale
	s.fake += boost
	s.details.EyeBoost = &boost
}

// multiFaceStage reads variance across per-face scores. One manipulated
// face among genuine ones is the selective-swap signature.
func multiFaceStage(s *boostState) {
	if len(s.faceScores) <= 1 {
		return
	}

	variance := varianceOf(s.faceScores)
	s.details.MultiFaceAnalysis = map[string]interface{}{
		"faceScoreVariance": variance,
		"faceCount":         len(s.faceScores),
	}

	if variance <= s.cfg.MultiFaceVarianceGate {
		return
	}

	boost := variance * s.cfg.MultiFaceScale
	if boost > s.cfg.MultiFaceCap {
		boost = s.cfg.MultiFaceCap
	}
	s.fake += boost
	s.details.MultiFaceBoost = &boost
}

// filterCompensationStage protects heavily filtered authentic selfies.
// Beauty filters mimic synthesis artifacts, so strong filter evidence
// subtracts from the score.
func filterCompensationStage(s *boostState) {
	if s.probes == nil || s.probes.Filter == nil {
		return
	}

	intensity := s.probes.Filter.Score
	hasFilter := intensity > s.cfg.FilterIntensityGate

	s.details.HasFilter = &hasFilter
	s.details.FilterIntensity = &intensity
	s.details.FilterAnalysis = s.probes.Filter.Details

	if !hasFilter {
		return
	}

	reduction := intensity * s.cfg.FilterScale
	s.fake -= reduction
	if s.fake < s.cfg.FilterFloor {
		s.fake = s.cfg.FilterFloor
	}
	s.details.FilterCompensation = &reduction
}

// ganFingerprintStage: a single frequency-map frame over the fake
// threshold is enough evidence of generator residue.
func ganFingerprintStage(s *boostState) {
	for _, f := range s.fftScores {
		if f > s.cfg.GanFrameThreshold {
			boost := s.cfg.GanBoost
			s.fake += boost
			s.details.GanBoost = &boost
			return
		}
	}
}

// screenCompensationStage suppresses false positives on gaming/coding/UI
// footage. Runs before the no-face branch so screen content never gets
// forced to the authentic floor by accident.
func screenCompensationStage(s *boostState) {
	if len(s.faces) > 0 || s.probes == nil || s.probes.Screen == nil {
		return
	}

	s.details.ScreenAnalysis = s.probes.Screen.Details
	if !detailBool(s.probes.Screen.Details, "isScreenContent") {
		return
	}

	s.details.ContentType = "screen_content"

	reduction := s.probes.Screen.Score * s.cfg.ScreenScale
	s.fake -= reduction
	if s.fake < s.cfg.ScreenFloor {
		s.fake = s.cfg.ScreenFloor
	}
	s.details.ScreenCompensation = &reduction
}

// noFaceStage decides what a faceless score means. A high weighted
// average is trusted as-is; uniformly low sub-signals force the authentic
// floor; anything else passes through untouched as a mixed signal.
func noFaceStage(s *boostState) {
	if len(s.faces) > 0 {
		return
	}
	if s.details.ContentType == "screen_content" {
		return
	}

	if s.probes != nil && s.probes.Scene != nil {
		s.details.SceneAnalysis = s.probes.Scene.Details
	}

	if s.fake > s.cfg.NoFaceTrustThreshold {
		return
	}

	if subAvgLow(s.faceScores, s.cfg.NoFaceLowSubScore) &&
		subAvgLow(s.fftScores, s.cfg.NoFaceLowSubScore) &&
		subAvgLow(s.eyeScores, s.cfg.NoFaceLowSubScore) {
		s.fake = s.cfg.NoFaceAuthentic
		s.details.NoFaceForced = true
	}
}

// subAvgLow treats an absent sub-signal as low.
func subAvgLow(xs []float64, threshold float64) bool {
	if len(xs) == 0 {
		return true
	}
	return avgOf(xs) < threshold
}

// stylizationStage adds the probe's own boost for rendered/drawn people.
// Image path only: stylized video content is scored by the temporal path.
func stylizationStage(s *boostState) {
	if s.mediaType != model.MediaTypeImage || s.probes == nil || s.probes.Stylization == nil {
		return
	}

	s.details.StylizationAnalysis = s.probes.Stylization.Details
	if !detailBool(s.probes.Stylization.Details, "isStylized") {
		return
	}

	boost := detailFloat(s.probes.Stylization.Details, "fakeBoost")
	if boost <= 0 {
		return
	}
	s.fake += boost
	s.details.StylizationBoost = &boost
}

// phase1Stage adds the format-forensics boosts, each independently gated.
func phase1Stage(s *boostState) {
	if s.mediaType != model.MediaTypeImage || s.probes == nil {
		return
	}

	boost := 0.0

	if s.probes.Compression != nil {
		s.details.CompressionAnalysis = s.probes.Compression.Details
		if detailBool(s.probes.Compression.Details, "doubleCompression") {
			boost += s.cfg.DoubleCompression
		}
	}

	if s.probes.Exif != nil {
		s.details.ExifAnalysis = s.probes.Exif.Details
		if detailBool(s.probes.Exif.Details, "editingSoftwareDetected") {
			boost += s.cfg.EditingSoftware
		}
		if detailBool(s.probes.Exif.Details, "metadataStripped") {
			boost += s.cfg.MetadataStripped
		}
	}

	if s.probes.Blending != nil {
		s.details.BlendingAnalysis = s.probes.Blending.Details
		if detailBool(s.probes.Blending.Details, "detected") {
			boost += s.cfg.Blending
		}
	}

	if boost > 0 {
		s.fake += boost
		s.details.Phase1Boost = &boost
	}
}

// phase2Stage adds geometric and ensemble cross-checks.
func phase2Stage(s *boostState) {
	if s.mediaType != model.MediaTypeImage || s.probes == nil {
		return
	}

	boost := 0.0

	if s.probes.Landmarks != nil {
		s.details.LandmarkAnalysis = s.probes.Landmarks.Details
		if detailBool(s.probes.Landmarks.Details, "suspicious") {
			boost += s.cfg.Landmark
		}
		if detailBool(s.probes.Landmarks.Details, "tooSmooth") {
			boost += s.cfg.TooSmooth
		}
	}

	// Ensemble disagreement: the secondary probes voting well above the
	// cumulative score means the classifier missed something.
	secondary := secondaryScores(s.probes)
	if len(secondary) > 0 {
		disagreement := avgOf(secondary) - s.fake
		s.details.EnsembleAnalysis = map[string]interface{}{
			"secondaryMean": avgOf(secondary),
			"disagreement":  disagreement,
		}
		if disagreement > s.cfg.EnsembleGate {
			boost += disagreement * s.cfg.EnsembleScale
		}
	}

	if boost > 0 {
		s.fake += boost
		s.details.Phase2Boost = &boost
	}
}

func secondaryScores(probes *ProbeContext) []float64 {
	var out []float64
	for _, pr := range []*model.ProbeResult{
		probes.Compression, probes.Exif, probes.Blending, probes.Landmarks,
	} {
		if pr != nil {
			out = append(out, pr.Score)
		}
	}
	return out
}

func detailBool(details map[string]interface{}, key string) bool {
	if details == nil {
		return false
	}
	v, ok := details[key].(bool)
	return ok && v
}

func detailFloat(details map[string]interface{}, key string) float64 {
	if details == nil {
		return 0
	}
	switch v := details[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
