package pipeline

import (
	"strings"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

// ProbeContext carries the heuristic probe outputs the boost chain reads.
// A nil entry means the probe never ran for this request.
type ProbeContext struct {
	Filter      *model.ProbeResult
	Screen      *model.ProbeResult
	Compression *model.ProbeResult
	Exif        *model.ProbeResult
	Blending    *model.ProbeResult
	Landmarks   *model.ProbeResult
	Stylization *model.ProbeResult
	Scene       *model.ProbeResult
}

// Aggregator turns the scored frame set into final {fake, real}
// probabilities. The boost chain is strictly ordered: every stage reads
// the cumulative score left by the previous one, so it runs single
// threaded after all frame and probe results are joined.
type Aggregator struct {
	cfgSvc config.IService
}

func NewAggregator(cfgSvc config.IService) *Aggregator {
	return &Aggregator{cfgSvc: cfgSvc}
}

// boostState is the accumulator the stages pass along.
type boostState struct {
	cfg       config.BoostParameters
	mediaType model.MediaType

	fake float64

	scored     []ScoredFrame
	faces      []model.FaceInfo
	faceScores []float64
	fftScores  []float64
	eyeScores  []float64

	probes  *ProbeContext
	details *model.AnalysisDetails
}

// BoostStage is one ordered score transformation.
type BoostStage struct {
	Name  string
	Apply func(s *boostState)
}

// Aggregate runs weighted aggregation, the ordered boost chain and the
// final clamp. Order is behavior: do not reorder stages.
func (ag *Aggregator) Aggregate(scored []ScoredFrame, faces []model.FaceInfo, mediaType model.MediaType, probes *ProbeContext) (model.Score, *model.AnalysisDetails) {
	details := &model.AnalysisDetails{
		MediaType:     string(mediaType),
		TotalFrames:   len(scored),
		FacesDetected: len(faces),
		FaceScores:    []float64{},
	}

	var weightedFake, weightedReal, totalWeight float64
	fakeVotes := 0
	var faceScores, fftScores, eyeScores []float64

	for _, sf := range scored {
		weightedFake += sf.Score.Fake * sf.Weight
		weightedReal += sf.Score.Real * sf.Weight
		totalWeight += sf.Weight

		if sf.Score.Fake > 0.5 {
			fakeVotes++
		}

		name := strings.ToLower(sf.Name)
		switch {
		case strings.Contains(name, "fft"):
			fftScores = append(fftScores, sf.Score.Fake)
		case strings.Contains(name, "eye"):
			eyeScores = append(eyeScores, sf.Score.Fake)
		case strings.Contains(name, "face"):
			faceScores = append(faceScores, sf.Score.Fake)
		}

		details.FrameBreakdown = append(details.FrameBreakdown, model.FrameScore{
			Name:   sf.Name,
			Weight: sf.Weight,
			Fake:   sf.Score.Fake,
			Real:   sf.Score.Real,
		})
	}

	details.FakeVotes = fakeVotes
	details.RealVotes = len(scored) - fakeVotes
	if len(scored) > 0 {
		details.VoteRatio = float64(fakeVotes) / float64(len(scored))
	}
	details.FaceScores = faceScores
	if len(faceScores) > 0 {
		avg := avgOf(faceScores)
		details.AvgFaceScore = &avg
	}
	if len(fftScores) > 0 {
		avg := avgOf(fftScores)
		details.AvgFFTScore = &avg
	}
	if len(eyeScores) > 0 {
		avg := avgOf(eyeScores)
		details.AvgEyeScore = &avg
	}

	// A degenerate frame set must not propagate NaN into the clamp.
	if totalWeight == 0 {
		details.ContentType = "undetermined"
		return model.Score{Fake: 0.5, Real: 0.5}, details
	}

	avgFake := weightedFake / totalWeight
	avgReal := weightedReal / totalWeight

	// Normalize so the pair sums to one before the boosts move it.
	fake := avgFake / (avgFake + avgReal)

	state := &boostState{
		cfg:        ag.cfgSvc.GetBoostParameters(),
		mediaType:  mediaType,
		fake:       fake,
		scored:     scored,
		faces:      faces,
		faceScores: faceScores,
		fftScores:  fftScores,
		eyeScores:  eyeScores,
		probes:     probes,
		details:    details,
	}

	for _, stage := range boostChain {
		stage.Apply(state)
	}

	finalFake := clampScore(state.fake, state.cfg)
	return model.Score{Fake: finalFake, Real: 1 - finalFake}, details
}

// Finalize maps the fake score onto the 3-tier verdict.
func (ag *Aggregator) Finalize(score model.Score, details *model.AnalysisDetails) *model.Verdict {
	var classification model.Classification
	var confidence float64

	switch {
	case score.Fake > ag.cfgSvc.GetFakeThreshold():
		classification = model.ClassificationFake
		confidence = score.Fake
	case score.Fake > ag.cfgSvc.GetSuspiciousThreshold():
		classification = model.ClassificationSuspicious
		confidence = score.Fake
	default:
		classification = model.ClassificationReal
		confidence = score.Real
	}

	return &model.Verdict{
		Scores:         score,
		Classification: classification,
		Confidence:     confidence,
		Details:        details,
	}
}

func clampScore(fake float64, cfg config.BoostParameters) float64 {
	if fake > cfg.MaxFake {
		return cfg.MaxFake
	}
	if fake < cfg.MinFake {
		return cfg.MinFake
	}
	return fake
}

func avgOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func varianceOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := avgOf(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}
