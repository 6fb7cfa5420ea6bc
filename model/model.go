package model

import (
	"fmt"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	return e.Message
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Classification is the 3-tier verdict derived from the final fake score.
type Classification string

const (
	ClassificationReal       Classification = "real"
	ClassificationSuspicious Classification = "suspicious"
	ClassificationFake       Classification = "fake"
)

// Score is one {fake, real} probability pair as produced by the classifier
// for a single frame, or the final aggregate after normalization.
type Score struct {
	Fake float64 `json:"fake"`
	Real float64 `json:"real"`
}

// FaceInfo describes one detected face in original-image pixel space.
// Immutable after creation; downstream probes reference it, never mutate it.
type FaceInfo struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	Index      int     `json:"index"`
	FrameIndex int     `json:"frameIndex"`
	FakeScore  float64 `json:"fakeScore"`
	RealScore  float64 `json:"realScore"`
}

func (f FaceInfo) Size() int {
	return f.Width * f.Height
}

func (f FaceInfo) Center() (int, int) {
	return f.X + f.Width/2, f.Y + f.Height/2
}

// ProbeResult is the (score, details) pair every heuristic probe returns.
// Score is always clamped to [0,1]. Details must be JSON-serializable; a
// probe that cannot run reports score 0 plus an "error" detail marker.
type ProbeResult struct {
	Score   float64                `json:"score"`
	Details map[string]interface{} `json:"details"`
}

// Neutral returns the zero-suspicion result used when a probe degrades.
func Neutral(reason string) ProbeResult {
	return ProbeResult{
		Score:   0.0,
		Details: map[string]interface{}{"error": reason},
	}
}

// FrameScore is the per-frame breakdown entry reported to callers.
type FrameScore struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Fake   float64 `json:"fake"`
	Real   float64 `json:"real"`
}

// AnalysisDetails is the accumulator record built through the pipeline.
// Created empty per classification call, populated stage by stage, returned
// to the caller. Boost fields are pointers so that "never evaluated" (nil)
// is distinguishable from "evaluated to a value".
type AnalysisDetails struct {
	MediaType        string  `json:"mediaType"`
	TotalFrames      int     `json:"totalFrames"`
	FakeVotes        int     `json:"fakeVotes"`
	RealVotes        int     `json:"realVotes"`
	VoteRatio        float64 `json:"voteRatio"`
	ProcessingTimeMs int64   `json:"processingTimeMs"`

	FacesDetected int       `json:"facesDetected"`
	FaceScores    []float64 `json:"faceScores"`
	AvgFaceScore  *float64  `json:"avgFaceScore,omitempty"`
	AvgFFTScore   *float64  `json:"avgFftScore,omitempty"`
	AvgEyeScore   *float64  `json:"avgEyeScore,omitempty"`

	TemporalBoost      *float64 `json:"temporalBoost,omitempty"`
	FFTBoost           *float64 `json:"fftBoost,omitempty"`
	EyeBoost           *float64 `json:"eyeBoost,omitempty"`
	MultiFaceBoost     *float64 `json:"multiFaceBoost,omitempty"`
	FilterCompensation *float64 `json:"filterCompensation,omitempty"`
	GanBoost           *float64 `json:"ganBoost,omitempty"`
	ScreenCompensation *float64 `json:"screenCompensation,omitempty"`
	StylizationBoost   *float64 `json:"stylizationBoost,omitempty"`
	Phase1Boost        *float64 `json:"phase1Boost,omitempty"`
	Phase2Boost        *float64 `json:"phase2Boost,omitempty"`

	ContentType     string   `json:"contentType,omitempty"`
	HasFilter       *bool    `json:"hasFilter,omitempty"`
	FilterIntensity *float64 `json:"filterIntensity,omitempty"`
	NoFaceForced    bool     `json:"noFaceForced,omitempty"`

	CompressionAnalysis map[string]interface{} `json:"compressionAnalysis,omitempty"`
	ExifAnalysis        map[string]interface{} `json:"exifAnalysis,omitempty"`
	BlendingAnalysis    map[string]interface{} `json:"blendingAnalysis,omitempty"`
	LandmarkAnalysis    map[string]interface{} `json:"landmarkAnalysis,omitempty"`
	EnsembleAnalysis    map[string]interface{} `json:"ensembleAnalysis,omitempty"`
	FilterAnalysis      map[string]interface{} `json:"filterAnalysis,omitempty"`
	ScreenAnalysis      map[string]interface{} `json:"screenAnalysis,omitempty"`
	StylizationAnalysis map[string]interface{} `json:"stylizationAnalysis,omitempty"`
	SceneAnalysis       map[string]interface{} `json:"sceneAnalysis,omitempty"`
	MultiFaceAnalysis   map[string]interface{} `json:"multiFaceAnalysis,omitempty"`
	TemporalAnalysis    map[string]interface{} `json:"temporalAnalysis,omitempty"`
	VideoForensics      map[string]interface{} `json:"videoForensics,omitempty"`

	ProbeScores map[string]float64 `json:"probeScores,omitempty"`

	FrameBreakdown []FrameScore `json:"frameBreakdown,omitempty"`
}

// Verdict is what the engine hands back to its boundary callers.
type Verdict struct {
	Scores         Score            `json:"scores"`
	Classification Classification   `json:"classification"`
	Confidence     float64          `json:"confidence"`
	Details        *AnalysisDetails `json:"details"`
}

type EngineStats struct {
	RequestID   string  `json:"requestId"`
	Media       string  `json:"media"`
	Frames      int     `json:"frames"`
	Faces       int     `json:"faces"`
	Errors      int     `json:"errors"`
	Uptime      int64   `json:"uptime"`
	AvgProcTime float64 `json:"avgProcTime"`
	Timestamp   int64   `json:"timestamp"`
}

type ProbeStats struct {
	Name      string  `json:"name"`
	Runs      int     `json:"runs"`
	Errors    int     `json:"errors"`
	AvgScore  float64 `json:"avgScore"`
	Timestamp int64   `json:"timestamp"`
}
