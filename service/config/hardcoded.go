package config

import (
	"os"
)

type hardcodedService struct {
}

func NewHardCoded() IService {
	return &hardcodedService{}
}

func (svc *hardcodedService) GetFakeThreshold() float64 {
	// Calibrated against the v5 evaluation set. Do not tune casually.
	return 0.52
}

func (svc *hardcodedService) GetSuspiciousThreshold() float64 {
	return 0.42
}

func (svc *hardcodedService) GetVideoFrameCount() int {
	// Reduced from 10 to keep per-request latency bounded.
	return 5
}

func (svc *hardcodedService) GetDetectionParameters() DetectionParameters {
	return DetectionParameters{
		OptimalSize:             384,
		FaceMargin:              0.30,
		MinFaceSize:             40,
		FaceConfidenceThreshold: 0.6,
		MaxDetectWidth:          1280,
		ReferenceFaceSize:       150,
	}
}

func (svc *hardcodedService) GetCascadeParams() []CascadeParams {
	// Tried in order; first combination with a hit wins. The ordering is a
	// deliberate speed/recall tradeoff, not a ranking by quality.
	return []CascadeParams{
		{ScaleFactor: 1.1, MinNeighbors: 5},
		{ScaleFactor: 1.05, MinNeighbors: 3},
		{ScaleFactor: 1.2, MinNeighbors: 6},
	}
}

func (svc *hardcodedService) GetBoostParameters() BoostParameters {
	return BoostParameters{
		TemporalCap:           0.35,
		TemporalMin:           0.05,
		FFTAvgThreshold:       0.60,
		FFTAvgScale:           0.20,
		EyeAvgThreshold:       0.65,
		EyeAvgScale:           0.15,
		MultiFaceVarianceGate: 0.04,
		MultiFaceCap:          0.12,
		MultiFaceScale:        0.5,
		FilterIntensityGate:   0.40,
		FilterScale:           0.06,
		FilterFloor:           0.08,
		GanFrameThreshold:     0.52,
		GanBoost:              0.10,
		ScreenScale:           0.30,
		ScreenFloor:           0.10,
		NoFaceTrustThreshold:  0.50,
		NoFaceLowSubScore:     0.35,
		NoFaceAuthentic:       0.08,
		DoubleCompression:     0.08,
		EditingSoftware:       0.10,
		MetadataStripped:      0.05,
		Blending:              0.15,
		Landmark:              0.08,
		TooSmooth:             0.05,
		EnsembleGate:          0.20,
		EnsembleScale:         0.30,
		MaxFake:               0.99,
		MinFake:               0.01,
	}
}

func (svc *hardcodedService) GetFrameWeights() FrameWeights {
	return FrameWeights{
		BaseFace:        5.0,
		FaceIndexStep:   0.3,
		MultiScales:     []float64{1.0, 0.7},
		MinScaledSize:   128,
		MultiScaleFloor: 2.0,
		FFTFace:         3.0,
		FullFFT:         1.5,
		ColorBase:       1.2,
		Eyes:            3.5,
		EyeEdges:        2.0,
		Mouth:           3.0,
		FaceEdges:       2.5,
		Sharpened:       1.5,
		FullWithFaces:   1.0,
		FullNoFaces:     3.0,
		GlobalEdges:     1.0,
		Contrast:        0.8,
		Mirror:          1.0,
		CenterCrops: []CenterCrop{
			{Pct: 0.35, Weight: 4.5},
			{Pct: 0.45, Weight: 4.0},
			{Pct: 0.55, Weight: 3.5},
			{Pct: 0.65, Weight: 3.0},
		},
		CenterFFTScale: 0.5,
		VideoKeyFace:   3.5,
		VideoMidFace:   2.5,
		VideoFFTScale:  0.6,
		VideoEyeScale:  0.8,
		VideoKeyFrame:  2.0,
		VideoMidFrame:  1.5,
	}
}

func (svc *hardcodedService) GetClassifierModelPath() string {
	// For now, we are using a hardcoded value.
	// In the future, this should be read from a configuration file or environment variable.
	if p := os.Getenv("CLASSIFIER_MODEL_PATH"); p != "" {
		return p
	}
	return "./models/deepfake-detector-v1.onnx"
}

func (svc *hardcodedService) GetCascadeFile() string {
	if p := os.Getenv("CASCADE_FILE"); p != "" {
		return p
	}
	return "./models/haarcascade_frontalface_default.xml"
}

func (svc *hardcodedService) GetDebugFolder() string {
	// For now, we are using a hardcoded value.
	// In the future, this should be read from a configuration file or environment variable.
	return "./debug_frames"
}

func (svc *hardcodedService) GetAnalysisCacheSize() int {
	return 100
}

func (svc *hardcodedService) GetAnalysisCacheTTLSeconds() int {
	return 3600
}

func (svc *hardcodedService) GetServerPort() int {
	return 8000
}

func (svc *hardcodedService) GetAPIKey() string {
	return os.Getenv("DFD_API_KEY")
}

func (svc *hardcodedService) GetProbeMaxWorkers() int {
	// For now, we are using a hardcoded value.
	// In the future, this should be read from a configuration file or environment variable.
	return 3
}

func (svc *hardcodedService) GetDownloadTimeoutSeconds() int {
	return 60
}

func (svc *hardcodedService) GetMaxDownloadBytes() int64 {
	return 100 * 1024 * 1024
}
