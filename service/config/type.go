package config

// DetectionParameters controls the face locator and region extractors.
type DetectionParameters struct {
	OptimalSize             int     `toml:"optimal_size"`
	FaceMargin              float64 `toml:"face_margin"`
	MinFaceSize             int     `toml:"min_face_size"`
	FaceConfidenceThreshold float64 `toml:"face_confidence_threshold"`
	MaxDetectWidth          int     `toml:"max_detect_width"`
	ReferenceFaceSize       int     `toml:"reference_face_size"`
}

// CascadeParams is one (scaleFactor, minNeighbors) detector combination.
// The locator tries combinations in order and keeps the first that hits.
type CascadeParams struct {
	ScaleFactor  float64 `toml:"scale_factor"`
	MinNeighbors int     `toml:"min_neighbors"`
}

// BoostParameters holds every constant of the score adjustment chain. The
// values are hand-calibrated; tune them only against a labeled corpus.
type BoostParameters struct {
	TemporalCap           float64 `toml:"temporal_cap"`
	TemporalMin           float64 `toml:"temporal_min"`
	FFTAvgThreshold       float64 `toml:"fft_avg_threshold"`
	FFTAvgScale           float64 `toml:"fft_avg_scale"`
	EyeAvgThreshold       float64 `toml:"eye_avg_threshold"`
	EyeAvgScale           float64 `toml:"eye_avg_scale"`
	MultiFaceVarianceGate float64 `toml:"multi_face_variance_gate"`
	MultiFaceCap          float64 `toml:"multi_face_cap"`
	MultiFaceScale        float64 `toml:"multi_face_scale"`
	FilterIntensityGate   float64 `toml:"filter_intensity_gate"`
	FilterScale           float64 `toml:"filter_scale"`
	FilterFloor           float64 `toml:"filter_floor"`
	GanFrameThreshold     float64 `toml:"gan_frame_threshold"`
	GanBoost              float64 `toml:"gan_boost"`
	ScreenScale           float64 `toml:"screen_scale"`
	ScreenFloor           float64 `toml:"screen_floor"`
	NoFaceTrustThreshold  float64 `toml:"no_face_trust_threshold"`
	NoFaceLowSubScore     float64 `toml:"no_face_low_sub_score"`
	NoFaceAuthentic       float64 `toml:"no_face_authentic"`
	DoubleCompression     float64 `toml:"double_compression_boost"`
	EditingSoftware       float64 `toml:"editing_software_boost"`
	MetadataStripped      float64 `toml:"metadata_stripped_boost"`
	Blending              float64 `toml:"blending_boost"`
	Landmark              float64 `toml:"landmark_boost"`
	TooSmooth             float64 `toml:"too_smooth_boost"`
	EnsembleGate          float64 `toml:"ensemble_gate"`
	EnsembleScale         float64 `toml:"ensemble_scale"`
	MaxFake               float64 `toml:"max_fake"`
	MinFake               float64 `toml:"min_fake"`
}

// CenterCrop is one no-face center crop step: crop keeps pct of each
// dimension and votes with the given weight.
type CenterCrop struct {
	Pct    float64 `toml:"pct"`
	Weight float64 `toml:"weight"`
}

// FrameWeights fixes the relative vote importance of every generated frame
// type. The aggregator is sensitive to the ratios, not the magnitudes, so
// the relative ordering here must be preserved when tuning.
type FrameWeights struct {
	BaseFace        float64      `toml:"base_face"`
	FaceIndexStep   float64      `toml:"face_index_step"`
	MultiScales     []float64    `toml:"multi_scales"`
	MinScaledSize   int          `toml:"min_scaled_size"`
	MultiScaleFloor float64      `toml:"multi_scale_floor"`
	FFTFace         float64      `toml:"fft_face"`
	FullFFT         float64      `toml:"full_fft"`
	ColorBase       float64      `toml:"color_base"`
	Eyes            float64      `toml:"eyes"`
	EyeEdges        float64      `toml:"eye_edges"`
	Mouth           float64      `toml:"mouth"`
	FaceEdges       float64      `toml:"face_edges"`
	Sharpened       float64      `toml:"sharpened"`
	FullWithFaces   float64      `toml:"full_with_faces"`
	FullNoFaces     float64      `toml:"full_no_faces"`
	GlobalEdges     float64      `toml:"global_edges"`
	Contrast        float64      `toml:"contrast"`
	Mirror          float64      `toml:"mirror"`
	CenterCrops     []CenterCrop `toml:"center_crops"`
	CenterFFTScale  float64      `toml:"center_fft_scale"`
	VideoKeyFace    float64      `toml:"video_key_face"`
	VideoMidFace    float64      `toml:"video_mid_face"`
	VideoFFTScale   float64      `toml:"video_fft_scale"`
	VideoEyeScale   float64      `toml:"video_eye_scale"`
	VideoKeyFrame   float64      `toml:"video_key_frame"`
	VideoMidFrame   float64      `toml:"video_mid_frame"`
}

type IService interface {
	GetFakeThreshold() float64
	GetSuspiciousThreshold() float64
	GetVideoFrameCount() int
	GetDetectionParameters() DetectionParameters
	GetCascadeParams() []CascadeParams
	GetBoostParameters() BoostParameters
	GetFrameWeights() FrameWeights
	GetClassifierModelPath() string
	GetCascadeFile() string
	GetDebugFolder() string
	GetAnalysisCacheSize() int
	GetAnalysisCacheTTLSeconds() int
	GetServerPort() int
	GetAPIKey() string
	GetProbeMaxWorkers() int
	GetDownloadTimeoutSeconds() int
	GetMaxDownloadBytes() int64
}
