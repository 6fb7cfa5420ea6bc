package config

import (
	"github.com/BurntSushi/toml"
)

// tomlService layers values from a TOML file over the hardcoded defaults.
// Only keys present in the file override; everything else falls through.
type tomlService struct {
	hardcodedService
	file tomlFile
}

type tomlFile struct {
	FakeThreshold       *float64             `toml:"fake_threshold"`
	SuspiciousThreshold *float64             `toml:"suspicious_threshold"`
	VideoFrameCount     *int                 `toml:"video_frame_count"`
	ClassifierModelPath *string              `toml:"classifier_model_path"`
	CascadeFile         *string              `toml:"cascade_file"`
	DebugFolder         *string              `toml:"debug_folder"`
	AnalysisCacheSize   *int                 `toml:"analysis_cache_size"`
	AnalysisCacheTTL    *int                 `toml:"analysis_cache_ttl_seconds"`
	ServerPort          *int                 `toml:"server_port"`
	ProbeMaxWorkers     *int                 `toml:"probe_max_workers"`
	DownloadTimeout     *int                 `toml:"download_timeout_seconds"`
	MaxDownloadBytes    *int64               `toml:"max_download_bytes"`
	Detection           *DetectionParameters `toml:"detection"`
	Cascade             []CascadeParams      `toml:"cascade"`
	Boosts              *BoostParameters     `toml:"boosts"`
	Weights             *FrameWeights        `toml:"weights"`
}

func NewFromTOML(path string) (IService, error) {
	svc := &tomlService{}
	if _, err := toml.DecodeFile(path, &svc.file); err != nil {
		return nil, err
	}
	return svc, nil
}

func (svc *tomlService) GetFakeThreshold() float64 {
	if svc.file.FakeThreshold != nil {
		return *svc.file.FakeThreshold
	}
	return svc.hardcodedService.GetFakeThreshold()
}

func (svc *tomlService) GetSuspiciousThreshold() float64 {
	if svc.file.SuspiciousThreshold != nil {
		return *svc.file.SuspiciousThreshold
	}
	return svc.hardcodedService.GetSuspiciousThreshold()
}

func (svc *tomlService) GetVideoFrameCount() int {
	if svc.file.VideoFrameCount != nil {
		return *svc.file.VideoFrameCount
	}
	return svc.hardcodedService.GetVideoFrameCount()
}

func (svc *tomlService) GetDetectionParameters() DetectionParameters {
	if svc.file.Detection != nil {
		return *svc.file.Detection
	}
	return svc.hardcodedService.GetDetectionParameters()
}

func (svc *tomlService) GetCascadeParams() []CascadeParams {
	if len(svc.file.Cascade) > 0 {
		return svc.file.Cascade
	}
	return svc.hardcodedService.GetCascadeParams()
}

func (svc *tomlService) GetBoostParameters() BoostParameters {
	if svc.file.Boosts != nil {
		return *svc.file.Boosts
	}
	return svc.hardcodedService.GetBoostParameters()
}

func (svc *tomlService) GetFrameWeights() FrameWeights {
	if svc.file.Weights != nil {
		return *svc.file.Weights
	}
	return svc.hardcodedService.GetFrameWeights()
}

func (svc *tomlService) GetClassifierModelPath() string {
	if svc.file.ClassifierModelPath != nil {
		return *svc.file.ClassifierModelPath
	}
	return svc.hardcodedService.GetClassifierModelPath()
}

func (svc *tomlService) GetCascadeFile() string {
	if svc.file.CascadeFile != nil {
		return *svc.file.CascadeFile
	}
	return svc.hardcodedService.GetCascadeFile()
}

func (svc *tomlService) GetDebugFolder() string {
	if svc.file.DebugFolder != nil {
		return *svc.file.DebugFolder
	}
	return svc.hardcodedService.GetDebugFolder()
}

func (svc *tomlService) GetAnalysisCacheSize() int {
	if svc.file.AnalysisCacheSize != nil {
		return *svc.file.AnalysisCacheSize
	}
	return svc.hardcodedService.GetAnalysisCacheSize()
}

func (svc *tomlService) GetAnalysisCacheTTLSeconds() int {
	if svc.file.AnalysisCacheTTL != nil {
		return *svc.file.AnalysisCacheTTL
	}
	return svc.hardcodedService.GetAnalysisCacheTTLSeconds()
}

func (svc *tomlService) GetServerPort() int {
	if svc.file.ServerPort != nil {
		return *svc.file.ServerPort
	}
	return svc.hardcodedService.GetServerPort()
}

func (svc *tomlService) GetProbeMaxWorkers() int {
	if svc.file.ProbeMaxWorkers != nil {
		return *svc.file.ProbeMaxWorkers
	}
	return svc.hardcodedService.GetProbeMaxWorkers()
}

func (svc *tomlService) GetDownloadTimeoutSeconds() int {
	if svc.file.DownloadTimeout != nil {
		return *svc.file.DownloadTimeout
	}
	return svc.hardcodedService.GetDownloadTimeoutSeconds()
}

func (svc *tomlService) GetMaxDownloadBytes() int64 {
	if svc.file.MaxDownloadBytes != nil {
		return *svc.file.MaxDownloadBytes
	}
	return svc.hardcodedService.GetMaxDownloadBytes()
}
