package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/media"
)

// fixedFinder feeds the generator a known face set without a cascade.
type fixedFinder struct {
	faces []model.FaceInfo
}

func (f fixedFinder) Detect(_ gocv.Mat) []model.FaceInfo {
	return f.faces
}

func TestGenerateVideoEnhancesFaceCrops(t *testing.T) {
	cfgSvc := config.NewHardCoded()
	face := model.FaceInfo{X: 60, Y: 60, Width: 100, Height: 100, Confidence: 0.9}

	fg := &FrameGenerator{
		cfgSvc:  cfgSvc,
		locator: fixedFinder{faces: []model.FaceInfo{face}},
		regions: NewRegionExtractor(cfgSvc),
	}

	frame := gocv.NewMatWithSize(240, 240, gocv.MatTypeCV8UC3)
	defer frame.Close()

	m := &media.Media{Type: model.MediaTypeVideo, Frames: []gocv.Mat{frame}}
	fs := fg.GenerateVideo(m)
	defer fs.Close()

	weights := cfgSvc.GetFrameWeights()
	require.Len(t, fs.Frames, 3)
	assert.Equal(t, "f1_face1", fs.Frames[0].Name)
	assert.Equal(t, weights.VideoKeyFace, fs.Frames[0].Weight)
	assert.Equal(t, "f1_face1_fft", fs.Frames[1].Name)
	assert.Equal(t, "f1_face1_eyes", fs.Frames[2].Name)

	// The face frame must be the enhanced crop, same as the image path.
	raw := fg.regions.FaceCrop(frame, face)
	expected := fg.regions.Enhance(raw)
	raw.Close()
	defer expected.Close()

	assert.Equal(t, expected.ToBytes(), fs.Frames[0].Mat.ToBytes())
}

func TestGenerateVideoRecordsDetectingFrame(t *testing.T) {
	cfgSvc := config.NewHardCoded()
	face := model.FaceInfo{X: 60, Y: 60, Width: 100, Height: 100, Confidence: 0.9}

	fg := &FrameGenerator{
		cfgSvc:  cfgSvc,
		locator: fixedFinder{faces: []model.FaceInfo{face}},
		regions: NewRegionExtractor(cfgSvc),
	}

	frames := make([]gocv.Mat, 3)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(240, 240, gocv.MatTypeCV8UC3)
		defer frames[i].Close()
	}

	m := &media.Media{Type: model.MediaTypeVideo, Frames: frames}
	fs := fg.GenerateVideo(m)
	defer fs.Close()

	require.Len(t, fs.Faces, 3)
	for i, f := range fs.Faces {
		assert.Equal(t, i, f.FrameIndex)
	}
}
