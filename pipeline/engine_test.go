package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/media"
)

func TestFaceSourceFrame(t *testing.T) {
	frames := make([]gocv.Mat, 3)
	for i := range frames {
		frames[i] = gocv.NewMatWithSize(100, 100+20*i, gocv.MatTypeCV8UC3)
		defer frames[i].Close()
	}
	m := &media.Media{Type: model.MediaTypeVideo, Frames: frames}

	// A face found on a later sample crops from that sample, not frame 0.
	src := faceSourceFrame(m, model.FaceInfo{FrameIndex: 2})
	assert.Equal(t, 140, src.Cols())

	src = faceSourceFrame(m, model.FaceInfo{FrameIndex: 0})
	assert.Equal(t, 100, src.Cols())

	// Out-of-range indexes fall back to the first frame.
	src = faceSourceFrame(m, model.FaceInfo{FrameIndex: 9})
	assert.Equal(t, 100, src.Cols())
}
