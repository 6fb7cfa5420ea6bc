package pipeline

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/cache"
	"github.com/khaledhikmat/dfd-go/service/classifier"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/media"
	"github.com/khaledhikmat/dfd-go/service/storage"
)

// Frame is one derived analysis image with its vote weight.
type Frame struct {
	Mat    gocv.Mat
	Name   string
	Weight float64
}

func (f Frame) Close() {
	f.Mat.Close()
}

// ScoredFrame pairs a generated frame with its classifier output.
type ScoredFrame struct {
	Name   string
	Weight float64
	Score  model.Score
}

// ServicesFactory carries the collaborators the engine needs.
type ServicesFactory struct {
	CfgSvc        config.IService
	ClassifierSvc classifier.IService
	MediaSvc      media.IService
	CacheSvc      cache.IService
	StorageSvc    storage.IService
}

func closeFrames(frames []Frame) {
	for i := range frames {
		frames[i].Close()
	}
}

func imgPt(k int) image.Point {
	return image.Pt(k, k)
}
