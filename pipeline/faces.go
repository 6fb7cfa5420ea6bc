package pipeline

import (
	"image"
	"log/slog"
	"math"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
)

// FaceLocator wraps a Haar cascade with the parameter ladder and the
// plausibility filter. Detection runs on a width-capped downscale; boxes
// are rescaled back with rounding so coordinates stay in original pixel
// space.
type FaceLocator struct {
	cfgSvc config.IService

	// The cascade is not safe for concurrent detection calls.
	lock    sync.Mutex
	cascade gocv.CascadeClassifier
	loaded  bool
}

func NewFaceLocator(cfgSvc config.IService) (*FaceLocator, error) {
	loc := &FaceLocator{cfgSvc: cfgSvc}

	cascadeFile := cfgSvc.GetCascadeFile()
	if _, err := os.Stat(cascadeFile); os.IsNotExist(err) {
		return nil, model.GenError("face_locator", err, nil, "no cascade file at %s", cascadeFile)
	}

	loc.cascade = gocv.NewCascadeClassifier()
	if !loc.cascade.Load(cascadeFile) {
		loc.cascade.Close()
		return nil, model.GenError("face_locator", nil, nil, "unable to load cascade %s", cascadeFile)
	}
	loc.loaded = true

	lgr.Logger.Info("face locator ready",
		slog.String("cascade", cascadeFile),
		slog.String("openCV", gocv.Version()),
	)
	return loc, nil
}

func (loc *FaceLocator) Available() bool {
	return loc.loaded
}

func (loc *FaceLocator) Close() {
	if loc.loaded {
		loc.cascade.Close()
		loc.loaded = false
	}
}

// Detect returns all plausible faces in original-image pixel space,
// ordered by detection index.
func (loc *FaceLocator) Detect(img gocv.Mat) []model.FaceInfo {
	if !loc.loaded || img.Empty() {
		return nil
	}

	loc.lock.Lock()
	defer loc.lock.Unlock()

	params := loc.cfgSvc.GetDetectionParameters()

	// Downscale wide inputs before detection; cascade cost is quadratic.
	work := img
	ratio := 1.0
	var scaled gocv.Mat
	if img.Cols() > params.MaxDetectWidth {
		ratio = float64(img.Cols()) / float64(params.MaxDetectWidth)
		scaled = gocv.NewMat()
		height := int(math.Round(float64(img.Rows()) / ratio))
		gocv.Resize(img, &scaled, image.Pt(params.MaxDetectWidth, height), 0, 0, gocv.InterpolationArea)
		work = scaled
		defer scaled.Close()
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(work, &gray, gocv.ColorBGRToGray)

	minSize := int(math.Round(float64(params.MinFaceSize) / ratio))
	if minSize < 1 {
		minSize = 1
	}

	var rects []image.Rectangle
	for _, p := range loc.cfgSvc.GetCascadeParams() {
		rects = loc.cascade.DetectMultiScaleWithParams(
			gray,
			p.ScaleFactor,
			p.MinNeighbors,
			0,
			image.Pt(minSize, minSize),
			image.Pt(0, 0),
		)
		// First parameter combination with a hit wins.
		if len(rects) > 0 {
			break
		}
	}

	faces := []model.FaceInfo{}
	for i, r := range rects {
		x := int(math.Round(float64(r.Min.X) * ratio))
		y := int(math.Round(float64(r.Min.Y) * ratio))
		w := int(math.Round(float64(r.Dx()) * ratio))
		h := int(math.Round(float64(r.Dy()) * ratio))

		confidence := faceConfidence(w, h, params.ReferenceFaceSize)
		if confidence < params.FaceConfidenceThreshold {
			continue
		}

		faces = append(faces, model.FaceInfo{
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Confidence: confidence,
			Index:      i,
		})
	}

	return faces
}

// faceConfidence blends a size score (saturating at the reference face
// area) with an aspect-ratio plausibility score.
func faceConfidence(w, h, reference int) float64 {
	if h == 0 {
		return 0
	}

	sizeScore := math.Min(1.0, float64(w*h)/float64(reference*reference))
	aspect := float64(w) / float64(h)
	aspectScore := 1.0 - math.Abs(1.0-aspect)*0.5

	return (sizeScore + aspectScore) / 2
}
