package pipeline

import (
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
	"github.com/khaledhikmat/dfd-go/service/lgr"
	"github.com/khaledhikmat/dfd-go/service/media"
)

// FrameSet is the output of frame generation: derived frames plus the
// faces they came from.
type FrameSet struct {
	Frames []Frame
	Faces  []model.FaceInfo
}

func (fs *FrameSet) Close() {
	closeFrames(fs.Frames)
}

// faceFinder is the slice of the locator the generator needs.
type faceFinder interface {
	Detect(img gocv.Mat) []model.FaceInfo
}

// FrameGenerator applies the decision table that decides which derived
// frames get generated and at what vote weight, by face count.
type FrameGenerator struct {
	cfgSvc  config.IService
	locator faceFinder
	regions *RegionExtractor
}

func NewFrameGenerator(cfgSvc config.IService, locator *FaceLocator) *FrameGenerator {
	return &FrameGenerator{
		cfgSvc:  cfgSvc,
		locator: locator,
		regions: NewRegionExtractor(cfgSvc),
	}
}

// GenerateImage builds the still-image frame set.
func (fg *FrameGenerator) GenerateImage(img gocv.Mat) *FrameSet {
	weights := fg.cfgSvc.GetFrameWeights()
	params := fg.cfgSvc.GetDetectionParameters()
	size := params.OptimalSize

	faces := fg.locator.Detect(img)
	lgr.Logger.Debug("faces detected", slog.Int("count", len(faces)))

	fs := &FrameSet{Faces: faces}
	add := func(m gocv.Mat, name string, weight float64) {
		fs.Frames = append(fs.Frames, Frame{Mat: m, Name: name, Weight: weight})
	}

	for i, face := range faces {
		raw := fg.regions.FaceCrop(img, face)
		crop := fg.regions.Enhance(raw)
		raw.Close()
		baseWeight := weights.BaseFace - float64(i)*weights.FaceIndexStep

		// Multi-scale renditions of the face crop.
		for _, scale := range weights.MultiScales {
			scaledSize := int(float64(size) * scale)
			if scaledSize < weights.MinScaledSize {
				continue
			}
			scaled := downUp(crop, scaledSize, size)
			weight := baseWeight * scale
			if weight < weights.MultiScaleFloor {
				weight = weights.MultiScaleFloor
			}
			add(scaled, fmt.Sprintf("face%d_s%d", i+1, int(scale*100)), weight)
		}

		add(fg.regions.FrequencyMap(crop), fmt.Sprintf("face%d_fft", i+1), weights.FFTFace)

		colorSuspicion, colorFrame := fg.regions.ColorMap(crop)
		add(colorFrame, fmt.Sprintf("face%d_color", i+1), weights.ColorBase*(1.0+colorSuspicion))

		noiseSuspicion, noiseFrame := fg.regions.NoiseMap(crop)
		add(noiseFrame, fmt.Sprintf("face%d_noise", i+1), 1.0+noiseSuspicion)

		add(fg.regions.EyeStrip(crop), fmt.Sprintf("face%d_eyes", i+1), weights.Eyes)

		eyes := fg.regions.EyeStrip(crop)
		add(fg.regions.EdgeMap(eyes), fmt.Sprintf("face%d_eyes_edge", i+1), weights.EyeEdges)
		eyes.Close()

		add(fg.regions.MouthStrip(crop), fmt.Sprintf("face%d_mouth", i+1), weights.Mouth)
		add(fg.regions.EdgeMap(crop), fmt.Sprintf("face%d_edges", i+1), weights.FaceEdges)
		add(fg.regions.Sharpen(crop), fmt.Sprintf("face%d_sharp", i+1), weights.Sharpened)

		crop.Close()
	}

	// Full image always votes, stronger without faces.
	fullWeight := weights.FullNoFaces
	if len(faces) > 0 {
		fullWeight = weights.FullWithFaces
	}
	add(fg.regions.resizeOptimal(img), "full", fullWeight)
	add(fg.regions.FrequencyMap(img), "full_fft", weights.FullFFT)

	// Without faces, center-biased crops plus their spectra carry the vote.
	if len(faces) == 0 {
		for _, cc := range weights.CenterCrops {
			crop := fg.regions.CenterCrop(img, cc.Pct)
			add(crop.Clone(), fmt.Sprintf("center_%d", int(cc.Pct*100)), cc.Weight)
			add(fg.regions.FrequencyMap(crop), fmt.Sprintf("center_%d_fft", int(cc.Pct*100)), cc.Weight*weights.CenterFFTScale)
			crop.Close()
		}
	}

	add(fg.regions.EdgeMap(img), "edges", weights.GlobalEdges)
	add(fg.regions.Contrast(img, 1.3), "contrast", weights.Contrast)

	// Mirror test only makes sense with exactly one face.
	if len(faces) == 1 {
		add(fg.regions.Mirror(img), "mirror", weights.Mirror)
	}

	lgr.Logger.Debug("image frame set generated", slog.Int("frames", len(fs.Frames)))
	return fs
}

// GenerateVideo builds the frame set over already-sampled video frames.
// Key frames (first and last sample) vote heavier than mid frames.
func (fg *FrameGenerator) GenerateVideo(m *media.Media) *FrameSet {
	weights := fg.cfgSvc.GetFrameWeights()

	fs := &FrameSet{}
	add := func(mat gocv.Mat, name string, weight float64) {
		fs.Frames = append(fs.Frames, Frame{Mat: mat, Name: name, Weight: weight})
	}

	n := len(m.Frames)
	for i, frame := range m.Frames {
		key := i == 0 || i == n-1

		frameFaces := fg.locator.Detect(frame)
		for j, face := range frameFaces {
			face.FrameIndex = i
			raw := fg.regions.FaceCrop(frame, face)
			crop := fg.regions.Enhance(raw)
			raw.Close()

			weight := weights.VideoMidFace
			if key {
				weight = weights.VideoKeyFace
			}
			add(crop.Clone(), fmt.Sprintf("f%d_face%d", i+1, j+1), weight)
			fs.Faces = append(fs.Faces, face)

			// Spectra on every other sample to bound latency.
			if i%2 == 0 {
				add(fg.regions.FrequencyMap(crop), fmt.Sprintf("f%d_face%d_fft", i+1, j+1), weight*weights.VideoFFTScale)
			}

			if key {
				add(fg.regions.EyeStrip(crop), fmt.Sprintf("f%d_face%d_eyes", i+1, j+1), weight*weights.VideoEyeScale)
			}

			crop.Close()
		}

		if len(frameFaces) == 0 {
			weight := weights.VideoMidFrame
			if key {
				weight = weights.VideoKeyFrame
			}
			add(fg.regions.resizeOptimal(frame), fmt.Sprintf("frame_%d", i+1), weight)
		}
	}

	lgr.Logger.Debug("video frame set generated",
		slog.Int("frames", len(fs.Frames)),
		slog.Int("faces", len(fs.Faces)),
	)
	return fs
}

// downUp resizes through a smaller intermediate so resampling artifacts
// in the original survive into the classifier input.
func downUp(src gocv.Mat, throughSize, finalSize int) gocv.Mat {
	through := gocv.NewMat()
	defer through.Close()
	gocv.Resize(src, &through, imgPt(throughSize), 0, 0, gocv.InterpolationLanczos4)

	out := gocv.NewMat()
	gocv.Resize(through, &out, imgPt(finalSize), 0, 0, gocv.InterpolationLanczos4)
	return out
}
