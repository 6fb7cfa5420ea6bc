package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// compressionProbe measures discontinuity at JPEG 8x8 block boundaries.
// A re-encoded (double compressed) image shows boundary steps well above
// the interior gradient but below the level of genuine edges.
type compressionProbe struct{}

func NewCompression() Probe {
	return &compressionProbe{}
}

func (p *compressionProbe) Name() string {
	return "compression"
}

func (p *compressionProbe) Available() bool {
	return true
}

func (p *compressionProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() {
		return model.Neutral("empty image")
	}

	gray := toGray(img)
	defer gray.Close()

	rows, cols := gray.Rows(), gray.Cols()
	if rows < 24 || cols < 24 {
		return model.Neutral("image too small for block analysis")
	}

	vals := matValues(gray)
	if vals == nil {
		return model.Neutral("pixel extraction failed")
	}

	var boundarySum, interiorSum float64
	var boundaryN, interiorN int

	// Vertical boundaries.
	for y := 0; y < rows; y++ {
		for x := 1; x < cols; x++ {
			d := abs(vals[y*cols+x] - vals[y*cols+x-1])
			if x%8 == 0 {
				boundarySum += d
				boundaryN++
			} else {
				interiorSum += d
				interiorN++
			}
		}
	}
	// Horizontal boundaries.
	for y := 1; y < rows; y++ {
		for x := 0; x < cols; x++ {
			d := abs(vals[y*cols+x] - vals[(y-1)*cols+x])
			if y%8 == 0 {
				boundarySum += d
				boundaryN++
			} else {
				interiorSum += d
				interiorN++
			}
		}
	}

	if boundaryN == 0 || interiorN == 0 {
		return model.Neutral("no block boundaries sampled")
	}

	boundaryDiff := boundarySum / float64(boundaryN)
	interiorDiff := interiorSum / float64(interiorN)
	ratio := boundaryDiff / (interiorDiff + 1e-6)

	score, double := blockinessScore(ratio, boundaryDiff)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"boundaryDiff":      round3(boundaryDiff),
			"interiorDiff":      round3(interiorDiff),
			"blockinessRatio":   round3(ratio),
			"doubleCompression": double,
		},
	}
}

// blockinessScore flags double compression when the boundary step sits in
// the telltale mid-range: clearly above the interior gradient but not at
// real-edge magnitude.
func blockinessScore(ratio, boundaryDiff float64) (float64, bool) {
	if ratio > 1.25 && boundaryDiff > 1.5 && boundaryDiff < 20.0 {
		return clamp01((ratio - 1.0) * 0.8), true
	}
	if ratio > 1.1 {
		return clamp01((ratio - 1.1) * 0.5), false
	}
	return 0.0, false
}
