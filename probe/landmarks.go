package probe

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// landmarkProbe runs geometric sanity checks on a face crop: left/right
// mirror symmetry, eye-to-mouth edge-density ratio and global texture
// spread. Real faces are asymmetric within a band; synthesis lands outside
// it in either direction.
type landmarkProbe struct{}

func NewLandmarks() Probe {
	return &landmarkProbe{}
}

func (p *landmarkProbe) Name() string {
	return "landmarks"
}

func (p *landmarkProbe) Available() bool {
	return true
}

func (p *landmarkProbe) Run(face gocv.Mat) model.ProbeResult {
	if face.Empty() {
		return model.Neutral("empty face crop")
	}

	gray := toGray(face)
	defer gray.Close()

	rows, cols := gray.Rows(), gray.Cols()
	if rows < 32 || cols < 32 {
		return model.Neutral("face crop too small")
	}

	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(gray, &flipped, 1)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, flipped, &diff)

	symmetry := 1.0 - mean(matValues(diff))/255.0

	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()

	eyeRect := image.Rect(cols/10, rows*20/100, cols*9/10, rows*45/100)
	mouthRect := image.Rect(cols*2/10, rows*55/100, cols*8/10, rows*85/100)

	eyeRegion := edges.Region(eyeRect)
	defer eyeRegion.Close()
	mouthRegion := edges.Region(mouthRect)
	defer mouthRegion.Close()

	eyeDensity := edgeDensity(eyeRegion)
	mouthDensity := edgeDensity(mouthRegion)
	ratio := eyeDensity / (mouthDensity + 1e-6)

	textureStd := std(matValues(gray))

	score, suspicious, tooSmooth := landmarkSuspicion(symmetry, ratio, textureStd)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"mirrorSymmetry":   round3(symmetry),
			"eyeMouthRatio":    round3(ratio),
			"textureStd":       round3(textureStd),
			"suspicious":       suspicious,
			"tooSmooth":        tooSmooth,
			"eyeEdgeDensity":   round3(eyeDensity),
			"mouthEdgeDensity": round3(mouthDensity),
		},
	}
}

// landmarkSuspicion aggregates the three geometric signals. Symmetry above
// 0.92 is machine-perfect; below 0.55 the halves barely match. Eye edges
// normally outnumber mouth edges by 1x-3x. Texture std below 20 means the
// skin has no pores at all.
func landmarkSuspicion(symmetry, eyeMouthRatio, textureStd float64) (float64, bool, bool) {
	score := 0.0

	if symmetry > 0.92 {
		score += 0.4
	} else if symmetry < 0.55 {
		score += 0.3
	}

	if eyeMouthRatio < 0.8 || eyeMouthRatio > 3.0 {
		score += 0.25
	}

	tooSmooth := textureStd < 20.0
	if tooSmooth {
		score += 0.2
	} else if textureStd > 80.0 {
		score += 0.1
	}

	score = clamp01(score)
	return score, score >= 0.4, tooSmooth
}
