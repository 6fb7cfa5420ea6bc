package probe

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// blendingProbe looks for a composite seam in the margin ring around a
// face bbox. A swap leaves a band of sharp edges where the donor face was
// blended into the scene; the ratio sits in a mid-band because genuine
// hair and jawline edges are sparser, and busy scenes saturate it.
type blendingProbe struct {
	face model.FaceInfo
}

func NewBlending(face model.FaceInfo) Probe {
	return &blendingProbe{face: face}
}

func (p *blendingProbe) Name() string {
	return "blending"
}

func (p *blendingProbe) Available() bool {
	return true
}

func (p *blendingProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() {
		return model.Neutral("empty image")
	}

	inner := image.Rect(p.face.X, p.face.Y, p.face.X+p.face.Width, p.face.Y+p.face.Height)
	mx := p.face.Width * 3 / 10
	my := p.face.Height * 3 / 10
	outer := image.Rect(inner.Min.X-mx, inner.Min.Y-my, inner.Max.X+mx, inner.Max.Y+my)
	outer = outer.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))

	if outer.Dx() < 8 || outer.Dy() < 8 {
		return model.Neutral("face margin outside image")
	}

	gray := toGray(img)
	defer gray.Close()

	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()

	ringEdges, ringPixels := 0, 0
	for y := outer.Min.Y; y < outer.Max.Y; y++ {
		for x := outer.Min.X; x < outer.Max.X; x++ {
			if image.Pt(x, y).In(inner) {
				continue
			}
			ringPixels++
			if edges.GetUCharAt(y, x) > 0 {
				ringEdges++
			}
		}
	}
	if ringPixels == 0 {
		return model.Neutral("empty margin ring")
	}

	ratio := float64(ringEdges) / float64(ringPixels)
	score := blendingSuspicion(ratio)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"seamEdgeRatio": round3(ratio),
			"detected":      score >= 0.5,
		},
	}
}

func blendingSuspicion(ratio float64) float64 {
	switch {
	case ratio < 0.05:
		return 0.0
	case ratio > 0.25:
		// Busy scene, edges everywhere.
		return 0.1
	default:
		return 0.7
	}
}
