package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// optimalChromaStd is the a/b channel standard deviation of natural faces.
const optimalChromaStd = 20.0

// colorProbe checks color consistency of a face crop in LAB space.
// Generated faces drift toward either flat or oversaturated chroma.
type colorProbe struct{}

func NewColor() Probe {
	return &colorProbe{}
}

func (p *colorProbe) Name() string {
	return "color"
}

func (p *colorProbe) Available() bool {
	return true
}

func (p *colorProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() || img.Channels() < 3 {
		return model.Neutral("not a color image")
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return model.Neutral("lab split failed")
	}
	defer channels[0].Close()
	defer channels[1].Close()
	defer channels[2].Close()

	aStd := std(matValues(channels[1]))
	bStd := std(matValues(channels[2]))

	return model.ProbeResult{
		Score: colorSuspicion(aStd, bStd),
		Details: map[string]interface{}{
			"aStd": round3(aStd),
			"bStd": round3(bStd),
		},
	}
}

// colorSuspicion measures deviation from the natural chroma spread in
// either direction, normalized by the optimal value.
func colorSuspicion(aStd, bStd float64) float64 {
	aDev := abs(aStd-optimalChromaStd) / optimalChromaStd
	bDev := abs(bStd-optimalChromaStd) / optimalChromaStd
	return clamp01((aDev + bDev) / 2)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
