package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// noiseProbe inspects the high-pass residual of an image. Real sensors
// leave moderate, consistent noise; synthesis leaves either none or chaos.
type noiseProbe struct{}

func NewNoise() Probe {
	return &noiseProbe{}
}

func (p *noiseProbe) Name() string {
	return "noise"
}

func (p *noiseProbe) Available() bool {
	return true
}

func (p *noiseProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() {
		return model.Neutral("empty image")
	}

	gray := toGray(img)
	defer gray.Close()

	f := gocv.NewMat()
	defer f.Close()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f, &blurred, imagePt(5), 0, 0, gocv.BorderDefault)

	residual := gocv.NewMat()
	defer residual.Close()
	gocv.Subtract(f, blurred, &residual)

	vals := matValues(residual)
	if vals == nil {
		return model.Neutral("residual extraction failed")
	}

	noiseStd := std(vals)

	return model.ProbeResult{
		Score: noiseSuspicion(noiseStd),
		Details: map[string]interface{}{
			"noiseStd":  round3(noiseStd),
			"noiseMean": round3(meanAbs(vals)),
		},
	}
}

func noiseSuspicion(noiseStd float64) float64 {
	switch {
	case noiseStd < 3.0:
		// Too uniform.
		return 0.7
	case noiseStd > 25.0:
		// Too chaotic.
		return 0.5
	default:
		return 0.0
	}
}
