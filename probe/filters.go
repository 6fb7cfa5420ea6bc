package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// filterProbe estimates how heavily a face crop was processed by a
// social-media beauty filter. The intensity is used to compensate the fake
// score downward: a filtered authentic selfie shares many low-level
// artifacts with a synthetic face.
type filterProbe struct{}

func NewFilter() Probe {
	return &filterProbe{}
}

func (p *filterProbe) Name() string {
	return "filter"
}

func (p *filterProbe) Available() bool {
	return true
}

// filterSignals carries the raw sub-signal measurements.
type filterSignals struct {
	smoothness     float64 // mean local variance
	edgeDensity    float64
	hueEntropy     float64 // nats over 18 bins
	orangeFrac     float64
	tealFrac       float64
	vignetteCorr   float64 // brightness vs radial distance
	skinLumaStd    float64
	skinPixels     int
	saturationMean float64
	saturationStd  float64
}

func (p *filterProbe) Run(face gocv.Mat) model.ProbeResult {
	if face.Empty() || face.Channels() < 3 {
		return model.Neutral("not a color face crop")
	}

	sig, err := measureFilterSignals(face)
	if err != nil {
		return model.Neutral(err.Error())
	}

	score := filterIntensity(sig)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"hasFilter":      score > 0.4,
			"intensity":      round3(score),
			"smoothness":     round3(sig.smoothness),
			"edgeDensity":    round3(sig.edgeDensity),
			"hueEntropy":     round3(sig.hueEntropy),
			"orangeFraction": round3(sig.orangeFrac),
			"tealFraction":   round3(sig.tealFrac),
			"vignetteCorr":   round3(sig.vignetteCorr),
			"skinLumaStd":    round3(sig.skinLumaStd),
			"saturationMean": round3(sig.saturationMean),
			"saturationStd":  round3(sig.saturationStd),
		},
	}
}

// filterIntensity sums the six additive sub-signals and caps at 1.
//
//  1. smoothed texture co-occurring with sharp edges (beautify + sharpen)
//  2. low hue entropy (color grading collapses the palette)
//  3. orange/teal co-occurrence (the standard grading LUT)
//  4. radial vignette
//  5. unnaturally uniform skin luminance
//  6. pumped, uniform saturation
func filterIntensity(sig filterSignals) float64 {
	score := 0.0

	if sig.smoothness < 50 && sig.edgeDensity > 0.05 {
		score += 0.25
	}
	if sig.hueEntropy < 2.0 {
		score += 0.15
	}
	if sig.orangeFrac > 0.15 && sig.tealFrac > 0.15 {
		score += 0.20
	}
	if sig.vignetteCorr < -0.3 {
		score += 0.15
	}
	if sig.skinPixels > 500 && sig.skinLumaStd < 12 {
		score += 0.15
	}
	if sig.saturationMean > 120 && sig.saturationStd < 40 {
		score += 0.10
	}

	return clamp01(score)
}

func measureFilterSignals(face gocv.Mat) (filterSignals, error) {
	var sig filterSignals

	gray := toGray(face)
	defer gray.Close()

	lv := localVariance(gray, 5)
	defer lv.Close()
	sig.smoothness = mean(matValues(lv))

	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()
	sig.edgeDensity = edgeDensity(edges)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(face, &hsv, gocv.ColorBGRToHSV)

	hsvChannels := gocv.Split(hsv)
	if len(hsvChannels) != 3 {
		for i := range hsvChannels {
			hsvChannels[i].Close()
		}
		return sig, errHSVSplit
	}
	defer hsvChannels[0].Close()
	defer hsvChannels[1].Close()
	defer hsvChannels[2].Close()

	hues := matValues(hsvChannels[0])
	sats := matValues(hsvChannels[1])

	hist := make([]float64, 18)
	orange, teal := 0, 0
	for _, h := range hues {
		bin := int(h / 10)
		if bin >= 18 {
			bin = 17
		}
		hist[bin]++
		// OpenCV hue is 0-179; orange around 10-25, teal around 85-105.
		if h >= 10 && h <= 25 {
			orange++
		}
		if h >= 85 && h <= 105 {
			teal++
		}
	}
	if len(hues) > 0 {
		for i := range hist {
			hist[i] /= float64(len(hues))
		}
		sig.hueEntropy = entropy(hist)
		sig.orangeFrac = float64(orange) / float64(len(hues))
		sig.tealFrac = float64(teal) / float64(len(hues))
	}

	sig.saturationMean = mean(sats)
	sig.saturationStd = std(sats)

	sig.vignetteCorr = radialBrightnessCorrelation(gray)

	skinStd, skinPixels := skinLuminanceSpread(face)
	sig.skinLumaStd = skinStd
	sig.skinPixels = skinPixels

	return sig, nil
}

// radialBrightnessCorrelation correlates pixel brightness with distance
// from the image center. Strong negative correlation means a vignette.
func radialBrightnessCorrelation(gray gocv.Mat) float64 {
	rows, cols := gray.Rows(), gray.Cols()
	vals := matValues(gray)
	if vals == nil {
		return 0
	}

	cy, cx := float64(rows)/2, float64(cols)/2
	dists := make([]float64, len(vals))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			dists[y*cols+x] = hypot(float64(y)-cy, float64(x)-cx)
		}
	}
	return correlation(dists, vals)
}

// skinLuminanceSpread measures L channel spread within a rough LAB skin
// mask. Beauty filters flatten it far below natural values.
func skinLuminanceSpread(img gocv.Mat) (float64, int) {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return 0, 0
	}
	defer channels[0].Close()
	defer channels[1].Close()
	defer channels[2].Close()

	ls := matValues(channels[0])
	as := matValues(channels[1])
	bs := matValues(channels[2])
	if ls == nil || as == nil || bs == nil {
		return 0, 0
	}

	var skinL []float64
	for i := range ls {
		if ls[i] > 40 && ls[i] < 230 &&
			as[i] > 115 && as[i] < 160 &&
			bs[i] > 115 && bs[i] < 170 {
			skinL = append(skinL, ls[i])
		}
	}
	return std(skinL), len(skinL)
}
