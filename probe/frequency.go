package probe

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// frequencyProbe looks for GAN fingerprints in the FFT magnitude spectrum.
// Natural images decay roughly as 1/f, so the radial profile has a clearly
// negative slope in log-log space. Upsampling artifacts from generators
// flatten the decay and leave isolated high-frequency peaks.
type frequencyProbe struct{}

func NewFrequency() Probe {
	return &frequencyProbe{}
}

func (p *frequencyProbe) Name() string {
	return "frequency"
}

func (p *frequencyProbe) Available() bool {
	return true
}

func (p *frequencyProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() {
		return model.Neutral("empty image")
	}

	gray := toGray(img)
	defer gray.Close()

	mag, rows, cols := fftMagnitude(gray)
	if mag == nil {
		return model.Neutral("fft failed")
	}

	slope := radialSlope(mag, rows, cols)
	density := highFreqPeakDensity(mag, rows, cols)

	score := frequencySuspicion(slope, density)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"radialSlope":     round3(slope),
			"highFreqPeakPct": round3(density * 100),
		},
	}
}

// frequencySuspicion converts the two spectrum measurements into a single
// suspicion value. Slope near or above zero means the 1/f decay is missing;
// peak density above ~1% means periodic upsampling residue.
func frequencySuspicion(slope, peakDensity float64) float64 {
	slopeSuspicion := 0.0
	if slope > -0.5 {
		slopeSuspicion = clamp01((slope + 0.5) / 1.5)
	}

	peakSuspicion := clamp01((peakDensity - 0.01) / 0.04)

	return clamp01(slopeSuspicion*0.6 + peakSuspicion*0.4)
}

// fftMagnitude returns the raw DFT magnitudes of a gray Mat row-major.
func fftMagnitude(gray gocv.Mat) ([]float64, int, int) {
	f32 := gocv.NewMat()
	defer f32.Close()
	gray.ConvertTo(&f32, gocv.MatTypeCV32F)

	dft := gocv.NewMat()
	defer dft.Close()
	gocv.DFT(f32, &dft, gocv.DftComplexOutput)

	planes := gocv.Split(dft)
	if len(planes) != 2 {
		for i := range planes {
			planes[i].Close()
		}
		return nil, 0, 0
	}
	defer planes[0].Close()
	defer planes[1].Close()

	magMat := gocv.NewMat()
	defer magMat.Close()
	gocv.Magnitude(planes[0], planes[1], &magMat)

	vals := matValues(magMat)
	if vals == nil {
		return nil, 0, 0
	}
	return vals, magMat.Rows(), magMat.Cols()
}

// radialSlope fits log(magnitude) against log(radius) by least squares.
// Frequencies use wrap-around coordinates, so no quadrant shift is needed.
func radialSlope(mag []float64, rows, cols int) float64 {
	maxR := int(math.Min(float64(rows), float64(cols)) / 2)
	if maxR < 4 {
		return 0
	}

	sums := make([]float64, maxR)
	counts := make([]int, maxR)

	for y := 0; y < rows; y++ {
		fy := y
		if fy > rows-y {
			fy = rows - y
		}
		for x := 0; x < cols; x++ {
			fx := x
			if fx > cols-x {
				fx = cols - x
			}
			r := int(math.Sqrt(float64(fy*fy + fx*fx)))
			if r >= 1 && r < maxR {
				sums[r] += mag[y*cols+x]
				counts[r]++
			}
		}
	}

	var logR, logM []float64
	for r := 1; r < maxR; r++ {
		if counts[r] == 0 {
			continue
		}
		avg := sums[r] / float64(counts[r])
		if avg <= 0 {
			continue
		}
		logR = append(logR, math.Log(float64(r)))
		logM = append(logM, math.Log(avg))
	}
	if len(logR) < 4 {
		return 0
	}

	mr, mm := mean(logR), mean(logM)
	var num, den float64
	for i := range logR {
		num += (logR[i] - mr) * (logM[i] - mm)
		den += (logR[i] - mr) * (logR[i] - mr)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// highFreqPeakDensity is the fraction of outer-band coefficients that stand
// more than 2.5 sigma above the outer-band mean.
func highFreqPeakDensity(mag []float64, rows, cols int) float64 {
	maxR := math.Min(float64(rows), float64(cols)) / 2
	cutoff := maxR * 0.25

	var outer []float64
	for y := 0; y < rows; y++ {
		fy := y
		if fy > rows-y {
			fy = rows - y
		}
		for x := 0; x < cols; x++ {
			fx := x
			if fx > cols-x {
				fx = cols - x
			}
			r := math.Sqrt(float64(fy*fy + fx*fx))
			if r > cutoff {
				outer = append(outer, mag[y*cols+x])
			}
		}
	}
	if len(outer) == 0 {
		return 0
	}

	m := mean(outer)
	s := std(outer)
	threshold := m + 2.5*s

	peaks := 0
	for _, v := range outer {
		if v > threshold {
			peaks++
		}
	}
	return float64(peaks) / float64(len(outer))
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
