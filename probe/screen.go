package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// monitorAspects are the display aspect ratios a screen recording or a
// photographed monitor tends to show.
var monitorAspects = []float64{16.0 / 9.0, 16.0 / 10.0, 4.0 / 3.0, 21.0 / 9.0}

// screenProbe recognizes gaming/coding/UI footage so the aggregator can
// suppress false deepfake flags on it. Six boolean indicators vote with
// fixed weights.
type screenProbe struct{}

func NewScreen() Probe {
	return &screenProbe{}
}

func (p *screenProbe) Name() string {
	return "screen"
}

func (p *screenProbe) Available() bool {
	return true
}

type screenIndicators struct {
	MonitorRect    bool `json:"monitorRect"`
	HighSaturation bool `json:"highSaturation"`
	DarkWithSpots  bool `json:"darkWithSpots"`
	DenseEdges     bool `json:"denseEdges"`
	AxisGradients  bool `json:"axisGradients"`
	UniformBlocks  bool `json:"uniformBlocks"`
}

func (p *screenProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() || img.Channels() < 3 {
		return model.Neutral("not a color image")
	}

	gray := toGray(img)
	defer gray.Close()

	var ind screenIndicators

	ind.MonitorRect = hasMonitorRect(gray)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)
	channels := gocv.Split(hsv)
	if len(channels) == 3 {
		sats := matValues(channels[1])
		highSat := 0
		for _, s := range sats {
			if s > 150 {
				highSat++
			}
		}
		if len(sats) > 0 {
			ind.HighSaturation = float64(highSat)/float64(len(sats)) > 0.4
		}
	}
	for i := range channels {
		channels[i].Close()
	}

	vals := matValues(gray)
	if vals != nil {
		dark, bright := 0, 0
		for _, v := range vals {
			if v < 40 {
				dark++
			}
			if v > 220 {
				bright++
			}
		}
		darkFrac := float64(dark) / float64(len(vals))
		brightFrac := float64(bright) / float64(len(vals))
		ind.DarkWithSpots = darkFrac > 0.5 && brightFrac > 0.05 && brightFrac < 0.3
	}

	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()
	ind.DenseEdges = edgeDensity(edges) > 0.15

	ind.AxisGradients = axisAlignedGradientDominance(gray) > 0.6

	ind.UniformBlocks = uniformBlockRatio(gray) > 0.3

	score := screenScore(ind)

	return model.ProbeResult{
		Score: score,
		Details: map[string]interface{}{
			"isScreenContent": score >= 0.5,
			"confidence":      round3(score),
			"monitorRect":     ind.MonitorRect,
			"highSaturation":  ind.HighSaturation,
			"darkWithSpots":   ind.DarkWithSpots,
			"denseEdges":      ind.DenseEdges,
			"axisGradients":   ind.AxisGradients,
			"uniformBlocks":   ind.UniformBlocks,
		},
	}
}

// screenScore is the fixed weighted vote over the six indicators.
func screenScore(ind screenIndicators) float64 {
	score := 0.0
	if ind.MonitorRect {
		score += 0.30
	}
	if ind.HighSaturation {
		score += 0.15
	}
	if ind.DarkWithSpots {
		score += 0.15
	}
	if ind.DenseEdges {
		score += 0.15
	}
	if ind.AxisGradients {
		score += 0.15
	}
	if ind.UniformBlocks {
		score += 0.10
	}
	return clamp01(score)
}

// hasMonitorRect looks for a large bright rectangle whose aspect ratio
// matches a display.
func hasMonitorRect(gray gocv.Mat) bool {
	bright := gocv.NewMat()
	defer bright.Close()
	gocv.Threshold(gray, &bright, 180, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(bright, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	imgArea := float64(gray.Rows() * gray.Cols())
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		area := float64(rect.Dx() * rect.Dy())
		if area < imgArea*0.3 || rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		for _, target := range monitorAspects {
			if abs(aspect-target) < 0.1 {
				return true
			}
		}
	}
	return false
}

// axisAlignedGradientDominance is the energy fraction of gradients within
// ~10 degrees of horizontal or vertical. UI chrome is nearly all axis
// aligned; natural scenes are not.
func axisAlignedGradientDominance(gray gocv.Mat) float64 {
	sx := gocv.NewMat()
	defer sx.Close()
	gocv.Sobel(gray, &sx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault)

	sy := gocv.NewMat()
	defer sy.Close()
	gocv.Sobel(gray, &sy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault)

	xs := matValues(sx)
	ys := matValues(sy)
	if xs == nil || ys == nil {
		return 0
	}

	var axis, total float64
	for i := range xs {
		gx, gy := abs(xs[i]), abs(ys[i])
		m := hypot(gx, gy)
		if m < 10 {
			continue
		}
		total += m
		// Within ~10 degrees of an axis one component dwarfs the other.
		if gx > gy*5.67 || gy > gx*5.67 {
			axis += m
		}
	}
	if total == 0 {
		return 0
	}
	return axis / total
}

// uniformBlockRatio is the fraction of 16x16 grid cells with near-zero
// variance (flat UI panels, letterboxes, solid backgrounds).
func uniformBlockRatio(gray gocv.Mat) float64 {
	rows, cols := gray.Rows(), gray.Cols()
	grid := 16
	cellH, cellW := rows/grid, cols/grid
	if cellH == 0 || cellW == 0 {
		return 0
	}

	vals := matValues(gray)
	if vals == nil {
		return 0
	}

	uniform := 0
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			var cell []float64
			for y := gy * cellH; y < (gy+1)*cellH; y++ {
				for x := gx * cellW; x < (gx+1)*cellW; x++ {
					cell = append(cell, vals[y*cols+x])
				}
			}
			if variance(cell) < 25 {
				uniform++
			}
		}
	}
	return float64(uniform) / float64(grid*grid)
}
