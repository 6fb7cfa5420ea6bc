package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// Style labels reported by the stylization probe.
const (
	StylePhotorealistic = "photorealistic"
	StyleRender3D       = "3d_render"
	StyleCartoon        = "cartoon"
	StyleAnime          = "anime"
	StyleDigitalArt     = "digital_art"
	StyleAvatar         = "avatar"
	StyleUnknown        = "unknown"
)

// stylizationProbe classifies content as photorealistic vs rendered/drawn.
// Unlike the filter and screen probes this one feeds a positive boost:
// stylized "people" are by definition not a genuine photograph.
type stylizationProbe struct{}

func NewStylization() Probe {
	return &stylizationProbe{}
}

func (p *stylizationProbe) Name() string {
	return "stylization"
}

func (p *stylizationProbe) Available() bool {
	return true
}

func (p *stylizationProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() || img.Channels() < 3 {
		return model.Neutral("not a color image")
	}

	skinScore := skinSmoothness(img)
	edgeScore := edgeUniformity(img)
	colorScore := paletteConcentration(img)
	outlineScore := cartoonOutlines(img)

	combined, boost, style := stylizationVerdict(skinScore, edgeScore, colorScore, outlineScore)

	indicators := []string{}
	if skinScore > 0.6 {
		indicators = append(indicators, "unnaturally_smooth_skin")
	}
	if edgeScore > 0.6 {
		indicators = append(indicators, "synthetic_edge_patterns")
	}
	if colorScore > 0.6 {
		indicators = append(indicators, "limited_color_palette")
	}
	if outlineScore > 0.5 {
		indicators = append(indicators, "cartoon_outlines_detected")
	}

	return model.ProbeResult{
		Score: combined,
		Details: map[string]interface{}{
			"isStylized": style != StylePhotorealistic,
			"styleType":  style,
			"fakeBoost":  round3(boost),
			"indicators": indicators,
			"scores": map[string]interface{}{
				"skin":    round3(skinScore),
				"edge":    round3(edgeScore),
				"color":   round3(colorScore),
				"outline": round3(outlineScore),
			},
		},
	}
}

// stylizationVerdict combines the four sub-scores with fixed weights and
// derives the boost handed to the aggregator. Skin texture dominates.
func stylizationVerdict(skin, edge, color, outline float64) (float64, float64, string) {
	combined := skin*0.35 + edge*0.25 + color*0.25 + outline*0.15

	switch {
	case combined > 0.65:
		style := StyleAvatar
		if outline > 0.6 {
			if skin > 0.7 {
				style = StyleAnime
			} else {
				style = StyleCartoon
			}
		} else if skin > 0.75 && edge > 0.6 {
			style = StyleRender3D
		} else if color > 0.7 {
			style = StyleDigitalArt
		}
		boost := combined * 0.5
		if boost > 0.4 {
			boost = 0.4
		}
		return combined, boost, style

	case combined > 0.45:
		return combined, combined * 0.3, StyleUnknown

	default:
		return combined, 0.0, StylePhotorealistic
	}
}

// skinSmoothness measures local texture variance inside a rough LAB skin
// mask; falls back to the whole image when no skin region is found.
func skinSmoothness(img gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return 0
	}
	defer channels[0].Close()
	defer channels[1].Close()
	defer channels[2].Close()

	gray := toGray(img)
	defer gray.Close()

	lv := localVariance(gray, 5)
	defer lv.Close()

	lvVals := matValues(lv)
	ls := matValues(channels[0])
	as := matValues(channels[1])
	bs := matValues(channels[2])
	if lvVals == nil || ls == nil {
		return 0
	}

	var skinVar []float64
	for i := range ls {
		if ls[i] > 40 && ls[i] < 230 &&
			as[i] > 115 && as[i] < 160 &&
			bs[i] > 115 && bs[i] < 170 {
			skinVar = append(skinVar, lvVals[i])
		}
	}

	textureVar := mean(lvVals)
	if len(skinVar) > 500 {
		textureVar = mean(skinVar)
	}

	switch {
	case textureVar < 20:
		return 0.9
	case textureVar < 50:
		return 0.7
	case textureVar < 100:
		return 0.4
	default:
		return 0.1
	}
}

// edgeUniformity: renders anti-alias every edge to the same gradient
// profile, so the gradient spread along edges collapses.
func edgeUniformity(img gocv.Mat) float64 {
	gray := toGray(img)
	defer gray.Close()

	edgesLow := cannyEdges(gray, 30, 80)
	defer edgesLow.Close()

	mags := sobelMagnitude(gray, 3)
	if mags == nil {
		return 0
	}

	edgePixels, err := edgesLow.DataPtrUint8()
	if err != nil || len(edgePixels) != len(mags) {
		return 0
	}

	var onEdge []float64
	for i, e := range edgePixels {
		if e > 0 {
			onEdge = append(onEdge, mags[i])
		}
	}

	uniformity := 0.5
	if len(onEdge) > 100 {
		uniformity = 1.0 - std(onEdge)/(mean(onEdge)+1)
	}

	switch {
	case uniformity > 0.7:
		return 0.8
	case uniformity > 0.5:
		return 0.5
	default:
		return 0.2
	}
}

// paletteConcentration quantizes the image to 16 colors with k-means and
// checks how much of the image the top clusters cover.
func paletteConcentration(img gocv.Mat) float64 {
	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(img, &small, imagePt(64), 0, 0, gocv.InterpolationArea)

	pixels := small.Reshape(1, small.Rows()*small.Cols())
	defer pixels.Close()

	data := gocv.NewMat()
	defer data.Close()
	pixels.ConvertTo(&data, gocv.MatTypeCV32F)

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.MaxIter|gocv.EPS, 10, 1.0)
	gocv.KMeans(data, 16, &labels, criteria, 3, gocv.KMeansRandomCenters, &centers)

	counts := make([]float64, 16)
	total := 0
	for i := 0; i < labels.Rows(); i++ {
		l := int(labels.GetIntAt(i, 0))
		if l >= 0 && l < 16 {
			counts[l]++
			total++
		}
	}

	colorScore := 0.3
	if total > 0 {
		for i := range counts {
			counts[i] /= float64(total)
		}
		insertionSort(counts)
		top3 := counts[15] + counts[14] + counts[13]
		top5 := top3 + counts[12] + counts[11]

		switch {
		case top3 > 0.7:
			colorScore = 0.85
		case top5 > 0.8:
			colorScore = 0.6
		default:
			colorScore = 0.2
		}
	}

	gray := toGray(img)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	lapVar := variance(matValues(lap))
	switch {
	case lapVar < 200:
		colorScore += 0.3
	case lapVar < 500:
		colorScore += 0.15
	}

	return clamp01(colorScore)
}

// cartoonOutlines detects the thin black outlines of drawn content.
func cartoonOutlines(img gocv.Mat) float64 {
	gray := toGray(img)
	defer gray.Close()

	dark := gocv.NewMat()
	defer dark.Close()
	gocv.Threshold(gray, &dark, 30, 255, gocv.ThresholdBinaryInv)

	total := gray.Rows() * gray.Cols()
	darkCount := gocv.CountNonZero(dark)
	if total == 0 || darkCount <= 100 {
		return 0.1
	}
	darkPct := float64(darkCount) / float64(total)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, imagePt(3))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(dark, &dilated, kernel)

	// Thin lines grow a lot under dilation; blobs do not.
	lineIndicator := float64(gocv.CountNonZero(dilated)) / float64(darkCount+1)

	switch {
	case lineIndicator > 2.5 && darkPct > 0.02 && darkPct < 0.15:
		return 0.8
	case darkPct > 0.01 && darkPct < 0.1:
		return 0.4
	default:
		return 0.1
	}
}
