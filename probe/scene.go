package probe

import (
	"math"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// Generator family labels for the no-face scene analysis.
const (
	GeneratorUnknown    = "unknown"
	GeneratorDalle      = "dall-e"
	GeneratorMidjourney = "midjourney"
	GeneratorSD         = "stable_diffusion"
	GeneratorGeneric    = "generic_ai"
	GeneratorLikelyReal = "likely_real"
)

// Scene classification tiers.
const (
	SceneLikelyAI        = "likely_ai_generated"
	SceneSuspicious      = "suspicious"
	SceneLikelyAuthentic = "likely_authentic"
)

// sceneProbe is the no-face branch analyzer: generator-family signature
// scorers, background artifact grid analysis and physical scene
// consistency, combined 0.5/0.25/0.25.
type sceneProbe struct{}

func NewScene() Probe {
	return &sceneProbe{}
}

func (p *sceneProbe) Name() string {
	return "scene"
}

func (p *sceneProbe) Available() bool {
	return true
}

func (p *sceneProbe) Run(img gocv.Mat) model.ProbeResult {
	if img.Empty() || img.Channels() < 3 {
		return model.Neutral("not a color image")
	}

	dalleScore, dalleSigs := dalleSignature(img)
	mjScore, mjSigs := midjourneySignature(img)
	sdScore, sdSigs := stableDiffusionSignature(img)

	bandingScore := colorBanding(img)
	uniformityScore := textureUniformity(img)
	genericScore := (bandingScore + uniformityScore) / 2

	generator, genConfidence := bestGenerator(dalleScore, mjScore, sdScore, genericScore)

	bgScore, bgArtifacts := backgroundArtifacts(img)
	sceneScore, sceneIssues := sceneConsistency(img)

	aiScore := genConfidence
	if generator == GeneratorLikelyReal {
		aiScore = 0
	}

	combined := aiScore*0.5 + bgScore*0.25 + (1-sceneScore)*0.25
	tier := sceneTier(combined)

	signatures := append(append(append([]string{}, dalleSigs...), mjSigs...), sdSigs...)

	return model.ProbeResult{
		Score: clamp01(combined),
		Details: map[string]interface{}{
			"classification":        tier,
			"aiGenerator":           generator,
			"aiGeneratorConfidence": round3(genConfidence),
			"aiSignatures":          signatures,
			"backgroundScore":       round3(bgScore),
			"backgroundArtifacts":   bgArtifacts,
			"sceneScore":            round3(sceneScore),
			"sceneIssues":           sceneIssues,
			"bandingScore":          round3(bandingScore),
			"uniformityScore":       round3(uniformityScore),
		},
	}
}

func sceneTier(combined float64) string {
	switch {
	case combined > 0.6:
		return SceneLikelyAI
	case combined > 0.35:
		return SceneSuspicious
	default:
		return SceneLikelyAuthentic
	}
}

// bestGenerator picks the family with the highest signature score; below
// 0.25 the image reads as a real photograph.
func bestGenerator(dalle, mj, sd, generic float64) (string, float64) {
	best, score := GeneratorDalle, dalle
	if mj > score {
		best, score = GeneratorMidjourney, mj
	}
	if sd > score {
		best, score = GeneratorSD, sd
	}
	if generic > score {
		best, score = GeneratorGeneric, generic
	}
	if score < 0.25 {
		return GeneratorLikelyReal, 1.0 - score
	}
	return best, score
}

// colorBanding counts Canny edges inside low-variance regions. Smooth
// gradients in real photos carry sensor noise and produce almost none.
func colorBanding(img gocv.Mat) float64 {
	gray := toGray(img)
	defer gray.Close()

	edges := cannyEdges(gray, 10, 30)
	defer edges.Close()

	lv := localVariance(gray, 15)
	defer lv.Close()

	lvVals := matValues(lv)
	edgeVals, err := edges.DataPtrUint8()
	if err != nil || lvVals == nil || len(edgeVals) != len(lvVals) {
		return 0
	}

	edgesInSmooth, smoothTotal := 0, 0
	for i := range lvVals {
		if lvVals[i] < 100 {
			smoothTotal++
			if edgeVals[i] > 0 {
				edgesInSmooth++
			}
		}
	}
	if smoothTotal == 0 {
		return 0
	}
	return clamp01(float64(edgesInSmooth) / float64(smoothTotal) * 50)
}

// textureUniformity scores Laplacian variance: too little texture reads
// as generated smoothness, far too much as synthetic noise.
func textureUniformity(img gocv.Mat) float64 {
	gray := toGray(img)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	textureVar := variance(matValues(lap))

	switch {
	case textureVar < 200:
		return 0.7 - (textureVar/200)*0.3
	case textureVar > 5000:
		return 0.3
	default:
		return 0.1
	}
}

func dalleSignature(img gocv.Mat) (float64, []string) {
	var sigs []string
	score := 0.0

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	channels := gocv.Split(hsv)
	if len(channels) == 3 {
		sats := matValues(channels[1])
		if std(sats) < 30 && mean(sats) > 100 {
			sigs = append(sigs, "uniform_high_saturation")
			score += 0.15
		}
	}
	for i := range channels {
		channels[i].Close()
	}

	gray := toGray(img)
	defer gray.Close()

	mags := sobelMagnitude(gray, 3)
	if mags != nil && std(mags) > 40 && mean(mags) < 15 {
		sigs = append(sigs, "sharp_edges_smooth_surfaces")
		score += 0.2
	}

	// Uniform background blur.
	f := gocv.NewMat()
	defer f.Close()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f, &blurred, imagePt(21), 0, 0, gocv.BorderDefault)

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(f, blurred, &diff)

	diffVals := matValues(diff)
	if diffVals != nil {
		blurUniformity := 1.0 - std(diffVals)/(mean(diffVals)+1)
		if blurUniformity > 0.7 {
			sigs = append(sigs, "uniform_blur_pattern")
			score += 0.15
		}
	}

	// Central frequency energy concentration.
	mag, rows, cols := fftMagnitude(gray)
	if mag != nil {
		logMag := make([]float64, len(mag))
		for i, v := range mag {
			logMag[i] = math.Log(v + 1)
		}

		var centerSum float64
		centerN := 0
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
				if fy < rows/4 && fx < cols/4 {
					centerSum += logMag[y*cols+x]
					centerN++
				}
			}
		}
		total := mean(logMag)
		if centerN > 0 && total > 0 {
			freqRatio := (centerSum / float64(centerN)) / (total + 0.001)
			if freqRatio > 1.5 {
				sigs = append(sigs, "unusual_frequency_distribution")
				score += 0.1
			}
		}
	}

	return clamp01(score), sigs
}

func midjourneySignature(img gocv.Mat) (float64, []string) {
	var sigs []string
	score := 0.0

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) == 3 {
		ls := matValues(channels[0])
		if ls != nil {
			lStd := std(ls)
			lRange := percentile(ls, 100) - percentile(ls, 0)
			if lStd > 60 && lRange > 200 {
				sigs = append(sigs, "dramatic_lighting")
				score += 0.15
			}
		}
	}
	for i := range channels {
		channels[i].Close()
	}

	gray := toGray(img)
	defer gray.Close()

	// Painterly texture: strong mid-frequency Laplacian energy.
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 7, 1, 0, gocv.BorderDefault)
	if meanAbs(matValues(lap)) > 20 {
		sigs = append(sigs, "painterly_texture")
		score += 0.2
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	hsvChannels := gocv.Split(hsv)
	if len(hsvChannels) == 3 {
		hues := matValues(hsvChannels[0])
		if len(hues) > 0 {
			hist := make([]float64, 18)
			for _, h := range hues {
				bin := int(h / 10)
				if bin >= 18 {
					bin = 17
				}
				hist[bin]++
			}
			for i := range hist {
				hist[i] /= float64(len(hues))
			}
			insertionSort(hist)
			if hist[17]+hist[16]+hist[15] > 0.5 {
				sigs = append(sigs, "concentrated_color_palette")
				score += 0.15
			}
		}
	}
	for i := range hsvChannels {
		hsvChannels[i].Close()
	}

	if radialBrightnessCorrelation(gray) < -0.2 {
		sigs = append(sigs, "artistic_vignetting")
		score += 0.1
	}

	return clamp01(score), sigs
}

func stableDiffusionSignature(img gocv.Mat) (float64, []string) {
	var sigs []string
	score := 0.0

	gray := toGray(img)
	defer gray.Close()

	f := gocv.NewMat()
	defer f.Close()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f, &blurred, imagePt(5), 0, 0, gocv.BorderDefault)

	noise := gocv.NewMat()
	defer noise.Close()
	gocv.Subtract(f, blurred, &noise)

	noiseVals := matValues(noise)
	if noiseVals == nil {
		return 0, nil
	}

	noiseStd := std(noiseVals)
	noiseMean := mean(noiseVals)
	var fourth float64
	for _, v := range noiseVals {
		d := v - noiseMean
		fourth += d * d * d * d
	}
	fourth /= float64(len(noiseVals))
	kurtosis := fourth / (math.Pow(noiseStd, 4) + 0.001)

	if noiseStd > 2.5 && noiseStd < 8 && kurtosis > 3.5 {
		sigs = append(sigs, "sd_noise_pattern")
		score += 0.2
	}

	// Denoising residue concentrated along edges.
	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphRect, imagePt(5))
	defer kernel.Close()

	edgeRegion := gocv.NewMat()
	defer edgeRegion.Close()
	gocv.Dilate(edges, &edgeRegion, kernel)
	gocv.Dilate(edgeRegion, &edgeRegion, kernel)

	regionVals, err := edgeRegion.DataPtrUint8()
	if err == nil && len(regionVals) == len(noiseVals) {
		var onEdge, offEdge []float64
		for i, r := range regionVals {
			if r > 0 {
				onEdge = append(onEdge, noiseVals[i])
			} else {
				offEdge = append(offEdge, noiseVals[i])
			}
		}
		if len(onEdge) > 0 && len(offEdge) > 0 {
			if std(onEdge)/(std(offEdge)+0.001) > 1.5 {
				sigs = append(sigs, "edge_artifacts")
				score += 0.15
			}
		}
	}

	// Skin tone quantization.
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	labChannels := gocv.Split(lab)
	if len(labChannels) == 3 {
		ls := matValues(labChannels[0])
		as := matValues(labChannels[1])
		bs := matValues(labChannels[2])
		if ls != nil {
			unique := map[int]bool{}
			skinPixels := 0
			for i := range ls {
				if as[i] > 125 && as[i] < 145 && bs[i] > 130 && bs[i] < 155 {
					skinPixels++
					unique[int(ls[i])] = true
				}
			}
			if skinPixels > 1000 && len(unique) < 50 {
				sigs = append(sigs, "skin_color_quantization")
				score += 0.1
			}
		}
	}
	for i := range labChannels {
		labChannels[i].Close()
	}

	return clamp01(score), sigs
}

// backgroundArtifacts runs an 8x8 grid analysis over edge density, blur
// variance and periodic frequency peaks.
func backgroundArtifacts(img gocv.Mat) (float64, []string) {
	var artifacts []string
	score := 0.0

	gray := toGray(img)
	defer gray.Close()

	rows, cols := gray.Rows(), gray.Cols()
	grid := 8
	cellH, cellW := rows/grid, cols/grid
	if cellH == 0 || cellW == 0 {
		return 0, nil
	}

	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()

	edgeVals, err := edges.DataPtrUint8()
	if err != nil {
		return 0, nil
	}

	densities := make([]float64, 0, grid*grid)
	for gy := 0; gy < grid; gy++ {
		for gx := 0; gx < grid; gx++ {
			count, total := 0, 0
			for y := gy * cellH; y < (gy+1)*cellH; y++ {
				for x := gx * cellW; x < (gx+1)*cellW; x++ {
					total++
					if edgeVals[y*cols+x] > 0 {
						count++
					}
				}
			}
			densities = append(densities, float64(count)/float64(total))
		}
	}

	// Background cells are the low-edge ones.
	threshold := percentile(densities, 30)
	var bg []float64
	for _, d := range densities {
		if d < threshold {
			bg = append(bg, d)
		}
	}
	if len(bg) > 5 && variance(bg) < 0.0001 {
		artifacts = append(artifacts, "too_uniform_background")
		score += 0.2
	}

	// Blur discontinuities across the grid.
	f := gocv.NewMat()
	defer f.Close()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f, &blurred, imagePt(11), 0, 0, gocv.BorderDefault)

	blurDiff := gocv.NewMat()
	defer blurDiff.Close()
	gocv.AbsDiff(f, blurred, &blurDiff)

	diffVals := matValues(blurDiff)
	if diffVals != nil {
		var cellVars []float64
		for gy := 0; gy < grid; gy++ {
			for gx := 0; gx < grid; gx++ {
				var cell []float64
				for y := gy * cellH; y < (gy+1)*cellH; y++ {
					for x := gx * cellW; x < (gx+1)*cellW; x++ {
						cell = append(cell, diffVals[y*cols+x])
					}
				}
				cellVars = append(cellVars, variance(cell))
			}
		}
		inconsistency := std(cellVars) / (mean(cellVars) + 0.001)
		if inconsistency > 2.0 {
			artifacts = append(artifacts, "inconsistent_blur")
			score += 0.15
		}
	}

	// Periodic frequency peaks away from DC.
	mag, mrows, mcols := fftMagnitude(gray)
	if mag != nil {
		logMag := make([]float64, len(mag))
		for i, v := range mag {
			logMag[i] = math.Log(v + 1)
		}
		peakThreshold := percentile(logMag, 99)

		peaks := 0
		for y := 0; y < mrows; y++ {
			fy := y
			if fy > mrows-y {
				fy = mrows - y
			}
			for x := 0; x < mcols; x++ {
				fx := x
				if fx > mcols-x {
					fx = mcols - x
				}
				if fy < 20 && fx < 20 {
					continue
				}
				if logMag[y*mcols+x] > peakThreshold {
					peaks++
				}
			}
		}
		if peaks > 10 {
			artifacts = append(artifacts, "repeating_patterns")
			score += 0.15
		}
	}

	return clamp01(score), artifacts
}

// sceneConsistency starts at 1.0 (fully consistent) and subtracts for
// each physical inconsistency found.
func sceneConsistency(img gocv.Mat) (float64, []string) {
	var issues []string
	score := 1.0

	gray := toGray(img)
	defer gray.Close()

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(img, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return score, issues
	}
	defer channels[0].Close()
	defer channels[1].Close()
	defer channels[2].Close()

	// Lighting direction entropy from luminance gradients.
	sx := gocv.NewMat()
	defer sx.Close()
	gocv.Sobel(channels[0], &sx, gocv.MatTypeCV64F, 1, 0, 5, 1, 0, gocv.BorderDefault)

	sy := gocv.NewMat()
	defer sy.Close()
	gocv.Sobel(channels[0], &sy, gocv.MatTypeCV64F, 0, 1, 5, 1, 0, gocv.BorderDefault)

	xs := matValues(sx)
	ys := matValues(sy)
	if xs != nil && ys != nil && len(xs) == len(ys) {
		mags := make([]float64, len(xs))
		for i := range xs {
			mags[i] = hypot(xs[i], ys[i])
		}
		magThreshold := percentile(mags, 70)

		hist := make([]float64, 8)
		n := 0
		for i := range mags {
			if mags[i] <= magThreshold {
				continue
			}
			angle := math.Atan2(ys[i], xs[i])
			bin := int((angle + math.Pi) / (2 * math.Pi) * 8)
			if bin >= 8 {
				bin = 7
			}
			hist[bin]++
			n++
		}
		if n > 100 {
			for i := range hist {
				hist[i] /= float64(n)
			}
			normEntropy := entropy(hist) / math.Log(8)
			if normEntropy > 0.85 {
				issues = append(issues, "multiple_light_sources")
				score -= 0.15
			}
		}
	}

	// Shadow edge sharpness.
	ls := matValues(channels[0])
	if ls != nil {
		rows, cols := gray.Rows(), gray.Cols()
		shadow := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8U)
		shadowCount := 0
		for y := 0; y < rows; y++ {
			for x := 0; x < cols; x++ {
				v := ls[y*cols+x]
				if v < 80 && v > 20 {
					shadow.SetUCharAt(y, x, 255)
					shadowCount++
				}
			}
		}
		if shadowCount > 500 {
			shadowF := gocv.NewMat()
			shadow.ConvertTo(&shadowF, gocv.MatTypeCV32F)

			shadowBlurred := gocv.NewMat()
			gocv.GaussianBlur(shadowF, &shadowBlurred, imagePt(11), 0, 0, gocv.BorderDefault)

			shadowDiff := gocv.NewMat()
			gocv.AbsDiff(shadowF, shadowBlurred, &shadowDiff)

			sharpness := mean(matValues(shadowDiff))
			if sharpness > 80 {
				issues = append(issues, "unnatural_sharp_shadows")
				score -= 0.1
			}

			shadowDiff.Close()
			shadowBlurred.Close()
			shadowF.Close()
		}
		shadow.Close()
	}

	// Vanishing line clustering.
	edges := cannyEdges(gray, 50, 150)
	defer edges.Close()

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, float32(math.Pi/180), 50, 50, 10)

	if lines.Rows() > 5 {
		angleHist := make([]int, 6)
		for i := 0; i < lines.Rows(); i++ {
			line := lines.GetVeciAt(i, 0)
			angle := math.Atan2(float64(line[3]-line[1]), float64(line[2]-line[0]))
			// Fold into [-pi/2, pi/2).
			for angle >= math.Pi/2 {
				angle -= math.Pi
			}
			for angle < -math.Pi/2 {
				angle += math.Pi
			}
			bin := int((angle + math.Pi/2) / math.Pi * 6)
			if bin >= 6 {
				bin = 5
			}
			angleHist[bin]++
		}

		dominant := 0
		for _, c := range angleHist {
			if float64(c) > float64(lines.Rows())*0.15 {
				dominant++
			}
		}
		if dominant > 3 {
			issues = append(issues, "inconsistent_perspective")
			score -= 0.15
		}
	}

	if score < 0 {
		score = 0
	}
	return score, issues
}
