package pipeline

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
	"github.com/khaledhikmat/dfd-go/service/config"
)

// RegionExtractor builds the derived analysis images: crops, strips,
// edge/sharp/frequency/color/noise renditions. Every output is resized to
// the optimal square so the classifier sees one input shape.
type RegionExtractor struct {
	cfgSvc config.IService
}

func NewRegionExtractor(cfgSvc config.IService) *RegionExtractor {
	return &RegionExtractor{cfgSvc: cfgSvc}
}

func (re *RegionExtractor) optimalSize() int {
	return re.cfgSvc.GetDetectionParameters().OptimalSize
}

// resizeOptimal produces an optimal-square copy. Lanczos keeps the fine
// texture the classifier keys on.
func (re *RegionExtractor) resizeOptimal(src gocv.Mat) gocv.Mat {
	size := re.optimalSize()
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(size, size), 0, 0, gocv.InterpolationLanczos4)
	return dst
}

// FaceCrop extracts a face with margin, clamped to image bounds, resized
// to the optimal square.
func (re *RegionExtractor) FaceCrop(img gocv.Mat, face model.FaceInfo) gocv.Mat {
	params := re.cfgSvc.GetDetectionParameters()

	mx := int(float64(face.Width) * params.FaceMargin)
	my := int(float64(face.Height) * params.FaceMargin)

	left := max(0, face.X-mx)
	top := max(0, face.Y-my)
	right := min(img.Cols(), face.X+face.Width+mx)
	bottom := min(img.Rows(), face.Y+face.Height+my)

	region := img.Region(image.Rect(left, top, right, bottom))
	defer region.Close()

	return re.resizeOptimal(region)
}

// EyeStrip extracts the upper-middle band of a face crop, the highest
// manipulation area in swaps.
func (re *RegionExtractor) EyeStrip(faceCrop gocv.Mat) gocv.Mat {
	w, h := faceCrop.Cols(), faceCrop.Rows()
	rect := image.Rect(w*10/100, h*20/100, w*90/100, h*45/100)

	region := faceCrop.Region(rect)
	defer region.Close()

	return re.resizeOptimal(region)
}

// MouthStrip extracts the lower-middle band of a face crop.
func (re *RegionExtractor) MouthStrip(faceCrop gocv.Mat) gocv.Mat {
	w, h := faceCrop.Cols(), faceCrop.Rows()
	rect := image.Rect(w*20/100, h*55/100, w*80/100, h*85/100)

	region := faceCrop.Region(rect)
	defer region.Close()

	return re.resizeOptimal(region)
}

// EdgeMap renders Laplacian magnitude as a 3-channel frame.
func (re *RegionExtractor) EdgeMap(src gocv.Mat) gocv.Mat {
	gray := grayOf(src)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 3, 1, 0, gocv.BorderDefault)

	absLap := gocv.NewMat()
	defer absLap.Close()
	gocv.ConvertScaleAbs(lap, &absLap, 1, 0)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(absLap, &bgr, gocv.ColorGrayToBGR)

	return re.resizeOptimal(bgr)
}

// Sharpen applies a double unsharp mask.
func (re *RegionExtractor) Sharpen(src gocv.Mat) gocv.Mat {
	out := src.Clone()
	for i := 0; i < 2; i++ {
		blurred := gocv.NewMat()
		gocv.GaussianBlur(out, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)

		sharp := gocv.NewMat()
		gocv.AddWeighted(out, 1.5, blurred, -0.5, 0, &sharp)

		blurred.Close()
		out.Close()
		out = sharp
	}

	resized := re.resizeOptimal(out)
	out.Close()
	return resized
}

// Enhance runs the face enhancement chain: bilateral denoise, luminance
// equalization, unsharp.
func (re *RegionExtractor) Enhance(src gocv.Mat) gocv.Mat {
	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.BilateralFilter(src, &denoised, 9, 75, 75)

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(denoised, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return re.resizeOptimal(src)
	}

	eq := gocv.NewMat()
	gocv.EqualizeHist(channels[0], &eq)
	channels[0].Close()
	channels[0] = eq

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)
	for i := range channels {
		channels[i].Close()
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(merged, &bgr, gocv.ColorLabToBGR)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(bgr, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)

	sharp := gocv.NewMat()
	defer sharp.Close()
	gocv.AddWeighted(bgr, 1.5, blurred, -0.5, 0, &sharp)

	return re.resizeOptimal(sharp)
}

// FrequencyMap renders the log-compressed, min-max normalized FFT
// magnitude spectrum as a 3-channel frame. Generators leave periodic
// artifacts here that survive the rendering.
func (re *RegionExtractor) FrequencyMap(src gocv.Mat) gocv.Mat {
	gray := grayOf(src)
	defer gray.Close()

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
		return re.resizeOptimal(src)
	}
	defer planes[0].Close()
	defer planes[1].Close()

	mag := gocv.NewMat()
	defer mag.Close()
	gocv.Magnitude(planes[0], planes[1], &mag)

	gocv.AddWeighted(mag, 1, mag, 0, 1, &mag)
	gocv.Log(mag, &mag)

	shiftQuadrants(&mag)

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(mag, &norm, 0, 255, gocv.NormMinMax)

	u8 := gocv.NewMat()
	defer u8.Close()
	norm.ConvertTo(&u8, gocv.MatTypeCV8U)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(u8, &bgr, gocv.ColorGrayToBGR)

	return re.resizeOptimal(bgr)
}

// shiftQuadrants swaps the spectrum quadrants so DC sits in the center.
func shiftQuadrants(m *gocv.Mat) {
	cx := m.Cols() / 2
	cy := m.Rows() / 2

	q0 := m.Region(image.Rect(0, 0, cx, cy))
	q1 := m.Region(image.Rect(cx, 0, cx*2, cy))
	q2 := m.Region(image.Rect(0, cy, cx, cy*2))
	q3 := m.Region(image.Rect(cx, cy, cx*2, cy*2))
	defer q0.Close()
	defer q1.Close()
	defer q2.Close()
	defer q3.Close()

	tmp := gocv.NewMat()
	defer tmp.Close()

	q0.CopyTo(&tmp)
	q3.CopyTo(&q0)
	tmp.CopyTo(&q3)

	q1.CopyTo(&tmp)
	q2.CopyTo(&q1)
	tmp.CopyTo(&q2)
}

// ColorMap returns the suspicion score from LAB chroma spread plus the
// luminance-equalized rendition used as an analysis frame.
func (re *RegionExtractor) ColorMap(faceCrop gocv.Mat) (float64, gocv.Mat) {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(faceCrop, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	if len(channels) != 3 {
		for i := range channels {
			channels[i].Close()
		}
		return 0, re.resizeOptimal(faceCrop)
	}

	aStd := matStd(channels[1])
	bStd := matStd(channels[2])

	const optimalStd = 20.0
	aDev := math.Abs(aStd-optimalStd) / optimalStd
	bDev := math.Abs(bStd-optimalStd) / optimalStd
	suspicion := math.Min(1.0, (aDev+bDev)/2)

	eq := gocv.NewMat()
	gocv.EqualizeHist(channels[0], &eq)
	channels[0].Close()
	channels[0] = eq

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)
	for i := range channels {
		channels[i].Close()
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(merged, &bgr, gocv.ColorLabToBGR)

	return suspicion, re.resizeOptimal(bgr)
}

// NoiseMap returns the residual suspicion score and the normalized
// high-pass residual rendered as an analysis frame.
func (re *RegionExtractor) NoiseMap(src gocv.Mat) (float64, gocv.Mat) {
	gray := grayOf(src)
	defer gray.Close()

	f32 := gocv.NewMat()
	defer f32.Close()
	gray.ConvertTo(&f32, gocv.MatTypeCV32F)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(f32, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	residual := gocv.NewMat()
	defer residual.Close()
	gocv.Subtract(f32, blurred, &residual)

	noiseStd := matStd(residual)

	suspicion := 0.0
	switch {
	case noiseStd < 3.0:
		suspicion = 0.7
	case noiseStd > 25.0:
		suspicion = 0.5
	}

	norm := gocv.NewMat()
	defer norm.Close()
	gocv.Normalize(residual, &norm, 0, 255, gocv.NormMinMax)

	u8 := gocv.NewMat()
	defer u8.Close()
	norm.ConvertTo(&u8, gocv.MatTypeCV8U)

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(u8, &bgr, gocv.ColorGrayToBGR)

	return suspicion, re.resizeOptimal(bgr)
}

// Contrast returns a contrast-stretched copy.
func (re *RegionExtractor) Contrast(src gocv.Mat, factor float64) gocv.Mat {
	stretched := gocv.NewMat()
	defer stretched.Close()
	// Scale around the mid-gray point.
	gocv.AddWeighted(src, factor, src, 0, 128*(1-factor), &stretched)

	return re.resizeOptimal(stretched)
}

// Mirror returns a horizontally flipped copy.
func (re *RegionExtractor) Mirror(src gocv.Mat) gocv.Mat {
	flipped := gocv.NewMat()
	defer flipped.Close()
	gocv.Flip(src, &flipped, 1)

	return re.resizeOptimal(flipped)
}

// CenterCrop keeps pct of each dimension around the image center.
func (re *RegionExtractor) CenterCrop(src gocv.Mat, pct float64) gocv.Mat {
	w, h := src.Cols(), src.Rows()
	mx := int(float64(w) * (1 - pct) / 2)
	my := int(float64(h) * (1 - pct) / 2)

	region := src.Region(image.Rect(mx, my, w-mx, h-my))
	defer region.Close()

	return re.resizeOptimal(region)
}

// grayOf returns a single-channel copy of src. The caller closes it.
func grayOf(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}

func matStd(m gocv.Mat) float64 {
	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV64F)

	vals, err := f.DataPtrFloat64()
	if err != nil || len(vals) == 0 {
		return 0
	}

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(len(vals))

	var sq float64
	for _, v := range vals {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)))
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
