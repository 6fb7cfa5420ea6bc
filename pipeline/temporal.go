package pipeline

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// VideoAnalyzer runs the temporal forensics pass over sampled video
// frames: motion blur consistency, face tracking and mouth movement.
// The output is reporting only; score movement from temporal signals
// happens in the boost chain, which works off per-frame scores instead.
type VideoAnalyzer struct {
	locator *FaceLocator
}

func NewVideoAnalyzer(locator *FaceLocator) *VideoAnalyzer {
	return &VideoAnalyzer{locator: locator}
}

type motionBlurReport struct {
	FrameIndex    int      `json:"frameIndex"`
	BlurScore     float64  `json:"blurScore"`
	IsNatural     bool     `json:"isNatural"`
	BlurDirection *float64 `json:"blurDirection,omitempty"`
	Issues        []string `json:"issues"`
}

type faceTrackReport struct {
	FaceID           int      `json:"faceId"`
	Samples          int      `json:"samples"`
	ConsistencyScore float64  `json:"consistencyScore"`
	VelocityVariance float64  `json:"velocityVariance"`
	Issues           []string `json:"issues"`
}

type mouthReport struct {
	SyncScore        float64  `json:"syncScore"`
	IsSynced         bool     `json:"isSynced"`
	MovementVariance float64  `json:"movementVariance"`
	Issues           []string `json:"issues"`
}

// Analyze produces the temporal consistency record attached to
// AnalysisDetails.VideoForensics.
func (va *VideoAnalyzer) Analyze(frames []gocv.Mat) map[string]interface{} {
	if len(frames) < 2 {
		return nil
	}

	motion := va.motionBlur(frames)
	tracks, perFrameFaces := va.trackFaces(frames)
	mouth := va.mouthMovement(frames, perFrameFaces)

	var issues []string
	for _, m := range motion {
		issues = append(issues, m.Issues...)
	}
	for _, t := range tracks {
		issues = append(issues, t.Issues...)
	}
	if mouth != nil {
		issues = append(issues, mouth.Issues...)
	}

	motionScore := 1.0
	if len(motion) > 0 {
		var sum float64
		for _, m := range motion {
			sum += m.BlurScore
		}
		motionScore = sum / float64(len(motion))
	}
	faceScore := 1.0
	if len(tracks) > 0 {
		var sum float64
		for _, t := range tracks {
			sum += t.ConsistencyScore
		}
		faceScore = sum / float64(len(tracks))
	}
	lipScore := 1.0
	if mouth != nil {
		lipScore = mouth.SyncScore
	}

	overall := motionScore*0.3 + faceScore*0.4 + lipScore*0.3
	penalty := float64(len(issues)) * 0.05
	if penalty > 0.3 {
		penalty = 0.3
	}
	overall -= penalty
	if overall < 0 {
		overall = 0
	}

	report := map[string]interface{}{
		"isConsistent":     overall > 0.6 && len(issues) < 5,
		"consistencyScore": math.Round(overall*1000) / 1000,
		"motionAnalysis":   motion,
		"faceTracking":     tracks,
		"issues":           dedupeIssues(issues),
	}
	if mouth != nil {
		report["mouthMovement"] = mouth
	}
	return report
}

// motionBlur flags sudden sharpness changes and blur direction flips
// between consecutive frames. Natural motion blur transitions smoothly.
func (va *VideoAnalyzer) motionBlur(frames []gocv.Mat) []motionBlurReport {
	results := make([]motionBlurReport, 0, len(frames))

	var prevScore *float64
	var prevDir *float64

	for i, frame := range frames {
		score := blurScore(frame)
		dir := blurDirection(frame)

		var issues []string
		natural := true

		if prevScore != nil {
			if math.Abs(score-*prevScore) > 0.5 {
				issues = append(issues, "sudden_blur_change")
				natural = false
			}
			if prevDir != nil && dir != nil {
				change := math.Abs(*dir - *prevDir)
				if change > 180 {
					change = 360 - change
				}
				if change > 90 && score < 0.7 {
					issues = append(issues, "inconsistent_blur_direction")
					natural = false
				}
			}
		}
		if score < 0.3 && dir == nil {
			issues = append(issues, "unnatural_uniform_blur")
			natural = false
		}

		results = append(results, motionBlurReport{
			FrameIndex:    i,
			BlurScore:     math.Round(score*1000) / 1000,
			IsNatural:     natural,
			BlurDirection: dir,
			Issues:        issues,
		})

		s, d := score, dir
		prevScore = &s
		prevDir = d
	}

	return results
}

// trackFaces follows up to 5 faces across frames by size rank and scores
// the movement. Teleporting and jitter are resampling artifacts a real
// camera does not produce.
func (va *VideoAnalyzer) trackFaces(frames []gocv.Mat) ([]faceTrackReport, [][]model.FaceInfo) {
	perFrame := make([][]model.FaceInfo, len(frames))
	if va.locator == nil || !va.locator.Available() {
		return nil, perFrame
	}

	tracks := map[int][]model.FaceInfo{}
	for i, frame := range frames {
		faces := va.locator.Detect(frame)
		perFrame[i] = faces
		for rank, f := range faces {
			if rank >= 5 {
				break
			}
			tracks[rank] = append(tracks[rank], f)
		}
	}

	var reports []faceTrackReport
	for id := 0; id < 5; id++ {
		positions, ok := tracks[id]
		if !ok || len(positions) < 3 {
			continue
		}

		var velocities []float64
		for i := 1; i < len(positions); i++ {
			px, py := positions[i-1].Center()
			cx, cy := positions[i].Center()
			velocities = append(velocities, math.Hypot(float64(cx-px), float64(cy-py)))
		}

		velVar := varianceOf(velocities)
		velMean := avgOf(velocities)
		maxVel := 0.0
		for _, v := range velocities {
			if v > maxVel {
				maxVel = v
			}
		}

		var issues []string
		if velVar > 100 && velMean > 5 {
			issues = append(issues, "jittery_movement")
		}
		if maxVel > 50 {
			issues = append(issues, "sudden_position_jump")
		}

		sizes := make([]float64, len(positions))
		for i, p := range positions {
			sizes[i] = float64(p.Size())
		}
		meanSize := avgOf(sizes)
		sizeVar := varianceOf(sizes) / (meanSize*meanSize + 1)
		if sizeVar > 0.2 {
			issues = append(issues, "inconsistent_face_size")
		}

		consistency := 1.0
		if velVar > 50 {
			consistency -= 0.2
		}
		if maxVel > 30 {
			consistency -= 0.2
		}
		if sizeVar > 0.1 {
			consistency -= 0.2
		}
		consistency -= 0.1 * float64(len(issues))
		if consistency < 0 {
			consistency = 0
		}

		reports = append(reports, faceTrackReport{
			FaceID:           id,
			Samples:          len(positions),
			ConsistencyScore: math.Round(consistency*1000) / 1000,
			VelocityVariance: math.Round(velVar*100) / 100,
			Issues:           issues,
		})
	}

	return reports, perFrame
}

// mouthMovement measures mouth openness and texture activity of the
// primary face. A static or perfectly uniform mouth across a talking
// clip is a puppeting artifact.
func (va *VideoAnalyzer) mouthMovement(frames []gocv.Mat, perFrame [][]model.FaceInfo) *mouthReport {
	var openness, activity []float64

	for i, frame := range frames {
		if len(perFrame[i]) == 0 {
			continue
		}
		face := perFrame[i][0]

		fx := clampInt(face.X, 0, frame.Cols()-1)
		fy := clampInt(face.Y, 0, frame.Rows()-1)
		fw := clampInt(face.Width, 1, frame.Cols()-fx)
		fh := clampInt(face.Height, 1, frame.Rows()-fy)

		// Mouth sits in the lower 40% of the face, middle 50%.
		top := fy + int(float64(fh)*0.55)
		bottom := fy + int(float64(fh)*0.95)
		left := fx + int(float64(fw)*0.25)
		right := fx + int(float64(fw)*0.75)
		if bottom-top < 4 || right-left < 4 {
			continue
		}

		mouth := frame.Region(image.Rect(left, top, right, bottom))
		gray := grayOf(mouth)
		mouth.Close()

		edges := gocv.NewMat()
		gocv.Canny(gray, &edges, 50, 150)

		half := edges.Rows() / 2
		upper := edges.Region(image.Rect(0, 0, edges.Cols(), half))
		lower := edges.Region(image.Rect(0, half, edges.Cols(), edges.Rows()))
		openness = append(openness, math.Abs(edgeFraction(upper)-edgeFraction(lower)))
		upper.Close()
		lower.Close()
		edges.Close()

		lap := gocv.NewMat()
		gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
		s := matStd(lap)
		activity = append(activity, s*s)
		lap.Close()
		gray.Close()
	}

	if len(openness) < 3 {
		return nil
	}

	opennessVar := varianceOf(openness)
	activityVar := varianceOf(activity)

	var issues []string
	if opennessVar < 0.001 {
		issues = append(issues, "static_mouth")
	}
	if activityVar < 100 {
		issues = append(issues, "uniform_mouth_activity")
	}

	sync := 1.0
	if opennessVar < 0.005 {
		sync -= 0.3
	}
	if activityVar < 500 {
		sync -= 0.2
	}
	sync -= float64(len(issues)) * 0.15
	if sync < 0 {
		sync = 0
	}

	return &mouthReport{
		SyncScore:        math.Round(sync*1000) / 1000,
		IsSynced:         sync > 0.6,
		MovementVariance: math.Round(opennessVar*10000) / 10000,
		Issues:           issues,
	}
}

// blurScore maps Laplacian variance onto [0,1]. Sharp frames sit around
// 500-2000, heavy blur under 100.
func blurScore(frame gocv.Mat) float64 {
	gray := grayOf(frame)
	defer gray.Close()

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	s := matStd(lap)
	return math.Min((s*s)/1000, 1.0)
}

// blurDirection finds the dominant spectral angle, in degrees. Returns
// nil when the spectrum has no usable off-center energy.
func blurDirection(frame gocv.Mat) *float64 {
	gray := grayOf(frame)
	defer gray.Close()

	f32 := gocv.NewMat()
	defer f32.Close()
	gray.ConvertTo(&f32, gocv.MatTypeCV32F)

	dft := gocv.NewMat()
	defer dft.Close()
	gocv.DFT(f32, &dft, gocv.DftComplexOutput)

	planes := gocv.Split(dft)
	mag := gocv.NewMat()
	gocv.Magnitude(planes[0], planes[1], &mag)
	for i := range planes {
		planes[i].Close()
	}
	defer mag.Close()

	f64 := gocv.NewMat()
	defer f64.Close()
	mag.ConvertTo(&f64, gocv.MatTypeCV64F)
	vals, err := f64.DataPtrFloat64()
	if err != nil {
		return nil
	}

	rows, cols := f64.Rows(), f64.Cols()
	var hist [36]float64
	counted := 0
	for y := 0; y < rows; y++ {
		fy := y
		if fy > rows/2 {
			fy -= rows
		}
		for x := 0; x < cols; x++ {
			fx := x
			if fx > cols/2 {
				fx -= cols
			}
			if math.Hypot(float64(fy), float64(fx)) <= 10 {
				continue
			}
			counted++
			angle := math.Atan2(float64(fy), float64(fx))
			bin := int((angle + math.Pi) / (2 * math.Pi) * 36)
			if bin >= 36 {
				bin = 35
			}
			hist[bin] += math.Log(vals[y*cols+x] + 1)
		}
	}
	if counted == 0 {
		return nil
	}

	best := 0
	for i := 1; i < 36; i++ {
		if hist[i] > hist[best] {
			best = i
		}
	}
	center := (float64(best)+0.5)/36*2*math.Pi - math.Pi
	deg := math.Round(center/math.Pi*180*10) / 10
	return &deg
}

func edgeFraction(edges gocv.Mat) float64 {
	total := edges.Rows() * edges.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(edges)) / float64(total)
}

func dedupeIssues(issues []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range issues {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
