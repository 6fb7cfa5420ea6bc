package probe

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

func imagePt(k int) image.Point {
	return image.Pt(k, k)
}

// cannyEdges runs Canny on a gray Mat. The caller closes the result.
func cannyEdges(gray gocv.Mat, t1, t2 float32) gocv.Mat {
	edges := gocv.NewMat()
	gocv.Canny(gray, &edges, t1, t2)
	return edges
}

// sobelMagnitude returns per-pixel gradient magnitudes of a gray Mat.
func sobelMagnitude(gray gocv.Mat, ksize int) []float64 {
	sx := gocv.NewMat()
	defer sx.Close()
	gocv.Sobel(gray, &sx, gocv.MatTypeCV64F, 1, 0, ksize, 1, 0, gocv.BorderDefault)

	sy := gocv.NewMat()
	defer sy.Close()
	gocv.Sobel(gray, &sy, gocv.MatTypeCV64F, 0, 1, ksize, 1, 0, gocv.BorderDefault)

	xs := matValues(sx)
	ys := matValues(sy)
	if xs == nil || ys == nil || len(xs) != len(ys) {
		return nil
	}

	out := make([]float64, len(xs))
	for i := range xs {
		out[i] = hypot(xs[i], ys[i])
	}
	return out
}

var errHSVSplit = errors.New("hsv split failed")
