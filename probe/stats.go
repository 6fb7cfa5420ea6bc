package probe

import (
	"math"

	"gocv.io/x/gocv"
)

// Scalar statistics over pixel buffers. gocv's Mat reductions do not cover
// percentile/entropy/correlation, so these operate on extracted slices.

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

func std(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func meanAbs(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Abs(x)
	}
	return sum / float64(len(xs))
}

func percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	insertionSort(sorted)
	idx := int(p / 100 * float64(len(sorted)-1))
	return sorted[idx]
}

func insertionSort(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

// entropy of a normalized histogram in nats.
func entropy(hist []float64) float64 {
	e := 0.0
	for _, h := range hist {
		if h > 0 {
			e -= h * math.Log(h+0.001)
		}
	}
	return e
}

func correlation(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var num, dx, dy float64
	for i := range xs {
		a := xs[i] - mx
		b := ys[i] - my
		num += a * b
		dx += a * a
		dy += b * b
	}
	denom := math.Sqrt(dx * dy)
	if denom == 0 {
		return 0
	}
	return num / denom
}

// toGray returns a single-channel 8-bit copy of src. The caller closes it.
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}

// matValues extracts every pixel of a single-channel Mat as float64.
func matValues(m gocv.Mat) []float64 {
	f := gocv.NewMat()
	defer f.Close()
	m.ConvertTo(&f, gocv.MatTypeCV64F)

	vals, err := f.DataPtrFloat64()
	if err != nil {
		return nil
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out
}

// localVariance computes per-pixel variance over a k x k window as
// blur(x^2) - blur(x)^2. The caller closes the returned Mat.
func localVariance(gray gocv.Mat, k int) gocv.Mat {
	f := gocv.NewMat()
	defer f.Close()
	gray.ConvertTo(&f, gocv.MatTypeCV32F)

	sq := gocv.NewMat()
	defer sq.Close()
	gocv.Multiply(f, f, &sq)

	meanSq := gocv.NewMat()
	defer meanSq.Close()
	gocv.Blur(sq, &meanSq, imagePt(k))

	m := gocv.NewMat()
	defer m.Close()
	gocv.Blur(f, &m, imagePt(k))

	mSq := gocv.NewMat()
	defer mSq.Close()
	gocv.Multiply(m, m, &mSq)

	out := gocv.NewMat()
	gocv.Subtract(meanSq, mSq, &out)
	return out
}

// edgeDensity is the fraction of non-zero pixels in a binary edge map.
func edgeDensity(edges gocv.Mat) float64 {
	total := edges.Rows() * edges.Cols()
	if total == 0 {
		return 0
	}
	return float64(gocv.CountNonZero(edges)) / float64(total)
}

func hypot(a, b float64) float64 {
	return math.Sqrt(a*a + b*b)
}
