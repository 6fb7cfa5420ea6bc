package probe

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// Probe is one heuristic suspicion signal over an image or face crop.
// Probes are pure and share no mutable state, so the engine may run them
// concurrently. A probe that cannot run reports model.Neutral instead of
// returning an error.
type Probe interface {
	Name() string
	Available() bool
	Run(img gocv.Mat) model.ProbeResult
}
