package classifier

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// IService is the boundary to the opaque pretrained frame classifier. The
// whole frame set of one request is submitted in a single batch call to
// amortize the fixed per-invocation overhead.
//
// A failure here is fatal for the request: a silently defaulted score would
// be indistinguishable from a genuine "authentic" verdict.
type IService interface {
	ClassifyBatch(ctx context.Context, frames []gocv.Mat) ([]model.Score, error)
	Loaded() bool
}
