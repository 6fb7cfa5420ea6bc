package classifier

import (
	"context"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

type fakeService struct {
	scoreFn func(index int, frame gocv.Mat) model.Score
}

// NewFake returns a deterministic stub that scores every frame with the
// provided function. Used by tests and by the pipeline when no model is
// available locally.
func NewFake(scoreFn func(index int, frame gocv.Mat) model.Score) IService {
	if scoreFn == nil {
		scoreFn = func(_ int, _ gocv.Mat) model.Score {
			return model.Score{Fake: 0.5, Real: 0.5}
		}
	}
	return &fakeService{scoreFn: scoreFn}
}

func (svc *fakeService) Loaded() bool {
	return true
}

func (svc *fakeService) ClassifyBatch(_ context.Context, frames []gocv.Mat) ([]model.Score, error) {
	scores := make([]model.Score, 0, len(frames))
	for i, frame := range frames {
		scores = append(scores, svc.scoreFn(i, frame))
	}
	return scores, nil
}
