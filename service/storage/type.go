package storage

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/dfd-go/model"
)

// IService persists the generated analysis frames of the most recent run so
// a developer can inspect exactly what the classifier voted on.
type IService interface {
	// Reset clears the previous run's frames.
	Reset() error
	// StoreFrame writes one analysis frame annotated with its name and
	// per-frame score. Returns the stored file path.
	StoreFrame(index int, name string, img gocv.Mat, score model.Score) (string, error)
	Finalize()
}
