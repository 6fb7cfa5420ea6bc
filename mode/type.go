package mode

import (
	"context"

	"github.com/khaledhikmat/dfd-go/pipeline"
)

// Processor is the contract every run mode implements. The processor owns
// its lifecycle and must return promptly once the context is cancelled.
type Processor func(canxCtx context.Context, svcs pipeline.ServicesFactory, engine *pipeline.Engine) error
