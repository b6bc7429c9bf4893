package backend

import (
	"context"

	"github.com/khaledhikmat/vr-go/model"
)

// IService is the inference backend contract. Both operations are
// potentially slow, synchronous and independently failing; callers bound
// them with a context deadline.
type IService interface {
	Detect(ctx context.Context, frame string, sessionID string, returnAnnotated bool) (model.DetectionResult, error)
	ModelInfo(ctx context.Context) (model.ModelInfo, error)
	Stats() model.BackendStats
}
