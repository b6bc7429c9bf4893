package backend

import (
	"context"
	"time"

	"github.com/khaledhikmat/vr-go/model"
)

type fakeService struct {
	Detections []model.Detection
	Delay      time.Duration
	Err        error
}

// NewFake returns a canned backend for tests and offline runs. Delay is
// applied before answering (while honoring the context deadline) and Err,
// when set, fails every call.
func NewFake(detections []model.Detection, delay time.Duration, err error) IService {
	return &fakeService{
		Detections: detections,
		Delay:      delay,
		Err:        err,
	}
}

func (svc *fakeService) Detect(ctx context.Context, _ string, sessionID string, _ bool) (model.DetectionResult, error) {
	result := model.DetectionResult{SessionID: sessionID}

	if svc.Delay > 0 {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(svc.Delay):
		}
	}

	if svc.Err != nil {
		return result, svc.Err
	}

	result.Detections = svc.Detections
	result.FrameShape = []int{480, 640}
	result.Timestamp = float64(time.Now().UnixNano()) / float64(time.Second)
	return result, nil
}

func (svc *fakeService) ModelInfo(ctx context.Context) (model.ModelInfo, error) {
	if svc.Err != nil {
		return model.ModelInfo{}, svc.Err
	}

	classes := map[string]string{}
	for _, d := range svc.Detections {
		classes["0"] = d.ClassName
	}

	return model.ModelInfo{
		ModelType:       "fake",
		Classes:         classes,
		NumClasses:      len(classes),
		InputSize:       "Dynamic",
		TrackingEnabled: true,
	}, nil
}

func (svc *fakeService) Stats() model.BackendStats {
	return model.BackendStats{}
}
