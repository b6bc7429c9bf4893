package guardrail

import (
	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vr-go/model"
)

// IService validates everything that crosses the relay boundary: client
// frames and session ids on the way in, backend detections on the way
// out. It also rate-limits frames per session.
type IService interface {
	ValidateSessionID(id string) error
	// ValidateFrame decodes and checks a base64 frame payload. The caller
	// owns the returned Mat and must close it.
	ValidateFrame(payload string, sessionID string) (gocv.Mat, error)
	FilterDetections(detections []model.Detection, rows, cols int) ([]model.Detection, []string)
	ResetSession(id string)
}
