package guardrail

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"gocv.io/x/gocv"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

type limitsService struct {
	CfgSvc config.IService

	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewLimits(cfgsvc config.IService) IService {
	return &limitsService{
		CfgSvc:  cfgsvc,
		windows: map[string][]time.Time{},
	}
}

func (svc *limitsService) ValidateSessionID(id string) error {
	if id == "" {
		return xerrors.New("session id cannot be empty")
	}

	if len(id) > 256 {
		return xerrors.New(fmt.Sprintf("session id too long: %d characters (max: 256)", len(id)))
	}

	for _, r := range id {
		if r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			continue
		}
		return xerrors.New("session id contains invalid characters (use only alphanumeric, _ and -)")
	}

	return nil
}

func (svc *limitsService) ValidateFrame(payload string, sessionID string) (gocv.Mat, error) {
	params := svc.CfgSvc.GetGuardrailParameters()

	if payload == "" {
		return gocv.Mat{}, xerrors.New("frame data is empty")
	}

	if len(payload) > params.MaxFrameBytes {
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("frame too large: %d bytes (max: %d)", len(payload), params.MaxFrameBytes))
	}

	if len(payload) < params.MinPayloadLength {
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("frame too small: %d bytes (min: %d)", len(payload), params.MinPayloadLength))
	}

	// Strip a data-URL prefix ("data:image/jpeg;base64,....") if present
	if i := strings.LastIndexByte(payload, ','); i >= 0 {
		payload = payload[i+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("invalid base64 payload: %s", err.Error()))
	}

	if len(raw) == 0 {
		return gocv.Mat{}, xerrors.New("decoded frame is empty")
	}

	img, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("error decoding image: %s", err.Error()))
	}

	if img.Empty() {
		img.Close()
		return gocv.Mat{}, xerrors.New("could not decode frame image")
	}

	rows, cols := img.Rows(), img.Cols()
	if rows < params.MinDimension || cols < params.MinDimension {
		img.Close()
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("frame too small: %dx%d pixels (min: %dx%d)", cols, rows, params.MinDimension, params.MinDimension))
	}

	if rows > params.MaxDimension || cols > params.MaxDimension {
		img.Close()
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("frame too large: %dx%d pixels (max: %dx%d)", cols, rows, params.MaxDimension, params.MaxDimension))
	}

	if img.Channels() != 3 {
		img.Close()
		return gocv.Mat{}, xerrors.New(fmt.Sprintf("invalid color format: expected 3 channels, got %d", img.Channels()))
	}

	if err := svc.checkRate(sessionID, params.MaxFramesPerSecond); err != nil {
		img.Close()
		return gocv.Mat{}, err
	}

	return img, nil
}

func (svc *limitsService) FilterDetections(detections []model.Detection, rows, cols int) ([]model.Detection, []string) {
	params := svc.CfgSvc.GetGuardrailParameters()

	if len(detections) == 0 {
		return nil, nil
	}

	w := float64(cols)
	h := float64(rows)

	var valid []model.Detection
	var warnings []string

	for i, det := range detections {
		if det.Confidence < params.MinConfidence {
			continue
		}

		x1, y1, x2, y2 := det.BBox[0], det.BBox[1], det.BBox[2], det.BBox[3]

		if x1 >= x2 || y1 >= y2 {
			warnings = append(warnings, fmt.Sprintf("detection %d: inverted bbox coordinates (%.1f, %.1f, %.1f, %.1f)", i, x1, y1, x2, y2))
			continue
		}

		// Reject boxes far outside the frame, clamp ones slightly outside
		if x1 < -w*0.1 || y1 < -h*0.1 || x2 > w*1.1 || y2 > h*1.1 {
			continue
		}
		if x1 < 0 || y1 < 0 || x2 > w || y2 > h {
			x1 = clamp(x1, 0, w)
			y1 = clamp(y1, 0, h)
			x2 = clamp(x2, 0, w)
			y2 = clamp(y2, 0, h)
			warnings = append(warnings, fmt.Sprintf("detection %d: bbox clamped to frame", i))
		}

		if (x2-x1)*(y2-y1) < params.MinBoxArea {
			continue
		}

		det.BBox = [4]float64{x1, y1, x2, y2}
		valid = append(valid, det)
	}

	// Cap detections per frame, keeping the highest-confidence ones
	if len(valid) > params.MaxDetectionsPerFrame {
		sort.Slice(valid, func(i, j int) bool {
			return valid[i].Confidence > valid[j].Confidence
		})
		removed := len(valid) - params.MaxDetectionsPerFrame
		valid = valid[:params.MaxDetectionsPerFrame]
		warnings = append(warnings, fmt.Sprintf("detections capped at %d per frame, %d removed", params.MaxDetectionsPerFrame, removed))
	}

	return valid, warnings
}

func (svc *limitsService) ResetSession(id string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.windows, id)
}

// checkRate enforces a sliding one-second window per session.
func (svc *limitsService) checkRate(sessionID string, maxPerSecond int) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	now := time.Now()
	window := svc.windows[sessionID][:0]
	for _, t := range svc.windows[sessionID] {
		if now.Sub(t) < time.Second {
			window = append(window, t)
		}
	}

	if len(window) >= maxPerSecond {
		svc.windows[sessionID] = window
		return xerrors.New(fmt.Sprintf("rate limit exceeded: max %d frames/second", maxPerSecond))
	}

	svc.windows[sessionID] = append(window, now)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
