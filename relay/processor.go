package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/lgr"
)

// processFrame runs one frame through the relay contract: guardrail
// validation, backend detection with a bounded deadline, output
// filtering, session track-history update, and optional local
// annotation. Errors are per-frame; the caller keeps the connection
// open.
func processFrame(canxCtx context.Context, svcs ServicesFactory, client *Client, req model.FrameRequest, errorStream chan interface{}) (model.DetectionResponse, error) {
	resp := model.DetectionResponse{
		Type:      model.MessageTypeDetection,
		SessionID: client.SessionID,
	}

	img, err := svcs.GuardrailSvc.ValidateFrame(req.Frame, client.SessionID)
	if err != nil {
		reportError(errorStream, model.GenError("relay_processor",
			err,
			map[string]interface{}{"session": client.SessionID},
			"frame rejected"))
		return resp, err
	}
	defer img.Close()

	ctx, cancel := context.WithTimeout(canxCtx, svcs.CfgSvc.GetBackendTimeout())
	defer cancel()

	result, err := svcs.BackendSvc.Detect(ctx, req.Frame, client.SessionID, req.ReturnAnnotated)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			reportError(errorStream, model.GenError("relay_processor",
				err,
				map[string]interface{}{"session": client.SessionID},
				"backend call timed out"))
			return resp, xerrors.New("processing timeout")
		}

		reportError(errorStream, model.GenError("relay_processor",
			err,
			map[string]interface{}{"session": client.SessionID},
			"backend call failed"))
		return resp, xerrors.New("processing error: " + err.Error())
	}

	rows, cols := img.Rows(), img.Cols()
	if len(result.FrameShape) == 2 {
		rows, cols = result.FrameShape[0], result.FrameShape[1]
	}

	detections, warnings := svcs.GuardrailSvc.FilterDetections(result.Detections, rows, cols)
	for _, warning := range warnings {
		lgr.Logger.Debug(
			"detection filtered",
			slog.String("session", client.SessionID),
			slog.String("warning", warning),
		)
	}

	svcs.SessionSvc.RecordDetections(client.SessionID, detections)

	resp.Detections = detections
	if resp.Detections == nil {
		resp.Detections = []model.Detection{}
	}
	resp.FrameShape = []int{rows, cols}
	resp.Timestamp = result.Timestamp
	if resp.Timestamp == 0 {
		resp.Timestamp = float64(time.Now().UnixNano()) / float64(time.Second)
	}

	if req.ReturnAnnotated {
		resp.AnnotatedFrame = result.AnnotatedFrame
		if resp.AnnotatedFrame == "" {
			// Backend did not annotate; draw locally
			annotated, annErr := annotate(img, detections, svcs.SessionSvc, client.SessionID, svcs.CfgSvc.GetAnnotationJPEGQuality())
			if annErr != nil {
				reportError(errorStream, model.GenError("relay_processor",
					annErr,
					map[string]interface{}{"session": client.SessionID},
					"error annotating frame"))
			} else {
				resp.AnnotatedFrame = annotated
			}
		}
	}

	return resp, nil
}

func reportError(errorStream chan interface{}, err model.CustomError) {
	select {
	case errorStream <- err:
	default:
		lgr.Logger.Warn("errorStream full, dropping error")
	}
}
