package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"github.com/khaledhikmat/vr-go/model"
	"github.com/khaledhikmat/vr-go/service/config"
)

// The backend exposes a BentoML-style API: JSON POST endpoints where the
// detect payload is wrapped in a "data" field.
const (
	detectPath    = "/process_video_frame"
	modelInfoPath = "/get_model_info"
)

type detectEnvelope struct {
	Data detectPayload `json:"data"`
}

type detectPayload struct {
	Frame           string `json:"frame"`
	SessionID       string `json:"session_id"`
	ReturnAnnotated bool   `json:"return_annotated"`
}

type httpService struct {
	CfgSvc config.IService
	Client *http.Client

	mu           sync.Mutex
	calls        int64
	errors       int64
	totalLatency time.Duration
}

func NewHTTP(cfgsvc config.IService) IService {
	return &httpService{
		CfgSvc: cfgsvc,
		// The per-call deadline comes from the caller's context; the
		// client itself carries no timeout so that it can never undercut it.
		Client: &http.Client{},
	}
}

func (svc *httpService) Detect(ctx context.Context, frame string, sessionID string, returnAnnotated bool) (model.DetectionResult, error) {
	result := model.DetectionResult{SessionID: sessionID}

	body, err := json.Marshal(detectEnvelope{
		Data: detectPayload{
			Frame:           frame,
			SessionID:       sessionID,
			ReturnAnnotated: returnAnnotated,
		},
	})
	if err != nil {
		return result, err
	}

	started := time.Now()
	data, err := svc.post(ctx, detectPath, body)
	svc.record(time.Since(started), err)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal(data, &result); err != nil {
		svc.record(0, err)
		return result, xerrors.New(fmt.Sprintf("unexpected backend response: %s", err.Error()))
	}

	// The backend reports its own processing failures in-band
	if result.Error != "" {
		svc.record(0, xerrors.New(result.Error))
		return result, xerrors.New(result.Error)
	}

	return result, nil
}

func (svc *httpService) ModelInfo(ctx context.Context) (model.ModelInfo, error) {
	info := model.ModelInfo{}

	started := time.Now()
	data, err := svc.post(ctx, modelInfoPath, []byte(`{}`))
	svc.record(time.Since(started), err)
	if err != nil {
		return info, err
	}

	if err := json.Unmarshal(data, &info); err != nil {
		svc.record(0, err)
		return info, xerrors.New(fmt.Sprintf("unexpected backend response: %s", err.Error()))
	}

	return info, nil
}

func (svc *httpService) Stats() model.BackendStats {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	stats := model.BackendStats{
		Calls:  svc.calls,
		Errors: svc.errors,
	}
	if svc.calls > 0 {
		stats.AvgLatency = svc.totalLatency.Seconds() / float64(svc.calls)
	}
	return stats
}

func (svc *httpService) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.CfgSvc.GetBackendURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := svc.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, xerrors.New(fmt.Sprintf("backend returned %d: %s", resp.StatusCode, string(data)))
	}

	return data, nil
}

func (svc *httpService) record(latency time.Duration, err error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if latency > 0 {
		svc.calls++
		svc.totalLatency += latency
	}
	if err != nil {
		svc.errors++
	}
}
