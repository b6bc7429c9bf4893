package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	svc := NewEnv()

	assert.Equal(t, ":8765", svc.GetListenAddress())
	assert.Equal(t, "http://localhost:3000", svc.GetBackendURL())
	assert.Equal(t, 30*time.Second, svc.GetBackendTimeout())
	assert.Equal(t, 5*time.Minute, svc.GetSessionIdleTimeout())
	assert.Equal(t, 30, svc.GetTrackHistoryLimit())
	assert.Equal(t, 70, svc.GetAnnotationJPEGQuality())
	assert.Equal(t, "files", svc.GetDataServiceType())

	params := svc.GetGuardrailParameters()
	assert.Equal(t, 10*1024*1024, params.MaxFrameBytes)
	assert.Equal(t, 32, params.MinDimension)
	assert.Equal(t, 4096, params.MaxDimension)
	assert.Equal(t, 30, params.MaxFramesPerSecond)
	assert.Equal(t, 0.3, params.MinConfidence)
	assert.Equal(t, 100, params.MaxDetectionsPerFrame)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", ":9000")
	t.Setenv("BACKEND_URL", "http://inference:3000")
	t.Setenv("BACKEND_TIMEOUT", "250ms")
	t.Setenv("TRACK_HISTORY_LIMIT", "10")
	t.Setenv("DATA_SERVICE_TYPE", "sqlite")
	t.Setenv("GUARDRAIL_MIN_CONFIDENCE", "0.5")

	svc := NewEnv()

	assert.Equal(t, ":9000", svc.GetListenAddress())
	assert.Equal(t, "http://inference:3000", svc.GetBackendURL())
	assert.Equal(t, 250*time.Millisecond, svc.GetBackendTimeout())
	assert.Equal(t, 10, svc.GetTrackHistoryLimit())
	assert.Equal(t, "sqlite", svc.GetDataServiceType())
	assert.Equal(t, 0.5, svc.GetGuardrailParameters().MinConfidence)
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "soon")
	t.Setenv("TRACK_HISTORY_LIMIT", "many")
	t.Setenv("GUARDRAIL_MIN_CONFIDENCE", "high")

	svc := NewEnv()

	assert.Equal(t, 30*time.Second, svc.GetBackendTimeout())
	assert.Equal(t, 30, svc.GetTrackHistoryLimit())
	assert.Equal(t, 0.3, svc.GetGuardrailParameters().MinConfidence)
}
