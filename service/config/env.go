package config

import (
	"os"
	"strconv"
	"time"
)

type envService struct {
}

// NewEnv returns a config service backed by environment variables with
// documented defaults. Env vars are expected to be loaded by main
// (godotenv in dev mode).
func NewEnv() IService {
	return &envService{}
}

func (svc *envService) GetModeMaxShutdownTime() time.Duration {
	return envDuration("MODE_MAX_SHUTDOWN_TIME", 5*time.Second)
}

func (svc *envService) GetListenAddress() string {
	return envString("LISTEN_ADDRESS", ":8765")
}

func (svc *envService) GetBackendURL() string {
	return envString("BACKEND_URL", "http://localhost:3000")
}

func (svc *envService) GetBackendTimeout() time.Duration {
	return envDuration("BACKEND_TIMEOUT", 30*time.Second)
}

func (svc *envService) GetSessionIdleTimeout() time.Duration {
	return envDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute)
}

func (svc *envService) GetRelayPeriodicTimeout() time.Duration {
	return envDuration("RELAY_PERIODIC_TIMEOUT", 30*time.Second)
}

func (svc *envService) GetStatsBroadcastPeriod() time.Duration {
	return envDuration("STATS_BROADCAST_PERIOD", 1*time.Second)
}

func (svc *envService) GetTrackHistoryLimit() int {
	return envInt("TRACK_HISTORY_LIMIT", 30)
}

func (svc *envService) GetAnnotationJPEGQuality() int {
	return envInt("ANNOTATION_JPEG_QUALITY", 70)
}

func (svc *envService) GetDataFolder() string {
	return envString("DATA_FOLDER", "./data")
}

func (svc *envService) GetDataServiceType() string {
	// "files" or "sqlite"
	return envString("DATA_SERVICE_TYPE", "files")
}

func (svc *envService) GetGuardrailParameters() GuardrailParameters {
	return GuardrailParameters{
		MaxFrameBytes:         envInt("GUARDRAIL_MAX_FRAME_BYTES", 10*1024*1024),
		MinPayloadLength:      envInt("GUARDRAIL_MIN_PAYLOAD_LENGTH", 100),
		MinDimension:          envInt("GUARDRAIL_MIN_DIMENSION", 32),
		MaxDimension:          envInt("GUARDRAIL_MAX_DIMENSION", 4096),
		MaxFramesPerSecond:    envInt("GUARDRAIL_MAX_FPS", 30),
		MinConfidence:         envFloat("GUARDRAIL_MIN_CONFIDENCE", 0.3),
		MinBoxArea:            envFloat("GUARDRAIL_MIN_BOX_AREA", 100),
		MaxDetectionsPerFrame: envInt("GUARDRAIL_MAX_DETECTIONS", 100),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
